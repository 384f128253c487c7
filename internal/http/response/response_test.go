package response

import (
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOKWithData(t *testing.T) {
	resp := StatusOKWithData(map[string]int{"count": 3})
	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
	assert.NotNil(t, resp.Data)
}

func TestError(t *testing.T) {
	resp := Error("something broke")
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "something broke", resp.Error)
}

func TestValidationError(t *testing.T) {
	type request struct {
		Email string   `validate:"required,email"`
		Topic string   `validate:"required,min=3"`
		Tags  []string `validate:"max=5"`
	}

	v := validator.New()
	err := v.Struct(request{Email: "not-an-email", Topic: "ab", Tags: []string{"a", "b", "c", "d", "e", "f"}})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field Email must be a valid email")
	assert.Contains(t, resp.Error, "field Topic is too short")
	assert.Contains(t, resp.Error, "field Tags is too long")
}
