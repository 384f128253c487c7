package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type ReadinessMock struct {
	mock.Mock
}

func (m *ReadinessMock) CheckReady(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthHandler_Ready(t *testing.T) {
	storage := new(ReadinessMock)
	storage.On("CheckReady", mock.Anything).Return(nil)
	handler := New(newNoopLogger(), storage)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "OK", got["status"])
}

func TestHealthHandler_StorageDown(t *testing.T) {
	storage := new(ReadinessMock)
	storage.On("CheckReady", mock.Anything).Return(errors.New("connection refused"))
	handler := New(newNoopLogger(), storage)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var got map[string]any
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "storage unavailable", got["error"])
}
