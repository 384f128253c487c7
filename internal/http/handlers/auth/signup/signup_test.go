package signup

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	authservice "github.com/researchnest/researchnest/internal/services/auth"
	"github.com/researchnest/researchnest/internal/storage/repository"
)

// Мок сервиса с методом Register
type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Register(ctx context.Context, email, rawPassword, academicCode string) (string, string, error) {
	args := m.Called(ctx, email, rawPassword, academicCode)
	return args.String(0), args.String(1), args.Error(2)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestSignupHandler_ServeHTTP(t *testing.T) {
	authMock := new(AuthServiceMock)
	logger := newNoopLogger()

	handler := New(logger, authMock)

	tests := []struct {
		name           string
		requestBody    interface{}
		mockUID        string
		mockToken      string
		mockErr        error
		wantStatusCode int
		wantData       map[string]any
		wantError      string
		wantStatus     string
	}{
		{
			name: "valid signup",
			requestBody: Request{
				Email:    "user1@example.com",
				Password: "password123",
			},
			mockUID:        "uid-123",
			mockToken:      "token-abc",
			wantStatusCode: http.StatusOK,
			wantData: map[string]any{
				"user_uid": "uid-123",
				"token":    "token-abc",
			},
			wantStatus: "OK",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
			wantStatus:     "Error",
		},
		{
			name: "validation error - short password",
			requestBody: Request{
				Email:    "user1@example.com",
				Password: "short",
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field Password is too short",
			wantStatus:     "Error",
		},
		{
			name: "email already registered",
			requestBody: Request{
				Email:    "taken@example.com",
				Password: "password123",
			},
			mockErr:        repository.ErrEmailTaken,
			wantStatusCode: http.StatusConflict,
			wantError:      "email already registered",
			wantStatus:     "Error",
		},
		{
			name: "invalid academic code",
			requestBody: Request{
				Email:        "user1@example.com",
				Password:     "password123",
				AcademicCode: "EDU-BADCODE1",
			},
			mockErr:        authservice.ErrInvalidAcademicCode,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid or used academic code",
			wantStatus:     "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock.ExpectedCalls = nil
			authMock.Calls = nil

			if req, ok := tt.requestBody.(Request); ok && len(req.Password) >= 8 {
				authMock.On("Register", mock.Anything,
					req.Email, req.Password, req.AcademicCode,
				).Return(tt.mockUID, tt.mockToken, tt.mockErr).Once()
			}

			var bodyBytes []byte
			var err error
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				bodyBytes, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatal(err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/auth/signup", bytes.NewReader(bodyBytes))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))

			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			err = json.NewDecoder(rec.Body).Decode(&got)
			assert.NoError(t, err)

			assert.Equal(t, tt.wantStatus, got["status"])

			if tt.wantError != "" {
				errStr, ok := got["error"].(string)
				assert.True(t, ok)
				assert.Equal(t, tt.wantError, errStr)
			} else {
				assert.Nil(t, got["error"])
			}

			if tt.wantData != nil {
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				for k, v := range tt.wantData {
					assert.Equal(t, v, data[k])
				}
			} else {
				assert.Nil(t, got["data"])
			}

			authMock.AssertExpectations(t)
		})
	}
}

func TestSignupHandler_SetsTokenCookie(t *testing.T) {
	authMock := new(AuthServiceMock)
	handler := New(newNoopLogger(), authMock)

	authMock.On("Register", mock.Anything, "user1@example.com", "password123", "").
		Return("uid-123", "token-abc", nil).Once()

	body, _ := json.Marshal(Request{Email: "user1@example.com", Password: "password123"})
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	var tokenCookie *http.Cookie
	for _, c := range cookies {
		if c.Name == "token" {
			tokenCookie = c
		}
	}
	if assert.NotNil(t, tokenCookie) {
		assert.Equal(t, "token-abc", tokenCookie.Value)
		assert.True(t, tokenCookie.HttpOnly)
	}
}
