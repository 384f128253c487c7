package run

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/researchnest/researchnest/internal/http/middlewarectx"
	"github.com/researchnest/researchnest/internal/models"
	searchservice "github.com/researchnest/researchnest/internal/services/search"
)

// Мок оркестратора поиска
type SearchServiceMock struct {
	mock.Mock
}

func (m *SearchServiceMock) Run(ctx context.Context, userUID string, q models.SearchQuery) ([]models.Paper, models.Entitlement, error) {
	args := m.Called(ctx, userUID, q)
	papers, _ := args.Get(0).([]models.Paper)
	ent, _ := args.Get(1).(models.Entitlement)
	return papers, ent, args.Error(2)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newAuthedRequest(body []byte, userUID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
	if userUID != "" {
		ctx = context.WithValue(ctx, middlewarectx.UserUID, userUID)
	}
	return req.WithContext(ctx)
}

func TestRunHandler_ServeHTTP(t *testing.T) {
	searchMock := new(SearchServiceMock)
	handler := New(newNoopLogger(), searchMock)

	validQuery := models.SearchQuery{Topic: "graph neural networks", Limit: 5}
	foundPapers := []models.Paper{
		{Title: "Paper A", URL: "https://example.com/a", Score: 0.9},
		{Title: "Paper B", URL: "https://example.com/b", Score: 0.7},
	}
	freeEntitlement := models.Entitlement{
		CanSearch:     true,
		SearchesUsed:  1,
		SearchesLimit: 1,
	}

	tests := []struct {
		name           string
		userUID        string
		requestBody    interface{}
		mockPapers     []models.Paper
		mockEnt        models.Entitlement
		mockErr        error
		wantStatusCode int
		wantError      string
		wantStatus     string
	}{
		{
			name:           "successful search",
			userUID:        "uid-123",
			requestBody:    validQuery,
			mockPapers:     foundPapers,
			mockEnt:        freeEntitlement,
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name:           "missing identity",
			userUID:        "",
			requestBody:    validQuery,
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "unauthorized",
			wantStatus:     "Error",
		},
		{
			name:           "invalid json body",
			userUID:        "uid-123",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
			wantStatus:     "Error",
		},
		{
			name:           "validation error - short topic",
			userUID:        "uid-123",
			requestBody:    models.SearchQuery{Topic: "ab"},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field Topic is too short",
			wantStatus:     "Error",
		},
		{
			name:           "quota exceeded",
			userUID:        "uid-123",
			requestBody:    validQuery,
			mockErr:        &searchservice.QuotaExceededError{Used: 1, Limit: 1},
			wantStatusCode: http.StatusForbidden,
			wantError:      "search limit reached",
			wantStatus:     "Error",
		},
		{
			name:           "upstream index failure",
			userUID:        "uid-123",
			requestBody:    validQuery,
			mockErr:        errors.New("index unavailable"),
			wantStatusCode: http.StatusBadGateway,
			wantError:      "search is temporarily unavailable",
			wantStatus:     "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searchMock.ExpectedCalls = nil
			searchMock.Calls = nil

			if q, ok := tt.requestBody.(models.SearchQuery); ok && tt.userUID != "" && len(q.Topic) >= 3 {
				searchMock.On("Run", mock.Anything, tt.userUID, q).
					Return(tt.mockPapers, tt.mockEnt, tt.mockErr).Once()
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

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, newAuthedRequest(bodyBytes, tt.userUID))

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			err = json.NewDecoder(rec.Body).Decode(&got)
			assert.NoError(t, err)

			assert.Equal(t, tt.wantStatus, got["status"])
			if tt.wantError != "" {
				errStr, ok := got["error"].(string)
				assert.True(t, ok)
				assert.Equal(t, tt.wantError, errStr)
			}

			searchMock.AssertExpectations(t)
		})
	}
}

// Ответ с исчерпанной квотой несет текущее использование.
func TestRunHandler_QuotaResponseData(t *testing.T) {
	searchMock := new(SearchServiceMock)
	handler := New(newNoopLogger(), searchMock)

	query := models.SearchQuery{Topic: "protein folding"}
	searchMock.On("Run", mock.Anything, "uid-123", query).
		Return(nil, models.Entitlement{}, &searchservice.QuotaExceededError{Used: 1, Limit: 1}).Once()

	body, _ := json.Marshal(query)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newAuthedRequest(body, "uid-123"))

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var got map[string]any
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	data, ok := got["data"].(map[string]any)
	if assert.True(t, ok) {
		assert.Equal(t, float64(1), data["searches_used"])
		assert.Equal(t, float64(1), data["searches_limit"])
	}
}
