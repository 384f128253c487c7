// Package run реализует HTTP-обработчик поиска научных статей.
package run

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/researchnest/researchnest/internal/http/middlewarectx"
	"github.com/researchnest/researchnest/internal/http/response"
	"github.com/researchnest/researchnest/internal/lib/sl"
	"github.com/researchnest/researchnest/internal/models"
	searchservice "github.com/researchnest/researchnest/internal/services/search"
)

// Service описывает интерфейс оркестратора поиска.
type Service interface {
	Run(ctx context.Context, userUID string, q models.SearchQuery) ([]models.Paper, models.Entitlement, error)
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Найти научные статьи
// @Description Выполняет поиск по теме и ключевым словам. Для привилегированных пользователей с целью исследования результаты переранжирует языковая модель.
// @Tags Search
// @Accept json
// @Produce json
// @Param request body models.SearchQuery true "Параметры поиска"
// @Success 200 {object} response.Response "Список статей и использование квоты"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.Response "Квота поисков исчерпана"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Внешний индекс недоступен"
// @Router /search [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.search.run"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user identification missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	papers, ent, err := h.service.Run(r.Context(), userUID, req)
	var quotaErr *searchservice.QuotaExceededError
	if errors.As(err, &quotaErr) {
		log.Warn("search quota exceeded",
			"user_uid", userUID, "used", quotaErr.Used, "limit", quotaErr.Limit)
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Response{
			Status: response.StatusError,
			Error:  "search limit reached",
			Data: map[string]any{
				"searches_used":  quotaErr.Used,
				"searches_limit": quotaErr.Limit,
			},
		})
		return
	}
	if err != nil {
		log.Error("search failed", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("search is temporarily unavailable"))
		return
	}

	log.Info("search completed", "user_uid", userUID, "results", len(papers))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"papers":         papers,
		"count":          len(papers),
		"is_privileged":  ent.IsPrivileged,
		"searches_used":  ent.SearchesUsed,
		"searches_limit": ent.SearchesLimit,
	}))
}
