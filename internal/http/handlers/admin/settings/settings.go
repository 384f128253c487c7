// Package settings реализует HTTP-обработчики чтения и обновления
// глобальных настроек сервиса.
package settings

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/researchnest/researchnest/internal/http/response"
	"github.com/researchnest/researchnest/internal/lib/sl"
	"github.com/researchnest/researchnest/internal/models"
)

// Request — входные данные обновления настроек.
type Request struct {
	FreeAccessEnabled bool       `json:"free_access_enabled"`
	FreeAccessUntil   *time.Time `json:"free_access_until"`
}

// Service описывает интерфейс работы с глобальными настройками.
type Service interface {
	GetSettings(ctx context.Context) (models.SystemSettings, error)
	UpdateSettings(ctx context.Context, settings models.SystemSettings) error
}

type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// Get возвращает текущие глобальные настройки.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.settings.Get"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	settings, err := h.service.GetSettings(r.Context())
	if err != nil {
		log.Error("failed to get settings", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not load settings"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(settings))
}

// Update сохраняет глобальные настройки свободного доступа.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.settings.Update"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	settings := models.SystemSettings{
		FreeAccessEnabled: req.FreeAccessEnabled,
		FreeAccessUntil:   req.FreeAccessUntil,
	}
	if err := h.service.UpdateSettings(r.Context(), settings); err != nil {
		log.Error("failed to update settings", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update settings"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(settings))
}
