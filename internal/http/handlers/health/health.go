// Package health реализует проверку работоспособности сервиса.
// Готовность определяется состоянием хранилища: без живой базы
// с накатанными миграциями сервис трафик не принимает.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/researchnest/researchnest/internal/http/response"
	"github.com/researchnest/researchnest/internal/lib/sl"
)

// Readiness описывает интерфейс проверки готовности хранилища.
type Readiness interface {
	CheckReady(ctx context.Context) error
}

type Handler struct {
	log     *slog.Logger
	storage Readiness
}

// New создает новый Handler с переданными логгером и хранилищем.
func New(log *slog.Logger, storage Readiness) *Handler {
	return &Handler{
		log:     log,
		storage: storage,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if err := h.storage.CheckReady(r.Context()); err != nil {
		log.Error("storage is not ready", sl.Err(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("storage unavailable"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"status": "ok",
	}))
}
