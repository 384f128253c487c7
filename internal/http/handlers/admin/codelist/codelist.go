// Package codelist реализует HTTP-обработчик списка академических кодов.
package codelist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/researchnest/researchnest/internal/http/response"
	"github.com/researchnest/researchnest/internal/lib/sl"
	"github.com/researchnest/researchnest/internal/models"
)

// Service описывает интерфейс реестра кодов.
type Service interface {
	List(ctx context.Context) ([]*models.AcademicCode, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.codelist"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	codes, err := h.service.List(r.Context())
	if err != nil {
		log.Error("failed to list codes", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list codes"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"codes": codes,
		"count": len(codes),
	}))
}
