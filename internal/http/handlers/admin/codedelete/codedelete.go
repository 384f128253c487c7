// Package codedelete реализует HTTP-обработчик удаления
// неиспользованного академического кода.
package codedelete

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/researchnest/researchnest/internal/http/response"
	"github.com/researchnest/researchnest/internal/lib/sl"
	"github.com/researchnest/researchnest/internal/storage/repository"
)

// Service описывает интерфейс реестра кодов.
type Service interface {
	Delete(ctx context.Context, codeID string) error
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
	const op = "handlers.admin.codedelete"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	codeID := chi.URLParam(r, "id")
	if codeID == "" {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("code id is required"))
		return
	}

	err := h.service.Delete(r.Context(), codeID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		log.Warn("code not found", "code_id", codeID)
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("code not found"))
		return
	case errors.Is(err, repository.ErrCodeUsed):
		log.Warn("attempt to delete redeemed code", "code_id", codeID)
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("redeemed codes cannot be deleted"))
		return
	case err != nil:
		log.Error("failed to delete code", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not delete code"))
		return
	}

	log.Info("academic code deleted", "code_id", codeID)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"deleted": codeID,
	}))
}
