// Package codegenerate реализует HTTP-обработчик генерации
// академических кодов.
package codegenerate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/researchnest/researchnest/internal/http/response"
	"github.com/researchnest/researchnest/internal/lib/sl"
)

// Request — входные данные генерации. Значения за пределами допустимого
// диапазона сервис приводит к границам сам.
type Request struct {
	Prefix string `json:"prefix"`
	Count  int    `json:"count"`
}

// Service описывает интерфейс реестра кодов.
type Service interface {
	Generate(ctx context.Context, prefix string, count int) ([]string, error)
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

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.codegenerate"
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

	codes, err := h.service.Generate(r.Context(), req.Prefix, req.Count)
	if err != nil {
		log.Error("failed to generate codes", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not generate codes"))
		return
	}

	log.Info("academic codes generated", "count", len(codes))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"codes": codes,
		"count": len(codes),
	}))
}
