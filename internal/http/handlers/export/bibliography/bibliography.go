// Package bibliography реализует HTTP-обработчик экспорта библиографии.
// В отличие от остальных обработчиков отвечает не JSON-конвертом,
// а готовым файлом с заголовком Content-Disposition.
package bibliography

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
	exportservice "github.com/researchnest/researchnest/internal/services/export"
)

// Request — входные данные экспорта.
type Request struct {
	Format   string         `json:"format" validate:"required,oneof=latex word"`
	Topic    string         `json:"topic" validate:"required"`
	Keywords []string       `json:"keywords" validate:"max=5"`
	Papers   []models.Paper `json:"papers" validate:"required,min=1"`
}

// Service описывает интерфейс сборщика библиографии.
type Service interface {
	Export(ctx context.Context, userUID, format, topic string, keywords []string, papers []models.Paper) (*exportservice.Document, error)
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
	const op = "handlers.export.bibliography"
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

	var req Request
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

	doc, err := h.service.Export(r.Context(), userUID, req.Format, req.Topic, req.Keywords, req.Papers)
	if errors.Is(err, exportservice.ErrPremiumRequired) {
		log.Warn("export denied", "user_uid", userUID)
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("export requires premium access"))
		return
	}
	if errors.Is(err, exportservice.ErrUnsupportedFormat) {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("unsupported export format"))
		return
	}
	if err != nil {
		log.Error("failed to export bibliography", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not export bibliography"))
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(doc.Body)); err != nil {
		log.Error("failed to write export body", sl.Err(err))
	}
}
