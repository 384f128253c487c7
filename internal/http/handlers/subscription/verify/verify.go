// Package verify реализует HTTP-обработчик подтверждения оплаты подписки.
package verify

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
	paymentservice "github.com/researchnest/researchnest/internal/services/payment"
)

// Request — входные данные подтверждения оплаты.
type Request struct {
	Reference string `json:"reference" validate:"required"`
}

// Service описывает интерфейс проверки транзакции.
type Service interface {
	Verify(ctx context.Context, reference, userUID string) error
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
	const op = "handlers.subscription.verify"
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

	err := h.service.Verify(r.Context(), req.Reference, userUID)
	if errors.Is(err, paymentservice.ErrPaymentNotSuccessful) {
		log.Warn("payment not successful", "reference", req.Reference)
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("payment was not successful"))
		return
	}
	if err != nil {
		log.Error("failed to verify payment", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not verify payment"))
		return
	}

	log.Info("subscription activated", "user_uid", userUID)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "subscription activated",
	}))
}
