// Package generate реализует HTTP-обработчик генерации плана чтения.
package generate

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
	planservice "github.com/researchnest/researchnest/internal/services/plan"
)

// Request — входные данные генерации плана.
type Request struct {
	Papers      []models.Paper `json:"papers" validate:"required,min=1"`
	TargetCount int            `json:"target_count"`
}

// Service описывает интерфейс генератора плана чтения.
type Service interface {
	Generate(ctx context.Context, userUID string, papers []models.Paper, targetCount int) (*models.ReadingPlan, error)
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
// @Summary Построить план чтения
// @Description Раскладывает до пятнадцати статей по четырем неделям. Доступно привилегированным пользователям.
// @Tags Plan
// @Accept json
// @Produce json
// @Param request body Request true "Ранжированные статьи и размер плана"
// @Success 200 {object} response.Response{data=models.ReadingPlan}
// @Failure 403 {object} response.ErrorResponse "Нужен премиум-доступ"
// @Router /plan/monthly [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.generate"
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

	plan, err := h.service.Generate(r.Context(), userUID, req.Papers, req.TargetCount)
	if errors.Is(err, planservice.ErrPremiumRequired) {
		log.Warn("plan generation denied", "user_uid", userUID)
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("plan generation requires premium access"))
		return
	}
	if err != nil {
		log.Error("failed to generate plan", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not generate plan"))
		return
	}

	log.Info("reading plan generated", "user_uid", userUID, "papers", plan.Count)
	render.JSON(w, r, response.StatusOKWithData(plan))
}
