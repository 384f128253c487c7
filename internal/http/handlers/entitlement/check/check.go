// Package check реализует HTTP-обработчик чтения текущих прав пользователя.
//
// Права вычисляются заново при каждом запросе: флаги пользователя и глобальные
// настройки читаются из базы, токен никаких привилегий не несёт.
package check

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/researchnest/researchnest/internal/http/middlewarectx"
	"github.com/researchnest/researchnest/internal/http/response"
	"github.com/researchnest/researchnest/internal/lib/sl"
	"github.com/researchnest/researchnest/internal/models"
)

// Service описывает интерфейс движка прав доступа.
type Service interface {
	Check(ctx context.Context, userUID string) (models.Entitlement, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Текущие права пользователя
// @Description Возвращает права и лимиты, вычисленные на момент запроса.
// @Tags Entitlements
// @Produce json
// @Success 200 {object} response.Response{data=models.Entitlement}
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /entitlements [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.entitlement.check"
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

	ent, err := h.service.Check(r.Context(), userUID)
	if err != nil {
		log.Error("failed to check entitlement", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not resolve entitlement"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(ent))
}
