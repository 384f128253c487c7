// Package increment реализует HTTP-обработчик учета выполненного поиска.
//
// Привилегированность пересчитывается по записи в базе на момент запроса.
// Привилегированные пользователи не учитываются, счетчик бесплатного тарифа
// увеличивается атомарно.
package increment

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/researchnest/researchnest/internal/http/middlewarectx"
	"github.com/researchnest/researchnest/internal/http/response"
	"github.com/researchnest/researchnest/internal/lib/sl"
	"github.com/researchnest/researchnest/internal/models"
	"github.com/researchnest/researchnest/internal/storage/repository"
)

// Service описывает интерфейс движка прав с учетом использования.
type Service interface {
	Check(ctx context.Context, userUID string) (models.Entitlement, error)
	RecordSearch(ctx context.Context, userUID string, ent models.Entitlement) error
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
	const op = "handlers.usage.increment"
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
	if !ent.CanSearch {
		log.Warn("quota exceeded", "user_uid", userUID)
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Response{
			Status: response.StatusError,
			Error:  "search limit reached",
			Data: map[string]any{
				"searches_used":  ent.SearchesUsed,
				"searches_limit": ent.SearchesLimit,
			},
		})
		return
	}

	if err := h.service.RecordSearch(r.Context(), userUID, ent); err != nil {
		// Проигравший гонку за последний поиск получает тот же ответ,
		// что и при заранее исчерпанной квоте.
		if errors.Is(err, repository.ErrQuotaExceeded) {
			log.Warn("quota exceeded", "user_uid", userUID)
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Response{
				Status: response.StatusError,
				Error:  "search limit reached",
				Data: map[string]any{
					"searches_used":  ent.SearchesLimit,
					"searches_limit": ent.SearchesLimit,
				},
			})
			return
		}
		log.Error("failed to record search", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not record search"))
		return
	}

	counted := !ent.IsPrivileged
	used := ent.SearchesUsed
	if counted {
		used++
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"counted":        counted,
		"searches_used":  used,
		"searches_limit": ent.SearchesLimit,
	}))
}
