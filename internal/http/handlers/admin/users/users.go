// Package users реализует HTTP-обработчик списка пользователей
// для панели администратора.
package users

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/researchnest/researchnest/internal/http/response"
	"github.com/researchnest/researchnest/internal/lib/sl"
	"github.com/researchnest/researchnest/internal/models"
)

// UserView — представление пользователя в ответе администратору.
type UserView struct {
	UID                string     `json:"uid"`
	Email              string     `json:"email"`
	Badge              string     `json:"badge"`
	IsPremium          bool       `json:"is_premium"`
	IsAdmin            bool       `json:"is_admin"`
	IsAcademicTester   bool       `json:"is_academic_tester"`
	SubscriptionStatus string     `json:"subscription_status"`
	SearchesUsed       int        `json:"searches_used"`
	SearchesLimit      int        `json:"searches_limit"`
	SubscriptionExpire *time.Time `json:"subscription_expire,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Service описывает интерфейс административных операций.
type Service interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
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
	const op = "handlers.admin.users"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list users"))
		return
	}

	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, UserView{
			UID:                u.UID,
			Email:              u.Email,
			Badge:              u.Badge(),
			IsPremium:          u.IsPremium,
			IsAdmin:            u.IsAdmin,
			IsAcademicTester:   u.IsAcademicTester,
			SubscriptionStatus: u.SubscriptionStatus,
			SearchesUsed:       u.SearchesUsed,
			SearchesLimit:      u.SearchesLimit,
			SubscriptionExpire: u.SubscriptionExpire,
			CreatedAt:          u.CreatedAt,
		})
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"users": views,
		"count": len(views),
	}))
}
