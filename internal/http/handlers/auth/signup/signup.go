// Package signup реализует HTTP-обработчик регистрации пользователя.
//
// Handler принимает почту, пароль и необязательный академический код,
// создает аккаунт и возвращает JWT. Токен дополнительно выставляется
// HttpOnly-кукой на семь дней.
package signup

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/researchnest/researchnest/internal/http/response"
	"github.com/researchnest/researchnest/internal/lib/sl"
	authservice "github.com/researchnest/researchnest/internal/services/auth"
	"github.com/researchnest/researchnest/internal/storage/repository"
)

// Request — входные данные для регистрации.
type Request struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	AcademicCode string `json:"academic_code,omitempty"`
}

// Service описывает интерфейс бизнес-логики регистрации.
type Service interface {
	Register(ctx context.Context, email, rawPassword, academicCode string) (string, string, error)
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
// @Summary Зарегистрировать пользователя
// @Description Создает аккаунт по почте и паролю. Необязательный академический код дает статус академического тестировщика.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Данные регистрации"
// @Success 200 {object} response.Response "Аккаунт создан, в данных UID и токен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или код"
// @Failure 409 {object} response.ErrorResponse "Почта уже занята"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /auth/signup [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.signup"
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

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	uid, token, err := h.service.Register(r.Context(), req.Email, req.Password, req.AcademicCode)
	if errors.Is(err, repository.ErrEmailTaken) {
		log.Warn("email already registered", "email", req.Email)
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("email already registered"))
		return
	}
	if errors.Is(err, authservice.ErrInvalidAcademicCode) {
		log.Warn("invalid academic code on signup")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid or used academic code"))
		return
	}
	if err != nil {
		log.Error("failed to register user", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not register user"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	log.Info("user registered", "user_uid", uid)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user_uid": uid,
		"token":    token,
	}))
}
