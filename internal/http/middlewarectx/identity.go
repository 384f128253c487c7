// Package middlewarectx содержит HTTP middleware разрешения личности запроса.
//
// Личность устанавливается в фиксированном порядке: сначала заголовок
// федеративной сессии X-Session-Token (непрозрачный идентификатор
// обменивается у провайдера на подтверждённую почту), затем локальный
// JWT в заголовке Authorization. Неизвестная или истекшая сессия
// личности не дает, и запрос проверяется по JWT. Токен несёт только
// UID и почту; привилегии обработчики всегда читают из базы заново.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/researchnest/researchnest/internal/federated"
	"github.com/researchnest/researchnest/internal/http/response"
	"github.com/researchnest/researchnest/internal/lib/sl"
	"github.com/researchnest/researchnest/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserUID — ключ UID пользователя в контексте.
	UserUID Key = "user_uid"
	// UserEmail — ключ почты пользователя в контексте.
	UserEmail Key = "user_email"
)

// SessionHeader — заголовок федеративной сессии.
const SessionHeader = "X-Session-Token"

// IdentityService сопоставляет токены и сессии локальным пользователям.
type IdentityService interface {
	ValidateToken(ctx context.Context, token string) (userUID, email string, err error)
	FederatedSignIn(ctx context.Context, email, name string) (*models.User, error)
}

// SessionVerifier подтверждает федеративную сессию у внешнего провайдера.
type SessionVerifier interface {
	VerifySession(ctx context.Context, session string) (email, name string, err error)
}

// AuthMiddleware возвращает middleware, устанавливающий личность запроса.
// Запрос без валидной сессии и без валидного токена анонимен и получает 401.
func AuthMiddleware(identity IdentityService, sessions SessionVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.AuthMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			if session := r.Header.Get(SessionHeader); session != "" {
				email, name, err := sessions.VerifySession(r.Context(), session)
				switch {
				case errors.Is(err, federated.ErrInvalidSession):
					// Неизвестная или истекшая сессия не дает личности,
					// запрос проверяется дальше по заголовку Authorization.
					log.Warn("invalid federated session, falling back to bearer token")
				case err != nil:
					log.Error("session provider unavailable", sl.Err(err))
					w.WriteHeader(http.StatusInternalServerError)
					render.JSON(w, r, response.Error("internal service error"))
					return
				default:
					user, err := identity.FederatedSignIn(r.Context(), email, name)
					if err != nil {
						log.Error("failed to resolve federated user", sl.Err(err))
						w.WriteHeader(http.StatusInternalServerError)
						render.JSON(w, r, response.Error("internal service error"))
						return
					}
					ctx := context.WithValue(r.Context(), UserUID, user.UID)
					ctx = context.WithValue(ctx, UserEmail, user.Email)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Error("missing or invalid authorization header")
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			userUID, email, err := identity.ValidateToken(r.Context(), tokenStr)
			if err != nil {
				log.Error("invalid or expired token", sl.Err(err))
				w.WriteHeader(http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), UserUID, userUID)
			ctx = context.WithValue(ctx, UserEmail, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
