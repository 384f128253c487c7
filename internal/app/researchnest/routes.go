// Package researchnest предоставляет маршруты для основного приложения.
package researchnest

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/researchnest/researchnest/internal/federated"
	"github.com/researchnest/researchnest/internal/http/handlers/admin/codedelete"
	"github.com/researchnest/researchnest/internal/http/handlers/admin/codegenerate"
	"github.com/researchnest/researchnest/internal/http/handlers/admin/codelist"
	adminsettings "github.com/researchnest/researchnest/internal/http/handlers/admin/settings"
	adminstats "github.com/researchnest/researchnest/internal/http/handlers/admin/stats"
	"github.com/researchnest/researchnest/internal/http/handlers/admin/togglepremium"
	adminusers "github.com/researchnest/researchnest/internal/http/handlers/admin/users"
	"github.com/researchnest/researchnest/internal/http/handlers/auth/forgot"
	"github.com/researchnest/researchnest/internal/http/handlers/auth/login"
	"github.com/researchnest/researchnest/internal/http/handlers/auth/reset"
	"github.com/researchnest/researchnest/internal/http/handlers/auth/signup"
	"github.com/researchnest/researchnest/internal/http/handlers/entitlement/check"
	"github.com/researchnest/researchnest/internal/http/handlers/export/bibliography"
	"github.com/researchnest/researchnest/internal/http/handlers/health"
	"github.com/researchnest/researchnest/internal/http/handlers/plan/generate"
	"github.com/researchnest/researchnest/internal/http/handlers/search/run"
	"github.com/researchnest/researchnest/internal/http/handlers/subscription/verify"
	"github.com/researchnest/researchnest/internal/http/handlers/usage/increment"
	"github.com/researchnest/researchnest/internal/http/middlewarectx"
	adminservice "github.com/researchnest/researchnest/internal/services/admin"
	authservice "github.com/researchnest/researchnest/internal/services/auth"
	codesservice "github.com/researchnest/researchnest/internal/services/codes"
	entitlementservice "github.com/researchnest/researchnest/internal/services/entitlement"
	exportservice "github.com/researchnest/researchnest/internal/services/export"
	paymentservice "github.com/researchnest/researchnest/internal/services/payment"
	planservice "github.com/researchnest/researchnest/internal/services/plan"
	searchservice "github.com/researchnest/researchnest/internal/services/search"
	"github.com/researchnest/researchnest/internal/storage/repository"
)

// Services — собранные сервисы приложения, передаваемые в маршруты.
type Services struct {
	Auth        *authservice.AuthService
	Entitlement *entitlementservice.EntitlementService
	Search      *searchservice.SearchService
	Plan        *planservice.PlanService
	Export      *exportservice.ExportService
	Payment     *paymentservice.PaymentService
	Codes       *codesservice.CodesService
	Admin       *adminservice.AdminService
	Sessions    *federated.Client
	Users       *repository.Storage
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s *Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/health", health.New(logger, s.Users).ServeHTTP)
		r.Post("/auth/signup", signup.New(logger, s.Auth).ServeHTTP)
		r.Post("/auth/login", login.New(logger, s.Auth).ServeHTTP)
		r.Post("/auth/forgot-password", forgot.New(logger, s.Auth).ServeHTTP)
		r.Post("/auth/reset-password", reset.New(logger, s.Auth).ServeHTTP)

		// Группа с аутентификацией: федеративная сессия или JWT
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.AuthMiddleware(s.Auth, s.Sessions, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/entitlements", check.New(logger, s.Entitlement).ServeHTTP)
			r.Post("/search", run.New(logger, s.Search).ServeHTTP)
			r.Post("/usage/search", increment.New(logger, s.Entitlement).ServeHTTP)
			r.Post("/subscription/verify", verify.New(logger, s.Payment).ServeHTTP)
			r.Post("/plan/monthly", generate.New(logger, s.Plan).ServeHTTP)
			r.Post("/export/bibliography", bibliography.New(logger, s.Export).ServeHTTP)

			// Административная панель
			r.Route("/admin", func(r chi.Router) {
				r.Use(middlewarectx.RequireAdmin(s.Users, logger))
				r.Get("/users", adminusers.New(logger, s.Admin).ServeHTTP)
				r.Post("/users/premium", togglepremium.New(logger, s.Admin).ServeHTTP)
				r.Post("/codes", codegenerate.New(logger, s.Codes).ServeHTTP)
				r.Get("/codes", codelist.New(logger, s.Codes).ServeHTTP)
				r.Delete("/codes/{id}", codedelete.New(logger, s.Codes).ServeHTTP)
				settingsHandler := adminsettings.New(logger, s.Admin)
				r.Get("/settings", settingsHandler.Get)
				r.Put("/settings", settingsHandler.Update)
				r.Get("/stats", adminstats.New(logger, s.Admin).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
