// Package researchnest собирает основное HTTP-приложение: хранилище,
// кеш, брокер сообщений, внешние клиенты и все сервисы поверх них.
package researchnest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/researchnest/researchnest/internal/cache"
	"github.com/researchnest/researchnest/internal/config"
	"github.com/researchnest/researchnest/internal/federated"
	"github.com/researchnest/researchnest/internal/lib/jwt"
	"github.com/researchnest/researchnest/internal/lib/rabbitmq"
	"github.com/researchnest/researchnest/internal/migrations"
	"github.com/researchnest/researchnest/internal/paperindex"
	"github.com/researchnest/researchnest/internal/paymentprovider"
	"github.com/researchnest/researchnest/internal/reranker"
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

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQConnection, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}
	publisher := &rabbitmq.ChannelPublisher{Ch: ch, Exchange: rabbitmq.NotificationsExchange}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	sessionVerifier := federated.NewClient(cfg.Federated)
	indexClient := paperindex.NewClient(cfg.PaperIndex)
	rerankerClient := reranker.NewClient(cfg.Reranker)
	providerClient := paymentprovider.NewClient(cfg.PaymentProvider)

	authService := authservice.NewAuthService(db, db, jwtMaker, publisher, cfg.AppURL, logger)
	entitlementService := entitlementservice.NewEntitlementService(db, db, logger)
	searchService := searchservice.NewSearchService(entitlementService, indexClient, rerankerClient, cacheRedis, logger)
	planService := planservice.NewPlanService(entitlementService, logger)
	exportService := exportservice.NewExportService(entitlementService, logger)
	paymentService := paymentservice.NewPaymentService(providerClient, db, logger)
	codesService := codesservice.NewCodesService(db, logger)
	adminService := adminservice.NewAdminService(db, db, db, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, &Services{
		Auth:        authService,
		Entitlement: entitlementService,
		Search:      searchService,
		Plan:        planService,
		Export:      exportService,
		Payment:     paymentService,
		Codes:       codesService,
		Admin:       adminService,
		Sessions:    sessionVerifier,
		Users:       db,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.ch.Close()
		_ = a.conn.Close()
		a.db.DB.Close()
		return err
	}
}
