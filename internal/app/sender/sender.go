// Package sender собирает приложение рассылки писем: потребители
// очередей RabbitMQ поверх SMTP-транспорта.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/researchnest/researchnest/internal/config"
	"github.com/researchnest/researchnest/internal/lib/rabbitmq"
	"github.com/researchnest/researchnest/internal/lib/smtp"
	senderservice "github.com/researchnest/researchnest/internal/services/sender"
)

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQConnection, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	queues := rabbitmq.GetNotificationQueues()
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		conn.Close()
		return nil, err
	}

	newTransport := smtp.NewTransport(cfg, logger)
	senderService := senderservice.NewSenderService(logger, newTransport)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.WelcomeQueue, a.senderService.SendWelcomeEmail)
	if err != nil {
		a.logger.Error("failed to start welcome_emails consumer", slog.Any("err", err))
		return err
	}

	err = rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.PasswordResetQueue, a.senderService.SendPasswordResetEmail)
	if err != nil {
		a.logger.Error("failed to start password_reset_emails consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("Sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
