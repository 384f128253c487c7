// Package services подтверждает оплату подписки у платёжного провайдера
// и активирует премиум-доступ пользователя.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/researchnest/researchnest/internal/lib/sl"
	"github.com/researchnest/researchnest/internal/paymentprovider"
)

// ErrPaymentNotSuccessful — транзакция не завершилась успехом у провайдера.
var ErrPaymentNotSuccessful = errors.New("payment not successful")

// ProviderClient описывает контракт клиента платёжного провайдера.
type ProviderClient interface {
	VerifyTransaction(ctx context.Context, reference string) (*paymentprovider.VerifyTransactionResponse, error)
}

// SubscriptionActivator активирует оплаченную подписку в хранилище.
type SubscriptionActivator interface {
	ActivateSubscription(ctx context.Context, userUID, customerCode string, now time.Time) error
}

// PaymentService сверяет транзакции и активирует подписку.
type PaymentService struct {
	provider ProviderClient
	users    SubscriptionActivator
	log      *slog.Logger
}

// NewPaymentService создает новый экземпляр PaymentService.
func NewPaymentService(provider ProviderClient, users SubscriptionActivator, log *slog.Logger) *PaymentService {
	return &PaymentService{provider: provider, users: users, log: log}
}

// Verify проверяет транзакцию по референсу. Успешная транзакция переводит
// пользователя в статус active на 30 дней и сохраняет код клиента провайдера.
func (s *PaymentService) Verify(ctx context.Context, reference, userUID string) error {
	const op = "services.PaymentService.Verify"

	resp, err := s.provider.VerifyTransaction(ctx, reference)
	if err != nil {
		s.log.Error("failed to verify transaction", "reference", reference, sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if !resp.Status || resp.Data.Status != "success" {
		s.log.Warn("transaction is not successful",
			"reference", reference, "provider_status", resp.Data.Status)
		return ErrPaymentNotSuccessful
	}

	if err := s.users.ActivateSubscription(ctx, userUID, resp.Data.Customer.CustomerCode, time.Now().UTC()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("subscription activated",
		"user_uid", userUID, "reference", reference)
	return nil
}
