// Package services реализует реестр академических кодов: генерацию
// одноразовых промокодов, их погашение и административные операции.
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/researchnest/researchnest/internal/lib/sl"
	"github.com/researchnest/researchnest/internal/models"
	"github.com/researchnest/researchnest/internal/storage/repository"
)

const (
	codeAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeSuffixLen = 8
	maxPrefixLen  = 6
	maxBatchSize  = 100

	// Повторные попытки при совпадении сгенерированного кода с существующим.
	maxGenerateRetries = 3
)

// CodeRepository описывает операции с кодами в базе данных.
type CodeRepository interface {
	CreateCodes(ctx context.Context, codes []string) error
	GetCode(ctx context.Context, code string) (*models.AcademicCode, error)
	RedeemCode(ctx context.Context, code, userUID string, now time.Time) error
	DeleteCode(ctx context.Context, codeID string) error
	ListCodes(ctx context.Context) ([]*models.AcademicCode, error)
}

// CodesService отвечает за жизненный цикл академических кодов.
type CodesService struct {
	codes CodeRepository
	log   *slog.Logger
}

// NewCodesService создает новый экземпляр CodesService.
func NewCodesService(codes CodeRepository, log *slog.Logger) *CodesService {
	return &CodesService{codes: codes, log: log}
}

// Generate создает count кодов вида PREFIX-XXXXXXXX. Префикс приводится
// к верхнему регистру и обрезается до шести символов, количество
// ограничивается диапазоном [1, 100]. Уникальность обеспечивает индекс
// в базе: при коллизии пачка генерируется заново.
func (s *CodesService) Generate(ctx context.Context, prefix string, count int) ([]string, error) {
	const op = "services.CodesService.Generate"

	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "EDU"
	}
	if len(prefix) > maxPrefixLen {
		prefix = prefix[:maxPrefixLen]
	}
	if count < 1 {
		count = 1
	}
	if count > maxBatchSize {
		count = maxBatchSize
	}

	for attempt := 0; attempt < maxGenerateRetries; attempt++ {
		codes := make([]string, 0, count)
		for range count {
			suffix, err := randomSuffix()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			codes = append(codes, prefix+"-"+suffix)
		}

		err := s.codes.CreateCodes(ctx, codes)
		if errors.Is(err, repository.ErrCodeCollision) {
			s.log.Warn("academic code collision, regenerating batch", "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return codes, nil
	}
	return nil, fmt.Errorf("%s: %w", op, repository.ErrCodeCollision)
}

func randomSuffix() (string, error) {
	var b strings.Builder
	for range codeSuffixLen {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// Redeem гасит код от имени пользователя. Неизвестный код возвращает
// repository.ErrNotFound, уже погашенный — repository.ErrCodeAlreadyUsed.
func (s *CodesService) Redeem(ctx context.Context, code, userUID string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := s.codes.RedeemCode(ctx, code, userUID, time.Now().UTC()); err != nil {
		return err
	}
	s.log.Info("academic code redeemed", "code", code, "user_uid", userUID)
	return nil
}

// Delete удаляет неиспользованный код. Погашенные коды — постоянные
// аудиторские записи, попытка их удалить возвращает repository.ErrCodeUsed.
func (s *CodesService) Delete(ctx context.Context, codeID string) error {
	if err := s.codes.DeleteCode(ctx, codeID); err != nil {
		return err
	}
	s.log.Info("academic code deleted", "code_id", codeID)
	return nil
}

// List возвращает все коды, новые первыми.
func (s *CodesService) List(ctx context.Context) ([]*models.AcademicCode, error) {
	codes, err := s.codes.ListCodes(ctx)
	if err != nil {
		s.log.Error("failed to list academic codes", sl.Err(err))
		return nil, err
	}
	return codes, nil
}
