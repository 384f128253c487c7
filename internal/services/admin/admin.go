// Package services содержит административные операции: управление
// пользователями, глобальными настройками и сводная статистика.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/researchnest/researchnest/internal/models"
)

// UserRepository описывает операции с пользователями,
// доступные администратору.
type UserRepository interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	SetPremium(ctx context.Context, userUID string, isPremium bool, now time.Time) error
	CountUsersStats(ctx context.Context) (total, premium, academic, free, totalSearches int, err error)
}

// CodeRepository поставляет счетчики кодов для статистики.
type CodeRepository interface {
	CountCodes(ctx context.Context) (generated, used int, err error)
}

// SettingsRepository операции с единственной записью глобальных настроек.
type SettingsRepository interface {
	GetSettings(ctx context.Context) (models.SystemSettings, error)
	UpsertSettings(ctx context.Context, settings models.SystemSettings, now time.Time) error
}

// AdminService агрегирует административные операции панели управления.
type AdminService struct {
	users    UserRepository
	codes    CodeRepository
	settings SettingsRepository
	log      *slog.Logger
}

// NewAdminService создает новый экземпляр AdminService.
func NewAdminService(users UserRepository, codes CodeRepository,
	settings SettingsRepository, log *slog.Logger) *AdminService {
	return &AdminService{
		users:    users,
		codes:    codes,
		settings: settings,
		log:      log,
	}
}

// ListUsers возвращает всех пользователей для панели администратора.
func (s *AdminService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.users.ListUsers(ctx)
}

// TogglePremium включает или выключает премиум-доступ пользователя.
// При включении срок подписки выставляется на 30 дней вперед,
// при выключении — обнуляется.
func (s *AdminService) TogglePremium(ctx context.Context, userUID string, isPremium bool) error {
	if err := s.users.SetPremium(ctx, userUID, isPremium, time.Now().UTC()); err != nil {
		return err
	}
	s.log.Info("premium access toggled", "user_uid", userUID, "is_premium", isPremium)
	return nil
}

// Stats собирает сводную статистику по пользователям и кодам.
func (s *AdminService) Stats(ctx context.Context) (*models.AdminStats, error) {
	const op = "services.AdminService.Stats"

	total, premium, academic, free, totalSearches, err := s.users.CountUsersStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	generated, used, err := s.codes.CountCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.AdminStats{
		TotalUsers:      total,
		PremiumUsers:    premium,
		FreeUsers:       free,
		AcademicTesters: academic,
		TotalSearches:   totalSearches,
		CodesGenerated:  generated,
		CodesUsed:       used,
	}, nil
}

// GetSettings возвращает глобальные настройки. Отсутствие записи
// эквивалентно выключенному свободному доступу.
func (s *AdminService) GetSettings(ctx context.Context) (models.SystemSettings, error) {
	return s.settings.GetSettings(ctx)
}

// UpdateSettings сохраняет глобальные настройки единственной записью.
func (s *AdminService) UpdateSettings(ctx context.Context, settings models.SystemSettings) error {
	if err := s.settings.UpsertSettings(ctx, settings, time.Now().UTC()); err != nil {
		return err
	}
	s.log.Info("system settings updated",
		"free_access_enabled", settings.FreeAccessEnabled,
		"free_access_until", settings.FreeAccessUntil)
	return nil
}
