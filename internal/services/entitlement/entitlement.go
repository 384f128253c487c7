// Package services содержит движок прав доступа — единственное место,
// где конкурирующие представления привилегий (флаги пользователя, строка
// статуса подписки, глобальный бесплатный доступ) сводятся в одно решение.
//
// Resolve — чистая функция от записи пользователя, глобальных настроек
// и текущего момента. Обработчики никогда не выводят привилегии сами
// и никогда не доверяют полям токена: перед каждым решением запись
// пользователя и настройки читаются из базы заново.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/researchnest/researchnest/internal/models"
)

// Лимиты выдачи результатов поиска.
const (
	// FreeMaxResults — потолок результатов на один поиск для бесплатного тарифа.
	FreeMaxResults = 10
	// PremiumMaxResults — потолок результатов для привилегированных пользователей.
	PremiumMaxResults = 100
	// PremiumDefaultResults — размер выдачи по умолчанию, если лимит не указан.
	PremiumDefaultResults = 25
	// FreeDefaultSearchLimit — лимит поисков бесплатного тарифа по умолчанию.
	FreeDefaultSearchLimit = 1
)

// Resolve вычисляет права пользователя на момент now. Порядок проверок
// фиксирован, первая сработавшая ветка выигрывает:
//
//  1. глобальный бесплатный доступ включён и не истёк — полные права
//     независимо от индивидуальных флагов;
//  2. индивидуальная привилегия (флаг премиум, флаг академического
//     тестировщика или статус подписки active/trial/academic_tester);
//  3. бесплатный тариф с квотой поисков.
//
// Статус active с истёкшим сроком подписки привилегию не даёт; явный флаг
// IsPremium действует до снятия администратором.
func Resolve(user *models.User, settings models.SystemSettings, now time.Time) models.Entitlement {
	if settings.FreeAccessActive(now) {
		return privileged(user)
	}
	if individualPrivilege(user, now) {
		return privileged(user)
	}

	limit := user.SearchesLimit
	if limit < 1 {
		limit = FreeDefaultSearchLimit
	}
	return models.Entitlement{
		CanSearch:           user.SearchesUsed < limit,
		IsPrivileged:        false,
		SearchesUsed:        user.SearchesUsed,
		SearchesLimit:       limit,
		MaxResultsPerSearch: FreeMaxResults,
		Features:            models.FeatureSet{},
	}
}

func individualPrivilege(user *models.User, now time.Time) bool {
	if user.IsPremium || user.IsAcademicTester {
		return true
	}
	switch user.SubscriptionStatus {
	case models.SubscriptionTrial, models.SubscriptionAcademicTester:
		return true
	case models.SubscriptionActive:
		// Оплаченная подписка с прошедшим сроком действия не считается.
		if user.SubscriptionExpire != nil && !now.Before(*user.SubscriptionExpire) {
			return false
		}
		return true
	}
	return false
}

func privileged(user *models.User) models.Entitlement {
	return models.Entitlement{
		CanSearch:           true,
		IsPrivileged:        true,
		SearchesUsed:        user.SearchesUsed,
		SearchesLimit:       user.SearchesLimit,
		MaxResultsPerSearch: PremiumMaxResults,
		Features: models.FeatureSet{
			AIFilter:       true,
			PlanGeneration: true,
			Export:         true,
		},
	}
}

// CapResultLimit приводит запрошенный размер выдачи к разрешённому.
// Нулевой или отрицательный запрос получает размер по умолчанию.
func CapResultLimit(ent models.Entitlement, requested int) int {
	if requested <= 0 {
		if ent.IsPrivileged {
			return PremiumDefaultResults
		}
		return FreeMaxResults
	}
	if requested > ent.MaxResultsPerSearch {
		return ent.MaxResultsPerSearch
	}
	return requested
}

// UserRepository описывает доступ к записям пользователей.
type UserRepository interface {
	// GetUser возвращает пользователя по его UID.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	// IncrementSearchesUsed атомарно списывает один поиск в пределах лимита.
	IncrementSearchesUsed(ctx context.Context, userUID string) error
}

// SettingsRepository описывает доступ к единственной записи глобальных настроек.
type SettingsRepository interface {
	// GetSettings возвращает настройки; отсутствующая запись — нулевое значение.
	GetSettings(ctx context.Context) (models.SystemSettings, error)
}

// EntitlementService вычисляет права по актуальным данным из хранилища
// и ведёт учёт использованных поисков.
type EntitlementService struct {
	users    UserRepository
	settings SettingsRepository
	log      *slog.Logger
}

// NewEntitlementService создает новый экземпляр EntitlementService.
func NewEntitlementService(users UserRepository, settings SettingsRepository, log *slog.Logger) *EntitlementService {
	return &EntitlementService{
		users:    users,
		settings: settings,
		log:      log,
	}
}

// Check загружает запись пользователя и глобальные настройки заново
// и возвращает актуальные права. Любая ошибка хранилища означает отказ:
// решение о доступе не принимается по неполным данным.
func (s *EntitlementService) Check(ctx context.Context, userUID string) (models.Entitlement, error) {
	const op = "entitlement.Check"

	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return models.Entitlement{}, fmt.Errorf("%s: %w", op, err)
	}
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return models.Entitlement{}, fmt.Errorf("%s: %w", op, err)
	}
	return Resolve(user, settings, time.Now()), nil
}

// RecordSearch списывает один поиск с пользователя. Для привилегированных
// пользователей учёт не ведётся. Списание — условное атомарное обновление
// в базе: при исчерпанной квоте оно возвращает repository.ErrQuotaExceeded,
// поэтому два параллельных запроса не потратят один оставшийся поиск дважды.
func (s *EntitlementService) RecordSearch(ctx context.Context, userUID string, ent models.Entitlement) error {
	const op = "entitlement.RecordSearch"

	if ent.IsPrivileged {
		return nil
	}
	if err := s.users.IncrementSearchesUsed(ctx, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
