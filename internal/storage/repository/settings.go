package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/researchnest/researchnest/internal/models"
)

// GetSettings возвращает глобальные настройки. Отсутствующая запись —
// нулевое значение (бесплатный доступ выключен), не ошибка.
func (s *Storage) GetSettings(ctx context.Context) (models.SystemSettings, error) {
	const op = "storage.GetSettings"
	select {
	case <-ctx.Done():
		return models.SystemSettings{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT free_access_enabled, free_access_until, updated_at
			  FROM system_settings
			  WHERE id = 1`
	var settings models.SystemSettings
	var until sql.NullTime
	err := s.DB.QueryRowContext(ctx, query).Scan(&settings.FreeAccessEnabled, &until, &settings.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SystemSettings{}, nil
	}
	if err != nil {
		return models.SystemSettings{}, fmt.Errorf("%s: %w", op, err)
	}
	if until.Valid {
		settings.FreeAccessUntil = &until.Time
	}
	return settings, nil
}

// UpsertSettings записывает настройки: создаёт единственную строку,
// если её ещё нет, иначе обновляет её. Один логический шаг на уровне базы.
func (s *Storage) UpsertSettings(ctx context.Context, settings models.SystemSettings, now time.Time) error {
	const op = "storage.UpsertSettings"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO system_settings (id, free_access_enabled, free_access_until, updated_at)
			  VALUES (1, $1, $2, $3)
			  ON CONFLICT (id) DO UPDATE
			  SET free_access_enabled = EXCLUDED.free_access_enabled,
			      free_access_until = EXCLUDED.free_access_until,
			      updated_at = EXCLUDED.updated_at`
	if _, err := s.DB.ExecContext(ctx, query,
		settings.FreeAccessEnabled, settings.FreeAccessUntil, now); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
