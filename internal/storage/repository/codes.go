package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/researchnest/researchnest/internal/models"
)

// CreateCodes сохраняет пачку новых кодов одной транзакцией.
// Уникальность кода — инвариант базы; нарушение возвращается как
// ErrCodeCollision, вызывающая сторона перегенерирует пачку.
func (s *Storage) CreateCodes(ctx context.Context, codes []string) error {
	const op = "storage.CreateCodes"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO academic_codes (code) VALUES ($1)`
	for _, code := range codes {
		if _, err = tx.ExecContext(ctx, query, code); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return fmt.Errorf("%s: %w", op, ErrCodeCollision)
			}
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ErrCodeCollision — сгенерированный код совпал с уже существующим.
var ErrCodeCollision = errors.New("academic code collision")

// RedeemCode погашает код и помечает пользователя академическим
// тестировщиком одной транзакцией. Условное обновление с is_used = FALSE
// гарантирует, что из двух конкурентных погашений выигрывает ровно одно.
func (s *Storage) RedeemCode(ctx context.Context, code, userUID string, now time.Time) error {
	const op = "storage.RedeemCode"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE academic_codes
		 SET is_used = TRUE, used_by = $2, used_at = $3
		 WHERE code = $1 AND is_used = FALSE`,
		code, userUID, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		// Различаем несуществующий и уже погашенный код.
		var exists bool
		if err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM academic_codes WHERE code = $1)`, code).Scan(&exists); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, ErrCodeAlreadyUsed)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE users
		 SET is_academic_tester = TRUE, subscription_status = $2
		 WHERE uid = $1`,
		userUID, models.SubscriptionAcademicTester); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteCode удаляет неиспользованный код. Погашенные коды —
// постоянные аудиторские записи, их удаление возвращает ErrCodeUsed.
func (s *Storage) DeleteCode(ctx context.Context, codeID string) error {
	const op = "storage.DeleteCode"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM academic_codes WHERE id = $1 AND is_used = FALSE`, codeID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		var exists bool
		if err = s.DB.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM academic_codes WHERE id = $1)`, codeID).Scan(&exists); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, ErrCodeUsed)
	}
	return nil
}

// GetCode возвращает код по его строковому значению.
func (s *Storage) GetCode(ctx context.Context, code string) (*models.AcademicCode, error) {
	const op = "storage.GetCode"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, code, is_used, used_by, created_at, used_at
			  FROM academic_codes
			  WHERE code = $1`
	c := &models.AcademicCode{}
	var usedBy sql.NullString
	var usedAt sql.NullTime
	err := s.DB.QueryRowContext(ctx, query, code).Scan(&c.ID, &c.Code, &c.IsUsed, &usedBy, &c.CreatedAt, &usedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if usedBy.Valid {
		c.UsedBy = &usedBy.String
	}
	if usedAt.Valid {
		c.UsedAt = &usedAt.Time
	}
	return c, nil
}

// ListCodes возвращает все коды, новые первыми.
func (s *Storage) ListCodes(ctx context.Context) ([]*models.AcademicCode, error) {
	const op = "storage.ListCodes"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, code, is_used, used_by, created_at, used_at
			  FROM academic_codes
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.AcademicCode
	for rows.Next() {
		c := &models.AcademicCode{}
		var usedBy sql.NullString
		var usedAt sql.NullTime
		if err = rows.Scan(&c.ID, &c.Code, &c.IsUsed, &usedBy, &c.CreatedAt, &usedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if usedBy.Valid {
			c.UsedBy = &usedBy.String
		}
		if usedAt.Valid {
			c.UsedAt = &usedAt.Time
		}
		result = append(result, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountCodes возвращает количество сгенерированных и погашенных кодов.
func (s *Storage) CountCodes(ctx context.Context) (generated, used int, err error) {
	const op = "storage.CountCodes"
	select {
	case <-ctx.Done():
		return 0, 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_used) FROM academic_codes`
	if err = s.DB.QueryRowContext(ctx, query).Scan(&generated, &used); err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	return generated, used, nil
}
