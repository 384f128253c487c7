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

const userColumns = `uid, email, COALESCE(password_hash, ''), is_premium, is_admin,
		is_academic_tester, subscription_status, searches_used, searches_limit,
		subscription_expires_at, COALESCE(paystack_customer_code, ''),
		COALESCE(reset_token, ''), reset_token_expiry, created_at`

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	var subscriptionExpire, resetTokenExpiry sql.NullTime
	if err := row.Scan(&u.UID, &u.Email, &u.PasswordHash, &u.IsPremium, &u.IsAdmin,
		&u.IsAcademicTester, &u.SubscriptionStatus, &u.SearchesUsed, &u.SearchesLimit,
		&subscriptionExpire, &u.PaystackCustomerCode,
		&u.ResetToken, &resetTokenExpiry, &u.CreatedAt); err != nil {
		return nil, err
	}
	if subscriptionExpire.Valid {
		u.SubscriptionExpire = &subscriptionExpire.Time
	}
	if resetTokenExpiry.Valid {
		u.ResetTokenExpiry = &resetTokenExpiry.Time
	}
	return u, nil
}

// CreateUser сохраняет нового пользователя и возвращает его UID.
// Занятая почта возвращает ErrEmailTaken.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (email, password_hash, subscription_status, searches_limit)
			  VALUES ($1, NULLIF($2, ''), $3, $4)
			  RETURNING uid;`
	err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.SubscriptionStatus, user.SearchesLimit).Scan(&newUID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по почте, сравнение без учёта регистра.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// IncrementSearchesUsed атомарно списывает один поиск в пределах лимита.
// Условие searches_used < searches_limit в самом обновлении гарантирует,
// что из параллельных запросов на последний оставшийся поиск спишется
// ровно один; проигравшие получают ErrQuotaExceeded.
func (s *Storage) IncrementSearchesUsed(ctx context.Context, userUID string) error {
	const op = "storage.IncrementSearchesUsed"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET searches_used = searches_used + 1
			  WHERE uid = $1 AND searches_used < searches_limit`
	res, err := s.DB.ExecContext(ctx, query, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		// Различаем несуществующего пользователя и исчерпанную квоту.
		var exists bool
		if err = s.DB.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE uid = $1)`, userUID).Scan(&exists); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, ErrQuotaExceeded)
	}
	return nil
}

// SetPremium выставляет или снимает флаг премиум-доступа. При включении
// срок подписки устанавливается в now + 30 дней, при снятии очищается.
func (s *Storage) SetPremium(ctx context.Context, userUID string, isPremium bool, now time.Time) error {
	const op = "storage.SetPremium"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var expiry *time.Time
	if isPremium {
		e := now.AddDate(0, 0, 30)
		expiry = &e
	}
	query := `UPDATE users
			  SET is_premium = $2,
			      subscription_expires_at = $3
			  WHERE uid = $1`
	res, err := s.DB.ExecContext(ctx, query, userUID, isPremium, expiry)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// ActivateSubscription помечает подписку оплаченной: статус active,
// практический безлимит поисков и срок действия 30 дней.
func (s *Storage) ActivateSubscription(ctx context.Context, userUID, customerCode string, now time.Time) error {
	const op = "storage.ActivateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET subscription_status = $2,
			      searches_limit = $3,
			      paystack_customer_code = $4,
			      subscription_expires_at = $5
			  WHERE uid = $1`
	expiry := now.AddDate(0, 0, 30)
	res, err := s.DB.ExecContext(ctx, query, userUID,
		models.SubscriptionActive, 999999, customerCode, expiry)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// SetResetToken сохраняет токен сброса пароля и срок его действия.
func (s *Storage) SetResetToken(ctx context.Context, userUID, token string, expiry time.Time) error {
	const op = "storage.SetResetToken"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET reset_token = $2, reset_token_expiry = $3 WHERE uid = $1`
	if _, err := s.DB.ExecContext(ctx, query, userUID, token, expiry); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUserByResetToken возвращает пользователя с действующим токеном сброса.
func (s *Storage) GetUserByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	const op = "storage.GetUserByResetToken"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users
			  WHERE reset_token = $1 AND reset_token_expiry > $2`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, token, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdatePassword меняет хэш пароля и очищает токен сброса.
func (s *Storage) UpdatePassword(ctx context.Context, userUID, passwordHash string) error {
	const op = "storage.UpdatePassword"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET password_hash = $2, reset_token = NULL, reset_token_expiry = NULL
			  WHERE uid = $1`
	if _, err := s.DB.ExecContext(ctx, query, userUID, passwordHash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListUsers возвращает всех пользователей, новые первыми.
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u := &models.User{}
		var subscriptionExpire, resetTokenExpiry sql.NullTime
		if err = rows.Scan(&u.UID, &u.Email, &u.PasswordHash, &u.IsPremium, &u.IsAdmin,
			&u.IsAcademicTester, &u.SubscriptionStatus, &u.SearchesUsed, &u.SearchesLimit,
			&subscriptionExpire, &u.PaystackCustomerCode,
			&u.ResetToken, &resetTokenExpiry, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if subscriptionExpire.Valid {
			u.SubscriptionExpire = &subscriptionExpire.Time
		}
		if resetTokenExpiry.Valid {
			u.ResetTokenExpiry = &resetTokenExpiry.Time
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountUsersStats считает агрегаты по пользователям одним запросом.
// Бесплатные пользователи считаются отдельным фильтром, а не вычитанием:
// пользователь с обоими флагами входит и в premium, и в academic,
// но бесплатным не является.
func (s *Storage) CountUsersStats(ctx context.Context) (total, premium, academic, free, totalSearches int, err error) {
	const op = "storage.CountUsersStats"
	select {
	case <-ctx.Done():
		return 0, 0, 0, 0, 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*),
			      COUNT(*) FILTER (WHERE is_premium),
			      COUNT(*) FILTER (WHERE is_academic_tester),
			      COUNT(*) FILTER (WHERE NOT is_premium AND NOT is_academic_tester),
			      COALESCE(SUM(searches_used), 0)
			  FROM users`
	if err = s.DB.QueryRowContext(ctx, query).Scan(&total, &premium, &academic, &free, &totalSearches); err != nil {
		return 0, 0, 0, 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, premium, academic, free, totalSearches, nil
}
