// Package repository реализует хранилище данных на основе PostgreSQL
// для пользователей, академических кодов и глобальных настроек.
// Все конкурентные мутации (счётчик поисков, погашение кода) выражены
// атомарными условными запросами, а не чтением-записью на клиенте.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Ошибки уровня хранилища, по которым сервисы строят ответы клиенту.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrCodeAlreadyUsed — попытка погасить уже использованный код.
	ErrCodeAlreadyUsed = errors.New("academic code already used")
	// ErrCodeUsed — попытка удалить использованный код; такие коды
	// остаются как аудиторские записи.
	ErrCodeUsed = errors.New("academic code is used and cannot be deleted")
	// ErrEmailTaken — регистрация с уже занятой почтой.
	ErrEmailTaken = errors.New("email already registered")
	// ErrQuotaExceeded — попытка списать поиск сверх лимита.
	ErrQuotaExceeded = errors.New("search quota exceeded")
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckReady подтверждает готовность базы к обслуживанию запросов:
// соединение живо и миграции накатили таблицу пользователей.
func (s *Storage) CheckReady(ctx context.Context) error {
	const op = "storage.CheckReady"
	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'users'
    )`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("%s: users table missing", op)
	}
	return nil
}
