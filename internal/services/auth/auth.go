// Package services содержит логику бизнес-уровня для регистрации,
// аутентификации и восстановления пароля.
package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/researchnest/researchnest/internal/lib/jwt"
	"github.com/researchnest/researchnest/internal/lib/password"
	"github.com/researchnest/researchnest/internal/lib/rabbitmq"
	"github.com/researchnest/researchnest/internal/lib/sl"
	"github.com/researchnest/researchnest/internal/models"
	"github.com/researchnest/researchnest/internal/storage/repository"
)

// Ошибки уровня сервиса аутентификации.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidAcademicCode = errors.New("invalid or used academic code")
	ErrInvalidResetToken   = errors.New("invalid or expired reset token")
)

const resetTokenTTL = time.Hour

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (string, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetResetToken(ctx context.Context, userUID, token string, expiry time.Time) error
	GetUserByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	UpdatePassword(ctx context.Context, userUID, passwordHash string) error
}

// CodeRepository описывает операции с академическими кодами,
// нужные при регистрации.
type CodeRepository interface {
	GetCode(ctx context.Context, code string) (*models.AcademicCode, error)
	RedeemCode(ctx context.Context, code, userUID string, now time.Time) error
}

// Publisher публикует сообщения для отправки писем.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// AuthService отвечает за регистрацию, авторизацию, федеративный вход
// и восстановление пароля.
type AuthService struct {
	users     UserRepository
	codes     CodeRepository
	jwtMaker  jwt.Maker
	publisher Publisher
	appURL    string
	log       *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, codes CodeRepository, jwtMaker jwt.Maker,
	publisher Publisher, appURL string, log *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		codes:     codes,
		jwtMaker:  jwtMaker,
		publisher: publisher,
		appURL:    appURL,
		log:       log,
	}
}

// Register создает нового пользователя с хэшированием пароля. Если передан
// академический код, он проверяется до создания аккаунта и гасится после.
// Занятая почта возвращает repository.ErrEmailTaken, неверный или
// использованный код — ErrInvalidAcademicCode.
func (s *AuthService) Register(ctx context.Context, email, rawPassword, academicCode string) (string, string, error) {
	const op = "services.AuthService.Register"

	academicCode = strings.ToUpper(strings.TrimSpace(academicCode))
	if academicCode != "" {
		code, err := s.codes.GetCode(ctx, academicCode)
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", ErrInvalidAcademicCode
		}
		if err != nil {
			return "", "", fmt.Errorf("%s: %w", op, err)
		}
		if code.IsUsed {
			return "", "", ErrInvalidAcademicCode
		}
	}

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	user := models.User{
		Email:              strings.ToLower(strings.TrimSpace(email)),
		PasswordHash:       hashed,
		SubscriptionStatus: models.SubscriptionNone,
		SearchesLimit:      1,
	}
	uid, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return "", "", err
	}

	if academicCode != "" {
		// Между проверкой и погашением код мог забрать другой запрос.
		// Аккаунт уже создан, поэтому проигравший остаётся на бесплатном тарифе.
		if err := s.codes.RedeemCode(ctx, academicCode, uid, time.Now().UTC()); err != nil {
			s.log.Warn("academic code redemption lost race", "code", academicCode, sl.Err(err))
		}
	}

	token, err := s.jwtMaker.GenerateToken(uid, user.Email)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, token, nil
}

// Login проверяет пароль пользователя и генерирует JWT.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (string, *models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if user.PasswordHash == "" {
		// Федеративный аккаунт, пароля нет.
		return "", nil, ErrInvalidCredentials
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.jwtMaker.GenerateToken(user.UID, user.Email)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// ValidateToken проверяет JWT и возвращает UID и почту пользователя.
// Привилегии из токена не извлекаются: перед каждым решением о доступе
// запись пользователя читается из базы заново.
func (s *AuthService) ValidateToken(_ context.Context, token string) (string, string, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return "", "", err
	}
	return claims.UserUID, claims.Email, nil
}

// FederatedSignIn возвращает локального пользователя для подтверждённой
// внешним провайдером почты. При первом входе создаётся аккаунт без пароля
// со всеми флагами false и публикуется приветственное письмо; ошибка
// публикации вход не блокирует.
func (s *AuthService) FederatedSignIn(ctx context.Context, email, name string) (*models.User, error) {
	const op = "services.AuthService.FederatedSignIn"

	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	uid, err := s.users.CreateUser(ctx, models.User{
		Email:              email,
		SubscriptionStatus: models.SubscriptionNone,
		SearchesLimit:      1,
	})
	if errors.Is(err, repository.ErrEmailTaken) {
		// Параллельный первый вход того же пользователя.
		return s.users.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	msg := models.WelcomeMessage{Email: email, Name: name}
	if err := s.publisher.Publish(rabbitmq.WelcomeRoutingKey, msg); err != nil {
		s.log.Error("failed to publish welcome email", "email", email, sl.Err(err))
	}

	return s.users.GetUser(ctx, uid)
}

// ForgotPassword создает токен сброса пароля и публикует письмо со ссылкой.
// Для незарегистрированной почты возвращает nil, не раскрывая наличие аккаунта.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	const op = "services.AuthService.ForgotPassword"

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	token := hex.EncodeToString(buf)

	if err := s.users.SetResetToken(ctx, user.UID, token, time.Now().UTC().Add(resetTokenTTL)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := models.PasswordResetMessage{
		Email:    user.Email,
		ResetURL: s.appURL + "/reset-password?token=" + token,
	}
	if err := s.publisher.Publish(rabbitmq.PasswordResetRoutingKey, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResetPassword меняет пароль по действующему токену сброса и стирает токен.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	const op = "services.AuthService.ResetPassword"

	user, err := s.users.GetUserByResetToken(ctx, token, time.Now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdatePassword(ctx, user.UID, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
