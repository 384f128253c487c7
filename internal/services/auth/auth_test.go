package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/researchnest/researchnest/internal/lib/jwt"
	"github.com/researchnest/researchnest/internal/lib/password"
	"github.com/researchnest/researchnest/internal/lib/rabbitmq"
	"github.com/researchnest/researchnest/internal/models"
	"github.com/researchnest/researchnest/internal/storage/repository"
)

type UsersMock struct {
	mock.Mock
}

func (m *UsersMock) CreateUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *UsersMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UsersMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UsersMock) SetResetToken(ctx context.Context, userUID, token string, expiry time.Time) error {
	args := m.Called(ctx, userUID, token, expiry)
	return args.Error(0)
}

func (m *UsersMock) GetUserByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	args := m.Called(ctx, token, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UsersMock) UpdatePassword(ctx context.Context, userUID, passwordHash string) error {
	args := m.Called(ctx, userUID, passwordHash)
	return args.Error(0)
}

type CodesMock struct {
	mock.Mock
}

func (m *CodesMock) GetCode(ctx context.Context, code string) (*models.AcademicCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AcademicCode), args.Error(1)
}

func (m *CodesMock) RedeemCode(ctx context.Context, code, userUID string, now time.Time) error {
	args := m.Called(ctx, code, userUID, now)
	return args.Error(0)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(routingKey string, message any) error {
	args := m.Called(routingKey, message)
	return args.Error(0)
}

func newTestService(users *UsersMock, codes *CodesMock, pub *PublisherMock) *AuthService {
	maker := jwt.NewJWTMaker("test-secret-key", 7*24*time.Hour)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthService(users, codes, maker, pub, "https://researchnest.io", log)
}

func TestRegister_Success(t *testing.T) {
	users := new(UsersMock)
	codes := new(CodesMock)
	pub := new(PublisherMock)
	svc := newTestService(users, codes, pub)

	users.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.Email == "new@example.com" &&
			u.PasswordHash != "" &&
			u.SubscriptionStatus == models.SubscriptionNone
	})).Return("uid-1", nil)

	uid, token, err := svc.Register(context.Background(), "New@example.com", "strongpass99", "")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)
	assert.NotEmpty(t, token)
	codes.AssertNotCalled(t, "GetCode")
	users.AssertExpectations(t)
}

func TestRegister_EmailTaken(t *testing.T) {
	users := new(UsersMock)
	svc := newTestService(users, new(CodesMock), new(PublisherMock))

	users.On("CreateUser", mock.Anything, mock.Anything).Return("", repository.ErrEmailTaken)

	_, _, err := svc.Register(context.Background(), "dup@example.com", "strongpass99", "")
	assert.ErrorIs(t, err, repository.ErrEmailTaken)
}

func TestRegister_WithAcademicCode(t *testing.T) {
	users := new(UsersMock)
	codes := new(CodesMock)
	svc := newTestService(users, codes, new(PublisherMock))

	codes.On("GetCode", mock.Anything, "LAB-A1B2C3D4").
		Return(&models.AcademicCode{Code: "LAB-A1B2C3D4"}, nil)
	users.On("CreateUser", mock.Anything, mock.Anything).Return("uid-2", nil)
	codes.On("RedeemCode", mock.Anything, "LAB-A1B2C3D4", "uid-2", mock.Anything).Return(nil)

	// Код в нижнем регистре нормализуется перед проверкой.
	uid, _, err := svc.Register(context.Background(), "tester@uni.edu", "strongpass99", "lab-a1b2c3d4")
	require.NoError(t, err)
	assert.Equal(t, "uid-2", uid)
	codes.AssertExpectations(t)
}

func TestRegister_UsedAcademicCode(t *testing.T) {
	users := new(UsersMock)
	codes := new(CodesMock)
	svc := newTestService(users, codes, new(PublisherMock))

	codes.On("GetCode", mock.Anything, "LAB-A1B2C3D4").
		Return(&models.AcademicCode{Code: "LAB-A1B2C3D4", IsUsed: true}, nil)

	_, _, err := svc.Register(context.Background(), "tester@uni.edu", "strongpass99", "LAB-A1B2C3D4")
	assert.ErrorIs(t, err, ErrInvalidAcademicCode)
	users.AssertNotCalled(t, "CreateUser")
}

func TestRegister_UnknownAcademicCode(t *testing.T) {
	users := new(UsersMock)
	codes := new(CodesMock)
	svc := newTestService(users, codes, new(PublisherMock))

	codes.On("GetCode", mock.Anything, "LAB-ZZZZZZZZ").Return(nil, repository.ErrNotFound)

	_, _, err := svc.Register(context.Background(), "tester@uni.edu", "strongpass99", "LAB-ZZZZZZZZ")
	assert.ErrorIs(t, err, ErrInvalidAcademicCode)
}

func TestLogin_Success(t *testing.T) {
	users := new(UsersMock)
	svc := newTestService(users, new(CodesMock), new(PublisherMock))

	hash, err := password.GetHash("strongpass99")
	require.NoError(t, err)
	users.On("GetUserByEmail", mock.Anything, "user@example.com").
		Return(&models.User{UID: "uid-1", Email: "user@example.com", PasswordHash: hash}, nil)

	token, user, err := svc.Login(context.Background(), "user@example.com", "strongpass99")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "uid-1", user.UID)
}

func TestLogin_WrongPassword(t *testing.T) {
	users := new(UsersMock)
	svc := newTestService(users, new(CodesMock), new(PublisherMock))

	hash, err := password.GetHash("strongpass99")
	require.NoError(t, err)
	users.On("GetUserByEmail", mock.Anything, "user@example.com").
		Return(&models.User{UID: "uid-1", Email: "user@example.com", PasswordHash: hash}, nil)

	_, _, err = svc.Login(context.Background(), "user@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_FederatedAccountHasNoPassword(t *testing.T) {
	users := new(UsersMock)
	svc := newTestService(users, new(CodesMock), new(PublisherMock))

	users.On("GetUserByEmail", mock.Anything, "fed@example.com").
		Return(&models.User{UID: "uid-3", Email: "fed@example.com"}, nil)

	_, _, err := svc.Login(context.Background(), "fed@example.com", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestFederatedSignIn_FirstTimePublishesWelcome(t *testing.T) {
	users := new(UsersMock)
	pub := new(PublisherMock)
	svc := newTestService(users, new(CodesMock), pub)

	users.On("GetUserByEmail", mock.Anything, "fresh@example.com").
		Return(nil, repository.ErrNotFound).Once()
	users.On("CreateUser", mock.Anything, mock.Anything).Return("uid-4", nil)
	users.On("GetUser", mock.Anything, "uid-4").
		Return(&models.User{UID: "uid-4", Email: "fresh@example.com"}, nil)
	pub.On("Publish", rabbitmq.WelcomeRoutingKey,
		models.WelcomeMessage{Email: "fresh@example.com", Name: "Ada"}).Return(nil)

	user, err := svc.FederatedSignIn(context.Background(), "Fresh@example.com", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "uid-4", user.UID)
	pub.AssertExpectations(t)
}

func TestFederatedSignIn_PublishFailureDoesNotBlock(t *testing.T) {
	users := new(UsersMock)
	pub := new(PublisherMock)
	svc := newTestService(users, new(CodesMock), pub)

	users.On("GetUserByEmail", mock.Anything, "fresh@example.com").
		Return(nil, repository.ErrNotFound).Once()
	users.On("CreateUser", mock.Anything, mock.Anything).Return("uid-4", nil)
	users.On("GetUser", mock.Anything, "uid-4").
		Return(&models.User{UID: "uid-4", Email: "fresh@example.com"}, nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	user, err := svc.FederatedSignIn(context.Background(), "fresh@example.com", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "uid-4", user.UID)
}

func TestFederatedSignIn_ExistingUserNoWelcome(t *testing.T) {
	users := new(UsersMock)
	pub := new(PublisherMock)
	svc := newTestService(users, new(CodesMock), pub)

	users.On("GetUserByEmail", mock.Anything, "known@example.com").
		Return(&models.User{UID: "uid-5", Email: "known@example.com"}, nil)

	user, err := svc.FederatedSignIn(context.Background(), "known@example.com", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "uid-5", user.UID)
	pub.AssertNotCalled(t, "Publish")
}

func TestForgotPassword_UnknownEmailSilent(t *testing.T) {
	users := new(UsersMock)
	pub := new(PublisherMock)
	svc := newTestService(users, new(CodesMock), pub)

	users.On("GetUserByEmail", mock.Anything, "ghost@example.com").
		Return(nil, repository.ErrNotFound)

	err := svc.ForgotPassword(context.Background(), "ghost@example.com")
	assert.NoError(t, err)
	pub.AssertNotCalled(t, "Publish")
}

func TestForgotPassword_SetsTokenAndPublishes(t *testing.T) {
	users := new(UsersMock)
	pub := new(PublisherMock)
	svc := newTestService(users, new(CodesMock), pub)

	users.On("GetUserByEmail", mock.Anything, "user@example.com").
		Return(&models.User{UID: "uid-1", Email: "user@example.com"}, nil)
	users.On("SetResetToken", mock.Anything, "uid-1", mock.MatchedBy(func(token string) bool {
		return len(token) == 64
	}), mock.Anything).Return(nil)
	pub.On("Publish", rabbitmq.PasswordResetRoutingKey, mock.Anything).Return(nil)

	err := svc.ForgotPassword(context.Background(), "user@example.com")
	require.NoError(t, err)
	users.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestResetPassword_InvalidToken(t *testing.T) {
	users := new(UsersMock)
	svc := newTestService(users, new(CodesMock), new(PublisherMock))

	users.On("GetUserByResetToken", mock.Anything, "expired", mock.Anything).
		Return(nil, repository.ErrNotFound)

	err := svc.ResetPassword(context.Background(), "expired", "newstrongpass")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPassword_Success(t *testing.T) {
	users := new(UsersMock)
	svc := newTestService(users, new(CodesMock), new(PublisherMock))

	users.On("GetUserByResetToken", mock.Anything, "valid-token", mock.Anything).
		Return(&models.User{UID: "uid-1"}, nil)
	users.On("UpdatePassword", mock.Anything, "uid-1", mock.MatchedBy(func(hash string) bool {
		return password.CompareHash(hash, "newstrongpass") == nil
	})).Return(nil)

	err := svc.ResetPassword(context.Background(), "valid-token", "newstrongpass")
	require.NoError(t, err)
	users.AssertExpectations(t)
}
