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

	"github.com/researchnest/researchnest/internal/models"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestResolve(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name          string
		user          models.User
		settings      models.SystemSettings
		wantPriv      bool
		wantCanSearch bool
		wantMax       int
	}{
		{
			name:          "free user with unused quota",
			user:          models.User{SubscriptionStatus: models.SubscriptionNone, SearchesUsed: 0, SearchesLimit: 1},
			wantPriv:      false,
			wantCanSearch: true,
			wantMax:       FreeMaxResults,
		},
		{
			name:          "free user with exhausted quota",
			user:          models.User{SubscriptionStatus: models.SubscriptionNone, SearchesUsed: 1, SearchesLimit: 1},
			wantPriv:      false,
			wantCanSearch: false,
			wantMax:       FreeMaxResults,
		},
		{
			name:          "zero limit falls back to default",
			user:          models.User{SubscriptionStatus: models.SubscriptionNone, SearchesUsed: 0, SearchesLimit: 0},
			wantPriv:      false,
			wantCanSearch: true,
			wantMax:       FreeMaxResults,
		},
		{
			name:          "premium flag alone grants privilege",
			user:          models.User{IsPremium: true, SubscriptionStatus: models.SubscriptionNone},
			wantPriv:      true,
			wantCanSearch: true,
			wantMax:       PremiumMaxResults,
		},
		{
			name:          "academic tester flag alone grants privilege",
			user:          models.User{IsAcademicTester: true, SubscriptionStatus: models.SubscriptionNone},
			wantPriv:      true,
			wantCanSearch: true,
			wantMax:       PremiumMaxResults,
		},
		{
			name:          "active status alone grants privilege",
			user:          models.User{SubscriptionStatus: models.SubscriptionActive, SearchesUsed: 50},
			wantPriv:      true,
			wantCanSearch: true,
			wantMax:       PremiumMaxResults,
		},
		{
			name:          "trial status grants privilege",
			user:          models.User{SubscriptionStatus: models.SubscriptionTrial},
			wantPriv:      true,
			wantCanSearch: true,
			wantMax:       PremiumMaxResults,
		},
		{
			name:          "active status with lapsed expiry is demoted",
			user:          models.User{SubscriptionStatus: models.SubscriptionActive, SubscriptionExpire: &past, SearchesUsed: 1, SearchesLimit: 1},
			wantPriv:      false,
			wantCanSearch: false,
			wantMax:       FreeMaxResults,
		},
		{
			name:          "premium flag survives lapsed expiry until admin clears it",
			user:          models.User{IsPremium: true, SubscriptionStatus: models.SubscriptionActive, SubscriptionExpire: &past},
			wantPriv:      true,
			wantCanSearch: true,
			wantMax:       PremiumMaxResults,
		},
		{
			name:          "global free access overrides empty flags",
			user:          models.User{SubscriptionStatus: models.SubscriptionNone, SearchesUsed: 99, SearchesLimit: 1},
			settings:      models.SystemSettings{FreeAccessEnabled: true, FreeAccessUntil: &future},
			wantPriv:      true,
			wantCanSearch: true,
			wantMax:       PremiumMaxResults,
		},
		{
			name:          "global free access without deadline is unbounded",
			user:          models.User{SubscriptionStatus: models.SubscriptionNone, SearchesUsed: 1, SearchesLimit: 1},
			settings:      models.SystemSettings{FreeAccessEnabled: true},
			wantPriv:      true,
			wantCanSearch: true,
			wantMax:       PremiumMaxResults,
		},
		{
			name:          "expired global free access reverts to free tier",
			user:          models.User{SubscriptionStatus: models.SubscriptionNone, SearchesUsed: 1, SearchesLimit: 1},
			settings:      models.SystemSettings{FreeAccessEnabled: true, FreeAccessUntil: &past},
			wantPriv:      false,
			wantCanSearch: false,
			wantMax:       FreeMaxResults,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ent := Resolve(&tt.user, tt.settings, now)

			assert.Equal(t, tt.wantPriv, ent.IsPrivileged)
			assert.Equal(t, tt.wantCanSearch, ent.CanSearch)
			assert.Equal(t, tt.wantMax, ent.MaxResultsPerSearch)

			// Премиальные фичи включаются только вместе с привилегией.
			assert.Equal(t, tt.wantPriv, ent.Features.AIFilter)
			assert.Equal(t, tt.wantPriv, ent.Features.PlanGeneration)
			assert.Equal(t, tt.wantPriv, ent.Features.Export)
		})
	}
}

func TestCapResultLimit(t *testing.T) {
	free := models.Entitlement{MaxResultsPerSearch: FreeMaxResults}
	premium := models.Entitlement{IsPrivileged: true, MaxResultsPerSearch: PremiumMaxResults}

	tests := []struct {
		name      string
		ent       models.Entitlement
		requested int
		want      int
	}{
		{"free default", free, 0, FreeMaxResults},
		{"free within cap", free, 5, 5},
		{"free above cap", free, 50, FreeMaxResults},
		{"premium default", premium, 0, PremiumDefaultResults},
		{"premium within cap", premium, 40, 40},
		{"premium above cap", premium, 500, PremiumMaxResults},
		{"negative request", premium, -3, PremiumDefaultResults},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CapResultLimit(tt.ent, tt.requested))
		})
	}
}

type UsersMock struct{ mock.Mock }

func (m *UsersMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UsersMock) IncrementSearchesUsed(ctx context.Context, userUID string) error {
	return m.Called(ctx, userUID).Error(0)
}

type SettingsMock struct{ mock.Mock }

func (m *SettingsMock) GetSettings(ctx context.Context) (models.SystemSettings, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.SystemSettings), args.Error(1)
}

func TestEntitlementService_Check(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(u *UsersMock, s *SettingsMock)
		wantPriv   bool
		wantErr    bool
	}{
		{
			name: "fresh flags win over anything a token could claim",
			setupMocks: func(u *UsersMock, s *SettingsMock) {
				u.On("GetUser", mock.Anything, "uid-1").
					Return(&models.User{UID: "uid-1", IsPremium: true}, nil).Once()
				s.On("GetSettings", mock.Anything).
					Return(models.SystemSettings{}, nil).Once()
			},
			wantPriv: true,
		},
		{
			name: "user fetch failure denies, never grants",
			setupMocks: func(u *UsersMock, _ *SettingsMock) {
				u.On("GetUser", mock.Anything, "uid-1").
					Return(nil, errors.New("db down")).Once()
			},
			wantErr: true,
		},
		{
			name: "settings fetch failure denies, never grants",
			setupMocks: func(u *UsersMock, s *SettingsMock) {
				u.On("GetUser", mock.Anything, "uid-1").
					Return(&models.User{UID: "uid-1"}, nil).Once()
				s.On("GetSettings", mock.Anything).
					Return(models.SystemSettings{}, errors.New("db down")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UsersMock)
			settings := new(SettingsMock)
			tt.setupMocks(users, settings)

			svc := NewEntitlementService(users, settings, newNoopLogger())
			ent, err := svc.Check(context.Background(), "uid-1")

			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, ent.CanSearch)
				assert.False(t, ent.IsPrivileged)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantPriv, ent.IsPrivileged)
			}
			users.AssertExpectations(t)
			settings.AssertExpectations(t)
		})
	}
}

func TestEntitlementService_RecordSearch(t *testing.T) {
	t.Run("privileged user is never counted", func(t *testing.T) {
		users := new(UsersMock)
		svc := NewEntitlementService(users, new(SettingsMock), newNoopLogger())

		err := svc.RecordSearch(context.Background(), "uid-1", models.Entitlement{IsPrivileged: true})
		require.NoError(t, err)
		users.AssertNotCalled(t, "IncrementSearchesUsed", mock.Anything, mock.Anything)
	})

	t.Run("free user increments by one", func(t *testing.T) {
		users := new(UsersMock)
		users.On("IncrementSearchesUsed", mock.Anything, "uid-1").Return(nil).Once()
		svc := NewEntitlementService(users, new(SettingsMock), newNoopLogger())

		err := svc.RecordSearch(context.Background(), "uid-1", models.Entitlement{})
		require.NoError(t, err)
		users.AssertExpectations(t)
	})

	t.Run("storage failure is surfaced to the caller", func(t *testing.T) {
		users := new(UsersMock)
		users.On("IncrementSearchesUsed", mock.Anything, "uid-1").
			Return(errors.New("db down")).Once()
		svc := NewEntitlementService(users, new(SettingsMock), newNoopLogger())

		err := svc.RecordSearch(context.Background(), "uid-1", models.Entitlement{})
		assert.Error(t, err)
	})
}
