package session

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"patient-management/internal/auth"
	"patient-management/internal/domain/entity"
	"patient-management/pkg/jwt"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type failingDeleteStorage struct {
	*MemoryStorage
}

func (s failingDeleteStorage) Delete(context.Context, ...string) error {
	return errors.New("storage offline")
}

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestManager(t *testing.T, storage Storage, clock *fakeClock) *Manager {
	t.Helper()

	dir, err := auth.NewDefaultDirectory()
	require.NoError(t, err)

	tokens := jwt.NewTokenService(time.Hour).WithClock(clock.Now)
	return NewManager(context.Background(), dir, tokens, storage, newTestLogger(), WithClock(clock.Now))
}

func TestManager_LoginSucceeds(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	storage := NewMemoryStorage()
	m := newTestManager(t, storage, clock)

	user, err := m.Login(ctx, "admin", "admin123")
	require.NoError(t, err)

	assert.Equal(t, entity.RoleAdmin, user.Role)
	assert.True(t, m.IsLoggedIn())
	assert.Equal(t, Authenticated, m.State())
	assert.Equal(t, entity.RoleAdmin, m.Role())
	assert.True(t, m.HasRole(entity.RoleAdmin))
	assert.True(t, m.HasAnyRole(entity.RoleDoctor, entity.RoleAdmin))
	assert.False(t, m.HasAnyRole(entity.RoleNurse))

	token, err := storage.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.Equal(t, m.Token(), token)

	rawUser, err := storage.Get(ctx, UserKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"username":"admin","email":"admin@hospital.com","role":"admin","fullName":"Admin User"}`, rawUser)
}

func TestManager_LoginWrongPasswordLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	m := newTestManager(t, NewMemoryStorage(), clock)

	_, err := m.Login(ctx, "doctor", "doctor123")
	require.NoError(t, err)

	var published []*entity.User
	unsubscribe := m.Subscribe(func(u *entity.User) {
		published = append(published, u)
	})
	defer unsubscribe()

	user, err := m.Login(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, user)

	assert.Equal(t, entity.RoleDoctor, m.Role())
	assert.True(t, m.IsLoggedIn())
	// Only the immediate delivery on subscribe.
	assert.Len(t, published, 1)
}

func TestManager_ExpiredTokenIsNotLoggedIn(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	m := newTestManager(t, NewMemoryStorage(), clock)

	_, err := m.Login(ctx, "nurse", "nurse123")
	require.NoError(t, err)
	require.True(t, m.IsLoggedIn())

	clock.Advance(time.Hour)
	assert.False(t, m.IsLoggedIn())
	assert.Equal(t, Anonymous, m.State())
}

func TestManager_LogoutAlwaysEndsSession(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		storage Storage
		login   bool
		wantErr bool
	}{
		{name: "anonymous", storage: NewMemoryStorage()},
		{name: "logged in", storage: NewMemoryStorage(), login: true},
		{name: "storage failure", storage: failingDeleteStorage{NewMemoryStorage()}, login: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
			m := newTestManager(t, tt.storage, clock)
			if tt.login {
				_, err := m.Login(ctx, "admin", "admin123")
				require.NoError(t, err)
			}

			err := m.Logout(ctx)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			assert.False(t, m.IsLoggedIn())
			assert.Nil(t, m.CurrentUser())
			assert.Empty(t, m.Token())
		})
	}
}

func TestManager_LogoutClearsBothKeys(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	storage := NewMemoryStorage()
	m := newTestManager(t, storage, clock)

	_, err := m.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	require.NoError(t, m.Logout(ctx))

	_, err = storage.Get(ctx, TokenKey)
	assert.ErrorIs(t, err, ErrKeyNotFound)
	_, err = storage.Get(ctx, UserKey)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestManager_SubscribeReceivesTransitions(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	m := newTestManager(t, NewMemoryStorage(), clock)

	var published []*entity.User
	unsubscribe := m.Subscribe(func(u *entity.User) {
		published = append(published, u)
	})

	_, err := m.Login(ctx, "doctor", "doctor123")
	require.NoError(t, err)
	require.NoError(t, m.Logout(ctx))

	require.Len(t, published, 3)
	assert.Nil(t, published[0])
	assert.Equal(t, "doctor", published[1].Username)
	assert.Nil(t, published[2])

	unsubscribe()
	_, err = m.Login(ctx, "doctor", "doctor123")
	require.NoError(t, err)
	assert.Len(t, published, 3)
}

func TestManager_UnauthorizedLogsOut(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	m := newTestManager(t, NewMemoryStorage(), clock)

	_, err := m.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.NotEmpty(t, m.BearerToken(ctx))

	m.Unauthorized(ctx)
	assert.False(t, m.IsLoggedIn())
	assert.Empty(t, m.BearerToken(ctx))
}

func TestManager_RestoresStoredSession(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	storage := NewMemoryStorage()

	first := newTestManager(t, storage, clock)
	_, err := first.Login(ctx, "doctor", "doctor123")
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	second := newTestManager(t, storage, clock)
	assert.True(t, second.IsLoggedIn())
	assert.Equal(t, first.Token(), second.Token())
	assert.Equal(t, "Dr. John Smith", second.CurrentUser().FullName)
}

func TestManager_RestoreFailsSafe(t *testing.T) {
	ctx := context.Background()
	issuedAt := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	tokens := jwt.NewTokenService(time.Hour).WithClock(func() time.Time { return issuedAt })
	validToken, _, err := tokens.GenerateToken(&entity.User{ID: 1, Username: "admin", Role: entity.RoleAdmin})
	require.NoError(t, err)
	validUser := `{"id":1,"username":"admin","email":"admin@hospital.com","role":"admin","fullName":"Admin User"}`

	tests := []struct {
		name  string
		token string
		user  string
		now   time.Time
	}{
		{name: "expired token", token: validToken, user: validUser, now: issuedAt.Add(2 * time.Hour)},
		{name: "malformed token", token: "not-a-token", user: validUser, now: issuedAt},
		{name: "malformed user", token: validToken, user: "{broken", now: issuedAt},
		{name: "missing user", token: validToken, now: issuedAt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := NewMemoryStorage()
			require.NoError(t, storage.Set(ctx, TokenKey, tt.token))
			if tt.user != "" {
				require.NoError(t, storage.Set(ctx, UserKey, tt.user))
			}

			m := newTestManager(t, storage, &fakeClock{now: tt.now})

			assert.False(t, m.IsLoggedIn())
			assert.Nil(t, m.CurrentUser())
			_, err := storage.Get(ctx, TokenKey)
			assert.ErrorIs(t, err, ErrKeyNotFound)
			_, err = storage.Get(ctx, UserKey)
			assert.ErrorIs(t, err, ErrKeyNotFound)
		})
	}
}

func TestManager_CurrentUserIsACopy(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	m := newTestManager(t, NewMemoryStorage(), clock)

	_, err := m.Login(ctx, "nurse", "nurse123")
	require.NoError(t, err)

	user := m.CurrentUser()
	user.Role = entity.RoleAdmin
	assert.Equal(t, entity.RoleNurse, m.Role())
}
