package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"patient-management/internal/auth"
	"patient-management/internal/domain/entity"
	"patient-management/pkg/jwt"

	"github.com/sirupsen/logrus"
)

var ErrInvalidCredentials = auth.ErrInvalidCredentials

// State of a session. Transitions are Anonymous -> Authenticated on login and back on
// logout, on an expired token at startup, or on an unauthorized response.
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Authenticator checks credentials against the credential table.
type Authenticator interface {
	Authenticate(username, password string) (*entity.User, error)
}

// Tokens issues and decodes session tokens.
type Tokens interface {
	GenerateToken(user *entity.User) (string, string, error)
	Decode(token string) (*jwt.Claims, error)
}

type Option func(*Manager)

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager owns the session of a single client: the held token, the current user and
// the subscribers notified when the user changes. The in-memory state is the source of
// truth; storage is written through on every transition.
type Manager struct {
	mu      sync.Mutex
	authn   Authenticator
	tokens  Tokens
	storage Storage
	log     *logrus.Logger
	now     func() time.Time

	token string
	user  *entity.User

	subscribers map[int]func(*entity.User)
	nextSubID   int
}

// NewManager restores a persisted session. Unreadable or expired state leaves the
// manager anonymous and clears both keys.
func NewManager(ctx context.Context, authn Authenticator, tokens Tokens, storage Storage, log *logrus.Logger, opts ...Option) *Manager {
	m := &Manager{
		authn:       authn,
		tokens:      tokens,
		storage:     storage,
		log:         log,
		now:         time.Now,
		subscribers: make(map[int]func(*entity.User)),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.restore(ctx)
	return m
}

func (m *Manager) restore(ctx context.Context) {
	token, err := m.storage.Get(ctx, TokenKey)
	if errors.Is(err, ErrKeyNotFound) {
		m.clearStorage(ctx)
		return
	}
	if err != nil {
		m.log.Warnf("Failed to read stored token: %+v", err)
		m.clearStorage(ctx)
		return
	}

	rawUser, err := m.storage.Get(ctx, UserKey)
	if err != nil {
		m.log.Warnf("Failed to read stored user: %+v", err)
		m.clearStorage(ctx)
		return
	}

	var user entity.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		m.log.Warnf("Failed to decode stored user: %+v", err)
		m.clearStorage(ctx)
		return
	}

	claims, err := m.tokens.Decode(token)
	if err != nil {
		m.log.Warnf("Failed to decode stored token: %+v", err)
		m.clearStorage(ctx)
		return
	}
	if claims.ExpiredAt(m.now()) {
		m.log.Infof("Stored session for %s has expired", user.Username)
		m.clearStorage(ctx)
		return
	}

	m.token = token
	m.user = &user
}

func (m *Manager) clearStorage(ctx context.Context) {
	if err := m.storage.Delete(ctx, TokenKey, UserKey); err != nil {
		m.log.Warnf("Failed to clear stored session: %+v", err)
	}
}

// Login authenticates against the credential table, issues a token, persists it and
// publishes the user. On failure the state is left unchanged and nothing is published.
func (m *Manager) Login(ctx context.Context, username, password string) (*entity.User, error) {
	user, err := m.authn.Authenticate(username, password)
	if err != nil {
		return nil, err
	}

	token, _, err := m.tokens.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	rawUser, err := json.Marshal(user)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if err := m.storage.Set(ctx, TokenKey, token); err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("persist token: %w", err)
	}
	if err := m.storage.Set(ctx, UserKey, string(rawUser)); err != nil {
		m.restoreStoredToken(ctx)
		m.mu.Unlock()
		return nil, fmt.Errorf("persist user: %w", err)
	}
	m.token = token
	m.user = user
	m.mu.Unlock()

	m.log.Infof("User %s logged in as %s", user.Username, user.Role)
	m.publish(user)
	return copyUser(user), nil
}

// restoreStoredToken puts the previously held token back after a partial write.
// Callers hold m.mu.
func (m *Manager) restoreStoredToken(ctx context.Context) {
	var err error
	if m.token == "" {
		err = m.storage.Delete(ctx, TokenKey)
	} else {
		err = m.storage.Set(ctx, TokenKey, m.token)
	}
	if err != nil {
		m.log.Warnf("Failed to roll back stored token: %+v", err)
	}
}

// Logout clears the held and the persisted session and publishes nil. The in-memory
// state is cleared even when the storage delete fails; that error is returned.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.user = nil
	err := m.storage.Delete(ctx, TokenKey, UserKey)
	m.mu.Unlock()

	m.publish(nil)
	if err != nil {
		return fmt.Errorf("clear stored session: %w", err)
	}
	return nil
}

// Unauthorized tears the session down after a downstream call was rejected.
func (m *Manager) Unauthorized(ctx context.Context) {
	m.log.Warn("Downstream call was unauthorized, ending session")
	if err := m.Logout(ctx); err != nil {
		m.log.Warnf("Failed to logout after unauthorized response: %+v", err)
	}
}

// BearerToken returns the held token for outgoing requests.
func (m *Manager) BearerToken(_ context.Context) string {
	return m.Token()
}

// IsLoggedIn reports whether a token is held and its expiry is still in the future.
// A token that cannot be decoded counts as logged out.
func (m *Manager) IsLoggedIn() bool {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()

	if token == "" {
		return false
	}
	claims, err := m.tokens.Decode(token)
	if err != nil {
		return false
	}
	return !claims.ExpiredAt(m.now())
}

func (m *Manager) State() State {
	if m.IsLoggedIn() {
		return Authenticated
	}
	return Anonymous
}

func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// CurrentUser returns a copy of the last published user, or nil.
func (m *Manager) CurrentUser() *entity.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyUser(m.user)
}

func (m *Manager) Role() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return ""
	}
	return m.user.Role
}

func (m *Manager) HasRole(role string) bool {
	return m.HasAnyRole(role)
}

func (m *Manager) HasAnyRole(roles ...string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user.HasAnyRole(roles...)
}

// Subscribe registers fn for user changes. fn is called once immediately with the
// current user, then after every login and logout, on the caller's goroutine.
func (m *Manager) Subscribe(fn func(*entity.User)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	current := copyUser(m.user)
	m.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) publish(user *entity.User) {
	m.mu.Lock()
	ids := make([]int, 0, len(m.subscribers))
	for id := range m.subscribers {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	slices.Sort(ids)
	for _, id := range ids {
		m.mu.Lock()
		fn, ok := m.subscribers[id]
		m.mu.Unlock()
		if ok {
			fn(copyUser(user))
		}
	}
}

func copyUser(user *entity.User) *entity.User {
	if user == nil {
		return nil
	}
	u := *user
	return &u
}
