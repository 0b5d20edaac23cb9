package hotelapi

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"frontdesk/internal/adapters/observability"
	"frontdesk/internal/domain"
)

// Session holds the console's tokens. Refreshes are collapsed into a single
// in-flight exchange; a failed exchange clears the store and signals logout.
type Session struct {
	client *Client
	store  domain.TokenStore
	sf     singleflight.Group

	mu       sync.RWMutex
	tokens   domain.Tokens
	onLogout []func()
}

func newSession(c *Client, store domain.TokenStore) *Session {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Session{client: c, store: store}
}

// OnLogout registers fn to run whenever the session is lost.
func (s *Session) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// Restore adopts tokens persisted by a previous run. It returns domain.ErrNotFound
// when nothing is stored.
func (s *Session) Restore(ctx context.Context) (domain.Tokens, error) {
	t, err := s.store.Load(ctx)
	if err != nil {
		return domain.Tokens{}, err
	}
	if t.AccessToken == "" {
		return domain.Tokens{}, domain.ErrNotFound
	}
	s.set(t)
	return t, nil
}

func (s *Session) Login(ctx context.Context, username, password string) (domain.Tokens, error) {
	var t domain.Tokens
	err := s.client.send(ctx, "auth_login", http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	}, &t)
	if errors.Is(err, errUnauthorized) {
		return domain.Tokens{}, domain.ErrAuth
	}
	if err != nil {
		return domain.Tokens{}, err
	}
	if err := s.store.Save(ctx, t); err != nil {
		log.Warn().Err(err).Msg("persist session failed")
	}
	s.set(t)
	return t, nil
}

// Logout forgets the session locally and notifies listeners.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	s.tokens = domain.Tokens{}
	listeners := append([]func(){}, s.onLogout...)
	s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		log.Warn().Err(err).Msg("clear session failed")
	}
	for _, fn := range listeners {
		fn()
	}
}

func (s *Session) HotelID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.HotelID
}

func (s *Session) AccessToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens.AccessToken == "" {
		return "", domain.ErrAuth
	}
	return s.tokens.AccessToken, nil
}

// Refresh renews the access token that was rejected. Callers holding an already
// replaced token return immediately; the rest share one exchange.
func (s *Session) Refresh(ctx context.Context, stale string) error {
	s.mu.RLock()
	current := s.tokens
	s.mu.RUnlock()
	if current.AccessToken == "" {
		return domain.ErrAuth
	}
	if current.AccessToken != stale {
		return nil
	}

	// detached so one caller giving up does not fail the others waiting on it
	_, err, _ := s.sf.Do("refresh", func() (any, error) {
		// a flight that ended after the read above already rotated the refresh token
		s.mu.RLock()
		latest := s.tokens
		s.mu.RUnlock()
		switch {
		case latest.AccessToken == "":
			return nil, domain.ErrAuth
		case latest.AccessToken != stale:
			return nil, nil
		}
		return nil, s.exchange(context.WithoutCancel(ctx), latest.RefreshToken)
	})
	return err
}

func (s *Session) exchange(ctx context.Context, refreshToken string) error {
	var t domain.Tokens
	err := s.client.send(ctx, "auth_refresh", http.MethodPost, "/auth/refresh", "", map[string]string{
		"refresh_token": refreshToken,
	}, &t)
	if err == nil && t.AccessToken == "" {
		err = errUnauthorized
	}
	if err != nil {
		observability.ObserveRefresh(false)
		log.Warn().Err(err).Msg("token refresh failed, logging out")
		s.Logout(ctx)
		return domain.ErrAuth
	}
	observability.ObserveRefresh(true)

	if t.RefreshToken == "" {
		t.RefreshToken = refreshToken
	}
	if t.HotelID == 0 {
		t.HotelID = s.HotelID()
	}
	if err := s.store.Save(ctx, t); err != nil {
		log.Warn().Err(err).Msg("persist refreshed session failed")
	}
	s.set(t)
	return nil
}

func (s *Session) set(t domain.Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = t
}

// MemoryStore is a process-local TokenStore.
type MemoryStore struct {
	mu sync.Mutex
	t  *domain.Tokens
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(ctx context.Context) (domain.Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.t == nil {
		return domain.Tokens{}, domain.ErrNotFound
	}
	return *m.t, nil
}

func (m *MemoryStore) Save(ctx context.Context, t domain.Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = &t
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = nil
	return nil
}
