// Package session tracks who is signed in to the console.
//
// Lifecycle: New, then Init with the admin API, then Resolve, which tries the
// cookie session before the persisted bearer token. Login and Logout move between
// Authenticated and Anonymous. A Session is passed to whatever needs it; there is
// no package level instance.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/khoahotran/personal-site/adapters/api"
	"github.com/khoahotran/personal-site/internal/domain/profile"
	"github.com/khoahotran/personal-site/internal/normalize"
	"github.com/khoahotran/personal-site/pkg/apperror"
	"github.com/khoahotran/personal-site/pkg/logger"
)

type State string

const (
	StateInit          State = "init"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

const LoginFailedMessage = "Login failed"

// AdminAPI is the part of the remote API a session needs.
type AdminAPI interface {
	Login(ctx context.Context, email, password string) ([]byte, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) ([]byte, error)
}

// TokenStore persists the bearer token between runs.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

type Session struct {
	store TokenStore
	log   logger.Logger
	now   func() time.Time

	mu      sync.RWMutex
	api     AdminAPI
	state   State
	token   string
	profile *profile.AdminProfile
}

func New(store TokenStore, log logger.Logger) *Session {
	if store == nil {
		store = NewMemoryStore()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Session{store: store, log: log, now: time.Now, state: StateInit}
}

// Init binds the admin API and loads any persisted token.
func (s *Session) Init(ctx context.Context, admin AdminAPI) error {
	token, err := s.store.Load(ctx)
	if err != nil {
		return apperror.NewInternal("failed to load session token", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.api = admin
	s.token = token
	s.state = StateInit
	return nil
}

// Token implements api.TokenSource.
func (s *Session) Token(context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

// Profile returns a copy of the signed-in admin, nil when anonymous.
func (s *Session) Profile() *profile.AdminProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// SetProfile replaces the cached admin after a profile update.
func (s *Session) SetProfile(p profile.AdminProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = &p
}

// Resolve works out the current state: cookie session first, then the stored
// token. An expired token is dropped without a network call. Transport failures
// are returned and leave the stored token alone.
func (s *Session) Resolve(ctx context.Context) (State, error) {
	admin, err := s.client()
	if err != nil {
		return StateAnonymous, err
	}

	if body, err := admin.Me(api.WithoutBearer(ctx)); err == nil {
		return s.authenticate(body, "")
	} else if !errors.Is(err, apperror.ErrUnauthorized) && !errors.Is(err, apperror.ErrPermission) {
		s.log.Debug("cookie session probe failed", zap.Error(err))
	}

	token := s.Token(ctx)
	if token == "" {
		return s.setAnonymous(), nil
	}
	if s.expired(token) {
		s.log.Info("stored admin token expired, discarding")
		return StateAnonymous, s.Clear(ctx)
	}

	body, err := admin.Me(ctx)
	switch {
	case err == nil:
		return s.authenticate(body, token)
	case errors.Is(err, apperror.ErrUnauthorized), errors.Is(err, apperror.ErrPermission):
		s.mu.Lock()
		s.token = ""
		s.mu.Unlock()
		return s.setAnonymous(), s.store.Clear(ctx)
	default:
		s.setAnonymous()
		return StateAnonymous, err
	}
}

// Login signs in and persists the returned token.
func (s *Session) Login(ctx context.Context, email, password string) (*profile.AdminProfile, error) {
	admin, err := s.client()
	if err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.NewInvalidInput("Email and password are required", nil)
	}

	body, err := admin.Login(ctx, email, password)
	if err != nil {
		s.log.Warn("admin login failed", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	token := normalize.String(body, "data", "token")
	if token != "" {
		if err := s.store.Save(ctx, token); err != nil {
			return nil, apperror.NewInternal("failed to persist session token", err)
		}
	}
	if _, err := s.authenticate(body, token); err != nil {
		return nil, err
	}
	s.log.Info("admin signed in", zap.String("email", email))
	return s.Profile(), nil
}

// Logout tells the server, then clears local state even when that call fails.
func (s *Session) Logout(ctx context.Context) error {
	var callErr error
	if admin, err := s.client(); err == nil {
		callErr = admin.Logout(ctx)
		if callErr != nil {
			s.log.Warn("admin logout call failed", zap.Error(callErr))
		}
	}
	if err := s.Clear(ctx); err != nil {
		return err
	}
	return callErr
}

// Clear forgets the token and profile locally.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.profile = nil
	s.state = StateAnonymous
	s.mu.Unlock()
	return s.store.Clear(ctx)
}

func (s *Session) client() (AdminAPI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.api == nil {
		return nil, apperror.NewInternal("session used before Init", nil)
	}
	return s.api, nil
}

func (s *Session) authenticate(body []byte, token string) (State, error) {
	item, err := normalize.Item(body, "admin")
	if err != nil {
		return s.setAnonymous(), err
	}
	var p profile.AdminProfile
	if err := normalize.DecodeOne(item, &p); err != nil {
		return s.setAnonymous(), apperror.NewUpstream("Unexpected response from server", "admin profile", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != "" {
		s.token = token
	}
	s.profile = &p
	s.state = StateAuthenticated
	return s.state, nil
}

func (s *Session) setAnonymous() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = nil
	s.state = StateAnonymous
	return s.state
}

// expired reads exp without verifying the signature; the server remains the
// authority. Tokens that are not JWTs are never treated as expired.
func (s *Session) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !s.now().Before(exp.Time)
}
