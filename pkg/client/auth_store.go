package client

import (
	"context"

	"github.com/sirupsen/logrus"
)

type AuthState struct {
	User          *User
	Loading       bool
	Error         string
	Authenticated bool
}

// AuthStore tracks the signed-in user. The token lives on the Client and is
// mirrored into Settings so it survives restarts.
type AuthStore struct {
	api      *Client
	settings SettingsStore
	logger   *logrus.Logger
	state    *observable[AuthState]
}

func NewAuthStore(api *Client, settings SettingsStore, logger *logrus.Logger) *AuthStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if settings != nil && !api.IsAuthenticated() {
		if s, err := settings.Load(); err == nil && s.Token != "" {
			api.SetToken(s.Token)
		}
	}
	return &AuthStore{
		api:      api,
		settings: settings,
		logger:   logger,
		state:    newObservable(AuthState{Authenticated: api.IsAuthenticated()}),
	}
}

func (s *AuthStore) State() AuthState { return s.state.get() }

func (s *AuthStore) Subscribe(fn func(AuthState)) func() { return s.state.subscribe(fn) }

func (s *AuthStore) Login(ctx context.Context, email, password string) error {
	s.state.update(func(st *AuthState) { st.Loading, st.Error = true, "" })
	res, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.fail(err, "Login failed")
		return err
	}
	s.signedIn(res)
	return nil
}

func (s *AuthStore) Register(ctx context.Context, email, password, name string) error {
	s.state.update(func(st *AuthState) { st.Loading, st.Error = true, "" })
	res, err := s.api.Register(ctx, email, password, name)
	if err != nil {
		s.fail(err, "Registration failed")
		return err
	}
	s.signedIn(res)
	return nil
}

// Logout always clears local state, even when the server call fails.
func (s *AuthStore) Logout(ctx context.Context) {
	s.state.update(func(st *AuthState) { st.Loading = true })
	if err := s.api.Logout(ctx); err != nil {
		s.logger.WithError(err).Warn("logout request failed; clearing local session anyway")
	}
	s.forget()
}

// LoadUser resolves the stored token. An invalid token is discarded.
func (s *AuthStore) LoadUser(ctx context.Context) {
	if !s.api.IsAuthenticated() {
		s.state.update(func(st *AuthState) { st.Authenticated = false })
		return
	}
	s.state.update(func(st *AuthState) { st.Loading = true })
	u, err := s.api.Me(ctx)
	if err != nil {
		s.logger.WithError(err).Debug("stored session rejected")
		s.forget()
		return
	}
	s.state.update(func(st *AuthState) {
		st.User, st.Authenticated, st.Loading = u, true, false
	})
}

func (s *AuthStore) ClearError() {
	s.state.update(func(st *AuthState) { st.Error = "" })
}

func (s *AuthStore) signedIn(res *AuthResponse) {
	s.persistToken(res.Token)
	u := res.User
	s.state.update(func(st *AuthState) {
		st.User, st.Authenticated, st.Loading = &u, true, false
	})
}

func (s *AuthStore) fail(err error, fallback string) {
	msg := err.Error()
	if msg == "" {
		msg = fallback
	}
	s.state.update(func(st *AuthState) { st.Error, st.Loading = msg, false })
}

func (s *AuthStore) forget() {
	s.api.ClearToken()
	s.persistToken("")
	s.state.update(func(st *AuthState) {
		st.User, st.Authenticated, st.Loading = nil, false, false
	})
}

func (s *AuthStore) persistToken(token string) {
	if err := updateSettings(s.settings, func(set *Settings) { set.Token = token }); err != nil {
		s.logger.WithError(err).Warn("persist session token failed")
	}
}
