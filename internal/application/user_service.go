package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maplify-tech/whiteboard/internal/domain/entity"
	repo "github.com/maplify-tech/whiteboard/internal/domain/repository"
	"github.com/maplify-tech/whiteboard/pkg/helpers"
)

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,pwd,max=72"`
	Name     string `json:"name" binding:"omitempty,max=100"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResult is a signed-in user with the bearer token for their session.
type AuthResult struct {
	User      *entity.User
	Token     string
	ExpiresAt time.Time
}

// Principal identifies the caller of an authenticated request.
type Principal struct {
	UserID    string
	SessionID string
}

type UserService struct {
	Users    repo.UserRepository
	Sessions repo.SessionStore
	JWT      *helpers.JWTManager
	Notify   *Notifier
	Logger   *logrus.Logger
}

func NewUserService(users repo.UserRepository, sessions repo.SessionStore, jwt *helpers.JWTManager, notify *Notifier, logger *logrus.Logger) *UserService {
	return &UserService{Users: users, Sessions: sessions, JWT: jwt, Notify: notify, Logger: logger}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validate(in); err != nil {
		return nil, err
	}
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{Email: in.Email, Name: in.Name, PasswordHash: hash}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	res, err := s.startSession(ctx, u)
	if err != nil {
		return nil, err
	}
	s.Notify.Welcome(ctx, u)
	return res, nil
}

// Login checks credentials. Unknown email and wrong password are the same error.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate(in); err != nil {
		return nil, err
	}
	u, err := s.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, in.Password) {
		return nil, ErrInvalidCredentials
	}
	return s.startSession(ctx, u)
}

func (s *UserService) Logout(ctx context.Context, p Principal) error {
	if err := s.Sessions.Delete(ctx, p.SessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Authenticate resolves a bearer token to its live session. Every failure
// is ErrUnauthorized so callers cannot tell a bad token from an expired one.
func (s *UserService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	claims, err := s.JWT.ParseToken(token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	sess, err := s.Sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) && s.Logger != nil {
			s.Logger.WithError(err).Warn("session lookup failed")
		}
		return nil, ErrUnauthorized
	}
	if sess.UserID != claims.UserID {
		return nil, ErrUnauthorized
	}
	return &Principal{UserID: sess.UserID, SessionID: sess.ID}, nil
}

func (s *UserService) Me(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserService) startSession(ctx context.Context, u *entity.User) (*AuthResult, error) {
	sid := uuid.NewString()
	token, exp, err := s.JWT.GenerateToken(u.ID, sid)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate token failed")
		}
		return nil, fmt.Errorf("generate token: %w", err)
	}
	if err := s.Sessions.Create(ctx, &entity.Session{ID: sid, UserID: u.ID, ExpiresAt: exp}); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &AuthResult{User: u, Token: token, ExpiresAt: exp}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
