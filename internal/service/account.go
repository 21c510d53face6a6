// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/haircarepro/haircarepro/internal/auth"
	"github.com/haircarepro/haircarepro/internal/metrics"
	"github.com/haircarepro/haircarepro/internal/model"
	"github.com/haircarepro/haircarepro/internal/repository"
)

// Service errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("username or email already exists")
	ErrInvalidUsername    = errors.New("username is required and must be at most 50 characters")
	ErrInvalidEmail       = errors.New("a valid email address is required")
	ErrInvalidPassword    = errors.New("password is required")
)

const maxUsernameLength = 50

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UserExists(ctx context.Context, username, email string) (bool, error)
}

// SessionStore keeps server-side sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, token string, user model.SessionUser, ttl time.Duration) (*model.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// AccountService handles registration, login and logout.
type AccountService struct {
	users      UserStore
	sessions   SessionStore
	sessionTTL time.Duration
	logger     *slog.Logger
	metrics    metrics.Recorder
}

// NewAccountService creates a new AccountService.
func NewAccountService(users UserStore, sessions SessionStore, sessionTTL time.Duration, logger *slog.Logger, recorder metrics.Recorder) *AccountService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AccountService{
		users:      users,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		logger:     logger.With("component", "service.account"),
		metrics:    recorder,
	}
}

// RegisterInput is the submitted registration form.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates an account. Returns ErrUserExists when the username or
// email is already taken; no record is written in that case.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)

	if err := validateRegistration(username, email, input.Password); err != nil {
		s.metrics.IncRegistration(metrics.StatusFailed)
		return nil, err
	}

	exists, err := s.users.UserExists(ctx, username, email)
	if err != nil {
		s.metrics.IncRegistration(metrics.StatusFailed)
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		s.metrics.IncRegistration("duplicate")
		return nil, ErrUserExists
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		s.metrics.IncRegistration(metrics.StatusFailed)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           generateULID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, repository.ErrUserExists) {
			s.metrics.IncRegistration("duplicate")
			return nil, ErrUserExists
		}
		s.metrics.IncRegistration(metrics.StatusFailed)
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.metrics.IncRegistration(metrics.StatusSuccess)
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login checks credentials and opens a session. The returned session's ID is
// the cookie token.
func (s *AccountService) Login(ctx context.Context, username, password string) (*model.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		s.metrics.IncLogin(metrics.StatusFailed)
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncLogin(metrics.StatusFailed)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Warn("stored password hash unreadable", "user_id", user.ID, "error", err)
	}
	if !ok {
		s.metrics.IncLogin(metrics.StatusFailed)
		return nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	session, err := s.sessions.CreateSession(ctx, token, user.Snapshot(), s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.metrics.IncLogin(metrics.StatusSuccess)
	s.logger.Info("user logged in", "user_id", user.ID)
	return session, nil
}

// Logout destroys the session behind token. An empty token is a no-op.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func validateRegistration(username, email, password string) error {
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLength {
		return ErrInvalidUsername
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	if password == "" {
		return ErrInvalidPassword
	}
	return nil
}

func generateULID() string {
	return ulid.Make().String()
}
