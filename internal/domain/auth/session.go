package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wanderlust/internal/domain/shared/failure"
	"wanderlust/internal/domain/user"
)

var (
	ErrTokenRequired      = fmt.Errorf("auth: token is required: %w", failure.ErrValidation)
	ErrUserRequired       = fmt.Errorf("auth: user is required: %w", failure.ErrValidation)
	ErrTTLInvalid         = fmt.Errorf("auth: ttl must be positive: %w", failure.ErrValidation)
	ErrSessionNotFound    = fmt.Errorf("auth: session %w", failure.ErrNotFound)
	ErrInvalidCredentials = fmt.Errorf("auth: invalid credentials: %w", failure.ErrForbidden)
)

type Token string

// Session is an opaque bearer session. IsAdmin is copied from the user at login.
type Session struct {
	Token     Token
	UserID    user.ID
	Username  string
	IsAdmin   bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

type CreateSessionParams struct {
	Token Token
	User  *user.User
	TTL   time.Duration
	Now   time.Time
}

func NewSession(params CreateSessionParams) (*Session, error) {
	token := strings.TrimSpace(string(params.Token))
	if token == "" {
		return nil, ErrTokenRequired
	}
	if params.User == nil || strings.TrimSpace(string(params.User.ID)) == "" {
		return nil, ErrUserRequired
	}
	if params.TTL <= 0 {
		return nil, ErrTTLInvalid
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Session{
		Token:     Token(token),
		UserID:    params.User.ID,
		Username:  params.User.Username,
		IsAdmin:   params.User.IsAdmin,
		CreatedAt: now,
		ExpiresAt: now.Add(params.TTL),
	}, nil
}

func (s *Session) Expired(at time.Time) bool {
	if at.IsZero() {
		at = time.Now()
	}
	return !s.ExpiresAt.After(at.UTC())
}

type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, token Token) (*Session, error)
	Delete(ctx context.Context, token Token) error
	DeleteByUser(ctx context.Context, userID user.ID) error
}
