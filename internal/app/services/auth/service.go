package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "wanderlust/internal/domain/auth"
	domainuser "wanderlust/internal/domain/user"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// Rehasher is implemented by hashers whose work factor can change between deploys.
type Rehasher interface {
	NeedsRehash(hash string) bool
}

type TokenGenerator interface {
	NewToken() (string, error)
}

type Service struct {
	Users      domainuser.Repository
	Sessions   domainauth.SessionStore
	Passwords  PasswordHasher
	Tokens     TokenGenerator
	SessionTTL time.Duration
	// AdminUsernames are promoted on registration.
	AdminUsernames []string
	Logger         *slog.Logger
	Clock          func() time.Time
}

type RegisterParams struct {
	Username string
	Email    string
	Password string
}

// LoginParams.Login is a username or an email address.
type LoginParams struct {
	Login    string
	Password string
}

type AuthResult struct {
	User    *domainuser.User
	Token   string
	Expires time.Time
}

type ResolveResult struct {
	User    *domainuser.User
	Session *domainauth.Session
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if err := domainuser.ValidatePassword(params.Password); err != nil {
		return nil, err
	}
	if _, err := s.Users.ByUsername(ctx, params.Username); err == nil {
		return nil, domainuser.ErrUsernameTaken
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, err
	}
	if _, err := s.Users.ByEmail(ctx, params.Email); err == nil {
		return nil, domainuser.ErrEmailTaken
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, err
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: hash,
		IsAdmin:      s.isAdminUsername(params.Username),
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	result, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger().InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username, "admin", user.IsAdmin)
	return result, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	login := strings.TrimSpace(params.Login)
	if login == "" || params.Password == "" {
		return nil, domainauth.ErrInvalidCredentials
	}
	var (
		user *domainuser.User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = s.Users.ByEmail(ctx, login)
	} else {
		user, err = s.Users.ByUsername(ctx, login)
	}
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, domainauth.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(user.PasswordHash, params.Password); err != nil {
		return nil, domainauth.ErrInvalidCredentials
	}
	s.upgradeHash(ctx, user, params.Password)
	result, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger().InfoContext(ctx, "user authenticated", "user_id", user.ID)
	return result, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if err := s.Sessions.Delete(ctx, domainauth.Token(token)); err != nil {
		return err
	}
	s.logger().InfoContext(ctx, "session terminated")
	return nil
}

func (s *Service) ResolveToken(ctx context.Context, token string) (*ResolveResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domainauth.ErrTokenRequired
	}
	session, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		_ = s.Sessions.Delete(ctx, session.Token)
		return nil, domainauth.ErrSessionNotFound
	}
	user, err := s.Users.ByID(ctx, session.UserID)
	if err != nil {
		_ = s.Sessions.Delete(ctx, session.Token)
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, err
	}
	return &ResolveResult{User: user, Session: session}, nil
}

func (s *Service) issueSession(ctx context.Context, user *domainuser.User) (*AuthResult, error) {
	token, err := s.Tokens.NewToken()
	if err != nil {
		return nil, err
	}
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token: domainauth.Token(token),
		User:  user,
		TTL:   s.sessionTTL(),
		Now:   s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, Expires: session.ExpiresAt}, nil
}

func (s *Service) isAdminUsername(username string) bool {
	username = strings.TrimSpace(username)
	for _, candidate := range s.AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(candidate), username) {
			return true
		}
	}
	return false
}

func (s *Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return 24 * time.Hour
}

// upgradeHash re-hashes a verified password stored with an outdated cost.
func (s *Service) upgradeHash(ctx context.Context, user *domainuser.User, password string) {
	r, ok := s.Passwords.(Rehasher)
	if !ok || !r.NeedsRehash(user.PasswordHash) {
		return
	}
	hash, err := s.Passwords.Hash(password)
	if err == nil {
		if err = user.SetPasswordHash(hash, s.now()); err == nil {
			err = s.Users.Save(ctx, user)
		}
	}
	if err != nil {
		s.logger().WarnContext(ctx, "password hash not upgraded", "user_id", user.ID, "error", err)
	}
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Users == nil:
		return errors.New("auth: user repository required")
	case s.Sessions == nil:
		return errors.New("auth: session store required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token generator required")
	default:
		return nil
	}
}
