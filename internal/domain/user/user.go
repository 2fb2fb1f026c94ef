package user

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"wanderlust/internal/domain/shared/failure"
)

var (
	ErrNotFound      = fmt.Errorf("user: user %w", failure.ErrNotFound)
	ErrUsernameTaken = fmt.Errorf("user: username already taken: %w", failure.ErrDuplicate)
	ErrEmailTaken    = fmt.Errorf("user: email already used: %w", failure.ErrDuplicate)
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

const MinPasswordLength = 8

type ID string

type User struct {
	ID           ID
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository must reject duplicate usernames and emails on Save.
type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByUsername(ctx context.Context, username string) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
	Count(ctx context.Context) (int, error)
}

type CreateParams struct {
	ID           ID
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

func NewUser(params CreateParams) (*User, error) {
	verr := &failure.ValidationError{}
	if strings.TrimSpace(string(params.ID)) == "" {
		verr.Add("id", "is required")
	}
	username := strings.TrimSpace(params.Username)
	if !usernamePattern.MatchString(username) {
		verr.Add("username", "must be 3-20 letters, digits or underscores")
	}
	email := NormalizeEmail(params.Email)
	if !emailPattern.MatchString(email) {
		verr.Add("email", "must be a valid email address")
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		verr.Add("password", "is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &User{
		ID:           params.ID,
		Username:     username,
		Email:        email,
		PasswordHash: params.PasswordHash,
		IsAdmin:      params.IsAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidatePassword enforces length plus upper, lower and digit characters.
func ValidatePassword(raw string) error {
	var upper, lower, digit bool
	for _, r := range raw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if len(raw) < MinPasswordLength || !upper || !lower || !digit {
		return failure.NewValidation("password", fmt.Sprintf("must be at least %d characters with upper, lower case letters and a digit", MinPasswordLength))
	}
	return nil
}

func (u *User) SetPasswordHash(hash string, now time.Time) error {
	if strings.TrimSpace(hash) == "" {
		return failure.NewValidation("password", "is required")
	}
	u.PasswordHash = hash
	u.touch(now)
	return nil
}

func (u *User) Promote(now time.Time) {
	if u.IsAdmin {
		return
	}
	u.IsAdmin = true
	u.touch(now)
}

func (u *User) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	u.UpdatedAt = now.UTC()
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
