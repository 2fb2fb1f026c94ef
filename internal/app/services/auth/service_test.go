package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	domainauth "wanderlust/internal/domain/auth"
	"wanderlust/internal/domain/shared/failure"
	"wanderlust/internal/infra/security"
	"wanderlust/internal/infra/storage/memory"
)

type sequenceTokens struct{ n int }

func (g *sequenceTokens) NewToken() (string, error) {
	g.n++
	return fmt.Sprintf("token-%d", g.n), nil
}

func newService(now *time.Time) *Service {
	return &Service{
		Users:          memory.NewUserRepository(),
		Sessions:       memory.NewSessionStore(),
		Passwords:      security.BcryptHasher{Cost: 4},
		Tokens:         &sequenceTokens{},
		SessionTTL:     time.Hour,
		AdminUsernames: []string{"root"},
		Clock:          func() time.Time { return *now },
	}
}

func TestRegisterLoginResolveLogout(t *testing.T) {
	now := time.Now()
	svc := newService(&now)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterParams{Username: "ana_t", Email: " Ana@Example.com ", Password: "Secret123"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", registered.User.Email)
	assert.False(t, registered.User.IsAdmin)
	assert.NotEqual(t, "Secret123", registered.User.PasswordHash)

	byEmail, err := svc.Login(ctx, LoginParams{Login: "ANA@example.com", Password: "Secret123"})
	require.NoError(t, err)
	byName, err := svc.Login(ctx, LoginParams{Login: "ana_t", Password: "Secret123"})
	require.NoError(t, err)
	assert.NotEqual(t, byEmail.Token, byName.Token)

	resolved, err := svc.ResolveToken(ctx, byName.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, resolved.User.ID)
	assert.Equal(t, "ana_t", resolved.Session.Username)

	require.NoError(t, svc.Logout(ctx, byName.Token))
	_, err = svc.ResolveToken(ctx, byName.Token)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestRegisterRejectsWeakPasswordAndDuplicates(t *testing.T) {
	now := time.Now()
	svc := newService(&now)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterParams{Username: "ana_t", Email: "ana@example.com", Password: "password"})
	require.ErrorIs(t, err, failure.ErrValidation)
	assert.Contains(t, failure.AsValidation(err).Fields(), "password")

	_, err = svc.Register(ctx, RegisterParams{Username: "ana_t", Email: "ana@example.com", Password: "Secret123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterParams{Username: "ANA_T", Email: "other@example.com", Password: "Secret123"})
	assert.ErrorIs(t, err, failure.ErrDuplicate)
	_, err = svc.Register(ctx, RegisterParams{Username: "ben", Email: "ANA@example.com", Password: "Secret123"})
	assert.ErrorIs(t, err, failure.ErrDuplicate)

	_, err = svc.Register(ctx, RegisterParams{Username: "x!", Email: "bad", Password: "Secret123"})
	require.ErrorIs(t, err, failure.ErrValidation)
	fields := failure.AsValidation(err).Fields()
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "email")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	now := time.Now()
	svc := newService(&now)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterParams{Username: "ana_t", Email: "ana@example.com", Password: "Secret123"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginParams{Login: "ana_t", Password: "Secret124"})
	assert.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginParams{Login: "nobody", Password: "Secret123"})
	assert.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	_, err = svc.Login(ctx, LoginParams{})
	assert.ErrorIs(t, err, failure.ErrForbidden)
}

func TestAdminUsernamesArePromoted(t *testing.T) {
	now := time.Now()
	svc := newService(&now)
	result, err := svc.Register(context.Background(), RegisterParams{Username: "Root", Email: "root@example.com", Password: "Secret123"})
	require.NoError(t, err)
	assert.True(t, result.User.IsAdmin)

	resolved, err := svc.ResolveToken(context.Background(), result.Token)
	require.NoError(t, err)
	assert.True(t, resolved.Session.IsAdmin)
}

func TestSessionsExpire(t *testing.T) {
	now := time.Now()
	svc := newService(&now)
	ctx := context.Background()
	result, err := svc.Register(ctx, RegisterParams{Username: "ana_t", Email: "ana@example.com", Password: "Secret123"})
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = svc.ResolveToken(ctx, result.Token)
	assert.ErrorIs(t, err, failure.ErrNotFound)

	_, err = svc.ResolveToken(ctx, "  ")
	assert.ErrorIs(t, err, failure.ErrValidation)
}

func TestLoginUpgradesOutdatedHashCost(t *testing.T) {
	now := time.Now()
	svc := newService(&now)
	ctx := context.Background()
	registered, err := svc.Register(ctx, RegisterParams{Username: "ben", Email: "ben@example.com", Password: "Secret123"})
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(registered.User.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, 4, cost)

	svc.Passwords = security.BcryptHasher{Cost: 5}
	_, err = svc.Login(ctx, LoginParams{Login: "ben", Password: "Secret123"})
	require.NoError(t, err)

	stored, err := svc.Users.ByUsername(ctx, "ben")
	require.NoError(t, err)
	cost, err = bcrypt.Cost([]byte(stored.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, 5, cost)

	_, err = svc.Login(ctx, LoginParams{Login: "ben", Password: "Secret123"})
	require.NoError(t, err)
}
