package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

func newAuthEnv() (*fakeUserRepo, *AuthService) {
	users := newFakeUserRepo()
	cfg := config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 30, BcryptCost: bcrypt.MinCost}
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes)
	return users, NewAuthService(users, tokens, cfg)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an active end user", func(t *testing.T) {
		users, svc := newAuthEnv()
		user, err := svc.Register(ctx, RegisterInput{
			Username: "casey",
			Email:    "Casey@Example.com",
			Password: "hunter22!",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleEndUser, user.Role)
		assert.True(t, user.Active)
		assert.Equal(t, "casey@example.com", user.Email)
		assert.NotEqual(t, "hunter22!", user.PasswordHash)

		stored, err := users.GetByUsername(ctx, "casey")
		require.NoError(t, err)
		assert.Equal(t, user.ID, stored.ID)
	})

	t.Run("rejects short passwords", func(t *testing.T) {
		_, svc := newAuthEnv()
		_, err := svc.Register(ctx, RegisterInput{Username: "casey", Email: "c@example.com", Password: "short"})
		assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))
	})

	t.Run("rejects duplicate username", func(t *testing.T) {
		_, svc := newAuthEnv()
		_, err := svc.Register(ctx, RegisterInput{Username: "casey", Email: "c1@example.com", Password: "hunter22!"})
		require.NoError(t, err)
		_, err = svc.Register(ctx, RegisterInput{Username: "casey", Email: "c2@example.com", Password: "hunter22!"})
		assert.True(t, apperrors.HasCode(err, "CONFLICT"))
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		_, svc := newAuthEnv()
		_, err := svc.Register(ctx, RegisterInput{Username: "casey", Email: "c@example.com", Password: "hunter22!"})
		require.NoError(t, err)
		_, err = svc.Register(ctx, RegisterInput{Username: "riley", Email: "C@EXAMPLE.COM", Password: "hunter22!"})
		assert.True(t, apperrors.HasCode(err, "CONFLICT"))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	register := func(t *testing.T, svc *AuthService) *domain.User {
		t.Helper()
		user, err := svc.Register(ctx, RegisterInput{Username: "casey", Email: "c@example.com", Password: "hunter22!"})
		require.NoError(t, err)
		return user
	}

	t.Run("issues a token and stamps last login", func(t *testing.T) {
		users, svc := newAuthEnv()
		registered := register(t, svc)

		session, err := svc.Login(ctx, "casey", "hunter22!")
		require.NoError(t, err)
		assert.NotEmpty(t, session.Token)
		assert.True(t, session.ExpiresAt.After(session.User.CreatedAt))
		assert.Equal(t, registered.ID, session.User.ID)

		stored, err := users.GetByID(ctx, registered.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored.LastLoginAt)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		_, svc := newAuthEnv()
		register(t, svc)
		_, err := svc.Login(ctx, "casey", "wrong-password")
		assert.True(t, apperrors.HasCode(err, "UNAUTHORIZED"))
	})

	t.Run("unknown user is unauthorized", func(t *testing.T) {
		_, svc := newAuthEnv()
		_, err := svc.Login(ctx, "nobody", "whatever1")
		assert.True(t, apperrors.HasCode(err, "UNAUTHORIZED"))
	})

	t.Run("deactivated account is unauthorized", func(t *testing.T) {
		users, svc := newAuthEnv()
		registered := register(t, svc)
		registered.Active = false
		require.NoError(t, users.Update(ctx, registered))

		_, err := svc.Login(ctx, "casey", "hunter22!")
		assert.True(t, apperrors.HasCode(err, "UNAUTHORIZED"))
	})
}
