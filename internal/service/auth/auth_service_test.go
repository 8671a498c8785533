package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/platform/memstore"
	"github.com/phrazzld/taskmanager-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPassword = "correct-horse-battery"

func newAuthService(t *testing.T) (*Service, *hmacJWTService) {
	t.Helper()
	tokens := newTestService(t, testAuthConfig(), fixedTime)
	return NewService(memstore.NewUserStore(4), tokens, NewBcryptVerifier(), nil), tokens
}

func TestRegister(t *testing.T) {
	t.Run("creates a user without keeping the plaintext password", func(t *testing.T) {
		svc, _ := newAuthService(t)

		user, err := svc.Register(context.Background(), "alice@example.com", validPassword, "Alice")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, user.ID)
		assert.Empty(t, user.Password)
		assert.NotEmpty(t, user.HashedPassword)
		assert.Equal(t, "Alice", user.FullName)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc, _ := newAuthService(t)
		_, err := svc.Register(context.Background(), "alice@example.com", validPassword, "Alice")
		require.NoError(t, err)

		_, err = svc.Register(context.Background(), "ALICE@example.com", validPassword, "Alice Again")
		assert.ErrorIs(t, err, store.ErrEmailExists)
	})

	t.Run("invalid input is a validation error", func(t *testing.T) {
		svc, _ := newAuthService(t)

		tests := []struct {
			name     string
			email    string
			password string
			cause    error
		}{
			{"bad email", "not-an-email", validPassword, domain.ErrInvalidEmail},
			{"short password", "bob@example.com", "short", domain.ErrPasswordTooShort},
			{"empty password", "bob@example.com", "", domain.ErrEmptyPassword},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.Register(context.Background(), tc.email, tc.password, "Bob")
				assert.ErrorIs(t, err, domain.ErrValidation)
				assert.ErrorIs(t, err, tc.cause)
			})
		}
	})
}

func TestLogin(t *testing.T) {
	svc, tokens := newAuthService(t)
	user, err := svc.Register(context.Background(), "alice@example.com", validPassword, "Alice")
	require.NoError(t, err)

	t.Run("valid credentials yield a token for the user", func(t *testing.T) {
		result, err := svc.Login(context.Background(), "alice@example.com", validPassword)
		require.NoError(t, err)
		assert.Equal(t, user.ID, result.UserID)
		assert.Equal(t, fixedTime.Add(time.Hour), result.ExpiresAt)

		claims, err := tokens.ValidateToken(context.Background(), result.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "alice@example.com", "wrong-password-123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "nobody@example.com", validPassword)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("token failure is returned", func(t *testing.T) {
		failing := NewService(memstore.NewUserStore(4), &MockJWTService{TokenError: errors.New("sign failed")},
			NewBcryptVerifier(), nil)
		_, err := failing.Register(context.Background(), "carol@example.com", validPassword, "")
		require.NoError(t, err)

		_, err = failing.Login(context.Background(), "carol@example.com", validPassword)
		assert.EqualError(t, err, "sign failed")
	})
}
