package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/taskmanager-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// UserStore defines the interface for user data persistence.
// Users are written directly rather than through a UnitOfWork; registration
// is a single-row insert with no staged state.
type UserStore interface {
	// Create validates user, hashes its plaintext password and saves it.
	// Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// PreparePassword validates user and replaces its plaintext password with a
// bcrypt hash at the given cost. User stores call it from Create.
func PreparePassword(user *domain.User, cost int) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}
	if user.Password == "" {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = string(hash)
	user.Password = ""
	return nil
}
