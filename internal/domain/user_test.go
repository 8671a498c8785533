package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewUser(t *testing.T) {
	user, err := NewUser("test@example.com", "Password123!", "Test User")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if user.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if user.Email != "test@example.com" {
		t.Errorf("Expected email test@example.com, got %s", user.Email)
	}
	if user.FullName != "Test User" {
		t.Errorf("Expected full name Test User, got %s", user.FullName)
	}
	if user.OwnerID() != user.ID.String() {
		t.Errorf("Expected owner ID %s, got %s", user.ID, user.OwnerID())
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be set")
	}
}

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr error
	}{
		{
			name:    "valid with plaintext password",
			user:    User{ID: uuid.New(), Email: "a@example.com", Password: "Password123!"},
			wantErr: nil,
		},
		{
			name:    "valid with hash only",
			user:    User{ID: uuid.New(), Email: "a@example.com", HashedPassword: "$2a$10$hash"},
			wantErr: nil,
		},
		{
			name:    "missing id",
			user:    User{Email: "a@example.com", Password: "Password123!"},
			wantErr: ErrEmptyUserID,
		},
		{
			name:    "missing email",
			user:    User{ID: uuid.New(), Password: "Password123!"},
			wantErr: ErrEmptyEmail,
		},
		{
			name:    "malformed email",
			user:    User{ID: uuid.New(), Email: "not-an-email", Password: "Password123!"},
			wantErr: ErrInvalidEmail,
		},
		{
			name:    "email without dotted domain",
			user:    User{ID: uuid.New(), Email: "a@localhost", Password: "Password123!"},
			wantErr: ErrInvalidEmail,
		},
		{
			name:    "short password",
			user:    User{ID: uuid.New(), Email: "a@example.com", Password: "short"},
			wantErr: ErrPasswordTooShort,
		},
		{
			name:    "long password",
			user:    User{ID: uuid.New(), Email: "a@example.com", Password: strings.Repeat("x", 73)},
			wantErr: ErrPasswordTooLong,
		},
		{
			name:    "no password at all",
			user:    User{ID: uuid.New(), Email: "a@example.com"},
			wantErr: ErrEmptyPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.user.Validate(); err != tt.wantErr {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}
