package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskmanager-api/internal/domain"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
	FullName string `json:"fullName" validate:"max=200"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Message string    `json:"message"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse defines the successful response for the login endpoint.
type AuthResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	AccessToken string    `json:"token"`

	// ExpiresAt is the RFC 3339 timestamp when the access token expires
	ExpiresAt string `json:"expires_at"`
}

// TaskItemDTO is the wire form of a task. The owner and version are never exposed.
type TaskItemDTO struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Status      int       `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func taskToDTO(t *domain.TaskItem) TaskItemDTO {
	return TaskItemDTO{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      int(t.Status),
		CreatedAt:   t.CreatedAt.UTC(),
	}
}

func tasksToDTOs(tasks []*domain.TaskItem) []TaskItemDTO {
	out := make([]TaskItemDTO, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToDTO(t))
	}
	return out
}
