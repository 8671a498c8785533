package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/store"
)

// UserStore implements store.UserStore in memory. Emails are unique
// case-insensitively.
type UserStore struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]domain.User
	byEmail    map[string]uuid.UUID
	bcryptCost int
}

var _ store.UserStore = (*UserStore)(nil)

// NewUserStore creates an empty UserStore hashing passwords at bcryptCost.
func NewUserStore(bcryptCost int) *UserStore {
	return &UserStore{
		byID:       make(map[uuid.UUID]domain.User),
		byEmail:    make(map[string]uuid.UUID),
		bcryptCost: bcryptCost,
	}
}

// Create implements store.UserStore.
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := store.PreparePassword(user, s.bcryptCost); err != nil {
		return err
	}

	key := strings.ToLower(user.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[key]; exists {
		return store.ErrEmailExists
	}
	s.byID[user.ID] = *user
	s.byEmail[key] = user.ID
	return nil
}

// GetByID implements store.UserStore.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &user, nil
}

// GetByEmail implements store.UserStore.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	user := s.byID[id]
	return &user, nil
}
