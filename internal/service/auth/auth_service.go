package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/platform/logger"
	"github.com/phrazzld/taskmanager-api/internal/redact"
	"github.com/phrazzld/taskmanager-api/internal/store"
)

// LoginResult is returned by a successful Login.
type LoginResult struct {
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
}

// Service registers users and exchanges credentials for access tokens.
type Service struct {
	users    store.UserStore
	tokens   JWTService
	verifier PasswordVerifier
	logger   *slog.Logger
}

// NewService creates an authentication service.
func NewService(users store.UserStore, tokens JWTService, verifier PasswordVerifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:    users,
		tokens:   tokens,
		verifier: verifier,
		logger:   logger.With(slog.String("component", "auth_service")),
	}
}

// Register creates an account. Invalid input wraps domain.ErrValidation and a
// taken email returns store.ErrEmailExists.
func (s *Service) Register(ctx context.Context, email, password, fullName string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(email, password, fullName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, err
		}
		if errors.Is(err, store.ErrInvalidEntity) {
			return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
		log.Error("failed to create user", redact.ErrorAttr(err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	return user, nil
}

// Login verifies credentials and issues an access token. An unknown email and
// a wrong password both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			log.Debug("login for unknown email")
			return nil, ErrInvalidCredentials
		}
		log.Error("failed to load user for login", redact.ErrorAttr(err))
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		log.Debug("login with wrong password", slog.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.GenerateToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{UserID: user.ID, Token: token, ExpiresAt: expiresAt}, nil
}
