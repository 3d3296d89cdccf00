package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/ai-helper/internal"
	"github.com/frahmantamala/ai-helper/internal/metrics"
	"github.com/frahmantamala/ai-helper/internal/user"
)

// Service is the main auth service with dependencies
type Service struct {
	users  CredentialStore
	tokens TokenManager
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new auth service
func NewService(users CredentialStore, tokens TokenManager, logger *slog.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
}

// Login verifies the credentials and returns a fresh token. Unknown users and wrong
// passwords produce the same public error.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*LoginResponse, error) {
	if err := dto.Validate(); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	u, err := s.users.FindByUsername(ctx, dto.Username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, s.reject(dto.Username, "user_not_found", internal.ErrInvalidCredentials.WithCause(ErrUnknownUser))
		}
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		s.logger.Error("login lookup failed", "username", dto.Username, "error", err)
		return nil, internal.NewInternalError("failed to authenticate", err)
	}

	if u.Status == internal.StatusInactive {
		return nil, s.reject(dto.Username, "account_disabled", internal.ErrAccountDisabled.WithCause(ErrAccountDisabled))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, s.reject(dto.Username, "bad_credentials", internal.ErrInvalidCredentials.WithCause(ErrBadCredentials))
	}

	if err := s.users.UpdateLastLogin(ctx, u.ID, s.now()); err != nil {
		s.logger.Warn("failed to record last login", "user_id", u.ID, "error", err)
	}

	token, err := s.tokens.Issue(u.Username)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, internal.NewInternalError("failed to issue token", err)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.logger.Info("user logged in", "user_id", u.ID, "username", u.Username)

	return &LoginResponse{
		Token:    token,
		Username: u.Username,
		Role:     u.Role,
	}, nil
}

func (s *Service) reject(username, result string, err *internal.AppError) error {
	metrics.LoginAttemptsTotal.WithLabelValues(result).Inc()
	s.logger.Warn("login rejected", "username", username, "reason", err.Unwrap().Error())
	return err
}

// Authenticate resolves a bearer token to the principal of an active user.
func (s *Service) Authenticate(ctx context.Context, token string) (internal.Principal, error) {
	subject, err := s.tokens.SubjectOf(token)
	if err != nil {
		return internal.Principal{}, err
	}

	expired, err := s.tokens.IsExpired(token)
	if err != nil {
		return internal.Principal{}, err
	}
	if expired {
		return internal.Principal{}, internal.ErrTokenExpired
	}

	u, err := s.users.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return internal.Principal{}, internal.ErrInvalidToken.WithCause(ErrUnknownUser)
		}
		return internal.Principal{}, internal.NewInternalError("failed to load user", err)
	}
	if !u.IsActive() {
		return internal.Principal{}, internal.ErrInvalidToken.WithCause(ErrAccountDisabled)
	}
	if !s.tokens.Validate(token, u.Username) {
		return internal.Principal{}, internal.ErrInvalidToken
	}

	return u.Principal(), nil
}
