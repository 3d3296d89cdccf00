package auth

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/ai-helper/internal/user"
)

// TokenManager issues and inspects bearer tokens.
type TokenManager interface {
	Issue(subject string) (string, error)
	SubjectOf(token string) (string, error)
	IsExpired(token string) (bool, error)
	Validate(token, expectedSubject string) bool
}

// CredentialStore is the slice of the user store that authentication needs.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*user.User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

// Login failure reasons. They are attached as causes and only ever reach the log.
var (
	ErrUnknownUser     = errors.New("user not found")
	ErrAccountDisabled = errors.New("account disabled")
	ErrBadCredentials  = errors.New("bad credentials")
)
