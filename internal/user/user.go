package user

import (
	"errors"
	"time"

	"github.com/frahmantamala/ai-helper/internal"
	userDatamodel "github.com/frahmantamala/ai-helper/internal/core/datamodel/user"
)

type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never expose password hash
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	OrgID        *int64     `json:"org_id,omitempty"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) IsActive() bool {
	return u.Status == internal.StatusActive
}

func (u *User) IsAdmin() bool {
	return u.Role == internal.RoleAdmin
}

func (u *User) Principal() internal.Principal {
	return internal.Principal{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		OrgID:    u.OrgID,
	}
}

var (
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned by repositories when a unique constraint rejects a write.
	ErrDuplicate = errors.New("user already exists")
)

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		Role:         u.Role,
		Status:       u.Status,
		OrgID:        u.OrgID,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		Role:         u.Role,
		Status:       u.Status,
		OrgID:        u.OrgID,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
