package user

import (
	"strings"

	errors "github.com/frahmantamala/ai-helper/internal"
	"github.com/frahmantamala/ai-helper/internal/core/common/validation"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type CreateUserDTO struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=4,password_bytes"`
	Name     string `json:"name" validate:"max=100"`
	Role     string `json:"role" validate:"omitempty,oneof=USER ADMIN"`
	Status   string `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	OrgID    *int64 `json:"org_id"`
}

func (d *CreateUserDTO) Normalize() {
	d.Username = strings.TrimSpace(d.Username)
	d.Email = strings.TrimSpace(d.Email)
	d.Name = strings.TrimSpace(d.Name)
	d.Role = strings.ToUpper(strings.TrimSpace(d.Role))
	d.Status = strings.ToUpper(strings.TrimSpace(d.Status))
}

func (d CreateUserDTO) Validate() error {
	if err := validation.Struct(d); err != nil {
		return err
	}
	return nil
}

type UpdateUserDTO struct {
	Email  string `json:"email" validate:"required,email,max=100"`
	Name   string `json:"name" validate:"max=100"`
	Role   string `json:"role" validate:"required,oneof=USER ADMIN"`
	Status string `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	OrgID  *int64 `json:"org_id"`
}

func (d *UpdateUserDTO) Normalize() {
	d.Email = strings.TrimSpace(d.Email)
	d.Name = strings.TrimSpace(d.Name)
	d.Role = strings.ToUpper(strings.TrimSpace(d.Role))
	d.Status = strings.ToUpper(strings.TrimSpace(d.Status))
}

func (d UpdateUserDTO) Validate() error {
	if err := validation.Struct(d); err != nil {
		return err
	}
	return nil
}

type ChangePasswordDTO struct {
	NewPassword string `json:"new_password" validate:"required,min=4,password_bytes"`
}

func (d ChangePasswordDTO) Validate() error {
	if err := validation.Struct(d); err != nil {
		return err
	}
	return nil
}

type PageQuery struct {
	Page   int
	Size   int
	Search string
}

func (q PageQuery) Validate() error {
	v := validation.NewValidator()
	v.Field("page", q.Page).MinInt(1, errors.ErrCodeInvalidPage)
	v.Field("size", q.Size).MinInt(1, errors.ErrCodeInvalidPage)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type Page struct {
	Items       []*User `json:"items"`
	TotalCount  int64   `json:"total_count"`
	TotalPages  int     `json:"total_pages"`
	CurrentPage int     `json:"current_page"`
}

type AvailabilityResponse struct {
	Available bool `json:"available"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
