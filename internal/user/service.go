package user

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/ai-helper/internal"
)

type Repository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) (bool, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, offset, limit int) ([]*User, error)
	Search(ctx context.Context, term string, offset, limit int) ([]*User, error)
	Count(ctx context.Context) (int64, error)
	CountSearch(ctx context.Context, term string) (int64, error)
}

type Service struct {
	repo       Repository
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) ListPaged(ctx context.Context, q PageQuery) (*Page, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	offset := (q.Page - 1) * q.Size
	search := strings.TrimSpace(q.Search)

	var (
		users []*User
		total int64
		err   error
	)
	if search != "" {
		users, err = s.repo.Search(ctx, search, offset, q.Size)
		if err == nil {
			total, err = s.repo.CountSearch(ctx, search)
		}
	} else {
		users, err = s.repo.List(ctx, offset, q.Size)
		if err == nil {
			total, err = s.repo.Count(ctx)
		}
	}
	if err != nil {
		s.logger.Error("failed to list users", "page", q.Page, "size", q.Size, "error", err)
		return nil, internal.NewInternalError("failed to list users", err)
	}

	return &Page{
		Items:       users,
		TotalCount:  total,
		TotalPages:  totalPages(total, q.Size),
		CurrentPage: q.Page,
	}, nil
}

func totalPages(total int64, size int) int {
	if total == 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError("get user", err)
	}
	return u, nil
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, s.mapLookupError("get user by username", err)
	}
	return u, nil
}

func (s *Service) Create(ctx context.Context, dto CreateUserDTO) (*User, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	taken, err := s.repo.ExistsByUsername(ctx, dto.Username)
	if err != nil {
		return nil, internal.NewInternalError("failed to check username", err)
	}
	if taken {
		return nil, internal.ErrUsernameTaken
	}

	taken, err = s.repo.ExistsByEmail(ctx, dto.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to check email", err)
	}
	if taken {
		return nil, internal.ErrEmailTaken
	}

	hash, err := s.hashPassword("password", dto.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     dto.Username,
		Email:        dto.Email,
		PasswordHash: string(hash),
		Name:         dto.Name,
		Role:         dto.Role,
		Status:       dto.Status,
		OrgID:        dto.OrgID,
	}
	if u.Role == "" {
		u.Role = internal.RoleUser
	}
	if u.Status == "" {
		u.Status = internal.StatusActive
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if stderrors.Is(err, ErrDuplicate) {
			return nil, internal.ErrDuplicateUser.WithCause(err)
		}
		s.logger.Error("failed to create user", "username", u.Username, "error", err)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", u.ID, "username", u.Username, "role", u.Role)
	return u, nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateUserDTO) (*User, error) {
	dto.Normalize()
	if dto.Status == "" {
		dto.Status = internal.StatusActive
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u := &User{
		ID:     id,
		Email:  dto.Email,
		Name:   dto.Name,
		Role:   dto.Role,
		Status: dto.Status,
		OrgID:  dto.OrgID,
	}
	if err := s.repo.Update(ctx, u); err != nil {
		switch {
		case stderrors.Is(err, ErrNotFound):
			return nil, internal.ErrUserNotFound
		case stderrors.Is(err, ErrDuplicate):
			return nil, internal.ErrEmailTaken.WithCause(err)
		}
		s.logger.Error("failed to update user", "user_id", id, "error", err)
		return nil, internal.NewInternalError("failed to update user", err)
	}

	return s.Get(ctx, id)
}

// ChangePassword reports false when no user has the given id.
func (s *Service) ChangePassword(ctx context.Context, id int64, newPassword string) (bool, error) {
	if err := (ChangePasswordDTO{NewPassword: newPassword}).Validate(); err != nil {
		return false, err
	}

	hash, err := s.hashPassword("new_password", newPassword)
	if err != nil {
		return false, err
	}

	ok, err := s.repo.UpdatePassword(ctx, id, string(hash))
	if err != nil {
		s.logger.Error("failed to change password", "user_id", id, "error", err)
		return false, internal.NewInternalError("failed to change password", err)
	}
	return ok, nil
}

func (s *Service) hashPassword(field, password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if stderrors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, internal.NewValidationFieldError(field, field+" must not exceed 72 bytes", internal.ErrCodeValidationFailed)
	}
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}
	return hash, nil
}

// Delete reports false when no user has the given id.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete user", "user_id", id, "error", err)
		return false, internal.NewInternalError("failed to delete user", err)
	}
	if ok {
		s.logger.Info("user deleted", "user_id", id)
	}
	return ok, nil
}

func (s *Service) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	taken, err := s.repo.ExistsByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return false, internal.NewInternalError("failed to check username", err)
	}
	return !taken, nil
}

func (s *Service) EmailAvailable(ctx context.Context, email string) (bool, error) {
	taken, err := s.repo.ExistsByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return false, internal.NewInternalError("failed to check email", err)
	}
	return !taken, nil
}

func (s *Service) mapLookupError(op string, err error) error {
	if stderrors.Is(err, ErrNotFound) {
		return internal.ErrUserNotFound
	}
	s.logger.Error("user lookup failed", "op", op, "error", err)
	return internal.NewInternalError(fmt.Sprintf("failed to %s", op), err)
}
