package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	userDatamodel "github.com/frahmantamala/ai-helper/internal/core/datamodel/user"
	"github.com/frahmantamala/ai-helper/internal/user"
)

const uniqueViolation = "23505"

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*user.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg interface{}) (*user.User, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&row), nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *UserRepository) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where(query, arg).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	row := user.ToDataModel(u)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
	if err != nil {
		return translateWriteError(err)
	}
	*u = *user.FromDataModel(row)
	return nil
}

// Update writes the mutable profile fields. ErrNotFound is returned when no row matched.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userDatamodel.User{}).
			Where("id = ?", u.ID).
			Updates(map[string]interface{}{
				"email":      u.Email,
				"name":       u.Name,
				"role":       u.Role,
				"status":     u.Status,
				"org_id":     u.OrgID,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return user.ErrNotFound
		}
		return nil
	})
	if errors.Is(err, user.ErrNotFound) {
		return err
	}
	return translateWriteError(err)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) (bool, error) {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"password_hash": passwordHash,
		"updated_at":    time.Now(),
	})
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.updateColumns(ctx, id, map[string]interface{}{"last_login_at": at})
	return err
}

func (r *UserRepository) updateColumns(ctx context.Context, id int64, cols map[string]interface{}) (bool, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userDatamodel.User{}).Where("id = ?", id).Updates(cols)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&userDatamodel.User{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]*user.User, error) {
	var rows []*userDatamodel.User
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomain(rows), nil
}

func (r *UserRepository) Search(ctx context.Context, term string, offset, limit int) ([]*user.User, error) {
	var rows []*userDatamodel.User
	err := r.searchScope(ctx, term).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomain(rows), nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Count(&count).Error
	return count, err
}

func (r *UserRepository) CountSearch(ctx context.Context, term string) (int64, error) {
	var count int64
	err := r.searchScope(ctx, term).Count(&count).Error
	return count, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// searchScope matches term literally; LIKE wildcards in it are escaped.
func (r *UserRepository) searchScope(ctx context.Context, term string) *gorm.DB {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
	return r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\'`, pattern, pattern, pattern)
}

// DeleteAll removes every user row. Used by the seeder's --clear flag.
func (r *UserRepository) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&userDatamodel.User{})
	return res.RowsAffected, res.Error
}

func toDomain(rows []*userDatamodel.User) []*user.User {
	users := make([]*user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, user.FromDataModel(row))
	}
	return users
}

func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", user.ErrDuplicate, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
