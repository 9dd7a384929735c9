package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"counselhub/backend/internal/domain"
	"counselhub/backend/internal/store"
)

type DirectoryRepo struct {
	db *bun.DB
}

func NewDirectoryRepo(db *bun.DB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

func (r *DirectoryRepo) GetUser(ctx context.Context, id int64) (domain.User, error) {
	var user domain.User
	err := r.db.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, store.ErrNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// CreateStudent provisions a minimal student account for the
// counselor-books-for-new-student flow. Reuses an existing row when the
// email is already registered.
func (r *DirectoryRepo) CreateStudent(ctx context.Context, user domain.User) (domain.User, error) {
	var existing domain.User
	err := r.db.NewSelect().
		Model(&existing).
		Where("email = ?", user.Email).
		Limit(1).
		Scan(ctx)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, err
	}

	m := user
	m.ID = 0
	m.Role = domain.RoleStudent
	m.Active = true
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.User{}, err
	}
	return m, nil
}

func (r *DirectoryRepo) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	var category domain.Category
	err := r.db.NewSelect().
		Model(&category).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Category{}, store.ErrNotFound
		}
		return domain.Category{}, err
	}
	return category, nil
}
