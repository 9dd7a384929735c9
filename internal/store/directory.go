package store

import (
	"context"

	"counselhub/backend/internal/domain"
)

// UserDirectory is the identity collaborator. Reads only, except for
// provisioning a minimal student account during counselor-side booking.
type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (domain.User, error)
	CreateStudent(ctx context.Context, user domain.User) (domain.User, error)
}

type CategoryDirectory interface {
	GetCategory(ctx context.Context, id int64) (domain.Category, error)
}
