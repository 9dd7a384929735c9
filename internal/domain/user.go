package domain

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// User is a row in the user/role directory this service reads. The
// directory is owned elsewhere; the only write this service performs is
// provisioning a minimal student account during counselor-side booking.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	Email     string    `bun:"email,notnull"`
	IDNumber  string    `bun:"id_number"`
	Role      Role      `bun:"role,notnull"`
	Active    bool      `bun:"active,notnull"`
	PushToken string    `bun:"push_token"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (u *User) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		if u.UpdatedAt.IsZero() {
			u.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		u.UpdatedAt = now
	}
	return nil
}

// Category is an appointment topic from the category directory.
type Category struct {
	bun.BaseModel `bun:"table:categories"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Title string `bun:"title,notnull"`
}
