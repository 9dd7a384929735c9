package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCancelled, AppointmentCompleted:
		return true
	}
	return false
}

type LocationType string

const (
	LocationOnline LocationType = "online"
	LocationOnSite LocationType = "on_site"
)

func (l LocationType) Valid() bool {
	return l == LocationOnline || l == LocationOnSite
}

// Appointment is a booked counseling session. The numeric id is internal;
// Token is the externally addressable identifier. Rows are soft deleted so
// historical reporting stays consistent.
type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID           int64             `bun:"id,pk,autoincrement"`
	Token        uuid.UUID         `bun:"token,notnull,type:uuid"`
	StudentID    int64             `bun:"student_id,notnull"`
	CounselorID  int64             `bun:"counselor_id,notnull"`
	CategoryID   *int64            `bun:"category_id"`
	ScheduledAt  time.Time         `bun:"appointment_date,notnull"`
	Status       AppointmentStatus `bun:"status,notnull"`
	LocationType LocationType      `bun:"location_type,notnull"`
	Location     string            `bun:"location"`
	Reason       string            `bun:"reason"`
	Notes        string            `bun:"notes"`
	CreatedAt    time.Time         `bun:"created_at,notnull"`
	UpdatedAt    time.Time         `bun:"updated_at,notnull"`
	DeletedAt    time.Time         `bun:"deleted_at,soft_delete,nullzero"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.Token == uuid.Nil {
			token, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.Token = token
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// Blocking reports whether the appointment occupies its slot. Only pending
// and confirmed appointments keep a slot out of the availability list.
func (a *Appointment) Blocking() bool {
	return a.Status == AppointmentPending || a.Status == AppointmentConfirmed
}
