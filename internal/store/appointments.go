package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"counselhub/backend/internal/domain"
)

// AppointmentFilter narrows List. Zero values mean "any"; Date matches the
// calendar day of the appointment timestamp.
type AppointmentFilter struct {
	StudentID   int64
	CounselorID int64
	Status      domain.AppointmentStatus
	Date        *time.Time
}

type AppointmentRepository interface {
	// Create inserts the appointment inside the counselor's calendar
	// transaction. Returns ErrConflict when a blocking appointment already
	// holds the same counselor+timestamp slot.
	Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)

	GetByToken(ctx context.Context, token uuid.UUID) (domain.Appointment, error)
	List(ctx context.Context, filter AppointmentFilter) ([]domain.Appointment, error)

	// ListBlockingForDay returns the pending and confirmed appointments for
	// a counselor on one calendar date.
	ListBlockingForDay(ctx context.Context, counselorID int64, date time.Time) ([]domain.Appointment, error)

	// Update persists appointment mutations. When the slot moved, the
	// conflict check is re-run against the new timestamp excluding the
	// appointment's own row; ErrConflict when the slot is taken.
	Update(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)

	SoftDelete(ctx context.Context, id int64) error
}
