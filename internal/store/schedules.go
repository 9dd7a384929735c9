package store

import (
	"context"
	"time"

	"counselhub/backend/internal/domain"
)

type ScheduleRepository interface {
	WeekFor(ctx context.Context, counselorID int64) ([]domain.WeeklySchedule, error)

	// DayFor returns the template entry for one weekday; ErrNotFound when
	// the counselor has no saved entry for that day.
	DayFor(ctx context.Context, counselorID int64, weekday domain.Weekday) (domain.WeeklySchedule, error)

	// ReplaceWeek deletes the counselor's existing template and inserts the
	// new entries in a single transaction, so readers never observe a
	// half-saved week.
	ReplaceWeek(ctx context.Context, counselorID int64, entries []domain.WeeklySchedule) error

	AddExcludedDates(ctx context.Context, dates []domain.ExcludedDate) error
	ExcludedDateFor(ctx context.Context, counselorID int64, date time.Time) (domain.ExcludedDate, error)
	ListExcludedDates(ctx context.Context, counselorID int64, from time.Time) ([]domain.ExcludedDate, error)
	DeleteExcludedDate(ctx context.Context, counselorID, id int64) error
}
