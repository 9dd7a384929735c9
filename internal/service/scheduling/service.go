package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"counselhub/backend/internal/domain"
	"counselhub/backend/internal/store"
)

const (
	// DefaultSlotMinutes is the slot width used when none is configured.
	DefaultSlotMinutes = 60

	reasonNoSchedule      = "no schedule available for this day"
	reasonDefaultExcluded = "this date is excluded from appointments"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// DayAvailability is the answer to "what slots are free for counselor X on
// date Y". Reason is set only when Slots is empty for a reportable cause.
type DayAvailability struct {
	Slots      []domain.TimeOfDay `json:"slots"`
	IsExcluded bool               `json:"is_excluded"`
	Reason     *string            `json:"reason"`
}

type Service struct {
	schedules    store.ScheduleRepository
	appointments store.AppointmentRepository
	slotMinutes  int
	now          func() time.Time
}

type Option func(*Service)

// WithSlotMinutes overrides the generated slot width.
func WithSlotMinutes(minutes int) Option {
	return func(s *Service) {
		if minutes > 0 {
			s.slotMinutes = minutes
		}
	}
}

// WithClock fixes the service's notion of now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(schedules store.ScheduleRepository, appointments store.AppointmentRepository, opts ...Option) *Service {
	s := &Service{
		schedules:    schedules,
		appointments: appointments,
		slotMinutes:  DefaultSlotMinutes,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AvailableSlots resolves the bookable slots for a counselor on one date.
// Check order matters: a weekday with no usable template wins over an
// excluded date, and only then are slots generated and booked times
// subtracted.
func (s *Service) AvailableSlots(ctx context.Context, counselorID int64, date time.Time) (DayAvailability, error) {
	if counselorID == 0 {
		return DayAvailability{}, validationError("counselor_id is required")
	}
	if startOfDay(date.UTC()).Before(startOfDay(s.now().UTC())) {
		return DayAvailability{}, validationError("date must not be in the past")
	}

	entry, err := s.schedules.DayFor(ctx, counselorID, domain.WeekdayOf(date.UTC()))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return DayAvailability{}, err
	}
	if errors.Is(err, store.ErrNotFound) || !entry.IsAvailable {
		reason := reasonNoSchedule
		return DayAvailability{Slots: []domain.TimeOfDay{}, Reason: &reason}, nil
	}

	excluded, err := s.schedules.ExcludedDateFor(ctx, counselorID, date)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return DayAvailability{}, err
	}
	if err == nil {
		reason := excluded.Reason
		if reason == "" {
			reason = reasonDefaultExcluded
		}
		return DayAvailability{Slots: []domain.TimeOfDay{}, IsExcluded: true, Reason: &reason}, nil
	}

	candidates := domain.GenerateSlots(entry.StartTime, entry.EndTime, entry.BreakStart, entry.BreakEnd, s.slotMinutes)

	booked, err := s.appointments.ListBlockingForDay(ctx, counselorID, date)
	if err != nil {
		return DayAvailability{}, err
	}
	taken := make(map[domain.TimeOfDay]struct{}, len(booked))
	for _, appt := range booked {
		taken[domain.TimeOfDayFrom(appt.ScheduledAt)] = struct{}{}
	}

	free := make([]domain.TimeOfDay, 0, len(candidates))
	for _, slot := range candidates {
		if _, ok := taken[slot]; ok {
			continue
		}
		free = append(free, slot)
	}

	return DayAvailability{Slots: free}, nil
}

// ReplaceWeeklySchedule validates and saves a counselor's weekly template,
// replacing whatever was stored before.
func (s *Service) ReplaceWeeklySchedule(ctx context.Context, counselorID int64, entries []domain.WeeklySchedule) error {
	if counselorID == 0 {
		return validationError("counselor_id is required")
	}
	if len(entries) == 0 {
		return validationError("schedule is required")
	}

	seen := make(map[domain.Weekday]struct{}, len(entries))
	for i := range entries {
		entry := &entries[i]
		if err := entry.Validate(); err != nil {
			return validationError("%v", err)
		}
		if _, ok := seen[entry.Weekday]; ok {
			return validationError("duplicate entry for %s", entry.Weekday)
		}
		seen[entry.Weekday] = struct{}{}
		entry.CounselorID = counselorID
	}

	return s.schedules.ReplaceWeek(ctx, counselorID, entries)
}

// WeeklySchedule returns the counselor's saved template, or the default
// Monday-to-Friday 09:00-17:00 template with a midday break when nothing
// has been saved yet.
func (s *Service) WeeklySchedule(ctx context.Context, counselorID int64) ([]domain.WeeklySchedule, error) {
	if counselorID == 0 {
		return nil, validationError("counselor_id is required")
	}
	saved, err := s.schedules.WeekFor(ctx, counselorID)
	if err != nil {
		return nil, err
	}
	if len(saved) > 0 {
		return saved, nil
	}
	return defaultWeek(counselorID), nil
}

func defaultWeek(counselorID int64) []domain.WeeklySchedule {
	week := make([]domain.WeeklySchedule, 0, 7)
	for wd := domain.Monday; wd <= domain.Sunday; wd++ {
		breakStart := domain.NewTimeOfDay(12, 0)
		breakEnd := domain.NewTimeOfDay(13, 0)
		week = append(week, domain.WeeklySchedule{
			CounselorID: counselorID,
			Weekday:     wd,
			IsAvailable: wd <= domain.Friday,
			StartTime:   domain.NewTimeOfDay(9, 0),
			EndTime:     domain.NewTimeOfDay(17, 0),
			BreakStart:  &breakStart,
			BreakEnd:    &breakEnd,
		})
	}
	return week
}

// ExcludedDateInput is one date a counselor blocks off.
type ExcludedDateInput struct {
	Date   time.Time
	Reason string
}

// AddExcludedDates appends excluded dates without touching existing ones.
func (s *Service) AddExcludedDates(ctx context.Context, counselorID int64, dates []ExcludedDateInput) error {
	if counselorID == 0 {
		return validationError("counselor_id is required")
	}
	if len(dates) == 0 {
		return validationError("dates are required")
	}

	today := startOfDay(s.now().UTC())
	rows := make([]domain.ExcludedDate, 0, len(dates))
	for _, d := range dates {
		if startOfDay(d.Date.UTC()).Before(today) {
			return validationError("excluded date %s is in the past", d.Date.UTC().Format("2006-01-02"))
		}
		rows = append(rows, domain.ExcludedDate{
			CounselorID: counselorID,
			Date:        d.Date,
			Reason:      d.Reason,
		})
	}

	return s.schedules.AddExcludedDates(ctx, rows)
}

// ExcludedDates lists the counselor's upcoming excluded dates.
func (s *Service) ExcludedDates(ctx context.Context, counselorID int64) ([]domain.ExcludedDate, error) {
	if counselorID == 0 {
		return nil, validationError("counselor_id is required")
	}
	return s.schedules.ListExcludedDates(ctx, counselorID, s.now().UTC())
}

func (s *Service) DeleteExcludedDate(ctx context.Context, counselorID, id int64) error {
	if counselorID == 0 {
		return validationError("counselor_id is required")
	}
	if id == 0 {
		return validationError("excluded date id is required")
	}
	return s.schedules.DeleteExcludedDate(ctx, counselorID, id)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
