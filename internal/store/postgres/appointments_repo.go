package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"counselhub/backend/internal/domain"
	"counselhub/backend/internal/store"
)

const slotUniqueIndex = "appointments_counselor_slot_key"

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

func (r *AppointmentRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.inCalendarTx(ctx, appt.CounselorID, func(ctx context.Context, tx bun.Tx) error {
		taken, err := slotTaken(ctx, tx, appt.CounselorID, appt.ScheduledAt, 0)
		if err != nil {
			return err
		}
		if taken {
			return store.ErrConflict
		}

		m := appt
		m.ScheduledAt = appt.ScheduledAt.UTC()
		if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
			return mapSlotViolation(err)
		}
		out = m
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) GetByToken(ctx context.Context, token uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.db.NewSelect().
		Model(&appt).
		Where("token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepo) List(ctx context.Context, filter store.AppointmentFilter) ([]domain.Appointment, error) {
	q := r.db.NewSelect().Model((*domain.Appointment)(nil))
	if filter.StudentID != 0 {
		q = q.Where("student_id = ?", filter.StudentID)
	}
	if filter.CounselorID != 0 {
		q = q.Where("counselor_id = ?", filter.CounselorID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Date != nil {
		dayStart, dayEnd := dayBoundsUTC(*filter.Date)
		q = q.Where("appointment_date >= ?", dayStart).
			Where("appointment_date < ?", dayEnd)
	}

	var rows []domain.Appointment
	if err := q.OrderExpr("appointment_date DESC").Scan(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) ListBlockingForDay(ctx context.Context, counselorID int64, date time.Time) ([]domain.Appointment, error) {
	dayStart, dayEnd := dayBoundsUTC(date)

	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("counselor_id = ?", counselorID).
		Where("appointment_date >= ?", dayStart).
		Where("appointment_date < ?", dayEnd).
		Where("status IN (?)", bun.In(blockingStatuses())).
		OrderExpr("appointment_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) Update(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.inCalendarTx(ctx, appt.CounselorID, func(ctx context.Context, tx bun.Tx) error {
		if appt.Blocking() {
			taken, err := slotTaken(ctx, tx, appt.CounselorID, appt.ScheduledAt, appt.ID)
			if err != nil {
				return err
			}
			if taken {
				return store.ErrConflict
			}
		}

		m := appt
		m.ScheduledAt = appt.ScheduledAt.UTC()
		res, err := tx.NewUpdate().Model(&m).WherePK().Exec(ctx)
		if err != nil {
			return mapSlotViolation(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrNotFound
		}
		out = m
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) SoftDelete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().
		Model((*domain.Appointment)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// inCalendarTx serializes writes to one counselor's calendar with a
// transaction-scoped advisory lock, so the read-check-insert sequence in
// Create and Update cannot race itself. The partial unique index on
// (counselor_id, appointment_date) backstops anything that bypasses the
// lock.
func (r *AppointmentRepo) inCalendarTx(ctx context.Context, counselorID int64, fn func(ctx context.Context, tx bun.Tx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockCounselorCalendar(ctx, tx, counselorID); err != nil {
			return err
		}
		return fn(ctx, tx)
	})
}

func lockCounselorCalendar(ctx context.Context, tx bun.Tx, counselorID int64) error {
	key := "counselor:" + strconv.FormatInt(counselorID, 10)
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", key).Exec(ctx)
	return err
}

func slotTaken(ctx context.Context, tx bun.Tx, counselorID int64, at time.Time, excludeID int64) (bool, error) {
	q := tx.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("counselor_id = ?", counselorID).
		Where("appointment_date = ?", at.UTC()).
		Where("status IN (?)", bun.In(blockingStatuses()))
	if excludeID != 0 {
		q = q.Where("id != ?", excludeID)
	}
	return q.Exists(ctx)
}

func blockingStatuses() []domain.AppointmentStatus {
	return []domain.AppointmentStatus{domain.AppointmentPending, domain.AppointmentConfirmed}
}

func mapSlotViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == slotUniqueIndex {
		return store.ErrConflict
	}
	return err
}

func dayBoundsUTC(date time.Time) (time.Time, time.Time) {
	u := date.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
