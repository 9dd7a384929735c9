package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"counselhub/backend/internal/domain"
	"counselhub/backend/internal/store"
)

type ScheduleRepo struct {
	db *bun.DB
}

func NewScheduleRepo(db *bun.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) WeekFor(ctx context.Context, counselorID int64) ([]domain.WeeklySchedule, error) {
	var rows []domain.WeeklySchedule
	err := r.db.NewSelect().
		Model(&rows).
		Where("counselor_id = ?", counselorID).
		OrderExpr("weekday ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepo) DayFor(ctx context.Context, counselorID int64, weekday domain.Weekday) (domain.WeeklySchedule, error) {
	var entry domain.WeeklySchedule
	err := r.db.NewSelect().
		Model(&entry).
		Where("counselor_id = ?", counselorID).
		Where("weekday = ?", weekday).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WeeklySchedule{}, store.ErrNotFound
		}
		return domain.WeeklySchedule{}, err
	}
	return entry, nil
}

// ReplaceWeek swaps the counselor's whole template atomically: delete then
// insert in one transaction, so a concurrent availability read never sees a
// counselor with no schedule mid-save.
func (r *ScheduleRepo) ReplaceWeek(ctx context.Context, counselorID int64, entries []domain.WeeklySchedule) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*domain.WeeklySchedule)(nil)).
			Where("counselor_id = ?", counselorID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		rows := make([]domain.WeeklySchedule, len(entries))
		for i, e := range entries {
			e.ID = 0
			e.CounselorID = counselorID
			rows[i] = e
		}
		_, err = tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
}

func (r *ScheduleRepo) AddExcludedDates(ctx context.Context, dates []domain.ExcludedDate) error {
	if len(dates) == 0 {
		return nil
	}
	rows := make([]domain.ExcludedDate, len(dates))
	for i, d := range dates {
		d.ID = 0
		d.Date = truncateToDate(d.Date)
		rows[i] = d
	}
	_, err := r.db.NewInsert().Model(&rows).Exec(ctx)
	return err
}

func (r *ScheduleRepo) ExcludedDateFor(ctx context.Context, counselorID int64, date time.Time) (domain.ExcludedDate, error) {
	var row domain.ExcludedDate
	err := r.db.NewSelect().
		Model(&row).
		Where("counselor_id = ?", counselorID).
		Where("excluded_date = ?", truncateToDate(date)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ExcludedDate{}, store.ErrNotFound
		}
		return domain.ExcludedDate{}, err
	}
	return row, nil
}

func (r *ScheduleRepo) ListExcludedDates(ctx context.Context, counselorID int64, from time.Time) ([]domain.ExcludedDate, error) {
	var rows []domain.ExcludedDate
	err := r.db.NewSelect().
		Model(&rows).
		Where("counselor_id = ?", counselorID).
		Where("excluded_date >= ?", truncateToDate(from)).
		OrderExpr("excluded_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepo) DeleteExcludedDate(ctx context.Context, counselorID, id int64) error {
	res, err := r.db.NewDelete().
		Model((*domain.ExcludedDate)(nil)).
		Where("counselor_id = ?", counselorID).
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

func truncateToDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
