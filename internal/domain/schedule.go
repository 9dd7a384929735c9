package domain

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// TimeOfDay is a minute-precision time of day, counted as minutes since
// midnight. It is the unit the slot generator and the weekly schedule
// operate in; calendar dates and zones are resolved by the callers.
type TimeOfDay int16

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	hour, err := parseTimePart(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	minute, err := parseTimePart(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	if hour > 23 || minute > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return NewTimeOfDay(hour, minute), nil
}

// parseTimePart accepts one or two plain digits, nothing else.
func parseTimePart(s string) (int, error) {
	if len(s) == 0 || len(s) > 2 {
		return 0, fmt.Errorf("invalid time part %q", s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid time part %q", s)
		}
	}
	return strconv.Atoi(s)
}

// TimeOfDayFrom extracts the UTC time-of-day component of a timestamp.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	u := t.UTC()
	return NewTimeOfDay(u.Hour(), u.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid time of day %s", data)
	}
	parsed, err := ParseTimeOfDay(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Weekday numbering follows ISO-8601: Monday=1 .. Sunday=7.
type Weekday int16

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// WeekdayOf maps a calendar date to its ISO weekday.
func WeekdayOf(t time.Time) Weekday {
	wd := t.Weekday()
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

// WeeklySchedule is one counselor's working-hours template for a single
// weekday. A counselor's template is replaced wholesale on save, never
// merged entry by entry.
type WeeklySchedule struct {
	bun.BaseModel `bun:"table:counselor_schedules"`

	ID          int64      `bun:"id,pk,autoincrement"`
	CounselorID int64      `bun:"counselor_id,notnull"`
	Weekday     Weekday    `bun:"weekday,notnull"`
	IsAvailable bool       `bun:"is_available,notnull"`
	StartTime   TimeOfDay  `bun:"start_time,notnull"`
	EndTime     TimeOfDay  `bun:"end_time,notnull"`
	BreakStart  *TimeOfDay `bun:"break_start"`
	BreakEnd    *TimeOfDay `bun:"break_end"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull"`
}

func (s *WeeklySchedule) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}

// Validate enforces the template invariants: a working window must be
// forward, and a break must sit fully inside it.
func (s *WeeklySchedule) Validate() error {
	if !s.Weekday.Valid() {
		return fmt.Errorf("invalid weekday %d", s.Weekday)
	}
	if !s.IsAvailable {
		return nil
	}
	if s.StartTime >= s.EndTime {
		return fmt.Errorf("%s: end_time must be after start_time", s.Weekday)
	}
	if (s.BreakStart == nil) != (s.BreakEnd == nil) {
		return fmt.Errorf("%s: break_start and break_end must be set together", s.Weekday)
	}
	if s.BreakStart != nil {
		if *s.BreakStart >= *s.BreakEnd {
			return fmt.Errorf("%s: break_end must be after break_start", s.Weekday)
		}
		if *s.BreakStart < s.StartTime || *s.BreakEnd > s.EndTime {
			return fmt.Errorf("%s: break must be within working hours", s.Weekday)
		}
	}
	return nil
}

func (w Weekday) String() string {
	switch w {
	case Monday:
		return "monday"
	case Tuesday:
		return "tuesday"
	case Wednesday:
		return "wednesday"
	case Thursday:
		return "thursday"
	case Friday:
		return "friday"
	case Saturday:
		return "saturday"
	case Sunday:
		return "sunday"
	default:
		return fmt.Sprintf("weekday(%d)", int16(w))
	}
}

// ExcludedDate marks one calendar date a counselor is unavailable even
// though the weekly template allows it. Excluded dates are additive and
// removed individually.
type ExcludedDate struct {
	bun.BaseModel `bun:"table:counselor_excluded_dates"`

	ID          int64     `bun:"id,pk,autoincrement"`
	CounselorID int64     `bun:"counselor_id,notnull"`
	Date        time.Time `bun:"excluded_date,notnull"`
	Reason      string    `bun:"reason"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

func (d *ExcludedDate) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		if d.UpdatedAt.IsZero() {
			d.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		d.UpdatedAt = now
	}
	return nil
}
