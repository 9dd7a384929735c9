package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"counselhub/backend/internal/domain"
	"counselhub/backend/internal/service/appointments"
	"counselhub/backend/internal/service/scheduling"
	"counselhub/backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAppointments struct {
	createFn       func(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	getFn          func(ctx context.Context, token uuid.UUID, actor appointments.Actor) (domain.Appointment, error)
	listFn         func(ctx context.Context, in appointments.ListInput) ([]domain.Appointment, error)
	updateStatusFn func(ctx context.Context, token uuid.UUID, actor appointments.Actor, newStatus domain.AppointmentStatus) (domain.Appointment, error)
	rescheduleFn   func(ctx context.Context, token uuid.UUID, actor appointments.Actor, newDateTime time.Time) (domain.Appointment, error)
	updateNotesFn  func(ctx context.Context, token uuid.UUID, actor appointments.Actor, notes string) (domain.Appointment, error)
	deleteFn       func(ctx context.Context, token uuid.UUID, actor appointments.Actor) error
}

func (f *fakeAppointments) Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, in)
}

func (f *fakeAppointments) Get(ctx context.Context, token uuid.UUID, actor appointments.Actor) (domain.Appointment, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, token, actor)
}

func (f *fakeAppointments) List(ctx context.Context, in appointments.ListInput) ([]domain.Appointment, error) {
	if f.listFn == nil {
		panic("List not configured")
	}
	return f.listFn(ctx, in)
}

func (f *fakeAppointments) UpdateStatus(ctx context.Context, token uuid.UUID, actor appointments.Actor, newStatus domain.AppointmentStatus) (domain.Appointment, error) {
	if f.updateStatusFn == nil {
		panic("UpdateStatus not configured")
	}
	return f.updateStatusFn(ctx, token, actor, newStatus)
}

func (f *fakeAppointments) Reschedule(ctx context.Context, token uuid.UUID, actor appointments.Actor, newDateTime time.Time) (domain.Appointment, error) {
	if f.rescheduleFn == nil {
		panic("Reschedule not configured")
	}
	return f.rescheduleFn(ctx, token, actor, newDateTime)
}

func (f *fakeAppointments) UpdateNotes(ctx context.Context, token uuid.UUID, actor appointments.Actor, notes string) (domain.Appointment, error) {
	if f.updateNotesFn == nil {
		panic("UpdateNotes not configured")
	}
	return f.updateNotesFn(ctx, token, actor, notes)
}

func (f *fakeAppointments) Delete(ctx context.Context, token uuid.UUID, actor appointments.Actor) error {
	if f.deleteFn == nil {
		panic("Delete not configured")
	}
	return f.deleteFn(ctx, token, actor)
}

type fakeScheduling struct {
	availableSlotsFn func(ctx context.Context, counselorID int64, date time.Time) (scheduling.DayAvailability, error)
	weeklyFn         func(ctx context.Context, counselorID int64) ([]domain.WeeklySchedule, error)
	replaceWeeklyFn  func(ctx context.Context, counselorID int64, entries []domain.WeeklySchedule) error
	addExcludedFn    func(ctx context.Context, counselorID int64, dates []scheduling.ExcludedDateInput) error
	listExcludedFn   func(ctx context.Context, counselorID int64) ([]domain.ExcludedDate, error)
	deleteExcludedFn func(ctx context.Context, counselorID, id int64) error
}

func (f *fakeScheduling) AvailableSlots(ctx context.Context, counselorID int64, date time.Time) (scheduling.DayAvailability, error) {
	if f.availableSlotsFn == nil {
		panic("AvailableSlots not configured")
	}
	return f.availableSlotsFn(ctx, counselorID, date)
}

func (f *fakeScheduling) WeeklySchedule(ctx context.Context, counselorID int64) ([]domain.WeeklySchedule, error) {
	if f.weeklyFn == nil {
		panic("WeeklySchedule not configured")
	}
	return f.weeklyFn(ctx, counselorID)
}

func (f *fakeScheduling) ReplaceWeeklySchedule(ctx context.Context, counselorID int64, entries []domain.WeeklySchedule) error {
	if f.replaceWeeklyFn == nil {
		panic("ReplaceWeeklySchedule not configured")
	}
	return f.replaceWeeklyFn(ctx, counselorID, entries)
}

func (f *fakeScheduling) AddExcludedDates(ctx context.Context, counselorID int64, dates []scheduling.ExcludedDateInput) error {
	if f.addExcludedFn == nil {
		panic("AddExcludedDates not configured")
	}
	return f.addExcludedFn(ctx, counselorID, dates)
}

func (f *fakeScheduling) ExcludedDates(ctx context.Context, counselorID int64) ([]domain.ExcludedDate, error) {
	if f.listExcludedFn == nil {
		panic("ExcludedDates not configured")
	}
	return f.listExcludedFn(ctx, counselorID)
}

func (f *fakeScheduling) DeleteExcludedDate(ctx context.Context, counselorID, id int64) error {
	if f.deleteExcludedFn == nil {
		panic("DeleteExcludedDate not configured")
	}
	return f.deleteExcludedFn(ctx, counselorID, id)
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string, asActor *appointments.Actor) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if asActor != nil {
		req.Header.Set(headerUserID, strconv.FormatInt(asActor.ID, 10))
		req.Header.Set(headerUserRole, string(asActor.Role))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := NewServer(&fakeAppointments{}, &fakeScheduling{}, nil)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestIdentityHeadersRequired(t *testing.T) {
	srv := NewServer(&fakeAppointments{}, &fakeScheduling{}, nil)
	handler := srv.Handler()

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/appointments", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no headers: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.Header.Set(headerUserID, "1")
	req.Header.Set(headerUserRole, "janitor")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad role: status = %d, want 401", rec.Code)
	}
}

func TestAvailableSlots(t *testing.T) {
	sched := &fakeScheduling{
		availableSlotsFn: func(ctx context.Context, counselorID int64, date time.Time) (scheduling.DayAvailability, error) {
			if counselorID != 7 {
				t.Fatalf("counselorID = %d, want 7", counselorID)
			}
			if !date.Equal(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)) {
				t.Fatalf("date = %v", date)
			}
			return scheduling.DayAvailability{
				Slots: []domain.TimeOfDay{domain.NewTimeOfDay(9, 0), domain.NewTimeOfDay(10, 0)},
			}, nil
		},
	}
	srv := NewServer(&fakeAppointments{}, sched, nil)
	actor := &appointments.Actor{ID: 1, Role: domain.RoleStudent}

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/counselors/7/slots?date=2026-01-05", "", actor)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got struct {
		Slots      []string `json:"slots"`
		IsExcluded bool     `json:"is_excluded"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Slots) != 2 || got.Slots[0] != "09:00" || got.Slots[1] != "10:00" {
		t.Fatalf("slots = %v", got.Slots)
	}
}

func TestAvailableSlots_ValidationErrorIs400(t *testing.T) {
	brokenDate := &fakeScheduling{
		availableSlotsFn: func(ctx context.Context, counselorID int64, date time.Time) (scheduling.DayAvailability, error) {
			return scheduling.DayAvailability{}, &scheduling.ValidationError{}
		},
	}
	srv := NewServer(&fakeAppointments{}, brokenDate, nil)
	actor := &appointments.Actor{ID: 1, Role: domain.RoleStudent}

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/counselors/7/slots?date=2020-01-06", "", actor)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAvailableSlots_RequiresDate(t *testing.T) {
	srv := NewServer(&fakeAppointments{}, &fakeScheduling{}, nil)
	actor := &appointments.Actor{ID: 1, Role: domain.RoleStudent}

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/api/v1/counselors/7/slots", "", actor)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateAppointment(t *testing.T) {
	appts := &fakeAppointments{
		createFn: func(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error) {
			if in.Actor.ID != 1 || in.Actor.Role != domain.RoleStudent {
				t.Fatalf("actor = %+v", in.Actor)
			}
			return domain.Appointment{
				Token:        uuid.New(),
				StudentID:    1,
				CounselorID:  in.CounselorID,
				ScheduledAt:  in.ScheduledAt,
				Status:       domain.AppointmentPending,
				LocationType: in.LocationType,
				Reason:       in.Reason,
			}, nil
		},
	}
	srv := NewServer(appts, &fakeScheduling{}, nil)
	actor := &appointments.Actor{ID: 1, Role: domain.RoleStudent}

	body := `{"counselor_id":2,"appointment_date":"2026-02-01T10:00:00Z","reason":"exam stress","location_type":"online"}`
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/appointments", body, actor)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got appointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Status != "pending" || got.CounselorID != 2 {
		t.Fatalf("response = %+v", got)
	}
}

func TestCreateAppointment_ConflictIs409(t *testing.T) {
	appts := &fakeAppointments{
		createFn: func(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error) {
			return domain.Appointment{}, store.ErrConflict
		},
	}
	srv := NewServer(appts, &fakeScheduling{}, nil)
	actor := &appointments.Actor{ID: 1, Role: domain.RoleStudent}

	body := `{"counselor_id":2,"appointment_date":"2026-02-01T10:00:00Z","reason":"exam stress","location_type":"online"}`
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/appointments", body, actor)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestUpdateStatus_ErrorMapping(t *testing.T) {
	token := uuid.New()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"transition", &appointments.TransitionError{Role: domain.RoleStudent, From: domain.AppointmentConfirmed, To: domain.AppointmentCompleted}, http.StatusUnprocessableEntity},
		{"authorization", &appointments.AuthorizationError{}, http.StatusForbidden},
		{"not found", store.ErrNotFound, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			appts := &fakeAppointments{
				updateStatusFn: func(ctx context.Context, tok uuid.UUID, actor appointments.Actor, newStatus domain.AppointmentStatus) (domain.Appointment, error) {
					return domain.Appointment{}, tc.err
				},
			}
			srv := NewServer(appts, &fakeScheduling{}, nil)
			actor := &appointments.Actor{ID: 1, Role: domain.RoleStudent}

			rec := doRequest(t, srv.Handler(), http.MethodPatch, "/api/v1/appointments/"+token.String()+"/status", `{"status":"completed"}`, actor)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestUpdateStatus_BadToken(t *testing.T) {
	srv := NewServer(&fakeAppointments{}, &fakeScheduling{}, nil)
	actor := &appointments.Actor{ID: 1, Role: domain.RoleStudent}

	rec := doRequest(t, srv.Handler(), http.MethodPatch, "/api/v1/appointments/not-a-uuid/status", `{"status":"confirmed"}`, actor)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestReplaceWeeklySchedule_OwnerOnly(t *testing.T) {
	called := false
	sched := &fakeScheduling{
		replaceWeeklyFn: func(ctx context.Context, counselorID int64, entries []domain.WeeklySchedule) error {
			called = true
			return nil
		},
	}
	srv := NewServer(&fakeAppointments{}, sched, nil)
	handler := srv.Handler()

	body := `{"schedule":[{"weekday":1,"is_available":true,"start_time":"09:00","end_time":"17:00"}]}`

	other := &appointments.Actor{ID: 8, Role: domain.RoleCounselor}
	rec := doRequest(t, handler, http.MethodPut, "/api/v1/counselors/7/schedule", body, other)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("other counselor: status = %d, want 403", rec.Code)
	}
	if called {
		t.Fatal("service called despite ownership failure")
	}

	owner := &appointments.Actor{ID: 7, Role: domain.RoleCounselor}
	rec = doRequest(t, handler, http.MethodPut, "/api/v1/counselors/7/schedule", body, owner)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !called {
		t.Fatal("service not called for the owner")
	}
}

func TestAddExcludedDates(t *testing.T) {
	var got []scheduling.ExcludedDateInput
	sched := &fakeScheduling{
		addExcludedFn: func(ctx context.Context, counselorID int64, dates []scheduling.ExcludedDateInput) error {
			got = dates
			return nil
		},
	}
	srv := NewServer(&fakeAppointments{}, sched, nil)
	actor := &appointments.Actor{ID: 7, Role: domain.RoleCounselor}

	body := `{"dates":[{"date":"2026-03-02","reason":"campus holiday"}]}`
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/v1/counselors/7/excluded-dates", body, actor)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(got) != 1 || got[0].Reason != "campus holiday" {
		t.Fatalf("inputs = %+v", got)
	}
	if !got[0].Date.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date = %v", got[0].Date)
	}
}

func TestDeleteAppointment(t *testing.T) {
	token := uuid.New()
	appts := &fakeAppointments{
		deleteFn: func(ctx context.Context, tok uuid.UUID, actor appointments.Actor) error {
			if tok != token {
				t.Fatalf("token = %s, want %s", tok, token)
			}
			return nil
		},
	}
	srv := NewServer(appts, &fakeScheduling{}, nil)
	actor := &appointments.Actor{ID: 1, Role: domain.RoleStudent}

	rec := doRequest(t, srv.Handler(), http.MethodDelete, "/api/v1/appointments/"+token.String(), "", actor)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}
