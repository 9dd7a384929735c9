package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"counselhub/backend/internal/domain"
	"counselhub/backend/internal/store"
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

// AuthorizationError means the actor is not a party to the appointment or
// holds a role the operation does not permit.
type AuthorizationError struct {
	msg string
}

func (e *AuthorizationError) Error() string {
	return e.msg
}

func authorizationError(msg string) error {
	return &AuthorizationError{msg: msg}
}

// TransitionError means the requested status change is not in the
// role-conditioned transition table.
type TransitionError struct {
	Role domain.Role
	From domain.AppointmentStatus
	To   domain.AppointmentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s may not move %s to %s", e.Role, e.From, e.To)
}

// Actor identifies who is performing an operation.
type Actor struct {
	ID   int64
	Role domain.Role
}

// Dispatcher delivers push notifications best-effort. Implementations must
// never block the caller or surface delivery errors.
type Dispatcher interface {
	Dispatch(token, title, body string, data map[string]string)
}

type Service struct {
	repo       store.AppointmentRepository
	users      store.UserDirectory
	categories store.CategoryDirectory
	dispatcher Dispatcher
	log        *slog.Logger
	now        func() time.Time
}

type Option func(*Service)

// WithClock fixes the service's notion of now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo store.AppointmentRepository, users store.UserDirectory, categories store.CategoryDirectory, dispatcher Dispatcher, log *slog.Logger, opts ...Option) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		repo:       repo,
		users:      users,
		categories: categories,
		dispatcher: dispatcher,
		log:        log.With(slog.String("component", "service.appointments")),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewStudentInput provisions a minimal student account during
// counselor-side booking for someone not yet in the directory.
type NewStudentInput struct {
	Name     string
	IDNumber string
	Email    string
}

type CreateInput struct {
	Actor        Actor
	CounselorID  int64
	StudentID    int64
	NewStudent   *NewStudentInput
	CategoryID   *int64
	ScheduledAt  time.Time
	Reason       string
	LocationType domain.LocationType
	Location     string
}

// Create books an appointment. Counselor-created appointments start
// confirmed, everything else starts pending. The slot conflict surfaces as
// store.ErrConflict; the caller re-queries availability and retries.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return domain.Appointment{}, validationError("reason is required")
	}
	if !in.Actor.Role.Valid() {
		return domain.Appointment{}, validationError("actor role is required")
	}
	if in.CounselorID == 0 {
		return domain.Appointment{}, validationError("counselor_id is required")
	}
	if !in.LocationType.Valid() {
		return domain.Appointment{}, validationError("location_type must be online or on_site")
	}

	scheduledAt := in.ScheduledAt.UTC()
	if !scheduledAt.After(s.now().UTC()) {
		return domain.Appointment{}, validationError("appointment_date must be in the future")
	}

	counselor, err := s.users.GetUser(ctx, in.CounselorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, validationError("unknown counselor")
		}
		return domain.Appointment{}, err
	}
	if counselor.Role != domain.RoleCounselor || !counselor.Active {
		return domain.Appointment{}, validationError("unknown counselor")
	}

	if in.CategoryID != nil {
		if _, err := s.categories.GetCategory(ctx, *in.CategoryID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Appointment{}, validationError("unknown category")
			}
			return domain.Appointment{}, err
		}
	}

	studentID, err := s.resolveStudent(ctx, in)
	if err != nil {
		return domain.Appointment{}, err
	}

	appt, err := s.repo.Create(ctx, domain.Appointment{
		StudentID:    studentID,
		CounselorID:  in.CounselorID,
		CategoryID:   in.CategoryID,
		ScheduledAt:  scheduledAt,
		Status:       domain.InitialStatus(in.Actor.Role),
		LocationType: in.LocationType,
		Location:     strings.TrimSpace(in.Location),
		Reason:       reason,
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	if in.Actor.Role != domain.RoleCounselor {
		s.notify(ctx, counselor.ID, "New appointment request",
			fmt.Sprintf("You have a new appointment request for %s.", appt.ScheduledAt.Format("Jan 2 15:04")),
			eventData(appt, "appointment_requested", "", appt.Status))
	}

	return appt, nil
}

func (s *Service) resolveStudent(ctx context.Context, in CreateInput) (int64, error) {
	if in.Actor.Role == domain.RoleStudent {
		return in.Actor.ID, nil
	}

	if in.StudentID != 0 {
		student, err := s.users.GetUser(ctx, in.StudentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return 0, validationError("unknown student")
			}
			return 0, err
		}
		if student.Role != domain.RoleStudent {
			return 0, validationError("unknown student")
		}
		return student.ID, nil
	}

	if in.NewStudent == nil {
		return 0, validationError("student_id or new student details are required")
	}
	name := strings.TrimSpace(in.NewStudent.Name)
	email := strings.TrimSpace(in.NewStudent.Email)
	if name == "" || email == "" {
		return 0, validationError("new student name and email are required")
	}

	student, err := s.users.CreateStudent(ctx, domain.User{
		Name:     name,
		Email:    email,
		IDNumber: strings.TrimSpace(in.NewStudent.IDNumber),
	})
	if err != nil {
		return 0, err
	}
	return student.ID, nil
}

// Get returns one appointment, visible only to its parties; personnel may
// read any.
func (s *Service) Get(ctx context.Context, token uuid.UUID, actor Actor) (domain.Appointment, error) {
	appt, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return domain.Appointment{}, err
	}
	if err := authorizeParty(appt, actor); err != nil {
		return domain.Appointment{}, err
	}
	return appt, nil
}

type ListInput struct {
	Actor  Actor
	Status domain.AppointmentStatus
	Date   *time.Time
}

// List returns appointments scoped to the actor: students see their own,
// counselors their calendar, personnel everything.
func (s *Service) List(ctx context.Context, in ListInput) ([]domain.Appointment, error) {
	if in.Status != "" && !in.Status.Valid() {
		return nil, validationError("unknown status %q", in.Status)
	}

	filter := store.AppointmentFilter{Status: in.Status, Date: in.Date}
	switch in.Actor.Role {
	case domain.RoleStudent:
		filter.StudentID = in.Actor.ID
	case domain.RoleCounselor:
		filter.CounselorID = in.Actor.ID
	case domain.RolePersonnel:
	default:
		return nil, validationError("actor role is required")
	}

	return s.repo.List(ctx, filter)
}

// UpdateStatus applies the role-conditioned transition table. Requests that
// restate the current status outside the table are accepted as no-ops.
func (s *Service) UpdateStatus(ctx context.Context, token uuid.UUID, actor Actor, newStatus domain.AppointmentStatus) (domain.Appointment, error) {
	if !newStatus.Valid() {
		return domain.Appointment{}, validationError("unknown status %q", newStatus)
	}

	appt, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return domain.Appointment{}, err
	}
	if err := authorizeParty(appt, actor); err != nil {
		return domain.Appointment{}, err
	}

	oldStatus := appt.Status
	if !domain.CanTransition(actor.Role, oldStatus, newStatus) {
		if newStatus == oldStatus {
			return appt, nil
		}
		return domain.Appointment{}, &TransitionError{Role: actor.Role, From: oldStatus, To: newStatus}
	}

	appt.Status = newStatus
	updated, err := s.repo.Update(ctx, appt)
	if err != nil {
		return domain.Appointment{}, err
	}

	if oldStatus != newStatus {
		s.notifyStatusChange(ctx, updated, actor, oldStatus)
	}

	return updated, nil
}

// Reschedule moves a live appointment to a new slot, re-running the
// conflict check against everything except the appointment's own booking.
func (s *Service) Reschedule(ctx context.Context, token uuid.UUID, actor Actor, newDateTime time.Time) (domain.Appointment, error) {
	appt, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return domain.Appointment{}, err
	}
	if err := authorizeParty(appt, actor); err != nil {
		return domain.Appointment{}, err
	}
	if !appt.Blocking() {
		return domain.Appointment{}, validationError("cannot reschedule a %s appointment", appt.Status)
	}

	at := newDateTime.UTC()
	if !at.After(s.now().UTC()) {
		return domain.Appointment{}, validationError("appointment_date must be in the future")
	}
	if at.Equal(appt.ScheduledAt) {
		return appt, nil
	}

	appt.ScheduledAt = at
	updated, err := s.repo.Update(ctx, appt)
	if err != nil {
		return domain.Appointment{}, err
	}

	otherParty := updated.StudentID
	if actor.Role == domain.RoleStudent {
		otherParty = updated.CounselorID
	}
	s.notify(ctx, otherParty, "Appointment rescheduled",
		fmt.Sprintf("Your appointment has been moved to %s.", updated.ScheduledAt.Format("Jan 2 15:04")),
		eventData(updated, "appointment_rescheduled", updated.Status, updated.Status))

	return updated, nil
}

// UpdateNotes updates the free-text notes on an appointment.
func (s *Service) UpdateNotes(ctx context.Context, token uuid.UUID, actor Actor, notes string) (domain.Appointment, error) {
	appt, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return domain.Appointment{}, err
	}
	if err := authorizeParty(appt, actor); err != nil {
		return domain.Appointment{}, err
	}

	appt.Notes = strings.TrimSpace(notes)
	return s.repo.Update(ctx, appt)
}

// Delete soft-deletes an appointment. Counselors may delete any
// appointment; students only their own.
func (s *Service) Delete(ctx context.Context, token uuid.UUID, actor Actor) error {
	appt, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return err
	}

	switch actor.Role {
	case domain.RoleCounselor:
	case domain.RoleStudent:
		if appt.StudentID != actor.ID {
			return authorizationError("not authorized to delete this appointment")
		}
	default:
		return authorizationError("not authorized to delete appointments")
	}

	return s.repo.SoftDelete(ctx, appt.ID)
}

func authorizeParty(appt domain.Appointment, actor Actor) error {
	switch actor.Role {
	case domain.RoleStudent:
		if appt.StudentID != actor.ID {
			return authorizationError("not authorized for this appointment")
		}
	case domain.RoleCounselor:
		if appt.CounselorID != actor.ID {
			return authorizationError("not authorized for this appointment")
		}
	case domain.RolePersonnel:
	default:
		return authorizationError("unknown actor role")
	}
	return nil
}

func (s *Service) notifyStatusChange(ctx context.Context, appt domain.Appointment, actor Actor, oldStatus domain.AppointmentStatus) {
	var event, title, body string
	switch appt.Status {
	case domain.AppointmentConfirmed:
		event, title = "appointment_confirmed", "Appointment confirmed"
		body = fmt.Sprintf("Your appointment on %s has been confirmed.", appt.ScheduledAt.Format("Jan 2 15:04"))
	case domain.AppointmentCancelled:
		event, title = "appointment_cancelled", "Appointment cancelled"
		body = fmt.Sprintf("Your appointment on %s has been cancelled.", appt.ScheduledAt.Format("Jan 2 15:04"))
	case domain.AppointmentCompleted:
		event, title = "appointment_completed", "Appointment completed"
		body = fmt.Sprintf("Your appointment on %s has been marked completed.", appt.ScheduledAt.Format("Jan 2 15:04"))
	default:
		return
	}
	data := eventData(appt, event, oldStatus, appt.Status)

	if actor.Role != domain.RoleStudent {
		s.notify(ctx, appt.StudentID, title, body, data)
	}
	if actor.Role == domain.RoleStudent && appt.Status == domain.AppointmentCancelled && oldStatus == domain.AppointmentPending {
		s.notify(ctx, appt.CounselorID, title,
			fmt.Sprintf("The appointment request for %s was cancelled by the student.", appt.ScheduledAt.Format("Jan 2 15:04")),
			data)
	}
}

// notify resolves the recipient's push token and hands off to the
// dispatcher. Best-effort: every failure path logs and returns.
func (s *Service) notify(ctx context.Context, userID int64, title, body string, data map[string]string) {
	if s.dispatcher == nil {
		return
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		s.log.Warn("notification recipient lookup failed", slog.Int64("user_id", userID), slog.Any("err", err))
		return
	}
	if user.PushToken == "" {
		return
	}
	s.dispatcher.Dispatch(user.PushToken, title, body, data)
}

func eventData(appt domain.Appointment, event string, oldStatus, newStatus domain.AppointmentStatus) map[string]string {
	return map[string]string{
		"appointment": appt.Token.String(),
		"event":       event,
		"old_status":  string(oldStatus),
		"new_status":  string(newStatus),
	}
}
