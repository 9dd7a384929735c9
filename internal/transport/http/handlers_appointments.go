package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"counselhub/backend/internal/domain"
	"counselhub/backend/internal/service/appointments"
	"counselhub/backend/internal/service/scheduling"
	"counselhub/backend/internal/store"
)

type appointmentResponse struct {
	Token        string     `json:"token"`
	StudentID    int64      `json:"student_id"`
	CounselorID  int64      `json:"counselor_id"`
	CategoryID   *int64     `json:"category_id,omitempty"`
	ScheduledAt  time.Time  `json:"appointment_date"`
	Status       string     `json:"status"`
	LocationType string     `json:"location_type"`
	Location     string     `json:"location,omitempty"`
	Reason       string     `json:"reason"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func toAppointmentResponse(a domain.Appointment) appointmentResponse {
	return appointmentResponse{
		Token:        a.Token.String(),
		StudentID:    a.StudentID,
		CounselorID:  a.CounselorID,
		CategoryID:   a.CategoryID,
		ScheduledAt:  a.ScheduledAt,
		Status:       string(a.Status),
		LocationType: string(a.LocationType),
		Location:     a.Location,
		Reason:       a.Reason,
		Notes:        a.Notes,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func (s *Server) writeServiceError(c *gin.Context, op string, err error) {
	log := s.log.With(slog.String("op", op))

	var vErr *appointments.ValidationError
	var svErr *scheduling.ValidationError
	var aErr *appointments.AuthorizationError
	var tErr *appointments.TransitionError

	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", slog.Any("err", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.As(err, &svErr):
		log.Warn("invalid request", slog.Any("err", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": svErr.Error()})
	case errors.As(err, &aErr):
		log.Warn("forbidden", slog.Any("err", err))
		c.JSON(http.StatusForbidden, gin.H{"error": aErr.Error()})
	case errors.As(err, &tErr):
		log.Info("transition rejected", slog.Any("err", err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": tErr.Error()})
	case errors.Is(err, store.ErrConflict):
		log.Info("slot conflict")
		c.JSON(http.StatusConflict, gin.H{"error": "that slot is no longer available, pick a different one"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		log.Error("request failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type createAppointmentRequest struct {
	CounselorID int64  `json:"counselor_id"`
	StudentID   int64  `json:"student_id"`
	NewStudent  *struct {
		Name     string `json:"name"`
		IDNumber string `json:"id_number"`
		Email    string `json:"email"`
	} `json:"new_student"`
	CategoryID   *int64    `json:"category_id"`
	ScheduledAt  time.Time `json:"appointment_date"`
	Reason       string    `json:"reason"`
	LocationType string    `json:"location_type"`
	Location     string    `json:"location"`
}

func (s *Server) createAppointment(c *gin.Context) {
	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	in := appointments.CreateInput{
		Actor:        actorFrom(c),
		CounselorID:  req.CounselorID,
		StudentID:    req.StudentID,
		CategoryID:   req.CategoryID,
		ScheduledAt:  req.ScheduledAt,
		Reason:       req.Reason,
		LocationType: domain.LocationType(req.LocationType),
		Location:     req.Location,
	}
	if req.NewStudent != nil {
		in.NewStudent = &appointments.NewStudentInput{
			Name:     req.NewStudent.Name,
			IDNumber: req.NewStudent.IDNumber,
			Email:    req.NewStudent.Email,
		}
	}

	appt, err := s.appointments.Create(c.Request.Context(), in)
	if err != nil {
		s.writeServiceError(c, "createAppointment", err)
		return
	}

	s.log.Info("appointment created",
		slog.String("appointment", appt.Token.String()),
		slog.Int64("counselor_id", appt.CounselorID),
		slog.String("status", string(appt.Status)),
	)
	c.JSON(http.StatusCreated, toAppointmentResponse(appt))
}

func (s *Server) listAppointments(c *gin.Context) {
	in := appointments.ListInput{
		Actor:  actorFrom(c),
		Status: domain.AppointmentStatus(c.Query("status")),
	}
	if raw := c.Query("date"); raw != "" {
		date, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be formatted YYYY-MM-DD"})
			return
		}
		in.Date = &date
	}

	appts, err := s.appointments.List(c.Request.Context(), in)
	if err != nil {
		s.writeServiceError(c, "listAppointments", err)
		return
	}

	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"appointments": out})
}

func (s *Server) getAppointment(c *gin.Context) {
	token, ok := tokenParam(c)
	if !ok {
		return
	}

	appt, err := s.appointments.Get(c.Request.Context(), token, actorFrom(c))
	if err != nil {
		s.writeServiceError(c, "getAppointment", err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) updateAppointmentStatus(c *gin.Context) {
	token, ok := tokenParam(c)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	appt, err := s.appointments.UpdateStatus(c.Request.Context(), token, actorFrom(c), domain.AppointmentStatus(req.Status))
	if err != nil {
		s.writeServiceError(c, "updateAppointmentStatus", err)
		return
	}

	s.log.Info("appointment status updated",
		slog.String("appointment", appt.Token.String()),
		slog.String("status", string(appt.Status)),
	)
	c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) rescheduleAppointment(c *gin.Context) {
	token, ok := tokenParam(c)
	if !ok {
		return
	}
	var req struct {
		ScheduledAt time.Time `json:"appointment_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ScheduledAt.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "appointment_date is required"})
		return
	}

	appt, err := s.appointments.Reschedule(c.Request.Context(), token, actorFrom(c), req.ScheduledAt)
	if err != nil {
		s.writeServiceError(c, "rescheduleAppointment", err)
		return
	}

	s.log.Info("appointment rescheduled",
		slog.String("appointment", appt.Token.String()),
		slog.Time("appointment_date", appt.ScheduledAt),
	)
	c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) updateAppointmentNotes(c *gin.Context) {
	token, ok := tokenParam(c)
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	appt, err := s.appointments.UpdateNotes(c.Request.Context(), token, actorFrom(c), req.Notes)
	if err != nil {
		s.writeServiceError(c, "updateAppointmentNotes", err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) deleteAppointment(c *gin.Context) {
	token, ok := tokenParam(c)
	if !ok {
		return
	}

	if err := s.appointments.Delete(c.Request.Context(), token, actorFrom(c)); err != nil {
		s.writeServiceError(c, "deleteAppointment", err)
		return
	}

	s.log.Info("appointment deleted", slog.String("appointment", token.String()))
	c.Status(http.StatusNoContent)
}
