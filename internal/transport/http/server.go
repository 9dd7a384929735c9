package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"counselhub/backend/internal/domain"
	"counselhub/backend/internal/service/appointments"
	"counselhub/backend/internal/service/scheduling"
)

// Identity headers set by the campus gateway after authentication.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

const actorKey = "actor"

type appointmentsService interface {
	Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	Get(ctx context.Context, token uuid.UUID, actor appointments.Actor) (domain.Appointment, error)
	List(ctx context.Context, in appointments.ListInput) ([]domain.Appointment, error)
	UpdateStatus(ctx context.Context, token uuid.UUID, actor appointments.Actor, newStatus domain.AppointmentStatus) (domain.Appointment, error)
	Reschedule(ctx context.Context, token uuid.UUID, actor appointments.Actor, newDateTime time.Time) (domain.Appointment, error)
	UpdateNotes(ctx context.Context, token uuid.UUID, actor appointments.Actor, notes string) (domain.Appointment, error)
	Delete(ctx context.Context, token uuid.UUID, actor appointments.Actor) error
}

type schedulingService interface {
	AvailableSlots(ctx context.Context, counselorID int64, date time.Time) (scheduling.DayAvailability, error)
	WeeklySchedule(ctx context.Context, counselorID int64) ([]domain.WeeklySchedule, error)
	ReplaceWeeklySchedule(ctx context.Context, counselorID int64, entries []domain.WeeklySchedule) error
	AddExcludedDates(ctx context.Context, counselorID int64, dates []scheduling.ExcludedDateInput) error
	ExcludedDates(ctx context.Context, counselorID int64) ([]domain.ExcludedDate, error)
	DeleteExcludedDate(ctx context.Context, counselorID, id int64) error
}

type Server struct {
	appointments appointmentsService
	scheduling   schedulingService
	log          *slog.Logger
}

func NewServer(appts appointmentsService, sched schedulingService, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		appointments: appts,
		scheduling:   sched,
		log:          log.With(slog.String("component", "http")),
	}
}

// Handler builds the routed gin engine. The caller owns the http.Server
// wrapping it.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.Use(s.requireActor())
	{
		api.GET("/counselors/:id/slots", s.availableSlots)
		api.GET("/counselors/:id/schedule", s.weeklySchedule)
		api.PUT("/counselors/:id/schedule", s.replaceWeeklySchedule)
		api.GET("/counselors/:id/excluded-dates", s.listExcludedDates)
		api.POST("/counselors/:id/excluded-dates", s.addExcludedDates)
		api.DELETE("/counselors/:id/excluded-dates/:dateID", s.deleteExcludedDate)

		api.POST("/appointments", s.createAppointment)
		api.GET("/appointments", s.listAppointments)
		api.GET("/appointments/:token", s.getAppointment)
		api.PATCH("/appointments/:token/status", s.updateAppointmentStatus)
		api.PATCH("/appointments/:token/reschedule", s.rescheduleAppointment)
		api.PATCH("/appointments/:token/notes", s.updateAppointmentNotes)
		api.DELETE("/appointments/:token", s.deleteAppointment)
	}

	return router
}

// requireActor resolves the gateway identity headers into an Actor and
// rejects requests without one.
func (s *Server) requireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(headerUserID), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-User-ID header"})
			return
		}
		role := domain.Role(c.GetHeader(headerUserRole))
		if !role.Valid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-User-Role header"})
			return
		}
		c.Set(actorKey, appointments.Actor{ID: id, Role: role})
		c.Next()
	}
}

func actorFrom(c *gin.Context) appointments.Actor {
	return c.MustGet(actorKey).(appointments.Actor)
}

func counselorIDParam(c *gin.Context) (int64, bool) {
	id, err := parseInt64Param(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "counselor id must be a positive integer"})
		return 0, false
	}
	return id, true
}

func parseInt64Param(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}

func tokenParam(c *gin.Context) (uuid.UUID, bool) {
	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "appointment token must be a UUID"})
		return uuid.Nil, false
	}
	return token, true
}

func dateParam(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " query parameter is required"})
		return time.Time{}, false
	}
	date, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be formatted YYYY-MM-DD"})
		return time.Time{}, false
	}
	return date, true
}
