package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"counselhub/backend/internal/domain"
	"counselhub/backend/internal/service/scheduling"
)

func (s *Server) availableSlots(c *gin.Context) {
	counselorID, ok := counselorIDParam(c)
	if !ok {
		return
	}
	date, ok := dateParam(c, "date")
	if !ok {
		return
	}

	availability, err := s.scheduling.AvailableSlots(c.Request.Context(), counselorID, date)
	if err != nil {
		s.writeServiceError(c, "availableSlots", err)
		return
	}
	c.JSON(http.StatusOK, availability)
}

type scheduleEntryPayload struct {
	Weekday     int16             `json:"weekday"`
	IsAvailable bool              `json:"is_available"`
	StartTime   domain.TimeOfDay  `json:"start_time"`
	EndTime     domain.TimeOfDay  `json:"end_time"`
	BreakStart  *domain.TimeOfDay `json:"break_start,omitempty"`
	BreakEnd    *domain.TimeOfDay `json:"break_end,omitempty"`
}

func toScheduleEntryPayload(e domain.WeeklySchedule) scheduleEntryPayload {
	return scheduleEntryPayload{
		Weekday:     int16(e.Weekday),
		IsAvailable: e.IsAvailable,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		BreakStart:  e.BreakStart,
		BreakEnd:    e.BreakEnd,
	}
}

func (s *Server) weeklySchedule(c *gin.Context) {
	counselorID, ok := counselorIDParam(c)
	if !ok {
		return
	}

	week, err := s.scheduling.WeeklySchedule(c.Request.Context(), counselorID)
	if err != nil {
		s.writeServiceError(c, "weeklySchedule", err)
		return
	}

	out := make([]scheduleEntryPayload, 0, len(week))
	for _, entry := range week {
		out = append(out, toScheduleEntryPayload(entry))
	}
	c.JSON(http.StatusOK, gin.H{"schedule": out})
}

func (s *Server) replaceWeeklySchedule(c *gin.Context) {
	counselorID, ok := counselorIDParam(c)
	if !ok {
		return
	}
	if !s.requireScheduleOwner(c, counselorID) {
		return
	}

	var req struct {
		Schedule []scheduleEntryPayload `json:"schedule"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	entries := make([]domain.WeeklySchedule, 0, len(req.Schedule))
	for _, p := range req.Schedule {
		entries = append(entries, domain.WeeklySchedule{
			Weekday:     domain.Weekday(p.Weekday),
			IsAvailable: p.IsAvailable,
			StartTime:   p.StartTime,
			EndTime:     p.EndTime,
			BreakStart:  p.BreakStart,
			BreakEnd:    p.BreakEnd,
		})
	}

	if err := s.scheduling.ReplaceWeeklySchedule(c.Request.Context(), counselorID, entries); err != nil {
		s.writeServiceError(c, "replaceWeeklySchedule", err)
		return
	}

	s.log.Info("weekly schedule replaced",
		slog.Int64("counselor_id", counselorID),
		slog.Int("entries", len(entries)),
	)
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

type excludedDateResponse struct {
	ID     int64  `json:"id"`
	Date   string `json:"date"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) listExcludedDates(c *gin.Context) {
	counselorID, ok := counselorIDParam(c)
	if !ok {
		return
	}

	dates, err := s.scheduling.ExcludedDates(c.Request.Context(), counselorID)
	if err != nil {
		s.writeServiceError(c, "listExcludedDates", err)
		return
	}

	out := make([]excludedDateResponse, 0, len(dates))
	for _, d := range dates {
		out = append(out, excludedDateResponse{
			ID:     d.ID,
			Date:   d.Date.UTC().Format("2006-01-02"),
			Reason: d.Reason,
		})
	}
	c.JSON(http.StatusOK, gin.H{"excluded_dates": out})
}

func (s *Server) addExcludedDates(c *gin.Context) {
	counselorID, ok := counselorIDParam(c)
	if !ok {
		return
	}
	if !s.requireScheduleOwner(c, counselorID) {
		return
	}

	var req struct {
		Dates []struct {
			Date   string `json:"date"`
			Reason string `json:"reason"`
		} `json:"dates"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	inputs := make([]scheduling.ExcludedDateInput, 0, len(req.Dates))
	for _, d := range req.Dates {
		date, err := time.ParseInLocation("2006-01-02", d.Date, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dates must be formatted YYYY-MM-DD"})
			return
		}
		inputs = append(inputs, scheduling.ExcludedDateInput{Date: date, Reason: d.Reason})
	}

	if err := s.scheduling.AddExcludedDates(c.Request.Context(), counselorID, inputs); err != nil {
		s.writeServiceError(c, "addExcludedDates", err)
		return
	}

	s.log.Info("excluded dates added",
		slog.Int64("counselor_id", counselorID),
		slog.Int("count", len(inputs)),
	)
	c.JSON(http.StatusCreated, gin.H{"status": "saved"})
}

func (s *Server) deleteExcludedDate(c *gin.Context) {
	counselorID, ok := counselorIDParam(c)
	if !ok {
		return
	}
	if !s.requireScheduleOwner(c, counselorID) {
		return
	}
	id, err := parseInt64Param(c, "dateID")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "excluded date id must be a positive integer"})
		return
	}

	if err := s.scheduling.DeleteExcludedDate(c.Request.Context(), counselorID, id); err != nil {
		s.writeServiceError(c, "deleteExcludedDate", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// requireScheduleOwner limits schedule mutations to the counselor who owns
// the calendar; personnel may manage any counselor's schedule.
func (s *Server) requireScheduleOwner(c *gin.Context, counselorID int64) bool {
	actor := actorFrom(c)
	switch actor.Role {
	case domain.RolePersonnel:
		return true
	case domain.RoleCounselor:
		if actor.ID == counselorID {
			return true
		}
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "not authorized to manage this schedule"})
	return false
}
