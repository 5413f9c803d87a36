package http

import (
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nekogravitycat/clinic-scheduler/internal/auth"
	"github.com/nekogravitycat/clinic-scheduler/internal/availability"
	"github.com/nekogravitycat/clinic-scheduler/internal/pkg/response"
	"github.com/nekogravitycat/clinic-scheduler/internal/scheduling"
)

type Handler struct {
	service availability.Service
}

func NewHandler(service availability.Service) *Handler {
	return &Handler{service: service}
}

// practitionerID validates the :id path parameter.
func practitionerID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return "", false
	}
	return id, true
}

// managedPractitionerID additionally checks that the caller may edit the
// practitioner's schedule.
func managedPractitionerID(c *gin.Context) (string, bool) {
	id, ok := practitionerID(c)
	if !ok {
		return "", false
	}
	if !auth.CanManagePractitioner(c, id) {
		response.Error(c, availability.ErrPermissionDenied)
		return "", false
	}
	return id, true
}

// Get lists the weekly rules and date overrides of a practitioner.
func (h *Handler) Get(c *gin.Context) {
	id, ok := practitionerID(c)
	if !ok {
		return
	}

	a, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAvailabilityResponse(a))
}

// SetRule creates or replaces the rule for one weekday.
func (h *Handler) SetRule(c *gin.Context) {
	id, ok := managedPractitionerID(c)
	if !ok {
		return
	}
	day, err := scheduling.ParseWeekday(c.Param("day"))
	if err != nil {
		response.Error(c, availability.ErrInvalidDay)
		return
	}

	var body WindowBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	w, err := body.Window()
	if err != nil {
		response.Error(c, err)
		return
	}

	rule, err := h.service.SetRule(c.Request.Context(), id, day, w)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewRuleResponse(rule))
}

// RemoveRule deletes the rule for one weekday. Deleting a missing rule succeeds.
func (h *Handler) RemoveRule(c *gin.Context) {
	id, ok := managedPractitionerID(c)
	if !ok {
		return
	}
	day, err := scheduling.ParseWeekday(c.Param("day"))
	if err != nil {
		response.Error(c, availability.ErrInvalidDay)
		return
	}

	if err := h.service.RemoveRule(c.Request.Context(), id, day); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetOverride creates or replaces the override for one date.
func (h *Handler) SetOverride(c *gin.Context) {
	id, ok := managedPractitionerID(c)
	if !ok {
		return
	}
	date, err := civil.ParseDate(c.Param("date"))
	if err != nil {
		response.Error(c, availability.ErrInvalidDate)
		return
	}

	var body WindowBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	w, err := body.Window()
	if err != nil {
		response.Error(c, err)
		return
	}

	o, err := h.service.SetOverride(c.Request.Context(), id, date, w)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewOverrideResponse(o))
}

// RemoveOverride deletes the override for one date. Deleting a missing override succeeds.
func (h *Handler) RemoveOverride(c *gin.Context) {
	id, ok := managedPractitionerID(c)
	if !ok {
		return
	}
	date, err := civil.ParseDate(c.Param("date"))
	if err != nil {
		response.Error(c, availability.ErrInvalidDate)
		return
	}

	if err := h.service.RemoveOverride(c.Request.Context(), id, date); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Effective reports the working window in force on ?date=YYYY-MM-DD.
func (h *Handler) Effective(c *gin.Context) {
	id, ok := practitionerID(c)
	if !ok {
		return
	}
	date, err := civil.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, availability.ErrInvalidDate)
		return
	}

	resp := EffectiveWindowResponse{
		Date:      date.String(),
		DayOfWeek: scheduling.WeekdayCode(date.In(time.UTC).Weekday()),
	}
	if w, ok := h.service.EffectiveWindow(c.Request.Context(), id, date); ok {
		resp.Available = true
		resp.StartTime = scheduling.FormatClock(w.Start)
		resp.EndTime = scheduling.FormatClock(w.End)
	}
	c.JSON(http.StatusOK, resp)
}
