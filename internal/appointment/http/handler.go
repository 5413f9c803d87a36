package http

import (
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nekogravitycat/clinic-scheduler/internal/appointment"
	"github.com/nekogravitycat/clinic-scheduler/internal/auth"
	"github.com/nekogravitycat/clinic-scheduler/internal/pkg/request"
	"github.com/nekogravitycat/clinic-scheduler/internal/pkg/response"
	"github.com/nekogravitycat/clinic-scheduler/internal/scheduling"
)

type Handler struct {
	service appointment.Service
}

func NewHandler(service appointment.Service) *Handler {
	return &Handler{service: service}
}

// load fetches the appointment in :id and checks the caller may act on it.
func (h *Handler) load(c *gin.Context) (*appointment.Appointment, bool) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return nil, false
	}

	a, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	if !auth.CanManagePractitioner(c, a.PractitionerID) {
		response.Error(c, appointment.ErrPermissionDenied)
		return nil, false
	}
	return a, true
}

func (h *Handler) List(c *gin.Context) {
	var req ListAppointmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	req.Normalize()

	filter := appointment.Filter{
		PractitionerID: req.PractitionerID,
		PatientID:      req.PatientID,
		Status:         appointment.Status(req.Status),
		Upcoming:       req.Upcoming,
		Page:           req.Page,
		PageSize:       req.PageSize,
		SortBy:         req.SortBy,
		SortOrder:      req.SortOrder,
	}
	if req.Date != "" {
		d, err := civil.ParseDate(req.Date)
		if err != nil {
			response.Error(c, appointment.ErrInvalidDate)
			return
		}
		filter.Date = &d
	}

	// Practitioners only see their own schedule.
	if id, _ := auth.GetIdentity(c); id.Role == auth.RolePractitioner {
		filter.PractitionerID = id.PractitionerID
	}

	appointments, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]AppointmentResponse, len(appointments))
	for i, a := range appointments {
		items[i] = NewAppointmentResponse(a)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateAppointmentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	a, err := h.service.Book(c.Request.Context(), appointment.CreateRequest{
		PractitionerID: body.PractitionerID,
		PatientID:      body.PatientID,
		StartTime:      body.StartTime,
		Reason:         body.Reason,
		Notes:          body.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewAppointmentResponse(a))
}

func (h *Handler) Get(c *gin.Context) {
	a, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, NewAppointmentResponse(a))
}

// Reschedule moves an appointment, keeping its id.
func (h *Handler) Reschedule(c *gin.Context) {
	a, ok := h.load(c)
	if !ok {
		return
	}

	var body RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	a, err := h.service.Reschedule(c.Request.Context(), a.ID, appointment.RescheduleRequest{
		StartTime: body.StartTime,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAppointmentResponse(a))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	a, ok := h.load(c)
	if !ok {
		return
	}

	var body UpdateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	a, err := h.service.UpdateStatus(c.Request.Context(), a.ID, appointment.Status(body.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAppointmentResponse(a))
}

func (h *Handler) Cancel(c *gin.Context) {
	a, ok := h.load(c)
	if !ok {
		return
	}

	a, err := h.service.Cancel(c.Request.Context(), a.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAppointmentResponse(a))
}

// Slots lists the free slots of a practitioner on ?date=YYYY-MM-DD.
func (h *Handler) Slots(c *gin.Context) {
	practitionerID := c.Param("id")
	if _, err := uuid.Parse(practitionerID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}
	date, err := civil.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, appointment.ErrInvalidDate)
		return
	}
	exclude := c.Query("exclude_appointment_id")
	if exclude != "" {
		if _, err := uuid.Parse(exclude); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
			return
		}
	}
	includePast, _ := strconv.ParseBool(c.DefaultQuery("include_past", "false"))

	slots, err := h.service.FreeSlots(c.Request.Context(), practitionerID, date, exclude, includePast)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSlotsResponse(practitionerID, date.String(), scheduling.WeekdayCode(date.In(time.UTC).Weekday()), slots))
}
