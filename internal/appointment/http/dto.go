package http

import (
	"time"

	"github.com/nekogravitycat/clinic-scheduler/internal/appointment"
	"github.com/nekogravitycat/clinic-scheduler/internal/pkg/request"
	"github.com/nekogravitycat/clinic-scheduler/internal/scheduling"
)

// ListAppointmentsRequest defines query parameters for listing appointments.
type ListAppointmentsRequest struct {
	request.ListParams
	PractitionerID string `form:"practitioner_id" binding:"omitempty,uuid"`
	PatientID      string `form:"patient_id" binding:"omitempty,uuid"`
	Status         string `form:"status" binding:"omitempty,oneof=SCHEDULED COMPLETED CANCELLED"`
	Date           string `form:"date"`
	Upcoming       bool   `form:"upcoming"`
	SortBy         string `form:"sort_by" binding:"omitempty,oneof=start_time end_time created_at status"`
}

// CreateAppointmentRequest carries no end time: it follows from the clinic's
// appointment duration.
type CreateAppointmentRequest struct {
	PractitionerID string    `json:"practitioner_id" binding:"required,uuid"`
	PatientID      string    `json:"patient_id" binding:"required,uuid"`
	StartTime      time.Time `json:"start_time" binding:"required"`
	Reason         string    `json:"reason" binding:"max=500"`
	Notes          string    `json:"notes" binding:"max=2000"`
}

type RescheduleAppointmentRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type AppointmentResponse struct {
	ID             string    `json:"id"`
	PractitionerID string    `json:"practitioner_id"`
	PatientID      string    `json:"patient_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Status         string    `json:"status"`
	Reason         string    `json:"reason,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		PractitionerID: a.PractitionerID,
		PatientID:      a.PatientID,
		StartTime:      a.StartTime,
		EndTime:        a.EndTime,
		Status:         string(a.Status),
		Reason:         a.Reason,
		Notes:          a.Notes,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

type SlotResponse struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// SlotsResponse lists free slots both as clock labels and as instants.
type SlotsResponse struct {
	PractitionerID string         `json:"practitioner_id"`
	Date           string         `json:"date"`
	DayOfWeek      string         `json:"day_of_week"`
	AvailableSlots []string       `json:"available_slots"`
	Slots          []SlotResponse `json:"slots"`
}

func NewSlotsResponse(practitionerID, date, dayOfWeek string, slots []appointment.Slot) SlotsResponse {
	resp := SlotsResponse{
		PractitionerID: practitionerID,
		Date:           date,
		DayOfWeek:      dayOfWeek,
		AvailableSlots: make([]string, 0, len(slots)),
		Slots:          make([]SlotResponse, 0, len(slots)),
	}
	for _, s := range slots {
		resp.AvailableSlots = append(resp.AvailableSlots, scheduling.FormatClock(s.Window.Start))
		resp.Slots = append(resp.Slots, SlotResponse{StartTime: s.StartTime, EndTime: s.EndTime})
	}
	return resp
}
