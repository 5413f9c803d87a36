package appointment

import (
	"net/http"
	"time"

	"cloud.google.com/go/civil"

	"github.com/nekogravitycat/clinic-scheduler/internal/pkg/apperror"
	"github.com/nekogravitycat/clinic-scheduler/internal/scheduling"
)

var (
	ErrNotFound             = apperror.New(http.StatusNotFound, "appointment not found")
	ErrSlotConflict         = apperror.Wrap(scheduling.ErrSlotConflict, http.StatusConflict, "time slot already booked")
	ErrOutsideAvailability  = apperror.Wrap(scheduling.ErrOutsideAvailability, http.StatusUnprocessableEntity, "requested time is outside the practitioner's working hours")
	ErrInvalidWindow        = apperror.Wrap(scheduling.ErrInvalidWindow, http.StatusBadRequest, "appointment duration must be positive")
	ErrStartTimePast        = apperror.New(http.StatusBadRequest, "cannot book an appointment in the past")
	ErrInvalidStatus        = apperror.New(http.StatusBadRequest, "invalid appointment status")
	ErrInvalidTransition    = apperror.New(http.StatusConflict, "status change not allowed")
	ErrNotScheduled         = apperror.New(http.StatusConflict, "only scheduled appointments can be rescheduled")
	ErrInvalidDate          = apperror.New(http.StatusBadRequest, "invalid date, use YYYY-MM-DD")
	ErrInvalidInput         = apperror.New(http.StatusBadRequest, "invalid input parameters")
	ErrPatientNotFound      = apperror.New(http.StatusNotFound, "patient not found")
	ErrPractitionerNotFound = apperror.New(http.StatusNotFound, "practitioner not found")
	ErrPermissionDenied     = apperror.New(http.StatusForbidden, "permission denied")
)

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Appointment struct {
	ID             string
	PractitionerID string
	PatientID      string
	StartTime      time.Time
	EndTime        time.Time
	Status         Status
	Reason         string
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Filter struct {
	PractitionerID string
	PatientID      string
	Status         Status
	Date           *civil.Date // Appointments intersecting this clinic date
	Upcoming       bool        // Appointments ending after now
	From           *time.Time  // Appointments ending after this time
	To             *time.Time  // Appointments starting before this time
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
