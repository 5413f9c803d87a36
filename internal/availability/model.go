package availability

import (
	"net/http"

	"github.com/nekogravitycat/clinic-scheduler/internal/pkg/apperror"
	"github.com/nekogravitycat/clinic-scheduler/internal/scheduling"
)

var (
	ErrInvalidWindow        = apperror.Wrap(scheduling.ErrInvalidWindow, http.StatusBadRequest, "start time must be before end time")
	ErrInvalidDay           = apperror.New(http.StatusBadRequest, "invalid day of week, use MON..SUN")
	ErrInvalidDate          = apperror.New(http.StatusBadRequest, "invalid date, use YYYY-MM-DD")
	ErrPractitionerNotFound = apperror.New(http.StatusNotFound, "practitioner not found")
	ErrPermissionDenied     = apperror.New(http.StatusForbidden, "permission denied")
)

// Availability is a practitioner's full working-hours configuration.
type Availability struct {
	PractitionerID string
	Rules          []scheduling.Rule
	Overrides      []scheduling.Override
}
