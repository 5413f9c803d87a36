package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/clinic-scheduler/internal/scheduling"
)

// Engine is the part of the scheduling engine this module drives.
type Engine interface {
	Book(req scheduling.BookRequest) (scheduling.Booking, error)
	Release(appointmentID string)
	Revert(b scheduling.Booking) error
	Track(appointmentID, practitionerID string, iv scheduling.Interval) error
	FreeSlots(practitionerID string, date civil.Date, excludeAppointmentID string) ([]scheduling.TimeWindow, error)
	SlotInterval(date civil.Date, slot scheduling.TimeWindow) scheduling.Interval
}

type CreateRequest struct {
	PractitionerID string
	PatientID      string
	StartTime      time.Time
	Reason         string
	Notes          string
}

// RescheduleRequest moves an appointment. Its length is kept.
type RescheduleRequest struct {
	StartTime time.Time
}

// Slot is a bookable slot projected onto the clinic calendar.
type Slot struct {
	Window    scheduling.TimeWindow
	StartTime time.Time
	EndTime   time.Time
}

type Service interface {
	Book(ctx context.Context, req CreateRequest) (*Appointment, error)
	Reschedule(ctx context.Context, id string, req RescheduleRequest) (*Appointment, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Appointment, error)
	Cancel(ctx context.Context, id string) (*Appointment, error)
	GetByID(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context, filter Filter) ([]*Appointment, int, error)

	// FreeSlots lists the bookable slots of a practitioner on date. Slots
	// starting before now are dropped unless includePast is set.
	FreeSlots(ctx context.Context, practitionerID string, date civil.Date, excludeAppointmentID string, includePast bool) ([]Slot, error)

	// Warm loads every scheduled appointment into the engine.
	Warm(ctx context.Context) error
}

type service struct {
	repo   Repository
	engine Engine
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, engine Engine, logger zerolog.Logger) Service {
	return &service{
		repo:   repo,
		engine: engine,
		logger: logger.With().Str("module", "appointment").Logger(),
		now:    time.Now,
	}
}

func (s *service) Book(ctx context.Context, req CreateRequest) (*Appointment, error) {
	// Strict check: StartTime cannot be in the past
	if req.StartTime.Before(s.now()) {
		return nil, ErrStartTimePast
	}

	b, err := s.engine.Book(scheduling.BookRequest{
		PractitionerID: req.PractitionerID,
		PatientID:      req.PatientID,
		Start:          req.StartTime,
	})
	if err != nil {
		return nil, translate(err)
	}

	a := &Appointment{
		ID:             b.AppointmentID,
		PractitionerID: b.PractitionerID,
		PatientID:      b.PatientID,
		StartTime:      b.Interval.Start,
		EndTime:        b.Interval.End,
		Status:         StatusScheduled,
		Reason:         req.Reason,
		Notes:          req.Notes,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		s.revert(b)
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", a.ID).
		Str("practitioner_id", a.PractitionerID).
		Time("start", a.StartTime).
		Msg("appointment booked")
	return a, nil
}

func (s *service) Reschedule(ctx context.Context, id string, req RescheduleRequest) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusScheduled {
		return nil, ErrNotScheduled
	}
	if req.StartTime.Before(s.now()) {
		return nil, ErrStartTimePast
	}

	b, err := s.engine.Book(scheduling.BookRequest{
		PractitionerID:        a.PractitionerID,
		PatientID:             a.PatientID,
		Start:                 req.StartTime,
		Duration:              a.EndTime.Sub(a.StartTime),
		ExistingAppointmentID: a.ID,
	})
	if err != nil {
		return nil, translate(err)
	}

	prevStart := a.StartTime
	a.StartTime = b.Interval.Start
	a.EndTime = b.Interval.End
	if err := s.repo.UpdateTime(ctx, a); err != nil {
		if errors.Is(err, ErrNotScheduled) {
			// Completed or cancelled meanwhile; it holds no slot any more.
			s.engine.Release(a.ID)
			return nil, err
		}
		s.revert(b)
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", a.ID).
		Time("from", prevStart).
		Time("to", a.StartTime).
		Msg("appointment rescheduled")
	return a, nil
}

// UpdateStatus only allows SCHEDULED -> COMPLETED and SCHEDULED -> CANCELLED.
// The slot is freed once the new status is stored.
func (s *service) UpdateStatus(ctx context.Context, id string, status Status) (*Appointment, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusScheduled || status == StatusScheduled {
		return nil, ErrInvalidTransition
	}

	a.Status = status
	if err := s.repo.UpdateStatus(ctx, a, StatusScheduled); err != nil {
		return nil, err
	}
	s.engine.Release(a.ID)

	s.logger.Info().
		Str("appointment_id", a.ID).
		Str("status", string(status)).
		Msg("appointment status changed")
	return a, nil
}

func (s *service) Cancel(ctx context.Context, id string) (*Appointment, error) {
	return s.UpdateStatus(ctx, id, StatusCancelled)
}

func (s *service) GetByID(ctx context.Context, id string) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Appointment, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	if filter.Date != nil {
		if !filter.Date.IsValid() {
			return nil, 0, ErrInvalidDate
		}
		day := s.engine.SlotInterval(*filter.Date, scheduling.TimeWindow{End: scheduling.Day})
		filter.From, filter.To = &day.Start, &day.End
	}
	if filter.Upcoming {
		now := s.now()
		if filter.From == nil || filter.From.Before(now) {
			filter.From = &now
		}
	}
	return s.repo.List(ctx, filter)
}

func (s *service) FreeSlots(_ context.Context, practitionerID string, date civil.Date, excludeAppointmentID string, includePast bool) ([]Slot, error) {
	if !date.IsValid() {
		return nil, ErrInvalidDate
	}
	windows, err := s.engine.FreeSlots(practitionerID, date, excludeAppointmentID)
	if err != nil {
		return nil, translate(err)
	}

	now := s.now()
	slots := make([]Slot, 0, len(windows))
	for _, w := range windows {
		iv := s.engine.SlotInterval(date, w)
		if !includePast && iv.Start.Before(now) {
			continue
		}
		slots = append(slots, Slot{Window: w, StartTime: iv.Start, EndTime: iv.End})
	}
	return slots, nil
}

func (s *service) Warm(ctx context.Context) error {
	appointments, err := s.repo.ListScheduled(ctx)
	if err != nil {
		return fmt.Errorf("load scheduled appointments: %w", err)
	}
	for _, a := range appointments {
		iv := scheduling.Interval{Start: a.StartTime, End: a.EndTime}
		if err := s.engine.Track(a.ID, a.PractitionerID, iv); err != nil {
			return fmt.Errorf("load appointment %s: %w", a.ID, err)
		}
	}

	s.logger.Info().Int("appointments", len(appointments)).Msg("appointments loaded")
	return nil
}

// revert undoes an engine commit whose row could not be written.
func (s *service) revert(b scheduling.Booking) {
	if err := s.engine.Revert(b); err != nil {
		s.logger.Error().Err(err).
			Str("appointment_id", b.AppointmentID).
			Msg("could not restore previous slot")
	}
}

func translate(err error) error {
	switch {
	case errors.Is(err, scheduling.ErrSlotConflict):
		return ErrSlotConflict
	case errors.Is(err, scheduling.ErrOutsideAvailability):
		return ErrOutsideAvailability
	case errors.Is(err, scheduling.ErrInvalidWindow):
		return ErrInvalidWindow
	}
	return err
}
