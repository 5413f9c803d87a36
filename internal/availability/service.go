package availability

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
	SetRule(practitionerID string, day time.Weekday, w scheduling.TimeWindow) error
	SetOverride(practitionerID string, date civil.Date, w scheduling.TimeWindow) error
	EffectiveWindow(practitionerID string, date civil.Date) (scheduling.TimeWindow, bool)
	Rules(practitionerID string) []scheduling.Rule
	Overrides(practitionerID string) []scheduling.Override
	UpdateAvailability(practitionerID string, fn func(store scheduling.AvailabilityWriter) error) error
}

type Service interface {
	SetRule(ctx context.Context, practitionerID string, day time.Weekday, w scheduling.TimeWindow) (scheduling.Rule, error)
	RemoveRule(ctx context.Context, practitionerID string, day time.Weekday) error
	SetOverride(ctx context.Context, practitionerID string, date civil.Date, w scheduling.TimeWindow) (scheduling.Override, error)
	RemoveOverride(ctx context.Context, practitionerID string, date civil.Date) error
	Get(ctx context.Context, practitionerID string) (*Availability, error)
	EffectiveWindow(ctx context.Context, practitionerID string, date civil.Date) (scheduling.TimeWindow, bool)

	// Warm loads every stored rule and override into the engine.
	Warm(ctx context.Context) error
}

type service struct {
	repo   Repository
	engine Engine
	logger zerolog.Logger
}

func NewService(repo Repository, engine Engine, logger zerolog.Logger) Service {
	return &service{
		repo:   repo,
		engine: engine,
		logger: logger.With().Str("module", "availability").Logger(),
	}
}

// Rows are written first and the engine follows, both under the
// practitioner's engine lock. A failed write leaves the engine untouched, and
// concurrent changes for one practitioner land in the same order in both.

func (s *service) SetRule(ctx context.Context, practitionerID string, day time.Weekday, w scheduling.TimeWindow) (scheduling.Rule, error) {
	if !w.Valid() {
		return scheduling.Rule{}, ErrInvalidWindow
	}
	rule := scheduling.Rule{PractitionerID: practitionerID, DayOfWeek: day, Window: w}
	err := s.engine.UpdateAvailability(practitionerID, func(store scheduling.AvailabilityWriter) error {
		if err := s.repo.UpsertRule(ctx, rule); err != nil {
			return err
		}
		return store.SetRule(practitionerID, day, w)
	})
	if err != nil {
		return scheduling.Rule{}, translate(err)
	}

	s.logger.Info().
		Str("practitioner_id", practitionerID).
		Str("day", scheduling.WeekdayCode(day)).
		Stringer("window", w).
		Msg("rule set")
	return rule, nil
}

func (s *service) RemoveRule(ctx context.Context, practitionerID string, day time.Weekday) error {
	return s.engine.UpdateAvailability(practitionerID, func(store scheduling.AvailabilityWriter) error {
		if err := s.repo.DeleteRule(ctx, practitionerID, day); err != nil {
			return err
		}
		store.RemoveRule(practitionerID, day)
		return nil
	})
}

func (s *service) SetOverride(ctx context.Context, practitionerID string, date civil.Date, w scheduling.TimeWindow) (scheduling.Override, error) {
	if !date.IsValid() {
		return scheduling.Override{}, ErrInvalidDate
	}
	if !w.Valid() {
		return scheduling.Override{}, ErrInvalidWindow
	}
	o := scheduling.Override{PractitionerID: practitionerID, Date: date, Window: w}
	err := s.engine.UpdateAvailability(practitionerID, func(store scheduling.AvailabilityWriter) error {
		if err := s.repo.UpsertOverride(ctx, o); err != nil {
			return err
		}
		return store.SetOverride(practitionerID, date, w)
	})
	if err != nil {
		return scheduling.Override{}, translate(err)
	}

	s.logger.Info().
		Str("practitioner_id", practitionerID).
		Stringer("date", date).
		Stringer("window", w).
		Msg("override set")
	return o, nil
}

func (s *service) RemoveOverride(ctx context.Context, practitionerID string, date civil.Date) error {
	return s.engine.UpdateAvailability(practitionerID, func(store scheduling.AvailabilityWriter) error {
		if err := s.repo.DeleteOverride(ctx, practitionerID, date); err != nil {
			return err
		}
		store.RemoveOverride(practitionerID, date)
		return nil
	})
}

func (s *service) Get(_ context.Context, practitionerID string) (*Availability, error) {
	return &Availability{
		PractitionerID: practitionerID,
		Rules:          s.engine.Rules(practitionerID),
		Overrides:      s.engine.Overrides(practitionerID),
	}, nil
}

func (s *service) EffectiveWindow(_ context.Context, practitionerID string, date civil.Date) (scheduling.TimeWindow, bool) {
	return s.engine.EffectiveWindow(practitionerID, date)
}

func (s *service) Warm(ctx context.Context) error {
	rules, err := s.repo.AllRules(ctx)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	for _, r := range rules {
		if err := s.engine.SetRule(r.PractitionerID, r.DayOfWeek, r.Window); err != nil {
			return fmt.Errorf("load rule %s/%s: %w", r.PractitionerID, scheduling.WeekdayCode(r.DayOfWeek), err)
		}
	}

	overrides, err := s.repo.AllOverrides(ctx)
	if err != nil {
		return fmt.Errorf("load overrides: %w", err)
	}
	for _, o := range overrides {
		if err := s.engine.SetOverride(o.PractitionerID, o.Date, o.Window); err != nil {
			return fmt.Errorf("load override %s/%s: %w", o.PractitionerID, o.Date, err)
		}
	}

	s.logger.Info().Int("rules", len(rules)).Int("overrides", len(overrides)).Msg("availability loaded")
	return nil
}

func translate(err error) error {
	if errors.Is(err, scheduling.ErrInvalidWindow) {
		return ErrInvalidWindow
	}
	return err
}
