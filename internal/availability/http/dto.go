package http

import (
	"github.com/nekogravitycat/clinic-scheduler/internal/availability"
	"github.com/nekogravitycat/clinic-scheduler/internal/scheduling"
)

// WindowBody is the request body for setting a rule or an override.
type WindowBody struct {
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
}

// Window parses the body into a validated time window.
func (b *WindowBody) Window() (scheduling.TimeWindow, error) {
	w, err := scheduling.ParseTimeWindow(b.StartTime, b.EndTime)
	if err != nil {
		return scheduling.TimeWindow{}, availability.ErrInvalidWindow
	}
	return w, nil
}

type RuleResponse struct {
	DayOfWeek string `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func NewRuleResponse(r scheduling.Rule) RuleResponse {
	return RuleResponse{
		DayOfWeek: scheduling.WeekdayCode(r.DayOfWeek),
		StartTime: scheduling.FormatClock(r.Window.Start),
		EndTime:   scheduling.FormatClock(r.Window.End),
	}
}

type OverrideResponse struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func NewOverrideResponse(o scheduling.Override) OverrideResponse {
	return OverrideResponse{
		Date:      o.Date.String(),
		StartTime: scheduling.FormatClock(o.Window.Start),
		EndTime:   scheduling.FormatClock(o.Window.End),
	}
}

type AvailabilityResponse struct {
	PractitionerID string             `json:"practitioner_id"`
	Rules          []RuleResponse     `json:"rules"`
	Overrides      []OverrideResponse `json:"overrides"`
}

func NewAvailabilityResponse(a *availability.Availability) AvailabilityResponse {
	resp := AvailabilityResponse{
		PractitionerID: a.PractitionerID,
		Rules:          make([]RuleResponse, 0, len(a.Rules)),
		Overrides:      make([]OverrideResponse, 0, len(a.Overrides)),
	}
	for _, r := range a.Rules {
		resp.Rules = append(resp.Rules, NewRuleResponse(r))
	}
	for _, o := range a.Overrides {
		resp.Overrides = append(resp.Overrides, NewOverrideResponse(o))
	}
	return resp
}

// EffectiveWindowResponse describes the hours a practitioner works on a date.
type EffectiveWindowResponse struct {
	Date      string `json:"date"`
	DayOfWeek string `json:"day_of_week"`
	Available bool   `json:"available"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
}
