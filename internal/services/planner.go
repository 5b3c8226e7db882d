package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rankitpro/review-followup/internal/followup"
	"github.com/rankitpro/review-followup/internal/model"
)

const (
	holidayLookahead = 30 * 24 * time.Hour
	engagementWindow = 90 * 24 * time.Hour
	engagementLimit  = 5000
)

type SettingsRepository interface {
	Get(ctx context.Context, companyID string) (*model.FollowUpSettings, error)
	Upsert(ctx context.Context, s *model.FollowUpSettings) (*model.FollowUpSettings, error)
}

type HolidayDates interface {
	Dates(ctx context.Context, companyID string, from, to time.Time) ([]string, error)
}

type EngagementSource interface {
	EngagementSamples(ctx context.Context, companyID string, since time.Time, limit int) ([]model.EngagementSample, error)
}

// Planner gathers what the decision core needs about a company: its
// settings (defaults when none are stored), its holidays and the timing
// tables, re-weighted by engagement when the company asks for it.
type Planner struct {
	settings   SettingsRepository
	holidays   HolidayDates
	engagement EngagementSource
	base       followup.FactorTables
	minSamples int
}

func NewPlanner(settings SettingsRepository, holidays HolidayDates, engagement EngagementSource, base followup.FactorTables, minSamples int) *Planner {
	return &Planner{
		settings:   settings,
		holidays:   holidays,
		engagement: engagement,
		base:       base,
		minSamples: minSamples,
	}
}

// CompanyPlan is the per-company input of one evaluation.
type CompanyPlan struct {
	Settings *model.FollowUpSettings
	Tables   followup.FactorTables
	Holidays followup.HolidaySet
}

// Plan is a decision together with the concrete send time of its stage.
type Plan struct {
	followup.Decision
	SendAt *time.Time `json:"sendAt,omitempty"`
}

func (p *Planner) Settings(ctx context.Context, companyID string) (*model.FollowUpSettings, error) {
	s, err := p.settings.Get(ctx, companyID)
	if errors.Is(err, model.ErrSettingsNotFound) {
		return followup.DefaultSettings(companyID), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load settings of %s", companyID)
	}
	return s, nil
}

func (p *Planner) ForCompany(ctx context.Context, companyID string, now time.Time) (*CompanyPlan, error) {
	settings, err := p.Settings(ctx, companyID)
	if err != nil {
		return nil, err
	}
	plan := &CompanyPlan{Settings: settings, Tables: p.base}

	if !settings.SmartTiming.Enabled {
		return plan, nil
	}

	if settings.SmartTiming.AvoidHolidays && p.holidays != nil {
		dates, err := p.holidays.Dates(ctx, companyID, now.Add(-24*time.Hour), now.Add(holidayLookahead))
		if err != nil {
			return nil, errors.Wrapf(err, "load holidays of %s", companyID)
		}
		plan.Holidays = followup.NewHolidaySet(dates...)
	}

	if settings.SmartTiming.OptimizeByOpenRates && p.engagement != nil {
		samples, err := p.engagement.EngagementSamples(ctx, companyID, now.Add(-engagementWindow), engagementLimit)
		if err != nil {
			return nil, errors.Wrapf(err, "load engagement of %s", companyID)
		}
		plan.Tables = followup.WeightByEngagement(p.base, samples, settings.Location(), p.minSamples)
	}
	return plan, nil
}

// Evaluate runs stage selection for status and schedules the chosen stage.
func (cp *CompanyPlan) Evaluate(status *model.ReviewRequestStatus, now time.Time) Plan {
	d := followup.SelectStage(status, cp.Settings, now)
	out := Plan{Decision: d}
	if d.Action == followup.ActionSend || d.Action == followup.ActionWait {
		at := followup.ScheduleSendAt(d.DueAt, cp.Settings, cp.Tables, cp.Holidays)
		out.SendAt = &at
	}
	return out
}

// Reachable reports whether status has a destination on an enabled channel.
func (cp *CompanyPlan) Reachable(status *model.ReviewRequestStatus) bool {
	for _, ch := range cp.Settings.Channels() {
		if status.Destination(ch) != "" {
			return true
		}
	}
	return false
}
