package model

import (
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StageSettings configures one stage. DelayDays counts from the previous
// sent stage. The initial stage ignores Enabled and DelayDays; see
// FollowUpSettings.StageConfig.
type StageSettings struct {
	Enabled         bool   `json:"enabled"`
	DelayDays       int    `json:"delayDays"`
	SubjectTemplate string `json:"subjectTemplate"`
	MessageTemplate string `json:"messageTemplate"`
	SmsTemplate     string `json:"smsTemplate"`
}

type SmartTiming struct {
	Enabled             bool  `json:"enabled"`
	PreferWeekdays      bool  `json:"preferWeekdays"`
	PreferredDaysOfWeek []int `json:"preferredDaysOfWeek"`
	AvoidHolidays       bool  `json:"avoidHolidays"`
	AvoidLateNight      bool  `json:"avoidLateNight"`
	OptimizeByOpenRates bool  `json:"optimizeByOpenRates"`
}

// FollowUpSettings is the single active follow-up configuration of a company.
type FollowUpSettings struct {
	ID          uuid.UUID `json:"id"`
	CompanyID   string    `json:"companyId"`
	CompanyName string    `json:"companyName"`
	ReviewURL   string    `json:"reviewUrl"`
	Timezone    string    `json:"timezone"`

	InitialDelayDays int           `json:"initialDelayDays"`
	Initial          StageSettings `json:"initial"`
	FirstFollowUp    StageSettings `json:"firstFollowUp"`
	SecondFollowUp   StageSettings `json:"secondFollowUp"`
	FinalFollowUp    StageSettings `json:"finalFollowUp"`

	EmailEnabled      bool   `json:"emailEnabled"`
	SmsEnabled        bool   `json:"smsEnabled"`
	PreferredSendTime string `json:"preferredSendTime"`
	SendOnWeekends    bool   `json:"sendOnWeekends"`

	TargetPositiveExperiencesOnly bool            `json:"targetPositiveExperiencesOnly"`
	TargetServiceTypes            []string        `json:"targetServiceTypes"`
	TargetMinimumInvoiceAmount    decimal.Decimal `json:"targetMinimumInvoiceAmount"`

	SmartTiming SmartTiming `json:"smartTiming"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StageConfig returns the effective configuration of stage. The initial stage
// is never optional and waits InitialDelayDays.
func (s *FollowUpSettings) StageConfig(stage Stage) StageSettings {
	switch stage {
	case StageInitial:
		cfg := s.Initial
		cfg.Enabled = true
		cfg.DelayDays = s.InitialDelayDays
		return cfg
	case StageFirstFollowUp:
		return s.FirstFollowUp
	case StageSecondFollowUp:
		return s.SecondFollowUp
	case StageFinalFollowUp:
		return s.FinalFollowUp
	}
	return StageSettings{}
}

// Location resolves Timezone, falling back to UTC.
func (s *FollowUpSettings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Channels lists the enabled delivery channels, email first.
func (s *FollowUpSettings) Channels() []Channel {
	var out []Channel
	if s.EmailEnabled {
		out = append(out, ChannelEmail)
	}
	if s.SmsEnabled {
		out = append(out, ChannelSMS)
	}
	return out
}
