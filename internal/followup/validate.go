package followup

import (
	"fmt"
	"strings"
	"time"

	"github.com/rankitpro/review-followup/internal/model"
)

// ValidateSettings returns a *model.ConfigurationError listing every problem
// that blocks activating s, or nil.
func ValidateSettings(s *model.FollowUpSettings) error {
	cerr := &model.ConfigurationError{}

	if strings.TrimSpace(s.CompanyID) == "" {
		cerr.Add("companyId", "is required")
	}
	if s.InitialDelayDays < 0 {
		cerr.Add("initialDelayDays", "must be >= 0, got %d", s.InitialDelayDays)
	}
	for _, stage := range model.Stages[1:] {
		cfg := s.StageConfig(stage)
		if cfg.DelayDays < 1 {
			cerr.Add(stageField(stage, "delayDays"), "must be >= 1, got %d", cfg.DelayDays)
		}
	}
	if s.PreferredSendTime != "" {
		if _, _, ok := ParseClock(s.PreferredSendTime); !ok {
			cerr.Add("preferredSendTime", "must be HH:MM (24-hour), got %q", s.PreferredSendTime)
		}
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			cerr.Add("timezone", "unknown timezone %q", s.Timezone)
		}
	}
	for _, d := range s.SmartTiming.PreferredDaysOfWeek {
		if d < 0 || d > 6 {
			cerr.Add("smartTiming.preferredDaysOfWeek", "day %d is outside 0-6", d)
		}
	}
	if s.TargetMinimumInvoiceAmount.IsNegative() {
		cerr.Add("targetMinimumInvoiceAmount", "must be >= 0")
	}
	if !s.EmailEnabled && !s.SmsEnabled {
		cerr.Add("channels", "at least one of emailEnabled or smsEnabled is required")
	}

	for _, stage := range model.Stages {
		cfg := s.StageConfig(stage)
		if !cfg.Enabled {
			continue
		}
		if s.EmailEnabled {
			checkTemplate(cerr, stageField(stage, "subjectTemplate"), cfg.SubjectTemplate)
			checkTemplate(cerr, stageField(stage, "messageTemplate"), cfg.MessageTemplate)
		}
		if s.SmsEnabled {
			checkTemplate(cerr, stageField(stage, "smsTemplate"), smsTemplate(cfg))
		}
	}
	return cerr.Err()
}

func checkTemplate(cerr *model.ConfigurationError, field, template string) {
	if strings.TrimSpace(template) == "" {
		cerr.Add(field, "is required for an enabled stage")
		return
	}
	names, problem := placeholders(template)
	if problem != "" {
		cerr.Add(field, "malformed template: %s", problem)
		return
	}
	for _, n := range names {
		if _, ok := knownPlaceholders[n]; !ok {
			cerr.Add(field, "unknown placeholder {{%s}}", n)
		}
	}
}

func stageField(stage model.Stage, field string) string {
	return fmt.Sprintf("%s.%s", stageJSONName(stage), field)
}

func stageJSONName(stage model.Stage) string {
	switch stage {
	case model.StageFirstFollowUp:
		return "firstFollowUp"
	case model.StageSecondFollowUp:
		return "secondFollowUp"
	case model.StageFinalFollowUp:
		return "finalFollowUp"
	}
	return "initial"
}
