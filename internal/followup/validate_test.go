package followup

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankitpro/review-followup/internal/model"
)

func issueFields(t *testing.T, err error) []string {
	t.Helper()
	var cerr *model.ConfigurationError
	require.True(t, errors.As(err, &cerr), "expected ConfigurationError, got %v", err)
	fields := make([]string, 0, len(cerr.Issues))
	for _, is := range cerr.Issues {
		fields = append(fields, is.Field)
	}
	return fields
}

func TestValidateSettings_DefaultsAreValid(t *testing.T) {
	s := DefaultSettings("c1")
	assert.NoError(t, ValidateSettings(s))

	s.SmsEnabled = true
	assert.NoError(t, ValidateSettings(s))
}

func TestValidateSettings_CollectsAllIssues(t *testing.T) {
	s := DefaultSettings("")
	s.InitialDelayDays = -1
	s.FirstFollowUp.DelayDays = 0
	s.PreferredSendTime = "25:00"
	s.Timezone = "Mars/Olympus"
	s.SmartTiming.PreferredDaysOfWeek = []int{1, 7}
	s.TargetMinimumInvoiceAmount = decimal.NewFromInt(-5)

	fields := issueFields(t, ValidateSettings(s))
	assert.ElementsMatch(t, []string{
		"companyId",
		"initialDelayDays",
		"firstFollowUp.delayDays",
		"preferredSendTime",
		"timezone",
		"smartTiming.preferredDaysOfWeek",
		"targetMinimumInvoiceAmount",
	}, fields)
}

func TestValidateSettings_NoChannel(t *testing.T) {
	s := DefaultSettings("c1")
	s.EmailEnabled, s.SmsEnabled = false, false
	assert.Equal(t, []string{"channels"}, issueFields(t, ValidateSettings(s)))
}

func TestValidateSettings_Templates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.FollowUpSettings)
		field  string
	}{
		{"missing initial subject", func(s *model.FollowUpSettings) { s.Initial.SubjectTemplate = "  " }, "initial.subjectTemplate"},
		{"unterminated placeholder", func(s *model.FollowUpSettings) { s.FirstFollowUp.MessageTemplate = "Hi {{customerName" }, "firstFollowUp.messageTemplate"},
		{"stray closing braces", func(s *model.FollowUpSettings) { s.FirstFollowUp.MessageTemplate = "Hi }} there" }, "firstFollowUp.messageTemplate"},
		{"empty placeholder", func(s *model.FollowUpSettings) { s.SecondFollowUp.SubjectTemplate = "Hi {{ }}" }, "secondFollowUp.subjectTemplate"},
		{"unknown placeholder", func(s *model.FollowUpSettings) { s.Initial.MessageTemplate = "Hi {{firstName}}" }, "initial.messageTemplate"},
		{"sms template checked when sms enabled", func(s *model.FollowUpSettings) {
			s.SmsEnabled = true
			s.Initial.SmsTemplate = "{{reviewLink"
		}, "initial.smsTemplate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings("c1")
			tt.mutate(s)
			assert.Equal(t, []string{tt.field}, issueFields(t, ValidateSettings(s)))
		})
	}
}

func TestValidateSettings_DisabledStageTemplatesIgnored(t *testing.T) {
	s := DefaultSettings("c1")
	s.FinalFollowUp.Enabled = false
	s.FinalFollowUp.MessageTemplate = ""
	s.FinalFollowUp.SubjectTemplate = "{{broken"
	assert.NoError(t, ValidateSettings(s))
}

func TestValidateSettings_EmptyPreferredTimeAllowed(t *testing.T) {
	s := DefaultSettings("c1")
	s.PreferredSendTime = ""
	assert.NoError(t, ValidateSettings(s))
}
