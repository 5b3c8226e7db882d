package followup

import (
	"github.com/shopspring/decimal"

	"github.com/rankitpro/review-followup/internal/model"
)

type StageTemplate struct {
	Subject string
	Body    string
	Sms     string
}

var DefaultTemplates = map[model.Stage]StageTemplate{
	model.StageInitial: {
		Subject: "How was your {{serviceType}} with {{companyName}}?",
		Body: "Hi {{customerName}},\n\nThank you for choosing {{companyName}}. {{technicianName}} recently " +
			"completed your {{serviceType}} in {{location}}, and we'd love to hear how it went.\n\n" +
			"Leave a quick review here: {{reviewLink}}\n\nThank you!",
		Sms: "Hi {{customerName}}, thanks for choosing {{companyName}}! How did {{technicianName}} do? " +
			"Leave a review: {{reviewLink}}",
	},
	model.StageFirstFollowUp: {
		Subject: "A quick reminder from {{companyName}}",
		Body: "Hi {{customerName}},\n\nWe hope you're happy with your recent {{serviceType}}. If you have a " +
			"minute, your review helps other customers find us: {{reviewLink}}\n\nThanks again!",
		Sms: "Hi {{customerName}}, a quick reminder to share your {{companyName}} experience: {{reviewLink}}",
	},
	model.StageSecondFollowUp: {
		Subject: "Your feedback matters to {{companyName}}",
		Body: "Hi {{customerName}},\n\nWe're still hoping to hear about your {{serviceType}} with " +
			"{{technicianName}}. It only takes a moment: {{reviewLink}}",
		Sms: "{{companyName}}: we'd still love your feedback, {{customerName}}. {{reviewLink}}",
	},
	model.StageFinalFollowUp: {
		Subject: "Last chance to review {{companyName}}",
		Body: "Hi {{customerName}},\n\nThis is our last reminder. If you have a moment, please tell us " +
			"about your {{serviceType}}: {{reviewLink}}\n\nWe appreciate your business.",
		Sms: "Last reminder from {{companyName}}: share your review at {{reviewLink}}",
	},
}

func defaultStage(stage model.Stage, enabled bool, delayDays int) model.StageSettings {
	t := DefaultTemplates[stage]
	return model.StageSettings{
		Enabled:         enabled,
		DelayDays:       delayDays,
		SubjectTemplate: t.Subject,
		MessageTemplate: t.Body,
		SmsTemplate:     t.Sms,
	}
}

// DefaultSettings is the configuration a company gets before saving its own.
func DefaultSettings(companyID string) *model.FollowUpSettings {
	return &model.FollowUpSettings{
		CompanyID:         companyID,
		Timezone:          "UTC",
		InitialDelayDays:  1,
		Initial:           defaultStage(model.StageInitial, true, 0),
		FirstFollowUp:     defaultStage(model.StageFirstFollowUp, true, 3),
		SecondFollowUp:    defaultStage(model.StageSecondFollowUp, true, 7),
		FinalFollowUp:     defaultStage(model.StageFinalFollowUp, false, 14),
		EmailEnabled:      true,
		SmsEnabled:        false,
		PreferredSendTime: "10:00",
		SendOnWeekends:    false,

		TargetServiceTypes:         []string{},
		TargetMinimumInvoiceAmount: decimal.Zero,

		SmartTiming: model.SmartTiming{
			PreferWeekdays:      true,
			PreferredDaysOfWeek: []int{1, 2, 3, 4, 5},
			AvoidHolidays:       true,
			AvoidLateNight:      true,
		},
		Active: true,
	}
}
