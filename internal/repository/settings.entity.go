package repository

import (
	"github.com/shopspring/decimal"

	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/pkg/pg"
)

type StageColumns struct {
	Enabled         bool   `gorm:"column:enabled;not null"`
	DelayDays       int    `gorm:"column:delay_days;not null"`
	SubjectTemplate string `gorm:"column:subject_template;type:text"`
	MessageTemplate string `gorm:"column:message_template;type:text"`
	SmsTemplate     string `gorm:"column:sms_template;type:text"`
}

type FollowUpSettingsEntity struct {
	pg.Model
	CompanyID   string `gorm:"column:company_id;not null;uniqueIndex"`
	CompanyName string `gorm:"column:company_name"`
	ReviewURL   string `gorm:"column:review_url"`
	Timezone    string `gorm:"column:timezone;not null;default:UTC"`

	InitialDelayDays int          `gorm:"column:initial_delay_days;not null"`
	Initial          StageColumns `gorm:"embedded;embeddedPrefix:initial_stage_"`
	FirstFollowUp    StageColumns `gorm:"embedded;embeddedPrefix:first_follow_up_"`
	SecondFollowUp   StageColumns `gorm:"embedded;embeddedPrefix:second_follow_up_"`
	FinalFollowUp    StageColumns `gorm:"embedded;embeddedPrefix:final_follow_up_"`

	EmailEnabled      bool   `gorm:"column:email_enabled;not null"`
	SmsEnabled        bool   `gorm:"column:sms_enabled;not null"`
	PreferredSendTime string `gorm:"column:preferred_send_time"`
	SendOnWeekends    bool   `gorm:"column:send_on_weekends;not null"`

	TargetPositiveExperiencesOnly bool            `gorm:"column:target_positive_experiences_only;not null"`
	TargetServiceTypes            []string        `gorm:"column:target_service_types;serializer:json;type:text"`
	TargetMinimumInvoiceAmount    decimal.Decimal `gorm:"column:target_minimum_invoice_amount;type:numeric(12,2);not null"`

	SmartTimingEnabled       bool  `gorm:"column:smart_timing_enabled;not null"`
	SmartPreferWeekdays      bool  `gorm:"column:smart_prefer_weekdays;not null"`
	SmartPreferredDaysOfWeek []int `gorm:"column:smart_preferred_days_of_week;serializer:json;type:text"`
	SmartAvoidHolidays       bool  `gorm:"column:smart_avoid_holidays;not null"`
	SmartAvoidLateNight      bool  `gorm:"column:smart_avoid_late_night;not null"`
	SmartOptimizeByOpenRates bool  `gorm:"column:smart_optimize_by_open_rates;not null"`

	Active bool `gorm:"column:active;not null"`
}

func (FollowUpSettingsEntity) TableName() string {
	return "followup_settings"
}

func toStageColumns(s model.StageSettings) StageColumns {
	return StageColumns{
		Enabled:         s.Enabled,
		DelayDays:       s.DelayDays,
		SubjectTemplate: s.SubjectTemplate,
		MessageTemplate: s.MessageTemplate,
		SmsTemplate:     s.SmsTemplate,
	}
}

func (c StageColumns) toModel() model.StageSettings {
	return model.StageSettings{
		Enabled:         c.Enabled,
		DelayDays:       c.DelayDays,
		SubjectTemplate: c.SubjectTemplate,
		MessageTemplate: c.MessageTemplate,
		SmsTemplate:     c.SmsTemplate,
	}
}

func toSettingsEntity(m *model.FollowUpSettings) *FollowUpSettingsEntity {
	if m == nil {
		return nil
	}
	return &FollowUpSettingsEntity{
		Model:                         pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		CompanyID:                     m.CompanyID,
		CompanyName:                   m.CompanyName,
		ReviewURL:                     m.ReviewURL,
		Timezone:                      m.Timezone,
		InitialDelayDays:              m.InitialDelayDays,
		Initial:                       toStageColumns(m.Initial),
		FirstFollowUp:                 toStageColumns(m.FirstFollowUp),
		SecondFollowUp:                toStageColumns(m.SecondFollowUp),
		FinalFollowUp:                 toStageColumns(m.FinalFollowUp),
		EmailEnabled:                  m.EmailEnabled,
		SmsEnabled:                    m.SmsEnabled,
		PreferredSendTime:             m.PreferredSendTime,
		SendOnWeekends:                m.SendOnWeekends,
		TargetPositiveExperiencesOnly: m.TargetPositiveExperiencesOnly,
		TargetServiceTypes:            m.TargetServiceTypes,
		TargetMinimumInvoiceAmount:    m.TargetMinimumInvoiceAmount,
		SmartTimingEnabled:            m.SmartTiming.Enabled,
		SmartPreferWeekdays:           m.SmartTiming.PreferWeekdays,
		SmartPreferredDaysOfWeek:      m.SmartTiming.PreferredDaysOfWeek,
		SmartAvoidHolidays:            m.SmartTiming.AvoidHolidays,
		SmartAvoidLateNight:           m.SmartTiming.AvoidLateNight,
		SmartOptimizeByOpenRates:      m.SmartTiming.OptimizeByOpenRates,
		Active:                        m.Active,
	}
}

func toSettingsModel(e *FollowUpSettingsEntity) *model.FollowUpSettings {
	if e == nil {
		return nil
	}
	return &model.FollowUpSettings{
		ID:                            e.ID,
		CompanyID:                     e.CompanyID,
		CompanyName:                   e.CompanyName,
		ReviewURL:                     e.ReviewURL,
		Timezone:                      e.Timezone,
		InitialDelayDays:              e.InitialDelayDays,
		Initial:                       e.Initial.toModel(),
		FirstFollowUp:                 e.FirstFollowUp.toModel(),
		SecondFollowUp:                e.SecondFollowUp.toModel(),
		FinalFollowUp:                 e.FinalFollowUp.toModel(),
		EmailEnabled:                  e.EmailEnabled,
		SmsEnabled:                    e.SmsEnabled,
		PreferredSendTime:             e.PreferredSendTime,
		SendOnWeekends:                e.SendOnWeekends,
		TargetPositiveExperiencesOnly: e.TargetPositiveExperiencesOnly,
		TargetServiceTypes:            e.TargetServiceTypes,
		TargetMinimumInvoiceAmount:    e.TargetMinimumInvoiceAmount,
		SmartTiming: model.SmartTiming{
			Enabled:             e.SmartTimingEnabled,
			PreferWeekdays:      e.SmartPreferWeekdays,
			PreferredDaysOfWeek: e.SmartPreferredDaysOfWeek,
			AvoidHolidays:       e.SmartAvoidHolidays,
			AvoidLateNight:      e.SmartAvoidLateNight,
			OptimizeByOpenRates: e.SmartOptimizeByOpenRates,
		},
		Active:    e.Active,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}
