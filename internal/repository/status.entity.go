package repository

import (
	"time"

	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/pkg/pg"
)

type ReviewRequestStatusEntity struct {
	pg.Model
	ReviewRequestID string  `gorm:"column:review_request_id;index"`
	CompanyID       string  `gorm:"column:company_id;not null;uniqueIndex:idx_status_company_checkin,priority:1"`
	CheckInID       *string `gorm:"column:check_in_id;uniqueIndex:idx_status_company_checkin,priority:2"`

	CustomerID    string  `gorm:"column:customer_id;not null;index"`
	CustomerName  string  `gorm:"column:customer_name"`
	CustomerEmail string  `gorm:"column:customer_email"`
	CustomerPhone *string `gorm:"column:customer_phone"`

	TechnicianID       string    `gorm:"column:technician_id"`
	TechnicianName     string    `gorm:"column:technician_name"`
	ServiceType        string    `gorm:"column:service_type"`
	Location           string    `gorm:"column:location"`
	ServiceCompletedAt time.Time `gorm:"column:service_completed_at"`

	InitialRequestSent   bool       `gorm:"column:initial_request_sent;not null;default:false"`
	InitialRequestSentAt *time.Time `gorm:"column:initial_request_sent_at"`
	FirstFollowUpSent    bool       `gorm:"column:first_follow_up_sent;not null;default:false"`
	FirstFollowUpSentAt  *time.Time `gorm:"column:first_follow_up_sent_at"`
	SecondFollowUpSent   bool       `gorm:"column:second_follow_up_sent;not null;default:false"`
	SecondFollowUpSentAt *time.Time `gorm:"column:second_follow_up_sent_at"`
	FinalFollowUpSent    bool       `gorm:"column:final_follow_up_sent;not null;default:false"`
	FinalFollowUpSentAt  *time.Time `gorm:"column:final_follow_up_sent_at"`

	LinkClicked       bool       `gorm:"column:link_clicked;not null;default:false"`
	LinkClickedAt     *time.Time `gorm:"column:link_clicked_at"`
	ReviewSubmitted   bool       `gorm:"column:review_submitted;not null;default:false"`
	ReviewSubmittedAt *time.Time `gorm:"column:review_submitted_at"`

	Status         string     `gorm:"column:status;not null;index"`
	UnsubscribedAt *time.Time `gorm:"column:unsubscribed_at"`
	CompletedAt    *time.Time `gorm:"column:completed_at"`
	Version        int64      `gorm:"column:version;not null;default:1"`
}

func (ReviewRequestStatusEntity) TableName() string {
	return "review_request_statuses"
}

// stageColumnNames returns the sent flag and timestamp columns of stage.
func stageColumnNames(stage model.Stage) (string, string) {
	switch stage {
	case model.StageInitial:
		return "initial_request_sent", "initial_request_sent_at"
	case model.StageFirstFollowUp:
		return "first_follow_up_sent", "first_follow_up_sent_at"
	case model.StageSecondFollowUp:
		return "second_follow_up_sent", "second_follow_up_sent_at"
	case model.StageFinalFollowUp:
		return "final_follow_up_sent", "final_follow_up_sent_at"
	}
	return "", ""
}

func toStatusEntity(m *model.ReviewRequestStatus) *ReviewRequestStatusEntity {
	if m == nil {
		return nil
	}
	return &ReviewRequestStatusEntity{
		Model:                pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ReviewRequestID:      m.ReviewRequestID,
		CompanyID:            m.CompanyID,
		CheckInID:            m.CheckInID,
		CustomerID:           m.CustomerID,
		CustomerName:         m.CustomerName,
		CustomerEmail:        m.CustomerEmail,
		CustomerPhone:        m.CustomerPhone,
		TechnicianID:         m.TechnicianID,
		TechnicianName:       m.TechnicianName,
		ServiceType:          m.ServiceType,
		Location:             m.Location,
		ServiceCompletedAt:   m.ServiceCompletedAt,
		InitialRequestSent:   m.InitialRequestSent,
		InitialRequestSentAt: m.InitialRequestSentAt,
		FirstFollowUpSent:    m.FirstFollowUpSent,
		FirstFollowUpSentAt:  m.FirstFollowUpSentAt,
		SecondFollowUpSent:   m.SecondFollowUpSent,
		SecondFollowUpSentAt: m.SecondFollowUpSentAt,
		FinalFollowUpSent:    m.FinalFollowUpSent,
		FinalFollowUpSentAt:  m.FinalFollowUpSentAt,
		LinkClicked:          m.LinkClicked,
		LinkClickedAt:        m.LinkClickedAt,
		ReviewSubmitted:      m.ReviewSubmitted,
		ReviewSubmittedAt:    m.ReviewSubmittedAt,
		Status:               string(m.Status),
		UnsubscribedAt:       m.UnsubscribedAt,
		CompletedAt:          m.CompletedAt,
		Version:              m.Version,
	}
}

func toStatusModel(e *ReviewRequestStatusEntity) *model.ReviewRequestStatus {
	if e == nil {
		return nil
	}
	return &model.ReviewRequestStatus{
		ID:                   e.ID,
		ReviewRequestID:      e.ReviewRequestID,
		CompanyID:            e.CompanyID,
		CheckInID:            e.CheckInID,
		CustomerID:           e.CustomerID,
		CustomerName:         e.CustomerName,
		CustomerEmail:        e.CustomerEmail,
		CustomerPhone:        e.CustomerPhone,
		TechnicianID:         e.TechnicianID,
		TechnicianName:       e.TechnicianName,
		ServiceType:          e.ServiceType,
		Location:             e.Location,
		ServiceCompletedAt:   e.ServiceCompletedAt,
		InitialRequestSent:   e.InitialRequestSent,
		InitialRequestSentAt: e.InitialRequestSentAt,
		FirstFollowUpSent:    e.FirstFollowUpSent,
		FirstFollowUpSentAt:  e.FirstFollowUpSentAt,
		SecondFollowUpSent:   e.SecondFollowUpSent,
		SecondFollowUpSentAt: e.SecondFollowUpSentAt,
		FinalFollowUpSent:    e.FinalFollowUpSent,
		FinalFollowUpSentAt:  e.FinalFollowUpSentAt,
		LinkClicked:          e.LinkClicked,
		LinkClickedAt:        e.LinkClickedAt,
		ReviewSubmitted:      e.ReviewSubmitted,
		ReviewSubmittedAt:    e.ReviewSubmittedAt,
		Status:               model.RequestStatus(e.Status),
		UnsubscribedAt:       e.UnsubscribedAt,
		CompletedAt:          e.CompletedAt,
		Version:              e.Version,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

func toStatusModels(entities []*ReviewRequestStatusEntity) []*model.ReviewRequestStatus {
	if entities == nil {
		return nil
	}
	models := make([]*model.ReviewRequestStatus, len(entities))
	for i, e := range entities {
		models[i] = toStatusModel(e)
	}
	return models
}
