package model

import (
	"time"

	"github.com/google/uuid"
)

// ReviewRequestStatus tracks one customer-service-event through the sequence.
type ReviewRequestStatus struct {
	ID              uuid.UUID `json:"id"`
	ReviewRequestID string    `json:"reviewRequestId"`
	CompanyID       string    `json:"companyId"`
	CheckInID       *string   `json:"checkInId,omitempty"`

	CustomerID    string  `json:"customerId"`
	CustomerName  string  `json:"customerName"`
	CustomerEmail string  `json:"customerEmail"`
	CustomerPhone *string `json:"customerPhone,omitempty"`

	TechnicianID       string    `json:"technicianId"`
	TechnicianName     string    `json:"technicianName"`
	ServiceType        string    `json:"serviceType"`
	Location           string    `json:"location"`
	ServiceCompletedAt time.Time `json:"serviceCompletedAt"`

	InitialRequestSent   bool          `json:"initialRequestSent"`
	InitialRequestSentAt *time.Time    `json:"initialRequestSentAt,omitempty"`
	FirstFollowUpSent    bool          `json:"firstFollowUpSent"`
	FirstFollowUpSentAt  *time.Time    `json:"firstFollowUpSentAt,omitempty"`
	SecondFollowUpSent   bool          `json:"secondFollowUpSent"`
	SecondFollowUpSentAt *time.Time    `json:"secondFollowUpSentAt,omitempty"`
	FinalFollowUpSent    bool          `json:"finalFollowUpSent"`
	FinalFollowUpSentAt  *time.Time    `json:"finalFollowUpSentAt,omitempty"`
	LinkClicked          bool          `json:"linkClicked"`
	LinkClickedAt        *time.Time    `json:"linkClickedAt,omitempty"`
	ReviewSubmitted      bool          `json:"reviewSubmitted"`
	ReviewSubmittedAt    *time.Time    `json:"reviewSubmittedAt,omitempty"`
	Status               RequestStatus `json:"status"`
	UnsubscribedAt       *time.Time    `json:"unsubscribedAt,omitempty"`
	CompletedAt          *time.Time    `json:"completedAt,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StageSent reports the sent flag and timestamp of stage.
func (r *ReviewRequestStatus) StageSent(stage Stage) (bool, *time.Time) {
	switch stage {
	case StageInitial:
		return r.InitialRequestSent, r.InitialRequestSentAt
	case StageFirstFollowUp:
		return r.FirstFollowUpSent, r.FirstFollowUpSentAt
	case StageSecondFollowUp:
		return r.SecondFollowUpSent, r.SecondFollowUpSentAt
	case StageFinalFollowUp:
		return r.FinalFollowUpSent, r.FinalFollowUpSentAt
	}
	return false, nil
}

// SetStageSent flips the stage flag in memory and moves a pending row to in_progress.
func (r *ReviewRequestStatus) SetStageSent(stage Stage, at time.Time) {
	t := at
	switch stage {
	case StageInitial:
		r.InitialRequestSent, r.InitialRequestSentAt = true, &t
	case StageFirstFollowUp:
		r.FirstFollowUpSent, r.FirstFollowUpSentAt = true, &t
	case StageSecondFollowUp:
		r.SecondFollowUpSent, r.SecondFollowUpSentAt = true, &t
	case StageFinalFollowUp:
		r.FinalFollowUpSent, r.FinalFollowUpSentAt = true, &t
	default:
		return
	}
	if r.Status == RequestStatusPending {
		r.Status = RequestStatusInProgress
	}
}

// ServiceReference is the base timestamp of the initial stage.
func (r *ReviewRequestStatus) ServiceReference() time.Time {
	if r.ServiceCompletedAt.IsZero() {
		return r.CreatedAt
	}
	return r.ServiceCompletedAt
}

// Phone returns the customer phone or "".
func (r *ReviewRequestStatus) Phone() string {
	if r.CustomerPhone == nil {
		return ""
	}
	return *r.CustomerPhone
}

// Destination returns the address for channel, "" when unknown.
func (r *ReviewRequestStatus) Destination(ch Channel) string {
	switch ch {
	case ChannelEmail:
		return r.CustomerEmail
	case ChannelSMS:
		return r.Phone()
	}
	return ""
}

// StatusFilter narrows request listings.
type StatusFilter struct {
	CompanyID  string
	Statuses   []RequestStatus
	CustomerID *string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
	Desc       bool
}

// StatusStats aggregates a company's requests.
type StatusStats struct {
	ByStatus      map[RequestStatus]int64 `json:"byStatus"`
	SentByStage   map[Stage]int64         `json:"sentByStage"`
	LinkClicked   int64                   `json:"linkClicked"`
	ReviewsPosted int64                   `json:"reviewsPosted"`
}

// EngagementSample is one initial send and whether it led to a click.
type EngagementSample struct {
	SentAt  time.Time
	Clicked bool
}
