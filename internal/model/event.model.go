package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceEvent is a completed service visit offered to the targeting gate.
type ServiceEvent struct {
	CompanyID          string          `json:"companyId"`
	ReviewRequestID    string          `json:"reviewRequestId"`
	CheckInID          *string         `json:"checkInId,omitempty"`
	CustomerID         string          `json:"customerId"`
	CustomerName       string          `json:"customerName"`
	CustomerEmail      string          `json:"customerEmail"`
	CustomerPhone      *string         `json:"customerPhone,omitempty"`
	TechnicianID       string          `json:"technicianId"`
	TechnicianName     string          `json:"technicianName"`
	ServiceType        string          `json:"serviceType"`
	Location           string          `json:"location"`
	InvoiceAmount      decimal.Decimal `json:"invoiceAmount"`
	PositiveExperience bool            `json:"positiveExperience"`
	CompletedAt        time.Time       `json:"completedAt"`
}

func (e ServiceEvent) Validate() error {
	if e.CustomerID == "" {
		return errors.New("customerId is required")
	}
	if e.InvoiceAmount.IsNegative() {
		return errors.New("invoiceAmount must not be negative")
	}
	return nil
}

// NewStatus builds the pending status row that starts the sequence for e.
func (e ServiceEvent) NewStatus() *ReviewRequestStatus {
	return &ReviewRequestStatus{
		ReviewRequestID:    e.ReviewRequestID,
		CompanyID:          e.CompanyID,
		CheckInID:          e.CheckInID,
		CustomerID:         e.CustomerID,
		CustomerName:       e.CustomerName,
		CustomerEmail:      e.CustomerEmail,
		CustomerPhone:      e.CustomerPhone,
		TechnicianID:       e.TechnicianID,
		TechnicianName:     e.TechnicianName,
		ServiceType:        e.ServiceType,
		Location:           e.Location,
		ServiceCompletedAt: e.CompletedAt,
		Status:             RequestStatusPending,
	}
}

// Holiday is a date excluded from smart-timing send slots. An empty
// CompanyID marks a global holiday.
type Holiday struct {
	ID        uuid.UUID `json:"id"`
	CompanyID string    `json:"companyId"`
	Date      string    `json:"date"`
	Name      string    `json:"name"`
}

const HolidayDateLayout = "2006-01-02"

type DispatchResult string

const (
	DispatchResultSent   DispatchResult = "sent"
	DispatchResultFailed DispatchResult = "failed"
)

// DispatchLog records one provider attempt for a stage and channel.
type DispatchLog struct {
	ID          uuid.UUID      `json:"id"`
	StatusID    uuid.UUID      `json:"statusId"`
	Stage       Stage          `json:"stage"`
	Channel     Channel        `json:"channel"`
	Provider    string         `json:"provider"`
	Destination string         `json:"destination"`
	Result      DispatchResult `json:"result"`
	Error       string         `json:"error,omitempty"`
	AttemptedAt time.Time      `json:"attemptedAt"`
}

// DispatchJob is the queue payload asking the processor to send one stage.
type DispatchJob struct {
	StatusID   uuid.UUID `json:"statusId"`
	CompanyID  string    `json:"companyId"`
	Stage      Stage     `json:"stage"`
	DueAt      time.Time `json:"dueAt"`
	SendAt     time.Time `json:"sendAt"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}
