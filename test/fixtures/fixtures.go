package fixtures

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rankitpro/review-followup/internal/followup"
	"github.com/rankitpro/review-followup/internal/model"
)

const CompanyID = "acme-plumbing"

// Settings sends every stage as soon as it is due, on any day, by email
// and SMS.
func Settings() *model.FollowUpSettings {
	s := followup.DefaultSettings(CompanyID)
	s.CompanyName = "Acme Plumbing"
	s.ReviewURL = "https://reviews.example.com/acme"
	s.PreferredSendTime = ""
	s.SendOnWeekends = true
	s.SmsEnabled = true
	s.SmartTiming.Enabled = false
	s.TargetMinimumInvoiceAmount = decimal.NewFromInt(50)
	return s
}

// Event is a positive, targeted service visit that finished completedAgo
// before now.
func Event(customerID string, completedAgo time.Duration) model.ServiceEvent {
	phone := "+15550100"
	return model.ServiceEvent{
		ReviewRequestID:    "rr-" + customerID,
		CustomerID:         customerID,
		CustomerName:       "Ann Smith",
		CustomerEmail:      customerID + "@example.com",
		CustomerPhone:      &phone,
		TechnicianID:       "tech-7",
		TechnicianName:     "Bo",
		ServiceType:        "Drain Cleaning",
		Location:           "Springfield",
		InvoiceAmount:      decimal.NewFromInt(180),
		PositiveExperience: true,
		CompletedAt:        time.Now().Add(-completedAgo).UTC(),
	}
}

func EmailOnly(e model.ServiceEvent) model.ServiceEvent {
	e.CustomerPhone = nil
	return e
}
