package followup

import (
	"strings"

	"github.com/rankitpro/review-followup/internal/model"
)

type RejectReason string

const (
	RejectInactive           RejectReason = "followups_inactive"
	RejectBelowMinimum       RejectReason = "below_minimum_invoice"
	RejectServiceType        RejectReason = "service_type_not_targeted"
	RejectNoPositiveFeedback RejectReason = "positive_experience_required"
)

type Admission struct {
	Admitted bool         `json:"admitted"`
	Reason   RejectReason `json:"reason,omitempty"`
}

// Admit is the targeting gate in front of status creation.
func Admit(event model.ServiceEvent, settings *model.FollowUpSettings) Admission {
	if !settings.Active {
		return Admission{Reason: RejectInactive}
	}
	if event.InvoiceAmount.LessThan(settings.TargetMinimumInvoiceAmount) {
		return Admission{Reason: RejectBelowMinimum}
	}
	if !serviceTargeted(settings.TargetServiceTypes, event.ServiceType) {
		return Admission{Reason: RejectServiceType}
	}
	if settings.TargetPositiveExperiencesOnly && !event.PositiveExperience {
		return Admission{Reason: RejectNoPositiveFeedback}
	}
	return Admission{Admitted: true}
}

// serviceTargeted matches case-insensitively; an empty target list admits all.
func serviceTargeted(targets []string, serviceType string) bool {
	if len(targets) == 0 {
		return true
	}
	st := strings.TrimSpace(serviceType)
	for _, t := range targets {
		if strings.EqualFold(strings.TrimSpace(t), st) {
			return true
		}
	}
	return false
}
