// Package followup holds the pure decision core of the review follow-up
// sequence: stage selection, send-time planning, targeting and rendering.
// Nothing here performs I/O or reads the wall clock.
package followup

import (
	"time"

	"github.com/rankitpro/review-followup/internal/model"
)

type Action string

const (
	ActionNone     Action = "none"
	ActionWait     Action = "wait"
	ActionSend     Action = "send"
	ActionComplete Action = "complete"
)

const (
	ReasonTerminal         = "terminal"
	ReasonReviewSubmitted  = "review_submitted"
	ReasonIntegrity        = "integrity_violation"
	ReasonSequenceComplete = "sequence_complete"
	ReasonNotDue           = "not_due"
	ReasonDue              = "due"
)

// Decision is the outcome of evaluating one status row at a point in time.
// Stage and DueAt are set for ActionWait and ActionSend.
type Decision struct {
	Action    Action                        `json:"action"`
	Stage     model.Stage                   `json:"stage,omitempty"`
	DueAt     time.Time                     `json:"dueAt,omitempty"`
	Reason    string                        `json:"reason"`
	Violation *model.DataIntegrityViolation `json:"-"`
}

// SelectStage decides whether a stage of status should be sent at now.
func SelectStage(status *model.ReviewRequestStatus, settings *model.FollowUpSettings, now time.Time) Decision {
	if status.Status.Terminal() {
		return Decision{Action: ActionNone, Reason: ReasonTerminal}
	}
	if status.ReviewSubmitted {
		return Decision{Action: ActionComplete, Reason: ReasonReviewSubmitted}
	}
	if v := checkOrdering(status, settings); v != nil {
		return Decision{Action: ActionComplete, Reason: ReasonIntegrity, Violation: v}
	}

	reference := status.ServiceReference()
	for _, stage := range model.Stages {
		sent, sentAt := status.StageSent(stage)
		if sent {
			if sentAt != nil {
				reference = *sentAt
			}
			continue
		}
		cfg := settings.StageConfig(stage)
		if !cfg.Enabled {
			continue
		}
		dueAt := reference.AddDate(0, 0, cfg.DelayDays)
		if now.Before(dueAt) {
			return Decision{Action: ActionWait, Stage: stage, DueAt: dueAt, Reason: ReasonNotDue}
		}
		return Decision{Action: ActionSend, Stage: stage, DueAt: dueAt, Reason: ReasonDue}
	}
	return Decision{Action: ActionComplete, Reason: ReasonSequenceComplete}
}

// checkOrdering reports the first sent stage that follows an unsent enabled one.
func checkOrdering(status *model.ReviewRequestStatus, settings *model.FollowUpSettings) *model.DataIntegrityViolation {
	var missing model.Stage
	for _, stage := range model.Stages {
		sent, _ := status.StageSent(stage)
		if sent {
			if missing != "" {
				return &model.DataIntegrityViolation{StatusID: status.ID, Stage: stage, Missing: missing}
			}
			continue
		}
		if missing == "" && settings.StageConfig(stage).Enabled {
			missing = stage
		}
	}
	return nil
}
