package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrSettingsNotFound = errors.New("followup settings not found")
	ErrStatusNotFound   = errors.New("review request status not found")
	ErrConcurrentUpdate = errors.New("review request status was modified concurrently")
	ErrTerminalStatus   = errors.New("review request status is terminal")
	ErrDuplicateCheckIn = errors.New("check-in already has a review request status")
	ErrHolidayNotFound  = errors.New("holiday not found")
	ErrInvalidCompanyID = errors.New("company id is required")
)

// FieldIssue is one reason a settings record cannot be activated.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ConfigurationError blocks saving a settings record.
type ConfigurationError struct {
	Issues []FieldIssue `json:"issues"`
}

func (e *ConfigurationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Field+": "+is.Message)
	}
	return "invalid followup settings: " + strings.Join(parts, "; ")
}

func (e *ConfigurationError) Add(field, format string, args ...any) {
	e.Issues = append(e.Issues, FieldIssue{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Err returns e when it holds issues, nil otherwise.
func (e *ConfigurationError) Err() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}

// DispatchFailure is returned by the message gateway when a send is not confirmed.
type DispatchFailure struct {
	Channel   Channel
	Provider  string
	Reason    string
	Retryable bool
}

func (e *DispatchFailure) Error() string {
	p := e.Provider
	if p == "" {
		p = "none"
	}
	return fmt.Sprintf("dispatch over %s failed (provider %s): %s", e.Channel, p, e.Reason)
}

// DataIntegrityViolation marks a row whose Sent flags skip an enabled stage.
type DataIntegrityViolation struct {
	StatusID uuid.UUID
	Stage    Stage
	Missing  Stage
}

func (e *DataIntegrityViolation) Error() string {
	return fmt.Sprintf("status %s has stage %s sent while %s is not", e.StatusID, e.Stage, e.Missing)
}
