package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rankitpro/review-followup/internal/followup"
	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/pkg/logger"
	"github.com/rankitpro/review-followup/pkg/prom"
)

var (
	ErrInvalidEvent = errors.New("invalid service event")
	ErrNoReviewURL  = errors.New("company has no review url")
)

type StatusRepository interface {
	Create(ctx context.Context, status *model.ReviewRequestStatus) (*model.ReviewRequestStatus, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.ReviewRequestStatus, error)
	GetForCompany(ctx context.Context, companyID string, id uuid.UUID) (*model.ReviewRequestStatus, error)
	FindByCheckIn(ctx context.Context, companyID, checkInID string) (*model.ReviewRequestStatus, error)
	List(ctx context.Context, f model.StatusFilter) ([]*model.ReviewRequestStatus, int64, error)
	Stats(ctx context.Context, companyID string) (*model.StatusStats, error)
	RecordReviewSubmitted(ctx context.Context, companyID string, id uuid.UUID, at time.Time) (*model.ReviewRequestStatus, error)
	Unsubscribe(ctx context.Context, companyID string, id uuid.UUID, at time.Time) (*model.ReviewRequestStatus, error)
	RecordLinkClicked(ctx context.Context, id uuid.UUID, at time.Time) (*model.ReviewRequestStatus, error)
}

// AdmitResult is the outcome of offering a service event. Status is set
// when the event was admitted, or when its check-in was admitted before.
type AdmitResult struct {
	Admitted bool                       `json:"admitted"`
	Reason   followup.RejectReason      `json:"reason,omitempty"`
	Existing bool                       `json:"existing,omitempty"`
	Status   *model.ReviewRequestStatus `json:"status,omitempty"`
}

// RequestService owns the lifecycle of review request status rows outside
// the scheduler: admission, customer responses and read access.
type RequestService struct {
	statuses StatusRepository
	planner  *Planner
	now      func() time.Time
}

func NewRequestService(statuses StatusRepository, planner *Planner) *RequestService {
	return &RequestService{
		statuses: statuses,
		planner:  planner,
		now:      time.Now,
	}
}

// Admit runs the targeting gate and creates the pending status row of an
// admitted event.
func (s *RequestService) Admit(ctx context.Context, companyID string, event model.ServiceEvent) (*AdmitResult, error) {
	if strings.TrimSpace(companyID) == "" {
		return nil, model.ErrInvalidCompanyID
	}
	event.CompanyID = companyID
	if err := event.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidEvent, err.Error())
	}

	if event.CheckInID != nil && strings.TrimSpace(*event.CheckInID) == "" {
		event.CheckInID = nil
	}
	if event.CheckInID != nil {
		existing, err := s.statuses.FindByCheckIn(ctx, companyID, *event.CheckInID)
		if err == nil {
			return &AdmitResult{Admitted: true, Existing: true, Status: existing}, nil
		}
		if !errors.Is(err, model.ErrStatusNotFound) {
			return nil, errors.Wrap(err, "find by check-in")
		}
	}

	settings, err := s.planner.Settings(ctx, companyID)
	if err != nil {
		return nil, err
	}

	admission := followup.Admit(event, settings)
	if !admission.Admitted {
		prom.RecordAdmission(string(admission.Reason))
		logger.Info("Service event rejected", "company_id", companyID, "customer_id", event.CustomerID, "reason", admission.Reason)
		return &AdmitResult{Reason: admission.Reason}, nil
	}

	if event.CompletedAt.IsZero() {
		event.CompletedAt = s.now()
	}
	created, err := s.statuses.Create(ctx, event.NewStatus())
	if errors.Is(err, model.ErrDuplicateCheckIn) && event.CheckInID != nil {
		existing, findErr := s.statuses.FindByCheckIn(ctx, companyID, *event.CheckInID)
		if findErr != nil {
			return nil, errors.Wrap(findErr, "find by check-in after duplicate")
		}
		logger.Info("Check-in admitted concurrently, returning existing row", "company_id", companyID, "status_id", existing.ID)
		return &AdmitResult{Admitted: true, Existing: true, Status: existing}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "create status")
	}
	prom.RecordAdmission("admitted")
	logger.Info("Service event admitted", "company_id", companyID, "status_id", created.ID, "customer_id", event.CustomerID)
	return &AdmitResult{Admitted: true, Status: created}, nil
}

func (s *RequestService) Get(ctx context.Context, companyID string, id uuid.UUID) (*model.ReviewRequestStatus, error) {
	return s.statuses.GetForCompany(ctx, companyID, id)
}

func (s *RequestService) List(ctx context.Context, f model.StatusFilter) ([]*model.ReviewRequestStatus, int64, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.statuses.List(ctx, f)
}

func (s *RequestService) Stats(ctx context.Context, companyID string) (*model.StatusStats, error) {
	return s.statuses.Stats(ctx, companyID)
}

// Next previews what the scheduler would do with the row right now.
func (s *RequestService) Next(ctx context.Context, companyID string, id uuid.UUID) (*Plan, error) {
	status, err := s.statuses.GetForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	cp, err := s.planner.ForCompany(ctx, companyID, now)
	if err != nil {
		return nil, err
	}
	plan := cp.Evaluate(status, now)
	return &plan, nil
}

func (s *RequestService) RecordReviewSubmitted(ctx context.Context, companyID string, id uuid.UUID) (*model.ReviewRequestStatus, error) {
	st, err := s.statuses.RecordReviewSubmitted(ctx, companyID, id, s.now())
	if err != nil {
		return nil, err
	}
	logger.Info("Review submitted", "company_id", companyID, "status_id", id, "status", st.Status)
	return st, nil
}

func (s *RequestService) Unsubscribe(ctx context.Context, companyID string, id uuid.UUID) (*model.ReviewRequestStatus, error) {
	st, err := s.statuses.Unsubscribe(ctx, companyID, id, s.now())
	if err != nil {
		return nil, err
	}
	logger.Info("Customer unsubscribed", "company_id", companyID, "status_id", id)
	return st, nil
}

// RecordLinkClick stores the first click on a tracked link and returns the
// company review url to redirect to.
func (s *RequestService) RecordLinkClick(ctx context.Context, id uuid.UUID) (string, error) {
	st, err := s.statuses.RecordLinkClicked(ctx, id, s.now())
	if err != nil {
		return "", err
	}
	settings, err := s.planner.Settings(ctx, st.CompanyID)
	if err != nil {
		return "", err
	}
	if settings.ReviewURL == "" {
		return "", ErrNoReviewURL
	}
	return settings.ReviewURL, nil
}
