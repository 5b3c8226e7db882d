package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/valyala/fasthttp"

	"github.com/rankitpro/review-followup/internal/followup"
	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/internal/services"
	xhttp "github.com/rankitpro/review-followup/pkg/http"
)

type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Get(ctx context.Context, companyID string) (*model.FollowUpSettings, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FollowUpSettings), args.Error(1)
}

func (m *MockSettingsService) Save(ctx context.Context, companyID string, s *model.FollowUpSettings) (*model.FollowUpSettings, error) {
	args := m.Called(ctx, companyID, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FollowUpSettings), args.Error(1)
}

func (m *MockSettingsService) Preview(ctx context.Context, companyID string, req services.PreviewRequest) ([]followup.RenderedMessage, error) {
	args := m.Called(ctx, companyID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]followup.RenderedMessage), args.Error(1)
}

type MockHolidayService struct {
	mock.Mock
}

func (m *MockHolidayService) List(ctx context.Context, companyID string) ([]*model.Holiday, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Holiday), args.Error(1)
}

func (m *MockHolidayService) Put(ctx context.Context, companyID string, holidays []model.Holiday) error {
	return m.Called(ctx, companyID, holidays).Error(0)
}

func (m *MockHolidayService) Delete(ctx context.Context, companyID, date string) error {
	return m.Called(ctx, companyID, date).Error(0)
}

type MockRequestService struct {
	mock.Mock
}

func (m *MockRequestService) status(args mock.Arguments) (*model.ReviewRequestStatus, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReviewRequestStatus), args.Error(1)
}

func (m *MockRequestService) Admit(ctx context.Context, companyID string, event model.ServiceEvent) (*services.AdmitResult, error) {
	args := m.Called(ctx, companyID, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AdmitResult), args.Error(1)
}

func (m *MockRequestService) Get(ctx context.Context, companyID string, id uuid.UUID) (*model.ReviewRequestStatus, error) {
	return m.status(m.Called(ctx, companyID, id))
}

func (m *MockRequestService) List(ctx context.Context, f model.StatusFilter) ([]*model.ReviewRequestStatus, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.ReviewRequestStatus), args.Get(1).(int64), args.Error(2)
}

func (m *MockRequestService) Stats(ctx context.Context, companyID string) (*model.StatusStats, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StatusStats), args.Error(1)
}

func (m *MockRequestService) Next(ctx context.Context, companyID string, id uuid.UUID) (*services.Plan, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Plan), args.Error(1)
}

func (m *MockRequestService) RecordReviewSubmitted(ctx context.Context, companyID string, id uuid.UUID) (*model.ReviewRequestStatus, error) {
	return m.status(m.Called(ctx, companyID, id))
}

func (m *MockRequestService) Unsubscribe(ctx context.Context, companyID string, id uuid.UUID) (*model.ReviewRequestStatus, error) {
	return m.status(m.Called(ctx, companyID, id))
}

func (m *MockRequestService) RecordLinkClick(ctx context.Context, id uuid.UUID) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

// setupTestContext builds a request with path parameters already resolved,
// as the router would leave them.
func setupTestContext(method, path string, body []byte, params map[string]string) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	for k, v := range params {
		ctx.SetUserValue(k, v)
	}
	return ctx
}
