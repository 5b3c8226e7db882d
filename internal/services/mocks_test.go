package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/rankitpro/review-followup/internal/model"
)

type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context, companyID string) (*model.FollowUpSettings, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FollowUpSettings), args.Error(1)
}

func (m *MockSettingsRepository) Upsert(ctx context.Context, s *model.FollowUpSettings) (*model.FollowUpSettings, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FollowUpSettings), args.Error(1)
}

type MockStatusRepository struct {
	mock.Mock
}

func (m *MockStatusRepository) status(args mock.Arguments) (*model.ReviewRequestStatus, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReviewRequestStatus), args.Error(1)
}

func (m *MockStatusRepository) Create(ctx context.Context, st *model.ReviewRequestStatus) (*model.ReviewRequestStatus, error) {
	return m.status(m.Called(ctx, st))
}

func (m *MockStatusRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ReviewRequestStatus, error) {
	return m.status(m.Called(ctx, id))
}

func (m *MockStatusRepository) GetForCompany(ctx context.Context, companyID string, id uuid.UUID) (*model.ReviewRequestStatus, error) {
	return m.status(m.Called(ctx, companyID, id))
}

func (m *MockStatusRepository) FindByCheckIn(ctx context.Context, companyID, checkInID string) (*model.ReviewRequestStatus, error) {
	return m.status(m.Called(ctx, companyID, checkInID))
}

func (m *MockStatusRepository) List(ctx context.Context, f model.StatusFilter) ([]*model.ReviewRequestStatus, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.ReviewRequestStatus), args.Get(1).(int64), args.Error(2)
}

func (m *MockStatusRepository) Stats(ctx context.Context, companyID string) (*model.StatusStats, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StatusStats), args.Error(1)
}

func (m *MockStatusRepository) RecordReviewSubmitted(ctx context.Context, companyID string, id uuid.UUID, at time.Time) (*model.ReviewRequestStatus, error) {
	return m.status(m.Called(ctx, companyID, id, at))
}

func (m *MockStatusRepository) Unsubscribe(ctx context.Context, companyID string, id uuid.UUID, at time.Time) (*model.ReviewRequestStatus, error) {
	return m.status(m.Called(ctx, companyID, id, at))
}

func (m *MockStatusRepository) RecordLinkClicked(ctx context.Context, id uuid.UUID, at time.Time) (*model.ReviewRequestStatus, error) {
	return m.status(m.Called(ctx, id, at))
}

type MockHolidayRepository struct {
	mock.Mock
}

func (m *MockHolidayRepository) List(ctx context.Context, companyID string) ([]*model.Holiday, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Holiday), args.Error(1)
}

func (m *MockHolidayRepository) Upsert(ctx context.Context, companyID string, holidays []model.Holiday) error {
	return m.Called(ctx, companyID, holidays).Error(0)
}

func (m *MockHolidayRepository) Delete(ctx context.Context, companyID, date string) error {
	return m.Called(ctx, companyID, date).Error(0)
}

func (m *MockHolidayRepository) Dates(ctx context.Context, companyID string, from, to time.Time) ([]string, error) {
	args := m.Called(ctx, companyID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockEnqueueGuard struct {
	mock.Mock
}

func (m *MockEnqueueGuard) ClaimEnqueue(ctx context.Context, id uuid.UUID, stage model.Stage) (bool, error) {
	args := m.Called(ctx, id, stage)
	return args.Bool(0), args.Error(1)
}

func (m *MockEnqueueGuard) ClearEnqueued(ctx context.Context, id uuid.UUID, stage model.Stage) error {
	return m.Called(ctx, id, stage).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error) {
	args := m.Called(ctx, data, metadata)
	return args.String(0), args.Error(1)
}
