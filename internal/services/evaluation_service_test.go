package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rankitpro/review-followup/internal/followup"
	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/internal/repository"
)

// Wednesday 11:00, after the default 10:00 slot of a Monday 15:00 visit.
var passNow = time.Date(2024, 3, 6, 11, 0, 0, 0, time.UTC)

type evalFixture struct {
	svc       *EvaluationService
	statuses  *repository.StatusRepository
	guard     *MockEnqueueGuard
	publisher *MockPublisher
}

func newEvalFixture(t *testing.T) *evalFixture {
	db := repository.OpenTestDB(t)
	settings := new(MockSettingsRepository)
	settings.On("Get", mock.Anything, mock.Anything).Return(nil, model.ErrSettingsNotFound)

	f := &evalFixture{
		statuses:  repository.NewStatusRepository(db),
		guard:     new(MockEnqueueGuard),
		publisher: new(MockPublisher),
	}
	planner := NewPlanner(settings, nil, nil, followup.DefaultFactorTables(), 50)
	f.svc = NewEvaluationService(f.statuses, planner, f.guard, f.publisher, EvaluationConfig{PageSize: 2, Workers: 2})
	f.svc.now = func() time.Time { return passNow }
	return f
}

func (f *evalFixture) create(t *testing.T, mutate func(*model.ReviewRequestStatus)) *model.ReviewRequestStatus {
	st := &model.ReviewRequestStatus{
		ReviewRequestID:    "rr",
		CompanyID:          "c1",
		CustomerID:         uuid.NewString(),
		CustomerName:       "Ann",
		CustomerEmail:      "ann@example.com",
		ServiceCompletedAt: t0,
		Status:             model.RequestStatusPending,
	}
	if mutate != nil {
		mutate(st)
	}
	created, err := f.statuses.Create(context.Background(), st)
	require.NoError(t, err)
	return created
}

func TestEvaluationService_RunPass(t *testing.T) {
	ctx := context.Background()
	f := newEvalFixture(t)

	due := f.create(t, nil)
	claimed := f.create(t, nil)
	notDue := f.create(t, func(st *model.ReviewRequestStatus) { st.ServiceCompletedAt = passNow.Add(-time.Hour) })
	reviewed := f.create(t, func(st *model.ReviewRequestStatus) { st.ReviewSubmitted = true })
	unreachable := f.create(t, func(st *model.ReviewRequestStatus) { st.CustomerEmail = "" })
	skipped := f.create(t, func(st *model.ReviewRequestStatus) {
		at := t0.AddDate(0, 0, 4)
		st.FirstFollowUpSent, st.FirstFollowUpSentAt = true, &at
	})

	f.guard.On("ClaimEnqueue", mock.Anything, due.ID, model.StageInitial).Return(true, nil)
	f.guard.On("ClaimEnqueue", mock.Anything, claimed.ID, model.StageInitial).Return(false, nil)
	f.publisher.On("PublishJSON", mock.Anything, mock.MatchedBy(func(job model.DispatchJob) bool {
		return job.StatusID == due.ID && job.Stage == model.StageInitial &&
			job.DueAt.Equal(t0.AddDate(0, 0, 1)) &&
			job.SendAt.Equal(time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC))
	}), map[string]string{"company_id": "c1", "stage": "initial"}).Return("1-0", nil)

	res, err := f.svc.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.Evaluated)
	assert.Equal(t, int64(1), res.Enqueued)
	assert.Equal(t, int64(1), res.Waiting)
	assert.Equal(t, int64(3), res.Completed)
	assert.Equal(t, int64(1), res.Violations)
	assert.Equal(t, int64(1), res.Skipped)
	assert.Zero(t, res.Errors)
	f.publisher.AssertNumberOfCalls(t, "PublishJSON", 1)

	for _, id := range []uuid.UUID{reviewed.ID, unreachable.ID, skipped.ID} {
		got, err := f.statuses.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusCompleted, got.Status, id)
		assert.NotNil(t, got.CompletedAt)
	}
	for _, id := range []uuid.UUID{due.ID, claimed.ID, notDue.ID} {
		got, err := f.statuses.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusPending, got.Status, id)
		assert.False(t, got.InitialRequestSent)
	}
}

func TestEvaluationService_PublishFailureReleasesClaim(t *testing.T) {
	f := newEvalFixture(t)
	due := f.create(t, nil)

	f.guard.On("ClaimEnqueue", mock.Anything, due.ID, model.StageInitial).Return(true, nil)
	f.guard.On("ClearEnqueued", mock.Anything, due.ID, model.StageInitial).Return(nil)
	f.publisher.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("redis down"))

	res, err := f.svc.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Errors)
	assert.Zero(t, res.Enqueued)
	f.guard.AssertExpectations(t)
}

func TestEvaluationService_ClaimError(t *testing.T) {
	f := newEvalFixture(t)
	due := f.create(t, nil)

	f.guard.On("ClaimEnqueue", mock.Anything, due.ID, model.StageInitial).Return(false, errors.New("redis down"))

	res, err := f.svc.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Errors)
	f.publisher.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluationService_DryRun(t *testing.T) {
	ctx := context.Background()
	f := newEvalFixture(t)
	due := f.create(t, nil)
	reviewed := f.create(t, func(st *model.ReviewRequestStatus) { st.ReviewSubmitted = true })

	rows, err := f.svc.DryRun(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byID := map[uuid.UUID]PlannedRow{}
	for _, r := range rows {
		byID[r.StatusID] = r
	}
	assert.Equal(t, followup.ActionSend, byID[due.ID].Action)
	assert.Equal(t, model.StageInitial, byID[due.ID].Stage)
	require.NotNil(t, byID[due.ID].SendAt)
	assert.Equal(t, followup.ActionComplete, byID[reviewed.ID].Action)
	assert.Nil(t, byID[reviewed.ID].SendAt)

	// nothing was written or published
	got, err := f.statuses.GetByID(ctx, reviewed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, got.Status)
	f.guard.AssertNotCalled(t, "ClaimEnqueue", mock.Anything, mock.Anything, mock.Anything)
	f.publisher.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluationService_TerminalRowsAreNotListed(t *testing.T) {
	f := newEvalFixture(t)
	f.create(t, func(st *model.ReviewRequestStatus) { st.Status = model.RequestStatusUnsubscribed })
	f.create(t, func(st *model.ReviewRequestStatus) { st.Status = model.RequestStatusCompleted })

	res, err := f.svc.RunPass(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Evaluated)
}

func TestPlanCache_LoadsCompaniesIndependently(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})

	settings := new(MockSettingsRepository)
	settings.On("Get", mock.Anything, "slow").Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(nil, model.ErrSettingsNotFound).Once()
	settings.On("Get", mock.Anything, "fast").Return(nil, model.ErrSettingsNotFound).Once()

	cache := &planCache{
		planner: NewPlanner(settings, nil, nil, followup.DefaultFactorTables(), 50),
		now:     passNow,
		plans:   make(map[string]*CompanyPlan),
	}

	slow := make(chan *CompanyPlan, 2)
	for i := 0; i < 2; i++ {
		go func() {
			cp, err := cache.get(ctx, "slow")
			assert.NoError(t, err)
			slow <- cp
		}()
	}
	<-started

	fast := make(chan *CompanyPlan, 1)
	go func() {
		cp, err := cache.get(ctx, "fast")
		assert.NoError(t, err)
		fast <- cp
	}()
	select {
	case cp := <-fast:
		assert.Equal(t, "fast", cp.Settings.CompanyID)
	case <-time.After(2 * time.Second):
		t.Fatal("fast company waited for another company's plan")
	}

	close(release)
	first, second := <-slow, <-slow
	assert.Same(t, first, second)

	again, err := cache.get(ctx, "slow")
	require.NoError(t, err)
	assert.Same(t, first, again)
	settings.AssertExpectations(t)
}
