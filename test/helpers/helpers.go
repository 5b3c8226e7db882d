package helpers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/rankitpro/review-followup/internal/followup"
	gateway "github.com/rankitpro/review-followup/internal/gateways"
	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/internal/processor"
	"github.com/rankitpro/review-followup/internal/queue"
	"github.com/rankitpro/review-followup/internal/repository"
	"github.com/rankitpro/review-followup/internal/services"
	"github.com/rankitpro/review-followup/pkg/pg"
	"github.com/rankitpro/review-followup/pkg/redis"
)

const TrackingBaseURL = "https://t.example.com"

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr := miniredis.RunT(t)
	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	return mr, adapter
}

// FakeSender accepts every message unless its channel is set to fail.
type FakeSender struct {
	mu   sync.Mutex
	sent []*gateway.SendRequest
	fail map[model.Channel]bool
}

func NewFakeSender() *FakeSender {
	return &FakeSender{fail: map[model.Channel]bool{}}
}

func (f *FakeSender) Fail(ch model.Channel, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[ch] = fail
}

func (f *FakeSender) Send(_ context.Context, req *gateway.SendRequest) (*gateway.SendResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[req.Channel] {
		return nil, &model.DispatchFailure{Channel: req.Channel, Provider: "fake", Reason: "provider status REJECTED: BLOCKED"}
	}
	copied := *req
	f.sent = append(f.sent, &copied)
	return &gateway.SendResponse{
		MessageID:   req.MessageID,
		Status:      gateway.StatusAccepted,
		ProcessedAt: time.Now(),
		Provider:    "fake",
	}, nil
}

func (f *FakeSender) Sent() []*gateway.SendRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*gateway.SendRequest, len(f.sent))
	copy(out, f.sent)
	return out
}

// Environment wires the admission, evaluation and dispatch paths against
// in-memory sqlite and miniredis.
type Environment struct {
	DB          *pg.DB
	Redis       *miniredis.Miniredis
	Queue       *queue.Queue
	Settings    *repository.SettingsRepository
	Statuses    *repository.StatusRepository
	Holidays    *repository.HolidayRepository
	Logs        *repository.DispatchLogRepository
	Idempotency *processor.IdempotencyService
	Requests    *services.RequestService
	Evaluation  *services.EvaluationService
	Dispatcher  *processor.DispatchProcessor
	Sender      *FakeSender
}

func NewEnvironment(t *testing.T) *Environment {
	db := repository.OpenTestDB(t)
	mr, adapter := SetupTestRedis(t)

	q, err := queue.NewQueue(adapter, queue.QueueConfig{
		Name:              "followup-dispatch",
		ConsumerGroup:     "dispatchers",
		ConsumerName:      "e2e",
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      50 * time.Millisecond,
		EnableDLQ:         true,
	})
	require.NoError(t, err)

	env := &Environment{
		DB:          db,
		Redis:       mr,
		Queue:       q,
		Settings:    repository.NewSettingsRepository(db),
		Statuses:    repository.NewStatusRepository(db),
		Holidays:    repository.NewHolidayRepository(db),
		Logs:        repository.NewDispatchLogRepository(db),
		Idempotency: processor.NewIdempotencyService(adapter, processor.DefaultIdempotencyConfig()),
		Sender:      NewFakeSender(),
	}

	planner := services.NewPlanner(env.Settings, env.Holidays, env.Statuses, followup.DefaultFactorTables(), 50)
	env.Requests = services.NewRequestService(env.Statuses, planner)
	env.Evaluation = services.NewEvaluationService(env.Statuses, planner, env.Idempotency, q, services.EvaluationConfig{
		PageSize: 10,
		Workers:  2,
	})
	env.Dispatcher = processor.NewDispatchProcessor(env.Sender, env.Statuses, env.Settings, env.Logs, env.Idempotency, TrackingBaseURL)
	return env
}

// StartDispatching consumes the dispatch queue until the test ends.
func (e *Environment) StartDispatching(t *testing.T) {
	require.NoError(t, e.Queue.Consume(e.Dispatcher.Process))
	t.Cleanup(func() { _ = e.Queue.Stop(time.Second) })
}

func (e *Environment) SaveSettings(t *testing.T, s *model.FollowUpSettings) {
	_, err := e.Settings.Upsert(context.Background(), s)
	require.NoError(t, err)
}

// WaitForStatus polls the row until cond holds.
func (e *Environment) WaitForStatus(t *testing.T, companyID string, st *model.ReviewRequestStatus, cond func(*model.ReviewRequestStatus) bool) *model.ReviewRequestStatus {
	t.Helper()
	var last *model.ReviewRequestStatus
	require.Eventually(t, func() bool {
		row, err := e.Statuses.GetForCompany(context.Background(), companyID, st.ID)
		if err != nil {
			return false
		}
		last = row
		return cond(row)
	}, 5*time.Second, 50*time.Millisecond)
	return last
}
