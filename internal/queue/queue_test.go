package queue

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/pkg/redis"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr := miniredis.RunT(t)
	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	return mr, adapter
}

// newTestQueue builds a fast-polling dispatch queue; tune adjusts the config
// before construction.
func newTestQueue(t *testing.T, tune func(*QueueConfig)) (*Queue, redis.RedisAdapter) {
	_, adapter := setupTestRedis(t)
	config := QueueConfig{
		Name:              "followup:dispatch",
		ConsumerGroup:     "dispatchers",
		ConsumerName:      "dispatcher-1",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      50 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}
	if tune != nil {
		tune(&config)
	}
	q, err := NewQueue(adapter, config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Stop(time.Second) })
	return q, adapter
}

func testJob() model.DispatchJob {
	due := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)
	return model.DispatchJob{
		StatusID:   uuid.New(),
		CompanyID:  "c1",
		Stage:      model.StageInitial,
		DueAt:      due,
		SendAt:     due.Add(time.Hour),
		EnqueuedAt: due.Add(2 * time.Hour),
	}
}

func TestNewQueue_RequiresName(t *testing.T) {
	_, adapter := setupTestRedis(t)
	_, err := NewQueue(adapter, QueueConfig{})
	assert.Error(t, err)
}

func TestQueue_PublishAndConsumeDispatchJob(t *testing.T) {
	q, _ := newTestQueue(t, nil)
	job := testJob()

	_, err := q.PublishJSON(context.Background(), job, map[string]string{"company_id": "c1", "stage": "initial"})
	require.NoError(t, err)

	received := make(chan model.DispatchJob, 1)
	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		var got model.DispatchJob
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			return err
		}
		assert.Equal(t, "c1", msg.Metadata["company_id"])
		assert.Equal(t, "initial", msg.Metadata["stage"])
		assert.Equal(t, 1, msg.Attempts)
		assert.False(t, msg.Timestamp.IsZero())
		received <- got
		return nil
	}))

	select {
	case got := <-received:
		assert.Equal(t, job.StatusID, got.StatusID)
		assert.Equal(t, job.Stage, got.Stage)
		assert.True(t, job.SendAt.Equal(got.SendAt))
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch job not received")
	}

	assert.Eventually(t, func() bool {
		stats, err := q.GetStats()
		return err == nil && stats.PendingMessages == 0 && stats.InFlight == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestQueue_RedeliversUntilSuccess(t *testing.T) {
	q, _ := newTestQueue(t, func(c *QueueConfig) {
		c.MaxRetries = 5
		c.VisibilityTimeout = 200 * time.Millisecond
	})

	_, err := q.PublishJSON(context.Background(), testJob(), nil)
	require.NoError(t, err)

	var mu sync.Mutex
	var attempts []int
	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		mu.Lock()
		defer mu.Unlock()
		attempts = append(attempts, msg.Attempts)
		if len(attempts) < 2 {
			return assert.AnError
		}
		return nil
	}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(attempts) >= 2
	}, 3*time.Second, 20*time.Millisecond)

	mu.Lock()
	assert.Equal(t, 1, attempts[0])
	assert.Greater(t, attempts[1], 1)
	mu.Unlock()

	assert.Eventually(t, func() bool {
		stats, err := q.GetStats()
		return err == nil && stats.PendingMessages == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestQueue_DeadLettersAfterMaxRetries(t *testing.T) {
	q, adapter := newTestQueue(t, func(c *QueueConfig) {
		c.MaxRetries = 1
		c.VisibilityTimeout = 150 * time.Millisecond
	})

	_, err := q.PublishJSON(context.Background(), testJob(), map[string]string{"stage": "initial"})
	require.NoError(t, err)
	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		return assert.AnError
	}))

	assert.Eventually(t, func() bool {
		n, err := adapter.XLen(q.DeadLetterName())
		return err == nil && n == 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestQueue_ConcurrentPublish(t *testing.T) {
	q, _ := newTestQueue(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.PublishJSON(context.Background(), testJob(), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats, err := q.GetStats()
	require.NoError(t, err)
	assert.EqualValues(t, 10, stats.TotalMessages)
}

func TestMessage_AckNack(t *testing.T) {
	q, _ := newTestQueue(t, nil)

	id, err := q.Publish(context.Background(), []byte(`{}`), nil)
	require.NoError(t, err)

	acked := &Message{ID: id, queue: q}
	require.NoError(t, acked.Ack())
	assert.True(t, acked.acked)
	assert.ErrorIs(t, acked.Ack(), ErrAlreadyAcked)
	assert.ErrorIs(t, acked.Nack(), ErrAlreadyAcked)

	nacked := &Message{ID: "1-0", queue: q}
	require.NoError(t, nacked.Nack())
	assert.True(t, nacked.nacked)
	assert.ErrorIs(t, nacked.Nack(), ErrAlreadyNacked)
	assert.ErrorIs(t, nacked.Ack(), ErrAlreadyNacked)
}

func TestQueue_StopWaitsForConsumer(t *testing.T) {
	_, adapter := setupTestRedis(t)
	q, err := NewQueue(adapter, QueueConfig{Name: "followup:stop", PollInterval: 50 * time.Millisecond})
	require.NoError(t, err)

	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	}))
	assert.NoError(t, q.Stop(2*time.Second))
}
