package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/pkg/logger"
	"github.com/rankitpro/review-followup/pkg/redis"
)

var (
	ErrLockAcquireFailed = errors.New("failed to acquire processing lock")
)

type IdempotencyConfig struct {
	LockTTL time.Duration

	ProcessedTTL time.Duration

	EnqueuedTTL time.Duration

	LockKeyPrefix string

	ProcessedKeyPrefix string

	EnqueuedKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:            2 * time.Minute,
		ProcessedTTL:       7 * 24 * time.Hour,
		EnqueuedTTL:        30 * time.Minute,
		LockKeyPrefix:      "lock:",
		ProcessedKeyPrefix: "processed:",
		EnqueuedKeyPrefix:  "enqueued:",
	}
}

// IdempotencyService keeps the Redis keys that make stage dispatch safe to
// repeat: the enqueue marker set by the scheduler, the per-row processing
// lock, and one processed marker per delivered channel.
type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(redisAdapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		redis:  redisAdapter,
		config: config,
	}
}

// RowLock is a held processing lock on one status row.
type RowLock struct {
	StatusID uuid.UUID
	key      string
	token    []byte
	held     bool
	service  *IdempotencyService
}

func (s *IdempotencyService) enqueuedKey(id uuid.UUID, stage model.Stage) string {
	return s.config.EnqueuedKeyPrefix + id.String() + ":" + string(stage)
}

func (s *IdempotencyService) processedKey(id uuid.UUID, stage model.Stage, ch model.Channel) string {
	return s.config.ProcessedKeyPrefix + id.String() + ":" + string(stage) + ":" + string(ch)
}

// ClaimEnqueue sets the enqueue marker of a stage. It reports false when a
// job for that stage is already queued.
func (s *IdempotencyService) ClaimEnqueue(ctx context.Context, id uuid.UUID, stage model.Stage) (bool, error) {
	ok, err := s.redis.SetNX(s.enqueuedKey(id, stage), []byte(time.Now().UTC().Format(time.RFC3339)), s.config.EnqueuedTTL)
	if err != nil {
		return false, errors.Wrapf(err, "claim enqueue marker for %s", id)
	}
	return ok, nil
}

// ClearEnqueued lets the next evaluation pass enqueue the stage again.
func (s *IdempotencyService) ClearEnqueued(ctx context.Context, id uuid.UUID, stage model.Stage) error {
	if err := s.redis.Del(s.enqueuedKey(id, stage)); err != nil {
		logger.Warn("Failed to clear enqueue marker", "status_id", id, "stage", stage, "error", err)
		return err
	}
	return nil
}

func (s *IdempotencyService) IsEnqueued(ctx context.Context, id uuid.UUID, stage model.Stage) (bool, error) {
	n, err := s.redis.Exist(s.enqueuedKey(id, stage))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AcquireRowLock takes the processing lock of a status row.
func (s *IdempotencyService) AcquireRowLock(ctx context.Context, id uuid.UUID) (*RowLock, error) {
	key := s.config.LockKeyPrefix + id.String()
	token := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))

	acquired, err := s.redis.SetNX(key, token, s.config.LockTTL)
	if err != nil {
		logger.Error("Failed to acquire lock", "status_id", id, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}
	if !acquired {
		logger.Info("Lock already held by another consumer", "status_id", id)
		return nil, ErrLockAcquireFailed
	}

	logger.Debug("Processing lock acquired", "status_id", id, "lock_ttl", s.config.LockTTL)
	return &RowLock{StatusID: id, key: key, token: token, held: true, service: s}, nil
}

// Release drops the lock if it is still ours. A lock that expired and was
// taken by another consumer is left alone.
func (l *RowLock) Release() {
	if l == nil || !l.held {
		return
	}
	l.held = false
	ok, err := l.service.redis.DelIfEqual(l.key, l.token)
	if err != nil {
		logger.Warn("Failed to release lock", "status_id", l.StatusID, "error", err)
		return
	}
	if !ok {
		logger.Warn("Lock expired before release", "status_id", l.StatusID)
		return
	}
	logger.Debug("Processing lock released", "status_id", l.StatusID)
}

func (s *IdempotencyService) IsChannelProcessed(ctx context.Context, id uuid.UUID, stage model.Stage, ch model.Channel) (bool, error) {
	n, err := s.redis.Exist(s.processedKey(id, stage, ch))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *IdempotencyService) MarkChannelProcessed(ctx context.Context, id uuid.UUID, stage model.Stage, ch model.Channel) error {
	if err := s.redis.Set(s.processedKey(id, stage, ch), []byte("1"), s.config.ProcessedTTL); err != nil {
		logger.Error("Failed to mark channel as processed", "status_id", id, "stage", stage, "channel", ch, "error", err)
		return errors.Wrap(err, "mark channel processed")
	}
	return nil
}

// ClearStage removes every marker of a committed stage.
func (s *IdempotencyService) ClearStage(ctx context.Context, id uuid.UUID, stage model.Stage) {
	_ = s.ClearEnqueued(ctx, id, stage)
	for _, ch := range model.AllChannels {
		if err := s.redis.Del(s.processedKey(id, stage, ch)); err != nil {
			logger.Warn("Failed to clear processed marker", "status_id", id, "stage", stage, "channel", ch, "error", err)
		}
	}
}
