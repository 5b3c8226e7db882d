package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/rankitpro/review-followup/internal/services"
	"github.com/rankitpro/review-followup/pkg/logger"
)

type PassRunner interface {
	RunPass(ctx context.Context) (*services.PassResult, error)
}

type Config struct {
	// Spec is a standard five-field cron expression or a descriptor such as "@every 5m".
	Spec        string
	Location    *time.Location
	PassTimeout time.Duration
}

// Scheduler triggers evaluation passes on a cron schedule. A pass that is
// still running when the next tick fires makes that tick a no-op.
type Scheduler struct {
	engine  *cron.Cron
	runner  PassRunner
	config  Config
	entry   cron.EntryID
	passes  atomic.Int64
	lastErr atomic.Value
}

func New(runner PassRunner, config Config) (*Scheduler, error) {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.PassTimeout <= 0 {
		config.PassTimeout = 4 * time.Minute
	}

	cronLogger := cron.PrintfLogger(logger.GetLogger())
	s := &Scheduler{
		runner: runner,
		config: config,
		engine: cron.New(
			cron.WithLocation(config.Location),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
	}

	id, err := s.engine.AddFunc(config.Spec, s.tick)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid cron spec %q", config.Spec)
	}
	s.entry = id
	return s, nil
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.PassTimeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		logger.Error("Scheduled evaluation pass failed", "error", err)
	}
}

// RunOnce runs a single pass bounded by the configured pass timeout.
func (s *Scheduler) RunOnce(ctx context.Context) (*services.PassResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.PassTimeout)
	defer cancel()

	s.passes.Add(1)
	res, err := s.runner.RunPass(ctx)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		s.lastErr.Store(err.Error())
		return res, errors.Wrap(err, "evaluation pass")
	}
	s.lastErr.Store("")
	return res, nil
}

func (s *Scheduler) Start() {
	s.engine.Start()
	logger.Info("Scheduler started", "spec", s.config.Spec, "location", s.config.Location.String(), "next", s.engine.Entry(s.entry).Next)
}

// Stop prevents new passes and waits for a running one, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	logger.Info("Stopping scheduler...")
	done := s.engine.Stop()
	select {
	case <-done.Done():
		logger.Info("Scheduler stopped", "passes", s.passes.Load())
	case <-ctx.Done():
		logger.Warn("Scheduler stop timed out with a pass still running")
	}
}

// Passes counts passes started since New.
func (s *Scheduler) Passes() int64 {
	return s.passes.Load()
}

// LastError is the error of the most recent pass, "" when it succeeded.
func (s *Scheduler) LastError() string {
	v, _ := s.lastErr.Load().(string)
	return v
}

// Next is the time of the next scheduled pass, zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.engine.Entry(s.entry).Next
}
