package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rankitpro/review-followup/internal/followup"
	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/pkg/logger"
	"github.com/rankitpro/review-followup/pkg/prom"
	"github.com/rankitpro/review-followup/pkg/worker"
	"golang.org/x/sync/singleflight"
)

const ReasonUnreachable = "unreachable"

type OpenStatusRepository interface {
	ListOpen(ctx context.Context, afterID uuid.UUID, limit int) ([]*model.ReviewRequestStatus, error)
	Complete(ctx context.Context, id uuid.UUID, version int64, at time.Time) error
}

// EnqueueGuard dedupes dispatch jobs per status row and stage.
type EnqueueGuard interface {
	ClaimEnqueue(ctx context.Context, id uuid.UUID, stage model.Stage) (bool, error)
	ClearEnqueued(ctx context.Context, id uuid.UUID, stage model.Stage) error
}

type JobPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

type EvaluationConfig struct {
	PageSize int
	Workers  int
}

// PassResult counts what one evaluation pass did.
type PassResult struct {
	Evaluated  int64 `json:"evaluated"`
	Enqueued   int64 `json:"enqueued"`
	Waiting    int64 `json:"waiting"`
	Completed  int64 `json:"completed"`
	Violations int64 `json:"violations"`
	Skipped    int64 `json:"skipped"`
	Errors     int64 `json:"errors"`
}

// PlannedRow is one row of a dry run.
type PlannedRow struct {
	StatusID  uuid.UUID `json:"statusId"`
	CompanyID string    `json:"companyId"`
	Plan
}

// EvaluationService runs the periodic pass over open status rows: it
// completes finished or inconsistent rows and enqueues stages whose send
// time has come.
type EvaluationService struct {
	statuses  OpenStatusRepository
	planner   *Planner
	guard     EnqueueGuard
	publisher JobPublisher
	config    EvaluationConfig
	now       func() time.Time
}

func NewEvaluationService(statuses OpenStatusRepository, planner *Planner, guard EnqueueGuard, publisher JobPublisher, config EvaluationConfig) *EvaluationService {
	if config.PageSize <= 0 {
		config.PageSize = 500
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	return &EvaluationService{
		statuses:  statuses,
		planner:   planner,
		guard:     guard,
		publisher: publisher,
		config:    config,
		now:       time.Now,
	}
}

type passCounters struct {
	evaluated, enqueued, waiting, completed, violations, skipped, errors atomic.Int64
}

func (c *passCounters) result() *PassResult {
	return &PassResult{
		Evaluated:  c.evaluated.Load(),
		Enqueued:   c.enqueued.Load(),
		Waiting:    c.waiting.Load(),
		Completed:  c.completed.Load(),
		Violations: c.violations.Load(),
		Skipped:    c.skipped.Load(),
		Errors:     c.errors.Load(),
	}
}

// planCache loads each company's plan once per pass. Concurrent callers for
// one company share a single load; other companies are not held up by it.
type planCache struct {
	planner *Planner
	now     time.Time
	loads   singleflight.Group
	mu      sync.RWMutex
	plans   map[string]*CompanyPlan
}

func (c *planCache) cached(companyID string) (*CompanyPlan, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp, ok := c.plans[companyID]
	return cp, ok
}

func (c *planCache) get(ctx context.Context, companyID string) (*CompanyPlan, error) {
	if cp, ok := c.cached(companyID); ok {
		return cp, nil
	}
	v, err, _ := c.loads.Do(companyID, func() (any, error) {
		if cp, ok := c.cached(companyID); ok {
			return cp, nil
		}
		cp, err := c.planner.ForCompany(ctx, companyID, c.now)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.plans[companyID] = cp
		c.mu.Unlock()
		return cp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CompanyPlan), nil
}

// RunPass evaluates every open row once and applies the decisions.
func (s *EvaluationService) RunPass(ctx context.Context) (*PassResult, error) {
	start := time.Now()
	counters := &passCounters{}
	err := s.walk(ctx, func(ctx context.Context, now time.Time, cp *CompanyPlan, st *model.ReviewRequestStatus) {
		s.apply(ctx, now, cp, st, counters)
	}, counters)

	res := counters.result()
	prom.ObservePassDuration(time.Since(start).Seconds())
	logger.Info("Evaluation pass finished",
		"evaluated", res.Evaluated,
		"enqueued", res.Enqueued,
		"waiting", res.Waiting,
		"completed", res.Completed,
		"violations", res.Violations,
		"skipped", res.Skipped,
		"errors", res.Errors,
		"duration", time.Since(start))
	return res, err
}

// DryRun evaluates every open row without touching storage or the queue.
func (s *EvaluationService) DryRun(ctx context.Context) ([]PlannedRow, error) {
	var (
		mu   sync.Mutex
		rows []PlannedRow
	)
	err := s.walk(ctx, func(_ context.Context, now time.Time, cp *CompanyPlan, st *model.ReviewRequestStatus) {
		row := PlannedRow{StatusID: st.ID, CompanyID: st.CompanyID, Plan: cp.Evaluate(st, now)}
		mu.Lock()
		rows = append(rows, row)
		mu.Unlock()
	}, &passCounters{})
	return rows, err
}

type evalJob struct {
	ctx    context.Context
	status *model.ReviewRequestStatus
}

func (s *EvaluationService) walk(ctx context.Context, visit func(context.Context, time.Time, *CompanyPlan, *model.ReviewRequestStatus), counters *passCounters) error {
	now := s.now()
	cache := &planCache{planner: s.planner, now: now, plans: make(map[string]*CompanyPlan)}

	wm := worker.NewWorkerManager(s.config.Workers*2, s.config.Workers)
	wm.SetWorker(func(idx int, job interface{}) {
		j := job.(evalJob)
		cp, err := cache.get(j.ctx, j.status.CompanyID)
		if err != nil {
			counters.errors.Add(1)
			logger.Error("Failed to load company plan", "worker", idx, "company_id", j.status.CompanyID, "error", err)
			return
		}
		counters.evaluated.Add(1)
		visit(j.ctx, now, cp, j.status)
	})
	wm.Start(ctx)
	defer wm.Exit()

	afterID := uuid.Nil
	for {
		page, err := s.statuses.ListOpen(ctx, afterID, s.config.PageSize)
		if err != nil {
			return errors.Wrap(err, "list open statuses")
		}
		for _, st := range page {
			if !wm.Enqueue(ctx, evalJob{ctx: ctx, status: st}) {
				return ctx.Err()
			}
		}
		if len(page) < s.config.PageSize {
			return nil
		}
		afterID = page[len(page)-1].ID
	}
}

func (s *EvaluationService) apply(ctx context.Context, now time.Time, cp *CompanyPlan, st *model.ReviewRequestStatus, counters *passCounters) {
	plan := cp.Evaluate(st, now)
	prom.RecordDecision(string(plan.Action))

	switch plan.Action {
	case followup.ActionComplete:
		if plan.Violation != nil {
			counters.violations.Add(1)
			prom.RecordIntegrityViolation()
			logger.Error("Data integrity violation, completing status",
				"status_id", st.ID, "company_id", st.CompanyID, "stage", plan.Violation.Stage, "missing", plan.Violation.Missing)
		}
		s.complete(ctx, now, st, plan.Reason, counters)

	case followup.ActionWait, followup.ActionSend:
		if !cp.Reachable(st) {
			s.complete(ctx, now, st, ReasonUnreachable, counters)
			return
		}
		if plan.Action == followup.ActionWait || plan.SendAt.After(now) {
			counters.waiting.Add(1)
			return
		}
		s.enqueue(ctx, now, st, plan, counters)
	}
}

func (s *EvaluationService) complete(ctx context.Context, now time.Time, st *model.ReviewRequestStatus, reason string, counters *passCounters) {
	err := s.statuses.Complete(ctx, st.ID, st.Version, now)
	switch {
	case err == nil:
		counters.completed.Add(1)
		logger.Info("Status completed", "status_id", st.ID, "company_id", st.CompanyID, "reason", reason)
	case errors.Is(err, model.ErrConcurrentUpdate):
		counters.skipped.Add(1)
		logger.Debug("Status changed during pass, skipping", "status_id", st.ID)
	default:
		counters.errors.Add(1)
		logger.Error("Failed to complete status", "status_id", st.ID, "error", err)
	}
}

func (s *EvaluationService) enqueue(ctx context.Context, now time.Time, st *model.ReviewRequestStatus, plan Plan, counters *passCounters) {
	claimed, err := s.guard.ClaimEnqueue(ctx, st.ID, plan.Stage)
	if err != nil {
		counters.errors.Add(1)
		logger.Error("Failed to claim enqueue marker", "status_id", st.ID, "stage", plan.Stage, "error", err)
		return
	}
	if !claimed {
		counters.skipped.Add(1)
		return
	}

	job := model.DispatchJob{
		StatusID:   st.ID,
		CompanyID:  st.CompanyID,
		Stage:      plan.Stage,
		DueAt:      plan.DueAt,
		SendAt:     *plan.SendAt,
		EnqueuedAt: now,
	}
	if _, err := s.publisher.PublishJSON(ctx, job, map[string]string{"company_id": st.CompanyID, "stage": string(plan.Stage)}); err != nil {
		counters.errors.Add(1)
		logger.Error("Failed to publish dispatch job", "status_id", st.ID, "stage", plan.Stage, "error", err)
		_ = s.guard.ClearEnqueued(ctx, st.ID, plan.Stage)
		return
	}

	counters.enqueued.Add(1)
	prom.RecordEnqueued(string(plan.Stage))
	logger.Debug("Dispatch job enqueued", "status_id", st.ID, "company_id", st.CompanyID, "stage", plan.Stage, "due_at", plan.DueAt)
}
