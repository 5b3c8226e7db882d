package processor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rankitpro/review-followup/internal/followup"
	gateway "github.com/rankitpro/review-followup/internal/gateways"
	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/internal/queue"
	"github.com/rankitpro/review-followup/pkg/logger"
	"github.com/rankitpro/review-followup/pkg/prom"
)

const commitAttempts = 3

type StatusRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ReviewRequestStatus, error)
	MarkStageSent(ctx context.Context, id uuid.UUID, version int64, stage model.Stage, at time.Time) error
}

type SettingsRepository interface {
	Get(ctx context.Context, companyID string) (*model.FollowUpSettings, error)
}

type DispatchLogRepository interface {
	Create(ctx context.Context, log *model.DispatchLog) (*model.DispatchLog, error)
}

// Sender delivers one rendered message. Errors are *model.DispatchFailure.
type Sender interface {
	Send(ctx context.Context, req *gateway.SendRequest) (*gateway.SendResponse, error)
}

type DispatchProcessor struct {
	sender          Sender
	statuses        StatusRepository
	settings        SettingsRepository
	logs            DispatchLogRepository
	idempotency     *IdempotencyService
	trackingBaseURL string
	now             func() time.Time
}

func NewDispatchProcessor(sender Sender, statuses StatusRepository, settings SettingsRepository, logs DispatchLogRepository, idempotency *IdempotencyService, trackingBaseURL string) *DispatchProcessor {
	return &DispatchProcessor{
		sender:          sender,
		statuses:        statuses,
		settings:        settings,
		logs:            logs,
		idempotency:     idempotency,
		trackingBaseURL: trackingBaseURL,
		now:             time.Now,
	}
}

func (p *DispatchProcessor) GetType() string {
	return "dispatch"
}

// ReviewLink is the tracked link rendered into {{reviewLink}}.
func ReviewLink(baseURL string, statusID uuid.UUID) string {
	return baseURL + "/r/" + statusID.String()
}

// Process sends the stage named by a dispatch job. The stage is committed
// only after every reachable channel has been accepted by a provider;
// otherwise the enqueue marker is cleared so the next pass retries it.
func (p *DispatchProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	var job model.DispatchJob
	if err := json.Unmarshal(queueMessage.Data, &job); err != nil {
		logger.Error("Failed to unmarshal dispatch job", "queue_message_id", queueMessage.ID, "error", err)
		return errors.Wrap(err, "unmarshal dispatch job")
	}

	lock, err := p.idempotency.AcquireRowLock(ctx, job.StatusID)
	if err != nil {
		return err
	}
	defer lock.Release()

	status, err := p.statuses.GetByID(ctx, job.StatusID)
	if err != nil {
		if errors.Is(err, model.ErrStatusNotFound) {
			logger.Warn("Dispatch job for unknown status, dropping", "status_id", job.StatusID)
			return nil
		}
		return errors.Wrap(err, "load status")
	}

	settings, err := p.loadSettings(ctx, status.CompanyID)
	if err != nil {
		return err
	}

	now := p.now()
	decision := followup.SelectStage(status, settings, now)
	if decision.Action != followup.ActionSend || decision.Stage != job.Stage {
		logger.Info("Dropping stale dispatch job",
			"status_id", status.ID,
			"company_id", status.CompanyID,
			"job_stage", job.Stage,
			"action", decision.Action,
			"stage", decision.Stage,
			"reason", decision.Reason)
		_ = p.idempotency.ClearEnqueued(ctx, status.ID, job.Stage)
		return nil
	}

	values := followup.ValuesFor(status, settings, ReviewLink(p.trackingBaseURL, status.ID))
	messages := followup.RenderStage(settings, job.Stage, values)

	delivered, failed := 0, 0
	for _, msg := range messages {
		to := status.Destination(msg.Channel)
		if to == "" {
			logger.Debug("No destination for channel, skipping", "status_id", status.ID, "channel", msg.Channel)
			continue
		}

		done, err := p.idempotency.IsChannelProcessed(ctx, status.ID, job.Stage, msg.Channel)
		if err != nil {
			logger.Warn("Failed to check processed marker", "status_id", status.ID, "channel", msg.Channel, "error", err)
		} else if done {
			logger.Info("Channel already delivered for stage, skipping", "status_id", status.ID, "stage", job.Stage, "channel", msg.Channel)
			delivered++
			continue
		}

		if p.dispatch(ctx, status, job.Stage, msg, to) {
			delivered++
		} else {
			failed++
		}
	}

	if failed > 0 || delivered == 0 {
		if delivered == 0 && failed == 0 {
			logger.Warn("Stage has no reachable channel", "status_id", status.ID, "stage", job.Stage)
		}
		_ = p.idempotency.ClearEnqueued(ctx, status.ID, job.Stage)
		return nil
	}

	sentAt := p.now()
	if err := p.commit(ctx, status, job.Stage, sentAt); err != nil {
		return err
	}
	p.idempotency.ClearStage(ctx, status.ID, job.Stage)

	prom.RecordStageSent(string(job.Stage), sentAt.Sub(decision.DueAt).Seconds())
	logger.Info("Stage sent",
		"status_id", status.ID,
		"company_id", status.CompanyID,
		"stage", job.Stage,
		"channels", delivered,
		"due_at", decision.DueAt)
	return nil
}

func (p *DispatchProcessor) loadSettings(ctx context.Context, companyID string) (*model.FollowUpSettings, error) {
	s, err := p.settings.Get(ctx, companyID)
	if errors.Is(err, model.ErrSettingsNotFound) {
		return followup.DefaultSettings(companyID), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load settings")
	}
	return s, nil
}

// dispatch sends one channel message and records the attempt.
func (p *DispatchProcessor) dispatch(ctx context.Context, status *model.ReviewRequestStatus, stage model.Stage, msg followup.RenderedMessage, to string) bool {
	start := time.Now()
	resp, err := p.sender.Send(ctx, &gateway.SendRequest{
		MessageID: status.ID.String() + ":" + string(stage) + ":" + string(msg.Channel),
		Channel:   msg.Channel,
		To:        to,
		Subject:   msg.Subject,
		Body:      msg.Body,
	})
	elapsed := time.Since(start).Seconds()

	entry := &model.DispatchLog{
		StatusID:    status.ID,
		Stage:       stage,
		Channel:     msg.Channel,
		Destination: to,
		AttemptedAt: p.now(),
	}
	if resp != nil {
		entry.Provider = resp.Provider
	}

	if err != nil {
		var failure *model.DispatchFailure
		if errors.As(err, &failure) {
			entry.Provider = failure.Provider
		}
		entry.Result = model.DispatchResultFailed
		entry.Error = err.Error()
		logger.Error("Dispatch failed", "status_id", status.ID, "stage", stage, "channel", msg.Channel, "provider", entry.Provider, "error", err)
	} else {
		entry.Result = model.DispatchResultSent
	}
	prom.RecordDispatch(string(msg.Channel), entry.Provider, err == nil, elapsed)

	if _, logErr := p.logs.Create(ctx, entry); logErr != nil {
		logger.Error("Failed to save dispatch log", "status_id", status.ID, "channel", msg.Channel, "error", logErr)
	}

	if err != nil {
		return false
	}
	if markErr := p.idempotency.MarkChannelProcessed(ctx, status.ID, stage, msg.Channel); markErr != nil {
		logger.Error("Failed to mark channel delivered", "status_id", status.ID, "channel", msg.Channel, "error", markErr)
	}
	return true
}

// commit records stage as sent. A concurrent writer that left the stage
// unsent and the row open is retried against the fresh version.
func (p *DispatchProcessor) commit(ctx context.Context, status *model.ReviewRequestStatus, stage model.Stage, at time.Time) error {
	current := status
	for attempt := 1; ; attempt++ {
		err := p.statuses.MarkStageSent(ctx, current.ID, current.Version, stage, at)
		if err == nil {
			return nil
		}
		if !errors.Is(err, model.ErrConcurrentUpdate) {
			return errors.Wrap(err, "mark stage sent")
		}

		fresh, loadErr := p.statuses.GetByID(ctx, current.ID)
		if loadErr != nil {
			return errors.Wrap(loadErr, "reload status after concurrent update")
		}
		if sent, _ := fresh.StageSent(stage); sent || fresh.Status.Terminal() {
			logger.Warn("Status changed while dispatching, stage not committed",
				"status_id", current.ID, "stage", stage, "status", fresh.Status, "already_sent", sent)
			return nil
		}
		if attempt >= commitAttempts {
			return errors.Wrapf(err, "mark stage sent after %d attempts", attempt)
		}
		current = fresh
	}
}
