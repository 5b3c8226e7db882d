package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/pkg/pg"
)

var openStatuses = []string{string(model.RequestStatusPending), string(model.RequestStatusInProgress)}

const responseWriteAttempts = 5

type StatusRepository struct {
	*pg.DB
}

func NewStatusRepository(db *pg.DB) *StatusRepository {
	return &StatusRepository{
		db,
	}
}

func (r *StatusRepository) Create(ctx context.Context, status *model.ReviewRequestStatus) (*model.ReviewRequestStatus, error) {
	entity := toStatusEntity(status)
	if entity.Version == 0 {
		entity.Version = 1
	}
	if entity.Status == "" {
		entity.Status = string(model.RequestStatusPending)
	}
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, model.ErrDuplicateCheckIn
		}
		return nil, err
	}
	return toStatusModel(entity), nil
}

func (r *StatusRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ReviewRequestStatus, error) {
	return r.first(r.Read(ctx).WithContext(ctx).Where("id = ?", id))
}

// GetForCompany loads a row only when it belongs to companyID.
func (r *StatusRepository) GetForCompany(ctx context.Context, companyID string, id uuid.UUID) (*model.ReviewRequestStatus, error) {
	return r.first(r.Read(ctx).WithContext(ctx).Where("id = ? AND company_id = ?", id, companyID))
}

func (r *StatusRepository) FindByCheckIn(ctx context.Context, companyID, checkInID string) (*model.ReviewRequestStatus, error) {
	return r.first(r.Read(ctx).WithContext(ctx).Where("company_id = ? AND check_in_id = ?", companyID, checkInID))
}

func (r *StatusRepository) first(q *gorm.DB) (*model.ReviewRequestStatus, error) {
	var entity ReviewRequestStatusEntity
	if err := q.First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrStatusNotFound
		}
		return nil, err
	}
	return toStatusModel(&entity), nil
}

// ListOpen pages through pending and in-progress rows ordered by id,
// starting after afterID. Pass uuid.Nil for the first page.
func (r *StatusRepository) ListOpen(ctx context.Context, afterID uuid.UUID, limit int) ([]*model.ReviewRequestStatus, error) {
	if limit <= 0 {
		limit = 500
	}
	q := r.Read(ctx).WithContext(ctx).Where("status IN ?", openStatuses)
	if afterID != uuid.Nil {
		q = q.Where("id > ?", afterID)
	}
	var entities []*ReviewRequestStatusEntity
	if err := q.Order("id ASC").Limit(limit).Find(&entities).Error; err != nil {
		return nil, err
	}
	return toStatusModels(entities), nil
}

func (r *StatusRepository) List(ctx context.Context, f model.StatusFilter) ([]*model.ReviewRequestStatus, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&ReviewRequestStatusEntity{}).
		Where("company_id = ?", f.CompanyID)

	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if f.CustomerID != nil && *f.CustomerID != "" {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at ASC"
	if f.Desc {
		order = "created_at DESC"
	}
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*ReviewRequestStatusEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toStatusModels(entities), total, nil
}

// MarkStageSent commits a confirmed dispatch. It only applies to an open row
// at the expected version whose stage is still unsent; otherwise it returns
// model.ErrConcurrentUpdate.
func (r *StatusRepository) MarkStageSent(ctx context.Context, id uuid.UUID, version int64, stage model.Stage, at time.Time) error {
	sentCol, sentAtCol := stageColumnNames(stage)
	if sentCol == "" {
		return errors.New("unknown stage " + string(stage))
	}
	result := r.Write(ctx).WithContext(ctx).
		Model(&ReviewRequestStatusEntity{}).
		Where("id = ? AND version = ?", id, version).
		Where(sentCol+" = ?", false).
		Where("status IN ?", openStatuses).
		Updates(map[string]any{
			sentCol:   true,
			sentAtCol: at,
			"status": gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END",
				string(model.RequestStatusPending), string(model.RequestStatusInProgress)),
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrConcurrentUpdate
	}
	return nil
}

// Complete closes an open row at the expected version.
func (r *StatusRepository) Complete(ctx context.Context, id uuid.UUID, version int64, at time.Time) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&ReviewRequestStatusEntity{}).
		Where("id = ? AND version = ?", id, version).
		Where("status IN ?", openStatuses).
		Updates(map[string]any{
			"status":       string(model.RequestStatusCompleted),
			"completed_at": at,
			"version":      gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrConcurrentUpdate
	}
	return nil
}

// RecordReviewSubmitted flags the review and completes an open row. An
// unsubscribed row keeps its status.
func (r *StatusRepository) RecordReviewSubmitted(ctx context.Context, companyID string, id uuid.UUID, at time.Time) (*model.ReviewRequestStatus, error) {
	return r.respond(ctx, companyID, id, func(current *model.ReviewRequestStatus) (map[string]any, error) {
		if current.ReviewSubmitted {
			return nil, nil
		}
		updates := map[string]any{
			"review_submitted":    true,
			"review_submitted_at": at,
			"version":             gorm.Expr("version + 1"),
		}
		if !current.Status.Terminal() {
			updates["status"] = string(model.RequestStatusCompleted)
			updates["completed_at"] = at
		}
		return updates, nil
	})
}

// Unsubscribe stops the sequence. A completed row cannot be unsubscribed.
func (r *StatusRepository) Unsubscribe(ctx context.Context, companyID string, id uuid.UUID, at time.Time) (*model.ReviewRequestStatus, error) {
	return r.respond(ctx, companyID, id, func(current *model.ReviewRequestStatus) (map[string]any, error) {
		switch current.Status {
		case model.RequestStatusUnsubscribed:
			return nil, nil
		case model.RequestStatusCompleted:
			return nil, model.ErrTerminalStatus
		}
		return map[string]any{
			"status":          string(model.RequestStatusUnsubscribed),
			"unsubscribed_at": at,
			"version":         gorm.Expr("version + 1"),
		}, nil
	})
}

// respond applies a customer response to the latest version of a row. A
// stage commit landing in between is retried against the reloaded row, so
// the response is never dropped. A nil update map leaves the row as is.
func (r *StatusRepository) respond(ctx context.Context, companyID string, id uuid.UUID, build func(*model.ReviewRequestStatus) (map[string]any, error)) (*model.ReviewRequestStatus, error) {
	for attempt := 1; ; attempt++ {
		current, err := r.GetForCompany(ctx, companyID, id)
		if err != nil {
			return nil, err
		}
		updates, err := build(current)
		if err != nil {
			return nil, err
		}
		if updates == nil {
			return current, nil
		}
		err = r.updateVersioned(ctx, current, updates)
		if err == nil {
			return r.GetByID(ctx, id)
		}
		if !errors.Is(err, model.ErrConcurrentUpdate) || attempt >= responseWriteAttempts {
			return nil, err
		}
	}
}

// RecordLinkClicked stores the first click only. It does not bump the
// version, so it never races a stage commit.
func (r *StatusRepository) RecordLinkClicked(ctx context.Context, id uuid.UUID, at time.Time) (*model.ReviewRequestStatus, error) {
	err := r.Write(ctx).WithContext(ctx).
		Model(&ReviewRequestStatusEntity{}).
		Where("id = ? AND link_clicked = ?", id, false).
		Updates(map[string]any{"link_clicked": true, "link_clicked_at": at}).
		Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *StatusRepository) updateVersioned(ctx context.Context, current *model.ReviewRequestStatus, updates map[string]any) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&ReviewRequestStatusEntity{}).
		Where("id = ? AND version = ?", current.ID, current.Version).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrConcurrentUpdate
	}
	return nil
}

// EngagementSamples returns initial sends since the given time and whether
// each was clicked, newest first.
func (r *StatusRepository) EngagementSamples(ctx context.Context, companyID string, since time.Time, limit int) ([]model.EngagementSample, error) {
	type row struct {
		InitialRequestSentAt time.Time
		LinkClicked          bool
	}
	if limit <= 0 {
		limit = 5000
	}
	var rows []row
	err := r.Read(ctx).WithContext(ctx).
		Model(&ReviewRequestStatusEntity{}).
		Select("initial_request_sent_at, link_clicked").
		Where("company_id = ? AND initial_request_sent = ? AND initial_request_sent_at >= ?", companyID, true, since).
		Order("initial_request_sent_at DESC").
		Limit(limit).
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}
	samples := make([]model.EngagementSample, len(rows))
	for i, rw := range rows {
		samples[i] = model.EngagementSample{SentAt: rw.InitialRequestSentAt, Clicked: rw.LinkClicked}
	}
	return samples, nil
}

func (r *StatusRepository) Stats(ctx context.Context, companyID string) (*model.StatusStats, error) {
	stats := &model.StatusStats{
		ByStatus:    map[model.RequestStatus]int64{},
		SentByStage: map[model.Stage]int64{},
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	err := r.Read(ctx).WithContext(ctx).
		Model(&ReviewRequestStatusEntity{}).
		Select("status, COUNT(*) AS count").
		Where("company_id = ?", companyID).
		Group("status").
		Scan(&counts).
		Error
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		stats.ByStatus[model.RequestStatus(c.Status)] = c.Count
	}

	count := func(col string) (int64, error) {
		var n int64
		err := r.Read(ctx).WithContext(ctx).
			Model(&ReviewRequestStatusEntity{}).
			Where("company_id = ? AND "+col+" = ?", companyID, true).
			Count(&n).
			Error
		return n, err
	}
	for _, stage := range model.Stages {
		col, _ := stageColumnNames(stage)
		n, err := count(col)
		if err != nil {
			return nil, err
		}
		stats.SentByStage[stage] = n
	}
	if stats.LinkClicked, err = count("link_clicked"); err != nil {
		return nil, err
	}
	if stats.ReviewsPosted, err = count("review_submitted"); err != nil {
		return nil, err
	}
	return stats, nil
}
