package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/pkg/pg"
)

type DispatchLogRepository struct {
	*pg.DB
}

func NewDispatchLogRepository(db *pg.DB) *DispatchLogRepository {
	return &DispatchLogRepository{
		db,
	}
}

func (r *DispatchLogRepository) Create(ctx context.Context, log *model.DispatchLog) (*model.DispatchLog, error) {
	entity := toDispatchLogEntity(log)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toDispatchLogModel(entity), nil
}

func (r *DispatchLogRepository) ListByStatus(ctx context.Context, statusID uuid.UUID) ([]*model.DispatchLog, error) {
	var entities []*DispatchLogEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("status_id = ?", statusID).
		Order("attempted_at ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toDispatchLogModels(entities), nil
}

// CountFailures counts failed attempts of one stage.
func (r *DispatchLogRepository) CountFailures(ctx context.Context, statusID uuid.UUID, stage model.Stage) (int64, error) {
	var n int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&DispatchLogEntity{}).
		Where("status_id = ? AND stage = ? AND result = ?", statusID, string(stage), string(model.DispatchResultFailed)).
		Count(&n).
		Error
	return n, err
}
