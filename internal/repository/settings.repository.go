package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/pkg/pg"
)

type SettingsRepository struct {
	*pg.DB
}

func NewSettingsRepository(db *pg.DB) *SettingsRepository {
	return &SettingsRepository{
		db,
	}
}

func (r *SettingsRepository) Get(ctx context.Context, companyID string) (*model.FollowUpSettings, error) {
	var entity FollowUpSettingsEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("company_id = ?", companyID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrSettingsNotFound
		}
		return nil, err
	}
	return toSettingsModel(&entity), nil
}

// Upsert stores s as the company's only settings row, keeping the id and
// creation time of an existing row.
func (r *SettingsRepository) Upsert(ctx context.Context, s *model.FollowUpSettings) (*model.FollowUpSettings, error) {
	entity := toSettingsEntity(s)
	err := r.WithinTransaction(ctx, func(ctx context.Context) error {
		var existing FollowUpSettingsEntity
		err := r.Write(ctx).
			Where("company_id = ?", s.CompanyID).
			First(&existing).
			Error
		switch {
		case err == nil:
			entity.ID = existing.ID
			entity.CreatedAt = existing.CreatedAt
			return r.Write(ctx).Save(entity).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return r.Write(ctx).Create(entity).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return toSettingsModel(entity), nil
}

// ListActiveCompanyIDs returns companies whose settings are active.
func (r *SettingsRepository) ListActiveCompanyIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.Read(ctx).WithContext(ctx).
		Model(&FollowUpSettingsEntity{}).
		Where("active = ?", true).
		Order("company_id").
		Pluck("company_id", &ids).
		Error
	return ids, err
}
