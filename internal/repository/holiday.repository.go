package repository

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/pkg/pg"
)

type HolidayRepository struct {
	*pg.DB
}

func NewHolidayRepository(db *pg.DB) *HolidayRepository {
	return &HolidayRepository{
		db,
	}
}

// List returns the global holidays and those of companyID, ordered by date.
func (r *HolidayRepository) List(ctx context.Context, companyID string) ([]*model.Holiday, error) {
	var entities []*HolidayEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("company_id IN ?", []string{"", companyID}).
		Order("holiday_date ASC, company_id ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	out := make([]*model.Holiday, len(entities))
	for i, e := range entities {
		out[i] = toHolidayModel(e)
	}
	return out, nil
}

// Dates returns the holiday dates that apply to companyID within [from, to].
func (r *HolidayRepository) Dates(ctx context.Context, companyID string, from, to time.Time) ([]string, error) {
	var dates []string
	err := r.Read(ctx).WithContext(ctx).
		Model(&HolidayEntity{}).
		Distinct("holiday_date").
		Where("company_id IN ?", []string{"", companyID}).
		Where("holiday_date >= ? AND holiday_date <= ?", from.Format(model.HolidayDateLayout), to.Format(model.HolidayDateLayout)).
		Order("holiday_date").
		Pluck("holiday_date", &dates).
		Error
	return dates, err
}

// Upsert inserts holidays or renames existing ones for the same date.
func (r *HolidayRepository) Upsert(ctx context.Context, companyID string, holidays []model.Holiday) error {
	if len(holidays) == 0 {
		return nil
	}
	entities := make([]*HolidayEntity, len(holidays))
	for i, h := range holidays {
		entities[i] = &HolidayEntity{CompanyID: companyID, Date: h.Date, Name: h.Name}
	}
	return r.Write(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}, {Name: "holiday_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).
		Create(&entities).
		Error
}

func (r *HolidayRepository) Delete(ctx context.Context, companyID, date string) error {
	result := r.Write(ctx).WithContext(ctx).
		Where("company_id = ? AND holiday_date = ?", companyID, date).
		Delete(&HolidayEntity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrHolidayNotFound
	}
	return nil
}
