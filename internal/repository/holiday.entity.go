package repository

import (
	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/pkg/pg"
)

type HolidayEntity struct {
	pg.Model
	CompanyID string `gorm:"column:company_id;not null;uniqueIndex:idx_holiday_company_date,priority:1"`
	Date      string `gorm:"column:holiday_date;type:varchar(10);not null;uniqueIndex:idx_holiday_company_date,priority:2"`
	Name      string `gorm:"column:name"`
}

func (HolidayEntity) TableName() string {
	return "holidays"
}

func toHolidayModel(e *HolidayEntity) *model.Holiday {
	return &model.Holiday{ID: e.ID, CompanyID: e.CompanyID, Date: e.Date, Name: e.Name}
}
