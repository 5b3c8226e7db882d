package services

import (
	"context"
	"strings"
	"time"

	"github.com/rankitpro/review-followup/internal/model"
)

type HolidayRepository interface {
	List(ctx context.Context, companyID string) ([]*model.Holiday, error)
	Upsert(ctx context.Context, companyID string, holidays []model.Holiday) error
	Delete(ctx context.Context, companyID, date string) error
}

type HolidayService struct {
	repo HolidayRepository
}

func NewHolidayService(repo HolidayRepository) *HolidayService {
	return &HolidayService{repo: repo}
}

func (s *HolidayService) List(ctx context.Context, companyID string) ([]*model.Holiday, error) {
	return s.repo.List(ctx, companyID)
}

// Put stores holidays for companyID. Every date must be YYYY-MM-DD.
func (s *HolidayService) Put(ctx context.Context, companyID string, holidays []model.Holiday) error {
	cerr := &model.ConfigurationError{}
	for i := range holidays {
		holidays[i].Date = strings.TrimSpace(holidays[i].Date)
		if _, err := time.Parse(model.HolidayDateLayout, holidays[i].Date); err != nil {
			cerr.Add("holidays["+holidays[i].Date+"]", "date must be YYYY-MM-DD")
		}
	}
	if err := cerr.Err(); err != nil {
		return err
	}
	return s.repo.Upsert(ctx, companyID, holidays)
}

func (s *HolidayService) Delete(ctx context.Context, companyID, date string) error {
	return s.repo.Delete(ctx, companyID, date)
}
