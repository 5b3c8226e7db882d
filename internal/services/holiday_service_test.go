package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rankitpro/review-followup/internal/model"
)

func TestHolidayService_Put(t *testing.T) {
	ctx := context.Background()

	t.Run("trims and stores valid dates", func(t *testing.T) {
		repo := new(MockHolidayRepository)
		repo.On("Upsert", ctx, "c1", []model.Holiday{{Date: "2024-12-25", Name: "Christmas"}}).Return(nil)

		err := NewHolidayService(repo).Put(ctx, "c1", []model.Holiday{{Date: " 2024-12-25 ", Name: "Christmas"}})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		repo := new(MockHolidayRepository)
		err := NewHolidayService(repo).Put(ctx, "c1", []model.Holiday{
			{Date: "2024-12-25"},
			{Date: "25/12/2024"},
			{Date: "2024-02-30"},
		})

		var cerr *model.ConfigurationError
		require.True(t, errors.As(err, &cerr))
		assert.Len(t, cerr.Issues, 2)
		repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHolidayService_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := new(MockHolidayRepository)
	repo.On("List", ctx, "c1").Return([]*model.Holiday{{CompanyID: "c1", Date: "2024-07-04"}}, nil)
	repo.On("Delete", ctx, "c1", "2024-07-04").Return(nil)
	repo.On("Delete", ctx, "c1", "2024-07-05").Return(model.ErrHolidayNotFound)

	svc := NewHolidayService(repo)
	list, err := svc.List(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.NoError(t, svc.Delete(ctx, "c1", "2024-07-04"))
	assert.ErrorIs(t, svc.Delete(ctx, "c1", "2024-07-05"), model.ErrHolidayNotFound)
}
