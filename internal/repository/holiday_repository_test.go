package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankitpro/review-followup/internal/model"
)

func TestHolidayRepository(t *testing.T) {
	repo := NewHolidayRepository(setupTestDB(t).DB)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "", []model.Holiday{{Date: "2024-12-25", Name: "Christmas"}}))
	require.NoError(t, repo.Upsert(ctx, "c1", []model.Holiday{
		{Date: "2024-07-04", Name: "Independence Day"},
		{Date: "2024-12-25", Name: "Closed"},
	}))
	require.NoError(t, repo.Upsert(ctx, "c2", []model.Holiday{{Date: "2024-11-28", Name: "Thanksgiving"}}))

	t.Run("list merges global and company", func(t *testing.T) {
		list, err := repo.List(ctx, "c1")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "2024-07-04", list[0].Date)
		assert.Equal(t, "", list[1].CompanyID)
		assert.Equal(t, "c1", list[2].CompanyID)
	})

	t.Run("upsert renames", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, "c1", []model.Holiday{{Date: "2024-07-04", Name: "July 4th"}}))
		list, err := repo.List(ctx, "c1")
		require.NoError(t, err)
		assert.Len(t, list, 3)
		assert.Equal(t, "July 4th", list[0].Name)
	})

	t.Run("dates within range", func(t *testing.T) {
		from := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
		dates, err := repo.Dates(ctx, "c1", from, to)
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-07-04", "2024-12-25"}, dates)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "c1", "2024-07-04"))
		assert.ErrorIs(t, repo.Delete(ctx, "c1", "2024-07-04"), model.ErrHolidayNotFound)
	})
}
