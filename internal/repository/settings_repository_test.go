package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankitpro/review-followup/internal/followup"
	"github.com/rankitpro/review-followup/internal/model"
)

func TestSettingsRepository_GetNotFound(t *testing.T) {
	repo := NewSettingsRepository(setupTestDB(t).DB)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrSettingsNotFound)
}

func TestSettingsRepository_Upsert(t *testing.T) {
	repo := NewSettingsRepository(setupTestDB(t).DB)
	ctx := context.Background()

	s := followup.DefaultSettings("company-1")
	s.CompanyName = "Acme Plumbing"
	s.TargetServiceTypes = []string{"plumbing", "drain"}
	s.TargetMinimumInvoiceAmount = decimal.RequireFromString("125.50")
	s.SmartTiming.Enabled = true
	s.SmartTiming.PreferredDaysOfWeek = []int{1, 3}

	t.Run("insert", func(t *testing.T) {
		saved, err := repo.Upsert(ctx, s)
		require.NoError(t, err)
		assert.NotZero(t, saved.ID)

		got, err := repo.Get(ctx, "company-1")
		require.NoError(t, err)
		assert.Equal(t, saved.ID, got.ID)
		assert.Equal(t, "Acme Plumbing", got.CompanyName)
		assert.Equal(t, []string{"plumbing", "drain"}, got.TargetServiceTypes)
		assert.True(t, decimal.RequireFromString("125.50").Equal(got.TargetMinimumInvoiceAmount))
		assert.Equal(t, []int{1, 3}, got.SmartTiming.PreferredDaysOfWeek)
		assert.True(t, got.SmartTiming.Enabled)
		assert.Equal(t, s.FirstFollowUp, got.FirstFollowUp)
		assert.Equal(t, s.Initial.SubjectTemplate, got.Initial.SubjectTemplate)
	})

	t.Run("update keeps id", func(t *testing.T) {
		before, err := repo.Get(ctx, "company-1")
		require.NoError(t, err)

		s.InitialDelayDays = 4
		s.FinalFollowUp.Enabled = true
		_, err = repo.Upsert(ctx, s)
		require.NoError(t, err)

		after, err := repo.Get(ctx, "company-1")
		require.NoError(t, err)
		assert.Equal(t, before.ID, after.ID)
		assert.Equal(t, 4, after.InitialDelayDays)
		assert.True(t, after.FinalFollowUp.Enabled)
	})

	t.Run("active companies", func(t *testing.T) {
		other := followup.DefaultSettings("company-2")
		other.Active = false
		_, err := repo.Upsert(ctx, other)
		require.NoError(t, err)

		ids, err := repo.ListActiveCompanyIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"company-1"}, ids)
	})
}
