package followup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankitpro/review-followup/internal/model"
)

func TestLoadFactorTables_EmptyPathIsDefault(t *testing.T) {
	ft, err := LoadFactorTables("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFactorTables(), ft)
}

func TestLoadFactorTables_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timing.toml")
	doc := "day = [1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0]\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	ft, err := LoadFactorTables(path)
	require.NoError(t, err)
	assert.Equal(t, [7]float64{1, 2, 3, 4, 5, 6, 7}, ft.Day)
	assert.Equal(t, DefaultFactorTables().Hour, ft.Hour)
}

func TestLoadFactorTables_MissingFile(t *testing.T) {
	_, err := LoadFactorTables(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestParseFactorTables_Invalid(t *testing.T) {
	_, err := ParseFactorTables("hour = [1.0, 2.0]")
	assert.Error(t, err)

	_, err = ParseFactorTables("day = [1.0, 1.0, 1.0, -1.0, 1.0, 1.0, 1.0]")
	assert.Error(t, err)

	_, err = ParseFactorTables("day = [")
	assert.Error(t, err)
}

func TestWeightByEngagement(t *testing.T) {
	base := flatTables()
	monday10 := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	tuesday15 := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)

	var samples []model.EngagementSample
	for i := 0; i < 10; i++ {
		samples = append(samples, model.EngagementSample{SentAt: monday10, Clicked: true})
		samples = append(samples, model.EngagementSample{SentAt: tuesday15, Clicked: false})
	}

	assert.Equal(t, base, WeightByEngagement(base, samples, time.UTC, 50), "below minimum samples")

	out := WeightByEngagement(base, samples, time.UTC, 10)
	assert.Greater(t, out.Day[time.Monday], out.Day[time.Tuesday])
	assert.Greater(t, out.Hour[10], out.Hour[15])
	assert.Equal(t, 1.0, out.Hour[3], "unobserved hours keep base")

	var noClicks []model.EngagementSample
	for i := 0; i < 20; i++ {
		noClicks = append(noClicks, model.EngagementSample{SentAt: monday10})
	}
	assert.Equal(t, base, WeightByEngagement(base, noClicks, time.UTC, 10))
}
