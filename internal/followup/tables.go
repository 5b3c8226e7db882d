package followup

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/rankitpro/review-followup/internal/model"
)

// FactorTables weight send slots by day of week (Sunday first) and hour of day.
// The defaults are heuristics, not measured response rates.
type FactorTables struct {
	Day  [7]float64
	Hour [24]float64
}

func DefaultFactorTables() FactorTables {
	return FactorTables{
		Day: [7]float64{0.60, 0.90, 1.00, 1.00, 0.95, 0.80, 0.65},
		Hour: [24]float64{
			0.05, 0.05, 0.05, 0.05, 0.05, 0.10, // 00-05
			0.20, 0.40, 0.60, 0.80, 1.00, 0.95, // 06-11
			0.85, 0.80, 0.90, 0.85, 0.80, 0.75, // 12-17
			0.85, 0.90, 0.70, 0.50, 0.30, 0.15, // 18-23
		},
	}
}

type tablesFile struct {
	Day  []float64 `toml:"day"`
	Hour []float64 `toml:"hour"`
}

// LoadFactorTables reads tables from a TOML file with optional `day` (7) and
// `hour` (24) arrays. Missing arrays keep their defaults; an empty path
// returns the defaults.
func LoadFactorTables(path string) (FactorTables, error) {
	tables := DefaultFactorTables()
	if path == "" {
		return tables, nil
	}
	var f tablesFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return tables, errors.Wrapf(err, "decode timing tables %s", path)
	}
	return mergeTables(tables, f)
}

// ParseFactorTables is LoadFactorTables over an in-memory document.
func ParseFactorTables(doc string) (FactorTables, error) {
	var f tablesFile
	if _, err := toml.Decode(doc, &f); err != nil {
		return DefaultFactorTables(), errors.Wrap(err, "decode timing tables")
	}
	return mergeTables(DefaultFactorTables(), f)
}

func mergeTables(tables FactorTables, f tablesFile) (FactorTables, error) {
	if f.Day != nil {
		if len(f.Day) != len(tables.Day) {
			return tables, errors.Errorf("day table needs %d entries, got %d", len(tables.Day), len(f.Day))
		}
		copy(tables.Day[:], f.Day)
	}
	if f.Hour != nil {
		if len(f.Hour) != len(tables.Hour) {
			return tables, errors.Errorf("hour table needs %d entries, got %d", len(tables.Hour), len(f.Hour))
		}
		copy(tables.Hour[:], f.Hour)
	}
	for _, v := range append(tables.Day[:], tables.Hour[:]...) {
		if v < 0 {
			return DefaultFactorTables(), errors.New("timing factors must not be negative")
		}
	}
	return tables, nil
}

// WeightByEngagement scales base by the observed click rate of each day and
// hour relative to the overall rate. Fewer than minSamples samples, or no
// clicks at all, leave base unchanged.
func WeightByEngagement(base FactorTables, samples []model.EngagementSample, loc *time.Location, minSamples int) FactorTables {
	if len(samples) == 0 || len(samples) < minSamples {
		return base
	}
	if loc == nil {
		loc = time.UTC
	}
	var (
		daySent, dayClicked   [7]float64
		hourSent, hourClicked [24]float64
		clicked               float64
	)
	for _, s := range samples {
		t := s.SentAt.In(loc)
		d, h := int(t.Weekday()), t.Hour()
		daySent[d]++
		hourSent[h]++
		if s.Clicked {
			dayClicked[d]++
			hourClicked[h]++
			clicked++
		}
	}
	if clicked == 0 {
		return base
	}
	overall := (clicked + 1) / (float64(len(samples)) + 2)

	out := base
	for d := range out.Day {
		if daySent[d] > 0 {
			out.Day[d] = base.Day[d] * ((dayClicked[d] + 1) / (daySent[d] + 2)) / overall
		}
	}
	for h := range out.Hour {
		if hourSent[h] > 0 {
			out.Hour[h] = base.Hour[h] * ((hourClicked[h] + 1) / (hourSent[h] + 2)) / overall
		}
	}
	return out
}
