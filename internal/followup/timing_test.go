package followup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankitpro/review-followup/internal/model"
)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func plainSettings() *model.FollowUpSettings {
	s := DefaultSettings("c1")
	s.PreferredSendTime = "10:00"
	s.SendOnWeekends = false
	return s
}

func smartSettings() *model.FollowUpSettings {
	s := plainSettings()
	s.SmartTiming = model.SmartTiming{Enabled: true, AvoidLateNight: true}
	return s
}

func flatTables() FactorTables {
	var ft FactorTables
	for i := range ft.Day {
		ft.Day[i] = 1
	}
	for i := range ft.Hour {
		ft.Hour[i] = 1
	}
	return ft
}

func TestScheduleSendAt_Plain(t *testing.T) {
	tests := []struct {
		name      string
		due       time.Time
		preferred string
		weekends  bool
		want      time.Time
	}{
		{"same day before preferred time", at(2024, 3, 4, 8, 0), "10:00", false, at(2024, 3, 4, 10, 0)},
		{"preferred time passed rolls to next day", at(2024, 3, 4, 15, 0), "10:00", false, at(2024, 3, 5, 10, 0)},
		{"friday evening skips weekend", at(2024, 3, 8, 15, 0), "10:00", false, at(2024, 3, 11, 10, 0)},
		{"weekend allowed", at(2024, 3, 9, 9, 0), "10:00", true, at(2024, 3, 9, 10, 0)},
		{"no preferred time sends at due", at(2024, 3, 4, 15, 30), "", false, at(2024, 3, 4, 15, 30)},
		{"no preferred time on saturday keeps the due time on monday", at(2024, 3, 9, 9, 0), "", false, at(2024, 3, 11, 9, 0)},
		{"no preferred time late sunday", at(2024, 3, 10, 21, 15), "", false, at(2024, 3, 11, 21, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := plainSettings()
			s.PreferredSendTime = tt.preferred
			s.SendOnWeekends = tt.weekends
			got := ScheduleSendAt(tt.due, s, DefaultFactorTables(), nil)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestScheduleSendAt_SmartPicksBestHour(t *testing.T) {
	got := ScheduleSendAt(at(2024, 3, 4, 6, 0), smartSettings(), DefaultFactorTables(), nil)
	assert.True(t, at(2024, 3, 4, 10, 0).Equal(got), got)
}

func TestScheduleSendAt_SmartOnlyConsidersSlotsAfterDue(t *testing.T) {
	got := ScheduleSendAt(at(2024, 3, 4, 15, 0), smartSettings(), DefaultFactorTables(), nil)
	assert.True(t, at(2024, 3, 4, 19, 0).Equal(got), got)
}

func TestScheduleSendAt_SmartClampsToDue(t *testing.T) {
	due := at(2024, 3, 4, 10, 30)
	got := ScheduleSendAt(due, smartSettings(), DefaultFactorTables(), nil)
	assert.True(t, due.Equal(got), got)
}

func TestScheduleSendAt_SmartTieKeepsLowestHour(t *testing.T) {
	got := ScheduleSendAt(at(2024, 3, 4, 0, 0), smartSettings(), flatTables(), nil)
	assert.True(t, at(2024, 3, 4, 8, 0).Equal(got), got)

	s := smartSettings()
	s.SmartTiming.AvoidLateNight = false
	got = ScheduleSendAt(at(2024, 3, 4, 0, 0), s, flatTables(), nil)
	assert.True(t, at(2024, 3, 4, 0, 0).Equal(got), got)
}

func TestScheduleSendAt_SmartLateNightRollsToNextDay(t *testing.T) {
	got := ScheduleSendAt(at(2024, 3, 4, 21, 0), smartSettings(), flatTables(), nil)
	assert.True(t, at(2024, 3, 5, 8, 0).Equal(got), got)
}

func TestScheduleSendAt_SmartPreferredDays(t *testing.T) {
	s := smartSettings()
	s.SmartTiming.PreferWeekdays = true
	s.SmartTiming.PreferredDaysOfWeek = []int{2}
	got := ScheduleSendAt(at(2024, 3, 4, 6, 0), s, DefaultFactorTables(), nil)
	assert.True(t, at(2024, 3, 5, 10, 0).Equal(got), got)
}

func TestScheduleSendAt_WeekendOverrideBeatsPreferredDays(t *testing.T) {
	s := smartSettings()
	s.SmartTiming.PreferWeekdays = true
	s.SmartTiming.PreferredDaysOfWeek = []int{6}
	got := ScheduleSendAt(at(2024, 3, 4, 6, 0), s, DefaultFactorTables(), nil)
	assert.Equal(t, time.Monday, got.Weekday())
	assert.True(t, at(2024, 3, 4, 10, 0).Equal(got), got)
}

func TestScheduleSendAt_AvoidHolidays(t *testing.T) {
	s := smartSettings()
	s.SmartTiming.AvoidHolidays = true
	holidays := NewHolidaySet("2024-03-04", "2024-03-05")
	got := ScheduleSendAt(at(2024, 3, 4, 6, 0), s, DefaultFactorTables(), holidays)
	assert.True(t, at(2024, 3, 6, 10, 0).Equal(got), got)

	s.SmartTiming.AvoidHolidays = false
	got = ScheduleSendAt(at(2024, 3, 4, 6, 0), s, DefaultFactorTables(), holidays)
	assert.True(t, at(2024, 3, 4, 10, 0).Equal(got), got)
}

func TestScheduleSendAt_Timezone(t *testing.T) {
	s := plainSettings()
	s.Timezone = "America/New_York"
	due := at(2024, 3, 4, 12, 0) // 07:00 in New York
	got := ScheduleSendAt(due, s, DefaultFactorTables(), nil)
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 3, 4, 10, 0, 0, 0, ny).Equal(got), got)
}

func TestScheduleSendAt_NeverBeforeDue(t *testing.T) {
	configs := []*model.FollowUpSettings{plainSettings(), smartSettings()}
	weekendSmart := smartSettings()
	weekendSmart.SendOnWeekends = true
	weekendSmart.SmartTiming.PreferWeekdays = true
	weekendSmart.SmartTiming.PreferredDaysOfWeek = []int{0, 6}
	configs = append(configs, weekendSmart)

	for _, s := range configs {
		for h := 0; h < 24*9; h += 5 {
			due := at(2024, 3, 1, 0, 17).Add(time.Duration(h) * time.Hour)
			got := ScheduleSendAt(due, s, DefaultFactorTables(), NewHolidaySet("2024-03-06"))
			assert.False(t, got.Before(due), "due %s got %s", due, got)
		}
	}
}

func TestParseClock(t *testing.T) {
	h, m, ok := ParseClock("09:45")
	assert.True(t, ok)
	assert.Equal(t, 9, h)
	assert.Equal(t, 45, m)

	for _, bad := range []string{"", "9:45", "24:00", "12:60", "ab:cd", "12-30"} {
		_, _, ok := ParseClock(bad)
		assert.False(t, ok, bad)
	}
}
