package followup

import (
	"strconv"
	"strings"
	"time"

	"github.com/rankitpro/review-followup/internal/model"
)

const (
	// searchHorizonDays bounds the forward search for an admissible send day.
	searchHorizonDays = 14
	quietStartHour    = 8
	quietEndHour      = 20
)

// HolidaySet holds dates in model.HolidayDateLayout.
type HolidaySet map[string]struct{}

func NewHolidaySet(dates ...string) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return set
}

func (h HolidaySet) Contains(day time.Time) bool {
	if len(h) == 0 {
		return false
	}
	_, ok := h[day.Format(model.HolidayDateLayout)]
	return ok
}

// ScheduleSendAt turns the due time of a stage into the concrete send time.
// The result is never earlier than dueAt.
func ScheduleSendAt(dueAt time.Time, settings *model.FollowUpSettings, tables FactorTables, holidays HolidaySet) time.Time {
	loc := settings.Location()
	due := dueAt.In(loc)
	if settings.SmartTiming.Enabled {
		return smartSendAt(due, settings, tables, holidays)
	}
	return plainSendAt(due, settings)
}

func plainSendAt(due time.Time, settings *model.FollowUpSettings) time.Time {
	hour, minute, ok := ParseClock(settings.PreferredSendTime)
	for d := 0; d < searchHorizonDays; d++ {
		day := startOfDay(due).AddDate(0, 0, d)
		if !settings.SendOnWeekends && isWeekend(day) {
			continue
		}
		if !ok {
			// Without a preferred time a rolled-over send keeps the due
			// time of day.
			return time.Date(day.Year(), day.Month(), day.Day(), due.Hour(), due.Minute(), due.Second(), due.Nanosecond(), day.Location())
		}
		at := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
		if at.Before(due) {
			continue
		}
		return at
	}
	return due
}

func smartSendAt(due time.Time, settings *model.FollowUpSettings, tables FactorTables, holidays HolidaySet) time.Time {
	for _, restrict := range []bool{true, false} {
		for d := 0; d < searchHorizonDays; d++ {
			day := startOfDay(due).AddDate(0, 0, d)
			if !dayAdmissible(day, settings, holidays, restrict) {
				continue
			}
			if at, ok := bestSlot(day, due, settings.SmartTiming.AvoidLateNight, tables); ok {
				return at
			}
		}
	}
	return due
}

func dayAdmissible(day time.Time, settings *model.FollowUpSettings, holidays HolidaySet, restrictPreferred bool) bool {
	if !settings.SendOnWeekends && isWeekend(day) {
		return false
	}
	st := settings.SmartTiming
	if st.AvoidHolidays && holidays.Contains(day) {
		return false
	}
	if restrictPreferred && st.PreferWeekdays && !preferredDay(st.PreferredDaysOfWeek, day.Weekday()) {
		return false
	}
	return true
}

// bestSlot picks the highest scoring hour of day whose slot ends after due.
// Equal scores keep the earlier hour.
func bestSlot(day, due time.Time, avoidLateNight bool, tables FactorTables) (time.Time, bool) {
	from, to := 0, 24
	if avoidLateNight {
		from, to = quietStartHour, quietEndHour
	}
	var (
		best  time.Time
		score = -1.0
	)
	dayFactor := tables.Day[int(day.Weekday())]
	for h := from; h < to; h++ {
		start := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, day.Location())
		if !start.Add(time.Hour).After(due) {
			continue
		}
		if s := dayFactor * tables.Hour[h]; s > score {
			score = s
			best = start
		}
	}
	if score < 0 {
		return time.Time{}, false
	}
	return laterOf(best, due), true
}

func preferredDay(days []int, wd time.Weekday) bool {
	if len(days) == 0 {
		return wd != time.Saturday && wd != time.Sunday
	}
	for _, d := range days {
		if d == int(wd) {
			return true
		}
	}
	return false
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// ParseClock parses a 24-hour "HH:MM" string.
func ParseClock(s string) (hour, minute int, ok bool) {
	hh, mm, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found || len(hh) != 2 || len(mm) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
