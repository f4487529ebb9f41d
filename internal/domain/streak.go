package domain

import "time"

// CalendarDay is a date in the learner's configured time zone, stored as
// midnight UTC so that day arithmetic is free of DST shifts.
type CalendarDay = time.Time

// DayOf returns the calendar day t falls on in loc.
func DayOf(t time.Time, loc *time.Location) CalendarDay {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CurrentStreak counts consecutive active days ending today, or ending
// yesterday when today has no activity yet. Any other gap yields zero.
// activeDays must be values produced by DayOf; order and duplicates do not matter.
func CurrentStreak(activeDays []CalendarDay, today CalendarDay) int {
	active := make(map[int64]struct{}, len(activeDays))
	for _, d := range activeDays {
		active[d.Unix()] = struct{}{}
	}
	isActive := func(d CalendarDay) bool {
		_, ok := active[d.Unix()]
		return ok
	}

	day := today
	if !isActive(day) {
		day = day.AddDate(0, 0, -1)
		if !isActive(day) {
			return 0
		}
	}

	streak := 0
	for {
		if !isActive(day) {
			return streak
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}
