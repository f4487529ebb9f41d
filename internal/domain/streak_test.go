package domain

import (
	"testing"
	"time"
)

func TestCurrentStreak(t *testing.T) {
	t.Parallel()
	today := DayOf(time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC), time.UTC)
	day := func(offset int) CalendarDay { return today.AddDate(0, 0, offset) }

	testCases := []struct {
		name     string
		days     []CalendarDay
		expected int
	}{
		{"no activity", nil, 0},
		{"today only", []CalendarDay{day(0)}, 1},
		{"today and two before", []CalendarDay{day(0), day(-1), day(-2)}, 3},
		{"yesterday grace with gap", []CalendarDay{day(-1), day(-3)}, 1},
		{"gap of two days breaks the streak", []CalendarDay{day(-2), day(-3)}, 0},
		{"duplicates and order do not matter", []CalendarDay{day(-2), day(0), day(-1), day(0)}, 3},
		{"activity older than the gap ignored", []CalendarDay{day(0), day(-2), day(-3)}, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CurrentStreak(tc.days, today); got != tc.expected {
				t.Errorf("Expected streak %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestDayOfUsesLocation(t *testing.T) {
	t.Parallel()
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}

	// 20:00 UTC on the 1st is already the 2nd in Tokyo
	ts := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	if got := DayOf(ts, tokyo); got.Day() != 2 {
		t.Errorf("Expected day 2 in Tokyo, got %v", got)
	}
	if got := DayOf(ts, nil); got.Day() != 1 {
		t.Errorf("Expected day 1 in UTC, got %v", got)
	}
}

func TestCurrentStreakAcrossDST(t *testing.T) {
	t.Parallel()
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("time zone data unavailable: %v", err)
	}

	// 2024-03-10 is the spring-forward day in New York
	days := []CalendarDay{
		DayOf(time.Date(2024, 3, 9, 23, 30, 0, 0, ny), ny),
		DayOf(time.Date(2024, 3, 10, 1, 30, 0, 0, ny), ny),
		DayOf(time.Date(2024, 3, 11, 0, 15, 0, 0, ny), ny),
	}
	today := DayOf(time.Date(2024, 3, 11, 12, 0, 0, 0, ny), ny)
	if got := CurrentStreak(days, today); got != 3 {
		t.Errorf("Expected streak 3, got %d", got)
	}
}
