// Package calendar maps between the 4-week business calendar used for
// demand aggregation and ordinary calendar dates.
//
// Every month is split into four business weeks that start on days 1, 8,
// 15 and 22. Days 29-31 belong to week 4.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

// WeeksPerMonth is the number of business weeks in every month
const WeeksPerMonth = 4

var (
	// ErrInvalidWeek is returned for a business week outside 1-4
	ErrInvalidWeek = errors.New("invalid business week")
	// ErrInvalidDate is returned when year/month/day is not a real date
	ErrInvalidDate = errors.New("invalid calendar date")
)

// weekStartDay maps a business week to the first day of that week
var weekStartDay = [WeeksPerMonth + 1]int{0, 1, 8, 15, 22}

// WeekToDate returns the first day of the given business week in UTC.
func WeekToDate(year, month, week int) (time.Time, error) {
	if week < 1 || week > WeeksPerMonth {
		return time.Time{}, fmt.Errorf("%w: %d, must be 1-%d", ErrInvalidWeek, week, WeeksPerMonth)
	}
	if month < 1 || month > 12 || year < 1 {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d week %d", ErrInvalidDate, year, month, week)
	}

	day := weekStartDay[week]
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range values; a mismatch means the input was not a real date
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	return t, nil
}

// DateToWeek returns the business week (1-4) that contains t.
func DateToWeek(t time.Time) int {
	return min(WeeksPerMonth, (t.Day()-1)/7+1)
}

// DatesToWeeks applies DateToWeek to every date.
func DatesToWeeks(dates []time.Time) []int {
	weeks := make([]int, len(dates))
	for i, d := range dates {
		weeks[i] = DateToWeek(d)
	}
	return weeks
}

// Truncate returns midnight UTC of t's calendar day.
func Truncate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextWeekStart returns the first business-week start on or after t.
func NextWeekStart(t time.Time) time.Time {
	t = Truncate(t)
	for w := 1; w <= WeeksPerMonth; w++ {
		if weekStartDay[w] >= t.Day() {
			return time.Date(t.Year(), t.Month(), weekStartDay[w], 0, 0, 0, 0, time.UTC)
		}
	}
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

// AddWeeks moves a business-week start n business weeks forward.
// t is first aligned with NextWeekStart.
func AddWeeks(t time.Time, n int) time.Time {
	t = NextWeekStart(t)
	for i := 0; i < n; i++ {
		t = NextWeekStart(t.AddDate(0, 0, 1))
	}
	return t
}

// WeekStarts returns n consecutive business-week starts beginning at the
// first boundary on or after from.
func WeekStarts(from time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	dates := make([]time.Time, n)
	dates[0] = NextWeekStart(from)
	for i := 1; i < n; i++ {
		dates[i] = AddWeeks(dates[i-1], 1)
	}
	return dates
}

// WeeksBetween returns the number of whole 7-day weeks from earlier to later,
// measured on calendar days. Negative when later is before earlier.
func WeeksBetween(earlier, later time.Time) int {
	days := int(Truncate(later).Sub(Truncate(earlier)).Hours() / 24)
	if days < 0 {
		return -((-days) / 7)
	}
	return days / 7
}
