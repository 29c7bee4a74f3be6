// Package calendar resolves the month and week-of-month ranges that an
// analysis covers. Dates are civil dates represented as time.Time values at
// 00:00 UTC.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidMonth is returned for month strings not in YYYY/MM form.
	ErrInvalidMonth = errors.New("month must be in YYYY/MM format")
	// ErrInvalidWeek is returned for week numbers outside 1..6.
	ErrInvalidWeek = errors.New("week must be between 1 and 6")
	// ErrWeekOutOfRange matches any *WeekOutOfRangeError via errors.Is.
	ErrWeekOutOfRange = errors.New("week is out of range for the month")
)

// WeekOutOfRangeError reports a week whose first day falls after the end of
// the month.
type WeekOutOfRangeError struct {
	Week int
}

func (e *WeekOutOfRangeError) Error() string {
	return fmt.Sprintf("week %d is out of range for the month", e.Week)
}

func (e *WeekOutOfRangeError) Is(target error) bool {
	return target == ErrWeekOutOfRange
}

const (
	minWeek = 1
	maxWeek = 6
)

// Date returns the civil date y-m-d.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf returns the civil date of the wall-clock time t in t's location.
func DateOf(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// FormatDate formats a civil date as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format("2006-01-02")
}

// MonthLabel formats the month of d as YYYY/MM.
func MonthLabel(d time.Time) string {
	return d.Format("2006/01")
}

// ParseMonth parses a strict YYYY/MM string and returns the first day of
// that month.
func ParseMonth(value string) (time.Time, error) {
	yearStr, monthStr, ok := strings.Cut(value, "/")
	if !ok || len(yearStr) != 4 || len(monthStr) != 2 {
		return time.Time{}, ErrInvalidMonth
	}
	if !allDigits(yearStr) || !allDigits(monthStr) {
		return time.Time{}, ErrInvalidMonth
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, ErrInvalidMonth
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, ErrInvalidMonth
	}
	return Date(year, time.Month(month), 1), nil
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// MonthLastDay returns the last day of the month containing firstDay.
func MonthLastDay(firstDay time.Time) time.Time {
	// time.Date normalizes month 13 to January of the next year.
	nextMonth := Date(firstDay.Year(), firstDay.Month()+1, 1)
	return nextMonth.AddDate(0, 0, -1)
}

// IterDates returns every date from start to end inclusive. It returns an
// empty slice when start is after end.
func IterDates(start, end time.Time) []time.Time {
	start, end = DateOf(start), DateOf(end)
	dates := []time.Time{}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// WeekRange returns the first and last day of the given week of the month.
// Week 1 starts on the Sunday on or before firstDay; the range is not
// clamped to the month.
func WeekRange(firstDay time.Time, week int) (time.Time, time.Time, error) {
	if week < minWeek || week > maxWeek {
		return time.Time{}, time.Time{}, ErrInvalidWeek
	}
	week1Start := firstDay.AddDate(0, 0, -int(firstDay.Weekday()))
	start := week1Start.AddDate(0, 0, (week-1)*7)
	end := start.AddDate(0, 0, 6)
	if start.After(MonthLastDay(firstDay)) {
		return time.Time{}, time.Time{}, &WeekOutOfRangeError{Week: week}
	}
	return start, end, nil
}
