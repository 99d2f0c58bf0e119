// Package timeutil provides UTC calendar-day utilities for SMC Quest Core.
// Streak continuity, daily bonuses and module deadlines are all defined in
// terms of UTC calendar dates, so every helper here normalizes to UTC.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// Now returns the current time in UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// ToUTC converts a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// Date creates a UTC time with the given date at midnight.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns the start of the day (00:00:00) in UTC.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in UTC.
func EndOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, 999999999, time.UTC)
}

// IsToday checks if the given time falls on today's UTC calendar date.
func IsToday(t time.Time) bool {
	return IsSameDay(t, Now())
}

// IsYesterday checks if the given time falls on yesterday's UTC calendar date.
func IsYesterday(t time.Time) bool {
	return IsSameDay(t, Now().AddDate(0, 0, -1))
}

// IsSameDay checks if two times are on the same UTC calendar date.
func IsSameDay(t1, t2 time.Time) bool {
	u1, u2 := t1.UTC(), t2.UTC()
	return u1.Year() == u2.Year() && u1.YearDay() == u2.YearDay()
}

// IsConsecutiveDay checks if t2 is the UTC calendar day right after t1.
func IsConsecutiveDay(t1, t2 time.Time) bool {
	nextDay := t1.UTC().AddDate(0, 0, 1)
	return IsSameDay(nextDay, t2)
}

// DaysBetween calculates the number of calendar days between two times.
func DaysBetween(t1, t2 time.Time) int {
	d1 := StartOfDay(t1)
	d2 := StartOfDay(t2)
	days := int(d2.Sub(d1).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// DaysSince calculates the number of days since the given time.
func DaysSince(t time.Time) int {
	now := StartOfDay(Now())
	then := StartOfDay(t)
	return int(now.Sub(then).Hours() / 24)
}

// HoursUntil returns the number of hours from now until t (negative if past).
func HoursUntil(t time.Time) float64 {
	return t.UTC().Sub(Now()).Hours()
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatRussianDate is the Russian date format (DD.MM.YYYY).
	FormatRussianDate = "02.01.2006"
	// FormatRussianDateTime is the Russian datetime format.
	FormatRussianDateTime = "02.01.2006 15:04"
)

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in UTC.
func FormatDateStr(t time.Time) string {
	return t.UTC().Format(FormatDate)
}

// FormatRussian formats a time in Russian format (DD.MM.YYYY) in UTC.
func FormatRussian(t time.Time) string {
	return t.UTC().Format(FormatRussianDate)
}

// ParseDate parses a date string (YYYY-MM-DD) as UTC midnight.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, time.UTC)
}

// FormatDeadline returns a human-readable deadline string for bot replies.
// Times in the past are reported as expired.
func FormatDeadline(deadline time.Time) string {
	hours := HoursUntil(deadline)
	switch {
	case hours < 0:
		return "дедлайн истёк"
	case hours < 1:
		return fmt.Sprintf("осталось %d мин", int(hours*60))
	case hours < 48:
		return fmt.Sprintf("осталось %d ч", int(hours))
	default:
		return fmt.Sprintf("осталось %d дн", int(hours/24))
	}
}

// FormatRelative returns a human-readable relative time string.
func FormatRelative(t time.Time) string {
	d := Now().Sub(t.UTC())
	if d < 0 {
		return FormatDeadline(t)
	}
	switch {
	case d < time.Minute:
		return "только что"
	case d < time.Hour:
		return fmt.Sprintf("%d мин назад", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d ч назад", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "вчера"
		}
		return fmt.Sprintf("%d дн назад", days)
	}
}
