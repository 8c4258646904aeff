package normalize

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// DateFallback selects what an unparseable date becomes.
type DateFallback int

const (
	// DateFallbackNone yields no value.
	DateFallbackNone DateFallback = iota
	// DateFallbackToday yields the current business date.
	DateFallbackToday
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2006年1月2日",
	"20060102",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/1/2 15:04",
}

// excelEpoch is day zero of spreadsheet serial dates.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Date parses common date representations into a UTC-midnight calendar
// date. Empty or unparseable input resolves per fallback; the boolean
// reports whether a non-empty input could not be parsed.
func Date(raw any, fallback DateFallback, today time.Time) (*time.Time, bool) {
	switch v := raw.(type) {
	case nil:
		return dateFallback(fallback, today), false
	case time.Time:
		if v.IsZero() {
			return dateFallback(fallback, today), false
		}
		d := calendarDate(v)
		return &d, false
	case *time.Time:
		if v == nil || v.IsZero() {
			return dateFallback(fallback, today), false
		}
		d := calendarDate(*v)
		return &d, false
	case float64:
		if d, ok := fromSerial(v); ok {
			return &d, false
		}
		return dateFallback(fallback, today), true
	case string:
		return dateFromString(v, fallback, today)
	case *string:
		if v == nil {
			return dateFallback(fallback, today), false
		}
		return dateFromString(*v, fallback, today)
	default:
		return dateFallback(fallback, today), true
	}
}

func dateFromString(s string, fallback DateFallback, today time.Time) (*time.Time, bool) {
	trimmed := strings.TrimSpace(width.Narrow.String(s))
	if trimmed == "" {
		return dateFallback(fallback, today), false
	}
	if isNullish(trimmed) {
		return dateFallback(fallback, today), true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			d := calendarDate(t)
			return &d, false
		}
	}

	if serial, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if d, ok := fromSerial(serial); ok {
			return &d, false
		}
	}
	return dateFallback(fallback, today), true
}

// fromSerial accepts spreadsheet serial dates between 1954 and 2118.
func fromSerial(serial float64) (time.Time, bool) {
	if serial < 20000 || serial > 80000 {
		return time.Time{}, false
	}
	return excelEpoch.AddDate(0, 0, int(serial)), true
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dateFallback(fallback DateFallback, today time.Time) *time.Time {
	if fallback == DateFallbackToday {
		d := calendarDate(today)
		return &d
	}
	return nil
}
