package util

import (
    "strconv"
    "time"
)

// ParseTime tries RFC3339, a bare date, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse("2006-01-02", s); err == nil {
        return t, true
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0), true
    }
    return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
    if t, ok := ParseTime(s); ok {
        return t
    }
    return def
}

// MonthKey maps a time to a single integer month bucket (year*12 + month).
func MonthKey(t time.Time) int {
    t = t.UTC()
    return t.Year()*12 + int(t.Month()) - 1
}

// MonthEnd returns the last calendar day of t's month at UTC midnight.
func MonthEnd(t time.Time) time.Time {
    t = t.UTC()
    return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// MonthEndFromKey converts a month bucket back to its month-end date.
func MonthEndFromKey(key int) time.Time {
    return time.Date(key/12, time.Month(key%12)+2, 0, 0, 0, 0, 0, time.UTC)
}

// MonthsBetween counts whole month buckets from a to b (b >= a gives >= 0).
func MonthsBetween(a, b time.Time) int {
    return MonthKey(b) - MonthKey(a)
}
