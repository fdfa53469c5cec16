package util

import (
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeBareDate(t *testing.T) {
    got, ok := ParseTime("2014-01-01")
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Year() != 2014 || got.Month() != time.January || got.Day() != 1 {
        t.Fatalf("unexpected date %v", got)
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}

func TestMonthEnd(t *testing.T) {
    got := MonthEnd(time.Date(2024, 2, 10, 15, 0, 0, 0, time.UTC))
    want := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
    if !got.Equal(want) {
        t.Fatalf("got %v want %v", got, want)
    }
}

func TestMonthEndFromKeyRoundTrip(t *testing.T) {
    for _, d := range []time.Time{
        time.Date(2014, 1, 31, 0, 0, 0, 0, time.UTC),
        time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC),
        time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC),
    } {
        got := MonthEndFromKey(MonthKey(d))
        if !got.Equal(d) {
            t.Fatalf("round trip %v -> %v", d, got)
        }
    }
}

func TestMonthsBetween(t *testing.T) {
    a := time.Date(2014, 1, 31, 0, 0, 0, 0, time.UTC)
    b := time.Date(2014, 4, 30, 0, 0, 0, 0, time.UTC)
    if got := MonthsBetween(a, b); got != 3 {
        t.Fatalf("got %d want 3", got)
    }
}
