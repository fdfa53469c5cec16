package util

import (
    "strconv"
    "strings"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
    if s == "" {
        return def
    }
    v, err := strconv.Atoi(s)
    if err != nil {
        return def
    }
    return v
}

// NormalizeSymbol turns an exchange wire symbol like "OANDA:XAU_USD" into
// a lowercase series-safe name ("oanda_xau_usd").
func NormalizeSymbol(s string) string {
    return strings.ToLower(strings.ReplaceAll(s, ":", "_"))
}
