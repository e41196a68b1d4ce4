package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTTL parses a human-readable session lifetime. Accepted forms:
//
//	"12h", "90m"        -- anything time.ParseDuration understands
//	"7d", "1 day", "30 days"
//	"2w", "1 week", "4 weeks"
//
// Day and week units are calendar-agnostic (24h and 168h). A zero, negative,
// or unparseable value is an error; sessions must have a positive lifetime.
func ParseTTL(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("duration %q must be positive", s)
		}
		return d, nil
	}

	n, unit, err := splitAmount(s)
	if err != nil {
		return 0, err
	}

	switch unit {
	case "d", "day", "days":
		return time.Duration(n) * 24 * time.Hour, nil
	case "w", "week", "weeks":
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case "hour", "hours":
		return time.Duration(n) * time.Hour, nil
	case "minute", "minutes":
		return time.Duration(n) * time.Minute, nil
	default:
		return 0, fmt.Errorf("unknown duration unit %q in %q", unit, s)
	}
}

// splitAmount splits "30 days" or "7d" into (30, "days") / (7, "d").
func splitAmount(s string) (int, string, error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, "", fmt.Errorf("malformed duration %q", s)
	}

	n, err := strconv.Atoi(s[:i])
	if err != nil || n <= 0 {
		return 0, "", fmt.Errorf("malformed duration %q", s)
	}

	unit := strings.TrimSpace(s[i:])
	if unit == "" {
		return 0, "", fmt.Errorf("duration %q is missing a unit", s)
	}
	return n, unit, nil
}
