package util

import (
	"fmt"
	"strconv"
	"time"
)

// SysmonTimeLayout is the layout of Sysmon UtcTime values, e.g. 2023-08-07 03:00:00.000.
const SysmonTimeLayout = "2006-01-02 15:04:05.000"

func ParseTimeFlexible(timeStr string) (time.Time, error) {
	// Try parsing as RFC3339 (ISO 8601)
	t, err := time.Parse(time.RFC3339Nano, timeStr)
	if err == nil {
		return t.UTC(), nil // Convert to UTC
	}
	t, err = time.Parse(time.RFC3339, timeStr) // Try without nano
	if err == nil {
		return t.UTC(), nil
	}

	// Sysmon's own UtcTime format
	t, err = time.Parse(SysmonTimeLayout, timeStr)
	if err == nil {
		return t.UTC(), nil
	}

	// Try parsing as epoch milliseconds
	ms, err := strconv.ParseInt(timeStr, 10, 64)
	if err == nil {
		return time.UnixMilli(ms).UTC(), nil // Convert to UTC
	}

	return time.Time{}, fmt.Errorf("invalid time format: %s", timeStr)
}
