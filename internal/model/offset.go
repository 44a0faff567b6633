package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var offsetPattern = regexp.MustCompile(`^\+?(\d+)(min|h|d|day|days)$`)

// ParseOffset parses a human offset such as "30min", "+1h", "2d" or "1day".
// Units are matched case-insensitively; anything else wraps ErrInvalidOffset.
func ParseOffset(text string) (time.Duration, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	m := offsetPattern.FindStringSubmatch(normalized)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, text)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidOffset, text, err)
	}

	var unit time.Duration
	switch m[2] {
	case "min":
		unit = time.Minute
	case "h":
		unit = time.Hour
	default:
		unit = 24 * time.Hour
	}
	if n > int64(1<<63-1)/int64(unit) {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidOffset, text)
	}
	return time.Duration(n) * unit, nil
}
