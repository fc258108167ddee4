package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLookback = 24 * time.Hour
	MaxLookback     = 30 * 24 * time.Hour
)

// ParseLookback reads the "<n>h" / "<n>d" shorthand analysts use for time
// windows. An empty value yields DefaultLookback.
func ParseLookback(value string) (time.Duration, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return DefaultLookback, nil
	}

	unit := value[len(value)-1]
	n, err := strconv.Atoi(strings.TrimSpace(value[:len(value)-1]))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid lookback period %q", value)
	}

	var per time.Duration
	switch unit {
	case 'h':
		per = time.Hour
	case 'd':
		per = 24 * time.Hour
	default:
		return 0, fmt.Errorf("invalid lookback period %q", value)
	}

	// Bound n first; n * per can overflow.
	if n > int(MaxLookback/per) {
		return 0, fmt.Errorf("lookback period %q exceeds 30 days", value)
	}
	return time.Duration(n) * per, nil
}
