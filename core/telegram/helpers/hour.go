package helpers

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseHour parses a wall-clock hour in "HH:00" or bare "HH" form.
// Returns the hour in [0, 23] and true on success.
func ParseHour(input string) (int, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, false
	}
	s = strings.TrimSuffix(s, ":00")
	h, err := strconv.Atoi(s)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}

// FormatHour renders an hour as the canonical "HH:00" slot label.
func FormatHour(h int) string {
	return fmt.Sprintf("%02d:00", h)
}
