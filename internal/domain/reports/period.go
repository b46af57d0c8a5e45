package reports

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fluxo/internal/core/apperror"
)

// ResolvePeriod turns a named shortcut into a half-open [from, to) range
// in UTC. Supported names: "today", "yesterday", "month-to-date",
// "last-N-days" (e.g. "last-7-days").
func ResolvePeriod(name string, now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	today := now.Truncate(24 * time.Hour)
	tomorrow := today.AddDate(0, 0, 1)

	switch name {
	case "today":
		return today, tomorrow, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), today, nil
	case "month-to-date":
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return monthStart, tomorrow, nil
	}

	if n, ok := parseLastDays(name); ok {
		if n <= 0 {
			return time.Time{}, time.Time{}, apperror.NewValidation("day count must be positive").
				WithDetail("period", name)
		}
		return today.AddDate(0, 0, -n), tomorrow, nil
	}

	return time.Time{}, time.Time{}, apperror.NewValidation(fmt.Sprintf("unknown period %q", name))
}

func parseLastDays(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "last-")
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(rest, "-days")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}
