package ginserver

import (
	"strings"
	"time"

	"stayhub/internal/domain/shared/daterange"
	"stayhub/internal/domain/shared/failure"
)

// parseDate accepts YYYY-MM-DD or RFC3339 and returns the UTC calendar day.
func parseDate(field, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, failure.Validation("%s is required", field)
	}
	t, err := daterange.ParseDay(raw)
	if err != nil {
		return time.Time{}, failure.Wrap(failure.KindValidation, err, field+" must be a date in YYYY-MM-DD or RFC3339 format")
	}
	return t, nil
}
