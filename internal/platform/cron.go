package platform

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts standard 5-field cron expressions plus descriptors
// like @daily.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateCronPattern reports whether pattern is a parseable cron expression.
func ValidateCronPattern(pattern string) error {
	if _, err := cronParser.Parse(pattern); err != nil {
		return fmt.Errorf("invalid cron pattern %q: %w", pattern, err)
	}
	return nil
}

// NextCronRun returns the next occurrence of pattern in the given IANA
// timezone strictly after the given instant. It is a pure function of its
// arguments so schedule math is testable without real time.
func NextCronRun(pattern, timezone string, after time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(pattern)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron pattern %q: %w", pattern, err)
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	next := sched.Next(after.In(loc))
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("cron pattern %q has no next occurrence after %s", pattern, after)
	}
	return next, nil
}
