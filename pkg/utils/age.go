package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// AgeUnknown is the sentinel account age for events without a verifiable
// platform identifier. Events carrying it never pass the plausibility filter.
const AgeUnknown = -1

// AccountCreatedAt extracts the creation time embedded in a platform snowflake ID.
// Returns the zero time for a zero ID.
func AccountCreatedAt(id snowflake.ID) time.Time {
	if id == 0 {
		return time.Time{}
	}

	return id.Time()
}

// AccountAgeDays returns the whole days elapsed since the creation time
// embedded in the given snowflake ID, relative to now. Returns AgeUnknown
// for a zero ID.
func AccountAgeDays(id snowflake.ID, now time.Time) int {
	if id == 0 {
		return AgeUnknown
	}

	return int(now.Sub(id.Time()).Hours() / 24)
}

// FormatAccountAge renders an age in days as a human-readable string like
// "1 year, 2 months and 5 days". AgeUnknown renders as "Unknown".
func FormatAccountAge(days int) string {
	if days == AgeUnknown {
		return "Unknown"
	}

	years := days / 365
	months := (days % 365) / 30
	remainder := (days % 365) % 30

	parts := make([]string, 0, 3)
	if years > 0 {
		parts = append(parts, plural(years, "year"))
	}

	if months > 0 {
		parts = append(parts, plural(months, "month"))
	}

	if remainder > 0 || len(parts) == 0 {
		parts = append(parts, plural(remainder, "day"))
	}

	if len(parts) == 1 {
		return parts[0]
	}

	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}

	return fmt.Sprintf("%d %ss", n, unit)
}
