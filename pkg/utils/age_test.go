package utils_test

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/doorbell/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestAccountAgeDays(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name     string
		id       snowflake.ID
		expected int
	}{
		{
			name:     "zero ID is unknown",
			id:       0,
			expected: utils.AgeUnknown,
		},
		{
			name:     "account created 87 days ago",
			id:       snowflake.New(now.Add(-87 * 24 * time.Hour)),
			expected: 87,
		},
		{
			name:     "account created today",
			id:       snowflake.New(now.Add(-2 * time.Hour)),
			expected: 0,
		},
		{
			name:     "account created one year ago",
			id:       snowflake.New(now.Add(-365 * 24 * time.Hour)),
			expected: 365,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, utils.AccountAgeDays(tt.id, now))
		})
	}
}

func TestAccountCreatedAt(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 14, 9, 26, 53, 0, time.UTC)
	id := snowflake.New(created)

	assert.WithinDuration(t, created, utils.AccountCreatedAt(id), time.Second)
	assert.True(t, utils.AccountCreatedAt(0).IsZero())
}

func TestFormatAccountAge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		days     int
		expected string
	}{
		{name: "unknown", days: utils.AgeUnknown, expected: "Unknown"},
		{name: "zero days", days: 0, expected: "0 days"},
		{name: "single day", days: 1, expected: "1 day"},
		{name: "days only", days: 12, expected: "12 days"},
		{name: "months and days", days: 65, expected: "2 months and 5 days"},
		{name: "years months days", days: 430, expected: "1 year, 2 months and 5 days"},
		{name: "exact year", days: 365, expected: "1 year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, utils.FormatAccountAge(tt.days))
		})
	}
}
