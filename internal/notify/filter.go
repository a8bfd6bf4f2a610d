package notify

import (
	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/robalyx/doorbell/internal/setup/config"
	"github.com/robalyx/doorbell/pkg/utils"
	"go.uber.org/zap"
)

// PlausibilityFilter rejects candidates lacking a verifiable identity right
// before delivery. Rejected events are dropped silently: never marked
// notified, never retried.
type PlausibilityFilter struct {
	filters *config.Filters
	logger  *zap.Logger
}

// NewPlausibilityFilter creates a filter with the configured policy.
func NewPlausibilityFilter(filters *config.Filters, logger *zap.Logger) *PlausibilityFilter {
	return &PlausibilityFilter{
		filters: filters,
		logger:  logger.Named("filter"),
	}
}

// Allow reports whether an event may reach the delivery channel.
func (f *PlausibilityFilter) Allow(event *types.Arrival) bool {
	reason := f.rejectReason(event)
	if reason == "" {
		return true
	}

	f.logger.Debug("Filtered event before delivery",
		zap.String("reason", reason),
		zap.String("source", event.SourceTag),
		zap.String("community", event.CommunityName))

	return false
}

// rejectReason returns why the event is implausible, or empty when it
// passes. Identity checks are unconditional; the rest follow configuration.
func (f *PlausibilityFilter) rejectReason(event *types.Arrival) string {
	switch {
	case event.IsSynthetic:
		return "synthetic placeholder"
	case event.ParticipantID == 0:
		return "missing participant ID"
	case event.AccountAgeDays == utils.AgeUnknown:
		return "unknown account age"
	case event.Username == "":
		return "missing username"
	}

	if f.filters.IgnoreBots && event.IsBot {
		return "bot account"
	}

	if f.filters.IgnoreSystemAccounts && event.IsSystem {
		return "system account"
	}

	if f.filters.MinAccountAgeDays > 0 && event.AccountAgeDays < f.filters.MinAccountAgeDays {
		return "account younger than minimum"
	}

	return ""
}
