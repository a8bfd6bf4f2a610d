package notify_test

import (
	"testing"

	"github.com/robalyx/doorbell/internal/database/types"
	"github.com/robalyx/doorbell/internal/notify"
	"github.com/robalyx/doorbell/internal/setup/config"
	"github.com/robalyx/doorbell/pkg/utils"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func validEvent() *types.Arrival {
	return &types.Arrival{
		ParticipantID:  1362788254054613055,
		Username:       "newcomer",
		CommunityID:    2001,
		CommunityName:  "Axiom",
		AccountAgeDays: 87,
		SourceTag:      types.SourceActivityScan,
	}
}

func TestPlausibilityFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		filters config.Filters
		mutate  func(*types.Arrival)
		want    bool
	}{
		{
			name: "real identity passes",
			want: true,
		},
		{
			name:   "synthetic placeholder rejected",
			mutate: func(e *types.Arrival) { e.IsSynthetic = true },
			want:   false,
		},
		{
			name:   "unknown account age rejected",
			mutate: func(e *types.Arrival) { e.AccountAgeDays = utils.AgeUnknown },
			want:   false,
		},
		{
			name:   "zero participant ID rejected",
			mutate: func(e *types.Arrival) { e.ParticipantID = 0 },
			want:   false,
		},
		{
			name:   "empty username rejected",
			mutate: func(e *types.Arrival) { e.Username = "" },
			want:   false,
		},
		{
			name:    "bot rejected when ignore_bots set",
			filters: config.Filters{IgnoreBots: true},
			mutate:  func(e *types.Arrival) { e.IsBot = true },
			want:    false,
		},
		{
			name:   "bot passes when ignore_bots unset",
			mutate: func(e *types.Arrival) { e.IsBot = true },
			want:   true,
		},
		{
			name:    "system account rejected when ignore_system_accounts set",
			filters: config.Filters{IgnoreSystemAccounts: true},
			mutate:  func(e *types.Arrival) { e.IsSystem = true },
			want:    false,
		},
		{
			name:   "system account passes when ignore_system_accounts unset",
			mutate: func(e *types.Arrival) { e.IsSystem = true },
			want:   true,
		},
		{
			name:    "young account rejected below minimum age",
			filters: config.Filters{MinAccountAgeDays: 90},
			want:    false,
		},
		{
			name:    "old account passes minimum age",
			filters: config.Filters{MinAccountAgeDays: 30},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			event := validEvent()
			if tt.mutate != nil {
				tt.mutate(event)
			}

			filter := notify.NewPlausibilityFilter(&tt.filters, zap.NewNop())
			assert.Equal(t, tt.want, filter.Allow(event))
		})
	}
}
