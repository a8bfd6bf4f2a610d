package types

import (
	"time"

	"github.com/uptrace/bun"
)

// Source tags identify which collector produced an arrival candidate.
const (
	SourceMemberEvent  = "member_event"
	SourceActivityScan = "activity_scan"
	SourcePatternScan  = "pattern_scan"
	SourceDeepScan     = "deep_scan"
	SourceMemberCount  = "member_count"
	SourcePresence     = "presence"
	SourceHeartbeat    = "heartbeat"
)

// Arrival is a single detected arrival candidate. Rows are append-only;
// the notified flag is the only column that changes after insert.
type Arrival struct {
	bun.BaseModel `bun:"table:arrivals"`

	ID               int64          `bun:"id,pk,autoincrement"`
	ParticipantID    uint64         `bun:"participant_id,notnull"`
	Username         string         `bun:"username,notnull"`
	DisplayName      string         `bun:"display_name"`
	CommunityID      uint64         `bun:"community_id,notnull"`
	CommunityName    string         `bun:"community_name,notnull"`
	ObservedAt       time.Time      `bun:"observed_at,notnull"`
	AccountCreatedAt time.Time      `bun:"account_created_at,nullzero"`
	AccountAgeDays   int            `bun:"account_age_days,notnull"`
	IsBot            bool           `bun:"is_bot,notnull,default:false"`
	IsSystem         bool           `bun:"is_system,notnull,default:false"`
	IsVerified       bool           `bun:"is_verified,notnull,default:false"`
	IsSynthetic      bool           `bun:"is_synthetic,notnull,default:false"`
	SourceTag        string         `bun:"source_tag,notnull"`
	Notified         bool           `bun:"notified,notnull,default:false"`
	Evidence         map[string]any `bun:"evidence,type:jsonb"`
}
