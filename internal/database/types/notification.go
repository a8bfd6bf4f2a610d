package types

import (
	"time"

	"github.com/uptrace/bun"
)

// NotificationRecord tracks that the operator was notified about a
// (participant, community) pair. At most one live row exists per pair;
// a re-notification after the dedup window replaces sent_at.
type NotificationRecord struct {
	bun.BaseModel `bun:"table:notification_records"`

	ID            int64     `bun:"id,pk,autoincrement"`
	ParticipantID uint64    `bun:"participant_id,notnull,unique:notify_pair"`
	CommunityID   uint64    `bun:"community_id,notnull,unique:notify_pair"`
	SentAt        time.Time `bun:"sent_at,notnull"`
	ArrivalID     int64     `bun:"arrival_id"`
}
