package types

import (
	"time"

	"github.com/uptrace/bun"
)

// Community is a registry row for a monitored community. Rows are created on
// first discovery, refreshed on each observation, and marked inactive when
// the community is no longer reachable by the active credential.
type Community struct {
	bun.BaseModel `bun:"table:communities"`

	ID          uint64    `bun:"id,pk"`
	Name        string    `bun:"name,notnull"`
	MemberCount int       `bun:"member_count,notnull,default:0"`
	FirstSeen   time.Time `bun:"first_seen,notnull"`
	LastUpdated time.Time `bun:"last_updated,notnull"`
	IsActive    bool      `bun:"is_active,notnull,default:true"`
}
