package reservation

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record models the persisted usernames row. The normalized key carries a
// unique index so the store rejects duplicate claims that race past the
// application-level decision table.
type Record struct {
	bun.BaseModel `bun:"table:usernames"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid"`
	Key         string     `bun:"key,notnull"`
	DisplayName string     `bun:"display_name,notnull"`
	OwnerID     uuid.UUID  `bun:"owner_id,notnull,type:uuid"`
	TenantID    uuid.UUID  `bun:"tenant_id,type:uuid"`
	OrgID       uuid.UUID  `bun:"org_id,type:uuid"`
	ReservedAt  time.Time  `bun:"reserved_at,notnull"`
	Confirmed   bool       `bun:"confirmed,notnull"`
	ConfirmedAt *time.Time `bun:"confirmed_at,nullzero"`
	ExpiresAt   *time.Time `bun:"expires_at,nullzero"`
	CreatedAt   time.Time  `bun:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at"`
}
