package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type bridgeStateRecord struct {
	bun.BaseModel `bun:"table:callbridge_state,alias:cbs"`

	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type callEventRecord struct {
	bun.BaseModel `bun:"table:callbridge_call_events,alias:cbe"`

	ID         string    `bun:"id,pk"`
	EventType  string    `bun:"event_type,notnull"`
	CallerKey  string    `bun:"caller_key,notnull"`
	CallID     string    `bun:"call_id"`
	Reason     string    `bun:"reason"`
	ServerTsMs *int64    `bun:"server_ts_ms"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
