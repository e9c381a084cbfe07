package sqlstore

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

type messageRecord struct {
	bun.BaseModel `bun:"table:ingest_messages,alias:im"`

	ID         string          `bun:"id,pk"`
	ExternalID string          `bun:"external_id,notnull,unique"`
	ChannelID  string          `bun:"channel_id"`
	SenderHash string          `bun:"sender_hash"`
	Direction  string          `bun:"direction,notnull"`
	Kind       string          `bun:"kind,notnull"`
	Text       string          `bun:"text"`
	OccurredAt time.Time       `bun:"occurred_at,notnull"`
	RawPayload json.RawMessage `bun:"raw_payload,type:jsonb"`
	CreatedAt  time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
