package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-ingest/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type MessageStore struct {
	db   *bun.DB
	repo repository.Repository[*messageRecord]
}

func NewMessageStore(db *bun.DB) (*MessageStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*messageRecord](db, messageHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid message repository wiring: %w", err)
		}
	}
	return &MessageStore{
		db:   db,
		repo: repo,
	}, nil
}

// CreateIfAbsent is the atomic insert-if-absent primitive the pipeline keys
// idempotency on. The external id uniqueness constraint arbitrates races:
// the losing insert reads back the winner's row and reports created=false.
// Existing rows are never touched.
func (s *MessageStore) CreateIfAbsent(
	ctx context.Context,
	input core.CreateMessageInput,
) (core.StoredMessage, bool, error) {
	if s == nil || s.db == nil {
		return core.StoredMessage{}, false, fmt.Errorf("sqlstore: message store is not configured")
	}
	externalID := strings.TrimSpace(input.ExternalID)
	if externalID == "" {
		return core.StoredMessage{}, false, fmt.Errorf("sqlstore: external id is required")
	}
	direction := input.Direction
	if !direction.Valid() {
		return core.StoredMessage{}, false, fmt.Errorf("sqlstore: direction %q is invalid", direction)
	}
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	record := &messageRecord{
		ID:         uuid.NewString(),
		ExternalID: externalID,
		ChannelID:  strings.TrimSpace(input.ChannelID),
		SenderHash: strings.TrimSpace(input.SenderHash),
		Direction:  string(direction),
		Kind:       string(input.Kind),
		Text:       input.Text,
		OccurredAt: occurredAt.UTC(),
		RawPayload: append(json.RawMessage(nil), input.Raw...),
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			existing, getErr := s.GetByExternalID(ctx, externalID)
			if getErr != nil {
				return core.StoredMessage{}, false, getErr
			}
			return existing, false, nil
		}
		return core.StoredMessage{}, false, err
	}
	return messageToDomain(record), true, nil
}

func (s *MessageStore) GetByExternalID(ctx context.Context, externalID string) (core.StoredMessage, error) {
	if s == nil || s.db == nil {
		return core.StoredMessage{}, fmt.Errorf("sqlstore: message store is not configured")
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return core.StoredMessage{}, fmt.Errorf("sqlstore: external id is required")
	}
	record := &messageRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.external_id = ?", externalID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.StoredMessage{}, fmt.Errorf("sqlstore: message not found for external id %q", externalID)
		}
		return core.StoredMessage{}, err
	}
	return messageToDomain(record), nil
}

func (s *MessageStore) List(ctx context.Context, filter core.MessageFilter) ([]core.StoredMessage, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: message store is not configured")
	}

	var records []*messageRecord
	query := s.db.NewSelect().Model(&records)

	if channelID := strings.TrimSpace(filter.ChannelID); channelID != "" {
		query = query.Where("?TableAlias.channel_id = ?", channelID)
	}
	if senderHash := strings.TrimSpace(filter.SenderHash); senderHash != "" {
		query = query.Where("?TableAlias.sender_hash = ?", senderHash)
	}
	if filter.Direction != "" {
		query = query.Where("?TableAlias.direction = ?", string(filter.Direction))
	}
	if kind := strings.TrimSpace(filter.Kind); kind != "" {
		query = query.Where("?TableAlias.kind = ?", kind)
	}
	if filter.OccurredFrom != nil {
		query = query.Where("?TableAlias.occurred_at >= ?", filter.OccurredFrom.UTC())
	}
	if filter.OccurredTo != nil {
		query = query.Where("?TableAlias.occurred_at < ?", filter.OccurredTo.UTC())
	}
	query = query.Order("occurred_at ASC", "external_id ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	messages := make([]core.StoredMessage, 0, len(records))
	for _, record := range records {
		messages = append(messages, messageToDomain(record))
	}
	return messages, nil
}

func messageToDomain(record *messageRecord) core.StoredMessage {
	if record == nil {
		return core.StoredMessage{}
	}
	return core.StoredMessage{
		ID:         record.ID,
		ExternalID: record.ExternalID,
		ChannelID:  record.ChannelID,
		SenderHash: record.SenderHash,
		Direction:  core.Direction(record.Direction),
		Kind:       core.MessageKind(record.Kind),
		Text:       record.Text,
		OccurredAt: record.OccurredAt,
		Raw:        append(json.RawMessage(nil), record.RawPayload...),
		CreatedAt:  record.CreatedAt,
	}
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
