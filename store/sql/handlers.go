package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func messageHandlers() repository.ModelHandlers[*messageRecord] {
	return repository.ModelHandlers[*messageRecord]{
		NewRecord: func() *messageRecord {
			return &messageRecord{}
		},
		GetID: func(record *messageRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *messageRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "external_id"
		},
		GetIdentifierValue: func(record *messageRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ExternalID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
