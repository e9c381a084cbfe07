package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// InboundRequest is the transport-agnostic shape handed to the pipeline by
// whatever HTTP layer fronts it: the raw body must be the unparsed bytes the
// provider signed.
type InboundRequest struct {
	ProviderID string
	Surface    string
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type InboundResult struct {
	Accepted   bool
	StatusCode int
	Metadata   map[string]any
}

type InboundHandler interface {
	Surface() string
	Handle(ctx context.Context, req InboundRequest) (InboundResult, error)
}

// PersistOutcome reports per-batch write accounting. Inserted + Deduped may
// be less than Attempted when individual writes fail; failures never abort
// sibling writes.
type PersistOutcome struct {
	Attempted int
	Inserted  int
	Deduped   int
	Failed    int
}

// OutboundRecord pairs a stored outbound row with whether this call was the
// one that created it.
type OutboundRecord struct {
	Message StoredMessage
	Created bool
}

// IngestReport is the per-envelope processing accounting. MissingID counts
// records dropped before persistence because they carry no idempotency key.
type IngestReport struct {
	Extracted int
	MissingID int
	Outcome   PersistOutcome
}

// MessageStore is the single cross-request coordination point. CreateIfAbsent
// must be atomic on ExternalID: concurrent attempts for the same id yield
// exactly one stored row and every caller observes created=false but err=nil
// for the losing attempts.
type MessageStore interface {
	CreateIfAbsent(ctx context.Context, input CreateMessageInput) (StoredMessage, bool, error)
	GetByExternalID(ctx context.Context, externalID string) (StoredMessage, error)
	List(ctx context.Context, filter MessageFilter) ([]StoredMessage, error)
}

// MessageStoreProvider hands out the message store a repository factory
// built, so wiring can accept the factory without depending on its package.
type MessageStoreProvider interface {
	MessageStore() MessageStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (MessageStoreProvider, error)
}

type MessageFilter struct {
	ChannelID    string
	SenderHash   string
	Direction    Direction
	Kind         string
	OccurredFrom *time.Time
	OccurredTo   *time.Time
	Limit        int
	Offset       int
}
