package sqlstore

import "github.com/goliatone/go-ingest/core"

var (
	_ core.MessageStore           = (*MessageStore)(nil)
	_ core.MessageStore           = (*CachedMessageStore)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
	_ core.MessageStoreProvider   = (*RepositoryFactory)(nil)
)
