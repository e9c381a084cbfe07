package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-ingest/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const messageCacheKeyPrefix = "go-ingest::message::v1"

// CachedMessageStore layers a read-through cache over message lookups. Only
// GetByExternalID is cached; stored rows are immutable, so the sole
// invalidation point is a winning insert for that external id.
type CachedMessageStore struct {
	base  core.MessageStore
	cache repositorycache.CacheService
}

func NewCachedMessageStore(
	base core.MessageStore,
	cacheService repositorycache.CacheService,
) (*CachedMessageStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base message store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: message cache service is required")
	}
	return &CachedMessageStore{base: base, cache: cacheService}, nil
}

// MessageCacheKey returns the deterministic cache key contract for message
// reads: go-ingest::message::v1::<external_id> with the id URL-path escaped.
func MessageCacheKey(externalID string) (string, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return "", fmt.Errorf("sqlstore: external id is required")
	}
	return messageCacheKeyPrefix + "::" + url.PathEscape(externalID), nil
}

func (s *CachedMessageStore) CreateIfAbsent(
	ctx context.Context,
	input core.CreateMessageInput,
) (core.StoredMessage, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.StoredMessage{}, false, fmt.Errorf("sqlstore: cached message store is not configured")
	}
	stored, created, err := s.base.CreateIfAbsent(ctx, input)
	if err != nil {
		return core.StoredMessage{}, false, err
	}
	if created {
		cacheKey, keyErr := MessageCacheKey(stored.ExternalID)
		if keyErr != nil {
			return core.StoredMessage{}, false, keyErr
		}
		if err := s.cache.Delete(ctx, cacheKey); err != nil {
			return core.StoredMessage{}, false, err
		}
	}
	return stored, created, nil
}

func (s *CachedMessageStore) GetByExternalID(ctx context.Context, externalID string) (core.StoredMessage, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.StoredMessage{}, fmt.Errorf("sqlstore: cached message store is not configured")
	}
	cacheKey, err := MessageCacheKey(externalID)
	if err != nil {
		return core.StoredMessage{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.StoredMessage, error) {
		return s.base.GetByExternalID(ctx, externalID)
	})
}

func (s *CachedMessageStore) List(ctx context.Context, filter core.MessageFilter) ([]core.StoredMessage, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached message store is not configured")
	}
	return s.base.List(ctx, filter)
}
