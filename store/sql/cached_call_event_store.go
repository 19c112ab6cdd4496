package sqlstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-callbridge/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const (
	callEventCacheKeyPrefix = "go-callbridge::call_events::v1"
	callEventCachedPageSize = 50
)

// CachedCallEventStore wraps a CallEventStore with read-through caching for
// the default recent-events page. Only the default page size is cached so an
// append can invalidate the one key it owns; other limits go straight to the
// base store.
type CachedCallEventStore struct {
	base  core.CallEventStore
	cache repositorycache.CacheService
}

func NewCachedCallEventStore(
	base core.CallEventStore,
	cacheService repositorycache.CacheService,
) (*CachedCallEventStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base call event store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: call event cache service is required")
	}
	return &CachedCallEventStore{base: base, cache: cacheService}, nil
}

// CallEventListCacheKey returns the deterministic cache key for the default
// recent-events page: go-callbridge::call_events::v1::recent::<limit>.
func CallEventListCacheKey(limit int) string {
	return strings.Join([]string{callEventCacheKeyPrefix, "recent", strconv.Itoa(limit)}, "::")
}

func (s *CachedCallEventStore) Append(ctx context.Context, event core.CallEvent) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached call event store is not configured")
	}
	if err := s.base.Append(ctx, event); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, CallEventListCacheKey(callEventCachedPageSize)); err != nil {
		return err
	}
	return nil
}

func (s *CachedCallEventStore) ListRecent(ctx context.Context, limit int) ([]core.CallEvent, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached call event store is not configured")
	}
	if limit <= 0 {
		limit = callEventCachedPageSize
	}
	if limit != callEventCachedPageSize {
		return s.base.ListRecent(ctx, limit)
	}
	events, err := repositorycache.GetOrFetch(ctx, s.cache, CallEventListCacheKey(limit), func(ctx context.Context) ([]core.CallEvent, error) {
		return s.base.ListRecent(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	out := make([]core.CallEvent, len(events))
	copy(out, events)
	return out, nil
}

var _ core.CallEventStore = (*CachedCallEventStore)(nil)
