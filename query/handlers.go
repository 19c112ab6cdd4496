package query

import (
	"context"
	"time"

	"github.com/goliatone/go-callbridge/core"
)

type CallEventReader interface {
	ListRecent(ctx context.Context, limit int) ([]core.CallEvent, error)
}

type BridgeStateReader interface {
	GetLastProcessed(ctx context.Context) (core.LastProcessed, error)
	ActiveCallKey(ctx context.Context, now time.Time) (string, bool, error)
}

// ActiveCall is the guard read result. Key is empty when no call is active.
type ActiveCall struct {
	Key    string
	Active bool
}

type ListRecentCallEventsQuery struct {
	reader CallEventReader
}

func NewListRecentCallEventsQuery(reader CallEventReader) *ListRecentCallEventsQuery {
	return &ListRecentCallEventsQuery{reader: reader}
}

func (q *ListRecentCallEventsQuery) Query(ctx context.Context, msg ListRecentCallEventsMessage) ([]core.CallEvent, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: call event reader is required")
	}
	return q.reader.ListRecent(ctx, msg.Limit)
}

type GetLastProcessedQuery struct {
	reader BridgeStateReader
}

func NewGetLastProcessedQuery(reader BridgeStateReader) *GetLastProcessedQuery {
	return &GetLastProcessedQuery{reader: reader}
}

func (q *GetLastProcessedQuery) Query(ctx context.Context, _ GetLastProcessedMessage) (core.LastProcessed, error) {
	if q == nil || q.reader == nil {
		return core.LastProcessed{}, queryDependencyError("query: bridge state reader is required")
	}
	return q.reader.GetLastProcessed(ctx)
}

type GetActiveCallQuery struct {
	reader BridgeStateReader

	// Now is injectable for tests.
	Now func() time.Time
}

func NewGetActiveCallQuery(reader BridgeStateReader) *GetActiveCallQuery {
	return &GetActiveCallQuery{reader: reader, Now: time.Now}
}

func (q *GetActiveCallQuery) Query(ctx context.Context, msg GetActiveCallMessage) (ActiveCall, error) {
	if q == nil || q.reader == nil {
		return ActiveCall{}, queryDependencyError("query: bridge state reader is required")
	}
	at := msg.At
	if at.IsZero() {
		if q.Now != nil {
			at = q.Now()
		} else {
			at = time.Now()
		}
	}
	key, active, err := q.reader.ActiveCallKey(ctx, at)
	if err != nil {
		return ActiveCall{}, err
	}
	return ActiveCall{Key: key, Active: active}, nil
}
