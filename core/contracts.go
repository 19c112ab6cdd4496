package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// BridgeStore is the persisted cross-boundary state shared between the
// signaling stack and the application layer: the active-call guard, the
// dedup history, the single-slot pending-action mailbox, and the offer
// cache. Each operation is atomic at the key level; operations are not
// transactionally grouped, so concurrent writers must tolerate
// interleavings.
type BridgeStore interface {
	MarkActiveCall(ctx context.Context, key string) error
	ClearActiveCall(ctx context.Context) error
	// ActiveCallKey applies the staleness rule: a guard older than the
	// configured window is treated as absent and cleared.
	ActiveCallKey(ctx context.Context, now time.Time) (string, bool, error)

	RecordLastProcessed(ctx context.Context, callID string, serverTsMs *int64) error
	GetLastProcessed(ctx context.Context) (LastProcessed, error)

	CacheOffer(ctx context.Context, offer CachedOffer) error
	// TakeOfferIfMatching returns the cached payload when the cached
	// caller/call matches; the cache is left in place for the terminal
	// transition to clear.
	TakeOfferIfMatching(ctx context.Context, callerKey, callID string) (string, bool, error)
	ClearOffer(ctx context.Context) error

	// PublishPending overwrites any unread record of the same kind:
	// last write wins, no queueing.
	PublishPending(ctx context.Context, kind PendingKind, record PendingCallRecord) error
	// TakeAndClearPending is a destructive read; a second read immediately
	// after returns ok=false.
	TakeAndClearPending(ctx context.Context, kind PendingKind) (PendingCallRecord, bool, error)

	// Registration latch for the one-time signaling-account setup. Not
	// reset by the call lifecycle.
	IsRegistrationDone(ctx context.Context) (bool, error)
	SetRegistrationDone(ctx context.Context) error
}

// CallEventStore is an append-only diagnostic journal of admissions and
// terminal transitions.
type CallEventStore interface {
	Append(ctx context.Context, event CallEvent) error
	ListRecent(ctx context.Context, limit int) ([]CallEvent, error)
}

// CallPresenter is the UI collaborator boundary. Implementations are
// best-effort: a failure is reported as an error, logged by the coordinator,
// and never propagated as a fault.
type CallPresenter interface {
	ShowIncoming(ctx context.Context, key string, displayName string) error
	CloseIncoming(ctx context.Context, key string) error
	LaunchApp(ctx context.Context) error
	EnableCallMode(ctx context.Context) error
	DisableCallMode(ctx context.Context) error
}

// AccountRegistrar performs the one-time signaling-account registration
// guarded by the bridge store's registration latch.
type AccountRegistrar interface {
	Register(ctx context.Context) error
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// StoreProvider exposes the stores a repository factory builds.
type StoreProvider interface {
	BridgeStore() BridgeStore
	CallEventStore() CallEventStore
}

// RepositoryStoreFactory builds persistent stores from a persistence client.
type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
