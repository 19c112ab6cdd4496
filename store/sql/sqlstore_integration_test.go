package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/goliatone/go-callbridge/core"
	callbridgemigrations "github.com/goliatone/go-callbridge/migrations"
	sqlstore "github.com/goliatone/go-callbridge/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-callbridge-tests"
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:callbridge-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = callbridgemigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != callbridgemigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, callbridgemigrations.WithValidationTargets(callbridgemigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

func ts(ms int64) *int64 {
	return &ms
}

type nopPresenter struct{}

func (nopPresenter) ShowIncoming(context.Context, string, string) error { return nil }
func (nopPresenter) CloseIncoming(context.Context, string) error        { return nil }
func (nopPresenter) LaunchApp(context.Context) error                    { return nil }
func (nopPresenter) EnableCallMode(context.Context) error               { return nil }
func (nopPresenter) DisableCallMode(context.Context) error              { return nil }

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	for _, table := range []string{"callbridge_state", "callbridge_call_events"} {
		var tableName string
		if err := client.DB().NewRaw(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(context.Background(), &tableName); err != nil {
			t.Fatalf("query sqlite master for %s: %v", table, err)
		}
		if tableName != table {
			t.Fatalf("expected %s table, got %q", table, tableName)
		}
	}
}

func TestBridgeStore_GuardRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, core.DefaultGuardStaleAfter)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store, ok := factory.BridgeStore().(*sqlstore.BridgeStore)
	if !ok {
		t.Fatalf("expected sql bridge store from factory, got %T", factory.BridgeStore())
	}

	base := time.Unix(1_700_000_000, 0).UTC()
	store.Now = func() time.Time { return base }

	if _, found, err := store.ActiveCallKey(ctx, base); err != nil || found {
		t.Fatalf("fresh store must report no active call: found=%v err=%v", found, err)
	}
	if err := store.MarkActiveCall(ctx, "call-1"); err != nil {
		t.Fatalf("mark active call: %v", err)
	}
	key, found, err := store.ActiveCallKey(ctx, base.Add(time.Minute))
	if err != nil || !found || key != "call-1" {
		t.Fatalf("guard must be active: key=%q found=%v err=%v", key, found, err)
	}

	// Guard older than the staleness window expires on read and stays gone.
	stale := base.Add(core.DefaultGuardStaleAfter + time.Second)
	if _, found, err := store.ActiveCallKey(ctx, stale); err != nil || found {
		t.Fatalf("stale guard must self-expire: found=%v err=%v", found, err)
	}
	if _, found, _ := store.ActiveCallKey(ctx, base); found {
		t.Fatalf("expired guard must stay cleared")
	}

	if err := store.MarkActiveCall(ctx, "call-2"); err != nil {
		t.Fatalf("mark active call: %v", err)
	}
	if err := store.ClearActiveCall(ctx); err != nil {
		t.Fatalf("clear active call: %v", err)
	}
	if _, found, _ := store.ActiveCallKey(ctx, base); found {
		t.Fatalf("cleared guard must not report active")
	}
}

func TestBridgeStore_LastProcessedAndMailbox(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, core.DefaultGuardStaleAfter)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.BridgeStore()

	if err := store.RecordLastProcessed(ctx, "call-1", ts(1_700_000_000_000)); err != nil {
		t.Fatalf("record last processed: %v", err)
	}
	last, err := store.GetLastProcessed(ctx)
	if err != nil {
		t.Fatalf("get last processed: %v", err)
	}
	if last.CallID != "call-1" || last.ServerTsMs != 1_700_000_000_000 {
		t.Fatalf("unexpected dedup history: %+v", last)
	}

	// Re-recording overwrites in place; absent timestamp resets the bucket.
	if err := store.RecordLastProcessed(ctx, "call-2", nil); err != nil {
		t.Fatalf("record last processed: %v", err)
	}
	last, _ = store.GetLastProcessed(ctx)
	if last.CallID != "call-2" || last.ServerTsMs != 0 {
		t.Fatalf("unexpected dedup history: %+v", last)
	}

	first := core.PendingCallRecord{CallerKey: "caller", CallID: "c1", CallerName: "Alice"}
	second := core.PendingCallRecord{CallerKey: "caller", CallID: "c2"}
	if err := store.PublishPending(ctx, core.PendingAccept, first); err != nil {
		t.Fatalf("publish pending: %v", err)
	}
	if err := store.PublishPending(ctx, core.PendingAccept, second); err != nil {
		t.Fatalf("publish pending: %v", err)
	}
	record, found, err := store.TakeAndClearPending(ctx, core.PendingAccept)
	if err != nil || !found {
		t.Fatalf("take pending: found=%v err=%v", found, err)
	}
	if record.CallID != "c2" || record.Action != core.PendingAccept {
		t.Fatalf("second publish must overwrite the first: %+v", record)
	}
	if record.StoredAt.IsZero() {
		t.Fatalf("publish must stamp StoredAt")
	}
	if _, found, _ := store.TakeAndClearPending(ctx, core.PendingAccept); found {
		t.Fatalf("mailbox read must be destructive")
	}
}

func TestBridgeStore_OfferAndRegistrationLatch(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, core.DefaultGuardStaleAfter)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.BridgeStore()

	if err := store.CacheOffer(ctx, core.CachedOffer{CallerKey: "caller", CallID: "c1", Payload: "sdp"}); err != nil {
		t.Fatalf("cache offer: %v", err)
	}
	if _, found, _ := store.TakeOfferIfMatching(ctx, "caller", "c2"); found {
		t.Fatalf("conflicting call id must not match")
	}
	payload, found, err := store.TakeOfferIfMatching(ctx, "caller", "c1")
	if err != nil || !found || payload != "sdp" {
		t.Fatalf("expected offer match: payload=%q found=%v err=%v", payload, found, err)
	}
	// Reads never clear the slot; ClearOffer does.
	if _, found, _ := store.TakeOfferIfMatching(ctx, "caller", ""); !found {
		t.Fatalf("offer must survive until cleared")
	}
	if err := store.ClearOffer(ctx); err != nil {
		t.Fatalf("clear offer: %v", err)
	}
	if _, found, _ := store.TakeOfferIfMatching(ctx, "caller", "c1"); found {
		t.Fatalf("cleared offer must not match")
	}

	done, err := store.IsRegistrationDone(ctx)
	if err != nil || done {
		t.Fatalf("fresh store must not be registered: done=%v err=%v", done, err)
	}
	if err := store.SetRegistrationDone(ctx); err != nil {
		t.Fatalf("set registration done: %v", err)
	}
	if done, _ := store.IsRegistrationDone(ctx); !done {
		t.Fatalf("registration latch must stick")
	}
}

func TestCallEventStore_AppendAndListRecent(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, core.DefaultGuardStaleAfter)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.CallEventStore()

	base := time.Unix(1_700_000_000, 0).UTC()
	events := []core.CallEvent{
		{EventType: core.CallEventAdmitted, CallerKey: "caller", CallID: "c1", Reason: "ok", CreatedAt: base},
		{EventType: core.CallEventAnswered, CallerKey: "caller", CallID: "c1", CreatedAt: base.Add(time.Second)},
		{EventType: core.CallEventRejectedFact, CallerKey: "caller", CallID: "c2", Reason: "duplicate_call_id", ServerTsMs: ts(1_700_000_000_000), CreatedAt: base.Add(2 * time.Second)},
	}
	for _, event := range events {
		if err := store.Append(ctx, event); err != nil {
			t.Fatalf("append %s: %v", event.EventType, err)
		}
	}

	recent, err := store.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 events, got %d", len(recent))
	}
	if recent[0].EventType != core.CallEventRejectedFact {
		t.Fatalf("expected newest first, got %q", recent[0].EventType)
	}
	if recent[0].ServerTsMs == nil || *recent[0].ServerTsMs != 1_700_000_000_000 {
		t.Fatalf("server timestamp must round-trip: %+v", recent[0].ServerTsMs)
	}
	if recent[0].ID == "" {
		t.Fatalf("append must assign an id")
	}
	if recent[1].EventType != core.CallEventAnswered {
		t.Fatalf("unexpected second event %q", recent[1].EventType)
	}

	if err := store.Append(ctx, core.CallEvent{EventType: core.CallEventAdmitted}); err == nil {
		t.Fatalf("event without caller key must be rejected")
	}
}

func TestServiceWithSQLStores_EndToEnd(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, core.DefaultGuardStaleAfter)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}

	now := time.Unix(1_700_000_000, 0).UTC()
	service, err := core.NewService(core.DefaultConfig(),
		core.WithPersistenceClient(client),
		core.WithRepositoryFactory(factory),
		core.WithPresenter(nopPresenter{}),
		core.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	serverTs := now.UnixMilli()
	fact := core.IncomingCallFact{
		CallID:     "call-1",
		CallerKey:  "caller",
		CallerName: "Alice",
		ServerTsMs: &serverTs,
	}
	if !service.ShowIncomingCall(ctx, fact) {
		t.Fatalf("fresh fact must be admitted")
	}
	// Same fact redelivered: duplicate, but consumed.
	if !service.ShowIncomingCall(ctx, fact) {
		t.Fatalf("duplicate must be handled upstream")
	}

	if !service.Reject(ctx, "call-1") {
		t.Fatalf("reject failed")
	}
	record, found := service.GetAndClearPendingReject(ctx)
	if !found || record.CallerKey != "caller" {
		t.Fatalf("reject record must be persisted: %+v found=%v", record, found)
	}

	recent, err := factory.CallEventStore().ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected admitted, rejected-fact, and declined events, got %d", len(recent))
	}
}
