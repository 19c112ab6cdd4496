package sqlstore_test

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/goliatone/go-callbridge/core"
	callbridgemigrations "github.com/goliatone/go-callbridge/migrations"
	sqlstore "github.com/goliatone/go-callbridge/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// Postgres coverage is opt-in: set CALLBRIDGE_POSTGRES_DSN to a disposable
// database to run these. The SQLite suite covers the same store behavior on
// every run.
func newPostgresClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := os.Getenv("CALLBRIDGE_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CALLBRIDGE_POSTGRES_DSN not set")
	}

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open postgres db: %v", err)
	}

	cfg := testPersistenceConfig{
		driver: "postgres",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, pgdialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = callbridgemigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != callbridgemigrations.DialectPostgres {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, callbridgemigrations.WithValidationTargets(callbridgemigrations.DialectPostgres))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_, _ = client.DB().NewRaw("TRUNCATE callbridge_state, callbridge_call_events").Exec(ctx)
		_ = client.Close()
	}
}

func TestBridgeStore_GuardRoundTripPostgres(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newPostgresClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, core.DefaultGuardStaleAfter)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.BridgeStore()

	base := time.Unix(1_700_000_000, 0).UTC()
	if err := store.MarkActiveCall(ctx, "call-pg-1"); err != nil {
		t.Fatalf("mark active call: %v", err)
	}
	key, found, err := store.ActiveCallKey(ctx, base)
	if err != nil || !found || key != "call-pg-1" {
		t.Fatalf("guard must be active: key=%q found=%v err=%v", key, found, err)
	}
	if err := store.ClearActiveCall(ctx); err != nil {
		t.Fatalf("clear active call: %v", err)
	}
	if _, found, _ := store.ActiveCallKey(ctx, base); found {
		t.Fatalf("cleared guard must not report active")
	}
}

func TestCallEventStore_AppendAndListRecentPostgres(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newPostgresClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, core.DefaultGuardStaleAfter)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.CallEventStore()

	if err := store.Append(ctx, core.CallEvent{
		EventType: core.CallEventAdmitted,
		CallerKey: "caller-pg",
		CallID:    "call-pg-1",
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	recent, err := store.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) == 0 || recent[0].CallerKey != "caller-pg" {
		t.Fatalf("unexpected events: %#v", recent)
	}
}
