package sqlstore

import (
	"fmt"
	"time"

	"github.com/goliatone/go-callbridge/core"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
)

// RepositoryFactory builds the persistent bridge store and call event
// journal from a persistence client and serves them through the
// core.StoreProvider contract.
type RepositoryFactory struct {
	db              *bun.DB
	guardStaleAfter time.Duration

	bridgeStore    *BridgeStore
	callEventStore *CallEventStore
}

func NewRepositoryFactory(guardStaleAfter time.Duration) *RepositoryFactory {
	if guardStaleAfter <= 0 {
		guardStaleAfter = core.DefaultGuardStaleAfter
	}
	return &RepositoryFactory{guardStaleAfter: guardStaleAfter}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, guardStaleAfter time.Duration) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(guardStaleAfter)
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, guardStaleAfter time.Duration) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(guardStaleAfter)
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.bridgeStore != nil && f.callEventStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) BridgeStore() core.BridgeStore {
	if f == nil || f.bridgeStore == nil {
		return nil
	}
	return f.bridgeStore
}

func (f *RepositoryFactory) CallEventStore() core.CallEventStore {
	if f == nil || f.callEventStore == nil {
		return nil
	}
	return f.callEventStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	bridgeStore, err := NewBridgeStore(f.db, f.guardStaleAfter)
	if err != nil {
		return err
	}
	callEventStore, err := NewCallEventStore(f.db)
	if err != nil {
		return err
	}
	f.bridgeStore = bridgeStore
	f.callEventStore = callEventStore
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
