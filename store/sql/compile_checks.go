package sqlstore

import "github.com/goliatone/go-callbridge/core"

var (
	_ core.BridgeStore            = (*BridgeStore)(nil)
	_ core.CallEventStore         = (*CallEventStore)(nil)
	_ core.CallEventStore         = (*CachedCallEventStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
