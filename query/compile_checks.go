package query

import (
	"github.com/goliatone/go-callbridge/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[ListRecentCallEventsMessage, []core.CallEvent] = (*ListRecentCallEventsQuery)(nil)
	_ gocmd.Querier[GetLastProcessedMessage, core.LastProcessed]   = (*GetLastProcessedQuery)(nil)
	_ gocmd.Querier[GetActiveCallMessage, ActiveCall]              = (*GetActiveCallQuery)(nil)

	_ CallEventReader   = (core.CallEventStore)(nil)
	_ BridgeStateReader = (core.BridgeStore)(nil)
)
