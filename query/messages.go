package query

import "time"

const (
	TypeListRecentCallEvents = "callbridge.query.call_events.list_recent"
	TypeGetLastProcessed     = "callbridge.query.dedup.last_processed"
	TypeGetActiveCall        = "callbridge.query.guard.active_call"
)

type ListRecentCallEventsMessage struct {
	Limit int
}

func (ListRecentCallEventsMessage) Type() string { return TypeListRecentCallEvents }

func (m ListRecentCallEventsMessage) Validate() error {
	if m.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	return nil
}

type GetLastProcessedMessage struct{}

func (GetLastProcessedMessage) Type() string { return TypeGetLastProcessed }

func (GetLastProcessedMessage) Validate() error { return nil }

// GetActiveCallMessage reads the active-call guard. At defaults to the
// current time; the guard's staleness rule is applied against it.
type GetActiveCallMessage struct {
	At time.Time
}

func (GetActiveCallMessage) Type() string { return TypeGetActiveCall }

func (GetActiveCallMessage) Validate() error { return nil }
