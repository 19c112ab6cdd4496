package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidConnectionStateTransition = errors.New("core: invalid connection state transition")
	ErrConnectionNotFound               = errors.New("core: connection not found")
	ErrOutgoingNotSupported             = errors.New("core: outgoing connections are not supported")
)

// IncomingCallFact is an incoming-call signal normalized from a transport
// payload. Immutable once constructed; CallID and ServerTsMs are optional
// because older transports omit them.
type IncomingCallFact struct {
	CallID          string
	CallerKey       string
	CallerName      string
	ServerTsMs      *int64
	NativeSignaling bool
}

func (f IncomingCallFact) Validate() error {
	if strings.TrimSpace(f.CallerKey) == "" {
		return fmt.Errorf("core: caller key is required")
	}
	return nil
}

// ConnectionKey is the registry/guard key for a fact: the call id when the
// transport supplied one, the caller key otherwise.
func (f IncomingCallFact) ConnectionKey() string {
	if key := strings.TrimSpace(f.CallID); key != "" {
		return key
	}
	return strings.TrimSpace(f.CallerKey)
}

const callerKeyDisplayLen = 8

// DisplayName is the UI-facing caller label: the caller name when present,
// otherwise a truncated caller key.
func (f IncomingCallFact) DisplayName() string {
	if name := strings.TrimSpace(f.CallerName); name != "" {
		return name
	}
	key := strings.TrimSpace(f.CallerKey)
	if len(key) > callerKeyDisplayLen {
		return key[:callerKeyDisplayLen]
	}
	return key
}

type AdmissionReason string

const (
	ReasonOK                       AdmissionReason = "ok"
	ReasonActiveCallExists         AdmissionReason = "active_call_exists"
	ReasonExpiredTTL               AdmissionReason = "expired_ttl"
	ReasonDuplicateCallID          AdmissionReason = "duplicate_call_id"
	ReasonDuplicateTimestampBucket AdmissionReason = "duplicate_timestamp_bucket"
)

// AdmissionDecision is the outcome of the admission engine for one fact.
// It is a value, recomputed per fact, never persisted.
type AdmissionDecision struct {
	ShouldProcess bool
	Reason        AdmissionReason
}

// HandledUpstream reports whether the transport caller should treat the fact
// as consumed. Rejections caused by an in-flight call or a recognized
// duplicate are consumed so the transport does not raise a redundant
// user-visible notification; an expired fact is left to the fallback path so
// the user can still learn about the missed call.
func (d AdmissionDecision) HandledUpstream() bool {
	if d.ShouldProcess {
		return true
	}
	switch d.Reason {
	case ReasonActiveCallExists, ReasonDuplicateCallID, ReasonDuplicateTimestampBucket:
		return true
	default:
		return false
	}
}

// ActiveCallGuard is the persisted single-active-call lock. A set key means a
// connection lifecycle is in flight; it self-expires so a crashed process
// that never cleared it cannot block calls forever.
type ActiveCallGuard struct {
	CallKey string
	SetAt   time.Time
}

// Active reports whether the guard currently blocks new admissions. A guard
// with an unknown SetAt is trusted as active; a guard older than staleAfter
// is treated as absent.
func (g ActiveCallGuard) Active(now time.Time, staleAfter time.Duration) bool {
	if strings.TrimSpace(g.CallKey) == "" {
		return false
	}
	if g.SetAt.IsZero() {
		return true
	}
	if staleAfter <= 0 {
		return true
	}
	return now.Sub(g.SetAt) <= staleAfter
}

// LastProcessed is the dedup history updated on every admitted fact.
type LastProcessed struct {
	CallID     string
	ServerTsMs int64
}

type PendingKind string

const (
	PendingAccept PendingKind = "accept"
	PendingReject PendingKind = "reject"
)

// PendingCallRecord is the single-slot mailbox payload handed across the
// process boundary to the application layer. Writes overwrite, reads clear.
type PendingCallRecord struct {
	Action       PendingKind
	CallerKey    string
	CallID       string
	CallerName   string
	ServerTsMs   *int64
	OfferPayload string
	StoredAt     time.Time
}

func (r PendingCallRecord) Validate() error {
	if r.Action != PendingAccept && r.Action != PendingReject {
		return fmt.Errorf("core: invalid pending action %q", r.Action)
	}
	if strings.TrimSpace(r.CallerKey) == "" {
		return fmt.Errorf("core: pending record caller key is required")
	}
	return nil
}

// CachedOffer is the short-lived signaling payload cached between fact
// arrival and the user's answer. Single slot, cleared on every terminal
// transition.
type CachedOffer struct {
	CallerKey  string
	CallID     string
	ServerTsMs int64
	Payload    string
}

// Matches reports whether the cached offer belongs to the given caller/call.
// Caller keys must match; call ids must match only when both sides carry one.
func (o CachedOffer) Matches(callerKey, callID string) bool {
	cachedCaller := strings.TrimSpace(o.CallerKey)
	if cachedCaller == "" || cachedCaller != strings.TrimSpace(callerKey) {
		return false
	}
	cachedCallID := strings.TrimSpace(o.CallID)
	requestedCallID := strings.TrimSpace(callID)
	if cachedCallID != "" && requestedCallID != "" && cachedCallID != requestedCallID {
		return false
	}
	return true
}

type ConnectionState string

const (
	StateInitializing         ConnectionState = "initializing"
	StateRinging              ConnectionState = "ringing"
	StateActive               ConnectionState = "active"
	StateDisconnectedLocal    ConnectionState = "disconnected_local"
	StateDisconnectedRejected ConnectionState = "disconnected_rejected"
	StateDisconnectedCanceled ConnectionState = "disconnected_canceled"
)

func (s ConnectionState) Terminal() bool {
	switch s {
	case StateDisconnectedLocal, StateDisconnectedRejected, StateDisconnectedCanceled:
		return true
	default:
		return false
	}
}

var connectionStateTransitions = map[ConnectionState][]ConnectionState{
	StateInitializing: {StateRinging, StateDisconnectedLocal, StateDisconnectedCanceled},
	StateRinging: {
		StateActive,
		StateDisconnectedLocal,
		StateDisconnectedRejected,
		StateDisconnectedCanceled,
	},
	StateActive: {StateDisconnectedLocal},
}

func validConnectionTransition(from, to ConnectionState) bool {
	for _, next := range connectionStateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type CallEventType string

const (
	CallEventAdmitted     CallEventType = "admitted"
	CallEventRejectedFact CallEventType = "fact_rejected"
	CallEventAnswered     CallEventType = "answered"
	CallEventDeclined     CallEventType = "declined"
	CallEventDisconnected CallEventType = "disconnected"
	CallEventAborted      CallEventType = "aborted"
)

// CallEvent is a diagnostic journal entry recorded for admitted facts and
// terminal transitions.
type CallEvent struct {
	ID         string
	EventType  CallEventType
	CallerKey  string
	CallID     string
	Reason     string
	ServerTsMs *int64
	CreatedAt  time.Time
}
