package core

import (
	"strings"
	"time"
)

const (
	DefaultAdmissionTTL    = 60 * time.Second
	DefaultDedupWindow     = 2 * time.Second
	DefaultFutureSkew      = 5 * time.Second
	DefaultGuardStaleAfter = 2 * time.Minute
)

// AdmissionRules carries the tunable windows of the admission engine.
type AdmissionRules struct {
	TTL             time.Duration
	DedupWindow     time.Duration
	FutureSkew      time.Duration
	GuardStaleAfter time.Duration
}

func DefaultAdmissionRules() AdmissionRules {
	return AdmissionRules{
		TTL:             DefaultAdmissionTTL,
		DedupWindow:     DefaultDedupWindow,
		FutureSkew:      DefaultFutureSkew,
		GuardStaleAfter: DefaultGuardStaleAfter,
	}
}

func (r AdmissionRules) normalized() AdmissionRules {
	out := r
	if out.TTL <= 0 {
		out.TTL = DefaultAdmissionTTL
	}
	if out.DedupWindow <= 0 {
		out.DedupWindow = DefaultDedupWindow
	}
	if out.FutureSkew <= 0 {
		out.FutureSkew = DefaultFutureSkew
	}
	if out.GuardStaleAfter <= 0 {
		out.GuardStaleAfter = DefaultGuardStaleAfter
	}
	return out
}

// Decide maps the current time, an incoming-call fact, and store-derived
// history into an admission decision. Pure and total: identical inputs yield
// identical decisions, and no input combination panics.
//
// Checks run in order: active-call guard, delivery TTL, call-id dedup,
// timestamp-bucket dedup. The call id is the strong dedup key; timestamp
// bucketing is a fallback for transports that omit it, tolerating
// retransmission jitter below the dedup window. A timestamp from the future
// is never rejected; callers may log it as a clock-skew signal (see
// FutureSkewed).
func Decide(
	now time.Time,
	fact IncomingCallFact,
	rules AdmissionRules,
	last LastProcessed,
	guard ActiveCallGuard,
) AdmissionDecision {
	rules = rules.normalized()

	if guard.Active(now, rules.GuardStaleAfter) {
		return AdmissionDecision{ShouldProcess: false, Reason: ReasonActiveCallExists}
	}

	if fact.ServerTsMs != nil {
		age := now.UnixMilli() - *fact.ServerTsMs
		if age > rules.TTL.Milliseconds() {
			return AdmissionDecision{ShouldProcess: false, Reason: ReasonExpiredTTL}
		}
	}

	callID := strings.TrimSpace(fact.CallID)
	lastCallID := strings.TrimSpace(last.CallID)
	if callID != "" && lastCallID != "" && callID == lastCallID {
		return AdmissionDecision{ShouldProcess: false, Reason: ReasonDuplicateCallID}
	}

	if callID == "" && fact.ServerTsMs != nil && last.ServerTsMs != 0 {
		delta := *fact.ServerTsMs - last.ServerTsMs
		if delta < 0 {
			delta = -delta
		}
		if delta < rules.DedupWindow.Milliseconds() {
			return AdmissionDecision{ShouldProcess: false, Reason: ReasonDuplicateTimestampBucket}
		}
	}

	return AdmissionDecision{ShouldProcess: true, Reason: ReasonOK}
}

// FutureSkewed reports whether the fact's server timestamp is further in the
// future than the tolerated skew. Diagnostic only: a skewed fact is still
// admitted.
func FutureSkewed(now time.Time, fact IncomingCallFact, rules AdmissionRules) bool {
	if fact.ServerTsMs == nil {
		return false
	}
	rules = rules.normalized()
	age := now.UnixMilli() - *fact.ServerTsMs
	return age < -rules.FutureSkew.Milliseconds()
}
