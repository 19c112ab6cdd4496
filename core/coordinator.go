package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ShowIncomingCall runs a fact through the admission engine and, when
// admitted, creates the connection lifecycle for it: arm the active-call
// guard, register the handle, request UI presentation, and persist dedup
// history.
//
// The returned bool tells the transport whether the fact was consumed.
// Rejections for an in-flight call or a recognized duplicate still report
// true so the transport suppresses its own fallback notification; an expired
// fact and any presentation failure report false so a fallback path can
// notify the user.
func (s *Service) ShowIncomingCall(ctx context.Context, fact IncomingCallFact) bool {
	if s == nil || s.bridgeStore == nil {
		return false
	}
	startedAt := s.clock()
	fields := map[string]any{
		"call_id":    fact.CallID,
		"caller_key": fact.CallerKey,
	}
	if err := fact.Validate(); err != nil {
		s.observeOperation(ctx, startedAt, "show_incoming_call", err, fields)
		return false
	}

	now := s.clock()
	decision := s.admit(ctx, now, fact)
	fields["reason"] = string(decision.Reason)

	if FutureSkewed(now, fact, s.rules) {
		// Clock skew beyond tolerance. Never blocks; surfaced so a
		// widespread transport clock problem shows up in logs.
		s.logWarn(ctx, "incoming fact timestamp is ahead of local clock", fields)
	}

	if !decision.ShouldProcess {
		s.appendCallEvent(ctx, CallEventRejectedFact, fact, string(decision.Reason))
		s.observeOperation(ctx, startedAt, "show_incoming_call", nil, fields)
		return decision.HandledUpstream()
	}

	s.ensureAccountRegistered(ctx)

	key := fact.ConnectionKey()
	fields["connection_key"] = key
	if err := s.bridgeStore.MarkActiveCall(ctx, key); err != nil {
		s.observeOperation(ctx, startedAt, "show_incoming_call", err, fields)
		return false
	}

	conn := newConnection(fact)
	if err := conn.transition(StateRinging); err != nil {
		s.releaseAfterFailedPresentation(ctx, key)
		s.observeOperation(ctx, startedAt, "show_incoming_call", err, fields)
		return false
	}
	if err := s.registry.Register(key, conn); err != nil {
		s.releaseAfterFailedPresentation(ctx, key)
		s.observeOperation(ctx, startedAt, "show_incoming_call", err, fields)
		return false
	}

	if !s.presentBestEffort(ctx, "show_incoming_ui", fields, func(presenter CallPresenter) error {
		return presenter.ShowIncoming(ctx, key, fact.DisplayName())
	}) {
		// Known failure path: leave the guard and registry consistent so
		// the next fact is not blocked by a call that never rang.
		s.registry.Unregister(key)
		s.releaseAfterFailedPresentation(ctx, key)
		s.observeOperation(ctx, startedAt, "show_incoming_call", nil, fields)
		return false
	}

	// Dedup history is written only once the call is actually ringing: a
	// fact that never presented must stay admissible on retransmit.
	if err := s.bridgeStore.RecordLastProcessed(ctx, fact.CallID, fact.ServerTsMs); err != nil {
		errFields := cloneFields(fields)
		errFields["error"] = err.Error()
		// The call is already ringing; a lost dedup record must not
		// retract it. A redelivery falls through to the guard check.
		s.logError(ctx, "record dedup history failed", errFields)
	}

	s.appendCallEvent(ctx, CallEventAdmitted, fact, string(ReasonOK))
	s.observeOperation(ctx, startedAt, "show_incoming_call", nil, fields)
	return true
}

// Answer drives the Ringing -> Active transition for the user's accept: the
// pending-accept record (with any cached offer) is published for the
// application layer, ownership of the call transfers, and the native
// connection is torn down. Returns false when the connection is already
// gone.
func (s *Service) Answer(ctx context.Context, key string) bool {
	if s == nil || s.bridgeStore == nil {
		return false
	}
	startedAt := s.clock()
	conn, ok := s.registry.Lookup(key)
	fields := map[string]any{"connection_key": key}
	if !ok {
		s.observeOperation(ctx, startedAt, "answer_call", ErrConnectionNotFound, fields)
		return false
	}
	if err := conn.transition(StateActive); err != nil {
		s.observeOperation(ctx, startedAt, "answer_call", err, fields)
		return false
	}

	fact := conn.Fact()
	fields["call_id"] = fact.CallID
	fields["caller_key"] = fact.CallerKey

	record := pendingRecordFromFact(PendingAccept, fact, s.clock())
	if payload, found, err := s.bridgeStore.TakeOfferIfMatching(ctx, fact.CallerKey, fact.CallID); err != nil {
		s.logError(ctx, "offer cache read failed", withError(fields, err))
	} else if found {
		record.OfferPayload = payload
	}
	if err := s.bridgeStore.PublishPending(ctx, PendingAccept, record); err != nil {
		s.observeOperation(ctx, startedAt, "answer_call", err, fields)
		return false
	}
	if err := s.bridgeStore.ClearOffer(ctx); err != nil {
		s.logError(ctx, "offer cache clear failed", withError(fields, err))
	}

	// Store and registry mutations stay ahead of the close signal so a
	// surface reacting to it observes the post-transition state.
	s.registry.Unregister(conn.Key())
	s.presentBestEffort(ctx, "close_incoming_ui", fields, func(presenter CallPresenter) error {
		return presenter.CloseIncoming(ctx, conn.Key())
	})

	// The application layer owns the call from here on.
	if err := s.bridgeStore.ClearActiveCall(ctx); err != nil {
		s.logError(ctx, "active call clear failed", withError(fields, err))
	}
	s.presentBestEffort(ctx, "enable_call_mode", fields, func(presenter CallPresenter) error {
		return presenter.EnableCallMode(ctx)
	})
	s.presentBestEffort(ctx, "launch_app", fields, func(presenter CallPresenter) error {
		return presenter.LaunchApp(ctx)
	})

	// The native connection is torn down: handing off means the signaling
	// stack must stop managing the call.
	if err := conn.transition(StateDisconnectedLocal); err != nil {
		s.logError(ctx, "post-answer teardown transition failed", withError(fields, err))
	}

	s.appendCallEvent(ctx, CallEventAnswered, fact, "")
	s.observeOperation(ctx, startedAt, "answer_call", nil, fields)
	return true
}

// Reject drives Ringing -> Disconnected(rejected) for the user's decline.
// The application surface is still launched so it can notify the far end.
func (s *Service) Reject(ctx context.Context, key string) bool {
	if s == nil || s.bridgeStore == nil {
		return false
	}
	startedAt := s.clock()
	conn, ok := s.registry.Lookup(key)
	fields := map[string]any{"connection_key": key}
	if !ok {
		s.observeOperation(ctx, startedAt, "reject_call", ErrConnectionNotFound, fields)
		return false
	}
	if err := conn.transition(StateDisconnectedRejected); err != nil {
		s.observeOperation(ctx, startedAt, "reject_call", err, fields)
		return false
	}

	fact := conn.Fact()
	fields["call_id"] = fact.CallID
	fields["caller_key"] = fact.CallerKey

	record := pendingRecordFromFact(PendingReject, fact, s.clock())
	if err := s.bridgeStore.PublishPending(ctx, PendingReject, record); err != nil {
		s.observeOperation(ctx, startedAt, "reject_call", err, fields)
		return false
	}
	if err := s.bridgeStore.ClearOffer(ctx); err != nil {
		s.logError(ctx, "offer cache clear failed", withError(fields, err))
	}

	s.registry.Unregister(conn.Key())
	s.presentBestEffort(ctx, "close_incoming_ui", fields, func(presenter CallPresenter) error {
		return presenter.CloseIncoming(ctx, conn.Key())
	})
	s.presentBestEffort(ctx, "launch_app", fields, func(presenter CallPresenter) error {
		return presenter.LaunchApp(ctx)
	})
	if err := s.bridgeStore.ClearActiveCall(ctx); err != nil {
		s.logError(ctx, "active call clear failed", withError(fields, err))
	}

	s.appendCallEvent(ctx, CallEventDeclined, fact, "")
	s.observeOperation(ctx, startedAt, "reject_call", nil, fields)
	return true
}

// Disconnect handles a remote or local hangup from Ringing or Active.
func (s *Service) Disconnect(ctx context.Context, key string) bool {
	return s.teardown(ctx, key, StateDisconnectedLocal, CallEventDisconnected, "disconnect_call")
}

// Abort handles a call canceled before the user answered.
func (s *Service) Abort(ctx context.Context, key string) bool {
	return s.teardown(ctx, key, StateDisconnectedCanceled, CallEventAborted, "abort_call")
}

func (s *Service) teardown(
	ctx context.Context,
	key string,
	terminal ConnectionState,
	eventType CallEventType,
	operation string,
) bool {
	if s == nil || s.bridgeStore == nil {
		return false
	}
	startedAt := s.clock()
	conn, ok := s.registry.Lookup(key)
	fields := map[string]any{"connection_key": key}
	if !ok {
		s.observeOperation(ctx, startedAt, operation, ErrConnectionNotFound, fields)
		return false
	}
	if err := conn.transition(terminal); err != nil {
		s.observeOperation(ctx, startedAt, operation, err, fields)
		return false
	}

	fact := conn.Fact()
	fields["call_id"] = fact.CallID
	fields["caller_key"] = fact.CallerKey

	if err := s.bridgeStore.ClearActiveCall(ctx); err != nil {
		s.logError(ctx, "active call clear failed", withError(fields, err))
	}
	if err := s.bridgeStore.ClearOffer(ctx); err != nil {
		s.logError(ctx, "offer cache clear failed", withError(fields, err))
	}
	s.registry.Unregister(conn.Key())
	s.presentBestEffort(ctx, "close_incoming_ui", fields, func(presenter CallPresenter) error {
		return presenter.CloseIncoming(ctx, conn.Key())
	})

	s.appendCallEvent(ctx, eventType, fact, "")
	s.observeOperation(ctx, startedAt, operation, nil, fields)
	return true
}

// GetAndClearPendingAccept drains the accept mailbox slot. Destructive: a
// second call immediately after returns ok=false.
func (s *Service) GetAndClearPendingAccept(ctx context.Context) (PendingCallRecord, bool) {
	return s.drainPending(ctx, PendingAccept)
}

// GetAndClearPendingReject drains the reject mailbox slot.
func (s *Service) GetAndClearPendingReject(ctx context.Context) (PendingCallRecord, bool) {
	return s.drainPending(ctx, PendingReject)
}

func (s *Service) drainPending(ctx context.Context, kind PendingKind) (PendingCallRecord, bool) {
	if s == nil || s.bridgeStore == nil {
		return PendingCallRecord{}, false
	}
	record, ok, err := s.bridgeStore.TakeAndClearPending(ctx, kind)
	if err != nil {
		s.logError(ctx, "pending mailbox read failed", map[string]any{
			"kind":  string(kind),
			"error": err.Error(),
		})
		return PendingCallRecord{}, false
	}
	return record, ok
}

// CacheIncomingOffer stores the signaling payload that arrived with a
// native-signaling fact so Answer can hand it to the application layer.
func (s *Service) CacheIncomingOffer(ctx context.Context, offer CachedOffer) error {
	if s == nil || s.bridgeStore == nil {
		return mapBuildError(s.mapper(), fmt.Errorf("core: bridge store is not configured"))
	}
	if err := s.bridgeStore.CacheOffer(ctx, offer); err != nil {
		return mapBuildError(s.mapper(), err)
	}
	return nil
}

// ClearActiveCall is the application layer's escape hatch to force-release
// the guard.
func (s *Service) ClearActiveCall(ctx context.Context) error {
	if s == nil || s.bridgeStore == nil {
		return nil
	}
	return s.bridgeStore.ClearActiveCall(ctx)
}

// EnableCallMode and DisableCallMode forward presentation toggles to the UI
// collaborator, best-effort.
func (s *Service) EnableCallMode(ctx context.Context) bool {
	return s.presentBestEffort(ctx, "enable_call_mode", nil, func(presenter CallPresenter) error {
		return presenter.EnableCallMode(ctx)
	})
}

func (s *Service) DisableCallMode(ctx context.Context) bool {
	return s.presentBestEffort(ctx, "disable_call_mode", nil, func(presenter CallPresenter) error {
		return presenter.DisableCallMode(ctx)
	})
}

// PlaceOutgoingCall exists so callers get an explicit refusal instead of a
// half-built lifecycle: this core only mediates incoming calls.
func (s *Service) PlaceOutgoingCall(_ context.Context, _ string) error {
	return mapBuildError(s.mapper(), ErrOutgoingNotSupported)
}

// RecoveryReport describes what RecoverAfterRestart found and released.
type RecoveryReport struct {
	GuardCleared bool
	GuardKey     string
}

// RecoverAfterRestart releases state a killed process left behind. The
// registry is process-memory and starts empty, so any persisted guard is
// garbage after a restart; pending mailbox records are left for the normal
// drain path.
func (s *Service) RecoverAfterRestart(ctx context.Context) RecoveryReport {
	if s == nil || s.bridgeStore == nil {
		return RecoveryReport{}
	}
	report := RecoveryReport{}
	key, ok, err := s.bridgeStore.ActiveCallKey(ctx, s.clock())
	if err != nil {
		s.logError(ctx, "restart recovery guard read failed", map[string]any{"error": err.Error()})
		return report
	}
	if ok {
		report.GuardKey = key
		if err := s.bridgeStore.ClearActiveCall(ctx); err != nil {
			s.logError(ctx, "restart recovery guard clear failed", map[string]any{
				"connection_key": key,
				"error":          err.Error(),
			})
			return report
		}
		report.GuardCleared = true
		s.logInfo(ctx, "stale active call released after restart", map[string]any{
			"connection_key": key,
		})
	}
	return report
}

func (s *Service) admit(ctx context.Context, now time.Time, fact IncomingCallFact) AdmissionDecision {
	guard := ActiveCallGuard{}
	if key, ok, err := s.bridgeStore.ActiveCallKey(ctx, now); err != nil {
		s.logError(ctx, "active call guard read failed", map[string]any{"error": err.Error()})
	} else if ok {
		guard = ActiveCallGuard{CallKey: key, SetAt: now}
	}
	last, err := s.bridgeStore.GetLastProcessed(ctx)
	if err != nil {
		s.logError(ctx, "dedup history read failed", map[string]any{"error": err.Error()})
		last = LastProcessed{}
	}
	return Decide(now, fact, s.rules, last, guard)
}

// ensureAccountRegistered performs the one-time signaling-account setup,
// guarded by the persisted latch. Best-effort: a failed registration leaves
// the latch unset so the next call retries.
func (s *Service) ensureAccountRegistered(ctx context.Context) {
	if s == nil || s.registrar == nil || s.bridgeStore == nil {
		return
	}
	done, err := s.bridgeStore.IsRegistrationDone(ctx)
	if err != nil {
		s.logError(ctx, "registration latch read failed", map[string]any{"error": err.Error()})
		return
	}
	if done {
		return
	}
	if err := s.registrar.Register(ctx); err != nil {
		s.logError(ctx, "signaling account registration failed", map[string]any{"error": err.Error()})
		return
	}
	if err := s.bridgeStore.SetRegistrationDone(ctx); err != nil {
		s.logError(ctx, "registration latch write failed", map[string]any{"error": err.Error()})
		return
	}
	s.logInfo(ctx, "signaling account registered", nil)
}

func (s *Service) releaseAfterFailedPresentation(ctx context.Context, key string) {
	if err := s.bridgeStore.ClearActiveCall(ctx); err != nil {
		s.logError(ctx, "guard release after failed presentation failed", map[string]any{
			"connection_key": key,
			"error":          err.Error(),
		})
	}
}

// presentBestEffort is the boundary around every UI collaborator call:
// failures collapse into a logged diagnostic and a false return, never a
// fault crossing into the state machine.
func (s *Service) presentBestEffort(
	ctx context.Context,
	operation string,
	fields map[string]any,
	call func(presenter CallPresenter) error,
) bool {
	if s == nil || s.presenter == nil {
		return false
	}
	if err := call(s.presenter); err != nil {
		s.logError(ctx, operation+" presenter call failed", withError(cloneFields(fields), err))
		return false
	}
	return true
}

func (s *Service) appendCallEvent(ctx context.Context, eventType CallEventType, fact IncomingCallFact, reason string) {
	if s == nil || s.callEventStore == nil {
		return
	}
	event := CallEvent{
		ID:         uuid.NewString(),
		EventType:  eventType,
		CallerKey:  fact.CallerKey,
		CallID:     fact.CallID,
		Reason:     reason,
		ServerTsMs: fact.ServerTsMs,
		CreatedAt:  s.clock(),
	}
	if err := s.callEventStore.Append(ctx, event); err != nil {
		s.logError(ctx, "call event append failed", map[string]any{
			"event_type": string(eventType),
			"error":      err.Error(),
		})
	}
}

func (s *Service) mapper() ErrorMapper {
	if s != nil && s.errorMapper != nil {
		return s.errorMapper
	}
	return defaultErrorMapper
}

func pendingRecordFromFact(kind PendingKind, fact IncomingCallFact, storedAt time.Time) PendingCallRecord {
	return PendingCallRecord{
		Action:     kind,
		CallerKey:  fact.CallerKey,
		CallID:     fact.CallID,
		CallerName: fact.CallerName,
		ServerTsMs: fact.ServerTsMs,
		StoredAt:   storedAt,
	}
}

func withError(fields map[string]any, err error) map[string]any {
	out := cloneFields(fields)
	if err != nil {
		out["error"] = err.Error()
	}
	return out
}
