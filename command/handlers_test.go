package command

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-callbridge/core"
	gocmd "github.com/goliatone/go-command"
)

type stubCallService struct {
	showIncomingCallFn func(ctx context.Context, fact core.IncomingCallFact) bool
	answerFn           func(ctx context.Context, key string) bool
	rejectFn           func(ctx context.Context, key string) bool
	disconnectFn       func(ctx context.Context, key string) bool
	abortFn            func(ctx context.Context, key string) bool
	cacheOfferFn       func(ctx context.Context, offer core.CachedOffer) error
	clearActiveFn      func(ctx context.Context) error
	drainAcceptFn      func(ctx context.Context) (core.PendingCallRecord, bool)
	drainRejectFn      func(ctx context.Context) (core.PendingCallRecord, bool)
	enableCallModeFn   func(ctx context.Context) bool
	disableCallModeFn  func(ctx context.Context) bool
	recoverFn          func(ctx context.Context) core.RecoveryReport
}

func (s stubCallService) ShowIncomingCall(ctx context.Context, fact core.IncomingCallFact) bool {
	if s.showIncomingCallFn == nil {
		return false
	}
	return s.showIncomingCallFn(ctx, fact)
}

func (s stubCallService) Answer(ctx context.Context, key string) bool {
	if s.answerFn == nil {
		return false
	}
	return s.answerFn(ctx, key)
}

func (s stubCallService) Reject(ctx context.Context, key string) bool {
	if s.rejectFn == nil {
		return false
	}
	return s.rejectFn(ctx, key)
}

func (s stubCallService) Disconnect(ctx context.Context, key string) bool {
	if s.disconnectFn == nil {
		return false
	}
	return s.disconnectFn(ctx, key)
}

func (s stubCallService) Abort(ctx context.Context, key string) bool {
	if s.abortFn == nil {
		return false
	}
	return s.abortFn(ctx, key)
}

func (s stubCallService) CacheIncomingOffer(ctx context.Context, offer core.CachedOffer) error {
	if s.cacheOfferFn == nil {
		return nil
	}
	return s.cacheOfferFn(ctx, offer)
}

func (s stubCallService) ClearActiveCall(ctx context.Context) error {
	if s.clearActiveFn == nil {
		return nil
	}
	return s.clearActiveFn(ctx)
}

func (s stubCallService) GetAndClearPendingAccept(ctx context.Context) (core.PendingCallRecord, bool) {
	if s.drainAcceptFn == nil {
		return core.PendingCallRecord{}, false
	}
	return s.drainAcceptFn(ctx)
}

func (s stubCallService) GetAndClearPendingReject(ctx context.Context) (core.PendingCallRecord, bool) {
	if s.drainRejectFn == nil {
		return core.PendingCallRecord{}, false
	}
	return s.drainRejectFn(ctx)
}

func (s stubCallService) EnableCallMode(ctx context.Context) bool {
	if s.enableCallModeFn == nil {
		return false
	}
	return s.enableCallModeFn(ctx)
}

func (s stubCallService) DisableCallMode(ctx context.Context) bool {
	if s.disableCallModeFn == nil {
		return false
	}
	return s.disableCallModeFn(ctx)
}

func (s stubCallService) RecoverAfterRestart(ctx context.Context) core.RecoveryReport {
	if s.recoverFn == nil {
		return core.RecoveryReport{}
	}
	return s.recoverFn(ctx)
}

func TestShowIncomingCallCommand_DelegatesAndStoresVerdict(t *testing.T) {
	called := false
	svc := stubCallService{
		showIncomingCallFn: func(_ context.Context, fact core.IncomingCallFact) bool {
			called = true
			if fact.CallerKey != "caller-1" || fact.CallID != "call-1" {
				t.Fatalf("unexpected fact: %#v", fact)
			}
			return true
		},
	}

	cmd := NewShowIncomingCallCommand(svc)
	collector := gocmd.NewResult[bool]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, ShowIncomingCallMessage{Fact: core.IncomingCallFact{
		CallID:    "call-1",
		CallerKey: "caller-1",
	}})
	if err != nil {
		t.Fatalf("execute show incoming call: %v", err)
	}
	if !called {
		t.Fatalf("expected service invocation")
	}
	handled, ok := collector.Load()
	if !ok {
		t.Fatalf("expected stored verdict")
	}
	if !handled {
		t.Fatalf("expected handled verdict")
	}
}

func TestLifecycleCommands_DelegateToService(t *testing.T) {
	t.Run("answer", func(t *testing.T) {
		svc := stubCallService{
			answerFn: func(_ context.Context, key string) bool {
				if key != "call-1" {
					t.Fatalf("unexpected key %q", key)
				}
				return true
			},
		}
		cmd := NewAnswerCallCommand(svc)
		collector := gocmd.NewResult[bool]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := cmd.Execute(ctx, AnswerCallMessage{ConnectionKey: "call-1"}); err != nil {
			t.Fatalf("execute answer: %v", err)
		}
		if done, ok := collector.Load(); !ok || !done {
			t.Fatalf("expected stored answer outcome, got %v %v", done, ok)
		}
	})

	t.Run("reject unknown key", func(t *testing.T) {
		svc := stubCallService{
			rejectFn: func(_ context.Context, key string) bool { return false },
		}
		cmd := NewRejectCallCommand(svc)
		collector := gocmd.NewResult[bool]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := cmd.Execute(ctx, RejectCallMessage{ConnectionKey: "ghost"}); err != nil {
			t.Fatalf("execute reject: %v", err)
		}
		if done, ok := collector.Load(); !ok || done {
			t.Fatalf("expected stored false outcome, got %v %v", done, ok)
		}
	})

	t.Run("disconnect and abort", func(t *testing.T) {
		var disconnected, aborted string
		svc := stubCallService{
			disconnectFn: func(_ context.Context, key string) bool {
				disconnected = key
				return true
			},
			abortFn: func(_ context.Context, key string) bool {
				aborted = key
				return true
			},
		}
		if err := NewDisconnectCallCommand(svc).Execute(context.Background(), DisconnectCallMessage{ConnectionKey: "call-2"}); err != nil {
			t.Fatalf("execute disconnect: %v", err)
		}
		if err := NewAbortCallCommand(svc).Execute(context.Background(), AbortCallMessage{ConnectionKey: "call-3"}); err != nil {
			t.Fatalf("execute abort: %v", err)
		}
		if disconnected != "call-2" || aborted != "call-3" {
			t.Fatalf("unexpected keys: %q %q", disconnected, aborted)
		}
	})

	t.Run("call mode toggles", func(t *testing.T) {
		enabled := false
		disabled := false
		svc := stubCallService{
			enableCallModeFn:  func(_ context.Context) bool { enabled = true; return true },
			disableCallModeFn: func(_ context.Context) bool { disabled = true; return true },
		}
		if err := NewEnableCallModeCommand(svc).Execute(context.Background(), EnableCallModeMessage{}); err != nil {
			t.Fatalf("execute enable call mode: %v", err)
		}
		if err := NewDisableCallModeCommand(svc).Execute(context.Background(), DisableCallModeMessage{}); err != nil {
			t.Fatalf("execute disable call mode: %v", err)
		}
		if !enabled || !disabled {
			t.Fatalf("expected both toggles to reach service")
		}
	})
}

func TestCacheOfferCommand_PropagatesServiceError(t *testing.T) {
	svc := stubCallService{
		cacheOfferFn: func(_ context.Context, offer core.CachedOffer) error {
			if offer.CallerKey != "caller-1" || offer.Payload != "sdp-offer" {
				t.Fatalf("unexpected offer: %#v", offer)
			}
			return commandDependencyError("command: store unavailable")
		},
	}
	cmd := NewCacheOfferCommand(svc)
	err := cmd.Execute(context.Background(), CacheOfferMessage{Offer: core.CachedOffer{
		CallerKey: "caller-1",
		Payload:   "sdp-offer",
	}})
	if err == nil {
		t.Fatalf("expected service error to propagate")
	}
}

func TestDrainCommands_StoreMailboxRecord(t *testing.T) {
	record := core.PendingCallRecord{
		Action:       core.PendingAccept,
		CallerKey:    "caller-1",
		CallID:       "call-1",
		OfferPayload: "sdp-offer",
		StoredAt:     time.Unix(1_700_000_000, 0),
	}
	svc := stubCallService{
		drainAcceptFn: func(_ context.Context) (core.PendingCallRecord, bool) {
			return record, true
		},
		drainRejectFn: func(_ context.Context) (core.PendingCallRecord, bool) {
			return core.PendingCallRecord{}, false
		},
	}

	collector := gocmd.NewResult[DrainResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := NewDrainPendingAcceptCommand(svc).Execute(ctx, DrainPendingAcceptMessage{}); err != nil {
		t.Fatalf("execute drain accept: %v", err)
	}
	got, ok := collector.Load()
	if !ok || !got.Found {
		t.Fatalf("expected drained record, got %#v %v", got, ok)
	}
	if got.Record.CallID != "call-1" || got.Record.OfferPayload != "sdp-offer" {
		t.Fatalf("unexpected record: %#v", got.Record)
	}

	emptyCollector := gocmd.NewResult[DrainResult]()
	emptyCtx := gocmd.ContextWithResult(context.Background(), emptyCollector)
	if err := NewDrainPendingRejectCommand(svc).Execute(emptyCtx, DrainPendingRejectMessage{}); err != nil {
		t.Fatalf("execute drain reject: %v", err)
	}
	drained, ok := emptyCollector.Load()
	if !ok {
		t.Fatalf("expected stored drain result")
	}
	if drained.Found {
		t.Fatalf("expected empty mailbox result")
	}
}

func TestRecoverCommand_StoresReport(t *testing.T) {
	svc := stubCallService{
		recoverFn: func(_ context.Context) core.RecoveryReport {
			return core.RecoveryReport{GuardCleared: true, GuardKey: "call-9"}
		},
	}
	collector := gocmd.NewResult[core.RecoveryReport]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := NewRecoverCommand(svc).Execute(ctx, RecoverMessage{}); err != nil {
		t.Fatalf("execute recover: %v", err)
	}
	report, ok := collector.Load()
	if !ok {
		t.Fatalf("expected stored report")
	}
	if !report.GuardCleared || report.GuardKey != "call-9" {
		t.Fatalf("unexpected report: %#v", report)
	}
}

func TestMessages_Validate(t *testing.T) {
	if err := (ShowIncomingCallMessage{}).Validate(); err == nil {
		t.Fatalf("expected caller key validation error")
	}
	if err := (AnswerCallMessage{ConnectionKey: "  "}).Validate(); err == nil {
		t.Fatalf("expected connection key validation error")
	}
	if err := (CacheOfferMessage{Offer: core.CachedOffer{CallerKey: "caller-1"}}).Validate(); err == nil {
		t.Fatalf("expected offer payload validation error")
	}
	if err := (CacheOfferMessage{Offer: core.CachedOffer{CallerKey: "caller-1", Payload: "sdp"}}).Validate(); err != nil {
		t.Fatalf("expected valid offer message: %v", err)
	}
	if err := (ClearActiveCallMessage{}).Validate(); err != nil {
		t.Fatalf("expected empty message to validate: %v", err)
	}
}

func TestMessageTypes_AreStable(t *testing.T) {
	cases := map[string]string{
		ShowIncomingCallMessage{}.Type():   TypeShowIncomingCall,
		AnswerCallMessage{}.Type():         TypeAnswerCall,
		RejectCallMessage{}.Type():         TypeRejectCall,
		DisconnectCallMessage{}.Type():     TypeDisconnectCall,
		AbortCallMessage{}.Type():          TypeAbortCall,
		CacheOfferMessage{}.Type():         TypeCacheOffer,
		ClearActiveCallMessage{}.Type():    TypeClearActiveCall,
		DrainPendingAcceptMessage{}.Type(): TypeDrainAccept,
		DrainPendingRejectMessage{}.Type(): TypeDrainReject,
		EnableCallModeMessage{}.Type():     TypeEnableCallMode,
		DisableCallModeMessage{}.Type():    TypeDisableCallMode,
		RecoverMessage{}.Type():            TypeRecover,
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("unexpected message type %q, want %q", got, want)
		}
	}
}
