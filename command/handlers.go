package command

import (
	"context"

	"github.com/goliatone/go-callbridge/core"
	gocmd "github.com/goliatone/go-command"
)

// CallService is the mutating surface the command layer drives. *core.Service
// satisfies it.
type CallService interface {
	ShowIncomingCall(ctx context.Context, fact core.IncomingCallFact) bool
	Answer(ctx context.Context, key string) bool
	Reject(ctx context.Context, key string) bool
	Disconnect(ctx context.Context, key string) bool
	Abort(ctx context.Context, key string) bool
	CacheIncomingOffer(ctx context.Context, offer core.CachedOffer) error
	ClearActiveCall(ctx context.Context) error
	GetAndClearPendingAccept(ctx context.Context) (core.PendingCallRecord, bool)
	GetAndClearPendingReject(ctx context.Context) (core.PendingCallRecord, bool)
	EnableCallMode(ctx context.Context) bool
	DisableCallMode(ctx context.Context) bool
	RecoverAfterRestart(ctx context.Context) core.RecoveryReport
}

// DrainResult carries a destructively-read mailbox record. Found is false
// when the slot was empty.
type DrainResult struct {
	Record core.PendingCallRecord
	Found  bool
}

type ShowIncomingCallCommand struct {
	service CallService
}

func NewShowIncomingCallCommand(service CallService) *ShowIncomingCallCommand {
	return &ShowIncomingCallCommand{service: service}
}

func (c *ShowIncomingCallCommand) Execute(ctx context.Context, msg ShowIncomingCallMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: call service is required")
	}
	handled := c.service.ShowIncomingCall(ctx, msg.Fact)
	storeResult(ctx, handled)
	return nil
}

type AnswerCallCommand struct {
	service CallService
}

func NewAnswerCallCommand(service CallService) *AnswerCallCommand {
	return &AnswerCallCommand{service: service}
}

func (c *AnswerCallCommand) Execute(ctx context.Context, msg AnswerCallMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: answer service is required")
	}
	storeResult(ctx, c.service.Answer(ctx, msg.ConnectionKey))
	return nil
}

type RejectCallCommand struct {
	service CallService
}

func NewRejectCallCommand(service CallService) *RejectCallCommand {
	return &RejectCallCommand{service: service}
}

func (c *RejectCallCommand) Execute(ctx context.Context, msg RejectCallMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: reject service is required")
	}
	storeResult(ctx, c.service.Reject(ctx, msg.ConnectionKey))
	return nil
}

type DisconnectCallCommand struct {
	service CallService
}

func NewDisconnectCallCommand(service CallService) *DisconnectCallCommand {
	return &DisconnectCallCommand{service: service}
}

func (c *DisconnectCallCommand) Execute(ctx context.Context, msg DisconnectCallMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: disconnect service is required")
	}
	storeResult(ctx, c.service.Disconnect(ctx, msg.ConnectionKey))
	return nil
}

type AbortCallCommand struct {
	service CallService
}

func NewAbortCallCommand(service CallService) *AbortCallCommand {
	return &AbortCallCommand{service: service}
}

func (c *AbortCallCommand) Execute(ctx context.Context, msg AbortCallMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: abort service is required")
	}
	storeResult(ctx, c.service.Abort(ctx, msg.ConnectionKey))
	return nil
}

type CacheOfferCommand struct {
	service CallService
}

func NewCacheOfferCommand(service CallService) *CacheOfferCommand {
	return &CacheOfferCommand{service: service}
}

func (c *CacheOfferCommand) Execute(ctx context.Context, msg CacheOfferMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: offer service is required")
	}
	return c.service.CacheIncomingOffer(ctx, msg.Offer)
}

type ClearActiveCallCommand struct {
	service CallService
}

func NewClearActiveCallCommand(service CallService) *ClearActiveCallCommand {
	return &ClearActiveCallCommand{service: service}
}

func (c *ClearActiveCallCommand) Execute(ctx context.Context, _ ClearActiveCallMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: guard service is required")
	}
	return c.service.ClearActiveCall(ctx)
}

type DrainPendingAcceptCommand struct {
	service CallService
}

func NewDrainPendingAcceptCommand(service CallService) *DrainPendingAcceptCommand {
	return &DrainPendingAcceptCommand{service: service}
}

func (c *DrainPendingAcceptCommand) Execute(ctx context.Context, _ DrainPendingAcceptMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: pending service is required")
	}
	record, found := c.service.GetAndClearPendingAccept(ctx)
	storeResult(ctx, DrainResult{Record: record, Found: found})
	return nil
}

type DrainPendingRejectCommand struct {
	service CallService
}

func NewDrainPendingRejectCommand(service CallService) *DrainPendingRejectCommand {
	return &DrainPendingRejectCommand{service: service}
}

func (c *DrainPendingRejectCommand) Execute(ctx context.Context, _ DrainPendingRejectMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: pending service is required")
	}
	record, found := c.service.GetAndClearPendingReject(ctx)
	storeResult(ctx, DrainResult{Record: record, Found: found})
	return nil
}

type EnableCallModeCommand struct {
	service CallService
}

func NewEnableCallModeCommand(service CallService) *EnableCallModeCommand {
	return &EnableCallModeCommand{service: service}
}

func (c *EnableCallModeCommand) Execute(ctx context.Context, _ EnableCallModeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: call mode service is required")
	}
	storeResult(ctx, c.service.EnableCallMode(ctx))
	return nil
}

type DisableCallModeCommand struct {
	service CallService
}

func NewDisableCallModeCommand(service CallService) *DisableCallModeCommand {
	return &DisableCallModeCommand{service: service}
}

func (c *DisableCallModeCommand) Execute(ctx context.Context, _ DisableCallModeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: call mode service is required")
	}
	storeResult(ctx, c.service.DisableCallMode(ctx))
	return nil
}

type RecoverCommand struct {
	service CallService
}

func NewRecoverCommand(service CallService) *RecoverCommand {
	return &RecoverCommand{service: service}
}

func (c *RecoverCommand) Execute(ctx context.Context, _ RecoverMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: recovery service is required")
	}
	storeResult(ctx, c.service.RecoverAfterRestart(ctx))
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
