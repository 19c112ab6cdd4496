package command

import (
	"strings"

	"github.com/goliatone/go-callbridge/core"
)

const (
	TypeShowIncomingCall = "callbridge.command.call.show_incoming"
	TypeAnswerCall       = "callbridge.command.call.answer"
	TypeRejectCall       = "callbridge.command.call.reject"
	TypeDisconnectCall   = "callbridge.command.call.disconnect"
	TypeAbortCall        = "callbridge.command.call.abort"
	TypeCacheOffer       = "callbridge.command.offer.cache"
	TypeClearActiveCall  = "callbridge.command.guard.clear"
	TypeDrainAccept      = "callbridge.command.pending.drain_accept"
	TypeDrainReject      = "callbridge.command.pending.drain_reject"
	TypeEnableCallMode   = "callbridge.command.call_mode.enable"
	TypeDisableCallMode  = "callbridge.command.call_mode.disable"
	TypeRecover          = "callbridge.command.recover"
)

type ShowIncomingCallMessage struct {
	Fact core.IncomingCallFact
}

func (ShowIncomingCallMessage) Type() string { return TypeShowIncomingCall }

func (m ShowIncomingCallMessage) Validate() error {
	if strings.TrimSpace(m.Fact.CallerKey) == "" {
		return commandValidationError("fact.caller_key", "caller key is required")
	}
	return nil
}

type AnswerCallMessage struct {
	ConnectionKey string
}

func (AnswerCallMessage) Type() string { return TypeAnswerCall }

func (m AnswerCallMessage) Validate() error {
	return validateConnectionKey(m.ConnectionKey)
}

type RejectCallMessage struct {
	ConnectionKey string
}

func (RejectCallMessage) Type() string { return TypeRejectCall }

func (m RejectCallMessage) Validate() error {
	return validateConnectionKey(m.ConnectionKey)
}

type DisconnectCallMessage struct {
	ConnectionKey string
}

func (DisconnectCallMessage) Type() string { return TypeDisconnectCall }

func (m DisconnectCallMessage) Validate() error {
	return validateConnectionKey(m.ConnectionKey)
}

type AbortCallMessage struct {
	ConnectionKey string
}

func (AbortCallMessage) Type() string { return TypeAbortCall }

func (m AbortCallMessage) Validate() error {
	return validateConnectionKey(m.ConnectionKey)
}

type CacheOfferMessage struct {
	Offer core.CachedOffer
}

func (CacheOfferMessage) Type() string { return TypeCacheOffer }

func (m CacheOfferMessage) Validate() error {
	if strings.TrimSpace(m.Offer.CallerKey) == "" {
		return commandValidationError("offer.caller_key", "caller key is required")
	}
	if strings.TrimSpace(m.Offer.Payload) == "" {
		return commandValidationError("offer.payload", "offer payload is required")
	}
	return nil
}

type ClearActiveCallMessage struct{}

func (ClearActiveCallMessage) Type() string { return TypeClearActiveCall }

func (ClearActiveCallMessage) Validate() error { return nil }

type DrainPendingAcceptMessage struct{}

func (DrainPendingAcceptMessage) Type() string { return TypeDrainAccept }

func (DrainPendingAcceptMessage) Validate() error { return nil }

type DrainPendingRejectMessage struct{}

func (DrainPendingRejectMessage) Type() string { return TypeDrainReject }

func (DrainPendingRejectMessage) Validate() error { return nil }

type EnableCallModeMessage struct{}

func (EnableCallModeMessage) Type() string { return TypeEnableCallMode }

func (EnableCallModeMessage) Validate() error { return nil }

type DisableCallModeMessage struct{}

func (DisableCallModeMessage) Type() string { return TypeDisableCallMode }

func (DisableCallModeMessage) Validate() error { return nil }

type RecoverMessage struct{}

func (RecoverMessage) Type() string { return TypeRecover }

func (RecoverMessage) Validate() error { return nil }

func validateConnectionKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return commandValidationError("connection_key", "connection key is required")
	}
	return nil
}
