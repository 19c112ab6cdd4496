package command

import (
	"github.com/goliatone/go-callbridge/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Commander[ShowIncomingCallMessage]   = (*ShowIncomingCallCommand)(nil)
	_ gocmd.Commander[AnswerCallMessage]         = (*AnswerCallCommand)(nil)
	_ gocmd.Commander[RejectCallMessage]         = (*RejectCallCommand)(nil)
	_ gocmd.Commander[DisconnectCallMessage]     = (*DisconnectCallCommand)(nil)
	_ gocmd.Commander[AbortCallMessage]          = (*AbortCallCommand)(nil)
	_ gocmd.Commander[CacheOfferMessage]         = (*CacheOfferCommand)(nil)
	_ gocmd.Commander[ClearActiveCallMessage]    = (*ClearActiveCallCommand)(nil)
	_ gocmd.Commander[DrainPendingAcceptMessage] = (*DrainPendingAcceptCommand)(nil)
	_ gocmd.Commander[DrainPendingRejectMessage] = (*DrainPendingRejectCommand)(nil)
	_ gocmd.Commander[EnableCallModeMessage]     = (*EnableCallModeCommand)(nil)
	_ gocmd.Commander[DisableCallModeMessage]    = (*DisableCallModeCommand)(nil)
	_ gocmd.Commander[RecoverMessage]            = (*RecoverCommand)(nil)

	_ CallService = (*core.Service)(nil)
)
