package callbridge

import (
	"fmt"

	callbridgecommand "github.com/goliatone/go-callbridge/command"
	"github.com/goliatone/go-callbridge/core"
	callbridgequery "github.com/goliatone/go-callbridge/query"
)

// CommandService is the mutating surface the facade wires commands over.
// *core.Service satisfies it.
type CommandService interface {
	callbridgecommand.CallService
}

type Commands struct {
	ShowIncomingCall   *callbridgecommand.ShowIncomingCallCommand
	AnswerCall         *callbridgecommand.AnswerCallCommand
	RejectCall         *callbridgecommand.RejectCallCommand
	DisconnectCall     *callbridgecommand.DisconnectCallCommand
	AbortCall          *callbridgecommand.AbortCallCommand
	CacheOffer         *callbridgecommand.CacheOfferCommand
	ClearActiveCall    *callbridgecommand.ClearActiveCallCommand
	DrainPendingAccept *callbridgecommand.DrainPendingAcceptCommand
	DrainPendingReject *callbridgecommand.DrainPendingRejectCommand
	EnableCallMode     *callbridgecommand.EnableCallModeCommand
	DisableCallMode    *callbridgecommand.DisableCallModeCommand
	Recover            *callbridgecommand.RecoverCommand
}

type Queries struct {
	ListRecentCallEvents *callbridgequery.ListRecentCallEventsQuery
	GetLastProcessed     *callbridgequery.GetLastProcessedQuery
	GetActiveCall        *callbridgequery.GetActiveCallQuery
}

type Facade struct {
	service  CommandService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	callEventReader   callbridgequery.CallEventReader
	bridgeStateReader callbridgequery.BridgeStateReader
}

func WithCallEventReader(reader callbridgequery.CallEventReader) FacadeOption {
	return func(options *facadeOptions) {
		options.callEventReader = reader
	}
}

func WithBridgeStateReader(reader callbridgequery.BridgeStateReader) FacadeOption {
	return func(options *facadeOptions) {
		options.bridgeStateReader = reader
	}
}

// NewFacade wires commands and queries over a single service. Query readers
// default to the service's own stores when the service exposes its
// dependencies.
func NewFacade(service CommandService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("callbridge: command service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	eventReader := cfg.callEventReader
	stateReader := cfg.bridgeStateReader
	if eventReader == nil || stateReader == nil {
		deps := resolveDependencies(service)
		if eventReader == nil && deps.CallEventStore != nil {
			eventReader = deps.CallEventStore
		}
		if stateReader == nil && deps.BridgeStore != nil {
			stateReader = deps.BridgeStore
		}
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		ShowIncomingCall:   callbridgecommand.NewShowIncomingCallCommand(service),
		AnswerCall:         callbridgecommand.NewAnswerCallCommand(service),
		RejectCall:         callbridgecommand.NewRejectCallCommand(service),
		DisconnectCall:     callbridgecommand.NewDisconnectCallCommand(service),
		AbortCall:          callbridgecommand.NewAbortCallCommand(service),
		CacheOffer:         callbridgecommand.NewCacheOfferCommand(service),
		ClearActiveCall:    callbridgecommand.NewClearActiveCallCommand(service),
		DrainPendingAccept: callbridgecommand.NewDrainPendingAcceptCommand(service),
		DrainPendingReject: callbridgecommand.NewDrainPendingRejectCommand(service),
		EnableCallMode:     callbridgecommand.NewEnableCallModeCommand(service),
		DisableCallMode:    callbridgecommand.NewDisableCallModeCommand(service),
		Recover:            callbridgecommand.NewRecoverCommand(service),
	}
	facade.queries = Queries{
		ListRecentCallEvents: callbridgequery.NewListRecentCallEventsQuery(eventReader),
		GetLastProcessed:     callbridgequery.NewGetLastProcessedQuery(stateReader),
		GetActiveCall:        callbridgequery.NewGetActiveCallQuery(stateReader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandService {
	if f == nil {
		return nil
	}
	return f.service
}

func resolveDependencies(service CommandService) core.ServiceDependencies {
	provider, ok := service.(interface {
		Dependencies() core.ServiceDependencies
	})
	if !ok {
		return core.ServiceDependencies{}
	}
	return provider.Dependencies()
}
