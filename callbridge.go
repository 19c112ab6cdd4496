package callbridge

import "github.com/goliatone/go-callbridge/core"

type Config = core.Config

type AdmissionConfig = core.AdmissionConfig

type GuardConfig = core.GuardConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type BridgeStore = core.BridgeStore
type CallEventStore = core.CallEventStore
type CallPresenter = core.CallPresenter
type AccountRegistrar = core.AccountRegistrar
type StoreProvider = core.StoreProvider

type IncomingCallFact = core.IncomingCallFact
type CachedOffer = core.CachedOffer
type PendingCallRecord = core.PendingCallRecord
type CallEvent = core.CallEvent
type RecoveryReport = core.RecoveryReport

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithBridgeStore       = core.WithBridgeStore
	WithCallEventStore    = core.WithCallEventStore
	WithRegistry          = core.WithRegistry
	WithPresenter         = core.WithPresenter
	WithAccountRegistrar  = core.WithAccountRegistrar
	WithClock             = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
