package core

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service is the connection lifecycle coordinator: it admits incoming-call
// facts, drives each call's connection through its states, mutates the
// bridge store on every transition, and publishes UI-facing events through
// the registry.
type Service struct {
	config          Config
	rules           AdmissionRules
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper

	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver

	bridgeStore    BridgeStore
	callEventStore CallEventStore
	registry       *ConnectionRegistry
	presenter      CallPresenter
	registrar      AccountRegistrar

	now func() time.Time
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	BridgeStore       BridgeStore
	CallEventStore    CallEventStore
	Registry          *ConnectionRegistry
	Presenter         CallPresenter
	Registrar         AccountRegistrar
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("callbridge", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("callbridge"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.registry == nil {
		builder.registry = NewConnectionRegistry()
	}
	if builder.now == nil {
		builder.now = func() time.Time {
			return time.Now().UTC()
		}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.bridgeStore == nil || builder.callEventStore == nil {
		if builder.repositoryFactory != nil {
			if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
				provider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
				if buildErr != nil {
					return nil, mapBuildError(builder.errorMapper, buildErr)
				}
				if provider != nil {
					if builder.bridgeStore == nil {
						builder.bridgeStore = provider.BridgeStore()
					}
					if builder.callEventStore == nil {
						builder.callEventStore = provider.CallEventStore()
					}
				}
			} else if provider, ok := builder.repositoryFactory.(StoreProvider); ok {
				if builder.bridgeStore == nil {
					builder.bridgeStore = provider.BridgeStore()
				}
				if builder.callEventStore == nil {
					builder.callEventStore = provider.CallEventStore()
				}
			}
		}
	}
	if builder.bridgeStore == nil {
		builder.bridgeStore = NewMemoryBridgeStore(finalConfig.Rules().GuardStaleAfter)
	}

	return &Service{
		config:            finalConfig,
		rules:             finalConfig.Rules(),
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		bridgeStore:       builder.bridgeStore,
		callEventStore:    builder.callEventStore,
		registry:          builder.registry,
		presenter:         builder.presenter,
		registrar:         builder.registrar,
		now:               builder.now,
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Registry() *ConnectionRegistry {
	if s == nil {
		return nil
	}
	return s.registry
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		BridgeStore:       s.bridgeStore,
		CallEventStore:    s.callEventStore,
		Registry:          s.registry,
		Presenter:         s.presenter,
		Registrar:         s.registrar,
	}
}

func (s *Service) clock() time.Time {
	if s != nil && s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}
