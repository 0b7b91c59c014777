package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AshkanYarmoradi/go-ledger"
	"github.com/AshkanYarmoradi/go-ledger/adapters"
	"github.com/AshkanYarmoradi/go-ledger/adapters/memory"
	"github.com/AshkanYarmoradi/go-ledger/adapters/postgres"
	"github.com/AshkanYarmoradi/go-ledger/broker/kafka"
	"github.com/AshkanYarmoradi/go-ledger/cli/config"
	"github.com/AshkanYarmoradi/go-ledger/logging"
	"github.com/AshkanYarmoradi/go-ledger/serializer/msgpack"
	"github.com/AshkanYarmoradi/go-ledger/serializer/protobuf"
)

// AdapterFactory creates the event store adapter named by the configuration.
type AdapterFactory struct {
	config *config.Config
	dbURL  string
}

// NewAdapterFactory creates a new adapter factory.
func NewAdapterFactory(cfg *config.Config) (*AdapterFactory, error) {
	dbURL := cfg.DatabaseURL()
	if !isMemory(cfg) && dbURL == "" {
		return nil, fmt.Errorf("database.url is empty (is DATABASE_URL set?)")
	}

	return &AdapterFactory{
		config: cfg,
		dbURL:  dbURL,
	}, nil
}

// CreateAdapter creates the adapter for the configured driver.
// For PostgreSQL it pings with a short timeout to fail fast on bad URLs.
func (f *AdapterFactory) CreateAdapter(ctx context.Context) (adapters.EventStoreAdapter, error) {
	switch f.config.Database.Driver {
	case config.DriverPostgres, "postgresql":
		adapter, err := postgres.NewAdapter(f.dbURL, postgres.WithSchema(f.config.Database.Schema))
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres adapter: %w", err)
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := adapter.Ping(pingCtx); err != nil {
			_ = adapter.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}

		return adapter, nil

	case config.DriverMemory:
		return memory.NewAdapter(), nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", f.config.Database.Driver)
	}
}

// GetDatabaseURL returns the resolved database URL.
func (f *AdapterFactory) GetDatabaseURL() string {
	return f.dbURL
}

// IsMemoryDriver returns true if using the memory driver.
func (f *AdapterFactory) IsMemoryDriver() bool {
	return isMemory(f.config)
}

func isMemory(cfg *config.Config) bool {
	return cfg.Database.Driver == config.DriverMemory
}

// NewSerializer returns the event serializer with the given config name.
func NewSerializer(name string) (ledger.Serializer, error) {
	switch name {
	case config.SerializerJSON, "":
		return ledger.NewJSONSerializer(), nil
	case config.SerializerMsgpack:
		return msgpack.NewSerializer(), nil
	case config.SerializerProtobuf:
		return protobuf.NewSerializer(), nil
	default:
		return nil, fmt.Errorf("unsupported serializer: %s", name)
	}
}

// loadConfig reads the file named by --config, or searches upwards from
// the working directory for ledger.yaml.
func (g *globals) loadConfig() (*config.Config, error) {
	if g.configPath != "" {
		return config.LoadFile(g.configPath)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	_, cfg, err := config.FindConfig(cwd)
	if err != nil {
		return nil, fmt.Errorf("no %s found: %w", config.ConfigFileName, err)
	}
	return cfg, nil
}

// Env holds what a command needs to run use cases against the configured
// event store. Open it with openEnv, finish it with Build.
type Env struct {
	Config     *config.Config
	Logger     *logging.Logger
	Serializer ledger.Serializer

	// Adapter may be wrapped (metrics, tracing) before Build.
	Adapter adapters.EventStoreAdapter

	// Idempotency remembers committed operations. It lives next to the
	// event log for PostgreSQL and in memory otherwise.
	Idempotency ledger.IdempotencyStore

	Store   *ledger.Store
	Service *ledger.Service

	closers []func() error
}

// openEnv loads and validates the configuration, then creates the logger,
// serializer and adapter.
func (g *globals) openEnv(ctx context.Context) (*Env, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	logger, err := logging.New(cfg.Logging.Mode)
	if err != nil {
		return nil, err
	}

	serializer, err := NewSerializer(cfg.EventStore.Serializer)
	if err != nil {
		return nil, err
	}

	env := &Env{
		Config:     cfg,
		Logger:     logger,
		Serializer: serializer,
	}

	if g.adapter != nil {
		env.Adapter = g.adapter
		env.useMemoryIdempotency()
		return env, nil
	}

	factory, err := NewAdapterFactory(cfg)
	if err != nil {
		return nil, err
	}
	adapter, err := factory.CreateAdapter(ctx)
	if err != nil {
		return nil, err
	}
	env.Adapter = adapter
	env.closers = append(env.closers, adapter.Close)

	if pg, ok := adapter.(*postgres.PostgresAdapter); ok {
		env.Idempotency = postgres.NewIdempotencyStoreFromAdapter(pg)
	} else {
		env.useMemoryIdempotency()
	}

	return env, nil
}

func (e *Env) useMemoryIdempotency() {
	store := memory.NewIdempotencyStore(memory.WithSweepInterval(time.Hour))
	e.Idempotency = store
	e.closers = append(e.closers, store.Close)
}

// Build creates the store and the service. Kafka publishing is attached when
// configured; a configured consumer takes over opening linked accounts.
func (e *Env) Build(opts ...ledger.ServiceOption) *ledger.Service {
	cfg := e.Config

	e.Store = ledger.NewStore(e.Adapter,
		ledger.WithSerializer(e.Serializer),
		ledger.WithLogger(e.Logger),
	)

	serviceOpts := []ledger.ServiceOption{ledger.WithServiceLogger(e.Logger)}
	if e.Idempotency != nil {
		serviceOpts = append(serviceOpts, ledger.WithIdempotencyStore(e.Idempotency))
	}
	if debt := cfg.Accounts.DefaultMaximumDebt; debt.Dollars != 0 || debt.Cents != 0 {
		serviceOpts = append(serviceOpts, ledger.WithDefaultMaximumDebt(ledger.NewAmount(debt.Dollars, debt.Cents)))
	}
	if cfg.Kafka.Enabled && cfg.Kafka.Consume {
		serviceOpts = append(serviceOpts, ledger.WithoutAccountLinking())
	}
	serviceOpts = append(serviceOpts, opts...)

	e.Service = ledger.NewService(e.Store, serviceOpts...)
	e.Service.Bus().Use(ledger.NewLoggingMiddleware(e.Logger).Middleware())

	if cfg.Kafka.Enabled && cfg.Kafka.Publish {
		publisher := kafka.NewPublisher(
			kafka.WithBrokers(cfg.KafkaBrokers()...),
			kafka.WithTopic(cfg.Kafka.Topic),
			kafka.WithSerializer(e.Serializer),
			kafka.WithLogger(e.Logger),
		)
		e.Service.Dispatcher().SubscribeAll(publisher.Handle)
		e.closers = append(e.closers, publisher.Close)
	}

	// Closers run in reverse, so running commands finish before the
	// publisher and the adapter close.
	e.closers = append(e.closers, e.Service.Bus().Close)

	return e.Service
}

// OnClose registers fn to run when the environment is closed.
func (e *Env) OnClose(fn func() error) {
	e.closers = append(e.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (e *Env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.Logger.Warn("Close failed", "error", err)
		}
	}
	e.closers = nil
	e.Logger.Sync()
}

// openService is openEnv followed by Build.
func (g *globals) openService(ctx context.Context) (*Env, error) {
	env, err := g.openEnv(ctx)
	if err != nil {
		return nil, err
	}
	env.Build()
	return env, nil
}
