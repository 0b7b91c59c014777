package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AshkanYarmoradi/go-ledger"
	"github.com/AshkanYarmoradi/go-ledger/adapters"
	"github.com/AshkanYarmoradi/go-ledger/api"
	"github.com/AshkanYarmoradi/go-ledger/broker/kafka"
	"github.com/AshkanYarmoradi/go-ledger/cli/styles"
	"github.com/AshkanYarmoradi/go-ledger/middleware/metrics"
	"github.com/AshkanYarmoradi/go-ledger/middleware/tracing"
)

// NewServeCommand creates the serve command
func NewServeCommand(g *globals) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the ledger HTTP API until interrupted.

Depending on ledger.yaml this also:
  • exposes Prometheus metrics on /metrics
  • writes OpenTelemetry spans to stderr
  • publishes committed events to Kafka
  • consumes the event topic to open linked accounts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			env, err := g.openEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			if address != "" {
				env.Config.Server.Address = address
			}

			// Wrappers added by buildServer hide the migrator.
			if m, ok := env.Adapter.(adapters.Migrator); ok {
				if err := m.Migrate(ctx); err != nil {
					return err
				}
			}

			srv, consumer, err := buildServer(env)
			if err != nil {
				return err
			}

			cmd.Println(styles.FormatInfo("Listening on " + env.Config.Server.Address))
			return runServer(ctx, env, srv, consumer)
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "Listen address (overrides server.address)")

	return cmd
}

// buildServer wires telemetry, the service, Kafka and the router from env's
// configuration. The consumer is nil unless kafka.consume is set.
func buildServer(env *Env) (*api.Server, *kafka.Consumer, error) {
	cfg := env.Config
	gin.SetMode(cfg.Server.Mode)

	routerCfg := api.RouterConfig{
		Logger:       env.Logger,
		ServiceName:  cfg.Telemetry.ServiceName,
		AllowOrigins: cfg.Server.AllowOrigins,
	}

	var middleware []ledger.Middleware
	var subscribers []ledger.EventHandler

	if cfg.Telemetry.MetricsEnabled {
		m := metrics.New(
			metrics.WithNamespace(cfg.Telemetry.MetricsNamespace),
			metrics.WithMetricsServiceName(cfg.Telemetry.ServiceName),
		)
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		if err := m.Register(registry); err != nil {
			return nil, nil, err
		}

		env.Adapter = m.WrapEventStore(env.Adapter)
		middleware = append(middleware, m.CommandMiddleware())
		subscribers = append(subscribers, m.EventHandler())
		routerCfg.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	var tracer *tracing.Tracer
	if cfg.Telemetry.TracingEnabled {
		tp, err := tracing.NewStdoutProvider(cfg.Telemetry.ServiceName, os.Stderr)
		if err != nil {
			return nil, nil, err
		}
		env.OnClose(func() error { return tp.Shutdown(context.Background()) })

		tracer = tracing.NewTracer(tracing.WithTracerProvider(tp), tracing.WithServiceName(cfg.Telemetry.ServiceName))
		env.Adapter = tracing.NewEventStoreMiddleware(env.Adapter, tracer)
		middleware = append(middleware, tracing.CommandMiddleware(tracer))
		routerCfg.TracerProvider = tp
	}

	svc := env.Build()
	svc.Bus().Use(middleware...)
	for _, sub := range subscribers {
		svc.Dispatcher().SubscribeAll(sub)
	}

	routerCfg.Service = svc
	routerCfg.Store = env.Store

	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled && cfg.Kafka.Consume {
		var open ledger.EventHandler = svc.OpenLinkedAccount
		if tracer != nil {
			open = tracing.TraceHandler(tracer, "open-linked-account", open)
		}

		d := ledger.NewDispatcher(ledger.WithDispatcherLogger(env.Logger))
		d.Subscribe(ledger.KindAccountAddedToClient, open)

		consumer = kafka.NewConsumer(d,
			kafka.WithConsumerBrokers(cfg.KafkaBrokers()...),
			kafka.WithConsumerTopic(cfg.Kafka.Topic),
			kafka.WithGroupID(cfg.Kafka.GroupID),
			kafka.WithConsumerSerializer(env.Serializer),
			kafka.WithConsumerLogger(env.Logger),
		)
		env.OnClose(consumer.Close)
	}

	return api.NewServer(routerCfg), consumer, nil
}

// runServer serves HTTP and, when present, runs the consumer. The first
// failure stops both.
func runServer(ctx context.Context, env *Env, srv *api.Server, consumer *kafka.Consumer) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx, env.Config.Server.Address)
	})

	if consumer != nil {
		g.Go(func() error {
			err := consumer.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				env.Logger.Error("Kafka consumer stopped", "error", err)
			}
			return err
		})
	}

	return g.Wait()
}
