package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/audit/kafka"
	"github.com/MrEthical07/goGate/counter"
	"github.com/MrEthical07/goGate/internal/config"
	"github.com/MrEthical07/goGate/internal/httpapi"
	"github.com/MrEthical07/goGate/internal/telemetry"
	"github.com/MrEthical07/goGate/metrics/export/prometheus"
	"github.com/MrEthical07/goGate/password"
	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(v *viper.Viper, load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Bool("trust-proxy-headers", false, "take the client address from X-Forwarded-For or X-Real-IP")
	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("rate_limit.trust_proxy_headers", cmd.Flags().Lookup("trust-proxy-headers"))
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		SampleRatio: cfg.Telemetry.SampleRatio,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.close()

	builder := goGate.New().
		WithConfig(cfg.Gateway).
		WithIdentityStore(store).
		WithLogger(logger)

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return err
		}
		client := redis.NewClient(opts)
		defer func() { _ = client.Close() }()
		if err := client.Ping(ctx).Err(); err != nil {
			return err
		}
		builder.WithRedis(client)
	} else {
		logger.Warn("REDIS_URL not set, rate limit counters are local to this process")
		builder.WithCounterStore(counter.NewMemory(clock.New()))
	}

	if cfg.Kafka.Enabled() {
		sink, err := kafka.NewSink(kafka.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, logger)
		if err != nil {
			return err
		}
		defer func() { _ = sink.Close() }()
		builder.WithAuditSink(sink)
	}

	gw, err := builder.Build()
	if err != nil {
		return err
	}
	// Runs before the sink closes so buffered audit records are flushed.
	defer gw.Close()

	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return err
	}

	opts := httpapi.Options{
		Gateway:           gw,
		Store:             store,
		Hasher:            hasher,
		Middleware:        []func(http.Handler) http.Handler{telemetry.HTTPMiddleware(cfg.Telemetry.ServiceName)},
		TrustProxyHeaders: cfg.Gateway.RateLimit.TrustProxyHeaders,
	}
	if cfg.Gateway.Metrics.Enabled {
		opts.Metrics = prometheus.NewCollector(gw).Handler()
	}
	handler, err := httpapi.NewRouter(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("gateway listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("database", cfg.Database.Driver),
			zap.Bool("redis", cfg.Redis.URL != ""),
			zap.Bool("audit_mirror", cfg.Kafka.Enabled()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("gateway shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
