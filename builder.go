package goGate

import (
	"errors"
	"strings"

	"github.com/MrEthical07/goGate/counter"
	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/MrEthical07/goGate/jwt"
	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles a Gateway from its stores and configuration.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	counters  counter.Store
	identity  IdentityStore
	codec     TokenCodec
	logger    *zap.Logger
	clock     clock.Clock
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. Key material is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis selects the Redis counter store. It is ignored when
// WithCounterStore is also used.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCounterStore sets the counter store directly.
func (b *Builder) WithCounterStore(store counter.Store) *Builder {
	b.counters = store
	return b
}

// WithIdentityStore sets the user database adapter. Required.
func (b *Builder) WithIdentityStore(store IdentityStore) *Builder {
	b.identity = store
	return b
}

// WithTokenCodec overrides the session codec. Without it Build creates a
// jwt.Manager from Config.Token.
func (b *Builder) WithTokenCodec(codec TokenCodec) *Builder {
	b.codec = codec
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock injects the time source used for audit timestamps, latency and
// the default token codec.
func (b *Builder) WithClock(clk clock.Clock) *Builder {
	b.clock = clk
	return b
}

// WithAuditSink sets the mirror target for persisted audit records. It only
// takes effect when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a Gateway. A Builder can be
// used once.
func (b *Builder) Build() (*Gateway, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.identity == nil {
		return nil, errors.New("identity store required")
	}

	counters := b.counters
	if counters == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or counter store required")
		}
		counters = counter.NewRedis(b.redis)
	}

	clk := b.clock
	if clk == nil {
		clk = clock.New()
	}

	// -------- TOKEN CODEC --------
	codec := b.codec
	if codec == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		jm, err := jwt.NewManager(jwt.Config{
			TTL:           cfg.Token.TTL,
			SigningMethod: jwt.SigningMethod(strings.ToLower(cfg.Token.SigningMethod)),
			PrivateKey:    cloneBytes(cfg.Token.PrivateKey),
			PublicKey:     cloneBytes(cfg.Token.PublicKey),
			Issuer:        cfg.Token.Issuer,
			Audience:      cfg.Token.Audience,
			Leeway:        cfg.Token.Leeway,
			Now:           clk.Now,
		})
		if err != nil {
			return nil, err
		}
		codec = jm
	} else {
		// Token settings are the codec's concern.
		if cfg.Token.TTL <= 0 {
			cfg.Token.TTL = DefaultConfig().Token.TTL
		}
		if cfg.Token.SigningMethod == "" {
			cfg.Token.SigningMethod = DefaultConfig().Token.SigningMethod
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Gateway{
		config:   cloneConfig(cfg),
		identity: b.identity,
		counters: counters,
		limiter: rate.New(counters, rate.Config{
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window,
			KeyPrefix:   cfg.RateLimit.KeyPrefix,
		}),
		codec:   codec,
		audit:   newAuditMirror(cfg.Audit, b.auditSink, logger.Named("audit")),
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger.Named("gate"),
		clock:   clk,
		tracer:  newTracer(),
	}

	b.built = true

	return g, nil
}
