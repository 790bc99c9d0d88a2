// Package config loads the gateway service configuration from a .env file,
// the environment and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read through viper.
const EnvPrefix = "GOGATE"

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Gateway   goGate.Config
	Telemetry TelemetryConfig
	Kafka     KafkaConfig
	Log       LogConfig
}

type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects the identity store. Driver is one of postgres,
// sqlite or memory.
type DatabaseConfig struct {
	Driver   string
	URL      string
	MaxConns int32
}

// RedisConfig selects the counter store. An empty URL uses the in-process
// store, which is only correct for a single gateway instance.
type RedisConfig struct {
	URL string
}

type TelemetryConfig struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

// KafkaConfig enables the audit mirror when Brokers and Topic are set.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type LogConfig struct {
	Level       string
	Development bool
}

func setDefaults(v *viper.Viper) {
	def := goGate.DefaultConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("token.ttl", def.Token.TTL)
	v.SetDefault("token.signing_method", def.Token.SigningMethod)
	v.SetDefault("token.leeway", def.Token.Leeway)

	v.SetDefault("rate_limit.max_requests", def.RateLimit.MaxRequests)
	v.SetDefault("rate_limit.window", def.RateLimit.Window)
	v.SetDefault("rate_limit.key_prefix", def.RateLimit.KeyPrefix)
	v.SetDefault("rate_limit.trust_proxy_headers", false)

	v.SetDefault("store.timeout", def.Store.Timeout)

	v.SetDefault("audit.buffer_size", def.Audit.BufferSize)
	v.SetDefault("audit.drop_if_full", def.Audit.DropIfFull)

	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("metrics.latency_histograms", true)

	v.SetDefault("telemetry.service_name", "gogate")
	v.SetDefault("telemetry.sample_ratio", 1.0)

	v.SetDefault("log.level", "info")
}

// Load reads configuration into v and returns it. Values come from, in
// increasing precedence: defaults, the file named by configFile (optional),
// a .env file in the working directory and the environment.
//
// DATABASE_URL, REDIS_URL and JWT_SECRET are also accepted without the
// GOGATE_ prefix.
func Load(v *viper.Viper, configFile string) (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range map[string]string{
		"database.url":       "DATABASE_URL",
		"redis.url":          "REDIS_URL",
		"token.secret":       "JWT_SECRET",
		"telemetry.endpoint": "OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, err
		}
	}
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := Config{
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
			URL:      v.GetString("database.url"),
			MaxConns: v.GetInt32("database.max_conns"),
		},
		Redis: RedisConfig{
			URL: v.GetString("redis.url"),
		},
		Gateway: goGate.Config{
			Token: goGate.TokenConfig{
				TTL:           v.GetDuration("token.ttl"),
				SigningMethod: v.GetString("token.signing_method"),
				PrivateKey:    []byte(v.GetString("token.secret")),
				PublicKey:     []byte(v.GetString("token.public_key")),
				Issuer:        v.GetString("token.issuer"),
				Audience:      v.GetString("token.audience"),
				Leeway:        v.GetDuration("token.leeway"),
			},
			RateLimit: goGate.RateLimitConfig{
				MaxRequests:       v.GetInt64("rate_limit.max_requests"),
				Window:            v.GetDuration("rate_limit.window"),
				KeyPrefix:         v.GetString("rate_limit.key_prefix"),
				TrustProxyHeaders: v.GetBool("rate_limit.trust_proxy_headers"),
			},
			Store: goGate.StoreConfig{
				Timeout: v.GetDuration("store.timeout"),
			},
			Audit: goGate.AuditConfig{
				BufferSize: v.GetInt("audit.buffer_size"),
				DropIfFull: v.GetBool("audit.drop_if_full"),
			},
			Metrics: goGate.MetricsConfig{
				Enabled:                 v.GetBool("metrics.enabled"),
				EnableLatencyHistograms: v.GetBool("metrics.enabled") && v.GetBool("metrics.latency_histograms"),
			},
		},
		Telemetry: TelemetryConfig{
			ServiceName: v.GetString("telemetry.service_name"),
			Endpoint:    v.GetString("telemetry.endpoint"),
			Insecure:    v.GetBool("telemetry.insecure"),
			SampleRatio: v.GetFloat64("telemetry.sample_ratio"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("kafka.brokers")),
			Topic:   v.GetString("kafka.topic"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
	}
	cfg.Gateway.Audit.Enabled = cfg.Kafka.Enabled()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Enabled reports whether the Kafka audit mirror is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && strings.TrimSpace(k.Topic) != ""
}

// Validate checks the service settings and the embedded gateway config.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server addr must not be empty")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
		if strings.TrimSpace(c.Database.URL) == "" {
			return fmt.Errorf("database url required for driver %s", c.Database.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.MaxConns <= 0 {
		return errors.New("database max_conns must be > 0")
	}
	if strings.ToLower(c.Gateway.Token.SigningMethod) == "hs256" && len(c.Gateway.Token.PrivateKey) == 0 {
		return errors.New("JWT_SECRET is required for hs256 tokens")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return errors.New("telemetry sample_ratio must be within [0,1]")
	}
	return c.Gateway.Validate()
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
