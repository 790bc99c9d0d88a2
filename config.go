package goGate

import (
	"errors"
	"strings"
	"time"
)

// Config defines every tunable of a Gateway.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token     TokenConfig
	RateLimit RateLimitConfig
	Store     StoreConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls session token signing. It is ignored when a codec is
// supplied through Builder.WithTokenCodec.
type TokenConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default), "ed25519" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig sets the per-subject quota. Each accepted request re-arms
// the subject's window, so a burst straddling a window edge can admit up to
// twice MaxRequests.
type RateLimitConfig struct {
	MaxRequests int64
	Window      time.Duration
	KeyPrefix   string
	// TrustProxyHeaders makes the service router take the source address from
	// X-Forwarded-For or X-Real-IP. The pipeline itself always reads
	// RemoteAddr, so direct users of the middleware package mount chi's
	// RealIP instead. Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig bounds every identity and counter store call.
type StoreConfig struct {
	Timeout time.Duration
}

// AuditConfig controls the asynchronous mirror of persisted audit records to
// AuditSinks. Persistence itself is always on.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and guard latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the settings of the reference deployment: one hour
// HS256 session tokens and five requests per sixty seconds per source address.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:           time.Hour,
			SigningMethod: "hs256",
		},
		RateLimit: RateLimitConfig{
			MaxRequests: 5,
			Window:      60 * time.Second,
			KeyPrefix:   "rate_limiter:",
		},
		Store: StoreConfig{
			Timeout: 2 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	// Token
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	method := strings.ToLower(c.Token.SigningMethod)
	if method != "hs256" && method != "ed25519" {
		return errors.New("unsupported Token signing method")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}

	// Rate limit
	if c.RateLimit.MaxRequests <= 0 {
		return errors.New("RateLimit MaxRequests must be > 0")
	}
	if c.RateLimit.Window < time.Millisecond {
		return errors.New("RateLimit Window must be >= 1ms")
	}
	if strings.TrimSpace(c.RateLimit.KeyPrefix) == "" {
		return errors.New("RateLimit KeyPrefix must not be empty")
	}

	// Store
	if c.Store.Timeout <= 0 {
		return errors.New("Store Timeout must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
