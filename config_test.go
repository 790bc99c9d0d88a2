package goGate

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token.PrivateKey = []byte("secret")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.RateLimit.MaxRequests != 5 || cfg.RateLimit.Window != 60*time.Second {
		t.Fatalf("unexpected default quota %d/%s", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	}
	if cfg.Token.TTL != time.Hour {
		t.Fatalf("unexpected default token ttl %s", cfg.Token.TTL)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "token ttl zero",
			mutate: func(c *Config) {
				c.Token.TTL = 0
			},
			wantValid: false,
		},
		{
			name: "token signing ed25519",
			mutate: func(c *Config) {
				c.Token.SigningMethod = "ED25519"
			},
			wantValid: true,
		},
		{
			name: "token signing invalid",
			mutate: func(c *Config) {
				c.Token.SigningMethod = "rs256"
			},
			wantValid: false,
		},
		{
			name: "token leeway valid",
			mutate: func(c *Config) {
				c.Token.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "token leeway too large",
			mutate: func(c *Config) {
				c.Token.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "max requests zero",
			mutate: func(c *Config) {
				c.RateLimit.MaxRequests = 0
			},
			wantValid: false,
		},
		{
			name: "window below resolution",
			mutate: func(c *Config) {
				c.RateLimit.Window = time.Microsecond
			},
			wantValid: false,
		},
		{
			name: "blank key prefix",
			mutate: func(c *Config) {
				c.RateLimit.KeyPrefix = "  "
			},
			wantValid: false,
		},
		{
			name: "store timeout zero",
			mutate: func(c *Config) {
				c.Store.Timeout = 0
			},
			wantValid: false,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "audit disabled ignores buffer",
			mutate: func(c *Config) {
				c.Audit.BufferSize = 0
			},
			wantValid: true,
		},
		{
			name: "histograms without metrics",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.EnableLatencyHistograms = true
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCloneConfigCopiesKeys(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token.PrivateKey = []byte("secret")

	out := cloneConfig(cfg)
	cfg.Token.PrivateKey[0] = 'X'

	if string(out.Token.PrivateKey) != "secret" {
		t.Fatalf("clone shares key storage: %q", out.Token.PrivateKey)
	}
}
