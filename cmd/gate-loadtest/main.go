// Command gate-loadtest drives concurrent requests through an in-process
// rate limited, API key guarded pipeline and checks that no source address is
// admitted more than the configured quota within one window.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/identity"
	"github.com/MrEthical07/goGate/middleware"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func main() {
	var (
		addresses   = flag.Int("addresses", 200, "number of distinct source addresses")
		perAddress  = flag.Int("per-address", 20, "requests sent from each address")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		maxRequests = flag.Int64("max", 5, "requests admitted per address per window")
		window      = flag.Duration("window", time.Minute, "quota window; keep it longer than the run")
		rps         = flag.Float64("rps", 0, "overall request rate; 0 is unpaced")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *addresses <= 0 || *perAddress <= 0 || *concurrency <= 0 || *maxRequests <= 0 {
		fmt.Fprintln(os.Stderr, "addresses, per-address, concurrency, and max must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goGate.DefaultConfig()
	cfg.Token.PrivateKey = []byte("loadtest")
	cfg.RateLimit.MaxRequests = *maxRequests
	cfg.RateLimit.Window = *window
	// A fresh prefix keeps reruns against a shared Redis independent.
	cfg.RateLimit.KeyPrefix = fmt.Sprintf("gate_loadtest:%d:", time.Now().UnixNano())

	store := identity.NewMemory()
	user, err := store.CreateUser(ctx, identity.NewUser{
		Name:         "loadtest",
		Email:        "loadtest@example.com",
		PasswordHash: "unused",
		Role:         goGate.RoleUser,
		APIKey:       identity.NewAPIKey(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}

	gw, err := goGate.New().
		WithConfig(cfg).
		WithRedis(client).
		WithIdentityStore(store).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gateway build failed: %v\n", err)
		os.Exit(1)
	}
	defer gw.Close()

	pipeline, err := middleware.NewPipeline("loadtest",
		middleware.RateLimiter(gw),
		middleware.APIKeyGuard(gw),
		middleware.AuditLogger(gw),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pipeline failed: %v\n", err)
		os.Exit(1)
	}
	handler := pipeline.Then(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	res := runPhase(ctx, handler, user.APIKey, *addresses, *perAddress, *concurrency, *rps)

	fmt.Println("---- results ----")
	printStats("pipeline", res.stats)
	fmt.Printf("admitted=%d rejected=%d other=%d audited=%d\n",
		res.admitted, res.rejected, res.other, len(store.Usage()))

	want := *maxRequests
	if int64(*perAddress) < want {
		want = int64(*perAddress)
	}
	violations := 0
	for i, n := range res.perAddress {
		if n != want {
			violations++
			if violations <= 10 {
				fmt.Printf("address %s admitted %d, want %d\n", sourceAddress(i), n, want)
			}
		}
	}
	if violations > 0 || res.other > 0 {
		fmt.Printf("FAIL: %d addresses off quota, %d unexpected statuses\n", violations, res.other)
		os.Exit(1)
	}
	fmt.Println("OK: every address admitted exactly its quota")
}

type phaseResult struct {
	stats      phaseStats
	admitted   int64
	rejected   int64
	other      int64
	perAddress []int64
}

func runPhase(ctx context.Context, h http.Handler, apiKey string, addresses, perAddress, concurrency int, rps float64) phaseResult {
	var (
		cursor    int64
		admitted  int64
		rejected  int64
		other     int64
		counts    = make([]int64, addresses)
		total     = addresses * perAddress
		latencies = make([]time.Duration, 0, total)
		mu        sync.Mutex
	)

	pace := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		pace = rate.NewLimiter(rate.Limit(rps), 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= total {
					return nil
				}
				if err := pace.Wait(gctx); err != nil {
					return err
				}
				idx := i % addresses

				req := httptest.NewRequest(http.MethodGet, "/api/v1/random_number", nil)
				req.RemoteAddr = sourceAddress(idx) + ":40000"
				req.Header.Set("x-api-key", apiKey)
				rec := httptest.NewRecorder()

				t0 := time.Now()
				h.ServeHTTP(rec, req)
				d := time.Since(t0)

				switch rec.Code {
				case http.StatusOK:
					atomic.AddInt64(&admitted, 1)
					atomic.AddInt64(&counts[idx], 1)
				case http.StatusTooManyRequests:
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&other, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "phase aborted: %v\n", err)
	}

	return phaseResult{
		stats:      computeStats(time.Since(start), latencies, other),
		admitted:   admitted,
		rejected:   rejected,
		other:      other,
		perAddress: counts,
	}
}

func sourceAddress(i int) string {
	return fmt.Sprintf("10.%d.%d.%d", (i>>16)&0xFF, (i>>8)&0xFF, i&0xFF)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
