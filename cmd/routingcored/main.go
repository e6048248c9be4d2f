// Command routingcored is the composition root for the provider
// routing and resilience core: it loads configuration, wires every
// subsystem (circuit breaker, health monitor, failover manager,
// provider router, recovery manager, rate limiter, hybrid search
// actor) together, and serves until an interrupt signal arrives.
//
// Grounded in the teacher's cmd/server/main.go (secure math/rand
// seeding, config-load-then-fallback, signal.Notify graceful shutdown
// with a bounded context.WithTimeout window).
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	mathrand "math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openai/openai-go"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/codemesh-labs/routing-core/pkg/breaker"
	"github.com/codemesh-labs/routing-core/pkg/clock"
	"github.com/codemesh-labs/routing-core/pkg/config"
	"github.com/codemesh-labs/routing-core/pkg/corerrors"
	"github.com/codemesh-labs/routing-core/pkg/events"
	"github.com/codemesh-labs/routing-core/pkg/failover"
	"github.com/codemesh-labs/routing-core/pkg/health"
	"github.com/codemesh-labs/routing-core/pkg/hybridsearch"
	"github.com/codemesh-labs/routing-core/pkg/observability"
	"github.com/codemesh-labs/routing-core/pkg/providers"
	"github.com/codemesh-labs/routing-core/pkg/ratelimit"
	"github.com/codemesh-labs/routing-core/pkg/recovery"
	"github.com/codemesh-labs/routing-core/pkg/router"

	"github.com/go-redis/redis/v8"
)

// Server holds every wired subsystem for the lifetime of the process,
// so graceful shutdown has one place to tear them all down in order.
type Server struct {
	Router       *router.Router
	Limiter      *ratelimit.Limiter
	Search       *hybridsearch.Actor
	Breakers     *breaker.Manager
	Recovery     *recovery.Manager
	RecoveryLoop *recovery.Loop
	Tracer       observability.Tracer
	Logger       observability.Logger
}

// Shutdown tears every subsystem down, bounded by ctx. Producers stop
// first (the recovery loop and manager, then the search actor); the
// breakers they may depend on stop last.
func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.RecoveryLoop.Stop()
		s.Recovery.Shutdown()
		s.Search.Shutdown()
		s.Breakers.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return corerrors.Timeout("shutdown", 30*time.Second)
	}
}

func main() {
	initSecureRandom()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configPath := os.Getenv("ROUTING_CORE_CONFIG_PATH")
	if configPath == "" {
		configPath = "config"
	}
	environment := os.Getenv("ENVIRONMENT")

	cfg, err := config.Load(configPath, environment)
	if err != nil {
		log.Printf("config: falling back to defaults: %v", err)
		cfg = config.DefaultConfig()
	}

	logger := observability.NewLogger("routingcored")
	meterProvider := sdkmetric.NewMeterProvider()
	tracerProvider := sdktrace.NewTracerProvider()
	metricsClient := observability.NewMetricsClient(meterProvider.Meter("routingcored"))
	tracer := observability.NewTracer(tracerProvider.Tracer("routingcored"))

	startupCtx, startupSpan := tracer.Start(ctx, "routingcored.startup")

	clk := clock.RealClock{}
	bus := events.NewInProcessBus(logger.With(map[string]interface{}{"component": "event_bus"}))

	var store *breaker.SnapshotStore
	if cfg.Breaker.PersistenceEnabled && cfg.Breaker.SnapshotDir != "" {
		store = breaker.NewSnapshotStore(cfg.Breaker.SnapshotDir)
	}
	breakerCfg := breaker.Config{
		FailureThreshold:    cfg.Breaker.FailureThreshold,
		RecoveryTimeout:     cfg.Breaker.RecoveryTimeout,
		SuccessThreshold:    cfg.Breaker.SuccessThreshold,
		HalfOpenMaxRequests: cfg.Breaker.HalfOpenMaxRequests,
		PersistenceEnabled:  cfg.Breaker.PersistenceEnabled,
	}
	breakers := breaker.NewManager(breakerCfg, clk, store, logger.With(map[string]interface{}{"component": "breaker"}))
	defer breakers.Shutdown()

	healthMonitor := health.NewMonitor(clk)

	embeddingProviders, vectorStoreProviders := buildProviders(cfg, logger)

	failoverStrategy := failover.NewPriorityStrategy()
	failoverMgr := failover.NewManager(failoverStrategy, healthMonitor)

	routerStrategy := router.NewContextualStrategy(router.DefaultWeights(), router.DefaultTables())
	svc := router.NewRouter(healthMonitor, breakers, failoverMgr, routerStrategy, metricsClient,
		logger.With(map[string]interface{}{"component": "router"}))

	for id, p := range embeddingProviders {
		svc.EmbeddingRegistry.Register(id)
		healthMonitor.CheckProvider(startupCtx, id, health.EmbeddingProbe{ProviderID: id, Provider: p})
	}
	for id, s := range vectorStoreProviders {
		svc.VectorStoreRegistry.Register(id)
		healthMonitor.CheckProvider(startupCtx, id, health.VectorStoreProbe{ProviderID: id, Store: s})
	}

	rateLimitCfg := ratelimit.Config{
		Enabled:          cfg.RateLimit.Enabled,
		Max:              cfg.RateLimit.Max,
		Burst:            cfg.RateLimit.Burst,
		WindowSeconds:    cfg.RateLimit.WindowSeconds,
		MaxEntries:       cfg.RateLimit.MaxEntries,
		CacheTTLSeconds:  cfg.RateLimit.CacheTTLSeconds,
		OperationTimeout: cfg.RateLimit.OperationTimeout,
	}
	limiter, err := buildRateLimiter(cfg.RateLimit.Backend, cfg.RateLimit.RedisAddress, rateLimitCfg, clk)
	if err != nil {
		log.Fatalf("ratelimit: %v", err)
	}

	recoveryPolicies := recovery.DefaultRecoveryPolicies()
	for id, p := range cfg.Recovery.Policies {
		recoveryPolicies[id] = recovery.Policy{
			Strategy:   recovery.Strategy(p.Strategy),
			MaxRetries: p.MaxRetries,
			BaseDelay:  p.BaseDelay,
			Multiplier: p.Multiplier,
			MaxDelay:   p.MaxDelay,
		}
	}
	recoveryMgr := recovery.NewManager(recoveryPolicies, clk, bus, logger.With(map[string]interface{}{"component": "recovery"}))
	recoveryLoop := recovery.NewLoop(recoveryMgr, cfg.Recovery.HealthCheckInterval)
	recoveryLoop.Start()

	for id := range embeddingProviders {
		recoveryMgr.RegisterSubsystem("embedding:" + id)
	}
	for id := range vectorStoreProviders {
		recoveryMgr.RegisterSubsystem("vectorstore:" + id)
	}

	searchActor := hybridsearch.NewActor(100)

	srv := &Server{
		Router:       svc,
		Limiter:      limiter,
		Search:       searchActor,
		Breakers:     breakers,
		Recovery:     recoveryMgr,
		RecoveryLoop: recoveryLoop,
		Tracer:       tracer,
		Logger:       logger,
	}

	startupSpan.End()
	logger.Info("routing core started", map[string]interface{}{
		"environment":      cfg.Environment,
		"embedding_ids":    svc.EmbeddingRegistry.IDs(),
		"vector_store_ids": svc.VectorStoreRegistry.IDs(),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("received shutdown signal", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("routing core shutdown error", map[string]interface{}{"error": err.Error()})
		return
	}
	logger.Info("routing core stopped gracefully", nil)
}

// buildProviders constructs every configured embedding and vector-store
// provider, logging and skipping any entry whose kind fails to build
// rather than aborting startup over one bad provider.
func buildProviders(cfg *config.Config, logger observability.Logger) (map[string]providers.EmbeddingProvider, map[string]providers.VectorStoreProvider) {
	embeddings := make(map[string]providers.EmbeddingProvider)
	for id, pc := range cfg.Providers.Embedding {
		p, err := buildEmbeddingProvider(id, pc)
		if err != nil {
			logger.Error("skipping embedding provider", map[string]interface{}{"provider_id": id, "error": err.Error()})
			continue
		}
		embeddings[id] = p
	}

	stores := make(map[string]providers.VectorStoreProvider)
	for id, pc := range cfg.Providers.VectorStore {
		s, err := buildVectorStoreProvider(id, pc)
		if err != nil {
			logger.Error("skipping vector store provider", map[string]interface{}{"provider_id": id, "error": err.Error()})
			continue
		}
		stores[id] = s
	}

	return embeddings, stores
}

func buildEmbeddingProvider(id string, pc config.ProviderConfig) (providers.EmbeddingProvider, error) {
	dims := pc.Dimensions
	if dims <= 0 {
		dims = 256
	}
	switch pc.Kind {
	case "", "mock":
		return providers.NewMockEmbeddingProvider(id, dims), nil
	case "openai":
		return providers.NewOpenAIEmbeddingProvider(pc.APIKey, openai.EmbeddingModel(pc.Model), dims), nil
	case "gemini":
		return providers.NewGeminiEmbeddingProvider(pc.APIKey, pc.Model, dims), nil
	case "ollama":
		return providers.NewOllamaEmbeddingProvider(pc.BaseURL, pc.Model, dims), nil
	case "voyage":
		return providers.NewVoyageEmbeddingProvider(pc.APIKey, pc.Model, dims), nil
	default:
		return nil, corerrors.Internal(fmt.Sprintf("unknown embedding provider kind %q", pc.Kind))
	}
}

func buildVectorStoreProvider(id string, pc config.ProviderConfig) (providers.VectorStoreProvider, error) {
	switch pc.Kind {
	case "", "mock":
		return providers.NewMockVectorStoreProvider(id), nil
	default:
		return nil, corerrors.Internal(fmt.Sprintf("unknown vector store provider kind %q", pc.Kind))
	}
}

func buildRateLimiter(backend, redisAddress string, cfg ratelimit.Config, clk clock.Clock) (*ratelimit.Limiter, error) {
	switch backend {
	case "", "memory":
		return ratelimit.NewLimiter(ratelimit.NewMemoryLimiter(cfg, clk), cfg, clk), nil
	case "redis":
		if redisAddress == "" {
			return nil, corerrors.Internal("rate_limit.redis_address is required for the redis backend")
		}
		client := redis.NewClient(&redis.Options{Addr: redisAddress})
		return ratelimit.NewLimiter(ratelimit.NewRedisLimiter(client, cfg), cfg, clk), nil
	default:
		return nil, corerrors.Internal(fmt.Sprintf("unknown rate limit backend %q", backend))
	}
}

// initSecureRandom seeds math/rand from a crypto/rand source, matching
// the teacher's own startup sequence.
func initSecureRandom() {
	max := big.NewInt(int64(1) << 62)
	val, err := rand.Int(rand.Reader, max)
	if err != nil {
		log.Printf("warning: unable to generate secure random seed: %v", err)
		mathrand.Seed(time.Now().UnixNano())
		return
	}
	mathrand.Seed(val.Int64())
}
