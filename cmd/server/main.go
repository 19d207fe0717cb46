package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Rrens/redbot/internal/access"
	"github.com/Rrens/redbot/internal/api"
	customMiddleware "github.com/Rrens/redbot/internal/api/middleware"
	"github.com/Rrens/redbot/internal/config"
	"github.com/Rrens/redbot/internal/conversation"
	"github.com/Rrens/redbot/internal/entitlement"
	"github.com/Rrens/redbot/internal/llm"
	"github.com/Rrens/redbot/internal/llm/providers"
	"github.com/Rrens/redbot/internal/logging"
	"github.com/Rrens/redbot/internal/repository"
	"github.com/Rrens/redbot/internal/repository/redis"
	"github.com/Rrens/redbot/internal/responder"
	"github.com/Rrens/redbot/internal/retrieval"
	"github.com/Rrens/redbot/internal/security"
	"github.com/Rrens/redbot/internal/service"
)

func main() {
	// Load .env file - try multiple locations
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			break
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logCloser, err := logging.Setup(cfg.Logging, os.Getenv("ENV"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Driver).
		Bool("dev_mode", cfg.Security.DevMode).
		Msg("Starting Redbot server")

	store, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	cipher, err := security.NewEncryptorFromSecret(cfg.Auth.SecretKey, "bot-api-key")
	if err != nil {
		return err
	}
	tokens := security.NewTokenManager(
		cfg.Auth.SecretKey,
		cfg.Auth.TokenTTL,
		cfg.Auth.NotBeforeSkew,
		cfg.TokenLeeway(),
		security.WithAgentTTL(cfg.Auth.AgentTokenTTL),
	)

	deps := api.Deps{
		Config:    cfg,
		Store:     store,
		Bots:      store.Bots,
		Guard:     access.NewGuard(tokens, cfg.Security.DevMode),
		QA:        service.NewQAService(store.QA),
		Enquiries: service.NewEnquiryService(store.Enquiries),
	}

	var (
		planOpts  []entitlement.Option
		publisher conversation.Publisher
		bus       *redis.Bus
	)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		cache := redis.NewBotCache(redisClient, store.Bots, redis.DefaultCacheTTL)
		deps.Bots = cache
		planOpts = append(planOpts, entitlement.WithInvalidator(cache))

		bus = redis.NewBus(redisClient, cfg.Redis.Channel)
		publisher = bus

		deps.Limiter = redis.NewRateLimiter(
			redisClient,
			cfg.Security.RateLimit.RequestsPerMinute,
			cfg.Security.RateLimit.Burst,
		)
		log.Info().Str("addr", cfg.Redis.Addr()).Msg("Redis enabled: bot cache, rate limiting and realtime bus")
	} else {
		log.Warn().Msg("Redis disabled: realtime events stay on this instance and widgets are not rate limited")
	}

	deps.Entitlements = entitlement.NewService(store.Workspaces, store.Plans, planOpts...)

	embedder, err := retrieval.NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	if c, ok := embedder.(io.Closer); ok {
		defer c.Close()
	}
	pool := retrieval.NewPool(retrieval.QdrantFactory(cfg.Vector.APIKey))
	defer pool.CloseAll()
	engine := retrieval.NewEngine(store.Knowledge, pool, embedder, cfg.Vector.TopK, cfg.Vector.SearchTimeout)

	providerRouter := providers.NewRouter()
	log.Info().Strs("providers", providerRouter.ListProviders()).Msg("AI providers registered")
	dispatcher := llm.NewDispatcher(providerRouter, cfg.LLM.RequestTimeout, cfg.LLM.MaxResponseBytes)
	deps.Orchestrator = responder.NewOrchestrator(dispatcher, engine, cipher)

	deps.Hub = conversation.NewHub()
	notifier := conversation.NewNotifier(deps.Hub, publisher)
	deps.Conversations = conversation.NewService(store.Conversations, notifier)

	if cfg.Metrics.Enabled {
		deps.HTTPMetrics = customMiddleware.NewHTTPMetrics(prometheus.DefaultRegisterer)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if bus != nil {
		if err := bus.StartForwarder(ctx, notifier.Deliver); err != nil {
			return fmt.Errorf("failed to start realtime forwarder: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return deps.Entitlements.RunSweeper(gctx, cfg.Plans.SweepInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	return g.Wait()
}
