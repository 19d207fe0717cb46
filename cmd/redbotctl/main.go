// Command redbotctl is the operator CLI for workspaces, plans, bots,
// knowledge and Q&A trees.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Rrens/redbot/internal/config"
	"github.com/Rrens/redbot/internal/domain"
	"github.com/Rrens/redbot/internal/entitlement"
	"github.com/Rrens/redbot/internal/logging"
	"github.com/Rrens/redbot/internal/repository"
	"github.com/Rrens/redbot/internal/repository/redis"
	"github.com/Rrens/redbot/internal/security"
)

func main() {
	_ = godotenv.Load()

	cmd := &cobra.Command{
		Use:           "redbotctl",
		Short:         "Operate Redbot workspaces, plans and bots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		NewWorkspaceCommand(),
		NewPlanCommand(),
		NewBotCommand(),
		NewTokenCommand(),
		NewKnowledgeCommand(),
		NewQACommand(),
		NewProvidersCommand(),
		NewCacheCommand(),
	)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs
type app struct {
	cfg          *config.Config
	store        *repository.Store
	cipher       *security.Encryptor
	entitlements *entitlement.Service
	bots         *redis.BotCache
	closers      []func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logCloser, err := logging.Setup(cfg.Logging, os.Getenv("ENV"))
	if err != nil {
		return nil, err
	}

	store, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a := &app{cfg: cfg, store: store, closers: []func() error{store.Close, logCloser.Close}}

	a.cipher, err = security.NewEncryptorFromSecret(cfg.Auth.SecretKey, "bot-api-key")
	if err != nil {
		a.Close()
		return nil, err
	}

	// Plan changes must drop the server's cached bots
	var opts []entitlement.Option
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, cached bots will expire on their own")
		} else {
			a.closers = append(a.closers, client.Close)
			a.bots = redis.NewBotCache(client, store.Bots, redis.DefaultCacheTTL)
			opts = append(opts, entitlement.WithInvalidator(a.bots))
		}
	}
	a.entitlements = entitlement.NewService(store.Workspaces, store.Plans, opts...)
	return a, nil
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

// withApp runs fn with a connected app
func withApp(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// botRepo returns the bot repository, behind the cache when Redis is up
func (a *app) botRepo() domain.BotRepository {
	if a.bots != nil {
		return a.bots
	}
	return a.store.Bots
}
