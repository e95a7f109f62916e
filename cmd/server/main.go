package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/api"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/bot"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/config"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/platform/discord"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/ratelimit"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/render"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/setup"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/store"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/templates"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/verify"
	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/welcome"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := newLogger(cfg)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.DiscordToken == "" {
		logger.Fatal().Msg("DISCORD_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("bot stopped")
	}
	logger.Info().Msg("bot stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	}
	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger().
		Level(zerolog.InfoLevel)
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	session, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		return err
	}
	client := discord.NewClient(session)

	st, err := store.Open(ctx, cfg, client)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info().Str("backend", st.Backend()).Msg("config store ready")

	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" && cfg.VerifyRateLimit > 0 {
		rs, err := store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		defer rs.Close()
		limiter = ratelimit.NewRedisLimiter(rs.Client(), cfg.VerifyRateLimit, cfg.VerifyRateWindow, logger)
		logger.Info().Int("limit", cfg.VerifyRateLimit).Dur("window", cfg.VerifyRateWindow).Msg("verification rate limit enabled")
	}

	engine := verify.New(st, client, verify.Options{
		LogChannelID: cfg.LogChannelID,
		Timeout:      cfg.SessionTimeout,
		ScanTimeout:  cfg.ScanTimeout,
		Limiter:      limiter,
	}, logger)
	defer engine.Close()

	wizards := setup.NewManager(st, cfg.WizardTimeout, logger)
	defer wizards.Close()

	watcher := welcome.NewWatcher(
		st,
		client,
		templates.New(client, cfg.TemplateChannelID, logger),
		welcome.NewHTTPFetcher(cfg.FetchTimeout),
		render.New(cfg.FontPath, logger),
		welcome.Options{GuildID: cfg.GuildID, ChannelID: cfg.WelcomeChannelID, ScanTimeout: cfg.ScanTimeout},
		logger,
	)

	if cfg.GuildID == "" {
		logger.Warn().Msg("GUILD_ID not set, serving every guild the bot is in")
	}
	router := bot.NewRouter(st, engine, wizards, watcher, bot.Options{GuildID: cfg.GuildID, IsAdmin: cfg.IsAdmin}, logger)
	gateway := discord.NewGateway(session, cfg.GuildID, bot.Commands(), logger)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(logger, api.Options{
			Checks:  map[string]api.Pinger{"store": st, "discord": gateway},
			Metrics: cfg.MetricsEnabled,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := gateway.Open(gctx, router); err != nil {
			return err
		}
		logger.Info().Msg("connected to discord")
		<-gctx.Done()
		return gateway.Close()
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down...")

		// Graceful shutdown with 30 second timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
