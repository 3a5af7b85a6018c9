package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/octorelay/octorelay/common/id"
	"github.com/octorelay/octorelay/common/logger"
	"github.com/octorelay/octorelay/common/otel"
	"github.com/octorelay/octorelay/core/config"
	"github.com/octorelay/octorelay/core/db"
	"github.com/octorelay/octorelay/internal/command"
	"github.com/octorelay/octorelay/internal/cursor"
	"github.com/octorelay/octorelay/internal/githubapi"
	"github.com/octorelay/octorelay/internal/http/handler/webhook"
	"github.com/octorelay/octorelay/internal/http/middleware"
	httprouter "github.com/octorelay/octorelay/internal/http/router"
	"github.com/octorelay/octorelay/internal/normalize"
	"github.com/octorelay/octorelay/internal/poller"
	"github.com/octorelay/octorelay/internal/schedule"
	"github.com/octorelay/octorelay/internal/signature"
	"github.com/octorelay/octorelay/internal/sink"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "octorelay starting",
		"env", cfg.Env,
		"github_user", cfg.GitHub.Username,
		"poll_interval", cfg.Poller.Interval,
		"cursor_backend", cfg.Cursor.Backend)

	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	cursors, closeCursors, err := newCursorStore(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize cursor store", "error", err)
		os.Exit(1)
	}
	defer closeCursors()

	gh, err := githubapi.NewClient(cfg.GitHub.Token, cfg.GitHub.Username, cfg.Poller.PageSize)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create github client", "error", err)
		os.Exit(1)
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create discord session", "error", err)
		os.Exit(1)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	registry := normalize.Default()
	relaySink := sink.NewDiscordSink(session, cfg.Discord.ChannelID)

	commands := command.NewRouter(
		command.NewStatusCommand(cfg.Poller.Interval),
		command.NewStatsCommand(gh),
		command.NewCreateWebhookCommand(gh, cfg.GitHub.WebhookURL(), cfg.GitHub.WebhookSecret, registry.Kinds()),
	)
	session.AddHandler(commands.OnInteraction)
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("discord session ready", "user", r.User.Username)
	})

	if err := session.Open(); err != nil {
		slog.ErrorContext(ctx, "failed to open discord session", "error", err)
		os.Exit(1)
	}
	defer session.Close()

	p := poller.New(gh, cursors, registry, relaySink, poller.Config{Interval: cfg.Poller.Interval})
	go p.Run(ctx)

	var scheduler *schedule.Scheduler
	if cfg.Stats.Enabled() {
		scheduler, err = schedule.New(cfg.Stats.Schedule, schedule.NewStatsJob(gh, relaySink))
		if err != nil {
			slog.ErrorContext(ctx, "failed to schedule daily stats", "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		slog.InfoContext(ctx, "daily stats scheduled", "schedule", cfg.Stats.Schedule)
	}

	if cfg.GitHub.WebhookSecret == "" {
		slog.WarnContext(ctx, "GITHUB_WEBHOOK_SECRET not set, all webhook deliveries will be rejected")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, httprouter.Handlers{
		GitHubWebhook: webhook.NewGitHubWebhookHandler(
			signature.NewVerifier(cfg.GitHub.WebhookSecret),
			registry,
			relaySink,
		),
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "webhook listener starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	p.Stop()

	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func newCursorStore(ctx context.Context, cfg config.Config) (cursor.Store, func(), error) {
	switch cfg.Cursor.Backend {
	case config.CursorBackendRedis:
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		slog.InfoContext(ctx, "redis connected", "key", cfg.Redis.CursorKey)
		return cursor.NewRedisStore(client, cfg.Redis.CursorKey), func() { client.Close() }, nil

	case config.CursorBackendPostgres:
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		store := cursor.NewPostgresStore(database, cfg.GitHub.Username)
		if err := store.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, nil, err
		}
		slog.InfoContext(ctx, "database connected")
		return store, database.Close, nil

	default:
		slog.InfoContext(ctx, "using file cursor", "path", cfg.Cursor.Path)
		return cursor.NewFileStore(cfg.Cursor.Path), func() {}, nil
	}
}

func setupRouter(cfg config.Config, handlers httprouter.Handlers) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, handlers)

	return router
}

const banner = `
  ___       _        ____      _
 / _ \  ___| |_ ___ |  _ \ ___| | __ _ _   _
| | | |/ __| __/ _ \| |_) / _ \ |/ _' | | | |
| |_| | (__| || (_) |  _ <  __/ | (_| | |_| |
 \___/ \___|\__\___/|_| \_\___|_|\__,_|\__, |
                                       |___/
`
