// Command register publishes the bot's slash commands to the configured guild.
// Run it after adding or changing a command.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/bwmarrin/discordgo"

	"github.com/octorelay/octorelay/common/logger"
	"github.com/octorelay/octorelay/core/config"
	"github.com/octorelay/octorelay/internal/command"
	"github.com/octorelay/octorelay/internal/githubapi"
	"github.com/octorelay/octorelay/internal/normalize"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg)

	if cfg.Discord.ApplicationID == "" {
		slog.ErrorContext(ctx, "DISCORD_APPLICATION_ID is required to register commands")
		os.Exit(1)
	}

	gh, err := githubapi.NewClient(cfg.GitHub.Token, cfg.GitHub.Username, cfg.Poller.PageSize)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create github client", "error", err)
		os.Exit(1)
	}

	// Same registry the server dispatches from, so definitions can't drift.
	router := command.NewRouter(
		command.NewStatusCommand(cfg.Poller.Interval),
		command.NewStatsCommand(gh),
		command.NewCreateWebhookCommand(gh, cfg.GitHub.WebhookURL(), cfg.GitHub.WebhookSecret, normalize.Default().Kinds()),
	)

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create discord session", "error", err)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "refreshing application commands",
		"application_id", cfg.Discord.ApplicationID,
		"guild_id", cfg.Discord.GuildID)

	registered, err := session.ApplicationCommandBulkOverwrite(cfg.Discord.ApplicationID, cfg.Discord.GuildID, router.Definitions(), discordgo.WithContext(ctx))
	if err != nil {
		slog.ErrorContext(ctx, "failed to register application commands", "error", err)
		os.Exit(1)
	}

	for _, c := range registered {
		slog.InfoContext(ctx, "registered command", "name", c.Name, "id", c.ID)
	}
	slog.InfoContext(ctx, "successfully reloaded application commands", "count", len(registered))
}
