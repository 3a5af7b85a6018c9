package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/octorelay/octorelay/internal/githubapi"
)

type StatsSource interface {
	UserStats(ctx context.Context) (githubapi.Stats, error)
}

type HookCreator interface {
	CreateRepoWebhook(ctx context.Context, p githubapi.HookParams) (int64, error)
}

// StatusCommand reports that the tracker is running.
type StatusCommand struct {
	interval time.Duration
}

func NewStatusCommand(interval time.Duration) *StatusCommand {
	return &StatusCommand{interval: interval}
}

func (c *StatusCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "status",
		Description: "Check if GitHub activity tracker is running",
	}
}

func (c *StatusCommand) Execute(ctx context.Context, req Request) (Reply, error) {
	every := "every " + c.interval.String()
	if c.interval == time.Minute {
		every = "every minute"
	}
	return Reply{Content: "✅ GitHub tracker is active and polling " + every + "!", Ephemeral: true}, nil
}

// StatsCommand shows follower and repository counts for the tracked user.
type StatsCommand struct {
	stats StatsSource
}

func NewStatsCommand(stats StatsSource) *StatsCommand {
	return &StatsCommand{stats: stats}
}

func (c *StatsCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "githubstats",
		Description: "Show GitHub user stats",
	}
}

func (c *StatsCommand) Execute(ctx context.Context, req Request) (Reply, error) {
	stats, err := c.stats.UserStats(ctx)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Content: fmt.Sprintf("GitHub Stats:\nFollowers: %d\nRepos: %d", stats.Followers, stats.PublicRepos)}, nil
}

// CreateWebhookCommand installs a webhook pointing back at this relay on a repo.
type CreateWebhookCommand struct {
	hooks  HookCreator
	url    string
	secret string
	events []string
}

func NewCreateWebhookCommand(hooks HookCreator, url, secret string, events []string) *CreateWebhookCommand {
	return &CreateWebhookCommand{hooks: hooks, url: url, secret: secret, events: events}
}

func (c *CreateWebhookCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "createwebhook",
		Description: "Add GitHub webhook for a repo",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "repo",
				Description: "The full repo name (e.g., user/repo)",
				Required:    true,
			},
		},
	}
}

func (c *CreateWebhookCommand) Execute(ctx context.Context, req Request) (Reply, error) {
	fullName := strings.TrimSpace(req.Options["repo"])
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return Reply{Content: "❌ Invalid repo format. Use `owner/repo`.", Ephemeral: true}, nil
	}

	if c.url == "" || c.secret == "" {
		return Reply{Content: "⚠️ Webhook creation is not configured (PUBLIC_WEBHOOK_URL and GITHUB_WEBHOOK_SECRET).", Ephemeral: true}, nil
	}

	hookID, err := c.hooks.CreateRepoWebhook(ctx, githubapi.HookParams{
		Owner:  owner,
		Repo:   repo,
		URL:    c.url,
		Secret: c.secret,
		Events: c.events,
	})
	if err != nil {
		slog.ErrorContext(ctx, "webhook creation error", "repo", fullName, "error", err)
		return Reply{Content: "⚠️ Failed to create webhook: " + err.Error(), Ephemeral: true}, nil
	}

	slog.InfoContext(ctx, "webhook created", "repo", fullName, "hook_id", hookID, "events", c.events)
	return Reply{Content: fmt.Sprintf("✅ Webhook created for `%s`!", fullName), Ephemeral: true}, nil
}
