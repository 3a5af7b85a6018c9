// Package githubapi wraps the GitHub REST calls the relay makes: the public
// events feed for the tracked user, profile stats, and webhook creation.
package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"

	"github.com/octorelay/octorelay/internal/model"
	"github.com/octorelay/octorelay/internal/normalize"
)

// FetchError wraps any failure reading the events feed, including rate limits.
type FetchError struct {
	User string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching public events for %s: %v", e.User, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Stats struct {
	Login       string
	Followers   int
	PublicRepos int
	CreatedAt   time.Time
}

type Client struct {
	gh       *github.Client
	username string
	pageSize int
}

type Option func(*Client) error

// WithBaseURL points the client at another API root (GitHub Enterprise, tests).
func WithBaseURL(raw string) Option {
	return func(c *Client) error {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parsing github base url: %w", err)
		}
		c.gh.BaseURL = u
		return nil
	}
}

// NewClient builds a client for username. token may be empty; unauthenticated
// requests work for public data but share a much smaller rate limit.
func NewClient(token, username string, pageSize int, opts ...Option) (*Client, error) {
	gh := github.NewClient(nil)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}

	c := &Client{gh: gh, username: username, pageSize: pageSize}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Client) Username() string {
	return c.username
}

// ListPublicEvents returns one page of the user's public events, most recent
// first, as the API orders them.
func (c *Client) ListPublicEvents(ctx context.Context) ([]model.RawEvent, error) {
	events, _, err := c.gh.Activity.ListEventsPerformedByUser(ctx, c.username, true, &github.ListOptions{
		PerPage: c.pageSize,
	})
	if err != nil {
		return nil, &FetchError{User: c.username, Err: err}
	}

	out := make([]model.RawEvent, 0, len(events))
	for _, e := range events {
		if e.GetID() == "" {
			slog.DebugContext(ctx, "skipping feed event without id", "type", e.GetType())
			continue
		}
		out = append(out, toRawEvent(e))
	}
	return out, nil
}

func toRawEvent(e *github.Event) model.RawEvent {
	id := e.GetID()
	var payload json.RawMessage
	if e.RawPayload != nil {
		payload = *e.RawPayload
	}
	return model.RawEvent{
		ID:      &id,
		Source:  model.SourcePoll,
		Kind:    normalize.Kind(e.GetType()),
		Actor:   e.GetActor().GetLogin(),
		Repo:    e.GetRepo().GetName(),
		Payload: payload,
	}
}

func (c *Client) UserStats(ctx context.Context) (Stats, error) {
	user, _, err := c.gh.Users.Get(ctx, c.username)
	if err != nil {
		return Stats{}, fmt.Errorf("fetching github user %s: %w", c.username, err)
	}
	return Stats{
		Login:       user.GetLogin(),
		Followers:   user.GetFollowers(),
		PublicRepos: user.GetPublicRepos(),
		CreatedAt:   user.GetCreatedAt().Time,
	}, nil
}

type HookParams struct {
	Owner  string
	Repo   string
	URL    string
	Secret string
	Events []string
}

// CreateRepoWebhook registers a JSON webhook on owner/repo. Requires a token
// with admin:repo_hook scope.
func (c *Client) CreateRepoWebhook(ctx context.Context, p HookParams) (int64, error) {
	hook, _, err := c.gh.Repositories.CreateHook(ctx, p.Owner, p.Repo, &github.Hook{
		Active: github.Bool(true),
		Events: p.Events,
		Config: &github.HookConfig{
			URL:         github.String(p.URL),
			ContentType: github.String("json"),
			Secret:      github.String(p.Secret),
			InsecureSSL: github.String("0"),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("creating webhook on %s/%s: %w", p.Owner, p.Repo, err)
	}
	return hook.GetID(), nil
}
