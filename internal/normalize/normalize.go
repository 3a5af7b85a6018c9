// Package normalize turns raw GitHub events from either ingestion path into
// rendered chat messages. Renderers are pure and keyed by event kind, so the
// same activity renders identically whether it was polled or pushed.
package normalize

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/octorelay/octorelay/internal/model"
)

const (
	KindPush        = "push"
	KindIssues      = "issues"
	KindPullRequest = "pull_request"
)

// ErrIncomplete is returned by a renderer when the payload lacks the fields it
// needs. The registry answers it with the fallback rendering.
var ErrIncomplete = errors.New("payload incomplete for kind")

// RenderFunc renders one kind of event. It must not have side effects.
type RenderFunc func(ev model.RawEvent) (string, error)

// Registry maps event kinds to renderers. Register everything before the
// registry is shared; Normalize is safe for concurrent use afterwards.
type Registry struct {
	renderers map[string]RenderFunc
}

func NewRegistry() *Registry {
	return &Registry{renderers: make(map[string]RenderFunc)}
}

// Default returns a registry with the push, issues and pull_request renderers.
func Default() *Registry {
	r := NewRegistry()
	r.Register(KindPush, renderPush)
	r.Register(KindIssues, renderIssues)
	r.Register(KindPullRequest, renderPullRequest)
	return r
}

func (r *Registry) Register(kind string, fn RenderFunc) {
	r.renderers[kind] = fn
}

// Kinds lists the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	return slices.Sorted(maps.Keys(r.renderers))
}

// Normalize never fails: unknown kinds and payloads a renderer can't use both
// produce the fallback message naming the kind and repository.
func (r *Registry) Normalize(ev model.RawEvent) model.RelayEvent {
	text := ""
	if fn, ok := r.renderers[ev.Kind]; ok {
		if rendered, err := fn(ev); err == nil {
			text = rendered
		}
	}
	if text == "" {
		text = renderFallback(ev)
	}

	return model.RelayEvent{
		EventID:      ev.ID,
		Kind:         ev.Kind,
		RepoFullName: ev.Repo,
		RenderedText: text,
	}
}

// Kind converts a feed event type ("PullRequestEvent") to the webhook event
// name ("pull_request") so both paths share one registry.
func Kind(feedType string) string {
	name := strings.TrimSuffix(feedType, "Event")
	if name == "" {
		return strings.ToLower(feedType)
	}

	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func header(ev model.RawEvent) (actor, repo string) {
	actor = ev.Actor
	if actor == "" {
		actor = "someone"
	}
	repo = ev.Repo
	if repo == "" {
		repo = "an unknown repository"
	}
	return fmt.Sprintf("**%s**", actor), fmt.Sprintf("**%s**", repo)
}

func renderFallback(ev model.RawEvent) string {
	kind := ev.Kind
	if kind == "" {
		kind = "unknown"
	}
	actor, repo := header(ev)
	return fmt.Sprintf("📣 %s triggered `%s` on %s", actor, kind, repo)
}
