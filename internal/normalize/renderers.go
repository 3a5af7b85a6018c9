package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/go-github/v66/github"

	"github.com/octorelay/octorelay/internal/model"
)

// Feed and webhook payloads share the per-kind body shape, so the go-github
// webhook types decode both.

func renderPush(ev model.RawEvent) (string, error) {
	var p github.PushEvent
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return "", fmt.Errorf("decoding push payload: %w", err)
	}
	if len(p.Commits) == 0 {
		return "", fmt.Errorf("%w %s: no commits", ErrIncomplete, ev.Kind)
	}

	actor, repo := header(ev)
	lines := make([]string, 0, len(p.Commits)+1)
	lines = append(lines, fmt.Sprintf("📦 %s pushed to %s:", actor, repo))
	for _, c := range p.Commits {
		if c == nil {
			continue
		}
		author := c.GetAuthor().GetName()
		if author == "" {
			author = c.GetAuthor().GetLogin()
		}
		lines = append(lines, fmt.Sprintf("- %s (%s)", subject(c.GetMessage()), author))
	}
	return strings.Join(lines, "\n"), nil
}

func renderIssues(ev model.RawEvent) (string, error) {
	var p github.IssuesEvent
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return "", fmt.Errorf("decoding issues payload: %w", err)
	}
	if p.Issue == nil || p.GetAction() == "" {
		return "", fmt.Errorf("%w %s: no issue", ErrIncomplete, ev.Kind)
	}

	actor, repo := header(ev)
	return fmt.Sprintf("🐛 %s on %s:\n%s issue #%d: %s",
		actor, repo, p.GetAction(), p.Issue.GetNumber(), p.Issue.GetTitle()), nil
}

func renderPullRequest(ev model.RawEvent) (string, error) {
	var p github.PullRequestEvent
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return "", fmt.Errorf("decoding pull_request payload: %w", err)
	}
	if p.PullRequest == nil || p.GetAction() == "" {
		return "", fmt.Errorf("%w %s: no pull request", ErrIncomplete, ev.Kind)
	}

	number := p.PullRequest.GetNumber()
	if number == 0 {
		number = p.GetNumber()
	}

	actor, repo := header(ev)
	return fmt.Sprintf("🔀 %s on %s:\n%s pull request #%d: %s",
		actor, repo, p.GetAction(), number, p.PullRequest.GetTitle()), nil
}

// subject keeps commit lines to one line each.
func subject(message string) string {
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		message = message[:i]
	}
	return strings.TrimSpace(message)
}
