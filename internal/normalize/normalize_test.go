package normalize_test

import (
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/octorelay/octorelay/internal/model"
	"github.com/octorelay/octorelay/internal/normalize"
)

func raw(kind string, payload any) model.RawEvent {
	body, err := json.Marshal(payload)
	Expect(err).ToNot(HaveOccurred())
	return model.RawEvent{
		Kind:    kind,
		Actor:   "octocat",
		Repo:    "octocat/hello-world",
		Payload: body,
	}
}

var _ = Describe("Registry", func() {
	var registry *normalize.Registry

	BeforeEach(func() {
		registry = normalize.Default()
	})

	Describe("push", func() {
		It("renders a header and one line per commit in payload order", func() {
			ev := raw(normalize.KindPush, map[string]any{
				"commits": []map[string]any{
					{"message": "first commit", "author": map[string]any{"name": "Mona"}},
					{"message": "second commit\n\nwith a body", "author": map[string]any{"name": "Hubot"}},
				},
			})

			out := registry.Normalize(ev)

			Expect(out.Kind).To(Equal("push"))
			Expect(out.RepoFullName).To(Equal("octocat/hello-world"))
			Expect(strings.Split(out.RenderedText, "\n")).To(Equal([]string{
				"📦 **octocat** pushed to **octocat/hello-world**:",
				"- first commit (Mona)",
				"- second commit (Hubot)",
			}))
		})

		It("falls back when the commits array is missing", func() {
			out := registry.Normalize(raw(normalize.KindPush, map[string]any{"ref": "refs/heads/main"}))
			Expect(out.RenderedText).To(Equal("📣 **octocat** triggered `push` on **octocat/hello-world**"))
		})
	})

	Describe("issues", func() {
		It("renders the action, number and title", func() {
			out := registry.Normalize(raw(normalize.KindIssues, map[string]any{
				"action": "opened",
				"issue":  map[string]any{"number": 42, "title": "Spaceship is leaking"},
			}))
			Expect(out.RenderedText).To(Equal("🐛 **octocat** on **octocat/hello-world**:\nopened issue #42: Spaceship is leaking"))
		})

		It("falls back when the issue object is missing", func() {
			out := registry.Normalize(raw(normalize.KindIssues, map[string]any{"action": "opened"}))
			Expect(out.RenderedText).To(ContainSubstring("triggered `issues`"))
		})
	})

	Describe("pull_request", func() {
		It("renders the action, number and title", func() {
			out := registry.Normalize(raw(normalize.KindPullRequest, map[string]any{
				"action":       "closed",
				"number":       7,
				"pull_request": map[string]any{"number": 7, "title": "Add warp drive"},
			}))
			Expect(out.RenderedText).To(Equal("🔀 **octocat** on **octocat/hello-world**:\nclosed pull request #7: Add warp drive"))
		})

		It("falls back when the pull request object is missing", func() {
			out := registry.Normalize(raw(normalize.KindPullRequest, map[string]any{"action": "opened"}))
			Expect(out.RenderedText).To(ContainSubstring("triggered `pull_request`"))
		})
	})

	Describe("fallback", func() {
		It("names the kind and repository for unrecognized kinds", func() {
			out := registry.Normalize(raw("star", map[string]any{"action": "created"}))
			Expect(out.Kind).To(Equal("star"))
			Expect(out.RenderedText).To(Equal("📣 **octocat** triggered `star` on **octocat/hello-world**"))
		})

		It("tolerates payloads that are not JSON", func() {
			ev := model.RawEvent{Kind: normalize.KindPush, Payload: []byte("not json")}
			out := registry.Normalize(ev)
			Expect(out.RenderedText).To(Equal("📣 **someone** triggered `push` on **an unknown repository**"))
		})
	})

	It("carries the feed event id through", func() {
		ev := raw("star", map[string]any{})
		ev.ID = func() *string { s := "12345"; return &s }()
		Expect(registry.Normalize(ev).EventID).To(HaveValue(Equal("12345")))
	})

	It("renders the same text for the same activity from either source", func() {
		payload := map[string]any{
			"action": "opened",
			"issue":  map[string]any{"number": 1, "title": "Same"},
		}
		polled := raw(normalize.KindIssues, payload)
		polled.Source = model.SourcePoll
		pushed := raw(normalize.KindIssues, payload)
		pushed.Source = model.SourceWebhook

		Expect(registry.Normalize(polled).RenderedText).To(Equal(registry.Normalize(pushed).RenderedText))
	})

	It("lets callers register new kinds", func() {
		registry.Register("release", func(ev model.RawEvent) (string, error) {
			return "released " + ev.Repo, nil
		})
		Expect(registry.Normalize(raw("release", map[string]any{})).RenderedText).To(Equal("released octocat/hello-world"))
		Expect(registry.Kinds()).To(Equal([]string{"issues", "pull_request", "push", "release"}))
	})
})

var _ = DescribeTable("Kind",
	func(feedType, want string) {
		Expect(normalize.Kind(feedType)).To(Equal(want))
	},
	Entry("push", "PushEvent", "push"),
	Entry("issues", "IssuesEvent", "issues"),
	Entry("pull request", "PullRequestEvent", "pull_request"),
	Entry("review comment", "PullRequestReviewCommentEvent", "pull_request_review_comment"),
	Entry("watch", "WatchEvent", "watch"),
	Entry("no suffix", "Event", "event"),
)
