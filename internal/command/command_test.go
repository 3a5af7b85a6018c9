package command_test

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/octorelay/octorelay/internal/command"
	"github.com/octorelay/octorelay/internal/githubapi"
)

type fakeGitHub struct {
	stats     githubapi.Stats
	statsErr  error
	hookErr   error
	hookCalls []githubapi.HookParams
}

func (f *fakeGitHub) UserStats(ctx context.Context) (githubapi.Stats, error) {
	return f.stats, f.statsErr
}

func (f *fakeGitHub) CreateRepoWebhook(ctx context.Context, p githubapi.HookParams) (int64, error) {
	f.hookCalls = append(f.hookCalls, p)
	if f.hookErr != nil {
		return 0, f.hookErr
	}
	return 1, nil
}

type fakeResponder struct {
	resp *discordgo.InteractionResponse
}

func (f *fakeResponder) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	f.resp = resp
	return nil
}

var _ = Describe("Router", func() {
	var (
		ctx    context.Context
		gh     *fakeGitHub
		router *command.Router
	)

	BeforeEach(func() {
		ctx = context.Background()
		gh = &fakeGitHub{stats: githubapi.Stats{Followers: 20, PublicRepos: 8}}
		router = command.NewRouter(
			command.NewStatusCommand(time.Minute),
			command.NewStatsCommand(gh),
			command.NewCreateWebhookCommand(gh, "https://relay.example.com/github-webhook", "s3cr3t", []string{"issues", "pull_request", "push"}),
		)
	})

	It("lists definitions sorted by name", func() {
		var names []string
		for _, d := range router.Definitions() {
			names = append(names, d.Name)
		}
		Expect(names).To(Equal([]string{"createwebhook", "githubstats", "status"}))
	})

	It("answers unknown commands ephemerally", func() {
		reply := router.Dispatch(ctx, command.Request{Name: "nope"})
		Expect(reply.Ephemeral).To(BeTrue())
		Expect(reply.Content).To(ContainSubstring("Unknown command"))
	})

	Describe("status", func() {
		It("reports the polling interval", func() {
			reply := router.Dispatch(ctx, command.Request{Name: "status"})
			Expect(reply).To(Equal(command.Reply{Content: "✅ GitHub tracker is active and polling every minute!", Ephemeral: true}))
		})

		It("formats other intervals", func() {
			reply, err := command.NewStatusCommand(90*time.Second).Execute(ctx, command.Request{})
			Expect(err).ToNot(HaveOccurred())
			Expect(reply.Content).To(ContainSubstring("every 1m30s"))
		})
	})

	Describe("githubstats", func() {
		It("shows followers and repos", func() {
			reply := router.Dispatch(ctx, command.Request{Name: "githubstats"})
			Expect(reply).To(Equal(command.Reply{Content: "GitHub Stats:\nFollowers: 20\nRepos: 8"}))
		})

		It("turns API errors into an ephemeral apology", func() {
			gh.statsErr = errors.New("rate limited")
			reply := router.Dispatch(ctx, command.Request{Name: "githubstats"})
			Expect(reply.Ephemeral).To(BeTrue())
			Expect(reply.Content).To(ContainSubstring("Something went wrong"))
		})
	})

	Describe("createwebhook", func() {
		It("creates the hook with the configured url, secret and events", func() {
			reply := router.Dispatch(ctx, command.Request{Name: "createwebhook", Options: map[string]string{"repo": "octocat/hello-world"}})

			Expect(reply.Content).To(Equal("✅ Webhook created for `octocat/hello-world`!"))
			Expect(gh.hookCalls).To(ConsistOf(githubapi.HookParams{
				Owner:  "octocat",
				Repo:   "hello-world",
				URL:    "https://relay.example.com/github-webhook",
				Secret: "s3cr3t",
				Events: []string{"issues", "pull_request", "push"},
			}))
		})

		DescribeTable("rejects malformed repo names",
			func(repo string) {
				reply := router.Dispatch(ctx, command.Request{Name: "createwebhook", Options: map[string]string{"repo": repo}})
				Expect(reply.Content).To(ContainSubstring("Invalid repo format"))
				Expect(gh.hookCalls).To(BeEmpty())
			},
			Entry("no slash", "hello-world"),
			Entry("missing owner", "/hello-world"),
			Entry("missing repo", "octocat/"),
			Entry("too many parts", "a/b/c"),
		)

		It("reports API failures to the user", func() {
			gh.hookErr = errors.New("404 Not Found")
			reply := router.Dispatch(ctx, command.Request{Name: "createwebhook", Options: map[string]string{"repo": "octocat/hello-world"}})
			Expect(reply.Ephemeral).To(BeTrue())
			Expect(reply.Content).To(Equal("⚠️ Failed to create webhook: 404 Not Found"))
		})

		It("refuses when the public url or secret is not configured", func() {
			cmd := command.NewCreateWebhookCommand(gh, "", "", nil)
			reply, err := cmd.Execute(ctx, command.Request{Options: map[string]string{"repo": "octocat/hello-world"}})
			Expect(err).ToNot(HaveOccurred())
			Expect(reply.Content).To(ContainSubstring("not configured"))
			Expect(gh.hookCalls).To(BeEmpty())
		})
	})

	Describe("Respond", func() {
		It("replies to application command interactions", func() {
			responder := &fakeResponder{}
			interaction := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
				ID:   "i1",
				Type: discordgo.InteractionApplicationCommand,
				Data: discordgo.ApplicationCommandInteractionData{
					Name: "createwebhook",
					Options: []*discordgo.ApplicationCommandInteractionDataOption{
						{Name: "repo", Type: discordgo.ApplicationCommandOptionString, Value: "octocat/hello-world"},
					},
				},
				Member: &discordgo.Member{User: &discordgo.User{Username: "mona"}},
			}}

			router.Respond(ctx, responder, interaction)

			Expect(responder.resp).ToNot(BeNil())
			Expect(responder.resp.Type).To(Equal(discordgo.InteractionResponseChannelMessageWithSource))
			Expect(responder.resp.Data.Content).To(ContainSubstring("Webhook created"))
			Expect(responder.resp.Data.Flags).To(Equal(discordgo.MessageFlagsEphemeral))
			Expect(gh.hookCalls).To(HaveLen(1))
		})

		It("ignores other interaction types", func() {
			responder := &fakeResponder{}
			router.Respond(ctx, responder, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
				Type: discordgo.InteractionPing,
			}})
			Expect(responder.resp).To(BeNil())
		})
	})
})
