// Package command dispatches Discord slash commands to their handlers.
package command

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/octorelay/octorelay/common/logger"
)

// Request is a slash command invocation with its string options.
type Request struct {
	Name    string
	Options map[string]string
	User    string
}

type Reply struct {
	Content   string
	Ephemeral bool
}

type Command interface {
	Definition() *discordgo.ApplicationCommand
	Execute(ctx context.Context, req Request) (Reply, error)
}

// InteractionResponder is the part of *discordgo.Session the router uses.
type InteractionResponder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// Router owns the command registry. It is built once at startup and only
// read afterwards.
type Router struct {
	commands map[string]Command
}

func NewRouter(commands ...Command) *Router {
	r := &Router{commands: make(map[string]Command, len(commands))}
	for _, c := range commands {
		r.commands[c.Definition().Name] = c
	}
	return r
}

// Definitions returns the application commands to register, sorted by name.
func (r *Router) Definitions() []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, 0, len(r.commands))
	for _, c := range r.commands {
		defs = append(defs, c.Definition())
	}
	slices.SortFunc(defs, func(a, b *discordgo.ApplicationCommand) int {
		return strings.Compare(a.Name, b.Name)
	})
	return defs
}

// Dispatch runs the named command. Failures become an ephemeral reply so the
// user always gets an answer.
func (r *Router) Dispatch(ctx context.Context, req Request) Reply {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "octorelay.command"})

	cmd, ok := r.commands[req.Name]
	if !ok {
		slog.WarnContext(ctx, "unknown command", "command", req.Name, "user", req.User)
		return Reply{Content: "❓ Unknown command.", Ephemeral: true}
	}

	reply, err := cmd.Execute(ctx, req)
	if err != nil {
		slog.ErrorContext(ctx, "command failed", "command", req.Name, "user", req.User, "error", err)
		return Reply{Content: "⚠️ Something went wrong running `/" + req.Name + "`.", Ephemeral: true}
	}

	slog.InfoContext(ctx, "command handled", "command", req.Name, "user", req.User)
	return reply
}

// OnInteraction is registered with session.AddHandler.
func (r *Router) OnInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	r.Respond(context.Background(), s, i)
}

// Respond answers one interaction. Non-command interactions are ignored.
func (r *Router) Respond(ctx context.Context, responder InteractionResponder, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	reply := r.Dispatch(ctx, toRequest(i))

	data := &discordgo.InteractionResponseData{Content: reply.Content}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}

	err := responder.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}, discordgo.WithContext(ctx))
	if err != nil {
		slog.ErrorContext(ctx, "failed to respond to interaction", "error", err, "interaction_id", i.ID)
	}
}

func toRequest(i *discordgo.InteractionCreate) Request {
	data := i.ApplicationCommandData()

	req := Request{Name: data.Name, Options: make(map[string]string, len(data.Options))}
	for _, opt := range data.Options {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			req.Options[opt.Name] = opt.StringValue()
		}
	}

	switch {
	case i.Member != nil && i.Member.User != nil:
		req.User = i.Member.User.Username
	case i.User != nil:
		req.User = i.User.Username
	}
	return req
}
