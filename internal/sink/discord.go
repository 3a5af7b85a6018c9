package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/octorelay/octorelay/internal/model"
)

// MaxMessageLength is Discord's limit on message content.
const MaxMessageLength = 2000

// ChannelMessenger is the part of *discordgo.Session the sink uses.
type ChannelMessenger interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type DiscordSink struct {
	session   ChannelMessenger
	channelID string
}

func NewDiscordSink(session ChannelMessenger, channelID string) *DiscordSink {
	return &DiscordSink{session: session, channelID: channelID}
}

func (s *DiscordSink) Send(ctx context.Context, ev model.RelayEvent) error {
	content := truncate(ev.RenderedText, MaxMessageLength)

	msg, err := s.session.ChannelMessageSend(s.channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return deliveryError(ev, classify(err))
	}

	if msg != nil {
		slog.DebugContext(ctx, "message delivered", "channel_id", s.channelID, "message_id", msg.ID)
	}
	return nil
}

func classify(err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel {
			return fmt.Errorf("%w: %w", ErrChannelNotFound, err)
		}
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %w", ErrChannelNotFound, err)
		}
	}
	return err
}

// truncate cuts s to at most limit runes, marking the cut with an ellipsis.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
