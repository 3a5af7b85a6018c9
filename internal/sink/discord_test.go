package sink_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/octorelay/octorelay/internal/model"
	"github.com/octorelay/octorelay/internal/sink"
)

type fakeMessenger struct {
	channelID string
	contents  []string
	err       error
}

func (f *fakeMessenger) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.channelID = channelID
	f.contents = append(f.contents, content)
	return &discordgo.Message{ID: "m1", ChannelID: channelID, Content: content}, nil
}

var _ = Describe("DiscordSink", func() {
	var (
		ctx       context.Context
		messenger *fakeMessenger
		s         *sink.DiscordSink
		event     model.RelayEvent
	)

	BeforeEach(func() {
		ctx = context.Background()
		messenger = &fakeMessenger{}
		s = sink.NewDiscordSink(messenger, "channel-1")
		id := "42"
		event = model.RelayEvent{EventID: &id, Kind: "push", RepoFullName: "octocat/hello-world", RenderedText: "hello"}
	})

	It("sends the rendered text to the configured channel", func() {
		Expect(s.Send(ctx, event)).To(Succeed())
		Expect(messenger.channelID).To(Equal("channel-1"))
		Expect(messenger.contents).To(Equal([]string{"hello"}))
	})

	It("truncates messages over the Discord limit", func() {
		event.RenderedText = strings.Repeat("é", sink.MaxMessageLength+10)

		Expect(s.Send(ctx, event)).To(Succeed())
		Expect(utf8.RuneCountInString(messenger.contents[0])).To(Equal(sink.MaxMessageLength))
		Expect(messenger.contents[0]).To(HaveSuffix("…"))
	})

	It("wraps transport failures in a DeliveryError with event context", func() {
		messenger.err = errors.New("websocket closed")

		err := s.Send(ctx, event)

		var derr *sink.DeliveryError
		Expect(errors.As(err, &derr)).To(BeTrue())
		Expect(derr.Kind).To(Equal("push"))
		Expect(derr.Repo).To(Equal("octocat/hello-world"))
		Expect(derr.EventID).To(Equal("42"))
		Expect(errors.Is(err, sink.ErrChannelNotFound)).To(BeFalse())
	})

	It("flags an unknown channel", func() {
		messenger.err = &discordgo.RESTError{
			Response: &http.Response{StatusCode: http.StatusNotFound},
			Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownChannel, Message: "Unknown Channel"},
		}

		err := s.Send(ctx, event)

		Expect(errors.Is(err, sink.ErrChannelNotFound)).To(BeTrue())
		var derr *sink.DeliveryError
		Expect(errors.As(err, &derr)).To(BeTrue())
	})
})
