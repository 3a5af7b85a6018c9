package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/octorelay/octorelay/common/id"
	"github.com/octorelay/octorelay/common/logger"
	"github.com/octorelay/octorelay/internal/model"
	"github.com/octorelay/octorelay/internal/signature"
	"github.com/octorelay/octorelay/internal/sink"
)

const (
	eventHeader    = "X-GitHub-Event"
	deliveryHeader = "X-GitHub-Delivery"
)

type Verifier interface {
	Verify(body []byte, provided string) error
}

type Normalizer interface {
	Normalize(ev model.RawEvent) model.RelayEvent
}

// GitHubWebhookHandler relays each accepted delivery exactly once, straight to
// the sink. There is no cursor and no dedup on this path.
type GitHubWebhookHandler struct {
	verifier   Verifier
	normalizer Normalizer
	sink       sink.Sink
}

func NewGitHubWebhookHandler(verifier Verifier, normalizer Normalizer, sink sink.Sink) *GitHubWebhookHandler {
	return &GitHubWebhookHandler{
		verifier:   verifier,
		normalizer: normalizer,
		sink:       sink,
	}
}

func (h *GitHubWebhookHandler) HandleEvent(c *gin.Context) {
	deliveryID := c.GetHeader(deliveryHeader)
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{
		Component:  "octorelay.webhook",
		DeliveryID: &deliveryID,
	})

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	// Nothing below may look at the body until the signature checks out.
	if err := h.verifier.Verify(body, c.GetHeader(signature.Header)); err != nil {
		slog.WarnContext(ctx, "rejected github webhook", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	kind := c.GetHeader(eventHeader)
	if kind == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + eventHeader + " header"})
		return
	}

	raw := toRawEvent(kind, deliveryID, body)
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RelayID:   logger.Ptr(id.New()),
		EventKind: logger.Ptr(raw.Kind),
		Repo:      logger.Ptr(raw.Repo),
	})

	out := h.normalizer.Normalize(raw)
	if err := h.sink.Send(ctx, out); err != nil {
		if errors.Is(err, sink.ErrChannelNotFound) {
			slog.WarnContext(ctx, "could not find log channel", "error", err)
			c.JSON(http.StatusNotFound, gin.H{"error": "log channel not found"})
			return
		}
		// No replay on this path: the delivery is lost unless it is redelivered
		// from the GitHub UI.
		slog.ErrorContext(ctx, "failed to relay github webhook", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to deliver message"})
		return
	}

	slog.InfoContext(ctx, "github webhook relayed",
		"text", logger.Truncate(out.RenderedText, 120))

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// toRawEvent pulls the best-effort envelope fields out of the payload. A body
// that is not JSON still produces an event; the normalizer falls back for it.
func toRawEvent(kind, deliveryID string, body []byte) model.RawEvent {
	var env webhookEnvelope
	_ = json.Unmarshal(body, &env)

	actor := env.Sender.Login
	if actor == "" {
		actor = env.Pusher.Name
	}
	repo := env.Repository.FullName
	if repo == "" {
		repo = env.Repository.Name
	}

	return model.RawEvent{
		DeliveryID: deliveryID,
		Source:     model.SourceWebhook,
		Kind:       kind,
		Actor:      actor,
		Repo:       repo,
		Payload:    body,
	}
}

type webhookEnvelope struct {
	Repository struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
	} `json:"repository"`
	Sender struct {
		Login string `json:"login"`
	} `json:"sender"`
	Pusher struct {
		Name string `json:"name"`
	} `json:"pusher"`
}
