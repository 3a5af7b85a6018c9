package model

import (
	"encoding/json"
	"strings"
)

// Source identifies which ingestion path produced an event.
type Source string

const (
	SourcePoll    Source = "poll"
	SourceWebhook Source = "webhook"
)

// RawEvent is a GitHub event as received from either ingestion path, before
// rendering. Kind is already normalized to the webhook naming ("push",
// "issues", "pull_request", ...).
type RawEvent struct {
	// ID is the feed event id. Nil for webhook deliveries.
	ID *string
	// DeliveryID is the X-GitHub-Delivery header. Empty for polled events.
	DeliveryID string
	Source     Source
	Kind       string
	Actor      string
	Repo       string
	Payload    json.RawMessage
}

// RelayEvent is the normalized, rendered form handed to the sink.
type RelayEvent struct {
	EventID      *string
	Kind         string
	RepoFullName string
	RenderedText string
}

// Cursor is the id of the newest feed event relayed so far.
type Cursor struct {
	ID string `json:"id"`
}

func (c Cursor) IsZero() bool {
	return c.ID == ""
}

// Covers reports whether id is the same as or older than the cursor, i.e.
// whether the event has already been relayed. A zero cursor covers nothing.
func (c Cursor) Covers(id string) bool {
	if c.IsZero() {
		return false
	}
	return CompareEventIDs(id, c.ID) <= 0
}

// CompareEventIDs orders GitHub feed ids. Ids are decimal strings that outgrow
// int64 comfortably, so numeric ids compare by length first and then
// lexically; anything non-numeric falls back to plain string order.
func CompareEventIDs(a, b string) int {
	if isDigits(a) && isDigits(b) {
		a = strings.TrimLeft(a, "0")
		b = strings.TrimLeft(b, "0")
		if len(a) != len(b) {
			if len(a) < len(b) {
				return -1
			}
			return 1
		}
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
