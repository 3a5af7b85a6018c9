// Package sink delivers rendered messages to the output chat channel. Both
// ingestion paths call the same Sink.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/octorelay/octorelay/internal/model"
)

// ErrChannelNotFound means the configured destination channel does not exist
// or the bot cannot see it. Retrying will not help.
var ErrChannelNotFound = errors.New("destination channel not found")

// Sink sends one message per relayed event. A failed Send returns a
// *DeliveryError and has not delivered anything.
type Sink interface {
	Send(ctx context.Context, ev model.RelayEvent) error
}

type DeliveryError struct {
	Kind    string
	Repo    string
	EventID string
	Err     error
}

func (e *DeliveryError) Error() string {
	if e.EventID != "" {
		return fmt.Sprintf("delivering %s event %s for %s: %v", e.Kind, e.EventID, e.Repo, e.Err)
	}
	return fmt.Sprintf("delivering %s event for %s: %v", e.Kind, e.Repo, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func deliveryError(ev model.RelayEvent, err error) *DeliveryError {
	de := &DeliveryError{Kind: ev.Kind, Repo: ev.RepoFullName, Err: err}
	if ev.EventID != nil {
		de.EventID = *ev.EventID
	}
	return de
}
