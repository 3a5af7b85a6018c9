// Package poller relays the tracked user's public events feed on a fixed
// interval, using a persisted cursor to skip events already relayed.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/octorelay/octorelay/common/id"
	"github.com/octorelay/octorelay/common/logger"
	"github.com/octorelay/octorelay/internal/cursor"
	"github.com/octorelay/octorelay/internal/model"
	"github.com/octorelay/octorelay/internal/sink"
)

// Feed returns one page of the tracked user's public events, most recent first.
type Feed interface {
	ListPublicEvents(ctx context.Context) ([]model.RawEvent, error)
}

type Normalizer interface {
	Normalize(ev model.RawEvent) model.RelayEvent
}

type Config struct {
	Interval time.Duration
}

// Poller owns the cursor. Nothing else reads or writes it, and cycles never
// overlap, so it needs no locking.
type Poller struct {
	feed       Feed
	cursors    cursor.Store
	normalizer Normalizer
	sink       sink.Sink
	cfg        Config

	cursor model.Cursor
	loaded bool

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(feed Feed, cursors cursor.Store, normalizer Normalizer, sink sink.Sink, cfg Config) *Poller {
	return &Poller{
		feed:       feed,
		cursors:    cursors,
		normalizer: normalizer,
		sink:       sink,
		cfg:        cfg,
		stopCh:     make(chan struct{}),
		stoppedCh:  make(chan struct{}),
	}
}

// CycleResult summarizes one polling cycle.
type CycleResult struct {
	Fetched int
	Skipped int
	Relayed int
}

// Run polls once immediately and then every Interval until ctx is done or
// Stop is called. A slow cycle delays the next one; cycles never overlap.
func (p *Poller) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "octorelay.poller",
	})

	defer close(p.stoppedCh)

	slog.InfoContext(ctx, "poller started", "interval", p.cfg.Interval)

	p.cycle(ctx)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			slog.InfoContext(ctx, "poller stopping")
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

// Stop signals Run to return and waits for the current cycle to finish.
func (p *Poller) Stop() {
	close(p.stopCh)
	<-p.stoppedCh
}

func (p *Poller) cycle(ctx context.Context) {
	sc := logger.StartSpan(ctx, "poller.cycle")
	defer sc.End()
	ctx = sc.Context()

	start := time.Now()
	res, err := p.RunOnce(ctx)
	sc.SetAttributes(
		attribute.Int("poller.fetched", res.Fetched),
		attribute.Int("poller.relayed", res.Relayed),
	)
	if err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "poll cycle aborted, will retry next cycle",
			"error", err,
			"relayed", res.Relayed,
			"cursor", p.cursor.ID)
		return
	}

	slog.InfoContext(ctx, "poll cycle complete",
		"fetched", res.Fetched,
		"skipped", res.Skipped,
		"relayed", res.Relayed,
		"cursor", p.cursor.ID,
		"duration_ms", time.Since(start).Milliseconds())
}

// RunOnce performs a single polling cycle. It stops at the first fetch or
// delivery failure; the cursor then still points at the last delivered event,
// so the next cycle retries the rest.
func (p *Poller) RunOnce(ctx context.Context) (CycleResult, error) {
	var res CycleResult

	if !p.loaded {
		p.cursor, _ = p.cursors.Load(ctx)
		p.loaded = true
		slog.InfoContext(ctx, "cursor loaded", "cursor", p.cursor.ID, "absent", p.cursor.IsZero())
	}

	events, err := p.feed.ListPublicEvents(ctx)
	if err != nil {
		return res, err
	}
	res.Fetched = len(events)

	for _, ev := range chronological(events) {
		if p.cursor.Covers(*ev.ID) {
			res.Skipped++
			continue
		}

		evCtx := logger.WithLogFields(ctx, logger.LogFields{
			EventID:   ev.ID,
			RelayID:   logger.Ptr(id.New()),
			EventKind: logger.Ptr(ev.Kind),
			Repo:      logger.Ptr(ev.Repo),
		})

		out := p.normalizer.Normalize(ev)
		if err := p.sink.Send(evCtx, out); err != nil {
			return res, fmt.Errorf("relaying event %s: %w", *ev.ID, err)
		}
		res.Relayed++

		p.advance(*ev.ID)
		if err := p.cursors.Save(evCtx, p.cursor); err != nil {
			// The in-memory cursor has moved on, so this process won't
			// re-relay; a restart before the next successful save might.
			var perr *cursor.PersistenceError
			if errors.As(err, &perr) {
				slog.ErrorContext(evCtx, "cursor not persisted", "error", err, "backend", perr.Backend)
			} else {
				slog.ErrorContext(evCtx, "cursor not persisted", "error", err)
			}
			continue
		}

		slog.DebugContext(evCtx, "event relayed")
	}

	return res, nil
}

func (p *Poller) advance(eventID string) {
	if model.CompareEventIDs(eventID, p.cursor.ID) > 0 || p.cursor.IsZero() {
		p.cursor = model.Cursor{ID: eventID}
	}
}

// chronological returns the page oldest first. The feed is newest first, so
// this is a reversal, followed by a stable sort on id to also straighten out
// any out-of-order entries in the page.
func chronological(events []model.RawEvent) []model.RawEvent {
	out := slices.Clone(events)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b model.RawEvent) int {
		return model.CompareEventIDs(*a.ID, *b.ID)
	})
	return out
}
