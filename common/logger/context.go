package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Ingestion paths enrich the context once per event so downstream components
// (normalizer, sink, cursor store) log with the same identifiers.
type LogFields struct {
	EventID    *string // GitHub feed event ID (polling path only)
	DeliveryID *string // X-GitHub-Delivery header (webhook path only)
	RelayID    *int64  // Snowflake ID assigned to each relayed message
	EventKind  *string // Normalized event kind (e.g., "push", "issues")
	Repo       *string // owner/name of the repository the event belongs to
	Component  string  // Component name (OTel semantic convention style, e.g., "octorelay.poller")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.EventID != nil {
		result.EventID = new.EventID
	}
	if new.DeliveryID != nil {
		result.DeliveryID = new.DeliveryID
	}
	if new.RelayID != nil {
		result.RelayID = new.RelayID
	}
	if new.EventKind != nil {
		result.EventKind = new.EventKind
	}
	if new.Repo != nil {
		result.Repo = new.Repo
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{Repo: logger.Ptr(name)})
func Ptr[T any](v T) *T {
	return &v
}

func (f LogFields) attrs() []slog.Attr {
	var attrs []slog.Attr
	if f.EventID != nil {
		attrs = append(attrs, slog.String("event_id", *f.EventID))
	}
	if f.DeliveryID != nil {
		attrs = append(attrs, slog.String("delivery_id", *f.DeliveryID))
	}
	if f.RelayID != nil {
		attrs = append(attrs, slog.Int64("relay_id", *f.RelayID))
	}
	if f.EventKind != nil {
		attrs = append(attrs, slog.String("event_kind", *f.EventKind))
	}
	if f.Repo != nil {
		attrs = append(attrs, slog.String("repo", *f.Repo))
	}
	if f.Component != "" {
		attrs = append(attrs, slog.String("component", f.Component))
	}
	return attrs
}

// Truncate shortens s to maxLen runes, appending "..." if anything was cut.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
