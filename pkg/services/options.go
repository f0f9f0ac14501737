package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/phasetrack/pkg/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dukex/phasetrack/pkg/services"

// Notifier announces committed changes to live subscribers.
type Notifier interface {
	Publish(ctx context.Context, event models.ChangeEvent) error
}

type options struct {
	now    func() time.Time
	tracer trace.Tracer
	logger *slog.Logger
}

// Option customizes a service.
type Option func(*options)

// WithClock replaces the wall clock used to timestamp changes.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithTracer replaces the tracer spans are started on.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(module string, opts []Option) options {
	o := options{
		now:    func() time.Time { return time.Now().UTC() },
		tracer: otel.Tracer(tracerName),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	o.logger = o.logger.With("module", module)

	return o
}

// timestamp is the clock reading truncated to the precision every store keeps.
func (o options) timestamp() time.Time {
	return o.now().UTC().Truncate(time.Microsecond)
}

// publish delivers a change event. Delivery problems never fail the committed operation.
func publish(ctx context.Context, logger *slog.Logger, notifier Notifier, event models.ChangeEvent) {
	if notifier == nil {
		return
	}

	err := notifier.Publish(ctx, event)
	if err != nil {
		logger.WarnContext(ctx, "Failed to publish change event",
			"event_id", event.ID,
			"type", event.Type,
			"entity_id", event.EntityID,
			"error", err)
	}
}
