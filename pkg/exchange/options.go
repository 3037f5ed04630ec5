package exchange

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultTimeout bounds an exchange when neither Do nor WithTimeout set one
const DefaultTimeout = 30 * time.Second

type config struct {
	timeout time.Duration
	tracer  trace.Tracer
	logger  *slog.Logger
}

func defaultConfig() config {
	return config{
		timeout: DefaultTimeout,
		tracer:  noop.Tracer{},
		logger:  slog.New(slog.DiscardHandler),
	}
}

// Option configures a Bridge
type Option func(*config)

// WithTimeout sets the deadline used when Do is called with a zero timeout
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTracer records one span per exchange on tracer
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithLogger sets the logger for exchange outcomes
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
