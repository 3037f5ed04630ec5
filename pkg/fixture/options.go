package fixture

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/WhileEndless/go-httpcontract/pkg/exchange"
	"github.com/WhileEndless/go-httpcontract/pkg/rawhttp"
)

const (
	// DefaultMaxConns caps the connections the scenario server accepts at once
	DefaultMaxConns = 8
	// DefaultShutdownGrace bounds each teardown step
	DefaultShutdownGrace = 5 * time.Second
)

type config struct {
	timeout       time.Duration
	logger        *slog.Logger
	tracer        trace.Tracer
	maxConns      int
	shutdownGrace time.Duration
	client        rawhttp.Options
}

func defaultConfig() config {
	return config{
		timeout:       exchange.DefaultTimeout,
		logger:        slog.New(slog.DiscardHandler),
		tracer:        noop.Tracer{},
		maxConns:      DefaultMaxConns,
		shutdownGrace: DefaultShutdownGrace,
	}
}

// Option configures a Fixture
type Option func(*config)

// WithTimeout sets the default deadline of every exchange
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger for the fixture, its server and its exchanges
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer records exchange spans on tracer
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithMaxConns limits how many connections the server accepts concurrently
func WithMaxConns(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxConns = n
		}
	}
}

// WithShutdownGrace bounds how long each teardown step may wait
func WithShutdownGrace(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.shutdownGrace = d
		}
	}
}

// WithClientOptions configures the client connection
func WithClientOptions(opts rawhttp.Options) Option {
	return func(c *config) {
		c.client = opts
	}
}
