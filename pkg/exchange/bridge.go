// Package exchange turns the asynchronous request/response flow of a
// connection into a single blocking call bounded by a deadline.
package exchange

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/WhileEndless/go-httpcontract/pkg/contract"
	"github.com/WhileEndless/go-httpcontract/pkg/errors"
	"github.com/WhileEndless/go-httpcontract/pkg/rawhttp"
	"github.com/WhileEndless/go-httpcontract/pkg/request"
	"github.com/WhileEndless/go-httpcontract/pkg/response"
)

var (
	// ErrNoResponse is wrapped by timeouts that expired before a response head arrived
	ErrNoResponse = stderrors.New("no response received")
	// ErrIncompleteBody is wrapped by timeouts that expired while the body was being read
	ErrIncompleteBody = stderrors.New("response body incomplete")
)

// Submitter starts an exchange and reports its completion asynchronously.
// *rawhttp.Conn implements it.
type Submitter interface {
	Request(ctx context.Context, req *request.Request) *rawhttp.Pending
}

// Bridge performs one exchange at a time on a Submitter and blocks the
// caller until the response is complete or the deadline passes.
type Bridge struct {
	conn Submitter
	cfg  config

	mu       sync.Mutex
	inFlight bool
}

// New creates a Bridge over conn
func New(conn Submitter, opts ...Option) *Bridge {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Bridge{conn: conn, cfg: cfg}
}

// Timeout returns the deadline applied when Do is given none
func (b *Bridge) Timeout() time.Duration {
	return b.cfg.timeout
}

// Do sends req, waits at most timeout for the complete response and validates
// it against exp. A zero timeout selects the Bridge default.
//
// The error is a timeout, a transport failure, a malformed request or a
// contract violation; see package errors. On a contract violation the
// received response is returned alongside the error.
func (b *Bridge) Do(ctx context.Context, req *request.Request, exp contract.Expectation, timeout time.Duration) (*response.Response, error) {
	ctx, span := b.cfg.tracer.Start(ctx, "exchange.Do", trace.WithAttributes(
		attribute.String("http.request.method", string(req.Method)),
		attribute.String("url.path", req.Target),
		attribute.Int("contract.expected_status", exp.Status),
	))
	defer span.End()

	resp, err := b.roundTrip(ctx, req, timeout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if err := contract.Validate(resp, exp); err != nil {
		b.cfg.logger.InfoContext(ctx, "contract violated",
			"method", req.Method, "target", req.Target, "status", resp.StatusCode, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "contract violation")
		return resp, err
	}

	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// Send performs the exchange like Do without validating the response
func (b *Bridge) Send(ctx context.Context, req *request.Request, timeout time.Duration) (*response.Response, error) {
	ctx, span := b.cfg.tracer.Start(ctx, "exchange.Send", trace.WithAttributes(
		attribute.String("http.request.method", string(req.Method)),
		attribute.String("url.path", req.Target),
	))
	defer span.End()

	resp, err := b.roundTrip(ctx, req, timeout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

func (b *Bridge) roundTrip(ctx context.Context, req *request.Request, timeout time.Duration) (*response.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = b.cfg.timeout
	}

	if !b.acquire() {
		return nil, errors.NewTransportError("submit", rawhttp.NewBusyError())
	}
	defer b.release()

	logger := b.cfg.logger.With("method", req.Method, "target", req.Target)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	pending := b.conn.Request(ctx, req)

	select {
	case <-pending.Done():
		return b.result(ctx, logger, pending)

	case <-timer.C:
		// a response completing as the timer fires still counts
		select {
		case <-pending.Done():
			return b.result(ctx, logger, pending)
		default:
		}
		stage := pending.Stage()
		pending.Cancel()
		<-pending.Done()

		cause := ErrNoResponse
		if stage == rawhttp.StageReadingBody {
			cause = ErrIncompleteBody
		}
		logger.WarnContext(ctx, "exchange timed out", "stage", stage.String(), "timeout", timeout)
		return nil, errors.NewTimeoutError(stage.String(), fmt.Errorf("%w after %s", cause, timeout))

	case <-ctx.Done():
		stage := pending.Stage()
		pending.Cancel()
		<-pending.Done()
		return nil, abandoned(ctx, logger, stage)
	}
}

// abandoned reports an exchange cut short by the caller's context
func abandoned(ctx context.Context, logger *slog.Logger, stage rawhttp.Stage) error {
	logger.WarnContext(ctx, "exchange abandoned", "stage", stage.String(), "error", ctx.Err())
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewTimeoutError(stage.String(), ctx.Err())
	}
	return errors.NewTransportError(stage.String(), ctx.Err())
}

func (b *Bridge) result(ctx context.Context, logger *slog.Logger, pending *rawhttp.Pending) (*response.Response, error) {
	resp, err := pending.Result()
	if err == nil {
		logger.DebugContext(ctx, "exchange complete",
			"status", resp.StatusCode, "bytes", len(resp.Body), "ttfb", pending.Timing.TTFB, "total", pending.Timing.Total)
		return resp, nil
	}

	stage := pending.Stage()
	if ctx.Err() != nil {
		return nil, abandoned(ctx, logger, stage)
	}
	logger.WarnContext(ctx, "exchange failed", "stage", stage.String(), "error", err)
	// a read deadline on the connection itself expired
	if stderrors.Is(err, rawhttp.ErrTimeout) {
		cause := ErrNoResponse
		if stage == rawhttp.StageReadingBody {
			cause = ErrIncompleteBody
		}
		return nil, errors.NewTimeoutError(stage.String(), fmt.Errorf("%w: %w", cause, err))
	}
	return nil, errors.NewTransportError(stage.String(), err)
}

func (b *Bridge) acquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight {
		return false
	}
	b.inFlight = true
	return true
}

func (b *Bridge) release() {
	b.mu.Lock()
	b.inFlight = false
	b.mu.Unlock()
}
