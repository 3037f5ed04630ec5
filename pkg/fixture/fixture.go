// Package fixture runs one HTTP scenario against an in-process server: it
// starts the server on a loopback port, opens a single client connection,
// performs exchanges through an exchange.Bridge and tears everything down
// when the test ends.
//
// A Fixture is used from the test goroutine; it does not synchronize
// concurrent exchanges beyond rejecting them as busy.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"golang.org/x/net/netutil"

	"github.com/WhileEndless/go-httpcontract/pkg/contract"
	"github.com/WhileEndless/go-httpcontract/pkg/exchange"
	"github.com/WhileEndless/go-httpcontract/pkg/rawhttp"
	"github.com/WhileEndless/go-httpcontract/pkg/request"
	"github.com/WhileEndless/go-httpcontract/pkg/response"
)

// server is the scenario's serving side
type server interface {
	// serve blocks until the listener is closed
	serve(ln net.Listener) error
	shutdown(ctx context.Context) error
}

// Fixture is one scenario: a server, one client connection and the bridge
// that drives exchanges over it
type Fixture struct {
	t      testing.TB
	cfg    config
	logger *slog.Logger

	serverExec *Executor
	clientExec *Executor

	srv     server
	addr    string
	port    int
	conn    *rawhttp.Conn
	bridge  *exchange.Bridge
	builder *request.Builder

	closeOnce sync.Once
	closeErr  error
}

// New starts handler on a loopback port and connects to it. The fixture is
// closed automatically when t finishes.
func New(t testing.TB, handler http.Handler, opts ...Option) *Fixture {
	t.Helper()

	f := newFixture(t, opts)
	hs := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: f.cfg.shutdownGrace,
		ErrorLog:          slog.NewLogLogger(f.logger.Handler(), slog.LevelWarn),
		BaseContext: func(net.Listener) context.Context {
			return f.serverExec.Context()
		},
	}
	f.start(&httpServer{hs})
	return f
}

// NewScripted starts a raw server that answers every request with responder.
// Unlike New, the responder controls the exact bytes on the wire, so it can
// produce framing a conforming server never would.
func NewScripted(t testing.TB, responder Responder, opts ...Option) *Fixture {
	t.Helper()

	f := newFixture(t, opts)
	f.start(newScriptedServer(responder, f.serverExec, f.logger))
	return f
}

func newFixture(t testing.TB, opts []Option) *Fixture {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.logger.With("scenario", t.Name())
	return &Fixture{
		t:          t,
		cfg:        cfg,
		logger:     logger,
		serverExec: NewExecutor("server", logger),
		clientExec: NewExecutor("client", logger),
	}
}

func (f *Fixture) start(srv server) {
	f.t.Helper()
	f.t.Cleanup(func() { f.Close() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		f.t.Fatalf("fixture: listen: %v", err)
	}
	f.srv = srv
	f.addr = ln.Addr().String()
	f.port = ln.Addr().(*net.TCPAddr).Port

	limited := netutil.LimitListener(ln, f.cfg.maxConns)
	f.serverExec.Go(func(context.Context) {
		if err := srv.serve(limited); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
			f.logger.Error("server stopped", "error", err)
		}
	})

	if err := f.connect(); err != nil {
		f.t.Fatalf("fixture: %v", err)
	}
	f.builder = request.NewBuilder(f.Host())
	f.logger.Debug("fixture started", "addr", f.addr)
}

func (f *Fixture) connect() error {
	conn, err := rawhttp.Dial(f.clientExec.Context(), f.addr, f.cfg.client)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", f.addr, err)
	}
	f.conn = conn
	f.bridge = exchange.New(conn,
		exchange.WithTimeout(f.cfg.timeout),
		exchange.WithTracer(f.cfg.tracer),
		exchange.WithLogger(f.logger),
	)
	return nil
}

// Reconnect replaces the client connection, for instance after a timed out
// exchange left it unusable
func (f *Fixture) Reconnect() error {
	if f.conn != nil {
		f.conn.Close()
	}
	return f.connect()
}

// Addr returns the address the server listens on
func (f *Fixture) Addr() string {
	return f.addr
}

// Port returns the server's port
func (f *Fixture) Port() int {
	return f.port
}

// Host returns the Host header value requests are built with
func (f *Fixture) Host() string {
	return "localhost:" + strconv.Itoa(f.port)
}

// Builder returns the request builder bound to this fixture's Host
func (f *Fixture) Builder() *request.Builder {
	return f.builder
}

// Conn returns the current client connection
func (f *Fixture) Conn() *rawhttp.Conn {
	return f.conn
}

// Bridge returns the exchange bridge of the current connection
func (f *Fixture) Bridge() *exchange.Bridge {
	return f.bridge
}

// ServerExecutor returns the executor running the server side
func (f *Fixture) ServerExecutor() *Executor {
	return f.serverExec
}

// ClientExecutor returns the executor that bounds client exchanges
func (f *Fixture) ClientExecutor() *Executor {
	return f.clientExec
}

func (f *Fixture) Options(path string) *request.Request { return f.builder.Options(path) }

func (f *Fixture) Head(path string) *request.Request { return f.builder.Head(path) }

func (f *Fixture) Get(path string) *request.Request { return f.builder.Get(path) }

func (f *Fixture) Delete(path string) *request.Request { return f.builder.Delete(path) }

func (f *Fixture) Post(path, payload, contentType string) *request.Request {
	return f.builder.Post(path, payload, contentType)
}

func (f *Fixture) Put(path, payload, contentType string) *request.Request {
	return f.builder.Put(path, payload, contentType)
}

func (f *Fixture) Patch(path, payload, contentType string) *request.Request {
	return f.builder.Patch(path, payload, contentType)
}

// Send performs one exchange with the default timeout and validates the
// response against exp
func (f *Fixture) Send(req *request.Request, exp contract.Expectation) (*response.Response, error) {
	return f.SendWithin(req, exp, 0)
}

// SendWithin is Send with an explicit timeout
func (f *Fixture) SendWithin(req *request.Request, exp contract.Expectation, timeout time.Duration) (*response.Response, error) {
	return f.bridge.Do(f.clientExec.Context(), req, exp, timeout)
}

// SendAndAssert sends req and fails the test unless the response has the
// given status, content type and body, with Content-Length equal to the
// body's byte length
func (f *Fixture) SendAndAssert(req *request.Request, status int, contentType, body string) *response.Response {
	f.t.Helper()
	return f.SendAndAssertExpectation(req, contract.Expect(status, contentType, body))
}

// SendAndAssertNoContent sends req and fails the test unless the response
// has the given status, no Content-Type and an empty body
func (f *Fixture) SendAndAssertNoContent(req *request.Request, status int) *response.Response {
	f.t.Helper()
	return f.SendAndAssertExpectation(req, contract.ExpectNoContent(status))
}

// SendAndAssertExpectation sends req and fails the test unless the response
// satisfies exp
func (f *Fixture) SendAndAssertExpectation(req *request.Request, exp contract.Expectation) *response.Response {
	f.t.Helper()
	resp, err := f.Send(req, exp)
	if err != nil {
		f.t.Fatalf("%s %s: %v", req.Method, req.Target, err)
	}
	return resp
}

// Close tears the scenario down: the client connection and executor first,
// then the server and its executor. Every step runs even if an earlier one
// fails; failures are logged and reported on the test without hiding an
// earlier failure. Close is called automatically at the end of the test and
// is safe to call more than once.
func (f *Fixture) Close() error {
	f.closeOnce.Do(func() {
		f.closeErr = f.teardown()
	})
	return f.closeErr
}

func (f *Fixture) teardown() error {
	var errs []error
	grace := f.cfg.shutdownGrace

	if f.conn != nil {
		if err := f.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, fmt.Errorf("close client connection: %w", err))
		}
	}
	if err := f.clientExec.Close(grace); err != nil {
		errs = append(errs, err)
	}

	if f.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), grace)
		err := f.srv.shutdown(ctx)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("shut down server: %w", err))
		}
	}
	if err := f.serverExec.Close(grace); err != nil {
		errs = append(errs, err)
	}

	err := errors.Join(errs...)
	if err == nil {
		f.logger.Debug("fixture closed")
		return nil
	}

	f.logger.Error("fixture teardown incomplete", "error", err)
	if f.t.Failed() {
		f.t.Logf("fixture teardown: %v", err)
	} else {
		f.t.Errorf("fixture teardown: %v", err)
	}
	return err
}

type httpServer struct {
	*http.Server
}

func (s *httpServer) serve(ln net.Listener) error {
	return s.Serve(ln)
}

func (s *httpServer) shutdown(ctx context.Context) error {
	err := s.Shutdown(ctx)
	if err != nil {
		// connections that did not go idle in time
		s.Server.Close()
	}
	return err
}
