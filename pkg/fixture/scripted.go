package fixture

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/WhileEndless/go-httpcontract/pkg/request"
	"github.com/WhileEndless/go-httpcontract/pkg/response"
)

// Responder answers one request by writing raw bytes to w. ctx is cancelled
// when the fixture shuts down, so a responder may block on it to simulate a
// server that never answers. Returning an error closes the connection.
type Responder func(ctx context.Context, req *request.Request, w io.Writer) error

// Reply returns a Responder that writes resp exactly as built, including any
// framing headers that disagree with its body
func Reply(resp *response.Response) Responder {
	raw := resp.Build()
	return func(_ context.Context, _ *request.Request, w io.Writer) error {
		_, err := w.Write(raw)
		return err
	}
}

// ReplyRaw returns a Responder that writes raw verbatim
func ReplyRaw(raw string) Responder {
	return func(_ context.Context, _ *request.Request, w io.Writer) error {
		_, err := io.WriteString(w, raw)
		return err
	}
}

// Stall returns a Responder that writes partial and then never finishes
func Stall(partial string) Responder {
	return func(ctx context.Context, _ *request.Request, w io.Writer) error {
		if _, err := io.WriteString(w, partial); err != nil {
			return err
		}
		<-ctx.Done()
		return ctx.Err()
	}
}

type scriptedServer struct {
	responder Responder
	exec      *Executor
	logger    *slog.Logger

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]context.CancelFunc
	closed bool
}

func newScriptedServer(responder Responder, exec *Executor, logger *slog.Logger) *scriptedServer {
	return &scriptedServer{
		responder: responder,
		exec:      exec,
		logger:    logger.With("server", "scripted"),
		conns:     make(map[net.Conn]context.CancelFunc),
	}
}

func (s *scriptedServer) serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return net.ErrClosed
	}
	s.ln = ln
	s.mu.Unlock()

	for {
		c, err := ln.Accept()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithCancel(s.exec.Context())

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			cancel()
			c.Close()
			return net.ErrClosed
		}
		s.conns[c] = cancel
		s.mu.Unlock()

		if !s.exec.Go(func(context.Context) { s.handle(ctx, c) }) {
			s.forget(c)
			c.Close()
			return net.ErrClosed
		}
	}
}

func (s *scriptedServer) handle(ctx context.Context, c net.Conn) {
	defer func() {
		s.forget(c)
		c.Close()
	}()

	br := bufio.NewReader(c)
	for {
		req, err := request.Read(br)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("read request", "error", err)
			}
			return
		}
		if err := s.responder(ctx, req, c); err != nil {
			s.logger.Debug("responder closed connection", "method", req.Method, "target", req.Target, "error", err)
			return
		}
	}
}

func (s *scriptedServer) forget(c net.Conn) {
	s.mu.Lock()
	if cancel, ok := s.conns[c]; ok {
		cancel()
		delete(s.conns, c)
	}
	s.mu.Unlock()
}

func (s *scriptedServer) shutdown(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	var err error
	if s.ln != nil {
		if cerr := s.ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	}
	for c, cancel := range s.conns {
		cancel()
		c.Close()
	}
	clear(s.conns)
	return err
}
