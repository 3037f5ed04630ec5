package rawhttp

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/WhileEndless/go-httpcontract/pkg/request"
	"github.com/WhileEndless/go-httpcontract/pkg/response"
)

// Stage is the progress of an exchange on the wire
type Stage int32

const (
	StageWriting Stage = iota
	StageAwaitingHead
	StageReadingBody
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageWriting:
		return "writing request"
	case StageAwaitingHead:
		return "awaiting response head"
	case StageReadingBody:
		return "reading response body"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Conn is one persistent HTTP/1.1 client connection. Requests are answered
// asynchronously, one exchange at a time; Conn never pipelines.
type Conn struct {
	nc      net.Conn
	br      *bufio.Reader
	opts    Options
	connect Timing

	mu     sync.Mutex
	busy   bool
	closed bool
	broken error

	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// Dial opens a connection to addr (host:port)
func Dial(ctx context.Context, addr string, opts Options) (*Conn, error) {
	opts.SetDefaults()

	c := &Conn{opts: opts}

	tcpStart := time.Now()
	dialer := &net.Dialer{Timeout: opts.ConnTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, NewConnectionError(err)
	}
	c.connect.TCPConnect = time.Since(tcpStart)

	if opts.TLS {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			nc.Close()
			return nil, NewConnectionError(err)
		}

		tlsStart := time.Now()
		tlsConn := tls.Client(nc, opts.BuildTLSConfig(host))
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			nc.Close()
			return nil, NewTLSError(err)
		}
		c.connect.TLSHandshake = time.Since(tlsStart)
		nc = tlsConn
	}

	c.nc = nc
	c.br = bufio.NewReader(nc)
	return c, nil
}

// RemoteAddr returns the address of the peer
func (c *Conn) RemoteAddr() string {
	return c.nc.RemoteAddr().String()
}

// ConnectTiming returns how long dialing took
func (c *Conn) ConnectTiming() Timing {
	return c.connect
}

// Usable reports whether the connection can carry another exchange
func (c *Conn) Usable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.broken == nil
}

// Request submits req and returns immediately. The exchange runs on its own
// goroutine until the response is complete, it fails, or ctx is done; a
// cancelled exchange leaves the connection unusable.
func (c *Conn) Request(ctx context.Context, req *request.Request) *Pending {
	ctx, cancel := context.WithCancel(ctx)
	p := &Pending{done: make(chan struct{}), cancel: cancel, Timing: &Timing{}}

	c.mu.Lock()
	var refused error
	switch {
	case c.closed:
		refused = NewClosedError(nil)
	case c.broken != nil:
		refused = NewClosedError(c.broken)
	case c.busy:
		refused = NewBusyError()
	}
	if refused != nil {
		c.mu.Unlock()
		p.finish(nil, refused)
		cancel()
		return p
	}
	c.busy = true
	c.wg.Add(1)
	c.mu.Unlock()

	go c.roundTrip(ctx, req, p)
	return p
}

func (c *Conn) roundTrip(ctx context.Context, req *request.Request, p *Pending) {
	defer c.wg.Done()
	defer p.cancel()

	start := time.Now()
	stop := context.AfterFunc(ctx, func() {
		// unblock whichever read or write is pending
		c.nc.SetDeadline(time.Unix(1, 0))
	})

	resp, reusable, err := c.exchange(ctx, req, p)
	interrupted := !stop()
	if interrupted && err != nil {
		err = NewTimeoutError(context.Cause(ctx))
	}

	c.mu.Lock()
	c.busy = false
	switch {
	case interrupted:
		c.broken = NewTimeoutError(context.Cause(ctx))
	case err != nil:
		c.broken = err
	case !reusable:
		c.broken = NewClosedError(nil)
	}
	c.mu.Unlock()

	p.Timing.Total = time.Since(start)
	p.finish(resp, err)
}

func (c *Conn) exchange(ctx context.Context, req *request.Request, p *Pending) (*response.Response, bool, error) {
	readOpts := response.ReadOptions{
		RequestMethod:  string(req.Method),
		MaxBodySize:    c.opts.BodyMemLimit,
		MaxHeaderBytes: c.opts.MaxHeaderBytes,
	}

	p.setStage(StageWriting)
	writeStart := time.Now()
	if c.opts.WriteTimeout > 0 {
		c.setDeadline(ctx, c.nc.SetWriteDeadline, time.Now().Add(c.opts.WriteTimeout))
	}
	if _, err := c.nc.Write(req.Bytes()); err != nil {
		return nil, false, classify(err, c.opts.BodyMemLimit)
	}
	c.setDeadline(ctx, c.nc.SetWriteDeadline, time.Time{})
	p.Timing.Write = time.Since(writeStart)

	p.setStage(StageAwaitingHead)
	readStart := time.Now()
	if c.opts.ReadTimeout > 0 {
		c.setDeadline(ctx, c.nc.SetReadDeadline, time.Now().Add(c.opts.ReadTimeout))
		defer c.nc.SetReadDeadline(time.Time{})
	}

	var resp *response.Response
	for {
		var err error
		resp, err = response.ReadHead(c.br, readOpts)
		if err != nil {
			return nil, false, classify(err, c.opts.BodyMemLimit)
		}
		// interim responses precede the final one; 101 ends HTTP/1.1 framing
		if !resp.IsInformational() || resp.StatusCode == 101 {
			break
		}
	}
	p.Timing.TTFB = time.Since(readStart)

	p.setStage(StageReadingBody)
	reusable, err := resp.ReadBody(c.br, readOpts)
	if err != nil {
		return nil, false, classify(err, c.opts.BodyMemLimit)
	}
	p.setStage(StageDone)

	return resp, reusable && resp.StatusCode != 101, nil
}

// setDeadline applies t through set unless ctx is already done, in which case
// the past deadline forced on cancellation stays in place
func (c *Conn) setDeadline(ctx context.Context, set func(time.Time) error, t time.Time) {
	set(t)
	if ctx.Err() != nil {
		c.nc.SetDeadline(time.Unix(1, 0))
	}
}

// Close closes the connection and waits for an in-flight exchange to unwind.
// It is safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.closeErr = c.nc.Close()
	})
	c.wg.Wait()
	return c.closeErr
}

// Pending is an exchange in flight
type Pending struct {
	done   chan struct{}
	stage  atomic.Int32
	cancel context.CancelFunc

	resp *response.Response
	err  error

	// Timing is complete once Done is closed
	Timing *Timing
}

// Done is closed when the exchange has finished, successfully or not
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Stage reports how far the exchange got
func (p *Pending) Stage() Stage {
	return Stage(p.stage.Load())
}

// Result waits for the exchange and returns its outcome
func (p *Pending) Result() (*response.Response, error) {
	<-p.done
	return p.resp, p.err
}

// Cancel aborts the exchange. The response, if any, is discarded by the
// connection, which becomes unusable.
func (p *Pending) Cancel() {
	p.cancel()
}

func (p *Pending) setStage(s Stage) {
	p.stage.Store(int32(s))
}

func (p *Pending) finish(resp *response.Response, err error) {
	p.resp, p.err = resp, err
	close(p.done)
}
