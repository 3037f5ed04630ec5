package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/WhileEndless/go-httpcontract/pkg/contract"
	"github.com/WhileEndless/go-httpcontract/pkg/exchange"
	"github.com/WhileEndless/go-httpcontract/pkg/rawhttp"
	"github.com/WhileEndless/go-httpcontract/pkg/request"
	"github.com/WhileEndless/go-httpcontract/pkg/response"
)

type checkOptions struct {
	method      string
	data        string
	contentType string
	headers     []string

	status        int
	reason        string
	expectType    string
	expectBody    string
	expectPrefix  string
	expectJSON    string
	expectLength  int
	chunked       bool
	decode        bool
	strictFraming bool

	timeout  time.Duration
	insecure bool
}

func bindCheckFlags(fs *pflag.FlagSet, o *checkOptions) {
	fs.StringVarP(&o.method, "method", "X", "GET", "Request method")
	fs.StringVarP(&o.data, "data", "d", "", "Request payload, sent as UTF-8 with its byte length as Content-Length")
	fs.StringVar(&o.contentType, "content-type", "text/plain", "Content-Type of the payload")
	fs.StringArrayVarP(&o.headers, "header", "H", nil, "Extra request header as 'Name: value' (repeatable)")

	fs.IntVar(&o.status, "status", 200, "Expected status code")
	fs.StringVar(&o.reason, "reason", "", "Expected reason phrase (default: the standard phrase for --status)")
	fs.StringVar(&o.expectType, "expect-type", "", "Expected Content-Type; empty means the header must be absent")
	fs.StringVar(&o.expectBody, "expect-body", "", "Expected body, matched exactly")
	fs.StringVar(&o.expectPrefix, "expect-body-prefix", "", "Expected body prefix")
	fs.StringVar(&o.expectJSON, "expect-json", "", "Expected body as JSON, compared structurally")
	fs.IntVar(&o.expectLength, "expect-length", -1, "Expected Content-Length (default: the --expect-body length, else the received body length)")
	fs.BoolVar(&o.chunked, "chunked", false, "Expect chunked framing and no Content-Length")
	fs.BoolVar(&o.decode, "decode", false, "Match the body after removing its Content-Encoding")
	fs.BoolVar(&o.strictFraming, "strict-framing", false, "Reject Transfer-Encoding next to Content-Length")

	fs.DurationVar(&o.timeout, "timeout", exchange.DefaultTimeout, "Deadline for the complete response")
	fs.BoolVarP(&o.insecure, "insecure", "k", false, "Skip TLS certificate verification")
}

func newCheckCmd(newLogger func(io.Writer) *slog.Logger, verbose *bool) *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check <url>",
		Short: "Send one request and verify the response contract",
		Long: `Send one request to an http:// or https:// URL and verify the response
against the expectation given by flags. Exits 1 on a contract violation and
2 on any other failure.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := opts.expectation(cmd.Flags())
			if err != nil {
				return err
			}
			c := &checker{
				opts:    opts,
				exp:     exp,
				logger:  newLogger(cmd.ErrOrStderr()),
				out:     cmd.OutOrStdout(),
				verbose: *verbose,
			}
			return c.run(cmd.Context(), args[0])
		},
	}
	bindCheckFlags(cmd.Flags(), &opts)
	cmd.MarkFlagsMutuallyExclusive("expect-body", "expect-body-prefix", "expect-json")
	cmd.MarkFlagsMutuallyExclusive("expect-length", "chunked")

	return cmd
}

func (o checkOptions) expectation(fs *pflag.FlagSet) (contract.Expectation, error) {
	exp := contract.Expectation{
		Status:        o.status,
		Reason:        o.reason,
		ContentType:   o.expectType,
		Body:          contract.Any(),
		DecodeContent: o.decode,
		StrictFraming: o.strictFraming,
	}

	switch {
	case fs.Changed("expect-body"):
		exp.Body = contract.Equal(o.expectBody)
	case fs.Changed("expect-body-prefix"):
		exp.Body = contract.HasPrefix(o.expectPrefix)
	case fs.Changed("expect-json"):
		m, err := contract.ParseJSONEqual(o.expectJSON)
		if err != nil {
			return exp, fmt.Errorf("--expect-json: %w", err)
		}
		exp.Body = m
	}

	switch {
	case o.chunked:
		exp.Length = contract.NoLength
	case o.expectLength >= 0:
		exp.Length = contract.FixedLength(o.expectLength)
	case fs.Changed("expect-body") && !o.decode:
		exp.Length = contract.FixedLength(len(o.expectBody))
	default:
		exp.Length = contract.BodyLength
	}
	return exp, nil
}

// target splits a URL into the dial address, the Host header value and the
// request target
func target(raw string) (addr, host, path string, useTLS bool, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", "", false, err
	}

	port := u.Port()
	switch u.Scheme {
	case "http":
		if port == "" {
			port = "80"
		}
	case "https":
		useTLS = true
		if port == "" {
			port = "443"
		}
	default:
		return "", "", "", false, fmt.Errorf("unsupported scheme %q: want http or https", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", "", "", false, fmt.Errorf("missing host in %q", raw)
	}

	path = u.RequestURI()
	return net.JoinHostPort(u.Hostname(), port), u.Host, path, useTLS, nil
}

type checker struct {
	opts    checkOptions
	exp     contract.Expectation
	logger  *slog.Logger
	out     io.Writer
	verbose bool
}

func (c *checker) run(ctx context.Context, rawURL string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	addr, host, path, useTLS, err := target(rawURL)
	if err != nil {
		return err
	}

	req, err := c.request(host, path)
	if err != nil {
		return err
	}

	conn, err := rawhttp.Dial(ctx, addr, rawhttp.Options{
		TLS:                useTLS,
		InsecureSkipVerify: c.opts.insecure,
	})
	if err != nil {
		return err
	}
	defer conn.Close()
	c.logger.Debug("connected", "addr", conn.RemoteAddr(), "tcp", conn.ConnectTiming().TCPConnect)

	bridge := exchange.New(conn, exchange.WithLogger(c.logger), exchange.WithTimeout(c.opts.timeout))
	resp, err := bridge.Do(ctx, req, c.exp, c.opts.timeout)
	if resp != nil && c.verbose {
		c.dump(resp)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "PASS %s %s -> %s\n", req.Method, rawURL, resp.StatusLine())
	return nil
}

func (c *checker) request(host, path string) (*request.Request, error) {
	b := request.NewBuilder(host)
	method := request.Method(strings.ToUpper(c.opts.method))

	var req *request.Request
	if c.opts.data != "" {
		req = b.Payload(method, path, c.opts.data, c.opts.contentType)
	} else {
		req = b.NoPayload(method, path)
	}

	for _, h := range c.opts.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("invalid header %q: want 'Name: value'", h)
		}
		req.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return req, nil
}

func (c *checker) dump(resp *response.Response) {
	fmt.Fprintln(c.out, resp.StatusLine())
	for _, h := range resp.Headers.All() {
		fmt.Fprintf(c.out, "%s: %s\n", h.Name, h.Value)
	}
	fmt.Fprintln(c.out)
	if body, err := resp.Content(c.opts.decode); err == nil {
		fmt.Fprintln(c.out, string(body))
	}
}
