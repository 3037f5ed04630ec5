package cmd

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/WhileEndless/go-httpcontract/pkg/version"
)

// NewRootCmd builds the httpcontract command tree
func NewRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		SilenceUsage:  true,
		SilenceErrors: true,
		Use:           "httpcontract [command]",
		Short:         "Check HTTP/1.1 responses against an exact contract",
		Long: `Send one request over a raw HTTP/1.1 connection and verify the response:
protocol version, status line, Content-Type, Content-Length or chunked
framing, and the body.`,
		Version: version.Version,
		Example: `  httpcontract check http://localhost:8080/echo --status 200 --expect-type text/plain --expect-body ok
  httpcontract check http://localhost:8080/echo -X POST -d hello --content-type text/plain --expect-body hello
  httpcontract check http://localhost:8080/stream --chunked --expect-body-prefix '{"items"'`,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show the response and debug logging")
	root.AddCommand(newCheckCmd(func(w io.Writer) *slog.Logger {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	}, &verbose))

	return root
}

// Execute runs the root command with the process arguments
func Execute() error {
	return NewRootCmd().Execute()
}
