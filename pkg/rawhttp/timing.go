package rawhttp

import (
	"strings"
	"time"
)

// Timing represents timing information for the phases of an exchange
type Timing struct {
	TCPConnect   time.Duration // Time spent on TCP connection establishment (dial only)
	TLSHandshake time.Duration // Time spent on TLS handshake (0 for HTTP)
	Write        time.Duration // Time spent writing the request
	TTFB         time.Duration // From request written to response head received
	Total        time.Duration // Total time from submit to complete response
}

// String returns a human-readable representation of timing information
func (t *Timing) String() string {
	var b strings.Builder
	b.WriteString("Timing:\n")
	if t.TCPConnect > 0 {
		b.WriteString("  TCP Connect: " + t.TCPConnect.String() + "\n")
	}
	if t.TLSHandshake > 0 {
		b.WriteString("  TLS Handshake: " + t.TLSHandshake.String() + "\n")
	}
	if t.Write > 0 {
		b.WriteString("  Write: " + t.Write.String() + "\n")
	}
	if t.TTFB > 0 {
		b.WriteString("  Time to First Byte: " + t.TTFB.String() + "\n")
	}
	b.WriteString("  Total: " + t.Total.String())
	return b.String()
}
