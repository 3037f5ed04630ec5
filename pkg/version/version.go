// Package version provides version information for go-httpcontract
package version

// Version is the current version of the harness
const Version = "0.3.0"

// UserAgent is the default User-Agent sent by built requests
func UserAgent() string {
	return "go-httpcontract/" + Version
}
