package rawhttp

import (
	"crypto/tls"
	"crypto/x509"
	"time"
)

// Options represents configuration options for a client connection
type Options struct {
	// Timeout options
	ConnTimeout  time.Duration // Connection timeout (default: 30s)
	WriteTimeout time.Duration // Write timeout per request (default: 30s)
	ReadTimeout  time.Duration // Read timeout per response (default: none, the caller's context bounds the wait)

	// TLS options
	TLS                bool     // Wrap the connection in TLS
	ServerName         string   // SNI / verification name (default: host part of the address)
	InsecureSkipVerify bool     // Skip TLS certificate verification
	CustomCACerts      [][]byte // Custom CA certificates in PEM format

	// Body options
	BodyMemLimit   int64 // Maximum body size to keep in memory (default: 4MB)
	MaxHeaderBytes int   // Maximum header section size (default: 1MB)
}

// SetDefaults sets default values for unspecified options
func (o *Options) SetDefaults() {
	if o.ConnTimeout == 0 {
		o.ConnTimeout = 30 * time.Second
	}

	if o.WriteTimeout == 0 {
		o.WriteTimeout = 30 * time.Second
	}

	if o.BodyMemLimit == 0 {
		o.BodyMemLimit = 4 * 1024 * 1024 // 4MB
	}

	if o.MaxHeaderBytes == 0 {
		o.MaxHeaderBytes = 1 << 20
	}
}

// BuildTLSConfig builds a TLS configuration from options
func (o *Options) BuildTLSConfig(host string) *tls.Config {
	config := &tls.Config{
		InsecureSkipVerify: o.InsecureSkipVerify,
		ServerName:         host,
		NextProtos:         []string{"http/1.1"},
	}

	if o.ServerName != "" {
		config.ServerName = o.ServerName
	}

	if len(o.CustomCACerts) > 0 {
		certPool := x509.NewCertPool()
		for _, cert := range o.CustomCACerts {
			certPool.AppendCertsFromPEM(cert)
		}
		config.RootCAs = certPool
	}

	return config
}
