package client

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

const (
	// DialTimeout specifies default maximum connection initialization time.
	DialTimeout = 5 * time.Second
	// KeepAlive specifies default interval between keep-alive probes.
	KeepAlive = 15 * time.Second
	// TLSHandshakeTimeout specifies default timeout of TLS handshake.
	TLSHandshakeTimeout = 5 * time.Second
	// IdleConnTimeout specifies how long an idle connection is kept in the pool.
	IdleConnTimeout = 90 * time.Second
	// MaxConnectionsPerHost specifies default maximum number of open connections to a host.
	MaxConnectionsPerHost = 16
)

// DefaultTransport returns a transport with reasonable limits.
// There is no response header timeout, the request timeout is controlled by the request context.
func DefaultTransport() http.RoundTripper {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         Dialer().DialContext,
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: TLSHandshakeTimeout,
		IdleConnTimeout:     IdleConnTimeout,
		MaxConnsPerHost:     MaxConnectionsPerHost,
		MaxIdleConnsPerHost: MaxConnectionsPerHost,
	}
}

// HTTP2Transport forces HTTP2 protocol.
func HTTP2Transport() http.RoundTripper {
	dialer := Dialer()
	return &http2.Transport{
		DialTLS: func(network, addr string, cfg *tls.Config) (net.Conn, error) {
			return tls.DialWithDialer(dialer, network, addr, cfg)
		},
		ReadIdleTimeout: 5 * time.Second,
		PingTimeout:     5 * time.Second,
	}
}

// Dialer returns the default dialer.
func Dialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   DialTimeout,
		KeepAlive: KeepAlive,
	}
}
