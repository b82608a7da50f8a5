package probe

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/proxy"
)

var ErrNoContextDialer = errors.New("socks5 dialer does not support contexts")

// Transport builds HTTP clients for probe requests.
type Transport interface {
	// Client returns a client whose requests leave through the local
	// listener on port, or directly when Proxied reports false.
	Client(port int, timeout time.Duration) (*http.Client, error)
	Proxied() bool
}

type socksTransport struct{}

func (socksTransport) Proxied() bool { return true }

func (socksTransport) Client(port int, timeout time.Duration) (*http.Client, error) {
	dialer, err := socksDialer(port)
	if err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			DisableKeepAlives:   true,
			TLSHandshakeTimeout: timeout,
		},
		Timeout: timeout,
	}, nil
}

func socksDialer(port int) (proxy.ContextDialer, error) {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))

	dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create socks5 dialer: %w", err)
	}

	contextDialer, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, ErrNoContextDialer
	}
	return contextDialer, nil
}

type directTransport struct{}

func (directTransport) Proxied() bool { return false }

func (directTransport) Client(_ int, timeout time.Duration) (*http.Client, error) {
	return &http.Client{
		Transport: &http.Transport{
			DisableKeepAlives: true,
		},
		Timeout: timeout,
	}, nil
}

// NewSOCKSTransport routes probes through the local SOCKS5 listener.
func NewSOCKSTransport() Transport { return socksTransport{} }

// NewDirectTransport bypasses the proxy entirely.
func NewDirectTransport() Transport { return directTransport{} }

// NewTransport checks once whether SOCKS5 dialing is available and falls
// back to the direct transport when it is not.
func NewTransport(logger *zap.Logger) Transport {
	if _, err := socksDialer(1080); err != nil {
		logger.Warn("socks5 dialing unavailable, probing directly", zap.Error(err))
		return NewDirectTransport()
	}
	return NewSOCKSTransport()
}
