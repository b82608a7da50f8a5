package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"xray-ip-diag/internal/domain"
)

const messageExcerpt = 100

// classify maps a request error to a failure category. The returned type
// name is only set for unclassified errors.
func classify(err error) (kind domain.FailureKind, typeName string) {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.FailureTimeout, ""
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.FailureConnection, ""
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		// golang.org/x/net/proxy reports handshake and reply failures with
		// a "socks <command>" operation.
		if strings.HasPrefix(opErr.Op, "socks") {
			return domain.FailureProxyRejected, ""
		}
		return domain.FailureConnection, ""
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.FailureConnection, ""
	}

	return domain.FailureUnclassified, fmt.Sprintf("%T", rootCause(err))
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// excerpt returns at most n characters of s.
func excerpt(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
