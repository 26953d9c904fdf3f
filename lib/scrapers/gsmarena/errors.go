package gsmarena

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

var (
	// ErrUnreachable means the catalog could not be reached at all (dns,
	// refused connections, ...). a run cannot continue without the catalog.
	ErrUnreachable = errors.New("catalog unreachable")
	// ErrUnexpected is any other transport failure (timeouts, broken
	// responses). it also ends a run.
	ErrUnexpected = errors.New("unexpected catalog error")
	// ErrMissingStructure is returned by Markup when a page lacks the
	// elements it identifies devices by.
	ErrMissingStructure = errors.New("page structure not recognized")
)

// IsNonRecoverable reports whether err should halt a run.
func IsNonRecoverable(err error) bool {
	return errors.Is(err, ErrUnreachable) || errors.Is(err, ErrUnexpected)
}

func isConnectivity(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH)
}

// classify wraps a transport error into one of the non-recoverable kinds,
// cancellation of ctx is passed through untouched.
func classify(ctx context.Context, link string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if isConnectivity(err) {
		return fmt.Errorf("%w: GET %s: %w", ErrUnreachable, link, err)
	}
	return fmt.Errorf("%w: GET %s: %w", ErrUnexpected, link, err)
}
