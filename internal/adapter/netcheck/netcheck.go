// Package netcheck classifies transport failures so adapters can report
// unreachable services separately from rejected requests.
package netcheck

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// Unreachable reports whether err means the remote service could not be
// reached or did not answer in time, as opposed to answering with an error.
func Unreachable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
