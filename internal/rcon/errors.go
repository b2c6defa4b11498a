package rcon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/udisondev/banwarden/internal/protocol"
)

var (
	ErrConnectTimeout = errors.New("rcon: connect timeout")
	ErrConnectRefused = errors.New("rcon: connection refused")

	// ErrAuthFailed means the server rejected the password (response id -1).
	// Retrying with the same password is pointless.
	ErrAuthFailed = errors.New("rcon: authentication failed")

	// ErrResponseTimeout means nothing was received within the read window.
	ErrResponseTimeout = errors.New("rcon: response timeout")

	ErrConnectionClosed = errors.New("rcon: connection closed by server")
	ErrNotReady         = errors.New("rcon: connection is not authenticated")

	// ErrMalformedPacket is re-exported for callers that only import rcon.
	ErrMalformedPacket = protocol.ErrMalformedPacket
)

func classifyDialErr(addr string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %s: %w", ErrConnectTimeout, addr, err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("%w: %s: %w", ErrConnectRefused, addr, err)
	default:
		return fmt.Errorf("dialing %s: %w", addr, err)
	}
}

// classifyReadErr maps a read error into the package taxonomy.
// ctx is checked first: a cancelled context forces the deadline and would
// otherwise look like a timeout.
func classifyReadErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if isTimeout(err) {
		return ErrResponseTimeout
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}
	return err
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
