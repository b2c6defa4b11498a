package enforcer

import (
	"errors"
	"fmt"
)

// ErrStoreWrite wraps a failed ban insert. Live kick/ban commands are still sent.
var ErrStoreWrite = errors.New("ban store write failed")

// ServerError is a failure confined to one server in one tick
// (connect, auth or status command). It never aborts the tick.
type ServerError struct {
	ServerID int64
	Addr     string
	Err      error
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server %d (%s): %v", e.ServerID, e.Addr, e.Err)
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
