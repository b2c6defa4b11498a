package testutil

import "errors"

// ErrSimulated is a sentinel error for testing failure paths (store down,
// server unreachable).
var ErrSimulated = errors.New("simulated error for testing")
