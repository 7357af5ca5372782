package mux

import "errors"

// ErrUnknownHandle is returned by Send/Close when the handle no longer
// names a live Connection: either it was never issued, or the Connection
// it named has since died (spec.md §7: "UnknownHandle: send/close against
// a stale handle — returned to caller, no side effect").
var ErrUnknownHandle = errors.New("mux: unknown handle")
