package mux

// Handle identifies a Connection to a host without exposing a pointer into
// the Multiplexer's internals. Per spec.md §9's design note, it is an
// (address, generation) pair resolved through a map lookup each time,
// rather than a direct reference — so a Connection never needs a back
// pointer to its Multiplexer, and a handle from a prior incarnation at the
// same address is reliably recognized as stale once that incarnation dies
// and a new one takes its place.
type Handle struct {
	addr       string
	generation uint64
}

// Valid reports whether h was ever issued by a Multiplexer (the zero
// Handle is never valid).
func (h Handle) Valid() bool { return h.generation != 0 }
