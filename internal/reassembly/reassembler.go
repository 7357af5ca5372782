// Package reassembly implements spec.md §4.3: collecting fragments keyed
// by fragmentation id, delivering completed messages exactly once, and
// suppressing duplicates of recently-completed reliable messages.
//
// Grounded on the teacher's internal/protocol.Reassembler and the
// near-identical internal/server.Reassembler (both copies of the same
// pending/completed two-map idea), generalized to validate total-length
// and reliability consistency across retransmitted fragments (the teacher
// trusts its own fragmenter completely and never needed this), to make
// overlapping writes idempotent-or-ProtocolViolation instead of last-write-
// wins, and to make completed-entry expiry driven by Sweep(now) rather
// than a time.Since check buried in the ingest path — per spec.md §9's
// design note that completed_recent expiry must fall out of the same
// poll()-driven pass as every other timer in the engine.
package reassembly

import (
	"time"

	"github.com/rs/zerolog/log"

	"reliudp/internal/wire"
)

// ErrProtocolViolation reports a fragment whose declared total_length or
// reliability flag disagrees with the rest of the message it claims to be
// part of, or an overlapping write whose bytes disagree with what was
// already buffered.
type ErrProtocolViolation struct {
	Reason string
}

func (e *ErrProtocolViolation) Error() string { return "reassembly: protocol violation: " + e.Reason }

type partial struct {
	totalLength uint32
	reliable    bool
	received    []bool // one entry per byte, true once written
	buffer      []byte
	firstSeen   time.Time
}

func (p *partial) complete() bool {
	for _, got := range p.received {
		if !got {
			return false
		}
	}
	return true
}

// Reassembler holds one connection's inbound reassembly state: partial
// messages in flight, plus a set of recently-completed reliable
// fragmentation ids retained long enough to answer (and discard) duplicate
// retransmitted fragments.
type Reassembler struct {
	pending   map[uint32]*partial
	completed map[uint32]time.Time // frag id -> expiry

	partialTimeout  time.Duration
	maxPending      int
	maxMessageLength uint32
}

// Config bounds the Reassembler's resource usage.
type Config struct {
	// PartialTimeout is how long an unreliable partial message may sit
	// incomplete before being silently dropped (spec.md §4.3: "Reliable
	// partials are never timed out purely by age").
	PartialTimeout time.Duration
	// MaxPending caps the number of distinct in-flight fragmentation ids
	// tracked at once, guarding against a flood of bogus fragment headers.
	MaxPending int
	// MaxMessageLength rejects any fragment declaring a total_length above
	// this bound before allocating its reassembly buffer (spec.md §6's
	// max_message_length), so a peer can't force a multi-gigabyte
	// allocation with one forged fragment header.
	MaxMessageLength uint32
}

// DefaultConfig returns sane defaults: a few seconds of partial timeout, a
// generous pending cap, and a 16MiB message ceiling.
func DefaultConfig() Config {
	return Config{PartialTimeout: 5 * time.Second, MaxPending: 1024, MaxMessageLength: 16 << 20}
}

// New returns an empty Reassembler.
func New(cfg Config) *Reassembler {
	if cfg.PartialTimeout <= 0 {
		cfg.PartialTimeout = 5 * time.Second
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = 1024
	}
	if cfg.MaxMessageLength == 0 {
		cfg.MaxMessageLength = 16 << 20
	}
	return &Reassembler{
		pending:          make(map[uint32]*partial),
		completed:        make(map[uint32]time.Time),
		partialTimeout:   cfg.PartialTimeout,
		maxPending:       cfg.MaxPending,
		maxMessageLength: cfg.MaxMessageLength,
	}
}

// Result is what Ingest reports about one fragment.
type Result struct {
	// Message is non-nil exactly when this fragment completed its message.
	Message []byte
	// Reliable is true when the completing (or duplicate) fragment's
	// reliability flag was set — callers use this to decide whether to
	// queue an Ack regardless of completion.
	Reliable bool
	// Duplicate is true when the fragment belonged to an already-completed
	// reliable message; Message is always nil in that case, but the caller
	// must still emit an Ack for the covered range (spec.md §4.3 step 1).
	Duplicate bool
}

// Ingest processes one inbound fragment. now is the clock sample taken at
// poll() entry.
func (r *Reassembler) Ingest(now time.Time, f *wire.MessageFragment) (Result, error) {
	if _, ok := r.completed[f.FragID]; ok {
		log.Debug().Uint32("frag_id", f.FragID).Uint32("offset", f.Offset).
			Uint32("length", f.FragmentLength).Msg("duplicate suppression hit")
		return Result{Reliable: f.Reliable, Duplicate: true}, nil
	}

	if f.TotalLength > r.maxMessageLength {
		return Result{}, &ErrProtocolViolation{Reason: "total_length exceeds max_message_length"}
	}

	p, exists := r.pending[f.FragID]
	if !exists {
		if len(r.pending) >= r.maxPending {
			return Result{}, &ErrProtocolViolation{Reason: "too many in-flight fragmentation ids"}
		}
		p = &partial{
			totalLength: f.TotalLength,
			reliable:    f.Reliable,
			received:    make([]bool, f.TotalLength),
			buffer:      make([]byte, f.TotalLength),
			firstSeen:   now,
		}
		r.pending[f.FragID] = p
	} else {
		if p.totalLength != f.TotalLength || p.reliable != f.Reliable {
			return Result{}, &ErrProtocolViolation{Reason: "mismatched total_length or reliability for frag id"}
		}
	}

	if f.Offset+f.FragmentLength > p.totalLength {
		return Result{}, &ErrProtocolViolation{Reason: "fragment out of declared bounds"}
	}

	for i := uint32(0); i < f.FragmentLength; i++ {
		idx := f.Offset + i
		if p.received[idx] {
			if p.buffer[idx] != f.Payload[i] {
				return Result{}, &ErrProtocolViolation{Reason: "overlapping fragment bytes disagree"}
			}
			continue
		}
		p.buffer[idx] = f.Payload[i]
		p.received[idx] = true
	}

	log.Debug().Uint32("frag_id", f.FragID).Uint32("offset", f.Offset).
		Uint32("length", f.FragmentLength).Msg("fragment ingested")

	if !p.complete() {
		return Result{Reliable: f.Reliable}, nil
	}

	delete(r.pending, f.FragID)
	message := p.buffer
	// Reliable completions are moved into the retained/duplicate-suppression
	// set by the caller via MarkRetain, once it knows the RTT-derived
	// expiry to use; unreliable completions need no further state.
	return Result{Message: message, Reliable: p.reliable}, nil
}

// MarkRetain records frag id as completed-and-reliable, retained to
// suppress duplicate retransmitted fragments until expiry. Callers compute
// expiry as now + K*RTO (K = the connection's CompletedRetainFactor) using
// the connection's current RTO, which the Reassembler itself has no
// knowledge of.
func (r *Reassembler) MarkRetain(fragID uint32, expiry time.Time) {
	r.completed[fragID] = expiry
}

// Sweep drops unreliable partials older than PartialTimeout and expired
// completed-id entries. Called once per poll() with the clock sample taken
// at entry, per spec.md §9.
func (r *Reassembler) Sweep(now time.Time) {
	for id, p := range r.pending {
		if !p.reliable && now.Sub(p.firstSeen) > r.partialTimeout {
			delete(r.pending, id)
		}
	}
	for id, expiry := range r.completed {
		if !now.Before(expiry) {
			delete(r.completed, id)
		}
	}
}

// PendingCount reports the number of in-flight fragmentation ids, for
// Stats surfaces.
func (r *Reassembler) PendingCount() int { return len(r.pending) }

// CompletedCount reports the number of retained completed-id entries.
func (r *Reassembler) CompletedCount() int { return len(r.completed) }
