// Package testtransport provides a scripted, seedable lossy/reordering
// mux.DatagramIO double for the end-to-end scenarios in spec.md §8 ("A
// opens to B... Simulated transport drops the 2nd and 4th fragments on
// first transmission", "transport drops 30% uniformly"), so those
// scenarios can be expressed as deterministic unit tests instead of flaky
// real-socket tests.
//
// Grounded on internal/mux's own in-test fakeIO double (the same
// in-memory two-endpoint loopback shape), extended with an explicit drop
// script and an optional seeded-random reordering knob.
package testtransport

import (
	"math/rand"
	"net"

	"reliudp/internal/mux"
)

var _ mux.DatagramIO = (*IO)(nil)

type datagram struct {
	data []byte
	addr net.Addr
}

// IO is one endpoint of a scripted link between two peers. Construct a
// connected pair with NewPair.
type IO struct {
	self net.Addr
	peer *IO
	inbox []datagram

	sent int
	// DropIndices names 1-based send indices (this endpoint's own send
	// count) to drop unconditionally — for scenarios like "drops the 2nd
	// and 4th fragments on first transmission".
	DropIndices map[int]bool
	// DropFraction drops each sent datagram independently with this
	// probability, using Rand — for scenarios like "drops 30% uniformly".
	DropFraction float64
	// Reorder delivers pending datagrams out of FIFO order when true.
	Reorder bool
	Rand    *rand.Rand
}

// NewPair returns two linked IO endpoints addressed as a and b, each
// delivering into the other's inbox.
func NewPair(a, b net.Addr, seed int64) (*IO, *IO) {
	ioA := &IO{self: a, Rand: rand.New(rand.NewSource(seed))}
	ioB := &IO{self: b, Rand: rand.New(rand.NewSource(seed + 1))}
	ioA.peer = ioB
	ioB.peer = ioA
	return ioA, ioB
}

// SendTo applies this endpoint's drop script, then — if the datagram
// survives — appends it to the peer's inbox.
func (io *IO) SendTo(b []byte, addr net.Addr) error {
	io.sent++
	if io.DropIndices[io.sent] {
		return nil
	}
	if io.DropFraction > 0 && io.Rand.Float64() < io.DropFraction {
		return nil
	}
	cp := append([]byte(nil), b...)
	io.peer.inbox = append(io.peer.inbox, datagram{data: cp, addr: io.self})
	return nil
}

// PollRecv returns the next pending datagram, in FIFO order unless Reorder
// is set, in which case a uniformly random pending entry is returned
// instead.
func (io *IO) PollRecv() ([]byte, net.Addr, bool) {
	if len(io.inbox) == 0 {
		return nil, nil, false
	}
	idx := 0
	if io.Reorder && len(io.inbox) > 1 {
		idx = io.Rand.Intn(len(io.inbox))
	}
	d := io.inbox[idx]
	io.inbox = append(io.inbox[:idx], io.inbox[idx+1:]...)
	return d.data, d.addr, true
}

// SentCount reports how many datagrams SendTo has been asked to send,
// including ones the drop script discarded.
func (io *IO) SentCount() int { return io.sent }

// PendingCount reports how many datagrams are queued for PollRecv.
func (io *IO) PendingCount() int { return len(io.inbox) }
