package rtt

import (
	"time"

	"reliudp/internal/wire"
)

// Heartbeats tracks when the next heartbeat is due and converts between
// wall-clock time and the connection-local microsecond timestamps carried
// on the wire (spec.md §3: "a sender-local timestamp (monotonic, chosen
// units, e.g. microseconds since connection open)").
type Heartbeats struct {
	openedAt time.Time
	interval time.Duration
	lastSent time.Time
	everSent bool
}

// NewHeartbeats returns a Heartbeats tracker for a connection that opened
// at openedAt, emitting at most once per interval.
func NewHeartbeats(openedAt time.Time, interval time.Duration) *Heartbeats {
	return &Heartbeats{openedAt: openedAt, interval: interval}
}

// Stamp converts now into the connection-local microsecond timestamp used
// on the wire.
func (h *Heartbeats) Stamp(now time.Time) uint64 {
	d := now.Sub(h.openedAt)
	if d < 0 {
		return 0
	}
	return uint64(d.Microseconds())
}

// Unstamp converts a wire timestamp back into a time.Time relative to this
// connection's open time — used to compute an RTT sample from an echoed
// HeartbeatResponse, without assuming both peers share a clock (both sides
// only ever compare their own stamps against their own openedAt).
func (h *Heartbeats) Unstamp(stamp uint64) time.Time {
	return h.openedAt.Add(time.Duration(stamp) * time.Microsecond)
}

// MaybeEmit returns a Heartbeat blob if the configured interval has
// elapsed since the last one was sent (or none has been sent yet), and
// records now as the last-sent time. sentOtherTraffic lets the caller
// suppress the heartbeat when some other outbound blob already carried
// heartbeat-equivalent freshness this interval (spec.md §4.5: "if no other
// outbound packet carried a heartbeat-equivalent in the interval").
func (h *Heartbeats) MaybeEmit(now time.Time, sentOtherTraffic bool) *wire.Heartbeat {
	if sentOtherTraffic {
		h.lastSent = now
		h.everSent = true
		return nil
	}
	if h.everSent && now.Sub(h.lastSent) < h.interval {
		return nil
	}
	h.lastSent = now
	h.everSent = true
	return &wire.Heartbeat{Timestamp: h.Stamp(now)}
}

// RespondTo builds the HeartbeatResponse that echoes hb's timestamp
// verbatim (spec.md §4.5).
func RespondTo(hb *wire.Heartbeat) *wire.HeartbeatResponse {
	return &wire.HeartbeatResponse{Timestamp: hb.Timestamp}
}

// Sample computes the RTT sample implied by receiving a HeartbeatResponse
// at now.
func (h *Heartbeats) Sample(now time.Time, resp *wire.HeartbeatResponse) time.Duration {
	sentAt := h.Unstamp(resp.Timestamp)
	return now.Sub(sentAt)
}
