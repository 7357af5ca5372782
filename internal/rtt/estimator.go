// Package rtt implements spec.md §4.5: heartbeat emission/echo and the
// EWMA RTT/variance estimator that feeds the reliability engine's RTO.
//
// Grounded on other_examples/2631ce96_LoganRossUS-OpenGSLB__pkg-agent-heartbeat.go.go's
// HeartbeatSender (ticker-driven send loop, Stats() surface) adapted from
// a goroutine-owned ticker into a poll()-driven MaybeEmit(now) call — the
// engine never owns its own timer, per spec.md §5.
package rtt

import "time"

// Estimator tracks smoothed RTT and variance per connection, per spec.md
// §4.5's standard exponentially-weighted estimator: alpha=1/8, beta=1/4.
type Estimator struct {
	smoothed    time.Duration
	variance    time.Duration
	initialized bool

	minRTO time.Duration
	maxRTO time.Duration
	initRTO time.Duration
}

const (
	alphaNum, alphaDen = 1, 8
	betaNum, betaDen    = 1, 4
)

// Config bounds the RTO the Estimator reports.
type Config struct {
	MinRTO     time.Duration
	MaxRTO     time.Duration
	InitialRTO time.Duration
}

// DefaultConfig returns spec.md §6's suggested bounds: 50ms floor, 1s cap,
// 200ms initial RTO before any sample.
func DefaultConfig() Config {
	return Config{MinRTO: 50 * time.Millisecond, MaxRTO: time.Second, InitialRTO: 200 * time.Millisecond}
}

// New returns an Estimator with no samples yet.
func New(cfg Config) *Estimator {
	if cfg.MinRTO <= 0 {
		cfg.MinRTO = 50 * time.Millisecond
	}
	if cfg.MaxRTO <= 0 {
		cfg.MaxRTO = time.Second
	}
	if cfg.InitialRTO <= 0 {
		cfg.InitialRTO = 200 * time.Millisecond
	}
	return &Estimator{minRTO: cfg.MinRTO, maxRTO: cfg.MaxRTO, initRTO: cfg.InitialRTO}
}

// OnSample updates the smoothed RTT and variance from one HeartbeatResponse
// round trip. First sample initializes smoothed=sample, variance=sample/2
// per spec.md §4.5.
func (e *Estimator) OnSample(sample time.Duration) {
	if sample < 0 {
		return
	}
	if !e.initialized {
		e.smoothed = sample
		e.variance = sample / 2
		e.initialized = true
		return
	}
	diff := e.smoothed - sample
	if diff < 0 {
		diff = -diff
	}
	e.variance = scale(e.variance, betaDen-betaNum, betaDen) + scale(diff, betaNum, betaDen)
	e.smoothed = scale(e.smoothed, alphaDen-alphaNum, alphaDen) + scale(sample, alphaNum, alphaDen)
}

// scale computes d*num/den without floating point, safe for
// time.Duration-sized values at these small numerators/denominators.
func scale(d time.Duration, num, den int64) time.Duration {
	return time.Duration(int64(d) * num / den)
}

// Smoothed returns the current smoothed RTT estimate (zero if no sample
// has arrived yet).
func (e *Estimator) Smoothed() time.Duration { return e.smoothed }

// Variance returns the current RTT variance estimate.
func (e *Estimator) Variance() time.Duration { return e.variance }

// RTO returns the current retransmission timeout: smoothed + 4*variance
// before any sample has arrived it is InitialRTO, clamped to [MinRTO,
// MaxRTO] (spec.md §4.4).
func (e *Estimator) RTO() time.Duration {
	if !e.initialized {
		return e.clamp(e.initRTO)
	}
	return e.clamp(e.smoothed + 4*e.variance)
}

func (e *Estimator) clamp(d time.Duration) time.Duration {
	if d < e.minRTO {
		return e.minRTO
	}
	if d > e.maxRTO {
		return e.maxRTO
	}
	return d
}
