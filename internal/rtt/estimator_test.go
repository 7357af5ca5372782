package rtt

import (
	"testing"
	"time"
)

func TestRTOBeforeAnySampleIsInitial(t *testing.T) {
	e := New(DefaultConfig())
	if got := e.RTO(); got != 200*time.Millisecond {
		t.Fatalf("RTO = %v, want 200ms", got)
	}
}

func TestOnSampleInitializesSmoothedAndVariance(t *testing.T) {
	e := New(DefaultConfig())
	e.OnSample(100 * time.Millisecond)
	if e.Smoothed() != 100*time.Millisecond {
		t.Fatalf("smoothed = %v, want 100ms", e.Smoothed())
	}
	if e.Variance() != 50*time.Millisecond {
		t.Fatalf("variance = %v, want 50ms", e.Variance())
	}
}

func TestRTOClampedToBounds(t *testing.T) {
	cfg := Config{MinRTO: 50 * time.Millisecond, MaxRTO: 300 * time.Millisecond, InitialRTO: 200 * time.Millisecond}
	e := New(cfg)

	// Drive smoothed+4*var far above MaxRTO.
	e.OnSample(2 * time.Second)
	if got := e.RTO(); got != cfg.MaxRTO {
		t.Fatalf("RTO = %v, want clamped to %v", got, cfg.MaxRTO)
	}
}

func TestRTOTracksStableLatency(t *testing.T) {
	e := New(DefaultConfig())
	for i := 0; i < 50; i++ {
		e.OnSample(40 * time.Millisecond)
	}
	// After warm-up against a constant-latency link, variance should
	// shrink and smoothed should converge near the injected latency.
	if e.Smoothed() < 35*time.Millisecond || e.Smoothed() > 45*time.Millisecond {
		t.Fatalf("smoothed = %v, expected convergence near 40ms", e.Smoothed())
	}
	if e.Variance() > 5*time.Millisecond {
		t.Fatalf("variance = %v, expected to shrink on stable link", e.Variance())
	}
}

func TestRTONeverBelowMinRTO(t *testing.T) {
	cfg := Config{MinRTO: 50 * time.Millisecond, MaxRTO: time.Second, InitialRTO: 200 * time.Millisecond}
	e := New(cfg)
	for i := 0; i < 50; i++ {
		e.OnSample(time.Millisecond)
	}
	if got := e.RTO(); got < cfg.MinRTO {
		t.Fatalf("RTO = %v, below MinRTO %v", got, cfg.MinRTO)
	}
}
