package conn

import "time"

// Config bundles every per-connection tunable enumerated in spec.md §6.
// The root package's Config carries the same fields; Socket translates its
// Config into one of these per Connection it creates.
type Config struct {
	ProtocolID            uint64
	MTU                   int
	HeartbeatInterval     time.Duration
	LivenessTimeout       time.Duration
	HandshakeInterval     time.Duration
	HandshakeTimeout      time.Duration
	MinRTO                time.Duration
	MaxRTO                time.Duration
	InitialRTO            time.Duration
	CompletedRetainFactor int
	MaxMessageLength      uint32
}

// DefaultConfig returns spec.md §6's suggested defaults.
func DefaultConfig() Config {
	return Config{
		MTU:                   1200,
		HeartbeatInterval:     100 * time.Millisecond,
		LivenessTimeout:       5 * time.Second,
		HandshakeInterval:     100 * time.Millisecond,
		HandshakeTimeout:      5 * time.Second,
		MinRTO:                50 * time.Millisecond,
		MaxRTO:                time.Second,
		InitialRTO:            200 * time.Millisecond,
		CompletedRetainFactor: 4,
		MaxMessageLength:      16 << 20,
	}
}
