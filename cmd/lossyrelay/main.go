// Command lossyrelay is a real, out-of-process lossy UDP relay for manual
// testing: it binds two local addresses, learns one peer's address from
// each, and forwards every datagram arriving on one side out through the
// other side's socket to the other side's learned peer, dropping each
// forwarded datagram independently with -drop probability. Point two
// cmd/echo instances at a lossyrelay's two addresses instead of at each
// other to exercise reliudp's retransmission path over an actually lossy
// link.
package main

import (
	"flag"
	"math/rand"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	laddrA := flag.String("a", ":9100", "address side A binds and sends from")
	laddrB := flag.String("b", ":9200", "address side B binds and sends from")
	drop := flag.Float64("drop", 0.1, "probability of dropping each relayed datagram")
	seed := flag.Int64("seed", time.Now().UnixNano(), "rng seed")
	logLevel := flag.String("log-level", "info", "log level: debug/info/warn/error")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	switch *logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		log.Fatal().Str("level", *logLevel).Msg("invalid log level")
	}

	connA, err := net.ListenPacket("udp", *laddrA)
	if err != nil {
		log.Fatal().Err(err).Str("addr", *laddrA).Msg("failed to bind side A")
	}
	defer connA.Close()

	connB, err := net.ListenPacket("udp", *laddrB)
	if err != nil {
		log.Fatal().Err(err).Str("addr", *laddrB).Msg("failed to bind side B")
	}
	defer connB.Close()

	log.Info().Str("a", connA.LocalAddr().String()).Str("b", connB.LocalAddr().String()).
		Float64("drop", *drop).Msg("relaying")

	r := &relay{}
	go r.pump(connA, connB, &r.peerA, *drop, rand.New(rand.NewSource(*seed)), "a->b")
	r.pump(connB, connA, &r.peerB, *drop, rand.New(rand.NewSource(*seed+1)), "b->a")
}

// relay holds the two peer addresses each side's traffic has been observed
// coming from, so one direction's forwarding destination is the other
// direction's learned source.
type relay struct {
	peerA atomic.Value // net.Addr, learned from traffic arriving on connA
	peerB atomic.Value // net.Addr, learned from traffic arriving on connB
}

// pump reads datagrams from src, records the sender into learnedFrom
// (shared with the opposite-direction pump so it knows where to forward
// to), and forwards each one read here onto dst addressed at whatever the
// opposite direction has learned so far, dropping with probability drop.
func (r *relay) pump(src, dst net.PacketConn, learnedFrom *atomic.Value, drop float64, rng *rand.Rand, label string) {
	buf := make([]byte, 65535)

	for {
		n, from, err := src.ReadFrom(buf)
		if err != nil {
			log.Error().Err(err).Str("direction", label).Msg("read failed")
			return
		}
		if prev := learnedFrom.Load(); prev == nil || prev.(net.Addr).String() != from.String() {
			learnedFrom.Store(from)
			log.Info().Str("direction", label).Str("peer", from.String()).Msg("learned peer address")
		}

		other := r.otherPeer(learnedFrom)
		if other == nil {
			log.Debug().Str("direction", label).Msg("other side's peer not yet known, dropping")
			continue
		}

		if rng.Float64() < drop {
			log.Debug().Str("direction", label).Int("bytes", n).Msg("dropped")
			continue
		}

		if _, err := dst.WriteTo(buf[:n], other); err != nil {
			log.Warn().Err(err).Str("direction", label).Msg("forward failed")
		}
	}
}

// otherPeer returns the learned peer address on the opposite side from
// learnedFrom (peerB's opposite is peerA and vice versa).
func (r *relay) otherPeer(learnedFrom *atomic.Value) net.Addr {
	var v any
	if learnedFrom == &r.peerA {
		v = r.peerB.Load()
	} else {
		v = r.peerA.Load()
	}
	if v == nil {
		return nil
	}
	return v.(net.Addr)
}
