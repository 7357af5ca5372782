// Command echo is a minimal two-peer demo of the reliudp engine: run one
// instance with -listen to accept a peer, and another with -dial pointing
// at it. Whatever you type on stdin is sent as a reliable message;
// messages received from the peer are printed.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reliudp"
	"reliudp/internal/clock"
	"reliudp/internal/udpio"
)

func main() {
	laddr := flag.String("listen", ":9000", "local UDP address to bind")
	dial := flag.String("dial", "", "remote address to open a connection to (host:port, host may be a hostname)")
	resolver := flag.String("resolver", "", "DNS server (host:port) used to resolve -dial's hostname; empty dials a literal host:port directly")
	protocolID := flag.Uint64("protocol-id", 1, "protocol id both peers must agree on")
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

	io, err := udpio.Listen(*laddr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to bind UDP socket")
	}
	defer io.Close()
	log.Info().Str("addr", io.LocalAddr().String()).Msg("listening")

	cfg := reliudp.DefaultConfig()
	cfg.ProtocolID = *protocolID
	sock := reliudp.NewSocket(cfg, clock.Real{}, io)

	var remote reliudp.Handle
	haveRemote := false
	if *dial != "" {
		if *resolver != "" {
			host, portStr, err := net.SplitHostPort(*dial)
			if err != nil {
				log.Fatal().Err(err).Str("dial", *dial).Msg("-dial must be host:port when -resolver is set")
			}
			port, err := strconv.Atoi(portStr)
			if err != nil {
				log.Fatal().Err(err).Str("dial", *dial).Msg("invalid port in -dial")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			remote, err = sock.OpenHost(ctx, *resolver, host, port)
			cancel()
			if err != nil {
				log.Fatal().Err(err).Str("host", host).Str("resolver", *resolver).Msg("failed to resolve peer hostname")
			}
			haveRemote = true
			log.Info().Str("host", host).Str("resolver", *resolver).Msg("opening connection")
		} else {
			addr, err := net.ResolveUDPAddr("udp", *dial)
			if err != nil {
				log.Fatal().Err(err).Str("dial", *dial).Msg("failed to resolve peer address")
			}
			remote = sock.Open(addr)
			haveRemote = true
			log.Info().Str("remote", addr.String()).Msg("opening connection")
		}
	}

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if !haveRemote {
				log.Warn().Msg("no connection open yet, dropping input")
				continue
			}
			if err := sock.Send(remote, []byte(line), true); err != nil {
				log.Error().Err(err).Msg("send failed")
			}

		case <-ticker.C:
			for _, e := range sock.Poll() {
				switch e.Kind {
				case reliudp.EventConnected:
					remote = e.Handle
					haveRemote = true
					log.Info().Msg("peer connected")
				case reliudp.EventMessage:
					fmt.Printf("> %s\n", e.Message)
				case reliudp.EventDisconnected:
					log.Info().Str("reason", e.Reason.String()).Msg("peer disconnected")
				}
			}
		}
	}
}
