package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hailam/tablutplay/internal/config"
	"github.com/hailam/tablutplay/internal/engine"
	"github.com/hailam/tablutplay/internal/protocol"
)

var (
	seed     = flag.Uint64("seed", 0, "tie-break seed; 0 seeds from the clock")
	logLevel = flag.String("log-level", "warn", "stderr log level")
	threads  = flag.Int("threads", 1, "search workers")
)

func main() {
	flag.Parse()

	level, err := config.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	// Replies go to stdout, so logs stay on stderr.
	log.Logger = config.NewLogger(os.Stderr, level, true)

	eng := engine.NewRandomEngine()
	if *seed != 0 {
		eng = engine.NewSeededEngine(*seed)
	}
	eng.SetLogger(log.With().Str("ns", "bot").Logger())
	eng.SetThreads(*threads)

	if err := protocol.New(eng, os.Stdin, os.Stdout).Run(); err != nil {
		log.Fatal().Err(err).Str("ns", "proc").Msg("read commands")
	}
}
