package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog"

	"chess-perft/api"
	"chess-perft/engine"
)

var version = "dev"

func main() {
	cfg := api.DefaultConfig()
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	flag.IntVar(&cfg.Jobs, "jobs", cfg.Jobs, "Concurrent perft jobs, each with its own arena")
	flag.IntVar(&cfg.MaxDepth, "max-depth", cfg.MaxDepth, "Deepest accepted request")
	arenaMB := flag.Int("arena-mb", 256, "Arena size per job in MiB")
	ttMB := flag.Int("tt-mb", 256, "Shared transposition cache in MiB (0 disables)")
	workers := flag.Int("workers", runtime.GOMAXPROCS(0), "Worker goroutines per job")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()
	cfg.Version = version

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	opts := engine.DefaultOptions()
	opts.Workers = *workers
	opts.ArenaBytes = int64(*arenaMB) << 20
	opts.Tables = engine.DefaultTables(*ttMB, cfg.MaxDepth)
	opts.Logger = log

	srv, err := api.NewServer(cfg, opts)
	if err != nil {
		log.Error().Err(err).Msg("bad arguments")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := srv.ListenAndServe(ctx); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}
