package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/pkg/profile"
	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat"

	"chess-perft/bitmg"
	"chess-perft/engine"
)

var errUsage = errors.New("usage")

type config struct {
	fen      string
	depth    int
	divide   bool
	repeat   int
	label    string
	verify   bool
	profile  string
	selftest bool
	serial   bool
	workers  int
	arenaMB  int
	ttMB     int
	ttSave   string
	ttLoad   string
	dedup    bool
	stats    bool
	verbose  bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.fen, "fen", bitmg.FENStartPos, "FEN string (defaults to initial position)")
	flag.IntVar(&cfg.depth, "depth", 0, "Perft depth (required unless -selftest)")
	flag.BoolVar(&cfg.divide, "divide", false, "Print per-move node counts at root")
	flag.IntVar(&cfg.repeat, "repeat", 1, "Repeat perft N times and report mean and stddev NPS")
	flag.StringVar(&cfg.label, "label", "", "Optional label prefix for one-line output")
	flag.BoolVar(&cfg.verify, "verify", false, "Compare the root divide against dragontoothmg")
	flag.StringVar(&cfg.profile, "profile", "", "Profile the run: cpu or mem")
	flag.BoolVar(&cfg.selftest, "selftest", false, "Check every magic lookup against the ray fill and exit")
	flag.BoolVar(&cfg.serial, "serial", false, "Use the recursive counter with a parallel root split")
	flag.IntVar(&cfg.workers, "workers", runtime.GOMAXPROCS(0), "Worker goroutines")
	flag.IntVar(&cfg.arenaMB, "arena-mb", 512, "Breadth-first arena size in MiB")
	flag.IntVar(&cfg.ttMB, "tt-mb", 0, "Transposition cache size in MiB (0 disables)")
	flag.StringVar(&cfg.ttSave, "tt-save", "", "Write the cache to this file after the run")
	flag.StringVar(&cfg.ttLoad, "tt-load", "", "Load the cache from this file before the run")
	flag.BoolVar(&cfg.dedup, "dedup", false, "Fold duplicate positions within a level")
	flag.BoolVar(&cfg.stats, "stats", false, "Log cache and frontier statistics")
	flag.BoolVar(&cfg.verbose, "v", false, "Debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if cfg.verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()

	if err := run(cfg, log); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, bitmg.ErrInvalidFEN) || errors.Is(err, engine.ErrInvalidOptions) {
			log.Error().Err(err).Msg("bad arguments")
			os.Exit(2)
		}
		log.Error().Err(err).Msg("perft failed")
		os.Exit(1)
	}
}

func run(cfg config, log zerolog.Logger) error {
	if cfg.selftest {
		if err := bitmg.VerifyMagics(); err != nil {
			return err
		}
		log.Info().Msg("magic tables match the ray fill on every square")
		return nil
	}
	if cfg.depth <= 0 {
		return fmt.Errorf("%w: -depth must be > 0", errUsage)
	}
	if cfg.repeat < 1 {
		return fmt.Errorf("%w: -repeat must be >= 1", errUsage)
	}

	board, err := bitmg.ParseFEN(cfg.fen)
	if err != nil {
		return err
	}

	switch cfg.profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	default:
		return fmt.Errorf("%w: -profile must be cpu or mem, got %q", errUsage, cfg.profile)
	}

	opts := engine.DefaultOptions()
	opts.Workers = cfg.workers
	opts.ArenaBytes = int64(cfg.arenaMB) << 20
	opts.FindDuplicates = cfg.dedup
	opts.Stats = cfg.stats
	opts.Tables = engine.DefaultTables(cfg.ttMB, cfg.depth)
	opts.Logger = log
	e, err := engine.New(opts)
	if err != nil {
		return err
	}

	if cfg.ttLoad != "" {
		if err := loadCache(e.Cache(), cfg.ttLoad); err != nil {
			return err
		}
		log.Info().Str("file", cfg.ttLoad).Msg("cache loaded")
	}

	if cfg.divide || cfg.verify {
		if err := runDivide(cfg, e, &board); err != nil {
			return err
		}
	} else {
		runTimed(cfg, e, &board, log)
	}

	if cfg.stats && e.Stats() != nil {
		e.Stats().Log(log)
	}
	if cfg.ttSave != "" {
		if err := saveCache(e.Cache(), cfg.ttSave); err != nil {
			return err
		}
		log.Info().Str("file", cfg.ttSave).Msg("cache saved")
	}
	return nil
}

func count(cfg config, e *engine.Engine, p *bitmg.Position) uint64 {
	if cfg.serial {
		return bitmg.PerftParallel(p, cfg.depth, cfg.workers)
	}
	return e.Perft(p, cfg.depth)
}

func runTimed(cfg config, e *engine.Engine, p *bitmg.Position, log zerolog.Logger) {
	var totalNodes uint64
	rates := make([]float64, 0, cfg.repeat)
	start := time.Now()
	for i := 0; i < cfg.repeat; i++ {
		t := time.Now()
		n := count(cfg, e, p)
		totalNodes += n
		rates = append(rates, float64(n)/time.Since(t).Seconds())
	}
	elapsed := time.Since(start)
	nps := float64(totalNodes) / elapsed.Seconds()

	// Single line: Label Depth Nodes Time NPS
	fmt.Printf("%s \t%d \t\t%d \t\t%s \t%.0f\n", cfg.label, cfg.depth, totalNodes, elapsed, nps)

	if cfg.repeat > 1 {
		mean, std := stat.MeanStdDev(rates, nil)
		pr := message.NewPrinter(language.English)
		log.Info().
			Int("runs", cfg.repeat).
			Str("mean_nps", pr.Sprintf("%.0f", mean)).
			Str("stddev_nps", pr.Sprintf("%.0f", std)).
			Msg("repeat summary")
	}
}

func runDivide(cfg config, e *engine.Engine, p *bitmg.Position) error {
	div := make(map[string]uint64)
	for _, d := range e.Divide(p, cfg.depth) {
		div[d.Move.String()] = d.Nodes
	}
	moves := maps.Keys(div)
	slices.Sort(moves)

	pr := message.NewPrinter(language.English)
	var sum uint64
	for _, m := range moves {
		if cfg.divide {
			fmt.Printf("%s: %d\n", m, div[m])
		}
		sum += div[m]
	}
	pr.Printf("Total: %d\n", sum)

	if !cfg.verify {
		return nil
	}
	return verifyDivide(os.Stdout, cfg.fen, cfg.depth, div)
}

func loadCache(c *engine.Cache, path string) error {
	if c == nil {
		return fmt.Errorf("%w: -tt-load needs -tt-mb", errUsage)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open cache snapshot: %w", err)
	}
	defer f.Close()
	return c.Load(f)
}

func saveCache(c *engine.Cache, path string) error {
	if c == nil {
		return fmt.Errorf("%w: -tt-save needs -tt-mb", errUsage)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cache snapshot: %w", err)
	}
	if err := c.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
