package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chess-perft/bitmg"
	"chess-perft/engine"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)
	sh, err := newShell(os.Stdout, log)
	if err != nil {
		log.Error().Err(err).Msg("engine setup failed")
		os.Exit(1)
	}
	sh.loop(os.Stdin)
}

// shell speaks the subset of UCI a perft tool needs: position setup and
// "go perft N", answered in the usual divide format.
type shell struct {
	out   io.Writer
	log   zerolog.Logger
	board bitmg.Position
	opts  engine.Options
	eng   *engine.Engine
}

func newShell(out io.Writer, log zerolog.Logger) (*shell, error) {
	opts := engine.DefaultOptions()
	opts.Workers = runtime.GOMAXPROCS(0)
	opts.ArenaBytes = 256 << 20
	opts.Tables = engine.DefaultTables(64, 10)
	opts.Logger = log
	sh := &shell{out: out, log: log, board: bitmg.StartPosition(), opts: opts}
	return sh, sh.rebuild()
}

func (sh *shell) rebuild() error {
	e, err := engine.New(sh.opts)
	if err != nil {
		return err
	}
	sh.eng = e
	return nil
}

func (sh *shell) println(a ...any) { fmt.Fprintln(sh.out, a...) }

func (sh *shell) loop(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		tokens := strings.Fields(line)
		if len(tokens) == 0 { // ignore blank lines
			continue
		}
		switch strings.ToLower(tokens[0]) {
		case "uci":
			sh.println("id name chess-perft")
			sh.println("id author chess-perft developers")
			sh.println("option name Hash type spin default 64 min 0 max 65536")
			sh.println("option name Threads type spin default", sh.opts.Workers, "min 1 max 1024")
			sh.println("uciok")
		case "isready":
			sh.println("readyok")
		case "ucinewgame":
			sh.board = bitmg.StartPosition()
			sh.eng.Cache().Clear()
		case "quit":
			return
		case "d":
			sh.println(sh.board.String())
		case "position":
			sh.position(tokens[1:])
		case "go":
			sh.goCommand(tokens[1:])
		case "setoption":
			sh.setOption(tokens[1:])
		default:
			sh.println("info string Unknown command", tokens[0])
		}
	}
}

func (sh *shell) position(args []string) {
	if len(args) == 0 {
		sh.println("info string Malformed position command")
		return
	}
	var board bitmg.Position
	rest := args[1:]
	switch strings.ToLower(args[0]) {
	case "startpos":
		board = bitmg.StartPosition()
	case "fen":
		i := 0
		for i < len(rest) && strings.ToLower(rest[i]) != "moves" {
			i++
		}
		p, err := bitmg.ParseFEN(strings.Join(rest[:i], " "))
		if err != nil {
			sh.println("info string", err)
			return
		}
		board, rest = p, rest[i:]
	default:
		sh.println("info string Invalid position subcommand")
		return
	}

	if len(rest) > 0 && strings.ToLower(rest[0]) == "moves" {
		for _, s := range rest[1:] {
			m, err := bitmg.ParseMove(&board, strings.ToLower(s))
			if err != nil {
				sh.println("info string Move", s, "not found for position", board.FEN())
				return
			}
			board = bitmg.MakeMove(&board, m)
		}
	}
	sh.board = board
}

func (sh *shell) goCommand(args []string) {
	if len(args) != 2 || (strings.ToLower(args[0]) != "perft" && strings.ToLower(args[0]) != "depth") {
		sh.println("info string Only \"go perft N\" is supported")
		return
	}
	depth, err := strconv.Atoi(args[1])
	if err != nil || depth < 1 {
		sh.println("info string Malformed go command option; could not convert depth")
		return
	}

	start := time.Now()
	entries := sh.eng.Divide(&sh.board, depth)
	for _, d := range entries {
		fmt.Fprintf(sh.out, "%s: %d\n", d.Move, d.Nodes)
	}
	nodes := engine.DivideTotal(entries)
	elapsed := time.Since(start)
	sh.println()
	sh.println("Nodes searched:", nodes)
	sh.log.Info().Uint64("nodes", nodes).Dur("elapsed", elapsed).Msg("perft")
}

// setOption handles "setoption name <Hash|Threads> value N".
func (sh *shell) setOption(args []string) {
	if len(args) != 4 || strings.ToLower(args[0]) != "name" || strings.ToLower(args[2]) != "value" {
		sh.println("info string Malformed setoption command")
		return
	}
	v, err := strconv.Atoi(args[3])
	if err != nil || v < 0 {
		sh.println("info string Malformed setoption value", args[3])
		return
	}
	switch strings.ToLower(args[1]) {
	case "hash":
		sh.opts.Tables = engine.DefaultTables(v, 10)
	case "threads":
		if v < 1 {
			sh.println("info string Threads must be at least 1")
			return
		}
		sh.opts.Workers = v
	default:
		sh.println("info string Unknown option", args[1])
		return
	}
	if err := sh.rebuild(); err != nil {
		sh.println("info string", err)
	}
}
