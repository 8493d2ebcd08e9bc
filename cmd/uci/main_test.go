package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runShell(t *testing.T, input string) string {
	t.Helper()
	var out bytes.Buffer
	sh, err := newShell(&out, zerolog.Nop())
	require.NoError(t, err)
	sh.loop(strings.NewReader(input))
	return out.String()
}

func TestHandshake(t *testing.T) {
	out := runShell(t, "uci\nisready\nquit\n")
	assert.Contains(t, out, "uciok")
	assert.Contains(t, out, "readyok")
}

func TestGoPerftStartpos(t *testing.T) {
	out := runShell(t, "position startpos\ngo perft 3\n")
	assert.Contains(t, out, "e2e4: 600\n")
	assert.Contains(t, out, "Nodes searched: 8902")
	assert.Equal(t, 20, strings.Count(out, ": ")-1)
}

func TestPositionWithMoves(t *testing.T) {
	out := runShell(t, "position startpos moves e2e4 e7e5 g1f3\ngo perft 1\n")
	assert.Contains(t, out, "Nodes searched: 29")
	assert.Contains(t, out, "b8c6: 1")
}

func TestPositionFen(t *testing.T) {
	out := runShell(t, "position fen 8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1\ngo perft 4\n")
	assert.Contains(t, out, "Nodes searched: 43238")
}

func TestErrorsKeepPosition(t *testing.T) {
	out := runShell(t, strings.Join([]string{
		"position startpos moves e2e5",
		"position fen 8/8 w",
		"position sideways",
		"go movetime 100",
		"go perft x",
		"setoption name Colour value 3",
		"frobnicate",
		"go perft 1",
	}, "\n"))
	assert.Contains(t, out, "info string Move e2e5 not found")
	assert.Contains(t, out, "info string invalid FEN")
	assert.Contains(t, out, "info string Invalid position subcommand")
	assert.Contains(t, out, "info string Only \"go perft N\" is supported")
	assert.Contains(t, out, "could not convert depth")
	assert.Contains(t, out, "info string Unknown option Colour")
	assert.Contains(t, out, "info string Unknown command frobnicate")
	assert.Contains(t, out, "Nodes searched: 20")
}

func TestSetOptionRebuildsEngine(t *testing.T) {
	out := runShell(t, "setoption name Hash value 0\nsetoption name Threads value 2\nucinewgame\ngo perft 2\n")
	assert.Contains(t, out, "Nodes searched: 400")
	assert.NotContains(t, out, "info string")
}
