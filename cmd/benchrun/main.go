package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
)

// run executes a command and prints its combined output. Returns exit code.
func run(name string, args ...string) int {
	cmd := exec.Command(name, args...)
	cmd.Env = os.Environ()
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	fmt.Print(out.String())
	if err == nil {
		return 0
	}
	if ee, ok := err.(*exec.ExitError); ok {
		return ee.ExitCode()
	}
	fmt.Fprintf(os.Stderr, "error running %s: %v\n", name, err)
	return 1
}

type perftCase struct {
	label string
	fen   string
	depth string
	extra []string
}

var suite = []perftCase{
	{label: "Initial", depth: "5"},
	{label: "Initial", depth: "6"},
	{label: "Initial-tt", depth: "7", extra: []string{"-tt-mb", "1024"}},
	{label: "Kiwipete", fen: "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1", depth: "5"},
	{label: "Pos3", fen: "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1", depth: "6"},
	{label: "Pos4", fen: "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1", depth: "5"},
	{label: "Initial-serial", depth: "6", extra: []string{"-serial"}},
}

func main() {
	// Usage: go run ./cmd/benchrun
	// Format: BenchmarkName  Iterations  ns/op  B/op  allocs/op
	fmt.Println("Columns: BENCHMARK  N  ns/op  B/op  allocs/op")
	code := run("go", "test", "./bitmg", "./engine", "-run", "^$", "-bench", ".", "-benchmem", "-benchtime=1s")
	if code != 0 {
		os.Exit(code)
	}

	// Macro throughput, one line per case.
	fmt.Println("\nPerft Performance:")
	fmt.Println("TEST \t\tDepth \t\tNodes \t\tTime \tNPS")
	for _, c := range suite {
		args := []string{"run", "./cmd/perft", "-depth", c.depth, "-label", c.label}
		if c.fen != "" {
			args = append(args, "-fen", c.fen)
		}
		args = append(args, c.extra...)
		_ = run("go", args...)
	}
	os.Exit(0)
}
