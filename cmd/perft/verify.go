package main

import (
	"fmt"
	"io"

	"github.com/dylhunn/dragontoothmg"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"chess-perft/bitmg"
)

// dragontoothmg drops en passant captures by a pawn pinned along a diagonal
// even when the capture stays on the pin line. Such moves show up as
// disagreements that verifyDivide settles with a king safety check.

// verifyDivide recounts every root move with dragontoothmg. Where the counts
// disagree it walks down to the nodes whose move lists differ. Moves only we
// generate that leave our king safe are reported as oracle misses; anything
// else fails the verification.
func verifyDivide(w io.Writer, fen string, depth int, div map[string]uint64) error {
	p, err := bitmg.ParseFEN(fen)
	if err != nil {
		return err
	}
	b := dragontoothmg.ParseFen(fen)
	want := oracleDivide(&b, depth)

	keys := append(maps.Keys(want), maps.Keys(div)...)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	var v verifier
	for _, name := range keys {
		got, okGot := div[name]
		exp, okExp := want[name]
		if okGot && okExp && got == exp {
			continue
		}
		if !okGot {
			v.fault("missing %s: want %d", name, exp)
			continue
		}
		m, err := bitmg.ParseMove(&p, name)
		if err != nil {
			v.fault("illegal %s: got %d", name, got)
			continue
		}
		child := bitmg.MakeMove(&p, m)
		if serial := bitmg.Perft(&child, depth-1); serial != got {
			v.fault("count %s: got %d, serial perft %d", name, got, serial)
			continue
		}
		if !okExp {
			v.onlyOurs(&p, m)
			continue
		}
		unapply := b.Apply(oracleMove(&b, name))
		v.descend(&child, &b, depth-1)
		unapply()
	}

	for _, s := range v.misses {
		fmt.Fprintln(w, "dragontoothmg misses", s)
	}
	for _, s := range v.faults {
		fmt.Fprintln(w, s)
	}
	if len(v.faults) > 0 {
		return fmt.Errorf("divide differs from dragontoothmg on %d moves", len(v.faults))
	}
	fmt.Fprintln(w, "verify: ok")
	return nil
}

type verifier struct {
	misses []string
	faults []string
}

func (v *verifier) fault(format string, args ...any) {
	v.faults = append(v.faults, fmt.Sprintf(format, args...))
}

// onlyOurs classifies a move dragontoothmg did not generate.
func (v *verifier) onlyOurs(p *bitmg.Position, m bitmg.Move) {
	us := p.SideToMove()
	child := bitmg.MakeMove(p, m)
	if bitmg.Attacked(&child, child.KingSquare(us), us.Other()) {
		v.fault("illegal %s in %s", m, p.FEN())
		return
	}
	v.misses = append(v.misses, fmt.Sprintf("%s in %s", m, p.FEN()))
}

// descend compares move lists at p and follows the shared moves whose
// subtree counts differ. p and b must describe the same position.
func (v *verifier) descend(p *bitmg.Position, b *dragontoothmg.Board, depth int) {
	if depth < 1 {
		return
	}
	var buf [bitmg.MaxMoves]bitmg.Move
	ours := make(map[string]bitmg.Move)
	for _, m := range bitmg.GenerateMoves(p, buf[:0]) {
		ours[m.String()] = m
	}
	theirs := make(map[string]dragontoothmg.Move)
	for _, m := range b.GenerateLegalMoves() {
		theirs[m.String()] = m
	}

	names := maps.Keys(ours)
	slices.Sort(names)
	for _, name := range names {
		if _, ok := theirs[name]; !ok {
			v.onlyOurs(p, ours[name])
		}
	}
	extra := maps.Keys(theirs)
	slices.Sort(extra)
	for _, name := range extra {
		if _, ok := ours[name]; !ok {
			v.fault("missing %s in %s", name, p.FEN())
		}
	}
	if depth == 1 {
		return
	}
	for _, name := range names {
		om, ok := theirs[name]
		if !ok {
			continue
		}
		child := bitmg.MakeMove(p, ours[name])
		unapply := b.Apply(om)
		if bitmg.Perft(&child, depth-1) != oraclePerft(b, depth-1) {
			v.descend(&child, b, depth-1)
		}
		unapply()
	}
}

func oracleMove(b *dragontoothmg.Board, name string) dragontoothmg.Move {
	for _, m := range b.GenerateLegalMoves() {
		if m.String() == name {
			return m
		}
	}
	panic("no dragontoothmg move " + name)
}

func oracleDivide(b *dragontoothmg.Board, depth int) map[string]uint64 {
	out := make(map[string]uint64)
	for _, m := range b.GenerateLegalMoves() {
		unapply := b.Apply(m)
		out[m.String()] = oraclePerft(b, depth-1)
		unapply()
	}
	return out
}

func oraclePerft(b *dragontoothmg.Board, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	moves := b.GenerateLegalMoves()
	if depth == 1 {
		return uint64(len(moves))
	}
	var n uint64
	for _, m := range moves {
		unapply := b.Apply(m)
		n += oraclePerft(b, depth-1)
		unapply()
	}
	return n
}
