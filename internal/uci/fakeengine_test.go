package uci

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/hailam/clickchess/internal/board"
)

const fakeEngineEnv = "CLICKCHESS_FAKE_ENGINE"

// TestMain lets the test binary stand in for an engine process.
func TestMain(m *testing.M) {
	if os.Getenv(fakeEngineEnv) == "1" {
		runFakeEngine(os.Stdin, os.Stdout)
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// runFakeEngine speaks enough UCI to answer with the first legal move of
// the position it was given. The position "hang" never answers until
// stopped.
func runFakeEngine(r io.Reader, w io.Writer) {
	sc := bufio.NewScanner(r)
	position := board.StartPosition
	say := func(format string, args ...any) { fmt.Fprintf(w, format+"\n", args...) }

	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "uci":
			say("id name fake")
			say("option name Hash type spin default 16 min 1 max 64")
			say("uciok")
		case "isready":
			say("readyok")
		case "position":
			switch {
			case len(fields) > 1 && fields[1] == "startpos":
				position = board.StartPosition
			case len(fields) > 2 && fields[1] == "fen":
				position = strings.Join(fields[2:], " ")
			}
		case "go":
			if position == "hang" {
				continue
			}
			mv := firstLegal(position)
			if mv == "" {
				say("bestmove (none)")
				continue
			}
			say("info depth 1 score cp 12 pv %s", mv)
			say("bestmove %s", mv)
		case "stop":
			say("bestmove 0000")
		case "quit":
			return
		}
	}
}

func firstLegal(position string) string {
	b, m, err := board.ParsePosition(position)
	if err != nil {
		return ""
	}
	c := m.ActiveColor()
	for sq := board.A1; sq <= board.H8; sq++ {
		p := b.Get(sq)
		if p.IsEmpty() || p.Color != c {
			continue
		}
		for _, mv := range board.LegalMovesFrom(sq, &m, &b) {
			cm := board.CoordinateMove{From: sq, To: mv.To}
			if p.IsPromotable(mv.To) {
				cm.Promotion = board.Queen
			}
			return cm.String()
		}
	}
	return ""
}
