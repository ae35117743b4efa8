// Command chessctl drives a running chessd from the command line.
//
//	chessctl [-api URL] [-events URL] <command> [args]
//
// Commands: new [position], click <square>, move <e2e4>, promote <Q|R|B|N>,
// hover <square>, state, position, history, engine, watch.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/hailam/clickchess/internal/game"
	"github.com/hailam/clickchess/internal/remote"
)

var (
	apiURL    = flag.String("api", "http://127.0.0.1:8700", "command API base URL")
	eventsURL = flag.String("events", "ws://127.0.0.1:8701/events", "event feed URL")
	timeout   = flag.Duration("timeout", 60*time.Second, "request timeout")
	asJSON    = flag.Bool("json", false, "print raw JSON instead of a board")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: chessctl [flags] <new|click|move|promote|hover|state|position|history|engine|watch> [arg]\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "chessctl:", err)
		if remote.IsGameError(err) {
			os.Exit(1)
		}
		os.Exit(3)
	}
}

var errUsage = errors.New("missing argument")

func arg(args []string) (string, error) {
	if len(args) == 0 {
		return "", errUsage
	}
	return args[0], nil
}

func run(ctx context.Context, cmd string, args []string) error {
	c := remote.NewClient(*apiURL, remote.WithTimeout(*timeout))

	switch cmd {
	case "new":
		snap, err := c.NewGame(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printSnapshot(snap)
	case "click":
		sq, err := arg(args)
		if err != nil {
			return err
		}
		res, err := c.Click(ctx, sq)
		if err != nil {
			return err
		}
		if *asJSON {
			return printJSON(res)
		}
		if len(res.Moves) > 0 {
			fmt.Println("moves:", res.Moves)
		}
		return printSnapshot(res.Snapshot)
	case "move":
		mv, err := arg(args)
		if err != nil {
			return err
		}
		snap, err := c.Move(ctx, mv)
		if err != nil {
			return err
		}
		return printSnapshot(snap)
	case "promote":
		p, err := arg(args)
		if err != nil {
			return err
		}
		snap, err := c.Promote(ctx, p)
		if err != nil {
			return err
		}
		return printSnapshot(snap)
	case "hover":
		sq, err := arg(args)
		if err != nil {
			return err
		}
		moves, err := c.Hover(ctx, sq)
		if err != nil {
			return err
		}
		if *asJSON {
			return printJSON(moves)
		}
		fmt.Println(moves)
		return nil
	case "state":
		snap, err := c.State(ctx)
		if err != nil {
			return err
		}
		return printSnapshot(snap)
	case "position":
		pos, err := c.Position(ctx)
		if err != nil {
			return err
		}
		fmt.Println(pos)
		return nil
	case "history":
		h, err := c.History(ctx)
		if err != nil {
			return err
		}
		if *asJSON {
			return printJSON(h)
		}
		for i, ply := range h.Plies {
			score := 0
			if i < len(h.History) {
				score = h.History[i]
			}
			fmt.Printf("%3d. %-6s %+d\n", i/2+1, ply, score)
		}
		return nil
	case "engine":
		resp, err := c.EngineMove(ctx)
		if err != nil {
			return err
		}
		if *asJSON {
			return printJSON(resp)
		}
		fmt.Printf("engine: %s (cached=%t)\n", resp.Move, resp.Cached)
		return printSnapshot(resp.Snapshot)
	case "watch":
		return remote.Watch(ctx, *eventsURL, func(e game.Event) {
			if *asJSON {
				_ = printJSON(e)
				return
			}
			line := fmt.Sprintf("%s %s", e.Kind, e.Snapshot.Position)
			if e.Move != "" {
				line += " move=" + e.Move
			}
			if e.Summary != nil {
				line += " result=" + string(e.Summary.Result)
			}
			fmt.Println(line)
		})
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printSnapshot(snap game.Snapshot) error {
	if *asJSON {
		return printJSON(snap)
	}
	fmt.Print(snap.Board.String())
	fmt.Printf("position: %s\nphase:    %s\n", snap.Position, snap.Phase)
	if snap.Phase == game.Selected {
		fmt.Printf("selected: %s %v\n", snap.Selected, snap.Highlights)
	}
	if snap.PendingMove != "" {
		fmt.Printf("pending:  %s (promote Q, R, B or N)\n", snap.PendingMove)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
