// Command chessd runs a game session headless, behind the command API and
// the websocket event feed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/hailam/clickchess/internal/archive"
	"github.com/hailam/clickchess/internal/board"
	"github.com/hailam/clickchess/internal/config"
	"github.com/hailam/clickchess/internal/engine"
	"github.com/hailam/clickchess/internal/game"
	"github.com/hailam/clickchess/internal/livestore"
	"github.com/hailam/clickchess/internal/obslog"
	"github.com/hailam/clickchess/internal/server"
	"github.com/hailam/clickchess/internal/storage"
	"github.com/hailam/clickchess/internal/uci"
)

var (
	configPath = flag.String("config", "", "path to a YAML config file")
	position   = flag.String("position", "", "start from this position instead of resuming")
	autoplay   = flag.String("autoplay", "", "side the engine plays on its own: white, black or empty")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	if err := obslog.Init(cfg.Log); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer obslog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		obslog.L().Error("chessd stopped", zap.Error(err))
		obslog.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := obslog.L()

	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	session := game.NewSession(game.WithObserver(store))

	if cfg.RedisURL != "" {
		live, err := livestore.Open(ctx, cfg.RedisURL, cfg.SnapshotTTL)
		if err != nil {
			return err
		}
		defer live.Close()
		if *position == "" {
			resume(ctx, session, live)
		}
		session.Subscribe(live)
	}

	if cfg.DatabaseURL != "" {
		repo, err := archive.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer repo.Close()
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		session.Subscribe(repo)
	}

	if *position != "" {
		if _, err := session.LoadPosition(*position); err != nil {
			return fmt.Errorf("load position: %w", err)
		}
	}

	var suggester server.MoveSuggester
	if cfg.Engine.Enabled {
		actor, err := startEngine(ctx, cfg.Engine, session)
		if err != nil {
			return err
		}
		defer actor.Close()
		suggester = actor
	}

	hub := server.NewHub(session.Snapshot)
	defer hub.Close()
	session.Subscribe(hub)
	api := server.NewAPI(session, suggester)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	serve := func(name string, fn func(context.Context, string) error, addr string) {
		defer wg.Done()
		if err := fn(ctx, addr); err != nil {
			errCh <- fmt.Errorf("%s: %w", name, err)
		}
	}
	wg.Add(2)
	go serve("api", api.ListenAndServe, cfg.Server.APIAddr)
	go serve("events", hub.ListenAndServe, cfg.Server.EventsAddr)

	log.Info("chessd ready",
		zap.String("game_id", session.Snapshot().ID),
		zap.String("api", cfg.Server.APIAddr),
		zap.String("events", cfg.Server.EventsAddr),
		zap.Bool("engine", suggester != nil))

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-errCh:
	}
	cancel()
	wg.Wait()
	return runErr
}

// resume restores the last session kept in Redis, if any.
func resume(ctx context.Context, session *game.Session, live *livestore.Store) {
	snap, err := live.Current(ctx)
	if errors.Is(err, livestore.ErrNotFound) {
		return
	}
	if err != nil {
		obslog.L().Warn("resume: read snapshot", zap.Error(err))
		return
	}
	if err := session.Restore(snap); err != nil {
		obslog.L().Warn("resume: restore", zap.String("game_id", snap.ID), zap.Error(err))
		return
	}
	obslog.L().Info("resumed game", zap.String("game_id", snap.ID), zap.String("position", snap.Position))
}

func startEngine(ctx context.Context, cfg config.Engine, session *game.Session) (*engine.Actor, error) {
	eng, err := uci.NewSession(ctx, cfg.Path, cfg.Args, uci.Options{})
	if err != nil {
		return nil, err
	}

	var opts []engine.Option
	switch *autoplay {
	case "":
	case "white":
		opts = append(opts, engine.WithAutoplay(board.White))
	case "black":
		opts = append(opts, engine.WithAutoplay(board.Black))
	default:
		eng.Close()
		return nil, fmt.Errorf("autoplay: unknown side %q", *autoplay)
	}

	actor := engine.NewActor(eng, cfg.MoveTime, opts...)
	session.Subscribe(actor)
	// autoplay only reacts to events; start it if its side is already to move
	actor.OnEvent(game.Event{Kind: game.EventBoard, Snapshot: session.Snapshot()})
	go func() {
		engine.Pump(ctx, actor, session)
		if err := eng.Close(); err != nil {
			obslog.L().Debug("engine close", zap.Error(err))
		}
	}()
	return actor, nil
}
