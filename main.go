// ClickChess - a click-driven chess board built with Ebitengine
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/hailam/clickchess/internal/config"
	"github.com/hailam/clickchess/internal/engine"
	"github.com/hailam/clickchess/internal/game"
	"github.com/hailam/clickchess/internal/obslog"
	"github.com/hailam/clickchess/internal/storage"
	"github.com/hailam/clickchess/internal/uci"
	"github.com/hailam/clickchess/internal/ui"
)

var configPath = flag.String("config", "", "path to a YAML config file")

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
	log := obslog.L()

	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		// The board still works; preferences and records are not kept.
		log.Warn("storage unavailable", zap.Error(err))
	} else {
		defer store.Close()
	}

	opts := []game.Option{}
	if store != nil {
		opts = append(opts, game.WithObserver(store))
	}
	session := game.NewSession(opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var actor *engine.Actor
	if cfg.Engine.Path != "" {
		eng, err := uci.NewSession(ctx, cfg.Engine.Path, cfg.Engine.Args, uci.Options{})
		if err != nil {
			log.Warn("engine not started", zap.String("path", cfg.Engine.Path), zap.Error(err))
		} else {
			defer eng.Close()
			moveTime := cfg.Engine.MoveTime
			if store != nil {
				if prefs, err := store.LoadPreferences(); err == nil {
					moveTime = prefs.EngineMoveTime
				}
			}
			actor = engine.NewActor(eng, moveTime)
			defer actor.Close()
			// resets the actor's cache and the engine on NewGame
			session.Subscribe(actor)
		}
	}

	g := ui.NewGame(ui.Options{Session: session, Engine: actor, Storage: store})
	defer g.Close()

	ebiten.SetWindowSize(ui.ScreenWidth, ui.ScreenHeight)
	ebiten.SetWindowTitle("ClickChess")

	if err := ebiten.RunGame(g); err != nil {
		log.Error("run game", zap.Error(err))
	}
}
