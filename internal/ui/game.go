package ui

import (
	"context"
	"errors"
	"time"
	"unicode"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/hailam/clickchess/internal/board"
	"github.com/hailam/clickchess/internal/engine"
	"github.com/hailam/clickchess/internal/game"
	"github.com/hailam/clickchess/internal/obslog"
	"github.com/hailam/clickchess/internal/storage"
	"github.com/hailam/clickchess/internal/ui/boardview"
)

// UI Constants
const (
	ScreenWidth  = 960
	ScreenHeight = 640
	BoardSize    = 640
	SquareSize   = BoardSize / 8
	PanelWidth   = ScreenWidth - BoardSize
)

// EngineColor is the side the engine plays when it is enabled.
const EngineColor = board.Black

const eventBuffer = 64

// Options wires the window to its collaborators. Only Session is required.
type Options struct {
	Session *game.Session
	// Engine answers for EngineColor when the preference is on.
	Engine  *engine.Actor
	Storage *storage.Storage
}

// Game implements ebiten.Game on top of a game.Session.
type Game struct {
	session *game.Session
	actor   *engine.Actor
	store   *storage.Storage
	prefs   *storage.Preferences

	renderer *Renderer
	input    *InputHandler
	panel    *Panel
	feedback *FeedbackManager
	audio    *AudioManager
	settings *SettingsModal

	// events is fed by the session observer, which may run on another
	// goroutine, and drained in Update.
	events chan game.Event

	snap    game.Snapshot
	model   boardview.Model
	hover   board.Square
	preview board.MoveList
	dirty   bool

	// thinking holds the position the engine is searching, if any.
	thinking string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewGame creates the window state for opts.Session.
func NewGame(opts Options) *Game {
	ctx, cancel := context.WithCancel(context.Background())
	g := &Game{
		session:  opts.Session,
		actor:    opts.Engine,
		store:    opts.Storage,
		renderer: NewRenderer(BoardSize),
		input:    NewInputHandler(),
		settings: NewSettingsModal(),
		events:   make(chan game.Event, eventBuffer),
		hover:    board.NoSquare,
		dirty:    true,
		ctx:      ctx,
		cancel:   cancel,
	}
	g.loadPreferences()
	g.audio = NewAudioManager(g.prefs.SoundEnabled)
	g.feedback = NewFeedbackManager(g.audio)
	g.panel = NewPanel(g)

	g.session.Subscribe(game.ObserverFunc(func(e game.Event) {
		select {
		case g.events <- e:
		default:
			// The snapshot is re-read anyway; only the sound is lost.
			obslog.L().Debug("ui: event dropped", zap.String("event", string(e.Kind)))
		}
	}))

	g.checkFirstLaunch()
	return g
}

func (g *Game) loadPreferences() {
	g.prefs = storage.DefaultPreferences()
	if g.store != nil {
		prefs, err := g.store.LoadPreferences()
		if err != nil {
			obslog.L().Warn("ui: load preferences", zap.Error(err))
		} else {
			g.prefs = prefs
		}
	}
	g.applyPreferences()
}

func (g *Game) applyPreferences() {
	g.renderer.SetFlipped(g.prefs.Flipped)
	if g.audio != nil {
		g.audio.SetEnabled(g.prefs.SoundEnabled)
	}
	if g.actor != nil {
		if err := g.actor.SetMoveTime(g.ctx, g.prefs.EngineMoveTime); err != nil {
			obslog.L().Warn("ui: set engine move time", zap.Error(err))
		}
	}
}

func (g *Game) savePreferences(prefs *storage.Preferences) {
	g.prefs = prefs
	g.applyPreferences()
	g.dirty = true
	if g.store == nil {
		return
	}
	if err := g.store.SavePreferences(prefs); err != nil {
		obslog.L().Warn("ui: save preferences", zap.Error(err))
	}
}

// checkFirstLaunch opens the settings as a welcome screen once.
func (g *Game) checkFirstLaunch() {
	if g.store == nil {
		return
	}
	first, err := g.store.IsFirstLaunch()
	if err != nil {
		obslog.L().Warn("ui: check first launch", zap.Error(err))
		return
	}
	if !first {
		return
	}
	g.settings.Show("Welcome", g.prefs, func(prefs *storage.Preferences) {
		g.savePreferences(prefs)
		if err := g.store.MarkFirstLaunchComplete(); err != nil {
			obslog.L().Warn("ui: mark first launch", zap.Error(err))
		}
	})
}

// Update handles one frame of input and background results.
func (g *Game) Update() error {
	g.input.Update()
	g.feedback.Update()
	g.drainEvents()
	g.drainSuggestions()

	switch {
	case g.settings.IsVisible():
		g.settings.Update(g.input)
	case g.panel.HandleInput(g.input):
	default:
		g.handleKeys()
		g.handleBoardInput()
		g.updateHover()
	}

	g.maybeRequestEngineMove()
	if g.dirty {
		g.snap = g.session.Snapshot()
		g.model = boardview.Build(g.snap, g.preview)
		g.dirty = false
	}
	g.updateCursor()
	return nil
}

func (g *Game) drainEvents() {
	for {
		select {
		case e := <-g.events:
			g.feedback.OnEvent(e)
			if e.Kind == game.EventNewGame {
				g.thinking = ""
				g.panel.ResetScroll()
			}
			g.hover = board.NoSquare
			g.preview = nil
			g.dirty = true
		default:
			return
		}
	}
}

func (g *Game) drainSuggestions() {
	if g.actor == nil {
		return
	}
	for {
		select {
		case s, ok := <-g.actor.Suggestions():
			if !ok {
				g.actor = nil
				return
			}
			g.applySuggestion(s)
		default:
			return
		}
	}
}

func (g *Game) applySuggestion(s engine.Suggestion) {
	if s.Position == g.thinking {
		g.thinking = ""
	}
	if s.Err != nil {
		if !errors.Is(s.Err, engine.ErrClosed) {
			g.feedback.Toast("Engine: "+s.Err.Error(), ToastError)
		}
		return
	}
	if g.session.Position() != s.Position {
		return
	}
	if _, err := g.session.ApplyEngineMove(s.Move); err != nil {
		obslog.L().Warn("ui: engine move rejected", zap.String("move", s.Move), zap.Error(err))
		g.feedback.Toast("Engine move rejected", ToastError)
	}
}

// engineToMove reports whether clicks are locked because the engine owns
// the side to move.
func (g *Game) engineToMove() bool {
	return g.actor != nil && g.prefs.EngineEnabled && g.snap.Meta.ActiveColor() == EngineColor
}

func (g *Game) maybeRequestEngineMove() {
	if g.thinking != "" || !g.engineToMove() || g.dirty {
		return
	}
	if g.snap.Phase == game.Over || g.snap.Phase == game.PromotionPending {
		return
	}
	ctx, cancel := context.WithTimeout(g.ctx, 100*time.Millisecond)
	defer cancel()
	if err := g.actor.RequestMove(ctx, g.snap.Position); err != nil {
		obslog.L().Debug("ui: engine request deferred", zap.Error(err))
		return
	}
	g.thinking = g.snap.Position
}

func (g *Game) handleKeys() {
	if g.snap.Phase == game.PromotionPending {
		for key, pt := range map[ebiten.Key]board.PieceType{
			ebiten.KeyQ: board.Queen, ebiten.KeyR: board.Rook,
			ebiten.KeyB: board.Bishop, ebiten.KeyN: board.Knight,
		} {
			if IsKeyJustPressed(key) {
				g.promote(pt)
				return
			}
		}
	}
	if IsKeyJustPressed(ebiten.KeyEscape) && g.snap.Phase == game.Selected {
		// clicking the selected square again deselects it
		g.click(g.snap.Selected)
	}
	if IsKeyJustPressed(ebiten.KeyF) {
		g.FlipAction()
	}
}

func (g *Game) handleBoardInput() {
	if !g.input.IsLeftJustPressed() || g.engineToMove() {
		return
	}
	sq, ok := g.renderer.SquareAt(g.input.MousePosition())
	if !ok {
		return
	}
	if p := g.model.Prompt; p != nil {
		if pt, ok := p.Choice(sq); ok {
			g.promote(pt)
		}
		return
	}
	g.click(sq)
}

func (g *Game) click(sq board.Square) {
	before := g.snap
	res, err := g.session.Click(sq.String())
	if err != nil {
		obslog.L().Debug("ui: click rejected", zap.Stringer("square", sq), zap.Error(err))
		return
	}
	g.dirty = true
	if before.Phase == game.Selected && !res.Moved && res.Snapshot.Phase == game.Idle && sq != before.Selected {
		g.feedback.OnRejected(before.Selected, sq)
	}
}

func (g *Game) promote(pt board.PieceType) {
	letter := byte(unicode.ToUpper(rune(pt.Char())))
	if _, err := g.session.Promote(letter); err != nil {
		g.feedback.Toast(err.Error(), ToastWarning)
		return
	}
	g.dirty = true
}

// updateHover previews the moves of the piece under the cursor while
// nothing is selected.
func (g *Game) updateHover() {
	sq, ok := g.renderer.SquareAt(g.input.MousePosition())
	if !ok {
		sq = board.NoSquare
	}
	if sq == g.hover {
		return
	}
	g.hover = sq
	g.preview = nil
	g.dirty = true
	if !ok || g.snap.Phase != game.Idle || g.engineToMove() {
		return
	}
	if p := g.snap.Board.Get(sq); p.IsEmpty() || p.Color != g.snap.Meta.ActiveColor() {
		return
	}
	moves, err := g.session.Hover(sq.String())
	if err != nil {
		return
	}
	g.preview = moves
}

func (g *Game) updateCursor() {
	hovered := g.panel.AnyButtonHovered()
	if g.settings.IsVisible() {
		hovered = g.settings.AnyButtonHovered()
	}
	if hovered {
		ebiten.SetCursorShape(ebiten.CursorShapePointer)
	} else {
		ebiten.SetCursorShape(ebiten.CursorShapeDefault)
	}
}

// Draw renders the game.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(g.renderer.Theme().Background)
	g.renderer.Draw(screen, &g.model, g.feedback.Animations())
	g.feedback.Draw(screen)
	g.panel.Draw(screen)
	g.settings.Draw(screen)
}

// Layout returns the logical screen size; the panel can collapse.
func (g *Game) Layout(_, _ int) (int, int) {
	if g.panel != nil && g.panel.Collapsed() {
		return BoardSize + CollapsedWidth, ScreenHeight
	}
	return ScreenWidth, ScreenHeight
}

// NewGameAction starts a new game.
func (g *Game) NewGameAction() {
	g.session.NewGame()
}

// FlipAction turns the board and remembers the choice.
func (g *Game) FlipAction() {
	prefs := *g.prefs
	prefs.Flipped = !prefs.Flipped
	g.savePreferences(&prefs)
}

// ToggleEngineAction switches the engine opponent on or off.
func (g *Game) ToggleEngineAction() {
	if g.actor == nil {
		g.feedback.Toast("No engine configured", ToastWarning)
		return
	}
	prefs := *g.prefs
	prefs.EngineEnabled = !prefs.EngineEnabled
	g.savePreferences(&prefs)
}

// ShowSettings opens the settings modal.
func (g *Game) ShowSettings() {
	g.settings.Show("Settings", g.prefs, g.savePreferences)
}

// Model returns what the board currently shows.
func (g *Game) Model() *boardview.Model {
	return &g.model
}

// Preferences returns the active preferences.
func (g *Game) Preferences() *storage.Preferences {
	return g.prefs
}

// HasEngine reports whether an engine is configured.
func (g *Game) HasEngine() bool {
	return g.actor != nil
}

// EngineThinking reports whether a search is in flight.
func (g *Game) EngineThinking() bool {
	return g.thinking != ""
}

// Close stops background work. The engine actor belongs to the caller.
func (g *Game) Close() {
	g.cancel()
}
