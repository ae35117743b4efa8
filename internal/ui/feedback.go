package ui

import (
	"image/color"
	"math"
	"slices"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/hailam/clickchess/internal/board"
	"github.com/hailam/clickchess/internal/game"
)

// ToastType selects the colours of a toast.
type ToastType int

const (
	ToastInfo ToastType = iota
	ToastWarning
	ToastError
	ToastSuccess
)

type toastStyle struct {
	bg, fg color.RGBA
}

var toastStyles = map[ToastType]toastStyle{
	ToastInfo:    {bg: color.RGBA{50, 100, 150, 220}, fg: color.RGBA{255, 255, 255, 255}},
	ToastWarning: {bg: color.RGBA{180, 140, 20, 220}, fg: color.RGBA{40, 30, 0, 255}},
	ToastError:   {bg: color.RGBA{180, 50, 50, 220}, fg: color.RGBA{255, 255, 255, 255}},
	ToastSuccess: {bg: color.RGBA{50, 150, 50, 220}, fg: color.RGBA{255, 255, 255, 255}},
}

// timed is anything that lives for a fixed span from its start.
type timed struct {
	start time.Time
	span  time.Duration
}

func newTimed(span time.Duration) timed {
	return timed{start: time.Now(), span: span}
}

// progress runs from 0 at start to 1 at expiry.
func (t timed) progress() float64 {
	return min(1, time.Since(t.start).Seconds()/t.span.Seconds())
}

func (t timed) expired() bool {
	return time.Since(t.start) >= t.span
}

// fade ramps alpha up over the first edge fraction of the span and down
// over the last.
func (t timed) fade(edge float64) float64 {
	p := t.progress()
	return math.Max(0, math.Min(1, math.Min(p/edge, (1-p)/edge)))
}

func withAlpha(c color.RGBA, a float64) color.RGBA {
	c.A = uint8(float64(c.A) * a)
	return c
}

type toast struct {
	timed
	msg   string
	style toastStyle
}

// ToastManager stacks short messages over the top of the board.
type ToastManager struct {
	toasts []*toast
	limit  int
}

// NewToastManager keeps at most three toasts on screen.
func NewToastManager() *ToastManager {
	return &ToastManager{limit: 3}
}

// Show adds a toast for d, dropping the oldest past the limit.
func (tm *ToastManager) Show(msg string, kind ToastType, d time.Duration) {
	tm.toasts = append(tm.toasts, &toast{timed: newTimed(d), msg: msg, style: toastStyles[kind]})
	if over := len(tm.toasts) - tm.limit; over > 0 {
		tm.toasts = tm.toasts[over:]
	}
}

// Update drops expired toasts.
func (tm *ToastManager) Update() {
	tm.toasts = slices.DeleteFunc(tm.toasts, func(t *toast) bool { return t.expired() })
}

// Draw renders the toasts centred over the board, newest last.
func (tm *ToastManager) Draw(screen *ebiten.Image) {
	face := GetRegularFace()
	if face == nil {
		return
	}
	const pad = 12.0
	y := 50.0
	for _, t := range tm.toasts {
		// 0.2s fade at each end
		a := t.fade(0.2 / t.span.Seconds())
		w, h := MeasureText(t.msg, face)
		x := (float64(BoardSize) - w) / 2
		vector.DrawFilledRect(screen, float32(x-pad), float32(y), float32(w+2*pad), float32(h+2*pad), withAlpha(t.style.bg, a), false)

		op := &text.DrawOptions{}
		op.GeoM.Translate(x, y+pad)
		op.ColorScale.ScaleWithColor(withAlpha(t.style.fg, a))
		text.Draw(screen, t.msg, face, op)
		y += h + 2*pad + 8
	}
}

type squareEffect struct {
	timed
	sq    board.Square
	color color.RGBA
}

// AnimationManager holds the shake and flash effects of rejected clicks.
type AnimationManager struct {
	shakes  []*squareEffect
	flashes []*squareEffect
}

// NewAnimationManager returns an idle manager.
func NewAnimationManager() *AnimationManager {
	return &AnimationManager{}
}

// StartShake wobbles the piece on sq.
func (am *AnimationManager) StartShake(sq board.Square) {
	am.shakes = append(am.shakes, &squareEffect{timed: newTimed(300 * time.Millisecond), sq: sq})
}

// StartFlash tints sq with c, fading out.
func (am *AnimationManager) StartFlash(sq board.Square, c color.RGBA) {
	am.flashes = append(am.flashes, &squareEffect{timed: newTimed(400 * time.Millisecond), sq: sq, color: c})
}

// Update drops finished effects.
func (am *AnimationManager) Update() {
	done := func(e *squareEffect) bool { return e.expired() }
	am.shakes = slices.DeleteFunc(am.shakes, done)
	am.flashes = slices.DeleteFunc(am.flashes, done)
}

// GetShakeOffset returns the horizontal displacement of the piece on sq.
func (am *AnimationManager) GetShakeOffset(sq board.Square) (float64, float64) {
	const intensity = 8.0
	for _, s := range am.shakes {
		if s.sq != sq || s.expired() {
			continue
		}
		p := s.progress()
		return intensity * math.Exp(-5*p) * math.Sin(40*p), 0
	}
	return 0, 0
}

// DrawFlashes paints the active flashes over their squares.
func (am *AnimationManager) DrawFlashes(screen *ebiten.Image, r *Renderer) {
	size := float32(r.SquareSize())
	for _, f := range am.flashes {
		if f.expired() {
			continue
		}
		x, y := r.Origin(f.sq)
		vector.DrawFilledRect(screen, float32(x), float32(y), size, size, withAlpha(f.color, 1-f.progress()), false)
	}
}

// FeedbackManager turns session events into toasts, animations and
// sounds.
type FeedbackManager struct {
	toasts     *ToastManager
	animations *AnimationManager
	audio      *AudioManager

	// last is the board before the event being reported.
	last board.Board
}

// NewFeedbackManager creates a new feedback manager.
func NewFeedbackManager(audio *AudioManager) *FeedbackManager {
	return &FeedbackManager{
		toasts:     NewToastManager(),
		animations: NewAnimationManager(),
		audio:      audio,
		last:       board.StartingBoard(),
	}
}

// Update updates all feedback systems.
func (fm *FeedbackManager) Update() {
	fm.toasts.Update()
	fm.animations.Update()
}

// Draw renders the toasts. Flashes are drawn by the renderer under the
// promotion picker.
func (fm *FeedbackManager) Draw(screen *ebiten.Image) {
	fm.toasts.Draw(screen)
}

// Animations returns the animation manager for renderer integration.
func (fm *FeedbackManager) Animations() *AnimationManager {
	return fm.animations
}

// Toast shows a message.
func (fm *FeedbackManager) Toast(message string, toastType ToastType) {
	fm.toasts.Show(message, toastType, 2*time.Second)
}

// OnRejected reports a click that did not complete a move from src.
func (fm *FeedbackManager) OnRejected(src, dst board.Square) {
	fm.animations.StartShake(src)
	fm.animations.StartFlash(dst, color.RGBA{255, 80, 80, 150})
	fm.audio.Play(SoundInvalid)
}

// OnEvent reacts to one session event. It runs on the UI goroutine.
func (fm *FeedbackManager) OnEvent(e game.Event) {
	defer func() { fm.last = e.Snapshot.Board }()

	switch e.Kind {
	case game.EventNewGame:
		fm.toasts.Show("New game", ToastInfo, 1500*time.Millisecond)
	case game.EventPromotion:
		fm.toasts.Show("Choose a piece: Q, R, B or N", ToastInfo, 3*time.Second)
		fm.audio.Play(SoundMove)
	case game.EventBoard, game.EventEngineMove:
		fm.onMove(e)
	case game.EventGameOver:
		if e.Summary != nil {
			fm.toasts.Show("Game over: "+string(e.Summary.Result), ToastSuccess, 5*time.Second)
		}
		fm.audio.Play(SoundGameEnd)
	}
}

func (fm *FeedbackManager) onMove(e game.Event) {
	cm, err := board.ParseCoordinateMove(e.Move)
	if err != nil {
		return
	}
	moved := fm.last.Get(cm.From)
	mover := e.Snapshot.Meta.ActiveColor().Other()
	if e.Snapshot.Meta.Kings[mover.Other()].Piece.InCheck {
		fm.toasts.Show("Check!", ToastWarning, 2*time.Second)
		fm.audio.Play(SoundCheck)
		return
	}

	switch {
	case moved.Type == board.King && abs(cm.To.File()-cm.From.File()) == 2:
		fm.audio.Play(SoundCastle)
	case !fm.last.Get(cm.To).IsEmpty() || (moved.Type == board.Pawn && cm.From.File() != cm.To.File()):
		fm.audio.Play(SoundCapture)
	default:
		fm.audio.Play(SoundMove)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
