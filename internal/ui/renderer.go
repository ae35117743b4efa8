package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/hailam/clickchess/internal/board"
	"github.com/hailam/clickchess/internal/ui/boardview"
)

// Theme defines the color scheme for the board.
type Theme struct {
	LightSquare    color.RGBA
	DarkSquare     color.RGBA
	SelectedSquare color.RGBA
	LegalMoveColor color.RGBA
	LastMoveColor  color.RGBA
	CheckColor     color.RGBA
	MateColor      color.RGBA
	PromptShade    color.RGBA
	PromptSquare   color.RGBA
	Background     color.RGBA
}

// DefaultTheme returns the default color theme.
func DefaultTheme() *Theme {
	return &Theme{
		LightSquare:    color.RGBA{240, 217, 181, 255},
		DarkSquare:     color.RGBA{181, 136, 99, 255},
		SelectedSquare: color.RGBA{247, 247, 105, 180},
		LegalMoveColor: color.RGBA{130, 151, 105, 200},
		LastMoveColor:  color.RGBA{180, 190, 100, 90},
		CheckColor:     color.RGBA{255, 100, 100, 180},
		MateColor:      color.RGBA{200, 30, 30, 220},
		PromptShade:    color.RGBA{0, 0, 0, 140},
		PromptSquare:   color.RGBA{245, 245, 240, 255},
		Background:     color.RGBA{40, 44, 52, 255},
	}
}

// Renderer draws the board half of the window.
type Renderer struct {
	sprites *SpriteManager
	theme   *Theme
	geo     boardview.Geometry
}

// NewRenderer creates a renderer for a board of boardSize pixels.
func NewRenderer(boardSize int) *Renderer {
	geo := boardview.Geometry{Size: boardSize}
	return &Renderer{
		sprites: NewSpriteManager(geo.SquareSize()),
		theme:   DefaultTheme(),
		geo:     geo,
	}
}

// SetFlipped shows the board from Black's side.
func (r *Renderer) SetFlipped(flipped bool) {
	r.geo.Flipped = flipped
}

// Flipped reports whether Black is at the bottom.
func (r *Renderer) Flipped() bool {
	return r.geo.Flipped
}

// Draw renders squares, marks, pieces and the promotion picker.
func (r *Renderer) Draw(screen *ebiten.Image, m *boardview.Model, anims *AnimationManager) {
	r.drawSquares(screen, m)
	r.drawCoordinates(screen)
	r.drawPieces(screen, m, anims)
	for _, t := range m.Targets {
		r.drawTarget(screen, t)
	}
	if anims != nil {
		anims.DrawFlashes(screen, r)
	}
	if m.Prompt != nil {
		r.drawPrompt(screen, m.Prompt)
	}
}

func (r *Renderer) drawSquares(screen *ebiten.Image, m *boardview.Model) {
	size := float32(r.geo.SquareSize())
	for sq := board.A1; sq <= board.H8; sq++ {
		x, y := r.geo.Origin(sq)
		c := r.theme.DarkSquare
		if boardview.IsLight(sq) {
			c = r.theme.LightSquare
		}
		vector.DrawFilledRect(screen, float32(x), float32(y), size, size, c, false)

		if mark, ok := m.Marks[sq]; ok {
			vector.DrawFilledRect(screen, float32(x), float32(y), size, size, r.markColor(mark), false)
		}
	}
}

func (r *Renderer) markColor(mark boardview.Mark) color.RGBA {
	switch mark {
	case boardview.MarkSelected:
		return r.theme.SelectedSquare
	case boardview.MarkCheck:
		return r.theme.CheckColor
	case boardview.MarkMate:
		return r.theme.MateColor
	}
	return r.theme.LastMoveColor
}

// drawCoordinates labels files along the bottom edge and ranks along the
// left edge, in the colour of the opposite square.
func (r *Renderer) drawCoordinates(screen *ebiten.Image) {
	if coordFace == nil {
		return
	}
	size := r.geo.SquareSize()
	for i := 0; i < 8; i++ {
		fileSq, ok := r.geo.SquareAt(i*size, 7*size)
		if !ok {
			continue
		}
		label := string(rune('a' + fileSq.File()))
		r.drawLabel(screen, label, fileSq, float64(i*size+size)-10, float64(8*size)-16)

		rankSq, ok := r.geo.SquareAt(0, i*size)
		if !ok {
			continue
		}
		label = string(rune('1' + rankSq.Rank()))
		r.drawLabel(screen, label, rankSq, 3, float64(i*size)+2)
	}
}

func (r *Renderer) drawLabel(screen *ebiten.Image, label string, on board.Square, x, y float64) {
	c := r.theme.LightSquare
	if boardview.IsLight(on) {
		c = r.theme.DarkSquare
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c)
	text.Draw(screen, label, coordFace, op)
}

func (r *Renderer) drawPieces(screen *ebiten.Image, m *boardview.Model, anims *AnimationManager) {
	for sq := board.A1; sq <= board.H8; sq++ {
		p := m.Board.Get(sq)
		if p.IsEmpty() {
			continue
		}
		x, y := r.geo.Origin(sq)
		fx, fy := float64(x), float64(y)
		if anims != nil {
			dx, dy := anims.GetShakeOffset(sq)
			fx += dx
			fy += dy
		}
		r.sprites.DrawPieceAt(screen, p, fx, fy)
	}
}

// drawTarget draws a dot on quiet destinations and a ring on captures.
func (r *Renderer) drawTarget(screen *ebiten.Image, t boardview.Target) {
	x, y := r.geo.Origin(t.Square)
	size := float32(r.geo.SquareSize())
	cx := float32(x) + size/2
	cy := float32(y) + size/2
	if t.Capture {
		vector.StrokeCircle(screen, cx, cy, size*0.45, size*0.08, r.theme.LegalMoveColor, true)
		return
	}
	vector.DrawFilledCircle(screen, cx, cy, size*0.15, r.theme.LegalMoveColor, true)
}

// drawPrompt shades the board and lays the four promotion choices over
// the promoting pawn's file.
func (r *Renderer) drawPrompt(screen *ebiten.Image, p *boardview.Prompt) {
	full := float32(r.geo.SquareSize() * 8)
	vector.DrawFilledRect(screen, 0, 0, full, full, r.theme.PromptShade, false)

	size := float32(r.geo.SquareSize())
	for i, sq := range p.Squares() {
		x, y := r.geo.Origin(sq)
		vector.DrawFilledRect(screen, float32(x), float32(y), size, size, r.theme.PromptSquare, false)
		vector.StrokeRect(screen, float32(x), float32(y), size, size, 1, r.theme.DarkSquare, false)
		r.sprites.DrawPieceAt(screen, board.NewPiece(boardview.PromotionChoices[i], p.Color), float64(x), float64(y))
	}
}

// SquareAt converts a cursor position to a board square.
func (r *Renderer) SquareAt(x, y int) (board.Square, bool) {
	return r.geo.SquareAt(x, y)
}

// Origin returns the top-left pixel of sq.
func (r *Renderer) Origin(sq board.Square) (int, int) {
	return r.geo.Origin(sq)
}

// SquareSize returns the size of one square in pixels.
func (r *Renderer) SquareSize() int {
	return r.geo.SquareSize()
}

// Theme returns the current theme.
func (r *Renderer) Theme() *Theme {
	return r.theme
}
