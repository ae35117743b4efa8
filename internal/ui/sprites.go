// Package ui implements the desktop board with Ebitengine. It drives a
// game.Session through square clicks and redraws from its snapshots.
package ui

import (
	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/hailam/clickchess/internal/board"
	"github.com/hailam/clickchess/internal/obslog"
	"github.com/hailam/clickchess/internal/ui/pieceart"
)

// spriteKey ignores the moved and check flags a Piece carries.
type spriteKey struct {
	Type  board.PieceType
	Color board.Color
}

// SpriteManager manages piece sprites.
type SpriteManager struct {
	pieces      map[spriteKey]*ebiten.Image
	size        int     // Display size (e.g., 80)
	renderScale float64 // Render at higher resolution for quality (e.g., 3.0)
}

// NewSpriteManager creates a new sprite manager with pieces of the given size.
func NewSpriteManager(size int) *SpriteManager {
	sm := &SpriteManager{
		pieces:      make(map[spriteKey]*ebiten.Image),
		size:        size,
		renderScale: 3.0,
	}
	sm.loadPieces()
	return sm
}

// GetPiece returns the sprite for a piece.
func (sm *SpriteManager) GetPiece(p board.Piece) *ebiten.Image {
	return sm.pieces[spriteKey{p.Type, p.Color}]
}

func (sm *SpriteManager) loadPieces() {
	renderSize := int(float64(sm.size) * sm.renderScale)

	for _, c := range []board.Color{board.White, board.Black} {
		for pt := board.Pawn; pt <= board.King; pt++ {
			img, err := pieceart.Render(board.NewPiece(pt, c), renderSize)
			if err != nil {
				obslog.L().Warn("ui: render piece", zap.Stringer("piece", pt), zap.Error(err))
				continue
			}
			sm.pieces[spriteKey{pt, c}] = ebiten.NewImageFromImage(img)
		}
	}
}

// DrawPieceAt draws a piece with its top-left corner at x, y.
func (sm *SpriteManager) DrawPieceAt(screen *ebiten.Image, p board.Piece, x, y float64) {
	sm.DrawPieceScaled(screen, p, x, y, 1)
}

// DrawPieceScaled draws a piece at scale times the square size.
func (sm *SpriteManager) DrawPieceScaled(screen *ebiten.Image, p board.Piece, x, y, scale float64) {
	if p.IsEmpty() {
		return
	}
	sprite := sm.GetPiece(p)
	if sprite == nil {
		return
	}
	op := &ebiten.DrawImageOptions{}
	s := scale / sm.renderScale
	op.GeoM.Scale(s, s)
	op.GeoM.Translate(x, y)
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(sprite, op)
}
