// Package pieceart draws the piece set. Pieces are generated as SVG with
// svgo on a 100x100 view box and rasterised with oksvg.
package pieceart

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	svg "github.com/ajstarks/svgo"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/hailam/clickchess/internal/board"
)

// ViewBox is the side of the square every glyph is drawn in.
const ViewBox = 100

// ErrNoGlyph is returned for the empty piece.
var ErrNoGlyph = errors.New("no glyph for piece")

// Palette colours one side.
type Palette struct {
	Fill   string
	Stroke string
}

var palettes = [2]Palette{
	board.White: {Fill: "#f0ede4", Stroke: "#1a1a1a"},
	board.Black: {Fill: "#383838", Stroke: "#0d0d0d"},
}

func (p Palette) body() string {
	return fmt.Sprintf("fill:%s;stroke:%s;stroke-width:3;stroke-linejoin:round", p.Fill, p.Stroke)
}

func (p Palette) detail() string {
	return fmt.Sprintf("fill:%s;stroke:none", p.Stroke)
}

// SVG returns the glyph for p.
func SVG(p board.Piece) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write draws the glyph for p to w.
func Write(w io.Writer, p board.Piece) error {
	c, ok := p.ColorOf()
	if !ok || p.Type > board.King {
		return ErrNoGlyph
	}
	pal := palettes[c]

	canvas := svg.New(w)
	canvas.Startview(ViewBox, ViewBox, 0, 0, ViewBox, ViewBox)
	canvas.Roundrect(20, 78, 60, 12, 4, 4, pal.body())

	switch p.Type {
	case board.Pawn:
		canvas.Polygon([]int{38, 62, 70, 30}, []int{48, 48, 78, 78}, pal.body())
		canvas.Circle(50, 35, 13, pal.body())
	case board.Rook:
		canvas.Rect(30, 30, 40, 48, pal.body())
		for _, x := range []int{26, 44, 62} {
			canvas.Rect(x, 18, 12, 14, pal.body())
		}
	case board.Knight:
		canvas.Polygon(
			[]int{32, 36, 28, 34, 48, 58, 72, 70, 60, 56, 66},
			[]int{78, 52, 44, 26, 14, 18, 36, 52, 48, 60, 78},
			pal.body())
		canvas.Circle(50, 28, 3, pal.detail())
	case board.Bishop:
		canvas.Polygon([]int{36, 64, 70, 30}, []int{68, 68, 78, 78}, pal.body())
		canvas.Ellipse(50, 48, 16, 22, pal.body())
		canvas.Circle(50, 18, 6, pal.body())
		canvas.Line(44, 40, 56, 52, "stroke:"+pal.Stroke+";stroke-width:3")
	case board.Queen:
		canvas.Polygon(
			[]int{24, 36, 42, 50, 58, 64, 76, 70, 30},
			[]int{30, 50, 22, 46, 22, 50, 30, 78, 78},
			pal.body())
		for _, x := range []int{24, 42, 58, 76} {
			y := 22
			if x == 24 || x == 76 {
				y = 30
			}
			canvas.Circle(x, y, 4, pal.body())
		}
	case board.King:
		canvas.Polygon([]int{30, 34, 66, 70}, []int{78, 44, 44, 78}, pal.body())
		canvas.Rect(46, 10, 8, 28, pal.body())
		canvas.Rect(38, 18, 24, 8, pal.body())
		canvas.Rect(32, 40, 36, 8, pal.body())
	}

	canvas.End()
	return nil
}

// Rasterize renders an SVG document into a size x size image.
func Rasterize(r io.Reader, size int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(r)
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, rgba, rgba.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)
	return rgba, nil
}

// Render draws p at size pixels.
func Render(p board.Piece, size int) (*image.RGBA, error) {
	data, err := SVG(p)
	if err != nil {
		return nil, err
	}
	return Rasterize(bytes.NewReader(data), size)
}
