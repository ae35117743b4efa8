package ui

import (
	"bytes"

	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/hailam/clickchess/internal/obslog"
)

var (
	regularFace *text.GoTextFace
	boldFace    *text.GoTextFace
	// coordFace labels files and ranks on the board edge.
	coordFace *text.GoTextFace
)

const (
	defaultFontSize = 14.0
	titleFontSize   = 16.0
	coordFontSize   = 11.0
)

func init() {
	initFonts()
}

func initFonts() {
	regularSource, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		obslog.L().Warn("ui: load regular font", zap.Error(err))
		return
	}
	regularFace = &text.GoTextFace{Source: regularSource, Size: defaultFontSize}

	boldSource, err := text.NewGoTextFaceSource(bytes.NewReader(gobold.TTF))
	if err != nil {
		obslog.L().Warn("ui: load bold font", zap.Error(err))
		return
	}
	boldFace = &text.GoTextFace{Source: boldSource, Size: titleFontSize}
	coordFace = &text.GoTextFace{Source: boldSource, Size: coordFontSize}
}

// GetRegularFace returns the regular font face.
func GetRegularFace() *text.GoTextFace {
	return regularFace
}

// GetBoldFace returns the bold font face.
func GetBoldFace() *text.GoTextFace {
	return boldFace
}

// MeasureText returns the width and height of the given text.
func MeasureText(s string, face *text.GoTextFace) (width, height float64) {
	if face == nil {
		return 0, 0
	}
	return text.Measure(s, face, 0)
}
