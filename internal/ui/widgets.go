package ui

import (
	"image/color"
	"unicode/utf8"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

var (
	panelBg         = color.RGBA{38, 40, 45, 255}
	sectionBg       = color.RGBA{48, 52, 58, 255}
	tabActiveBg     = color.RGBA{76, 132, 96, 255}
	tabInactiveBg   = color.RGBA{50, 54, 60, 255}
	buttonBg        = color.RGBA{50, 54, 60, 255}
	buttonHoverBg   = color.RGBA{65, 70, 78, 255}
	buttonPressedBg = color.RGBA{40, 44, 50, 255}
	buttonBorder    = color.RGBA{70, 75, 82, 255}
	accentColor     = color.RGBA{76, 175, 120, 255}
	accentHover     = color.RGBA{96, 195, 140, 255}
	accentPressed   = color.RGBA{56, 155, 100, 255}
	textPrimary     = color.RGBA{240, 240, 245, 255}
	textSecondary   = color.RGBA{160, 165, 175, 255}
	textMuted       = color.RGBA{120, 125, 135, 255}
	dividerColor    = color.RGBA{60, 65, 72, 255}
	statusThinking  = color.RGBA{100, 180, 255, 255}
	statusGameOver  = color.RGBA{255, 200, 80, 255}
	widgetBg        = color.RGBA{48, 52, 58, 255}
	widgetBorder    = color.RGBA{68, 72, 78, 255}
)

// drawText draws s with its top-left corner at x, y.
func drawText(screen *ebiten.Image, s string, x, y int, c color.Color) {
	face := GetRegularFace()
	if face == nil {
		return
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(x), float64(y))
	op.ColorScale.ScaleWithColor(c)
	text.Draw(screen, s, face, op)
}

// drawTextCentered draws s centred on cx, cy.
func drawTextCentered(screen *ebiten.Image, s string, cx, cy int, c color.Color, face *text.GoTextFace) {
	if face == nil {
		return
	}
	w, h := MeasureText(s, face)
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(cx)-w/2, float64(cy)-h/2)
	op.ColorScale.ScaleWithColor(c)
	text.Draw(screen, s, face, op)
}

// Button is a clickable rectangle. Primary buttons use the accent colour;
// Active marks the selected tab of a group.
type Button struct {
	X, Y, W, H int
	Label      string
	Primary    bool
	Active     bool
	OnClick    func()
	hovered    bool
	pressed    bool
}

// Update tracks hover and press state and fires OnClick. It reports
// whether the click was consumed.
func (b *Button) Update(input *InputHandler) bool {
	b.hovered = input.IsInBounds(b.X, b.Y, b.W, b.H)
	b.pressed = input.IsLeftPressed() && b.hovered
	if input.IsLeftJustPressed() && b.hovered && b.OnClick != nil {
		b.OnClick()
		return true
	}
	return false
}

// Draw renders the button.
func (b *Button) Draw(screen *ebiten.Image) {
	bg, border, fg := buttonBg, buttonBorder, textSecondary
	switch {
	case b.Primary:
		bg, border, fg = accentColor, accentPressed, textPrimary
		if b.pressed {
			bg = accentPressed
		} else if b.hovered {
			bg, border = accentHover, color.RGBA{116, 215, 160, 255}
		}
	case b.Active:
		bg, border, fg = tabActiveBg, tabActiveBg, textPrimary
	case b.pressed:
		bg = buttonPressedBg
	case b.hovered:
		bg, border = buttonHoverBg, accentColor
	}
	vector.DrawFilledRect(screen, float32(b.X), float32(b.Y), float32(b.W), float32(b.H), bg, false)
	vector.StrokeRect(screen, float32(b.X), float32(b.Y), float32(b.W), float32(b.H), 1, border, false)
	drawTextCentered(screen, b.Label, b.X+b.W/2, b.Y+b.H/2, fg, GetRegularFace())
}

// TextInput is an editable text field widget.
type TextInput struct {
	X, Y, W, H  int
	Value       string
	Placeholder string
	MaxLength   int
	focused     bool
	hovered     bool
	cursorBlink int
}

// NewTextInput creates a new text input widget.
func NewTextInput(x, y, w, h int, placeholder string, maxLen int) *TextInput {
	return &TextInput{X: x, Y: y, W: w, H: h, Placeholder: placeholder, MaxLength: maxLen}
}

// Update handles focus, typing and backspace.
func (ti *TextInput) Update(input *InputHandler) bool {
	ti.hovered = input.IsInBounds(ti.X, ti.Y, ti.W, ti.H)
	if input.IsLeftJustPressed() {
		ti.focused = ti.hovered
	}
	if !ti.focused {
		return false
	}

	ti.cursorBlink = (ti.cursorBlink + 1) % 60
	for _, c := range input.Typed() {
		if ti.MaxLength == 0 || utf8.RuneCountInString(ti.Value) < ti.MaxLength {
			ti.Value += string(c)
		}
	}
	if IsKeyRepeating(ebiten.KeyBackspace) && ti.Value != "" {
		_, size := utf8.DecodeLastRuneInString(ti.Value)
		ti.Value = ti.Value[:len(ti.Value)-size]
	}
	if IsKeyJustPressed(ebiten.KeyEscape) {
		ti.focused = false
	}
	return true
}

// Draw renders the text input.
func (ti *TextInput) Draw(screen *ebiten.Image) {
	border := widgetBorder
	if ti.focused || ti.hovered {
		border = accentColor
	}
	vector.DrawFilledRect(screen, float32(ti.X), float32(ti.Y), float32(ti.W), float32(ti.H), widgetBg, false)
	vector.StrokeRect(screen, float32(ti.X), float32(ti.Y), float32(ti.W), float32(ti.H), 2, border, false)

	face := GetRegularFace()
	if face == nil {
		return
	}
	s, c := ti.Value, color.Color(textPrimary)
	if s == "" {
		s, c = ti.Placeholder, textMuted
	}
	_, h := MeasureText(s, face)
	x := ti.X + 10
	drawText(screen, s, x, ti.Y+ti.H/2-int(h/2), c)

	if ti.focused && ti.cursorBlink < 30 {
		w, _ := MeasureText(ti.Value, face)
		vector.DrawFilledRect(screen, float32(x)+float32(w)+2, float32(ti.Y+8), 2, float32(ti.H-16), textPrimary, false)
	}
}

// IsFocused returns true if the input is focused.
func (ti *TextInput) IsFocused() bool {
	return ti.focused
}

// SetFocused sets the focus state.
func (ti *TextInput) SetFocused(focused bool) {
	ti.focused = focused
}

// Checkbox is a toggleable checkbox widget.
type Checkbox struct {
	X, Y    int
	Label   string
	Checked bool
	hovered bool
}

// NewCheckbox creates a new checkbox.
func NewCheckbox(x, y int, label string, checked bool) *Checkbox {
	return &Checkbox{X: x, Y: y, Label: label, Checked: checked}
}

// Update toggles the box on click.
func (cb *Checkbox) Update(input *InputHandler) bool {
	cb.hovered = input.IsInBounds(cb.X, cb.Y, 240, 24)
	if input.IsLeftJustPressed() && cb.hovered {
		cb.Checked = !cb.Checked
		return true
	}
	return false
}

// Draw renders the checkbox.
func (cb *Checkbox) Draw(screen *ebiten.Image) {
	x, y, size := float32(cb.X), float32(cb.Y), float32(20)
	border := widgetBorder
	if cb.hovered || cb.Checked {
		border = accentColor
	}
	vector.DrawFilledRect(screen, x, y, size, size, widgetBg, false)
	vector.StrokeRect(screen, x, y, size, size, 2, border, false)
	if cb.Checked {
		vector.StrokeLine(screen, x+4, y+10, x+8, y+14, 2, accentColor, false)
		vector.StrokeLine(screen, x+8, y+14, x+16, y+6, 2, accentColor, false)
	}

	fg := textSecondary
	if cb.Checked {
		fg = textPrimary
	}
	drawText(screen, cb.Label, cb.X+30, cb.Y+2, fg)
}

// ButtonGroup is a horizontal row of mutually exclusive buttons.
type ButtonGroup struct {
	Selected int
	buttons  []*Button
}

// NewButtonGroup lays out one button per label.
func NewButtonGroup(x, y int, labels []string, selected, buttonW, buttonH int) *ButtonGroup {
	bg := &ButtonGroup{Selected: selected}
	for i, label := range labels {
		i := i
		bg.buttons = append(bg.buttons, &Button{
			X: x + i*buttonW, Y: y, W: buttonW, H: buttonH,
			Label:   label,
			OnClick: func() { bg.Selected = i },
		})
	}
	return bg
}

// Update handles button group input.
func (bg *ButtonGroup) Update(input *InputHandler) bool {
	consumed := false
	for _, b := range bg.buttons {
		if b.Update(input) {
			consumed = true
		}
	}
	return consumed
}

// Draw renders the button group.
func (bg *ButtonGroup) Draw(screen *ebiten.Image) {
	for i, b := range bg.buttons {
		b.Active = i == bg.Selected
		b.Draw(screen)
	}
}

// Hovered reports whether the cursor is over any button.
func (bg *ButtonGroup) Hovered() bool {
	for _, b := range bg.buttons {
		if b.hovered {
			return true
		}
	}
	return false
}
