package ui

import (
	"fmt"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/hailam/clickchess/internal/ui/boardview"
)

// Panel dimensions
const (
	PanelPadding    = 20
	ButtonHeight    = 36
	CollapsedWidth  = 20
	CollapseButtonW = 16
	CollapseButtonH = 48
	SectionLabelH   = 20
	ChartHeight     = 70
	rowHeight       = 22
)

// Panel is the side panel: actions, move list, score chart and status.
type Panel struct {
	game      *Game
	collapsed bool

	collapseBtn *Button
	buttons     []*Button
	engineBtn   *Button

	scrollY    int
	maxScrollY int
}

// NewPanel creates a new panel for the given game.
func NewPanel(g *Game) *Panel {
	p := &Panel{game: g}
	p.createButtons()
	return p
}

func (p *Panel) createButtons() {
	tabY := (ScreenHeight - CollapseButtonH) / 2
	p.collapseBtn = &Button{X: BoardSize, Y: tabY, W: CollapseButtonW, H: CollapseButtonH, OnClick: p.toggleCollapse}
	if p.collapsed {
		p.collapseBtn.X = BoardSize + 2
	}

	contentX := BoardSize + PanelPadding
	contentW := PanelWidth - PanelPadding*2
	half := (contentW - 8) / 2
	y := PanelPadding + 8

	newGame := &Button{X: contentX, Y: y, W: contentW, H: ButtonHeight + 4, Label: "New Game", Primary: true, OnClick: p.game.NewGameAction}
	y += ButtonHeight + 12
	flip := &Button{X: contentX, Y: y, W: half, H: ButtonHeight, Label: "Flip Board", OnClick: p.game.FlipAction}
	settings := &Button{X: contentX + half + 8, Y: y, W: half, H: ButtonHeight, Label: "Settings", OnClick: p.game.ShowSettings}
	y += ButtonHeight + 8
	p.engineBtn = &Button{X: contentX, Y: y, W: contentW, H: ButtonHeight, OnClick: p.game.ToggleEngineAction}

	p.buttons = []*Button{newGame, flip, settings, p.engineBtn}
}

// historyTop is the y of the move list label.
func (p *Panel) historyTop() int {
	return p.engineBtn.Y + p.engineBtn.H + 24
}

// historyBottom is where the move list stops and the chart begins.
func (p *Panel) historyBottom() int {
	return ScreenHeight - 80 - ChartHeight - SectionLabelH - 12
}

// HandleInput processes input for the panel. Returns true if input was handled.
func (p *Panel) HandleInput(input *InputHandler) bool {
	if p.collapseBtn.Update(input) {
		return true
	}
	if p.collapsed {
		return false
	}

	mx, my := input.MousePosition()
	if w := input.Wheel(); w != 0 && mx >= BoardSize && my >= p.historyTop() && my < p.historyBottom() {
		p.scrollY -= int(w * 30)
		p.clampScroll()
	}

	for _, b := range p.buttons {
		if b.Update(input) {
			return true
		}
	}
	return mx >= BoardSize && input.IsLeftJustPressed()
}

func (p *Panel) clampScroll() {
	p.scrollY = max(0, min(p.scrollY, p.maxScrollY))
}

// ResetScroll returns the move list to the top.
func (p *Panel) ResetScroll() {
	p.scrollY = 0
}

// AnyButtonHovered returns true if any button in the panel is hovered.
func (p *Panel) AnyButtonHovered() bool {
	if p.collapseBtn.hovered {
		return true
	}
	if p.collapsed {
		return false
	}
	for _, b := range p.buttons {
		if b.hovered {
			return true
		}
	}
	return false
}

// Draw renders the panel.
func (p *Panel) Draw(screen *ebiten.Image) {
	panelX := float32(BoardSize)
	if p.collapsed {
		vector.DrawFilledRect(screen, panelX, 0, CollapsedWidth, ScreenHeight, panelBg, false)
		p.drawCollapseButton(screen, true)
		return
	}
	vector.DrawFilledRect(screen, panelX, 0, PanelWidth, ScreenHeight, panelBg, false)
	p.drawCollapseButton(screen, false)

	p.engineBtn.Label = "Engine: off"
	p.engineBtn.Active = false
	switch prefs := p.game.Preferences(); {
	case !p.game.HasEngine():
		p.engineBtn.Label = "Engine: not configured"
	case prefs.EngineEnabled:
		p.engineBtn.Label = fmt.Sprintf("Engine plays Black (%s)", prefs.EngineMoveTime)
		p.engineBtn.Active = true
	}
	for _, b := range p.buttons {
		b.Draw(screen)
	}

	m := p.game.Model()
	x := BoardSize + PanelPadding
	top := p.historyTop()
	drawText(screen, "Moves", x, top, textMuted)
	p.drawMoveHistory(screen, m.Rows, top+SectionLabelH+4)

	chartTop := p.historyBottom() + 12
	drawText(screen, "Material", x, chartTop, textMuted)
	p.drawChart(screen, m.Scores, image.Rect(x, chartTop+SectionLabelH, BoardSize+PanelWidth-PanelPadding, chartTop+SectionLabelH+ChartHeight))

	p.drawStatusBar(screen, m)
}

func (p *Panel) drawCollapseButton(screen *ebiten.Image, expand bool) {
	btn := p.collapseBtn
	bg := panelBg
	if btn.hovered {
		bg = sectionBg
	}
	vector.DrawFilledRect(screen, float32(btn.X), float32(btn.Y), float32(btn.W), float32(btn.H), bg, false)

	arrow := "‹"
	if expand {
		arrow = "›"
	}
	fg := textMuted
	if btn.hovered {
		fg = textPrimary
	}
	drawTextCentered(screen, arrow, btn.X+btn.W/2, btn.Y+btn.H/2, fg, GetRegularFace())
}

func (p *Panel) drawMoveHistory(screen *ebiten.Image, rows []boardview.MoveRow, startY int) {
	x := BoardSize + PanelPadding
	if len(rows) == 0 {
		drawText(screen, "No moves yet", x, startY+5, textMuted)
		return
	}

	maxY := p.historyBottom()
	visible := maxY - startY
	content := len(rows) * rowHeight
	p.maxScrollY = max(0, content-visible)
	p.clampScroll()

	y := startY - p.scrollY%rowHeight
	for i := p.scrollY / rowHeight; i < len(rows) && y+rowHeight <= maxY; i++ {
		if y >= startY {
			if i%2 == 1 {
				vector.DrawFilledRect(screen, float32(x-4), float32(y-2), float32(PanelWidth-PanelPadding*2+8), rowHeight, sectionBg, false)
			}
			row := rows[i]
			drawText(screen, fmt.Sprintf("%d.", row.Number), x, y, textMuted)
			drawText(screen, row.White, x+36, y, textPrimary)
			drawText(screen, row.Black, x+126, y, textPrimary)
		}
		y += rowHeight
	}

	if p.maxScrollY > 0 {
		pct := float32(p.scrollY) / float32(p.maxScrollY)
		barH := max(20, float32(visible)*float32(visible)/float32(content))
		barY := float32(startY) + pct*(float32(visible)-barH)
		vector.DrawFilledRect(screen, float32(BoardSize+PanelWidth-8), barY, 4, barH, textMuted, false)
	}
}

// drawChart plots the material balance after every ply, White up.
func (p *Panel) drawChart(screen *ebiten.Image, scores []int, r image.Rectangle) {
	vector.DrawFilledRect(screen, float32(r.Min.X), float32(r.Min.Y), float32(r.Dx()), float32(r.Dy()), sectionBg, false)
	mid := float32(r.Min.Y + r.Dy()/2)
	vector.StrokeLine(screen, float32(r.Min.X), mid, float32(r.Max.X), mid, 1, dividerColor, false)

	pts := boardview.Chart(scores, r)
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		vector.StrokeLine(screen, float32(a.X), float32(a.Y), float32(b.X), float32(b.Y), 2, accentColor, true)
	}
	if n := len(scores); n > 0 {
		drawText(screen, fmt.Sprintf("%+d", scores[n-1]), r.Max.X-44, r.Min.Y+2, textSecondary)
	}
}

func (p *Panel) drawStatusBar(screen *ebiten.Image, m *boardview.Model) {
	statusY := ScreenHeight - 60
	x := BoardSize + PanelPadding
	vector.DrawFilledRect(screen, float32(x), float32(statusY-10), float32(PanelWidth-PanelPadding*2), 1, dividerColor, false)

	name := p.game.Preferences().PlayerName
	if len(name) > 16 {
		name = name[:16] + "..."
	}
	drawText(screen, name, x, statusY, textPrimary)

	status, c := m.Status, textPrimary
	switch {
	case m.GameOver:
		c = statusGameOver
	case p.game.EngineThinking():
		status, c = "Engine thinking...", statusThinking
	}
	drawText(screen, status, x, statusY+22, c)
}

// Collapsed returns whether the panel is collapsed.
func (p *Panel) Collapsed() bool {
	return p.collapsed
}

func (p *Panel) toggleCollapse() {
	p.collapsed = !p.collapsed
	p.createButtons()
	if p.collapsed {
		ebiten.SetWindowSize(BoardSize+CollapsedWidth, ScreenHeight)
	} else {
		ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
	}
}
