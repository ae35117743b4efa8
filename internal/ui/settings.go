package ui

import (
	"image/color"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/hailam/clickchess/internal/storage"
)

// Settings modal dimensions
const (
	SettingsWidth  = 380
	SettingsHeight = 440
	SettingsPadX   = 24
	SettingsPadY   = 20
)

var (
	modalOverlay = color.RGBA{0, 0, 0, 180}
	modalBg      = color.RGBA{38, 40, 45, 255}
	modalHeader  = color.RGBA{48, 52, 58, 255}
	modalBorder  = color.RGBA{58, 62, 68, 255}
)

// moveTimes are the engine budgets offered in the modal.
var moveTimes = []time.Duration{time.Second, 3 * time.Second, 5 * time.Second, 10 * time.Second}

// SettingsModal edits the stored preferences.
type SettingsModal struct {
	visible bool
	title   string
	x, y    int

	nameInput *TextInput
	moveTime  *ButtonGroup
	engine    *Checkbox
	flipped   *Checkbox
	sound     *Checkbox
	saveBtn   *Button
	cancelBtn *Button

	base   storage.Preferences
	onSave func(*storage.Preferences)
}

// NewSettingsModal creates a new settings modal.
func NewSettingsModal() *SettingsModal {
	sm := &SettingsModal{
		x: (ScreenWidth - SettingsWidth) / 2,
		y: (ScreenHeight - SettingsHeight) / 2,
	}
	contentX := sm.x + SettingsPadX
	contentW := SettingsWidth - SettingsPadX*2

	inputY := sm.y + 76
	sm.nameInput = NewTextInput(contentX, inputY, contentW, 36, "Enter your name", 20)

	labels := make([]string, len(moveTimes))
	for i, d := range moveTimes {
		labels[i] = d.String()
	}
	sm.moveTime = NewButtonGroup(contentX, inputY+78, labels, 1, contentW/len(moveTimes), 34)

	checkY := inputY + 140
	sm.engine = NewCheckbox(contentX, checkY, "Engine plays Black", false)
	sm.flipped = NewCheckbox(contentX, checkY+34, "Show board from Black", false)
	sm.sound = NewCheckbox(contentX, checkY+68, "Sound effects", true)

	btnW, btnH := 100, 38
	btnY := sm.y + SettingsHeight - SettingsPadY - btnH
	sm.cancelBtn = &Button{
		X: sm.x + SettingsWidth - SettingsPadX - btnW*2 - 12, Y: btnY, W: btnW, H: btnH,
		Label: "Cancel", OnClick: sm.Hide,
	}
	sm.saveBtn = &Button{
		X: sm.x + SettingsWidth - SettingsPadX - btnW, Y: btnY, W: btnW, H: btnH,
		Label: "Save", Primary: true, OnClick: sm.handleSave,
	}
	return sm
}

// Show opens the modal on prefs. onSave receives the edited copy.
func (sm *SettingsModal) Show(title string, prefs *storage.Preferences, onSave func(*storage.Preferences)) {
	sm.visible = true
	sm.title = title
	sm.base = *prefs
	sm.onSave = onSave

	sm.nameInput.Value = prefs.PlayerName
	sm.moveTime.Selected = closestMoveTime(prefs.EngineMoveTime)
	sm.engine.Checked = prefs.EngineEnabled
	sm.flipped.Checked = prefs.Flipped
	sm.sound.Checked = prefs.SoundEnabled
}

func closestMoveTime(d time.Duration) int {
	best := 0
	for i, mt := range moveTimes {
		if (mt - d).Abs() < (moveTimes[best] - d).Abs() {
			best = i
		}
	}
	return best
}

// Hide closes the modal without saving.
func (sm *SettingsModal) Hide() {
	sm.visible = false
	sm.nameInput.SetFocused(false)
}

// IsVisible returns true if the modal is visible.
func (sm *SettingsModal) IsVisible() bool {
	return sm.visible
}

func (sm *SettingsModal) handleSave() {
	prefs := sm.base
	prefs.PlayerName = strings.TrimSpace(sm.nameInput.Value)
	if prefs.PlayerName == "" {
		prefs.PlayerName = "Player"
	}
	prefs.EngineMoveTime = moveTimes[sm.moveTime.Selected]
	prefs.EngineEnabled = sm.engine.Checked
	prefs.Flipped = sm.flipped.Checked
	prefs.SoundEnabled = sm.sound.Checked

	if sm.onSave != nil {
		sm.onSave(&prefs)
	}
	sm.Hide()
}

// Update handles input for the modal. The modal consumes all input while
// it is open.
func (sm *SettingsModal) Update(input *InputHandler) bool {
	if !sm.visible {
		return false
	}
	if IsKeyJustPressed(ebiten.KeyEscape) && !sm.nameInput.IsFocused() {
		sm.Hide()
		return true
	}
	if IsKeyJustPressed(ebiten.KeyEnter) {
		sm.handleSave()
		return true
	}

	sm.nameInput.Update(input)
	sm.moveTime.Update(input)
	sm.engine.Update(input)
	sm.flipped.Update(input)
	sm.sound.Update(input)
	if !sm.saveBtn.Update(input) {
		sm.cancelBtn.Update(input)
	}
	return true
}

// AnyButtonHovered returns true if any button in the modal is hovered.
func (sm *SettingsModal) AnyButtonHovered() bool {
	if !sm.visible {
		return false
	}
	return sm.saveBtn.hovered || sm.cancelBtn.hovered || sm.moveTime.Hovered() ||
		sm.engine.hovered || sm.flipped.hovered || sm.sound.hovered
}

// Draw renders the settings modal.
func (sm *SettingsModal) Draw(screen *ebiten.Image) {
	if !sm.visible {
		return
	}

	vector.DrawFilledRect(screen, 0, 0, ScreenWidth, ScreenHeight, modalOverlay, false)
	x, y := float32(sm.x), float32(sm.y)
	vector.DrawFilledRect(screen, x, y, SettingsWidth, SettingsHeight, modalBg, false)
	vector.StrokeRect(screen, x, y, SettingsWidth, SettingsHeight, 2, modalBorder, false)
	vector.DrawFilledRect(screen, x, y, SettingsWidth, 44, modalHeader, false)
	drawTextCentered(screen, sm.title, sm.x+SettingsWidth/2, sm.y+22, textPrimary, GetBoldFace())

	contentX := sm.x + SettingsPadX
	drawText(screen, "Player Name", contentX, sm.nameInput.Y-22, textMuted)
	drawText(screen, "Engine Move Time", contentX, sm.nameInput.Y+sm.nameInput.H+18, textMuted)

	sm.nameInput.Draw(screen)
	sm.moveTime.Draw(screen)
	sm.engine.Draw(screen)
	sm.flipped.Draw(screen)
	sm.sound.Draw(screen)
	sm.saveBtn.Draw(screen)
	sm.cancelBtn.Draw(screen)
}
