package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func keyMsg(s string) tea.KeyMsg {
	if len(s) == 1 {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{}
}

// TestPickerFilter tests fuzzy filtering of the model list.
func TestPickerFilter(t *testing.T) {
	p := newPickerModel()
	p.setModels([]string{"en_GB-cori-high.onnx", "en_US-amy-medium.onnx", "fr_FR-siwis-low.onnx"})

	p, _ = p.update(keyMsg("a"))
	p, _ = p.update(keyMsg("m"))
	p, _ = p.update(keyMsg("y"))

	if len(p.visible) != 1 {
		t.Fatalf("visible = %v, want one match", p.visible)
	}
	if name, ok := p.selected(); !ok || name != "en_US-amy-medium.onnx" {
		t.Errorf("selected = %q, %v", name, ok)
	}
}

// TestPickerFilterNoMatch tests that a dead-end filter leaves no selection.
func TestPickerFilterNoMatch(t *testing.T) {
	p := newPickerModel()
	p.setModels([]string{"alpha.onnx"})

	p, _ = p.update(keyMsg("z"))
	p, _ = p.update(keyMsg("q"))

	if len(p.visible) != 0 {
		t.Fatalf("visible = %v, want none", p.visible)
	}
	if _, ok := p.selected(); ok {
		t.Error("selected() should report no selection")
	}
}

// TestPickerCursor tests cursor movement and bounds.
func TestPickerCursor(t *testing.T) {
	p := newPickerModel()
	p.setModels([]string{"a.onnx", "b.onnx", "c.onnx"})

	p, _ = p.update(keyMsg("up")) // already at top
	if p.cursor != 0 {
		t.Errorf("cursor = %d, want 0", p.cursor)
	}

	p, _ = p.update(keyMsg("down"))
	p, _ = p.update(keyMsg("down"))
	p, _ = p.update(keyMsg("down")) // past the end
	if p.cursor != 2 {
		t.Errorf("cursor = %d, want 2", p.cursor)
	}

	if name, ok := p.selected(); !ok || name != "c.onnx" {
		t.Errorf("selected = %q, %v", name, ok)
	}
}

// TestPickerReset tests that reset clears filter state.
func TestPickerReset(t *testing.T) {
	p := newPickerModel()
	p.setModels([]string{"a.onnx", "b.onnx"})

	p, _ = p.update(keyMsg("b"))
	p.reset()

	if p.filter.Value() != "" {
		t.Errorf("filter = %q, want empty", p.filter.Value())
	}
	if len(p.visible) != 2 {
		t.Errorf("visible = %v, want full list", p.visible)
	}
	if p.cursor != 0 {
		t.Errorf("cursor = %d, want 0", p.cursor)
	}
}

// TestPickerRefreshClampsCursor tests that a shrinking model list pulls the
// cursor back into range.
func TestPickerRefreshClampsCursor(t *testing.T) {
	p := newPickerModel()
	p.setModels([]string{"a.onnx", "b.onnx", "c.onnx"})
	p, _ = p.update(keyMsg("down"))
	p, _ = p.update(keyMsg("down"))

	p.setModels([]string{"a.onnx"})

	if name, ok := p.selected(); !ok || name != "a.onnx" {
		t.Errorf("selected = %q, %v", name, ok)
	}
}
