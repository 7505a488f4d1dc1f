package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
)

// pickerModel is the voice model chooser: a filterable list of the .onnx
// files in the models directory.
type pickerModel struct {
	filter  textinput.Model
	models  []string
	visible []string
	cursor  int
	height  int
}

func newPickerModel() pickerModel {
	filter := textinput.New()
	filter.Placeholder = "Filter models"
	filter.Prompt = "/ "
	filter.Focus()

	return pickerModel{filter: filter, height: 24}
}

func (p *pickerModel) setModels(models []string) {
	p.models = models
	p.applyFilter()
}

func (p *pickerModel) setSize(width, height int) {
	p.height = height
	p.filter.Width = width - 6
}

// reset clears the filter and cursor for a fresh pick.
func (p *pickerModel) reset() {
	p.filter.SetValue("")
	p.cursor = 0
	p.applyFilter()
}

func (p *pickerModel) selected() (string, bool) {
	if p.cursor < 0 || p.cursor >= len(p.visible) {
		return "", false
	}
	return p.visible[p.cursor], true
}

// applyFilter recomputes the visible list from the filter text. An empty
// filter shows everything in directory order.
func (p *pickerModel) applyFilter() {
	query := strings.TrimSpace(p.filter.Value())
	if query == "" {
		p.visible = p.models
	} else {
		matches := fuzzy.Find(query, p.models)
		visible := make([]string, 0, len(matches))
		for _, match := range matches {
			visible = append(visible, p.models[match.Index])
		}
		p.visible = visible
	}

	if p.cursor >= len(p.visible) {
		p.cursor = len(p.visible) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

func (p pickerModel) update(msg tea.KeyMsg) (pickerModel, tea.Cmd) {
	switch msg.String() {
	case "up", "ctrl+k":
		if p.cursor > 0 {
			p.cursor--
		}
		return p, nil
	case "down", "ctrl+j":
		if p.cursor < len(p.visible)-1 {
			p.cursor++
		}
		return p, nil
	}

	var cmd tea.Cmd
	p.filter, cmd = p.filter.Update(msg)
	p.applyFilter()
	return p, cmd
}

func (p pickerModel) view() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Choose a voice"))
	b.WriteString("\n\n")
	b.WriteString(p.filter.View())
	b.WriteString("\n\n")

	if len(p.visible) == 0 {
		if len(p.models) == 0 {
			b.WriteString(mutedStyle.Render("No models found. Download one with ctrl+d."))
		} else {
			b.WriteString(mutedStyle.Render("Nothing matches."))
		}
	}

	visibleRows := max(4, p.height-8)
	start := 0
	if p.cursor >= visibleRows {
		start = p.cursor - visibleRows + 1
	}

	for i := start; i < len(p.visible) && i < start+visibleRows; i++ {
		name := p.visible[i]
		if i == p.cursor {
			b.WriteString(selectedItemStyle.Render(fmt.Sprintf("> %s", name)))
		} else {
			b.WriteString(itemStyle.Render(fmt.Sprintf("  %s", name)))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ move • enter load • esc back"))

	return "\n" + indent(b.String())
}
