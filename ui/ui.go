// Package ui provides the terminal UI for piperspeak.
package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/piperspeak/piperspeak/tts"
)

// speedStep and volumeStep are the per-keypress parameter increments.
const (
	speedStep  = 0.1
	volumeStep = 0.05
)

// NewProgram returns a new Tea program over the given session.
func NewProgram(cfg Config, session *tts.Session) *tea.Program {
	log.Debug("starting ui", "models_dir", cfg.ModelsDir, "default_model", cfg.DefaultModel)
	return tea.NewProgram(newModel(cfg, session), tea.WithAltScreen())
}

// state is the top-level application state.
type state int

const (
	stateCompose state = iota
	statePickModel
	statePromptDownload
	statePromptExport
)

func (s state) String() string {
	return map[state]string{
		stateCompose:        "composing text",
		statePickModel:      "picking a model",
		statePromptDownload: "entering a voice id",
		statePromptExport:   "entering an export path",
	}[s]
}

// sessionEventMsg wraps one event from the session's stream.
type sessionEventMsg struct{ event tts.Event }

// waitForEvent blocks on the session stream and delivers the next event.
// The update loop re-arms it after every delivery.
func waitForEvent(events <-chan tts.Event) tea.Cmd {
	return func() tea.Msg {
		return sessionEventMsg{event: <-events}
	}
}

type model struct {
	cfg     Config
	session *tts.Session

	width  int
	height int
	state  state

	input    textarea.Model
	picker   pickerModel
	download textinput.Model
	export   textinput.Model
	spinner  spinner.Model

	statuses statusLog
	params   tts.SynthesisParams
	playing  bool
	working  bool
}

func newModel(cfg Config, session *tts.Session) model {
	input := textarea.New()
	input.Placeholder = "Type something to speak..."
	input.CharLimit = 0
	input.Focus()

	download := textinput.New()
	download.Placeholder = "en_GB-cori-high"

	export := textinput.New()
	export.Placeholder = "speech.wav"

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	picker := newPickerModel()
	picker.setModels(session.Models())

	return model{
		cfg:      cfg,
		session:  session,
		state:    stateCompose,
		input:    input,
		picker:   picker,
		download: download,
		export:   export,
		spinner:  sp,
		statuses: newStatusLog(statusLogDepth),
		params:   cfg.Params,
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textarea.Blink,
		m.spinner.Tick,
		waitForEvent(m.session.Events()),
	}

	if m.cfg.DefaultModel != "" {
		model := m.cfg.DefaultModel
		session := m.session
		useGPU := session.UseGPU()
		cmds = append(cmds, func() tea.Msg {
			session.LoadModel(model, useGPU)
			return nil
		})
	}

	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(msg.Width - 4)
		m.input.SetHeight(max(3, msg.Height-12))
		m.picker.setSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case statePickModel:
			return m.updatePicker(msg)
		case statePromptDownload:
			return m.updateDownloadPrompt(msg)
		case statePromptExport:
			return m.updateExportPrompt(msg)
		}
		return m.updateCompose(msg)

	case sessionEventMsg:
		m.applyEvent(msg.event)
		return m, waitForEvent(m.session.Events())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// applyEvent folds one session event into the model.
func (m *model) applyEvent(e tts.Event) {
	switch e := e.(type) {
	case tts.StatusEvent:
		m.statuses.push(e.Text)
		m.working = strings.HasSuffix(e.Text, "...")
	case tts.PlaybackEvent:
		m.playing = e.Playing
	case tts.ModelListEvent:
		m.picker.setModels(e.Models)
	}
}

func (m model) updateCompose(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.session.Close()
		return m, tea.Quit

	case "ctrl+p":
		if m.playing {
			m.session.StopPlayback()
			return m, nil
		}
		text := m.input.Value()
		params := m.params
		session := m.session
		return m, func() tea.Msg {
			if _, err := session.SynthesizeAndPlay(text, params); err != nil {
				log.Debug("play rejected", "err", err)
			}
			return nil
		}

	case "ctrl+o":
		m.state = statePickModel
		m.picker.setModels(m.session.Models())
		m.picker.reset()
		return m, nil

	case "ctrl+d":
		m.state = statePromptDownload
		m.download.SetValue("")
		return m, m.download.Focus()

	case "ctrl+s":
		m.state = statePromptExport
		m.export.SetValue("")
		return m, m.export.Focus()

	case "ctrl+r":
		session := m.session
		return m, func() tea.Msg {
			session.RefreshModels()
			return nil
		}

	case "ctrl+g":
		m.session.SetUseGPU(!m.session.UseGPU())
		return m, nil

	case "ctrl+n":
		m.params.Normalize = !m.params.Normalize
		return m, nil

	case "ctrl+up":
		m.params.Speed = (tts.SynthesisParams{Speed: m.params.Speed + speedStep}).Clamp().Speed
		return m, nil

	case "ctrl+down":
		m.params.Speed = (tts.SynthesisParams{Speed: m.params.Speed - speedStep}).Clamp().Speed
		return m, nil

	case "ctrl+right":
		m.params.Volume = clampVolume(m.params.Volume + volumeStep)
		return m, nil

	case "ctrl+left":
		m.params.Volume = clampVolume(m.params.Volume - volumeStep)
		return m, nil

	case "ctrl+y":
		if last := m.statuses.last(); last != "" {
			if err := clipboard.WriteAll(last); err != nil {
				log.Debug("clipboard", "err", err)
			} else {
				m.statuses.push("Copied to clipboard")
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.session.Close()
		return m, tea.Quit
	case "esc":
		m.state = stateCompose
		return m, nil
	case "enter":
		name, ok := m.picker.selected()
		if !ok {
			return m, nil
		}
		m.state = stateCompose
		session := m.session
		useGPU := session.UseGPU()
		return m, func() tea.Msg {
			session.LoadModel(name, useGPU)
			return nil
		}
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.update(msg)
	return m, cmd
}

func (m model) updateDownloadPrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.session.Close()
		return m, tea.Quit
	case "esc":
		m.state = stateCompose
		m.download.Blur()
		return m, nil
	case "enter":
		id := strings.TrimSpace(m.download.Value())
		m.state = stateCompose
		m.download.Blur()
		if id == "" {
			return m, nil
		}
		session := m.session
		return m, func() tea.Msg {
			if _, err := session.DownloadVoice(id); err != nil {
				log.Debug("download rejected", "err", err)
			}
			return nil
		}
	}

	var cmd tea.Cmd
	m.download, cmd = m.download.Update(msg)
	return m, cmd
}

func (m model) updateExportPrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.session.Close()
		return m, tea.Quit
	case "esc":
		m.state = stateCompose
		m.export.Blur()
		return m, nil
	case "enter":
		path := strings.TrimSpace(m.export.Value())
		m.state = stateCompose
		m.export.Blur()
		if path == "" {
			return m, nil
		}
		text := m.input.Value()
		params := m.params
		session := m.session
		return m, func() tea.Msg {
			if _, err := session.SynthesizeToFile(text, params, path); err != nil {
				log.Debug("export rejected", "err", err)
			}
			return nil
		}
	}

	var cmd tea.Cmd
	m.export, cmd = m.export.Update(msg)
	return m, cmd
}

func (m model) View() string {
	switch m.state {
	case statePickModel:
		return m.picker.view()
	case statePromptDownload:
		return m.promptView("Download voice", "Voice id, e.g. en_GB-cori-high", m.download.View())
	case statePromptExport:
		return m.promptView("Export WAV", "Path to write", m.export.View())
	}
	return m.composeView()
}

func (m model) composeView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("piperspeak"))
	b.WriteString("  ")
	b.WriteString(m.voiceLine())
	b.WriteString("\n\n")

	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	b.WriteString(paramStyle.Render(fmt.Sprintf(
		"speed %.1fx │ volume %.0f%% │ normalize %s",
		m.params.Speed, m.params.Volume*100, onOff(m.params.Normalize),
	)))
	b.WriteString("\n\n")

	if m.working || m.playing {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
	}
	b.WriteString(m.statuses.view(m.width - 4))
	b.WriteString("\n")

	b.WriteString(helpStyle.Render(truncateLine(
		"^p play/stop • ^s export • ^o models • ^d download • ^r refresh • ^g gpu • ^n normalize • ^↑/↓ speed • ^←/→ volume • ^y copy • ^c quit",
		m.width-2,
	)))

	return "\n" + indent(b.String())
}

func (m model) promptView(title, hint, field string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
	b.WriteString(field)
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(hint + " • enter confirm • esc cancel"))
	return "\n" + indent(b.String())
}

func (m model) voiceLine() string {
	v := m.session.CurrentVoice()
	if v == nil {
		return mutedStyle.Render("no voice loaded")
	}
	return voiceStyle.Render(fmt.Sprintf("%s (%s, %d Hz)", v.Name, v.Device(), v.SampleRate))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func clampVolume(v float64) float64 {
	return (tts.SynthesisParams{Volume: v}).Clamp().Volume
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = "  " + line
		}
	}
	return strings.Join(lines, "\n")
}
