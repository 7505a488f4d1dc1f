package ui

import "github.com/piperspeak/piperspeak/tts"

// Config contains TUI-specific configuration.
type Config struct {
	// ModelsDir is shown in help text and error messages.
	ModelsDir string

	// DefaultModel is loaded on startup when set.
	DefaultModel string

	// Params are the initial synthesis parameters; the UI adjusts its own
	// copy from there.
	Params tts.SynthesisParams
}
