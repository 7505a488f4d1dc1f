package tts

import "errors"

// Common errors for the synthesis and playback subsystem.
var (
	// Validation errors. These are rejected synchronously and never spawn
	// a background task.
	ErrNoVoice   = errors.New("no voice model loaded")
	ErrEmptyText = errors.New("no text to speak")
	ErrEmptyID   = errors.New("empty voice id")

	// Resource errors. The current voice is left unchanged.
	ErrModelNotFound = errors.New("model not found")
	ErrMissingConfig = errors.New("missing model config")

	// Playback errors.
	ErrPlaybackBusy = errors.New("playback already in progress")

	// Lifecycle errors.
	ErrSessionClosed = errors.New("session is closed")
)
