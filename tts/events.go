package tts

// Events delivered from the Session to the presentation layer. The UI
// consumes them from a single channel on its own event loop, so handlers
// always run on the interactive thread.

// Event is implemented by all session events.
type Event interface {
	isEvent()
}

// StatusEvent is one line of the ordered status stream. For a given
// operation the stream is start, zero or more progress lines, and exactly
// one terminal line.
type StatusEvent struct {
	Text string
}

func (StatusEvent) isEvent() {}

// ModelListEvent carries a fresh snapshot of the available model files.
// Pure data; the current voice is not touched.
type ModelListEvent struct {
	Models []string
}

func (ModelListEvent) isEvent() {}

// PlaybackEvent reports a playback state change so the UI can flip its
// play/stop affordance without parsing status text.
type PlaybackEvent struct {
	Playing bool
}

func (PlaybackEvent) isEvent() {}
