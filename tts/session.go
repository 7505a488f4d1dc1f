// Package tts orchestrates voice loading, speech synthesis, audio export
// and playback for the application. All slow work runs on background tasks;
// the presentation layer issues commands and consumes the event stream.
package tts

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/piperspeak/piperspeak/tts/task"
)

// Synthesizer converts text to audio using a loaded voice.
type Synthesizer interface {
	Synthesize(voice *Voice, text string, params SynthesisParams) (*AudioBuffer, error)
}

// Downloader fetches a voice model and its config into a directory.
type Downloader interface {
	Download(voiceID, destDir string) error
}

// ModelLister enumerates the locally available model files.
type ModelLister interface {
	List() []string
}

// Player runs and stops playback sessions. Implemented by audio.Controller.
type Player interface {
	// Run blocks until the buffer finished playing or was stopped.
	Run(buf *AudioBuffer) (stopped bool, err error)
	// Stop requests a stop; returns false when no session is active.
	Stop() bool
	// Busy reports whether a session is non-idle.
	Busy() bool
}

// Deps are the collaborators a Session drives.
type Deps struct {
	Loader      Loader
	Synthesizer Synthesizer
	Downloader  Downloader
	Models      ModelLister
	Playback    Player

	// WriteWAV writes a buffer to a container file (wavio.Write in
	// production).
	WriteWAV func(path string, buf *AudioBuffer) error
}

// Session is the façade the presentation layer talks to. Every operation
// validates synchronously, then runs on a background task and reports a
// single terminal status through the event stream.
type Session struct {
	cfg      Config
	deps     Deps
	registry *Registry

	events chan Event
	done   chan struct{}

	mu        sync.Mutex
	useGPU    bool
	closeOnce sync.Once
}

// NewSession creates a session over the given collaborators.
func NewSession(cfg Config, deps Deps) *Session {
	return &Session{
		cfg:      cfg,
		deps:     deps,
		registry: NewRegistry(deps.Loader),
		events:   make(chan Event, 64),
		done:     make(chan struct{}),
		useGPU:   cfg.UseCUDA,
	}
}

// Events returns the stream the presentation layer consumes. Events for a
// single operation arrive in order; different operations may interleave.
func (s *Session) Events() <-chan Event {
	return s.events
}

// CurrentVoice returns the currently loaded voice, or nil.
func (s *Session) CurrentVoice() *Voice {
	return s.registry.Current()
}

// Models lists the locally available model files.
func (s *Session) Models() []string {
	return s.deps.Models.List()
}

// UseGPU reports the current GPU preference.
func (s *Session) UseGPU() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.useGPU
}

// LoadModel replaces the current voice with modelName, loaded under the
// given GPU preference. Overlapping loads resolve last-submitted-wins.
func (s *Session) LoadModel(modelName string, useGPU bool) *task.Handle[*Voice] {
	s.emit(StatusEvent{fmt.Sprintf("Loading: %s...", modelName)})

	h := s.registry.Replace(modelName, useGPU)
	go func() {
		res := h.Wait()
		switch res.Status {
		case task.StatusOK:
			v := res.Value
			if s.registry.Committed(v) {
				s.emit(StatusEvent{fmt.Sprintf("Loaded: %s (%s) @ %d Hz", v.Name, v.Device(), v.SampleRate)})
			} else {
				s.emit(StatusEvent{fmt.Sprintf("Load superseded: %s", modelName)})
			}
		default:
			s.emit(StatusEvent{loadErrorText(res.Err, modelName)})
		}
	}()
	return h
}

func loadErrorText(err error, modelName string) string {
	switch {
	case errors.Is(err, ErrModelNotFound):
		return fmt.Sprintf("Model not found: %s", modelName)
	case errors.Is(err, ErrMissingConfig):
		return fmt.Sprintf("Missing config: %s.json", modelName)
	default:
		return fmt.Sprintf("Load error: %v", err)
	}
}

// SetUseGPU updates the GPU preference and reloads the current model under
// it. A synthesis already in flight keeps the voice it captured.
func (s *Session) SetUseGPU(use bool) {
	s.mu.Lock()
	s.useGPU = use
	s.mu.Unlock()

	name := s.registry.CurrentName()
	if name == "" {
		return
	}

	device := "CPU"
	if use {
		device = "CUDA"
	}
	s.emit(StatusEvent{fmt.Sprintf("Reloading with %s...", device)})
	s.LoadModel(name, use)
}

// DownloadVoice fetches a voice by id into the models directory. On
// success the model list event follows the terminal status.
func (s *Session) DownloadVoice(voiceID string) (*task.Handle[struct{}], error) {
	if s.closed() {
		return nil, ErrSessionClosed
	}

	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return nil, ErrEmptyID
	}

	s.emit(StatusEvent{fmt.Sprintf("Downloading: %s...", voiceID)})

	h := task.Submit(func(_ *task.Handle[struct{}]) (struct{}, error) {
		return struct{}{}, s.deps.Downloader.Download(voiceID, s.cfg.ModelsDir)
	})
	go func() {
		res := h.Wait()
		if res.Status == task.StatusOK {
			s.emit(StatusEvent{fmt.Sprintf("Downloaded: %s", voiceID)})
			s.emit(ModelListEvent{Models: s.deps.Models.List()})
		} else {
			s.emit(StatusEvent{fmt.Sprintf("Download error: %v", res.Err)})
		}
	}()
	return h, nil
}

// SynthesizeToFile renders text to a WAV file. Validation failures are
// synchronous and spawn no task.
func (s *Session) SynthesizeToFile(text string, params SynthesisParams, path string) (*task.Handle[string], error) {
	if s.closed() {
		return nil, ErrSessionClosed
	}

	voice, text, err := s.validate(text)
	if err != nil {
		return nil, err
	}
	params = params.Clamp()

	s.emit(StatusEvent{"Generating WAV..."})

	h := task.Submit(func(_ *task.Handle[string]) (string, error) {
		buf, err := s.deps.Synthesizer.Synthesize(voice, text, params)
		if err != nil {
			return "", err
		}
		if err := s.deps.WriteWAV(path, buf); err != nil {
			return "", err
		}
		return path, nil
	})
	go func() {
		res := h.Wait()
		if res.Status == task.StatusOK {
			s.emit(StatusEvent{fmt.Sprintf("Saved: %s", filepath.Base(res.Value))})
		} else {
			s.emit(StatusEvent{fmt.Sprintf("Export error: %v", res.Err)})
		}
	}()
	return h, nil
}

// SynthesizeAndPlay renders text and plays it. The call is a no-op while a
// playback session is active; the UI routes "stop" instead. The handle
// resolves to true when playback was stopped by the user.
func (s *Session) SynthesizeAndPlay(text string, params SynthesisParams) (*task.Handle[bool], error) {
	if s.closed() {
		return nil, ErrSessionClosed
	}
	if s.deps.Playback.Busy() {
		return nil, ErrPlaybackBusy
	}

	voice, text, err := s.validate(text)
	if err != nil {
		return nil, err
	}
	params = params.Clamp()

	s.emit(StatusEvent{"Synthesizing..."})
	s.emit(PlaybackEvent{Playing: true})

	h := task.Submit(func(_ *task.Handle[bool]) (bool, error) {
		buf, err := s.deps.Synthesizer.Synthesize(voice, text, params)
		if err != nil {
			return false, &stageError{stage: stageSynthesis, err: err}
		}

		s.emit(StatusEvent{"Playing..."})

		stopped, err := s.deps.Playback.Run(buf)
		if err != nil {
			return false, &stageError{stage: stagePlayback, err: err}
		}
		if stopped {
			return true, task.ErrCancelled
		}
		return false, nil
	})
	go func() {
		res := h.Wait()
		switch res.Status {
		case task.StatusOK:
			s.emit(StatusEvent{"Playback complete"})
		case task.StatusCancelled:
			s.emit(StatusEvent{"Stopped"})
		default:
			s.emit(StatusEvent{failureText(res.Err)})
		}
		s.emit(PlaybackEvent{Playing: false})
	}()
	return h, nil
}

// StopPlayback requests a stop of the active playback. No-op, and no
// event, while idle; the in-flight play operation delivers the terminal
// "Stopped" status. The progress status is emitted before the stop is
// triggered so it always precedes the terminal one.
func (s *Session) StopPlayback() {
	if !s.deps.Playback.Busy() {
		return
	}
	s.emit(StatusEvent{"Stopping..."})
	s.deps.Playback.Stop()
}

// Playing reports whether a playback session is active.
func (s *Session) Playing() bool {
	return s.deps.Playback.Busy()
}

// RefreshModels re-scans the models directory.
func (s *Session) RefreshModels() []string {
	models := s.deps.Models.List()
	s.emit(ModelListEvent{Models: models})
	s.emit(StatusEvent{"Models refreshed"})
	return models
}

// AddModels copies model files into the models directory and refreshes the
// list. Files that cannot be copied are skipped.
func (s *Session) AddModels(paths []string) int {
	copied := 0
	for _, src := range paths {
		if err := copyFile(src, filepath.Join(s.cfg.ModelsDir, filepath.Base(src))); err != nil {
			log.Warn("add model", "file", src, "err", err)
			continue
		}
		copied++
	}

	s.emit(StatusEvent{fmt.Sprintf("Added %d file(s)", copied)})
	s.emit(ModelListEvent{Models: s.deps.Models.List()})
	return copied
}

// Close stops playback and shuts the event stream down. Pending emitters
// unblock; consumers should stop reading Events afterwards.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.deps.Playback.Stop()
		close(s.done)
	})
}

// closed reports whether Close has been called.
func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// validate applies the shared synthesis preconditions.
func (s *Session) validate(text string) (*Voice, string, error) {
	voice := s.registry.Current()
	if voice == nil {
		s.emit(StatusEvent{"Load a voice model first"})
		return nil, "", ErrNoVoice
	}

	text = strings.TrimSpace(text)
	if text == "" {
		s.emit(StatusEvent{"Enter text to speak"})
		return nil, "", ErrEmptyText
	}
	return voice, text, nil
}

func (s *Session) emit(e Event) {
	select {
	case s.events <- e:
	case <-s.done:
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// stageError tags a play-operation failure with the stage it happened in,
// so the terminal status can name it.
type stageError struct {
	stage string
	err   error
}

const (
	stageSynthesis = "Synthesis"
	stagePlayback  = "Playback"
)

func (e *stageError) Error() string {
	return fmt.Sprintf("%s error: %v", strings.ToLower(e.stage), e.err)
}

func (e *stageError) Unwrap() error { return e.err }

func failureText(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return fmt.Sprintf("%s error: %v", se.stage, se.err)
	}
	return fmt.Sprintf("Playback error: %v", err)
}
