// Package audio provides the playback controller and audio output device
// for synthesized speech.
package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/piperspeak/piperspeak/tts"
)

// State represents the playback session state.
type State int

const (
	// StateIdle indicates no playback session exists.
	StateIdle State = iota
	// StateStarting indicates a play request was accepted but the device
	// has not taken the buffer yet.
	StateStarting
	// StatePlaying indicates the device accepted the buffer.
	StatePlaying
	// StateStopRequested indicates a user stop is pending.
	StateStopRequested
	// StateFinished indicates the device wait returned; transient before
	// the controller returns to idle.
	StateFinished
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StatePlaying:
		return "playing"
	case StateStopRequested:
		return "stop requested"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Controller owns the audio output session. At most one session is
// non-idle at any time; a second Run while busy is rejected with
// tts.ErrPlaybackBusy.
type Controller struct {
	device Device

	mu      sync.Mutex
	state   State
	session DeviceSession

	// stop is the only mutable field shared between the interactive
	// thread and a playback worker. It is observed cooperatively: once
	// after the device wait returns, because the device-level stop is
	// asynchronous on some backends.
	stop atomic.Bool
}

// NewController creates a playback controller on top of the given device.
func NewController(device Device) *Controller {
	return &Controller{device: device}
}

// Run plays the buffer to completion or until stopped. It is meant to be
// called from a background task body: it blocks for the duration of the
// playback. The returned stopped flag distinguishes a user stop from a
// natural end.
func (c *Controller) Run(buf *tts.AudioBuffer) (stopped bool, err error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return false, tts.ErrPlaybackBusy
	}
	c.state = StateStarting
	c.stop.Store(false)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state = StateIdle
		c.session = nil
		c.mu.Unlock()
	}()

	session, err := c.device.Play(buf)
	if err != nil {
		return false, fmt.Errorf("audio device: %w", err)
	}

	c.mu.Lock()
	if c.state == StateStarting {
		c.state = StatePlaying
	}
	c.session = session
	requested := c.stop.Load()
	c.mu.Unlock()

	// Stop raced with device start; tear the session down ourselves.
	if requested {
		session.Stop()
	}

	log.Debug("playback started", "samples", len(buf.Samples), "rate", buf.SampleRate)

	session.Wait()

	// The stop flag must be re-checked after the wait returns: the device
	// stop call is asynchronous on some backends, so a stopped session
	// can look like a natural end.
	stopped = c.stop.Load()

	c.mu.Lock()
	c.state = StateFinished
	c.mu.Unlock()

	log.Debug("playback finished", "stopped", stopped)
	return stopped, nil
}

// Stop requests a stop of the in-flight session. It is a no-op while idle.
// Returns true if a stop was actually issued.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateStarting, StatePlaying:
	default:
		return false
	}

	c.stop.Store(true)
	c.state = StateStopRequested
	if c.session != nil {
		c.session.Stop()
	}
	return true
}

// Busy reports whether a playback session is currently non-idle.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != StateIdle
}

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
