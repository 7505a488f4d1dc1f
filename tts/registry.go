package tts

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/piperspeak/piperspeak/tts/task"
)

// Loader loads a voice model from disk. Implemented by the piper package.
type Loader interface {
	Load(modelName string, useGPU bool) (*Voice, error)
}

// Registry owns the current-voice slot and serializes replace operations.
// Overlapping loads are resolved last-submitted-wins: every replace is
// stamped with a sequence number under the mutex, and a finished load is
// committed only if its stamp is still the latest issued. Completion order
// does not matter; a slow first load can never clobber a fast second one.
// The load itself runs lock-free on its own goroutine.
type Registry struct {
	loader Loader

	mu      sync.Mutex
	seq     uint64 // last issued sequence number
	current *Voice
}

// NewRegistry creates a registry backed by the given loader.
func NewRegistry(loader Loader) *Registry {
	return &Registry{loader: loader}
}

// Current returns the current voice, or nil if none is loaded. Callers keep
// the returned pointer for the duration of their operation; a later replace
// does not invalidate it.
func (r *Registry) Current() *Voice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// CurrentName returns the model name of the current voice, or "".
func (r *Registry) CurrentName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return ""
	}
	return r.current.Name
}

// Replace loads modelName on a background task and, on success, installs it
// as the current voice unless a newer replace has been issued meanwhile.
// The handle's result carries the loaded voice; Result.Value is non-nil
// even when the result was discarded as stale (the caller can tell the two
// apart with Committed).
func (r *Registry) Replace(modelName string, useGPU bool) *task.Handle[*Voice] {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	log.Debug("voice load submitted", "model", modelName, "seq", seq, "gpu", useGPU)

	return task.Submit(func(_ *task.Handle[*Voice]) (*Voice, error) {
		voice, err := r.loader.Load(modelName, useGPU)
		if err != nil {
			return nil, err
		}
		if r.commit(seq, voice) {
			return voice, nil
		}
		log.Debug("voice load superseded", "model", modelName, "seq", seq)
		return voice, nil
	})
}

// commit installs voice if seq is still the latest issued stamp.
func (r *Registry) commit(seq uint64, voice *Voice) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq {
		return false
	}
	r.current = voice
	return true
}

// Committed reports whether the given voice occupies the current slot.
// Used by the orchestrator to phrase the terminal status of a load whose
// result may have been superseded.
func (r *Registry) Committed(voice *Voice) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current == voice
}
