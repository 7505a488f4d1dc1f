// Package piper wraps the piper text-to-speech binary and its on-disk
// voice model layout.
package piper

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/piperspeak/piperspeak/tts"
)

// Engine loads voice models and synthesizes speech by invoking the piper
// binary. It is safe for concurrent use; each synthesis runs its own
// subprocess.
type Engine struct {
	modelsDir string
	binary    string
}

// New creates an engine over the given models directory and piper binary.
func New(modelsDir, binary string) *Engine {
	return &Engine{modelsDir: modelsDir, binary: binary}
}

// ModelsDir returns the directory scanned for voice models.
func (e *Engine) ModelsDir() string {
	return e.modelsDir
}

// List returns the model file names in the models directory, sorted.
func (e *Engine) List() []string {
	entries, err := os.ReadDir(e.modelsDir)
	if err != nil {
		log.Debug("list models", "dir", e.modelsDir, "err", err)
		return nil
	}

	var models []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".onnx") {
			models = append(models, entry.Name())
		}
	}
	sort.Strings(models)
	return models
}

// sidecarConfig is the subset of the .onnx.json voice config we care about.
type sidecarConfig struct {
	Audio struct {
		SampleRate int `json:"sample_rate"`
	} `json:"audio"`
	NumSpeakers int `json:"num_speakers"`
}

// ConfigPath returns the sidecar config path for a model file.
func ConfigPath(modelPath string) string {
	return modelPath + ".json"
}

// Load reads a model's sidecar config and verifies the backend is usable.
// The model weights themselves stay on disk; piper maps them per synthesis.
func (e *Engine) Load(modelName string, useGPU bool) (*tts.Voice, error) {
	modelPath := filepath.Join(e.modelsDir, modelName)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: %s", tts.ErrModelNotFound, modelName)
	}

	cfgPath := ConfigPath(modelPath)
	raw, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", tts.ErrMissingConfig, filepath.Base(cfgPath))
	}

	var cfg sidecarConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(cfgPath), err)
	}
	if cfg.Audio.SampleRate <= 0 {
		return nil, fmt.Errorf("%s: missing sample rate", filepath.Base(cfgPath))
	}

	if _, err := exec.LookPath(e.binary); err != nil {
		return nil, fmt.Errorf("piper binary %q not found: %w", e.binary, err)
	}

	speakers := cfg.NumSpeakers
	if speakers == 0 {
		speakers = 1
	}

	log.Info("voice loaded", "model", modelName, "rate", cfg.Audio.SampleRate, "gpu", useGPU)

	return &tts.Voice{
		Name:       modelName,
		ModelPath:  modelPath,
		ConfigPath: cfgPath,
		SampleRate: cfg.Audio.SampleRate,
		Speakers:   speakers,
		CUDA:       useGPU,
	}, nil
}
