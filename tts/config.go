package tts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config contains all synthesis and playback configuration options.
type Config struct {
	// ModelsDir is where .onnx voice models and their .onnx.json sidecar
	// configs live.
	ModelsDir string `yaml:"models_dir" env:"PIPERSPEAK_MODELS_DIR"`

	// PiperBinary is the piper executable used for synthesis.
	PiperBinary string `yaml:"piper_binary" env:"PIPERSPEAK_PIPER_BINARY"`

	// DefaultModel is loaded on startup when set; otherwise the first
	// model in ModelsDir is used.
	DefaultModel string `yaml:"default_model" env:"PIPERSPEAK_DEFAULT_MODEL"`

	// UseCUDA requests GPU acceleration for model loading.
	UseCUDA bool `yaml:"use_cuda" env:"PIPERSPEAK_USE_CUDA"`

	// DownloadBaseURL is the voice repository root. Overridable for
	// mirrors and tests.
	DownloadBaseURL string `yaml:"download_base_url" env:"PIPERSPEAK_DOWNLOAD_BASE_URL"`

	// Params are the initial synthesis parameters.
	Params SynthesisParams `yaml:"params"`
}

// DefaultConfig returns a Config with sensible defaults. ModelsDir is left
// empty; the caller resolves it against the platform data dir.
func DefaultConfig() Config {
	return Config{
		PiperBinary:     "piper",
		DownloadBaseURL: "https://huggingface.co/rhasspy/piper-voices/resolve/main",
		Params:          DefaultParams(),
	}
}

// Validate checks the configuration and creates ModelsDir if necessary.
func (c *Config) Validate() error {
	if c.ModelsDir == "" {
		return errors.New("models dir must be set")
	}
	if c.PiperBinary == "" {
		return errors.New("piper binary must be set")
	}
	if c.DownloadBaseURL == "" {
		return errors.New("download base URL must be set")
	}

	abs, err := filepath.Abs(c.ModelsDir)
	if err != nil {
		return fmt.Errorf("resolve models dir: %w", err)
	}
	c.ModelsDir = abs

	if err := os.MkdirAll(c.ModelsDir, 0o755); err != nil {
		return fmt.Errorf("create models dir: %w", err)
	}

	c.Params = c.Params.Clamp()
	return nil
}
