package tts

import "time"

// Voice is a loaded synthesis model plus its output sample rate. The
// Registry owns the current Voice; operations borrow the value they
// captured at submission time, so replacing the current Voice never
// invalidates an in-flight synthesis.
type Voice struct {
	Name       string // model file name, e.g. "en_GB-cori-high.onnx"
	ModelPath  string // absolute path to the .onnx file
	ConfigPath string // absolute path to the .onnx.json sidecar
	SampleRate int    // output sample rate in Hz
	Speakers   int    // number of speakers in the model
	CUDA       bool   // loaded with GPU acceleration
}

// Device returns a human-readable name for the compute device the voice
// was loaded on.
func (v *Voice) Device() string {
	if v.CUDA {
		return "CUDA"
	}
	return "CPU"
}

// SynthesisParams are the tunable synthesis parameters. A value is captured
// when an operation is submitted; later UI changes never affect a task
// already in flight.
type SynthesisParams struct {
	Volume     float64 `yaml:"volume"`      // [0, 1]
	Speed      float64 `yaml:"speed"`       // length scale, [0.5, 2.0]
	NoiseScale float64 `yaml:"noise_scale"` // [0, 1.5]
	NoiseW     float64 `yaml:"noise_w"`     // noise width scale, [0, 1.5]
	Normalize  bool    `yaml:"normalize"`   // peak-normalize the output
}

// DefaultParams returns the Piper defaults.
func DefaultParams() SynthesisParams {
	return SynthesisParams{
		Volume:     1.0,
		Speed:      1.0,
		NoiseScale: 0.667,
		NoiseW:     0.8,
	}
}

// Clamp returns a copy with every field forced into its valid range.
func (p SynthesisParams) Clamp() SynthesisParams {
	p.Volume = clamp(p.Volume, 0, 1)
	p.Speed = clamp(p.Speed, 0.5, 2.0)
	p.NoiseScale = clamp(p.NoiseScale, 0, 1.5)
	p.NoiseW = clamp(p.NoiseW, 0, 1.5)
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AudioBuffer holds one synthesized utterance: signed 16-bit mono samples
// plus the sample rate they were generated at. A buffer is produced once
// per synthesis and consumed once, by either the file exporter or the
// playback controller, never both.
type AudioBuffer struct {
	Samples    []int16
	SampleRate int
}

// Duration returns the playing time of the buffer.
func (b *AudioBuffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}
