package piper

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/piperspeak/piperspeak/tts"
)

// Synthesize runs piper over text and returns the raw samples, with volume
// and normalization applied. Parameters are taken as passed; callers clamp
// when they capture them.
func (e *Engine) Synthesize(voice *tts.Voice, text string, params tts.SynthesisParams) (*tts.AudioBuffer, error) {
	if voice == nil {
		return nil, tts.ErrNoVoice
	}
	if strings.TrimSpace(text) == "" {
		return nil, tts.ErrEmptyText
	}

	args := []string{
		"--model", voice.ModelPath,
		"--config", voice.ConfigPath,
		"--output-raw",
		"--length_scale", formatFloat(params.Speed),
		"--noise_scale", formatFloat(params.NoiseScale),
		"--noise_w", formatFloat(params.NoiseW),
	}
	if voice.CUDA {
		args = append(args, "--cuda")
	}

	cmd := exec.Command(e.binary, args...)

	// stdin is wired up before the process starts; attaching it later
	// races with piper reading an empty pipe.
	cmd.Stdin = strings.NewReader(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug("synthesizing", "model", voice.Name, "chars", len(text))

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("piper: %w: %s", err, lastLine(msg))
		}
		return nil, fmt.Errorf("piper: %w", err)
	}

	samples := decodePCM(stdout.Bytes())
	if len(samples) == 0 {
		return nil, fmt.Errorf("piper produced no audio")
	}

	applyGain(samples, params)

	return &tts.AudioBuffer{Samples: samples, SampleRate: voice.SampleRate}, nil
}

// decodePCM interprets raw bytes as little-endian signed 16-bit mono. A
// trailing odd byte is dropped.
func decodePCM(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// applyGain scales samples in place: peak normalization first when
// requested, then the volume setting. Piper itself has neither control.
func applyGain(samples []int16, params tts.SynthesisParams) {
	gain := params.Volume

	if params.Normalize {
		var peak int32
		for _, s := range samples {
			v := int32(s)
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
		if peak > 0 {
			gain *= 32767.0 / float64(peak)
		}
	}

	if gain == 1.0 {
		return
	}

	for i, s := range samples {
		v := float64(s) * gain
		switch {
		case v > 32767:
			samples[i] = 32767
		case v < -32768:
			samples[i] = -32768
		default:
			samples[i] = int16(v)
		}
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
