package piper

import (
	"errors"
	"testing"

	"github.com/piperspeak/piperspeak/tts"
)

// TestSynthesizeValidation tests the preconditions checked before the
// subprocess is spawned.
func TestSynthesizeValidation(t *testing.T) {
	e := New(t.TempDir(), "sh")
	voice := &tts.Voice{Name: "v.onnx", SampleRate: 22050}

	if _, err := e.Synthesize(nil, "hi", tts.DefaultParams()); !errors.Is(err, tts.ErrNoVoice) {
		t.Errorf("nil voice: err = %v, want ErrNoVoice", err)
	}
	if _, err := e.Synthesize(voice, "  \n", tts.DefaultParams()); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("blank text: err = %v, want ErrEmptyText", err)
	}
}

// TestDecodePCM tests little-endian decoding and odd-byte truncation.
func TestDecodePCM(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want []int16
	}{
		{"empty", nil, []int16{}},
		{"one sample", []byte{0x01, 0x00}, []int16{1}},
		{"negative", []byte{0xff, 0xff}, []int16{-1}},
		{"two samples", []byte{0x00, 0x10, 0x00, 0xf0}, []int16{4096, -4096}},
		{"odd trailing byte", []byte{0x01, 0x00, 0x7f}, []int16{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodePCM(tt.data)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("sample %d = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// TestApplyGainVolume tests plain volume scaling with clamping.
func TestApplyGainVolume(t *testing.T) {
	samples := []int16{1000, -1000, 30000}
	params := tts.SynthesisParams{Volume: 2.0}

	applyGain(samples, params)

	if samples[0] != 2000 || samples[1] != -2000 {
		t.Errorf("scaled = %v, want 2000/-2000", samples[:2])
	}
	if samples[2] != 32767 {
		t.Errorf("overdriven sample = %d, want clamp at 32767", samples[2])
	}
}

// TestApplyGainNormalize tests peak normalization to full scale.
func TestApplyGainNormalize(t *testing.T) {
	samples := []int16{8192, -4096, 2048}
	params := tts.SynthesisParams{Volume: 1.0, Normalize: true}

	applyGain(samples, params)

	if samples[0] != 32767 {
		t.Errorf("peak = %d, want 32767", samples[0])
	}
	if samples[1] >= 0 || samples[2] <= 0 {
		t.Errorf("signs flipped: %v", samples)
	}
}

// TestApplyGainUnityNoop tests that unity volume leaves samples untouched.
func TestApplyGainUnityNoop(t *testing.T) {
	samples := []int16{123, -456}
	applyGain(samples, tts.SynthesisParams{Volume: 1.0})

	if samples[0] != 123 || samples[1] != -456 {
		t.Errorf("samples modified: %v", samples)
	}
}

// TestApplyGainSilence tests that all-zero audio survives normalization.
func TestApplyGainSilence(t *testing.T) {
	samples := []int16{0, 0, 0}
	applyGain(samples, tts.SynthesisParams{Volume: 1.0, Normalize: true})

	for i, s := range samples {
		if s != 0 {
			t.Errorf("sample %d = %d, want 0", i, s)
		}
	}
}

// TestFormatFloat tests that parameters keep their shortest representation.
func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.0, "1"},
		{0.667, "0.667"},
		{1.5, "1.5"},
	}

	for _, tt := range tests {
		if got := formatFloat(tt.in); got != tt.want {
			t.Errorf("formatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestLastLine tests stderr tail extraction.
func TestLastLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"one", "one"},
		{"first\nsecond", "second"},
		{"first\nsecond\n  ", ""},
	}

	for _, tt := range tests {
		if got := lastLine(tt.in); got != tt.want {
			t.Errorf("lastLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
