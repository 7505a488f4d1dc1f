// Package wavio reads and writes 16-bit mono WAV containers for
// synthesized audio.
package wavio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/piperspeak/piperspeak/tts"
)

// Write encodes the buffer to a WAV file at path.
func Write(path string, buf *tts.AudioBuffer) error {
	if buf == nil || len(buf.Samples) == 0 {
		return fmt.Errorf("nothing to write")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	enc := wav.NewEncoder(f, buf.SampleRate, 16, 1, 1)

	data := make([]int, len(buf.Samples))
	for i, s := range buf.Samples {
		data[i] = int(s)
	}

	ib := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: buf.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := enc.Write(ib); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	return f.Close()
}

// Read decodes a WAV file written by Write back into an audio buffer.
func Read(path string) (*tts.AudioBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	dec := wav.NewDecoder(f)
	ib, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if ib.Format == nil || ib.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("decode %s: missing format", path)
	}

	samples := make([]int16, len(ib.Data))
	for i, v := range ib.Data {
		samples[i] = int16(v)
	}

	return &tts.AudioBuffer{Samples: samples, SampleRate: ib.Format.SampleRate}, nil
}
