package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/piperspeak/piperspeak/tts"
)

// OtoDevice implements Device on top of ebitengine/oto. A process may hold
// only one oto context, opened at a fixed sample rate, so the context is
// created on first use and buffers at other rates are resampled to it.
type OtoDevice struct {
	mu      sync.Mutex
	context *oto.Context
	rate    int
}

// NewOtoDevice creates an uninitialized device. The underlying context is
// opened lazily with the first buffer's sample rate.
func NewOtoDevice() *OtoDevice {
	return &OtoDevice{}
}

// Play converts the buffer to little-endian PCM and starts playback.
func (d *OtoDevice) Play(buf *tts.AudioBuffer) (DeviceSession, error) {
	if buf == nil || len(buf.Samples) == 0 {
		return nil, fmt.Errorf("empty audio buffer")
	}

	ctx, rate, err := d.contextFor(buf.SampleRate)
	if err != nil {
		return nil, err
	}

	samples := resample(buf.Samples, buf.SampleRate, rate)

	// The byte slice must stay referenced for the whole playback; the
	// session keeps it alive alongside the player.
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}

	player := ctx.NewPlayer(bytes.NewReader(data))
	player.Play()

	return &otoSession{player: player, data: data}, nil
}

func (d *OtoDevice) contextFor(rate int) (*oto.Context, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.context != nil {
		return d.context, d.rate, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, 0, fmt.Errorf("open audio context: %w", err)
	}
	<-ready

	d.context = ctx
	d.rate = rate
	return ctx, rate, nil
}

type otoSession struct {
	player *oto.Player
	data   []byte // keeps the PCM alive for the player's reader

	closeOnce sync.Once
}

// Stop pauses and closes the player. The close drains nothing further, so
// a concurrent Wait observes !IsPlaying and returns.
func (s *otoSession) Stop() {
	s.closeOnce.Do(func() {
		s.player.Pause()
		_ = s.player.Close()
	})
}

// Wait blocks until the player has drained its reader or was stopped.
func (s *otoSession) Wait() {
	for s.player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	s.closeOnce.Do(func() {
		_ = s.player.Close()
	})
}
