package audio

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/piperspeak/piperspeak/tts"
)

// fakeSession plays for a fixed duration unless stopped.
type fakeSession struct {
	dur  time.Duration
	once sync.Once
	quit chan struct{}
}

func newFakeSession(dur time.Duration) *fakeSession {
	return &fakeSession{dur: dur, quit: make(chan struct{})}
}

func (s *fakeSession) Stop() {
	s.once.Do(func() { close(s.quit) })
}

func (s *fakeSession) Wait() {
	select {
	case <-time.After(s.dur):
	case <-s.quit:
	}
}

type fakeDevice struct {
	mu       sync.Mutex
	dur      time.Duration
	playErr  error
	sessions []*fakeSession
	started  chan struct{} // signalled on each Play
}

func newFakeDevice(dur time.Duration) *fakeDevice {
	return &fakeDevice{dur: dur, started: make(chan struct{}, 8)}
}

func (d *fakeDevice) Play(buf *tts.AudioBuffer) (DeviceSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.playErr != nil {
		return nil, d.playErr
	}
	s := newFakeSession(d.dur)
	d.sessions = append(d.sessions, s)
	d.started <- struct{}{}
	return s, nil
}

func (d *fakeDevice) sessionCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

func testBuffer() *tts.AudioBuffer {
	return &tts.AudioBuffer{Samples: make([]int16, 2205), SampleRate: 22050}
}

// TestControllerNaturalEnd tests that a buffer playing to completion
// reports stopped=false and leaves the controller idle.
func TestControllerNaturalEnd(t *testing.T) {
	c := NewController(newFakeDevice(20 * time.Millisecond))

	stopped, err := c.Run(testBuffer())
	if err != nil {
		t.Fatal(err)
	}
	if stopped {
		t.Error("natural end reported stopped=true")
	}
	if got := c.State(); got != StateIdle {
		t.Errorf("state = %v, want idle", got)
	}
}

// TestControllerStop tests that a stop mid-playback reports stopped=true
// and returns the controller to idle.
func TestControllerStop(t *testing.T) {
	dev := newFakeDevice(5 * time.Second)
	c := NewController(dev)

	done := make(chan struct{})
	var stopped bool
	var runErr error
	go func() {
		stopped, runErr = c.Run(testBuffer())
		close(done)
	}()

	<-dev.started
	time.Sleep(20 * time.Millisecond)

	if !c.Stop() {
		t.Fatal("Stop() = false with an active session")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after stop")
	}

	if runErr != nil {
		t.Fatal(runErr)
	}
	if !stopped {
		t.Error("stop reported stopped=false")
	}
	if got := c.State(); got != StateIdle {
		t.Errorf("state = %v, want idle", got)
	}
}

// TestControllerBusyRejected tests that a second Run while playing is
// rejected and no second device session is created.
func TestControllerBusyRejected(t *testing.T) {
	dev := newFakeDevice(5 * time.Second)
	c := NewController(dev)

	done := make(chan struct{})
	go func() {
		c.Run(testBuffer()) //nolint:errcheck
		close(done)
	}()
	<-dev.started

	if _, err := c.Run(testBuffer()); !errors.Is(err, tts.ErrPlaybackBusy) {
		t.Fatalf("err = %v, want ErrPlaybackBusy", err)
	}

	c.Stop()
	<-done

	if n := dev.sessionCount(); n != 1 {
		t.Errorf("device sessions = %d, want 1", n)
	}
}

// TestControllerStopIdle tests that stopping with no session is a no-op.
func TestControllerStopIdle(t *testing.T) {
	c := NewController(newFakeDevice(time.Second))

	if c.Stop() {
		t.Error("Stop() = true while idle")
	}
	if got := c.State(); got != StateIdle {
		t.Errorf("state = %v, want idle", got)
	}
}

// TestControllerDeviceError tests that a device failure surfaces as an
// error and the controller returns to idle.
func TestControllerDeviceError(t *testing.T) {
	dev := newFakeDevice(time.Second)
	dev.playErr = errors.New("no output device")
	c := NewController(dev)

	if _, err := c.Run(testBuffer()); err == nil {
		t.Fatal("expected a device error")
	}
	if got := c.State(); got != StateIdle {
		t.Errorf("state = %v, want idle", got)
	}
	if c.Busy() {
		t.Error("controller busy after device error")
	}
}

// TestControllerReusable tests that the controller accepts a new session
// after the previous one finished.
func TestControllerReusable(t *testing.T) {
	dev := newFakeDevice(10 * time.Millisecond)
	c := NewController(dev)

	for i := 0; i < 3; i++ {
		if _, err := c.Run(testBuffer()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if n := dev.sessionCount(); n != 3 {
		t.Errorf("device sessions = %d, want 3", n)
	}
}

// TestStateString tests the String() method for State.
func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateIdle, "idle"},
		{StateStarting, "starting"},
		{StatePlaying, "playing"},
		{StateStopRequested, "stop requested"},
		{StateFinished, "finished"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("State.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestResample tests the linear resampler's length arithmetic.
func TestResample(t *testing.T) {
	tests := []struct {
		name    string
		in      int
		from    int
		to      int
		wantLen int
	}{
		{"same rate", 100, 22050, 22050, 100},
		{"upsample double", 100, 22050, 44100, 200},
		{"downsample half", 100, 44100, 22050, 50},
		{"empty", 0, 22050, 44100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make([]int16, tt.in)
			for i := range in {
				in[i] = int16(i)
			}
			out := resample(in, tt.from, tt.to)
			if len(out) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(out), tt.wantLen)
			}
		})
	}
}

// TestResampleMonotonic tests that resampling a ramp keeps it a ramp.
func TestResampleMonotonic(t *testing.T) {
	in := make([]int16, 500)
	for i := range in {
		in[i] = int16(i * 10)
	}

	out := resample(in, 22050, 44100)
	for i := 1; i < len(out); i++ {
		if out[i] < out[i-1] {
			t.Fatalf("ramp not monotonic at %d: %d < %d", i, out[i], out[i-1])
		}
	}
}
