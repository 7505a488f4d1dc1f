package audio

import "github.com/piperspeak/piperspeak/tts"

// Device abstracts the audio output backend.
type Device interface {
	// Play hands a buffer to the device and returns the active session.
	Play(buf *tts.AudioBuffer) (DeviceSession, error)
}

// DeviceSession is one playback attempt on the device.
type DeviceSession interface {
	// Stop asks the device to stop. May return before output actually
	// ceases; callers must still Wait.
	Stop()

	// Wait blocks until the device has drained the buffer or processed a
	// stop request.
	Wait()
}

// resample converts samples from one rate to another with linear
// interpolation. Used when a voice's rate differs from the rate the output
// context was opened at.
func resample(in []int16, from, to int) []int16 {
	if from == to || from <= 0 || to <= 0 || len(in) == 0 {
		return in
	}

	n := int(int64(len(in)) * int64(to) / int64(from))
	if n == 0 {
		return nil
	}

	out := make([]int16, n)
	ratio := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(j)
		a := float64(in[j])
		b := float64(in[j+1])
		out[i] = int16(a + (b-a)*frac)
	}
	return out
}
