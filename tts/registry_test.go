package tts

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/piperspeak/piperspeak/tts/task"
)

// fakeLoader returns canned voices with configurable per-model delays and
// failures.
type fakeLoader struct {
	mu     sync.Mutex
	delays map[string]time.Duration
	fails  map[string]error
	calls  int
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		delays: make(map[string]time.Duration),
		fails:  make(map[string]error),
	}
}

func (l *fakeLoader) Load(name string, useGPU bool) (*Voice, error) {
	l.mu.Lock()
	l.calls++
	delay := l.delays[name]
	err := l.fails[name]
	l.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return &Voice{Name: name, SampleRate: 22050, CUDA: useGPU}, nil
}

// TestRegistryReplace tests a single successful replace.
func TestRegistryReplace(t *testing.T) {
	reg := NewRegistry(newFakeLoader())

	res := reg.Replace("alpha.onnx", false).Wait()
	if res.Status != task.StatusOK {
		t.Fatalf("status = %v, want %v (err: %v)", res.Status, task.StatusOK, res.Err)
	}

	current := reg.Current()
	if current == nil || current.Name != "alpha.onnx" {
		t.Errorf("current = %+v, want alpha.onnx", current)
	}
	if !reg.Committed(res.Value) {
		t.Error("result should occupy the current slot")
	}
}

// TestRegistrySlowFirstFastSecond tests that a slow first load does not
// clobber a fast second load (last-submitted-wins, not last-completed).
func TestRegistrySlowFirstFastSecond(t *testing.T) {
	loader := newFakeLoader()
	loader.delays["slow.onnx"] = 500 * time.Millisecond
	loader.delays["fast.onnx"] = 50 * time.Millisecond
	reg := NewRegistry(loader)

	hSlow := reg.Replace("slow.onnx", false)
	time.Sleep(10 * time.Millisecond)
	hFast := reg.Replace("fast.onnx", false)

	resSlow := hSlow.Wait()
	resFast := hFast.Wait()

	if resSlow.Status != task.StatusOK || resFast.Status != task.StatusOK {
		t.Fatalf("both loads should succeed: %v / %v", resSlow.Status, resFast.Status)
	}

	current := reg.Current()
	if current == nil || current.Name != "fast.onnx" {
		t.Errorf("current = %+v, want fast.onnx", current)
	}
	if reg.Committed(resSlow.Value) {
		t.Error("stale slow result must not occupy the slot")
	}
	if !reg.Committed(resFast.Value) {
		t.Error("fast result should occupy the slot")
	}
}

// TestRegistryFailureLeavesCurrent tests that a failed load leaves the
// previous voice in place.
func TestRegistryFailureLeavesCurrent(t *testing.T) {
	loader := newFakeLoader()
	loader.fails["broken.onnx"] = errors.New("backend init failed")
	reg := NewRegistry(loader)

	if res := reg.Replace("good.onnx", false).Wait(); res.Status != task.StatusOK {
		t.Fatalf("setup load failed: %v", res.Err)
	}

	res := reg.Replace("broken.onnx", false).Wait()
	if res.Status != task.StatusFailed {
		t.Fatalf("status = %v, want %v", res.Status, task.StatusFailed)
	}

	current := reg.Current()
	if current == nil || current.Name != "good.onnx" {
		t.Errorf("current = %+v, want good.onnx unchanged", current)
	}
}

// TestRegistryLastSubmittedWins tests the ordering property over many
// overlapping replaces with randomized completion order.
func TestRegistryLastSubmittedWins(t *testing.T) {
	loader := newFakeLoader()
	reg := NewRegistry(loader)

	const n = 20
	handles := make([]*task.Handle[*Voice], 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("v%02d.onnx", i)
		// Earlier submissions sleep longer, so completion order is
		// roughly the reverse of submission order.
		loader.mu.Lock()
		loader.delays[name] = time.Duration(n-i) * 5 * time.Millisecond
		loader.mu.Unlock()
		handles = append(handles, reg.Replace(name, false))
	}

	for _, h := range handles {
		h.Wait()
	}

	want := fmt.Sprintf("v%02d.onnx", n-1)
	if current := reg.Current(); current == nil || current.Name != want {
		t.Errorf("current = %+v, want %s", current, want)
	}
}

// TestRegistryCurrentNameEmpty tests CurrentName before any load.
func TestRegistryCurrentNameEmpty(t *testing.T) {
	reg := NewRegistry(newFakeLoader())
	if name := reg.CurrentName(); name != "" {
		t.Errorf("CurrentName() = %q, want empty", name)
	}
}
