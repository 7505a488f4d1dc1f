package tts

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces bursts of filesystem events (a download writes
// two files back to back) into a single model list refresh.
const watchDebounce = 300 * time.Millisecond

// WatchModels emits a ModelListEvent whenever model files appear in or
// disappear from the models directory. Runs until the session is closed.
func (s *Session) WatchModels() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.cfg.ModelsDir); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close() //nolint:errcheck

		var debounce *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !modelEvent(ev) {
					continue
				}
				if debounce == nil {
					debounce = time.NewTimer(watchDebounce)
					fire = debounce.C
				} else {
					if !debounce.Stop() {
						select {
						case <-debounce.C:
						default:
						}
					}
					debounce.Reset(watchDebounce)
				}

			case <-fire:
				debounce = nil
				fire = nil
				log.Debug("models dir changed", "dir", s.cfg.ModelsDir)
				s.emit(ModelListEvent{Models: s.deps.Models.List()})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("models watcher", "err", err)

			case <-s.done:
				return
			}
		}
	}()

	return nil
}

func modelEvent(ev fsnotify.Event) bool {
	if !strings.HasSuffix(ev.Name, ".onnx") && !strings.HasSuffix(ev.Name, ".onnx.json") {
		return false
	}
	// Writes to partial .download files are filtered out by the suffix
	// check; renames into place arrive as Create.
	if filepath.Ext(ev.Name) == ".download" {
		return false
	}
	return ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}
