package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// wakeDebounce coalesces the events of one trigger-file write.
const wakeDebounce = 50 * time.Millisecond

// WakeListener refreshes the sink whenever its trigger file is touched,
// e.g. by "apptracker wake" from a screen-on hook. It never counts launches.
type WakeListener struct {
	path string
	open StoreOpener
	sink RefreshSink
	obs  Observer

	// ready is closed once the trigger directory is being watched.
	ready     chan struct{}
	readyOnce sync.Once
}

// NewWakeListener creates a listener for the trigger file at path.
func NewWakeListener(path string, open StoreOpener, sink RefreshSink) *WakeListener {
	if sink == nil {
		sink = nopSink{}
	}
	return &WakeListener{
		path:  filepath.Clean(path),
		open:  open,
		sink:  sink,
		ready: make(chan struct{}),
	}
}

// SetObserver attaches an Observer notified after each refresh.
func (w *WakeListener) SetObserver(obs Observer) {
	w.obs = obs
}

// Ready is closed once Run is watching for wake events.
func (w *WakeListener) Ready() <-chan struct{} {
	return w.ready
}

// Run watches the trigger file until ctx is cancelled.
func (w *WakeListener) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create wake watcher: %w", err)
	}
	defer fw.Close()

	// Watch the directory so the trigger file may be created, replaced or removed freely.
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create wake directory: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.readyOnce.Do(func() { close(w.ready) })

	wlog := watchLog()
	wlog.Debug().Str("path", w.path).Msg("listening for wake events")

	// A single write usually arrives as Create followed by Write; events
	// within wakeDebounce of the first one share a refresh.
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pending:
			pending = nil
			w.refresh(ctx)
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Chmod) {
				wlog.Debug().Str("op", ev.Op.String()).Msg("wake event")
				if pending == nil {
					pending = time.After(wakeDebounce)
				}
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			wlog.Warn().Err(err).Msg("wake watcher error")
		}
	}
}

// refresh notifies the sink with a short-lived store handle, or nil if the
// store cannot be opened.
func (w *WakeListener) refresh(ctx context.Context) {
	st, err := w.open()
	if err != nil {
		wlog := watchLog()
		wlog.Error().Err(err).Msg("failed to open usage store for wake refresh")
		st = nil
	} else {
		defer st.Close()
	}

	w.sink.Notify(ctx, st)
	if w.obs != nil {
		w.obs.Refreshed()
	}
}

// Wake fires a wake event by rewriting the trigger file at path.
func Wake(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create wake directory: %w", err)
	}
	stamp := strconv.FormatInt(time.Now().UnixNano(), 10) + "\n"
	if err := os.WriteFile(path, []byte(stamp), 0644); err != nil {
		return fmt.Errorf("failed to write wake file: %w", err)
	}
	return nil
}
