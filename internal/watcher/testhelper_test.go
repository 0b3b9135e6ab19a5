package watcher

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blackwell-systems/apptracker/internal/launch"
	"github.com/blackwell-systems/apptracker/internal/store"
)

const (
	qualifyingLine = "I/ActivityManager(  102): Starting activity: Intent { act=android.intent.action.MAIN cat=[android.intent.category.LAUNCHER] flg=0x10000000 cmp=com.example.app/.Main }"
	homeLaunchLine = "I/ActivityManager(  102): Starting activity: Intent { act=android.intent.action.MAIN cat=[android.intent.category.HOME] flg=0x10000000 cmp=com.example.app/.Main }"
	unrelatedLine  = "D/dalvikvm(  431): GC_EXPLICIT freed 1024 objects"
)

// fakeStore counts increments and handle lifetimes.
type fakeStore struct {
	mu         sync.Mutex
	increments []launch.Component
	opens      int
	closes     int
	openErr    error
}

func (f *fakeStore) opener() StoreOpener {
	return func() (UsageStore, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.openErr != nil {
			return nil, f.openErr
		}
		f.opens++
		return &fakeHandle{f: f}, nil
	}
}

func (f *fakeStore) counts() (opens, closes, increments int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens, f.closes, len(f.increments)
}

type fakeHandle struct {
	f      *fakeStore
	closed bool
}

func (h *fakeHandle) IncrementAndUpdate(pkg, proc string) error {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	h.f.increments = append(h.f.increments, launch.Component{Package: pkg, Process: proc})
	return nil
}

func (h *fakeHandle) ListApps(limit int) ([]*store.AppRecord, error) {
	return nil, nil
}

func (h *fakeHandle) Close() error {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	if !h.closed {
		h.closed = true
		h.f.closes++
	}
	return nil
}

// countingSink counts notifications.
type countingSink struct {
	n      atomic.Int32
	nils   atomic.Int32
	notify chan struct{}
	panics bool
}

func newCountingSink() *countingSink {
	return &countingSink{notify: make(chan struct{}, 100)}
}

func (s *countingSink) Notify(ctx context.Context, st UsageStore) {
	s.n.Add(1)
	if st == nil {
		s.nils.Add(1)
	}
	s.notify <- struct{}{}
	if s.panics {
		panic("sink exploded")
	}
}

func (s *countingSink) count() int { return int(s.n.Load()) }

// pipeSource hands out io.Pipe readers and tracks their closure.
type pipeSource struct {
	mu      sync.Mutex
	opens   int
	closes  int
	writers []*io.PipeWriter
	openErr error
}

func (s *pipeSource) Open(ctx context.Context) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	r, w := io.Pipe()
	s.opens++
	s.writers = append(s.writers, w)
	return &trackedReader{PipeReader: r, src: s}, nil
}

func (s *pipeSource) writer(t *testing.T, i int) *io.PipeWriter {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= len(s.writers) {
		t.Fatalf("stream %d was never opened", i)
	}
	return s.writers[i]
}

func (s *pipeSource) counts() (opens, closes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens, s.closes
}

type trackedReader struct {
	*io.PipeReader
	src  *pipeSource
	once sync.Once
}

func (r *trackedReader) Close() error {
	r.once.Do(func() {
		r.src.mu.Lock()
		r.src.closes++
		r.src.mu.Unlock()
	})
	return r.PipeReader.Close()
}

// errReader fails after returning its data.
type errReader struct {
	data string
	err  error
	done bool
}

func (r *errReader) Read(p []byte) (int, error) {
	if !r.done {
		r.done = true
		return copy(p, r.data), nil
	}
	return 0, r.err
}

var errBoom = errors.New("boom")

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func writeLines(t *testing.T, w io.Writer, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if _, err := io.WriteString(w, l+"\n"); err != nil {
			t.Fatalf("write line: %v", err)
		}
	}
}
