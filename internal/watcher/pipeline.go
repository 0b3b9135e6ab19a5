package watcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/blackwell-systems/apptracker/internal/launch"
	"github.com/blackwell-systems/apptracker/internal/logger"
	"github.com/blackwell-systems/apptracker/internal/store"
)

var (
	// ErrStreamUnavailable is returned by Start when the log source cannot be opened.
	ErrStreamUnavailable = errors.New("log stream unavailable")

	// ErrStreamReadFailure ends a run whose stream failed mid-read.
	ErrStreamReadFailure = errors.New("log stream read failed")

	// ErrAlreadyRunning is returned by Start when a run is in progress.
	ErrAlreadyRunning = errors.New("pipeline already running")
)

// UsageStore is the launch counter store as seen by the pipeline.
// *store.Store implements it.
type UsageStore interface {
	// IncrementAndUpdate adds one launch; implementations serialize writers.
	IncrementAndUpdate(packageName, processName string) error
	ListApps(limit int) ([]*store.AppRecord, error)
	Close() error
}

// StoreOpener opens a fresh store handle. The caller closes it.
type StoreOpener func() (UsageStore, error)

// OpenStore returns a StoreOpener for the SQLite database at dbPath.
// The schema must already exist.
func OpenStore(dbPath string) StoreOpener {
	return func() (UsageStore, error) {
		st, err := store.New(dbPath)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

// RefreshSink is notified after every launch candidate and on wake events.
// st is nil when the store could not be opened. Notify must not panic or
// block for long; failures are the sink's to log.
type RefreshSink interface {
	Notify(ctx context.Context, st UsageStore)
}

// Observer receives pipeline events, e.g. for metrics.
type Observer interface {
	Line(res launch.Result)
	Refreshed()
	RunEnded(err error)
}

// State is the pipeline lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// Pipeline reads a log stream and records qualified launches.
type Pipeline struct {
	src  Source
	open StoreOpener
	sink RefreshSink
	obs  Observer
	log  *logger.Logger

	mu    sync.Mutex
	state State
	cur   *run
	last  *run
}

// run is one Start..Idle cycle.
type run struct {
	id     string
	cancel context.CancelFunc
	stream io.ReadCloser
	done   chan struct{}
	err    error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver attaches an Observer.
func WithObserver(obs Observer) Option {
	return func(p *Pipeline) { p.obs = obs }
}

// WithLogger overrides the pipeline logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// NewPipeline creates an idle pipeline. A nil sink discards notifications.
func NewPipeline(src Source, open StoreOpener, sink RefreshSink, opts ...Option) *Pipeline {
	if sink == nil {
		sink = nopSink{}
	}
	p := &Pipeline{
		src:  src,
		open: open,
		sink: sink,
		log:  logger.Named("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start opens the log stream and begins the read loop in a new goroutine.
// If the stream cannot be opened the error wraps ErrStreamUnavailable and
// the pipeline is Idle again. Cancelling ctx stops the run like Stop.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	p.state = StateRunning
	p.cur = r
	p.mu.Unlock()

	log := p.log.With().Str("run_id", r.id).Logger()

	rc, err := p.src.Open(runCtx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrStreamUnavailable, err)
		log.Error().Err(err).Msg("failed to open log stream")
		p.finish(r, err)
		return err
	}
	stream := &onceCloser{ReadCloser: rc}

	p.mu.Lock()
	r.stream = stream
	p.mu.Unlock()

	log.Info().Msg("log stream opened")

	// Unblock a pending read as soon as the run is cancelled.
	go func() {
		select {
		case <-runCtx.Done():
			stream.Close()
		case <-r.done:
		}
	}()

	go p.readLoop(runCtx, r, &log)
	return nil
}

// Stop ends the current run, if any, and waits until its stream is
// released. It is safe to call concurrently with the read loop.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	r := p.cur
	p.mu.Unlock()
	if r == nil {
		return nil
	}

	r.cancel()
	<-r.done
	return nil
}

// Wait blocks until the current (or most recent) run is back to Idle and
// returns its result: nil after stream closure or Stop, an error wrapping
// ErrStreamReadFailure or ErrStreamUnavailable otherwise.
func (p *Pipeline) Wait() error {
	p.mu.Lock()
	r := p.cur
	if r == nil {
		r = p.last
	}
	p.mu.Unlock()
	if r == nil {
		return nil
	}

	<-r.done
	return r.err
}

func (p *Pipeline) readLoop(ctx context.Context, r *run, log *logger.Logger) {
	var err error
	defer func() {
		p.setState(StateDraining)
		if cerr := r.stream.Close(); cerr != nil {
			log.Debug().Err(cerr).Msg("close log stream")
		}
		p.finish(r, err)
	}()

	br := bufio.NewReader(r.stream)
	for ctx.Err() == nil {
		line, rerr := br.ReadString('\n')
		if line != "" && ctx.Err() == nil {
			p.handleLine(ctx, strings.TrimRight(line, "\r\n"), log)
		}
		if rerr == nil {
			continue
		}
		if rerr != io.EOF && ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", ErrStreamReadFailure, rerr)
			log.Error().Err(err).Msg("log stream read failed")
		} else {
			log.Info().Msg("log stream closed")
		}
		return
	}
	log.Info().Msg("pipeline stopped")
}

// handleLine qualifies one line and applies it. A store handle is opened
// per candidate and closed on every path, including panics.
func (p *Pipeline) handleLine(ctx context.Context, line string, log *logger.Logger) {
	res := launch.Qualify(line)
	if p.obs != nil {
		p.obs.Line(res)
	}
	if res.Outcome == launch.NotCandidate {
		return
	}
	log.Debug().Str("line", line).Msg("launch candidate")

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("panic", fmt.Sprint(r)).
				Str("stacktrace", string(debug.Stack())).
				Msg("panic while processing log line")
		}
	}()

	st, err := p.open()
	if err != nil {
		// The candidate is lost but the sink still hears about it.
		log.Error().Err(err).Msg("failed to open usage store")
		st = nil
	} else {
		defer st.Close()
		p.apply(st, res, log)
	}

	p.sink.Notify(ctx, st)
	if p.obs != nil {
		p.obs.Refreshed()
	}
}

// apply records a qualified launch.
func (p *Pipeline) apply(st UsageStore, res launch.Result, log *logger.Logger) {
	switch res.Outcome {
	case launch.CandidateQualified:
		comp := res.Component
		if err := st.IncrementAndUpdate(comp.Package, comp.Process); err != nil {
			log.Error().Err(err).Str("package", comp.Package).Msg("failed to record launch")
		} else {
			log.Info().Str("package", comp.Package).Str("process", comp.Process).Msg("launch recorded")
		}
	case launch.CandidateIgnored:
		log.Debug().Str("reason", res.Reason).Msg("launch not counted")
	}
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// finish returns the pipeline to Idle and publishes the run result.
func (p *Pipeline) finish(r *run, err error) {
	r.cancel()

	p.mu.Lock()
	r.err = err
	p.state = StateIdle
	p.cur = nil
	p.last = r
	p.mu.Unlock()

	if p.obs != nil {
		p.obs.RunEnded(err)
	}
	close(r.done)
}

// onceCloser lets Stop and the read loop both close the stream.
type onceCloser struct {
	io.ReadCloser
	once sync.Once
	err  error
}

func (c *onceCloser) Close() error {
	c.once.Do(func() { c.err = c.ReadCloser.Close() })
	return c.err
}

type nopSink struct{}

func (nopSink) Notify(context.Context, UsageStore) {}
