package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/apptracker/internal/logger"
)

const defaultRestartDelay = 5 * time.Second

func watchLog() *logger.Logger {
	return logger.Named("watcher")
}

// Watcher hosts a Pipeline and an optional WakeListener. The pipeline is
// restarted after RestartDelay whenever its stream ends or cannot be opened.
type Watcher struct {
	pipeline     *Pipeline
	wake         *WakeListener
	restartDelay time.Duration
}

// New creates a new Watcher instance. wake may be nil.
func New(p *Pipeline, wake *WakeListener) (*Watcher, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}
	return &Watcher{
		pipeline:     p,
		wake:         wake,
		restartDelay: defaultRestartDelay,
	}, nil
}

// SetRestartDelay sets the pause between pipeline runs.
func (w *Watcher) SetRestartDelay(d time.Duration) {
	w.restartDelay = d
}

// Run blocks until ctx is cancelled or the wake listener fails.
func (w *Watcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if w.wake != nil {
		g.Go(func() error {
			return w.wake.Run(ctx)
		})
	}
	g.Go(func() error {
		return w.supervise(ctx)
	})

	return g.Wait()
}

// supervise keeps the pipeline running until ctx is done.
func (w *Watcher) supervise(ctx context.Context) error {
	wlog := watchLog()
	for {
		err := w.pipeline.Start(ctx)
		if errors.Is(err, ErrAlreadyRunning) {
			return err
		}
		if err == nil {
			err = w.pipeline.Wait()
		}
		if ctx.Err() != nil {
			w.pipeline.Stop()
			return nil
		}

		if err != nil {
			wlog.Error().Err(err).Dur("restart_in", w.restartDelay).Msg("log stream failed")
		} else {
			wlog.Warn().Dur("restart_in", w.restartDelay).Msg("log stream ended")
		}

		t := time.NewTimer(w.restartDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}
