package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// Source opens a log stream. Closing the returned stream must release every
// resource behind it.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// CommandSource streams the stdout of a command, e.g. logcat.
type CommandSource struct {
	Path string
	Args []string
}

// NewCommandSource builds a CommandSource from a split command line.
func NewCommandSource(cmdline []string) (*CommandSource, error) {
	if len(cmdline) == 0 || cmdline[0] == "" {
		return nil, fmt.Errorf("log command cannot be empty")
	}
	return &CommandSource{Path: cmdline[0], Args: cmdline[1:]}, nil
}

// Open starts the command. The process is killed when ctx is cancelled or
// the stream is closed, and is always reaped by Close.
func (s *CommandSource) Open(ctx context.Context) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, s.Path, s.Args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = nil // sets to /dev/null

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cmd.String(), err)
	}

	wlog := watchLog()
	wlog.Info().Str("command", cmd.String()).Int("pid", cmd.Process.Pid).Msg("log command started")

	return &commandStream{ReadCloser: stdout, cmd: cmd}, nil
}

type commandStream struct {
	io.ReadCloser
	cmd  *exec.Cmd
	once sync.Once
}

// Close closes the pipe, kills the process if it is still running and waits
// for it to exit.
func (c *commandStream) Close() error {
	var err error
	c.once.Do(func() {
		err = c.ReadCloser.Close()
		_ = c.cmd.Process.Kill()
		if werr := c.cmd.Wait(); werr != nil {
			wlog := watchLog()
			wlog.Debug().Err(werr).Int("pid", c.cmd.Process.Pid).Msg("log command exited")
		}
	})
	return err
}

// ReaderSource serves an existing reader, such as stdin, exactly once.
type ReaderSource struct {
	mu   sync.Mutex
	r    io.Reader
	used bool
}

// NewReaderSource wraps r.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

// Open returns the wrapped reader. Later calls fail: the stream cannot be
// reopened.
func (s *ReaderSource) Open(ctx context.Context) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.used {
		return nil, errors.New("reader source already consumed")
	}
	s.used = true

	if rc, ok := s.r.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(s.r), nil
}
