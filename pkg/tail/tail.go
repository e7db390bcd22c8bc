// Package tail follows a growing log file, delivering appended lines over a
// channel until the context is cancelled. One goroutine reads the file and
// one channel serializes the lines, so a consuming reconstruction engine
// still sees a single total order.
package tail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/spool/pkg/logger"
)

// Follower tails one file.
type Follower struct {
	path  string
	lines chan string
	log   *slog.Logger

	// partial buffers an incomplete trailing line between writes.
	partial strings.Builder
}

// NewFollower creates a follower for the file at path. A nil logger is
// replaced with a no-op one.
func NewFollower(path string, log *slog.Logger) *Follower {
	if log == nil {
		log = logger.Nop()
	}

	return &Follower{
		path:  path,
		lines: make(chan string),
		log:   log,
	}
}

// Lines returns the channel appended lines are delivered on. The channel is
// closed when Run returns.
func (f *Follower) Lines() <-chan string {
	return f.lines
}

// Run drains the file's current contents, then delivers each appended line
// as it arrives. Rotation (the file being recreated) reopens from the top.
// Returns nil when ctx is cancelled.
func (f *Follower) Run(ctx context.Context) error {
	defer close(f.lines)

	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer func() { file.Close() }()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file so rotation (remove and
	// recreate) is observable.
	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	reader := bufio.NewReader(file)

	// Drain whatever the file already holds before waiting for writes.
	if err := f.drain(ctx, reader); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			f.flush()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(f.path) {
				continue
			}

			switch {
			case event.Has(fsnotify.Write):
				if err := f.drain(ctx, reader); err != nil {
					return err
				}

			case event.Has(fsnotify.Create):
				// Rotation: reopen and start from the top.
				f.log.Debug("log file recreated, reopening", "path", f.path)
				file.Close()
				file, err = os.Open(f.path)
				if err != nil {
					return fmt.Errorf("reopening log file: %w", err)
				}
				reader = bufio.NewReader(file)
				f.partial.Reset()
				if err := f.drain(ctx, reader); err != nil {
					return err
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching log file: %w", err)
		}
	}
}

// drain reads complete lines until EOF, carrying any trailing partial line
// over to the next write. Stops quietly when ctx is cancelled.
func (f *Follower) drain(ctx context.Context, reader *bufio.Reader) error {
	for {
		chunk, err := reader.ReadString('\n')

		if err != nil {
			if errors.Is(err, io.EOF) {
				f.partial.WriteString(chunk)
				return nil
			}
			return fmt.Errorf("reading log file: %w", err)
		}

		line := f.partial.String() + strings.TrimRight(chunk, "\r\n")
		f.partial.Reset()

		select {
		case f.lines <- line:
		case <-ctx.Done():
			return nil
		}
	}
}

// flush delivers a trailing unterminated line at shutdown, best effort.
func (f *Follower) flush() {
	if f.partial.Len() == 0 {
		return
	}

	line := f.partial.String()
	f.partial.Reset()

	select {
	case f.lines <- line:
	default:
		f.log.Debug("dropping unterminated trailing line", "line", line)
	}
}
