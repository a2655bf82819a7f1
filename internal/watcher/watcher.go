// Package watcher reports settled changes to a single jobs file.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leefowlercu/dron/internal/fsutil"
)

// Change is a content change of the watched file.
type Change struct {
	Path string

	// Hash is the SHA-256 of the new contents; empty when Removed.
	Hash string

	Removed bool
	At      time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the file must be quiet before a change is reported.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithRemoveGrace sets how long a removed file may take to reappear before
// the removal is reported.
func WithRemoveGrace(d time.Duration) Option {
	return func(w *Watcher) {
		w.grace = d
	}
}

// WithLogger sets the watcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// Watcher watches the directory holding a file, since editors commonly save
// by renaming a temp file over the original, and reports changes to that file
// whose contents differ from the last reported ones.
type Watcher struct {
	path string
	fsw  *fsnotify.Watcher

	debounce time.Duration
	grace    time.Duration
	logger   *slog.Logger

	coalescer *Coalescer
	lastHash  string

	changes  chan Change
	errs     chan error
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a Watcher for path. The current contents become the baseline,
// so only later edits are reported.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path; %w", err)
	}

	w := &Watcher{
		path:     abs,
		debounce: 500 * time.Millisecond,
		grace:    2 * time.Second,
		logger:   slog.Default(),
		changes:  make(chan Change),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if hash, err := fsutil.HashFile(abs); err == nil {
		w.lastHash = hash
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s; %w", abs, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher; %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s; %w", filepath.Dir(abs), err)
	}
	w.fsw = fsw
	w.coalescer = NewCoalescer(w.debounce, w.grace)

	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Changes delivers settled content changes. It is closed after Stop or when
// ctx passed to Start is done.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Errors reports fsnotify failures without blocking the watcher.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Start begins processing events in the background.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(2)
	go w.readEvents(ctx)
	go w.publish(ctx)

	go func() {
		w.wg.Wait()
		close(w.changes)
	}()
}

// Stop releases the fsnotify watch and waits for the background goroutines.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.coalescer.Stop()
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) readEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("fsnotify error", "error", err)
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path || isEditorNoise(ev.Name) {
		return
	}

	var op Op
	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		op = OpRemove
	case ev.Has(fsnotify.Create):
		op = OpCreate
	case ev.Has(fsnotify.Write):
		op = OpWrite
	default:
		return
	}

	w.logger.Debug("jobs file event", "path", ev.Name, "op", op)
	w.coalescer.Add(Event{Path: w.path, Op: op, At: time.Now()})
}

func (w *Watcher) publish(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.coalescer.Events():
			if !ok {
				return
			}
			change, ok := w.settle(ev)
			if !ok {
				continue
			}
			select {
			case w.changes <- change:
			case <-ctx.Done():
				return
			case <-w.done:
				return
			}
		}
	}
}

// settle turns a coalesced event into a Change, dropping events that leave
// the contents as they were.
func (w *Watcher) settle(ev Event) (Change, bool) {
	hash, err := fsutil.HashFile(w.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if w.lastHash == "" {
			return Change{}, false
		}
		w.lastHash = ""
		return Change{Path: w.path, Removed: true, At: ev.At}, true
	case err != nil:
		w.logger.Warn("failed to hash jobs file", "path", w.path, "error", err)
		return Change{}, false
	case hash == w.lastHash:
		return Change{}, false
	}

	w.lastHash = hash
	return Change{Path: w.path, Hash: hash, At: ev.At}, true
}

// isEditorNoise reports transient editor artifacts.
func isEditorNoise(path string) bool {
	name := filepath.Base(path)

	switch {
	case strings.HasSuffix(name, ".swp"), strings.HasSuffix(name, ".swo"), strings.HasSuffix(name, ".swx"):
		return true
	case name == "4913":
		return true
	case strings.HasPrefix(name, "#") && strings.HasSuffix(name, "#"):
		return true
	case strings.HasSuffix(name, "~"):
		return true
	}
	return false
}
