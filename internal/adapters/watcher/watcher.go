// Package watcher reloads catalog files when they change on disk.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event represents a file system event.
type Event struct {
	Path      string
	Operation Operation
}

// Operation represents the type of file operation.
type Operation int

// File operation types.
const (
	OpCreate Operation = iota
	OpModify
	OpDelete
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Handler is called when a relevant file event occurs. Calls are
// sequential.
type Handler func(ctx context.Context, event Event) error

// change is a debounced event waiting for its file to go quiet.
type change struct {
	at time.Time
	op Operation
}

// merge folds a later operation on the same file into c.
func (c *change) merge(op Operation, at time.Time) {
	c.at = at
	switch {
	case c.op == OpDelete && op != OpDelete:
		// deleted, then written again: a download replaced the file
		c.op = OpCreate
	case op == OpDelete:
		c.op = OpDelete
	}
}

// Watcher watches directories for catalog file changes. Bursts of events
// on one file, such as the writes of a copy, are collapsed into a single
// event once the file has been quiet for the debounce interval.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	handler   Handler
	filter    func(path string) bool
	logger    *slog.Logger
	paths     []string
	debounce  time.Duration
	mu        sync.Mutex
	pending   map[string]*change
	wg        sync.WaitGroup
	done      chan struct{}
	stopOnce  sync.Once
}

// Config holds watcher configuration.
type Config struct {
	Paths    []string
	Debounce time.Duration

	// Filter selects the files whose events reach the handler. Hidden
	// files are always ignored. Nil accepts every file.
	Filter func(path string) bool
}

// New creates a new file watcher.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg.Debounce == 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.Filter == nil {
		cfg.Filter = func(string) bool { return true }
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		handler:   handler,
		filter:    cfg.Filter,
		logger:    logger,
		paths:     cfg.Paths,
		debounce:  cfg.Debounce,
		pending:   make(map[string]*change),
		done:      make(chan struct{}),
	}, nil
}

// Start starts watching the configured paths. The watcher runs until ctx
// is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	for _, path := range w.paths {
		if err := w.watch(path); err != nil {
			w.logger.Warn("failed to watch path", "path", path, "error", err)
		}
	}

	w.wg.Add(2)
	go func() {
		defer w.wg.Done()
		w.eventLoop(ctx)
	}()
	go func() {
		defer w.wg.Done()
		w.debounceLoop(ctx)
	}()

	return nil
}

// Stop stops the watcher and waits for a running handler to return.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
		w.wg.Wait()
	})
	return err
}

// eventLoop processes fsnotify events.
func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.record(event, time.Now())

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// relevant reports whether events on path reach the handler.
func (w *Watcher) relevant(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return w.filter(path)
}

// record queues a relevant fsnotify event for debouncing.
func (w *Watcher) record(event fsnotify.Event, at time.Time) {
	// permission changes leave the content alone
	if event.Op == fsnotify.Chmod || !w.relevant(event.Name) {
		return
	}
	w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())

	op := operationOf(event.Op)

	w.mu.Lock()
	defer w.mu.Unlock()
	if c, ok := w.pending[event.Name]; ok {
		c.merge(op, at)
		return
	}
	w.pending[event.Name] = &change{at: at, op: op}
}

// debounceLoop processes debounced events.
func (w *Watcher) debounceLoop(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.done:
			return

		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

// due removes and returns the events that have been quiet for the
// debounce interval, ordered by path.
func (w *Watcher) due(now time.Time) []Event {
	w.mu.Lock()
	defer w.mu.Unlock()

	var events []Event
	for path, c := range w.pending {
		if now.Sub(c.at) < w.debounce {
			continue
		}
		delete(w.pending, path)
		events = append(events, Event{Path: path, Operation: c.op})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	return events
}

// processPending hands due events to the handler one at a time.
func (w *Watcher) processPending(ctx context.Context) {
	for _, e := range w.due(time.Now()) {
		w.logger.Info("processing file event",
			"path", e.Path,
			"operation", e.Operation.String(),
		)

		if err := w.handler(ctx, e); err != nil {
			w.logger.Error("handler error",
				"path", e.Path,
				"operation", e.Operation.String(),
				"error", err,
			)
		}
	}
}

// operationOf maps an fsnotify operation. A rename removes the file from
// the watched name.
func operationOf(op fsnotify.Op) Operation {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return OpDelete
	case op.Has(fsnotify.Create):
		return OpCreate
	default:
		return OpModify
	}
}

func (w *Watcher) watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.fsWatcher.Add(abs); err != nil {
		return err
	}
	w.logger.Info("watching catalog directory", "path", abs)
	return nil
}
