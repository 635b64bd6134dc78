package overrides

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driving"
	"github.com/custodia-labs/tributary/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driving.AssetSpecOverrides = (*Watcher)(nil)

// Watcher serves the latest successfully parsed version of a rules file.
// A file that fails to parse after an edit keeps the previous rules live.
type Watcher struct {
	path    string
	current atomic.Pointer[Rules]

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// NewWatcher loads the rules file. It does not watch until Watch is called.
func NewWatcher(filename string) (*Watcher, error) {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}
	rules, err := Load(abs)
	if err != nil {
		return nil, err
	}
	w := &Watcher{path: abs}
	w.current.Store(rules)
	return w, nil
}

// Rules returns the rules currently in effect.
func (w *Watcher) Rules() *Rules {
	return w.current.Load()
}

// MetadataForTable delegates to the current rules.
func (w *Watcher) MetadataForTable(conn domain.Connector, table domain.DestinationTable) map[string]any {
	return w.Rules().MetadataForTable(conn, table)
}

// DepsForTable delegates to the current rules.
func (w *Watcher) DepsForTable(conn domain.Connector, table domain.DestinationTable) []domain.AssetKey {
	return w.Rules().DepsForTable(conn, table)
}

// Watch starts watching the file and returns a channel that receives the
// new rules after every successful reload. The channel is closed when ctx
// is done or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan *Rules, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, errors.New("overrides watcher is closed")
	}
	if w.watcher != nil {
		return nil, errors.New("overrides watcher already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Editors replace files by rename, which drops a watch on the file itself
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.path, err)
	}
	w.watcher = fsw

	updates := make(chan *Rules, 1)
	go w.loop(ctx, fsw, updates)
	return updates, nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, updates chan<- *Rules) {
	defer close(updates)
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			rules := w.handleEvent(event)
			if rules == nil {
				continue
			}
			select {
			case updates <- rules:
			case <-ctx.Done():
				return
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("overrides watcher: %v", err)
		}
	}
}

// handleEvent reloads the file when the event concerns it. It returns nil
// when nothing changed or the new content is invalid.
func (w *Watcher) handleEvent(event fsnotify.Event) *Rules {
	if filepath.Clean(event.Name) != w.path {
		return nil
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return nil
	}

	rules, err := Load(w.path)
	if err != nil {
		logger.Warn("Keeping previous overrides: %v", err)
		return nil
	}
	w.current.Store(rules)
	logger.Info("Reloaded %d override rules from %s", rules.Len(), w.path)
	return rules
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	w.watcher = nil
	return err
}
