package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Watcher calls onChange once per burst of .txt changes under root,
// after debounce has passed without further events.
type Watcher struct {
	root     string
	debounce time.Duration
	onChange func(ctx context.Context)
	watcher  *fsnotify.Watcher
	logger   Logger

	mu         sync.Mutex
	lastChange time.Time
	pending    bool

	cancel context.CancelFunc
	done   chan struct{}
}

func NewWatcher(root string, debounce time.Duration, onChange func(ctx context.Context), log Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		root:     root,
		debounce: debounce,
		onChange: onChange,
		watcher:  fw,
		logger:   log.With(map[string]interface{}{"component": "corpus-watcher"}),
		done:     make(chan struct{}),
	}, nil
}

// Start registers root and its subdirectories and begins processing events.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	ctx, w.cancel = context.WithCancel(ctx)
	go w.loop(ctx)

	w.logger.Info("watching knowledge base", map[string]interface{}{
		"root":     w.root,
		"debounce": w.debounce.String(),
	})
	return nil
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
	return w.watcher.Close()
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", map[string]interface{}{"error": err.Error()})

		case <-ticker.C:
			if w.due() {
				w.onChange(ctx)
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", map[string]interface{}{
					"path":  event.Name,
					"error": err.Error(),
				})
			}
		}
	}

	if !strings.EqualFold(filepath.Ext(event.Name), DocumentExt) {
		return
	}
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.mu.Lock()
		w.lastChange = time.Now()
		w.pending = true
		w.mu.Unlock()
	}
}

func (w *Watcher) due() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.pending || time.Since(w.lastChange) < w.debounce {
		return false
	}
	w.pending = false
	return true
}
