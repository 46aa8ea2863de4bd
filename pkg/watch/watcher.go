package watch

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
)

// ErrAlreadyRunning is returned by Watch on a watcher that is running.
var ErrAlreadyRunning = errors.New("watcher already running")

// DefaultDebounce is the quiet period used when Config.Debounce is zero.
const DefaultDebounce = 100 * time.Millisecond

// Config contains configuration for the file watcher.
type Config struct {
	// Path is the definition file or directory to watch.
	Path string

	// Debounce is the quiet period after the last event before the
	// callback runs. Default: 100ms
	Debounce time.Duration

	// Extensions filters files in a watched directory.
	// Default: .yaml, .yml
	Extensions []string
}

// FileWatcher watches definition files and triggers reloads.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	config   Config
	debounce *Debouncer

	// target is the cleaned file path when a single file is watched.
	target string

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	stop    sync.Once
}

// NewFileWatcher creates a watcher. The path must exist.
func NewFileWatcher(cfg *Config, logger *slog.Logger) (*FileWatcher, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, fmt.Errorf("watch path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := *cfg
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if len(c.Extensions) == 0 {
		c.Extensions = []string{".yaml", ".yml"}
	}

	info, err := os.Stat(c.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q: %w", c.Path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher:  watcher,
		logger:   logger.With("component", "watch", "path", c.Path),
		config:   c,
		debounce: NewDebouncer(c.Debounce),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	if !info.IsDir() {
		fw.target = filepath.Clean(c.Path)
	}
	return fw, nil
}

// Watch blocks, calling onChange after each debounced burst of events,
// until ctx is done or Stop is called. Callback errors are logged and
// watching continues.
func (fw *FileWatcher) Watch(ctx context.Context, onChange func() error) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return ErrAlreadyRunning
	}
	fw.running = true
	fw.mu.Unlock()
	defer close(fw.doneCh)

	if err := fw.addPaths(); err != nil {
		return fmt.Errorf("failed to watch path: %w", err)
	}

	fw.logger.Info("file watcher started", "debounce_ms", fw.config.Debounce.Milliseconds())

	for {
		select {
		case <-ctx.Done():
			fw.logger.Info("file watcher stopped (context cancelled)")
			return nil

		case <-fw.stopCh:
			fw.logger.Info("file watcher stopped")
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !fw.shouldProcess(event) {
				continue
			}

			fw.logger.Debug("file event detected", "file", event.Name, "op", event.Op.String())
			fw.debounce.Trigger(func() {
				fw.logger.Info("reloading definitions", "file", event.Name)
				if err := onChange(); err != nil {
					fw.logger.Error("definition reload failed", "error", err)
				}
			})

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			fw.logger.Error("file watcher error", "error", err)
		}
	}
}

// Stop stops the watcher and releases fsnotify resources. It is safe to
// call more than once and before Watch.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stop.Do(func() {
		close(fw.stopCh)

		fw.mu.Lock()
		running := fw.running
		fw.mu.Unlock()
		if running {
			<-fw.doneCh
		}

		fw.debounce.Stop()
		if closeErr := fw.watcher.Close(); closeErr != nil {
			err = fmt.Errorf("failed to close watcher: %w", closeErr)
		}
	})
	return err
}

func (fw *FileWatcher) addPaths() error {
	if fw.target != "" {
		return fw.watcher.Add(filepath.Dir(fw.target))
	}

	root := fw.config.Path
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", path, err)
		}
		return nil
	})
}

func (fw *FileWatcher) shouldProcess(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if fw.target != "" {
		return filepath.Clean(event.Name) == fw.target
	}

	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, valid := range fw.config.Extensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}
