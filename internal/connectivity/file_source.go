package connectivity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// FileSource reads the signal from a JSON file the host platform rewrites on
// every network change, e.g. {"connected":true,"reachable":null}
type FileSource struct {
	path    string
	logger  *logrus.Logger
	watcher *fsnotify.Watcher
	changes chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewFileSource creates a source reading path. Call Start to receive change notifications.
func NewFileSource(path string, logger *logrus.Logger) *FileSource {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FileSource{
		path:    path,
		logger:  logger,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (f *FileSource) Read(ctx context.Context) (Signal, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return Signal{}, fmt.Errorf("failed to read connectivity signal: %w", err)
	}

	var sig Signal
	if err := json.Unmarshal(data, &sig); err != nil {
		return Signal{}, fmt.Errorf("failed to decode connectivity signal: %w", err)
	}
	return sig, nil
}

// Start watches the signal file's directory. Watching the directory instead of
// the file keeps notifications flowing when the platform replaces the file
// with a rename.
func (f *FileSource) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		return fmt.Errorf("file source already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	f.watcher = watcher
	f.running = true
	f.wg.Add(1)
	go f.processEvents()

	return nil
}

// Stop stops watching and waits for the event loop to exit
func (f *FileSource) Stop() error {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = false
	f.mu.Unlock()

	close(f.done)
	err := f.watcher.Close()
	f.wg.Wait()

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Changes emits after the signal file is written, created, renamed or removed
func (f *FileSource) Changes() <-chan struct{} {
	return f.changes
}

func (f *FileSource) processEvents() {
	defer f.wg.Done()

	target := filepath.Clean(f.path)
	for {
		select {
		case <-f.done:
			return

		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			select {
			case f.changes <- struct{}{}:
			default:
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.WithError(err).Warn("Connectivity signal watcher error")
		}
	}
}
