package statement

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounce is how long a file must stay quiet before it is handed
// over. Editors and copy tools write in several steps.
const WatchDebounce = 200 * time.Millisecond

// Watch calls fn for every statement file created or written in
// <repoRoot>/import/ until ctx is done. Calls to fn are serialized.
func Watch(ctx context.Context, repoRoot string, logger *slog.Logger, fn func(FileInfo)) error {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Join(repoRoot, importDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating import dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Debug("watching import dir", "dir", dir)

	var (
		mu     sync.Mutex // guards timers and serializes fn
		timers = make(map[string]*time.Timer)
	)
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		for _, t := range timers {
			t.Stop()
		}
	}()

	fire := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		delete(timers, path)
		if ctx.Err() != nil {
			return
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return
		}
		fn(FileInfo{Name: filepath.Base(path), Path: path, Size: info.Size()})
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !statementFile(event.Name) {
				continue
			}

			path := event.Name
			mu.Lock()
			if t, ok := timers[path]; ok {
				t.Stop()
			}
			timers[path] = time.AfterFunc(WatchDebounce, func() { fire(path) })
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "err", err)
		}
	}
}
