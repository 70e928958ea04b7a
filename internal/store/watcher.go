package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangedCallback is called after the database file changed on disk outside
// this process (restore from backup, file sync tool, manual sqlite3 session).
type ChangedCallback func()

// Watch starts an fsnotify watcher on the directory holding the SQLite
// database and reports out-of-process changes until ctx is cancelled.
//
// The database file itself cannot be watched directly: WAL checkpoints and
// atomic replaces swap the inode, which would silently drop the watch. The
// parent directory is watched instead and events are filtered by name. Writes
// performed through this process also touch the file, so callers should treat
// the callback as a hint to re-fetch, not as an exact change feed; events are
// debounced to one callback per quiet interval.
func Watch(ctx context.Context, dbPath string, logger *slog.Logger, cb ChangedCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(dbPath)
	if err := w.Add(dir); err != nil {
		return err
	}
	base := filepath.Base(dbPath)

	logger.Info("watcher: started", slog.String("db", dbPath))

	var debounce *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if debounce == nil {
			debounce = time.NewTimer(200 * time.Millisecond)
			fire = debounce.C
		} else {
			debounce.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			logger.Debug("watcher: database changed on disk")
			if cb != nil {
				cb()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			// The -wal and -shm sidecars change on every write too.
			if name != base && !strings.HasPrefix(name, base+"-") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
