package agent

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long a path must be quiet before it is processed,
// so a file still being written lands in the pipeline once, complete.
const settleDelay = 500 * time.Millisecond

// Watch keeps processing files created or modified under the roots
// until ctx is cancelled. Newly created directories are added to the
// watch list on the fly, honoring the ignore list. Events under the
// destination tree are discarded: the agent's own copies must not feed
// back into the pipeline.
func (a *Agent) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("agent: watcher: %w", err)
	}
	defer w.Close()

	for _, root := range a.opts.Roots {
		if err := a.addDirsRecursive(w, root); err != nil {
			return fmt.Errorf("agent: watch %s: %w", root, err)
		}
	}
	a.logger.Info("agent: watching roots", slog.Int("count", len(a.opts.Roots)))

	var mu sync.Mutex
	pending := make(map[string]*time.Timer)
	fire := make(chan string, 64)

	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := pending[path]; ok {
			t.Reset(settleDelay)
			return
		}
		pending[path] = time.AfterFunc(settleDelay, func() {
			mu.Lock()
			delete(pending, path)
			mu.Unlock()
			select {
			case fire <- path:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, t := range pending {
				t.Stop()
			}
			mu.Unlock()
			a.logger.Info("agent: watch stopped")
			return nil

		case path := <-fire:
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				if err := a.processFile(path); err != nil {
					return err
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if a.underDest(ev.Name) {
				continue
			}
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				if ev.Op&fsnotify.Create != 0 {
					if err := a.addDirsRecursive(w, ev.Name); err != nil {
						a.logger.Warn("agent: watch new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", err.Error()))
					}
				}
				continue
			}
			schedule(ev.Name)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("agent: watcher error", slog.String("error", err.Error()))
		}
	}
}

// addDirsRecursive registers dir and every subdirectory not on the
// ignore list with the watcher. Unreadable subtrees are logged and
// skipped, matching the walker's policy.
func (a *Agent) addDirsRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			a.logger.Warn("agent: watch add skipped",
				slog.String("path", p),
				slog.String("error", err.Error()))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir {
			if _, ignored := a.walker.IgnoreDirs[d.Name()]; ignored {
				return fs.SkipDir
			}
			if a.underDest(p) {
				return fs.SkipDir
			}
		}
		return w.Add(p)
	})
}

func (a *Agent) underDest(path string) bool {
	dest, err := filepath.Abs(a.opts.Dest)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return abs == dest || strings.HasPrefix(abs, dest+string(os.PathSeparator))
}
