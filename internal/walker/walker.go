// Package walker enumerates candidate regular files under scan roots.
package walker

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Walker streams regular-file paths found under a root directory.
// Directories whose name is in IgnoreDirs are pruned before descent
// (exact name match, not path match). Symlinked directories are entered
// only when FollowSymlinks is set; a symlink pointing at a regular file
// is always reported, matching what the platform's own link resolution
// yields. Non-regular entries (sockets, devices, pipes) are skipped.
type Walker struct {
	IgnoreDirs     map[string]struct{}
	FollowSymlinks bool
	Logger         *slog.Logger
}

// New builds a walker from an ignore-name list.
func New(ignoreDirs []string, followSymlinks bool, logger *slog.Logger) *Walker {
	set := make(map[string]struct{}, len(ignoreDirs))
	for _, d := range ignoreDirs {
		set[d] = struct{}{}
	}
	return &Walker{IgnoreDirs: set, FollowSymlinks: followSymlinks, Logger: logger}
}

// Walk calls emit for every regular file reachable from root. An absent
// or unreadable root is an error; an unreadable directory below it is
// logged and skipped so the rest of the tree still gets scanned. Walk
// stops early when ctx is cancelled.
func (w *Walker) Walk(ctx context.Context, root string, emit func(path string)) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("walker: resolve root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("walker: root %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("walker: root is not a directory: %s", abs)
	}
	return w.walkDir(ctx, abs, emit)
}

func (w *Walker) walkDir(ctx context.Context, dir string, emit func(string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.Logger.Warn("walker: skipping unreadable directory",
			slog.String("path", dir),
			slog.String("error", err.Error()))
		return nil
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := filepath.Join(dir, e.Name())
		switch {
		case e.IsDir():
			if w.ignored(e.Name()) {
				continue
			}
			if err := w.walkDir(ctx, p, emit); err != nil {
				return err
			}
		case e.Type()&fs.ModeSymlink != 0:
			// Stat resolves the link; nothing beyond that is done
			// manually. Broken links are skipped silently.
			ti, err := os.Stat(p)
			if err != nil {
				continue
			}
			switch {
			case ti.IsDir():
				if !w.FollowSymlinks || w.ignored(e.Name()) {
					continue
				}
				if err := w.walkDir(ctx, p, emit); err != nil {
					return err
				}
			case ti.Mode().IsRegular():
				emit(p)
			}
		case e.Type().IsRegular():
			emit(p)
		}
	}
	return nil
}

func (w *Walker) ignored(name string) bool {
	_, ok := w.IgnoreDirs[name]
	return ok
}
