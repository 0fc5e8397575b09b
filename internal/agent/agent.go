// Package agent implements the classify-match-copy-audit pipeline over
// one or more source roots.
package agent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/audit"
	"github.com/starford/raido/internal/catalog"
	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/destmap"
	"github.com/starford/raido/internal/identify"
	"github.com/starford/raido/internal/metadata"
	"github.com/starford/raido/internal/rules"
	"github.com/starford/raido/internal/walker"
)

// DefaultWorkers bounds the pipeline when no worker count is configured.
// The workload is I/O bound; the pool overlaps disk latency rather than
// buying CPU parallelism.
const DefaultWorkers = 8

// Options is the read-only run configuration. It is shared by every
// worker and must not change after New.
type Options struct {
	Roots          []string
	Dest           string
	Rules          []rules.Rule
	MaxWorkers     int
	DryRun         bool
	FollowSymlinks bool
	IgnoreDirs     []string
}

// Agent wires discovery, identification, metadata extraction, hashing,
// rule matching, copying, and audit logging into one concurrent run.
type Agent struct {
	opts     Options
	detector identify.Detector
	registry *metadata.Registry
	sink     *audit.Sink
	catalog  catalog.Store // nil when no catalog is configured
	logger   *slog.Logger
	walker   *walker.Walker
	runID    string
	stats    Stats
}

// New validates the roots, creates the destination tree, and opens the
// audit sink. Missing roots are configuration errors surfaced here,
// before any file is touched.
func New(opts Options, det identify.Detector, reg *metadata.Registry, cat catalog.Store, logger *slog.Logger) (*Agent, error) {
	if len(opts.Roots) == 0 {
		return nil, fmt.Errorf("agent: at least one root is required")
	}
	if opts.Dest == "" {
		return nil, fmt.Errorf("agent: destination is required")
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultWorkers
	}
	if len(opts.Rules) == 0 {
		opts.Rules = rules.Default()
	}
	for i, root := range opts.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("agent: resolve root %s: %w", root, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("agent: root %s: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("agent: root is not a directory: %s", abs)
		}
		opts.Roots[i] = abs
	}

	sink, err := audit.Open(opts.Dest)
	if err != nil {
		return nil, err
	}

	return &Agent{
		opts:     opts,
		detector: det,
		registry: reg,
		sink:     sink,
		catalog:  cat,
		logger:   logger,
		walker:   walker.New(opts.IgnoreDirs, opts.FollowSymlinks, logger),
		runID:    strings.TrimSuffix(filepath.Base(sink.Path()), ".csv"),
	}, nil
}

// AuditPath returns the location of this run's audit file.
func (a *Agent) AuditPath() string { return a.sink.Path() }

// Stats exposes the run counters.
func (a *Agent) Stats() *Stats { return &a.stats }

// Close releases the audit sink. Idempotent.
func (a *Agent) Close() error { return a.sink.Close() }

// Run executes the full pipeline once, closes the audit sink, and
// returns the audit file path.
func (a *Agent) Run(ctx context.Context) (string, error) {
	if err := a.Sweep(ctx); err != nil {
		a.sink.Close()
		return "", err
	}
	if err := a.sink.Close(); err != nil {
		return "", fmt.Errorf("agent: close audit: %w", err)
	}
	return a.sink.Path(), nil
}

// Sweep walks every root and processes each discovered file through a
// pool of MaxWorkers workers. Discovery and processing overlap: the
// walker is the single producer feeding the pool. The audit sink stays
// open afterwards so watch mode can keep appending.
func (a *Agent) Sweep(ctx context.Context) error {
	paths := make(chan string)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(paths)
		for _, root := range a.opts.Roots {
			err := a.walker.Walk(gctx, root, func(p string) {
				select {
				case paths <- p:
				case <-gctx.Done():
				}
			})
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				// One bad root halts that root only.
				a.logger.Error("agent: root traversal failed",
					slog.String("root", root),
					slog.String("error", err.Error()))
			}
		}
		return nil
	})

	for i := 0; i < a.opts.MaxWorkers; i++ {
		g.Go(func() error {
			for p := range paths {
				if err := a.processFile(p); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	snap := a.stats.Snapshot()
	a.logger.Info("agent: sweep complete",
		slog.Int64("scanned", snap.Scanned),
		slog.Int64("matched", snap.Matched),
		slog.Int64("skipped", snap.Skipped),
		slog.Int64("errors", snap.Errors))
	return nil
}

// processFile runs identify → extract → hash → match → copy → audit for
// one file. Per-file failures are logged and count as "no match". Only
// an audit-sink write failure is returned: a dropped row would break
// the run's completeness guarantee, so it aborts the run.
func (a *Agent) processFile(path string) error {
	a.stats.Scanned.Add(1)

	mimeType, ext := identify.Identify(a.detector, path)
	meta := a.registry.Extract(mimeType, path)

	sha, size, err := checksum.SumFile(path)
	if err != nil {
		a.stats.Errors.Add(1)
		a.logger.Warn("agent: hash failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil
	}

	rule := rules.FirstMatch(a.opts.Rules, mimeType, ext, meta)
	if rule == nil {
		a.stats.Skipped.Add(1)
		return nil
	}

	copiedTo := audit.DryRunMarker
	if !a.opts.DryRun {
		dst := destmap.Map(a.opts.Dest, rule.Name, path)
		if err := copyFile(path, dst); err != nil {
			a.stats.Errors.Add(1)
			a.logger.Warn("agent: copy failed",
				slog.String("path", path),
				slog.String("dest", dst),
				slog.String("error", err.Error()))
			return nil
		}
		copiedTo = dst
	}

	rec := audit.Record{
		Time:     time.Now(),
		Rule:     rule.Name,
		Src:      path,
		MIME:     mimeType,
		Ext:      ext,
		SHA256:   sha,
		Size:     size,
		CopiedTo: copiedTo,
		Metadata: meta,
	}
	if err := a.sink.Append(rec); err != nil {
		return err
	}
	a.stats.Matched.Add(1)

	if a.catalog != nil {
		row := catalog.Row{
			RunID:    a.runID,
			Time:     rec.Time,
			Rule:     rec.Rule,
			Src:      rec.Src,
			MIME:     rec.MIME,
			Ext:      rec.Ext,
			SHA256:   rec.SHA256,
			Size:     rec.Size,
			CopiedTo: rec.CopiedTo,
			Metadata: audit.MarshalMetadata(rec.Metadata),
		}
		if err := a.catalog.Insert(row); err != nil {
			a.logger.Warn("agent: catalog insert failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// copyFile copies src to dst, creating parent directories and carrying
// over the source's mode and timestamps. MkdirAll is safe when two
// workers race on a shared intermediate directory. Timestamps are
// best-effort.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat src: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open src: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create dst: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close dst: %w", err)
	}
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	return nil
}
