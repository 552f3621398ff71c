// Package watch reloads the dataset when its files change on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/Benny93/propfinder-go/internal/dataset"
	"github.com/Benny93/propfinder-go/internal/finder"
	"github.com/Benny93/propfinder-go/internal/metrics"
)

// DefaultDebounce is the quiet period after the last change before a reload.
const DefaultDebounce = 2 * time.Second

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration

	// Ignore holds gitignore-style patterns matched against file names.
	Ignore []string
}

// Watcher rebuilds the served snapshot after changes to the data files.
type Watcher struct {
	files   dataset.Files
	opts    Options
	finder  *finder.Finder
	metrics *metrics.Metrics
	log     *slog.Logger

	fsw     *fsnotify.Watcher
	dirs    []string
	matcher gitignore.Matcher
}

// New starts watching every directory holding a data file. m may be nil.
func New(files dataset.Files, opts Options, f *finder.Finder, m *metrics.Metrics, log *slog.Logger) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if log == nil {
		log = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		files:   files,
		opts:    opts,
		finder:  f,
		metrics: m,
		log:     log,
		fsw:     fsw,
		dirs:    watchDirs(files),
		matcher: newMatcher(opts.Ignore),
	}
	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	return w, nil
}

// Dirs returns the watched directories.
func (w *Watcher) Dirs() []string {
	return slices.Clone(w.dirs)
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run batches change events and reloads once the debounce period has passed
// without further changes. It blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	pending := 0

	w.log.Info("watching dataset", "dirs", w.dirs, "debounce", w.opts.Debounce)

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debug("dataset change", "path", event.Name, "op", event.Op.String())
			pending++
			timer.Reset(w.opts.Debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)

		case <-timer.C:
			if pending == 0 {
				continue
			}
			w.log.Info("reloading dataset", "changes", pending)
			pending = 0
			if err := w.Reload(); err != nil {
				w.log.Error("dataset reload failed; keeping previous snapshot", "error", err)
			}
		}
	}
}

// Reload loads a fresh snapshot and swaps it in. On failure the finder keeps
// serving the previous snapshot.
func (w *Watcher) Reload() error {
	snap, err := dataset.Load(w.files, w.log)
	if err != nil {
		w.metrics.ObserveReload(false, 0)
		return err
	}
	w.finder.Swap(snap)
	w.metrics.ObserveReload(true, snap.Metadata.Len())
	return nil
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return !w.ignored(event.Name)
}

func (w *Watcher) ignored(path string) bool {
	if w.matcher == nil {
		return false
	}
	// Directories are watched without recursion, so the base name is the
	// path relative to the watched directory.
	return w.matcher.Match([]string{filepath.Base(path)}, false)
}

func newMatcher(patterns []string) gitignore.Matcher {
	var ps []gitignore.Pattern
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(p, nil))
	}
	if len(ps) == 0 {
		return nil
	}
	return gitignore.NewMatcher(ps)
}

// watchDirs lists the distinct directories of every configured input.
func watchDirs(files dataset.Files) []string {
	names := []string{
		files.Labels, files.Aliases, files.Descriptions, files.Datatypes,
		files.Metadata, files.ClaimsCounts, files.QualifiersCounts,
		files.TotalCounts, files.ClaimsProperties, files.Constraints, files.Words,
	}
	var dirs []string
	for _, name := range names {
		if name == "" {
			continue
		}
		dir := filepath.Clean(filepath.Dir(files.Path(name)))
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
