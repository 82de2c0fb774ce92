package intake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce gives editors and atomic writers time to finish before we read.
const debounce = 200 * time.Millisecond

// Watch blocks and processes signal files as they appear under dir, which is
// repo-relative. Each matching create or write runs the file through the full
// pipeline; failures are logged and watching continues. Returns when ctx is
// cancelled.
func (r *Runner) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	absDir := filepath.Join(r.repoRoot, dir)
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return fmt.Errorf("create watch directory: %w", err)
	}
	if err := watcher.Add(absDir); err != nil {
		return fmt.Errorf("watch %s: %w", absDir, err)
	}
	// Watch subdirectories too, present and future.
	if err := filepath.WalkDir(absDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == absDir {
			return err
		}
		return watcher.Add(path)
	}); err != nil {
		return fmt.Errorf("watch subdirectories: %w", err)
	}

	r.logger.Info("watching for signals", "dir", dir)

	pending := map[string]*time.Timer{}
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	fired := make(chan string, 16)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case path := <-fired:
			delete(pending, path)
			r.handleWatched(ctx, path)

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					watcher.Add(event.Name)
					continue
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			path := event.Name
			if timer, exists := pending[path]; exists {
				timer.Reset(debounce)
				continue
			}
			pending[path] = time.AfterFunc(debounce, func() {
				select {
				case fired <- path:
				case <-ctx.Done():
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("watch error", "error", err)
		}
	}
}

func (r *Runner) handleWatched(ctx context.Context, absPath string) {
	rel, err := filepath.Rel(r.repoRoot, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	rel = filepath.ToSlash(rel)
	if !r.matchesGlobs(rel) {
		return
	}

	location, err := r.processFile(ctx, rel)
	if err != nil {
		r.logger.Error("signal rejected", "signal", rel, "error", err)
		return
	}
	r.logger.Info("generated care-case", "signal", rel, "case_file", location)
}
