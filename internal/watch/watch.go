// Package watch triggers a callback when files under a set of directories
// change, coalescing bursts of events into one call.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches directory trees and single files.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	log      *slog.Logger

	trees []string        // directory roots, watched recursively
	files map[string]bool // single files, watched through their directory
}

// New watches every directory under each root (recursively) and any root
// that is a plain file. A file is watched through its parent directory so
// that editors replacing it by rename keep being seen.
func New(roots []string, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &Watcher{fsw: fsw, debounce: debounce, log: log, files: make(map[string]bool)}
	for _, root := range roots {
		if err := w.add(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(root string) error {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	if !info.IsDir() {
		w.files[root] = true
		if err := w.fsw.Add(filepath.Dir(root)); err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
		return nil
	}
	w.trees = append(w.trees, root)
	return w.addTree(root)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

// Run calls fn once per burst of changes, after the debounce interval has
// passed without a further event. It returns when ctx is done.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context)) error {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) || !w.covers(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.log.Warn("could not watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			w.log.Debug("change detected", "path", event.Name, "op", event.Op.String())
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			pending = true

		case <-timer.C:
			pending = false
			fn(ctx)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// covers reports whether name is one of the watched files or lies inside a
// watched tree. Directories added only for a single file report other
// entries too, and those are dropped here.
func (w *Watcher) covers(name string) bool {
	name = filepath.Clean(name)
	if w.files[name] {
		return true
	}
	for _, root := range w.trees {
		if name == root || strings.HasPrefix(name, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func relevant(event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}
	base := filepath.Base(event.Name)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~")
}
