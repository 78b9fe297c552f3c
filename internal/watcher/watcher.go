// Package watcher reports changes to a site's Markdown content and its
// site configuration file.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 100 * time.Millisecond

// Handlers receive change notifications. Either may be nil.
type Handlers struct {
	// OnContent is called with the path of a changed Markdown file,
	// relative to the content directory and without the .md suffix.
	OnContent func(page string)
	// OnSite is called when the site file changed. Errors wrapping
	// os.ErrNotExist are retried, since editors save by replacing the file.
	OnSite func() error
}

// Watcher watches a content directory tree and a site file.
type Watcher struct {
	fsw        *fsnotify.Watcher
	contentDir string
	siteFile   string
	handlers   Handlers
	lastEvent  map[string]time.Time
}

// New starts watching contentDir (recursively) and siteFile. siteFile may
// be empty.
func New(contentDir, siteFile string, handlers Handlers) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fsw:       fsw,
		handlers:  handlers,
		lastEvent: make(map[string]time.Time),
	}

	if w.contentDir, err = filepath.Abs(contentDir); err != nil {
		w.closeOnError()
		return nil, err
	}
	if err := w.addTree(w.contentDir); err != nil {
		w.closeOnError()
		return nil, fmt.Errorf("failed to watch content: %w", err)
	}

	if siteFile != "" {
		if w.siteFile, err = filepath.Abs(siteFile); err != nil {
			w.closeOnError()
			return nil, err
		}
		// Watch the parent directory instead of the file directly
		// This handles atomic saves where the file is deleted and recreated
		// https://github.com/fsnotify/fsnotify/issues/372
		if err := fsw.Add(filepath.Dir(w.siteFile)); err != nil {
			w.closeOnError()
			return nil, fmt.Errorf("failed to watch site file: %w", err)
		}
	}

	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) closeOnError() {
	if err := w.fsw.Close(); err != nil {
		log.Printf("Failed to close watcher: %v", err)
	}
}

// Run dispatches events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.fsw.Close(); err != nil {
			log.Printf("Failed to close watcher: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("Watcher error: %v", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)) {
		return
	}

	path, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() && w.inContent(path) {
			if err := w.addTree(path); err != nil {
				log.Printf("Failed to watch new directory %s: %v", path, err)
			}
			return
		}
	}

	// Debounce: skip if we handled this file very recently
	now := time.Now()
	if now.Sub(w.lastEvent[path]) < debounceDelay {
		return
	}
	w.lastEvent[path] = now

	switch {
	case w.siteFile != "" && path == w.siteFile:
		log.Printf("Site config changed: %s (event: %s)", event.Name, event.Op)
		w.reloadSite()
	case w.inContent(path) && strings.HasSuffix(path, ".md"):
		page, err := filepath.Rel(w.contentDir, path)
		if err != nil {
			return
		}
		log.Printf("Content changed: %s (event: %s)", event.Name, event.Op)
		if w.handlers.OnContent != nil {
			w.handlers.OnContent(filepath.ToSlash(strings.TrimSuffix(page, ".md")))
		}
	}
}

func (w *Watcher) reloadSite() {
	if w.handlers.OnSite == nil {
		return
	}

	// Retry in case the file is temporarily missing during atomic save
	var err error
	for range 10 {
		err = w.handlers.OnSite()
		if err == nil {
			return
		}
		if errors.Is(err, os.ErrNotExist) {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		break
	}
	log.Printf("Failed to reload site config: %v", err)
}

func (w *Watcher) inContent(path string) bool {
	rel, err := filepath.Rel(w.contentDir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
