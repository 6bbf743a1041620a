// Package web holds HTTP middleware and the single-page UI asset server.
package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const (
	indexFile    = "index.html"
	StaticPrefix = "/static/"
)

// Assets serves the UI page. With a directory configured, the page is read
// from disk and reloaded when it changes, and the directory's files are
// served under /static/. Otherwise the embedded copy is served.
type Assets struct {
	dir    string
	logger *slog.Logger
	static http.Handler

	mu   sync.RWMutex
	page []byte

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewAssets loads dir/index.html, or fallback when dir is empty, and starts
// watching dir for changes.
func NewAssets(dir string, fallback []byte, logger *slog.Logger) (*Assets, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Assets{dir: dir, logger: logger, page: fallback, done: make(chan struct{})}
	if dir == "" {
		return a, nil
	}

	if err := a.reload(); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory; editors often replace the file instead of writing it.
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	a.watcher = w
	a.static = http.StripPrefix(StaticPrefix, http.FileServer(http.Dir(dir)))
	a.wg.Add(1)
	go a.watch()
	logger.Info("Serving UI from disk", "dir", dir)
	return a, nil
}

// Page returns the current page bytes.
func (a *Assets) Page() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.page
}

func (a *Assets) reload() error {
	data, err := os.ReadFile(filepath.Join(a.dir, indexFile))
	if err != nil {
		return fmt.Errorf("read %s: %w", indexFile, err)
	}
	a.mu.Lock()
	a.page = data
	a.mu.Unlock()
	return nil
}

func (a *Assets) watch() {
	defer a.wg.Done()
	for {
		select {
		case <-a.done:
			return
		case ev, ok := <-a.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != indexFile || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := a.reload(); err != nil {
				a.logger.Warn("UI reload failed, keeping previous page", "error", err)
				continue
			}
			a.logger.Info("UI page reloaded", "file", ev.Name)
		case err, ok := <-a.watcher.Errors:
			if !ok {
				return
			}
			a.logger.Warn("UI watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (a *Assets) Close() error {
	if a.watcher == nil {
		return nil
	}
	select {
	case <-a.done:
		return nil
	default:
	}
	close(a.done)
	err := a.watcher.Close()
	a.wg.Wait()
	return err
}

// ServeHTTP serves the page at "/" and static files under /static/.
func (a *Assets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, StaticPrefix) {
		a.serveStatic(w, r)
		return
	}
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(a.Page())
}

func (a *Assets) serveStatic(w http.ResponseWriter, r *http.Request) {
	// No directory listings.
	if a.static == nil || strings.HasSuffix(r.URL.Path, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	a.static.ServeHTTP(w, r)
}
