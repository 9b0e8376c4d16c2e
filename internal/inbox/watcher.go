// Package inbox watches a directory for raw model responses and writes the
// normalized segments next to each one.
package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"replykit/internal/articulation"
	"replykit/internal/config"
	"replykit/internal/logging"
)

// OutputSuffix is appended to the base name of each processed file.
const OutputSuffix = ".segments.json"

// DefaultDebounce coalesces the bursts of write events editors produce.
const DefaultDebounce = 300 * time.Millisecond

// Watcher normalizes files dropped into a directory.
type Watcher struct {
	dir       string
	exts      map[string]bool
	processor *articulation.ResponseProcessor

	// Debounce is how long a path must stay quiet before it is processed.
	Debounce time.Duration

	mu          sync.Mutex
	debounceMap map[string]time.Time
	stats       Stats
}

// Stats counts watcher activity.
type Stats struct {
	Processed     int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

// FileResult is the document written to <base>.segments.json.
type FileResult struct {
	Source string `json:"source"`
	*articulation.ArticulationResult
}

// New creates a watcher for cfg.Dir.
func New(cfg config.InboxConfig, rp *articulation.ResponseProcessor) *Watcher {
	exts := make(map[string]bool, len(cfg.Extensions))
	for _, e := range cfg.Extensions {
		exts[strings.ToLower(e)] = true
	}
	if rp == nil {
		rp = articulation.NewResponseProcessor()
	}
	return &Watcher{
		dir:         cfg.Dir,
		exts:        exts,
		processor:   rp,
		Debounce:    DefaultDebounce,
		debounceMap: make(map[string]time.Time),
	}
}

// Stats returns a snapshot of the watcher statistics.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Eligible reports whether path is a raw response the watcher should process.
func (w *Watcher) Eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, OutputSuffix) {
		return false
	}
	return w.exts[strings.ToLower(filepath.Ext(base))]
}

// OutputPath returns where the segments of path are written.
func OutputPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + OutputSuffix
}

// Run processes the files already in the directory, then watches it until ctx
// is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create inbox dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	logging.Inbox("watching directory: %s", w.dir)

	if n, err := w.Scan(); err != nil {
		logging.InboxError("initial scan failed: %v", err)
	} else if n > 0 {
		logging.Inbox("initial scan processed %d files", n)
	}

	tick := w.Debounce / 3
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	debounceTicker := time.NewTicker(tick)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Inbox("watcher stopped: %v", ctx.Err())
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.InboxError("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-debounceTicker.C:
			w.processDebounced()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !w.Eligible(event.Name) {
		return
	}

	w.mu.Lock()
	now := time.Now()
	w.debounceMap[event.Name] = now
	w.stats.LastEventPath = event.Name
	w.stats.LastEventTime = now
	w.mu.Unlock()
}

func (w *Watcher) processDebounced() {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.Debounce {
			ready = append(ready, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		if _, err := w.ProcessFile(path); err != nil && !os.IsNotExist(err) {
			logging.InboxError("%v", err)
		}
	}
}

// Scan processes every eligible file in the directory whose output is missing
// or older than the file itself. It returns how many files were processed.
func (w *Watcher) Scan() (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read inbox dir: %w", err)
	}

	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if !w.Eligible(path) || upToDate(path) {
			continue
		}
		if _, err := w.ProcessFile(path); err != nil {
			logging.InboxError("%v", err)
			continue
		}
		n++
	}
	return n, nil
}

func upToDate(path string) bool {
	src, err := os.Stat(path)
	if err != nil {
		return false
	}
	out, err := os.Stat(OutputPath(path))
	if err != nil {
		return false
	}
	return !out.ModTime().Before(src.ModTime())
}

// ProcessFile normalizes one file and writes its segments next to it. It
// returns the output path.
func (w *Watcher) ProcessFile(path string) (string, error) {
	defer logging.StartTimer(logging.CategoryInbox, "process "+filepath.Base(path)).Stop()

	data, err := os.ReadFile(path)
	if err != nil {
		w.countError()
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	res := w.processor.Process(string(data))
	out, err := json.MarshalIndent(FileResult{Source: filepath.Base(path), ArticulationResult: res}, "", "  ")
	if err != nil {
		w.countError()
		return "", fmt.Errorf("failed to encode segments for %s: %w", path, err)
	}

	dst := OutputPath(path)
	tmp := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp")
	if err := os.WriteFile(tmp, append(out, '\n'), 0644); err != nil {
		w.countError()
		return "", fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		w.countError()
		return "", fmt.Errorf("failed to write %s: %w", dst, err)
	}

	w.mu.Lock()
	w.stats.Processed++
	w.mu.Unlock()

	logging.Inbox("processed %s method=%s segments=%d -> %s",
		filepath.Base(path), res.ParseMethod, len(res.Segments), filepath.Base(dst))
	return dst, nil
}

func (w *Watcher) countError() {
	w.mu.Lock()
	w.stats.Errors++
	w.mu.Unlock()
}
