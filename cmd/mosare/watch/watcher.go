package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SanteonNL/mosare/models/mosare"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultSettle is how long the inbox must stay quiet before it is scanned
const DefaultSettle = 2 * time.Second

// ExtractSet is one complete set of extract files found in the inbox
type ExtractSet struct {
	Attention   string
	ExamResults string
	Enrollment  string
}

// Runner processes a complete extract set
type Runner func(ctx context.Context, runID string, set ExtractSet) error

// WatcherConfig holds the settings of a Watcher
type WatcherConfig struct {
	InboxDir string
	Settle   time.Duration
	Runner   Runner
	Log      zerolog.Logger
}

// Watcher monitors the inbox for extract files and runs the pipeline once all
// three kinds are present.
type Watcher struct {
	inboxDir string
	settle   time.Duration
	run      Runner
	log      zerolog.Logger

	mu   sync.Mutex // serializes runs and guards last
	last ExtractSet
}

func New(config WatcherConfig) (*Watcher, error) {
	if config.InboxDir == "" {
		return nil, fmt.Errorf("inbox directory is required")
	}
	if config.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if config.Settle <= 0 {
		config.Settle = DefaultSettle
	}
	return &Watcher{
		inboxDir: config.InboxDir,
		settle:   config.Settle,
		run:      config.Runner,
		log:      config.Log.With().Str("component", "watcher").Str("inbox", config.InboxDir).Logger(),
	}, nil
}

// Start watches the inbox until ctx is done. The inbox is checked once right
// away, so a set that was complete before the watcher started is processed.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.inboxDir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.inboxDir, err)
	}

	go func() {
		defer watcher.Close()
		w.Check(ctx)

		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 && kindOf(evt.Name) != "" {
					w.log.Debug().Str("file", evt.Name).Str("op", evt.Op.String()).Msg("Inbox changed")
					pending = time.After(w.settle)
				}
			case <-pending:
				pending = nil
				w.Check(ctx)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.log.Error().Err(err).Msg("Watcher error")
			}
		}
	}()

	w.log.Info().Msg("Watching inbox")
	return nil
}

// Check scans the inbox and runs the pipeline when it holds a complete set
// that has not been processed successfully yet. It reports whether a run
// succeeded. Failures are logged and retried on the next change. Concurrent
// calls wait for each other.
func (w *Watcher) Check(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	set, complete, err := Scan(w.inboxDir)
	if err != nil {
		w.log.Error().Err(err).Msg("Failed to scan inbox")
		return false
	}
	if !complete {
		w.log.Debug().Msg("Inbox does not hold all three extracts yet")
		return false
	}
	if set == w.last {
		return false
	}

	runID := uuid.NewString()
	log := w.log.With().Str("run_id", runID).Logger()
	log.Info().
		Str("attention", set.Attention).
		Str("exam_results", set.ExamResults).
		Str("enrollment", set.Enrollment).
		Msg("Processing extract set")

	if err := w.run(ctx, runID, set); err != nil {
		log.Error().Err(err).Msg("Run failed")
		return false
	}
	w.last = set
	log.Info().Msg("Run finished")
	return true
}

// Scan returns the latest file of each extract kind in dir, by file name.
// complete is false while any kind is missing.
func Scan(dir string) (ExtractSet, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ExtractSet{}, false, fmt.Errorf("failed to read inbox: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	latest := make(map[string]string)
	for _, name := range names {
		if kind := kindOf(name); kind != "" {
			latest[kind] = filepath.Join(dir, name)
		}
	}

	set := ExtractSet{
		Attention:   latest[mosare.SourceAttention],
		ExamResults: latest[mosare.SourceExamResult],
		Enrollment:  latest[mosare.SourceEnrollment],
	}
	complete := set.Attention != "" && set.ExamResults != "" && set.Enrollment != ""
	return set, complete, nil
}

// kindOf returns the extract kind a file name belongs to, or ""
func kindOf(path string) string {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return ""
	}
	for _, kind := range []string{mosare.SourceAttention, mosare.SourceExamResult, mosare.SourceEnrollment} {
		if strings.HasPrefix(name, kind) {
			return kind
		}
	}
	return ""
}
