package terrain

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// DefaultRunHistory is how many summaries a RunTracker keeps
const DefaultRunHistory = 50

// RunTracker keeps the summaries of recent runs for the HTTP service
type RunTracker struct {
	mu        sync.RWMutex
	runs      []SummaryMessage // oldest first
	limit     int
	cachePath string // path to the JSON history file; empty disables persistence
}

// NewRunTracker creates an in-memory tracker holding up to limit runs
func NewRunTracker(limit int) *RunTracker {
	if limit <= 0 {
		limit = DefaultRunHistory
	}
	return &RunTracker{limit: limit}
}

// NewRunTrackerWithCache creates a tracker that persists its history to
// cachePath. If the file exists, the history is loaded on creation.
func NewRunTrackerWithCache(limit int, cachePath string) *RunTracker {
	rt := NewRunTracker(limit)
	rt.cachePath = cachePath
	if cachePath != "" {
		if runs, err := LoadRunHistory(cachePath); err == nil {
			rt.runs = runs
			rt.trim()
		}
	}
	return rt
}

func (rt *RunTracker) trim() {
	if n := len(rt.runs) - rt.limit; n > 0 {
		rt.runs = append([]SummaryMessage(nil), rt.runs[n:]...)
	}
}

// Record stores the summary of res, dropping the oldest run when full
func (rt *RunTracker) Record(res *Result) SummaryMessage {
	summary := NewSummaryMessage(res)

	rt.mu.Lock()
	rt.runs = append(rt.runs, summary)
	rt.trim()
	var snapshot []SummaryMessage
	if rt.cachePath != "" {
		snapshot = append(snapshot, rt.runs...)
	}
	rt.mu.Unlock()

	if snapshot != nil {
		if err := SaveRunHistory(snapshot, rt.cachePath); err != nil {
			log.Printf("warning: failed to save run history: %v", err)
		}
	}
	return summary
}

// Runs returns the recorded summaries, newest first
func (rt *RunTracker) Runs() []SummaryMessage {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	result := make([]SummaryMessage, len(rt.runs))
	for i, s := range rt.runs {
		result[len(rt.runs)-1-i] = s
	}
	return result
}

// Get returns the summary of runID
func (rt *RunTracker) Get(runID string) (SummaryMessage, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	for _, s := range rt.runs {
		if s.RunID == runID {
			return s, true
		}
	}
	return SummaryMessage{}, false
}

// Latest returns the most recent summary
func (rt *RunTracker) Latest() (SummaryMessage, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if len(rt.runs) == 0 {
		return SummaryMessage{}, false
	}
	return rt.runs[len(rt.runs)-1], true
}

// SaveRunHistory writes summaries to disk as JSON.
func SaveRunHistory(runs []SummaryMessage, path string) error {
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write run history: %w", err)
	}
	return nil
}

// LoadRunHistory reads summaries written by SaveRunHistory.
func LoadRunHistory(path string) ([]SummaryMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run history: %w", err)
	}
	var runs []SummaryMessage
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("unmarshal run history: %w", err)
	}
	return runs, nil
}
