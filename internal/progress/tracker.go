// Package progress persists the set of topics a user has marked as
// mastered. The in-memory set is authoritative for the session; every
// toggle is written through to a pluggable backend, and persistence
// failures in either direction are logged and swallowed so they can never
// take down the rest of the application.
package progress

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"
)

// StorageKey is the fixed namespace under which the completion set is
// persisted, regardless of backend.
const StorageKey = "study_progress"

const backendTimeout = 5 * time.Second

// Backend loads and stores the persisted completion set as a flat list of
// topic-id strings.
type Backend interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, topicIDs []string) error
}

// Tracker owns the in-memory completion set.
type Tracker struct {
	mu      sync.Mutex
	backend Backend
	done    map[string]struct{}
}

// NewTracker creates a tracker and loads the persisted set. Missing,
// corrupt or unreadable persisted state degrades to an empty set — it is
// never an error to the caller.
func NewTracker(backend Backend) *Tracker {
	t := &Tracker{
		backend: backend,
		done:    make(map[string]struct{}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()

	ids, err := backend.Load(ctx)
	if err != nil {
		slog.Warn("failed to load persisted progress, starting empty", "error", err)
		return t
	}
	for _, id := range ids {
		t.done[id] = struct{}{}
	}
	return t
}

// Toggle flips membership of topicID (symmetric difference, not append)
// and synchronously writes the new set through to the backend before
// returning. A failed write is logged; the in-memory set remains
// authoritative for the session.
func (t *Tracker) Toggle(topicID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.done[topicID]; ok {
		delete(t.done, topicID)
	} else {
		t.done[topicID] = struct{}{}
	}

	snapshot := t.idsLocked()

	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()
	if err := t.backend.Save(ctx, snapshot); err != nil {
		slog.Warn("failed to persist progress", "topic_id", topicID, "error", err)
	}

	return snapshot
}

// Completed reports whether the topic is marked as mastered.
func (t *Tracker) Completed(topicID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.done[topicID]
	return ok
}

// CompletedIDs returns the current set, sorted for stable output.
func (t *Tracker) CompletedIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idsLocked()
}

// Count returns the number of completed topics.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.done)
}

// Percentage returns completion as a rounded integer in [0, 100].
func (t *Tracker) Percentage(totalTopics int) int {
	if totalTopics <= 0 {
		return 0
	}

	t.mu.Lock()
	count := len(t.done)
	t.mu.Unlock()

	pct := int(math.Round(float64(count) / float64(totalTopics) * 100))
	if pct > 100 {
		pct = 100
	}
	return pct
}

func (t *Tracker) idsLocked() []string {
	ids := make([]string, 0, len(t.done))
	for id := range t.done {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
