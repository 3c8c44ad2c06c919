package progress

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// memoryBackend is an in-memory Backend for tracker tests.
type memoryBackend struct {
	stored  []string
	loadErr error
	saveErr error
	saves   int
}

func (b *memoryBackend) Load(_ context.Context) ([]string, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.stored, nil
}

func (b *memoryBackend) Save(_ context.Context, ids []string) error {
	b.saves++
	if b.saveErr != nil {
		return b.saveErr
	}
	b.stored = ids
	return nil
}

func TestTracker_ToggleIsInvolution(t *testing.T) {
	tracker := NewTracker(&memoryBackend{})

	tracker.Toggle("x1")
	if !tracker.Completed("x1") {
		t.Fatal("x1 should be completed after first toggle")
	}

	tracker.Toggle("x1")
	if tracker.Completed("x1") {
		t.Fatal("x1 should be cleared after second toggle")
	}
	if tracker.Count() != 0 {
		t.Errorf("Count() = %d, want 0", tracker.Count())
	}
}

func TestTracker_ToggleReturnsSortedSnapshot(t *testing.T) {
	tracker := NewTracker(&memoryBackend{})

	tracker.Toggle("c")
	tracker.Toggle("a")
	got := tracker.Toggle("b")

	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Toggle() snapshot = %v, want %v", got, want)
	}
}

func TestTracker_LoadsPersistedSet(t *testing.T) {
	tracker := NewTracker(&memoryBackend{stored: []string{"t1", "t2"}})

	if tracker.Count() != 2 {
		t.Errorf("Count() = %d, want 2", tracker.Count())
	}
	if !tracker.Completed("t2") {
		t.Error("t2 should be loaded as completed")
	}
}

func TestTracker_LoadFailureStartsEmpty(t *testing.T) {
	tracker := NewTracker(&memoryBackend{loadErr: errors.New("backend down")})

	if tracker.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after failed load", tracker.Count())
	}
	// The tracker must stay usable.
	tracker.Toggle("t1")
	if !tracker.Completed("t1") {
		t.Error("tracker unusable after failed load")
	}
}

func TestTracker_SaveFailureIsSwallowed(t *testing.T) {
	backend := &memoryBackend{saveErr: errors.New("disk full")}
	tracker := NewTracker(backend)

	got := tracker.Toggle("t1")

	if backend.saves != 1 {
		t.Errorf("saves = %d, want 1", backend.saves)
	}
	// In-memory state stays authoritative despite the failed write.
	if !reflect.DeepEqual(got, []string{"t1"}) || !tracker.Completed("t1") {
		t.Error("in-memory set lost after failed save")
	}
}

func TestTracker_Percentage(t *testing.T) {
	tests := []struct {
		name  string
		done  int
		total int
		want  int
	}{
		{"empty", 0, 10, 0},
		{"one of ten", 1, 10, 10},
		{"rounds up", 1, 3, 33},
		{"rounds half up", 1, 8, 13}, // 12.5 -> 13
		{"complete", 10, 10, 100},
		{"zero total", 0, 0, 0},
		{"negative total", 3, -1, 0},
		{"clamped above total", 5, 3, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker(&memoryBackend{})
			for i := 0; i < tt.done; i++ {
				tracker.Toggle(fmt.Sprintf("t%d", i))
			}
			if got := tracker.Percentage(tt.total); got != tt.want {
				t.Errorf("Percentage(%d) = %d, want %d", tt.total, got, tt.want)
			}
		})
	}
}

func TestFileBackend_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	backend := NewFileBackend(path)

	// Missing file is an empty set, not an error.
	ids, err := backend.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() on missing file error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Load() on missing file = %v, want empty", ids)
	}

	if err := backend.Save(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	ids, err = backend.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b"}) {
		t.Errorf("Load() = %v, want [a b]", ids)
	}
}

func TestFileBackend_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	if err := os.WriteFile(path, []byte("{ not json ]"), 0o644); err != nil {
		t.Fatal(err)
	}

	backend := NewFileBackend(path)
	if _, err := backend.Load(context.Background()); err == nil {
		t.Fatal("Load() should report corrupt content")
	}

	// A tracker over the corrupt file degrades to an empty set.
	tracker := NewTracker(backend)
	if tracker.Count() != 0 {
		t.Errorf("Count() = %d, want 0 over corrupt file", tracker.Count())
	}
}

func TestTracker_FilePersistenceAcrossSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")

	first := NewTracker(NewFileBackend(path))
	first.Toggle("x1")
	first.Toggle("x2")
	first.Toggle("x1") // net result: only x2

	second := NewTracker(NewFileBackend(path))
	if second.Completed("x1") {
		t.Error("x1 should not survive its second toggle")
	}
	if !second.Completed("x2") {
		t.Error("x2 should be restored in the new session")
	}
}

func TestTracker_SingleToggleProgress(t *testing.T) {
	tracker := NewTracker(&memoryBackend{})

	tracker.Toggle("x1")

	if tracker.Count() != 1 {
		t.Errorf("Count() = %d, want 1", tracker.Count())
	}
	if got := tracker.Percentage(10); got != 10 {
		t.Errorf("Percentage(10) = %d, want 10", got)
	}
}
