package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/plc-diagram/backend/internal/models"
)

func newTestCache(t *testing.T) *ResultCache {
	t.Helper()
	cache, err := NewResultCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewResultCache failed: %v", err)
	}
	return cache
}

func sampleResult() *models.DiagramResult {
	return &models.DiagramResult{
		States:          []int{0, 1, 2},
		TransitionCount: 2,
		Diagram:         "flowchart TB\n    S0[State 0, Idle]",
		Program:         "MainProgram",
		Routine:         "S3_Main",
		Tag:             "_A28_PH",
		Grammar:         "flowchart",
		GeneratedAt:     time.Now().UTC().Truncate(time.Second),
	}
}

func TestCachePutGet(t *testing.T) {
	cache := newTestCache(t)
	want := sampleResult()

	if err := cache.Put("file-1", "flowchart", "_A28_PH", want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := cache.Get("file-1", "flowchart", "_A28_PH")
	if !ok {
		t.Fatal("Get missed after Put")
	}
	if got.Diagram != want.Diagram || got.TransitionCount != want.TransitionCount {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if len(got.States) != 3 || got.States[2] != 2 {
		t.Errorf("states = %v", got.States)
	}
}

func TestCacheKeyIsolation(t *testing.T) {
	cache := newTestCache(t)
	cache.Put("file-1", "flowchart", "", sampleResult())

	if _, ok := cache.Get("file-1", "state", ""); ok {
		t.Error("hit for a different grammar")
	}
	if _, ok := cache.Get("file-2", "flowchart", ""); ok {
		t.Error("hit for a different file")
	}
	if _, ok := cache.Get("file-1", "flowchart", "_A28_PH"); ok {
		t.Error("hit for a different tag")
	}
}

func TestCacheCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewResultCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	cache.Put("file-1", "flowchart", "", sampleResult())

	matches, _ := filepath.Glob(filepath.Join(dir, "result_*.msgpack"))
	if len(matches) != 1 {
		t.Fatalf("cache files = %d, want 1", len(matches))
	}
	if err := os.WriteFile(matches[0], []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, ok := cache.Get("file-1", "flowchart", ""); ok {
		t.Error("corrupt entry served as a hit")
	}
}

func TestCacheInvalidate(t *testing.T) {
	cache := newTestCache(t)
	cache.Put("file-1", "flowchart", "", sampleResult())
	cache.Put("file-1", "state", "_A28_PH", sampleResult())
	cache.Put("file-2", "flowchart", "", sampleResult())

	cache.Invalidate("file-1")

	if _, ok := cache.Get("file-1", "flowchart", ""); ok {
		t.Error("invalidated entry still served")
	}
	if _, ok := cache.Get("file-1", "state", "_A28_PH"); ok {
		t.Error("invalidated tagged entry still served")
	}
	if _, ok := cache.Get("file-2", "flowchart", ""); !ok {
		t.Error("unrelated file entry dropped")
	}
}
