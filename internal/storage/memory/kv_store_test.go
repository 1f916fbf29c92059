package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"case-metrics/internal/storage"
)

func TestKVStore_SetAndGet(t *testing.T) {
	store := NewKVStore()
	ctx := context.Background()

	if _, err := store.GetKV(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := store.SetKV(ctx, "a", "1"); err != nil {
		t.Fatalf("SetKV failed: %v", err)
	}
	if err := store.SetKV(ctx, "a", "2"); err != nil {
		t.Fatalf("SetKV overwrite failed: %v", err)
	}

	v, err := store.GetKV(ctx, "a")
	if err != nil {
		t.Fatalf("GetKV failed: %v", err)
	}
	if v != "2" {
		t.Errorf("Expected 2, got %q", v)
	}

	if err := store.SetKV(ctx, "", "x"); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestRunState_RoundTrip(t *testing.T) {
	store := NewKVStore()
	ctx := context.Background()

	if _, err := storage.LoadRunState(ctx, store); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound before first run, got %v", err)
	}

	want := &storage.RunState{
		RunID:    "run-1",
		Start:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Snapshot: "final_data_output_20250301_120000.ndjson",
		Rows:     42,
	}
	if err := storage.SaveRunState(ctx, store, want); err != nil {
		t.Fatalf("SaveRunState failed: %v", err)
	}

	got, err := storage.LoadRunState(ctx, store)
	if err != nil {
		t.Fatalf("LoadRunState failed: %v", err)
	}
	if got.RunID != want.RunID || !got.Start.Equal(want.Start) || got.Snapshot != want.Snapshot || got.Rows != want.Rows {
		t.Errorf("Run state mismatch: got %+v, want %+v", got, want)
	}
}
