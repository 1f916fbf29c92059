package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// KV keys holding the state of the last completed aggregation pass.
const (
	KeyLastRunID    = "last_run_id"
	KeyLastRunStart = "last_run_start"
	KeyLastSnapshot = "last_snapshot"
	KeyLastRowCount = "last_row_count"
)

// RunState describes the last completed aggregation pass.
type RunState struct {
	RunID    string
	Start    time.Time
	Snapshot string // snapshot file name
	Rows     int
}

// SaveRunState writes the run state into the KV store.
func SaveRunState(ctx context.Context, kv KVStore, state *RunState) error {
	entries := []struct {
		key   string
		value string
	}{
		{KeyLastRunID, state.RunID},
		{KeyLastRunStart, state.Start.UTC().Format(time.RFC3339Nano)},
		{KeyLastSnapshot, state.Snapshot},
		{KeyLastRowCount, strconv.Itoa(state.Rows)},
	}
	for _, e := range entries {
		if err := kv.SetKV(ctx, e.key, e.value); err != nil {
			return fmt.Errorf("set %s: %w", e.key, err)
		}
	}
	return nil
}

// LoadRunState reads the run state. Returns ErrNotFound if no pass has completed yet.
func LoadRunState(ctx context.Context, kv KVStore) (*RunState, error) {
	runID, err := kv.GetKV(ctx, KeyLastRunID)
	if err != nil {
		return nil, err
	}

	state := &RunState{RunID: runID}

	start, err := kv.GetKV(ctx, KeyLastRunStart)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if start != "" {
		if state.Start, err = time.Parse(time.RFC3339Nano, start); err != nil {
			return nil, fmt.Errorf("parse %s: %w", KeyLastRunStart, err)
		}
	}

	if state.Snapshot, err = kv.GetKV(ctx, KeyLastSnapshot); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	rows, err := kv.GetKV(ctx, KeyLastRowCount)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if rows != "" {
		if state.Rows, err = strconv.Atoi(rows); err != nil {
			return nil, fmt.Errorf("parse %s: %w", KeyLastRowCount, err)
		}
	}

	return state, nil
}
