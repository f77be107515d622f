package hnsw

import (
	"sync"
	"testing"
)

func TestBatchInsertAllSucceed(t *testing.T) {
	b := mustNewBuilder(t, BuildConfig{M: 8, EfConstruction: 32, Seed: 5})
	vecs := randomVectors(500, 16, 21)

	var mu sync.Mutex
	var lastProcessed int
	result := b.BatchInsert(vecs, func(processed, total int) {
		mu.Lock()
		defer mu.Unlock()
		if processed > lastProcessed {
			lastProcessed = processed
		}
		if total != len(vecs) {
			t.Errorf("progress total = %d, want %d", total, len(vecs))
		}
	})

	if result.Success != len(vecs) {
		t.Errorf("Success = %d, want %d", result.Success, len(vecs))
	}
	if result.Failure != 0 {
		t.Errorf("Failure = %d, want 0", result.Failure)
	}
	if lastProcessed != len(vecs) {
		t.Errorf("final progress = %d, want %d", lastProcessed, len(vecs))
	}
	if b.Size() != int64(len(vecs)) {
		t.Errorf("Size() = %d, want %d", b.Size(), len(vecs))
	}

	seen := make(map[uint32]bool)
	for _, id := range result.IDs {
		if seen[id] {
			t.Errorf("duplicate id %d returned from BatchInsert", id)
		}
		seen[id] = true
	}
}

func TestBatchInsertEmptyInput(t *testing.T) {
	b := mustNewBuilder(t, DefaultBuildConfig())
	result := b.BatchInsert(nil, nil)
	if result.Success != 0 || result.Failure != 0 {
		t.Errorf("empty batch: success=%d failure=%d, want 0/0", result.Success, result.Failure)
	}
}

func TestBatchInsertReportsDimensionMismatchFailures(t *testing.T) {
	// Fix the dimension with a sequential insert first so the batch below
	// has a deterministic expected dimension to mismatch against —
	// concurrent inserts racing to set the dimension on an empty Builder
	// would make which vector "wins" nondeterministic.
	b := mustNewBuilder(t, DefaultBuildConfig())
	if _, err := b.Insert([]float32{0, 0, 0}); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	vecs := [][]float32{
		{1, 2, 3},
		{1, 2}, // wrong dimension
		{4, 5, 6},
	}
	result := b.BatchInsert(vecs, nil)
	if result.Success != 2 {
		t.Errorf("Success = %d, want 2", result.Success)
	}
	if result.Failure != 1 {
		t.Errorf("Failure = %d, want 1", result.Failure)
	}
	if len(result.Errors) != 1 {
		t.Errorf("len(Errors) = %d, want 1", len(result.Errors))
	}
}
