package scheduler

import (
	"testing"
	"time"
)

// fakeIndex is a tiny in-memory nearest-neighbor oracle whose "recall"
// at a given ef is deterministic: it returns exactly min(ef, k, n) ids in
// distance order, letting the sweep's threshold behavior be tested
// without a real HNSW graph.
type fakeIndex struct {
	n int
}

func (f fakeIndex) search(query []float32, k, ef int) ([]uint32, error) {
	limit := ef
	if limit > f.n {
		limit = f.n
	}
	if limit > k {
		limit = k
	}
	out := make([]uint32, limit)
	for i := range out {
		out[i] = uint32(i)
	}
	return out, nil
}

func (f fakeIndex) groundTruth(query []float32, k int) []uint32 {
	limit := k
	if limit > f.n {
		limit = f.n
	}
	out := make([]uint32, limit)
	for i := range out {
		out[i] = uint32(i)
	}
	return out
}

func TestCalibrateFindsSmallestEFMeetingTarget(t *testing.T) {
	idx := fakeIndex{n: 100}
	queries := [][]float32{{0}, {1}, {2}}

	// With k=10: ef=10 -> recall 1.0 since fakeIndex returns min(ef,k)==10 ids,
	// all within ground truth. Recall is saturated immediately, so the
	// smallest ef (==k) should already clear the target.
	res, err := Calibrate(idx.search, idx.groundTruth, queries, 10, 256, 0.95)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if res.EF != 10 {
		t.Errorf("EF = %d, want 10", res.EF)
	}
	if res.Recall < 0.95 {
		t.Errorf("Recall = %v, want >= 0.95", res.Recall)
	}
}

func TestCalibrateRejectsEmptyQuerySet(t *testing.T) {
	idx := fakeIndex{n: 10}
	if _, err := Calibrate(idx.search, idx.groundTruth, nil, 5, 64, 0.95); err == nil {
		t.Fatal("expected error for empty query sample")
	}
}

func TestCalibrateReturnsLastSweepWhenTargetNeverMet(t *testing.T) {
	// A pathological search that always returns a disjoint id range from
	// ground truth, so recall is always 0 and the target is never met.
	search := func(query []float32, k, ef int) ([]uint32, error) {
		return []uint32{999}, nil
	}
	groundTruth := func(query []float32, k int) []uint32 {
		return []uint32{1, 2, 3}
	}

	res, err := Calibrate(search, groundTruth, [][]float32{{0}}, 3, 12, 0.95)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if res.EF != 12 {
		t.Errorf("EF = %d, want the last swept value 12", res.EF)
	}
	if res.Recall != 0 {
		t.Errorf("Recall = %v, want 0", res.Recall)
	}
}

func TestSteadyStateRequiresFullHorizon(t *testing.T) {
	samples := []QPSSample{
		{Window: 250 * time.Millisecond, Count: 100},
		{Window: 250 * time.Millisecond, Count: 100},
	}
	if SteadyState(samples, 20, 0.02) {
		t.Error("SteadyState should be false with fewer samples than the horizon")
	}
}

func TestSteadyStateDetectsLowVariance(t *testing.T) {
	samples := make([]QPSSample, 20)
	for i := range samples {
		samples[i] = QPSSample{Window: 250 * time.Millisecond, Count: 100}
	}
	if !SteadyState(samples, 20, 0.02) {
		t.Error("SteadyState should be true for constant throughput")
	}
}

func TestSteadyStateRejectsHighVariance(t *testing.T) {
	samples := make([]QPSSample, 20)
	for i := range samples {
		count := 100
		if i%2 == 0 {
			count = 10
		}
		samples[i] = QPSSample{Window: 250 * time.Millisecond, Count: count}
	}
	if SteadyState(samples, 20, 0.02) {
		t.Error("SteadyState should be false for wildly oscillating throughput")
	}
}
