package scheduler

import (
	"math"
	"time"

	"github.com/vecxdb/vecx/pkg/vxerrors"
	"github.com/vecxdb/vecx/pkg/vxmetrics"
)

// SearchFunc runs one query at the given ef and returns the ids
// returned, in rank order. It is the abstraction Calibrate sweeps over
// without depending on pkg/mmapindex directly, keeping the scheduler
// package reusable against any ef-parameterized searcher.
type SearchFunc func(query []float32, k, ef int) ([]uint32, error)

// GroundTruthFunc computes the exact top-k ids for query via exhaustive
// search, used as the Pareto-EF sweep's recall reference.
type GroundTruthFunc func(query []float32, k int) []uint32

// CalibrationResult is the outcome of a Pareto-EF sweep: the smallest
// ef that cleared the target recall, and the recall it measured there.
type CalibrationResult struct {
	EF     int
	Recall float64
}

// Calibrate runs the Pareto-EF sweep described in the scheduler spec:
// starting at ef=k and doubling up to maxEF, it measures recall@k
// against groundTruth over queries and returns the smallest ef that
// reaches targetRecall. If no swept ef clears the target, it returns
// the largest ef tried along with its recall.
func Calibrate(search SearchFunc, groundTruth GroundTruthFunc, queries [][]float32, k int, maxEF int, targetRecall float64) (CalibrationResult, error) {
	if k <= 0 {
		return CalibrationResult{}, vxerrors.NewConfigError("k", "must be positive")
	}
	if len(queries) == 0 {
		return CalibrationResult{}, vxerrors.NewConfigError("queries", "calibration sample must be non-empty")
	}

	var last CalibrationResult
	for ef := k; ef <= maxEF; ef *= 2 {
		recall, err := measureRecall(search, groundTruth, queries, k, ef)
		if err != nil {
			return CalibrationResult{}, err
		}
		last = CalibrationResult{EF: ef, Recall: recall}
		vxmetrics.CalibrationRecall.Observe(recall)
		if recall >= targetRecall {
			return last, nil
		}
		if ef == maxEF {
			break
		}
	}
	return last, nil
}

func measureRecall(search SearchFunc, groundTruth GroundTruthFunc, queries [][]float32, k, ef int) (float64, error) {
	var hits, total int
	for _, q := range queries {
		got, err := search(q, k, ef)
		if err != nil {
			return 0, err
		}
		want := groundTruth(q, k)
		wantSet := make(map[uint32]bool, len(want))
		for _, id := range want {
			wantSet[id] = true
		}
		for _, id := range got {
			if wantSet[id] {
				hits++
			}
		}
		total += len(want)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(hits) / float64(total), nil
}

// QPSSample is one 250ms measurement window's throughput, as fed to
// SteadyState.
type QPSSample struct {
	Window time.Duration
	Count  int
}

// SteadyState implements the benchmark's termination rule: given a
// stream of fixed-width QPS windows, it reports whether the rolling
// coefficient of variation over the last `horizon` windows has dropped
// below covThreshold, meaning throughput has stabilized and the
// benchmark can stop sampling.
func SteadyState(samples []QPSSample, horizon int, covThreshold float64) bool {
	if len(samples) < horizon {
		return false
	}
	window := samples[len(samples)-horizon:]

	var sum float64
	for _, s := range window {
		sum += qps(s)
	}
	mean := sum / float64(horizon)
	if mean == 0 {
		return false
	}

	var variance float64
	for _, s := range window {
		d := qps(s) - mean
		variance += d * d
	}
	variance /= float64(horizon)
	stddev := math.Sqrt(variance)

	cov := stddev / mean
	return cov < covThreshold
}

func qps(s QPSSample) float64 {
	if s.Window <= 0 {
		return 0
	}
	return float64(s.Count) / s.Window.Seconds()
}
