package vecx

import (
	"github.com/vecxdb/vecx/pkg/config"
	"github.com/vecxdb/vecx/pkg/mmapindex"
	"github.com/vecxdb/vecx/pkg/scheduler"
	"github.com/vecxdb/vecx/pkg/vxerrors"
)

// modeFromConfig maps the environment-friendly config.SchedulerMode
// string onto the scheduler's own Mode enum.
func modeFromConfig(m config.SchedulerMode) (scheduler.Mode, error) {
	switch m {
	case config.ModeDefault:
		return scheduler.Default, nil
	case config.ModeSaturate:
		return scheduler.Saturate, nil
	case config.ModeSafe:
		return scheduler.Safe, nil
	default:
		return 0, vxerrors.NewConfigError("scheduler.mode", "must be one of default, saturate, safe")
	}
}

// Server dispatches concurrent queries against a loaded index through
// a CPU-pinned worker pool, applying backpressure instead of letting
// an unbounded number of goroutines contend for the mapped arenas.
type Server struct {
	idx  *MmapIndex
	pool *scheduler.Pool
}

// NewServer discovers the host's CPU topology and starts a worker pool
// sized and placed according to cfg, dispatching queries against idx.
func NewServer(idx *MmapIndex, cfg config.SchedulerConfig) (*Server, error) {
	mode, err := modeFromConfig(cfg.Mode)
	if err != nil {
		return nil, err
	}

	top, err := scheduler.DiscoverTopology()
	if err != nil {
		return nil, err
	}

	pool, err := scheduler.NewPool(top, mode, cfg.QueueDepth)
	if err != nil {
		return nil, err
	}

	return &Server{idx: idx, pool: pool}, nil
}

// SearchResult is the outcome of one query dispatched through the pool.
type SearchResult struct {
	Results []mmapindex.Result
	Err     error
}

// SearchAsync submits query for execution on the worker pool and
// returns a channel that receives exactly one SearchResult.
func (s *Server) SearchAsync(query []float32, k, ef int) <-chan SearchResult {
	out := make(chan SearchResult, 1)
	s.pool.Submit(func() {
		results, err := s.idx.Search(query, k, ef)
		out <- SearchResult{Results: results, Err: err}
	})
	return out
}

// Calibrate runs the Pareto-EF sweep against this server's index,
// using queries and groundTruth to measure recall at each candidate ef.
func (s *Server) Calibrate(queries [][]float32, groundTruth scheduler.GroundTruthFunc, k, maxEF int, targetRecall float64) (scheduler.CalibrationResult, error) {
	search := func(query []float32, k, ef int) ([]uint32, error) {
		results, err := s.idx.Search(query, k, ef)
		if err != nil {
			return nil, err
		}
		ids := make([]uint32, len(results))
		for i, r := range results {
			ids[i] = r.ID
		}
		return ids, nil
	}
	return scheduler.Calibrate(search, groundTruth, queries, k, maxEF, targetRecall)
}

// Workers reports how many pool workers are currently running.
func (s *Server) Workers() int { return s.pool.Workers() }

// Close stops the worker pool, waiting for in-flight searches to
// finish, then releases the underlying memory mapping.
func (s *Server) Close() error {
	s.pool.Close()
	return s.idx.Close()
}
