package scheduler

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/vecxdb/vecx/pkg/vxerrors"
	"github.com/vecxdb/vecx/pkg/vxmetrics"
)

// Mode selects how many workers the pool starts and where they are
// pinned.
type Mode int

const (
	// Default starts one worker per physical-core representative,
	// avoiding hyperthread siblings entirely.
	Default Mode = iota
	// Saturate starts one worker per logical CPU, filling physical
	// representatives first and then hyperthread siblings.
	Saturate
	// Safe starts one worker per physical core but leaves pinning to
	// the OS scheduler rather than calling SchedSetaffinity, for hosts
	// where affinity syscalls are restricted (containers, CI).
	Safe
)

// Job is one unit of work a worker executes. A Job must be safe to call
// from any worker goroutine and must not block beyond the search
// itself — the pool provides no cross-worker synchronization on the
// hot path.
type Job func()

// Pool is a fixed-size, CPU-pinned worker pool fed by a bounded MPMC
// dispatch queue. Workers are independent: each pops one job, runs
// it, and loops, with no shared state beyond the queue and the
// metrics recorder.
type Pool struct {
	queue   chan Job
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	workers int
}

// NewPool builds the worker placement for mode from top and starts
// the pool. queueDepth bounds the dispatch channel; a full queue makes
// Submit block, applying backpressure to callers instead of growing
// memory unboundedly.
func NewPool(top Topology, mode Mode, queueDepth int) (*Pool, error) {
	if queueDepth <= 0 {
		return nil, vxerrors.NewConfigError("queueDepth", "must be positive")
	}

	placements, pin, err := placeWorkers(top, mode)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		queue:   make(chan Job, queueDepth),
		cancel:  cancel,
		workers: len(placements),
	}

	for i, cpu := range placements {
		p.wg.Add(1)
		go p.runWorker(ctx, i, cpu, pin)
	}

	return p, nil
}

func placeWorkers(top Topology, mode Mode) (cpus []CPU, pin bool, err error) {
	reps := top.Representatives()
	if len(reps) == 0 {
		return nil, false, vxerrors.NewFormatError("topology has no physical-core representatives")
	}

	switch mode {
	case Default:
		return reps, true, nil
	case Safe:
		return reps, false, nil
	case Saturate:
		all := append(append([]CPU{}, reps...), top.Siblings()...)
		return all, true, nil
	default:
		return nil, false, vxerrors.NewConfigError("mode", "unknown scheduler mode")
	}
}

func (p *Pool) runWorker(ctx context.Context, idx int, cpu CPU, pin bool) {
	defer p.wg.Done()

	if pin {
		if err := pinToCPU(cpu.Logical); err != nil {
			// Affinity is a throughput optimization, not a correctness
			// requirement; a pin failure (e.g. restricted syscalls in
			// a sandboxed container) degrades to OS-scheduled placement
			// rather than aborting the worker.
			vxmetrics.PinFailures.Inc()
		}
	}
	vxmetrics.WorkersActive.Inc()
	defer vxmetrics.WorkersActive.Dec()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			vxmetrics.QueueDepth.Set(float64(len(p.queue)))
			timer := vxmetrics.NewSearchTimer()
			job()
			timer.ObserveDuration()
		}
	}
}

func pinToCPU(logical int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(logical)
	return unix.SchedSetaffinity(0, &set)
}

// Submit enqueues job, blocking if the dispatch queue is full.
func (p *Pool) Submit(job Job) {
	vxmetrics.QueriesDispatched.Inc()
	p.queue <- job
}

// TrySubmit enqueues job without blocking, returning false if the
// queue is full.
func (p *Pool) TrySubmit(job Job) bool {
	select {
	case p.queue <- job:
		vxmetrics.QueriesDispatched.Inc()
		return true
	default:
		return false
	}
}

// Workers returns the number of running workers.
func (p *Pool) Workers() int { return p.workers }

// Close stops accepting new work, waits for in-flight jobs to drain,
// and terminates all workers.
func (p *Pool) Close() {
	close(p.queue)
	p.cancel()
	p.wg.Wait()
}

// DefaultQueueDepth is used by callers that don't have a specific
// backpressure budget in mind; sized generously relative to a typical
// physical-core count so bursts rarely block Submit.
func DefaultQueueDepth() int {
	return runtime.GOMAXPROCS(0) * 64
}
