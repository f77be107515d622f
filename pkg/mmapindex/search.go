package mmapindex

import (
	"container/heap"
	"math"

	"github.com/vecxdb/vecx/pkg/kernel"
	"github.com/vecxdb/vecx/pkg/quant"
	"github.com/vecxdb/vecx/pkg/vxerrors"
)

// Result is one match from Search, with the exact (post-rerank)
// squared-L2 distance.
type Result struct {
	ID       uint32
	Distance float32
}

type candidate struct {
	id       uint32
	distance float32
}

func candLess(a, b candidate) bool {
	if a.distance != b.distance {
		return a.distance < b.distance
	}
	return a.id < b.id
}

type minHeap []candidate

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return candLess(h[i], h[j]) }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

type maxHeap []candidate

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return candLess(h[j], h[i]) }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func (h maxHeap) peek() candidate {
	if len(h) == 0 {
		return candidate{distance: float32(math.Inf(1))}
	}
	return h[0]
}

// Search runs the two-stage pipeline: a coarse beam search over the
// quantized arena to find ef candidates, then an exact f32 rerank of
// those candidates, returning the top k by true squared-L2 distance.
func (idx *Index) Search(query []float32, k int, ef int) ([]Result, error) {
	if len(query) != int(idx.h.D) {
		return nil, vxerrors.NewConfigError("query", "dimension mismatch")
	}
	if k <= 0 {
		return nil, vxerrors.NewConfigError("k", "k must be positive")
	}
	if ef < k {
		return nil, vxerrors.NewConfigError("ef", "must be >= k")
	}

	sc := idx.acquireScratch()
	defer idx.releaseScratch(sc)

	qv := quant.QuantizeInto(query, sc.qcodes)
	sc.qcodes = qv.Codes
	i8Kernel := kernel.PickI8()
	f32Kernel := kernel.PickF32()

	qDist := func(id uint32) float32 {
		norm, scale := idx.quantNormScale(id)
		return i8Kernel(qv.Codes, idx.quantCodes(id), qv.Norm, norm, qv.Scale, scale)
	}

	ep := idx.h.EntryPoint
	epDist := qDist(ep)

	for lc := int(idx.h.MaxLevel); lc > 0; lc-- {
		for {
			improved := false
			for _, nid := range idx.neighbors(ep, lc) {
				if d := qDist(nid); d < epDist {
					epDist = d
					ep = nid
					improved = true
				}
			}
			if !improved {
				break
			}
		}
	}

	coarse := idx.searchLayer0(qDist, ep, ef, sc)

	// Exact rerank: recompute true squared-L2 over f32 vectors for every
	// coarse candidate, then take the top k.
	reranked := make([]Result, len(coarse))
	for i, c := range coarse {
		vec := idx.f32Vector(c.id)
		reranked[i] = Result{ID: c.id, Distance: f32Kernel(query, vec)}
	}
	sortResults(reranked)

	if len(reranked) > k {
		reranked = reranked[:k]
	}
	return reranked, nil
}

func (idx *Index) searchLayer0(qDist func(uint32) float32, ep uint32, ef int, sc *scratch) []candidate {
	candidates := &minHeap{}
	results := &maxHeap{}

	dist := qDist(ep)
	heap.Push(candidates, candidate{id: ep, distance: dist})
	heap.Push(results, candidate{id: ep, distance: dist})
	sc.visit(ep)

	for candidates.Len() > 0 {
		current := heap.Pop(candidates).(candidate)
		if current.distance > results.peek().distance {
			break
		}

		for _, nid := range idx.neighbors(current.id, 0) {
			if sc.visit(nid) {
				continue
			}

			d := qDist(nid)
			if d < results.peek().distance || results.Len() < ef {
				heap.Push(candidates, candidate{id: nid, distance: d})
				heap.Push(results, candidate{id: nid, distance: d})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]candidate, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(candidate)
	}
	return out
}

func sortResults(r []Result) {
	for i := 1; i < len(r); i++ {
		for j := i; j > 0 && (r[j].Distance < r[j-1].Distance || (r[j].Distance == r[j-1].Distance && r[j].ID < r[j-1].ID)); j-- {
			r[j], r[j-1] = r[j-1], r[j]
		}
	}
}
