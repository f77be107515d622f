package hnsw

import (
	"container/heap"

	"github.com/vecxdb/vecx/pkg/vxerrors"
)

// Result is one match from a Search call.
type Result struct {
	ID       uint32
	Distance float32
}

// SearchStats holds a Search call's results and how many nodes it
// visited.
type SearchStats struct {
	Results []Result
	Visited int
}

// Search runs k-NN search against the in-memory graph. This exists
// mainly so recall and correctness can be measured before the graph is
// serialized; the production query path runs against the mmap'd file in
// the mmapindex package's two-stage pipeline, not here.
func (b *Builder) Search(query []float32, k int, ef int) (*SearchStats, error) {
	if len(query) == 0 {
		return nil, vxerrors.NewConfigError("query", "query vector cannot be empty")
	}
	if k <= 0 {
		return nil, vxerrors.NewConfigError("k", "k must be positive")
	}

	b.mu.RLock()
	if b.dimension == 0 {
		b.mu.RUnlock()
		return nil, vxerrors.NewConfigError("index", "index is empty")
	}
	if len(query) != b.dimension {
		b.mu.RUnlock()
		return nil, vxerrors.NewConfigError("query", "dimension mismatch")
	}
	entryPoint := b.entryPoint
	maxLayer := b.maxLayer
	b.mu.RUnlock()

	if ef < k {
		ef = k
	}

	ep := entryPoint
	epDist := b.distTo(query, ep)
	visited := 1

	for lc := maxLayer; lc > 0; lc-- {
		for {
			improved := false
			for _, nid := range ep.Neighbors(lc) {
				visited++
				n := b.Node(nid)
				if n == nil {
					continue
				}
				if d := b.distTo(query, n); d < epDist {
					epDist = d
					ep = n
					improved = true
				}
			}
			if !improved {
				break
			}
		}
	}

	layerVisited := 0
	candidates := b.searchLayerCounting(query, ep, ef, 0, &layerVisited)
	visited += layerVisited

	results := make([]Result, 0, k)
	for i := 0; i < len(candidates) && i < k; i++ {
		results = append(results, Result{ID: candidates[i].id, Distance: candidates[i].distance})
	}

	return &SearchStats{Results: results, Visited: visited}, nil
}

// searchLayerCounting duplicates searchLayer's traversal but also counts
// visited nodes, which the plain build-time beam search does not need to
// track.
func (b *Builder) searchLayerCounting(query []float32, ep *Node, ef int, lc int, visited *int) []candidate {
	seen := make(map[uint32]bool)
	candidates := &minHeap{}
	results := &maxHeap{}

	dist := b.distTo(query, ep)
	heap.Push(candidates, candidate{id: ep.id, distance: dist})
	heap.Push(results, candidate{id: ep.id, distance: dist})
	seen[ep.id] = true
	*visited++

	for candidates.Len() > 0 {
		current := heap.Pop(candidates).(candidate)
		if current.distance > results.peek().distance {
			break
		}

		node := b.Node(current.id)
		if node == nil {
			continue
		}

		for _, nid := range node.Neighbors(lc) {
			if seen[nid] {
				continue
			}
			seen[nid] = true
			*visited++

			n := b.Node(nid)
			if n == nil {
				continue
			}

			d := b.distTo(query, n)
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

// Vector returns a copy of the vector stored for id.
func (b *Builder) Vector(id uint32) ([]float32, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	node := b.nodes[id]
	if node == nil {
		return nil, vxerrors.NewConfigError("id", "node not found")
	}
	out := make([]float32, len(node.vector))
	copy(out, node.vector)
	return out, nil
}
