package hnsw

import (
	"container/heap"
	"math"
	"time"

	"github.com/vecxdb/vecx/pkg/vxerrors"
	"github.com/vecxdb/vecx/pkg/vxmetrics"
)

// Insert adds vector to the graph and returns its assigned id. Vectors
// are assigned ids sequentially starting at 0, so the return value is
// always the insertion's ordinal.
func (b *Builder) Insert(vector []float32) (uint32, error) {
	start := time.Now()
	defer func() { vxmetrics.BuildLatency.Observe(time.Since(start).Seconds()) }()

	if len(vector) == 0 {
		return 0, vxerrors.NewConfigError("vector", "cannot insert an empty vector")
	}

	b.mu.Lock()
	if b.dimension == 0 {
		b.dimension = len(vector)
	} else if len(vector) != b.dimension {
		b.mu.Unlock()
		return 0, vxerrors.NewConfigError("vector", "dimension mismatch")
	}

	for lane, x := range vector {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			id := b.nodeCounter
			b.mu.Unlock()
			return 0, vxerrors.NewBuildPoison(id, lane, float64(x))
		}
	}

	id := b.nodeCounter
	b.nodeCounter++
	b.mu.Unlock()

	b.mu.Lock()
	level := b.randomLevel()
	node := newNode(id, vector, level)

	if b.entryPoint == nil {
		b.nodes[id] = node
		b.entryPoint = node
		b.maxLayer = level
		b.size++
		b.mu.Unlock()
		return id, nil
	}

	entryPoint := b.entryPoint
	currentMax := b.maxLayer
	b.mu.Unlock()

	// Phase 1: greedy descent with no candidate expansion, from the top
	// layer down to level+1, to find the best entry point for phase 2.
	ep := entryPoint
	epDist := b.distTo(vector, ep)
	for lc := currentMax; lc > level; lc-- {
		for {
			improved := false
			for _, nid := range ep.Neighbors(lc) {
				n := b.Node(nid)
				if n == nil {
					continue
				}
				if d := b.distTo(vector, n); d < epDist {
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

	// Phase 2: from min(level, currentMax) down to 0, find efConstruction
	// candidates and link the node to a heuristically-selected subset.
	for lc := minInt(level, currentMax); lc >= 0; lc-- {
		candidates := b.searchLayer(vector, ep, b.efConstruction, lc)

		degree := b.M
		if lc == 0 {
			degree = b.M0
		}

		selected := b.selectNeighborsHeuristic(vector, candidates, degree)

		for _, c := range selected {
			neighborNode := b.Node(c.id)
			if neighborNode == nil {
				continue
			}
			node.addNeighbor(lc, c.id)
			neighborNode.addNeighbor(lc, id)
			b.pruneNeighbors(neighborNode, lc)
		}

		if len(candidates) > 0 {
			if n := b.Node(candidates[0].id); n != nil {
				ep = n
			}
		}
	}

	b.mu.Lock()
	b.nodes[id] = node
	if level > b.maxLayer {
		b.maxLayer = level
		b.entryPoint = node
	}
	b.size++
	b.mu.Unlock()

	return id, nil
}

// searchLayer performs the beam search of HNSW's ALGORITHM 2: a greedy
// traversal bounded to ef candidates at layer lc, entering at ep.
// Insertion calls it with efConstruction; Builder.Search runs the same
// traversal through searchLayerCounting, which also counts visits.
func (b *Builder) searchLayer(query []float32, ep *Node, ef int, lc int) []candidate {
	visited := make(map[uint32]bool)
	candidates := &minHeap{}
	results := &maxHeap{}

	dist := b.distTo(query, ep)
	heap.Push(candidates, candidate{id: ep.id, distance: dist})
	heap.Push(results, candidate{id: ep.id, distance: dist})
	visited[ep.id] = true

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
			if visited[nid] {
				continue
			}
			visited[nid] = true

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

// selectNeighborsHeuristic implements the Malkov-Yashunin neighbor
// selection heuristic (ALGORITHM 4): greedily accept the closest
// remaining candidate only if it is closer to the query than to every
// already-selected neighbor. This keeps the graph navigable across
// clusters instead of just picking the M closest points, which tends to
// produce cliques that hurt long-range search.
func (b *Builder) selectNeighborsHeuristic(query []float32, candidates []candidate, degree int) []candidate {
	if len(candidates) <= degree {
		return candidates
	}

	pool := append([]candidate(nil), candidates...)

	selected := make([]candidate, 0, degree)
	for _, cand := range pool {
		if len(selected) >= degree {
			break
		}
		good := true
		for _, sel := range selected {
			selNode := b.Node(sel.id)
			candNode := b.Node(cand.id)
			if selNode == nil || candNode == nil {
				continue
			}
			if b.distBetween(candNode, selNode) < cand.distance {
				good = false
				break
			}
		}
		if good {
			selected = append(selected, cand)
		}
	}

	// Backfill with the closest leftovers so a node is never left with
	// fewer than min(degree, len(candidates)) neighbors purely because
	// the heuristic rejected everything else.
	if len(selected) < degree {
		for _, cand := range pool {
			if len(selected) >= degree {
				break
			}
			already := false
			for _, s := range selected {
				if s.id == cand.id {
					already = true
					break
				}
			}
			if !already {
				selected = append(selected, cand)
			}
		}
	}

	return selected
}

// pruneNeighbors re-applies the heuristic to a node whose degree may have
// grown past its layer budget after a new bidirectional link was added.
func (b *Builder) pruneNeighbors(node *Node, lc int) {
	degree := b.M
	if lc == 0 {
		degree = b.M0
	}

	ids := node.Neighbors(lc)
	if len(ids) <= degree {
		return
	}

	cands := make([]candidate, 0, len(ids))
	for _, nid := range ids {
		n := b.Node(nid)
		if n == nil {
			continue
		}
		cands = append(cands, candidate{id: nid, distance: b.distBetween(node, n)})
	}
	sortCandidates(cands)

	selected := b.selectNeighborsHeuristic(node.vector, cands, degree)
	out := make([]uint32, len(selected))
	for i, c := range selected {
		out[i] = c.id
	}
	node.setNeighbors(lc, out)
}

func sortCandidates(c []candidate) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && less(c[j], c[j-1]); j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
