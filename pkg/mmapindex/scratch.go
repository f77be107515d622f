package mmapindex

// scratch holds the per-query working state Search needs that would
// otherwise allocate on every call: a versioned visited array (in place
// of a fresh map) and a reusable quantized-code buffer for the query
// vector. Index pools these in scratchPool so neither is allocated per
// query once a pooled scratch exists. Search still allocates per query
// elsewhere: its heaps, the rerank slice, each decoded f32 vector, and
// the per-node layer counts read from the node table.
type scratch struct {
	visited []uint32
	epoch   uint32
	qcodes  []int8
}

func newScratch(n, d int) *scratch {
	return &scratch{
		visited: make([]uint32, n),
		qcodes:  make([]int8, 0, d),
	}
}

// reset starts a new epoch, so every id is implicitly "not visited"
// without clearing the array — the array only gets cleared on the rare
// wraparound of a uint32 epoch counter.
func (s *scratch) reset() {
	s.epoch++
	if s.epoch == 0 {
		for i := range s.visited {
			s.visited[i] = 0
		}
		s.epoch = 1
	}
}

// visit reports whether id was already visited this epoch, marking it
// visited as a side effect.
func (s *scratch) visit(id uint32) bool {
	if s.visited[id] == s.epoch {
		return true
	}
	s.visited[id] = s.epoch
	return false
}

// acquireScratch borrows a scratch buffer sized for this index from the
// pool, allocating one only the first time each concurrent caller needs
// one.
func (idx *Index) acquireScratch() *scratch {
	sc := idx.scratchPool.Get().(*scratch)
	sc.reset()
	return sc
}

func (idx *Index) releaseScratch(sc *scratch) {
	idx.scratchPool.Put(sc)
}
