// Package vecx is the top-level facade over the build, serialize, and
// mmap-search packages: Build an in-memory index, Save it to disk,
// Load a saved index back as a zero-copy mmap-backed searcher. This is
// the surface an out-of-scope REST/CLI/gRPC layer would import; the
// core library itself stops here.
package vecx

import (
	"github.com/vecxdb/vecx/pkg/config"
	"github.com/vecxdb/vecx/pkg/hnsw"
	"github.com/vecxdb/vecx/pkg/mmapindex"
	"github.com/vecxdb/vecx/pkg/serialize"
	"github.com/vecxdb/vecx/pkg/vxerrors"
	"github.com/vecxdb/vecx/pkg/vxmetrics"
)

// Index is an in-memory, mutable HNSW graph under construction.
type Index struct {
	b *hnsw.Builder
}

// Build starts a new empty index using cfg's M and EfConstruction, or
// returns a *vxerrors.ConfigError if cfg is out of range.
func Build(cfg config.BuildConfig) (*Index, error) {
	b, err := hnsw.NewBuilder(hnsw.BuildConfig{
		M:              cfg.M,
		EfConstruction: cfg.EfConstruction,
		Seed:           cfg.Seed,
	})
	if err != nil {
		return nil, err
	}
	return &Index{b: b}, nil
}

// Insert adds vector to the index and returns its assigned id.
func (idx *Index) Insert(vector []float32) (uint32, error) {
	id, err := idx.b.Insert(vector)
	idx.reportSizeMetrics()
	return id, err
}

// BatchInsert adds many vectors concurrently; see hnsw.Builder.BatchInsert.
func (idx *Index) BatchInsert(vectors [][]float32, progress hnsw.ProgressFunc) *hnsw.BatchResult {
	result := idx.b.BatchInsert(vectors, progress)
	idx.reportSizeMetrics()
	return result
}

// reportSizeMetrics refreshes the index-size and max-level gauges after
// a mutation, so a scrape between inserts always sees the current shape.
func (idx *Index) reportSizeMetrics() {
	vxmetrics.IndexSize.Set(float64(idx.b.Size()))
	vxmetrics.IndexMaxLevel.Set(float64(idx.b.MaxLevel()))
}

// Search runs an in-memory recall-testing search over the graph under
// construction. Production queries should go through Save+Load and
// MmapIndex.Search instead, which run the real two-stage pipeline.
func (idx *Index) Search(query []float32, k, ef int) (*hnsw.SearchStats, error) {
	return idx.b.Search(query, k, ef)
}

// Stats reports build-time graph statistics.
func (idx *Index) Stats() hnsw.Stats {
	return idx.b.GetStats()
}

// Len returns the number of vectors inserted so far.
func (idx *Index) Len() int64 {
	return idx.b.Size()
}

// Save serializes idx to path using the on-disk arena format.
func Save(idx *Index, path string) error {
	return serialize.Save(idx.b, path)
}

// MmapIndex is a read-only, memory-mapped view of a saved index,
// opened with Load.
type MmapIndex struct {
	idx *mmapindex.Index
}

// Load memory-maps the index file at path for querying.
func Load(path string) (*MmapIndex, error) {
	idx, err := mmapindex.Load(path)
	if err != nil {
		return nil, err
	}
	return &MmapIndex{idx: idx}, nil
}

// Search runs the two-stage coarse-then-rerank pipeline against the
// mapped file.
func (m *MmapIndex) Search(query []float32, k, ef int) ([]mmapindex.Result, error) {
	return m.idx.Search(query, k, ef)
}

// Vector returns a copy of the full-precision vector stored for id.
func (m *MmapIndex) Vector(id uint32) ([]float32, error) {
	return m.idx.Vector(id)
}

// Len returns the number of vectors in the index.
func (m *MmapIndex) Len() int { return m.idx.Len() }

// Dim returns the vector dimension.
func (m *MmapIndex) Dim() int { return m.idx.Dim() }

// Stats exposes the header fields most useful for diagnostics:
// node/layer counts, configured M/efConstruction, and the entry point.
type Stats struct {
	N              int
	D              int
	M              int
	EfConstruction int
	MaxLevel       int
	EntryPoint     uint32
}

// Stats reports the loaded index's build parameters and shape.
func (m *MmapIndex) Stats() Stats {
	h := m.idx.Header()
	return Stats{
		N:              int(h.N),
		D:              int(h.D),
		M:              int(h.M),
		EfConstruction: int(h.EfConstruction),
		MaxLevel:       int(h.MaxLevel),
		EntryPoint:     h.EntryPoint,
	}
}

// Close releases the memory mapping. The MmapIndex must not be used afterward.
func (m *MmapIndex) Close() error {
	return m.idx.Close()
}

// errorTaxonomy re-exports the shared error types so callers of this
// facade don't need to import pkg/vxerrors directly to type-switch on
// them.
type (
	ConfigError      = vxerrors.ConfigError
	IoError          = vxerrors.IoError
	FormatError      = vxerrors.FormatError
	ChecksumMismatch = vxerrors.ChecksumMismatch
	ResourceLimit    = vxerrors.ResourceLimit
	BuildPoison      = vxerrors.BuildPoison
)
