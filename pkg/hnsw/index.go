package hnsw

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	mathrand "math/rand"
	"sort"
	"sync"

	"github.com/vecxdb/vecx/pkg/kernel"
	"github.com/vecxdb/vecx/pkg/vxerrors"
)

// Builder accumulates vectors into an HNSW graph. It is the build-time
// counterpart of mmapindex.Index: once the Builder is handed to the
// serialize package the graph is considered
// immutable and ready to be laid out into the on-disk arena format.
type Builder struct {
	M              int
	M0             int
	efConstruction int
	mL             float64
	distance       kernel.F32Func

	nodes       map[uint32]*Node
	entryPoint  *Node
	maxLayer    int
	nodeCounter uint32
	dimension   int

	mu   sync.RWMutex
	rand *mathrand.Rand

	size int64
}

// BuildConfig configures a new Builder.
type BuildConfig struct {
	// M is the bidirectional link count per node at every layer above 0.
	M int
	// EfConstruction is the candidate list size used while inserting.
	EfConstruction int
	// Distance overrides the kernel's dispatched squared-L2 distance.
	// Most callers should leave this nil.
	Distance kernel.F32Func
	// Seed fixes the level-assignment PRNG for deterministic builds. A
	// zero value uses a random seed.
	Seed int64
}

// DefaultBuildConfig returns the spec's recommended defaults: M=16,
// efConstruction=200, squared-L2 distance.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		M:              16,
		EfConstruction: 200,
	}
}

// NewBuilder creates an empty Builder, or a *vxerrors.ConfigError if cfg
// is out of range.
func NewBuilder(cfg BuildConfig) (*Builder, error) {
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfConstruction == 0 {
		cfg.EfConstruction = 200
	}
	if cfg.M < 2 || cfg.M > 64 {
		return nil, vxerrors.NewConfigError("m", "must be between 2 and 64")
	}
	if cfg.EfConstruction < cfg.M {
		return nil, vxerrors.NewConfigError("ef_construction", "must be >= m")
	}

	dist := cfg.Distance
	if dist == nil {
		dist = kernel.PickF32()
	}

	// M0 = 2*M for the base layer, per the HNSW paper's recommendation
	// that the densest layer carry roughly twice the upper-layer degree.
	M0 := cfg.M * 2

	// mL = 1/ln(M) is the normalization factor in the exponential level
	// distribution: P(level >= l) = M^-l, decaying by a factor of M per level.
	mL := 1.0 / math.Log(float64(cfg.M))

	seed := cfg.Seed
	if seed == 0 {
		seed = randomSeed()
	}

	return &Builder{
		M:              cfg.M,
		M0:             M0,
		efConstruction: cfg.EfConstruction,
		mL:             mL,
		distance:       dist,
		nodes:          make(map[uint32]*Node),
		maxLayer:       -1,
		rand:           mathrand.New(mathrand.NewSource(seed)),
	}, nil
}

// randomSeed draws a process-unique PRNG seed from the OS CSPRNG, per
// spec.md's "default is non-deterministic per process." The fixed
// fallback constant only fires if crypto/rand itself is unavailable,
// which should never happen on a real host.
func randomSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0x5bd1e995
	}
	return int64(binary.LittleEndian.Uint64(buf[:]))
}

// randomLevel draws a layer for a new node from the exponential
// distribution floor(-ln(U) * mL), U ~ Uniform(0,1).
func (b *Builder) randomLevel() int {
	r := b.rand.Float64()
	for r == 0 {
		r = b.rand.Float64()
	}
	return int(math.Floor(-math.Log(r) * b.mL))
}

// Size returns the number of vectors currently in the graph.
func (b *Builder) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Dimension returns the vector dimension fixed by the first insert.
func (b *Builder) Dimension() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dimension
}

// MaxLevel returns the highest populated layer.
func (b *Builder) MaxLevel() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.maxLayer
}

// EntryPointID returns the id of the current entry point, and false if the
// graph is empty.
func (b *Builder) EntryPointID() (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.entryPoint == nil {
		return 0, false
	}
	return b.entryPoint.id, true
}

// Node looks up a node by id. Returns nil if absent.
func (b *Builder) Node(id uint32) *Node {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nodes[id]
}

// M0Degree returns the configured base-layer degree, which the
// serializer records in the header's M0 field.
func (b *Builder) M0Degree() int { return b.M0 }

// Stats summarizes the graph's shape.
type Stats struct {
	Size           int64
	Dimension      int
	MaxLevel       int
	M              int
	M0             int
	EfConstruction int
	NodesPerLevel  map[int]int
}

// GetStats computes per-level node counts. O(n) in the number of nodes.
func (b *Builder) GetStats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	perLevel := make(map[int]int)
	for _, node := range b.nodes {
		for l := 0; l <= node.level; l++ {
			perLevel[l]++
		}
	}

	return Stats{
		Size:           b.size,
		Dimension:      b.dimension,
		MaxLevel:       b.maxLayer,
		M:              b.M,
		M0:             b.M0,
		EfConstruction: b.efConstruction,
		NodesPerLevel:  perLevel,
	}
}

func (b *Builder) distTo(vector []float32, n *Node) float32 {
	return b.distance(vector, n.vector)
}

func (b *Builder) distBetween(a, c *Node) float32 {
	return b.distance(a.vector, c.vector)
}

// ForEachNode invokes fn for every node in the graph. Used by the
// serializer to walk the graph in id order.
func (b *Builder) ForEachNode(fn func(*Node)) {
	b.mu.RLock()
	nodes := make([]*Node, 0, len(b.nodes))
	for _, n := range b.nodes {
		nodes = append(nodes, n)
	}
	b.mu.RUnlock()

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].id < nodes[j].id })
	for _, n := range nodes {
		fn(n)
	}
}
