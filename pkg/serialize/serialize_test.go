package serialize

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/vecxdb/vecx/pkg/hnsw"
	"github.com/vecxdb/vecx/pkg/layout"
)

func buildTestGraph(t *testing.T, n, d int) *hnsw.Builder {
	t.Helper()
	b, err := hnsw.NewBuilder(hnsw.BuildConfig{M: 8, EfConstruction: 48, Seed: 17})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	r := rand.New(rand.NewSource(31))
	for i := 0; i < n; i++ {
		v := make([]float32, d)
		for j := range v {
			v[j] = r.Float32()*2 - 1
		}
		if _, err := b.Insert(v); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	return b
}

func TestBuildProducesValidHeader(t *testing.T) {
	b := buildTestGraph(t, 64, 8)
	body, h, err := build(b)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := layout.Validate(&h, int64(len(body))); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if h.N != 64 || h.D != 8 {
		t.Errorf("header N=%d D=%d, want 64/8", h.N, h.D)
	}
	if h.Flags&layout.FlagObfuscated == 0 {
		t.Error("expected FlagObfuscated set")
	}
}

func TestBuildArenaSizesMatchFormula(t *testing.T) {
	const n, d = 30, 12
	b := buildTestGraph(t, n, d)
	_, h, err := build(b)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	wantQuant := layout.QuantRecordSize(d) * n
	wantF32 := layout.F32RecordSize(d) * n
	if h.QuantArenaSize != wantQuant {
		t.Errorf("QuantArenaSize = %d, want %d", h.QuantArenaSize, wantQuant)
	}
	if h.F32ArenaSize != wantF32 {
		t.Errorf("F32ArenaSize = %d, want %d", h.F32ArenaSize, wantF32)
	}
}

func TestArenasAreAligned(t *testing.T) {
	b := buildTestGraph(t, 40, 20)
	_, h, err := build(b)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for name, off := range map[string]uint32{
		"quant":    h.QuantArenaOffset,
		"f32":      h.F32ArenaOffset,
		"nodeTbl":  h.NodeTableOffset,
		"neighbor": h.NeighborArenaOffset,
	} {
		if off%layout.ArenaAlignment != 0 {
			t.Errorf("%s arena offset %d is not 32-byte aligned", name, off)
		}
	}
}

func TestSaveWritesAtomicallyAndIsLoadable(t *testing.T) {
	b := buildTestGraph(t, 20, 6)
	dir := t.TempDir()
	path := filepath.Join(dir, "index.vx")

	if err := Save(b, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("expected .tmp file to be gone after Save")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	h := layout.DecodeHeader(data)
	if err := layout.Validate(&h, int64(len(data))); err != nil {
		t.Fatalf("Validate written file: %v", err)
	}
}

func TestF32ArenaIsObfuscated(t *testing.T) {
	b := buildTestGraph(t, 5, 4)
	body, h, err := build(b)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// The raw bytes in the f32 arena should not equal the plain f32
	// encoding of the original vector, since they were XORed with the
	// obfuscation key.
	vec, err := b.Vector(0)
	if err != nil {
		t.Fatalf("Vector: %v", err)
	}
	rec := body[h.F32ArenaOffset : h.F32ArenaOffset+layout.F32RecordSize(h.D)]

	allMatch := true
	for i, x := range vec {
		bits := math.Float32bits(x)
		got := uint32(rec[i*4]) | uint32(rec[i*4+1])<<8 | uint32(rec[i*4+2])<<16 | uint32(rec[i*4+3])<<24
		if got != bits {
			allMatch = false
		}
	}
	if allMatch {
		t.Error("f32 arena bytes match plaintext encoding; expected XOR obfuscation")
	}
}
