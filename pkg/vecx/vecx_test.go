package vecx

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/vecxdb/vecx/pkg/config"
)

func TestBuildSaveLoadSearchRoundTrip(t *testing.T) {
	idx, err := Build(config.BuildConfig{M: 16, EfConstruction: 128, Seed: 7})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	r := rand.New(rand.NewSource(3))
	const n, d = 300, 12
	vecs := make([][]float32, n)
	for i := 0; i < n; i++ {
		v := make([]float32, d)
		for j := range v {
			v[j] = r.Float32()*2 - 1
		}
		vecs[i] = v
		if _, err := idx.Insert(v); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	if idx.Len() != n {
		t.Errorf("Len() = %d, want %d", idx.Len(), n)
	}

	path := filepath.Join(t.TempDir(), "index.vx")
	if err := Save(idx, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer loaded.Close()

	if loaded.Len() != n {
		t.Errorf("loaded.Len() = %d, want %d", loaded.Len(), n)
	}
	if loaded.Dim() != d {
		t.Errorf("loaded.Dim() = %d, want %d", loaded.Dim(), d)
	}

	stats := loaded.Stats()
	if stats.M != 16 || stats.EfConstruction != 128 {
		t.Errorf("Stats() = %+v, want M=16 EfConstruction=128", stats)
	}

	results, err := loaded.Search(vecs[0], 1, 32)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != 0 {
		t.Errorf("Search(vecs[0]) = %+v, want self as the only/nearest result", results)
	}
}

func TestBatchInsertThroughFacade(t *testing.T) {
	idx, err := Build(config.BuildConfig{M: 8, EfConstruction: 64, Seed: 11})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	vecs := make([][]float32, 50)
	r := rand.New(rand.NewSource(19))
	for i := range vecs {
		v := make([]float32, 6)
		for j := range v {
			v[j] = r.Float32()
		}
		vecs[i] = v
	}

	result := idx.BatchInsert(vecs, nil)
	if result.Success != len(vecs) {
		t.Errorf("Success = %d, want %d", result.Success, len(vecs))
	}
	if idx.Len() != int64(len(vecs)) {
		t.Errorf("Len() = %d, want %d", idx.Len(), len(vecs))
	}
}
