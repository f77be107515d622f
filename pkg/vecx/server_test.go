package vecx

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/vecxdb/vecx/pkg/config"
)

func buildSmallIndex(t *testing.T) (string, [][]float32) {
	t.Helper()
	idx, err := Build(config.BuildConfig{M: 8, EfConstruction: 64, Seed: 5})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	r := rand.New(rand.NewSource(9))
	const n, d = 80, 8
	vecs := make([][]float32, n)
	for i := 0; i < n; i++ {
		v := make([]float32, d)
		for j := range v {
			v[j] = r.Float32()
		}
		vecs[i] = v
		if _, err := idx.Insert(v); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	path := filepath.Join(t.TempDir(), "index.vx")
	if err := Save(idx, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return path, vecs
}

func TestServerSearchAsyncFindsSelf(t *testing.T) {
	path, vecs := buildSmallIndex(t)

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	srv, err := NewServer(loaded, config.SchedulerConfig{Mode: config.ModeSafe, QueueDepth: 16})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer srv.Close()

	if srv.Workers() == 0 {
		t.Fatal("expected at least one worker")
	}

	ch := srv.SearchAsync(vecs[0], 1, 32)
	res := <-ch
	if res.Err != nil {
		t.Fatalf("SearchAsync: %v", res.Err)
	}
	if len(res.Results) != 1 || res.Results[0].ID != 0 {
		t.Errorf("SearchAsync(vecs[0]) = %+v, want self as the only/nearest result", res.Results)
	}
}

func TestNewServerRejectsUnknownMode(t *testing.T) {
	path, _ := buildSmallIndex(t)
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer loaded.Close()

	if _, err := NewServer(loaded, config.SchedulerConfig{Mode: "bogus", QueueDepth: 16}); err == nil {
		t.Fatal("expected error for unknown scheduler mode")
	}
}
