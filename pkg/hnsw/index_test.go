package hnsw

import "testing"

func TestDefaultBuildConfig(t *testing.T) {
	cfg := DefaultBuildConfig()
	if cfg.M != 16 || cfg.EfConstruction != 200 {
		t.Errorf("DefaultBuildConfig = %+v, want M=16 EfConstruction=200", cfg)
	}
}

func TestNewBuilderAppliesDefaultsForZeroValues(t *testing.T) {
	b := mustNewBuilder(t, BuildConfig{})
	if b.M != 16 || b.efConstruction != 200 {
		t.Errorf("NewBuilder zero-value config: M=%d ef=%d, want 16/200", b.M, b.efConstruction)
	}
	if b.M0 != 32 {
		t.Errorf("M0 = %d, want 32 (2*M)", b.M0)
	}
}

func TestStatsReflectsInsertedVectors(t *testing.T) {
	b := mustNewBuilder(t, BuildConfig{M: 4, EfConstruction: 32, Seed: 1})
	for _, v := range randomVectors(50, 6, 9) {
		if _, err := b.Insert(v); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	stats := b.GetStats()
	if stats.Size != 50 {
		t.Errorf("Size = %d, want 50", stats.Size)
	}
	if stats.Dimension != 6 {
		t.Errorf("Dimension = %d, want 6", stats.Dimension)
	}
	if stats.NodesPerLevel[0] != 50 {
		t.Errorf("NodesPerLevel[0] = %d, want 50 (every node is on layer 0)", stats.NodesPerLevel[0])
	}
}

func TestForEachNodeVisitsInIDOrder(t *testing.T) {
	b := mustNewBuilder(t, BuildConfig{M: 4, EfConstruction: 32, Seed: 3})
	for _, v := range randomVectors(40, 4, 10) {
		if _, err := b.Insert(v); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	var last int64 = -1
	b.ForEachNode(func(n *Node) {
		if int64(n.ID()) <= last {
			t.Errorf("ForEachNode out of order: id %d after %d", n.ID(), last)
		}
		last = int64(n.ID())
	})
}
