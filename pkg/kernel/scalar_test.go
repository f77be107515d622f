package kernel

import (
	"math"
	"math/rand"
	"testing"
)

func naiveF32(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}

func TestF32ScalarMatchesNaive(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, dim := range []int{1, 2, 3, 7, 8, 16, 17, 63, 64, 128, 257, 1024} {
		a := make([]float32, dim)
		b := make([]float32, dim)
		for i := range a {
			a[i] = r.Float32()*200 - 100
			b[i] = r.Float32()*200 - 100
		}
		got := F32Scalar(a, b)
		want := naiveF32(a, b)
		if math.Abs(float64(got-want)) > 1e-2 {
			t.Errorf("dim=%d: F32Scalar=%v naive=%v", dim, got, want)
		}
	}
}

func TestF32ScalarIdentical(t *testing.T) {
	v := []float32{1, 2, 3, 4, 5}
	if got := F32Scalar(v, v); got != 0 {
		t.Errorf("distance of identical vectors = %v, want 0", got)
	}
}

func TestF32ScalarKnownValue(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	got := F32Scalar(a, b)
	if math.Abs(float64(got-2)) > 1e-6 {
		t.Errorf("F32Scalar = %v, want 2", got)
	}
}

func TestActiveTierConsistent(t *testing.T) {
	tier := ActiveTier()
	if tier != TierScalar && tier != TierAVX2 && tier != TierAVX512 {
		t.Fatalf("unknown active tier %v", tier)
	}
	f := PickF32()
	if f == nil {
		t.Fatal("PickF32 returned nil")
	}
	a := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	b := []float32{9, 8, 7, 6, 5, 4, 3, 2, 1}
	if got, want := f(a, b), F32Scalar(a, b); math.Abs(float64(got-want)) > 1e-3 {
		t.Errorf("active kernel disagrees with scalar reference: %v vs %v (tier=%v)", got, want, tier)
	}
}
