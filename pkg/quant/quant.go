// Package quant implements the scalar i8 quantization scheme the searcher's
// coarse stage and the on-disk quantized arena both depend on.
package quant

import "math"

// Vector holds one quantized vector: its i8 components, the scale that
// maps unit-normalized f32 components into the i8 range, and the
// original L2 norm needed to reconstruct approximate magnitudes.
type Vector struct {
	Codes []int8
	Scale float32
	Norm  float32
}

// Quantize L2-normalizes v, scales it into i8 components, and records the
// scale and original norm so the distance kernel can reconstruct
// approximate L2 distance. Per-vector scaling (rather than a single
// global scale) matters because normalization concentrates components
// near zero — a shared scale would waste most of the i8 range.
func Quantize(v []float32) Vector {
	norm := l2Norm(v)
	codes := make([]int8, len(v))

	if norm == 0 {
		return Vector{Codes: codes, Scale: 1, Norm: 0}
	}

	maxAbs := float32(0)
	for _, x := range v {
		u := x / norm
		if a := abs32(u); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs == 0 {
		return Vector{Codes: codes, Scale: 1, Norm: norm}
	}

	scale := 127 / maxAbs
	for i, x := range v {
		u := x / norm
		codes[i] = clampToI8(math.Round(float64(u * scale)))
	}

	return Vector{Codes: codes, Scale: scale, Norm: norm}
}

// QuantizeInto reuses dst's backing array when its capacity is at least
// len(v), avoiding an allocation on the per-query hot path.
func QuantizeInto(v []float32, dst []int8) Vector {
	if cap(dst) < len(v) {
		dst = make([]int8, len(v))
	}
	dst = dst[:len(v)]

	norm := l2Norm(v)
	if norm == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return Vector{Codes: dst, Scale: 1, Norm: 0}
	}

	maxAbs := float32(0)
	for _, x := range v {
		if a := abs32(x / norm); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return Vector{Codes: dst, Scale: 1, Norm: norm}
	}

	scale := 127 / maxAbs
	for i, x := range v {
		u := x / norm
		dst[i] = clampToI8(math.Round(float64(u * scale)))
	}
	return Vector{Codes: dst, Scale: scale, Norm: norm}
}

func clampToI8(v float64) int8 {
	if v < -128 {
		return -128
	}
	if v > 127 {
		return 127
	}
	return int8(v)
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func l2Norm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}
