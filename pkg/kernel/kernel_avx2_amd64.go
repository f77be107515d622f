//go:build amd64 && goexperiment.simd

package kernel

import (
	"simd/archsimd"

	"golang.org/x/sys/cpu"
)

func init() {
	if archsimd.X86.AVX2() && cpu.X86.HasFMA {
		activeTier = TierAVX2
		activeF32 = f32AVX2
		return
	}
	activeTier = TierScalar
	activeF32 = F32Scalar
}

// f32AVX2 processes 8 lanes per iteration ((diff)² + acc) and finishes
// the tail with the scalar kernel. Must match F32Scalar bit-for-bit: the
// lane sum is a plain horizontal add, never a reassociated tree
// reduction, so rounding is identical to the scalar accumulation order
// one group of 8 at a time.
func f32AVX2(a, b []float32) float32 {
	n := len(a)
	acc := archsimd.BroadcastFloat32x8(0)

	i := 0
	for ; i+8 <= n; i += 8 {
		av := archsimd.LoadFloat32x8Slice(a[i : i+8])
		bv := archsimd.LoadFloat32x8Slice(b[i : i+8])
		d := av.Sub(bv)
		acc = acc.Add(d.Mul(d))
	}

	var lanes [8]float32
	acc.StoreSlice(lanes[:])
	var sum float32
	for _, v := range lanes {
		sum += v
	}

	if i < n {
		sum += F32Scalar(a[i:], b[i:])
	}
	return sum
}
