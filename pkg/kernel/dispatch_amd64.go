//go:build amd64 && !goexperiment.simd

package kernel

import "golang.org/x/sys/cpu"

// hostHasAVX2 reports whether the CPU advertises AVX2+FMA, independent of
// whether this build can actually dispatch to it.
var hostHasAVX2 = cpu.X86.HasAVX2 && cpu.X86.HasFMA

// Without GOEXPERIMENT=simd there is no Go-level AVX2 intrinsic available
// to this build, so the active tier stays scalar even on CPUs that
// support AVX2/FMA. Build with GOEXPERIMENT=simd for the vectorized path
// in kernel_avx2_amd64.go.
func init() {
	activeTier = TierScalar
	activeF32 = F32Scalar
}
