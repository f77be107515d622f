//go:build !amd64

package kernel

func init() {
	activeTier = TierScalar
	activeF32 = F32Scalar
}
