package kernel

// F32Scalar computes squared Euclidean distance with a straight scalar
// loop. This is the reference every dispatch tier must match exactly —
// tie-breaking downstream depends on bit-identical ordering, so this
// function is never allowed to use fused multiply-add or reassociate the
// sum in a way that would change rounding.
func F32Scalar(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
