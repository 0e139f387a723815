package relevance

import "math"

// Cosine computes the cosine similarity between two vectors: the dot
// product over the product of Euclidean norms. Empty vectors, mismatched
// dimensions and zero norms all yield 0.0 — a deliberate "not relevant"
// default for degenerate vectors, not an error.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na <= 0.0 || nb <= 0.0 {
		return 0.0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
