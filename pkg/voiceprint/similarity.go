package voiceprint

import "math"

// Cosine returns the cosine similarity of a and b, computed in float64.
//
// Both embeddings must pass Validate and have equal length; otherwise the
// error matches ErrDegenerateEmbedding or ErrEmbeddingMismatch. The result
// is clamped to [-1, 1].
func Cosine(a, b Embedding) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	if len(a) != len(b) {
		return 0, dimensionMismatch(len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	s := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return max(-1, min(1, s)), nil
}
