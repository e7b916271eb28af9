package voiceprint

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

// DefaultHashBits is the label width used for enrolled records: 16 bits,
// four hex characters.
const DefaultHashBits = 16

// Hasher projects embeddings onto random hyperplanes to produce short
// locality-sensitive labels such as "A3F8".
//
// Each of the configured bits is the sign of the dot product between the
// embedding and one random unit hyperplane. Embeddings pointing in similar
// directions land on the same side of most hyperplanes, so a speaker's
// recordings usually share a label. Prefixes of a label give coarser
// buckets:
//
//	"A3F8" 16 bit
//	"A3F"  12 bit
//	"A3"    8 bit
//
// A Hasher is immutable and safe for concurrent use.
type Hasher struct {
	dim    int
	planes [][]float64
}

// NewHasher creates a Hasher for embeddings of length dim. bits must be a
// positive multiple of 4. The same seed always yields the same hyperplanes,
// so labels are stable across restarts.
func NewHasher(dim, bits int, seed uint64) (*Hasher, error) {
	if bits <= 0 || bits%4 != 0 {
		return nil, fmt.Errorf("voiceprint: hash bits must be a positive multiple of 4, got %d", bits)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("voiceprint: hash dimension must be positive, got %d", dim)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
	planes := make([][]float64, bits)
	for i := range planes {
		plane := make([]float64, dim)
		var norm float64
		for j := range plane {
			v := rng.NormFloat64()
			plane[j] = v
			norm += v * v
		}
		norm = math.Sqrt(norm)
		for j := range plane {
			plane[j] /= norm
		}
		planes[i] = plane
	}
	return &Hasher{dim: dim, planes: planes}, nil
}

// Hash returns the uppercase hex label of e. An embedding of the wrong
// length returns a *MismatchError.
func (h *Hasher) Hash(e Embedding) (string, error) {
	if len(e) != h.dim {
		return "", dimensionMismatch(len(e), h.dim)
	}
	var sb strings.Builder
	sb.Grow(len(h.planes) / 4)
	var nibble byte
	for i, plane := range h.planes {
		var dot float64
		for j, p := range plane {
			dot += p * float64(e[j])
		}
		nibble <<= 1
		if dot > 0 {
			nibble |= 1
		}
		if i%4 == 3 {
			sb.WriteByte("0123456789ABCDEF"[nibble])
			nibble = 0
		}
	}
	return sb.String(), nil
}

// Bits returns the number of hash bits.
func (h *Hasher) Bits() int { return len(h.planes) }

// Dim returns the expected embedding dimension.
func (h *Hasher) Dim() int { return h.dim }
