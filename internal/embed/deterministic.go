package embed

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"math"
	"math/rand"
)

// Deterministic produces hash-seeded pseudo-random unit vectors. The same
// text always yields the same vector, across calls and across process
// restarts, so indexing and search stay functional with no external model at
// a known quality cost.
type Deterministic struct {
	dim int
}

// NewDeterministic creates the fallback provider. dim defaults to 384 to
// match the local model's output size.
func NewDeterministic(dim int) *Deterministic {
	if dim <= 0 {
		dim = 384
	}
	return &Deterministic{dim: dim}
}

func (d *Deterministic) Name() string   { return "deterministic" }
func (d *Deterministic) Dimension() int { return d.dim }

// Embed never fails.
func (d *Deterministic) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = HashVector(text, d.dim)
	}
	return vectors, nil
}

// HashVector builds the deterministic unit vector for one text. Exposed so
// remote providers can substitute individual failed batches with the same
// vectors the fallback provider would produce.
func HashVector(text string, dim int) []float32 {
	sum := md5.Sum([]byte(text))
	seed := int64(binary.BigEndian.Uint32(sum[:4]))
	rng := rand.New(rand.NewSource(seed))

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		v := rng.Float64()
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

var _ Provider = (*Deterministic)(nil)
