package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Storage layout of extracted features, relative to the data root.
const (
	FeaturesDir       = "features"
	CorpusVectorsPath = FeaturesDir + "/features.npy"
	CorpusIDsPath     = FeaturesDir + "/imageIds.csv"

	// IDColumn is the header of every id list file.
	IDColumn = "image_id"
)

// FeatureBatch is one committed group of image embeddings.
// IDs and Vectors have the same length and order.
type FeatureBatch struct {
	Index   int
	IDs     []string
	Vectors [][]float32
}

// Validate checks the batch is internally consistent.
func (b *FeatureBatch) Validate() error {
	if len(b.IDs) != len(b.Vectors) {
		return fmt.Errorf("batch %d: %d ids but %d vectors: %w", b.Index, len(b.IDs), len(b.Vectors), ErrIntegrity)
	}
	for i, v := range b.Vectors {
		if len(v) != len(b.Vectors[0]) {
			return fmt.Errorf("batch %d: row %d has dimension %d, want %d: %w",
				b.Index, i, len(v), len(b.Vectors[0]), ErrIntegrity)
		}
	}
	return nil
}

// BatchVectorsPath returns the vector file of batch i.
// The vector file is written last and marks the batch as committed.
func BatchVectorsPath(i int) string {
	return fmt.Sprintf("%s/%010d.npy", FeaturesDir, i)
}

// BatchIDsPath returns the id list file of batch i.
func BatchIDsPath(i int) string {
	return fmt.Sprintf("%s/%010d.csv", FeaturesDir, i)
}

// ParseBatchVectorsPath reports the batch index of a committed vector file.
// The consolidated corpus file is not a batch and is rejected.
func ParseBatchVectorsPath(path string) (int, bool) {
	name, ok := strings.CutPrefix(path, FeaturesDir+"/")
	if !ok {
		return 0, false
	}
	stem, ok := strings.CutSuffix(name, ".npy")
	if !ok || len(stem) != 10 {
		return 0, false
	}
	i, err := strconv.Atoi(stem)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// Corpus is every committed batch concatenated in batch order.
// Vectors is row-major: row i occupies Vectors[i*Dim:(i+1)*Dim] and
// belongs to IDs[i].
type Corpus struct {
	IDs     []string
	Dim     int
	Vectors []float32
}

// NewCorpus concatenates batches in the order given. An image may appear
// in only one batch.
func NewCorpus(batches []FeatureBatch) (*Corpus, error) {
	c := &Corpus{}
	seen := make(map[string]int)
	for _, b := range batches {
		if err := b.Validate(); err != nil {
			return nil, err
		}
		for i, v := range b.Vectors {
			if c.Dim == 0 {
				c.Dim = len(v)
			}
			if len(v) != c.Dim {
				return nil, fmt.Errorf("batch %d: dimension %d, corpus has %d: %w", b.Index, len(v), c.Dim, ErrIntegrity)
			}
			id := b.IDs[i]
			if first, dup := seen[id]; dup {
				return nil, fmt.Errorf("batch %d: image %s already embedded in batch %d: %w", b.Index, id, first, ErrIntegrity)
			}
			seen[id] = b.Index
			c.IDs = append(c.IDs, id)
			c.Vectors = append(c.Vectors, v...)
		}
	}
	return c, nil
}

// Len returns the number of rows.
func (c *Corpus) Len() int {
	return len(c.IDs)
}

// Row returns row i without copying.
func (c *Corpus) Row(i int) []float32 {
	return c.Vectors[i*c.Dim : (i+1)*c.Dim]
}

// Validate checks that the id list and matrix agree.
func (c *Corpus) Validate() error {
	if c.Dim <= 0 && len(c.IDs) > 0 {
		return fmt.Errorf("corpus has %d ids but no dimension: %w", len(c.IDs), ErrConfiguration)
	}
	if len(c.Vectors) != len(c.IDs)*c.Dim {
		return fmt.Errorf("corpus has %d ids but %d values for dimension %d: %w",
			len(c.IDs), len(c.Vectors), c.Dim, ErrConfiguration)
	}
	return nil
}

// Normalize scales v to unit L2 norm in place and returns it.
// A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

// Finite reports whether every component of v is a finite number.
func Finite(v []float32) bool {
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return false
		}
	}
	return true
}

// Dot returns the inner product of two equal-length vectors.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
