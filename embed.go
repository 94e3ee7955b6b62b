package mosaic

import (
	"math"
	"sync"
)

// Embedder produces a deep feature vector for a single tile. Available
// reports whether the embedder is ready to serve Embed calls; a process may
// hold an Embedder whose backing model failed to load, in which case
// Available returns false and the deep feature is treated as
// KindEmbedderUnavailable wherever its weight is nonzero.
type Embedder interface {
	Available() bool
	Embed(tile []uint8, tileSize int) ([]float64, error)
}

// NullEmbedder is always unavailable. It is the zero-value default: a job
// with Weights.Deep == 0 never touches it, and orchestrator construction
// does not have to special-case "no embedder configured".
type NullEmbedder struct{}

func (NullEmbedder) Available() bool { return false }
func (NullEmbedder) Embed([]uint8, int) ([]float64, error) {
	return nil, newError(KindEmbedderUnavailable, "no embedder configured", nil)
}

// StubEmbedder is a deterministic, dependency-free Embedder for tests and
// for environments without a real deep-learning backend: it reduces a tile
// to its per-channel mean and standard deviation, a 6-dimensional vector that is
// stable, cheap, and exercises the same cosine-similarity code path a real
// CNN embedding would. Like a ReLU-activated CNN's features, every
// component is non-negative, so cosineSimilarity's raw dot product stays
// in [0,1] in practice even without an explicit remap.
type StubEmbedder struct{}

func (StubEmbedder) Available() bool { return true }

func (StubEmbedder) Embed(tile []uint8, tileSize int) ([]float64, error) {
	n := tileSize * tileSize
	if n == 0 || len(tile) != n*3 {
		return nil, newError(KindTileGeometry, "embedder received mismatched tile size", nil)
	}
	var sum, sumSq [3]float64
	for i := 0; i < n; i++ {
		for c := 0; c < 3; c++ {
			v := float64(tile[i*3+c])
			sum[c] += v
			sumSq[c] += v * v
		}
	}
	out := make([]float64, 6)
	for c := 0; c < 3; c++ {
		mean := sum[c] / float64(n)
		variance := sumSq[c]/float64(n) - mean*mean
		if variance < 0 {
			variance = 0
		}
		out[c] = mean
		out[c+3] = math.Sqrt(variance)
	}
	return out, nil
}

// l2Normalize returns v scaled to unit L2 norm. A zero vector is returned
// unchanged rather than dividing by zero.
func l2Normalize(v []float64) []float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// cosineSimilarity returns the dot product of two L2-normalized vectors,
// clamped to [-1, 1] to absorb floating-point drift. This is plain cosine
// similarity, matching Replace.py's sim_vgg = np.dot(...) with no remap.
func cosineSimilarity(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return clampF(dot, -1, 1)
}

var (
	embedderMu sync.RWMutex
	embedder   Embedder = NullEmbedder{}
)

// SetEmbedder installs the process-wide deep-feature Embedder. The default
// is NullEmbedder, so jobs with Weights.Deep == 0 never need to call this.
// Safe for concurrent use.
func SetEmbedder(e Embedder) {
	if e == nil {
		e = NullEmbedder{}
	}
	embedderMu.Lock()
	embedder = e
	embedderMu.Unlock()
}

// currentEmbedder returns the process-wide Embedder.
func currentEmbedder() Embedder {
	embedderMu.RLock()
	e := embedder
	embedderMu.RUnlock()
	return e
}
