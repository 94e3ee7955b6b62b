package mosaic

import (
	"fmt"
	"math"
)

// CostMatrix is a dense, row-major N×N matrix of assignment costs: Data[i*N+j]
// is the cost of assigning receiver tile i to donor tile j.
type CostMatrix struct {
	N    int
	Data []float32
}

// NewCostMatrix allocates a zeroed N×N CostMatrix.
func NewCostMatrix(n int) *CostMatrix {
	return &CostMatrix{N: n, Data: make([]float32, n*n)}
}

// At returns Data[i*N+j].
func (m *CostMatrix) At(i, j int) float32 { return m.Data[i*m.N+j] }

// Set writes Data[i*N+j].
func (m *CostMatrix) Set(i, j int, v float32) { m.Data[i*m.N+j] = v }

// validate checks the two structural preconditions the solver requires: the
// matrix must be square (trivially true by construction, but checked here
// so a hand-built CostMatrix from a CostAccelerator is still verified) and
// every entry must be finite.
func (m *CostMatrix) validate() error {
	if len(m.Data) != m.N*m.N {
		return newError(KindNotSquare, fmt.Sprintf(
			"cost matrix has %d entries, want %d for N=%d", len(m.Data), m.N*m.N, m.N), nil)
	}
	for i, v := range m.Data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			r, c := i/m.N, i%m.N
			return newError(KindNonFinite, fmt.Sprintf("cost matrix entry (%d,%d) = %v", r, c, v), nil)
		}
	}
	return nil
}
