package mosaic

import "context"

// Assignment is the result of solving a CostMatrix: ColInd[i] is the donor
// tile index matched to receiver tile i, and Cost is the total cost of the
// matching.
type Assignment struct {
	ColInd []int
	Cost   float64
}

// Solve computes a minimum-cost perfect matching over an N×N CostMatrix
// using the Jonker-Volgenant-style primal-dual (Hungarian) algorithm, O(N^3).
// Ties are broken deterministically by preferring the smaller donor index,
// so Solve is reproducible across runs and across the CPU and GPU cost
// paths given the same matrix.
//
// Solve fails with KindNotSquare or KindNonFinite if m was not already
// validated by its producer, and with KindCancelled if ctx is done before
// the solve begins or by the time it finishes.
func Solve(ctx context.Context, m *CostMatrix) (*Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(KindCancelled, "solver cancelled", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}

	n := m.N
	if n == 0 {
		return &Assignment{ColInd: nil, Cost: 0}, nil
	}

	const inf = 1e18

	// u, v are the dual potentials for rows and columns; p[j] is the row
	// currently matched to column j (1-indexed, 0 means unmatched); way[j]
	// records the column reached just before j during the row's augmenting
	// search, used to walk the augmenting path back once a free column is
	// found. This is the standard O(N^3) Jonker-Volgenant formulation,
	// indices shifted by one to use 0 as the "unmatched" sentinel.
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)

	cost := func(i, j int) float64 { return float64(m.At(i, j)) }

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := 0; j <= n; j++ {
			minv[j] = inf
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				// j runs in increasing order, so the strict "<" here keeps
				// the first (smallest-index) column on ties.
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	colInd := make([]int, n)
	total := 0.0
	for j := 1; j <= n; j++ {
		i := p[j]
		colInd[i-1] = j - 1
		total += cost(i-1, j-1)
	}

	if err := ctx.Err(); err != nil {
		return nil, newError(KindCancelled, "solver cancelled", err)
	}

	return &Assignment{ColInd: colInd, Cost: total}, nil
}
