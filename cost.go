package mosaic

import (
	"context"
	"fmt"

	"github.com/gogpu/mosaic/internal/parallel"
)

// BuildCostMatrix fills a CostMatrix with the weighted dissimilarity
// between every receiver tile and every donor tile. receiver and donor must
// have the same tile count; pool drives the CPU fallback path and may be
// nil (a pool is created and closed internally for the call).
//
// If a CostAccelerator is registered and reports it can serve weights' enabled
// feature set, BuildCostMatrix tries it first. Accelerators compare pixels in
// raw RGB only, so a request with useYUV set always runs on the CPU path. On
// any accelerator error, including ErrFallbackToCPU, it logs a
// KindDeviceFallback warning and proceeds on the CPU path — accelerator
// failure is never fatal. The backend that built the matrix is logged at
// Debug level.
func BuildCostMatrix(ctx context.Context, receiver, donor *FeatureTensor, weights Weights, useYUV bool, pool *parallel.WorkerPool) (*CostMatrix, error) {
	n := receiver.N()
	if donor.N() != n {
		return nil, newError(KindTileGeometry, fmt.Sprintf(
			"receiver has %d tiles, donor has %d", n, donor.N()), nil)
	}

	out := NewCostMatrix(n)

	if acc := CostAcceleratorInstance(); acc != nil && !useYUV && acc.CanAccelerate(weights.enabled()) {
		if err := acc.ComputeCost(receiver, donor, weights, out); err == nil {
			if err := out.validate(); err != nil {
				return nil, err
			}
			Logger().Debug("cost matrix built", "backend", acc.Name(), "tiles", n)
			return out, nil
		} else {
			Logger().Warn("cost accelerator failed, falling back to CPU",
				"accelerator", acc.Name(), "error", err)
		}
	}

	if err := buildCostMatrixCPU(ctx, receiver, donor, weights, useYUV, out, pool); err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	Logger().Debug("cost matrix built", "backend", "cpu", "tiles", n)
	return out, nil
}

// buildCostMatrixCPU fills out one receiver row per worker task, so each
// task owns a disjoint slice of out.Data and needs no locking. ctx is
// checked once before dispatch: cancellation during a row's computation is
// not interrupted mid-row, matching the orchestrator's phase-boundary
// cancellation model.
func buildCostMatrixCPU(ctx context.Context, receiver, donor *FeatureTensor, weights Weights, useYUV bool, out *CostMatrix, pool *parallel.WorkerPool) error {
	if err := ctx.Err(); err != nil {
		return newError(KindCancelled, "cost matrix build cancelled", err)
	}

	owned := pool == nil
	if owned {
		pool = parallel.NewWorkerPool(0)
		defer pool.Close()
	}

	n := receiver.N()
	w := weights.Normalize()

	tasks := make([]func(), n)
	for i := 0; i < n; i++ {
		i := i
		tasks[i] = func() {
			for j := 0; j < n; j++ {
				s := 0.0
				if w.Pixel > 0 {
					s += w.Pixel * sPixel(receiver.tiles[i], donor.tiles[j], useYUV)
				}
				if w.Mean > 0 {
					s += w.Mean * sMean(receiver.tiles[i], donor.tiles[j])
				}
				if w.Sobel > 0 {
					s += w.Sobel * sSobel(receiver.sobel[i], donor.sobel[j])
				}
				if w.Deep > 0 {
					s += w.Deep * cosineSimilarity(receiver.deep[i], donor.deep[j])
				}
				out.Set(i, j, float32(1-s))
			}
		}
	}
	pool.ExecuteAll(tasks)
	return nil
}
