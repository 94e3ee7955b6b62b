package mosaic

import (
	"context"
	"log/slog"

	"github.com/gogpu/mosaic/internal/parallel"
)

// Job describes one mosaic reconstruction request.
type Job struct {
	Receiver *Image
	Donor    *Image
	TileSize int
	UseYUV   bool
	Weights  Weights
}

// Orchestrator runs the six-step reconstruction pipeline: partition both
// images, normalize the weights, build feature tensors, build the cost
// matrix, solve the assignment, and reassemble the output image. Construct one with
// NewOrchestrator and OrchestratorOption values.
type Orchestrator struct {
	workers int
	logger  *slog.Logger
}

// OrchestratorOption configures an Orchestrator during construction.
//
// Example:
//
//	orch := mosaic.NewOrchestrator(
//	    mosaic.WithWorkers(8),
//	    mosaic.WithLogger(slog.Default()),
//	)
type OrchestratorOption func(*orchestratorOptions)

type orchestratorOptions struct {
	workers int
	logger  *slog.Logger
	embed   Embedder
}

func defaultOrchestratorOptions() orchestratorOptions {
	return orchestratorOptions{
		workers: 0, // 0 lets internal/parallel.NewWorkerPool pick GOMAXPROCS
	}
}

// WithWorkers sets the CPU worker-pool size used for cost-matrix
// construction. 0 or negative selects runtime.GOMAXPROCS(0).
func WithWorkers(n int) OrchestratorOption {
	return func(o *orchestratorOptions) { o.workers = n }
}

// WithLogger sets the logger this Orchestrator uses for its per-run summary.
// If unset, the package-wide Logger() is used. Cost-matrix backend and
// GPU-fallback messages always go through the package-wide Logger().
func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *orchestratorOptions) { o.logger = l }
}

// WithEmbedder installs e as the process-wide deep-feature Embedder before
// the Orchestrator is constructed. This is equivalent to calling
// SetEmbedder(e) directly; it exists so embedder configuration can live
// alongside the rest of an Orchestrator's options.
func WithEmbedder(e Embedder) OrchestratorOption {
	return func(o *orchestratorOptions) { o.embed = e }
}

// NewOrchestrator builds an Orchestrator from the given options.
func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := defaultOrchestratorOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.embed != nil {
		SetEmbedder(o.embed)
	}
	logger := o.logger
	if logger == nil {
		logger = Logger()
	}
	return &Orchestrator{workers: o.workers, logger: logger}
}

// Run executes the full reconstruction pipeline for job. It checks
// ctx.Err() at each of the four phase boundaries (partition, feature
// tensors, cost matrix, solve) and fails with KindCancelled as soon as it
// observes cancellation, without starting the next phase.
func (orch *Orchestrator) Run(ctx context.Context, job Job) (*Image, *Assignment, error) {
	receiverGrid, err := Partition(job.Receiver, job.TileSize)
	if err != nil {
		return nil, nil, err
	}
	donorGrid, err := Partition(job.Donor, job.TileSize)
	if err != nil {
		return nil, nil, err
	}
	if receiverGrid.Rows != donorGrid.Rows || receiverGrid.Cols != donorGrid.Cols {
		return nil, nil, newError(KindTileGeometry, "receiver and donor produce different tile grids", nil)
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, newError(KindCancelled, "cancelled before feature extraction", err)
	}

	weights := job.Weights.Normalize()
	receiverFeat, err := BuildFeatureTensor(receiverGrid, weights)
	if err != nil {
		return nil, nil, err
	}
	donorFeat, err := BuildFeatureTensor(donorGrid, weights)
	if err != nil {
		return nil, nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, newError(KindCancelled, "cancelled before cost matrix construction", err)
	}

	pool := parallel.NewWorkerPool(orch.workers)
	defer pool.Close()

	costs, err := BuildCostMatrix(ctx, receiverFeat, donorFeat, weights, job.UseYUV, pool)
	if err != nil {
		return nil, nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, newError(KindCancelled, "cancelled before solving", err)
	}

	assignment, err := Solve(ctx, costs)
	if err != nil {
		return nil, nil, err
	}

	out, err := Reassemble(receiverGrid, donorGrid, assignment)
	if err != nil {
		return nil, nil, err
	}

	orch.logger.Debug("mosaic run complete",
		"tiles", receiverGrid.N(), "tile_size", job.TileSize, "cost", assignment.Cost)

	return out, assignment, nil
}
