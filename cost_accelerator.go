package mosaic

import (
	"errors"
	"sync"
)

// ErrFallbackToCPU indicates the GPU accelerator cannot handle this cost
// computation. The caller should transparently fall back to the CPU path.
var ErrFallbackToCPU = errors.New("mosaic: falling back to CPU cost path")

// AcceleratedFeature describes which feature kinds a CostAccelerator can
// evaluate on-device, as a bitmask so CanAccelerate can be checked once per
// job rather than once per feature.
type AcceleratedFeature uint32

const (
	// AccelPixel represents raw pixel-difference cost.
	AccelPixel AcceleratedFeature = 1 << iota

	// AccelMean represents mean-color cost.
	AccelMean

	// AccelSobel represents Sobel edge-structure cost.
	AccelSobel

	// AccelDeep represents deep-embedding cosine-similarity cost.
	AccelDeep
)

// CostAccelerator is an optional GPU acceleration provider for cost-matrix
// construction.
//
// When registered via RegisterCostAccelerator, the orchestrator tries the
// GPU path first for the feature kinds CanAccelerate reports as supported.
// If ComputeCost returns ErrFallbackToCPU or any error, the orchestrator
// transparently falls back to the CPU path and logs a DeviceFallback
// warning; it never treats accelerator failure as fatal.
//
// Implementations are provided by GPU backend packages (e.g., the gpu
// subpackage). Importing such a package registers nothing; callers opt in
// explicitly:
//
//	if err := gpu.Register(); err != nil { /* stay on the CPU path */ }
type CostAccelerator interface {
	// Name returns the accelerator name (e.g., "wgpu").
	Name() string

	// Init initializes GPU resources. Called once during registration.
	Init() error

	// Close releases GPU resources.
	Close()

	// CanAccelerate reports whether the accelerator supports every feature
	// kind with a nonzero weight in the requested set.
	CanAccelerate(requested AcceleratedFeature) bool

	// ComputeCost fills out with the weighted cost matrix between the
	// receiver and donor feature tensors. out must already be allocated at
	// N×N for receiver.N() == donor.N() == N. Returns ErrFallbackToCPU if
	// the device cannot serve this particular tensor shape.
	ComputeCost(receiver, donor *FeatureTensor, weights Weights, out *CostMatrix) error
}

var (
	costAccelMu sync.RWMutex
	costAccel   CostAccelerator
)

// RegisterCostAccelerator registers a GPU accelerator for cost-matrix
// construction.
//
// Only one accelerator can be registered at a time; subsequent calls replace
// the previous one. Init is called during registration; if it fails the
// accelerator is not registered and the error is returned.
//
// Typical usage, as wrapped by gpu.Register:
//
//	err := mosaic.RegisterCostAccelerator(gpu.NewWGPUAccelerator())
func RegisterCostAccelerator(a CostAccelerator) error {
	if a == nil {
		return errors.New("mosaic: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	costAccelMu.Lock()
	old := costAccel
	costAccel = a
	costAccelMu.Unlock()
	if old != nil {
		old.Close()
	}
	propagateLogger(a, Logger())
	return nil
}

// CostAcceleratorInstance returns the currently registered CostAccelerator,
// or nil if none.
func CostAcceleratorInstance() CostAccelerator {
	costAccelMu.RLock()
	a := costAccel
	costAccelMu.RUnlock()
	return a
}

// CloseCostAccelerator shuts down the global GPU accelerator, releasing all
// GPU resources (buffers, pipelines, device, instance). After this call,
// [CostAcceleratorInstance] returns nil and cost-matrix construction runs on
// the CPU. Safe to call when no accelerator is registered; idempotent.
//
//	defer mosaic.CloseCostAccelerator()
func CloseCostAccelerator() {
	costAccelMu.Lock()
	a := costAccel
	costAccel = nil
	costAccelMu.Unlock()
	if a != nil {
		a.Close()
	}
}
