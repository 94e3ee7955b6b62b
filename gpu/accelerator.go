// Package gpu provides a wgpu-backed CostAccelerator for the mosaic
// package, offloading dense cost-matrix construction to a compute shader.
//
// Importing this package does not enable GPU acceleration by itself; call
// Register once during program startup:
//
//	import "github.com/gogpu/mosaic/gpu"
//
//	func main() {
//	    if err := gpu.Register(); err != nil {
//	        log.Printf("gpu: %v, continuing on CPU", err)
//	    }
//	}
package gpu

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/mosaic"
)

//go:embed shaders/cost.wgsl
var costShaderSource string

// ErrNoGPU indicates no suitable GPU adapter was found.
var ErrNoGPU = errors.New("gpu: no suitable adapter found")

const fenceTimeout = 5 * time.Second

// costConfig mirrors the WGSL Config uniform struct field-for-field; its
// in-memory layout must stay in sync with shaders/cost.wgsl. There is no
// wDeep field: WGPUAccelerator.CanAccelerate refuses any request with a
// nonzero Deep weight, so the kernel never needs to see it.
type costConfig struct {
	n        uint32
	pixelDim uint32
	meanDim  uint32
	sobelLen uint32
	wPixel   float32
	wMean    float32
	wSobel   float32
}

const costConfigSize = 32

func (c costConfig) toBytes() []byte {
	buf := make([]byte, costConfigSize)
	putU32(buf[0:4], c.n)
	putU32(buf[4:8], c.pixelDim)
	putU32(buf[8:12], c.meanDim)
	putU32(buf[12:16], c.sobelLen)
	putF32(buf[16:20], c.wPixel)
	putF32(buf[20:24], c.wMean)
	putF32(buf[24:28], c.wSobel)
	// buf[28:32] left zero: reserved padding, matches Config._pad in the WGSL struct.
	return buf
}

// WGPUAccelerator is a CostAccelerator backed by github.com/gogpu/wgpu. It
// currently serves the Pixel, Mean, and Sobel feature kinds, whose
// per-tile vectors can be packed into a fixed-width buffer; Deep embeddings
// vary in dimension with the configured embedder, so CanAccelerate refuses
// any request with a nonzero Deep weight and the orchestrator falls back to
// the CPU path for it.
type WGPUAccelerator struct {
	mu sync.RWMutex

	instance *core.Instance
	adapter  core.AdapterID
	device   hal.Device
	queue    hal.Queue

	pipeline       hal.ComputePipeline
	pipelineLayout hal.PipelineLayout
	bgLayout       hal.BindGroupLayout
	shaderModule   hal.ShaderModule

	initialized bool
	logger      *slog.Logger
}

// NewWGPUAccelerator returns an uninitialized accelerator. Call Init (or
// go through RegisterCostAccelerator, which calls Init for you) before use.
func NewWGPUAccelerator() *WGPUAccelerator {
	return &WGPUAccelerator{logger: mosaic.Logger()}
}

// Register constructs a WGPUAccelerator and registers it as the active
// mosaic.CostAccelerator. It is a convenience wrapper around
// mosaic.RegisterCostAccelerator(NewWGPUAccelerator()).
func Register() error {
	return mosaic.RegisterCostAccelerator(NewWGPUAccelerator())
}

func (a *WGPUAccelerator) Name() string { return "wgpu" }

// SetLogger implements the loggerSetter interface mosaic.SetLogger/
// RegisterCostAccelerator propagate through.
func (a *WGPUAccelerator) SetLogger(l *slog.Logger) {
	a.mu.Lock()
	a.logger = l
	a.mu.Unlock()
}

// Init acquires an instance, adapter, device, and queue, then compiles the
// cost compute shader and builds its bind group layout and pipeline.
func (a *WGPUAccelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return nil
	}

	a.instance = core.NewInstance(&gputypes.InstanceDescriptor{
		Backends: gputypes.BackendsPrimary,
	})

	adapterID, err := a.instance.RequestAdapter(&gputypes.RequestAdapterOptions{
		PowerPreference: gputypes.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoGPU, err)
	}
	a.adapter = adapterID

	deviceID, err := core.RequestDevice(adapterID, &gputypes.DeviceDescriptor{
		Label:          "mosaic-cost-device",
		RequiredLimits: gputypes.DefaultLimits(),
	})
	if err != nil {
		return fmt.Errorf("gpu: create device: %w", err)
	}
	device := hal.Device(deviceID)
	a.device = device

	queueID, err := core.GetDeviceQueue(deviceID)
	if err != nil {
		a.destroyPartial()
		return fmt.Errorf("gpu: get queue: %w", err)
	}
	a.queue = hal.Queue(queueID)

	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "mosaic_cost",
		Source: hal.ShaderSource{WGSL: costShaderSource},
	})
	if err != nil {
		a.destroyPartial()
		return fmt.Errorf("gpu: compile shader: %w", err)
	}
	a.shaderModule = module

	bgLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "mosaic_cost_bgl",
		Entries: costBindGroupLayoutEntries(),
	})
	if err != nil {
		a.destroyPartial()
		return fmt.Errorf("gpu: bind group layout: %w", err)
	}
	a.bgLayout = bgLayout

	pipelineLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "mosaic_cost_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
	})
	if err != nil {
		a.destroyPartial()
		return fmt.Errorf("gpu: pipeline layout: %w", err)
	}
	a.pipelineLayout = pipelineLayout

	pipeline, err := device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "mosaic_cost_pipeline",
		Layout: pipelineLayout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		a.destroyPartial()
		return fmt.Errorf("gpu: compute pipeline: %w", err)
	}
	a.pipeline = pipeline

	a.initialized = true
	return nil
}

// destroyPartial releases whatever subset of resources Init had acquired
// before a later step failed. Called with a.mu held.
func (a *WGPUAccelerator) destroyPartial() {
	if a.pipeline != nil {
		a.device.DestroyComputePipeline(a.pipeline)
	}
	if a.pipelineLayout != nil {
		a.device.DestroyPipelineLayout(a.pipelineLayout)
	}
	if a.bgLayout != nil {
		a.device.DestroyBindGroupLayout(a.bgLayout)
	}
	if a.shaderModule != nil {
		a.device.DestroyShaderModule(a.shaderModule)
	}
}

// Close releases all GPU resources. Idempotent.
func (a *WGPUAccelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return
	}
	a.destroyPartial()
	if !a.adapter.IsZero() {
		core.AdapterDrop(a.adapter)
	}
	a.initialized = false
}

// CanAccelerate reports support for Pixel, Mean, and Sobel; Deep always
// routes to the CPU path (see WGPUAccelerator's doc comment).
func (a *WGPUAccelerator) CanAccelerate(requested mosaic.AcceleratedFeature) bool {
	return requested&mosaic.AccelDeep == 0
}

func costBindGroupLayoutEntries() []gputypes.BindGroupLayoutEntry {
	return []gputypes.BindGroupLayoutEntry{
		{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
		{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
		{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
		{Binding: 3, Visibility: gputypes.ShaderStageCompute, Buffer: gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
	}
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putF32(b []byte, v float32) {
	putU32(b, math.Float32bits(v))
}
