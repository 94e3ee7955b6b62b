package gpu

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/mosaic"
)

const workgroupSize = 16

// ceilDiv returns ceil(a/b) for positive a, b.
func ceilDiv(a, b uint32) uint32 {
	return (a + b - 1) / b
}

// tileDims records each feature segment's per-tile length within a packed
// buffer. Pixel and Mean are always exported, so only sobel can be zero; a
// zero sobel length means the Sobel feature was not built (its weight was
// zero), and the kernel's Sobel block does no work for it.
type tileDims struct {
	pixel, mean, sobel int
}

func (d tileDims) total() int { return d.pixel + d.mean + 3*d.sobel }

// packFeatures exports mosaic's internal FeatureTensor into a flat,
// per-tile-concatenated f32 buffer: [pixel | mean | sobel_mag | sobel_cos |
// sobel_sin], every component already normalized the same way
// mosaic.ExportFeatures normalizes it (Pixel and Mean in [0,1], Sobel
// magnitude in [0,1], cos/sin in [-1,1]). Weights are NOT applied here —
// cost.wgsl reads each segment's own length from Config and applies
// w_pixel/w_mean/w_sobel itself, mirroring cost.go's CPU weighted-fusion
// formula term for term instead of diffing one undifferentiated buffer.
//
// This is the one piece of cost.wgsl's contract not expressible as a
// generic interface method on FeatureTensor, so it lives here rather than
// in the mosaic package; mosaic.ExportFeatures is the narrow seam that
// makes it possible without exposing FeatureTensor's internal layout.
func packFeatures(t *mosaic.ExportedFeatures) ([]float32, tileDims) {
	var dims tileDims
	if len(t.Pixel) > 0 {
		dims.pixel = len(t.Pixel[0])
	}
	if len(t.Mean) > 0 {
		dims.mean = len(t.Mean[0])
	}
	if len(t.SobelMag) > 0 {
		dims.sobel = len(t.SobelMag[0])
	}

	out := make([]float32, 0, t.N*dims.total())
	for i := 0; i < t.N; i++ {
		for _, v := range t.Pixel[i] {
			out = append(out, float32(v))
		}
		for _, v := range t.Mean[i] {
			out = append(out, float32(v))
		}
		if dims.sobel > 0 {
			for k := 0; k < dims.sobel; k++ {
				out = append(out, float32(t.SobelMag[i][k]))
			}
			for k := 0; k < dims.sobel; k++ {
				out = append(out, float32(t.SobelCos[i][k]))
			}
			for k := 0; k < dims.sobel; k++ {
				out = append(out, float32(t.SobelSin[i][k]))
			}
		}
	}
	return out, dims
}

// ComputeCost implements mosaic.CostAccelerator. It uploads the receiver
// and donor feature buffers, dispatches one compute pass covering the N x N
// cost grid with ceil(N/16) x ceil(N/16) workgroups of 16x16 threads, and
// reads the resulting cost matrix back.
func (a *WGPUAccelerator) ComputeCost(receiver, donor *mosaic.FeatureTensor, weights mosaic.Weights, out *mosaic.CostMatrix) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.initialized {
		return mosaic.ErrFallbackToCPU
	}

	// buildCostMatrixCPU normalizes weights before combining them; match that
	// here so a caller passing un-normalized weights (e.g. Pixel: 2, Mean: 1)
	// gets the same cost matrix regardless of which path served the request.
	weights = weights.Normalize()

	rExport := mosaic.ExportFeatures(receiver)
	dExport := mosaic.ExportFeatures(donor)

	rBuf, dims := packFeatures(rExport)
	dBuf, _ := packFeatures(dExport)

	n := uint32(out.N)
	cfg := costConfig{
		n:        n,
		pixelDim: uint32(dims.pixel),
		meanDim:  uint32(dims.mean),
		sobelLen: uint32(dims.sobel),
		wPixel:   float32(weights.Pixel),
		wMean:    float32(weights.Mean),
		wSobel:   float32(weights.Sobel),
	}

	configBuf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mosaic_cost_config",
		Size:  costConfigSize,
		Usage: gputypesUniformCopyDst(),
	})
	if err != nil {
		return fmt.Errorf("gpu: alloc config buffer: %w", err)
	}
	defer a.device.DestroyBuffer(configBuf)

	receiverBuf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mosaic_cost_receiver",
		Size:  uint64(len(rBuf)) * 4,
		Usage: gputypesStorageCopyDst(),
	})
	if err != nil {
		return fmt.Errorf("gpu: alloc receiver buffer: %w", err)
	}
	defer a.device.DestroyBuffer(receiverBuf)

	donorBuf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mosaic_cost_donor",
		Size:  uint64(len(dBuf)) * 4,
		Usage: gputypesStorageCopyDst(),
	})
	if err != nil {
		return fmt.Errorf("gpu: alloc donor buffer: %w", err)
	}
	defer a.device.DestroyBuffer(donorBuf)

	outBuf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mosaic_cost_out",
		Size:  uint64(n) * uint64(n) * 4,
		Usage: gputypesStorageCopySrc(),
	})
	if err != nil {
		return fmt.Errorf("gpu: alloc output buffer: %w", err)
	}
	defer a.device.DestroyBuffer(outBuf)

	a.queue.WriteBuffer(configBuf, 0, cfg.toBytes())
	a.queue.WriteBuffer(receiverBuf, 0, float32SliceBytes(rBuf))
	a.queue.WriteBuffer(donorBuf, 0, float32SliceBytes(dBuf))

	bg, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "mosaic_cost_bg",
		Layout: a.bgLayout,
		Entries: []hal.BindGroupEntry{
			{Binding: 0, Buffer: configBuf},
			{Binding: 1, Buffer: receiverBuf},
			{Binding: 2, Buffer: donorBuf},
			{Binding: 3, Buffer: outBuf},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: bind group: %w", err)
	}

	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "mosaic_cost_encoder"})
	if err != nil {
		return fmt.Errorf("gpu: command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("mosaic_cost"); err != nil {
		return fmt.Errorf("gpu: begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "mosaic_cost_pass"})
	pass.SetPipeline(a.pipeline)
	pass.SetBindGroup(0, bg, nil)
	wg := ceilDiv(n, workgroupSize)
	pass.Dispatch(wg, wg, 1)
	pass.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: end encoding: %w", err)
	}

	fence, err := a.device.CreateFence()
	if err != nil {
		return fmt.Errorf("gpu: create fence: %w", err)
	}
	if err := a.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("gpu: submit: %w", err)
	}
	ok, err := a.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("gpu: wait: %w", err)
	}
	if !ok {
		return fmt.Errorf("gpu: dispatch timed out after %s", fenceTimeout)
	}

	result, err := a.device.ReadBuffer(outBuf, 0, uint64(n)*uint64(n)*4)
	if err != nil {
		return fmt.Errorf("gpu: read back: %w", err)
	}
	for i := range out.Data {
		out.Data[i] = float32FromBytes(result[i*4 : i*4+4])
	}
	return nil
}
