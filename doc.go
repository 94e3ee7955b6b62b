// Package mosaic reconstructs a receiver image from tiles of a donor image.
//
// # Overview
//
// Both the receiver and donor image are partitioned into a uniform grid of
// square tiles ([Partition]). Each receiver tile is compared against every
// donor tile under a weighted blend of perceptual features (raw pixel
// difference, mean color, Sobel edge structure, and an optional deep-CNN
// embedding) to build a dense N×N cost matrix ([BuildCostMatrix]). A
// minimum-cost perfect matching ([Solve]) assigns each receiver tile to a
// distinct donor tile, and the donor tiles are reassembled into the output
// image at the receiver's positions ([Reassemble]).
//
// # Quick start
//
//	r, _ := mosaic.LoadImage("receiver.png")
//	d, _ := mosaic.LoadImage("donor.png")
//
//	orch := mosaic.NewOrchestrator()
//	out, assignment, err := orch.Run(context.Background(), mosaic.Job{
//		Receiver: r,
//		Donor:    d,
//		TileSize: 16,
//		Weights:  mosaic.Weights{Pixel: 1},
//	})
//
// # GPU acceleration
//
// Cost-matrix construction runs on the CPU by default. A GPU
// [CostAccelerator] can be registered (see the gpu subpackage, built on
// github.com/gogpu/wgpu) to offload the dense pairwise comparison to a
// compute shader; the orchestrator falls back to the CPU path transparently
// whenever no accelerator is registered or it cannot serve the enabled
// feature set.
//
// # Architecture
//
//   - Image & grid: [Image], [TileGrid], [Partition], [Reassemble]
//   - Features: [BuildFeatureTensor], color and edge similarity functions
//   - Cost matrix: [CostMatrix], [BuildCostMatrix], [CostAccelerator]
//   - Assignment: [Solve]
//   - Orchestration: [Orchestrator], [Job]
package mosaic
