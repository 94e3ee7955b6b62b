package gpu

import (
	"context"
	"math"
	"testing"

	"github.com/gogpu/mosaic"
)

func checkerboardImage(tileSize, rows, cols int, r1, g1, b1, r2, g2, b2 uint8) *mosaic.Image {
	img := mosaic.NewImage(cols*tileSize, rows*tileSize)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			tr, tc := y/tileSize, x/tileSize
			if (tr+tc)%2 == 0 {
				img.Set(x, y, r1, g1, b1)
			} else {
				img.Set(x, y, r2, g2, b2)
			}
		}
	}
	return img
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// simulateKernel mirrors cost.wgsl's main() entry point in Go, operating on
// the exact buffers ComputeCost would upload. It exists so the kernel's
// math can be checked against cost.go's CPU formula without a real GPU
// device: WGPUAccelerator.ComputeCost itself can't run in a unit test
// without an actual wgpu backend, but the packing and per-feature fusion
// math it depends on can be verified directly.
func simulateKernel(rBuf, dBuf []float32, dims tileDims, w mosaic.Weights, i, j int) float32 {
	tileLen := dims.total()
	base := func(idx int) int { return idx * tileLen }
	meanAbsDiff := func(a, b, n int) float32 {
		if n == 0 {
			return 0
		}
		var acc float32
		for k := 0; k < n; k++ {
			d := rBuf[a+k] - dBuf[b+k]
			if d < 0 {
				d = -d
			}
			acc += d
		}
		return acc / float32(n)
	}

	offset := 0
	var similarity float32

	if dims.pixel > 0 {
		d := meanAbsDiff(base(i)+offset, base(j)+offset, dims.pixel)
		similarity += float32(w.Pixel) * (1 - clamp01(d))
		offset += dims.pixel
	}
	if dims.mean > 0 {
		d := meanAbsDiff(base(i)+offset, base(j)+offset, dims.mean)
		similarity += float32(w.Mean) * (1 - clamp01(d))
		offset += dims.mean
	}
	if dims.sobel > 0 {
		magD := meanAbsDiff(base(i)+offset, base(j)+offset, dims.sobel)
		offset += dims.sobel
		cosD := meanAbsDiff(base(i)+offset, base(j)+offset, dims.sobel) / 2
		offset += dims.sobel
		sinD := meanAbsDiff(base(i)+offset, base(j)+offset, dims.sobel) / 2
		offset += dims.sobel

		sobelDist := 0.5*magD + 0.25*cosD + 0.25*sinD
		similarity += float32(w.Sobel) * (1 - clamp01(sobelDist))
	}

	return 1 - similarity
}

func TestPackFeaturesDimensions(t *testing.T) {
	img := checkerboardImage(4, 2, 2, 200, 50, 10, 30, 180, 90)
	grid, err := mosaic.Partition(img, 4)
	if err != nil {
		t.Fatalf("Partition() = %v", err)
	}
	ft, err := mosaic.BuildFeatureTensor(grid, mosaic.Weights{Pixel: 1, Mean: 1, Sobel: 1})
	if err != nil {
		t.Fatalf("BuildFeatureTensor() = %v", err)
	}
	buf, dims := packFeatures(mosaic.ExportFeatures(ft))

	if want := 4 * 4 * 3; dims.pixel != want {
		t.Errorf("dims.pixel = %d, want %d", dims.pixel, want)
	}
	if dims.mean != 3 {
		t.Errorf("dims.mean = %d, want 3", dims.mean)
	}
	if want := 4 * 4; dims.sobel != want {
		t.Errorf("dims.sobel = %d, want %d", dims.sobel, want)
	}
	if want := ft.N() * dims.total(); len(buf) != want {
		t.Errorf("len(buf) = %d, want %d", len(buf), want)
	}

	exported := mosaic.ExportFeatures(ft)
	for _, v := range exported.Mean[0] {
		if v < 0 || v > 1 {
			t.Errorf("exported mean component %v out of [0,1], want normalized like Pixel", v)
		}
	}
}

func TestPackFeaturesSkipsUnbuiltSobel(t *testing.T) {
	img := checkerboardImage(4, 2, 2, 10, 20, 30, 40, 50, 60)
	grid, err := mosaic.Partition(img, 4)
	if err != nil {
		t.Fatalf("Partition() = %v", err)
	}
	// Weights.Sobel is zero, so FeatureTensor never allocates sobel fields
	// and ExportedFeatures.SobelMag comes back empty.
	ft, err := mosaic.BuildFeatureTensor(grid, mosaic.Weights{Pixel: 1, Mean: 1})
	if err != nil {
		t.Fatalf("BuildFeatureTensor() = %v", err)
	}
	buf, dims := packFeatures(mosaic.ExportFeatures(ft))
	if dims.sobel != 0 {
		t.Errorf("dims.sobel = %d, want 0 (Sobel weight was zero)", dims.sobel)
	}
	if want := ft.N() * dims.total(); len(buf) != want {
		t.Errorf("len(buf) = %d, want %d", len(buf), want)
	}
}

// TestKernelMathMatchesCPUCostFormula checks simulateKernel (the kernel's
// math, run in Go against the same packed buffers ComputeCost uploads)
// against mosaic.BuildCostMatrix's CPU path on the same feature tensors, to
// within the float32 tolerance a real GPU dispatch would also incur. The
// GPU path compares Pixel in raw RGB (ExportFeatures never applies YUV), and
// mosaic.BuildCostMatrix never hands a useYUV request to an accelerator, so
// the comparison is made against the CPU path with useYUV=false.
func TestKernelMathMatchesCPUCostFormula(t *testing.T) {
	receiver := checkerboardImage(4, 3, 3, 200, 50, 10, 30, 180, 90)
	donor := checkerboardImage(4, 3, 3, 90, 90, 90, 10, 10, 200)

	weights := mosaic.Weights{Pixel: 0.4, Mean: 0.3, Sobel: 0.3}

	rGrid, err := mosaic.Partition(receiver, 4)
	if err != nil {
		t.Fatalf("Partition(receiver) = %v", err)
	}
	dGrid, err := mosaic.Partition(donor, 4)
	if err != nil {
		t.Fatalf("Partition(donor) = %v", err)
	}

	rFeat, err := mosaic.BuildFeatureTensor(rGrid, weights)
	if err != nil {
		t.Fatalf("BuildFeatureTensor(receiver) = %v", err)
	}
	dFeat, err := mosaic.BuildFeatureTensor(dGrid, weights)
	if err != nil {
		t.Fatalf("BuildFeatureTensor(donor) = %v", err)
	}

	wantMatrix, err := mosaic.BuildCostMatrix(context.Background(), rFeat, dFeat, weights, false, nil)
	if err != nil {
		t.Fatalf("BuildCostMatrix() = %v", err)
	}

	rBuf, dims := packFeatures(mosaic.ExportFeatures(rFeat))
	dBuf, _ := packFeatures(mosaic.ExportFeatures(dFeat))

	n := rFeat.N()
	const tolerance = 1e-4
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			got := simulateKernel(rBuf, dBuf, dims, weights, i, j)
			want := wantMatrix.At(i, j)
			if diff := math.Abs(float64(got - want)); diff > tolerance {
				t.Errorf("cost(%d,%d) = %v, want %v (CPU), diff %v exceeds %v",
					i, j, got, want, diff, tolerance)
			}
		}
	}
}
