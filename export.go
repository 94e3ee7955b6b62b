package mosaic

// ExportedFeatures is a read-only view over a FeatureTensor's per-tile
// feature data, exposed so a CostAccelerator in a separate package (e.g.
// gpu) can pack it into device buffers without FeatureTensor leaking its
// internal layout as part of the public API.
type ExportedFeatures struct {
	N        int
	Pixel    [][]float64 // always present; derived from raw tiles on export
	Mean     [][]float64
	SobelMag [][]float64
	SobelCos [][]float64
	SobelSin [][]float64
}

// ExportFeatures builds an ExportedFeatures view of t. Pixel and Mean are
// always derived (they are cheap to recompute from the cached raw tiles);
// Sobel fields are empty slices when t was built without AccelSobel.
func ExportFeatures(t *FeatureTensor) *ExportedFeatures {
	n := t.N()
	out := &ExportedFeatures{N: n}
	if n == 0 {
		return out
	}

	out.Pixel = make([][]float64, n)
	out.Mean = make([][]float64, n)
	for i, tile := range t.tiles {
		out.Pixel[i] = tileToFloats(tile)
		r, g, b := tileMeanColor(tile)
		// Normalized to [0,1] like Pixel, so a GPU consumer can diff both
		// segments with the same unweighted mean-abs-diff formula.
		out.Mean[i] = []float64{r / 255, g / 255, b / 255}
	}

	if t.sobel != nil {
		out.SobelMag = make([][]float64, n)
		out.SobelCos = make([][]float64, n)
		out.SobelSin = make([][]float64, n)
		for i, s := range t.sobel {
			out.SobelMag[i] = s.mag
			out.SobelCos[i] = s.cosH
			out.SobelSin[i] = s.sinH
		}
	}
	return out
}

func tileToFloats(tile []uint8) []float64 {
	out := make([]float64, len(tile))
	for i, v := range tile {
		out[i] = float64(v) / 255
	}
	return out
}
