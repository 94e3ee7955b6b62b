package mosaic

// FeatureTensor holds every per-tile feature computed for one TileGrid, in
// tile-index order. It is a closed set of four kinds by design (see
// Weights): adding a fifth feature means extending this struct, not
// registering a new implementation, so the cost-fusion formula in cost.go
// stays a fixed, auditable sum.
type FeatureTensor struct {
	tileSize int
	tiles    [][]uint8 // raw tile pixels, always kept (Pixel and Mean read them, N counts them)
	sobel    []sobelFields
	deep     [][]float64 // L2-normalized deep embeddings, only when Deep weight > 0
}

// N reports the number of tiles the tensor was built from.
func (t *FeatureTensor) N() int { return len(t.tiles) }

// BuildFeatureTensor computes every feature enabled by weights for each
// tile in grid. Mean color is derived from the raw tile on demand (it is
// cheap enough not to warrant its own cache), so only Pixel, Sobel, and
// Deep have dedicated storage.
//
// If weights.Deep > 0 and the process-wide embedder is unavailable,
// BuildFeatureTensor fails with KindEmbedderUnavailable rather than
// silently zeroing the deep feature's contribution.
func BuildFeatureTensor(grid *TileGrid, weights Weights) (*FeatureTensor, error) {
	enabled := weights.enabled()
	n := grid.N()

	var emb Embedder
	if enabled&AccelDeep != 0 {
		emb = currentEmbedder()
		if !emb.Available() {
			return nil, newError(KindEmbedderUnavailable, "weights.Deep > 0 but no embedder is available", nil)
		}
	}

	t := &FeatureTensor{
		tileSize: grid.TileSize,
		tiles:    make([][]uint8, n),
	}
	if enabled&AccelSobel != 0 {
		t.sobel = make([]sobelFields, n)
	}
	if enabled&AccelDeep != 0 {
		t.deep = make([][]float64, n)
	}

	var buildErr error
	grid.ForEach(func(idx int, tile []uint8) {
		if buildErr != nil {
			return
		}
		t.tiles[idx] = tile
		if t.sobel != nil {
			t.sobel[idx] = buildSobelFields(tile, grid.TileSize)
		}
		if t.deep != nil {
			v, err := emb.Embed(tile, grid.TileSize)
			if err != nil {
				buildErr = err
				return
			}
			t.deep[idx] = l2Normalize(v)
		}
	})
	if buildErr != nil {
		return nil, buildErr
	}
	return t, nil
}
