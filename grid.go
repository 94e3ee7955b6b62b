package mosaic

import "fmt"

// TileGrid is a row-major grid of fixed-size square tiles cut from an
// Image. Unlike a general-purpose tiling structure, TileGrid never holds
// a partial edge tile: Partition fails with KindTileGeometry rather than
// truncating a remainder strip.
type TileGrid struct {
	Rows, Cols int
	TileSize   int
	Pix        []uint8 // source image pixels, 3 channels, Rows*TileSize by Cols*TileSize
	stride     int      // bytes per source row (Cols*TileSize*3)
}

// N reports the number of tiles in the grid.
func (g *TileGrid) N() int { return g.Rows * g.Cols }

// Partition cuts img into a grid of tileSize×tileSize square tiles. It
// fails with KindTileGeometry if tileSize is not positive or img's
// dimensions are not exact multiples of tileSize.
func Partition(img *Image, tileSize int) (*TileGrid, error) {
	if tileSize <= 0 {
		return nil, newError(KindTileGeometry, fmt.Sprintf("tile size %d must be positive", tileSize), nil)
	}
	if img.Width%tileSize != 0 || img.Height%tileSize != 0 {
		return nil, newError(KindTileGeometry, fmt.Sprintf(
			"image %dx%d is not an exact multiple of tile size %d", img.Width, img.Height, tileSize), nil)
	}
	return &TileGrid{
		Rows:     img.Height / tileSize,
		Cols:     img.Width / tileSize,
		TileSize: tileSize,
		Pix:      img.Pix,
		stride:   img.Width * 3,
	}, nil
}

// index converts a tile coordinate (r, c) into a linear tile index in
// row-major order, matching the ordering BuildFeatureTensor and
// BuildCostMatrix use for receiver/donor tile indices.
func (g *TileGrid) index(r, c int) int { return r*g.Cols + c }

// coord is the inverse of index.
func (g *TileGrid) coord(idx int) (r, c int) { return idx / g.Cols, idx % g.Cols }

// Tile copies the pixels of tile (r, c) into a freshly allocated
// TileSize*TileSize*3 byte slice in row-major order within the tile.
func (g *TileGrid) Tile(r, c int) []uint8 {
	ts := g.TileSize
	out := make([]uint8, ts*ts*3)
	baseY := r * ts
	baseX := c * ts * 3
	for row := 0; row < ts; row++ {
		srcOff := (baseY+row)*g.stride + baseX
		dstOff := row * ts * 3
		copy(out[dstOff:dstOff+ts*3], g.Pix[srcOff:srcOff+ts*3])
	}
	return out
}

// TileAt is equivalent to Tile(g.coord(idx)).
func (g *TileGrid) TileAt(idx int) []uint8 {
	r, c := g.coord(idx)
	return g.Tile(r, c)
}

// ForEach invokes fn once per tile in row-major order with its linear
// index and pixel data.
func (g *TileGrid) ForEach(fn func(idx int, tile []uint8)) {
	for idx := 0; idx < g.N(); idx++ {
		fn(idx, g.TileAt(idx))
	}
}

// Reassemble builds the output image by placing, at each receiver tile
// position, the donor tile assignment.ColInd maps it to. assignment must be
// a bijection over [0, receiver.N()); Reassemble fails with
// KindBadPermutation if it is not, or with KindTileGeometry if the two
// grids have different shapes.
func Reassemble(receiver, donor *TileGrid, assignment *Assignment) (*Image, error) {
	if receiver.Rows != donor.Rows || receiver.Cols != donor.Cols || receiver.TileSize != donor.TileSize {
		return nil, newError(KindTileGeometry, "receiver and donor grids have different shapes", nil)
	}
	n := receiver.N()
	if len(assignment.ColInd) != n {
		return nil, newError(KindBadPermutation, fmt.Sprintf(
			"assignment has %d entries, want %d", len(assignment.ColInd), n), nil)
	}
	seen := make([]bool, n)
	for _, j := range assignment.ColInd {
		if j < 0 || j >= n {
			return nil, newError(KindBadPermutation, fmt.Sprintf("assignment index %d out of range [0,%d)", j, n), nil)
		}
		if seen[j] {
			return nil, newError(KindBadPermutation, fmt.Sprintf("donor tile %d assigned more than once", j), nil)
		}
		seen[j] = true
	}

	ts := receiver.TileSize
	out := NewImage(receiver.Cols*ts, receiver.Rows*ts)
	for i := 0; i < n; i++ {
		donorTile := donor.TileAt(assignment.ColInd[i])
		r, c := receiver.coord(i)
		baseY := r * ts
		baseX := c * ts * 3
		dstStride := out.Width * 3
		for row := 0; row < ts; row++ {
			dstOff := (baseY+row)*dstStride + baseX
			srcOff := row * ts * 3
			copy(out.Pix[dstOff:dstOff+ts*3], donorTile[srcOff:srcOff+ts*3])
		}
	}
	return out, nil
}
