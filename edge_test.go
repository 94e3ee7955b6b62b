package mosaic

import "testing"

func flatTile(tileSize int, r, g, b uint8) []uint8 {
	tile := make([]uint8, tileSize*tileSize*3)
	for i := 0; i < len(tile); i += 3 {
		tile[i], tile[i+1], tile[i+2] = r, g, b
	}
	return tile
}

func TestSobelFlatTileHasZeroMagnitude(t *testing.T) {
	tile := flatTile(4, 50, 50, 50)
	gray := tileGray(tile, 4)
	mag, _, _ := sobelField(gray, 4)
	for i, m := range mag {
		if m != 0 {
			t.Errorf("flat tile magnitude[%d] = %v, want 0", i, m)
		}
	}
}

func TestSSobelIdenticalTilesIsOne(t *testing.T) {
	tile := make([]uint8, 4*4*3)
	for i := range tile {
		tile[i] = uint8((i * 37) % 256)
	}
	f := buildSobelFields(tile, 4)
	if got := sSobel(f, f); got < 0.999 {
		t.Errorf("sSobel(f, f) = %v, want ~1", got)
	}
}

func TestSSobelBounded(t *testing.T) {
	a := flatTile(4, 0, 0, 0)
	b := make([]uint8, 4*4*3)
	for i := range b {
		b[i] = uint8((i * 53) % 256)
	}
	fa := buildSobelFields(a, 4)
	fb := buildSobelFields(b, 4)
	got := sSobel(fa, fb)
	if got < 0 || got > 1 {
		t.Errorf("sSobel out of [0,1]: %v", got)
	}
}
