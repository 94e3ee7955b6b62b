package mosaic

import "testing"

func solidImage(w, h int, r, g, b uint8) *Image {
	img := NewImage(w, h)
	for i := 0; i < len(img.Pix); i += 3 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2] = r, g, b
	}
	return img
}

func TestPartitionExactMultiple(t *testing.T) {
	img := solidImage(8, 4, 1, 2, 3)
	grid, err := Partition(img, 2)
	if err != nil {
		t.Fatalf("Partition() = %v", err)
	}
	if grid.Rows != 2 || grid.Cols != 4 {
		t.Errorf("grid shape = %dx%d, want 2x4", grid.Rows, grid.Cols)
	}
	if grid.N() != 8 {
		t.Errorf("N() = %d, want 8", grid.N())
	}
}

func TestPartitionRejectsRemainder(t *testing.T) {
	img := solidImage(10, 10, 0, 0, 0)
	if _, err := Partition(img, 3); err == nil {
		t.Fatal("expected TileGeometry error for non-exact tile size")
	} else if !isKind(err, KindTileGeometry) {
		t.Errorf("expected KindTileGeometry, got %v", err)
	}
}

func TestPartitionRejectsNonPositiveTileSize(t *testing.T) {
	img := solidImage(4, 4, 0, 0, 0)
	if _, err := Partition(img, 0); !isKind(err, KindTileGeometry) {
		t.Errorf("expected KindTileGeometry for tile size 0, got %v", err)
	}
}

func TestTileGridTileExtraction(t *testing.T) {
	img := NewImage(4, 4)
	// Give each tile a distinct color so Tile() extraction is verifiable.
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			tr, tc := y/2, x/2
			img.Set(x, y, uint8(tr*10+1), uint8(tc*10+1), 5)
		}
	}
	grid, err := Partition(img, 2)
	if err != nil {
		t.Fatalf("Partition() = %v", err)
	}

	tile := grid.Tile(1, 0) // bottom-left tile
	for i := 0; i < len(tile); i += 3 {
		if tile[i] != 11 || tile[i+1] != 1 {
			t.Errorf("tile(1,0) pixel %d = (%d,%d,_), want (11,1,_)", i/3, tile[i], tile[i+1])
		}
	}
}

func TestReassembleIdentityPermutation(t *testing.T) {
	receiver := solidImage(4, 4, 9, 9, 9)
	donor := solidImage(4, 4, 1, 2, 3)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			donor.Set(x, y, uint8(x), uint8(y), 0)
		}
	}

	rg, _ := Partition(receiver, 2)
	dg, _ := Partition(donor, 2)

	n := rg.N()
	identity := make([]int, n)
	for i := range identity {
		identity[i] = i
	}

	out, err := Reassemble(rg, dg, &Assignment{ColInd: identity})
	if err != nil {
		t.Fatalf("Reassemble() = %v", err)
	}
	if out.Width != 4 || out.Height != 4 {
		t.Fatalf("output dims = %dx%d, want 4x4", out.Width, out.Height)
	}
	for idx := 0; idx < n; idx++ {
		r, c := rg.coord(idx)
		want := dg.Tile(r, c)
		got := (&TileGrid{Rows: rg.Rows, Cols: rg.Cols, TileSize: rg.TileSize, Pix: out.Pix, stride: out.Width * 3}).Tile(r, c)
		for i := range want {
			if want[i] != got[i] {
				t.Fatalf("tile (%d,%d) byte %d = %d, want %d", r, c, i, got[i], want[i])
				break
			}
		}
	}
}

func TestReassembleRejectsNonBijectivePermutation(t *testing.T) {
	img := solidImage(4, 4, 0, 0, 0)
	rg, _ := Partition(img, 2)
	dg, _ := Partition(img, 2)

	bad := &Assignment{ColInd: []int{0, 0, 1, 2}}
	if _, err := Reassemble(rg, dg, bad); !isKind(err, KindBadPermutation) {
		t.Errorf("expected KindBadPermutation for repeated index, got %v", err)
	}
}

func TestReassembleRejectsWrongLength(t *testing.T) {
	img := solidImage(4, 4, 0, 0, 0)
	rg, _ := Partition(img, 2)
	dg, _ := Partition(img, 2)

	bad := &Assignment{ColInd: []int{0, 1, 2}}
	if _, err := Reassemble(rg, dg, bad); !isKind(err, KindBadPermutation) {
		t.Errorf("expected KindBadPermutation for wrong length, got %v", err)
	}
}

func isKind(err error, k Kind) bool {
	var me *Error
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		me = e
	} else {
		return false
	}
	return me.Kind == k
}
