package mosaic

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

// Image is a row-major, 3-channel (RGB) uint8 pixel buffer. Pix has length
// Width*Height*3; the pixel at (x, y) occupies Pix[(y*Width+x)*3 : +3].
type Image struct {
	Width, Height int
	Pix           []uint8
}

// NewImage allocates a black Image of the given dimensions.
func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// At returns the RGB triple at (x, y).
func (img *Image) At(x, y int) (r, g, b uint8) {
	i := (y*img.Width + x) * 3
	return img.Pix[i], img.Pix[i+1], img.Pix[i+2]
}

// Set writes the RGB triple at (x, y).
func (img *Image) Set(x, y int, r, g, b uint8) {
	i := (y*img.Width + x) * 3
	img.Pix[i], img.Pix[i+1], img.Pix[i+2] = r, g, b
}

// FromImage converts a standard library image.Image into an *Image,
// dropping any alpha channel.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := NewImage(w, h)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := src.At(x, y).RGBA()
			out.Pix[i] = uint8(r >> 8)
			out.Pix[i+1] = uint8(g >> 8)
			out.Pix[i+2] = uint8(bl >> 8)
			i += 3
		}
	}
	return out
}

// ToImage converts img to a standard library *image.RGBA with full opacity,
// suitable for encoding with image/png or image/jpeg.
func (img *Image) ToImage() *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			r, g, b := img.At(x, y)
			dst.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 0xff})
		}
	}
	return dst
}

// LoadImage reads a PNG or JPEG file and converts it to an *Image.
func LoadImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mosaic: load image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("mosaic: decode image %s: %w", path, err)
	}
	return FromImage(src), nil
}

// Save encodes img as PNG or JPEG, chosen by the file extension of path.
// Unrecognized extensions default to PNG.
func (img *Image) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("mosaic: save image: %w", err)
	}
	defer f.Close()

	rgba := img.ToImage()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(f, rgba, &jpeg.Options{Quality: 95})
	default:
		return png.Encode(f, rgba)
	}
}
