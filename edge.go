package mosaic

import "math"

// sobelWeights blends magnitude against direction in the edge similarity
// score. The reference fixture encodes a Sobel field as a 3-channel
// (magnitude, hue, magnitude) image compared with per-channel weights
// (0.25, 0.5, 0.25) — magnitude appears in two channels and hue in one, so
// the effective budget is 0.5 magnitude / 0.5 hue. The cos/sin double-angle
// encoding here replaces the single wrapping hue channel (which breaks down
// near +/-pi) with two channels, so that 0.5 hue budget splits evenly
// between them.
var sobelWeights = [3]float64{0.5, 0.25, 0.25}

// tileGray converts a tile's RGB pixels to the BT.601 luma (Y) channel,
// broadcast into a tileSize×tileSize grayscale plane.
func tileGray(tile []uint8, tileSize int) []float64 {
	out := make([]float64, tileSize*tileSize)
	for i := 0; i < tileSize*tileSize; i++ {
		r, g, b := tile[i*3], tile[i*3+1], tile[i*3+2]
		y, _, _ := rgbToYUV(r, g, b)
		out[i] = y
	}
	return out
}

// sobelField runs the 3x3 Sobel operator over a grayscale tile and returns,
// per pixel, the gradient magnitude normalized to the tile's own maximum
// (per-tile normalization, so a flat tile yields all-zero magnitudes
// instead of dividing by zero) and the gradient direction as (cos, sin) of
// 2*theta so that opposite-signed edges of the same orientation agree.
// Border pixels use replicated edge padding.
func sobelField(gray []float64, tileSize int) (mag, cosH, sinH []float64) {
	n := tileSize * tileSize
	mag = make([]float64, n)
	cosH = make([]float64, n)
	sinH = make([]float64, n)

	at := func(x, y int) float64 {
		if x < 0 {
			x = 0
		}
		if x >= tileSize {
			x = tileSize - 1
		}
		if y < 0 {
			y = 0
		}
		if y >= tileSize {
			y = tileSize - 1
		}
		return gray[y*tileSize+x]
	}

	maxMag := 0.0
	gxv := make([]float64, n)
	gyv := make([]float64, n)
	for y := 0; y < tileSize; y++ {
		for x := 0; x < tileSize; x++ {
			gx := (at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x-1, y) + at(x-1, y+1))
			gy := (at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1))
			idx := y*tileSize + x
			gxv[idx], gyv[idx] = gx, gy
			m := math.Hypot(gx, gy)
			mag[idx] = m
			if m > maxMag {
				maxMag = m
			}
			theta := math.Atan2(gy, gx)
			cosH[idx] = math.Cos(2 * theta)
			sinH[idx] = math.Sin(2 * theta)
		}
	}

	if maxMag > 0 {
		for i := range mag {
			mag[i] /= maxMag
		}
	}
	return mag, cosH, sinH
}

// sobelFields is the bundled per-tile edge feature: normalized magnitude
// plus double-angle hue encoding, as produced by sobelField.
type sobelFields struct {
	mag, cosH, sinH []float64
}

func buildSobelFields(tile []uint8, tileSize int) sobelFields {
	gray := tileGray(tile, tileSize)
	m, ch, sh := sobelField(gray, tileSize)
	return sobelFields{mag: m, cosH: ch, sinH: sh}
}

// sSobel computes the weighted edge-structure similarity between two
// precomputed per-tile Sobel fields, in [0,1]. The three components
// (magnitude, cos-hue, sin-hue) are averaged per pixel then blended by
// sobelWeights.
func sSobel(a, b sobelFields) float64 {
	n := len(a.mag)
	if n == 0 {
		return 1
	}
	var magDiff, cosDiff, sinDiff float64
	for i := 0; i < n; i++ {
		magDiff += math.Abs(a.mag[i] - b.mag[i])
		cosDiff += math.Abs(a.cosH[i]-b.cosH[i]) / 2
		sinDiff += math.Abs(a.sinH[i]-b.sinH[i]) / 2
	}
	magDiff /= float64(n)
	cosDiff /= float64(n)
	sinDiff /= float64(n)

	dist := sobelWeights[0]*magDiff + sobelWeights[1]*cosDiff + sobelWeights[2]*sinDiff
	return 1 - clampF(dist, 0, 1)
}
