// Package dither reduces a grayscale panorama to a binary mask using
// Floyd-Steinberg error diffusion. The mask decides which pixels survive
// into the point cloud, so the diffusion must stay strictly sequential:
// every pixel's quantization error feeds the not-yet-visited neighbors.
package dither

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"pano2points/pkg/raster"
)

// Threshold is the binarization cutoff: values strictly above it become
// white (foreground), everything else black.
const Threshold = 127

// Error diffusion weights for the four unvisited neighbors. Out-of-bounds
// neighbors are skipped without renormalizing the remaining weights.
const (
	weightRight      = 7.0 / 16.0
	weightBelowLeft  = 3.0 / 16.0
	weightBelow      = 5.0 / 16.0
	weightBelowRight = 1.0 / 16.0
)

// Mask is a binary image produced by dithering. True marks a foreground
// (white) pixel.
type Mask struct {
	// Bits holds the mask row-major, one bool per pixel.
	Bits []bool

	// Width and Height match the source image dimensions.
	Width  int
	Height int
}

// NewMask creates an all-false mask.
func NewMask(width, height int) *Mask {
	return &Mask{
		Bits:   make([]bool, width*height),
		Width:  width,
		Height: height,
	}
}

// At reports whether the pixel at the given row and column is foreground.
func (m *Mask) At(row, col int) bool {
	return m.Bits[row*m.Width+col]
}

// Set marks the pixel at the given row and column.
func (m *Mask) Set(row, col int, v bool) {
	m.Bits[row*m.Width+col] = v
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Apply runs Floyd-Steinberg dithering over a single-channel grayscale
// raster and returns the resulting mask.
//
// Pixels are visited in row-major order. Each pixel is binarized at
// Threshold and its quantization error is distributed to the in-bounds
// neighbors to the right and in the row below. The working buffer is
// float64 so accumulated error is not truncated between pixels.
func Apply(img *raster.Raster) (*Mask, error) {
	if img.Channels != 1 {
		return nil, fmt.Errorf("dithering requires a grayscale image, got %d channels", img.Channels)
	}
	if img.Width < 1 || img.Height < 1 {
		return nil, fmt.Errorf("cannot dither empty %dx%d image", img.Width, img.Height)
	}

	w, h := img.Width, img.Height
	buf := make([]float64, w*h)
	for i, v := range img.Pix {
		buf[i] = float64(v)
	}

	mask := NewMask(w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			old := buf[idx]

			var quantized float64
			if old > Threshold {
				quantized = 255
				mask.Bits[idx] = true
			}
			buf[idx] = quantized
			err := old - quantized

			if x+1 < w {
				buf[idx+1] += err * weightRight
			}
			if y+1 < h {
				below := idx + w
				if x > 0 {
					buf[below-1] += err * weightBelowLeft
				}
				buf[below] += err * weightBelow
				if x+1 < w {
					buf[below+1] += err * weightBelowRight
				}
			}
		}
	}

	return mask, nil
}

// Image renders the mask as an 8-bit grayscale image: foreground pixels
// become 255, background 0.
func (m *Mask) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, b := range m.Bits {
		if b {
			img.Pix[i] = 255
		}
	}
	return img
}

// SavePreview writes the mask as an image file so the dithering result can
// be inspected before committing to an engraving run.
func (m *Mask) SavePreview(path string) error {
	if err := imaging.Save(m.Image(), path); err != nil {
		return fmt.Errorf("failed to save dither preview %s: %w", path, err)
	}
	return nil
}
