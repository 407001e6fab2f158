// Package raster provides the in-memory image representation used throughout
// the panorama-to-pointcloud pipeline. A Raster stores samples as a flat
// row-major byte slice with an explicit channel count, so grayscale and color
// panoramas share one type and one indexing scheme.
package raster

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// MinDimension is the smallest usable width or height. The equirectangular
// angle mapping divides by (height-1) and (width-1), so anything smaller
// is degenerate and must be rejected before processing.
const MinDimension = 2

// Raster is a 2D sample grid in row-major order with Channels samples per
// pixel. Channels is 1 for grayscale panoramas and 3 or 4 for color ones.
type Raster struct {
	// Pix holds the samples row by row, Channels bytes per pixel.
	Pix []uint8

	// Width and Height are the raster dimensions in pixels.
	Width  int
	Height int

	// Channels is the number of samples per pixel.
	Channels int
}

// NewGray creates an all-black single-channel raster.
func NewGray(width, height int) *Raster {
	return &Raster{
		Pix:      make([]uint8, width*height),
		Width:    width,
		Height:   height,
		Channels: 1,
	}
}

// New creates an all-zero raster with the given channel count.
func New(width, height, channels int) *Raster {
	return &Raster{
		Pix:      make([]uint8, width*height*channels),
		Width:    width,
		Height:   height,
		Channels: channels,
	}
}

// At returns the sample at the given row, column and channel.
func (r *Raster) At(row, col, ch int) uint8 {
	return r.Pix[(row*r.Width+col)*r.Channels+ch]
}

// Set stores the sample at the given row, column and channel.
func (r *Raster) Set(row, col, ch int, v uint8) {
	r.Pix[(row*r.Width+col)*r.Channels+ch] = v
}

// Gray returns the first-channel intensity at the given row and column.
// For single-channel rasters this is the pixel value.
func (r *Raster) Gray(row, col int) uint8 {
	return r.Pix[(row*r.Width+col)*r.Channels]
}

// Validate checks that the raster has a usable shape for the spherical
// angle mapping.
func (r *Raster) Validate() error {
	if r.Width < MinDimension || r.Height < MinDimension {
		return fmt.Errorf("degenerate image: %dx%d (both dimensions must be at least %d)",
			r.Width, r.Height, MinDimension)
	}
	if r.Channels < 1 {
		return fmt.Errorf("raster has %d channels, need at least 1", r.Channels)
	}
	if len(r.Pix) != r.Width*r.Height*r.Channels {
		return fmt.Errorf("pixel buffer length %d does not match %dx%dx%d",
			len(r.Pix), r.Width, r.Height, r.Channels)
	}
	return nil
}

// FromImage converts a decoded image into a single-channel grayscale raster
// using the standard luma weights.
func FromImage(img image.Image) *Raster {
	bounds := img.Bounds()
	out := NewGray(bounds.Dx(), bounds.Dy())
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			g := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			out.Pix[y*out.Width+x] = g.Y
		}
	}
	return out
}

// FromImageColor converts a decoded image into a 3-channel RGB raster.
func FromImageColor(img image.Image) *Raster {
	bounds := img.Bounds()
	out := New(bounds.Dx(), bounds.Dy(), 3)
	rgba := imaging.Clone(img)
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			c := rgba.NRGBAAt(x, y)
			idx := (y*out.Width + x) * 3
			out.Pix[idx] = c.R
			out.Pix[idx+1] = c.G
			out.Pix[idx+2] = c.B
		}
	}
	return out
}

// ToImage converts the raster back into a standard image. Single-channel
// rasters become *image.Gray, everything else *image.NRGBA with full alpha.
func (r *Raster) ToImage() image.Image {
	if r.Channels == 1 {
		img := image.NewGray(image.Rect(0, 0, r.Width, r.Height))
		copy(img.Pix, r.Pix)
		return img
	}
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			var c color.NRGBA
			c.R = r.At(y, x, 0)
			c.G, c.B = c.R, c.R
			if r.Channels >= 3 {
				c.G = r.At(y, x, 1)
				c.B = r.At(y, x, 2)
			}
			c.A = 255
			if r.Channels >= 4 {
				c.A = r.At(y, x, 3)
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// LoadGrayscale opens an image file, converts it to grayscale and, when
// either dimension exceeds maxSize, downsamples it with Lanczos resampling
// while preserving the aspect ratio.
func LoadGrayscale(path string, maxSize int) (*Raster, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	img = resizeToFit(img, maxSize)
	return FromImage(img), nil
}

// resizeToFit downsamples img so that its larger dimension equals maxSize,
// keeping the aspect ratio. Images already within bounds pass through.
func resizeToFit(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	largest := w
	if h > largest {
		largest = h
	}
	if maxSize <= 0 || largest <= maxSize {
		return img
	}
	ratio := float64(maxSize) / float64(largest)
	newW := int(float64(w) * ratio)
	newH := int(float64(h) * ratio)
	return imaging.Resize(img, newW, newH, imaging.Lanczos)
}

// Save writes the raster to disk; the format is chosen from the file
// extension (png, jpg, ...).
func (r *Raster) Save(path string) error {
	if err := imaging.Save(r.ToImage(), path); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	return nil
}
