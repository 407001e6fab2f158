package dither

import (
	"testing"

	"pano2points/pkg/raster"
)

// grayFromRows builds a single-channel raster from explicit row values.
func grayFromRows(rows [][]uint8) *raster.Raster {
	h := len(rows)
	w := len(rows[0])
	img := raster.NewGray(w, h)
	for y, row := range rows {
		for x, v := range row {
			img.Pix[y*w+x] = v
		}
	}
	return img
}

// TestDitherWorkedExample verifies the error diffusion pixel by pixel on a
// small image where the expected mask can be traced by hand.
//
// Pixel (0,0) has value 10, binarizes to black and pushes error 10 onto its
// right and lower neighbors with weights 7/16, 5/16 and 1/16 (the below-left
// neighbor is out of bounds and discarded). None of the propagated fractions
// are large enough to flip any pixel across the 127 threshold, so the mask
// ends up matching the plain thresholding of the original values.
func TestDitherWorkedExample(t *testing.T) {
	img := grayFromRows([][]uint8{
		{10, 250, 10, 250},
		{250, 10, 250, 10},
	})

	mask, err := Apply(img)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	expected := [][]bool{
		{false, true, false, true},
		{true, false, true, false},
	}
	for y := range expected {
		for x := range expected[y] {
			if mask.At(y, x) != expected[y][x] {
				t.Errorf("mask[%d][%d] = %v, expected %v", y, x, mask.At(y, x), expected[y][x])
			}
		}
	}
}

// TestDitherIdempotentOnBinary verifies that dithering an already binary
// image is a no-op: every pixel binarizes to itself with zero error, so no
// diffusion happens.
func TestDitherIdempotentOnBinary(t *testing.T) {
	img := grayFromRows([][]uint8{
		{0, 255, 0, 255, 0},
		{255, 0, 255, 0, 255},
		{0, 0, 255, 255, 0},
	})

	mask, err := Apply(img)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			expected := img.Gray(y, x) == 255
			if mask.At(y, x) != expected {
				t.Errorf("mask[%d][%d] = %v, expected %v for value %d",
					y, x, mask.At(y, x), expected, img.Gray(y, x))
			}
		}
	}

	// Dithering the mask rendered back to an image must reproduce the mask
	rendered := mask.Image()
	again := raster.FromImage(rendered)
	mask2, err := Apply(again)
	if err != nil {
		t.Fatalf("second Apply failed: %v", err)
	}
	for i := range mask.Bits {
		if mask.Bits[i] != mask2.Bits[i] {
			t.Fatalf("mask changed after re-dithering at index %d", i)
		}
	}
}

// TestDitherUniformExtremes verifies all-black and all-white images survive
// unchanged.
func TestDitherUniformExtremes(t *testing.T) {
	black := raster.NewGray(6, 4)
	mask, err := Apply(black)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if mask.Count() != 0 {
		t.Errorf("all-black image produced %d foreground pixels, expected 0", mask.Count())
	}

	white := raster.NewGray(6, 4)
	for i := range white.Pix {
		white.Pix[i] = 255
	}
	mask, err = Apply(white)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if mask.Count() != 24 {
		t.Errorf("all-white image produced %d foreground pixels, expected 24", mask.Count())
	}
}

// TestDitherRejectsColor verifies that multi-channel input is refused.
func TestDitherRejectsColor(t *testing.T) {
	img := raster.New(4, 4, 3)
	if _, err := Apply(img); err == nil {
		t.Error("expected error for 3-channel input, got nil")
	}
}

// TestMaskImage verifies the preview rendering maps true to 255 and false to 0.
func TestMaskImage(t *testing.T) {
	mask := NewMask(3, 2)
	mask.Set(0, 1, true)
	mask.Set(1, 2, true)

	img := mask.Image()
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			want := uint8(0)
			if mask.At(y, x) {
				want = 255
			}
			if got := img.GrayAt(x, y).Y; got != want {
				t.Errorf("preview pixel (%d,%d) = %d, expected %d", x, y, got, want)
			}
		}
	}
}

// TestDitherGradientDeterministic verifies two runs over the same input give
// identical masks.
func TestDitherGradientDeterministic(t *testing.T) {
	img := raster.NewGray(16, 8)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			img.Pix[y*img.Width+x] = uint8((x * 255) / (img.Width - 1))
		}
	}

	m1, err := Apply(img)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	m2, err := Apply(img)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	for i := range m1.Bits {
		if m1.Bits[i] != m2.Bits[i] {
			t.Fatalf("masks differ at index %d", i)
		}
	}
}
