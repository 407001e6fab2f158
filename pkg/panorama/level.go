// Package panorama corrects the orientation of equirectangular panoramas.
// A panorama captured with a tilted camera shows a curved horizon; leveling
// resamples the image so the horizon is straight and, optionally, rotates it
// to a new heading.
package panorama

import (
	"math"
	"runtime"
	"sync"

	"pano2points/pkg/raster"
)

// LevelEpsilon is the angle in radians below which a correction is treated
// as zero. When pitch, roll and heading are all below it, Level returns the
// input unchanged rather than resampling, which would only add interpolation
// noise to an already level panorama.
const LevelEpsilon = 0.001

// Level corrects the pitch, roll and heading of an equirectangular panorama
// by inverse-rotating every output direction and bilinearly sampling the
// source. The result has the same shape and channel count as the input.
//
// Angles are in radians: positive pitch means the camera was looking up,
// positive roll means it was tilted clockwise when looking forward, and
// heading rotates the panorama around the vertical axis.
func Level(img *raster.Raster, pitch, roll, heading float64) (*raster.Raster, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}

	if math.Abs(pitch) < LevelEpsilon && math.Abs(roll) < LevelEpsilon && math.Abs(heading) < LevelEpsilon {
		return img, nil // No correction needed
	}

	out := raster.New(img.Width, img.Height, img.Channels)

	// Precompute the rotation terms. Heading and pitch are inverted because
	// we map output directions back into the tilted source; roll uses the
	// forward angle, which is the convention of the camera model being
	// corrected.
	ch, sh := math.Cos(-heading), math.Sin(-heading)
	cp, sp := math.Cos(-pitch), math.Sin(-pitch)
	cr, sr := math.Cos(roll), math.Sin(roll)

	// Each output row is a pure function of the immutable source, so rows
	// can be filled concurrently without affecting the result.
	rows := make(chan int)
	var wg sync.WaitGroup
	for worker := 0; worker < runtime.NumCPU(); worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range rows {
				levelRow(img, out, v, ch, sh, cp, sp, cr, sr)
			}
		}()
	}
	for v := 0; v < img.Height; v++ {
		rows <- v
	}
	close(rows)
	wg.Wait()

	return out, nil
}

// levelRow fills one output row by resampling the source panorama.
func levelRow(src, dst *raster.Raster, v int, ch, sh, cp, sp, cr, sr float64) {
	h, w := src.Height, src.Width

	thetaOut := float64(v) / float64(h-1) * math.Pi
	sinTheta, cosTheta := math.Sin(thetaOut), math.Cos(thetaOut)

	for u := 0; u < w; u++ {
		phiOut := float64(u) / float64(w-1) * 2 * math.Pi

		// Output direction in Cartesian coordinates, Y up.
		x := sinTheta * math.Cos(phiOut)
		y := cosTheta
		z := sinTheta * math.Sin(phiOut)

		// Inverse heading around Y, then inverse pitch around Z, then
		// forward roll around X. The order and signs must not change;
		// they mirror the rotations the camera applied.
		x1 := ch*x + sh*z
		z1 := -sh*x + ch*z

		x2 := cp*x1 - sp*y
		y2 := sp*x1 + cp*y

		y3 := cr*y2 - sr*z1
		z3 := sr*y2 + cr*z1

		// Back to spherical angles in the source image.
		thetaIn := math.Acos(clamp(y3, -1, 1))
		phiIn := math.Atan2(z3, x2)
		if phiIn < 0 {
			phiIn += 2 * math.Pi
		}

		vIn := thetaIn / math.Pi * float64(h-1)
		uIn := phiIn / (2 * math.Pi) * float64(w-1)

		// Bilinear sample: columns wrap around (longitude is cyclic),
		// rows clamp at the poles.
		v0 := int(math.Floor(vIn))
		v1 := v0 + 1
		if v1 > h-1 {
			v1 = h - 1
		}
		u0 := int(math.Floor(uIn))
		u1 := (u0 + 1) % w

		wv := vIn - float64(v0)
		wu := uIn - float64(u0)

		for c := 0; c < src.Channels; c++ {
			val := float64(src.At(v0, u0, c))*(1-wu)*(1-wv) +
				float64(src.At(v0, u1, c))*wu*(1-wv) +
				float64(src.At(v1, u0, c))*(1-wu)*wv +
				float64(src.At(v1, u1, c))*wu*wv
			dst.Set(v, u, c, uint8(val))
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
