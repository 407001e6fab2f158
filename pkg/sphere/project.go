// Package sphere maps a dither mask onto the surface of a sphere, producing
// the point cloud that gets engraved. Every surviving mask pixel becomes one
// point; rotation and range filters trim the cloud for the target fixture.
package sphere

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"pano2points/pkg/dither"
	"pano2points/pkg/pointcloud"
	"pano2points/pkg/raster"
)

// Options controls the spherical projection.
type Options struct {
	// Radius is the sphere radius in mm.
	Radius float64

	// Invert selects background (false) mask pixels instead of foreground.
	Invert bool

	// RotateX, RotateY and RotateZ rotate the finished cloud, in degrees.
	// X is applied first, then Y, then Z.
	RotateX float64
	RotateY float64
	RotateZ float64

	// HeightMin and HeightMax keep only points whose rotated Y coordinate
	// falls in the band mapped from [0,1] onto [-Radius, +Radius]. The
	// filter is inactive at the full [0,1] range.
	HeightMin float64
	HeightMax float64

	// BrightnessMin and BrightnessMax keep only pixels whose original
	// intensity, normalized to [0,1], falls inside the range. Requires the
	// original grayscale image; inactive at the full [0,1] range.
	BrightnessMin float64
	BrightnessMax float64
}

// DefaultOptions returns projection options with no rotation and both
// filters wide open.
func DefaultOptions() Options {
	return Options{
		Radius:        50.0,
		HeightMin:     0.0,
		HeightMax:     1.0,
		BrightnessMin: 0.0,
		BrightnessMax: 1.0,
	}
}

// Project converts a dither mask into a spherical point cloud.
//
// Selected pixels are visited in row-major scan order, which fixes the
// order of the output points. For each one, the row maps to the polar angle
// theta in [0,pi] and the column to the azimuth phi in [0,2pi); the pixel
// becomes the point (r*sin(theta)*cos(phi), r*cos(theta), r*sin(theta)*sin(phi))
// with Y up. The rotation is applied to every point, then the height band
// filter runs on the rotated Y coordinate.
//
// original may be nil; it is only consulted when the brightness filter is
// active. When present it must be grayscale and match the mask shape.
func Project(mask *dither.Mask, original *raster.Raster, opts Options) (*pointcloud.Cloud, error) {
	if mask.Width < raster.MinDimension || mask.Height < raster.MinDimension {
		return nil, fmt.Errorf("degenerate mask: %dx%d (both dimensions must be at least %d)",
			mask.Width, mask.Height, raster.MinDimension)
	}

	filterBrightness := original != nil && (opts.BrightnessMin > 0.0 || opts.BrightnessMax < 1.0)
	if filterBrightness {
		if original.Channels != 1 {
			return nil, fmt.Errorf("brightness filtering requires a grayscale image, got %d channels", original.Channels)
		}
		if original.Width != mask.Width || original.Height != mask.Height {
			return nil, fmt.Errorf("original image %dx%d does not match mask %dx%d",
				original.Width, original.Height, mask.Width, mask.Height)
		}
	}

	rot := rotationMatrix(opts.RotateX, opts.RotateY, opts.RotateZ)

	filterHeight := opts.HeightMin > 0.0 || opts.HeightMax < 1.0
	yMin := -opts.Radius + opts.HeightMin*2*opts.Radius
	yMax := -opts.Radius + opts.HeightMax*2*opts.Radius

	cloud := pointcloud.New()

	h, w := mask.Height, mask.Width
	for row := 0; row < h; row++ {
		theta := float64(row) / float64(h-1) * math.Pi
		sinTheta, cosTheta := math.Sin(theta), math.Cos(theta)

		for col := 0; col < w; col++ {
			selected := mask.At(row, col)
			if opts.Invert {
				selected = !selected
			}
			if !selected {
				continue
			}

			if filterBrightness {
				b := float64(original.Gray(row, col)) / 255.0
				if b < opts.BrightnessMin || b > opts.BrightnessMax {
					continue
				}
			}

			phi := float64(col) / float64(w-1) * 2 * math.Pi
			p := r3.Vector{
				X: opts.Radius * sinTheta * math.Cos(phi),
				Y: opts.Radius * cosTheta,
				Z: opts.Radius * sinTheta * math.Sin(phi),
			}

			p = apply(rot, p)

			if filterHeight && (p.Y < yMin || p.Y > yMax) {
				continue
			}

			cloud.Add(p)
		}
	}

	return cloud, nil
}

// rotationMatrix builds the combined rotation R = Rz * Ry * Rx from angles
// in degrees, so X is applied first, then Y, then Z.
func rotationMatrix(xDeg, yDeg, zDeg float64) *mat.Dense {
	rx := xDeg * math.Pi / 180.0
	ry := yDeg * math.Pi / 180.0
	rz := zDeg * math.Pi / 180.0

	cx, sx := math.Cos(rx), math.Sin(rx)
	cy, sy := math.Cos(ry), math.Sin(ry)
	cz, sz := math.Cos(rz), math.Sin(rz)

	mx := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, cx, -sx,
		0, sx, cx,
	})
	my := mat.NewDense(3, 3, []float64{
		cy, 0, sy,
		0, 1, 0,
		-sy, 0, cy,
	})
	mz := mat.NewDense(3, 3, []float64{
		cz, -sz, 0,
		sz, cz, 0,
		0, 0, 1,
	})

	var zy, r mat.Dense
	zy.Mul(mz, my)
	r.Mul(&zy, mx)
	return &r
}

// apply multiplies a point by the rotation matrix.
func apply(r *mat.Dense, p r3.Vector) r3.Vector {
	return r3.Vector{
		X: r.At(0, 0)*p.X + r.At(0, 1)*p.Y + r.At(0, 2)*p.Z,
		Y: r.At(1, 0)*p.X + r.At(1, 1)*p.Y + r.At(1, 2)*p.Z,
		Z: r.At(2, 0)*p.X + r.At(2, 1)*p.Y + r.At(2, 2)*p.Z,
	}
}
