// Package convert runs the full panorama-to-pointcloud pipeline: load the
// panorama as grayscale, optionally level it from recorded camera pose,
// dither it to a binary mask, project the mask onto a sphere and serialize
// the resulting point cloud.
package convert

import (
	"fmt"

	"pano2points/pkg/dither"
	"pano2points/pkg/panorama"
	"pano2points/pkg/pointcloud"
	"pano2points/pkg/raster"
	"pano2points/pkg/sphere"
)

// Params holds the conversion parameters.
type Params struct {
	// InputPath is the equirectangular panorama image to convert.
	InputPath string

	// OutputPath is where the point cloud is written; the extension picks
	// the format (.xyz for XYZ text, anything else for ASCII PLY).
	OutputPath string

	// MaxSize is the maximum image dimension. Larger panoramas are
	// downsampled with Lanczos resampling before processing.
	MaxSize int

	// Projection controls radius, invert, rotation and range filters.
	Projection sphere.Options

	// PreviewPath, when non-empty, receives the dither mask as an image
	// before projection starts.
	PreviewPath string

	// Level applies pitch/roll correction before dithering using the
	// angles below (radians). Heading is usually left at zero to keep the
	// panorama's original orientation.
	Level   bool
	Pitch   float64
	Roll    float64
	Heading float64

	// Verbose enables step-by-step progress output.
	Verbose bool
}

// Converter runs the conversion pipeline. The stages run in a fixed order
// and any failure aborts the remaining stages; artifacts already written
// (such as the dither preview) are left in place.
type Converter struct {
	// params stores the conversion configuration
	params *Params

	// gray holds the loaded (and possibly resized and leveled) panorama
	gray *raster.Raster

	// mask holds the dithering result
	mask *dither.Mask

	// cloud holds the projected points
	cloud *pointcloud.Cloud
}

// NewConverter creates a converter instance with the provided parameters.
func NewConverter(params *Params) *Converter {
	return &Converter{params: params}
}

// Process runs the complete conversion pipeline and returns the generated
// point cloud.
func (c *Converter) Process() (*pointcloud.Cloud, error) {
	// Step 1: Load the panorama as grayscale, downsampling if needed
	c.logf("Step 1: Loading panorama %s...\n", c.params.InputPath)
	gray, err := raster.LoadGrayscale(c.params.InputPath, c.params.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load panorama: %w", err)
	}
	if err := gray.Validate(); err != nil {
		return nil, err
	}
	c.gray = gray
	c.logf("  Loaded %dx%d grayscale image\n", gray.Width, gray.Height)

	// Step 2: Level the panorama if a camera pose was provided
	if c.params.Level {
		c.logf("Step 2: Leveling panorama (pitch=%.4f rad, roll=%.4f rad)...\n",
			c.params.Pitch, c.params.Roll)
		leveled, err := panorama.Level(c.gray, c.params.Pitch, c.params.Roll, c.params.Heading)
		if err != nil {
			return nil, fmt.Errorf("failed to level panorama: %w", err)
		}
		c.gray = leveled
	}

	// Step 3: Floyd-Steinberg dithering
	c.logf("Step 3: Dithering...\n")
	mask, err := dither.Apply(c.gray)
	if err != nil {
		return nil, fmt.Errorf("failed to dither: %w", err)
	}
	c.mask = mask
	c.logf("  %d of %d pixels selected\n", mask.Count(), mask.Width*mask.Height)

	// Step 4: Write the dither preview before projecting, so a later
	// failure still leaves the preview on disk for inspection
	if c.params.PreviewPath != "" {
		c.logf("Step 4: Writing dither preview %s...\n", c.params.PreviewPath)
		if err := mask.SavePreview(c.params.PreviewPath); err != nil {
			return nil, err
		}
	}

	// Step 5: Project onto the sphere
	c.logf("Step 5: Projecting onto sphere (radius=%.1fmm)...\n", c.params.Projection.Radius)
	cloud, err := sphere.Project(mask, c.gray, c.params.Projection)
	if err != nil {
		return nil, fmt.Errorf("failed to project: %w", err)
	}
	c.cloud = cloud

	// Step 6: Serialize
	c.logf("Step 6: Writing %d points to %s...\n", cloud.Size(), c.params.OutputPath)
	if err := cloud.Save(c.params.OutputPath); err != nil {
		return nil, err
	}

	return cloud, nil
}

// Cloud returns the point cloud from the last Process run, or nil.
func (c *Converter) Cloud() *pointcloud.Cloud {
	return c.cloud
}

// Mask returns the dither mask from the last Process run, or nil.
func (c *Converter) Mask() *dither.Mask {
	return c.mask
}

func (c *Converter) logf(format string, args ...interface{}) {
	if c.params.Verbose {
		fmt.Printf(format, args...)
	}
}
