// Package pointcloud holds the point cloud produced by the spherical
// projection and writes it out in the formats fabrication tools accept:
// ASCII PLY and plain XYZ text.
package pointcloud

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r3"
)

// MetaData tracks the bounding box of the points added so far.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// Cloud is an ordered sequence of 3D points. Order is meaningful: points
// are appended in the raster scan order of the mask they came from and are
// written out in the same order.
type Cloud struct {
	points []r3.Vector
	meta   MetaData
}

// New returns an empty point cloud.
func New() *Cloud {
	return &Cloud{
		meta: MetaData{
			MinX: math.MaxFloat64,
			MinY: math.MaxFloat64,
			MinZ: math.MaxFloat64,
			MaxX: -math.MaxFloat64,
			MaxY: -math.MaxFloat64,
			MaxZ: -math.MaxFloat64,
		},
	}
}

// Add appends a point to the cloud.
func (c *Cloud) Add(p r3.Vector) {
	c.points = append(c.points, p)
	c.meta.MinX = math.Min(c.meta.MinX, p.X)
	c.meta.MaxX = math.Max(c.meta.MaxX, p.X)
	c.meta.MinY = math.Min(c.meta.MinY, p.Y)
	c.meta.MaxY = math.Max(c.meta.MaxY, p.Y)
	c.meta.MinZ = math.Min(c.meta.MinZ, p.Z)
	c.meta.MaxZ = math.Max(c.meta.MaxZ, p.Z)
}

// Size returns the number of points in the cloud.
func (c *Cloud) Size() int {
	return len(c.points)
}

// Points returns the points in insertion order. The returned slice is the
// cloud's backing storage and must not be modified.
func (c *Cloud) Points() []r3.Vector {
	return c.points
}

// MetaData returns the bounding box of the cloud. Meaningless for an empty
// cloud.
func (c *Cloud) MetaData() MetaData {
	return c.meta
}

// WritePLY writes the cloud in ASCII PLY 1.0 format: a fixed header
// declaring the vertex count and float x y z properties, then one line per
// point with coordinates formatted to six decimal places.
func (c *Cloud) WritePLY(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "ply\nformat ascii 1.0\nelement vertex %d\nproperty float x\nproperty float y\nproperty float z\nend_header\n", len(c.points)); err != nil {
		return err
	}
	for _, p := range c.points {
		if _, err := fmt.Fprintf(w, "%.6f %.6f %.6f\n", p.X, p.Y, p.Z); err != nil {
			return err
		}
	}
	return nil
}

// WriteXYZ writes the cloud as plain text, one "x y z" line per point with
// six decimal places and no header.
func (c *Cloud) WriteXYZ(w io.Writer) error {
	for _, p := range c.points {
		if _, err := fmt.Fprintf(w, "%.6f %.6f %.6f\n", p.X, p.Y, p.Z); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the cloud to the given path, picking the format from the file
// extension: ".xyz" (case-insensitive) selects XYZ, anything else PLY.
func (c *Cloud) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if strings.EqualFold(filepath.Ext(path), ".xyz") {
		err = c.WriteXYZ(w)
	} else {
		err = c.WritePLY(w)
	}
	if err != nil {
		return fmt.Errorf("failed to write point cloud %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush point cloud %s: %w", path, err)
	}
	return nil
}
