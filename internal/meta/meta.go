// Package meta reads and writes the sidecar metadata saved next to a
// downloaded panorama. The acquisition tooling records the camera pose so
// the panorama can be leveled later without refetching it.
package meta

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Panorama is the sidecar metadata persisted as a JSON sibling of the
// panorama image file.
type Panorama struct {
	// ID is the imagery provider's panorama identifier.
	ID string `json:"id"`

	// Date is the capture timestamp as reported by the provider.
	Date string `json:"date"`

	// Lat and Lon are the capture location in degrees.
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	// Pitch, Roll and Heading are the camera pose in radians.
	Pitch   float64 `json:"pitch"`
	Roll    float64 `json:"roll"`
	Heading float64 `json:"heading"`

	// Elevation is the capture elevation in meters.
	Elevation float64 `json:"elevation"`

	// AutoLeveled records whether pitch/roll correction was already applied
	// to the saved image.
	AutoLeveled bool `json:"auto_leveled"`
}

// SidecarPath returns the metadata path for an image: the same name with a
// .json extension.
func SidecarPath(imagePath string) string {
	ext := filepath.Ext(imagePath)
	return strings.TrimSuffix(imagePath, ext) + ".json"
}

// Load reads panorama metadata from a JSON file.
func Load(path string) (*Panorama, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata %s: %w", path, err)
	}
	var p Panorama
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse metadata %s: %w", path, err)
	}
	return &p, nil
}

// Save writes the metadata as indented JSON.
func (p *Panorama) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata %s: %w", path, err)
	}
	return nil
}

// NormalizedRoll returns the roll folded into (-pi, pi]. Providers report
// roll in [0, 2pi), which would over-rotate the leveling step.
func (p *Panorama) NormalizedRoll() float64 {
	roll := p.Roll
	if roll > math.Pi {
		roll -= 2 * math.Pi
	}
	return roll
}
