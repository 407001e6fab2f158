package convert

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pano2points/pkg/raster"
	"pano2points/pkg/sphere"
)

// writeTestPanorama saves a small grayscale gradient image and returns its
// path.
func writeTestPanorama(t *testing.T, dir string, width, height int) string {
	t.Helper()
	img := raster.NewGray(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Pix[y*width+x] = uint8((x * 255) / (width - 1))
		}
	}
	path := filepath.Join(dir, "pano.png")
	if err := img.Save(path); err != nil {
		t.Fatalf("failed to write test panorama: %v", err)
	}
	return path
}

func testParams(input, output string) *Params {
	opts := sphere.DefaultOptions()
	opts.Radius = 25.0
	return &Params{
		InputPath:  input,
		OutputPath: output,
		MaxSize:    2000,
		Projection: opts,
	}
}

// TestProcessEndToEnd runs the whole pipeline on a small gradient panorama
// and checks the artifacts on disk against the returned cloud.
func TestProcessEndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := writeTestPanorama(t, dir, 32, 16)
	output := filepath.Join(dir, "pano.ply")
	preview := filepath.Join(dir, "pano_dithered.png")

	params := testParams(input, output)
	params.PreviewPath = preview

	cloud, err := NewConverter(params).Process()
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if cloud.Size() == 0 {
		t.Fatal("expected a non-empty point cloud from a gradient image")
	}

	// The PLY header must declare exactly the returned point count
	f, err := os.Open(output)
	if err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	found := false
	vertexLines := 0
	inBody := false
	for scanner.Scan() {
		line := scanner.Text()
		if line == fmt.Sprintf("element vertex %d", cloud.Size()) {
			found = true
		}
		if inBody {
			vertexLines++
		}
		if line == "end_header" {
			inBody = true
		}
	}
	if !found {
		t.Errorf("PLY header does not declare %d vertices", cloud.Size())
	}
	if vertexLines != cloud.Size() {
		t.Errorf("PLY body has %d lines, expected %d", vertexLines, cloud.Size())
	}

	if _, err := os.Stat(preview); err != nil {
		t.Errorf("dither preview was not written: %v", err)
	}
}

// TestProcessXYZOutput verifies the output extension picks the XYZ format.
func TestProcessXYZOutput(t *testing.T) {
	dir := t.TempDir()
	input := writeTestPanorama(t, dir, 16, 8)
	output := filepath.Join(dir, "pano.xyz")

	cloud, err := NewConverter(testParams(input, output)).Process()
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != cloud.Size() {
		t.Errorf("XYZ output has %d lines, expected %d", len(lines), cloud.Size())
	}
	if strings.HasPrefix(lines[0], "ply") {
		t.Error("XYZ output starts with a PLY header")
	}
}

// TestProcessResizesOversizedInput verifies the max-size downsampling step.
func TestProcessResizesOversizedInput(t *testing.T) {
	dir := t.TempDir()
	input := writeTestPanorama(t, dir, 64, 32)
	output := filepath.Join(dir, "pano.ply")

	params := testParams(input, output)
	params.MaxSize = 16

	cloud, err := NewConverter(params).Process()
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	// 64x32 fit into 16 gives 16x8 = 128 pixels, an upper bound on points
	if cloud.Size() > 128 {
		t.Errorf("cloud has %d points, expected at most 128 after downsampling", cloud.Size())
	}
}

// TestProcessWithLeveling verifies the optional leveling step runs and the
// pipeline still completes.
func TestProcessWithLeveling(t *testing.T) {
	dir := t.TempDir()
	input := writeTestPanorama(t, dir, 32, 16)
	output := filepath.Join(dir, "pano.ply")

	params := testParams(input, output)
	params.Level = true
	params.Pitch = 0.1
	params.Roll = -0.05

	if _, err := NewConverter(params).Process(); err != nil {
		t.Fatalf("Process with leveling failed: %v", err)
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("output was not written: %v", err)
	}
}

// TestProcessMissingInput verifies a missing source file fails the run.
func TestProcessMissingInput(t *testing.T) {
	dir := t.TempDir()
	params := testParams(filepath.Join(dir, "nope.png"), filepath.Join(dir, "out.ply"))
	if _, err := NewConverter(params).Process(); err == nil {
		t.Error("expected error for missing input, got nil")
	}
}

// TestProcessDegenerateInput verifies a 1x1 image is rejected before any
// processing.
func TestProcessDegenerateInput(t *testing.T) {
	dir := t.TempDir()
	img := raster.NewGray(1, 1)
	input := filepath.Join(dir, "tiny.png")
	if err := img.Save(input); err != nil {
		t.Fatalf("failed to write tiny image: %v", err)
	}

	params := testParams(input, filepath.Join(dir, "out.ply"))
	if _, err := NewConverter(params).Process(); err == nil {
		t.Error("expected error for degenerate input, got nil")
	}
}
