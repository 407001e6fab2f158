package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pano2points/internal/meta"
	"pano2points/pkg/config"
	"pano2points/pkg/convert"
	"pano2points/pkg/pointcloud"
	"pano2points/pkg/sphere"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command line arguments
	configPath := flag.String("config", "pano2points.yaml", "Path to YAML config file with default parameters")
	output := flag.String("output", "", "Output file path (.ply or .xyz); defaults to input name with .ply extension")
	radius := flag.Float64("radius", 50.0, "Sphere radius in mm")
	maxSize := flag.Int("max-size", 2000, "Maximum image dimension; larger = more points but slower")
	invert := flag.Bool("invert", false, "Invert: dark areas get points instead of bright areas")
	rotateX := flag.Float64("rotate-x", 0.0, "Rotation around X axis in degrees (applied before height filter)")
	rotateY := flag.Float64("rotate-y", 0.0, "Rotation around Y axis in degrees (applied before height filter)")
	rotateZ := flag.Float64("rotate-z", 0.0, "Rotation around Z axis in degrees (applied before height filter)")
	heightMin := flag.Float64("height-min", 0.0, "Minimum height as fraction (0=bottom, 1=top); use to slice the sphere")
	heightMax := flag.Float64("height-max", 1.0, "Maximum height as fraction (0=bottom, 1=top); use to slice the sphere")
	brightnessMin := flag.Float64("brightness-min", 0.0, "Minimum original brightness to include (0-1)")
	brightnessMax := flag.Float64("brightness-max", 1.0, "Maximum original brightness to include (0-1)")
	preview := flag.Bool("preview", false, "Generate dithered image preview")
	previewDither := flag.String("preview-dither", "", "Custom path for the dithered preview image")
	level := flag.Bool("level", false, "Level the panorama using the pitch/roll recorded in its sidecar metadata")
	verbose := flag.Bool("verbose", true, "Print progress output")
	flag.Parse()

	// Config file supplies defaults; flags given on the command line win
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["radius"] {
		*radius = cfg.Sphere.Radius
	}
	if !set["max-size"] {
		*maxSize = cfg.Sphere.MaxSize
	}
	if !set["invert"] {
		*invert = cfg.Output.Invert
	}
	if !set["rotate-x"] {
		*rotateX = cfg.Rotation.X
	}
	if !set["rotate-y"] {
		*rotateY = cfg.Rotation.Y
	}
	if !set["rotate-z"] {
		*rotateZ = cfg.Rotation.Z
	}
	if !set["height-min"] {
		*heightMin = cfg.Filters.HeightMin
	}
	if !set["height-max"] {
		*heightMax = cfg.Filters.HeightMax
	}
	if !set["brightness-min"] {
		*brightnessMin = cfg.Filters.BrightnessMin
	}
	if !set["brightness-max"] {
		*brightnessMax = cfg.Filters.BrightnessMax
	}
	if !set["preview"] {
		*preview = cfg.Output.Preview
	}
	if !set["verbose"] {
		*verbose = cfg.Output.Verbose
	}

	// Validate inputs
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: pano2points [flags] <panorama image>")
		flag.PrintDefaults()
		return 1
	}
	inputPath := flag.Arg(0)
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: Input file not found: %s\n", inputPath)
		return 1
	}

	// Determine output path
	outputPath := *output
	if outputPath == "" {
		ext := filepath.Ext(inputPath)
		outputPath = strings.TrimSuffix(inputPath, ext) + ".ply"
	}

	// Handle preview path
	previewPath := *previewDither
	if *preview && previewPath == "" {
		ext := filepath.Ext(outputPath)
		stem := strings.TrimSuffix(filepath.Base(outputPath), ext)
		previewPath = filepath.Join(filepath.Dir(outputPath), stem+"_dithered.png")
	}

	params := &convert.Params{
		InputPath:  inputPath,
		OutputPath: outputPath,
		MaxSize:    *maxSize,
		Projection: sphere.Options{
			Radius:        *radius,
			Invert:        *invert,
			RotateX:       *rotateX,
			RotateY:       *rotateY,
			RotateZ:       *rotateZ,
			HeightMin:     *heightMin,
			HeightMax:     *heightMax,
			BrightnessMin: *brightnessMin,
			BrightnessMax: *brightnessMax,
		},
		PreviewPath: previewPath,
		Verbose:     *verbose,
	}

	// Pull the camera pose from the sidecar metadata when leveling
	if *level {
		sidecar := meta.SidecarPath(inputPath)
		pano, err := meta.Load(sidecar)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if pano.AutoLeveled {
			fmt.Println("Panorama was already leveled at download time; skipping correction")
		} else {
			params.Level = true
			params.Pitch = pano.Pitch
			params.Roll = pano.NormalizedRoll()
		}
	}

	fmt.Printf("Loading panorama: %s\n", inputPath)
	fmt.Printf("Parameters: radius=%.1fmm, max_size=%dpx\n", *radius, *maxSize)
	if *invert {
		fmt.Println("Mode: Inverted (dark areas -> points)")
	} else {
		fmt.Println("Mode: Normal (bright areas -> points)")
	}
	if *rotateX != 0.0 || *rotateY != 0.0 || *rotateZ != 0.0 {
		fmt.Printf("Rotation: X=%.1f, Y=%.1f, Z=%.1f degrees\n", *rotateX, *rotateY, *rotateZ)
	}
	if *heightMin > 0.0 || *heightMax < 1.0 {
		fmt.Printf("Height range: %.0f%% - %.0f%%\n", *heightMin*100, *heightMax*100)
	}
	if *brightnessMin > 0.0 || *brightnessMax < 1.0 {
		fmt.Printf("Brightness range: %.0f%% - %.0f%%\n", *brightnessMin*100, *brightnessMax*100)
	}

	converter := convert.NewConverter(params)
	cloud, err := converter.Process()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error during conversion: %v\n", err)
		return 1
	}

	fmt.Printf("\nGenerated %d points\n", cloud.Size())
	printBounds(cloud)
	fmt.Printf("Point cloud saved to: %s\n", outputPath)
	if previewPath != "" {
		fmt.Printf("Dither preview saved to: %s\n", previewPath)
	}

	return 0
}

// printBounds reports the cloud's bounding box so the user can sanity-check
// the radius and filters before engraving.
func printBounds(cloud *pointcloud.Cloud) {
	if cloud.Size() == 0 {
		return
	}
	m := cloud.MetaData()
	fmt.Printf("Bounds: X [%.2f, %.2f]  Y [%.2f, %.2f]  Z [%.2f, %.2f] mm\n",
		m.MinX, m.MaxX, m.MinY, m.MaxY, m.MinZ, m.MaxZ)
}
