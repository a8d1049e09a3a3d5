// relief is a CLI for turning images into printable relief meshes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/Faultbox/reliefmesh/internal/config"
	"github.com/Faultbox/reliefmesh/internal/logger"
	"github.com/Faultbox/reliefmesh/internal/relief"
	"github.com/Faultbox/reliefmesh/internal/verify"
	"github.com/Faultbox/reliefmesh/pkg/mesh"
	"github.com/Faultbox/reliefmesh/pkg/stl"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var code int
	switch command {
	case "convert", "c":
		code = cmdConvert(args)
	case "depth", "d":
		code = cmdDepth(args)
	case "check":
		code = cmdCheck(args)
	case "config":
		code = cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		code = 1
	}
	logger.Sync()
	os.Exit(code)
}

func printUsage() {
	fmt.Println(`relief - image to relief mesh utility

Usage:
  relief <command> [options]

Commands:
  convert <image|url> [options]   Build a depth map and an STL relief
  depth <image|url> [options]     Write only the depth map PNG
  check <file.stl|->               Inspect an STL mesh for watertightness
  config [-o file]                Write the default config (user config dir)

Options (convert, depth):
  --detail_level F     Sampling density, 320*F samples on the long axis (1.0)
  --model_width F      Model width in mm (50)
  --model_thickness F  Relief height in mm (5)
  --base_thickness F   Base slab thickness in mm (2)
  --output_dir DIR     Directory for artifacts (output)
  --skip_depth         Use the image directly, without gamma shaping
  --invert_depth       Invert the depth map
  --format ascii|binary
  --config FILE        YAML config file
  --json               Print the result as JSON
  --debug              Enable debug logging

Examples:
  relief convert photo.jpg --model_width 80 --invert_depth
  relief convert https://example.com/logo.png --skip_depth --format binary
  relief depth photo.jpg -o preview.png
  relief check output/3f2a.stl`)
}

// commonFlags are shared by convert and depth.
type commonFlags struct {
	fs             *flag.FlagSet
	configPath     *string
	detailLevel    *float64
	modelWidth     *float64
	modelThickness *float64
	baseThickness  *float64
	outputDir      *string
	skipDepth      *bool
	invertDepth    *bool
	format         *string
	jsonOut        *bool
	debug          *bool
}

func newCommonFlags(name string) *commonFlags {
	d := config.Default()
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &commonFlags{
		fs:             fs,
		configPath:     fs.String("config", "", "Path to config file"),
		detailLevel:    fs.Float64("detail_level", d.Relief.DetailLevel, "Detail level for depth map generation"),
		modelWidth:     fs.Float64("model_width", d.Relief.ModelWidthMM, "Width of the 3D model in mm"),
		modelThickness: fs.Float64("model_thickness", d.Relief.ModelThicknessMM, "Thickness of the 3D model in mm"),
		baseThickness:  fs.Float64("base_thickness", d.Relief.BaseThicknessMM, "Base thickness of the 3D model in mm"),
		outputDir:      fs.String("output_dir", d.Output.Dir, "Directory to save the output files"),
		skipDepth:      fs.Bool("skip_depth", false, "Use the original image directly as the depth map"),
		invertDepth:    fs.Bool("invert_depth", false, "Invert the depth map"),
		format:         fs.String("format", d.Output.MeshFormat, "STL encoding: ascii or binary"),
		jsonOut:        fs.Bool("json", false, "Print the result as JSON"),
		debug:          fs.Bool("debug", false, "Enable debug logging"),
	}
}

// parse accepts flags before and after positional arguments.
func (f *commonFlags) parse(args []string) []string {
	var positional []string
	for {
		f.fs.Parse(args)
		args = f.fs.Args()
		if len(args) == 0 {
			return positional
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// load merges config file values with the flags that were set explicitly.
func (f *commonFlags) load() (*config.Config, error) {
	cfg, err := config.LoadFile(config.Discover(*f.configPath))
	if err != nil {
		return nil, err
	}

	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "detail_level":
			cfg.Relief.DetailLevel = *f.detailLevel
		case "model_width":
			cfg.Relief.ModelWidthMM = *f.modelWidth
		case "model_thickness":
			cfg.Relief.ModelThicknessMM = *f.modelThickness
		case "base_thickness":
			cfg.Relief.BaseThicknessMM = *f.baseThickness
		case "output_dir":
			cfg.Output.Dir = *f.outputDir
		case "skip_depth":
			cfg.Relief.SkipDepthDerivation = *f.skipDepth
		case "invert_depth":
			cfg.Relief.InvertDepth = *f.invertDepth
		case "format":
			cfg.Output.MeshFormat = *f.format
		case "debug":
			if *f.debug {
				cfg.Logging.Level = "debug"
			}
		}
	})

	if err := logger.InitWithOptions(logger.NewOptions(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.LogFile)); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func cmdConvert(args []string) int {
	f := newCommonFlags("convert")
	positional := f.parse(args)
	if len(positional) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: relief convert <image|url> [options]")
		return 1
	}

	cfg, err := f.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	conv, err := relief.FromConfig(cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()

	res := conv.Convert(ctx, relief.RequestDefaults(cfg).WithSource(positional[0]))

	if *f.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(res)
	} else if res.OK() {
		fmt.Printf("Depth map: %s\n", res.DepthMapPath)
		fmt.Printf("Mesh:      %s\n", res.MeshPath)
		fmt.Printf("Grid:      %dx%d\n", res.Width, res.Height)
		fmt.Printf("Triangles: %d\n", res.Triangles)
	} else {
		fmt.Fprintf(os.Stderr, "Error (%s): %s\n", res.ErrorKind, res.Error)
	}

	if !res.OK() {
		return 1
	}
	return 0
}

func cmdDepth(args []string) int {
	f := newCommonFlags("depth")
	out := f.fs.String("o", "", "Output PNG path (default <output_dir>/<name>_depth_map.png)")
	positional := f.parse(args)
	if len(positional) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: relief depth <image|url> [-o out.png] [options]")
		return 1
	}

	cfg, err := f.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	conv, err := relief.FromConfig(cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()

	src := positional[0]
	grid, err := conv.DepthMap(ctx, relief.RequestDefaults(cfg).WithSource(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error (%s): %v\n", relief.KindOf(err), err)
		return 1
	}

	path := *out
	if path == "" {
		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		path = filepath.Join(cfg.Output.Dir, base+"_depth_map.png")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := relief.WritePNG(path, grid.Image()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("Depth map: %s (%dx%d)\n", path, grid.Width(), grid.Height())
	return 0
}

func cmdCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "Print the report as JSON")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: relief check [-json] <file.stl|->")
		return 1
	}

	var (
		m   *mesh.Mesh
		err error
	)
	if fs.Arg(0) == "-" {
		m, err = stl.Read(os.Stdin)
	} else {
		m, err = stl.ReadFile(fs.Arg(0))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	r, err := verify.Inspect(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		closedErr := ""
		if r.ClosedErr != nil {
			closedErr = r.ClosedErr.Error()
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(map[string]any{
			"file":       fs.Arg(0),
			"triangles":  r.Triangles,
			"min":        r.Bounds.Min,
			"max":        r.Bounds.Max,
			"closed":     r.Closed,
			"closed_err": closedErr,
			"interior":   r.Interior,
			"exterior":   r.Exterior,
			"sound":      r.Sound(),
		})
	} else {
		size := r.Bounds.Size()
		fmt.Printf("File:      %s\n", fs.Arg(0))
		fmt.Printf("Triangles: %d\n", r.Triangles)
		fmt.Printf("Size:      %.3f x %.3f x %.3f mm\n", size.X(), size.Y(), size.Z())
		if r.Closed {
			fmt.Println("Closed:    yes")
		} else {
			fmt.Printf("Closed:    no (%v)\n", r.ClosedErr)
		}
		fmt.Printf("Interior:  %v at %v\n", r.Interior, r.InteriorProbe)
		fmt.Printf("Exterior:  %v at %v\n", r.Exterior, r.ExteriorProbe)
	}

	if !r.Sound() {
		return 1
	}
	return 0
}

func cmdConfig(args []string) int {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	out := fs.String("o", "", "Destination file (default: user config dir)")
	fs.Parse(args)

	cfg := config.Default()
	var err error
	if *out == "" {
		err = cfg.Save()
		*out = filepath.Join(config.ConfigDir(), "config.yaml")
	} else {
		err = cfg.SaveTo(*out)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("Config written to %s\n", *out)
	return 0
}
