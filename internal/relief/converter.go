package relief

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/reliefmesh/internal/logger"
	"github.com/Faultbox/reliefmesh/internal/source"
	"github.com/Faultbox/reliefmesh/pkg/heightmap"
	"github.com/Faultbox/reliefmesh/pkg/mesh"
	"github.com/Faultbox/reliefmesh/pkg/stl"
)

// Recorder persists conversion outcomes.
type Recorder interface {
	Record(ctx context.Context, source string, res Result) error
}

// Options configures a Converter.
type Options struct {
	OutputDir string
	Format    stl.Format
	Workers   int  // mesh workers, 0 = GOMAXPROCS
	Verify    bool // check watertightness before writing

	MaxSamples int // heightmap size limit, 0 means heightmap.DefaultMaxSamples
}

// Converter runs conversions. It is safe for concurrent use.
type Converter struct {
	opts     Options
	loader   *source.Loader
	builder  *mesh.Builder
	recorder Recorder
	newID    func() string
}

// NewConverter creates a converter. rec may be nil.
func NewConverter(opts Options, loader *source.Loader, rec Recorder) *Converter {
	if loader == nil {
		loader = source.NewLoader(30*time.Second, source.DefaultMaxBytes)
	}
	return &Converter{
		opts:     opts,
		loader:   loader,
		builder:  &mesh.Builder{Workers: opts.Workers},
		recorder: rec,
		newID:    uuid.NewString,
	}
}

// ArtifactNames returns the depth map and mesh file names for an id.
func ArtifactNames(id string) (depthMap, meshFile string) {
	return id + "_depth_map.png", id + ".stl"
}

// Convert runs one conversion and reports its outcome.
func (c *Converter) Convert(ctx context.Context, req Request) Result {
	start := time.Now()
	id := c.newID()

	logger.Info("conversion started",
		zap.String("id", id),
		zap.String("source", req.Source()),
		zap.Float64("detail_level", req.DetailLevel),
		zap.Float64("model_width", req.ModelWidth),
		zap.Float64("model_thickness", req.ModelThickness),
		zap.Float64("base_thickness", req.BaseThickness),
		zap.Bool("skip_depth", req.SkipDepth),
		zap.Bool("invert_depth", req.InvertDepth))

	res, err := c.convert(ctx, id, req)
	if err != nil {
		res = failed(id, err)
		logger.Warn("conversion failed",
			zap.String("id", id),
			zap.String("kind", string(res.ErrorKind)),
			zap.Error(err))
	} else {
		logger.Info("conversion finished",
			zap.String("id", id),
			zap.String("depth_map", res.DepthMapPath),
			zap.String("mesh", res.MeshPath),
			zap.Int("triangles", res.Triangles),
			zap.Duration("elapsed", time.Since(start)))
	}
	res.Duration = time.Since(start)

	if c.recorder != nil {
		if rerr := c.recorder.Record(ctx, req.Source(), res); rerr != nil {
			logger.Warn("failed to record conversion", zap.String("id", id), zap.Error(rerr))
		}
	}
	return res
}

func (c *Converter) convert(ctx context.Context, id string, req Request) (res Result, err error) {
	params := req.meshParams()
	if err := params.Validate(); err != nil {
		return res, wrap("validating request", err)
	}

	img := req.Image
	if img == nil {
		stage := time.Now()
		var format string
		img, format, err = c.loader.Load(ctx, req.ImagePath)
		if err != nil {
			return res, wrap("loading image", err)
		}
		logger.Debug("image loaded",
			zap.String("format", format),
			zap.Int("width", img.Bounds().Dx()),
			zap.Int("height", img.Bounds().Dy()),
			zap.Duration("elapsed", time.Since(stage)))
	}

	stage := time.Now()
	grid, err := heightmap.Build(img, req.heightmapOptions(c.opts.MaxSamples))
	if err != nil {
		return res, wrap("deriving heightmap", err)
	}
	logger.Debug("heightmap derived",
		zap.Int("width", grid.Width()),
		zap.Int("height", grid.Height()),
		zap.Duration("elapsed", time.Since(stage)))

	dir, err := filepath.Abs(c.opts.OutputDir)
	if err != nil {
		return res, &Error{Kind: KindWriteFailure, Op: "resolving output dir", Err: err}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return res, &Error{Kind: KindWriteFailure, Op: "creating output dir", Err: err}
	}
	depthName, meshName := ArtifactNames(id)
	depthPath := filepath.Join(dir, depthName)
	meshPath := filepath.Join(dir, meshName)

	// Remove what was written if a later stage fails.
	defer func() {
		if err != nil {
			os.Remove(depthPath)
			os.Remove(meshPath)
		}
	}()

	if err = WritePNG(depthPath, grid.Image()); err != nil {
		return res, &Error{Kind: KindWriteFailure, Op: "writing depth map", Err: err}
	}

	stage = time.Now()
	m, err := c.builder.Build(ctx, grid, params)
	if err != nil {
		return res, wrap("building mesh", err)
	}
	logger.Debug("mesh built",
		zap.Int("triangles", m.TriangleCount()),
		zap.Duration("elapsed", time.Since(stage)))

	if c.opts.Verify {
		if err = m.CheckClosed(); err != nil {
			return res, wrap("verifying mesh", err)
		}
	}

	stage = time.Now()
	if err = stl.WriteFile(meshPath, m, c.opts.Format); err != nil {
		return res, &Error{Kind: KindWriteFailure, Op: "writing mesh", Err: err}
	}
	logger.Debug("mesh written",
		zap.String("format", c.opts.Format.String()),
		zap.Duration("elapsed", time.Since(stage)))

	return Result{
		Status:       StatusSuccess,
		ID:           id,
		DepthMapPath: depthPath,
		MeshPath:     meshPath,
		Triangles:    m.TriangleCount(),
		Width:        grid.Width(),
		Height:       grid.Height(),
	}, nil
}

// DepthMap derives the depth grid for req without building a mesh.
func (c *Converter) DepthMap(ctx context.Context, req Request) (*heightmap.Grid, error) {
	img := req.Image
	if img == nil {
		var err error
		if img, _, err = c.loader.Load(ctx, req.ImagePath); err != nil {
			return nil, wrap("loading image", err)
		}
	}
	g, err := heightmap.Build(img, req.heightmapOptions(c.opts.MaxSamples))
	if err != nil {
		return nil, wrap("deriving heightmap", err)
	}
	return g, nil
}

// WritePNG writes img to path, replacing any existing file. A failed
// write removes the file.
func WritePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}
