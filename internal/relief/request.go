// Package relief converts images into printable relief meshes.
//
// A conversion resolves the source image, derives a depth grid, writes it
// as a PNG preview, builds the closed relief solid and writes it as STL.
// Every outcome is reported as a Result; errors never escape Convert.
package relief

import (
	"image"
	"time"

	"github.com/Faultbox/reliefmesh/pkg/heightmap"
	"github.com/Faultbox/reliefmesh/pkg/mesh"
)

// Request describes one conversion.
type Request struct {
	ImagePath string      // local path or http(s) URL
	Image     image.Image // pre-decoded source; skips ImagePath resolution

	DetailLevel    float64 // target samples = 320 * DetailLevel
	ModelWidth     float64 // mm
	ModelThickness float64 // mm of relief at full intensity
	BaseThickness  float64 // mm of slab under the relief
	SkipDepth      bool    // use the direct pipeline
	InvertDepth    bool
}

// DefaultRequest returns a request carrying the stock parameters.
func DefaultRequest() Request {
	return Request{
		DetailLevel:    1.0,
		ModelWidth:     50.0,
		ModelThickness: 5.0,
		BaseThickness:  2.0,
	}
}

// WithSource returns a copy of r reading from path.
func (r Request) WithSource(path string) Request {
	r.ImagePath = path
	r.Image = nil
	return r
}

// Source names the request's input for logs and records.
func (r Request) Source() string {
	if r.Image != nil && r.ImagePath == "" {
		return "<image>"
	}
	return r.ImagePath
}

func (r Request) heightmapOptions(maxSamples int) heightmap.Options {
	p := heightmap.PipelineDepth
	if r.SkipDepth {
		p = heightmap.PipelineDirect
	}
	return heightmap.Options{
		DetailLevel: r.DetailLevel,
		Invert:      r.InvertDepth,
		Pipeline:    p,
		MaxSamples:  maxSamples,
	}
}

func (r Request) meshParams() mesh.Params {
	return mesh.Params{
		ModelWidth:     r.ModelWidth,
		ModelThickness: r.ModelThickness,
		BaseThickness:  r.BaseThickness,
	}
}

// Result statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Result is the structured outcome of a conversion.
type Result struct {
	Status       string        `json:"status"`
	ID           string        `json:"id"`
	DepthMapPath string        `json:"depth_map_path,omitempty"`
	MeshPath     string        `json:"mesh_path,omitempty"`
	Triangles    int           `json:"triangles,omitempty"`
	Width        int           `json:"grid_width,omitempty"`
	Height       int           `json:"grid_height,omitempty"`
	Error        string        `json:"error,omitempty"`
	ErrorKind    Kind          `json:"error_kind,omitempty"`
	Duration     time.Duration `json:"-"`
}

// OK reports whether the conversion succeeded.
func (r Result) OK() bool { return r.Status == StatusSuccess }

func failed(id string, err error) Result {
	return Result{
		Status:    StatusFailed,
		ID:        id,
		Error:     err.Error(),
		ErrorKind: KindOf(err),
	}
}
