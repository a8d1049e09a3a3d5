package relief

import (
	"github.com/Faultbox/reliefmesh/internal/config"
	"github.com/Faultbox/reliefmesh/internal/source"
	"github.com/Faultbox/reliefmesh/pkg/stl"
)

// RequestDefaults returns the request parameters configured in cfg.
func RequestDefaults(cfg *config.Config) Request {
	return Request{
		DetailLevel:    cfg.Relief.DetailLevel,
		ModelWidth:     cfg.Relief.ModelWidthMM,
		ModelThickness: cfg.Relief.ModelThicknessMM,
		BaseThickness:  cfg.Relief.BaseThicknessMM,
		SkipDepth:      cfg.Relief.SkipDepthDerivation,
		InvertDepth:    cfg.Relief.InvertDepth,
	}
}

// FromConfig builds a converter from cfg. rec may be nil.
func FromConfig(cfg *config.Config, rec Recorder) (*Converter, error) {
	format, err := stl.ParseFormat(cfg.Output.MeshFormat)
	if err != nil {
		return nil, err
	}
	opts := Options{
		OutputDir: cfg.Output.Dir,
		Format:    format,
		Workers:   cfg.Mesh.Workers,
		Verify:    cfg.Mesh.Verify,

		MaxSamples: cfg.Mesh.MaxSamples,
	}
	loader := source.NewLoader(cfg.Fetch.Timeout, cfg.Fetch.MaxBytes)
	return NewConverter(opts, loader, rec), nil
}
