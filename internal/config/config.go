// Package config handles reliefmesh configuration loading and management.
package config

import "time"

// Config holds all settings.
type Config struct {
	Relief  ReliefConfig  `yaml:"relief"`
	Output  OutputConfig  `yaml:"output"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Mesh    MeshConfig    `yaml:"mesh"`
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// ReliefConfig holds the parameters used when a request omits them.
type ReliefConfig struct {
	DetailLevel         float64 `yaml:"detail_level"`
	ModelWidthMM        float64 `yaml:"model_width_mm"`
	ModelThicknessMM    float64 `yaml:"model_thickness_mm"`
	BaseThicknessMM     float64 `yaml:"base_thickness_mm"`
	SkipDepthDerivation bool    `yaml:"skip_depth_derivation"`
	InvertDepth         bool    `yaml:"invert_depth"`
}

// OutputConfig holds artifact locations.
type OutputConfig struct {
	Dir        string `yaml:"dir"`
	UploadDir  string `yaml:"upload_dir"`
	MeshFormat string `yaml:"mesh_format"` // ascii or binary
}

// FetchConfig holds remote image fetch settings.
type FetchConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	MaxBytes int64         `yaml:"max_bytes"`
}

// MeshConfig holds mesh generation settings.
type MeshConfig struct {
	Workers int  `yaml:"workers"` // 0 = GOMAXPROCS
	Verify  bool `yaml:"verify"`

	MaxSamples int `yaml:"max_samples"` // heightmap width*height limit
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	Mode string `yaml:"mode"` // release, debug or test
}

// StoreConfig holds conversion record settings.
type StoreConfig struct {
	Path string `yaml:"path"` // empty disables records
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // console or json
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Relief: ReliefConfig{
			DetailLevel:         1.0,
			ModelWidthMM:        50.0,
			ModelThicknessMM:    5.0,
			BaseThicknessMM:     2.0,
			SkipDepthDerivation: false,
			InvertDepth:         false,
		},
		Output: OutputConfig{
			Dir:        "./output",
			UploadDir:  "./uploads",
			MeshFormat: "ascii",
		},
		Fetch: FetchConfig{
			Timeout:  30 * time.Second,
			MaxBytes: 64 << 20,
		},
		Mesh: MeshConfig{
			Workers:    0,
			Verify:     false,
			MaxSamples: 1 << 22,
		},
		Server: ServerConfig{
			Addr: ":8080",
			Mode: "release",
		},
		Store: StoreConfig{
			Path: "",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "console",
			LogFile: "",
		},
	}
}
