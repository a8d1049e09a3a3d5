package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagAddr      = flag.String("addr", "", "HTTP listen address")
	flagOutput    = flag.String("output", "", "Output directory for artifacts")
	flagSkipDepth = flag.Bool("skip-depth", false, "Use the direct heightmap pipeline by default")
	flagInvert    = flag.Bool("invert", false, "Invert depth by default")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
		cfg.Server.Mode = "debug"
	}
	if *flagAddr != "" {
		cfg.Server.Addr = *flagAddr
	}
	if *flagOutput != "" {
		cfg.Output.Dir = *flagOutput
	}
	if *flagSkipDepth {
		cfg.Relief.SkipDepthDerivation = true
	}
	if *flagInvert {
		cfg.Relief.InvertDepth = true
	}
}
