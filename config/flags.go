package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to YAML config file")
	flagIn        = flag.String("in", "", "Input .gltf or .glb file")
	flagOut       = flag.String("out", "", "Output .gltf or .glb file")
	flagMaxSize   = flag.Int("max-size", 0, "Atlas dimension cap in pixels")
	flagCeiling   = flag.Int("ceiling", 0, "Source texture cap in pixels, larger inputs downscale")
	flagPadding   = flag.Int("padding", -1, "Gutter between packed rects in pixels")
	flagMaxBins   = flag.Int("max-bins", 0, "Maximum number of atlas pages")
	flagSingleBin = flag.Bool("single-bin", false, "Force a single atlas page, downscaling to fit")
	flagChannels  = flag.String("channels", "", "Comma-separated channel names to consolidate")
	flagFormat    = flag.String("format", "", "Atlas image format (png, jpeg)")
	flagQuality   = flag.Int("quality", 0, "JPEG quality, 1-100")
	flagLayout    = flag.String("layout", "", "Path for the JSON layout report")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via the -config
// flag.
//
// Returns:
//   - string: the config file path, or ""
func ConfigPath() string {
	return *flagConfig
}

// InputPath returns the input document path from the -in flag.
//
// Returns:
//   - string: the input file path, or ""
func InputPath() string {
	return *flagIn
}

// OutputPath returns the output document path from the -out flag.
//
// Returns:
//   - string: the output file path, or ""
func OutputPath() string {
	return *flagOut
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagMaxSize > 0 {
		cfg.Atlas.MaxSize = *flagMaxSize
	}
	if *flagCeiling > 0 {
		cfg.Atlas.Ceiling = *flagCeiling
	}
	if *flagPadding >= 0 {
		cfg.Atlas.Padding = *flagPadding
	}
	if *flagMaxBins > 0 {
		cfg.Atlas.MaxBins = *flagMaxBins
	}
	if *flagSingleBin {
		cfg.Atlas.SingleBin = true
	}
	if *flagChannels != "" {
		cfg.Atlas.Channels = splitChannels(*flagChannels)
	}
	if *flagFormat != "" {
		cfg.Output.Format = *flagFormat
	}
	if *flagQuality > 0 {
		cfg.Output.Quality = *flagQuality
	}
	if *flagLayout != "" {
		cfg.Output.Layout = *flagLayout
	}
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
}
