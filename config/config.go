// Package config handles CLI configuration loading: defaults, an optional
// YAML file, and command-line flag overrides, in that priority order.
package config

// Config holds all consolidation settings.
type Config struct {
	Atlas   AtlasConfig   `yaml:"atlas"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// AtlasConfig holds packing and channel settings.
type AtlasConfig struct {
	// MaxSize is the atlas dimension cap in pixels, power of two.
	MaxSize int `yaml:"max_size"`

	// Ceiling is the absolute source texture cap in pixels; larger inputs are
	// downscaled fit-inside before sizing.
	Ceiling int `yaml:"ceiling"`

	// Padding is the gutter in pixels charged to each rect's right and
	// bottom edges.
	Padding int `yaml:"padding"`

	// MaxBins caps how many atlas pages multi-bin packing may open.
	MaxBins int `yaml:"max_bins"`

	// SingleBin forces everything into one page, downscaling uniformly when
	// the content does not fit at full resolution.
	SingleBin bool `yaml:"single_bin"`

	// Channels lists the texture channels to consolidate by name. Empty
	// means all supported channels.
	Channels []string `yaml:"channels"`

	// Workers bounds texture decode/resize concurrency. Zero picks a value
	// from the CPU count.
	Workers int `yaml:"workers"`
}

// OutputConfig holds atlas encoding and report settings.
type OutputConfig struct {
	// Format is the atlas image format, "png", "jpeg" or a full MIME type.
	// Lossless channels ignore it and stay PNG.
	Format string `yaml:"format"`

	// Quality is the JPEG quality, 1 to 100.
	Quality int `yaml:"quality"`

	// Layout is an optional path for the JSON layout report.
	Layout string `yaml:"layout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the standard consolidation settings.
//
// Returns:
//   - *Config: the default configuration
func Default() *Config {
	return &Config{
		Atlas: AtlasConfig{
			MaxSize:   2048,
			Ceiling:   4096,
			Padding:   2,
			MaxBins:   4,
			SingleBin: false,
			Workers:   0,
		},
		Output: OutputConfig{
			Format:  "png",
			Quality: 90,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
