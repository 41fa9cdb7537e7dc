// Package main is the entry point for the oxy-atlas scene consolidation CLI.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-atlas/atlas"
	"github.com/Carmen-Shannon/oxy-atlas/codec"
	"github.com/Carmen-Shannon/oxy-atlas/config"
	"github.com/Carmen-Shannon/oxy-atlas/document"
	"github.com/Carmen-Shannon/oxy-atlas/logger"
	"github.com/Carmen-Shannon/oxy-atlas/scene"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.LogFile)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("consolidation failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	in := config.InputPath()
	out := config.OutputPath()
	if in == "" || out == "" {
		return errors.New("both -in and -out are required")
	}

	channels, err := resolveChannels(cfg.Atlas.Channels, log)
	if err != nil {
		return err
	}

	doc := document.NewDocument(document.WithLogger(log))
	s, err := doc.Load(in)
	if err != nil {
		return fmt.Errorf("loading %s: %w", in, err)
	}

	opts := []atlas.PipelineBuilderOption{
		atlas.WithMaxSize(cfg.Atlas.MaxSize),
		atlas.WithCeiling(cfg.Atlas.Ceiling),
		atlas.WithPadding(cfg.Atlas.Padding),
		atlas.WithMaxBins(cfg.Atlas.MaxBins),
		atlas.WithSingleBin(cfg.Atlas.SingleBin),
		atlas.WithFormat(resolveFormat(cfg.Output.Format)),
		atlas.WithQuality(cfg.Output.Quality),
		atlas.WithLogger(log),
	}
	if channels != nil {
		opts = append(opts, atlas.WithChannels(channels))
	}
	if cfg.Atlas.Workers > 0 {
		opts = append(opts, atlas.WithWorkers(cfg.Atlas.Workers))
	}

	result, err := atlas.NewPipeline(opts...).Run(s)
	if err != nil {
		return err
	}

	if err := doc.Save(result.Scene, out); err != nil {
		return fmt.Errorf("saving %s: %w", out, err)
	}

	if cfg.Output.Layout != "" {
		if err := writeLayout(result.Layouts, cfg.Output.Layout); err != nil {
			return fmt.Errorf("writing layout report: %w", err)
		}
	}

	log.Info("consolidation complete",
		zap.String("output", out),
		zap.Float64("scale", result.Scale))
	return nil
}

// resolveChannels maps configured channel names to channels, warning on and
// skipping unknown names. A nil result means the pipeline default set.
func resolveChannels(names []string, log *zap.Logger) ([]scene.Channel, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var channels []scene.Channel
	for _, name := range names {
		ch, err := scene.ParseChannel(name)
		if err != nil {
			log.Warn("skipping unknown channel", zap.String("name", name))
			continue
		}
		channels = append(channels, ch)
	}
	if channels == nil {
		return nil, errors.New("no recognized channels configured")
	}
	return channels, nil
}

// resolveFormat accepts shorthand format names alongside full MIME types.
func resolveFormat(format string) string {
	switch format {
	case "png", "":
		return codec.MimePNG
	case "jpeg", "jpg":
		return codec.MimeJPEG
	case "webp":
		return codec.MimeWebP
	default:
		return format
	}
}

// writeLayout serializes the per-channel layout records as indented JSON.
func writeLayout(layouts []atlas.LayoutRecord, path string) error {
	data, err := json.MarshalIndent(layouts, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
