// Package sizer assigns each source texture a target power-of-two resolution
// before packing. Sizing is density-aware: textures whose materials cover a
// large share of the scene's surface area keep more resolution than ones
// covering slivers. Decoding and resampling are independent per texture, so
// the work is dispatched on a dynamic worker pool and joined before the
// packer runs.
package sizer

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-atlas/codec"
	"github.com/Carmen-Shannon/oxy-atlas/common"
	"github.com/Carmen-Shannon/oxy-atlas/scene"
	"go.uber.org/zap"
)

// Relative-area thresholds mapping a material's share of scene surface area
// to a resolution bucket.
const (
	bucketLargeThreshold  = 0.6
	bucketMediumThreshold = 0.35
	bucketSmallThreshold  = 0.15

	bucketLarge  = 2048
	bucketMedium = 1024
	bucketSmall  = 512
	bucketTiny   = 256
)

var errNoDimensions = errors.New("cannot determine texture dimensions")

// Entry is one texture scheduled for atlasing in one channel pass: the source
// texture object, the materials that reference it in that channel, and the
// sizing results. Entries are never shared across channel passes; only the
// sizer mutates them.
type Entry struct {
	// Texture is the source texture object.
	Texture *scene.Texture

	// Channel is the channel pass this entry belongs to.
	Channel scene.Channel

	// Materials are the materials referencing the texture in this channel.
	Materials []*scene.Material

	// Area is the world-space surface area covered by the owning materials,
	// or 0 when no area metadata is available.
	Area float32

	// NaturalWidth, NaturalHeight is the decoded source resolution,
	// populated by the sizer.
	NaturalWidth, NaturalHeight int

	// TargetWidth, TargetHeight is the selected pack resolution, populated
	// by the sizer.
	TargetWidth, TargetHeight int

	// Image is the decoded pixel data at the target resolution, populated
	// by the sizer.
	Image image.Image
}

// sizerImpl is the implementation of the Sizer interface.
type sizerImpl struct {
	maxSize int
	ceiling int
	workers int
	codec   codec.Codec
	logger  *zap.Logger
}

// Sizer selects target resolutions for texture entries and resamples their
// pixel data ahead of packing.
type Sizer interface {
	// SizeAll decodes every entry, applies the absolute ceiling, selects the
	// density bucket, snaps the target down to a power of two that never
	// upscales the source, and resamples the pixels. Entries are processed
	// concurrently; the call returns once every entry has finished.
	//
	// Parameters:
	//   - entries: the entries of one channel pass
	//
	// Returns:
	//   - error: the first decode failure encountered (a hard error for the pass)
	SizeAll(entries []*Entry) error
}

var _ Sizer = &sizerImpl{}

// SizerBuilderOption is a functional option for configuring a Sizer via NewSizer.
type SizerBuilderOption func(*sizerImpl)

// WithMaxSize is an option builder that sets the maximum target dimension.
//
// Parameters:
//   - size: the maximum width/height in pixels
//
// Returns:
//   - SizerBuilderOption: a function that applies the max size option to a sizer
func WithMaxSize(size int) SizerBuilderOption {
	return func(s *sizerImpl) {
		s.maxSize = size
	}
}

// WithCeiling is an option builder that sets the absolute source ceiling:
// sources larger than this are downscaled fit-inside before size selection.
//
// Parameters:
//   - ceiling: the ceiling in pixels
//
// Returns:
//   - SizerBuilderOption: a function that applies the ceiling option to a sizer
func WithCeiling(ceiling int) SizerBuilderOption {
	return func(s *sizerImpl) {
		s.ceiling = ceiling
	}
}

// WithWorkers is an option builder that sets the number of concurrent resize
// workers.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - SizerBuilderOption: a function that applies the worker count option to a sizer
func WithWorkers(n int) SizerBuilderOption {
	return func(s *sizerImpl) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithCodec is an option builder that sets the image codec used for decode
// and resample work.
//
// Parameters:
//   - c: the codec instance
//
// Returns:
//   - SizerBuilderOption: a function that applies the codec option to a sizer
func WithCodec(c codec.Codec) SizerBuilderOption {
	return func(s *sizerImpl) {
		s.codec = c
	}
}

// WithLogger is an option builder that sets the logger used for sizing
// diagnostics.
//
// Parameters:
//   - logger: the zap logger instance
//
// Returns:
//   - SizerBuilderOption: a function that applies the logger option to a sizer
func WithLogger(logger *zap.Logger) SizerBuilderOption {
	return func(s *sizerImpl) {
		s.logger = logger
	}
}

// NewSizer creates a new Sizer instance configured with the provided options.
// Defaults: 2048 max size, 4096 ceiling, one worker per CPU.
//
// Parameters:
//   - opts: optional configuration
//
// Returns:
//   - Sizer: the sizer instance
func NewSizer(opts ...SizerBuilderOption) Sizer {
	s := &sizerImpl{
		maxSize: 2048,
		ceiling: 4096,
		workers: runtime.NumCPU(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.codec == nil {
		s.codec = codec.NewCodec(codec.WithLogger(s.logger))
	}
	return s
}

func (s *sizerImpl) SizeAll(entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var maxArea float32
	for _, e := range entries {
		if e.Area > maxArea {
			maxArea = e.Area
		}
	}

	// Entries are disjoint, so each task owns its entry exclusively; the
	// WaitGroup is the join barrier before packing.
	pool := worker.NewDynamicWorkerPool(s.workers, len(entries), 1*time.Second)
	errs := make([]error, len(entries))

	var wg sync.WaitGroup
	for i, e := range entries {
		wg.Add(1)
		idx := i
		entry := e
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				errs[idx] = s.sizeEntry(entry, maxArea)
				return nil, nil
			},
		})
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("channel %s: texture %q: %w",
				entries[i].Channel, entries[i].Texture.Name, err)
		}
	}
	return nil
}

// sizeEntry decodes one entry and selects its target resolution.
func (s *sizerImpl) sizeEntry(e *Entry, maxArea float32) error {
	img, err := s.codec.Decode(e.Texture.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", errNoDimensions, err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return errNoDimensions
	}
	e.NaturalWidth, e.NaturalHeight = w, h

	// Oversized sources come down to the ceiling before selection.
	if w > s.ceiling || h > s.ceiling {
		img = s.codec.ResizeFit(img, s.ceiling, s.ceiling, codec.FitInside)
		b = img.Bounds()
		w, h = b.Dx(), b.Dy()
	}

	bucket := s.bucketFor(e.Area, maxArea)
	if bucket > s.maxSize {
		bucket = s.maxSize
	}

	e.TargetWidth = min(bucket, common.PrevPow2(w))
	e.TargetHeight = min(bucket, common.PrevPow2(h))

	if e.TargetWidth != w || e.TargetHeight != h {
		img = s.codec.Resize(img, e.TargetWidth, e.TargetHeight)
	}
	e.Image = img

	s.logger.Debug("sized texture",
		zap.String("texture", e.Texture.Name),
		zap.String("channel", e.Channel.String()),
		zap.Int("naturalWidth", e.NaturalWidth),
		zap.Int("naturalHeight", e.NaturalHeight),
		zap.Int("targetWidth", e.TargetWidth),
		zap.Int("targetHeight", e.TargetHeight))
	return nil
}

// bucketFor maps a material area to a resolution bucket. Without area
// metadata sizing degrades to pure resolution-based selection, so the bucket
// imposes no extra limit.
func (s *sizerImpl) bucketFor(area, maxArea float32) int {
	if maxArea <= 0 {
		return s.maxSize
	}
	relative := area / maxArea
	switch {
	case relative >= bucketLargeThreshold:
		return bucketLarge
	case relative >= bucketMediumThreshold:
		return bucketMedium
	case relative >= bucketSmallThreshold:
		return bucketSmall
	default:
		return bucketTiny
	}
}
