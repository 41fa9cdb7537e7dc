// Package packer bin-packs sized texture rectangles into square power-of-two
// atlas bins. Placement is best-fit without rotation, so a packed rect maps
// back to its source through a pure UV scale and offset. The packer also
// implements the single-bin downscale search used when the caller demands
// exactly one atlas.
package packer

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-atlas/common"
	"go.uber.org/zap"
)

// Common errors returned by the packer.
var (
	// ErrCapacity is returned when the rectangles cannot fit within the
	// configured bin count and maximum dimension.
	ErrCapacity = errors.New("atlas capacity exceeded")

	errNoItems = errors.New("no items to pack")
)

// PackItem is one rectangle to place, immutable once built.
type PackItem struct {
	// ID identifies the item; ties in the deterministic sort break on it.
	ID int

	// Width, Height is the rectangle size in pixels.
	Width, Height int

	// Payload is carried through to the placed Rect untouched.
	Payload any
}

// Rect is one placed rectangle inside a bin.
type Rect struct {
	// X, Y is the top-left placement in bin pixels.
	X, Y int

	// Width, Height is the placed size in pixels.
	Width, Height int

	// Item is the PackItem this rect was placed for.
	Item PackItem
}

// Bin is one atlas canvas and its placed rects. Width always equals Height
// and both are powers of two.
type Bin struct {
	// Width, Height is the bin size in pixels.
	Width, Height int

	// Rects are the placed rectangles.
	Rects []Rect
}

// packerImpl is the implementation of the Packer interface.
type packerImpl struct {
	maxSize  int
	minSize  int
	maxBins  int
	padding  int
	minScale float64
	logger   *zap.Logger
}

// Packer places rectangles into square power-of-two bins.
type Packer interface {
	// Pack places the items into as few bins as possible, growing the trial
	// bin size from the next power of two covering the largest rectangle
	// until the bin count fits the configured maximum.
	//
	// Parameters:
	//   - items: the rectangles to place
	//
	// Returns:
	//   - []Bin: the packed bins
	//   - error: ErrCapacity when the items cannot fit within the configuration
	Pack(items []PackItem) ([]Bin, error)

	// PackSingle packs into exactly one bin, uniformly downscaling the items
	// when they do not fit at full size. The scale is found by halving until
	// a packable bound exists, then refining with ten binary-search
	// iterations, keeping the largest succeeding scale.
	//
	// Parameters:
	//   - items: the rectangles to place
	//
	// Returns:
	//   - []Bin: a single packed bin
	//   - float64: the scale factor applied to every item (1.0 when none was needed)
	//   - error: ErrCapacity when no scale above the floor packs
	PackSingle(items []PackItem) ([]Bin, float64, error)
}

var _ Packer = &packerImpl{}

// PackerBuilderOption is a functional option for configuring a Packer via NewPacker.
type PackerBuilderOption func(*packerImpl)

// WithMaxSize is an option builder that sets the maximum bin dimension.
//
// Parameters:
//   - size: the maximum bin width/height in pixels
//
// Returns:
//   - PackerBuilderOption: a function that applies the max size option to a packer
func WithMaxSize(size int) PackerBuilderOption {
	return func(p *packerImpl) {
		p.maxSize = size
	}
}

// WithMaxBins is an option builder that sets the maximum number of bins Pack
// may produce.
//
// Parameters:
//   - n: the bin count limit
//
// Returns:
//   - PackerBuilderOption: a function that applies the max bins option to a packer
func WithMaxBins(n int) PackerBuilderOption {
	return func(p *packerImpl) {
		p.maxBins = n
	}
}

// WithPadding is an option builder that sets the pixel padding kept between
// placed rectangles.
//
// Parameters:
//   - padding: the padding in pixels
//
// Returns:
//   - PackerBuilderOption: a function that applies the padding option to a packer
func WithPadding(padding int) PackerBuilderOption {
	return func(p *packerImpl) {
		p.padding = padding
	}
}

// WithLogger is an option builder that sets the logger used for pack diagnostics.
//
// Parameters:
//   - logger: the zap logger instance
//
// Returns:
//   - PackerBuilderOption: a function that applies the logger option to a packer
func WithLogger(logger *zap.Logger) PackerBuilderOption {
	return func(p *packerImpl) {
		p.logger = logger
	}
}

// NewPacker creates a new Packer instance configured with the provided
// options. Defaults: 2048 max size, 4 bins, 2px padding, 256 minimum bin
// size, 1/64 single-bin scale floor.
//
// Parameters:
//   - opts: optional configuration
//
// Returns:
//   - Packer: the packer instance
func NewPacker(opts ...PackerBuilderOption) Packer {
	p := &packerImpl{
		maxSize:  2048,
		minSize:  256,
		maxBins:  4,
		padding:  2,
		minScale: 1.0 / 64.0,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *packerImpl) Pack(items []PackItem) ([]Bin, error) {
	if len(items) == 0 {
		return nil, errNoItems
	}

	sorted := sortItems(items)

	trial := p.startSize(sorted)
	if trial > p.maxSize {
		return nil, p.capacityError(len(items), trial)
	}

	for {
		bins, ok := p.packAll(sorted, trial)
		if ok && len(bins) <= p.maxBins {
			p.logger.Debug("packed atlas",
				zap.Int("binSize", trial),
				zap.Int("bins", len(bins)),
				zap.Int("items", len(items)))
			return bins, nil
		}

		trial <<= 1
		if trial > p.maxSize {
			return nil, p.capacityError(len(items), trial)
		}
	}
}

func (p *packerImpl) PackSingle(items []PackItem) ([]Bin, float64, error) {
	if len(items) == 0 {
		return nil, 0, errNoItems
	}

	if bins, ok := p.packSingleAt(items, 1.0); ok {
		return bins, 1.0, nil
	}

	// Seed a packable lower bound by halving, bail below the scale floor.
	good := 1.0
	for {
		good /= 2
		if good < p.minScale {
			return nil, 0, fmt.Errorf("%w: no single-bin fit above scale %.4f (items=%d, maxSize=%d, padding=%d)",
				ErrCapacity, p.minScale, len(items), p.maxSize, p.padding)
		}
		if _, ok := p.packSingleAt(items, good); ok {
			break
		}
	}

	// Refine between the failing upper bound and the succeeding lower bound,
	// keeping the best (largest) scale that still packs.
	bad := good * 2
	for i := 0; i < 10; i++ {
		mid := (good + bad) / 2
		if _, ok := p.packSingleAt(items, mid); ok {
			good = mid
		} else {
			bad = mid
		}
	}

	bins, ok := p.packSingleAt(items, good)
	if !ok {
		// The refinement only ever promotes scales that packed.
		return nil, 0, fmt.Errorf("%w: scale %.4f no longer packs", ErrCapacity, good)
	}

	p.logger.Debug("packed single atlas",
		zap.Float64("scale", good),
		zap.Int("binSize", bins[0].Width),
		zap.Int("items", len(items)))
	return bins, good, nil
}

// packSingleAt scales every item and attempts a one-bin pack.
func (p *packerImpl) packSingleAt(items []PackItem, scale float64) ([]Bin, bool) {
	scaled := make([]PackItem, len(items))
	for i, it := range items {
		it.Width = scaleDim(it.Width, scale)
		it.Height = scaleDim(it.Height, scale)
		scaled[i] = it
	}
	sorted := sortItems(scaled)

	trial := p.startSize(sorted)
	for trial <= p.maxSize {
		bins, ok := p.packAll(sorted, trial)
		if ok && len(bins) == 1 {
			return bins, true
		}
		trial <<= 1
	}
	return nil, false
}

// scaleDim applies a uniform scale with a one-pixel floor.
func scaleDim(v int, scale float64) int {
	s := int(float64(v) * scale)
	if s < 1 {
		return 1
	}
	return s
}

// startSize returns the first trial bin size: the next power of two covering
// the largest single rectangle dimension, never below the minimum bin size.
func (p *packerImpl) startSize(items []PackItem) int {
	maxDim := 0
	for _, it := range items {
		if it.Width > maxDim {
			maxDim = it.Width
		}
		if it.Height > maxDim {
			maxDim = it.Height
		}
	}
	size := common.NextPow2(maxDim)
	if size < p.minSize {
		size = p.minSize
	}
	return size
}

// packAll places every item into bins of the given size, opening new bins as
// needed. Returns false when an item cannot fit even in an empty bin.
func (p *packerImpl) packAll(sorted []PackItem, size int) ([]Bin, bool) {
	var bins []*maxRectsBin

	for _, it := range sorted {
		placed := false
		for _, b := range bins {
			if b.place(it) {
				placed = true
				break
			}
		}
		if placed {
			continue
		}

		b := newMaxRectsBin(size, p.padding)
		if !b.place(it) {
			return nil, false
		}
		bins = append(bins, b)
	}

	out := make([]Bin, len(bins))
	for i, b := range bins {
		out[i] = Bin{Width: size, Height: size, Rects: b.rects}
	}
	return out, true
}

// sortItems returns the items in deterministic pack order: largest max
// dimension first, then largest area, then ID.
func sortItems(items []PackItem) []PackItem {
	sorted := make([]PackItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		di := max(sorted[i].Width, sorted[i].Height)
		dj := max(sorted[j].Width, sorted[j].Height)
		if di != dj {
			return di > dj
		}
		ai := sorted[i].Width * sorted[i].Height
		aj := sorted[j].Width * sorted[j].Height
		if ai != aj {
			return ai > aj
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

func (p *packerImpl) capacityError(items, trial int) error {
	return fmt.Errorf("%w: %d items do not fit (trialSize=%d, maxSize=%d, maxBins=%d, padding=%d)",
		ErrCapacity, items, trial, p.maxSize, p.maxBins, p.padding)
}
