// Package atlas orchestrates the consolidation pipeline: bake geometry to
// world space, pack every channel's textures into shared atlas layouts, remap
// UVs into the canonical layout, rewire materials onto the produced atlases,
// and merge all primitives into a single mesh. The packer runs once, for the
// canonical channel; every other channel reuses its rect layout verbatim.
package atlas

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-atlas/baker"
	"github.com/Carmen-Shannon/oxy-atlas/codec"
	"github.com/Carmen-Shannon/oxy-atlas/common"
	"github.com/Carmen-Shannon/oxy-atlas/packer"
	"github.com/Carmen-Shannon/oxy-atlas/remap"
	"github.com/Carmen-Shannon/oxy-atlas/scene"
	"github.com/Carmen-Shannon/oxy-atlas/sizer"
	"go.uber.org/zap"
)

var (
	errNilScene   = errors.New("nil scene")
	errNoChannels = errors.New("no channels enabled")
)

// fallbackRectSize is the synthetic rect dimension for materials with no
// texture in any enabled channel.
const fallbackRectSize = 16

// Result is the outcome of one pipeline run.
type Result struct {
	// Scene is the consolidated scene: one mesh, one material per atlas bin,
	// only atlas textures.
	Scene *scene.Scene

	// Layouts are the per-channel layout records for verification tooling.
	Layouts []LayoutRecord

	// Scale is the uniform downscale the single-bin search applied, 1.0
	// otherwise.
	Scale float64
}

// placement locates one material's rect in the canonical layout.
type placement struct {
	bin  int
	rect packer.Rect
}

// pipelineImpl is the implementation of the Pipeline interface.
type pipelineImpl struct {
	channels  []scene.Channel
	maxSize   int
	ceiling   int
	padding   int
	maxBins   int
	singleBin bool
	format    string
	quality   int
	workers   int
	codec     codec.Codec
	logger    *zap.Logger
}

// Pipeline consolidates a scene into a single atlas-backed mesh.
type Pipeline interface {
	// Run executes the pipeline on the scene in place and returns the
	// consolidated result. The scene is rebuilt: its hierarchy collapses to
	// one node, its materials to one per atlas bin, its textures to the
	// produced atlases.
	//
	// Parameters:
	//   - s: the scene to consolidate
	//
	// Returns:
	//   - *Result: the consolidated scene, layouts and applied scale
	//   - error: input or capacity defects; the scene may be partially baked on failure
	Run(s *scene.Scene) (*Result, error)
}

var _ Pipeline = &pipelineImpl{}

// PipelineBuilderOption is a functional option for configuring a Pipeline via
// NewPipeline.
type PipelineBuilderOption func(*pipelineImpl)

// WithChannels is an option builder that sets the channels to consolidate.
//
// Parameters:
//   - channels: the enabled channels
//
// Returns:
//   - PipelineBuilderOption: a function that applies the channels option to a pipeline
func WithChannels(channels []scene.Channel) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		if len(channels) > 0 {
			p.channels = channels
		}
	}
}

// WithMaxSize is an option builder that sets the maximum atlas dimension.
//
// Parameters:
//   - size: the maximum atlas width/height in pixels
//
// Returns:
//   - PipelineBuilderOption: a function that applies the max size option to a pipeline
func WithMaxSize(size int) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.maxSize = size
	}
}

// WithCeiling is an option builder that sets the absolute source texture
// ceiling: inputs larger than this are downscaled fit-inside before size
// selection.
//
// Parameters:
//   - ceiling: the ceiling in pixels
//
// Returns:
//   - PipelineBuilderOption: a function that applies the ceiling option to a pipeline
func WithCeiling(ceiling int) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		if ceiling > 0 {
			p.ceiling = ceiling
		}
	}
}

// WithPadding is an option builder that sets the pixel padding between packed
// rects.
//
// Parameters:
//   - padding: the padding in pixels
//
// Returns:
//   - PipelineBuilderOption: a function that applies the padding option to a pipeline
func WithPadding(padding int) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.padding = padding
	}
}

// WithMaxBins is an option builder that sets the maximum atlas count per
// channel.
//
// Parameters:
//   - n: the bin count limit
//
// Returns:
//   - PipelineBuilderOption: a function that applies the max bins option to a pipeline
func WithMaxBins(n int) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.maxBins = n
	}
}

// WithSingleBin is an option builder that forces exactly one atlas per
// channel, uniformly downscaling textures when they do not fit.
//
// Parameters:
//   - single: true to enable single-bin mode
//
// Returns:
//   - PipelineBuilderOption: a function that applies the single-bin option to a pipeline
func WithSingleBin(single bool) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.singleBin = single
	}
}

// WithFormat is an option builder that sets the output MIME type for lossy
// channels. Lossless channels encode PNG regardless.
//
// Parameters:
//   - mimeType: the requested container type
//
// Returns:
//   - PipelineBuilderOption: a function that applies the format option to a pipeline
func WithFormat(mimeType string) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.format = mimeType
	}
}

// WithQuality is an option builder that sets the lossy encode quality.
//
// Parameters:
//   - quality: the quality 0-100
//
// Returns:
//   - PipelineBuilderOption: a function that applies the quality option to a pipeline
func WithQuality(quality int) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.quality = quality
	}
}

// WithWorkers is an option builder that sets the resize worker count.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - PipelineBuilderOption: a function that applies the worker count option to a pipeline
func WithWorkers(n int) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.workers = n
	}
}

// WithCodec is an option builder that sets the image codec.
//
// Parameters:
//   - c: the codec instance
//
// Returns:
//   - PipelineBuilderOption: a function that applies the codec option to a pipeline
func WithCodec(c codec.Codec) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.codec = c
	}
}

// WithLogger is an option builder that sets the logger shared by every
// pipeline component.
//
// Parameters:
//   - logger: the zap logger instance
//
// Returns:
//   - PipelineBuilderOption: a function that applies the logger option to a pipeline
func WithLogger(logger *zap.Logger) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.logger = logger
	}
}

// NewPipeline creates a new Pipeline instance configured with the provided
// options. Defaults: all four channels, 2048 max size, 2px padding, 4 bins,
// PNG output.
//
// Parameters:
//   - opts: optional configuration
//
// Returns:
//   - Pipeline: the pipeline instance
func NewPipeline(opts ...PipelineBuilderOption) Pipeline {
	p := &pipelineImpl{
		channels: append([]scene.Channel(nil), scene.CanonicalOrder...),
		maxSize:  2048,
		ceiling:  4096,
		padding:  2,
		maxBins:  4,
		format:   codec.MimePNG,
		quality:  90,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.codec == nil {
		p.codec = codec.NewCodec(codec.WithLogger(p.logger))
	}
	return p
}

func (p *pipelineImpl) Run(s *scene.Scene) (*Result, error) {
	if s == nil {
		return nil, errNilScene
	}
	if len(p.channels) == 0 {
		return nil, errNoChannels
	}

	bkr := baker.NewBaker(baker.WithLogger(p.logger))
	if err := bkr.Bake(s); err != nil {
		return nil, fmt.Errorf("bake geometry: %w", err)
	}
	areas := bkr.MaterialAreas(s)

	prims := collectPrimitives(s)
	primsByMaterial := groupByMaterial(prims)
	srcMaterials := append([]*scene.Material(nil), s.Materials...)

	canonical, ok := p.canonicalChannel(s)
	if !ok {
		p.logger.Info("no textures in any enabled channel, merging without atlases")
		return p.finish(s, srcMaterials, prims, nil, nil, nil, 1.0)
	}
	p.logger.Info("canonical channel resolved", zap.String("channel", canonical.String()))

	entries := p.collectEntries(s, canonical, areas)
	szr := sizer.NewSizer(
		sizer.WithMaxSize(p.maxSize),
		sizer.WithCeiling(p.ceiling),
		sizer.WithWorkers(p.workers),
		sizer.WithCodec(p.codec),
		sizer.WithLogger(p.logger),
	)
	if err := szr.SizeAll(entries); err != nil {
		return nil, fmt.Errorf("size canonical channel: %w", err)
	}
	entries = append(entries, p.syntheticEntries(s, canonical)...)

	bins, scale, err := p.pack(entries)
	if err != nil {
		return nil, fmt.Errorf("pack canonical channel: %w", err)
	}

	mapping := buildMapping(bins)

	atlases := make(map[scene.Channel][]*scene.Texture)
	layouts := make(map[scene.Channel]*LayoutRecord)

	canonTex, canonLayout, err := p.buildCanonicalAtlases(canonical, bins)
	if err != nil {
		return nil, err
	}
	atlases[canonical] = canonTex
	layouts[canonical] = canonLayout

	// Remap UVs once, against the canonical layout, and rewire the canonical
	// slot per material.
	rmp := remap.NewRemapper(remap.WithLogger(p.logger))
	for _, m := range srcMaterials {
		pl, ok := mapping[m]
		if !ok {
			continue
		}
		mPrims := primsByMaterial[m]
		rmp.BakeTransforms(m, mPrims)

		srcSet := 0
		if ref := canonical.TextureRef(m); ref != nil {
			srcSet = ref.TexCoord
		}
		rmp.Remap(mPrims, srcSet, remap.Placement{
			X: pl.rect.X, Y: pl.rect.Y,
			Width: pl.rect.Width, Height: pl.rect.Height,
			AtlasWidth: bins[pl.bin].Width, AtlasHeight: bins[pl.bin].Height,
		})

		canonical.SetTextureRef(m, &scene.TextureRef{Texture: canonTex[pl.bin]})
		m.ForceTexCoord(0)
	}
	canonLayout.UVDiagnostics = uvDiagnostics(srcMaterials, primsByMaterial)

	// Secondary channels reuse the canonical rect geometry verbatim.
	for _, ch := range p.channels {
		if ch == canonical || !p.channelInUse(s, ch) {
			continue
		}
		tex, layout, err := p.buildReusedAtlases(ch, bins)
		if err != nil {
			return nil, err
		}
		atlases[ch] = tex
		layouts[ch] = layout
	}

	return p.finish(s, srcMaterials, prims, mapping, atlases, layouts, scale)
}

// pack runs the configured packing mode over the sized entries.
func (p *pipelineImpl) pack(entries []*sizer.Entry) ([]packer.Bin, float64, error) {
	items := make([]packer.PackItem, len(entries))
	for i, e := range entries {
		items[i] = packer.PackItem{
			ID:      i,
			Width:   e.TargetWidth,
			Height:  e.TargetHeight,
			Payload: e,
		}
	}

	pkr := packer.NewPacker(
		packer.WithMaxSize(p.maxSize),
		packer.WithMaxBins(p.maxBins),
		packer.WithPadding(p.padding),
		packer.WithLogger(p.logger),
	)
	if p.singleBin {
		return pkr.PackSingle(items)
	}
	bins, err := pkr.Pack(items)
	return bins, 1.0, err
}

// canonicalChannel returns the first enabled channel in canonical priority
// order with at least one usable texture.
func (p *pipelineImpl) canonicalChannel(s *scene.Scene) (scene.Channel, bool) {
	for _, ch := range scene.CanonicalOrder {
		if p.enabled(ch) && p.channelInUse(s, ch) {
			return ch, true
		}
	}
	return 0, false
}

func (p *pipelineImpl) enabled(ch scene.Channel) bool {
	for _, c := range p.channels {
		if c == ch {
			return true
		}
	}
	return false
}

// channelInUse reports whether any material carries a non-empty texture in
// the channel.
func (p *pipelineImpl) channelInUse(s *scene.Scene, ch scene.Channel) bool {
	for _, m := range s.Materials {
		if ref := ch.TextureRef(m); ref != nil && ref.Texture != nil && len(ref.Texture.Data) > 0 {
			return true
		}
	}
	return false
}

// collectEntries builds one sizer entry per distinct texture object in the
// channel, accumulating the owning materials and their summed surface area.
func (p *pipelineImpl) collectEntries(s *scene.Scene, ch scene.Channel, areas map[*scene.Material]float32) []*sizer.Entry {
	byTexture := make(map[*scene.Texture]*sizer.Entry)
	var entries []*sizer.Entry

	for _, m := range s.Materials {
		ref := ch.TextureRef(m)
		if ref == nil || ref.Texture == nil || len(ref.Texture.Data) == 0 {
			continue
		}
		e, ok := byTexture[ref.Texture]
		if !ok {
			e = &sizer.Entry{Texture: ref.Texture, Channel: ch}
			byTexture[ref.Texture] = e
			entries = append(entries, e)
		}
		e.Materials = append(e.Materials, m)
		e.Area += areas[m]
	}
	return entries
}

// syntheticEntries creates a solid fallback rect for every material with no
// texture in the canonical channel, so the cross-channel rect invariant holds
// for untextured materials too. The rect is sized from the material's largest
// texture in any enabled channel, so secondary maps keep their resolution.
func (p *pipelineImpl) syntheticEntries(s *scene.Scene, canonical scene.Channel) []*sizer.Entry {
	var entries []*sizer.Entry
	for _, m := range s.Materials {
		if ref := canonical.TextureRef(m); ref != nil && ref.Texture != nil && len(ref.Texture.Data) > 0 {
			continue
		}

		dim := fallbackRectSize
		for _, ch := range p.channels {
			ref := ch.TextureRef(m)
			if ref == nil || ref.Texture == nil || len(ref.Texture.Data) == 0 {
				continue
			}
			w, h, err := p.codec.Dimensions(ref.Texture.Data)
			if err != nil {
				continue
			}
			dim = max(dim, max(w, h))
		}
		size := min(common.PrevPow2(dim), p.maxSize)

		// No Image: the composite's background fill is the channel-neutral
		// color, so an empty rect is the fallback fill.
		entries = append(entries, &sizer.Entry{
			Channel:      canonical,
			Materials:    []*scene.Material{m},
			TargetWidth:  size,
			TargetHeight: size,
		})
		p.logger.Debug("synthesized fallback rect",
			zap.String("material", m.Name),
			zap.Int("size", size))
	}
	return entries
}

// buildMapping indexes each material's rect placement in the canonical bins.
func buildMapping(bins []packer.Bin) map[*scene.Material]placement {
	mapping := make(map[*scene.Material]placement)
	for bi, bin := range bins {
		for _, r := range bin.Rects {
			entry := r.Item.Payload.(*sizer.Entry)
			for _, m := range entry.Materials {
				mapping[m] = placement{bin: bi, rect: r}
			}
		}
	}
	return mapping
}

// finish unifies materials, merges primitives and rebuilds the scene in
// place. Called both on the full atlas path and on the untextured shortcut,
// where mapping and atlases are nil.
func (p *pipelineImpl) finish(
	s *scene.Scene,
	srcMaterials []*scene.Material,
	prims []*scene.Primitive,
	mapping map[*scene.Material]placement,
	atlases map[scene.Channel][]*scene.Texture,
	layouts map[scene.Channel]*LayoutRecord,
	scale float64,
) (*Result, error) {
	binCount := 1
	for _, tex := range atlases {
		if len(tex) > binCount {
			binCount = len(tex)
		}
	}

	unified := make([]*scene.Material, binCount)
	for i := range unified {
		unified[i] = p.unifiedMaterial(i, binCount, srcMaterials, atlases)
	}

	groups := make([][]*scene.Primitive, binCount)
	for _, prim := range prims {
		bin := 0
		if pl, ok := mapping[prim.Material]; ok {
			bin = pl.bin
		}
		groups[bin] = append(groups[bin], prim)
	}

	mrg := baker.NewMerger(baker.WithMergerLogger(p.logger))
	mesh := &scene.Mesh{Name: "merged"}
	for i, group := range groups {
		if len(group) == 0 {
			continue
		}
		name := "merged"
		if binCount > 1 {
			name = fmt.Sprintf("merged_%d", i)
		}
		merged, err := mrg.Merge(group, unified[i], name)
		if err != nil {
			return nil, fmt.Errorf("merge primitives: %w", err)
		}
		mesh.Primitives = append(mesh.Primitives, merged)
	}

	var textures []*scene.Texture
	var records []LayoutRecord
	for _, ch := range p.channels {
		if tex, ok := atlases[ch]; ok {
			textures = append(textures, tex...)
		}
		if layout, ok := layouts[ch]; ok {
			records = append(records, *layout)
		}
	}

	s.Materials = unified
	s.Textures = textures
	s.Roots = []*scene.Node{{Name: "consolidated", Mesh: mesh}}

	p.logger.Info("scene consolidated",
		zap.Int("primitives", len(prims)),
		zap.Int("atlases", len(textures)),
		zap.Float64("scale", scale))
	return &Result{Scene: s, Layouts: records, Scale: scale}, nil
}

// unifiedMaterial builds the single output material for one atlas bin:
// neutral factors so the atlases carry all surface detail, one texture
// reference per produced channel.
func (p *pipelineImpl) unifiedMaterial(bin, binCount int, srcMaterials []*scene.Material, atlases map[scene.Channel][]*scene.Texture) *scene.Material {
	name := "atlas_material"
	if binCount > 1 {
		name = fmt.Sprintf("atlas_material_%d", bin)
	}

	m := &scene.Material{
		Name:            name,
		BaseColorFactor: [4]float32{1, 1, 1, 1},
		MetallicFactor:  1,
		RoughnessFactor: 1,
	}
	for _, src := range srcMaterials {
		if src.DoubleSided {
			m.DoubleSided = true
		}
	}

	for _, ch := range p.channels {
		tex := atlases[ch]
		if bin >= len(tex) {
			continue
		}
		ch.SetTextureRef(m, &scene.TextureRef{Texture: tex[bin]})
		if ch == scene.ChannelEmissive {
			m.EmissiveFactor = [3]float32{1, 1, 1}
		}
	}
	return m
}

// collectPrimitives walks the node hierarchy depth-first and returns every
// primitive in deterministic order.
func collectPrimitives(s *scene.Scene) []*scene.Primitive {
	var prims []*scene.Primitive
	visited := make(map[*scene.Node]bool)

	var stack []*scene.Node
	for i := len(s.Roots) - 1; i >= 0; i-- {
		stack = append(stack, s.Roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || visited[n] {
			continue
		}
		visited[n] = true
		if n.Mesh != nil {
			prims = append(prims, n.Mesh.Primitives...)
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return prims
}

// groupByMaterial indexes primitives by the material they are drawn with.
func groupByMaterial(prims []*scene.Primitive) map[*scene.Material][]*scene.Primitive {
	groups := make(map[*scene.Material][]*scene.Primitive)
	for _, p := range prims {
		if p.Material == nil {
			continue
		}
		groups[p.Material] = append(groups[p.Material], p)
	}
	return groups
}
