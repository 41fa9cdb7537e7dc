// Package remap rewrites primitive UVs so they sample a packed atlas rect
// instead of a standalone texture. It also bakes pending per-material UV
// transforms into the vertex data first, so the rect remap is always a pure
// scale and offset. UV buffers may be shared between primitives; every
// mutation here operates on a clone.
package remap

import (
	"github.com/Carmen-Shannon/oxy-atlas/scene"
	"github.com/chewxy/math32"
	"go.uber.org/zap"
)

// Placement locates one source texture inside a packed atlas: the rect in
// atlas pixels and the atlas canvas size.
type Placement struct {
	// X, Y is the rect's top-left corner in atlas pixels.
	X, Y int

	// Width, Height is the rect size in atlas pixels.
	Width, Height int

	// AtlasWidth, AtlasHeight is the atlas canvas size in pixels.
	AtlasWidth, AtlasHeight int
}

// remapperImpl is the implementation of the Remapper interface. The done set
// makes rect remapping idempotent within one pipeline run: a primitive shared
// by several lookups is rewritten exactly once.
type remapperImpl struct {
	done   map[*scene.Primitive]bool
	logger *zap.Logger
}

// Remapper bakes UV transforms and remaps UVs into atlas space.
type Remapper interface {
	// BakeTransforms folds every pending UV transform on the material into a
	// fresh texcoord set on each primitive, then points the texture
	// reference at the new set and clears the transform. A second call is a
	// no-op because no transform remains.
	//
	// Parameters:
	//   - m: the material whose references carry pending transforms
	//   - prims: the primitives drawn with the material
	BakeTransforms(m *scene.Material, prims []*scene.Primitive)

	// Remap rewrites each primitive's UVs from the source texcoord set into
	// atlas space on set 0 and truncates every other set. A primitive
	// already remapped in this run is skipped. A primitive missing the
	// source set gets a synthesized zero set, pinning every vertex to the
	// rect origin, with a warning.
	//
	// Parameters:
	//   - prims: the primitives to rewrite
	//   - srcSet: the texcoord set the material's canonical channel samples
	//   - pl: the atlas placement of the material's canonical texture
	Remap(prims []*scene.Primitive, srcSet int, pl Placement)
}

var _ Remapper = &remapperImpl{}

// RemapperBuilderOption is a functional option for configuring a Remapper via
// NewRemapper.
type RemapperBuilderOption func(*remapperImpl)

// WithLogger is an option builder that sets the logger used for remap
// diagnostics.
//
// Parameters:
//   - logger: the zap logger instance
//
// Returns:
//   - RemapperBuilderOption: a function that applies the logger option to a remapper
func WithLogger(logger *zap.Logger) RemapperBuilderOption {
	return func(r *remapperImpl) {
		r.logger = logger
	}
}

// NewRemapper creates a new Remapper instance configured with the provided
// options. A remapper is scoped to one pipeline run; its idempotency state is
// not meant to outlive the run.
//
// Parameters:
//   - opts: optional configuration
//
// Returns:
//   - Remapper: the remapper instance
func NewRemapper(opts ...RemapperBuilderOption) Remapper {
	r := &remapperImpl{
		done:   make(map[*scene.Primitive]bool),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *remapperImpl) BakeTransforms(m *scene.Material, prims []*scene.Primitive) {
	for _, ref := range m.Refs() {
		if ref.Transform == nil {
			continue
		}

		// The new set index must be shared by every primitive, so it sits
		// past the longest existing set list.
		target := 0
		for _, p := range prims {
			if len(p.TexCoords) > target {
				target = len(p.TexCoords)
			}
		}

		for _, p := range prims {
			src := p.CloneUVSet(ref.TexCoord)
			if src == nil {
				r.logger.Warn("primitive missing texcoord set for transform bake",
					zap.String("primitive", p.Name),
					zap.Int("set", ref.TexCoord))
				src = make([][2]float32, p.VertexCount())
			}
			applyTransform(src, ref.Transform)
			p.SetUVSet(target, src)
		}

		r.logger.Debug("baked uv transform",
			zap.String("material", m.Name),
			zap.Int("sourceSet", ref.TexCoord),
			zap.Int("targetSet", target))
		ref.TexCoord = target
		ref.Transform = nil
	}
}

func (r *remapperImpl) Remap(prims []*scene.Primitive, srcSet int, pl Placement) {
	su := float32(pl.Width) / float32(pl.AtlasWidth)
	sv := float32(pl.Height) / float32(pl.AtlasHeight)
	ou := float32(pl.X) / float32(pl.AtlasWidth)
	ov := float32(pl.Y) / float32(pl.AtlasHeight)

	for _, p := range prims {
		if r.done[p] {
			continue
		}
		r.done[p] = true

		src := p.CloneUVSet(srcSet)
		if src == nil {
			r.logger.Warn("primitive missing texcoord set, pinning to rect origin",
				zap.String("primitive", p.Name),
				zap.Int("set", srcSet))
			src = make([][2]float32, p.VertexCount())
		}
		for i, uv := range src {
			src[i] = [2]float32{uv[0]*su + ou, uv[1]*sv + ov}
		}

		p.SetUVSet(0, src)
		p.TexCoords = p.TexCoords[:1]
	}
}

// applyTransform maps UVs through a scale, rotation, offset transform in
// place. The rotation sign follows the KHR_texture_transform extension,
// which glTF inputs encode against:
//
//	u' = u*cos(r) + v*sin(r) + ox
//	v' = -u*sin(r) + v*cos(r) + oy
func applyTransform(uvs [][2]float32, t *scene.TextureTransform) {
	cos := math32.Cos(t.Rotation)
	sin := math32.Sin(t.Rotation)
	for i, uv := range uvs {
		u := uv[0] * t.Scale[0]
		v := uv[1] * t.Scale[1]
		uvs[i] = [2]float32{
			u*cos + v*sin + t.Offset[0],
			-u*sin + v*cos + t.Offset[1],
		}
	}
}
