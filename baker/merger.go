package baker

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-atlas/scene"
	"go.uber.org/zap"
)

// mergerImpl is the implementation of the Merger interface.
type mergerImpl struct {
	logger *zap.Logger
}

// Merger concatenates baked primitives into one.
type Merger interface {
	// Merge concatenates the primitives in order into a single primitive
	// drawn with the given material. Indices are offset by the running
	// vertex count; non-indexed primitives contribute a synthesized
	// sequential range. Optional attributes follow an all-or-nothing rule:
	// an attribute survives only when every input primitive carries it for
	// every vertex, otherwise it is dropped with a warning. Morph targets cannot survive
	// a merge and are dropped with a warning.
	//
	// Parameters:
	//   - prims: the primitives to merge, already baked to world space
	//   - material: the material of the merged primitive
	//   - name: the name of the merged primitive
	//
	// Returns:
	//   - *scene.Primitive: the merged primitive
	//   - error: when the input is empty or a primitive has no positions
	Merge(prims []*scene.Primitive, material *scene.Material, name string) (*scene.Primitive, error)
}

var _ Merger = &mergerImpl{}

// MergerBuilderOption is a functional option for configuring a Merger via NewMerger.
type MergerBuilderOption func(*mergerImpl)

// WithMergerLogger is an option builder that sets the logger used for merge
// diagnostics.
//
// Parameters:
//   - logger: the zap logger instance
//
// Returns:
//   - MergerBuilderOption: a function that applies the logger option to a merger
func WithMergerLogger(logger *zap.Logger) MergerBuilderOption {
	return func(m *mergerImpl) {
		m.logger = logger
	}
}

// NewMerger creates a new Merger instance configured with the provided options.
//
// Parameters:
//   - opts: optional configuration
//
// Returns:
//   - Merger: the merger instance
func NewMerger(opts ...MergerBuilderOption) Merger {
	m := &mergerImpl{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *mergerImpl) Merge(prims []*scene.Primitive, material *scene.Material, name string) (*scene.Primitive, error) {
	if len(prims) == 0 {
		return nil, errNoPrimitives
	}

	totalVerts := 0
	totalIndices := 0
	for _, p := range prims {
		if len(p.Positions) == 0 {
			return nil, fmt.Errorf("%w: %q", errNoPositions, p.Name)
		}
		totalVerts += p.VertexCount()
		totalIndices += p.IndexCount()
	}

	// An attribute survives only when every primitive carries it for every
	// vertex; a short slice counts as missing.
	keepNormals := allHave(prims, func(p *scene.Primitive) bool { return len(p.Normals) == p.VertexCount() })
	keepTangents := allHave(prims, func(p *scene.Primitive) bool { return len(p.Tangents) == p.VertexCount() })
	keepColors := allHave(prims, func(p *scene.Primitive) bool { return len(p.Colors) == p.VertexCount() })
	uvSets := commonUVSets(prims)

	m.warnDropped(prims, keepNormals, keepTangents, keepColors, uvSets)

	out := &scene.Primitive{
		Name:      name,
		Material:  material,
		Positions: make([][3]float32, 0, totalVerts),
		Indices:   make([]uint32, 0, totalIndices),
	}
	if keepNormals {
		out.Normals = make([][3]float32, 0, totalVerts)
	}
	if keepTangents {
		out.Tangents = make([][4]float32, 0, totalVerts)
	}
	if keepColors {
		out.Colors = make([][4]float32, 0, totalVerts)
	}
	for s := 0; s < uvSets; s++ {
		out.TexCoords = append(out.TexCoords, make([][2]float32, 0, totalVerts))
	}

	offset := uint32(0)
	for _, p := range prims {
		out.Positions = append(out.Positions, p.Positions...)
		if keepNormals {
			out.Normals = append(out.Normals, p.Normals...)
		}
		if keepTangents {
			out.Tangents = append(out.Tangents, p.Tangents...)
		}
		if keepColors {
			out.Colors = append(out.Colors, p.Colors...)
		}
		for s := 0; s < uvSets; s++ {
			out.TexCoords[s] = append(out.TexCoords[s], p.TexCoords[s]...)
		}

		if p.Indices == nil {
			for i := 0; i < p.VertexCount(); i++ {
				out.Indices = append(out.Indices, offset+uint32(i))
			}
		} else {
			for _, idx := range p.Indices {
				out.Indices = append(out.Indices, offset+idx)
			}
		}
		offset += uint32(p.VertexCount())
	}

	m.logger.Debug("merged primitives",
		zap.Int("primitives", len(prims)),
		zap.Int("vertices", totalVerts),
		zap.Int("indices", totalIndices))
	return out, nil
}

func (m *mergerImpl) warnDropped(prims []*scene.Primitive, keepNormals, keepTangents, keepColors bool, uvSets int) {
	for _, p := range prims {
		if !keepNormals && p.Normals != nil {
			m.logger.Warn("dropping normals: missing or short on a primitive", zap.String("primitive", p.Name))
		}
		if !keepTangents && p.Tangents != nil {
			m.logger.Warn("dropping tangents: missing or short on a primitive", zap.String("primitive", p.Name))
		}
		if !keepColors && p.Colors != nil {
			m.logger.Warn("dropping vertex colors: missing or short on a primitive", zap.String("primitive", p.Name))
		}
		if len(p.TexCoords) > uvSets {
			m.logger.Warn("dropping texcoord sets beyond the common count",
				zap.String("primitive", p.Name),
				zap.Int("kept", uvSets))
		}
		if len(p.Targets) > 0 {
			m.logger.Warn("dropping morph targets: they cannot survive a merge", zap.String("primitive", p.Name))
		}
	}
}

// allHave reports whether the predicate holds for every primitive.
func allHave(prims []*scene.Primitive, pred func(*scene.Primitive) bool) bool {
	for _, p := range prims {
		if !pred(p) {
			return false
		}
	}
	return true
}

// commonUVSets returns the number of leading texcoord sets that cover every
// vertex of every primitive.
func commonUVSets(prims []*scene.Primitive) int {
	n := -1
	for _, p := range prims {
		count := 0
		for _, uv := range p.TexCoords {
			if len(uv) != p.VertexCount() {
				break
			}
			count++
		}
		if n < 0 || count < n {
			n = count
		}
	}
	if n < 0 {
		return 0
	}
	return n
}
