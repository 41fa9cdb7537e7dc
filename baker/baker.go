// Package baker flattens a scene's transform hierarchy into world-space
// geometry and merges the flattened primitives into a single draw call.
// Baking multiplies every vertex attribute through its node's world matrix
// and clears the node transforms, so a second bake is a no-op. Meshes
// referenced by more than one node are duplicated per instance before baking.
package baker

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-atlas/common"
	"github.com/Carmen-Shannon/oxy-atlas/scene"
	"go.uber.org/zap"
)

var (
	errNoPositions  = errors.New("primitive has no positions")
	errNoPrimitives = errors.New("no primitives to merge")
)

// bakerImpl is the implementation of the Baker interface.
type bakerImpl struct {
	logger *zap.Logger
}

// Baker flattens node transforms into vertex data.
type Baker interface {
	// Bake walks the node hierarchy, transforms every mesh's positions,
	// normals and tangents into world space, and resets the node transforms
	// to identity. Meshes shared between nodes are cloned per instance so
	// each placement bakes its own transform. Baking twice is safe: after
	// the first pass every transform is identity.
	//
	// Parameters:
	//   - s: the scene to bake
	//
	// Returns:
	//   - error: when a primitive is missing its position attribute
	Bake(s *scene.Scene) error

	// MaterialAreas sums the world-space triangle area covered by each
	// material. Call after Bake so positions are in world space.
	//
	// Parameters:
	//   - s: the baked scene
	//
	// Returns:
	//   - map[*scene.Material]float32: total triangle area per material
	MaterialAreas(s *scene.Scene) map[*scene.Material]float32
}

var _ Baker = &bakerImpl{}

// BakerBuilderOption is a functional option for configuring a Baker via NewBaker.
type BakerBuilderOption func(*bakerImpl)

// WithLogger is an option builder that sets the logger used for bake
// diagnostics.
//
// Parameters:
//   - logger: the zap logger instance
//
// Returns:
//   - BakerBuilderOption: a function that applies the logger option to a baker
func WithLogger(logger *zap.Logger) BakerBuilderOption {
	return func(b *bakerImpl) {
		b.logger = logger
	}
}

// NewBaker creates a new Baker instance configured with the provided options.
//
// Parameters:
//   - opts: optional configuration
//
// Returns:
//   - Baker: the baker instance
func NewBaker(opts ...BakerBuilderOption) Baker {
	b := &bakerImpl{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// stackEntry pairs a node with its parent's accumulated world matrix.
type stackEntry struct {
	node   *scene.Node
	parent []float32
}

func (b *bakerImpl) Bake(s *scene.Scene) error {
	meshRefs := countMeshRefs(s)

	visited := make(map[*scene.Node]bool)
	stack := make([]stackEntry, 0, len(s.Roots))
	for i := len(s.Roots) - 1; i >= 0; i-- {
		stack = append(stack, stackEntry{node: s.Roots[i], parent: common.NewIdentity()})
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := top.node
		if visited[n] {
			b.logger.Warn("node cycle detected, skipping revisit", zap.String("node", n.Name))
			continue
		}
		visited[n] = true

		world := top.parent
		if n.Local != nil {
			world = make([]float32, 16)
			common.Mul4(world, top.parent, n.Local)
		}

		if n.Mesh != nil {
			if meshRefs[n.Mesh] > 1 {
				n.Mesh = cloneMesh(n.Mesh)
			}
			if err := b.bakeMesh(n.Mesh, world); err != nil {
				return fmt.Errorf("node %q: %w", n.Name, err)
			}
		}
		n.Local = nil

		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, stackEntry{node: n.Children[i], parent: world})
		}
	}
	return nil
}

func (b *bakerImpl) bakeMesh(m *scene.Mesh, world []float32) error {
	var normal [9]float32
	invertible := common.NormalMatrix(normal[:], world)
	if !invertible {
		b.logger.Warn("degenerate node transform, normals left unrotated",
			zap.String("mesh", m.Name))
	}

	for _, p := range m.Primitives {
		if len(p.Positions) == 0 {
			return fmt.Errorf("%w: %q", errNoPositions, p.Name)
		}
		for i, pos := range p.Positions {
			p.Positions[i] = common.TransformPoint(world, pos)
		}
		for i, nrm := range p.Normals {
			p.Normals[i] = common.TransformDirection(normal[:], nrm)
		}
		for i, tan := range p.Tangents {
			dir := common.TransformDirection(normal[:], [3]float32{tan[0], tan[1], tan[2]})
			p.Tangents[i] = [4]float32{dir[0], dir[1], dir[2], tan[3]}
		}
	}
	return nil
}

func (b *bakerImpl) MaterialAreas(s *scene.Scene) map[*scene.Material]float32 {
	areas := make(map[*scene.Material]float32)
	visitPrimitives(s, func(p *scene.Primitive) {
		if p.Material == nil {
			return
		}
		total := float32(0)
		for i := 0; i+2 < p.IndexCount(); i += 3 {
			a := p.Positions[indexAt(p, i)]
			bb := p.Positions[indexAt(p, i+1)]
			c := p.Positions[indexAt(p, i+2)]
			total += common.TriangleArea(a, bb, c)
		}
		areas[p.Material] += total
	})
	return areas
}

// indexAt resolves the vertex index for triangle corner i, treating a
// non-indexed primitive as sequential.
func indexAt(p *scene.Primitive, i int) uint32 {
	if p.Indices == nil {
		return uint32(i)
	}
	return p.Indices[i]
}

// countMeshRefs counts how many nodes reference each mesh.
func countMeshRefs(s *scene.Scene) map[*scene.Mesh]int {
	refs := make(map[*scene.Mesh]int)
	visitNodes(s, func(n *scene.Node) {
		if n.Mesh != nil {
			refs[n.Mesh]++
		}
	})
	return refs
}

// visitNodes walks every node reachable from the scene roots exactly once.
func visitNodes(s *scene.Scene, fn func(*scene.Node)) {
	visited := make(map[*scene.Node]bool)
	stack := make([]*scene.Node, 0, len(s.Roots))
	stack = append(stack, s.Roots...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || visited[n] {
			continue
		}
		visited[n] = true
		fn(n)
		stack = append(stack, n.Children...)
	}
}

// visitPrimitives walks every primitive reachable from the scene roots.
func visitPrimitives(s *scene.Scene, fn func(*scene.Primitive)) {
	visitNodes(s, func(n *scene.Node) {
		if n.Mesh == nil {
			return
		}
		for _, p := range n.Mesh.Primitives {
			fn(p)
		}
	})
}

// cloneMesh deep-copies a mesh's primitives so one instance can bake without
// disturbing the others. UV sets are cloned too: baking precedes remapping,
// and the remapper assumes each primitive owns its buffers after a clone.
func cloneMesh(m *scene.Mesh) *scene.Mesh {
	out := &scene.Mesh{Name: m.Name, Primitives: make([]*scene.Primitive, len(m.Primitives))}
	for i, p := range m.Primitives {
		cp := &scene.Primitive{
			Name:      p.Name,
			Material:  p.Material,
			Positions: append([][3]float32(nil), p.Positions...),
			Indices:   append([]uint32(nil), p.Indices...),
			Targets:   p.Targets,
		}
		if p.Normals != nil {
			cp.Normals = append([][3]float32(nil), p.Normals...)
		}
		if p.Tangents != nil {
			cp.Tangents = append([][4]float32(nil), p.Tangents...)
		}
		if p.Colors != nil {
			cp.Colors = append([][4]float32(nil), p.Colors...)
		}
		if p.TexCoords != nil {
			cp.TexCoords = make([][][2]float32, len(p.TexCoords))
			for s, uv := range p.TexCoords {
				cp.TexCoords[s] = append([][2]float32(nil), uv...)
			}
		}
		out.Primitives[i] = cp
	}
	return out
}
