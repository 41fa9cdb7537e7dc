// Package scene contains the in-memory scene model the atlas pipeline operates
// on. These are plain data structs, not interface-wrapped components: a scene
// holds a node hierarchy, meshes split into per-material primitives, and the
// materials and textures those primitives reference. The document package
// converts glTF files to and from this model.
package scene

// Scene is the root container for a loaded asset.
type Scene struct {
	// Name is an optional identifier for the scene.
	Name string

	// Roots are the top-level nodes of the transform hierarchy.
	Roots []*Node

	// Materials lists every material referenced by the scene's primitives.
	Materials []*Material

	// Textures lists every distinct texture object in the scene.
	Textures []*Texture
}

// Node is one element of the transform hierarchy.
type Node struct {
	// Name is an optional identifier for the node.
	Name string

	// Local is the node's local transform as a 16-element column-major matrix.
	// A nil Local means identity.
	Local []float32

	// Mesh is the mesh attached to this node, or nil.
	Mesh *Mesh

	// Children are the node's child nodes.
	Children []*Node
}

// Mesh is a named set of primitives.
type Mesh struct {
	// Name is an optional identifier for the mesh.
	Name string

	// Primitives are the draw-call-sized geometry chunks of this mesh.
	Primitives []*Primitive
}

// Primitive is one draw call worth of triangle geometry. Attribute slices are
// parallel: every non-nil attribute has one element per vertex. TexCoords may
// alias slices shared with other primitives; anything that mutates UVs must
// clone the set first (see CloneUVSet).
type Primitive struct {
	// Name is an optional identifier, usually derived from the source mesh.
	Name string

	// Material is the material this primitive is drawn with, or nil.
	Material *Material

	// Positions holds the POSITION attribute. Required for baking.
	Positions [][3]float32

	// Normals holds the NORMAL attribute, or nil.
	Normals [][3]float32

	// Tangents holds the TANGENT attribute (xyz direction + w handedness), or nil.
	Tangents [][4]float32

	// TexCoords holds the texcoord sets, indexed by set number.
	TexCoords [][][2]float32

	// Colors holds the COLOR_0 attribute, or nil.
	Colors [][4]float32

	// Indices is the triangle index list. Nil means non-indexed sequential
	// triangles.
	Indices []uint32

	// Targets are morph targets. They pass through the pipeline unbaked.
	Targets []MorphTarget
}

// MorphTarget holds per-vertex deltas for one blend shape.
type MorphTarget struct {
	// Positions are position deltas, or nil.
	Positions [][3]float32

	// Normals are normal deltas, or nil.
	Normals [][3]float32
}

// VertexCount returns the number of vertices in the primitive.
//
// Returns:
//   - int: the vertex count, taken from the POSITION attribute
func (p *Primitive) VertexCount() int {
	return len(p.Positions)
}

// IndexCount returns the number of indices the primitive contributes,
// synthesizing a sequential range for non-indexed primitives.
//
// Returns:
//   - int: the index count
func (p *Primitive) IndexCount() int {
	if p.Indices == nil {
		return p.VertexCount()
	}
	return len(p.Indices)
}

// UVSet returns the texcoord set at the given index, or nil when the set does
// not exist.
//
// Parameters:
//   - set: the texcoord set index
//
// Returns:
//   - [][2]float32: the UV data, or nil
func (p *Primitive) UVSet(set int) [][2]float32 {
	if set < 0 || set >= len(p.TexCoords) {
		return nil
	}
	return p.TexCoords[set]
}

// SetUVSet stores UV data at the given set index, growing the set list as
// needed.
//
// Parameters:
//   - set: the texcoord set index
//   - uv: the UV data to store
func (p *Primitive) SetUVSet(set int, uv [][2]float32) {
	for len(p.TexCoords) <= set {
		p.TexCoords = append(p.TexCoords, nil)
	}
	p.TexCoords[set] = uv
}

// CloneUVSet returns a copy of the texcoord set at the given index. UV buffers
// may be shared between primitives, so every mutation must operate on a clone.
//
// Parameters:
//   - set: the texcoord set index
//
// Returns:
//   - [][2]float32: a fresh copy of the UV data, or nil when the set does not exist
func (p *Primitive) CloneUVSet(set int) [][2]float32 {
	src := p.UVSet(set)
	if src == nil {
		return nil
	}
	dst := make([][2]float32, len(src))
	copy(dst, src)
	return dst
}
