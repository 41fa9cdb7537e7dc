package baker

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-atlas/common"
	"github.com/Carmen-Shannon/oxy-atlas/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scaleMatrix(s [3]float32) []float32 {
	m := make([]float32, 16)
	common.ComposeTRS(m, [3]float32{}, [4]float32{0, 0, 0, 1}, s)
	return m
}

func translateMatrix(t [3]float32) []float32 {
	m := make([]float32, 16)
	common.ComposeTRS(m, t, [4]float32{0, 0, 0, 1}, [3]float32{1, 1, 1})
	return m
}

func triPrimitive(mat *scene.Material) *scene.Primitive {
	return &scene.Primitive{
		Name:     "tri",
		Material: mat,
		Positions: [][3]float32{
			{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
		},
		Normals: [][3]float32{
			{0, 0, 1}, {0, 0, 1}, {0, 0, 1},
		},
		Indices: []uint32{0, 1, 2},
	}
}

func TestBakeAppliesNodeScale(t *testing.T) {
	b := NewBaker()
	prim := triPrimitive(nil)
	s := &scene.Scene{
		Roots: []*scene.Node{{
			Name:  "scaled",
			Local: scaleMatrix([3]float32{2, 2, 2}),
			Mesh:  &scene.Mesh{Primitives: []*scene.Primitive{prim}},
		}},
	}

	require.NoError(t, b.Bake(s))

	assert.Equal(t, [3]float32{2, 0, 0}, prim.Positions[1])
	assert.Equal(t, [3]float32{0, 2, 0}, prim.Positions[2])
	// Uniform scale leaves unit normals untouched.
	assert.InDelta(t, 1.0, float64(prim.Normals[0][2]), 1e-6)
	assert.Nil(t, s.Roots[0].Local)
}

func TestBakeComposesParentAndChild(t *testing.T) {
	b := NewBaker()
	prim := triPrimitive(nil)
	s := &scene.Scene{
		Roots: []*scene.Node{{
			Name:  "parent",
			Local: translateMatrix([3]float32{10, 0, 0}),
			Children: []*scene.Node{{
				Name:  "child",
				Local: scaleMatrix([3]float32{2, 2, 2}),
				Mesh:  &scene.Mesh{Primitives: []*scene.Primitive{prim}},
			}},
		}},
	}

	require.NoError(t, b.Bake(s))

	// World = translate * scale: (1,0,0) -> (12,0,0).
	assert.Equal(t, [3]float32{12, 0, 0}, prim.Positions[1])
}

func TestBakeNonUniformScaleRenormalizesNormals(t *testing.T) {
	b := NewBaker()
	inv := 1 / float32(1.41421356)
	prim := &scene.Primitive{
		Positions: [][3]float32{{0, 0, 0}},
		Normals:   [][3]float32{{inv, inv, 0}},
	}
	s := &scene.Scene{
		Roots: []*scene.Node{{
			Local: scaleMatrix([3]float32{2, 1, 1}),
			Mesh:  &scene.Mesh{Primitives: []*scene.Primitive{prim}},
		}},
	}

	require.NoError(t, b.Bake(s))

	n := prim.Normals[0]
	assert.InDelta(t, 0.4472136, float64(n[0]), 1e-5)
	assert.InDelta(t, 0.8944272, float64(n[1]), 1e-5)
	length := n[0]*n[0] + n[1]*n[1] + n[2]*n[2]
	assert.InDelta(t, 1.0, float64(length), 1e-5)
}

func TestBakeIsIdempotent(t *testing.T) {
	b := NewBaker()
	prim := triPrimitive(nil)
	s := &scene.Scene{
		Roots: []*scene.Node{{
			Local: scaleMatrix([3]float32{3, 3, 3}),
			Mesh:  &scene.Mesh{Primitives: []*scene.Primitive{prim}},
		}},
	}

	require.NoError(t, b.Bake(s))
	first := append([][3]float32(nil), prim.Positions...)

	require.NoError(t, b.Bake(s))
	assert.Equal(t, first, prim.Positions)
}

func TestBakeClonesSharedMeshPerInstance(t *testing.T) {
	b := NewBaker()
	shared := &scene.Mesh{Primitives: []*scene.Primitive{triPrimitive(nil)}}
	s := &scene.Scene{
		Roots: []*scene.Node{
			{Name: "left", Local: translateMatrix([3]float32{-5, 0, 0}), Mesh: shared},
			{Name: "right", Local: translateMatrix([3]float32{5, 0, 0}), Mesh: shared},
		},
	}

	require.NoError(t, b.Bake(s))

	left := s.Roots[0].Mesh.Primitives[0]
	right := s.Roots[1].Mesh.Primitives[0]
	assert.NotSame(t, left, right)
	assert.Equal(t, float32(-5), left.Positions[0][0])
	assert.Equal(t, float32(5), right.Positions[0][0])
}

func TestBakeSurvivesNodeCycle(t *testing.T) {
	b := NewBaker()
	a := &scene.Node{Name: "a"}
	c := &scene.Node{Name: "b", Children: []*scene.Node{a}}
	a.Children = []*scene.Node{c}

	require.NoError(t, b.Bake(&scene.Scene{Roots: []*scene.Node{a}}))
}

func TestBakeMissingPositions(t *testing.T) {
	b := NewBaker()
	s := &scene.Scene{
		Roots: []*scene.Node{{
			Name: "broken",
			Mesh: &scene.Mesh{Primitives: []*scene.Primitive{{Name: "empty"}}},
		}},
	}
	assert.Error(t, b.Bake(s))
}

func TestMaterialAreasScalesWithTransform(t *testing.T) {
	b := NewBaker()
	mat := &scene.Material{Name: "m"}
	prim := triPrimitive(mat)
	s := &scene.Scene{
		Materials: []*scene.Material{mat},
		Roots: []*scene.Node{{
			Local: scaleMatrix([3]float32{2, 2, 2}),
			Mesh:  &scene.Mesh{Primitives: []*scene.Primitive{prim}},
		}},
	}

	require.NoError(t, b.Bake(s))
	areas := b.MaterialAreas(s)

	// A unit right triangle has area 0.5; uniform scale 2 quadruples it.
	assert.InDelta(t, 2.0, float64(areas[mat]), 1e-5)
}

func TestMergeConcatenatesAndOffsetsIndices(t *testing.T) {
	m := NewMerger()
	mat := &scene.Material{Name: "unified"}

	a := triPrimitive(mat)
	bb := triPrimitive(mat)

	out, err := m.Merge([]*scene.Primitive{a, bb}, mat, "merged")
	require.NoError(t, err)

	assert.Equal(t, 6, out.VertexCount())
	assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, out.Indices)
	assert.Equal(t, mat, out.Material)
	assert.Len(t, out.Normals, 6)
}

func TestMergeSynthesizesIndicesForNonIndexed(t *testing.T) {
	m := NewMerger()

	indexed := triPrimitive(nil)
	soup := &scene.Primitive{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Normals:   [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
	}

	out, err := m.Merge([]*scene.Primitive{indexed, soup}, nil, "merged")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, out.Indices)
}

func TestMergeDropsPartialAttributes(t *testing.T) {
	m := NewMerger()

	withNormals := triPrimitive(nil)
	withoutNormals := &scene.Primitive{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
	}

	out, err := m.Merge([]*scene.Primitive{withNormals, withoutNormals}, nil, "merged")
	require.NoError(t, err)
	assert.Nil(t, out.Normals)
	assert.Len(t, out.Positions, 6)
}

func TestMergeDropsTruncatedAttributes(t *testing.T) {
	m := NewMerger()

	full := triPrimitive(nil)
	short := triPrimitive(nil)
	short.Normals = short.Normals[:1]

	out, err := m.Merge([]*scene.Primitive{full, short}, nil, "merged")
	require.NoError(t, err)

	// A normals slice covering only part of a primitive's vertices counts as
	// missing, so the attribute is dropped from the merge entirely.
	assert.Nil(t, out.Normals)
	assert.Equal(t, 6, out.VertexCount())
}

func TestMergeDropsTruncatedUVSet(t *testing.T) {
	m := NewMerger()

	full := triPrimitive(nil)
	full.TexCoords = [][][2]float32{
		{{0, 0}, {1, 0}, {0, 1}},
	}
	short := triPrimitive(nil)
	short.TexCoords = [][][2]float32{
		{{0, 0}},
	}

	out, err := m.Merge([]*scene.Primitive{full, short}, nil, "merged")
	require.NoError(t, err)
	assert.Empty(t, out.TexCoords)
}

func TestMergeKeepsCommonUVSets(t *testing.T) {
	m := NewMerger()

	twoSets := triPrimitive(nil)
	twoSets.TexCoords = [][][2]float32{
		{{0, 0}, {1, 0}, {0, 1}},
		{{0.5, 0.5}, {0.5, 0.5}, {0.5, 0.5}},
	}
	oneSet := triPrimitive(nil)
	oneSet.TexCoords = [][][2]float32{
		{{0, 0}, {1, 0}, {0, 1}},
	}

	out, err := m.Merge([]*scene.Primitive{twoSets, oneSet}, nil, "merged")
	require.NoError(t, err)
	require.Len(t, out.TexCoords, 1)
	assert.Len(t, out.TexCoords[0], 6)
}

func TestMergeDropsMorphTargets(t *testing.T) {
	m := NewMerger()

	morphed := triPrimitive(nil)
	morphed.Targets = []scene.MorphTarget{{Positions: [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}}}

	out, err := m.Merge([]*scene.Primitive{morphed}, nil, "merged")
	require.NoError(t, err)
	assert.Empty(t, out.Targets)
}

func TestMergeEmpty(t *testing.T) {
	m := NewMerger()
	_, err := m.Merge(nil, nil, "merged")
	assert.Error(t, err)
}
