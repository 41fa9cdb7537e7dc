package remap

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-atlas/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uvPrimitive(uvs [][2]float32) *scene.Primitive {
	return &scene.Primitive{
		Name:      "quad",
		Positions: make([][3]float32, len(uvs)),
		TexCoords: [][][2]float32{uvs},
	}
}

func TestRemapScalesAndOffsetsIntoRect(t *testing.T) {
	r := NewRemapper()
	p := uvPrimitive([][2]float32{{0, 0}, {1, 0}, {1, 1}})

	// A 256x256 rect at (256,0) inside a 1024 atlas.
	r.Remap([]*scene.Primitive{p}, 0, Placement{
		X: 256, Y: 0, Width: 256, Height: 256,
		AtlasWidth: 1024, AtlasHeight: 1024,
	})

	uv := p.UVSet(0)
	assert.Equal(t, [2]float32{0.25, 0}, uv[0])
	assert.Equal(t, [2]float32{0.5, 0}, uv[1])
	assert.Equal(t, [2]float32{0.5, 0.25}, uv[2])
}

func TestRemapIsIdempotentPerPrimitive(t *testing.T) {
	r := NewRemapper()
	p := uvPrimitive([][2]float32{{1, 1}})

	pl := Placement{X: 0, Y: 0, Width: 512, Height: 512, AtlasWidth: 1024, AtlasHeight: 1024}
	r.Remap([]*scene.Primitive{p}, 0, pl)
	first := p.UVSet(0)[0]

	// A second pass must not remap the already-remapped values again.
	r.Remap([]*scene.Primitive{p}, 0, pl)
	assert.Equal(t, first, p.UVSet(0)[0])
}

func TestRemapClonesSharedBuffers(t *testing.T) {
	r := NewRemapper()
	shared := [][2]float32{{1, 1}}
	a := uvPrimitive(shared)
	b := uvPrimitive(shared)

	r.Remap([]*scene.Primitive{a}, 0, Placement{
		X: 0, Y: 0, Width: 256, Height: 256, AtlasWidth: 1024, AtlasHeight: 1024,
	})

	// b still points at the untouched source buffer.
	assert.Equal(t, [2]float32{1, 1}, b.UVSet(0)[0])
	assert.Equal(t, [2]float32{0.25, 0.25}, a.UVSet(0)[0])
}

func TestRemapTruncatesSecondarySets(t *testing.T) {
	r := NewRemapper()
	p := uvPrimitive([][2]float32{{0.5, 0.5}})
	p.SetUVSet(1, [][2]float32{{0.9, 0.9}})

	// The material sampled set 1; the result must land in set 0 alone.
	r.Remap([]*scene.Primitive{p}, 1, Placement{
		X: 0, Y: 0, Width: 512, Height: 512, AtlasWidth: 512, AtlasHeight: 512,
	})

	require.Len(t, p.TexCoords, 1)
	assert.Equal(t, [2]float32{0.9, 0.9}, p.UVSet(0)[0])
}

func TestRemapMissingSetPinsToRectOrigin(t *testing.T) {
	r := NewRemapper()
	p := &scene.Primitive{Name: "bare", Positions: make([][3]float32, 3)}

	r.Remap([]*scene.Primitive{p}, 0, Placement{
		X: 512, Y: 256, Width: 256, Height: 256, AtlasWidth: 1024, AtlasHeight: 1024,
	})

	uv := p.UVSet(0)
	require.Len(t, uv, 3)
	assert.Equal(t, [2]float32{0.5, 0.25}, uv[0])
}

func TestBakeTransformsOffsetAndScale(t *testing.T) {
	r := NewRemapper()
	tex := &scene.Texture{Name: "t"}
	m := &scene.Material{
		Name: "m",
		BaseColor: &scene.TextureRef{
			Texture:  tex,
			TexCoord: 0,
			Transform: &scene.TextureTransform{
				Offset: [2]float32{0.1, 0.2},
				Scale:  [2]float32{2, 2},
			},
		},
	}
	p := uvPrimitive([][2]float32{{0.5, 0.5}})

	r.BakeTransforms(m, []*scene.Primitive{p})

	// The baked result lands in a new set past the existing ones.
	assert.Equal(t, 1, m.BaseColor.TexCoord)
	assert.Nil(t, m.BaseColor.Transform)

	uv := p.UVSet(1)
	require.NotNil(t, uv)
	assert.InDelta(t, 1.1, float64(uv[0][0]), 1e-6)
	assert.InDelta(t, 1.2, float64(uv[0][1]), 1e-6)

	// Original set untouched.
	assert.Equal(t, [2]float32{0.5, 0.5}, p.UVSet(0)[0])
}

func TestBakeTransformsRotation(t *testing.T) {
	r := NewRemapper()
	m := &scene.Material{
		BaseColor: &scene.TextureRef{
			Texture: &scene.Texture{},
			Transform: &scene.TextureTransform{
				Scale:    [2]float32{1, 1},
				Rotation: float32(math.Pi / 2),
			},
		},
	}
	p := uvPrimitive([][2]float32{{1, 0}})

	r.BakeTransforms(m, []*scene.Primitive{p})

	uv := p.UVSet(1)
	assert.InDelta(t, 0, float64(uv[0][0]), 1e-6)
	assert.InDelta(t, -1, float64(uv[0][1]), 1e-6)
}

func TestBakeTransformsRotationDirection(t *testing.T) {
	r := NewRemapper()
	m := &scene.Material{
		BaseColor: &scene.TextureRef{
			Texture: &scene.Texture{},
			Transform: &scene.TextureTransform{
				Scale:    [2]float32{1, 1},
				Rotation: float32(math.Pi / 2),
			},
		},
	}
	p := uvPrimitive([][2]float32{{0.25, 0.5}})

	r.BakeTransforms(m, []*scene.Primitive{p})

	// KHR_texture_transform convention: u' = u*cos + v*sin, v' = -u*sin + v*cos.
	// A quarter turn maps (u,v) to (v,-u); the opposite sign would give (-v,u).
	uv := p.UVSet(1)
	assert.InDelta(t, 0.5, float64(uv[0][0]), 1e-6)
	assert.InDelta(t, -0.25, float64(uv[0][1]), 1e-6)
}

func TestBakeTransformsIdempotent(t *testing.T) {
	r := NewRemapper()
	m := &scene.Material{
		BaseColor: &scene.TextureRef{
			Texture: &scene.Texture{},
			Transform: &scene.TextureTransform{
				Offset: [2]float32{0.5, 0},
				Scale:  [2]float32{1, 1},
			},
		},
	}
	p := uvPrimitive([][2]float32{{0, 0}})

	r.BakeTransforms(m, []*scene.Primitive{p})
	require.Len(t, p.TexCoords, 2)

	// No transform remains, so nothing changes.
	r.BakeTransforms(m, []*scene.Primitive{p})
	assert.Len(t, p.TexCoords, 2)
	assert.Equal(t, 1, m.BaseColor.TexCoord)
}
