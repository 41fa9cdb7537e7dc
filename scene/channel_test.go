package scene

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannel(t *testing.T) {
	tests := []struct {
		name string
		want Channel
	}{
		{"baseColor", ChannelBaseColor},
		{"normal", ChannelNormal},
		{"occlusionRoughnessMetallic", ChannelOcclusionRoughnessMetallic},
		{"orm", ChannelOcclusionRoughnessMetallic},
		{"emissive", ChannelEmissive},
	}
	for _, tt := range tests {
		ch, err := ParseChannel(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, ch, tt.name)
	}

	_, err := ParseChannel("specular")
	assert.Error(t, err)
}

func TestChannelFallbackColors(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, ChannelBaseColor.FallbackColor())
	assert.Equal(t, color.NRGBA{R: 128, G: 128, B: 255, A: 255}, ChannelNormal.FallbackColor())
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, ChannelOcclusionRoughnessMetallic.FallbackColor())
	assert.Equal(t, color.NRGBA{R: 0, G: 0, B: 0, A: 255}, ChannelEmissive.FallbackColor())
}

func TestChannelLosslessDefaults(t *testing.T) {
	assert.False(t, ChannelBaseColor.Lossless())
	assert.True(t, ChannelNormal.Lossless())
	assert.True(t, ChannelOcclusionRoughnessMetallic.Lossless())
	assert.False(t, ChannelEmissive.Lossless())
}

func TestORMChannelAccessors(t *testing.T) {
	mr := &TextureRef{Texture: &Texture{Name: "mr"}}
	occ := &TextureRef{Texture: &Texture{Name: "occ"}}

	m := &Material{MetallicRoughness: mr, Occlusion: occ}
	assert.Same(t, mr, ChannelOcclusionRoughnessMetallic.TextureRef(m))

	m = &Material{Occlusion: occ}
	assert.Same(t, occ, ChannelOcclusionRoughnessMetallic.TextureRef(m))

	atlas := &TextureRef{Texture: &Texture{Name: "atlas"}}
	ChannelOcclusionRoughnessMetallic.SetTextureRef(m, atlas)
	assert.Same(t, atlas, m.MetallicRoughness)
	assert.Same(t, atlas, m.Occlusion)
}

func TestForceTexCoord(t *testing.T) {
	m := &Material{
		BaseColor: &TextureRef{TexCoord: 1},
		Normal:    &TextureRef{TexCoord: 2},
		Emissive:  &TextureRef{TexCoord: 3},
	}
	m.ForceTexCoord(0)
	for _, r := range m.Refs() {
		assert.Zero(t, r.TexCoord)
	}
}

func TestCloneUVSetIsIndependent(t *testing.T) {
	shared := [][2]float32{{0, 0}, {1, 0}, {1, 1}}
	a := &Primitive{TexCoords: [][][2]float32{shared}}
	b := &Primitive{TexCoords: [][][2]float32{shared}}

	clone := a.CloneUVSet(0)
	require.NotNil(t, clone)
	clone[0] = [2]float32{0.5, 0.5}

	assert.Equal(t, [2]float32{0, 0}, b.UVSet(0)[0])
	assert.Nil(t, a.CloneUVSet(3))
}
