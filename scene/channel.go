package scene

import (
	"fmt"
	"image/color"
)

// Channel identifies one of the four texture roles the pipeline consolidates.
// It is a closed enum: each channel carries its material accessors, its
// neutral fallback color, and whether its atlas must be encoded losslessly as
// static data, so nothing in the pipeline dispatches on channel names.
type Channel int

const (
	// ChannelBaseColor is the albedo/base color channel.
	ChannelBaseColor Channel = iota

	// ChannelNormal is the tangent-space normal map channel.
	ChannelNormal

	// ChannelOcclusionRoughnessMetallic is the packed occlusion (R),
	// roughness (G), metallic (B) channel. It covers both the glTF occlusion
	// and metallic-roughness material slots.
	ChannelOcclusionRoughnessMetallic

	// ChannelEmissive is the emissive color channel.
	ChannelEmissive
)

// CanonicalOrder is the priority order used to pick the canonical channel:
// the first channel in this list with at least one usable texture defines the
// rect layout every other channel reuses.
var CanonicalOrder = []Channel{
	ChannelBaseColor,
	ChannelNormal,
	ChannelOcclusionRoughnessMetallic,
	ChannelEmissive,
}

// channelInfo is the static data backing one Channel value.
type channelInfo struct {
	name     string
	fallback color.NRGBA
	lossless bool
	get      func(*Material) *TextureRef
	set      func(*Material, *TextureRef)
}

var channelTable = map[Channel]channelInfo{
	ChannelBaseColor: {
		name:     "baseColor",
		fallback: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		lossless: false,
		get:      func(m *Material) *TextureRef { return m.BaseColor },
		set:      func(m *Material, r *TextureRef) { m.BaseColor = r },
	},
	ChannelNormal: {
		name: "normal",
		// Flat tangent-space normal: (0.5, 0.5, 1).
		fallback: color.NRGBA{R: 128, G: 128, B: 255, A: 255},
		lossless: true,
		get:      func(m *Material) *TextureRef { return m.Normal },
		set:      func(m *Material, r *TextureRef) { m.Normal = r },
	},
	ChannelOcclusionRoughnessMetallic: {
		name:     "occlusionRoughnessMetallic",
		fallback: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		lossless: true,
		get: func(m *Material) *TextureRef {
			if m.MetallicRoughness != nil {
				return m.MetallicRoughness
			}
			return m.Occlusion
		},
		set: func(m *Material, r *TextureRef) {
			// The packed atlas serves both glTF slots.
			m.MetallicRoughness = r
			m.Occlusion = r
		},
	},
	ChannelEmissive: {
		name:     "emissive",
		fallback: color.NRGBA{R: 0, G: 0, B: 0, A: 255},
		lossless: false,
		get:      func(m *Material) *TextureRef { return m.Emissive },
		set:      func(m *Material, r *TextureRef) { m.Emissive = r },
	},
}

// ParseChannel resolves a configuration name to a Channel. Accepted names are
// "baseColor", "normal", "occlusionRoughnessMetallic" (alias "orm") and
// "emissive".
//
// Parameters:
//   - name: the channel name from configuration
//
// Returns:
//   - Channel: the resolved channel
//   - error: error when the name is not a known channel
func ParseChannel(name string) (Channel, error) {
	if name == "orm" {
		return ChannelOcclusionRoughnessMetallic, nil
	}
	for ch, info := range channelTable {
		if info.name == name {
			return ch, nil
		}
	}
	return 0, fmt.Errorf("unknown texture channel %q", name)
}

// String returns the channel's configuration name.
//
// Returns:
//   - string: the channel name
func (c Channel) String() string {
	if info, ok := channelTable[c]; ok {
		return info.name
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// Valid reports whether the value is one of the four supported channels.
//
// Returns:
//   - bool: true for a known channel
func (c Channel) Valid() bool {
	_, ok := channelTable[c]
	return ok
}

// FallbackColor returns the neutral solid color used when a material has no
// texture in this channel: white for base color and ORM, flat mid-blue for
// normals, black for emissive.
//
// Returns:
//   - color.NRGBA: the fallback fill color
func (c Channel) FallbackColor() color.NRGBA {
	return channelTable[c].fallback
}

// Lossless reports whether atlases for this channel default to lossless
// encoding regardless of the configured lossy output format. Normal and ORM
// data does not survive lossy chroma subsampling.
//
// Returns:
//   - bool: true when the channel defaults to lossless encoding
func (c Channel) Lossless() bool {
	return channelTable[c].lossless
}

// TextureRef returns the material's texture reference for this channel. For
// the packed ORM channel the metallic-roughness slot wins over occlusion when
// both are present.
//
// Parameters:
//   - m: the material to read
//
// Returns:
//   - *TextureRef: the reference, or nil when the slot is empty
func (c Channel) TextureRef(m *Material) *TextureRef {
	return channelTable[c].get(m)
}

// SetTextureRef stores a texture reference in the material slot(s) this
// channel covers. The ORM channel points both the occlusion and the
// metallic-roughness slot at the same reference.
//
// Parameters:
//   - m: the material to mutate
//   - r: the reference to store
func (c Channel) SetTextureRef(m *Material, r *TextureRef) {
	channelTable[c].set(m, r)
}
