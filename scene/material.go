package scene

// Material holds the PBR metallic-roughness surface description of a
// primitive, with one optional texture reference per supported slot. The slot
// layout mirrors glTF: occlusion and metallic-roughness are distinct slots even
// though the pipeline treats them as a single packed channel.
type Material struct {
	// Name is an optional identifier for the material.
	Name string

	// BaseColorFactor is the albedo RGBA multiplier.
	BaseColorFactor [4]float32

	// MetallicFactor is the metalness multiplier (0 = dielectric, 1 = metal).
	MetallicFactor float32

	// RoughnessFactor is the roughness multiplier (0 = smooth, 1 = rough).
	RoughnessFactor float32

	// EmissiveFactor is the emissive RGB multiplier.
	EmissiveFactor [3]float32

	// DoubleSided disables backface culling for the material.
	DoubleSided bool

	// BaseColor is the albedo texture reference, or nil.
	BaseColor *TextureRef

	// Normal is the normal map reference, or nil.
	Normal *TextureRef

	// Occlusion is the ambient occlusion map reference, or nil.
	Occlusion *TextureRef

	// MetallicRoughness is the metallic (B) / roughness (G) map reference, or nil.
	MetallicRoughness *TextureRef
	// Emissive is the emissive map reference, or nil.
	Emissive *TextureRef
}

// TextureRef points a material slot at a texture, carrying the texcoord set
// index and an optional UV transform still waiting to be baked.
type TextureRef struct {
	// Texture is the referenced texture object.
	Texture *Texture

	// TexCoord is the texcoord set index the slot samples.
	TexCoord int

	// Transform is a pending per-material UV transform, or nil once baked.
	Transform *TextureTransform
}

// TextureTransform is a KHR_texture_transform-style UV transform: UVs are
// scaled, rotated by the angle in radians, then offset.
type TextureTransform struct {
	// Offset is the UV offset.
	Offset [2]float32

	// Scale is the UV scale.
	Scale [2]float32

	// Rotation is the rotation angle in radians.
	Rotation float32
}

// Texture is one distinct image object: raw encoded bytes plus the container
// MIME type. Pixel decoding is left to the codec.
type Texture struct {
	// Name is an optional identifier for the texture.
	Name string

	// MimeType is the container type of Data (e.g. "image/png").
	MimeType string

	// Data holds the encoded image bytes.
	Data []byte
}

// Refs returns every non-nil texture reference on the material, in slot order.
// Used when an operation must touch all texture-infos at once, such as forcing
// every slot onto texcoord set 0 after a remap.
//
// Returns:
//   - []*TextureRef: all non-nil references
func (m *Material) Refs() []*TextureRef {
	var refs []*TextureRef
	for _, r := range []*TextureRef{m.BaseColor, m.Normal, m.Occlusion, m.MetallicRoughness, m.Emissive} {
		if r != nil {
			refs = append(refs, r)
		}
	}
	return refs
}

// ForceTexCoord points every texture reference on the material at the given
// texcoord set.
//
// Parameters:
//   - set: the texcoord set index to force
func (m *Material) ForceTexCoord(set int) {
	for _, r := range m.Refs() {
		r.TexCoord = set
	}
}
