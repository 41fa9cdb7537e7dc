package document

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-atlas/scene"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
)

func (d *documentImpl) Save(s *scene.Scene, path string) error {
	doc := gltf.NewDocument()
	doc.Asset.Generator = "oxy-atlas"

	texIdx, err := d.writeTextures(doc, s.Textures)
	if err != nil {
		return err
	}
	matIdx := writeMaterials(doc, s.Materials, texIdx)

	meshIdx := make(map[*scene.Mesh]int)
	var rootIdx []int
	for _, root := range s.Roots {
		ni, err := writeNode(doc, root, matIdx, meshIdx)
		if err != nil {
			return err
		}
		rootIdx = append(rootIdx, ni)
	}

	doc.Scenes[0].Name = sceneName(s)
	doc.Scenes[0].Nodes = rootIdx

	if strings.EqualFold(filepath.Ext(path), ".glb") {
		err = gltf.SaveBinary(doc, path)
	} else {
		err = gltf.Save(doc, path)
	}
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	d.logger.Info("document saved",
		zap.String("path", path),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("textures", len(doc.Textures)))
	return nil
}

// writeTextures stores every texture's encoded bytes as an image buffer view
// plus a repeat-wrap sampler, returning the glTF texture index per texture
// object.
func (d *documentImpl) writeTextures(doc *gltf.Document, textures []*scene.Texture) (map[*scene.Texture]int, error) {
	texIdx := make(map[*scene.Texture]int, len(textures))
	if len(textures) == 0 {
		return texIdx, nil
	}

	doc.Samplers = append(doc.Samplers, &gltf.Sampler{
		WrapS: gltf.WrapRepeat,
		WrapT: gltf.WrapRepeat,
	})
	sampler := len(doc.Samplers) - 1

	for _, tex := range textures {
		mime := tex.MimeType
		if mime == "" {
			mime = d.codec.SniffMime(tex.Data)
		}
		img, err := modeler.WriteImage(doc, tex.Name, mime, bytes.NewReader(tex.Data))
		if err != nil {
			return nil, fmt.Errorf("texture %q: %w", tex.Name, err)
		}
		doc.Textures = append(doc.Textures, &gltf.Texture{
			Name:    tex.Name,
			Source:  gltf.Index(img),
			Sampler: gltf.Index(sampler),
		})
		texIdx[tex] = len(doc.Textures) - 1
	}
	return texIdx, nil
}

// writeMaterials converts the scene materials, wiring each occupied slot at
// its texture index. Factors widen from the model's float32 to glTF's
// float64.
func writeMaterials(doc *gltf.Document, materials []*scene.Material, texIdx map[*scene.Texture]int) map[*scene.Material]int {
	matIdx := make(map[*scene.Material]int, len(materials))
	for _, m := range materials {
		factor := [4]float64{
			float64(m.BaseColorFactor[0]),
			float64(m.BaseColorFactor[1]),
			float64(m.BaseColorFactor[2]),
			float64(m.BaseColorFactor[3]),
		}
		out := &gltf.Material{
			Name: m.Name,
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: &factor,
				MetallicFactor:  gltf.Float(float64(m.MetallicFactor)),
				RoughnessFactor: gltf.Float(float64(m.RoughnessFactor)),
			},
			EmissiveFactor: [3]float64{
				float64(m.EmissiveFactor[0]),
				float64(m.EmissiveFactor[1]),
				float64(m.EmissiveFactor[2]),
			},
			DoubleSided: m.DoubleSided,
			AlphaMode:   gltf.AlphaOpaque,
		}

		if ti, ok := textureInfo(m.BaseColor, texIdx); ok {
			out.PBRMetallicRoughness.BaseColorTexture = ti
		}
		if ti, ok := textureInfo(m.MetallicRoughness, texIdx); ok {
			out.PBRMetallicRoughness.MetallicRoughnessTexture = ti
		}
		if ref := m.Normal; ref != nil {
			if idx, ok := texIdx[ref.Texture]; ok {
				out.NormalTexture = &gltf.NormalTexture{
					Index:    gltf.Index(idx),
					TexCoord: ref.TexCoord,
				}
			}
		}
		if ref := m.Occlusion; ref != nil {
			if idx, ok := texIdx[ref.Texture]; ok {
				out.OcclusionTexture = &gltf.OcclusionTexture{
					Index:    gltf.Index(idx),
					TexCoord: ref.TexCoord,
				}
			}
		}
		if ti, ok := textureInfo(m.Emissive, texIdx); ok {
			out.EmissiveTexture = ti
		}

		doc.Materials = append(doc.Materials, out)
		matIdx[m] = len(doc.Materials) - 1
	}
	return matIdx
}

func textureInfo(ref *scene.TextureRef, texIdx map[*scene.Texture]int) (*gltf.TextureInfo, bool) {
	if ref == nil {
		return nil, false
	}
	idx, ok := texIdx[ref.Texture]
	if !ok {
		return nil, false
	}
	return &gltf.TextureInfo{Index: idx, TexCoord: ref.TexCoord}, true
}

// writeNode recursively writes a node subtree, deduplicating shared meshes.
func writeNode(doc *gltf.Document, n *scene.Node, matIdx map[*scene.Material]int, meshIdx map[*scene.Mesh]int) (int, error) {
	out := &gltf.Node{Name: n.Name, Matrix: identityMatrix}
	if n.Local != nil {
		for i, v := range n.Local {
			out.Matrix[i] = float64(v)
		}
	}

	if n.Mesh != nil {
		mi, ok := meshIdx[n.Mesh]
		if !ok {
			var err error
			mi, err = writeMesh(doc, n.Mesh, matIdx)
			if err != nil {
				return 0, err
			}
			meshIdx[n.Mesh] = mi
		}
		out.Mesh = gltf.Index(mi)
	}

	for _, child := range n.Children {
		ci, err := writeNode(doc, child, matIdx, meshIdx)
		if err != nil {
			return 0, err
		}
		out.Children = append(out.Children, ci)
	}

	doc.Nodes = append(doc.Nodes, out)
	return len(doc.Nodes) - 1, nil
}

func writeMesh(doc *gltf.Document, m *scene.Mesh, matIdx map[*scene.Material]int) (int, error) {
	mesh := &gltf.Mesh{Name: m.Name}
	for _, p := range m.Primitives {
		prim, err := writePrimitive(doc, p, matIdx)
		if err != nil {
			return 0, fmt.Errorf("mesh %q: %w", m.Name, err)
		}
		mesh.Primitives = append(mesh.Primitives, prim)
	}
	doc.Meshes = append(doc.Meshes, mesh)
	return len(doc.Meshes) - 1, nil
}

// writePrimitive writes one primitive's attributes through the modeler,
// narrowing indices to 16 bits when the vertex count allows it.
func writePrimitive(doc *gltf.Document, p *scene.Primitive, matIdx map[*scene.Material]int) (*gltf.Primitive, error) {
	if len(p.Positions) == 0 {
		return nil, fmt.Errorf("%w: %q", errMissingPosition, p.Name)
	}

	attrs := gltf.PrimitiveAttributes{
		gltf.POSITION: modeler.WritePosition(doc, p.Positions),
	}
	if p.Normals != nil {
		attrs[gltf.NORMAL] = modeler.WriteNormal(doc, p.Normals)
	}
	if p.Tangents != nil {
		attrs["TANGENT"] = modeler.WriteTangent(doc, p.Tangents)
	}
	if p.Colors != nil {
		attrs[gltf.COLOR_0] = modeler.WriteColor(doc, p.Colors)
	}
	for set, uv := range p.TexCoords {
		if uv == nil {
			continue
		}
		attrs[fmt.Sprintf("TEXCOORD_%d", set)] = modeler.WriteTextureCoord(doc, uv)
	}

	prim := &gltf.Primitive{Attributes: attrs}
	if p.Material != nil {
		if mi, ok := matIdx[p.Material]; ok {
			prim.Material = gltf.Index(mi)
		}
	}

	if p.Indices != nil {
		if p.VertexCount() > 65535 {
			prim.Indices = gltf.Index(modeler.WriteIndices(doc, p.Indices))
		} else {
			narrow := make([]uint16, len(p.Indices))
			for i, idx := range p.Indices {
				narrow[i] = uint16(idx)
			}
			prim.Indices = gltf.Index(modeler.WriteIndices(doc, narrow))
		}
	}
	return prim, nil
}
