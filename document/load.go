package document

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-atlas/common"
	"github.com/Carmen-Shannon/oxy-atlas/scene"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
)

// khrTextureTransform is the extension key carrying per-material UV
// transforms.
const khrTextureTransform = "KHR_texture_transform"

var identityMatrix = [16]float64{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

func (d *documentImpl) Load(path string) (*scene.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}

	textures, err := d.loadTextures(doc, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	materials := d.loadMaterials(doc, textures)

	meshes := make([]*scene.Mesh, len(doc.Meshes))
	for i, m := range doc.Meshes {
		mesh, err := d.loadMesh(doc, m, materials)
		if err != nil {
			return nil, fmt.Errorf("mesh %q: %w", m.Name, err)
		}
		meshes[i] = mesh
	}

	nodes := make([]*scene.Node, len(doc.Nodes))
	for i, n := range doc.Nodes {
		node := &scene.Node{Name: n.Name, Local: nodeLocal(n)}
		if n.Mesh != nil {
			node.Mesh = meshes[*n.Mesh]
		}
		nodes[i] = node
	}
	for i, n := range doc.Nodes {
		for _, child := range n.Children {
			nodes[i].Children = append(nodes[i].Children, nodes[child])
		}
	}

	out := &scene.Scene{
		Materials: materials,
		Textures:  textures,
		Roots:     sceneRoots(doc, nodes),
	}
	if len(doc.Scenes) > 0 {
		si := 0
		if doc.Scene != nil {
			si = *doc.Scene
		}
		out.Name = doc.Scenes[si].Name
	}

	d.logger.Info("document loaded",
		zap.String("path", path),
		zap.Int("nodes", len(nodes)),
		zap.Int("materials", len(materials)),
		zap.Int("textures", len(textures)))
	return out, nil
}

// sceneRoots resolves the root node list: the default scene's nodes, or every
// parentless node when the document declares no scenes.
func sceneRoots(doc *gltf.Document, nodes []*scene.Node) []*scene.Node {
	if len(doc.Scenes) > 0 {
		si := 0
		if doc.Scene != nil {
			si = *doc.Scene
		}
		roots := make([]*scene.Node, 0, len(doc.Scenes[si].Nodes))
		for _, ni := range doc.Scenes[si].Nodes {
			roots = append(roots, nodes[ni])
		}
		return roots
	}

	isChild := make(map[*scene.Node]bool)
	for _, n := range nodes {
		for _, c := range n.Children {
			isChild[c] = true
		}
	}
	var roots []*scene.Node
	for _, n := range nodes {
		if !isChild[n] {
			roots = append(roots, n)
		}
	}
	return roots
}

// nodeLocal converts a node's transform to a flat column-major matrix, nil
// for identity. An explicit matrix wins over TRS.
func nodeLocal(n *gltf.Node) []float32 {
	if m := n.MatrixOrDefault(); m != identityMatrix {
		out := make([]float32, 16)
		for i, v := range m {
			out[i] = float32(v)
		}
		return out
	}

	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	t := n.TranslationOrDefault()
	if r == [4]float64{0, 0, 0, 1} && s == [3]float64{1, 1, 1} && t == [3]float64{0, 0, 0} {
		return nil
	}

	out := make([]float32, 16)
	common.ComposeTRS(out,
		[3]float32{float32(t[0]), float32(t[1]), float32(t[2])},
		[4]float32{float32(r[0]), float32(r[1]), float32(r[2]), float32(r[3])},
		[3]float32{float32(s[0]), float32(s[1]), float32(s[2])})
	return out
}

// loadTextures resolves every glTF texture's image bytes: buffer view first,
// then embedded data URI, then a file next to the document.
func (d *documentImpl) loadTextures(doc *gltf.Document, baseDir string) ([]*scene.Texture, error) {
	textures := make([]*scene.Texture, len(doc.Textures))
	for i, t := range doc.Textures {
		tex := &scene.Texture{Name: t.Name}
		textures[i] = tex
		if t.Source == nil {
			continue
		}

		img := doc.Images[*t.Source]
		if tex.Name == "" {
			tex.Name = img.Name
		}
		tex.MimeType = img.MimeType

		data, err := imageBytes(doc, img, baseDir)
		if err != nil {
			return nil, fmt.Errorf("texture %q: %w", tex.Name, err)
		}
		tex.Data = data

		if tex.MimeType == "" {
			tex.MimeType = d.codec.SniffMime(data)
		}
	}
	return textures, nil
}

// imageBytes extracts an image's encoded bytes from its buffer view, its
// data URI, or a file relative to the document.
func imageBytes(doc *gltf.Document, img *gltf.Image, baseDir string) ([]byte, error) {
	if img.BufferView != nil {
		bv := doc.BufferViews[*img.BufferView]
		buf := doc.Buffers[bv.Buffer].Data
		return buf[bv.ByteOffset : bv.ByteOffset+bv.ByteLength], nil
	}
	if img.URI == "" {
		return nil, nil
	}
	if strings.HasPrefix(img.URI, "data:") {
		data, err := img.MarshalData()
		if err != nil {
			return nil, fmt.Errorf("failed to decode data uri: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(filepath.Join(baseDir, img.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}

// loadMaterials converts glTF materials, resolving one texture reference per
// channel slot. glTF stores factors as float64; the scene model narrows them
// to float32.
func (d *documentImpl) loadMaterials(doc *gltf.Document, textures []*scene.Texture) []*scene.Material {
	materials := make([]*scene.Material, len(doc.Materials))
	for i, m := range doc.Materials {
		out := &scene.Material{
			Name:            m.Name,
			BaseColorFactor: [4]float32{1, 1, 1, 1},
			MetallicFactor:  1,
			RoughnessFactor: 1,
			EmissiveFactor:  factor3(m.EmissiveFactor),
			DoubleSided:     m.DoubleSided,
		}

		if pbr := m.PBRMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				out.BaseColorFactor = factor4(*pbr.BaseColorFactor)
			}
			if pbr.MetallicFactor != nil {
				out.MetallicFactor = float32(*pbr.MetallicFactor)
			}
			if pbr.RoughnessFactor != nil {
				out.RoughnessFactor = float32(*pbr.RoughnessFactor)
			}
			if ti := pbr.BaseColorTexture; ti != nil {
				out.BaseColor = textureRef(textures, ti.Index, ti.TexCoord, ti.Extensions)
			}
			if ti := pbr.MetallicRoughnessTexture; ti != nil {
				out.MetallicRoughness = textureRef(textures, ti.Index, ti.TexCoord, ti.Extensions)
			}
		}
		if nt := m.NormalTexture; nt != nil && nt.Index != nil {
			out.Normal = textureRef(textures, *nt.Index, nt.TexCoord, nil)
		}
		if ot := m.OcclusionTexture; ot != nil && ot.Index != nil {
			out.Occlusion = textureRef(textures, *ot.Index, ot.TexCoord, nil)
		}
		if ti := m.EmissiveTexture; ti != nil {
			out.Emissive = textureRef(textures, ti.Index, ti.TexCoord, ti.Extensions)
		}
		materials[i] = out
	}
	return materials
}

// textureRef builds a texture reference, decoding any KHR_texture_transform
// payload attached to the texture info.
func textureRef(textures []*scene.Texture, index, texCoord int, ext gltf.Extensions) *scene.TextureRef {
	if index < 0 || index >= len(textures) {
		return nil
	}
	ref := &scene.TextureRef{Texture: textures[index], TexCoord: texCoord}

	if raw, ok := ext[khrTextureTransform]; ok {
		payload := struct {
			Offset   [2]float32 `json:"offset"`
			Rotation float32    `json:"rotation"`
			Scale    [2]float32 `json:"scale"`
			TexCoord *int       `json:"texCoord"`
		}{Scale: [2]float32{1, 1}}

		// Unregistered extensions come through as raw JSON; re-marshaling
		// also covers the already-decoded map case.
		if data, err := json.Marshal(raw); err == nil && json.Unmarshal(data, &payload) == nil {
			ref.Transform = &scene.TextureTransform{
				Offset:   payload.Offset,
				Scale:    payload.Scale,
				Rotation: payload.Rotation,
			}
			if payload.TexCoord != nil {
				ref.TexCoord = *payload.TexCoord
			}
		}
	}
	return ref
}

// loadMesh converts one glTF mesh and its primitives.
func (d *documentImpl) loadMesh(doc *gltf.Document, m *gltf.Mesh, materials []*scene.Material) (*scene.Mesh, error) {
	mesh := &scene.Mesh{Name: m.Name}
	for pi, prim := range m.Primitives {
		p, err := d.loadPrimitive(doc, prim, materials)
		if err != nil {
			return nil, fmt.Errorf("primitive %d: %w", pi, err)
		}
		p.Name = fmt.Sprintf("%s_%d", m.Name, pi)
		mesh.Primitives = append(mesh.Primitives, p)
	}
	return mesh, nil
}

func (d *documentImpl) loadPrimitive(doc *gltf.Document, prim *gltf.Primitive, materials []*scene.Material) (*scene.Primitive, error) {
	if prim.Mode != gltf.PrimitiveTriangles {
		return nil, errNonTriangles
	}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, errMissingPosition
	}

	p := &scene.Primitive{}
	if prim.Material != nil {
		p.Material = materials[*prim.Material]
	}

	var err error
	if p.Positions, err = readVec3(doc, posIdx); err != nil {
		return nil, fmt.Errorf("POSITION: %w", err)
	}
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if p.Normals, err = readVec3(doc, idx); err != nil {
			return nil, fmt.Errorf("NORMAL: %w", err)
		}
	}
	if idx, ok := prim.Attributes["TANGENT"]; ok {
		if p.Tangents, err = readVec4(doc, idx); err != nil {
			return nil, fmt.Errorf("TANGENT: %w", err)
		}
	}
	if idx, ok := prim.Attributes[gltf.COLOR_0]; ok {
		if p.Colors, err = readColors(doc, idx); err != nil {
			return nil, fmt.Errorf("COLOR_0: %w", err)
		}
	}
	for set := 0; ; set++ {
		idx, ok := prim.Attributes[fmt.Sprintf("TEXCOORD_%d", set)]
		if !ok {
			break
		}
		uv, err := readUVs(doc, idx)
		if err != nil {
			return nil, fmt.Errorf("TEXCOORD_%d: %w", set, err)
		}
		p.SetUVSet(set, uv)
	}

	if prim.Indices != nil {
		if p.Indices, err = readIndices(doc, *prim.Indices); err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	}

	for _, target := range prim.Targets {
		mt := scene.MorphTarget{}
		if idx, ok := target[gltf.POSITION]; ok {
			if mt.Positions, err = readVec3(doc, idx); err != nil {
				return nil, fmt.Errorf("morph POSITION: %w", err)
			}
		}
		if idx, ok := target[gltf.NORMAL]; ok {
			if mt.Normals, err = readVec3(doc, idx); err != nil {
				return nil, fmt.Errorf("morph NORMAL: %w", err)
			}
		}
		p.Targets = append(p.Targets, mt)
	}
	return p, nil
}

// readAccessor reads an accessor's decoded contents, rejecting sparse
// storage.
func readAccessor(doc *gltf.Document, idx int) (any, error) {
	acc := doc.Accessors[idx]
	if acc.Sparse != nil {
		return nil, errSparseAccessor
	}
	data, err := modeler.ReadAccessor(doc, acc, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read accessor: %w", err)
	}
	return data, nil
}

func readVec3(doc *gltf.Document, idx int) ([][3]float32, error) {
	data, err := readAccessor(doc, idx)
	if err != nil {
		return nil, err
	}
	v, ok := data.([][3]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected accessor type %T", data)
	}
	return v, nil
}

func readVec4(doc *gltf.Document, idx int) ([][4]float32, error) {
	data, err := readAccessor(doc, idx)
	if err != nil {
		return nil, err
	}
	v, ok := data.([][4]float32)
	if !ok {
		return nil, fmt.Errorf("unexpected accessor type %T", data)
	}
	return v, nil
}

// readUVs reads a texcoord accessor, denormalizing the integer encodings the
// format allows.
func readUVs(doc *gltf.Document, idx int) ([][2]float32, error) {
	data, err := readAccessor(doc, idx)
	if err != nil {
		return nil, err
	}
	switch v := data.(type) {
	case [][2]float32:
		return v, nil
	case [][2]uint8:
		out := make([][2]float32, len(v))
		for i, uv := range v {
			out[i] = [2]float32{float32(uv[0]) / 255, float32(uv[1]) / 255}
		}
		return out, nil
	case [][2]uint16:
		out := make([][2]float32, len(v))
		for i, uv := range v {
			out[i] = [2]float32{float32(uv[0]) / 65535, float32(uv[1]) / 65535}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected accessor type %T", data)
	}
}

// readColors reads a COLOR_0 accessor, widening RGB to RGBA and
// denormalizing integer encodings.
func readColors(doc *gltf.Document, idx int) ([][4]float32, error) {
	data, err := readAccessor(doc, idx)
	if err != nil {
		return nil, err
	}
	switch v := data.(type) {
	case [][4]float32:
		return v, nil
	case [][3]float32:
		out := make([][4]float32, len(v))
		for i, c := range v {
			out[i] = [4]float32{c[0], c[1], c[2], 1}
		}
		return out, nil
	case [][4]uint8:
		out := make([][4]float32, len(v))
		for i, c := range v {
			out[i] = [4]float32{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255, float32(c[3]) / 255}
		}
		return out, nil
	case [][3]uint8:
		out := make([][4]float32, len(v))
		for i, c := range v {
			out[i] = [4]float32{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255, 1}
		}
		return out, nil
	case [][4]uint16:
		out := make([][4]float32, len(v))
		for i, c := range v {
			out[i] = [4]float32{float32(c[0]) / 65535, float32(c[1]) / 65535, float32(c[2]) / 65535, float32(c[3]) / 65535}
		}
		return out, nil
	case [][3]uint16:
		out := make([][4]float32, len(v))
		for i, c := range v {
			out[i] = [4]float32{float32(c[0]) / 65535, float32(c[1]) / 65535, float32(c[2]) / 65535, 1}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected accessor type %T", data)
	}
}

// readIndices reads an index accessor, widening to uint32.
func readIndices(doc *gltf.Document, idx int) ([]uint32, error) {
	data, err := readAccessor(doc, idx)
	if err != nil {
		return nil, err
	}
	switch v := data.(type) {
	case []uint32:
		return v, nil
	case []uint16:
		out := make([]uint32, len(v))
		for i, n := range v {
			out[i] = uint32(n)
		}
		return out, nil
	case []uint8:
		out := make([]uint32, len(v))
		for i, n := range v {
			out[i] = uint32(n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected accessor type %T", data)
	}
}

func factor3(v [3]float64) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

func factor4(v [4]float64) [4]float32 {
	return [4]float32{float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3])}
}
