package atlas

import (
	"github.com/Carmen-Shannon/oxy-atlas/scene"
)

// LayoutRecord describes one channel's atlas layout. It is a descriptive
// artifact for external verification tooling, not consumed by the pipeline
// itself, and serializes to JSON next to the output file when requested.
type LayoutRecord struct {
	// Channel is the channel name this layout belongs to.
	Channel string `json:"channel"`

	// Bins are the produced atlas canvases and their rects.
	Bins []LayoutBin `json:"bins"`

	// UVDiagnostics holds the post-remap UV bounds per material, canonical
	// channel only.
	UVDiagnostics []UVDiagnostic `json:"uvDiagnostics,omitempty"`
}

// LayoutBin is one atlas canvas in a layout record.
type LayoutBin struct {
	// Width, Height is the canvas size in pixels.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Rects are the placed rectangles.
	Rects []LayoutRect `json:"rects"`
}

// LayoutRect is one placed rectangle in a layout record.
type LayoutRect struct {
	// X, Y is the top-left placement in atlas pixels.
	X int `json:"x"`
	Y int `json:"y"`

	// Width, Height is the placed size in pixels.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Texture is the name of the source texture composited into the rect,
	// or "" for a synthesized fallback fill.
	Texture string `json:"texture,omitempty"`

	// Materials are the names of the materials the rect serves.
	Materials []string `json:"materials"`
}

// UVDiagnostic records the remapped UV bounds of one material's geometry.
// Verification tooling asserts these stay inside the material's rect.
type UVDiagnostic struct {
	// Material is the material name.
	Material string `json:"material"`

	// MinU, MinV, MaxU, MaxV bound every remapped UV of the material's
	// primitives.
	MinU float32 `json:"minU"`
	MinV float32 `json:"minV"`
	MaxU float32 `json:"maxU"`
	MaxV float32 `json:"maxV"`
}

// uvDiagnostics computes the set-0 UV bounds per material after remapping.
func uvDiagnostics(materials []*scene.Material, primsByMaterial map[*scene.Material][]*scene.Primitive) []UVDiagnostic {
	var out []UVDiagnostic
	for _, m := range materials {
		prims := primsByMaterial[m]
		if len(prims) == 0 {
			continue
		}

		d := UVDiagnostic{Material: m.Name}
		seen := false
		for _, p := range prims {
			for _, uv := range p.UVSet(0) {
				if !seen {
					d.MinU, d.MaxU = uv[0], uv[0]
					d.MinV, d.MaxV = uv[1], uv[1]
					seen = true
					continue
				}
				d.MinU = min(d.MinU, uv[0])
				d.MaxU = max(d.MaxU, uv[0])
				d.MinV = min(d.MinV, uv[1])
				d.MaxV = max(d.MaxV, uv[1])
			}
		}
		if seen {
			out = append(out, d)
		}
	}
	return out
}
