package atlas

import (
	"fmt"
	"image"

	"github.com/Carmen-Shannon/oxy-atlas/codec"
	"github.com/Carmen-Shannon/oxy-atlas/packer"
	"github.com/Carmen-Shannon/oxy-atlas/scene"
	"github.com/Carmen-Shannon/oxy-atlas/sizer"
	"go.uber.org/zap"
)

// buildCanonicalAtlases composites and encodes one atlas texture per packed
// bin for the canonical channel.
func (p *pipelineImpl) buildCanonicalAtlases(ch scene.Channel, bins []packer.Bin) ([]*scene.Texture, *LayoutRecord, error) {
	textures := make([]*scene.Texture, len(bins))
	layout := &LayoutRecord{Channel: ch.String()}

	for bi, bin := range bins {
		var layers []codec.Layer
		lb := LayoutBin{Width: bin.Width, Height: bin.Height}

		for _, r := range bin.Rects {
			entry := r.Item.Payload.(*sizer.Entry)
			if entry.Image != nil {
				layers = append(layers, codec.Layer{
					X: r.X, Y: r.Y, Width: r.Width, Height: r.Height,
					Image: entry.Image,
				})
			}

			rect := LayoutRect{
				X: r.X, Y: r.Y, Width: r.Width, Height: r.Height,
				Materials: materialNames(entry.Materials),
			}
			if entry.Texture != nil {
				rect.Texture = entry.Texture.Name
			}
			lb.Rects = append(lb.Rects, rect)
		}

		tex, err := p.compositeAtlas(ch, bi, bin.Width, bin.Height, layers)
		if err != nil {
			return nil, nil, err
		}
		textures[bi] = tex
		layout.Bins = append(layout.Bins, lb)
	}
	return textures, layout, nil
}

// buildReusedAtlases composites a secondary channel's atlases onto the
// canonical rect layout. Rect geometry is copied verbatim; rects whose
// materials carry no texture in this channel stay on the channel-neutral
// background fill.
func (p *pipelineImpl) buildReusedAtlases(ch scene.Channel, bins []packer.Bin) ([]*scene.Texture, *LayoutRecord, error) {
	textures := make([]*scene.Texture, len(bins))
	layout := &LayoutRecord{Channel: ch.String()}
	decoded := make(map[*scene.Texture]image.Image)

	for bi, bin := range bins {
		var layers []codec.Layer
		lb := LayoutBin{Width: bin.Width, Height: bin.Height}

		for _, r := range bin.Rects {
			entry := r.Item.Payload.(*sizer.Entry)
			chosen := p.resolveRectTexture(ch, entry.Materials)

			rect := LayoutRect{
				X: r.X, Y: r.Y, Width: r.Width, Height: r.Height,
				Materials: materialNames(entry.Materials),
			}
			if chosen != nil {
				img, ok := decoded[chosen]
				if !ok {
					var err error
					img, err = p.codec.Decode(chosen.Data)
					if err != nil {
						return nil, nil, fmt.Errorf("channel %s: texture %q: %w", ch, chosen.Name, err)
					}
					decoded[chosen] = img
				}
				layers = append(layers, codec.Layer{
					X: r.X, Y: r.Y, Width: r.Width, Height: r.Height,
					Image: img,
				})
				rect.Texture = chosen.Name
			}
			lb.Rects = append(lb.Rects, rect)
		}

		tex, err := p.compositeAtlas(ch, bi, bin.Width, bin.Height, layers)
		if err != nil {
			return nil, nil, err
		}
		textures[bi] = tex
		layout.Bins = append(layout.Bins, lb)
	}
	return textures, layout, nil
}

// resolveRectTexture picks the texture composited into one shared rect for a
// secondary channel. When the rect's owning materials disagree, the first
// owner with a texture wins.
func (p *pipelineImpl) resolveRectTexture(ch scene.Channel, owners []*scene.Material) *scene.Texture {
	var chosen *scene.Texture
	for _, m := range owners {
		ref := ch.TextureRef(m)
		if ref == nil || ref.Texture == nil || len(ref.Texture.Data) == 0 {
			continue
		}
		if chosen == nil {
			chosen = ref.Texture
			continue
		}
		if ref.Texture != chosen {
			p.logger.Warn("materials sharing one rect carry different textures, keeping first",
				zap.String("channel", ch.String()),
				zap.String("material", m.Name),
				zap.String("kept", chosen.Name),
				zap.String("dropped", ref.Texture.Name))
		}
	}
	return chosen
}

// compositeAtlas renders one atlas canvas and encodes it into a texture
// object. Lossless channels encode PNG regardless of the configured format.
func (p *pipelineImpl) compositeAtlas(ch scene.Channel, bin, width, height int, layers []codec.Layer) (*scene.Texture, error) {
	canvas, err := p.codec.Composite(width, height, ch.FallbackColor(), layers)
	if err != nil {
		return nil, fmt.Errorf("composite %s atlas %d: %w", ch, bin, err)
	}

	mime := p.format
	if ch.Lossless() {
		mime = codec.MimePNG
	}
	data, actual, err := p.codec.Encode(canvas, mime, p.quality)
	if err != nil {
		return nil, fmt.Errorf("encode %s atlas %d: %w", ch, bin, err)
	}

	p.logger.Debug("built atlas",
		zap.String("channel", ch.String()),
		zap.Int("bin", bin),
		zap.Int("size", width),
		zap.String("mimeType", actual))
	return &scene.Texture{
		Name:     fmt.Sprintf("atlas_%s_%d", ch, bin),
		MimeType: actual,
		Data:     data,
	}, nil
}

// materialNames lists material names for the layout record.
func materialNames(materials []*scene.Material) []string {
	names := make([]string, len(materials))
	for i, m := range materials {
		names[i] = m.Name
	}
	return names
}
