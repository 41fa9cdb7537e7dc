// Package codec implements the image codec collaborator for the atlas
// pipeline: decoding, resizing, compositing and encoding of texture pixel
// data. PNG and JPEG round-trip through the standard library, WebP decodes
// through golang.org/x/image, and resampling goes through bild.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/anthonynsimon/bild/transform"
	"github.com/h2non/filetype"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

// Supported container MIME types.
const (
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeWebP = "image/webp"
)

// Common errors returned by the codec.
var (
	errEmptyImage        = errors.New("empty image buffer")
	errUnknownFormat     = errors.New("unknown image format")
	errInvalidCanvasSize = errors.New("invalid canvas size")
)

// FitMode selects how a resize treats the target box.
type FitMode int

const (
	// FitInside scales the image down to fit entirely within the box,
	// preserving aspect ratio. Images already inside the box are unchanged.
	FitInside FitMode = iota

	// FitCover scales the image so the box is entirely covered, then crops
	// the overflow centered.
	FitCover
)

// Layer is one positioned sub-image for compositing. The image is resampled
// to Width x Height when its bounds differ.
type Layer struct {
	// X, Y is the top-left placement inside the canvas.
	X, Y int

	// Width, Height is the placed size in pixels.
	Width, Height int

	// Image is the source pixel data.
	Image image.Image
}

// codecImpl is the implementation of the Codec interface.
type codecImpl struct {
	logger *zap.Logger
}

// Codec decodes, resizes, composites and encodes texture images. All
// operations are pure pixel transforms; nothing here touches the scene model.
type Codec interface {
	// Decode decodes an encoded image buffer into pixel data.
	//
	// Parameters:
	//   - data: the encoded image bytes
	//
	// Returns:
	//   - image.Image: the decoded image
	//   - error: error if the buffer cannot be decoded
	Decode(data []byte) (image.Image, error)

	// Dimensions reads the pixel dimensions of an encoded image without
	// decoding the full pixel data.
	//
	// Parameters:
	//   - data: the encoded image bytes
	//
	// Returns:
	//   - int: the width in pixels
	//   - int: the height in pixels
	//   - error: error if the dimensions cannot be determined
	Dimensions(data []byte) (int, int, error)

	// Resize resamples an image to exactly width x height.
	//
	// Parameters:
	//   - img: the source image
	//   - width: the target width in pixels
	//   - height: the target height in pixels
	//
	// Returns:
	//   - image.Image: the resampled image
	Resize(img image.Image, width, height int) image.Image

	// ResizeFit resamples an image into a bounding box, preserving aspect
	// ratio with either fit-inside or fit-cover semantics.
	//
	// Parameters:
	//   - img: the source image
	//   - boxWidth: the box width in pixels
	//   - boxHeight: the box height in pixels
	//   - mode: FitInside or FitCover
	//
	// Returns:
	//   - image.Image: the fitted image
	ResizeFit(img image.Image, boxWidth, boxHeight int, mode FitMode) image.Image

	// Composite draws positioned sub-images onto a solid-color canvas.
	// Layers are drawn in order; each layer is resampled to its placed size
	// when the source dimensions differ.
	//
	// Parameters:
	//   - width: the canvas width in pixels
	//   - height: the canvas height in pixels
	//   - fill: the canvas background color
	//   - layers: the sub-images to place
	//
	// Returns:
	//   - *image.RGBA: the composited canvas
	//   - error: error if the canvas size is invalid
	Composite(width, height int, fill color.NRGBA, layers []Layer) (*image.RGBA, error)

	// Encode encodes an image to the requested MIME type. PNG is lossless;
	// JPEG honors quality 0-100. Requesting a type without an encoder falls
	// back to PNG with a warning, so the returned MIME type may differ from
	// the requested one.
	//
	// Parameters:
	//   - img: the image to encode
	//   - mimeType: the requested container type
	//   - quality: lossy quality 0-100 (ignored for lossless types)
	//
	// Returns:
	//   - []byte: the encoded bytes
	//   - string: the MIME type actually produced
	//   - error: error if encoding fails
	Encode(img image.Image, mimeType string, quality int) ([]byte, string, error)

	// SniffMime detects the container MIME type of an encoded image buffer
	// from its magic bytes. Returns the empty string when the type is
	// unknown.
	//
	// Parameters:
	//   - data: the encoded image bytes
	//
	// Returns:
	//   - string: the detected MIME type, or ""
	SniffMime(data []byte) string
}

var _ Codec = &codecImpl{}

// CodecBuilderOption is a functional option for configuring a Codec via NewCodec.
type CodecBuilderOption func(*codecImpl)

// WithLogger is an option builder that sets the logger used for codec warnings.
//
// Parameters:
//   - logger: the zap logger instance
//
// Returns:
//   - CodecBuilderOption: a function that applies the logger option to a codec
func WithLogger(logger *zap.Logger) CodecBuilderOption {
	return func(c *codecImpl) {
		c.logger = logger
	}
}

// NewCodec creates a new Codec instance configured with the provided options.
//
// Parameters:
//   - opts: optional configuration
//
// Returns:
//   - Codec: the codec instance
func NewCodec(opts ...CodecBuilderOption) Codec {
	c := &codecImpl{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *codecImpl) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errEmptyImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func (c *codecImpl) Dimensions(data []byte) (int, int, error) {
	if len(data) == 0 {
		return 0, 0, errEmptyImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image dimensions: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

func (c *codecImpl) Resize(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	return transform.Resize(img, width, height, transform.Linear)
}

func (c *codecImpl) ResizeFit(img image.Image, boxWidth, boxHeight int, mode FitMode) image.Image {
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	if srcW == 0 || srcH == 0 {
		return img
	}

	sx := float64(boxWidth) / float64(srcW)
	sy := float64(boxHeight) / float64(srcH)

	switch mode {
	case FitCover:
		scale := sx
		if sy > scale {
			scale = sy
		}
		w := int(float64(srcW)*scale + 0.5)
		h := int(float64(srcH)*scale + 0.5)
		scaled := c.Resize(img, max(w, boxWidth), max(h, boxHeight))

		// Center-crop the overflow.
		sb := scaled.Bounds()
		x0 := sb.Min.X + (sb.Dx()-boxWidth)/2
		y0 := sb.Min.Y + (sb.Dy()-boxHeight)/2
		out := image.NewRGBA(image.Rect(0, 0, boxWidth, boxHeight))
		draw.Draw(out, out.Bounds(), scaled, image.Pt(x0, y0), draw.Src)
		return out
	default: // FitInside
		scale := sx
		if sy < scale {
			scale = sy
		}
		if scale >= 1 {
			return img
		}
		w := max(int(float64(srcW)*scale+0.5), 1)
		h := max(int(float64(srcH)*scale+0.5), 1)
		return c.Resize(img, w, h)
	}
}

func (c *codecImpl) Composite(width, height int, fill color.NRGBA, layers []Layer) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", errInvalidCanvasSize, width, height)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)

	for _, layer := range layers {
		if layer.Image == nil || layer.Width <= 0 || layer.Height <= 0 {
			continue
		}
		src := c.Resize(layer.Image, layer.Width, layer.Height)
		dst := image.Rect(layer.X, layer.Y, layer.X+layer.Width, layer.Y+layer.Height)
		draw.Draw(canvas, dst, src, src.Bounds().Min, draw.Src)
	}

	return canvas, nil
}

func (c *codecImpl) Encode(img image.Image, mimeType string, quality int) ([]byte, string, error) {
	var buf bytes.Buffer

	switch mimeType {
	case MimeJPEG:
		if quality < 0 {
			quality = 0
		} else if quality > 100 {
			quality = 100
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", fmt.Errorf("failed to encode jpeg: %w", err)
		}
		return buf.Bytes(), MimeJPEG, nil
	case MimePNG:
	default:
		// No WebP (or other) encoder is available; fall back to lossless PNG.
		c.logger.Warn("no encoder for requested format, falling back to png",
			zap.String("mimeType", mimeType))
	}

	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), MimePNG, nil
}

func (c *codecImpl) SniffMime(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}
