// Package document converts between glTF 2.0 files and the in-memory scene
// model. Loading pulls node transforms, triangle geometry, materials and
// image bytes out of a .gltf/.glb document; saving rebuilds a fresh document
// from scratch through the modeler writers rather than patching the input.
package document

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-atlas/codec"
	"github.com/Carmen-Shannon/oxy-atlas/scene"
	"go.uber.org/zap"
)

// Common errors returned by the document converter.
var (
	errMissingPosition = errors.New("primitive has no POSITION attribute")
	errSparseAccessor  = errors.New("sparse accessors are not supported")
	errNonTriangles    = errors.New("only triangle primitives are supported")
)

// documentImpl is the implementation of the Document interface.
type documentImpl struct {
	codec  codec.Codec
	logger *zap.Logger
}

// Document loads and saves glTF 2.0 scenes.
type Document interface {
	// Load parses a .gltf or .glb file into the scene model. Image bytes are
	// resolved from buffer views, embedded data URIs, or files relative to
	// the document.
	//
	// Parameters:
	//   - path: the input file path
	//
	// Returns:
	//   - *scene.Scene: the loaded scene
	//   - error: parse failures and input defects (missing POSITION, sparse
	//     accessors, non-triangle primitives)
	Load(path string) (*scene.Scene, error)

	// Save writes the scene to a .glb (binary) or .gltf (JSON) file,
	// selected by the path extension. The document is rebuilt from scratch:
	// geometry through accessor writers, textures as image buffer views.
	//
	// Parameters:
	//   - s: the scene to write
	//   - path: the output file path
	//
	// Returns:
	//   - error: encode or write failures
	Save(s *scene.Scene, path string) error
}

var _ Document = &documentImpl{}

// DocumentBuilderOption is a functional option for configuring a Document via
// NewDocument.
type DocumentBuilderOption func(*documentImpl)

// WithCodec is an option builder that sets the codec used for MIME sniffing.
//
// Parameters:
//   - c: the codec instance
//
// Returns:
//   - DocumentBuilderOption: a function that applies the codec option to a document
func WithCodec(c codec.Codec) DocumentBuilderOption {
	return func(d *documentImpl) {
		d.codec = c
	}
}

// WithLogger is an option builder that sets the logger used for load/save
// diagnostics.
//
// Parameters:
//   - logger: the zap logger instance
//
// Returns:
//   - DocumentBuilderOption: a function that applies the logger option to a document
func WithLogger(logger *zap.Logger) DocumentBuilderOption {
	return func(d *documentImpl) {
		d.logger = logger
	}
}

// NewDocument creates a new Document instance configured with the provided
// options.
//
// Parameters:
//   - opts: optional configuration
//
// Returns:
//   - Document: the document instance
func NewDocument(opts ...DocumentBuilderOption) Document {
	d := &documentImpl{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.codec == nil {
		d.codec = codec.NewCodec(codec.WithLogger(d.logger))
	}
	return d
}

// sceneName returns the scene's name with a fallback for unnamed scenes.
func sceneName(s *scene.Scene) string {
	if s.Name != "" {
		return s.Name
	}
	return "scene"
}
