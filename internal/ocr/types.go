/**
 * OCR Types - Shared data structures for OCR operations
 *
 * Common types used by the engine adapter, the orchestrator, and the
 * cross-context wire format.
 */

package ocr

import (
	"context"
	"time"
)

// Settings is collaborator-owned configuration, read-only input to the
// preprocessing stage and the engine adapter.
type Settings struct {
	AutoEnhance   bool `json:"autoEnhance"`
	MultiLanguage bool `json:"multiLanguage"`
}

// WordBox is one recognized word with its axis-aligned bounding box, in the
// pixel coordinate space of the recognized image.
type WordBox struct {
	Text string  `json:"text"`
	X0   float64 `json:"x0"`
	Y0   float64 `json:"y0"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
}

// Result is one successful orchestration outcome. Created once per call,
// immutable, consumed by the caller and discarded - never cached. Word order
// is the engine's reading order; indices are stable selection keys for the
// lifetime of the result.
type Result struct {
	Text        string        `json:"text"`
	Confidence  float64       `json:"confidence"`
	Words       []WordBox     `json:"words,omitempty"`
	ImageWidth  int           `json:"imageWidth"`
	ImageHeight int           `json:"imageHeight"`
	Duration    time.Duration `json:"-"`
}

// Request carries one image into the engine adapter.
type Request struct {
	// Image is an opaque, self-contained encoding of the pixels (PNG or JPEG).
	Image []byte
	// Languages lists tesseract language codes; empty means engine default.
	Languages []string
}

// RawResult is the engine's uncleaned output.
type RawResult struct {
	Text        string
	Confidence  float64 // 0-100
	Words       []WordBox
	ImageWidth  int
	ImageHeight int
}

// Engine is the external recognition capability: given image pixels, return
// text, a confidence score, and per-word bounding boxes.
type Engine interface {
	Recognize(ctx context.Context, req Request) (*RawResult, error)
	Close() error
}
