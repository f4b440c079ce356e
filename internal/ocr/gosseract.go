/**
 * Tesseract engine adapter
 *
 * Wraps gosseract behind the Engine interface. A fresh client is created per
 * recognition call; the shared state the Manager guards is the handle itself,
 * not client reuse.
 */

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// GosseractEngine implements Engine using the local tesseract installation.
type GosseractEngine struct {
	clientFactory func() *gosseract.Client
}

// NewGosseractEngine constructs a tesseract-backed OCR engine.
func NewGosseractEngine() *GosseractEngine {
	return &GosseractEngine{clientFactory: gosseract.NewClient}
}

// Recognize performs OCR on a single encoded image.
func (e *GosseractEngine) Recognize(ctx context.Context, req Request) (*RawResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	width, height, err := imageSize(req.Image)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	client := e.clientFactory()
	defer client.Close()

	if err := client.SetImageFromBytes(req.Image); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	if len(req.Languages) > 0 {
		if err := client.SetLanguage(req.Languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}

	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	words, confidence := extractWords(client)
	if len(words) == 0 {
		// Word-level output is optional; estimate confidence from the text.
		confidence = estimateConfidence(text)
	}

	return &RawResult{
		Text:        text,
		Confidence:  confidence,
		Words:       words,
		ImageWidth:  width,
		ImageHeight: height,
	}, nil
}

// Close releases the engine handle. Per-call clients are already closed, so
// there is nothing to tear down beyond the handle itself.
func (e *GosseractEngine) Close() error {
	return nil
}

// extractWords pulls word-level bounding boxes in reading order, plus the mean
// word confidence on the 0-100 scale.
func extractWords(client *gosseract.Client) ([]WordBox, float64) {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return nil, 0
	}

	words := make([]WordBox, 0, len(boxes))
	var sum float64
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		sum += b.Confidence
		words = append(words, WordBox{
			Text: word,
			X0:   float64(b.Box.Min.X),
			Y0:   float64(b.Box.Min.Y),
			X1:   float64(b.Box.Max.X),
			Y1:   float64(b.Box.Max.Y),
		})
	}
	if len(words) == 0 {
		return nil, 0
	}
	return words, sum / float64(len(words))
}

// estimateConfidence falls back to text-quality indicators when the engine
// reports no word-level confidence.
func estimateConfidence(text string) float64 {
	confidence := 50.0

	if len(text) > 1000 {
		confidence += 10
	}
	if len(text) > 5000 {
		confidence += 10
	}

	if len(strings.Fields(text)) > 100 {
		confidence += 10
	}

	alphaCount := 0
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			alphaCount++
		}
	}
	if len(text) > 0 {
		alphaRatio := float64(alphaCount) / float64(len(text))
		if alphaRatio > 0.5 && alphaRatio < 0.9 {
			confidence += 10
		}
	}

	if confidence > 85 {
		confidence = 85
	}
	return confidence
}

func imageSize(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
