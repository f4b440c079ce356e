/**
 * Image preprocessing stage
 *
 * Upscale + grayscale + contrast threshold applied before recognition when
 * autoEnhance is on. Nearest-neighbor scaling only - smoothing blurs glyph
 * edges and hurts tesseract more than jaggies do.
 */

package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// DefaultTargetEdge is the edge length small images are upscaled toward.
const DefaultTargetEdge = 800

// binarizeThreshold splits luminance into pure black and pure white.
const binarizeThreshold = 128

// EnhanceImage decodes the payload, upscales it by clamp(targetEdge/maxEdge, 1, 2)
// with nearest-neighbor sampling, converts to luminance and binarizes at 128.
// Alpha is untouched. Output is a fresh PNG payload.
func EnhanceImage(payload []byte, targetEdge int) ([]byte, error) {
	if targetEdge <= 0 {
		targetEdge = DefaultTargetEdge
	}

	src, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("image has zero dimension: %dx%d", w, h)
	}

	scale := Scale(w, h, targetEdge)
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)

	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			px := dst.NRGBAAt(x, y)
			lum := 0.299*float64(px.R) + 0.587*float64(px.G) + 0.114*float64(px.B)
			var v uint8
			if lum >= binarizeThreshold {
				v = 255
			}
			dst.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: px.A})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode enhanced image: %w", err)
	}
	return buf.Bytes(), nil
}

// Scale computes the upscale factor for an image: targetEdge divided by the
// longer edge, clamped to [1, 2]. Large images pass through unscaled.
func Scale(width, height, targetEdge int) float64 {
	maxEdge := width
	if height > maxEdge {
		maxEdge = height
	}
	scale := float64(targetEdge) / float64(maxEdge)
	if scale < 1 {
		return 1
	}
	if scale > 2 {
		return 2
	}
	return scale
}
