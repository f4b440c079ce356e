package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestScale(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          float64
	}{
		{name: "small image doubles", width: 200, height: 100, want: 2},
		{name: "medium image scales toward target", width: 640, height: 200, want: 1.25},
		{name: "at target stays put", width: 800, height: 400, want: 1},
		{name: "large image never shrinks", width: 1600, height: 900, want: 1},
		{name: "tall image uses longer edge", width: 100, height: 640, want: 1.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, Scale(tt.width, tt.height, DefaultTargetEdge), 1e-9)
		})
	}
}

func TestEnhanceImageBinarizes(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 400, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 400; x++ {
			// Left half dark gray, right half light gray.
			if x < 200 {
				src.SetNRGBA(x, y, color.NRGBA{R: 40, G: 40, B: 40, A: 255})
			} else {
				src.SetNRGBA(x, y, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
			}
		}
	}

	out, err := EnhanceImage(encodePNG(t, src), DefaultTargetEdge)
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	// 400x200 upscales by 2.
	bounds := decoded.Bounds()
	require.Equal(t, 800, bounds.Dx())
	require.Equal(t, 400, bounds.Dy())

	darkR, _, _, _ := decoded.At(10, 10).RGBA()
	lightR, _, _, _ := decoded.At(bounds.Dx()-10, 10).RGBA()
	require.Equal(t, uint32(0), darkR)
	require.Equal(t, uint32(0xffff), lightR)
}

func TestEnhanceImageThreshold(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 800, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 800; x++ {
			if x < 400 {
				src.SetNRGBA(x, y, color.NRGBA{R: 127, G: 127, B: 127, A: 255})
			} else {
				src.SetNRGBA(x, y, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
			}
		}
	}

	out, err := EnhanceImage(encodePNG(t, src), DefaultTargetEdge)
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	// Luminance 127 falls below the threshold, 128 lands on it.
	r, _, _, _ := decoded.At(10, 10).RGBA()
	require.Equal(t, uint32(0), r)
	r, _, _, _ = decoded.At(790, 10).RGBA()
	require.Equal(t, uint32(0xffff), r)
}

func TestEnhanceImagePreservesAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 900, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 900; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 250, G: 250, B: 250, A: 200})
		}
	}

	out, err := EnhanceImage(encodePNG(t, src), DefaultTargetEdge)
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	// No upscale above the target edge; alpha carried through.
	require.Equal(t, 900, decoded.Bounds().Dx())
	nrgba, ok := decoded.(*image.NRGBA)
	require.True(t, ok)
	require.Equal(t, uint8(200), nrgba.NRGBAAt(10, 10).A)
}

func TestEnhanceImageRejectsGarbage(t *testing.T) {
	_, err := EnhanceImage([]byte("not an image"), DefaultTargetEdge)
	require.Error(t, err)
}
