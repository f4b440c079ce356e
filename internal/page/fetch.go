package page

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	xerrors "github.com/extractext/extractext/internal/errors"
)

const (
	fetchTimeout  = 15 * time.Second
	maxImageBytes = 32 << 20
)

// ImageData is one loaded image plus its natural dimensions.
type ImageData struct {
	Payload []byte
	Width   int
	Height  int
}

// ImageLoader resolves an image URL to its bytes.
type ImageLoader interface {
	Load(ctx context.Context, imageURL string) (*ImageData, error)
}

// HTTPImageLoader loads images over http(s) and decodes data: URLs inline.
type HTTPImageLoader struct {
	client *http.Client
}

func NewHTTPImageLoader() *HTTPImageLoader {
	return &HTTPImageLoader{client: &http.Client{Timeout: fetchTimeout}}
}

func (l *HTTPImageLoader) Load(ctx context.Context, imageURL string) (*ImageData, error) {
	var payload []byte
	var err error
	switch {
	case strings.HasPrefix(imageURL, "data:"):
		payload, err = decodeDataURL(imageURL)
	case strings.HasPrefix(imageURL, "http://"), strings.HasPrefix(imageURL, "https://"):
		payload, err = l.fetch(ctx, imageURL)
	default:
		err = fmt.Errorf("unsupported url scheme")
	}
	if err != nil {
		return nil, xerrors.NewImageLoadError(imageURL, err)
	}

	img, format, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, xerrors.NewImageLoadError(imageURL, err)
	}
	// Downstream consumers expect a PNG payload; convert anything else.
	if format != "png" {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, xerrors.NewImageLoadError(imageURL, err)
		}
		payload = buf.Bytes()
	}
	bounds := img.Bounds()
	return &ImageData{Payload: payload, Width: bounds.Dx(), Height: bounds.Dy()}, nil
}

func (l *HTTPImageLoader) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(payload) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	return payload, nil
}

// decodeDataURL accepts only base64-encoded data URLs; that is the form image
// capture produces.
func decodeDataURL(u string) ([]byte, error) {
	idx := strings.Index(u, ",")
	if idx < 0 {
		return nil, fmt.Errorf("malformed data url")
	}
	meta, body := u[:idx], u[idx+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("data url is not base64 encoded")
	}
	return base64.StdEncoding.DecodeString(body)
}
