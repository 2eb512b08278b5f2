// Package cover computes BlurHash placeholders for catalog cover images.
package cover

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// blurHashSize is the longest edge of the image the hash is computed on.
	blurHashSize = 64

	// maxImageBytes bounds downloaded covers.
	maxImageBytes = 5 << 20
)

// Hasher downloads cover images and hashes them.
type Hasher struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHasher creates a Hasher. A nil client gets a 15s timeout client.
func NewHasher(httpClient *http.Client, logger *slog.Logger) *Hasher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hasher{httpClient: httpClient, logger: logger}
}

// FromURL fetches the image at url and returns its BlurHash.
func (h *Hasher) FromURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch cover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch cover: status %d", resp.StatusCode)
	}

	return Compute(io.LimitReader(resp.Body, maxImageBytes))
}

// Compute decodes an image and returns its BlurHash with 4x3 components.
func Compute(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	hash, err := blurhash.Encode(4, 3, thumbnail(img))
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}

// thumbnail scales img so its longest edge is blurHashSize.
func thumbnail(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= blurHashSize && h <= blurHashSize {
		return img
	}

	dw, dh := blurHashSize, blurHashSize
	if w > h {
		dh = max(1, h*blurHashSize/w)
	} else {
		dw = max(1, w*blurHashSize/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
