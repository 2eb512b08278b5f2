package cover

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompute(t *testing.T) {
	hash, err := Compute(bytes.NewReader(testPNG(t, 200, 300)))
	require.NoError(t, err)

	// 4x3 components: 1 size + 1 max + 4 DC + 2*(4*3-1) AC characters.
	assert.Len(t, hash, 28)
}

func TestCompute_InvalidImage(t *testing.T) {
	_, err := Compute(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

func TestThumbnail(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 320))

	thumb := thumbnail(img)

	assert.Equal(t, 64, thumb.Bounds().Dx())
	assert.Equal(t, 32, thumb.Bounds().Dy())

	small := image.NewRGBA(image.Rect(0, 0, 40, 60))
	assert.Equal(t, image.Image(small), thumbnail(small), "small images are used as is")
}

func TestHasher_FromURL(t *testing.T) {
	data := testPNG(t, 120, 180)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cover.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	h := NewHasher(srv.Client(), nil)

	hash, err := h.FromURL(context.Background(), srv.URL+"/cover.png")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	_, err = h.FromURL(context.Background(), srv.URL+"/missing.png")
	assert.ErrorContains(t, err, "status 404")
}
