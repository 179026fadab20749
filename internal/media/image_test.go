package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// hugePNG returns a tiny PNG whose header declares w x h pixels.
func hugePNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1)
	// Signature (8) + length (4) + "IHDR" (4), then width and height.
	ihdr := data[12 : 12+4+13]
	binary.BigEndian.PutUint32(ihdr[4:8], w)
	binary.BigEndian.PutUint32(ihdr[8:12], h)
	binary.BigEndian.PutUint32(data[12+4+13:], crc32.ChecksumIEEE(ihdr))
	return data
}

func TestFit(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"landscape", 400, 200, 100, 100, 50},
		{"portrait", 200, 400, 100, 50, 100},
		{"already small", 60, 40, 100, 60, 40},
		{"sliver keeps a pixel", 1000, 1, 100, 100, 1},
		{"no limit", 300, 300, 0, 300, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewRGBA(image.Rect(0, 0, tt.w, tt.h))
			got := Fit(src, tt.max).Bounds()
			assert.Equal(t, tt.wantW, got.Dx())
			assert.Equal(t, tt.wantH, got.Dy())
		})
	}
}

func TestNormalize(t *testing.T) {
	d := NewDownloader(Config{MaxDimension: 64}, nil)

	img, err := d.Normalize(pngBytes(t, 256, 128))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIMEType)
	assert.Equal(t, 64, img.Width)
	assert.Equal(t, 32, img.Height)

	decoded, err := jpeg.Decode(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, 64, decoded.Bounds().Dx())

	_, err = d.Normalize([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestNormalize_RejectsHugeDeclaredSize(t *testing.T) {
	d := NewDownloader(Config{}, nil)

	data := hugePNG(t, 20000, 20000)
	require.Less(t, len(data), 200)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err, "header must still parse")
	require.Equal(t, 20000, cfg.Width)

	_, err = d.Normalize(data)
	assert.ErrorIs(t, err, ErrTooLarge)

	small := NewDownloader(Config{MaxPixels: 100}, nil)
	_, err = small.Normalize(pngBytes(t, 20, 10))
	assert.ErrorIs(t, err, ErrTooLarge)
	_, err = small.Normalize(pngBytes(t, 10, 10))
	assert.NoError(t, err)
}

func TestFetch(t *testing.T) {
	big := pngBytes(t, 200, 100)

	mux := http.NewServeMux()
	mux.HandleFunc("/ok.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(big)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/missing", http.NotFound)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	d := NewDownloader(Config{MaxDimension: 50, MaxBytes: 1 << 20, Timeout: time.Second}, srv.Client())

	t.Run("downscales", func(t *testing.T) {
		img, err := d.Fetch(context.Background(), srv.URL+"/ok.png")
		require.NoError(t, err)
		assert.Equal(t, 50, img.Width)
		assert.Equal(t, 25, img.Height)
		assert.Equal(t, srv.URL+"/ok.png", img.Source)
	})

	t.Run("rejects html", func(t *testing.T) {
		_, err := d.Fetch(context.Background(), srv.URL+"/page")
		assert.ErrorIs(t, err, ErrNotImage)
	})

	t.Run("http error", func(t *testing.T) {
		_, err := d.Fetch(context.Background(), srv.URL+"/missing")
		assert.Error(t, err)
	})

	t.Run("size cap", func(t *testing.T) {
		small := NewDownloader(Config{MaxBytes: 16, Timeout: time.Second}, srv.Client())
		_, err := small.Fetch(context.Background(), srv.URL+"/ok.png")
		assert.ErrorIs(t, err, ErrTooLarge)
	})
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	img := &Image{Data: []byte{0xff, 0xd8}, MIMEType: "image/jpeg"}

	path, err := img.Save(dir, "cycle-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cycle-1.jpg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, img.Data, data)

	var nilImg *Image
	_, err = nilImg.Save(dir, "x")
	assert.Error(t, err)
}
