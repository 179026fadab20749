// Package media downloads headline images and shrinks them to a size the
// generator and the rendered page can use.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"synthfeed/internal/logging"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrTooLarge is returned when an image exceeds the configured byte or pixel cap.
var ErrTooLarge = errors.New("image exceeds size limit")

// ErrNotImage is returned when the response is not a decodable image.
var ErrNotImage = errors.New("not an image")

// DefaultMaxPixels is the pixel cap used when Config.MaxPixels is unset.
const DefaultMaxPixels = 40_000_000

// Image is a downscaled JPEG ready to attach to a request.
type Image struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
	// Source is the URL the image came from.
	Source string
}

// Config configures a Downloader.
type Config struct {
	MaxDimension int
	MaxBytes     int64
	// MaxPixels caps the declared width*height accepted for decoding.
	MaxPixels    int64
	Timeout      time.Duration
	UserAgent    string
	// Quality is the JPEG quality used on re-encode.
	Quality      int
}

// Downloader fetches and normalizes images.
type Downloader struct {
	cfg    Config
	client *http.Client
}

// NewDownloader creates a downloader. A nil client uses one with cfg.Timeout.
func NewDownloader(cfg Config, client *http.Client) *Downloader {
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = 768
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 8 << 20
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = DefaultMaxPixels
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = 85
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Downloader{cfg: cfg, client: client}
}

// Fetch downloads url, decodes it and returns a JPEG whose longest edge is at
// most MaxDimension.
func (d *Downloader) Fetch(ctx context.Context, url string) (*Image, error) {
	timer := logging.StartTimer(logging.CategoryMedia, "Fetch")
	defer timer.Stop()

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if d.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", d.cfg.UserAgent)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") && !strings.HasPrefix(ct, "application/octet-stream") {
		return nil, fmt.Errorf("%w: content type %s", ErrNotImage, ct)
	}
	if resp.ContentLength > d.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > d.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, d.cfg.MaxBytes)
	}

	img, err := d.Normalize(data)
	if err != nil {
		return nil, err
	}
	img.Source = url
	logging.Media("Fetched %s (%dx%d, %d bytes)", url, img.Width, img.Height, len(img.Data))
	return img, nil
}

// Normalize decodes raw image bytes, downscales and re-encodes them as JPEG.
// The header is checked against MaxPixels before the pixels are decoded.
func (d *Downloader) Normalize(data []byte) (*Image, error) {
	hdr, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if hdr.Width <= 0 || hdr.Height <= 0 {
		return nil, fmt.Errorf("%w: empty %dx%d image", ErrNotImage, hdr.Width, hdr.Height)
	}
	if int64(hdr.Width)*int64(hdr.Height) > d.cfg.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, hdr.Width, hdr.Height, d.cfg.MaxPixels)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	logging.MediaDebug("Decoded %s image %v", format, src.Bounds().Size())

	dst := Fit(src, d.cfg.MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: d.cfg.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	b := dst.Bounds()
	return &Image{
		Data:     buf.Bytes(),
		MIMEType: "image/jpeg",
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

// Fit scales src so its longest edge is at most maxDim, keeping the aspect
// ratio. Images already within bounds are copied onto an RGBA canvas
// unchanged.
func Fit(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	if maxDim > 0 && (w > maxDim || h > maxDim) {
		if w >= h {
			h = max(1, h*maxDim/w)
			w = maxDim
		} else {
			w = max(1, w*maxDim/h)
			h = maxDim
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// Save writes the image under dir as name.jpg and returns the path.
func (img *Image) Save(dir, name string) (string, error) {
	if img == nil {
		return "", errors.New("nil image")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	path := filepath.Join(dir, name+".jpg")
	if err := os.WriteFile(path, img.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	logging.MediaDebug("Saved %s", path)
	return path, nil
}
