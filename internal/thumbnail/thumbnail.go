// Package thumbnail renders collection cover images.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	// ContentType is the media type of rendered thumbnails.
	ContentType = "image/jpeg"
	// Ext is the file extension of rendered thumbnails.
	Ext = "jpg"

	DefaultWidth   = 320
	DefaultQuality = 85

	// DefaultMaxPixels caps width*height of a source image before it is
	// decoded.
	DefaultMaxPixels = 50_000_000
)

// ErrUndecodable is returned when the source bytes are not a decodable image.
var ErrUndecodable = errors.New("image cannot be decoded")

// Renderer downscales page images to a fixed width, preserving aspect ratio.
type Renderer struct {
	Width     int
	Quality   int
	MaxPixels int64
}

// NewRenderer returns a Renderer for the given width; width <= 0 selects
// DefaultWidth.
func NewRenderer(width int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Renderer{Width: width, Quality: DefaultQuality, MaxPixels: DefaultMaxPixels}
}

// Render decodes src, shrinks it to at most r.Width pixels wide and encodes
// the result as JPEG. Images already narrower than r.Width are re-encoded
// without scaling. Sources declaring more than r.MaxPixels pixels are
// rejected with ErrUndecodable before any pixel data is decoded.
func (r *Renderer) Render(src []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}
	if r.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > r.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUndecodable, cfg.Width, cfg.Height, r.MaxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}

	if img.Bounds().Dx() > r.Width {
		img = imaging.Resize(img, r.Width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(r.Quality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
