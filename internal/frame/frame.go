// Package frame defines the capture region and frame data model shared by
// the capture, comparison, and export layers.
package frame

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	"image/png"
	"strconv"
	"strings"
	"time"

	"github.com/snapdeck/snapdeck/internal/errors"
)

// Region is a rectangular screen area in absolute pixel coordinates.
// Valid regions have X1 < X2 and Y1 < Y2.
type Region struct {
	X1, Y1, X2, Y2 int
}

// Validate checks the region invariants.
func (r Region) Validate() error {
	if r.X2 <= r.X1 || r.Y2 <= r.Y1 {
		return errors.Newf(errors.CodeConfigInvalid,
			"invalid region (%d,%d,%d,%d): x2 must be > x1 and y2 must be > y1",
			r.X1, r.Y1, r.X2, r.Y2)
	}
	return nil
}

// Width returns the region width in pixels.
func (r Region) Width() int { return r.X2 - r.X1 }

// Height returns the region height in pixels.
func (r Region) Height() int { return r.Y2 - r.Y1 }

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}

// ParseRegion parses "x1,y1,x2,y2" into a Region.
func ParseRegion(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, errors.Newf(errors.CodeConfigInvalid,
			"invalid region %q: need x1,y1,x2,y2", s)
	}
	var vals [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Region{}, errors.Wrapf(err, errors.CodeConfigInvalid,
				"invalid region %q", s)
		}
		vals[i] = v
	}
	r := Region{X1: vals[0], Y1: vals[1], X2: vals[2], Y2: vals[3]}
	if err := r.Validate(); err != nil {
		return Region{}, err
	}
	return r, nil
}

// Frame is a decoded raster image with its capture timestamp. The pixel
// buffer is owned by the orchestrator tick that produced it until consumed.
type Frame struct {
	Image      *image.RGBA
	CapturedAt time.Time
}

// New wraps a decoded image into a Frame, converting to RGBA if needed.
func New(img image.Image, capturedAt time.Time) Frame {
	return Frame{Image: toRGBA(img), CapturedAt: capturedAt}
}

// Width returns the pixel buffer width.
func (f Frame) Width() int { return f.Image.Bounds().Dx() }

// Height returns the pixel buffer height.
func (f Frame) Height() int { return f.Image.Bounds().Dy() }

// Equal reports whether two frames have identical dimensions and pixel data.
func (f Frame) Equal(other Frame) bool {
	if f.Image == nil || other.Image == nil {
		return f.Image == other.Image
	}
	if f.Image.Bounds() != other.Image.Bounds() {
		return false
	}
	return bytes.Equal(f.Image.Pix, other.Image.Pix)
}

// EncodePNG serializes the frame's pixel buffer as PNG.
func (f Frame) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, f.Image); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "png encode failed")
	}
	return buf.Bytes(), nil
}

// Decode decodes PNG/JPEG bytes into a Frame with the given timestamp.
func Decode(data []byte, capturedAt time.Time) (Frame, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Frame{}, errors.Wrap(err, errors.CodeCaptureUnavailable, "image decode failed")
	}
	return New(img, capturedAt), nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			rgba.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return rgba
}
