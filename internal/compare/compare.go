// Package compare provides interchangeable frame similarity strategies
// unified behind a single difference-score contract.
package compare

import (
	"context"
	"image"

	"github.com/nfnt/resize"

	"github.com/snapdeck/snapdeck/internal/errors"
	"github.com/snapdeck/snapdeck/internal/frame"
)

// Method identifies a comparison strategy.
type Method string

const (
	MethodMSE   Method = "mse"
	MethodSSIM  Method = "ssim"
	MethodPHash Method = "phash"
	MethodEmbed Method = "embed"
)

// Methods lists all supported comparison methods.
func Methods() []Method {
	return []Method{MethodMSE, MethodSSIM, MethodPHash, MethodEmbed}
}

// Valid reports whether the method is supported.
func (m Method) Valid() bool {
	switch m {
	case MethodMSE, MethodSSIM, MethodPHash, MethodEmbed:
		return true
	}
	return false
}

// DefaultThresholds maps each method to a sensible default decision threshold.
// The scales differ because the metrics differ: a 0.005 mean-squared error is
// a large visual change while a 0.005 embedding distance is noise.
var DefaultThresholds = map[Method]float64{
	MethodMSE:   0.005,
	MethodSSIM:  0.02,
	MethodPHash: 0.10,
	MethodEmbed: 0.05,
}

// Result is the unified outcome of comparing two frames. Score is in [0,1]
// where 0 means identical and 1 maximally different, regardless of method.
type Result struct {
	Score       float64
	IsDifferent bool
}

// Comparator scores how different the current frame is from the previous one.
// Implementations are stateless per call; the decision rule is identical
// across methods: IsDifferent = Score > threshold.
type Comparator interface {
	Method() Method
	Score(ctx context.Context, prev, curr frame.Frame) (Result, error)
	Close() error
}

// Options configures comparator construction.
type Options struct {
	// Threshold is the difference-score decision boundary in (0,1].
	Threshold float64
	// EmbedAddr is the embedding sidecar address, required for MethodEmbed.
	EmbedAddr string
}

// New constructs the comparator for the given method. MethodEmbed dials the
// embedding sidecar here; a failed dial aborts session start before any
// capture happens.
func New(ctx context.Context, method Method, opts Options) (Comparator, error) {
	if !method.Valid() {
		return nil, errors.Newf(errors.CodeConfigInvalid, "unknown comparison method %q", method)
	}
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		return nil, errors.Newf(errors.CodeConfigInvalid,
			"threshold %v out of range (0,1]", opts.Threshold)
	}
	switch method {
	case MethodMSE:
		return &mseComparator{threshold: opts.Threshold}, nil
	case MethodSSIM:
		return &ssimComparator{threshold: opts.Threshold}, nil
	case MethodPHash:
		return &phashComparator{threshold: opts.Threshold}, nil
	default:
		return newEmbedComparator(ctx, opts)
	}
}

// decide applies the shared decision rule.
func decide(score, threshold float64) Result {
	return Result{Score: score, IsDifferent: score > threshold}
}

// clamp01 clamps v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// matchSizes resizes both images to their common minimum dimensions so the
// pixel metrics always compare equally sized buffers. Frames from a fixed
// region normally match already; resizing only happens across a mid-session
// display scale change.
func matchSizes(a, b *image.RGBA) (*image.RGBA, *image.RGBA) {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() == bb.Dx() && ab.Dy() == bb.Dy() {
		return a, b
	}
	w := min(ab.Dx(), bb.Dx())
	h := min(ab.Dy(), bb.Dy())
	return toRGBA(resize.Resize(uint(w), uint(h), a, resize.Lanczos3)),
		toRGBA(resize.Resize(uint(w), uint(h), b, resize.Lanczos3))
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

// grayscale converts an RGBA buffer to a row-major luminance array in [0,1].
func grayscale(img *image.RGBA) []float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			r := float64(row[x*4])
			g := float64(row[x*4+1])
			bl := float64(row[x*4+2])
			// ITU-R BT.601 luma weights, normalized to [0,1].
			out[y*w+x] = (0.299*r + 0.587*g + 0.114*bl) / 255.0
		}
	}
	return out
}
