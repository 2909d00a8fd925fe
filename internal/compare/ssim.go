package compare

import (
	"context"
	"log/slog"

	"github.com/snapdeck/snapdeck/internal/frame"
)

// SSIM stabilization constants for a [0,1] data range.
const (
	ssimC1     = 0.01 * 0.01
	ssimC2     = 0.03 * 0.03
	ssimWindow = 8
)

// ssimComparator scores structural similarity over non-overlapping windows.
// Better at tracking perceptual change than raw pixel error at comparable
// cost. The native index lands in [-1,1] with 1 meaning identical structure;
// the unified difference score is (1-ssim)/2 clamped to [0,1].
type ssimComparator struct {
	threshold float64
}

func (c *ssimComparator) Method() Method { return MethodSSIM }

func (c *ssimComparator) Close() error { return nil }

func (c *ssimComparator) Score(_ context.Context, prev, curr frame.Frame) (Result, error) {
	if prev.Equal(curr) {
		return decide(0, c.threshold), nil
	}
	a, b := matchSizes(prev.Image, curr.Image)
	w, h := a.Bounds().Dx(), a.Bounds().Dy()
	sim := ssim(grayscale(a), grayscale(b), w, h)
	score := clamp01((1 - sim) / 2)
	slog.Debug("ssim score", "ssim", sim, "score", score, "threshold", c.threshold)
	return decide(score, c.threshold), nil
}

// ssim computes the mean structural similarity index of two equal-size
// grayscale arrays using non-overlapping windows. Windows shrink at the
// right and bottom edges so every pixel contributes.
func ssim(a, b []float64, w, h int) float64 {
	var total float64
	var windows int
	for wy := 0; wy < h; wy += ssimWindow {
		for wx := 0; wx < w; wx += ssimWindow {
			ww := min(ssimWindow, w-wx)
			wh := min(ssimWindow, h-wy)
			total += windowSSIM(a, b, w, wx, wy, ww, wh)
			windows++
		}
	}
	if windows == 0 {
		return 1
	}
	return total / float64(windows)
}

func windowSSIM(a, b []float64, stride, wx, wy, ww, wh int) float64 {
	n := float64(ww * wh)

	var meanA, meanB float64
	for y := wy; y < wy+wh; y++ {
		for x := wx; x < wx+ww; x++ {
			meanA += a[y*stride+x]
			meanB += b[y*stride+x]
		}
	}
	meanA /= n
	meanB /= n

	var varA, varB, cov float64
	for y := wy; y < wy+wh; y++ {
		for x := wx; x < wx+ww; x++ {
			da := a[y*stride+x] - meanA
			db := b[y*stride+x] - meanB
			varA += da * da
			varB += db * db
			cov += da * db
		}
	}
	varA /= n
	varB /= n
	cov /= n

	num := (2*meanA*meanB + ssimC1) * (2*cov + ssimC2)
	den := (meanA*meanA + meanB*meanB + ssimC1) * (varA + varB + ssimC2)
	return num / den
}
