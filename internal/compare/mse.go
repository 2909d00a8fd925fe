package compare

import (
	"context"
	"log/slog"

	"github.com/snapdeck/snapdeck/internal/frame"
)

// mseComparator scores the mean squared error between grayscale frames.
// Fast and purely local, but sensitive to pixel-level noise such as cursor
// movement or video compression artifacts.
type mseComparator struct {
	threshold float64
}

func (c *mseComparator) Method() Method { return MethodMSE }

func (c *mseComparator) Close() error { return nil }

func (c *mseComparator) Score(_ context.Context, prev, curr frame.Frame) (Result, error) {
	if prev.Equal(curr) {
		return decide(0, c.threshold), nil
	}
	a, b := matchSizes(prev.Image, curr.Image)
	score := mse(grayscale(a), grayscale(b))
	slog.Debug("mse score", "score", score, "threshold", c.threshold)
	return decide(score, c.threshold), nil
}

// mse computes the mean squared error of two equal-length [0,1] arrays.
// The result is already in [0,1] since the maximum per-pixel error is 1.
func mse(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum / float64(len(a))
}
