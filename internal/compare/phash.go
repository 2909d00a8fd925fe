package compare

import (
	"context"
	"log/slog"

	"github.com/corona10/goimagehash"

	"github.com/snapdeck/snapdeck/internal/errors"
	"github.com/snapdeck/snapdeck/internal/frame"
)

// phashBits is the size of the perception hash in bits, which bounds the
// Hamming distance used for normalization.
const phashBits = 64

// phashComparator scores the normalized Hamming distance between 64-bit
// perception hashes. Extremely cheap and robust against compression noise,
// at the cost of missing small localized edits.
type phashComparator struct {
	threshold float64
}

func (c *phashComparator) Method() Method { return MethodPHash }

func (c *phashComparator) Close() error { return nil }

func (c *phashComparator) Score(_ context.Context, prev, curr frame.Frame) (Result, error) {
	if prev.Equal(curr) {
		return decide(0, c.threshold), nil
	}
	hashA, err := goimagehash.PerceptionHash(prev.Image)
	if err != nil {
		return Result{}, errors.Wrap(err, errors.CodeCompareFailed, "perception hash failed")
	}
	hashB, err := goimagehash.PerceptionHash(curr.Image)
	if err != nil {
		return Result{}, errors.Wrap(err, errors.CodeCompareFailed, "perception hash failed")
	}
	dist, err := hashA.Distance(hashB)
	if err != nil {
		return Result{}, errors.Wrap(err, errors.CodeCompareFailed, "hash distance failed")
	}
	score := clamp01(float64(dist) / phashBits)
	slog.Debug("phash score", "distance", dist, "score", score, "threshold", c.threshold)
	return decide(score, c.threshold), nil
}
