package capture

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/snapdeck/snapdeck/internal/errors"
	"github.com/snapdeck/snapdeck/internal/frame"
)

// Synthetic renders deterministic frames without touching a display. Used by
// the demo mode and tests. Each call to Advance moves to the next scene;
// frames within a scene are pixel-identical.
type Synthetic struct {
	mu      sync.Mutex
	width   int
	height  int
	scene   int
	closed  bool
	samples int
}

// NewSynthetic creates a synthetic source with the given display size.
func NewSynthetic(width, height int) *Synthetic {
	return &Synthetic{width: width, height: height}
}

// Advance switches to the next scene so subsequent captures differ.
func (s *Synthetic) Advance() {
	s.mu.Lock()
	s.scene++
	s.mu.Unlock()
}

// Samples returns the number of captures taken.
func (s *Synthetic) Samples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

func (s *Synthetic) Capture(_ context.Context, region frame.Region, monitor int) (frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return frame.Frame{}, errors.New(errors.CodeCaptureUnavailable, "synthetic source closed")
	}
	if monitor != 0 {
		return frame.Frame{}, errors.Newf(errors.CodeCaptureUnavailable, "synthetic source has no monitor %d", monitor)
	}
	if region == (frame.Region{}) {
		region = frame.Region{X2: s.width, Y2: s.height}
	}
	display := image.Rect(0, 0, s.width, s.height)
	if !region.Rect().In(display) {
		return frame.Frame{}, errors.Newf(errors.CodeCaptureUnavailable,
			"region %s outside display bounds %dx%d", region, s.width, s.height)
	}
	s.samples++

	img := image.NewRGBA(image.Rect(0, 0, region.Width(), region.Height()))
	base := uint8(40 + (s.scene*60)%200)
	for y := 0; y < region.Height(); y++ {
		for x := 0; x < region.Width(); x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: base,
				G: uint8((x + s.scene*16) % 256),
				B: uint8((y + s.scene*32) % 256),
				A: 255,
			})
		}
	}
	return frame.Frame{Image: img, CapturedAt: time.Now()}, nil
}

func (s *Synthetic) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
