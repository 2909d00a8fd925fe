// Package capture provides platform-agnostic capture of screen regions.
package capture

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/snapdeck/snapdeck/internal/errors"
	"github.com/snapdeck/snapdeck/internal/frame"
)

// Source captures frames from a rectangular region of a display.
type Source interface {
	// Capture grabs the region from the given monitor. The returned frame's
	// pixel buffer dimensions equal the region dimensions exactly. A
	// disappeared monitor or out-of-bounds region yields a
	// CAPTURE_UNAVAILABLE error, which is fatal to the running session.
	Capture(ctx context.Context, region frame.Region, monitor int) (frame.Frame, error)
	Close() error
}

// Monitor describes an attached display.
type Monitor struct {
	ID     int
	Width  int
	Height int
}

func (m Monitor) String() string {
	return fmt.Sprintf("Monitor %d: %dx%d", m.ID, m.Width, m.Height)
}

// Region returns the monitor's full bounds as a capture region.
func (m Monitor) Region() frame.Region {
	return frame.Region{X1: 0, Y1: 0, X2: m.Width, Y2: m.Height}
}

// backend implements platform-specific raw display capture.
type backend interface {
	// captureDisplay grabs the full display as encoded image bytes.
	captureDisplay(ctx context.Context, monitor int) ([]byte, error)
	cleanup()
}

// baseSource provides shared decode, bounds checking, and region cropping
// over a platform backend.
type baseSource struct {
	backend
	tempDir string
}

func newBase(b backend, tempDir string) *baseSource {
	return &baseSource{backend: b, tempDir: tempDir}
}

func (s *baseSource) Capture(ctx context.Context, region frame.Region, monitor int) (frame.Frame, error) {
	data, err := s.captureDisplay(ctx, monitor)
	if err != nil {
		return frame.Frame{}, err
	}

	full, err := frame.Decode(data, time.Now())
	if err != nil {
		return frame.Frame{}, err
	}

	// The zero region means the whole display.
	if region == (frame.Region{}) {
		return full, nil
	}

	bounds := full.Image.Bounds()
	if !region.Rect().In(bounds) {
		return frame.Frame{}, errors.Newf(errors.CodeCaptureUnavailable,
			"region %s outside display bounds %dx%d", region, bounds.Dx(), bounds.Dy()).
			WithMetadata("monitor", fmt.Sprintf("%d", monitor))
	}

	return cropFrame(full, region), nil
}

// cropFrame copies the region into a tight buffer so the full-display pixel
// data can be released immediately.
func cropFrame(f frame.Frame, region frame.Region) frame.Frame {
	cropped := image.NewRGBA(image.Rect(0, 0, region.Width(), region.Height()))
	for y := 0; y < region.Height(); y++ {
		srcOff := (region.Y1+y)*f.Image.Stride + region.X1*4
		dstOff := y * cropped.Stride
		copy(cropped.Pix[dstOff:dstOff+region.Width()*4], f.Image.Pix[srcOff:srcOff+region.Width()*4])
	}
	return frame.Frame{Image: cropped, CapturedAt: f.CapturedAt}
}

func (s *baseSource) Close() error {
	s.cleanup()
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
	return nil
}

// maxProbedDisplays caps monitor discovery probing.
const maxProbedDisplays = 4

// Monitors discovers attached displays by probing the backend. Display 0 is
// the primary. Probing stops at the first display that fails to capture.
func Monitors(ctx context.Context, src Source) ([]Monitor, error) {
	base, ok := src.(*baseSource)
	if !ok {
		return nil, errors.New(errors.CodeInternal, "source does not support monitor discovery")
	}

	var monitors []Monitor
	for id := 0; id < maxProbedDisplays; id++ {
		data, err := base.captureDisplay(ctx, id)
		if err != nil {
			break
		}
		f, err := frame.Decode(data, time.Now())
		if err != nil {
			break
		}
		monitors = append(monitors, Monitor{ID: id, Width: f.Width(), Height: f.Height()})
	}
	if len(monitors) == 0 {
		return nil, errors.New(errors.CodeCaptureUnavailable, "no capturable displays found")
	}
	return monitors, nil
}
