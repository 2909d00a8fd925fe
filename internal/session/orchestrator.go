package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/snapdeck/snapdeck/internal/errors"
	"github.com/snapdeck/snapdeck/internal/frame"
)

// Run drives the session through Armed → Running → Stopping → Finalized,
// blocking until cancellation or a fatal capture error ends the loop. The
// returned error is the terminal cause, nil when the session ended through
// Cancel or context cancellation. A session runs exactly once.
func (s *Session) Run(ctx context.Context) error {
	if !s.state.CompareAndSwap(uint32(Idle), uint32(Armed)) {
		return errors.Newf(errors.CodeInternal, "session already started (state %s)", s.State())
	}
	s.emit(Event{Type: "state", State: Armed.String()})
	slog.Info("session armed", "session", s.id, "config", s.cfg.String())

	// The initial capture is unconditional: with no prior frame there is
	// nothing to compare against, so slide 0 always exists.
	first, err := s.source.Capture(ctx, s.cfg.Region, s.cfg.Monitor)
	if err != nil {
		return s.finalize(err)
	}
	if err := s.accept(first, 0); err != nil {
		return s.finalize(err)
	}
	s.setState(Running)

	baseline := first
	for {
		// Cancellation check before sleeping.
		if s.cancelled.Load() {
			return s.finalize(nil)
		}
		select {
		case <-ctx.Done():
			return s.finalize(nil)
		case <-time.After(s.cfg.Interval):
			// Fixed-interval sleep: tick spacing does not compensate for
			// time spent capturing or comparing.
		}
		if s.cancelled.Load() {
			return s.finalize(nil)
		}

		current, err := s.source.Capture(ctx, s.cfg.Region, s.cfg.Monitor)
		if err != nil {
			return s.finalize(err)
		}
		// Cancellation check after capturing; an in-flight capture always
		// completes but its frame is discarded once a stop is requested.
		if s.cancelled.Load() {
			return s.finalize(nil)
		}

		result, err := s.comparator.Score(ctx, baseline, current)
		if err != nil {
			return s.finalize(errors.Wrap(err, errors.CodeCompareFailed, "comparison failed"))
		}
		if !result.IsDifferent {
			// Rejected frames are discarded; the baseline stays on the most
			// recently accepted slide, not the most recently captured frame.
			slog.Debug("frame rejected", "session", s.id, "score", result.Score, "threshold", s.cfg.Threshold)
			continue
		}

		if err := s.accept(current, result.Score); err != nil {
			return s.finalize(err)
		}
		baseline = current
	}
}

// accept appends a frame as the next slide and publishes the preview.
func (s *Session) accept(f frame.Frame, score float64) error {
	slide, err := s.store.Append(f)
	if err != nil {
		return err
	}

	png, encErr := f.EncodePNG()
	if encErr == nil {
		s.preview.Set(Preview{Index: slide.Index, PNG: png, CapturedAt: slide.CapturedAt})
	}
	s.emit(Event{Type: "slide", SlideIndex: slide.Index, Score: score, CapturedAt: slide.CapturedAt})
	slog.Info("slide captured", "session", s.id, "index", slide.Index, "score", score)
	return nil
}

// finalize freezes the store and moves to the terminal state. Every
// non-cancellation ending carries its cause back to the caller. Closing the
// events channel lets listeners ranging over it terminate; finalize runs at
// most once because Run is single-entry, and nothing emits after it.
func (s *Session) finalize(cause error) error {
	s.setState(Stopping)
	s.store.Freeze()
	s.setState(Finalized)
	close(s.events)

	if cause != nil {
		slog.Error("session ended on error", "session", s.id, "slides", s.store.Len(), "error", cause)
	} else {
		slog.Info("session finalized", "session", s.id, "slides", s.store.Len())
	}
	return cause
}
