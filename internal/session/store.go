// Package session drives the capture loop: an append-only slide store, a
// lifecycle state machine, and the tick orchestrator.
package session

import (
	"sync"
	"time"

	"github.com/snapdeck/snapdeck/internal/errors"
	"github.com/snapdeck/snapdeck/internal/frame"
)

// Slide is an accepted frame with its position in the deck.
type Slide struct {
	Index      int
	Frame      frame.Frame
	CapturedAt time.Time
}

// Store is an ordered, append-only collection of accepted slides. Appends
// assign contiguous indices starting at 0. Freezing is one-way and makes the
// store read-only; a frozen store is safe for concurrent readers without
// further synchronization.
type Store struct {
	mu     sync.RWMutex
	slides []Slide
	frozen bool
}

// NewStore creates an empty slide store.
func NewStore() *Store {
	return &Store{}
}

// Append adds a slide with the next contiguous index. Fails on a frozen
// store; there is no way back from frozen.
func (s *Store) Append(f frame.Frame) (Slide, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return Slide{}, errors.New(errors.CodeInternal, "append to frozen slide store")
	}
	slide := Slide{
		Index:      len(s.slides),
		Frame:      f,
		CapturedAt: f.CapturedAt,
	}
	s.slides = append(s.slides, slide)
	return slide, nil
}

// Freeze makes the store permanently read-only.
func (s *Store) Freeze() {
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
}

// Frozen reports whether the store has been frozen.
func (s *Store) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

// Len returns the number of slides.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slides)
}

// Slides returns a copy of all slides in order.
func (s *Store) Slides() []Slide {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Slide, len(s.slides))
	copy(out, s.slides)
	return out
}

// Slide returns the slide at index i.
func (s *Store) Slide(i int) (Slide, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.slides) {
		return Slide{}, false
	}
	return s.slides[i], true
}

// Last returns the most recently appended slide.
func (s *Store) Last() (Slide, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.slides) == 0 {
		return Slide{}, false
	}
	return s.slides[len(s.slides)-1], true
}
