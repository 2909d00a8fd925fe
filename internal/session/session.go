package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/snapdeck/snapdeck/internal/capture"
	"github.com/snapdeck/snapdeck/internal/compare"
	"github.com/snapdeck/snapdeck/internal/config"
	"github.com/snapdeck/snapdeck/internal/errors"
	"github.com/snapdeck/snapdeck/internal/syncx"
)

// State is the session lifecycle phase. Transitions only move forward:
// Idle → Armed → Running → Stopping → Finalized.
type State uint32

const (
	Idle State = iota
	Armed
	Running
	Stopping
	Finalized
)

func (s State) String() string {
	return [...]string{"idle", "armed", "running", "stopping", "finalized"}[s]
}

// Event notifies status listeners about session progress.
type Event struct {
	Type       string    `json:"type"` // "slide" or "state"
	State      string    `json:"state,omitempty"`
	SlideIndex int       `json:"slide_index,omitempty"`
	Score      float64   `json:"score,omitempty"`
	CapturedAt time.Time `json:"captured_at,omitempty"`
}

// Preview is a render-ready copy of the latest accepted slide, shared with
// the status server so it never touches the live store.
type Preview struct {
	Index      int
	PNG        []byte
	CapturedAt time.Time
}

// Session owns one capture run: validated config, the frame source, the
// comparator, the slide store, and the lifecycle state.
type Session struct {
	id         uuid.UUID
	cfg        config.Session
	source     capture.Source
	comparator compare.Comparator
	store      *Store

	state     atomic.Uint32
	cancelled atomic.Bool
	preview   *syncx.RWGuard[Preview]
	events    chan Event
}

// New validates cfg and assembles a session around the given collaborators.
// The caller keeps ownership of source and comparator lifetimes via Close.
func New(cfg config.Session, source capture.Source, comparator compare.Comparator) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Session{
		id:         uuid.New(),
		cfg:        cfg,
		source:     source,
		comparator: comparator,
		store:      NewStore(),
		preview:    syncx.NewGuard(Preview{Index: -1}),
		events:     make(chan Event, 16),
	}, nil
}

// Start validates cfg, constructs the platform frame source and the
// configured comparator, and returns an Idle session. For the embed method
// this dials the sidecar; a failed dial aborts here, before any capture.
func Start(ctx context.Context, cfg config.Session) (*Session, error) {
	comparator, err := compare.New(ctx, cfg.Method, compare.Options{
		Threshold: cfg.Threshold,
		EmbedAddr: cfg.EmbedAddr,
	})
	if err != nil {
		return nil, err
	}
	sess, err := New(cfg, capture.New(), comparator)
	if err != nil {
		comparator.Close()
		return nil, err
	}
	return sess, nil
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Config returns the immutable session configuration.
func (s *Session) Config() config.Session { return s.cfg }

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Cancel requests a stop. Safe to call from any goroutine, idempotent; the
// loop observes it within at most one tick.
func (s *Session) Cancel() {
	s.cancelled.Store(true)
}

// Cancelled reports whether a stop has been requested.
func (s *Session) Cancelled() bool {
	return s.cancelled.Load()
}

// Slides returns the frozen store. Valid only once the session is Finalized.
func (s *Session) Slides() (*Store, error) {
	if s.State() != Finalized {
		return nil, errors.Newf(errors.CodeInternal,
			"slides requested in state %s, need finalized", s.State())
	}
	return s.store, nil
}

// Preview returns the latest accepted slide, encoded for display.
func (s *Session) Preview() Preview {
	return s.preview.Get()
}

// Events returns the channel of progress events. The channel is closed when
// the session finalizes.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Close releases the frame source and comparator. Call after Run returns.
func (s *Session) Close() error {
	err := s.comparator.Close()
	if cerr := s.source.Close(); err == nil {
		err = cerr
	}
	return err
}

// emit sends a progress event without blocking; slow listeners miss events
// rather than stall the capture loop.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

func (s *Session) setState(to State) {
	s.state.Store(uint32(to))
	s.emit(Event{Type: "state", State: to.String()})
}
