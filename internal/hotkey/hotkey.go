// Package hotkey watches stdin for the configured stop key while a capture
// session runs. The terminal is switched into raw mode so a single keypress
// is enough, no Enter required.
package hotkey

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/x/term"

	"github.com/snapdeck/snapdeck/internal/errors"
)

// ctrlC arrives as a byte in raw mode because ISIG is disabled there.
const ctrlC = 0x03

// Listener reports a single stop-key press on stdin.
type Listener struct {
	key     byte
	in      io.Reader
	fd      uintptr
	state   *term.State
	pressed chan struct{}
}

// New builds a listener for a one-character stop key.
func New(key string, in io.Reader) (*Listener, error) {
	if len(key) != 1 {
		return nil, errors.Newf(errors.CodeConfigInvalid, "stop key %q must be a single character", key)
	}
	return &Listener{
		key:     key[0],
		in:      in,
		pressed: make(chan struct{}),
	}, nil
}

// Start begins watching for the stop key. When stdin is an interactive
// terminal it is put into raw mode until Close. On a pipe or redirect the
// listener still scans the stream, just without terminal fiddling.
func (l *Listener) Start() error {
	if f, ok := l.in.(*os.File); ok && term.IsTerminal(f.Fd()) {
		state, err := term.MakeRaw(f.Fd())
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "enter raw terminal mode")
		}
		l.fd = f.Fd()
		l.state = state
	}

	go l.watch()
	return nil
}

// Pressed is closed on the first stop-key press (or Ctrl-C in raw mode).
func (l *Listener) Pressed() <-chan struct{} {
	return l.pressed
}

// Close restores the terminal. The watch goroutine stays blocked on its
// pending stdin read until the process exits; it holds no resources.
func (l *Listener) Close() error {
	if l.state == nil {
		return nil
	}
	err := term.Restore(l.fd, l.state)
	l.state = nil
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "restore terminal mode")
	}
	return nil
}

func (l *Listener) watch() {
	buf := make([]byte, 1)
	for {
		n, err := l.in.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		if buf[0] == l.key || buf[0] == ctrlC {
			slog.Debug("stop key pressed", "key", string(buf[0]))
			close(l.pressed)
			return
		}
	}
}
