//go:build linux

package capture

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/snapdeck/snapdeck/internal/errors"
)

type linuxBackend struct{ tempDir string }

func (l *linuxBackend) captureDisplay(ctx context.Context, monitor int) ([]byte, error) {
	if monitor != 0 {
		// gnome-screenshot and scrot both capture the whole X screen; region
		// coordinates address secondary displays within it.
		return nil, errors.Newf(errors.CodeCaptureUnavailable,
			"per-display capture not supported on linux (monitor %d)", monitor)
	}

	tmpFile := filepath.Join(l.tempDir, "display.png")
	// Try gnome-screenshot first, fall back to scrot
	var cmd *exec.Cmd
	if _, err := exec.LookPath("gnome-screenshot"); err == nil {
		cmd = exec.CommandContext(ctx, "gnome-screenshot", "-f", tmpFile)
	} else if _, err := exec.LookPath("scrot"); err == nil {
		cmd = exec.CommandContext(ctx, "scrot", "-o", tmpFile)
	} else {
		return nil, errors.New(errors.CodeCaptureUnavailable,
			"no screenshot tool found (install gnome-screenshot or scrot)")
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, errors.CodeCaptureUnavailable,
			"screenshot failed: %s", stderr.String())
	}

	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCaptureUnavailable, "failed to read captured display")
	}
	os.Remove(tmpFile)
	return data, nil
}

func (l *linuxBackend) cleanup() {}

// New creates a platform-specific frame source.
func New() Source {
	tmpDir, err := os.MkdirTemp("", "snapdeck-capture-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		tmpDir = os.TempDir()
	}
	return newBase(&linuxBackend{tempDir: tmpDir}, tmpDir)
}
