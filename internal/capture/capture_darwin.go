//go:build darwin

package capture

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/snapdeck/snapdeck/internal/errors"
)

type darwinBackend struct{ tempDir string }

func (d *darwinBackend) captureDisplay(ctx context.Context, monitor int) ([]byte, error) {
	tmpFile := filepath.Join(d.tempDir, "display.png")
	// -x: no sound, -t png: lossless, -D: display number (1-based)
	cmd := exec.CommandContext(ctx, "screencapture", "-x", "-t", "png",
		"-D", fmt.Sprintf("%d", monitor+1), tmpFile)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, errors.CodeCaptureUnavailable,
			"screencapture failed for display %d: %s", monitor, stderr.String())
	}

	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCaptureUnavailable, "failed to read captured display")
	}
	os.Remove(tmpFile)
	return data, nil
}

func (d *darwinBackend) cleanup() {}

// New creates a platform-specific frame source.
func New() Source {
	tmpDir, err := os.MkdirTemp("", "snapdeck-capture-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		tmpDir = os.TempDir()
	}
	return newBase(&darwinBackend{tempDir: tmpDir}, tmpDir)
}
