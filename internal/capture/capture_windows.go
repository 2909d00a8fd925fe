//go:build windows

package capture

import (
	"context"
	"log/slog"
	"os"

	"github.com/snapdeck/snapdeck/internal/errors"
)

type windowsBackend struct{ tempDir string }

func (w *windowsBackend) captureDisplay(_ context.Context, _ int) ([]byte, error) {
	// TODO: Implement using Windows GDI or DXGI
	return nil, errors.New(errors.CodeCaptureUnavailable, "windows screen capture not yet implemented")
}

func (w *windowsBackend) cleanup() {}

// New creates a platform-specific frame source.
func New() Source {
	tmpDir, err := os.MkdirTemp("", "snapdeck-capture-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		tmpDir = os.TempDir()
	}
	return newBase(&windowsBackend{tempDir: tmpDir}, tmpDir)
}
