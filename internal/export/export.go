// Package export turns a finalized session into on-disk artifacts. Exporters
// only ever see a frozen slide store, so they can read it concurrently and
// repeatedly without coordination.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/snapdeck/snapdeck/internal/config"
	"github.com/snapdeck/snapdeck/internal/errors"
	"github.com/snapdeck/snapdeck/internal/session"
)

// Deck is the frozen hand-off from a finalized session to the exporters.
type Deck struct {
	SessionID uuid.UUID
	Config    config.Session
	Store     *session.Store
}

// FromSession extracts the deck from a session. Fails while the session is
// still live; only a finalized session surrenders its store.
func FromSession(sess *session.Session) (Deck, error) {
	store, err := sess.Slides()
	if err != nil {
		return Deck{}, err
	}
	return Deck{SessionID: sess.ID(), Config: sess.Config(), Store: store}, nil
}

// Exporter writes one output format for a deck into a directory.
type Exporter interface {
	Format() string
	Export(ctx context.Context, deck Deck, dir string) error
}

// Formats lists the supported export formats.
func Formats() []string {
	return []string{FormatImages, FormatManifest, FormatHTML}
}

const (
	FormatImages   = "images"
	FormatManifest = "manifest"
	FormatHTML     = "html"
)

// New returns the exporter for the named format.
func New(format string) (Exporter, error) {
	switch format {
	case FormatImages:
		return &Images{}, nil
	case FormatManifest:
		return &Manifest{}, nil
	case FormatHTML:
		return &HTML{}, nil
	default:
		return nil, errors.Newf(errors.CodeConfigInvalid,
			"unknown export format %q, supported: %v", format, Formats())
	}
}

// ValidateFormats fails fast on an empty or unknown format list. Callers
// check this before capturing anything, so a typo in a format name cannot
// cost a finished session its output.
func ValidateFormats(formats []string) error {
	if len(formats) == 0 {
		return errors.New(errors.CodeConfigInvalid, "no export formats requested")
	}
	for _, format := range formats {
		if _, err := New(format); err != nil {
			return err
		}
	}
	return nil
}

// Run exports the deck in every requested format into dir, creating it if
// needed. The first failing format aborts the run.
func Run(ctx context.Context, deck Deck, dir string, formats []string) error {
	if deck.Store == nil || !deck.Store.Frozen() {
		return errors.New(errors.CodeExportFailed, "export requires a frozen slide store")
	}
	if err := ValidateFormats(formats); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, errors.CodeExportFailed, "create output directory %s", dir)
	}

	for _, format := range formats {
		exp, err := New(format)
		if err != nil {
			return err
		}
		if err := exp.Export(ctx, deck, dir); err != nil {
			return errors.Wrapf(err, errors.CodeExportFailed, "export %s", format)
		}
		slog.Info("export complete", "format", format, "dir", dir, "slides", deck.Store.Len())
	}
	return nil
}

// slideFileName returns the zero-padded PNG name for a slide, wide enough
// for the whole deck.
func slideFileName(index, total int) string {
	width := 3
	for limit := 1000; total > limit; limit *= 10 {
		width++
	}
	return fmt.Sprintf("slide_%0*d.png", width, index)
}
