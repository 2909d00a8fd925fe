package export

import (
	"context"
	"os"
	"path/filepath"

	"github.com/snapdeck/snapdeck/internal/errors"
)

// Images writes each slide as a numbered PNG file.
type Images struct{}

func (Images) Format() string { return FormatImages }

func (Images) Export(ctx context.Context, deck Deck, dir string) error {
	slides := deck.Store.Slides()
	for _, slide := range slides {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.CodeCancelled, "image export interrupted")
		}
		png, err := slide.Frame.EncodePNG()
		if err != nil {
			return errors.Wrapf(err, errors.CodeExportFailed, "encode slide %d", slide.Index)
		}
		path := filepath.Join(dir, slideFileName(slide.Index, len(slides)))
		if err := os.WriteFile(path, png, 0o644); err != nil {
			return errors.Wrapf(err, errors.CodeExportFailed, "write slide %d", slide.Index)
		}
	}
	return nil
}
