package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/snapdeck/snapdeck/internal/errors"
)

// ManifestFileName is the manifest's name inside the output directory.
const ManifestFileName = "manifest.json"

// Manifest writes a machine-readable index of the deck: the session settings
// that produced it and one entry per slide.
type Manifest struct{}

// ManifestDoc is the manifest file's schema.
type ManifestDoc struct {
	SessionID  string          `json:"session_id"`
	ExportedAt time.Time       `json:"exported_at"`
	Method     string          `json:"method"`
	Threshold  float64         `json:"threshold"`
	Interval   float64         `json:"interval_seconds"`
	Region     string          `json:"region,omitempty"`
	Monitor    int             `json:"monitor"`
	SlideCount int             `json:"slide_count"`
	Slides     []ManifestSlide `json:"slides"`
}

// ManifestSlide is one slide's manifest entry.
type ManifestSlide struct {
	Index      int       `json:"index"`
	File       string    `json:"file"`
	CapturedAt time.Time `json:"captured_at"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
}

func (Manifest) Format() string { return FormatManifest }

func (Manifest) Export(ctx context.Context, deck Deck, dir string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.CodeCancelled, "manifest export interrupted")
	}

	slides := deck.Store.Slides()
	doc := ManifestDoc{
		SessionID:  deck.SessionID.String(),
		ExportedAt: time.Now().UTC(),
		Method:     string(deck.Config.Method),
		Threshold:  deck.Config.Threshold,
		Interval:   deck.Config.Interval.Seconds(),
		Monitor:    deck.Config.Monitor,
		SlideCount: len(slides),
		Slides:     make([]ManifestSlide, 0, len(slides)),
	}
	if deck.Config.Region.Width() > 0 {
		doc.Region = deck.Config.Region.String()
	}

	for _, slide := range slides {
		bounds := slide.Frame.Image.Bounds()
		doc.Slides = append(doc.Slides, ManifestSlide{
			Index:      slide.Index,
			File:       slideFileName(slide.Index, len(slides)),
			CapturedAt: slide.CapturedAt.UTC(),
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CodeExportFailed, "marshal manifest")
	}
	path := filepath.Join(dir, ManifestFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.CodeExportFailed, "write manifest")
	}
	return nil
}
