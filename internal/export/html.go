package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/snapdeck/snapdeck/internal/errors"
)

// DeckFileName is the HTML deck's name inside the output directory.
const DeckFileName = "deck.html"

// HTML writes a single self-contained HTML page with every slide embedded as
// a base64 data URI, so the deck can be shared as one file.
type HTML struct{}

func (HTML) Format() string { return FormatHTML }

type htmlSlide struct {
	Index      int
	DataURI    template.URL
	CapturedAt string
}

type htmlDoc struct {
	SessionID  string
	SlideCount int
	Slides     []htmlSlide
}

func (HTML) Export(ctx context.Context, deck Deck, dir string) error {
	slides := deck.Store.Slides()
	doc := htmlDoc{
		SessionID:  deck.SessionID.String(),
		SlideCount: len(slides),
		Slides:     make([]htmlSlide, 0, len(slides)),
	}

	for _, slide := range slides {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.CodeCancelled, "html export interrupted")
		}
		png, err := slide.Frame.EncodePNG()
		if err != nil {
			return errors.Wrapf(err, errors.CodeExportFailed, "encode slide %d", slide.Index)
		}
		doc.Slides = append(doc.Slides, htmlSlide{
			Index:      slide.Index,
			DataURI:    template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)),
			CapturedAt: slide.CapturedAt.UTC().Format(time.RFC3339),
		})
	}

	var buf bytes.Buffer
	if err := deckTemplate.Execute(&buf, doc); err != nil {
		return errors.Wrap(err, errors.CodeExportFailed, "render deck")
	}
	path := filepath.Join(dir, DeckFileName)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, errors.CodeExportFailed, "write deck")
	}
	return nil
}

var deckTemplate = template.Must(template.New("deck").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>snapdeck {{.SessionID}}</title>
<style>
  body { margin: 0; background: #1a1a1a; color: #ddd; font-family: sans-serif; }
  header { padding: 1rem; font-size: 0.9rem; }
  figure { margin: 0 auto 2rem; max-width: 1200px; }
  figure img { width: 100%; display: block; }
  figcaption { padding: 0.3rem 0.5rem; font-size: 0.8rem; color: #999; }
</style>
</head>
<body>
<header>{{.SlideCount}} slides &middot; session {{.SessionID}}</header>
{{range .Slides}}<figure>
<img src="{{.DataURI}}" alt="slide {{.Index}}">
<figcaption>slide {{.Index}} &middot; {{.CapturedAt}}</figcaption>
</figure>
{{end}}</body>
</html>
`))
