package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
	"go.uber.org/zap"
)

// ErrAssetNotFound is returned when a template's base PDF cannot be read.
// It aborts only the certificate being rendered, never a whole batch.
var ErrAssetNotFound = errors.New("base PDF asset not found")

const (
	fontRegular = "Helvetica"
	boxMediaBox = "/MediaBox"
)

// Renderer stamps template elements onto a base single-page PDF. It is
// stateless apart from its logger; concurrent Render calls are safe because
// every call builds its own document and importer.
type Renderer struct {
	logger *zap.Logger
}

func NewRenderer(logger *zap.Logger) *Renderer {
	return &Renderer{logger: logger}
}

// Render draws the layout's elements over the first page of the base PDF at
// basePath and returns the finished document bytes. A single element failing
// to draw is logged and skipped; the rest of the page still renders. The
// renderer performs no writes beyond reading the base asset.
func (r *Renderer) Render(basePath string, layout Layout, data CertificateData) (out []byte, err error) {
	raw, readErr := os.ReadFile(basePath)
	if readErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetNotFound, basePath, readErr)
	}

	// The PDF importer panics on malformed documents; treat that the same
	// as an unreadable asset.
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("%w: %s: %v", ErrAssetNotFound, basePath, rec)
		}
	}()

	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", SizeStr: "A4"})
	imp := gofpdi.NewImporter()

	var rs io.ReadSeeker = bytes.NewReader(raw)
	tplID := imp.ImportPageFromStream(pdf, &rs, 1, boxMediaBox)

	sizes := imp.GetPageSizes()
	box := sizes[1][boxMediaBox]
	pageW, pageH := box["w"], box["h"]
	if pageW <= 0 || pageH <= 0 {
		return nil, fmt.Errorf("%w: %s: first page has no MediaBox", ErrAssetNotFound, basePath)
	}

	orientation := "P"
	if pageW > pageH {
		orientation = "L"
	}
	pdf.AddPageFormat(orientation, gofpdf.SizeType{Wd: pageW, Ht: pageH})
	imp.UseImportedTemplate(pdf, tplID, 0, 0, pageW, pageH)

	for i, el := range layout.Elements {
		if drawErr := r.drawElement(pdf, el, layout.Calibration, pageH, data); drawErr != nil {
			r.logger.Warn("skipping element",
				zap.Int("element", i),
				zap.Error(drawErr))
		}
	}

	var buf bytes.Buffer
	if outErr := pdf.Output(&buf); outErr != nil {
		return nil, fmt.Errorf("serialize certificate: %w", outErr)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawElement(pdf *gofpdf.Fpdf, el Element, cal Calibration, pageH float64, data CertificateData) error {
	text := resolveText(el, data)
	if text == "" {
		return nil
	}

	style := el.TextStyle()
	if style.FontSize <= 0 {
		return fmt.Errorf("invalid font size %v", style.FontSize)
	}

	red, green, blue, err := parseHexColor(style.Color)
	if err != nil {
		return fmt.Errorf("invalid color %q: %w", style.Color, err)
	}

	fontStyle := ""
	if style.Bold() {
		fontStyle = "B"
	}
	pdf.SetFont(fontRegular, fontStyle, style.FontSize)
	pdf.SetTextColor(red, green, blue)

	pos, anchor := el.Placement()
	textWidth := pdf.GetStringWidth(text)
	x, y := Place(pos, anchor, style, cal, pageH, textWidth)

	// Place works in PDF space (origin bottom-left); gofpdf draws with the
	// baseline measured from the top edge.
	pdf.Text(x, pageH-y, text)
	return nil
}

// parseHexColor converts "#rrggbb" into 0-255 channel values.
func parseHexColor(hex string) (int, int, int, error) {
	if hex == "" {
		hex = "#000000"
	}
	if len(hex) != 7 || hex[0] != '#' {
		return 0, 0, 0, fmt.Errorf("expected #rrggbb, got %q", hex)
	}
	channels := make([]int, 3)
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(hex[1+i*2:3+i*2], 16, 8)
		if err != nil {
			return 0, 0, 0, err
		}
		channels[i] = int(v)
	}
	return channels[0], channels[1], channels[2], nil
}
