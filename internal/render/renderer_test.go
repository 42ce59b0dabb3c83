package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// writeBasePDF produces a minimal single-page landscape A4 asset.
func writeBasePDF(t *testing.T) string {
	t.Helper()
	pdf := gofpdf.New("L", "pt", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(40, 40, "base template")

	path := filepath.Join(t.TempDir(), "base.pdf")
	require.NoError(t, pdf.OutputFileAndClose(path))
	return path
}

func testLayout() Layout {
	return Layout{
		Calibration: DefaultCalibration(),
		Elements: []Element{
			StaticText{
				Content:  "Certificate of Participation",
				Style:    TextStyle{FontFamily: "Georgia", FontSize: 32, FontWeight: "bold", Color: "#1a1a2e"},
				Position: Position{X: 420, Y: 120},
				Anchor:   AnchorMiddle,
			},
			DynamicText{
				Placeholder: "recipient_name",
				Style:       TextStyle{FontFamily: "Arial", FontSize: 24, Color: "#000000"},
				Position:    Position{X: 420, Y: 260},
				Anchor:      AnchorMiddle,
			},
			DynamicText{
				Placeholder: "serial_number",
				Prefix:      "No: ",
				Style:       TextStyle{FontFamily: "Arial", FontSize: 10, Color: "#555555"},
				Position:    Position{X: 60, Y: 540},
				Anchor:      AnchorStart,
			},
		},
	}
}

func TestRenderProducesPDF(t *testing.T) {
	base := writeBasePDF(t)
	r := NewRenderer(zap.NewNop())

	out, err := r.Render(base, testLayout(), sampleData())
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestRenderMissingAsset(t *testing.T) {
	r := NewRenderer(zap.NewNop())

	_, err := r.Render(filepath.Join(t.TempDir(), "nope.pdf"), testLayout(), sampleData())
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestRenderMalformedAsset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	r := NewRenderer(zap.NewNop())
	_, err := r.Render(path, testLayout(), sampleData())
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestRenderSkipsBrokenElements(t *testing.T) {
	base := writeBasePDF(t)
	r := NewRenderer(zap.NewNop())

	layout := testLayout()
	layout.Elements = append(layout.Elements,
		StaticText{
			Content:  "bad color",
			Style:    TextStyle{FontFamily: "Arial", FontSize: 12, Color: "magenta"},
			Position: Position{X: 10, Y: 10},
		},
		StaticText{
			Content:  "bad size",
			Style:    TextStyle{FontFamily: "Arial", FontSize: -4, Color: "#000000"},
			Position: Position{X: 10, Y: 30},
		},
	)

	out, err := r.Render(base, layout, sampleData())
	require.NoError(t, err, "element failures must not abort the page")
	assert.NotEmpty(t, out)
}

func TestParseHexColor(t *testing.T) {
	r, g, b, err := parseHexColor("#ff8000")
	require.NoError(t, err)
	assert.Equal(t, []int{255, 128, 0}, []int{r, g, b})

	// Empty defaults to black.
	r, g, b, err = parseHexColor("")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, []int{r, g, b})

	for _, bad := range []string{"fff", "#fff", "red", "#gg0000", "#12345678"} {
		_, _, _, err := parseHexColor(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
