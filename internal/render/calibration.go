package render

import "strings"

// Calibration corrects for the authoring tool's pixel space vs. the physical
// PDF page. Templates that omit it get DefaultCalibration.
type Calibration struct {
	ScaleX        float64 `json:"scaleX"`
	ScaleY        float64 `json:"scaleY"`
	OffsetY       float64 `json:"offsetY"`
	BaselineRatio float64 `json:"baselineRatio"`
}

// DefaultCalibration returns the identity mapping with the standard
// baseline ratio.
func DefaultCalibration() Calibration {
	return Calibration{ScaleX: 1, ScaleY: 1, OffsetY: 0, BaselineRatio: 0.35}
}

// fontOffsets compensates for per-family glyph metric differences. The
// ratios are empirically tuned against real templates; matching is a
// case-insensitive substring check on the family name. Kept as data so new
// families can be added without touching control flow.
var fontOffsets = []struct {
	family string
	ratio  float64
}{
	{"georgia", 0.05},
	{"times", 0.03},
}

// Glyphs above largeGlyphThreshold points get a small upward nudge; the
// ratio is empirically tuned, like the per-family offsets.
const (
	largeGlyphThreshold = 30.0
	largeGlyphRatio     = 0.02
)

func fontSpecificOffset(family string, size float64) float64 {
	lower := strings.ToLower(family)
	for _, fo := range fontOffsets {
		if strings.Contains(lower, fo.family) {
			return size * fo.ratio
		}
	}
	return 0
}

// Place maps an element's authoring-space position into PDF point space
// (origin bottom-left, y grows upward). textWidth is the pre-measured width
// of the final resolved string at the element's font and size; it drives the
// anchor adjustment. Pure and deterministic.
func Place(pos Position, anchor Anchor, style TextStyle, cal Calibration, pageHeight, textWidth float64) (float64, float64) {
	x := pos.X * cal.ScaleX
	y := pageHeight - (pos.Y*cal.ScaleY + cal.OffsetY)

	baselineOffset := style.FontSize*cal.BaselineRatio + fontSpecificOffset(style.FontFamily, style.FontSize)
	y -= baselineOffset
	if style.FontSize > largeGlyphThreshold {
		y += style.FontSize * largeGlyphRatio
	}

	switch anchor {
	case AnchorMiddle:
		x -= textWidth / 2
	case AnchorEnd:
		x -= textWidth
	}

	return x, y
}
