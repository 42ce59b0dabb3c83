package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlaceCoordinateRoundTrip(t *testing.T) {
	cal := DefaultCalibration()
	style := TextStyle{FontFamily: "Arial", FontSize: 20}

	x, y := Place(Position{X: 100, Y: 100}, AnchorStart, style, cal, 800, 0)

	assert.Equal(t, 100.0, x)
	// 800 - 100 - 20*0.35
	assert.Equal(t, 693.0, y)
}

func TestPlaceAnchorSymmetry(t *testing.T) {
	cal := DefaultCalibration()
	style := TextStyle{FontFamily: "Arial", FontSize: 16}

	for _, width := range []float64{0, 10, 37.5, 200} {
		xStart, _ := Place(Position{X: 200, Y: 50}, AnchorStart, style, cal, 800, width)
		xMiddle, _ := Place(Position{X: 200, Y: 50}, AnchorMiddle, style, cal, 800, width)
		xEnd, _ := Place(Position{X: 200, Y: 50}, AnchorEnd, style, cal, 800, width)

		assert.Equal(t, 200.0, xStart)
		assert.Equal(t, 200.0-width/2, xMiddle)
		assert.Equal(t, 200.0-width, xEnd)
	}
}

func TestPlaceLargeFontCompensation(t *testing.T) {
	cal := DefaultCalibration()
	small := TextStyle{FontFamily: "Arial", FontSize: 30}
	large := TextStyle{FontFamily: "Arial", FontSize: 40}

	_, ySmall := Place(Position{X: 0, Y: 100}, AnchorStart, small, cal, 800, 0)
	_, yLarge := Place(Position{X: 0, Y: 100}, AnchorStart, large, cal, 800, 0)

	// Without the large-glyph branch the size-40 result would be
	// 800 - 100 - 14 = 686; the branch adds 40*0.02.
	assert.InDelta(t, 686.8, yLarge, 1e-9)
	// Size 30 sits exactly on the threshold and gets no compensation.
	assert.InDelta(t, 800-100-30*0.35, ySmall, 1e-9)
}

func TestPlaceFontFamilyOffsets(t *testing.T) {
	cal := DefaultCalibration()

	cases := []struct {
		family string
		offset float64
	}{
		{"Georgia", 20 * 0.05},
		{"Times New Roman", 20 * 0.03},
		{"times", 20 * 0.03},
		{"Arial", 0},
		{"", 0},
	}

	for _, tc := range cases {
		style := TextStyle{FontFamily: tc.family, FontSize: 20}
		_, y := Place(Position{X: 0, Y: 100}, AnchorStart, style, cal, 800, 0)
		assert.InDelta(t, 693.0-tc.offset, y, 1e-9, "family %q", tc.family)
	}
}

func TestPlaceAppliesCalibration(t *testing.T) {
	cal := Calibration{ScaleX: 2, ScaleY: 1.5, OffsetY: 10, BaselineRatio: 0.5}
	style := TextStyle{FontFamily: "Arial", FontSize: 10}

	x, y := Place(Position{X: 50, Y: 40}, AnchorStart, style, cal, 600, 0)

	assert.Equal(t, 100.0, x)
	// 600 - (40*1.5 + 10) - 10*0.5
	assert.Equal(t, 525.0, y)
}

func TestDefaultCalibration(t *testing.T) {
	cal := DefaultCalibration()
	assert.Equal(t, Calibration{ScaleX: 1, ScaleY: 1, OffsetY: 0, BaselineRatio: 0.35}, cal)
}
