package templates

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"contest-portal/certificate-portal-backend/internal/render"
)

// ErrInvalidConfiguration marks a template whose configuration cannot
// produce any page: no elements, or calibration constants that would map
// every element off the page. The whole template is unusable; callers
// surface it immediately instead of attempting partial processing.
var ErrInvalidConfiguration = errors.New("invalid template configuration")

const (
	elementStaticText  = "static_text"
	elementDynamicText = "dynamic_text"

	defaultFontSize = 16
	defaultColor    = "#000000"
	defaultWeight   = "normal"
)

// fontSize tolerates both JSON numbers and numeric strings; layout editors
// have historically exported either.
type fontSize float64

func (f *fontSize) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("font_size %q: %w", s, err)
	}
	*f = fontSize(v)
	return nil
}

type styleJSON struct {
	FontFamily string   `json:"font_family"`
	FontSize   fontSize `json:"font_size"`
	FontWeight string   `json:"font_weight"`
	Color      string   `json:"color"`
}

type elementJSON struct {
	Type        string          `json:"type"`
	Content     string          `json:"content"`
	Placeholder string          `json:"placeholder"`
	Prefix      string          `json:"prefix"`
	Position    render.Position `json:"position"`
	TextAnchor  render.Anchor   `json:"text_anchor"`
	Style       *styleJSON      `json:"style"`
}

type configurationJSON struct {
	Elements    []elementJSON       `json:"elements"`
	Calibration *render.Calibration `json:"calibration"`
}

// ParseConfiguration decodes a template's configuration JSON into a drawable
// layout, applying the documented defaults. It is the single place
// ConfigurationError-class problems are detected.
func ParseConfiguration(raw []byte) (render.Layout, error) {
	var cfg configurationJSON
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return render.Layout{}, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if len(cfg.Elements) == 0 {
		return render.Layout{}, fmt.Errorf("%w: no elements", ErrInvalidConfiguration)
	}

	cal := render.DefaultCalibration()
	if cfg.Calibration != nil {
		cal = *cfg.Calibration
		if cal.ScaleX <= 0 || cal.ScaleY <= 0 || cal.BaselineRatio < 0 {
			return render.Layout{}, fmt.Errorf("%w: calibration %+v", ErrInvalidConfiguration, cal)
		}
	}

	layout := render.Layout{Calibration: cal}
	for i, el := range cfg.Elements {
		style := render.TextStyle{
			FontFamily: "Arial",
			FontSize:   defaultFontSize,
			FontWeight: defaultWeight,
			Color:      defaultColor,
		}
		if el.Style != nil {
			if el.Style.FontFamily != "" {
				style.FontFamily = el.Style.FontFamily
			}
			if el.Style.FontSize != 0 {
				style.FontSize = float64(el.Style.FontSize)
			}
			if el.Style.FontWeight != "" {
				style.FontWeight = el.Style.FontWeight
			}
			if el.Style.Color != "" {
				style.Color = el.Style.Color
			}
		}

		anchor := el.TextAnchor
		if anchor == "" {
			anchor = render.AnchorStart
		}

		switch el.Type {
		case elementStaticText:
			layout.Elements = append(layout.Elements, render.StaticText{
				Content:  el.Content,
				Style:    style,
				Position: el.Position,
				Anchor:   anchor,
			})
		case elementDynamicText:
			layout.Elements = append(layout.Elements, render.DynamicText{
				Placeholder: el.Placeholder,
				Prefix:      el.Prefix,
				Style:       style,
				Position:    el.Position,
				Anchor:      anchor,
			})
		default:
			return render.Layout{}, fmt.Errorf("%w: element %d has unknown type %q", ErrInvalidConfiguration, i, el.Type)
		}
	}

	return layout, nil
}
