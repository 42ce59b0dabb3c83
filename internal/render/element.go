package render

// Anchor controls how an element's x position relates to the drawn string.
type Anchor string

const (
	AnchorStart  Anchor = "start"
	AnchorMiddle Anchor = "middle"
	AnchorEnd    Anchor = "end"
)

// Position is an authoring-space coordinate: origin top-left, y grows downward.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TextStyle carries the visual attributes of a placed string.
type TextStyle struct {
	FontFamily string  `json:"font_family"`
	FontSize   float64 `json:"font_size"`
	FontWeight string  `json:"font_weight"` // "normal" or "bold"
	Color      string  `json:"color"`       // #rrggbb
}

// Bold reports whether the style selects the bold face.
func (s TextStyle) Bold() bool {
	return s.FontWeight == "bold"
}

// Element is one placeable text item on a template. It is a closed sum:
// StaticText and DynamicText are the only implementations, and the renderer
// handles both exhaustively via type switch.
type Element interface {
	Placement() (Position, Anchor)
	TextStyle() TextStyle
}

// StaticText draws fixed content.
type StaticText struct {
	Content  string
	Style    TextStyle
	Position Position
	Anchor   Anchor
}

func (e StaticText) Placement() (Position, Anchor) { return e.Position, e.Anchor }
func (e StaticText) TextStyle() TextStyle          { return e.Style }

// DynamicText draws a data-bound value, optionally prefixed.
type DynamicText struct {
	Placeholder string
	Prefix      string
	Style       TextStyle
	Position    Position
	Anchor      Anchor
}

func (e DynamicText) Placement() (Position, Anchor) { return e.Position, e.Anchor }
func (e DynamicText) TextStyle() TextStyle          { return e.Style }

// Layout is a template's drawable configuration: its ordered elements plus
// the calibration constants reconciling authoring space with the PDF page.
type Layout struct {
	Elements    []Element
	Calibration Calibration
}
