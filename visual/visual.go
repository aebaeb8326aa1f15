// Package visual turns construct fragments into glyphs which are shown in place of the markup.
package visual

import (
	"strconv"
	"strings"

	latex "github.com/eolymp/go-latex-editor"
)

// Glyph is the shape a construct is drawn with.
type Glyph int

const (
	// Literal is the fallback: fragment is shown as code
	Literal Glyph = iota
	Divider
	Spacer
	ImageBox
	Formula
)

var glyphNames = map[Glyph]string{
	Literal:  "literal",
	Divider:  "divider",
	Spacer:   "spacer",
	ImageBox: "image",
	Formula:  "formula",
}

func (g Glyph) String() string {
	if name, ok := glyphNames[g]; ok {
		return name
	}

	return "glyph(" + strconv.Itoa(int(g)) + ")"
}

// Direction of a spacer.
type Direction int

const (
	Vertical Direction = iota
	Horizontal
)

func (d Direction) String() string {
	if d == Horizontal {
		return "horizontal"
	}

	return "vertical"
}

// Visual describes how a single construct is drawn.
type Visual struct {
	Kind       latex.ConstructKind
	Glyph      Glyph
	Recognized bool

	// Label is a human-readable description of the construct
	Label string

	// Fragment is the markup the visual was rendered from
	Fragment string

	// spacer
	Direction Direction
	Height    int

	// image box, Width is a fraction of text width in (0, 1]
	Source  string
	Caption string
	Width   float64

	// formula
	Preview string
}

// Hint is a tooltip: semantic label followed by the markup.
func (v Visual) Hint() string {
	return v.Label + "\n" + v.Fragment
}

// Atomic reports whether the visual is selected and deleted as a whole. Constructs are never edited partially in
// place, so it is always true.
func (v Visual) Atomic() bool {
	return true
}

// Renderer turns fragments into visuals. The zero value is ready to use.
type Renderer struct {
	// NoMathPreview disables plain-text preview of formulas
	NoMathPreview bool
}

// Render draws a fragment of a given kind. Fragments which do not follow the construct template are rendered as
// literal code, so nothing a user wrote is ever hidden.
func (r Renderer) Render(kind latex.ConstructKind, fragment string) Visual {
	v := Visual{Kind: kind, Glyph: Literal, Fragment: fragment, Label: "Unrecognized " + kind.String()}

	attrs, ok := latex.Parse(kind, fragment)
	if !ok {
		return v
	}

	v.Recognized = true
	v.Label = latex.Describe(kind, attrs)

	switch kind {
	case latex.LayoutKind:
		v.Height = attrs.Int("height")

		switch attrs["directive"] {
		case "pagebreak":
			v.Glyph = Divider
		case "hspace", "hfill":
			v.Glyph = Spacer
			v.Direction = Horizontal
		default:
			v.Glyph = Spacer
		}
	case latex.LineBreakKind:
		v.Glyph = Spacer
		v.Height = attrs.Int("height")
	case latex.ImageKind:
		v.Glyph = ImageBox
		v.Source = attrs["src"]
		v.Width = width(attrs["width"])

		if attrs.Bool("figure") {
			v.Caption = latex.PlainText(strings.TrimSpace(attrs["caption"]))
		}
	case latex.IntegralKind, latex.DoubleIntegralKind, latex.SumKind:
		v.Glyph = Formula

		if !r.NoMathPreview {
			v.Preview = latex.PlainMath(fragment)
		}
	default:
		v.Glyph = Literal
	}

	return v
}

func width(raw string) float64 {
	w, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return latex.DefaultImageWidth
	}

	return latex.ClampFraction(w)
}
