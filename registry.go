package latex

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	identifier  = regexp.MustCompile(`^(?:[A-Za-z]+|\\[A-Za-z]+)$`)
	areaElement = regexp.MustCompile(`^d(?:[A-Za-z]|\\[A-Za-z]+)$`)
	noDollar    = regexp.MustCompile(`^[^$]*$`)
	noEquals    = regexp.MustCompile(`^[^=$]*$`)
	placements  = regexp.MustCompile(`^[htbpH!]*$`)
	noBracket   = regexp.MustCompile(`^[^\]]*$`)
)

var constructs = map[ConstructKind]Construct{
	ImageKind: {
		Kind:         ImageKind,
		Default:      "\\begin{figure}[h]\n\\centering\n\\includegraphics[width=0.8\\textwidth]{image.png}\n\\caption{Caption}\n\\end{figure}",
		Placeholders: imagePlaceholders,
		Fields: []Field{
			{Name: "src", Label: "Source", Type: SingleLine},
			{Name: "width", Label: "Width", Type: Fraction},
			{Name: "figure", Label: "Figure", Type: Toggle},
			{Name: "caption", Label: "Caption", Type: MultiLine, Requires: "figure"},
			{Name: "placement", Label: "Placement", Type: SingleLine, Pattern: placements, Requires: "figure"},
			{Name: "centered", Label: "Centered", Type: Toggle, Requires: "figure"},
		},
		Parse:     parseImage,
		Build:     buildImage,
		Normalize: normalizeImage,
		Describe:  describeImage,
	},
	LayoutKind: {
		Kind:         LayoutKind,
		Default:      "\\vspace{1cm}",
		Placeholders: layoutPlaceholders,
		Fields: []Field{
			{Name: "directive", Label: "Directive", Type: Choice, Choices: []string{"vspace", "hspace", "skip", "vfill", "hfill", "pagebreak"}},
			{Name: "magnitude", Label: "Size", Type: SingleLine},
			{Name: "starred", Label: "Keep at page break", Type: Toggle},
		},
		Parse:     parseLayout,
		Build:     buildLayout,
		Normalize: normalizeLayout,
		Describe:  describeLayout,
	},
	LineBreakKind: {
		Kind:         LineBreakKind,
		Default:      "\\\\",
		Placeholders: Attributes{},
		Fields: []Field{
			{Name: "spacing", Label: "Extra space", Type: SingleLine, Pattern: noBracket},
		},
		Parse:     parseLineBreak,
		Build:     buildLineBreak,
		Normalize: normalizeLineBreak,
		Describe:  describeLineBreak,
	},
	IntegralKind: {
		Kind:         IntegralKind,
		Default:      "$\\int_{a}^{b} f(x) \\, dx$",
		Placeholders: integralPlaceholders,
		Fields: []Field{
			{Name: "lower", Label: "Lower limit", Type: SingleLine, Pattern: noDollar},
			{Name: "upper", Label: "Upper limit", Type: SingleLine, Pattern: noDollar},
			{Name: "integrand", Label: "Integrand", Type: MultiLine, Pattern: noDollar},
			{Name: "variable", Label: "Variable", Type: SingleLine, Pattern: identifier},
		},
		Parse:     parseIntegral,
		Build:     buildIntegral,
		Normalize: normalizeMath(integralPlaceholders),
		Describe:  describeIntegral,
	},
	DoubleIntegralKind: {
		Kind:         DoubleIntegralKind,
		Default:      "$\\iint_{D} f(x,y) \\, dA$",
		Placeholders: doubleIntegralPlaceholders,
		Fields: []Field{
			{Name: "domain", Label: "Domain", Type: SingleLine, Pattern: noDollar},
			{Name: "integrand", Label: "Integrand", Type: MultiLine, Pattern: noDollar},
			{Name: "area", Label: "Area element", Type: SingleLine, Pattern: areaElement},
		},
		Parse:     parseDoubleIntegral,
		Build:     buildDoubleIntegral,
		Normalize: normalizeMath(doubleIntegralPlaceholders),
		Describe:  describeDoubleIntegral,
	},
	SumKind: {
		Kind:         SumKind,
		Default:      "$\\sum_{i=1}^{n} a_i$",
		Placeholders: sumPlaceholders,
		Fields: []Field{
			{Name: "index", Label: "Index", Type: SingleLine, Pattern: noEquals},
			{Name: "from", Label: "From", Type: SingleLine, Pattern: noDollar},
			{Name: "to", Label: "To", Type: SingleLine, Pattern: noDollar},
			{Name: "summand", Label: "Summand", Type: MultiLine, Pattern: noDollar},
		},
		Parse:     parseSum,
		Build:     buildSum,
		Normalize: normalizeMath(sumPlaceholders),
		Describe:  describeSum,
	},
}

// Lookup returns construct definition.
func Lookup(kind ConstructKind) (Construct, bool) {
	c, ok := constructs[kind]
	return c, ok
}

// Kinds lists supported construct kinds in stable order.
func Kinds() []ConstructKind {
	kinds := make([]ConstructKind, 0, len(constructs))
	for kind := range constructs {
		kinds = append(kinds, kind)
	}

	slices.Sort(kinds)
	return kinds
}

// Parse extracts attributes from a fragment of a given kind, false means the fragment is not recognized and should
// be kept verbatim.
func Parse(kind ConstructKind, fragment string) (Attributes, bool) {
	c, ok := constructs[kind]
	if !ok {
		return nil, false
	}

	return c.Parse(fragment)
}

// ParseOrDefault is like Parse, but falls back to the attributes of the default fragment.
func ParseOrDefault(kind ConstructKind, fragment string) (Attributes, bool) {
	if attrs, ok := Parse(kind, fragment); ok {
		return attrs, true
	}

	attrs, _ := Parse(kind, Default(kind))
	return attrs, false
}

// Build writes attributes into a fragment of a given kind. Unsupported kind produces empty fragment.
func Build(kind ConstructKind, attrs Attributes) string {
	c, ok := constructs[kind]
	if !ok {
		return ""
	}

	return c.Build(attrs)
}

// Normalize recomputes derived fields (eg. spacer height) of the attributes.
func Normalize(kind ConstructKind, attrs Attributes) Attributes {
	c, ok := constructs[kind]
	if !ok {
		return attrs.Clone()
	}

	return c.Normalize(attrs)
}

// Describe returns short human-readable label of the construct.
func Describe(kind ConstructKind, attrs Attributes) string {
	c, ok := constructs[kind]
	if !ok {
		return kind.String()
	}

	return c.Describe(attrs)
}

// Default returns fragment inserted for a new construct.
func Default(kind ConstructKind) string {
	return constructs[kind].Default
}

// Fields returns editable fields of a construct.
func Fields(kind ConstructKind) []Field {
	return constructs[kind].Fields
}

// FieldOf finds field definition by name.
func FieldOf(kind ConstructKind, name string) (Field, bool) {
	for _, f := range constructs[kind].Fields {
		if f.Name == name {
			return f, true
		}
	}

	return Field{}, false
}

// Classify guesses construct kind by the leading token of a fragment. It does not check the fragment follows the
// template, use Parse for that.
func Classify(fragment string) (ConstructKind, bool) {
	t := NewTokenizer(strings.NewReader(strings.TrimSpace(fragment)))

	token, err := t.Token()
	if err != nil {
		return UnknownKind, false
	}

	kind := kindOf(token)
	return kind, kind != UnknownKind
}

// commandKinds maps commands to construct they start
var commandKinds = map[string]ConstructKind{
	"\\includegraphics": ImageKind,
	"\\vspace":          LayoutKind,
	"\\vspace*":         LayoutKind,
	"\\hspace":          LayoutKind,
	"\\hspace*":         LayoutKind,
	"\\smallskip":       LayoutKind,
	"\\medskip":         LayoutKind,
	"\\bigskip":         LayoutKind,
	"\\vfill":           LayoutKind,
	"\\hfill":           LayoutKind,
	"\\newpage":         LayoutKind,
	"\\pagebreak":       LayoutKind,
	"\\\\":              LineBreakKind,
	"\\newline":         LineBreakKind,
}

// mathKinds maps leading command of a formula to construct
var mathKinds = map[string]ConstructKind{
	"\\int":  IntegralKind,
	"\\iint": DoubleIntegralKind,
	"\\sum":  SumKind,
}

func kindOf(token any) ConstructKind {
	switch t := token.(type) {
	case Command:
		return commandKinds[string(t)]
	case EnvironmentStart:
		if t.Name == "figure" {
			return ImageKind
		}
	case Verbatim:
		if t.Kind != "$" {
			return UnknownKind
		}

		f := &fragment{tokens: NewTokenizer(strings.NewReader(strings.TrimSpace(t.Data)))}
		if cmd, ok := f.command(); ok {
			return mathKinds[cmd]
		}
	}

	return UnknownKind
}

func describeImage(attrs Attributes) string {
	width, err := strconv.ParseFloat(attrs["width"], 64)
	if err != nil {
		width = DefaultImageWidth
	}

	label := fmt.Sprintf("Image %s (%s%% width)", attrs["src"], FormatFraction(ClampFraction(width)*100))
	if caption := strings.TrimSpace(attrs["caption"]); caption != "" {
		label += ": " + PlainText(caption)
	}

	return label
}

func describeLayout(attrs Attributes) string {
	suffix := ""
	if attrs.Bool("starred") {
		suffix = " (kept at page break)"
	}

	switch attrs["directive"] {
	case "hspace":
		return "Horizontal space " + attrs["magnitude"] + suffix
	case "skip":
		if s, ok := skipByMagnitude(attrs["magnitude"]); ok {
			return s.label + " (" + s.magnitude + ")"
		}

		return "Skip " + attrs["magnitude"]
	case "vfill":
		return "Vertical fill"
	case "hfill":
		return "Horizontal fill"
	case "pagebreak":
		return "Page break"
	default:
		return "Vertical space " + attrs["magnitude"] + suffix
	}
}

func describeLineBreak(attrs Attributes) string {
	if s := attrs["spacing"]; s != "" {
		return "Line break + " + s
	}

	return "Line break"
}

func describeIntegral(attrs Attributes) string {
	return fmt.Sprintf("Integral from %s to %s of %s d%s",
		PlainMath(attrs["lower"]), PlainMath(attrs["upper"]), PlainMath(attrs["integrand"]), PlainMath(attrs["variable"]))
}

func describeDoubleIntegral(attrs Attributes) string {
	return fmt.Sprintf("Double integral over %s of %s %s",
		PlainMath(attrs["domain"]), PlainMath(attrs["integrand"]), PlainMath(attrs["area"]))
}

func describeSum(attrs Attributes) string {
	return fmt.Sprintf("Sum for %s = %s to %s of %s",
		PlainMath(attrs["index"]), PlainMath(attrs["from"]), PlainMath(attrs["to"]), PlainMath(attrs["summand"]))
}
