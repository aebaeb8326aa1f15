package latex

import (
	"io"
	"strconv"
	"strings"
)

// fragment reads tokens of a single construct. Grammars built on it are rigid: a construct is recognized only when
// the whole fragment follows the template.
type fragment struct {
	tokens *Tokenizer
}

func newFragment(raw string) *fragment {
	return &fragment{tokens: NewTokenizer(strings.NewReader(strings.TrimSpace(raw)))}
}

// next returns next token, skipping text which consists of whitespaces only
func (f *fragment) next() (any, error) {
	for {
		t, err := f.tokens.Token()
		if err != nil {
			return nil, err
		}

		if !blank(t) {
			return t, nil
		}
	}
}

// command reads next token and expects it to be a command
func (f *fragment) command() (string, bool) {
	t, err := f.next()
	if err != nil {
		return "", false
	}

	c, ok := t.(Command)
	return string(c), ok
}

// option reads optional parameter (wrapped in []) in verbatim mode, if there is one
func (f *fragment) option() (string, bool, error) {
	return f.group('[', ']')
}

// parameter reads obligatory parameter (wrapped in {}) in verbatim mode
func (f *fragment) parameter() (string, bool, error) {
	return f.group('{', '}')
}

func (f *fragment) group(opening, closing rune) (string, bool, error) {
	if err := f.tokens.Skip(); err != nil {
		return "", false, err
	}

	char, err := f.tokens.Peek()
	if err == io.EOF {
		return "", false, nil
	}

	if err != nil || char != opening {
		return "", false, err
	}

	// consume opening bracket
	if _, err := f.tokens.Token(); err != nil {
		return "", false, err
	}

	val, err := f.tokens.Group(closing)
	if err != nil {
		return "", false, err
	}

	return val, true, nil
}

// script reads sub- or superscript in braces, eg. _{a}
func (f *fragment) script(symbol string) (string, bool) {
	t, err := f.next()
	if err != nil {
		return "", false
	}

	if s, ok := t.(Symbol); !ok || string(s) != symbol {
		return "", false
	}

	t, err = f.tokens.Token()
	if err != nil {
		return "", false
	}

	if _, ok := t.(ParameterStart); !ok {
		return "", false
	}

	val, err := f.tokens.Group('}')
	if err != nil {
		return "", false
	}

	val = strings.TrimSpace(val)
	return val, val != ""
}

// end returns true if there is nothing but whitespaces left
func (f *fragment) end() bool {
	_, err := f.next()
	return err == io.EOF
}

type namedSkip struct {
	command   string
	label     string
	magnitude string
	height    int
}

var namedSkips = []namedSkip{
	{command: "\\smallskip", label: "Small skip", magnitude: "3pt", height: 16},
	{command: "\\medskip", label: "Medium skip", magnitude: "6pt", height: 24},
	{command: "\\bigskip", label: "Big skip", magnitude: "12pt", height: 36},
}

func skipByCommand(command string) (namedSkip, bool) {
	for _, s := range namedSkips {
		if s.command == command {
			return s, true
		}
	}

	return namedSkip{}, false
}

func skipByMagnitude(magnitude string) (namedSkip, bool) {
	for _, s := range namedSkips {
		if s.magnitude == magnitude {
			return s, true
		}
	}

	return namedSkip{}, false
}

// nearestSkip returns named skip closest to the given dimension
func nearestSkip(magnitude string) namedSkip {
	px, err := MeasurePixels(magnitude)
	if err != nil {
		return namedSkips[1]
	}

	best := namedSkips[0]
	for _, s := range namedSkips[1:] {
		bp, _ := MeasurePixels(best.magnitude)
		sp, _ := MeasurePixels(s.magnitude)
		if abs(px-sp) < abs(px-bp) {
			best = s
		}
	}

	return best
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}

// parseLayout reads spacing, fill and page break directives
func parseLayout(raw string) (Attributes, bool) {
	f := newFragment(raw)

	cmd, ok := f.command()
	if !ok {
		return nil, false
	}

	attrs := Attributes{"directive": "", "starred": "false", "magnitude": "", "height": ""}

	switch cmd {
	case "\\vspace", "\\vspace*", "\\hspace", "\\hspace*":
		magnitude, ok, err := f.parameter()
		if err != nil || !ok {
			return nil, false
		}

		magnitude = strings.TrimSpace(magnitude)
		if magnitude == "" {
			return nil, false
		}

		attrs["directive"] = strings.TrimSuffix(cmd[1:], "*")
		attrs["starred"] = formatBool(strings.HasSuffix(cmd, "*"))
		attrs["magnitude"] = magnitude
	case "\\smallskip", "\\medskip", "\\bigskip":
		s, _ := skipByCommand(cmd)
		attrs["directive"] = "skip"
		attrs["magnitude"] = s.magnitude
	case "\\vfill", "\\hfill":
		attrs["directive"] = cmd[1:]
	case "\\newpage", "\\pagebreak":
		attrs["directive"] = "pagebreak"
	default:
		return nil, false
	}

	if !f.end() {
		return nil, false
	}

	return normalizeLayout(attrs), true
}

func normalizeLayout(attrs Attributes) Attributes {
	a := attrs.Clone()
	a["magnitude"] = strings.TrimSpace(a["magnitude"])

	switch a["directive"] {
	case "vspace", "hspace":
		a["magnitude"] = trimmed(a, layoutPlaceholders, "magnitude")
		a["height"] = strconv.Itoa(Hint(a["magnitude"]))
	case "skip":
		s, ok := skipByMagnitude(a["magnitude"])
		if !ok {
			s = nearestSkip(a["magnitude"])
		}

		a["magnitude"] = s.magnitude
		a["height"] = strconv.Itoa(s.height)
		a["starred"] = "false"
	case "vfill", "hfill":
		a["magnitude"] = ""
		a["height"] = strconv.Itoa(DefaultHint)
		a["starred"] = "false"
	case "pagebreak":
		a["magnitude"] = ""
		a["height"] = "0"
		a["starred"] = "false"
	default:
		// unknown directive is written as vertical space, see buildLayout
		a["directive"] = "vspace"
		a["magnitude"] = trimmed(a, layoutPlaceholders, "magnitude")
		a["height"] = strconv.Itoa(Hint(a["magnitude"]))
	}

	if a["starred"] != "true" {
		a["starred"] = "false"
	}

	return a
}

// parseLineBreak reads \\, \\[dimension] and \newline
func parseLineBreak(raw string) (Attributes, bool) {
	f := newFragment(raw)

	cmd, ok := f.command()
	if !ok {
		return nil, false
	}

	attrs := Attributes{"spacing": ""}

	switch cmd {
	case "\\\\":
		spacing, ok, err := f.option()
		if err != nil {
			return nil, false
		}

		spacing = strings.TrimSpace(spacing)
		if ok && spacing == "" {
			return nil, false
		}

		attrs["spacing"] = spacing
	case "\\newline":
	default:
		return nil, false
	}

	if !f.end() {
		return nil, false
	}

	return normalizeLineBreak(attrs), true
}

func normalizeLineBreak(attrs Attributes) Attributes {
	a := attrs.Clone()
	a["spacing"] = strings.TrimSpace(a["spacing"])

	if a["spacing"] == "" {
		a["height"] = "0"
	} else {
		a["height"] = strconv.Itoa(Hint(a["spacing"]))
	}

	return a
}

// parseImage reads \includegraphics, either alone or wrapped into figure environment:
//
//	\begin{figure}[placement]
//	\centering
//	\includegraphics[width=0.5\textwidth]{src}
//	\caption{text}
//	\end{figure}
//
// where placement, \centering and \caption are optional.
func parseImage(raw string) (Attributes, bool) {
	f := newFragment(raw)

	t, err := f.next()
	if err != nil {
		return nil, false
	}

	attrs := Attributes{"src": "", "caption": "", "width": "", "figure": "false", "placement": "", "centered": "false"}

	switch token := t.(type) {
	case Command:
		if token != "\\includegraphics" || !f.graphics(attrs) {
			return nil, false
		}
	case EnvironmentStart:
		if token.Name != "figure" {
			return nil, false
		}

		attrs["figure"] = "true"

		placement, _, err := f.option()
		if err != nil {
			return nil, false
		}

		attrs["placement"] = strings.TrimSpace(placement)

		cmd, ok := f.command()
		if ok && cmd == "\\centering" {
			attrs["centered"] = "true"
			cmd, ok = f.command()
		}

		if !ok || cmd != "\\includegraphics" || !f.graphics(attrs) {
			return nil, false
		}

		t, err := f.next()
		if err != nil {
			return nil, false
		}

		if c, ok := t.(Command); ok && c == "\\caption" {
			caption, ok, err := f.parameter()
			if err != nil || !ok {
				return nil, false
			}

			attrs["caption"] = caption

			if t, err = f.next(); err != nil {
				return nil, false
			}
		}

		if e, ok := t.(EnvironmentEnd); !ok || e.Name != "figure" {
			return nil, false
		}
	default:
		return nil, false
	}

	if !f.end() {
		return nil, false
	}

	return normalizeImage(attrs), true
}

// graphics reads options and source of \includegraphics command
func (f *fragment) graphics(attrs Attributes) bool {
	options, _, err := f.option()
	if err != nil {
		return false
	}

	src, ok, err := f.parameter()
	if err != nil || !ok {
		return false
	}

	src = strings.TrimSpace(src)
	if src == "" {
		return false
	}

	attrs["src"] = src
	attrs["width"] = FormatFraction(ParseImageOptions(options))

	return true
}

func normalizeImage(attrs Attributes) Attributes {
	a := attrs.Clone()

	width, err := strconv.ParseFloat(strings.TrimSpace(a["width"]), 64)
	if err != nil {
		width = DefaultImageWidth
	}

	a["width"] = FormatFraction(width)
	a["src"] = trimmed(a, imagePlaceholders, "src")
	a["placement"] = strings.TrimSpace(a["placement"])

	// caption, placement and centering exist only in figure environment
	if a["figure"] != "true" {
		a["figure"] = "false"
		a["caption"] = ""
		a["placement"] = ""
		a["centered"] = "false"
	}

	if a["centered"] != "true" {
		a["centered"] = "false"
	}

	return a
}
