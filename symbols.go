package latex

import (
	"strings"
)

// symbol converts typographic ligature to the character it stands for
func symbol(a string) string {
	switch a {
	case "---":
		return "—"
	case "--":
		return "–"
	case "<<":
		return "«"
	case ">>":
		return "»"
	case "''", "``":
		return "\""
	case "~":
		return " "
	default:
		return a
	}
}

// ligatures are ordered, so longer sequences are replaced first
var ligatures = []string{"---", "--", "<<", ">>", "''", "``", "~"}

// mathSymbols maps math commands to unicode characters
var mathSymbols = map[string]string{
	"\\int":      "∫",
	"\\iint":     "∬",
	"\\iiint":    "∭",
	"\\oint":     "∮",
	"\\sum":      "∑",
	"\\prod":     "∏",
	"\\infty":    "∞",
	"\\partial":  "∂",
	"\\nabla":    "∇",
	"\\cdot":     "·",
	"\\times":    "×",
	"\\pm":       "±",
	"\\leq":      "≤",
	"\\le":       "≤",
	"\\geq":      "≥",
	"\\ge":       "≥",
	"\\neq":      "≠",
	"\\approx":   "≈",
	"\\to":       "→",
	"\\in":       "∈",
	"\\alpha":    "α",
	"\\beta":     "β",
	"\\gamma":    "γ",
	"\\delta":    "δ",
	"\\epsilon":  "ε",
	"\\lambda":   "λ",
	"\\mu":       "μ",
	"\\pi":       "π",
	"\\rho":      "ρ",
	"\\sigma":    "σ",
	"\\tau":      "τ",
	"\\phi":      "φ",
	"\\omega":    "ω",
	"\\theta":    "θ",
	"\\Omega":    "Ω",
	"\\Delta":    "Δ",
	"\\Sigma":    "Σ",
	"\\,":        " ",
	"\\;":        " ",
	"\\quad":     " ",
	"\\left":     "",
	"\\right":    "",
	"\\mathrm":   "",
	"\\mathbb":   "",
}

// PlainText converts text markup to plain text: ligatures are replaced with characters and grouping braces are
// dropped. It is meant for labels, not for faithful rendering.
func PlainText(raw string) string {
	for _, l := range ligatures {
		raw = strings.ReplaceAll(raw, l, symbol(l))
	}

	return strings.NewReplacer("\\{", "{", "\\}", "}", "{", "", "}", "", "\\%", "%", "\\&", "&", "\\$", "$").Replace(raw)
}

// PlainMath converts formula to plain text using unicode symbols, eg. "\int_{0}^{1} x \, dx" becomes "∫_0^1 x dx".
// Unknown commands are kept as is.
func PlainMath(raw string) string {
	t := NewTokenizer(strings.NewReader(raw))

	var sb strings.Builder
	for {
		start := t.Offset()

		token, err := t.Token()
		if err != nil {
			// unfinished markup is kept as is
			if rest, rerr := t.Rest(); rerr == nil {
				sb.WriteString(rest)
			}

			break
		}

		switch v := token.(type) {
		case Text:
			sb.WriteString(string(v))
		case Symbol:
			sb.WriteString(string(v))
		case Command:
			s, ok := mathSymbols[string(v)]
			if !ok {
				sb.WriteString(string(v))
				break
			}

			sb.WriteString(s)

			// command swallowed following whitespaces, keep words apart
			if t.Offset()-start > len(v) {
				sb.WriteString(" ")
			}
		case Verbatim:
			sb.WriteString(v.Data)
		}
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}
