package latex

import (
	"io"
	"regexp"
	"strings"
)

var (
	// integral tail: integrand, then thin space and differential, eg. "x^2 \, dx" or "\sin t \, d\theta"
	integralTail = regexp.MustCompile(`(?s)^(.*)\\,\s*d\s*([A-Za-z]+|\\[A-Za-z]+)\s*$`)

	// double integral tail: integrand, then thin space and area element, eg. "f(x,y) \, dA"
	doubleIntegralTail = regexp.MustCompile(`(?s)^(.*)\\,\s*(d(?:[A-Za-z]|\\[A-Za-z]+))\s*$`)
)

// mathBody returns content of an inline formula, when the whole fragment is exactly one $...$ formula
func mathBody(raw string) (string, bool) {
	t := NewTokenizer(strings.NewReader(strings.TrimSpace(raw)))

	token, err := t.Token()
	if err != nil {
		return "", false
	}

	math, ok := token.(Verbatim)
	if !ok || math.Kind != "$" {
		return "", false
	}

	if _, err := t.Token(); err != io.EOF {
		return "", false
	}

	return strings.TrimSpace(math.Data), true
}

// mathFragment starts reading formula and expects it to open with the given command
func mathFragment(raw, command string) (*fragment, bool) {
	body, ok := mathBody(raw)
	if !ok {
		return nil, false
	}

	f := &fragment{tokens: NewTokenizer(strings.NewReader(body))}
	if cmd, ok := f.command(); !ok || cmd != command {
		return nil, false
	}

	return f, true
}

// stripSpace removes exactly one leading and one trailing space, the ones builder puts around free-form fields
func stripSpace(v string) string {
	v = strings.TrimPrefix(v, " ")
	v = strings.TrimSuffix(v, " ")
	return v
}

// parseIntegral reads $\int_{lower}^{upper} integrand \, dvariable$
func parseIntegral(raw string) (Attributes, bool) {
	f, ok := mathFragment(raw, "\\int")
	if !ok {
		return nil, false
	}

	lower, ok := f.script("_")
	if !ok {
		return nil, false
	}

	upper, ok := f.script("^")
	if !ok {
		return nil, false
	}

	tail, err := f.tokens.Rest()
	if err != nil {
		return nil, false
	}

	match := integralTail.FindStringSubmatch(tail)
	if match == nil || strings.TrimSpace(match[1]) == "" {
		return nil, false
	}

	return Attributes{
		"lower":     lower,
		"upper":     upper,
		"integrand": stripSpace(match[1]),
		"variable":  match[2],
	}, true
}

// parseDoubleIntegral reads $\iint_{domain} integrand \, darea$
func parseDoubleIntegral(raw string) (Attributes, bool) {
	f, ok := mathFragment(raw, "\\iint")
	if !ok {
		return nil, false
	}

	domain, ok := f.script("_")
	if !ok {
		return nil, false
	}

	tail, err := f.tokens.Rest()
	if err != nil {
		return nil, false
	}

	match := doubleIntegralTail.FindStringSubmatch(tail)
	if match == nil || strings.TrimSpace(match[1]) == "" {
		return nil, false
	}

	return Attributes{
		"domain":    domain,
		"integrand": stripSpace(match[1]),
		"area":      match[2],
	}, true
}

// parseSum reads $\sum_{index=from}^{to} summand$
func parseSum(raw string) (Attributes, bool) {
	f, ok := mathFragment(raw, "\\sum")
	if !ok {
		return nil, false
	}

	lower, ok := f.script("_")
	if !ok {
		return nil, false
	}

	index, from, ok := strings.Cut(lower, "=")
	index, from = strings.TrimSpace(index), strings.TrimSpace(from)
	if !ok || index == "" || from == "" {
		return nil, false
	}

	to, ok := f.script("^")
	if !ok {
		return nil, false
	}

	tail, err := f.tokens.Rest()
	if err != nil || strings.TrimSpace(tail) == "" {
		return nil, false
	}

	return Attributes{
		"index":   index,
		"from":    from,
		"to":      to,
		"summand": stripSpace(strings.TrimRight(tail, " \t\r\n")),
	}, true
}

// normalizeMath returns normalizer of a formula. Blank fields are written as placeholders, so they are replaced
// with the placeholders right away.
func normalizeMath(placeholders Attributes) func(Attributes) Attributes {
	return func(attrs Attributes) Attributes {
		a := attrs.Clone()
		for k, v := range a {
			switch k {
			case "integrand":
			case "summand":
				// trailing whitespace of the formula is not preserved
				a[k] = strings.TrimRight(v, " \t\r\n")
			default:
				a[k] = strings.TrimSpace(v)
			}
		}

		for k, v := range placeholders {
			if strings.TrimSpace(a[k]) == "" {
				a[k] = v
			}
		}

		return a
	}
}
