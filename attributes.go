package latex

import (
	"errors"
	"maps"
	"regexp"
	"strconv"
	"strings"
)

// Attributes is a structured set of construct fields, derived from a fragment on demand.
type Attributes map[string]string

// Clone returns a copy which may be modified without affecting original set.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return Attributes{}
	}

	return maps.Clone(a)
}

// Bool reads toggle field.
func (a Attributes) Bool(key string) bool {
	return a[key] == "true"
}

// Int reads integer field, missing or invalid values are read as 0.
func (a Attributes) Int(key string) int {
	v, err := strconv.Atoi(a[key])
	if err != nil {
		return 0
	}

	return v
}

func formatBool(v bool) string {
	if v {
		return "true"
	}

	return "false"
}

// KeyValue parses key-value parameters in this format: key=value, key=value, for example as used in \\includegraphics
// option parameter. Values may be quoted with single or double quotes, a quote inside is escaped with backslash.
func KeyValue(raw string) (map[string]string, error) {
	kv := map[string]string{}
	runes := []rune(raw)

	for pos := 0; pos < len(runes); {
		// key is everything up to "=" or ","
		start := pos
		for pos < len(runes) && runes[pos] != '=' && runes[pos] != ',' {
			pos++
		}

		key := strings.ToLower(strings.TrimSpace(string(runes[start:pos])))

		// flag without value, it does not make much sense for us, ignore it
		if pos >= len(runes) || runes[pos] == ',' {
			pos++
			continue
		}

		pos++ // skip "="

		for pos < len(runes) && isWhitespace(runes[pos]) {
			pos++
		}

		var value string

		if pos < len(runes) && (runes[pos] == '"' || runes[pos] == '\'') {
			quote := runes[pos]
			pos++

			var sb strings.Builder
			closed := false
			for pos < len(runes) {
				if runes[pos] == '\\' && pos+1 < len(runes) && runes[pos+1] == quote {
					sb.WriteRune(quote)
					pos += 2
					continue
				}

				if runes[pos] == quote {
					closed = true
					pos++
					break
				}

				sb.WriteRune(runes[pos])
				pos++
			}

			if !closed {
				return nil, errors.New("quoted value is not closed")
			}

			value = sb.String()

			// skip anything up to the separator
			for pos < len(runes) && runes[pos] != ',' {
				pos++
			}
		} else {
			start := pos
			for pos < len(runes) && runes[pos] != ',' {
				pos++
			}

			value = strings.TrimSpace(string(runes[start:pos]))
		}

		pos++ // skip ","

		if key == "" || strings.ContainsFunc(key, isWhitespace) {
			continue
		}

		kv[key] = value
	}

	return kv, nil
}

const (
	// DefaultImageWidth is a fraction of text width used when image options do not define a usable width
	DefaultImageWidth = 0.8

	// MinImageWidth is the smallest fraction an image may be rendered with
	MinImageWidth = 0.01
)

var textwidth = regexp.MustCompile(`^([0-9]*\.?[0-9]+)?\s*\\textwidth$`)

// ParseImageOptions extracts image width as a fraction of text width from \includegraphics options. Only one key is
// recognized: width=<fraction>\textwidth. Anything else results in DefaultImageWidth.
func ParseImageOptions(options string) float64 {
	kv, err := KeyValue(options)
	if err != nil {
		return DefaultImageWidth
	}

	match := textwidth.FindStringSubmatch(strings.TrimSpace(kv["width"]))
	if match == nil {
		return DefaultImageWidth
	}

	// plain \textwidth is the whole width
	if match[1] == "" {
		return 1
	}

	v, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return DefaultImageWidth
	}

	return v
}

// BuildImageOptions writes image options in canonical form. Keys other than width are never written.
func BuildImageOptions(width float64) string {
	return "width=" + FormatFraction(width) + "\\textwidth"
}

// FormatFraction writes a fraction in the shortest form which parses back to the same value.
func FormatFraction(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ClampFraction bounds a fraction to (0, 1].
func ClampFraction(v float64) float64 {
	if v != v { // NaN
		return DefaultImageWidth
	}

	return min(max(v, MinImageWidth), 1)
}

// ParseFraction reads a user supplied fraction: "0.5", ".5" or "50%".
func ParseFraction(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)

	if p, ok := strings.CutSuffix(raw, "%"); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, err
		}

		return v / 100, nil
	}

	return strconv.ParseFloat(raw, 64)
}
