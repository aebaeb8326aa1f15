package latex

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// cmInPixel is the screen size of one centimeter at 96dpi (rounded the way the editor draws it)
	cmInPixel = 37.8

	// DefaultHint is the spacer height used when a dimension can not be converted to pixels
	DefaultHint = 28

	// MinHint and MaxHint bound any computed spacer height
	MinHint = 12
	MaxHint = 120
)

var measure = regexp.MustCompile(`^([-+]?[0-9]*(?:\.[0-9]+)?|[-+]?[0-9]+\.)\s*(%|\\?[a-zA-Z ]*)$`)

// pixels is a number of pixels in one unit of a given kind
var pixels = map[string]float64{
	"cm": cmInPixel,
	"mm": cmInPixel / 10,
	"in": cmInPixel * 2.54,
	"pt": cmInPixel * 2.54 / 72.27,
	"bp": cmInPixel * 2.54 / 72,
	"pc": cmInPixel * 2.54 / 72.27 * 12,
	"em": cmInPixel * 0.42175, // 1em = 12pt for the default 12pt body font
	"ex": cmInPixel * 0.15132,
}

// Measure parses measurement value, a number and units, for example: 5.1cm, 6em, 0.25\textwidth
func Measure(raw string) (float64, string, error) {
	match := measure.FindStringSubmatch(strings.TrimSpace(raw))
	if len(match) == 0 || match[1] == "" || match[1] == "-" || match[1] == "+" {
		return 0, "", errors.New("unable to parse measurement")
	}

	// out of range values come back as infinity, which is still a valid (huge) measure
	number, err := strconv.ParseFloat(match[1], 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, "", err
	}

	return number, strings.TrimSpace(match[2]), nil
}

// MeasurePixels converts dimension like "2cm" to pixels.
func MeasurePixels(raw string) (float64, error) {
	n, u, err := Measure(raw)
	if err != nil {
		return 0, err
	}

	return ToPixels(n, u)
}

// ToPixels converts a value in given units to pixels, units are case-insensitive.
func ToPixels(value float64, unit string) (float64, error) {
	factor, ok := pixels[strings.ToLower(unit)]
	if !ok {
		return 0, fmt.Errorf("measurement unit %#v is not supported", unit)
	}

	return value * factor, nil
}

// Hint converts dimension into a spacer height in pixels. The result is only a rendering aid: it is always within
// [MinHint, MaxHint] and falls back to DefaultHint when the dimension can not be converted.
func Hint(dimension string) int {
	px, err := MeasurePixels(dimension)
	if err != nil || math.IsNaN(px) {
		return DefaultHint
	}

	// clamp before conversion, huge magnitudes do not fit into int
	return ClampHint(int(math.Round(min(math.Abs(px), MaxHint))))
}

// ClampHint bounds spacer height to [MinHint, MaxHint].
func ClampHint(px int) int {
	return min(max(px, MinHint), MaxHint)
}
