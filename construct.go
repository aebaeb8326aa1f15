package latex

import (
	"fmt"
	"regexp"
	"strconv"
)

// ConstructKind identifies a class of markup directive the editor knows how to display and edit.
type ConstructKind int

const (
	UnknownKind ConstructKind = iota
	ImageKind
	LayoutKind
	LineBreakKind
	IntegralKind
	DoubleIntegralKind
	SumKind
)

var kindNames = map[ConstructKind]string{
	ImageKind:          "image",
	LayoutKind:         "layout",
	LineBreakKind:      "linebreak",
	IntegralKind:       "integral",
	DoubleIntegralKind: "double-integral",
	SumKind:            "sum",
}

func (k ConstructKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "unknown(" + strconv.Itoa(int(k)) + ")"
}

// ParseConstructKind converts construct name back to its kind.
func ParseConstructKind(name string) (ConstructKind, error) {
	for kind, n := range kindNames {
		if n == name {
			return kind, nil
		}
	}

	return UnknownKind, fmt.Errorf("unknown construct kind %#v", name)
}

// FieldType defines how a field is edited.
type FieldType int

const (
	// SingleLine is a text input, submit key saves the session
	SingleLine FieldType = iota
	// MultiLine is a text area, submit key inserts a line break
	MultiLine
	// Fraction is a number in (0, 1], values outside are clamped
	Fraction
	// Choice is one of predefined values
	Choice
	// Toggle is either "true" or "false"
	Toggle
)

func (t FieldType) String() string {
	switch t {
	case SingleLine:
		return "single-line"
	case MultiLine:
		return "multi-line"
	case Fraction:
		return "fraction"
	case Choice:
		return "choice"
	case Toggle:
		return "toggle"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// Field describes one editable attribute of a construct.
type Field struct {
	Name    string
	Label   string
	Type    FieldType
	Choices []string       // allowed values for Choice fields
	Pattern *regexp.Regexp // optional constraint for text fields

	// Requires names a toggle which must be on for the field to take effect
	Requires string
}

// Construct binds parser and builder of one construct kind. Both functions are pure, so they are safe to call on
// every keystroke.
type Construct struct {
	Kind ConstructKind

	// Default is a fragment inserted when user adds new construct
	Default string

	// Placeholders substitute empty mandatory fields, so builder never leaves gaps in the template
	Placeholders Attributes

	Fields []Field

	// Parse extracts attributes from a whole fragment, false means the fragment is not recognized
	Parse func(fragment string) (Attributes, bool)

	// Build writes attributes back into a fragment
	Build func(attrs Attributes) string

	// Normalize recomputes derived and dependent fields, parser output is always normalized
	Normalize func(attrs Attributes) Attributes

	// Describe returns human-readable label of recognized attributes
	Describe func(attrs Attributes) string
}
