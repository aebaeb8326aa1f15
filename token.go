package latex

type Text string
type Command string
type Symbol string

type Verbatim struct {
	Kind string
	Data string
}

type ParameterStart struct {
}

type ParameterEnd struct {
}

type OptionalStart struct {
}

type OptionalEnd struct {
}

type EnvironmentStart struct {
	Name string
}

type EnvironmentEnd struct {
	Name string
}

// blank reports whether token is a text token made of whitespace only. Such tokens separate the parts of a
// multi-line construct (eg. lines of a figure environment) and carry no meaning there.
func blank(token any) bool {
	t, ok := token.(Text)
	if !ok {
		return false
	}

	for _, r := range t {
		if !isWhitespace(r) {
			return false
		}
	}

	return true
}
