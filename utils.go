package latex

import "regexp"

// Balanced checks that curly braces in a value are balanced, the value has no comments (unescaped %) and does not
// end with a lone backslash, so it can be substituted into a {...} group without breaking the surrounding fragment.
func Balanced(value string) bool {
	depth := 0
	escaped := false

	for _, r := range value {
		if escaped {
			escaped = false
			continue
		}

		switch r {
		case '\\':
			escaped = true
		case '%':
			return false
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}

	return depth == 0 && !escaped
}

var trailingCommand = regexp.MustCompile(`\\(?:[A-Za-z]+|\\)\*?$`)

// Separator returns markup to put between a fragment and the text following it, so that they are not read as one
// token. For example "\newpage" followed by "abc" reads as unknown command \newpageabc, and "\\" followed by "[1]"
// reads as a line break with spacing.
func Separator(fragment string, next rune) string {
	command := trailingCommand.FindString(fragment)
	if command == "" {
		return ""
	}

	switch {
	case next == '*' || next == '[':
		return "{}"
	case isLetter(next) && isLetter(rune(command[len(command)-1])):
		return "{}"
	default:
		return ""
	}
}
