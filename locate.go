package latex

import (
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

// Span is a location of a construct candidate in the source, End is exclusive.
type Span struct {
	Kind  ConstructKind
	Start int
	End   int
}

// Fragment returns the part of the source covered by the span.
func (s Span) Fragment(source string) string {
	return source[s.Start:s.End]
}

// arguments defines how many optional and obligatory parameters a construct command takes
var arguments = map[string]struct{ options, parameters int }{
	"\\includegraphics": {options: 1, parameters: 1},
	"\\vspace":          {parameters: 1},
	"\\vspace*":         {parameters: 1},
	"\\hspace":          {parameters: 1},
	"\\hspace*":         {parameters: 1},
	"\\\\":              {options: 1},
}

// Locate finds construct candidates in the source. Candidates are not validated: a span may cover a fragment
// which does not follow the construct template, such fragment is kept verbatim by the editor. Comments and verbatim
// blocks are skipped. Malformed markup never stops the search, it is treated as plain text.
func Locate(source string) []Span {
	var spans []Span

	for base := 0; base < len(source); {
		found, failed := scan(source, base)
		spans = append(spans, found...)

		if failed < 0 {
			break
		}

		// skip the first rune of the token which could not be read and start over
		_, size := utf8.DecodeRuneInString(source[failed:])
		base = failed + size
	}

	return spans
}

// scan reads source from base offset, it returns found spans and the offset of a token which could not be read or
// -1 if the source was read to the end.
func scan(source string, base int) ([]Span, int) {
	var spans []Span

	f := &fragment{tokens: NewTokenizer(strings.NewReader(source[base:]))}

	for {
		start := f.tokens.Offset()

		token, err := f.tokens.Token()
		if err == io.EOF {
			return spans, -1
		}

		if errors.Is(err, ErrMathComment) {
			// formula is skipped entirely, a comment inside of it is never edited
			continue
		}

		if err != nil {
			return spans, base + start
		}

		kind := kindOf(token)
		if kind == UnknownKind {
			continue
		}

		if err := f.arguments(token); err != nil {
			return spans, base + start
		}

		// commands swallow following whitespaces, they do not belong to the construct
		fragment := strings.TrimRight(source[base+start:base+f.tokens.Offset()], " \t\r\n")

		spans = append(spans, Span{Kind: kind, Start: base + start, End: base + start + len(fragment)})
	}
}

// arguments consumes parameters of a construct command or the body of figure environment
func (f *fragment) arguments(token any) error {
	switch t := token.(type) {
	case Command:
		args := arguments[string(t)]

		for range args.options {
			if _, _, err := f.option(); err != nil {
				return err
			}
		}

		for range args.parameters {
			if _, _, err := f.parameter(); err != nil {
				return err
			}
		}
	case EnvironmentStart:
		return f.environment(t.Name)
	}

	return nil
}

// environment reads tokens up to the end of the environment, nested environments with the same name are balanced
func (f *fragment) environment(name string) error {
	depth := 0
	for {
		token, err := f.tokens.Token()
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}

		if err != nil {
			return err
		}

		switch t := token.(type) {
		case EnvironmentStart:
			if t.Name == name {
				depth++
			}
		case EnvironmentEnd:
			if t.Name != name {
				continue
			}

			if depth == 0 {
				return nil
			}

			depth--
		}
	}
}
