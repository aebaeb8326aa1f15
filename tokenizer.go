package latex

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// scanner wraps io.RuneScanner and keeps track of the byte offset of the next rune.
type scanner struct {
	r    io.RuneScanner
	pos  int
	last int
}

func (s *scanner) ReadRune() (rune, int, error) {
	r, size, err := s.r.ReadRune()
	if err != nil {
		s.last = 0
		return r, size, err
	}

	s.pos += size
	s.last = size

	return r, size, nil
}

func (s *scanner) UnreadRune() error {
	if err := s.r.UnreadRune(); err != nil {
		return err
	}

	s.pos -= s.last
	s.last = 0

	return nil
}

type Tokenizer struct {
	r *scanner
}

func NewTokenizer(r io.RuneScanner) *Tokenizer {
	return &Tokenizer{r: &scanner{r: r}}
}

// Offset returns the number of bytes consumed so far.
func (l *Tokenizer) Offset() int {
	return l.r.pos
}

func (l *Tokenizer) Token() (any, error) {
	char, _, err := l.r.ReadRune()
	if err != nil {
		return nil, err
	}

	switch char {
	case '{':
		return ParameterStart{}, nil
	case '}':
		return ParameterEnd{}, nil
	case '[':
		return OptionalStart{}, nil
	case ']':
		return OptionalEnd{}, nil
	case '&', '~', '#', '^', '_':
		return Symbol([]rune{char}), nil
	case '%':
		return l.readLineComment()
	case '$':
		return l.readMath()
	case '\\':
		return l.readBackslash()
	default:
		if err := l.r.UnreadRune(); err != nil {
			return nil, err
		}

		return l.readText()
	}
}

// Peek returns next rune without consuming it.
func (l *Tokenizer) Peek() (rune, error) {
	r, _, err := l.r.ReadRune()
	if err != nil {
		return 0, err
	}

	return r, l.r.UnreadRune()
}

// Skip consumes whitespaces until next meaningful symbol.
func (l *Tokenizer) Skip() error {
	return l.whitespaces()
}

// Group reads raw content up to the closing rune, the opening rune is expected to be consumed already. Curly
// braces nested inside the group are balanced, so "{a{b}c}" is read as "a{b}c". Escaped braces do not count.
// Unescaped % starts a comment which would swallow the closing rune, such group is an error.
func (l *Tokenizer) Group(closing rune) (string, error) {
	var runes []rune
	depth := 0
	escaped := false

	for {
		read, _, err := l.r.ReadRune()
		if err == io.EOF {
			return "", fmt.Errorf("EOF: group is not closed with %c", closing)
		}

		if err != nil {
			return "", err
		}

		if escaped {
			escaped = false
			runes = append(runes, read)
			continue
		}

		switch {
		case read == '\\':
			escaped = true
		case read == '%':
			return "", errors.New("comment inside group")
		case read == closing && depth == 0:
			return string(runes), nil
		case read == '{':
			depth++
		case read == '}':
			depth--
			if depth < 0 {
				return "", errors.New("unbalanced closing brace in group")
			}
		}

		runes = append(runes, read)
	}
}

// Rest reads everything which was not consumed yet.
func (l *Tokenizer) Rest() (string, error) {
	var sb strings.Builder
	for {
		read, _, err := l.r.ReadRune()
		if err == io.EOF {
			return sb.String(), nil
		}

		if err != nil {
			return "", err
		}

		sb.WriteRune(read)
	}
}

func (l *Tokenizer) readText() (any, error) {
	var runes []rune
	for {
		read, _, err := l.r.ReadRune()
		if err == io.EOF {
			return Text(runes), nil
		}

		if err != nil {
			return nil, err
		}

		if isSpecial(read) {
			return Text(runes), l.r.UnreadRune()
		}

		runes = append(runes, read)

		if read == '\n' {
			return Text(runes), nil
		}
	}
}

// ErrMathComment is returned for a formula which contains a comment. The formula is consumed entirely, so reading
// may go on after it.
var ErrMathComment = errors.New("comment inside math")

func (l *Tokenizer) readMath() (any, error) {
	// we already entered math with one $, check if next one is $ too (ie. math block)
	read, _, err := l.r.ReadRune()
	if err == io.EOF {
		return nil, errors.New("EOF: math block is not closed")
	}

	if err != nil {
		return nil, err
	}

	isBlock := read == '$' // math is described in block (two $$ in the beginning and in the end)
	isClosing := false     // we found first closing $ for block and expecting one more
	commented := false     // comment was met, the formula can not be used

	var runes = []rune{'$'}

	for {
		if read == '%' && !escapedTail(runes) {
			// comment lasts till the end of line, $ inside of it does not close the formula
			if _, err := l.readLineComment(); err != nil {
				return nil, err
			}

			commented = true
			read = '\n'
		}

		if isClosing {
			// previous rune was $, but this one is not, so let's add $ because it's not part of the closing sequence
			runes = append(runes, '$')
			isClosing = false
		}

		runes = append(runes, read)

		read, _, err = l.r.ReadRune()
		if err == io.EOF {
			return nil, errors.New("EOF: math block is not closed")
		}

		if err != nil {
			return nil, err
		}

		if read != '$' || escapedTail(runes) {
			continue
		}

		if isBlock {
			isClosing = true

			// closing sequence is complete when the next rune is $ too
			read, _, err = l.r.ReadRune()
			if err == io.EOF {
				return nil, errors.New("EOF: math block is not closed")
			}

			if err != nil {
				return nil, err
			}

			if read != '$' {
				continue
			}
		}

		if commented {
			return nil, ErrMathComment
		}

		if isBlock {
			return Verbatim{Kind: "$$", Data: string(runes[2:])}, nil
		}

		return Verbatim{Kind: "$", Data: string(runes[1:])}, nil
	}
}

// escapedTail reports whether the next rune is escaped, ie. runes end with odd number of backslashes
func escapedTail(runes []rune) bool {
	n := 0
	for i := len(runes) - 1; i >= 0 && runes[i] == '\\'; i-- {
		n++
	}

	return n%2 == 1
}

func (l *Tokenizer) readBackslash() (any, error) {
	r, _, err := l.r.ReadRune()
	if err == io.EOF {
		return Text("\\"), nil
	}

	if err != nil {
		return nil, err
	}

	// one symbol command
	if isCommand(r) {
		star, err := l.star()
		if err != nil {
			return nil, err
		}

		if star {
			return Command([]rune{'\\', r, '*'}), l.whitespaces()
		}

		return Command([]rune{'\\', r}), l.whitespaces()
	}

	// a letter means it's a named command \xyz
	if isLetter(r) {
		if err := l.r.UnreadRune(); err != nil {
			return nil, err
		}

		return l.readCommand('\\')
	}

	// control symbol, eg. \, or \{ - kept as is
	return Command([]rune{'\\', r}), nil
}

func (l *Tokenizer) readCommand(start rune) (any, error) {
	runes := []rune{start}
	for {
		read, _, err := l.r.ReadRune()
		if err != io.EOF {
			if err != nil {
				return "", err
			}

			// letter: continue reading name
			if isLetter(read) {
				runes = append(runes, read)
				continue
			}

			// command names may include * in the end (except for begin and end)
			if read == '*' && string(runes) != "\\begin" && string(runes) != "\\end" {
				runes = append(runes, read)
			} else {
				if err := l.r.UnreadRune(); err != nil {
					return nil, err
				}
			}
		}

		command := string(runes)

		switch command {
		case "\\verb", "\\verb*":
			return l.readVerbatim(command)
		case "\\begin":
			return l.readBlockStart()
		case "\\end":
			return l.readBlockEnd()
		default:
			if err := l.whitespaces(); err != nil {
				return nil, err
			}

			return Command(command), nil
		}
	}
}

func (l *Tokenizer) readBlockStart() (any, error) {
	if err := l.forwardTo('{'); err != nil {
		return nil, err
	}

	word, err := l.word()
	if err != nil {
		return nil, err
	}

	if word == "" {
		return nil, errors.New("environment name is expected")
	}

	if err := l.expect('}'); err != nil {
		return nil, err
	}

	if word == "comment" || word == "lstlisting" || word == "verbatim" {
		return l.readVerbatimBlock(word)
	}

	return EnvironmentStart{Name: word}, nil
}

func (l *Tokenizer) readBlockEnd() (any, error) {
	if err := l.forwardTo('{'); err != nil {
		return nil, err
	}

	word, err := l.word()
	if err != nil {
		return nil, err
	}

	if word == "" {
		return nil, errors.New("environment name is expected")
	}

	if err := l.expect('}'); err != nil {
		return nil, err
	}

	return EnvironmentEnd{Name: word}, nil
}

// readLineComment reads one line comment after %, including the line break. Unlike LATEX the tokenizer does not
// swallow the indentation of the next line, it belongs to the following text.
func (l *Tokenizer) readLineComment() (any, error) {
	var runes []rune
	for {
		read, _, err := l.r.ReadRune()
		if err == io.EOF || read == '\n' {
			return Verbatim{Kind: "%", Data: string(runes)}, nil
		}

		if err != nil {
			return nil, err
		}

		runes = append(runes, read)
	}
}

// readVerbatimBlock reads verbatim block (ie. block where all markup is ignored) of a given type (eg. comment, verbatim etc)
// until it finds closing \\end command.
func (l *Tokenizer) readVerbatimBlock(kind string) (any, error) {
	var runes []rune
	for {
		read, _, err := l.r.ReadRune()
		if err == io.EOF {
			return Verbatim{Kind: kind, Data: string(runes)}, nil
		}

		if err != nil {
			return nil, err
		}

		runes = append(runes, read)

		if strings.HasSuffix(string(runes), "\\end{"+kind+"}") {
			return Verbatim{Kind: kind, Data: strings.TrimSuffix(string(runes), "\\end{"+kind+"}")}, nil
		}
	}
}

func (l *Tokenizer) readVerbatim(command string) (any, error) {
	delimiter, _, err := l.r.ReadRune()
	if err != nil {
		return nil, err
	}

	if isWhitespace(delimiter) || isLetter(delimiter) || delimiter == '*' {
		return nil, fmt.Errorf("delimiter character \"%c\" is not allowed", delimiter)
	}

	var runes []rune
	for {
		read, _, err := l.r.ReadRune()
		if err != nil && err != io.EOF {
			return nil, err
		}

		if read == delimiter || err == io.EOF {
			return Verbatim{Kind: command, Data: string(runes)}, nil
		}

		runes = append(runes, read)
	}
}

// whitespaces skips until next non-whitespace symbol
func (l *Tokenizer) whitespaces() error {
	for {
		r, _, err := l.r.ReadRune()
		if err == io.EOF {
			return nil
		}

		if err != nil {
			return err
		}

		if !isWhitespace(r) {
			return l.r.UnreadRune()
		}
	}
}

// forwardTo skips whitespaces and makes sure next symbol is "e"
func (l *Tokenizer) forwardTo(e rune) error {
	if err := l.whitespaces(); err != nil {
		return err
	}

	return l.expect(e)
}

// expect verifies than following symbol is "e"
func (l *Tokenizer) expect(e rune) error {
	r, _, err := l.r.ReadRune()
	if err == io.EOF {
		return fmt.Errorf("expected symbol %c, got EOF instead", e)
	}

	if err != nil {
		return err
	}

	if r != e {
		return fmt.Errorf("expected symbol %c, got %c instead", e, r)
	}

	return nil
}

// star reads following star symbol, if present
func (l *Tokenizer) star() (bool, error) {
	r, _, err := l.r.ReadRune()
	if err == io.EOF {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	if r == '*' {
		return true, nil
	}

	return false, l.r.UnreadRune()
}

// word reads sequence of letters
func (l *Tokenizer) word() (string, error) {
	var runes []rune
	for {
		read, _, err := l.r.ReadRune()
		if err == io.EOF {
			return string(runes), nil
		}

		if err != nil {
			return "", err
		}

		if !isLetter(read) {
			return string(runes), l.r.UnreadRune()
		}

		runes = append(runes, read)
	}
}

// isLetter returns true for a letter
func isLetter(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z'
}

// isSpecial returns true if a symbol has a special meaning and should interrupt text reading
func isSpecial(r rune) bool {
	switch r {
	case '#', '$', '%', '^', '&', '_', '{', '}', '~', '\\', '[', ']':
		return true
	default:
		return false
	}
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\n', '\t', '\r':
		return true
	default:
		return false
	}
}

// isCommand checks if symbol represents "one-symbol" command
func isCommand(r rune) bool {
	switch r {
	case '\\', '-':
		return true
	default:
		return false
	}
}
