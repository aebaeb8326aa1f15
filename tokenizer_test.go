package latex_test

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	latex "github.com/eolymp/go-latex-editor"
)

func TestLexer(t *testing.T) {
	tt := []struct {
		name   string
		input  string
		output []any
	}{
		{
			name:  "text",
			input: "one\ntwo\nthree",
			output: []any{
				latex.Text("one\n"),
				latex.Text("two\n"),
				latex.Text("three"),
			},
		},
		{
			name:  "command",
			input: "\\textbf{foo\\par bar}",
			output: []any{
				latex.Command("\\textbf"),
				latex.ParameterStart{},
				latex.Text("foo"),
				latex.Command("\\par"),
				latex.Text("bar"),
				latex.ParameterEnd{},
			},
		},
		{
			name:  "math",
			input: "foo $a_i^2 + b_i^2 \\le a_{i+1}^2$ bar",
			output: []any{
				latex.Text("foo "),
				latex.Verbatim{Kind: "$", Data: "a_i^2 + b_i^2 \\le a_{i+1}^2"},
				latex.Text(" bar"),
			},
		},
		{
			name:  "math with escaped $ symbol",
			input: "foo $a_i^2 + b_i^2 \\$ \\le a_{i+1}^2$ bar",
			output: []any{
				latex.Text("foo "),
				latex.Verbatim{Kind: "$", Data: "a_i^2 + b_i^2 \\$ \\le a_{i+1}^2"},
				latex.Text(" bar"),
			},
		},
		{
			name:  "math with escaped % symbol",
			input: "$50\\%$",
			output: []any{
				latex.Verbatim{Kind: "$", Data: "50\\%"},
			},
		},
		{
			name:  "math ends with line break",
			input: "$a \\\\$b",
			output: []any{
				latex.Verbatim{Kind: "$", Data: "a \\\\"},
				latex.Text("b"),
			},
		},
		{
			name:  "math block",
			input: "foo $$a_i^2 + b_i^2 \\le a_{i+1}^2$$ bar",
			output: []any{
				latex.Text("foo "),
				latex.Verbatim{Kind: "$$", Data: "a_i^2 + b_i^2 \\le a_{i+1}^2"},
				latex.Text(" bar"),
			},
		},
		{
			name:  "math block with $ inside (invalid formatting)",
			input: "foo $$a_i^2 + b_i^2 $ \\le a_{i+1}^2$$ bar",
			output: []any{
				latex.Text("foo "),
				latex.Verbatim{Kind: "$$", Data: "a_i^2 + b_i^2 $ \\le a_{i+1}^2"},
				latex.Text(" bar"),
			},
		},
		{
			name:  "optional group",
			input: "\\includegraphics[scale=1.5]{eolymp.png}",
			output: []any{
				latex.Command("\\includegraphics"),
				latex.OptionalStart{},
				latex.Text("scale=1.5"),
				latex.OptionalEnd{},
				latex.ParameterStart{},
				latex.Text("eolymp.png"),
				latex.ParameterEnd{},
			},
		},
		{
			name:  "oneline comment",
			input: "one\ntwo%comment\\foo\n  three",
			output: []any{
				latex.Text("one\n"),
				latex.Text("two"),
				latex.Verbatim{Kind: "%", Data: "comment\\foo"},
				latex.Text("  three"),
			},
		},
		{
			name:  "block comment",
			input: "a\\begin{comment}This is\n multiline\ncomment\n\\end{comment}z",
			output: []any{
				latex.Text("a"),
				latex.Verbatim{Kind: "comment", Data: "This is\n multiline\ncomment\n"},
				latex.Text("z"),
			},
		},
		{
			name:  "verb command",
			input: "The \\verb|\\vspace{1cm}| command \\ldots",
			output: []any{
				latex.Text("The "),
				latex.Verbatim{Kind: "\\verb", Data: "\\vspace{1cm}"},
				latex.Text(" command "),
				latex.Command("\\ldots"),
			},
		},
		{
			name:  "verbatim environment",
			input: "\\begin{verbatim}\n\\newpage\n\\end{verbatim}",
			output: []any{
				latex.Verbatim{Kind: "verbatim", Data: "\n\\newpage\n"},
			},
		},
		{
			name:  "figure environment",
			input: "\\begin{figure}[h]\n\\centering\n\\end{figure}",
			output: []any{
				latex.EnvironmentStart{Name: "figure"},
				latex.OptionalStart{},
				latex.Text("h"),
				latex.OptionalEnd{},
				latex.Text("\n"),
				latex.Command("\\centering"),
				latex.EnvironmentEnd{Name: "figure"},
			},
		},
		{
			name:  "line breaks",
			input: "one\\\\two\\\\[2mm]three\\\\*four",
			output: []any{
				latex.Text("one"),
				latex.Command("\\\\"),
				latex.Text("two"),
				latex.Command("\\\\"),
				latex.OptionalStart{},
				latex.Text("2mm"),
				latex.OptionalEnd{},
				latex.Text("three"),
				latex.Command("\\\\*"),
				latex.Text("four"),
			},
		},
		{
			name:  "starred command",
			input: "\\vspace*{1cm}",
			output: []any{
				latex.Command("\\vspace*"),
				latex.ParameterStart{},
				latex.Text("1cm"),
				latex.ParameterEnd{},
			},
		},
		{
			name:  "control symbols",
			input: "a\\,b\\%c",
			output: []any{
				latex.Text("a"),
				latex.Command("\\,"),
				latex.Text("b"),
				latex.Command("\\%"),
				latex.Text("c"),
			},
		},
		{
			name:  "trailing backslash",
			input: "a\\",
			output: []any{
				latex.Text("a"),
				latex.Text("\\"),
			},
		},
		{
			name:  "scripts",
			input: "\\int_{a}^{b}",
			output: []any{
				latex.Command("\\int"),
				latex.Symbol("_"),
				latex.ParameterStart{},
				latex.Text("a"),
				latex.ParameterEnd{},
				latex.Symbol("^"),
				latex.ParameterStart{},
				latex.Text("b"),
				latex.ParameterEnd{},
			},
		},
		{
			name:  "cf1",
			input: "These are inline formulas: $x$, $a_i^2 + b_i^2 \\le a_{i+1}^2$. Afterwards...",
			output: []any{
				latex.Text("These are inline formulas: "),
				latex.Verbatim{Kind: "$", Data: "x"},
				latex.Text(", "),
				latex.Verbatim{Kind: "$", Data: "a_i^2 + b_i^2 \\le a_{i+1}^2"},
				latex.Text(". Afterwards..."),
			},
		},
		{
			name:  "cf5",
			input: "First paragraph.\n\nSecond paragraph.",
			output: []any{
				latex.Text("First paragraph.\n"),
				latex.Text("\n"),
				latex.Text("Second paragraph."),
			},
		},
		{
			name:  "cf9",
			input: "\\begin{center}\n  \\includegraphics[width=4cm]{logo.png} \\\\\n  \\small{Centered image.}\n\\end{center}",
			output: []any{
				latex.EnvironmentStart{Name: "center"},
				latex.Text("\n"),
				latex.Text("  "),
				latex.Command("\\includegraphics"),
				latex.OptionalStart{},
				latex.Text("width=4cm"),
				latex.OptionalEnd{},
				latex.ParameterStart{},
				latex.Text("logo.png"),
				latex.ParameterEnd{},
				latex.Text(" "),
				latex.Command("\\\\"),
				latex.Command("\\small"),
				latex.ParameterStart{},
				latex.Text("Centered image."),
				latex.ParameterEnd{},
				latex.Text("\n"),
				latex.EnvironmentEnd{Name: "center"},
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			lexer := latex.NewTokenizer(strings.NewReader(tc.input))

			var got []any

			for {
				token, err := lexer.Token()
				if err == io.EOF {
					break
				}

				if err != nil {
					t.Fatalf("Unable to read token: %v", err)
				}

				got = append(got, token)
			}

			want := tc.output

			if !reflect.DeepEqual(want, got) {
				t.Errorf("Tokens do not match:\n want %#v\n  got %#v\n", want, got)
			}
		})
	}
}

func TestLexerErrors(t *testing.T) {
	tt := []struct {
		name  string
		input string
	}{
		{name: "math is not closed", input: "$\\int_{a}"},
		{name: "math block is not closed", input: "$$x$"},
		{name: "comment inside math", input: "$x % y$"},
		{name: "comment inside math block", input: "$$x$ % y\n$$"},
		{name: "environment name is missing", input: "\\begin{}"},
		{name: "environment is not closed with brace", input: "\\begin{figure"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			lexer := latex.NewTokenizer(strings.NewReader(tc.input))

			for {
				_, err := lexer.Token()
				if err == io.EOF {
					t.Fatal("Tokenizer must fail before EOF")
				}

				if err != nil {
					return
				}
			}
		})
	}
}

func TestLexerOffset(t *testing.T) {
	input := "ü \\vspace{1cm} x"
	lexer := latex.NewTokenizer(strings.NewReader(input))

	if _, err := lexer.Token(); err != nil {
		t.Fatal(err)
	}

	if got := lexer.Offset(); got != len("ü ") {
		t.Errorf("Offset after text must be %d, got %d", len("ü "), got)
	}

	if _, err := lexer.Token(); err != nil {
		t.Fatal(err)
	}

	if _, err := lexer.Token(); err != nil {
		t.Fatal(err)
	}

	group, err := lexer.Group('}')
	if err != nil {
		t.Fatal(err)
	}

	if group != "1cm" {
		t.Errorf("Group must be %#v, got %#v", "1cm", group)
	}

	if got := lexer.Offset(); got != strings.Index(input, "}")+1 {
		t.Errorf("Offset after group must point after closing brace, got %d", got)
	}
}

func TestLexerGroup(t *testing.T) {
	tt := []struct {
		name    string
		input   string
		closing rune
		want    string
		fail    bool
	}{
		{name: "plain", input: "1cm}", closing: '}', want: "1cm"},
		{name: "nested", input: "a{b{c}}d} tail", closing: '}', want: "a{b{c}}d"},
		{name: "escaped brace", input: "a\\}b}", closing: '}', want: "a\\}b"},
		{name: "option with braces", input: "width={0.5\\textwidth}]", closing: ']', want: "width={0.5\\textwidth}"},
		{name: "bracket inside braces", input: "{]}]", closing: ']', want: "{]}"},
		{name: "escaped percent", input: "50\\%}", closing: '}', want: "50\\%"},
		{name: "comment", input: "1cm % note\n}", closing: '}', fail: true},
		{name: "comment swallows bracket", input: "1cm % ]\n]", closing: ']', fail: true},
		{name: "not closed", input: "a{b}", closing: '}', fail: true},
		{name: "unbalanced", input: "a}]", closing: ']', fail: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := latex.NewTokenizer(strings.NewReader(tc.input)).Group(tc.closing)
			if tc.fail {
				if err == nil {
					t.Fatalf("Group must fail, got %#v", got)
				}

				return
			}

			if err != nil {
				t.Fatal(err)
			}

			if got != tc.want {
				t.Errorf("Group does not match: want %#v, got %#v", tc.want, got)
			}
		})
	}
}

func TestLexerMathComment(t *testing.T) {
	lexer := latex.NewTokenizer(strings.NewReader("$x % note $\n$ tail"))

	if _, err := lexer.Token(); !errors.Is(err, latex.ErrMathComment) {
		t.Fatalf("Formula with comment must fail with %v, got %v", latex.ErrMathComment, err)
	}

	token, err := lexer.Token()
	if err != nil {
		t.Fatal(err)
	}

	if want := latex.Text(" tail"); token != want {
		t.Errorf("Reading must go on after the formula: want %#v, got %#v", want, token)
	}
}
