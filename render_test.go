package latex_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	latex "github.com/eolymp/go-latex-editor"
)

func TestBuild(t *testing.T) {
	tt := []struct {
		name   string
		kind   latex.ConstructKind
		attrs  latex.Attributes
		render string
	}{
		{
			name:   "vertical space",
			kind:   latex.LayoutKind,
			attrs:  latex.Attributes{"directive": "vspace", "magnitude": "2cm"},
			render: "\\vspace{2cm}",
		},
		{
			name:   "starred horizontal space",
			kind:   latex.LayoutKind,
			attrs:  latex.Attributes{"directive": "hspace", "starred": "true", "magnitude": "1em"},
			render: "\\hspace*{1em}",
		},
		{
			name:   "named skip",
			kind:   latex.LayoutKind,
			attrs:  latex.Attributes{"directive": "skip", "magnitude": "12pt"},
			render: "\\bigskip",
		},
		{
			name:   "skip with custom size",
			kind:   latex.LayoutKind,
			attrs:  latex.Attributes{"directive": "skip", "magnitude": "5pt"},
			render: "\\vspace{5pt}",
		},
		{
			name:   "page break",
			kind:   latex.LayoutKind,
			attrs:  latex.Attributes{"directive": "pagebreak", "magnitude": "1cm"},
			render: "\\newpage",
		},
		{
			name:   "empty space gets placeholder",
			kind:   latex.LayoutKind,
			attrs:  latex.Attributes{"directive": "vspace", "magnitude": "  "},
			render: "\\vspace{1cm}",
		},
		{
			name:   "line break with spacing",
			kind:   latex.LineBreakKind,
			attrs:  latex.Attributes{"spacing": "3mm"},
			render: "\\\\[3mm]",
		},
		{
			name:   "bare image",
			kind:   latex.ImageKind,
			attrs:  latex.Attributes{"src": "cat.png", "width": "0.25", "figure": "false", "caption": "ignored"},
			render: "\\includegraphics[width=0.25\\textwidth]{cat.png}",
		},
		{
			name:   "figure",
			kind:   latex.ImageKind,
			attrs:  latex.Attributes{"src": "cat.png", "width": "0.5", "figure": "true", "caption": "A cat", "placement": "ht"},
			render: "\\begin{figure}[ht]\n\\includegraphics[width=0.5\\textwidth]{cat.png}\n\\caption{A cat}\n\\end{figure}",
		},
		{
			name:   "image with invalid width",
			kind:   latex.ImageKind,
			attrs:  latex.Attributes{"src": "cat.png", "width": "wide"},
			render: "\\includegraphics[width=0.8\\textwidth]{cat.png}",
		},
		{
			name:   "integral",
			kind:   latex.IntegralKind,
			attrs:  latex.Attributes{"lower": "0", "upper": "\\pi", "integrand": "\\sin x", "variable": "x"},
			render: "$\\int_{0}^{\\pi} \\sin x \\, dx$",
		},
		{
			name:   "integral with empty fields",
			kind:   latex.IntegralKind,
			attrs:  latex.Attributes{"lower": "", "upper": "1", "integrand": " ", "variable": ""},
			render: "$\\int_{a}^{1} f(x) \\, dx$",
		},
		{
			name:   "double integral",
			kind:   latex.DoubleIntegralKind,
			attrs:  latex.Attributes{"domain": "R", "integrand": "x+y", "area": "dS"},
			render: "$\\iint_{R} x+y \\, dS$",
		},
		{
			name:   "sum",
			kind:   latex.SumKind,
			attrs:  latex.Attributes{"index": "j", "from": "0", "to": "m", "summand": "2^j"},
			render: "$\\sum_{j=0}^{m} 2^j$",
		},
		{
			name:   "empty sum",
			kind:   latex.SumKind,
			attrs:  latex.Attributes{},
			render: "$\\sum_{i=1}^{n} a_i$",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			buffer := bytes.NewBuffer(nil)

			err := latex.Render(buffer, tc.kind, tc.attrs)
			if err != nil {
				t.Fatal("unable to render:", err)
			}

			got := buffer.String()
			want := tc.render

			if got != want {
				t.Errorf("Rendered latex does not match:\nWANT:\n  %#v\nGOT:\n  %#v\n", want, got)
			}

			if got != latex.Build(tc.kind, tc.attrs) {
				t.Errorf("Render and Build must produce the same fragment")
			}
		})
	}
}

func TestRenderUnknownKind(t *testing.T) {
	if err := latex.Render(bytes.NewBuffer(nil), latex.UnknownKind, nil); err == nil {
		t.Error("Render must fail for unsupported construct")
	}

	if got := latex.Build(latex.UnknownKind, nil); got != "" {
		t.Errorf("Build must produce empty fragment for unsupported construct, got %#v", got)
	}
}

// every recognized fragment is rebuilt into a fragment which parses into the same attributes
func TestRoundTrip(t *testing.T) {
	fragments := map[latex.ConstructKind][]string{
		latex.LayoutKind: {
			"\\vspace{2cm}",
			"\\vspace*{-3mm}",
			"\\hspace{0.5\\textwidth}",
			"\\hspace{3furlongs}",
			"\\smallskip",
			"\\medskip",
			"\\bigskip",
			"\\vfill",
			"\\hfill",
			"\\newpage",
			"\\pagebreak",
		},
		latex.LineBreakKind: {
			"\\\\",
			"\\\\[1ex]",
			"\\newline",
		},
		latex.ImageKind: {
			"\\includegraphics{a.png}",
			"\\includegraphics[width=\\textwidth]{a.png}",
			"\\includegraphics[width=1.5\\textwidth]{a.png}",
			"\\includegraphics[angle=90,width=0.3\\textwidth]{dir/a b.png}",
			"\\begin{figure}[!htb]\\centering\\includegraphics{a.png}\\caption{With {nested} $x^2$}\\end{figure}",
			"\\begin{figure}\n\\includegraphics{a.png}\n\\end{figure}",
		},
		latex.IntegralKind: {
			"$\\int_{0}^{1} x \\, dx$",
			"$ \\int_{a}^{b}  f(x)  \\,dt $",
			"$\\int_{0}^{\\infty} e^{-x^2}\n\\, d\\xi$",
		},
		latex.DoubleIntegralKind: {
			"$\\iint_{D} 1 \\, dA$",
			"$\\iint_{x^2+y^2 \\le 1} \\sqrt{x^2+y^2} \\, d\\sigma$",
		},
		latex.SumKind: {
			"$\\sum_{i=1}^{n} i$",
			"$\\sum_{ k = 0 }^{ N-1 }  x_k y_k$",
		},
	}

	for kind, list := range fragments {
		for _, fragment := range list {
			t.Run(kind.String()+" "+fragment, func(t *testing.T) {
				want, ok := latex.Parse(kind, fragment)
				if !ok {
					t.Fatalf("Fragment %#v is not recognized", fragment)
				}

				built := latex.Build(kind, want)

				got, ok := latex.Parse(kind, built)
				if !ok {
					t.Fatalf("Built fragment %#v is not recognized", built)
				}

				if !cmp.Equal(want, got) {
					t.Errorf("Attributes changed after round trip through %#v:\n%s\n", built, cmp.Diff(want, got))
				}

				// builder output is canonical
				if again := latex.Build(kind, got); again != built {
					t.Errorf("Build is not stable:\n  %#v\n  %#v", built, again)
				}
			})
		}
	}
}

// normalized attribute sets survive build and parse unchanged
func TestNormalizedRoundTrip(t *testing.T) {
	tt := []struct {
		name  string
		kind  latex.ConstructKind
		attrs latex.Attributes
	}{
		{name: "space", kind: latex.LayoutKind, attrs: latex.Attributes{"directive": "hspace", "starred": "true", "magnitude": "4em"}},
		{name: "skip snaps to named one", kind: latex.LayoutKind, attrs: latex.Attributes{"directive": "skip", "magnitude": "1cm"}},
		{name: "fill drops magnitude", kind: latex.LayoutKind, attrs: latex.Attributes{"directive": "vfill", "starred": "true", "magnitude": "1cm"}},
		{name: "unknown directive", kind: latex.LayoutKind, attrs: latex.Attributes{"directive": "stretch", "magnitude": "2cm"}},
		{name: "line break", kind: latex.LineBreakKind, attrs: latex.Attributes{"spacing": " 2pt "}},
		{name: "figure", kind: latex.ImageKind, attrs: latex.Attributes{"src": "a.png", "width": "0.50", "figure": "true", "caption": "x", "centered": "true"}},
		{name: "image drops caption", kind: latex.ImageKind, attrs: latex.Attributes{"src": "a.png", "width": "1", "figure": "false", "caption": "x"}},
		{name: "integral keeps inner spaces", kind: latex.IntegralKind, attrs: latex.Attributes{"lower": " 0", "upper": "1 ", "integrand": "  x  ", "variable": "x"}},
		{name: "sum", kind: latex.SumKind, attrs: latex.Attributes{"index": "i", "from": "1", "to": "n", "summand": " i\n"}},
		{name: "blank integrand", kind: latex.IntegralKind, attrs: latex.Attributes{"lower": "0", "upper": "1", "integrand": "   ", "variable": "x"}},
		{name: "blank limits", kind: latex.DoubleIntegralKind, attrs: latex.Attributes{"domain": " ", "integrand": "1", "area": ""}},
		{name: "blank summand", kind: latex.SumKind, attrs: latex.Attributes{"index": "k", "from": "0", "to": "N", "summand": " \n"}},
		{name: "blank magnitude", kind: latex.LayoutKind, attrs: latex.Attributes{"directive": "hspace", "magnitude": "  "}},
		{name: "blank source", kind: latex.ImageKind, attrs: latex.Attributes{"src": " ", "width": "1", "figure": "false"}},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			want := latex.Normalize(tc.kind, tc.attrs)

			if again := latex.Normalize(tc.kind, want); !cmp.Equal(want, again) {
				t.Errorf("Normalize is not idempotent:\n%s\n", cmp.Diff(want, again))
			}

			got, ok := latex.Parse(tc.kind, latex.Build(tc.kind, want))
			if !ok {
				t.Fatalf("Built fragment %#v is not recognized", latex.Build(tc.kind, want))
			}

			if !cmp.Equal(want, got) {
				t.Errorf("Attributes do not match:\n%s\n", cmp.Diff(want, got))
			}
		})
	}
}

func TestBuildIsTotal(t *testing.T) {
	for _, kind := range latex.Kinds() {
		for _, attrs := range []latex.Attributes{nil, {}, {"unexpected": "value"}} {
			fragment := latex.Build(kind, attrs)
			if strings.Contains(fragment, "{}") {
				t.Errorf("Fragment %#v of %v has empty group", fragment, kind)
			}

			if _, ok := latex.Parse(kind, fragment); !ok {
				t.Errorf("Fragment %#v of %v built from %v is not recognized", fragment, kind, attrs)
			}
		}
	}
}

func TestDescribe(t *testing.T) {
	tt := []struct {
		kind     latex.ConstructKind
		fragment string
		want     string
	}{
		{kind: latex.LayoutKind, fragment: "\\vspace*{2cm}", want: "Vertical space 2cm (kept at page break)"},
		{kind: latex.LayoutKind, fragment: "\\smallskip", want: "Small skip (3pt)"},
		{kind: latex.LayoutKind, fragment: "\\newpage", want: "Page break"},
		{kind: latex.LineBreakKind, fragment: "\\\\[2mm]", want: "Line break + 2mm"},
		{kind: latex.ImageKind, fragment: "\\begin{figure}\\includegraphics[width=0.5\\textwidth]{a.png}\\caption{Plot --- {final}}\\end{figure}", want: "Image a.png (50% width): Plot — final"},
		{kind: latex.IntegralKind, fragment: "$\\int_{0}^{\\infty} e^{-x} \\, dx$", want: "Integral from 0 to ∞ of e^-x dx"},
		{kind: latex.SumKind, fragment: "$\\sum_{i=1}^{n} \\alpha_i$", want: "Sum for i = 1 to n of α_i"},
	}

	for _, tc := range tt {
		t.Run(tc.want, func(t *testing.T) {
			attrs, ok := latex.Parse(tc.kind, tc.fragment)
			if !ok {
				t.Fatalf("Fragment %#v is not recognized", tc.fragment)
			}

			if got := latex.Describe(tc.kind, attrs); got != tc.want {
				t.Errorf("Label does not match: want %#v, got %#v", tc.want, got)
			}
		})
	}
}
