package visual_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	latex "github.com/eolymp/go-latex-editor"
	"github.com/eolymp/go-latex-editor/visual"
)

func TestRender(t *testing.T) {
	tt := []struct {
		name     string
		kind     latex.ConstructKind
		fragment string
		check    func(t *testing.T, v visual.Visual)
	}{
		{
			name:     "vertical space",
			kind:     latex.LayoutKind,
			fragment: "\\vspace{2cm}",
			check: func(t *testing.T, v visual.Visual) {
				assert.Equal(t, visual.Spacer, v.Glyph)
				assert.Equal(t, visual.Vertical, v.Direction)
				assert.Equal(t, 76, v.Height)
			},
		},
		{
			name:     "huge space is clamped",
			kind:     latex.LayoutKind,
			fragment: "\\vspace{500cm}",
			check: func(t *testing.T, v visual.Visual) {
				assert.Equal(t, 120, v.Height)
			},
		},
		{
			name:     "medium skip",
			kind:     latex.LayoutKind,
			fragment: "\\medskip",
			check: func(t *testing.T, v visual.Visual) {
				assert.Equal(t, visual.Spacer, v.Glyph)
				assert.Equal(t, 24, v.Height)
				assert.Equal(t, "Medium skip (6pt)", v.Label)
			},
		},
		{
			name:     "horizontal fill",
			kind:     latex.LayoutKind,
			fragment: "\\hfill",
			check: func(t *testing.T, v visual.Visual) {
				assert.Equal(t, visual.Spacer, v.Glyph)
				assert.Equal(t, visual.Horizontal, v.Direction)
			},
		},
		{
			name:     "page break",
			kind:     latex.LayoutKind,
			fragment: "\\newpage",
			check: func(t *testing.T, v visual.Visual) {
				assert.Equal(t, visual.Divider, v.Glyph)
			},
		},
		{
			name:     "line break with spacing",
			kind:     latex.LineBreakKind,
			fragment: "\\\\[2mm]",
			check: func(t *testing.T, v visual.Visual) {
				assert.Equal(t, visual.Spacer, v.Glyph)
				assert.Equal(t, latex.MinHint, v.Height)
			},
		},
		{
			name:     "figure",
			kind:     latex.ImageKind,
			fragment: "\\begin{figure}[h]\\centering\\includegraphics[width=1.5\\textwidth]{cat.png}\\caption{A cat --- sleeping}\\end{figure}",
			check: func(t *testing.T, v visual.Visual) {
				assert.Equal(t, visual.ImageBox, v.Glyph)
				assert.Equal(t, "cat.png", v.Source)
				assert.Equal(t, 1.0, v.Width)
				assert.Equal(t, "A cat — sleeping", v.Caption)
			},
		},
		{
			name:     "bare image",
			kind:     latex.ImageKind,
			fragment: "\\includegraphics[scale=2]{dog}",
			check: func(t *testing.T, v visual.Visual) {
				assert.Equal(t, visual.ImageBox, v.Glyph)
				assert.Equal(t, 0.8, v.Width)
				assert.Empty(t, v.Caption)
			},
		},
		{
			name:     "integral",
			kind:     latex.IntegralKind,
			fragment: "$\\int_{0}^{1} x \\, dx$",
			check: func(t *testing.T, v visual.Visual) {
				assert.Equal(t, visual.Formula, v.Glyph)
				assert.Equal(t, "∫_0^1 x dx", v.Preview)
				assert.Equal(t, "Integral from 0 to 1 of x dx", v.Label)
			},
		},
		{
			name:     "unrecognized",
			kind:     latex.IntegralKind,
			fragment: "$\\int x$",
			check: func(t *testing.T, v visual.Visual) {
				assert.Equal(t, visual.Literal, v.Glyph)
				assert.False(t, v.Recognized)
				assert.Equal(t, "$\\int x$", v.Fragment)
				assert.Equal(t, "Unrecognized integral\n$\\int x$", v.Hint())
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			v := visual.Renderer{}.Render(tc.kind, tc.fragment)

			assert.True(t, v.Atomic())
			assert.Equal(t, tc.kind, v.Kind)
			assert.Equal(t, tc.fragment, v.Fragment)

			tc.check(t, v)
		})
	}
}

func TestRenderWithoutMathPreview(t *testing.T) {
	v := visual.Renderer{NoMathPreview: true}.Render(latex.SumKind, "$\\sum_{i=1}^{n} a_i$")

	assert.Equal(t, visual.Formula, v.Glyph)
	assert.Empty(t, v.Preview)
	assert.Equal(t, "Sum for i = 1 to n of a_i", v.Label)
}
