package visual_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	latex "github.com/eolymp/go-latex-editor"
	"github.com/eolymp/go-latex-editor/document"
	"github.com/eolymp/go-latex-editor/visual"
)

const page = "Text\n\\vspace{2cm}\n\\includegraphics[width=0.5\\textwidth]{dots.png}\n$\\int x$\n\\newpage"

func writePNG(t *testing.T, name string, width, height int) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		img.Set(x, x%height, color.NRGBA{R: 255, A: 255})
	}

	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	require.NoError(t, os.WriteFile(name, buf.Bytes(), 0o644))
}

func TestPage(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "dots.png"), 64, 8)

	log := zaptest.NewLogger(t)
	p := visual.NewPage(
		visual.WithThumbnails(visual.NewThumbnailer(dir, 16, log)),
		visual.WithStyle("monokai"),
		visual.WithPageLogger(log),
	)

	doc, err := document.Load(page, document.WithDefaultView(p.View))
	require.NoError(t, err)

	nodes := doc.Nodes()
	require.Len(t, nodes, 4)
	assert.Equal(t, 4, p.Len())

	spacer, ok := p.Widget(nodes[0].ID())
	require.True(t, ok)
	assert.Contains(t, string(spacer), "height: 76px")
	assert.Contains(t, string(spacer), `data-atomic="true"`)

	box, ok := p.Widget(nodes[1].ID())
	require.True(t, ok)
	assert.Contains(t, string(box), "width: 50%")
	assert.Contains(t, string(box), "data:image/png;base64,")

	literal, ok := p.Widget(nodes[2].ID())
	require.True(t, ok)
	assert.Contains(t, string(literal), "unrecognized")
	assert.Contains(t, string(literal), `class="chroma"`)

	divider, ok := p.Widget(nodes[3].ID())
	require.True(t, ok)
	assert.Contains(t, string(divider), "page-break")

	out := &bytes.Buffer{}
	require.NoError(t, p.Write(out, "sample", doc.Nodes()))

	html := out.String()
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>sample</title>")
	assert.Less(t, strings.Index(html, "node-"+nodes[0].ID().String()), strings.Index(html, "node-"+nodes[3].ID().String()))
}

func TestPageCommitAndRemove(t *testing.T) {
	p := visual.NewPage()

	doc, err := document.Load(page, document.WithDefaultView(p.View))
	require.NoError(t, err)

	layout := doc.Nodes()[0]
	require.NoError(t, doc.Commit(layout, "\\hspace{1cm}"))

	widget, ok := p.Widget(layout.ID())
	require.True(t, ok)
	assert.Contains(t, string(widget), "width: 38px")

	// image without thumbnailer gets a placeholder
	box, ok := p.Widget(doc.Nodes()[1].ID())
	require.True(t, ok)
	assert.Contains(t, string(box), `<div class="placeholder">dots.png</div>`)

	require.NoError(t, doc.Remove(layout))
	_, ok = p.Widget(layout.ID())
	assert.False(t, ok)
	assert.Equal(t, 3, p.Len())

	inserted, err := doc.Insert(latex.SumKind, nil)
	require.NoError(t, err)

	formula, ok := p.Widget(inserted.ID())
	require.True(t, ok)
	assert.Contains(t, string(formula), "∑_i=1^n a_i")

	require.NoError(t, doc.Close())
	assert.Zero(t, p.Len())
}

func TestHTMLViewReleased(t *testing.T) {
	p := visual.NewPage()

	doc, err := document.Load("\\vfill")
	require.NoError(t, err)

	view, err := p.View(doc.Nodes()[0])
	require.NoError(t, err)

	require.NoError(t, view.Render(doc.Nodes()[0]))
	require.NoError(t, view.Destroy())

	assert.ErrorIs(t, view.Destroy(), visual.ErrViewReleased)
	assert.ErrorIs(t, view.Render(doc.Nodes()[0]), visual.ErrViewReleased)
}
