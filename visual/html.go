package visual

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eolymp/go-latex-editor/document"
)

var ErrViewReleased = errors.New("view is already destroyed")

const widgetTemplate = `<div class="widget {{ .Visual.Glyph }}{{ if not .Visual.Recognized }} unrecognized{{ end }}" id="node-{{ .ID }}" title="{{ .Visual.Hint }}" data-kind="{{ .Visual.Kind }}" data-atomic="{{ .Visual.Atomic }}">
{{- if eq .Visual.Glyph.String "divider" }}
<hr class="page-break"><span class="label">{{ .Visual.Label }}</span>
{{- else if eq .Visual.Glyph.String "spacer" }}
<div class="spacer {{ .Visual.Direction }}" style="{{ if eq .Visual.Direction.String "horizontal" }}width{{ else }}height{{ end }}: {{ .Visual.Height }}px"></div><span class="label">{{ .Visual.Label }}</span>
{{- else if eq .Visual.Glyph.String "image" }}
<figure style="width: {{ .Percent }}%">
{{- if .Thumbnail }}<img src="{{ .Thumbnail }}" alt="{{ .Visual.Source | base }}">{{ else }}<div class="placeholder">{{ .Visual.Source | base }}</div>{{ end -}}
{{ with .Visual.Caption }}<figcaption>{{ . }}</figcaption>{{ end -}}
</figure>
{{- else if eq .Visual.Glyph.String "formula" }}
<span class="formula">{{ .Visual.Preview | default .Visual.Label }}</span>
{{- else }}
{{ .Code }}
{{- end }}
</div>
`

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{ .Title | trunc 120 }}</title>
<style>
.widget { margin: 4px 0; }
.widget .label { color: #888; font-size: smaller; }
.spacer.vertical { border-left: 2px dashed #bbb; }
.spacer.horizontal { display: inline-block; height: 1em; border-bottom: 2px dashed #bbb; }
.page-break { border-top: 2px dashed #666; }
.placeholder { border: 1px solid #ccc; padding: 2em; text-align: center; }
.unrecognized { outline: 1px dotted #c00; }
{{ .CSS }}
</style>
</head>
<body>
{{ range .Widgets }}{{ . }}{{ end -}}
</body>
</html>
`

var (
	widgetPage = template.Must(template.New("widget").Funcs(sprig.FuncMap()).Parse(widgetTemplate))
	wholePage  = template.Must(template.New("page").Funcs(sprig.FuncMap()).Parse(pageTemplate))
)

type widgetValues struct {
	ID        uuid.UUID
	Visual    Visual
	Percent   string
	Thumbnail template.URL
	Code      template.HTML
}

type pageValues struct {
	Title   string
	CSS     template.CSS
	Widgets []template.HTML
}

// Page collects HTML widgets of document nodes. Each node gets its own HTMLView which owns one slot of the page.
type Page struct {
	renderer   Renderer
	thumbnails *Thumbnailer
	lexer      chroma.Lexer
	style      *chroma.Style
	formatter  *chromahtml.Formatter
	log        *zap.Logger

	widgets map[uuid.UUID]template.HTML
}

type PageOption func(*Page)

func WithRenderer(r Renderer) PageOption {
	return func(p *Page) {
		p.renderer = r
	}
}

// WithThumbnails embeds image previews into image widgets.
func WithThumbnails(t *Thumbnailer) PageOption {
	return func(p *Page) {
		p.thumbnails = t
	}
}

// WithStyle sets chroma style used to highlight unrecognized fragments, unknown names fall back to the default style.
func WithStyle(name string) PageOption {
	return func(p *Page) {
		p.style = styles.Get(name)
	}
}

func WithPageLogger(log *zap.Logger) PageOption {
	return func(p *Page) {
		if log != nil {
			p.log = log
		}
	}
}

func NewPage(opts ...PageOption) *Page {
	lexer := lexers.Get("latex")
	if lexer == nil {
		lexer = lexers.Fallback
	}

	p := &Page{
		lexer:     chroma.Coalesce(lexer),
		style:     styles.Fallback,
		formatter: chromahtml.New(chromahtml.WithClasses(true), chromahtml.Standalone(false)),
		log:       zap.NewNop(),
		widgets:   map[uuid.UUID]template.HTML{},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// View creates a view for a node, it is a document.ViewFactory.
func (p *Page) View(n *document.Node) (document.View, error) {
	return &HTMLView{page: p, id: n.ID()}, nil
}

// Widget returns last rendered widget of a node.
func (p *Page) Widget(id uuid.UUID) (template.HTML, bool) {
	w, ok := p.widgets[id]
	return w, ok
}

// Len returns number of occupied slots.
func (p *Page) Len() int {
	return len(p.widgets)
}

// Write writes standalone HTML page with widgets of given nodes in their order. Nodes without a view are skipped.
func (p *Page) Write(w io.Writer, title string, nodes []*document.Node) error {
	css := &bytes.Buffer{}
	if err := p.formatter.WriteCSS(css, p.style); err != nil {
		return fmt.Errorf("unable to write highlighting styles: %w", err)
	}

	values := pageValues{Title: title, CSS: template.CSS(css.String())}

	for _, n := range nodes {
		if widget, ok := p.widgets[n.ID()]; ok {
			values.Widgets = append(values.Widgets, widget)
		}
	}

	if err := wholePage.Execute(w, values); err != nil {
		return fmt.Errorf("unable to write page: %w", err)
	}

	return nil
}

func (p *Page) highlight(code string) (template.HTML, error) {
	it, err := p.lexer.Tokenise(nil, code)
	if err != nil {
		return "", err
	}

	buf := &bytes.Buffer{}
	if err := p.formatter.Format(buf, p.style, it); err != nil {
		return "", err
	}

	return template.HTML(buf.String()), nil
}

func (p *Page) thumbnail(src string) template.URL {
	if p.thumbnails == nil {
		return ""
	}

	data, err := p.thumbnails.Thumbnail(src)
	if err != nil {
		p.log.Warn("Unable to create thumbnail, using placeholder", zap.String("src", src), zap.Error(err))
		return ""
	}

	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(data))
}

// HTMLView renders a node into its slot of the page.
type HTMLView struct {
	page     *Page
	id       uuid.UUID
	released bool
}

func (v *HTMLView) Render(n *document.Node) error {
	if v.released {
		return ErrViewReleased
	}

	p := v.page
	values := widgetValues{ID: v.id, Visual: p.renderer.Render(n.Kind(), n.Fragment())}

	switch values.Visual.Glyph {
	case ImageBox:
		values.Percent = strconv.FormatFloat(values.Visual.Width*100, 'f', -1, 64)
		values.Thumbnail = p.thumbnail(values.Visual.Source)
	case Literal:
		code, err := p.highlight(values.Visual.Fragment)
		if err != nil {
			return fmt.Errorf("unable to highlight fragment: %w", err)
		}

		values.Code = code
	}

	buf := &bytes.Buffer{}
	if err := widgetPage.Execute(buf, values); err != nil {
		return fmt.Errorf("unable to write widget: %w", err)
	}

	p.widgets[v.id] = template.HTML(buf.String())

	return nil
}

// Destroy releases the slot, the view can not be rendered afterwards.
func (v *HTMLView) Destroy() error {
	if v.released {
		return ErrViewReleased
	}

	v.released = true
	delete(v.page.widgets, v.id)

	return nil
}
