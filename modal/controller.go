// Package modal implements editing sessions of document nodes. A session works on a copy of node attributes and
// writes them back to the document only when saved.
package modal

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	latex "github.com/eolymp/go-latex-editor"
	"github.com/eolymp/go-latex-editor/document"
)

var (
	ErrSessionActive = errors.New("another editing session is active")
	ErrSessionClosed = errors.New("editing session is closed")
	ErrUnknownField  = errors.New("field is not defined for the construct")
	ErrInvalidValue  = errors.New("invalid field value")
)

// MathRenderer renders formula markup for preview, for example into HTML or SVG.
type MathRenderer interface {
	Render(markup string) (string, error)
}

// MathRendererFunc adapts a function to MathRenderer.
type MathRendererFunc func(markup string) (string, error)

func (f MathRendererFunc) Render(markup string) (string, error) {
	return f(markup)
}

type Option func(*Controller)

func WithMathRenderer(r MathRenderer) Option {
	return func(c *Controller) {
		c.math = r
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// Controller keeps at most one editing session per document.
type Controller struct {
	doc     *document.Document
	math    MathRenderer
	log     *zap.Logger
	session *Session
}

func NewController(doc *document.Document, opts ...Option) *Controller {
	c := &Controller{doc: doc, log: zap.NewNop()}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Open starts editing session of a node. Attributes of a node which is not recognized start from the construct
// defaults, but the node is left untouched unless some field is changed.
func (c *Controller) Open(n *document.Node) (*Session, error) {
	if c.session != nil {
		return nil, ErrSessionActive
	}

	if n == nil || !n.Attached() {
		return nil, document.ErrNodeDetached
	}

	if _, ok := latex.Lookup(n.Kind()); !ok {
		return nil, fmt.Errorf("construct %v can not be edited", n.Kind())
	}

	attrs, recognized := latex.ParseOrDefault(n.Kind(), n.Fragment())

	s := &Session{
		controller: c,
		node:       n,
		kind:       n.Kind(),
		attrs:      attrs,
		recognized: recognized,
		state:      Open,
	}

	s.refresh()

	c.session = s

	c.log.Debug("Editing session opened",
		zap.Stringer("node", n.ID()), zap.Stringer("kind", n.Kind()), zap.Bool("recognized", recognized))

	return s, nil
}

// Active returns current session.
func (c *Controller) Active() (*Session, bool) {
	return c.session, c.session != nil
}

func (c *Controller) release(s *Session) {
	if c.session == s {
		c.session = nil
	}
}

// preview renders formula markup, any failure of the renderer (error or panic) results in the markup itself
func (c *Controller) preview(markup string) (out string) {
	if c.math == nil {
		return markup
	}

	defer func() {
		if r := recover(); r != nil {
			c.log.Debug("Math renderer panicked, showing markup", zap.Any("panic", r), zap.String("markup", markup))
			out = markup
		}
	}()

	html, err := c.math.Render(markup)
	if err != nil {
		c.log.Debug("Unable to render math, showing markup", zap.String("markup", markup), zap.Error(err))
		return markup
	}

	return html
}
