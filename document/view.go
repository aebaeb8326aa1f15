package document

import (
	latex "github.com/eolymp/go-latex-editor"
)

// View is a visual representation of a node provided by the host. It is rendered when the node is created and every
// time its fragment changes, and destroyed when the node is removed or the document is closed.
type View interface {
	Render(node *Node) error
	Destroy() error
}

// ViewFactory creates a view for a node.
type ViewFactory func(node *Node) (View, error)

type Option func(*Document)

// WithView registers view factory for a construct kind.
func WithView(kind latex.ConstructKind, factory ViewFactory) Option {
	return func(d *Document) {
		d.factories[kind] = factory
	}
}

// WithDefaultView registers view factory used for kinds without their own factory.
func WithDefaultView(factory ViewFactory) Option {
	return func(d *Document) {
		d.fallback = factory
	}
}
