// Package document embeds editable construct nodes into LaTeX source. Text between nodes is never touched: the
// serialized document is the original source with committed fragments spliced in.
package document

import (
	"errors"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"rsc.io/edit"

	latex "github.com/eolymp/go-latex-editor"
)

var (
	ErrNodeDetached = errors.New("node does not belong to the document")
	ErrClosed       = errors.New("document is closed")
)

type removal struct {
	start, end int
}

// Document is an ordered list of construct nodes over the original source. It is not safe for concurrent use.
type Document struct {
	source  string
	nodes   []*Node
	removed []removal
	closed  bool

	factories map[latex.ConstructKind]ViewFactory
	fallback  ViewFactory
	log       *zap.Logger
}

// WithLogger sets logger, by default nothing is logged.
func WithLogger(log *zap.Logger) Option {
	return func(d *Document) {
		if log != nil {
			d.log = log
		}
	}
}

// Load finds constructs in the source and creates a node with a view for each of them.
func Load(source string, opts ...Option) (*Document, error) {
	d := &Document{
		source:    source,
		factories: map[latex.ConstructKind]ViewFactory{},
		log:       zap.NewNop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	for _, span := range latex.Locate(source) {
		n := &Node{
			id:       uuid.New(),
			kind:     span.Kind,
			fragment: span.Fragment(source),
			start:    span.Start,
			end:      span.End,
			doc:      d,
		}

		if !n.Recognized() {
			d.log.Debug("Construct is not recognized, keeping it verbatim",
				zap.Stringer("kind", n.kind), zap.String("fragment", n.fragment), zap.Int("offset", n.start))
		}

		d.nodes = append(d.nodes, n)

		if err := d.attach(n); err != nil {
			return nil, multierr.Append(err, d.Close())
		}
	}

	d.log.Debug("Document loaded", zap.Int("nodes", len(d.nodes)), zap.Int("size", len(source)))

	return d, nil
}

// attach creates and renders node view
func (d *Document) attach(n *Node) error {
	factory, ok := d.factories[n.kind]
	if !ok {
		factory = d.fallback
	}

	if factory == nil {
		return nil
	}

	view, err := factory(n)
	if err != nil {
		return fmt.Errorf("unable to create view for %v node: %w", n.kind, err)
	}

	if err := view.Render(n); err != nil {
		return multierr.Append(
			fmt.Errorf("unable to render %v node: %w", n.kind, err),
			view.Destroy(),
		)
	}

	n.view = view

	return nil
}

// Nodes returns nodes in document order.
func (d *Document) Nodes() []*Node {
	return slices.Clone(d.nodes)
}

// Node finds node by ID.
func (d *Document) Node(id uuid.UUID) (*Node, bool) {
	for _, n := range d.nodes {
		if n.id == id {
			return n, true
		}
	}

	return nil, false
}

// Source returns the source document was loaded from.
func (d *Document) Source() string {
	return d.source
}

// Commit replaces node fragment and re-renders its view. The fragment is swapped before the view is rendered, so the
// view never sees a partially updated node.
func (d *Document) Commit(n *Node, fragment string) error {
	if err := d.check(n); err != nil {
		return err
	}

	if n.fragment == fragment {
		return nil
	}

	n.fragment = fragment

	d.log.Debug("Node committed", zap.Stringer("id", n.id), zap.Stringer("kind", n.kind), zap.String("fragment", fragment))

	if n.view == nil {
		return nil
	}

	if err := n.view.Render(n); err != nil {
		return fmt.Errorf("unable to render %v node: %w", n.kind, err)
	}

	return nil
}

// Remove deletes node together with its markup and releases its view.
func (d *Document) Remove(n *Node) error {
	if err := d.check(n); err != nil {
		return err
	}

	d.nodes = slices.DeleteFunc(d.nodes, func(c *Node) bool { return c == n })

	if !n.inserted {
		d.removed = append(d.removed, removal{start: n.start, end: n.end})
	}

	n.doc = nil

	d.log.Debug("Node removed", zap.Stringer("id", n.id), zap.Stringer("kind", n.kind))

	if n.view == nil {
		return nil
	}

	view := n.view
	n.view = nil

	if err := view.Destroy(); err != nil {
		return fmt.Errorf("unable to destroy view of %v node: %w", n.kind, err)
	}

	return nil
}

// Insert adds a new construct with its default fragment right after the given node, or to the end of the document
// when after is nil.
func (d *Document) Insert(kind latex.ConstructKind, after *Node) (*Node, error) {
	if _, ok := latex.Lookup(kind); !ok {
		return nil, fmt.Errorf("construct %v is not supported", kind)
	}

	if d.closed {
		return nil, ErrClosed
	}

	n := &Node{
		id:       uuid.New(),
		kind:     kind,
		fragment: latex.Default(kind),
		inserted: true,
		doc:      d,
	}

	index := len(d.nodes)
	n.start = len(d.source)

	if after != nil {
		if err := d.check(after); err != nil {
			return nil, err
		}

		index = slices.Index(d.nodes, after) + 1
		n.start = after.end
	}

	n.end = n.start

	if err := d.attach(n); err != nil {
		return nil, err
	}

	d.nodes = slices.Insert(d.nodes, index, n)

	d.log.Debug("Node inserted", zap.Stringer("id", n.id), zap.Stringer("kind", kind), zap.Int("offset", n.start))

	return n, nil
}

func (d *Document) check(n *Node) error {
	if d.closed {
		return ErrClosed
	}

	if n == nil || n.doc != d {
		return ErrNodeDetached
	}

	return nil
}

// Markup serializes the document: the original source with node fragments spliced in. Text outside of nodes and
// fragments of unchanged nodes are kept byte for byte.
func (d *Document) Markup() string {
	buf := edit.NewBuffer([]byte(d.source))

	for _, r := range d.removed {
		buf.Delete(r.start, r.end)
	}

	for i, n := range d.nodes {
		text := n.fragment + latex.Separator(n.fragment, d.follower(i))

		switch {
		case n.inserted:
			buf.Insert(n.start, "\n"+text)
		case text != d.source[n.start:n.end]:
			buf.Replace(n.start, n.end, text)
		}
	}

	return string(buf.Bytes())
}

// follower returns the first rune written after i-th node
func (d *Document) follower(i int) rune {
	pos := d.nodes[i].end

	// next node starts right there, any fragment starts with \ or $
	if i+1 < len(d.nodes) && d.nodes[i+1].start == pos {
		return '\\'
	}

	// removed markup is not written
	for {
		idx := slices.IndexFunc(d.removed, func(r removal) bool { return r.start == pos && r.end > pos })
		if idx < 0 {
			break
		}

		pos = d.removed[idx].end

		if i+1 < len(d.nodes) && d.nodes[i+1].start == pos {
			return '\\'
		}
	}

	r, _ := utf8.DecodeRuneInString(d.source[pos:])
	if r == utf8.RuneError {
		return 0
	}

	return r
}

// Close destroys views of all nodes and detaches them.
func (d *Document) Close() error {
	if d.closed {
		return nil
	}

	d.closed = true

	var err error
	for _, n := range d.nodes {
		n.doc = nil

		if n.view == nil {
			continue
		}

		if derr := n.view.Destroy(); derr != nil {
			err = multierr.Append(err, fmt.Errorf("unable to destroy view of %v node %v: %w", n.kind, n.id, derr))
		}

		n.view = nil
	}

	return err
}
