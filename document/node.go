package document

import (
	"github.com/google/uuid"

	latex "github.com/eolymp/go-latex-editor"
)

// Node is an editable construct embedded into the document. The fragment is the only state a node keeps: attributes
// are parsed from it on demand and never cached.
type Node struct {
	id       uuid.UUID
	kind     latex.ConstructKind
	fragment string

	// location of the original fragment in the source, start equals end for inserted nodes
	start, end int
	inserted   bool

	view View
	doc  *Document
}

func (n *Node) ID() uuid.UUID {
	return n.id
}

func (n *Node) Kind() latex.ConstructKind {
	return n.kind
}

// Fragment returns current markup of the node.
func (n *Node) Fragment() string {
	return n.fragment
}

// Attributes parses current fragment, false means the fragment does not follow the construct template.
func (n *Node) Attributes() (latex.Attributes, bool) {
	return latex.Parse(n.kind, n.fragment)
}

// Recognized reports whether the fragment follows the construct template.
func (n *Node) Recognized() bool {
	_, ok := n.Attributes()
	return ok
}

// Label returns human-readable description of the node.
func (n *Node) Label() string {
	attrs, ok := n.Attributes()
	if !ok {
		return "Unrecognized " + n.kind.String()
	}

	return latex.Describe(n.kind, attrs)
}

// Attached reports whether the node still belongs to a document.
func (n *Node) Attached() bool {
	return n.doc != nil
}

// Offset returns position of the node in the original source.
func (n *Node) Offset() int {
	return n.start
}

// Inserted reports whether the node was added after the document was loaded.
func (n *Node) Inserted() bool {
	return n.inserted
}
