package modal

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	latex "github.com/eolymp/go-latex-editor"
	"github.com/eolymp/go-latex-editor/document"
)

// State of an editing session.
type State int

const (
	Closed State = iota
	Open
	Editing
	Saved
	Deleted
	Cancelled
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case Editing:
		return "editing"
	case Saved:
		return "saved"
	case Deleted:
		return "deleted"
	case Cancelled:
		return "cancelled"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Key is a key press delivered to a field.
type Key int

const (
	KeyEscape Key = iota
	KeyEnter
)

// FieldValue is an editable field together with its current value.
type FieldValue struct {
	latex.Field
	Value string

	// Enabled is false when the toggle the field depends on is off
	Enabled bool
}

// Session edits a working copy of node attributes.
type Session struct {
	controller *Controller
	node       *document.Node
	kind       latex.ConstructKind
	attrs      latex.Attributes
	recognized bool
	edited     bool
	state      State
	preview    string
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Node() *document.Node {
	return s.node
}

// Recognized reports whether the node fragment followed the construct template when the session was opened.
func (s *Session) Recognized() bool {
	return s.recognized
}

func (s *Session) active() bool {
	return s.state == Open || s.state == Editing
}

// Fields describes editable fields of the construct with their current values.
func (s *Session) Fields() []FieldValue {
	fields := latex.Fields(s.kind)
	values := make([]FieldValue, 0, len(fields))

	for _, f := range fields {
		values = append(values, FieldValue{
			Field:   f,
			Value:   s.attrs[f.Name],
			Enabled: f.Requires == "" || s.attrs.Bool(f.Requires),
		})
	}

	return values
}

// Value returns current value of a field.
func (s *Session) Value(name string) (string, error) {
	if _, ok := latex.FieldOf(s.kind, name); !ok {
		return "", fmt.Errorf("%v field %q: %w", s.kind, name, ErrUnknownField)
	}

	return s.attrs[name], nil
}

// Set changes a field of the working copy. Fractions are clamped to (0, 1], text must keep braces balanced and
// satisfy field pattern. Setting a field which depends on a toggle turns the toggle on.
func (s *Session) Set(name, value string) error {
	if !s.active() {
		return ErrSessionClosed
	}

	field, ok := latex.FieldOf(s.kind, name)
	if !ok {
		return fmt.Errorf("%v field %q: %w", s.kind, name, ErrUnknownField)
	}

	v, err := sanitize(field, value)
	if err != nil {
		return fmt.Errorf("%v field %q: %w", s.kind, name, err)
	}

	s.attrs[name] = v

	if field.Requires != "" && v != "" {
		s.attrs[field.Requires] = "true"
	}

	s.edited = true
	s.state = Editing
	s.refresh()

	return nil
}

func sanitize(field latex.Field, value string) (string, error) {
	switch field.Type {
	case latex.Fraction:
		v, err := latex.ParseFraction(value)
		if err != nil {
			return "", fmt.Errorf("%w: %q is not a fraction", ErrInvalidValue, value)
		}

		return latex.FormatFraction(latex.ClampFraction(v)), nil
	case latex.Choice:
		value = strings.TrimSpace(value)
		if !slices.Contains(field.Choices, value) {
			return "", fmt.Errorf("%w: %q is not one of %s", ErrInvalidValue, value, strings.Join(field.Choices, ", "))
		}

		return value, nil
	case latex.Toggle:
		v, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return "", fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, value)
		}

		return strconv.FormatBool(v), nil
	case latex.SingleLine:
		value = strings.TrimSpace(value)
	}

	if !latex.Balanced(value) {
		return "", fmt.Errorf("%w: braces are not balanced or %% is not escaped", ErrInvalidValue)
	}

	if field.Pattern != nil && value != "" && !field.Pattern.MatchString(value) {
		return "", fmt.Errorf("%w: %q does not match %s", ErrInvalidValue, value, field.Pattern)
	}

	return value, nil
}

// Markup builds the fragment from the working copy. It depends on field values only, so saving twice writes the
// same fragment.
func (s *Session) Markup() string {
	return latex.Build(s.kind, latex.Normalize(s.kind, s.attrs))
}

// Preview returns rendered formula for math constructs and markup for the others.
func (s *Session) Preview() string {
	return s.preview
}

func (s *Session) refresh() {
	markup := s.Markup()

	switch s.kind {
	case latex.IntegralKind, latex.DoubleIntegralKind, latex.SumKind:
		s.preview = s.controller.preview(markup)
	default:
		s.preview = markup
	}
}

// Key handles a key pressed in a field: escape cancels the session, enter saves it from a single-line field and
// starts a new line in a multi-line one.
func (s *Session) Key(name string, key Key) error {
	switch key {
	case KeyEscape:
		return s.Cancel()
	case KeyEnter:
		field, ok := latex.FieldOf(s.kind, name)
		if !ok {
			return fmt.Errorf("%v field %q: %w", s.kind, name, ErrUnknownField)
		}

		if field.Type == latex.MultiLine {
			return s.Set(name, s.attrs[name]+"\n")
		}

		return s.Save()
	default:
		return fmt.Errorf("key %d is not supported", key)
	}
}

// Save commits the working copy into the node and closes the session. Saving a session which was already saved
// does nothing: the node may have been edited by a later session since then.
func (s *Session) Save() error {
	if s.state == Saved {
		return nil
	}

	if !s.active() {
		return ErrSessionClosed
	}

	// nothing was changed in an unrecognized node, keep it as it was written
	if !s.recognized && !s.edited {
		s.close(Saved)
		return nil
	}

	markup := s.Markup()

	if err := s.controller.doc.Commit(s.node, markup); err != nil {
		return fmt.Errorf("unable to save %v node: %w", s.kind, err)
	}

	s.close(Saved)

	return nil
}

// Delete removes the node from the document and closes the session.
func (s *Session) Delete() error {
	if !s.active() {
		return ErrSessionClosed
	}

	if err := s.controller.doc.Remove(s.node); err != nil {
		return fmt.Errorf("unable to delete %v node: %w", s.kind, err)
	}

	s.close(Deleted)

	return nil
}

// Cancel drops the working copy, node is left as it was.
func (s *Session) Cancel() error {
	if !s.active() {
		return ErrSessionClosed
	}

	s.close(Cancelled)

	return nil
}

func (s *Session) close(state State) {
	s.state = state
	s.controller.release(s)

	s.controller.log.Debug("Editing session closed",
		zap.Stringer("node", s.node.ID()), zap.Stringer("kind", s.kind), zap.Stringer("state", state))
}
