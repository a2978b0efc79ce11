package ast

import (
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/types"
)

// The parser hands the semantic core a fully formed Program; nothing
// in this package re-parses text.

type Node interface {
	Pos() Position
}

type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Program is an ordered list of top-level elements as written.
type Program struct {
	Elements []Element
	File     string
}

// Element is the closed set of top-level constructs. Every kind except
// Concept, Cube and Import carries exactly one input reference.
type Element interface {
	Node
	Name() string
	isElement()
}

// Concept is a named biomedical concept (e.g. "systolic blood
// pressure") with an optional measurement unit and terminology code.
type Concept struct {
	Position Position
	Ident    string
	Code     string
	Unit     string
}

func (c *Concept) Pos() Position { return c.Position }
func (c *Concept) Name() string  { return c.Ident }
func (c *Concept) isElement()    {}

// ComponentRole partitions a cube's components.
type ComponentRole int

const (
	RoleDimension ComponentRole = iota
	RoleMeasure
	RoleAttribute
)

func (r ComponentRole) String() string {
	switch r {
	case RoleDimension:
		return "dimension"
	case RoleMeasure:
		return "measure"
	case RoleAttribute:
		return "attribute"
	}
	return "component"
}

type Component struct {
	Position Position
	Ident    string
	Role     ComponentRole
	Type     types.Type
}

// Cube is a multidimensional dataset definition. Standard and Dataset
// optionally bind it to a CDISC domain ("sdtm"/"DM") or analysis
// dataset ("adam"/"ADSL") for conformance validation.
type Cube struct {
	Position   Position
	Ident      string
	Standard   string
	Dataset    string
	Dimensions []*Component
	Measures   []*Component
	Attributes []*Component
}

func (c *Cube) Pos() Position { return c.Position }
func (c *Cube) Name() string  { return c.Ident }
func (c *Cube) isElement()    {}

// Components returns dimensions, measures and attributes in role
// order. The slice is rebuilt per call; callers may not mutate shared
// state through it.
func (c *Cube) Components() []*Component {
	all := make([]*Component, 0, len(c.Dimensions)+len(c.Measures)+len(c.Attributes))
	all = append(all, c.Dimensions...)
	all = append(all, c.Measures...)
	all = append(all, c.Attributes...)
	return all
}

// Component returns the named component regardless of role, or nil.
func (c *Cube) Component(name string) *Component {
	for _, comp := range c.Components() {
		if comp.Ident == name {
			return comp
		}
	}
	return nil
}

// Ref is a by-name reference to another top-level element. RefText is
// the raw name as written and is usable before resolution.
type Ref struct {
	Position Position
	RefText  string
}

func (r *Ref) Pos() Position { return r.Position }

// Slice is a filtered view over a cube.
type Slice struct {
	Position Position
	Ident    string
	Source   Ref
	Filter   Expr
}

func (s *Slice) Pos() Position { return s.Position }
func (s *Slice) Name() string  { return s.Ident }
func (s *Slice) isElement()    {}

// Model is a statistical model over a slice or cube.
type Model struct {
	Position Position
	Ident    string
	Input    Ref
	Formula  Expr
	Family   string
	Link     string
}

func (m *Model) Pos() Position { return m.Position }
func (m *Model) Name() string  { return m.Ident }
func (m *Model) isElement()    {}

// Aggregate is a group-by summarization over a cube or slice.
type Aggregate struct {
	Position Position
	Ident    string
	Input    Ref
	GroupBy  []string
	Value    Expr
}

func (a *Aggregate) Pos() Position { return a.Position }
func (a *Aggregate) Name() string  { return a.Ident }
func (a *Aggregate) isElement()    {}

// Derive produces a new cube from an existing cube or slice.
type Derive struct {
	Position Position
	Ident    string
	Source   Ref
	Columns  []*DerivedColumn
}

func (d *Derive) Pos() Position { return d.Position }
func (d *Derive) Name() string  { return d.Ident }
func (d *Derive) isElement()    {}

type DerivedColumn struct {
	Position Position
	Ident    string
	Value    Expr
}

// Display is a presentation artifact (table or figure) sourced from a
// cube or slice.
type Display struct {
	Position Position
	Ident    string
	Source   Ref
	Kind     string
	Title    string
}

func (d *Display) Pos() Position { return d.Position }
func (d *Display) Name() string  { return d.Ident }
func (d *Display) isElement()    {}

// Import carries no semantic dependency and is skipped by the
// dependency graph builder.
type Import struct {
	Position Position
	Path     string
}

func (i *Import) Pos() Position { return i.Position }
func (i *Import) Name() string  { return "" }
func (i *Import) isElement()    {}

// InputRef returns the element's single input reference, or nil for
// kinds that have none.
func InputRef(el Element) *Ref {
	switch e := el.(type) {
	case *Slice:
		return &e.Source
	case *Model:
		return &e.Input
	case *Aggregate:
		return &e.Input
	case *Derive:
		return &e.Source
	case *Display:
		return &e.Source
	}
	return nil
}

// Kind names the element's construct for diagnostics.
func Kind(el Element) string {
	switch el.(type) {
	case *Concept:
		return "concept"
	case *Cube:
		return "cube"
	case *Slice:
		return "slice"
	case *Model:
		return "model"
	case *Aggregate:
		return "aggregate"
	case *Derive:
		return "derive"
	case *Display:
		return "display"
	case *Import:
		return "import"
	}
	return "element"
}
