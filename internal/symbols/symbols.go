// Package symbols holds the registry of named top-level constructs.
// It is the source of truth for name resolution across a program.
package symbols

import (
	"sort"

	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/ast"
)

// Duplicate records a redefinition of an already registered name. The
// first definition wins; each later one produces one Duplicate.
type Duplicate struct {
	Name     string
	First    ast.Element
	Redef    ast.Element
	Position ast.Position
}

type Table struct {
	byName map[string]ast.Element
	order  []string
}

// Build registers every named element of the program. Imports carry no
// name and are skipped. Duplicate names are returned so the caller can
// report them once; the table keeps the first definition.
func Build(program *ast.Program) (*Table, []Duplicate) {
	t := &Table{byName: make(map[string]ast.Element)}
	var dups []Duplicate
	for _, el := range program.Elements {
		name := el.Name()
		if name == "" {
			continue
		}
		if first, ok := t.byName[name]; ok {
			dups = append(dups, Duplicate{
				Name:     name,
				First:    first,
				Redef:    el,
				Position: el.Pos(),
			})
			continue
		}
		t.byName[name] = el
		t.order = append(t.order, name)
	}
	return t, dups
}

// Lookup resolves a name; the second result is false if unknown.
func (t *Table) Lookup(name string) (ast.Element, bool) {
	el, ok := t.byName[name]
	return el, ok
}

// Cube resolves a name to a cube definition, or nil if the name is
// unknown or names a different kind.
func (t *Table) Cube(name string) *ast.Cube {
	if el, ok := t.byName[name]; ok {
		if c, ok := el.(*ast.Cube); ok {
			return c
		}
	}
	return nil
}

// Names returns all registered names in definition order.
func (t *Table) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// OfKind returns the names of all elements of the given kind, sorted.
func (t *Table) OfKind(kind string) []string {
	var out []string
	for name, el := range t.byName {
		if ast.Kind(el) == kind {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (t *Table) Len() int { return len(t.byName) }
