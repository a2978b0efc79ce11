package symbols

import (
	"reflect"
	"testing"

	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/ast"
)

func TestBuildRegistersAllKinds(t *testing.T) {
	program := &ast.Program{Elements: []ast.Element{
		&ast.Concept{Ident: "sbp"},
		&ast.Cube{Ident: "vs"},
		&ast.Slice{Ident: "baseline", Source: ast.Ref{RefText: "vs"}},
		&ast.Model{Ident: "ancova", Input: ast.Ref{RefText: "baseline"}},
		&ast.Import{Path: "common.tsk"},
	}}
	table, dups := Build(program)
	if len(dups) != 0 {
		t.Fatalf("unexpected duplicates: %v", dups)
	}
	if table.Len() != 4 {
		t.Fatalf("table has %d entries, want 4 (imports carry no name)", table.Len())
	}
	if _, ok := table.Lookup("baseline"); !ok {
		t.Error("baseline not registered")
	}
	if _, ok := table.Lookup("nope"); ok {
		t.Error("lookup of unknown name succeeded")
	}
	want := []string{"sbp", "vs", "baseline", "ancova"}
	if !reflect.DeepEqual(table.Names(), want) {
		t.Errorf("names = %v, want %v", table.Names(), want)
	}
}

func TestDuplicateNames(t *testing.T) {
	first := &ast.Cube{Ident: "dm"}
	second := &ast.Slice{Ident: "dm", Source: ast.Ref{RefText: "dm"}}
	program := &ast.Program{Elements: []ast.Element{first, second}}

	table, dups := Build(program)
	if len(dups) != 1 {
		t.Fatalf("got %d duplicates, want 1", len(dups))
	}
	if dups[0].Name != "dm" || dups[0].First != first || dups[0].Redef != second {
		t.Errorf("duplicate record = %+v", dups[0])
	}
	// The first definition wins.
	if el, _ := table.Lookup("dm"); el != first {
		t.Errorf("lookup returned %v, want the first definition", el)
	}
}

func TestCubeLookup(t *testing.T) {
	cube := &ast.Cube{Ident: "dm"}
	program := &ast.Program{Elements: []ast.Element{
		cube,
		&ast.Slice{Ident: "adults", Source: ast.Ref{RefText: "dm"}},
	}}
	table, _ := Build(program)
	if got := table.Cube("dm"); got != cube {
		t.Errorf("Cube(dm) = %v", got)
	}
	if got := table.Cube("adults"); got != nil {
		t.Error("Cube(adults) should be nil for a slice")
	}
	if got := table.Cube("missing"); got != nil {
		t.Error("Cube(missing) should be nil")
	}
}

func TestOfKind(t *testing.T) {
	program := &ast.Program{Elements: []ast.Element{
		&ast.Cube{Ident: "vs"},
		&ast.Cube{Ident: "dm"},
		&ast.Slice{Ident: "baseline", Source: ast.Ref{RefText: "vs"}},
	}}
	table, _ := Build(program)
	if got := table.OfKind("cube"); !reflect.DeepEqual(got, []string{"dm", "vs"}) {
		t.Errorf("OfKind(cube) = %v", got)
	}
	if got := table.OfKind("model"); len(got) != 0 {
		t.Errorf("OfKind(model) = %v, want empty", got)
	}
}
