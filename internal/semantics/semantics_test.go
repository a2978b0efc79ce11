package semantics

import (
	"context"
	"strings"
	"testing"

	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/ast"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/cdisc"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/conformance"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/standards"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/types"
)

func newAnalyzer(t *testing.T, opts Options) *Analyzer {
	t.Helper()
	registry, err := standards.LoadDefault()
	if err != nil {
		t.Fatalf("loading registry: %v", err)
	}
	validator, err := cdisc.New(registry)
	if err != nil {
		t.Fatalf("building validator: %v", err)
	}
	return NewAnalyzer(validator, opts)
}

func vsCube() *ast.Cube {
	return &ast.Cube{
		Ident: "vitals",
		Dimensions: []*ast.Component{
			{Ident: "USUBJID", Role: ast.RoleDimension, Type: types.Identifier{}},
			{Ident: "VISIT", Role: ast.RoleDimension, Type: types.Text{}},
		},
		Measures: []*ast.Component{
			{Ident: "SYSBP", Role: ast.RoleMeasure, Type: types.Numeric{Unit: "mmHg"}},
			{Ident: "WEIGHT", Role: ast.RoleMeasure, Type: types.Numeric{Unit: "kg"}},
		},
		Attributes: []*ast.Component{
			{Ident: "BASEFL", Role: ast.RoleAttribute, Type: types.Flag{}},
		},
	}
}

func errorMessages(diags []Diagnostic) []string {
	var out []string
	for _, d := range diags {
		if d.Level == LevelError {
			out = append(out, d.Message)
		}
	}
	return out
}

func TestCleanProgram(t *testing.T) {
	program := &ast.Program{Elements: []ast.Element{
		vsCube(),
		&ast.Slice{
			Ident:  "baseline",
			Source: ast.Ref{RefText: "vitals"},
			Filter: &ast.VarRef{Ident: "BASEFL"},
		},
		&ast.Model{
			Ident:   "ancova",
			Input:   ast.Ref{RefText: "baseline"},
			Formula: &ast.BinaryExpr{Op: "+", Left: &ast.VarRef{Ident: "SYSBP"}, Right: &ast.VarRef{Ident: "SYSBP"}},
			Family:  "gaussian",
		},
		&ast.Display{Ident: "t14", Source: ast.Ref{RefText: "ancova"}, Kind: "table"},
	}}

	a := newAnalyzer(t, Options{})
	a.ValidateProgram(context.Background(), program)
	if msgs := errorMessages(a.Diagnostics); len(msgs) != 0 {
		t.Fatalf("clean program produced errors: %v", msgs)
	}
}

func TestCycleGatesTyping(t *testing.T) {
	// s1 -> s2 -> s1 is a cycle; the unit mismatch inside s1's filter
	// must not surface because typing is gated.
	program := &ast.Program{Elements: []ast.Element{
		&ast.Slice{
			Ident:  "s1",
			Source: ast.Ref{RefText: "s2"},
			Filter: &ast.BinaryExpr{
				Op:   "+",
				Left: &ast.StringLit{Value: "not a number"}, Right: &ast.IntLit{Value: 1},
			},
		},
		&ast.Slice{Ident: "s2", Source: ast.Ref{RefText: "s1"}},
	}}

	a := newAnalyzer(t, Options{})
	a.ValidateProgram(context.Background(), program)

	msgs := errorMessages(a.Diagnostics)
	if len(msgs) != 1 {
		t.Fatalf("got %d errors, want only the cycle: %v", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0], "dependency cycle") ||
		!strings.Contains(msgs[0], "s1 -> s2 -> s1") {
		t.Errorf("cycle message = %q", msgs[0])
	}
}

func TestValidateNoCycles(t *testing.T) {
	acyclic := &ast.Program{Elements: []ast.Element{
		vsCube(),
		&ast.Slice{Ident: "baseline", Source: ast.Ref{RefText: "vitals"}},
	}}
	if diags := ValidateNoCycles(acyclic); diags != nil {
		t.Fatalf("acyclic program reported cycles: %v", diags)
	}

	selfRef := &ast.Program{Elements: []ast.Element{
		&ast.Derive{Ident: "d", Source: ast.Ref{RefText: "d"}},
	}}
	diags := ValidateNoCycles(selfRef)
	if len(diags) != 1 || diags[0].Level != LevelError {
		t.Fatalf("self-reference diags = %v", diags)
	}
	if !strings.Contains(diags[0].Message, "d -> d") {
		t.Errorf("message = %q", diags[0].Message)
	}
}

func TestDuplicateDefinition(t *testing.T) {
	program := &ast.Program{Elements: []ast.Element{
		vsCube(),
		&ast.Slice{Ident: "vitals", Source: ast.Ref{RefText: "vitals"}},
	}}
	a := newAnalyzer(t, Options{})
	a.ValidateProgram(context.Background(), program)

	found := false
	for _, msg := range errorMessages(a.Diagnostics) {
		if strings.Contains(msg, "duplicate definition of 'vitals'") {
			found = true
		}
	}
	if !found {
		t.Errorf("duplicate not reported: %v", a.Diagnostics)
	}
}

func TestUnknownReference(t *testing.T) {
	program := &ast.Program{Elements: []ast.Element{
		&ast.Model{Ident: "m", Input: ast.Ref{RefText: "phantom"}},
	}}
	a := newAnalyzer(t, Options{})
	a.ValidateProgram(context.Background(), program)

	msgs := errorMessages(a.Diagnostics)
	if len(msgs) != 1 || !strings.Contains(msgs[0], "unknown reference 'phantom'") {
		t.Fatalf("msgs = %v", msgs)
	}
}

func TestUnitMismatchInFormula(t *testing.T) {
	program := &ast.Program{Elements: []ast.Element{
		vsCube(),
		&ast.Model{
			Ident: "bad",
			Input: ast.Ref{RefText: "vitals"},
			Formula: &ast.BinaryExpr{
				Op:   "+",
				Left: &ast.VarRef{Ident: "SYSBP"}, Right: &ast.VarRef{Ident: "WEIGHT"},
			},
		},
	}}
	a := newAnalyzer(t, Options{})
	a.ValidateProgram(context.Background(), program)

	msgs := errorMessages(a.Diagnostics)
	if len(msgs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0], "mmHg") || !strings.Contains(msgs[0], "kg") {
		t.Errorf("unit mismatch message = %q", msgs[0])
	}
}

func TestNonFlagSliceFilter(t *testing.T) {
	program := &ast.Program{Elements: []ast.Element{
		vsCube(),
		&ast.Slice{
			Ident:  "odd",
			Source: ast.Ref{RefText: "vitals"},
			Filter: &ast.VarRef{Ident: "SYSBP"},
		},
	}}
	a := newAnalyzer(t, Options{})
	a.ValidateProgram(context.Background(), program)

	msgs := errorMessages(a.Diagnostics)
	if len(msgs) != 1 || !strings.Contains(msgs[0], "flag expression") {
		t.Fatalf("msgs = %v", msgs)
	}
}

func TestShapeFlowsThroughDerive(t *testing.T) {
	program := &ast.Program{Elements: []ast.Element{
		vsCube(),
		&ast.Derive{
			Ident:  "enriched",
			Source: ast.Ref{RefText: "vitals"},
			Columns: []*ast.DerivedColumn{
				{Ident: "LOGBP", Value: &ast.CallExpr{Func: "log", Args: []ast.Expr{&ast.VarRef{Ident: "SYSBP"}}}},
			},
		},
		&ast.Model{
			Ident: "m",
			Input: ast.Ref{RefText: "enriched"},
			// LOGBP is unitless numeric, so adding it to itself is fine.
			Formula: &ast.BinaryExpr{Op: "+", Left: &ast.VarRef{Ident: "LOGBP"}, Right: &ast.VarRef{Ident: "LOGBP"}},
		},
	}}
	a := newAnalyzer(t, Options{})
	a.ValidateProgram(context.Background(), program)
	if msgs := errorMessages(a.Diagnostics); len(msgs) != 0 {
		t.Fatalf("derived column shape not propagated: %v", msgs)
	}
}

func TestAggregateGroupByChecked(t *testing.T) {
	program := &ast.Program{Elements: []ast.Element{
		vsCube(),
		&ast.Aggregate{
			Ident:   "means",
			Input:   ast.Ref{RefText: "vitals"},
			GroupBy: []string{"VISIT", "NOPE"},
			Value:   &ast.CallExpr{Func: "mean", Args: []ast.Expr{&ast.VarRef{Ident: "SYSBP"}}},
		},
	}}
	a := newAnalyzer(t, Options{})
	a.ValidateProgram(context.Background(), program)

	msgs := errorMessages(a.Diagnostics)
	if len(msgs) != 1 || !strings.Contains(msgs[0], "NOPE") {
		t.Fatalf("msgs = %v", msgs)
	}
}

func TestStandardBoundCubeValidation(t *testing.T) {
	cube := vsCube()
	cube.Standard = "sdtm"
	cube.Dataset = "ZZ"
	program := &ast.Program{Elements: []ast.Element{cube}}

	a := newAnalyzer(t, Options{})
	a.ValidateProgram(context.Background(), program)

	msgs := errorMessages(a.Diagnostics)
	if len(msgs) != 1 || !strings.Contains(msgs[0], "SDTM-UNKNOWN-DOMAIN") {
		t.Fatalf("msgs = %v", msgs)
	}
}

func TestDisabledRulesAndOverrides(t *testing.T) {
	cube := &ast.Cube{
		Ident:    "dm",
		Standard: "sdtm",
		Dataset:  "DM",
		Dimensions: []*ast.Component{
			{Ident: "STUDYID", Role: ast.RoleDimension, Type: types.Identifier{}},
			{Ident: "USUBJID", Role: ast.RoleDimension, Type: types.Identifier{}},
		},
		Attributes: []*ast.Component{
			{Ident: "DOMAIN", Role: ast.RoleAttribute, Type: types.Text{}},
			{Ident: "SUBJID", Role: ast.RoleAttribute, Type: types.Identifier{}},
			{Ident: "SITEID", Role: ast.RoleAttribute, Type: types.Identifier{}},
			{Ident: "SEX", Role: ast.RoleAttribute, Type: types.CodedValue{CodeList: "SEX"}},
			{Ident: "ARMCD", Role: ast.RoleAttribute, Type: types.Text{}},
			{Ident: "RFSTDTC", Role: ast.RoleAttribute, Type: types.Numeric{}},
		},
	}
	program := &ast.Program{Elements: []ast.Element{cube}}

	// TS0010 flags RFSTDTC typed numeric. Disabling it silences the
	// finding entirely.
	a := newAnalyzer(t, Options{DisabledRules: map[string]bool{"TS0010": true, "TS0012": true}})
	a.ValidateProgram(context.Background(), program)
	for _, d := range a.Diagnostics {
		if strings.Contains(d.Message, "TS0010") || strings.Contains(d.Message, "TS0012") {
			t.Errorf("disabled rule surfaced: %v", d)
		}
	}

	// Overriding TS0010 to warning demotes the finding.
	a = newAnalyzer(t, Options{
		DisabledRules:     map[string]bool{"TS0012": true},
		SeverityOverrides: map[string]conformance.Severity{"TS0010": conformance.SeverityWarning},
	})
	a.ValidateProgram(context.Background(), program)
	for _, d := range a.Diagnostics {
		if strings.Contains(d.Message, "TS0010") && d.Level != LevelWarning {
			t.Errorf("override not applied: %+v", d)
		}
	}
}
