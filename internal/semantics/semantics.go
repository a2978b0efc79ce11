// Package semantics runs the full semantic pass over a Thunderstruck
// program: symbol registration, dependency-cycle gating, expression
// typing and per-cube CDISC validation. Each call is a pure function
// of the program snapshot; shared registry and rule state is read-only.
package semantics

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/ast"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/cdisc"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/conformance"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/depgraph"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/symbols"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/types"
)

type DiagnosticLevel int

const (
	LevelError DiagnosticLevel = iota
	LevelWarning
)

type Diagnostic struct {
	Level    DiagnosticLevel
	Message  string
	Position ast.Position
	Element  string
	Variable string
}

// Options tunes a pass without touching engine or registry state.
type Options struct {
	// DisabledRules are CORE rule IDs whose violations are dropped.
	DisabledRules map[string]bool
	// SeverityOverrides remaps a CORE rule's configured severity.
	SeverityOverrides map[string]conformance.Severity
}

type Analyzer struct {
	Diagnostics []Diagnostic

	validator *cdisc.Validator
	inference types.Inference
	opts      Options

	table *symbols.Table
	graph depgraph.Graph
	mu    sync.Mutex
}

func NewAnalyzer(validator *cdisc.Validator, opts Options) *Analyzer {
	return &Analyzer{validator: validator, opts: opts}
}

// ValidateProgram runs every phase over one immutable program
// snapshot. Cycle detection gates the input-dependent phases: a cyclic
// program's shapes cannot be resolved, so expression typing is skipped
// for elements that carry an input reference. Cube validation is
// independent of inputs and still runs.
func (a *Analyzer) ValidateProgram(ctx context.Context, program *ast.Program) {
	if program == nil {
		panic("semantics: nil program")
	}

	var dups []symbols.Duplicate
	a.table, dups = symbols.Build(program)
	for _, d := range dups {
		a.report(LevelError, d.Position, d.Name, "",
			"duplicate definition of '%s'", d.Name)
	}

	a.graph = depgraph.Build(program)
	cycles := depgraph.DetectCycles(a.graph)
	for _, cyc := range cycles {
		a.report(LevelError, ast.Position{}, cyc.Names[0], "",
			"dependency cycle: %s", cyc)
	}

	if len(cycles) == 0 {
		for _, el := range program.Elements {
			if ctx.Err() != nil {
				return
			}
			a.checkElement(el)
		}
	}

	a.validateCubes(ctx, program)
}

// ValidateNoCycles builds the dependency graph for the program and
// returns one error diagnostic per detected cycle, nil for a DAG.
func ValidateNoCycles(program *ast.Program) []Diagnostic {
	cycles := depgraph.DetectCycles(depgraph.Build(program))
	if len(cycles) == 0 {
		return nil
	}
	diags := make([]Diagnostic, 0, len(cycles))
	for _, cyc := range cycles {
		diags = append(diags, Diagnostic{
			Level:   LevelError,
			Message: fmt.Sprintf("dependency cycle: %s", cyc),
			Element: cyc.Names[0],
		})
	}
	return diags
}

// Graph exposes the dependency graph of the last ValidateProgram call
// for tooling queries.
func (a *Analyzer) Graph() depgraph.Graph { return a.graph }

// Table exposes the symbol table of the last ValidateProgram call.
func (a *Analyzer) Table() *symbols.Table { return a.table }

func (a *Analyzer) report(level DiagnosticLevel, pos ast.Position, element, variable, format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Diagnostics = append(a.Diagnostics, Diagnostic{
		Level:    level,
		Message:  fmt.Sprintf(format, args...),
		Position: pos,
		Element:  element,
		Variable: variable,
	})
}

// checkElement types the expressions of one input-carrying element
// against its input's resolved shape.
func (a *Analyzer) checkElement(el ast.Element) {
	switch e := el.(type) {
	case *ast.Slice:
		shape := a.inputShape(el, &e.Source)
		if shape == nil {
			return
		}
		if e.Filter != nil {
			t := a.typeExpr(e.Filter, shape, e.Ident)
			if _, ok := t.(types.Flag); !ok && !types.IsError(t) {
				if _, unknown := t.(types.Unknown); !unknown {
					a.report(LevelError, e.Filter.Pos(), e.Ident, "",
						"slice filter must be a flag expression, got %s", t)
				}
			}
		}
	case *ast.Model:
		shape := a.inputShape(el, &e.Input)
		if shape == nil {
			return
		}
		if e.Formula != nil {
			a.typeExpr(e.Formula, shape, e.Ident)
		}
	case *ast.Aggregate:
		shape := a.inputShape(el, &e.Input)
		if shape == nil {
			return
		}
		for _, g := range e.GroupBy {
			if _, ok := shape[g]; !ok {
				a.report(LevelError, e.Position, e.Ident, g,
					"group-by variable '%s' is not part of '%s'", g, e.Input.RefText)
			}
		}
		if e.Value != nil {
			a.typeExpr(e.Value, shape, e.Ident)
		}
	case *ast.Derive:
		shape := a.inputShape(el, &e.Source)
		if shape == nil {
			return
		}
		for _, col := range e.Columns {
			a.typeExpr(col.Value, shape, e.Ident)
		}
	case *ast.Display:
		// Presentation only: any defined element can be displayed, so
		// just resolve the reference.
		if _, ok := a.table.Lookup(e.Source.RefText); !ok {
			a.report(LevelError, e.Source.Position, e.Ident, "",
				"unknown reference '%s'", e.Source.RefText)
		}
	}
}

// inputShape resolves an element's input reference to its component
// shape. Unresolved references report once and return nil.
func (a *Analyzer) inputShape(el ast.Element, ref *ast.Ref) map[string]types.Type {
	target, ok := a.table.Lookup(ref.RefText)
	if !ok {
		a.report(LevelError, ref.Position, el.Name(), "",
			"unknown reference '%s'", ref.RefText)
		return nil
	}
	shape := a.shapeOf(target)
	if shape == nil {
		a.report(LevelError, ref.Position, el.Name(), "",
			"'%s' (%s) cannot be used as an input here", ref.RefText, ast.Kind(target))
	}
	return shape
}

// shapeOf computes the resolved component shape of an element. Safe
// only after the cycle gate: recursion depth is bounded by the DAG.
func (a *Analyzer) shapeOf(el ast.Element) map[string]types.Type {
	switch e := el.(type) {
	case *ast.Cube:
		shape := make(map[string]types.Type)
		for _, comp := range e.Components() {
			shape[comp.Ident] = comp.Type
		}
		return shape
	case *ast.Slice:
		if target, ok := a.table.Lookup(e.Source.RefText); ok {
			return a.shapeOf(target)
		}
		return nil
	case *ast.Derive:
		target, ok := a.table.Lookup(e.Source.RefText)
		if !ok {
			return nil
		}
		base := a.shapeOf(target)
		if base == nil {
			return nil
		}
		shape := make(map[string]types.Type, len(base)+len(e.Columns))
		for name, t := range base {
			shape[name] = t
		}
		for _, col := range e.Columns {
			shape[col.Ident] = a.inferType(col.Value, base)
		}
		return shape
	case *ast.Aggregate:
		target, ok := a.table.Lookup(e.Input.RefText)
		if !ok {
			return nil
		}
		base := a.shapeOf(target)
		if base == nil {
			return nil
		}
		shape := make(map[string]types.Type, len(e.GroupBy)+1)
		for _, g := range e.GroupBy {
			if t, ok := base[g]; ok {
				shape[g] = t
			}
		}
		if e.Value != nil {
			shape[e.Ident] = a.inferType(e.Value, base)
		}
		return shape
	}
	return nil
}

// typeExpr infers and reports: an Error result becomes one diagnostic
// carrying the inference reason.
func (a *Analyzer) typeExpr(expr ast.Expr, shape map[string]types.Type, element string) types.Type {
	t := a.inferType(expr, shape)
	if err, ok := t.(types.Error); ok {
		msg := err.Reason
		if msg == "" {
			msg = "expression has a type error"
		}
		a.report(LevelError, expr.Pos(), element, "", "%s", msg)
	}
	return t
}

// inferType maps syntax to operand types and delegates to the
// inference engine. Unknown variable references type as Unknown and
// are reported where typeExpr sees the enclosing element.
func (a *Analyzer) inferType(expr ast.Expr, shape map[string]types.Type) types.Type {
	switch e := expr.(type) {
	case *ast.IntLit:
		return a.inference.Literal(types.LitInteger)
	case *ast.FloatLit:
		return a.inference.Literal(types.LitFloat)
	case *ast.StringLit:
		return a.inference.Literal(types.LitString)
	case *ast.BoolLit:
		return a.inference.Literal(types.LitBool)
	case *ast.VarRef:
		if t, ok := shape[e.Ident]; ok && t != nil {
			return t
		}
		return types.Unknown{}
	case *ast.UnaryExpr:
		return a.inference.Unary(e.Op, a.inferType(e.Operand, shape))
	case *ast.BinaryExpr:
		left := a.inferType(e.Left, shape)
		right := a.inferType(e.Right, shape)
		return a.inference.Binary(e.Op, left, right)
	case *ast.CallExpr:
		args := make([]types.Type, len(e.Args))
		for i, arg := range e.Args {
			args[i] = a.inferType(arg, shape)
		}
		return a.inference.Call(e.Func, args)
	}
	return types.Unknown{}
}

// validateCubes fans standard-bound cubes out over a worker pool.
// Cubes are mutually independent and the validator only reads frozen
// registry state, so this is safe.
func (a *Analyzer) validateCubes(ctx context.Context, program *ast.Program) {
	var cubes []*ast.Cube
	for _, el := range program.Elements {
		if c, ok := el.(*ast.Cube); ok && c.Standard != "" {
			cubes = append(cubes, c)
		}
	}
	if len(cubes) == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > len(cubes) {
		numWorkers = len(cubes)
	}
	tasks := make(chan *ast.Cube)
	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for cube := range tasks {
				a.validateCube(cube)
			}
		}()
	}
	for _, cube := range cubes {
		if ctx.Err() != nil {
			break
		}
		tasks <- cube
	}
	close(tasks)
	wg.Wait()
}

func (a *Analyzer) validateCube(cube *ast.Cube) {
	var res cdisc.Result
	switch cube.Standard {
	case "sdtm":
		res = a.validator.ValidateSDTMWithCORE(cube, cube.Dataset)
	case "adam":
		res = a.validator.ValidateADaMWithCORE(cube, cube.Dataset)
	default:
		a.report(LevelError, cube.Position, cube.Ident, "",
			"unknown standard '%s' on cube '%s'", cube.Standard, cube.Ident)
		return
	}

	for _, issue := range res.Errors {
		a.report(LevelError, cube.Position, cube.Ident, issue.Variable,
			"[%s] %s", issue.Code, issue.Message)
	}
	for _, issue := range res.Warnings {
		a.report(LevelWarning, cube.Position, cube.Ident, issue.Variable,
			"[%s] %s", issue.Code, issue.Message)
	}
	for _, v := range res.COREViolations {
		if a.opts.DisabledRules[v.RuleID] {
			continue
		}
		severity := v.Severity
		if override, ok := a.opts.SeverityOverrides[v.RuleID]; ok {
			severity = override
		}
		level := LevelError
		if severity == conformance.SeverityWarning {
			level = LevelWarning
		}
		a.report(level, cube.Position, cube.Ident, v.Variable,
			"[%s] %s", v.RuleID, v.Message)
	}
}
