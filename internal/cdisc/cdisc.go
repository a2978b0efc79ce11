// Package cdisc composes the standards registry, the structural
// SDTM/ADaM validators and the CORE rule engine into one validation
// entry point. A Validator is constructed once and is safe for reuse
// across many validation calls, including concurrent ones.
package cdisc

import (
	"fmt"

	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/ast"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/conformance"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/standards"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/types"
)

// Issue is one structural finding.
type Issue struct {
	Code     string
	Message  string
	Variable string
}

type Result struct {
	Valid          bool
	Errors         []Issue
	Warnings       []Issue
	COREViolations []conformance.Violation
}

type Validator struct {
	registry *standards.Registry
	engine   *conformance.Engine
}

// New builds a validator over the given registry, loading the builtin
// checkers and the shipped SDTM and ADaM rule sets into one engine.
func New(registry *standards.Registry) (*Validator, error) {
	engine := conformance.NewEngine(registry)
	sdtm, err := conformance.BuiltinSDTMRules()
	if err != nil {
		return nil, fmt.Errorf("loading SDTM rule set: %w", err)
	}
	adam, err := conformance.BuiltinADaMRules()
	if err != nil {
		return nil, fmt.Errorf("loading ADaM rule set: %w", err)
	}
	engine.AddRules(sdtm)
	engine.AddRules(adam)
	return &Validator{registry: registry, engine: engine}, nil
}

func (v *Validator) Engine() *conformance.Engine   { return v.engine }
func (v *Validator) Registry() *standards.Registry { return v.registry }

// ValidateSDTM checks the cube's components against the registered
// SDTM domain definition.
func (v *Validator) ValidateSDTM(cube *ast.Cube, domain string) Result {
	def := v.registry.SDTMDomain(domain)
	if def == nil {
		return unknownResult("SDTM-UNKNOWN-DOMAIN",
			fmt.Sprintf("unknown SDTM domain %q", domain))
	}
	return validateStructure(cube, "SDTM", def.Variables, def.KeyVariables)
}

// ValidateADaM checks the cube's components against the registered
// ADaM dataset definition.
func (v *Validator) ValidateADaM(cube *ast.Cube, dataset string) Result {
	def := v.registry.ADaMDataset(dataset)
	if def == nil {
		return unknownResult("ADAM-UNKNOWN-DATASET",
			fmt.Sprintf("unknown ADaM dataset %q", dataset))
	}
	return validateStructure(cube, "ADAM", def.Variables, def.KeyVariables)
}

// ValidateSDTMWithCORE merges structural results with the CORE rule
// violations for the domain.
func (v *Validator) ValidateSDTMWithCORE(cube *ast.Cube, domain string) Result {
	res := v.ValidateSDTM(cube, domain)
	res.COREViolations = v.engine.ValidateCube(cube, domain)
	return res
}

// ValidateADaMWithCORE merges structural results with the CORE rule
// violations for the dataset.
func (v *Validator) ValidateADaMWithCORE(cube *ast.Cube, dataset string) Result {
	res := v.ValidateADaM(cube, dataset)
	res.COREViolations = v.engine.ValidateCube(cube, dataset)
	return res
}

func unknownResult(code, msg string) Result {
	// Short-circuit: no further checks against an unknown definition.
	return Result{
		Valid:  false,
		Errors: []Issue{{Code: code, Message: msg}},
	}
}

func validateStructure(cube *ast.Cube, prefix string, vars []standards.VariableSpec, keys []string) Result {
	res := Result{Valid: true}

	fail := func(code, variable, format string, args ...any) {
		res.Errors = append(res.Errors, Issue{
			Code:     prefix + "-" + code,
			Message:  fmt.Sprintf(format, args...),
			Variable: variable,
		})
		res.Valid = false
	}
	warn := func(code, variable, format string, args ...any) {
		res.Warnings = append(res.Warnings, Issue{
			Code:     prefix + "-" + code,
			Message:  fmt.Sprintf(format, args...),
			Variable: variable,
		})
	}

	byName := make(map[string]*standards.VariableSpec, len(vars))
	for i := range vars {
		byName[vars[i].Name] = &vars[i]
	}

	// Required variables may live in any role: dimensions, measures
	// and attributes are searched alike.
	for i := range vars {
		if vars[i].Required && cube.Component(vars[i].Name) == nil {
			fail("MISSING-REQUIRED", vars[i].Name,
				"required variable %s is missing from cube %s", vars[i].Name, cube.Ident)
		}
	}

	for _, comp := range cube.Components() {
		spec, ok := byName[comp.Ident]
		if !ok {
			// Custom variables are permitted, but flagged.
			warn("NON-STANDARD-VAR", comp.Ident,
				"%s %s is not a standard variable", comp.Role, comp.Ident)
			continue
		}
		if comp.Type != nil && !types.AssignableTo(comp.Type, spec.Type) {
			fail("TYPE-MISMATCH", comp.Ident,
				"variable %s is %s, standard requires %s", comp.Ident, comp.Type, spec.Type)
		}
	}

	// A standard coded variable must be backed by a component that
	// actually carries a code-list reference.
	for i := range vars {
		if vars[i].CodeList == "" {
			continue
		}
		comp := cube.Component(vars[i].Name)
		if comp == nil {
			continue
		}
		coded, ok := comp.Type.(types.CodedValue)
		if !ok || coded.CodeList == "" {
			warn("MISSING-CODELIST", vars[i].Name,
				"variable %s should reference code list %s", vars[i].Name, vars[i].CodeList)
		}
	}

	for _, key := range keys {
		if cube.Component(key) == nil {
			warn("MISSING-KEY", key,
				"key variable %s is missing from cube %s", key, cube.Ident)
		}
	}

	return res
}
