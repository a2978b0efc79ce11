package conformance

import (
	"fmt"

	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/ast"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/standards"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/types"
)

// The builtin checkers validate cube definitions, not data: they gate
// that a cube's declared shape can satisfy a rule before any record is
// ever loaded.

func registerBuiltins(e *Engine) {
	e.RegisterChecker("duplicate-key", CheckerFunc(checkDuplicateKey))
	e.RegisterChecker("iso8601-format", CheckerFunc(checkISO8601))
	e.RegisterChecker("date-ordering", CheckerFunc(checkDateOrdering))
	e.RegisterChecker("required-if", CheckerFunc(checkRequiredIf))
	e.RegisterChecker("codelist-membership", CheckerFunc(checkCodeListMembership))
}

func configString(rule Rule, key string) string {
	if s, ok := rule.Config[key].(string); ok {
		return s
	}
	return ""
}

func configStrings(rule Rule, key string) []string {
	raw, ok := rule.Config[key]
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func violation(rule Rule, variable, format string, args ...any) Violation {
	return Violation{
		RuleID:   rule.ID,
		Severity: rule.Severity,
		Message:  fmt.Sprintf(format, args...),
		Variable: variable,
	}
}

// checkDuplicateKey verifies the cube declares every key variable
// named in config ("keys"), and that none of them is a measure: a key
// declared as a measure cannot guarantee record uniqueness.
func checkDuplicateKey(cube *ast.Cube, rule Rule, _ *standards.Registry) []Violation {
	keys := configStrings(rule, "keys")
	if len(keys) == 0 {
		keys = rule.Variables
	}
	var out []Violation
	for _, key := range keys {
		comp := cube.Component(key)
		if comp == nil {
			out = append(out, violation(rule, key,
				"key variable %s is not defined on cube %s", key, cube.Ident))
			continue
		}
		if comp.Role == ast.RoleMeasure {
			out = append(out, violation(rule, key,
				"key variable %s is declared as a measure; keys must be dimensions or attributes", key))
		}
	}
	return out
}

// checkISO8601 verifies that each named date/time variable is typed so
// it can hold an ISO 8601 value (date, datetime or text).
func checkISO8601(cube *ast.Cube, rule Rule, _ *standards.Registry) []Violation {
	vars := configStrings(rule, "variables")
	if len(vars) == 0 {
		vars = rule.Variables
	}
	var out []Violation
	for _, name := range vars {
		comp := cube.Component(name)
		if comp == nil {
			continue
		}
		switch comp.Type.(type) {
		case types.Date, types.DateTime, types.Text:
		default:
			out = append(out, violation(rule, name,
				"variable %s is typed %s and cannot hold an ISO 8601 date/time", name, comp.Type))
		}
	}
	return out
}

// checkDateOrdering verifies that the start/end pair named in config
// is present and comparably typed, the precondition for the data-level
// "start before end" constraint.
func checkDateOrdering(cube *ast.Cube, rule Rule, _ *standards.Registry) []Violation {
	start := configString(rule, "start")
	end := configString(rule, "end")
	if start == "" || end == "" {
		return []Violation{violation(rule, "",
			"rule config must name 'start' and 'end' variables")}
	}
	var out []Violation
	for _, name := range []string{start, end} {
		comp := cube.Component(name)
		if comp == nil {
			out = append(out, violation(rule, name,
				"ordering rule references variable %s, which is not defined on cube %s", name, cube.Ident))
			continue
		}
		switch comp.Type.(type) {
		case types.Date, types.DateTime, types.Text:
		default:
			out = append(out, violation(rule, name,
				"ordering rule requires a date-like variable, %s is %s", name, comp.Type))
		}
	}
	return out
}

// checkRequiredIf: if the trigger variable (config "when") is defined
// on the cube, the dependent variable (config "variable") must be too.
func checkRequiredIf(cube *ast.Cube, rule Rule, _ *standards.Registry) []Violation {
	dependent := configString(rule, "variable")
	trigger := configString(rule, "when")
	if dependent == "" || trigger == "" {
		return []Violation{violation(rule, "",
			"rule config must name 'variable' and 'when'")}
	}
	if cube.Component(trigger) == nil {
		return nil
	}
	if cube.Component(dependent) == nil {
		return []Violation{violation(rule, dependent,
			"variable %s is required when %s is present", dependent, trigger)}
	}
	return nil
}

// checkCodeListMembership verifies the named variable is coded against
// the expected, registered code list.
func checkCodeListMembership(cube *ast.Cube, rule Rule, registry *standards.Registry) []Violation {
	name := configString(rule, "variable")
	expected := configString(rule, "codeList")
	if name == "" || expected == "" {
		return []Violation{violation(rule, "",
			"rule config must name 'variable' and 'codeList'")}
	}
	comp := cube.Component(name)
	if comp == nil {
		return nil
	}
	coded, ok := comp.Type.(types.CodedValue)
	if !ok {
		return []Violation{violation(rule, name,
			"variable %s must be coded against code list %s, got %s", name, expected, comp.Type)}
	}
	if coded.CodeList != expected {
		return []Violation{violation(rule, name,
			"variable %s is coded against %q, expected %q", name, coded.CodeList, expected)}
	}
	if _, ok := registry.CodeList(expected); !ok {
		return []Violation{violation(rule, name,
			"code list %q is not registered", expected)}
	}
	return nil
}
