// Package conformance implements the CORE rule engine: conformance
// rules are plain data records dispatched to registered checkers, so
// new rules ship as rule-set files without touching checker logic.
package conformance

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/ast"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/logger"
	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/standards"
)

//go:embed rules.cue
var ruleSchemaCUE string

//go:embed sdtm_rules.json
var sdtmRulesJSON []byte

//go:embed adam_rules.json
var adamRulesJSON []byte

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Rule is one data-defined conformance check. Config is opaque to the
// engine; only the checker named by CheckerType interprets it.
type Rule struct {
	ID          string         `json:"id" yaml:"id"`
	Description string         `json:"description" yaml:"description"`
	Severity    Severity       `json:"severity" yaml:"severity"`
	Category    string         `json:"category" yaml:"category"`
	CheckerType string         `json:"checkerType" yaml:"checkerType"`
	Config      map[string]any `json:"config" yaml:"config"`
	AppliesTo   []string       `json:"appliesTo,omitempty" yaml:"appliesTo,omitempty"`
	Variables   []string       `json:"variables,omitempty" yaml:"variables,omitempty"`
}

// appliesToDomain: an absent AppliesTo list means the rule applies to
// every domain and dataset.
func (r Rule) appliesToDomain(domain string) bool {
	if len(r.AppliesTo) == 0 {
		return true
	}
	for _, d := range r.AppliesTo {
		if d == domain {
			return true
		}
	}
	return false
}

// Violation is the uniform output of any checker.
type Violation struct {
	RuleID   string
	Severity Severity
	Message  string
	Variable string
	Location *ast.Position
}

// Checker validates one aspect of a cube definition under a rule's
// config. Implementations must treat bad config as violations or
// no-ops, never as panics; the engine recovers anyway so one broken
// checker cannot abort a batch.
type Checker interface {
	Check(cube *ast.Cube, rule Rule, registry *standards.Registry) []Violation
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(cube *ast.Cube, rule Rule, registry *standards.Registry) []Violation

func (f CheckerFunc) Check(cube *ast.Cube, rule Rule, registry *standards.Registry) []Violation {
	return f(cube, rule, registry)
}

// Engine holds the checker registry and the append-only rule list.
// Rules and checkers are registered at construction time; after that
// the engine is read-only and safe for concurrent ValidateCube calls.
type Engine struct {
	checkers map[string]Checker
	rules    []Rule
	registry *standards.Registry
}

func NewEngine(registry *standards.Registry) *Engine {
	e := &Engine{
		checkers: make(map[string]Checker),
		registry: registry,
	}
	registerBuiltins(e)
	return e
}

func (e *Engine) RegisterChecker(name string, c Checker) {
	e.checkers[name] = c
}

func (e *Engine) AddRules(rules []Rule) {
	e.rules = append(e.rules, rules...)
}

// Rules returns the loaded rules in registration order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// ValidateCube runs every applicable rule against the cube. A rule
// whose checker type is unregistered is logged and skipped; a checker
// that panics is logged and its contribution omitted. Violations keep
// rule registration order.
func (e *Engine) ValidateCube(cube *ast.Cube, domain string) []Violation {
	var out []Violation
	for _, rule := range e.rules {
		if !rule.appliesToDomain(domain) {
			continue
		}
		checker, ok := e.checkers[rule.CheckerType]
		if !ok {
			logger.Printf("rule %s: no checker registered for type %q, skipping\n", rule.ID, rule.CheckerType)
			continue
		}
		out = append(out, e.runChecker(cube, rule, checker)...)
	}
	return out
}

func (e *Engine) runChecker(cube *ast.Cube, rule Rule, checker Checker) (violations []Violation) {
	defer func() {
		if r := recover(); r != nil {
			logger.Printf("rule %s: checker %q failed: %v\n", rule.ID, rule.CheckerType, r)
			violations = nil
		}
	}()
	return checker.Check(cube, rule, e.registry)
}

type ruleSetDoc struct {
	Rules []Rule `json:"rules" yaml:"rules"`
}

// ParseRuleSetJSON decodes and schema-checks a JSON rule-set payload.
func ParseRuleSetJSON(payload []byte) ([]Rule, error) {
	var raw any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse rule set: %w", err)
	}
	if err := checkRuleSchema(raw); err != nil {
		return nil, err
	}
	var doc ruleSetDoc
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode rule set: %w", err)
	}
	return doc.Rules, nil
}

// ParseRuleSetYAML decodes and schema-checks a YAML rule-set payload,
// the format user-supplied rule files ship in.
func ParseRuleSetYAML(payload []byte) ([]Rule, error) {
	var raw any
	if err := yaml.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse rule set: %w", err)
	}
	if err := checkRuleSchema(raw); err != nil {
		return nil, err
	}
	var doc ruleSetDoc
	if err := yaml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode rule set: %w", err)
	}
	return doc.Rules, nil
}

func checkRuleSchema(raw any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(ruleSchemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("rule schema is broken: %w", err)
	}
	set := schema.LookupPath(cue.ParsePath("#RuleSet"))
	res := set.Unify(ctx.Encode(raw))
	if err := res.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("rule set does not conform to schema: %w", err)
	}
	return nil
}

// BuiltinSDTMRules returns the shipped SDTM CORE rule set.
func BuiltinSDTMRules() ([]Rule, error) {
	return ParseRuleSetJSON(sdtmRulesJSON)
}

// BuiltinADaMRules returns the shipped ADaM CORE rule set.
func BuiltinADaMRules() ([]Rule, error) {
	return ParseRuleSetJSON(adamRulesJSON)
}
