// Package standards holds the in-memory index of CDISC standards
// metadata: SDTM domain definitions, ADaM dataset definitions and
// controlled-terminology code lists. A Registry is populated once at
// construction and never mutated afterwards, so it is safe to share
// across concurrent validation calls.
package standards

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/types"
)

//go:embed standards.cue
var schemaCUE string

//go:embed cdisc_definitions.json
var defaultDefinitionsJSON []byte

// VariableSpec describes one variable of a domain or dataset.
type VariableSpec struct {
	Name     string
	Type     types.Type
	Required bool
	CodeList string
}

type SDTMDomain struct {
	Code         string
	Label        string
	Variables    []VariableSpec
	KeyVariables []string
}

func (d *SDTMDomain) Variable(name string) *VariableSpec {
	for i := range d.Variables {
		if d.Variables[i].Name == name {
			return &d.Variables[i]
		}
	}
	return nil
}

type ADaMDataset struct {
	Name         string
	Label        string
	Variables    []VariableSpec
	KeyVariables []string
}

func (d *ADaMDataset) Variable(name string) *VariableSpec {
	for i := range d.Variables {
		if d.Variables[i].Name == name {
			return &d.Variables[i]
		}
	}
	return nil
}

type CodeList struct {
	Name   string
	Values []string
}

func (c CodeList) Contains(value string) bool {
	for _, v := range c.Values {
		if v == value {
			return true
		}
	}
	return false
}

type Registry struct {
	domains   map[string]*SDTMDomain
	datasets  map[string]*ADaMDataset
	codeLists map[string]CodeList
}

// wire format of a definitions payload (spec'd externally; the loader
// that reads these from disk lives outside the core).
type definitionsDoc struct {
	Domains   []recordDoc         `json:"domains"`
	Datasets  []recordDoc         `json:"datasets"`
	CodeLists map[string][]string `json:"codeLists"`
}

type recordDoc struct {
	Domain       string        `json:"domain,omitempty"`
	Dataset      string        `json:"dataset,omitempty"`
	Label        string        `json:"label,omitempty"`
	Variables    []variableDoc `json:"variables"`
	KeyVariables []string      `json:"keyVariables"`
}

type variableDoc struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	CodeList string `json:"codeList,omitempty"`
}

// Load builds a registry from one or more JSON definition payloads.
// Every payload is checked against the embedded CUE schema before it
// is indexed; later payloads overlay earlier ones (same merge
// semantics as layered schema files: whole records replace by code).
func Load(payloads ...[]byte) (*Registry, error) {
	r := &Registry{
		domains:   make(map[string]*SDTMDomain),
		datasets:  make(map[string]*ADaMDataset),
		codeLists: make(map[string]CodeList),
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("standards schema is broken: %w", err)
	}
	defs := schema.LookupPath(cue.ParsePath("#Definitions"))

	for _, payload := range payloads {
		var raw any
		if err := json.Unmarshal(payload, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse standards definitions: %w", err)
		}
		res := defs.Unify(ctx.Encode(raw))
		if err := res.Validate(cue.Concrete(true)); err != nil {
			return nil, fmt.Errorf("standards definitions do not conform to schema: %w", err)
		}

		var doc definitionsDoc
		if err := json.Unmarshal(payload, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode standards definitions: %w", err)
		}
		if err := r.merge(&doc); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LoadDefault builds a registry from the embedded definition file plus
// any overlay payloads.
func LoadDefault(overlays ...[]byte) (*Registry, error) {
	payloads := append([][]byte{defaultDefinitionsJSON}, overlays...)
	return Load(payloads...)
}

func (r *Registry) merge(doc *definitionsDoc) error {
	for _, rec := range doc.Domains {
		vars, err := decodeVariables(rec.Variables)
		if err != nil {
			return fmt.Errorf("domain %s: %w", rec.Domain, err)
		}
		r.domains[rec.Domain] = &SDTMDomain{
			Code:         rec.Domain,
			Label:        rec.Label,
			Variables:    vars,
			KeyVariables: rec.KeyVariables,
		}
	}
	for _, rec := range doc.Datasets {
		vars, err := decodeVariables(rec.Variables)
		if err != nil {
			return fmt.Errorf("dataset %s: %w", rec.Dataset, err)
		}
		r.datasets[rec.Dataset] = &ADaMDataset{
			Name:         rec.Dataset,
			Label:        rec.Label,
			Variables:    vars,
			KeyVariables: rec.KeyVariables,
		}
	}
	for name, values := range doc.CodeLists {
		r.codeLists[name] = CodeList{Name: name, Values: values}
	}
	return nil
}

func decodeVariables(docs []variableDoc) ([]VariableSpec, error) {
	vars := make([]VariableSpec, 0, len(docs))
	for _, vd := range docs {
		t, err := types.Parse(vd.Type, vd.CodeList)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", vd.Name, err)
		}
		vars = append(vars, VariableSpec{
			Name:     vd.Name,
			Type:     t,
			Required: vd.Required,
			CodeList: vd.CodeList,
		})
	}
	return vars, nil
}

// SDTMDomain looks up a domain by code; nil means unknown, and callers
// must handle absence explicitly.
func (r *Registry) SDTMDomain(code string) *SDTMDomain {
	return r.domains[code]
}

// ADaMDataset looks up a dataset by name; nil means unknown.
func (r *Registry) ADaMDataset(name string) *ADaMDataset {
	return r.datasets[name]
}

func (r *Registry) CodeList(name string) (CodeList, bool) {
	cl, ok := r.codeLists[name]
	return cl, ok
}

func (r *Registry) DomainCount() int  { return len(r.domains) }
func (r *Registry) DatasetCount() int { return len(r.datasets) }
