package ast

import (
	"encoding/json"
	"fmt"

	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/types"
)

// DecodeSnapshot reconstructs a Program from the JSON form the parser
// front end emits. The snapshot is already structurally valid; this
// decoder only maps it onto the AST types, it performs no semantic
// checking.
func DecodeSnapshot(data []byte) (*Program, error) {
	var doc struct {
		File     string            `json:"file"`
		Elements []json.RawMessage `json:"elements"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse program snapshot: %w", err)
	}

	program := &Program{File: doc.File}
	for i, raw := range doc.Elements {
		el, err := decodeElement(raw)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		program.Elements = append(program.Elements, el)
	}
	return program, nil
}

type componentDoc struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Unit     string `json:"unit,omitempty"`
	CodeList string `json:"codeList,omitempty"`
}

type elementDoc struct {
	Kind string    `json:"kind"`
	Name string    `json:"name"`
	Pos  *Position `json:"pos,omitempty"`

	// concept
	Code string `json:"code,omitempty"`
	Unit string `json:"unit,omitempty"`

	// cube
	Standard   string         `json:"standard,omitempty"`
	Dataset    string         `json:"dataset,omitempty"`
	Dimensions []componentDoc `json:"dimensions,omitempty"`
	Measures   []componentDoc `json:"measures,omitempty"`
	Attributes []componentDoc `json:"attributes,omitempty"`

	// input references and expressions
	Source  string          `json:"source,omitempty"`
	Input   string          `json:"input,omitempty"`
	Filter  json.RawMessage `json:"filter,omitempty"`
	Formula json.RawMessage `json:"formula,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
	Family  string          `json:"family,omitempty"`
	Link    string          `json:"link,omitempty"`
	GroupBy []string        `json:"groupBy,omitempty"`
	Columns []struct {
		Name  string          `json:"name"`
		Value json.RawMessage `json:"value"`
	} `json:"columns,omitempty"`
	Display string `json:"display,omitempty"`
	Title   string `json:"title,omitempty"`

	// import
	Path string `json:"path,omitempty"`
}

func decodeElement(raw json.RawMessage) (Element, error) {
	var doc elementDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	pos := Position{}
	if doc.Pos != nil {
		pos = *doc.Pos
	}

	switch doc.Kind {
	case "concept":
		return &Concept{Position: pos, Ident: doc.Name, Code: doc.Code, Unit: doc.Unit}, nil
	case "cube":
		cube := &Cube{
			Position: pos,
			Ident:    doc.Name,
			Standard: doc.Standard,
			Dataset:  doc.Dataset,
		}
		var err error
		if cube.Dimensions, err = decodeComponents(doc.Dimensions, RoleDimension); err != nil {
			return nil, err
		}
		if cube.Measures, err = decodeComponents(doc.Measures, RoleMeasure); err != nil {
			return nil, err
		}
		if cube.Attributes, err = decodeComponents(doc.Attributes, RoleAttribute); err != nil {
			return nil, err
		}
		return cube, nil
	case "slice":
		filter, err := decodeOptionalExpr(doc.Filter)
		if err != nil {
			return nil, err
		}
		return &Slice{Position: pos, Ident: doc.Name, Source: Ref{RefText: doc.Source}, Filter: filter}, nil
	case "model":
		formula, err := decodeOptionalExpr(doc.Formula)
		if err != nil {
			return nil, err
		}
		return &Model{
			Position: pos,
			Ident:    doc.Name,
			Input:    Ref{RefText: doc.Input},
			Formula:  formula,
			Family:   doc.Family,
			Link:     doc.Link,
		}, nil
	case "aggregate":
		value, err := decodeOptionalExpr(doc.Value)
		if err != nil {
			return nil, err
		}
		return &Aggregate{
			Position: pos,
			Ident:    doc.Name,
			Input:    Ref{RefText: doc.Input},
			GroupBy:  doc.GroupBy,
			Value:    value,
		}, nil
	case "derive":
		derive := &Derive{Position: pos, Ident: doc.Name, Source: Ref{RefText: doc.Source}}
		for _, col := range doc.Columns {
			value, err := decodeExpr(col.Value)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col.Name, err)
			}
			derive.Columns = append(derive.Columns, &DerivedColumn{Ident: col.Name, Value: value})
		}
		return derive, nil
	case "display":
		return &Display{
			Position: pos,
			Ident:    doc.Name,
			Source:   Ref{RefText: doc.Source},
			Kind:     doc.Display,
			Title:    doc.Title,
		}, nil
	case "import":
		return &Import{Position: pos, Path: doc.Path}, nil
	}
	return nil, fmt.Errorf("unknown element kind %q", doc.Kind)
}

func decodeComponents(docs []componentDoc, role ComponentRole) ([]*Component, error) {
	var out []*Component
	for _, cd := range docs {
		t, err := types.Parse(cd.Type, cd.CodeList)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", cd.Name, err)
		}
		if cd.Unit != "" {
			if _, ok := t.(types.Numeric); ok {
				t = types.Numeric{Unit: cd.Unit}
			}
		}
		out = append(out, &Component{Ident: cd.Name, Role: role, Type: t})
	}
	return out, nil
}

type exprDoc struct {
	Expr    string          `json:"expr"`
	Value   json.RawMessage `json:"value,omitempty"`
	Op      string          `json:"op,omitempty"`
	Left    json.RawMessage `json:"left,omitempty"`
	Right   json.RawMessage `json:"right,omitempty"`
	Operand json.RawMessage `json:"operand,omitempty"`
	Name    string          `json:"name,omitempty"`
	Func    string          `json:"func,omitempty"`
	Args    []json.RawMessage `json:"args,omitempty"`
}

func decodeOptionalExpr(raw json.RawMessage) (Expr, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	return decodeExpr(raw)
}

func decodeExpr(raw json.RawMessage) (Expr, error) {
	var doc exprDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	switch doc.Expr {
	case "int":
		var v int64
		if err := json.Unmarshal(doc.Value, &v); err != nil {
			return nil, fmt.Errorf("bad integer literal: %w", err)
		}
		return &IntLit{Value: v, Raw: string(doc.Value)}, nil
	case "float":
		var v float64
		if err := json.Unmarshal(doc.Value, &v); err != nil {
			return nil, fmt.Errorf("bad numeric literal: %w", err)
		}
		return &FloatLit{Value: v, Raw: string(doc.Value)}, nil
	case "string":
		var v string
		if err := json.Unmarshal(doc.Value, &v); err != nil {
			return nil, fmt.Errorf("bad string literal: %w", err)
		}
		return &StringLit{Value: v}, nil
	case "bool":
		var v bool
		if err := json.Unmarshal(doc.Value, &v); err != nil {
			return nil, fmt.Errorf("bad boolean literal: %w", err)
		}
		return &BoolLit{Value: v}, nil
	case "var":
		return &VarRef{Ident: doc.Name}, nil
	case "unary":
		operand, err := decodeExpr(doc.Operand)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: doc.Op, Operand: operand}, nil
	case "binary":
		left, err := decodeExpr(doc.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeExpr(doc.Right)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: doc.Op, Left: left, Right: right}, nil
	case "call":
		call := &CallExpr{Func: doc.Func}
		for _, arg := range doc.Args {
			e, err := decodeExpr(arg)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, e)
		}
		return call, nil
	}
	return nil, fmt.Errorf("unknown expression kind %q", doc.Expr)
}
