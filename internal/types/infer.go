package types

import "fmt"

// LiteralKind mirrors the literal forms the parser produces.
type LiteralKind int

const (
	LitInteger LiteralKind = iota
	LitFloat
	LitString
	LitBool
)

// Inference derives result types from operand types. It is stateless
// and never consults the symbol table; callers resolve variable
// references to types before asking for a result.
type Inference struct {
	Units UnitChecker
}

func (Inference) Literal(kind LiteralKind) Type {
	switch kind {
	case LitInteger:
		return Integer{}
	case LitFloat:
		return Numeric{}
	case LitString:
		return Text{}
	case LitBool:
		return Flag{}
	}
	return Unknown{}
}

// Binary derives the type of `left op right`. Error operands absorb.
func (inf Inference) Binary(op string, left, right Type) Type {
	if IsError(left) || IsError(right) {
		return Error{}
	}

	switch op {
	case "+", "-", "*", "/":
		return inf.arithmetic(op, left, right)
	case "<", "<=", ">", ">=", "==", "!=":
		// Permissive: ordering and equality apply to numeric and
		// date-like operands alike.
		return Flag{}
	case "and", "or":
		if _, ok := left.(Flag); !ok {
			return Error{Reason: fmt.Sprintf("operator '%s' requires boolean operands, got %s", op, left)}
		}
		if _, ok := right.(Flag); !ok {
			return Error{Reason: fmt.Sprintf("operator '%s' requires boolean operands, got %s", op, right)}
		}
		return Flag{}
	}
	return Error{Reason: fmt.Sprintf("unknown operator '%s'", op)}
}

func (inf Inference) arithmetic(op string, left, right Type) Type {
	if !IsNumericFamily(left) {
		return Error{Reason: fmt.Sprintf("non-numeric operand %s for operator '%s'", left, op)}
	}
	if !IsNumericFamily(right) {
		return Error{Reason: fmt.Sprintf("non-numeric operand %s for operator '%s'", right, op)}
	}

	_, lInt := left.(Integer)
	_, rInt := right.(Integer)

	if lInt && rInt {
		// Division always widens; the other operators stay integral.
		if op == "/" {
			return Numeric{}
		}
		return Integer{}
	}

	ln, _ := left.(Numeric)
	rn, _ := right.(Numeric)

	if !lInt && !rInt {
		switch op {
		case "+", "-":
			if !inf.Units.AreCompatible(ln.Unit, rn.Unit) {
				verb := "add"
				if op == "-" {
					verb = "subtract"
				}
				return Error{Reason: inf.Units.IncompatibilityMessage(ln.Unit, rn.Unit, verb)}
			}
			return Numeric{Unit: ln.Unit}
		}
		// Unit algebra for * and / is not implemented; the result is
		// always unitless. Downstream rule sets depend on this.
		return Numeric{}
	}

	// Mixed Integer/Numeric widens to Numeric and keeps whichever unit
	// the Numeric side carries.
	unit := ln.Unit
	if lInt {
		unit = rn.Unit
	}
	return Numeric{Unit: unit}
}

// Unary derives the type of `op operand`.
func (Inference) Unary(op string, operand Type) Type {
	if IsError(operand) {
		return Error{}
	}
	switch op {
	case "-":
		switch t := operand.(type) {
		case Integer:
			return Integer{}
		case Numeric:
			return Numeric{Unit: t.Unit}
		}
		return Error{Reason: fmt.Sprintf("cannot negate %s", operand)}
	case "not":
		if _, ok := operand.(Flag); ok {
			return Flag{}
		}
		return Error{Reason: fmt.Sprintf("'not' requires a boolean operand, got %s", operand)}
	}
	return Error{Reason: fmt.Sprintf("unknown unary operator '%s'", op)}
}

// Call derives the result type of a named function applied to args.
// Unrecognized names infer Unknown rather than Error, leaving room for
// user-defined signatures later.
func (Inference) Call(name string, args []Type) Type {
	for _, a := range args {
		if IsError(a) {
			return Error{}
		}
	}
	switch name {
	case "log", "exp", "sqrt", "abs", "floor", "ceil", "round":
		return Numeric{}
	case "poly", "ns", "bs", "spline":
		return Numeric{}
	case "mean", "median", "sd", "var", "sum":
		return Numeric{}
	case "count", "n":
		return Integer{}
	case "min", "max":
		if len(args) > 0 {
			return args[0]
		}
		return Numeric{}
	}
	return Unknown{}
}
