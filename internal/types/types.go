package types

import "fmt"

// Type is the closed set of value types a Thunderstruck expression or
// cube component can carry. All implementations are comparable structs
// so types can be compared with == in checks and tests.
type Type interface {
	isType()
	String() string
}

type Integer struct{}

func (Integer) isType()        {}
func (Integer) String() string { return "integer" }

// Numeric is a floating-point quantity, optionally tagged with a
// measurement unit. An empty Unit means the value is unitless.
type Numeric struct {
	Unit string
}

func (Numeric) isType() {}
func (n Numeric) String() string {
	if n.Unit == "" {
		return "numeric"
	}
	return fmt.Sprintf("numeric<%s>", n.Unit)
}

type Text struct{}

func (Text) isType()        {}
func (Text) String() string { return "text" }

type Flag struct{}

func (Flag) isType()        {}
func (Flag) String() string { return "flag" }

// CodedValue is a value constrained to a named code list (controlled
// terminology).
type CodedValue struct {
	CodeList string
}

func (CodedValue) isType() {}
func (c CodedValue) String() string {
	if c.CodeList == "" {
		return "coded"
	}
	return fmt.Sprintf("coded<%s>", c.CodeList)
}

type Identifier struct{}

func (Identifier) isType()        {}
func (Identifier) String() string { return "identifier" }

type Date struct{}

func (Date) isType()        {}
func (Date) String() string { return "date" }

type DateTime struct{}

func (DateTime) isType()        {}
func (DateTime) String() string { return "datetime" }

// Error is the absorbing type produced by failed inference. Any
// operation with an Error operand yields Error.
type Error struct {
	Reason string
}

func (Error) isType() {}
func (e Error) String() string {
	if e.Reason == "" {
		return "error"
	}
	return fmt.Sprintf("error: %s", e.Reason)
}

// Unknown means "not yet resolvable", e.g. a call to a function with
// no registered signature. It is distinct from Error.
type Unknown struct{}

func (Unknown) isType()        {}
func (Unknown) String() string { return "unknown" }

func IsError(t Type) bool {
	_, ok := t.(Error)
	return ok
}

// IsNumericFamily reports whether t is Integer or Numeric.
func IsNumericFamily(t Type) bool {
	switch t.(type) {
	case Integer, Numeric:
		return true
	}
	return false
}

// Parse maps a type name from standards metadata or a component
// annotation to a Type. codeList is only consulted for coded values.
func Parse(name, codeList string) (Type, error) {
	switch name {
	case "integer":
		return Integer{}, nil
	case "numeric", "float":
		return Numeric{}, nil
	case "text", "string":
		return Text{}, nil
	case "flag", "boolean":
		return Flag{}, nil
	case "coded", "codedvalue":
		return CodedValue{CodeList: codeList}, nil
	case "identifier":
		return Identifier{}, nil
	case "date":
		return Date{}, nil
	case "datetime":
		return DateTime{}, nil
	}
	return nil, fmt.Errorf("unknown type name %q", name)
}

// AssignableTo reports whether a component of type actual satisfies a
// standard variable declared as expected. Identical types always
// match; a small set of one-way widenings is additionally allowed:
// Identifier -> Text, Integer -> Numeric, DateTime -> Date. Code-list
// identity is deliberately not compared here (see the MISSING-CODELIST
// check, which handles code lists separately).
func AssignableTo(actual, expected Type) bool {
	// Units and code lists do not participate in structural matching,
	// so Numeric<kg> satisfies a plain Numeric variable and any coded
	// component satisfies a coded variable.
	switch actual.(type) {
	case Numeric:
		switch expected.(type) {
		case Numeric:
			return true
		}
	case CodedValue:
		switch expected.(type) {
		case CodedValue:
			return true
		}
	}
	if actual == expected {
		return true
	}
	switch actual.(type) {
	case Identifier:
		_, ok := expected.(Text)
		return ok
	case Integer:
		_, ok := expected.(Numeric)
		return ok
	case DateTime:
		_, ok := expected.(Date)
		return ok
	}
	return false
}
