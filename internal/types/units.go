package types

import (
	"fmt"
	"strings"
)

// UnitChecker compares measurement units attached to Numeric values.
// Units are opaque strings compared by exact equality; there is no
// conversion reasoning (mg vs g is simply incompatible).
type UnitChecker struct{}

// AreCompatible reports whether two units may meet in an additive
// operation. Two unitless values are compatible; a united value never
// matches a unitless one; otherwise the strings must be identical,
// case-sensitive.
func (UnitChecker) AreCompatible(u1, u2 string) bool {
	if u1 == "" && u2 == "" {
		return true
	}
	if u1 == "" || u2 == "" {
		return false
	}
	return u1 == u2
}

// IsValid reports whether unit is a usable unit tag.
func (UnitChecker) IsValid(unit string) bool {
	return strings.TrimSpace(unit) != ""
}

// Normalize trims surrounding whitespace. This is a placeholder for
// UCUM normalization; callers must not rely on it for semantic
// equivalence beyond exact string match.
func (UnitChecker) Normalize(unit string) string {
	return strings.TrimSpace(unit)
}

// IncompatibilityMessage renders a diagnostic for a failed unit check
// in the given operation ("add", "subtract").
func (UnitChecker) IncompatibilityMessage(u1, u2, operation string) string {
	switch {
	case u1 == "":
		return fmt.Sprintf("cannot %s unitless value and value in '%s'", operation, u2)
	case u2 == "":
		return fmt.Sprintf("cannot %s value in '%s' and unitless value", operation, u1)
	}
	return fmt.Sprintf("cannot %s value in '%s' and value in '%s'", operation, u1, u2)
}
