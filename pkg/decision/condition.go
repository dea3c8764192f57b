package decision

import (
	"fmt"
)

// Operator is the closed set of condition operators. The matcher dispatches
// on it exhaustively; an operator outside this set is a configuration
// error, never a silent non-match.
type Operator string

const (
	// OpWildcard always matches, regardless of the bound value.
	OpWildcard Operator = "wildcard"

	// OpEquals matches when the bound value equals the condition value.
	// String comparison is case-sensitive and exact-byte.
	OpEquals Operator = "equals"

	// OpNotEquals is the negation of OpEquals.
	OpNotEquals Operator = "not_equals"

	// OpGreaterThan matches when the bound value is strictly greater than
	// the condition value. Requires an orderable column type.
	OpGreaterThan Operator = "greater_than"

	// OpGreaterOrEqual matches when the bound value is greater than or
	// equal to the condition value.
	OpGreaterOrEqual Operator = "greater_or_equal"

	// OpLessThan matches when the bound value is strictly less than the
	// condition value.
	OpLessThan Operator = "less_than"

	// OpLessOrEqual matches when the bound value is less than or equal to
	// the condition value.
	OpLessOrEqual Operator = "less_or_equal"

	// OpInSet matches when the bound value equals any element of the
	// condition's collection value.
	OpInSet Operator = "in"

	// OpNotInSet is the negation of OpInSet.
	OpNotInSet Operator = "not_in"

	// OpContains matches when the bound string contains the condition
	// value as a substring, or when a bound collection contains it as an
	// element.
	OpContains Operator = "contains"

	// OpNotContains is the negation of OpContains.
	OpNotContains Operator = "not_contains"

	// OpIsEmpty matches when the bound value is nil, an empty string, or
	// an empty collection. The condition value is ignored.
	OpIsEmpty Operator = "is_empty"

	// OpIsNotEmpty is the negation of OpIsEmpty.
	OpIsNotEmpty Operator = "is_not_empty"

	// OpBetween matches when the bound value lies in the closed interval
	// [Value, High]. Requires both values and an orderable column type.
	OpBetween Operator = "between"
)

// Valid reports whether the operator is one of the declared operators.
func (op Operator) Valid() bool {
	switch op {
	case OpWildcard, OpEquals, OpNotEquals,
		OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual,
		OpInSet, OpNotInSet, OpContains, OpNotContains,
		OpIsEmpty, OpIsNotEmpty, OpBetween:
		return true
	}
	return false
}

// orderable reports whether the operator requires an orderable column type.
func (op Operator) orderable() bool {
	switch op {
	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual, OpBetween:
		return true
	}
	return false
}

// needsValue reports whether the operator uses the condition value at all.
func (op Operator) needsValue() bool {
	switch op {
	case OpWildcard, OpIsEmpty, OpIsNotEmpty:
		return false
	}
	return true
}

// Condition is a single typed comparison applied to one bound input value.
type Condition struct {
	// Operator selects the comparison.
	Operator Operator `yaml:"operator"`

	// Value is the comparison value. For OpInSet and OpNotInSet it must
	// be a collection. Ignored by OpWildcard, OpIsEmpty and OpIsNotEmpty.
	Value any `yaml:"value"`

	// High is the upper bound of the interval for OpBetween. Unused by
	// every other operator.
	High any `yaml:"high"`
}

// validate checks the condition shape against the declared column type.
func (c Condition) validate(colType ValueType) error {
	if !c.Operator.Valid() {
		return fmt.Errorf("unknown operator %q", c.Operator)
	}
	if c.Operator.orderable() && colType != TypeNumber && colType != TypeDate {
		return fmt.Errorf("operator %q requires an orderable column type, column is %q", c.Operator, colType)
	}
	switch c.Operator {
	case OpBetween:
		if c.Value == nil || c.High == nil {
			return fmt.Errorf("operator %q requires both a lower and an upper value", c.Operator)
		}
	case OpInSet, OpNotInSet:
		if !isCollection(c.Value) {
			return fmt.Errorf("operator %q requires a collection value", c.Operator)
		}
	default:
		if c.Operator.needsValue() && c.Value == nil {
			return fmt.Errorf("operator %q requires a comparison value", c.Operator)
		}
	}
	return nil
}
