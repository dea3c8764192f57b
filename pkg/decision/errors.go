package decision

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTableNotFound indicates the requested decision table is not known to
// the registry.
var ErrTableNotFound = errors.New("decision table not found")

// ConfigurationError indicates a malformed table: dangling column
// references, unknown operators or types, or condition arity errors. It is
// detected eagerly at load time and is fatal until an operator fixes the
// table.
type ConfigurationError struct {
	TableID string
	Detail  string
}

// Error returns the error message.
func (e *ConfigurationError) Error() string {
	if e.TableID == "" {
		return fmt.Sprintf("decision table configuration error: %s", e.Detail)
	}
	return fmt.Sprintf("decision table %s: configuration error: %s", e.TableID, e.Detail)
}

// EvaluationError indicates a failure during a single evaluation call: a
// type mismatch while matching a condition or a missing input binding. It
// aborts the call and names the offending rule and column; table state is
// unaffected.
type EvaluationError struct {
	TableID  string
	RuleID   string
	ColumnID string
	Cause    error
}

// Error returns the error message.
func (e *EvaluationError) Error() string {
	if e.RuleID == "" {
		return fmt.Sprintf("table %s column %s: %v", e.TableID, e.ColumnID, e.Cause)
	}
	return fmt.Sprintf("table %s rule %s column %s: %v", e.TableID, e.RuleID, e.ColumnID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// AmbiguousMatchError indicates that a UNIQUE table matched more than one
// rule, or that an ANY table's matching rules disagree on an output value.
type AmbiguousMatchError struct {
	TableID  string
	Policy   HitPolicy
	RuleIDs  []string
	ColumnID string
}

// Error returns the error message.
func (e *AmbiguousMatchError) Error() string {
	rules := strings.Join(e.RuleIDs, ", ")
	if e.ColumnID != "" {
		return fmt.Sprintf("table %s (%s): rules [%s] disagree on output column %q", e.TableID, e.Policy, rules, e.ColumnID)
	}
	return fmt.Sprintf("table %s (%s): ambiguous match across rules [%s]", e.TableID, e.Policy, rules)
}

// MissingDefaultError indicates that the resolved result left an output
// column unset and the column declares no default value.
type MissingDefaultError struct {
	TableID  string
	ColumnID string
}

// Error returns the error message.
func (e *MissingDefaultError) Error() string {
	return fmt.Sprintf("table %s: output column %q was not produced and has no default", e.TableID, e.ColumnID)
}

// MissingInputError indicates the caller did not supply a binding for a
// declared input column.
type MissingInputError struct {
	ColumnID string
}

// Error returns the error message.
func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing input binding for column %q", e.ColumnID)
}

// TypeMismatchError indicates a bound or condition value could not be
// interpreted as the column's declared type.
type TypeMismatchError struct {
	Expected ValueType
	Value    any
}

// Error returns the error message.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("value %v (%T) is not a valid %s", e.Value, e.Value, e.Expected)
}
