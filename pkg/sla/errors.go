package sla

import (
	"errors"
	"fmt"
)

// ErrDefinitionNotFound indicates the requested SLA definition is not
// known to the registry.
var ErrDefinitionNotFound = errors.New("sla definition not found")

// ErrInstanceClosed indicates a mutation was attempted on an instance
// whose tracked sides have all left pending. Closed instances are
// immutable.
var ErrInstanceClosed = errors.New("sla instance is closed")

// ConfigurationError indicates a malformed SLA definition: a bad
// calendar, a non-ascending escalation ladder, or missing budgets. It is
// detected eagerly at load time and is fatal until an operator fixes the
// definition.
type ConfigurationError struct {
	DefinitionID string
	Detail       string
}

// Error returns the error message.
func (e *ConfigurationError) Error() string {
	if e.DefinitionID == "" {
		return fmt.Sprintf("sla definition configuration error: %s", e.Detail)
	}
	return fmt.Sprintf("sla definition %s: configuration error: %s", e.DefinitionID, e.Detail)
}
