package decision

import (
	"fmt"
	"sort"
)

// ValueType is the semantic type of a table column.
type ValueType string

const (
	// TypeString is an exact-byte compared string column.
	TypeString ValueType = "string"

	// TypeNumber is a numeric column, compared as float64.
	TypeNumber ValueType = "number"

	// TypeBoolean is a boolean column.
	TypeBoolean ValueType = "boolean"

	// TypeDate is a timestamp column. Bound values may be time.Time or
	// RFC 3339 strings.
	TypeDate ValueType = "date"
)

// Valid reports whether the value type is one of the declared types.
func (t ValueType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeDate:
		return true
	}
	return false
}

// HitPolicy determines how multiple matching rules are combined into a
// final output.
type HitPolicy string

const (
	// HitPolicyFirst returns the outputs of the earliest-ordered matching
	// rule and stops scanning.
	HitPolicyFirst HitPolicy = "FIRST"

	// HitPolicyUnique requires exactly one matching rule. More than one
	// match is an AmbiguousMatchError; zero matches fall through to the
	// output defaults.
	HitPolicyUnique HitPolicy = "UNIQUE"

	// HitPolicyAny allows multiple matching rules as long as they agree,
	// value for value, on every output column.
	HitPolicyAny HitPolicy = "ANY"

	// HitPolicyCollect aggregates outputs across all matching rules:
	// numeric columns sum, boolean columns OR, other types collect the
	// distinct values observed in order of first appearance.
	HitPolicyCollect HitPolicy = "COLLECT"

	// HitPolicyRuleOrder returns the full output record of every matching
	// rule, in rule order.
	HitPolicyRuleOrder HitPolicy = "RULE_ORDER"
)

// Valid reports whether the hit policy is one of the declared policies.
func (p HitPolicy) Valid() bool {
	switch p {
	case HitPolicyFirst, HitPolicyUnique, HitPolicyAny, HitPolicyCollect, HitPolicyRuleOrder:
		return true
	}
	return false
}

// InputColumn declares a typed input of a decision table.
type InputColumn struct {
	// ID is the column identifier referenced by rule conditions and by
	// input bindings.
	ID string `yaml:"id"`

	// Type is the semantic type of values bound to this column.
	Type ValueType `yaml:"type"`
}

// OutputColumn declares a typed output of a decision table.
type OutputColumn struct {
	// ID is the column identifier referenced by rule outputs.
	ID string `yaml:"id"`

	// Type is the semantic type of values produced for this column.
	Type ValueType `yaml:"type"`

	// Default is the value used when the resolved result did not set this
	// column. A nil default means the column has no default: leaving it
	// unset is a MissingDefaultError for all hit policies except
	// RULE_ORDER.
	Default any `yaml:"default"`
}

// Rule is a single row of a decision table.
type Rule struct {
	// ID identifies the rule in evaluation results and error messages.
	ID string `yaml:"id"`

	// Order is the explicit evaluation order. Rules are sorted by Order
	// ascending; rules with equal Order keep their declaration order.
	// Omitted Order is zero.
	Order int `yaml:"order"`

	// When maps input column ids to conditions. A column absent from the
	// map is a wildcard and always matches.
	When map[string]Condition `yaml:"when"`

	// Then maps output column ids to literal output values.
	Then map[string]any `yaml:"then"`
}

// Table is a validated decision table. Tables are immutable after
// Validate; evaluation never mutates them.
type Table struct {
	// ID identifies the table to callers of the evaluator.
	ID string `yaml:"id"`

	// WorkspaceID is the owning workspace.
	WorkspaceID string `yaml:"workspace_id"`

	// Inputs are the declared input columns, in declaration order.
	Inputs []InputColumn `yaml:"inputs"`

	// Outputs are the declared output columns, in declaration order.
	Outputs []OutputColumn `yaml:"outputs"`

	// Policy is the hit policy applied to matching rules.
	Policy HitPolicy `yaml:"hit_policy"`

	// Rules are the table rows, in declaration order.
	Rules []Rule `yaml:"rules"`
}

// Bindings maps input column ids to live field values supplied by the
// caller. Values must be string, numeric, bool, or time.Time / RFC 3339
// strings according to the declared column types.
type Bindings map[string]any

// Result is the outcome of evaluating a table against input bindings.
type Result struct {
	// Outputs maps output column ids to resolved values. Nil for
	// RULE_ORDER tables; see Records.
	Outputs map[string]any

	// Records holds the ordered per-rule output records for RULE_ORDER
	// tables. Nil for all other hit policies.
	Records []map[string]any

	// MatchedRuleIDs lists the ids of all rules that matched, in rule
	// order. Possibly empty. Callers persist this as the evaluation
	// audit record.
	MatchedRuleIDs []string
}

// Validate checks the table for configuration errors: unknown hit policy
// or column types, duplicate column ids, rule conditions or outputs that
// reference undeclared columns, and malformed conditions. It is called
// eagerly at load time so that misconfiguration surfaces before the table
// is ever evaluated.
func (t *Table) Validate() error {
	if t.ID == "" {
		return &ConfigurationError{TableID: t.ID, Detail: "table id is required"}
	}
	if !t.Policy.Valid() {
		return &ConfigurationError{TableID: t.ID, Detail: fmt.Sprintf("unknown hit policy %q", t.Policy)}
	}

	inputs := make(map[string]InputColumn, len(t.Inputs))
	for _, col := range t.Inputs {
		if col.ID == "" {
			return &ConfigurationError{TableID: t.ID, Detail: "input column with empty id"}
		}
		if !col.Type.Valid() {
			return &ConfigurationError{TableID: t.ID, Detail: fmt.Sprintf("input column %q has unknown type %q", col.ID, col.Type)}
		}
		if _, dup := inputs[col.ID]; dup {
			return &ConfigurationError{TableID: t.ID, Detail: fmt.Sprintf("duplicate input column %q", col.ID)}
		}
		inputs[col.ID] = col
	}

	outputs := make(map[string]OutputColumn, len(t.Outputs))
	for _, col := range t.Outputs {
		if col.ID == "" {
			return &ConfigurationError{TableID: t.ID, Detail: "output column with empty id"}
		}
		if !col.Type.Valid() {
			return &ConfigurationError{TableID: t.ID, Detail: fmt.Sprintf("output column %q has unknown type %q", col.ID, col.Type)}
		}
		if _, dup := outputs[col.ID]; dup {
			return &ConfigurationError{TableID: t.ID, Detail: fmt.Sprintf("duplicate output column %q", col.ID)}
		}
		outputs[col.ID] = col
	}

	ruleIDs := make(map[string]struct{}, len(t.Rules))
	for i, rule := range t.Rules {
		if rule.ID == "" {
			return &ConfigurationError{TableID: t.ID, Detail: fmt.Sprintf("rule at index %d has empty id", i)}
		}
		if _, dup := ruleIDs[rule.ID]; dup {
			return &ConfigurationError{TableID: t.ID, Detail: fmt.Sprintf("duplicate rule id %q", rule.ID)}
		}
		ruleIDs[rule.ID] = struct{}{}

		for colID, cond := range rule.When {
			col, ok := inputs[colID]
			if !ok {
				return &ConfigurationError{TableID: t.ID, Detail: fmt.Sprintf("rule %q references undeclared input column %q", rule.ID, colID)}
			}
			if err := cond.validate(col.Type); err != nil {
				return &ConfigurationError{
					TableID: t.ID,
					Detail:  fmt.Sprintf("rule %q, input column %q: %v", rule.ID, colID, err),
				}
			}
		}
		for colID := range rule.Then {
			if _, ok := outputs[colID]; !ok {
				return &ConfigurationError{TableID: t.ID, Detail: fmt.Sprintf("rule %q references undeclared output column %q", rule.ID, colID)}
			}
		}
	}

	return nil
}

// orderedRules returns the rules sorted by explicit Order, preserving
// declaration order among equal Order values.
func (t *Table) orderedRules() []Rule {
	rules := make([]Rule, len(t.Rules))
	copy(rules, t.Rules)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Order < rules[j].Order
	})
	return rules
}

// inputColumn returns the declared input column with the given id.
func (t *Table) inputColumn(id string) (InputColumn, bool) {
	for _, col := range t.Inputs {
		if col.ID == id {
			return col, true
		}
	}
	return InputColumn{}, false
}
