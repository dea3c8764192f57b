package decision

import (
	"log/slog"
)

// Evaluator applies decision tables to input bindings. It is stateless and
// safe for concurrent use.
type Evaluator struct {
	logger *slog.Logger
}

// NewEvaluator creates a new evaluator.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		logger: logger.With("component", "decision.evaluator"),
	}
}

// Evaluate applies the table's rule set to the bindings and resolves the
// matching rules per the table's hit policy.
//
// Every declared input column must have a binding; a missing binding is an
// EvaluationError. Rules are scanned in explicit order, falling back to
// declaration order. The returned result always carries the ids of all
// matched rules for the caller's audit record.
func (e *Evaluator) Evaluate(table *Table, bindings Bindings) (*Result, error) {
	for _, col := range table.Inputs {
		if _, ok := bindings[col.ID]; !ok {
			return nil, &EvaluationError{
				TableID:  table.ID,
				ColumnID: col.ID,
				Cause:    &MissingInputError{ColumnID: col.ID},
			}
		}
	}

	rules := table.orderedRules()
	var matched []Rule
	for _, rule := range rules {
		ok, err := e.ruleMatches(table, rule, bindings)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		matched = append(matched, rule)

		// FIRST stops scanning at the earliest match; every other policy
		// needs the full match set.
		if table.Policy == HitPolicyFirst {
			break
		}
	}

	matchedIDs := make([]string, 0, len(matched))
	for _, rule := range matched {
		matchedIDs = append(matchedIDs, rule.ID)
	}

	result, err := resolveHitPolicy(table, matched)
	if err != nil {
		return nil, err
	}
	result.MatchedRuleIDs = matchedIDs

	e.logger.Debug("decision table evaluated",
		"table_id", table.ID,
		"hit_policy", table.Policy,
		"matched_rules", len(matchedIDs),
	)

	return result, nil
}

// ruleMatches reports whether every declared condition in the rule matches
// its bound value.
func (e *Evaluator) ruleMatches(table *Table, rule Rule, bindings Bindings) (bool, error) {
	for colID, cond := range rule.When {
		col, ok := table.inputColumn(colID)
		if !ok {
			// Validate catches this at load time; guard anyway for tables
			// that bypassed validation.
			return false, &EvaluationError{
				TableID:  table.ID,
				RuleID:   rule.ID,
				ColumnID: colID,
				Cause:    &MissingInputError{ColumnID: colID},
			}
		}
		matched, err := matchCondition(col, cond, bindings[colID])
		if err != nil {
			return false, &EvaluationError{
				TableID:  table.ID,
				RuleID:   rule.ID,
				ColumnID: colID,
				Cause:    err,
			}
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

// resolveHitPolicy dispatches to the per-policy resolver.
func resolveHitPolicy(table *Table, matched []Rule) (*Result, error) {
	switch table.Policy {
	case HitPolicyFirst:
		return resolveFirst(table, matched)
	case HitPolicyUnique:
		return resolveUnique(table, matched)
	case HitPolicyAny:
		return resolveAny(table, matched)
	case HitPolicyCollect:
		return resolveCollect(table, matched)
	case HitPolicyRuleOrder:
		return resolveRuleOrder(table, matched)
	default:
		return nil, &ConfigurationError{TableID: table.ID, Detail: "unknown hit policy " + string(table.Policy)}
	}
}

// resolveFirst takes the earliest match's outputs, falling back to column
// defaults for anything the rule did not set.
func resolveFirst(table *Table, matched []Rule) (*Result, error) {
	var then map[string]any
	if len(matched) > 0 {
		then = matched[0].Then
	}
	outputs, err := fillDefaults(table, then)
	if err != nil {
		return nil, err
	}
	return &Result{Outputs: outputs}, nil
}

// resolveUnique requires at most one match; zero matches fall through to
// the output defaults.
func resolveUnique(table *Table, matched []Rule) (*Result, error) {
	if len(matched) > 1 {
		return nil, &AmbiguousMatchError{
			TableID: table.ID,
			Policy:  HitPolicyUnique,
			RuleIDs: ruleIDs(matched),
		}
	}
	var then map[string]any
	if len(matched) == 1 {
		then = matched[0].Then
	}
	outputs, err := fillDefaults(table, then)
	if err != nil {
		return nil, err
	}
	return &Result{Outputs: outputs}, nil
}

// resolveAny allows multiple matches that agree, value for value, on every
// output column after defaults are applied.
func resolveAny(table *Table, matched []Rule) (*Result, error) {
	if len(matched) == 0 {
		outputs, err := fillDefaults(table, nil)
		if err != nil {
			return nil, err
		}
		return &Result{Outputs: outputs}, nil
	}

	first, err := fillDefaults(table, matched[0].Then)
	if err != nil {
		return nil, err
	}
	for _, rule := range matched[1:] {
		record, err := fillDefaults(table, rule.Then)
		if err != nil {
			return nil, err
		}
		for _, col := range table.Outputs {
			eq, err := valuesEqual(col.Type, first[col.ID], record[col.ID])
			if err != nil {
				return nil, &EvaluationError{TableID: table.ID, RuleID: rule.ID, ColumnID: col.ID, Cause: err}
			}
			if !eq {
				return nil, &AmbiguousMatchError{
					TableID:  table.ID,
					Policy:   HitPolicyAny,
					RuleIDs:  ruleIDs(matched),
					ColumnID: col.ID,
				}
			}
		}
	}
	return &Result{Outputs: first}, nil
}

// resolveCollect aggregates each output column independently across all
// matching rules: numbers sum, booleans OR, everything else collects the
// distinct values observed in order of first appearance.
func resolveCollect(table *Table, matched []Rule) (*Result, error) {
	outputs := make(map[string]any, len(table.Outputs))
	for _, col := range table.Outputs {
		var observed []any
		for _, rule := range matched {
			if v, ok := rule.Then[col.ID]; ok {
				observed = append(observed, v)
			}
		}
		if len(observed) == 0 {
			if col.Default == nil {
				return nil, &MissingDefaultError{TableID: table.ID, ColumnID: col.ID}
			}
			outputs[col.ID] = col.Default
			continue
		}

		switch col.Type {
		case TypeNumber:
			var sum float64
			for _, v := range observed {
				n, err := coerceNumber(v)
				if err != nil {
					return nil, &EvaluationError{TableID: table.ID, ColumnID: col.ID, Cause: err}
				}
				sum += n
			}
			outputs[col.ID] = sum

		case TypeBoolean:
			agg := false
			for _, v := range observed {
				b, err := coerceBool(v)
				if err != nil {
					return nil, &EvaluationError{TableID: table.ID, ColumnID: col.ID, Cause: err}
				}
				agg = agg || b
			}
			outputs[col.ID] = agg

		default:
			var distinct []any
			for _, v := range observed {
				dup := false
				for _, seen := range distinct {
					eq, err := valuesEqual(col.Type, v, seen)
					if err != nil {
						return nil, &EvaluationError{TableID: table.ID, ColumnID: col.ID, Cause: err}
					}
					if eq {
						dup = true
						break
					}
				}
				if !dup {
					distinct = append(distinct, v)
				}
			}
			outputs[col.ID] = distinct
		}
	}
	return &Result{Outputs: outputs}, nil
}

// resolveRuleOrder returns the full output record of every matching rule,
// each filled with declared defaults for columns the rule did not set.
// Zero matches yield an empty record list.
func resolveRuleOrder(table *Table, matched []Rule) (*Result, error) {
	records := make([]map[string]any, 0, len(matched))
	for _, rule := range matched {
		record := make(map[string]any, len(table.Outputs))
		for _, col := range table.Outputs {
			if v, ok := rule.Then[col.ID]; ok {
				record[col.ID] = v
			} else if col.Default != nil {
				record[col.ID] = col.Default
			}
		}
		records = append(records, record)
	}
	return &Result{Records: records}, nil
}

// fillDefaults builds a full output record from a rule's outputs, applying
// declared defaults for unset columns. A column left unset with no default
// is a MissingDefaultError.
func fillDefaults(table *Table, then map[string]any) (map[string]any, error) {
	outputs := make(map[string]any, len(table.Outputs))
	for _, col := range table.Outputs {
		if v, ok := then[col.ID]; ok {
			outputs[col.ID] = v
			continue
		}
		if col.Default == nil {
			return nil, &MissingDefaultError{TableID: table.ID, ColumnID: col.ID}
		}
		outputs[col.ID] = col.Default
	}
	return outputs, nil
}

// ruleIDs extracts rule ids in order.
func ruleIDs(rules []Rule) []string {
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	return ids
}
