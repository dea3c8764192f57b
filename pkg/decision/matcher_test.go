package decision

import (
	"errors"
	"testing"
	"time"
)

// TestMatchCondition_Operators tests operator matching across column types
func TestMatchCondition_Operators(t *testing.T) {
	tests := []struct {
		name      string
		colType   ValueType
		cond      Condition
		bound     any
		wantMatch bool
		wantError bool
	}{
		{
			name:      "wildcard matches anything",
			colType:   TypeString,
			cond:      Condition{Operator: OpWildcard},
			bound:     "whatever",
			wantMatch: true,
		},
		{
			name:      "wildcard matches nil",
			colType:   TypeString,
			cond:      Condition{Operator: OpWildcard},
			bound:     nil,
			wantMatch: true,
		},
		{
			name:      "equals - string exact",
			colType:   TypeString,
			cond:      Condition{Operator: OpEquals, Value: "critical"},
			bound:     "critical",
			wantMatch: true,
		},
		{
			name:      "equals - string case sensitive",
			colType:   TypeString,
			cond:      Condition{Operator: OpEquals, Value: "critical"},
			bound:     "Critical",
			wantMatch: false,
		},
		{
			name:      "equals - int binding against float condition",
			colType:   TypeNumber,
			cond:      Condition{Operator: OpEquals, Value: 42.0},
			bound:     42,
			wantMatch: true,
		},
		{
			name:      "not_equals",
			colType:   TypeString,
			cond:      Condition{Operator: OpNotEquals, Value: "low"},
			bound:     "high",
			wantMatch: true,
		},
		{
			name:      "greater_than strict",
			colType:   TypeNumber,
			cond:      Condition{Operator: OpGreaterThan, Value: 100},
			bound:     100,
			wantMatch: false,
		},
		{
			name:      "greater_or_equal at boundary",
			colType:   TypeNumber,
			cond:      Condition{Operator: OpGreaterOrEqual, Value: 100},
			bound:     100,
			wantMatch: true,
		},
		{
			name:      "less_than",
			colType:   TypeNumber,
			cond:      Condition{Operator: OpLessThan, Value: 10},
			bound:     3,
			wantMatch: true,
		},
		{
			name:      "less_or_equal",
			colType:   TypeNumber,
			cond:      Condition{Operator: OpLessOrEqual, Value: 10},
			bound:     11,
			wantMatch: false,
		},
		{
			name:      "between closed interval - lower bound",
			colType:   TypeNumber,
			cond:      Condition{Operator: OpBetween, Value: 10, High: 20},
			bound:     10,
			wantMatch: true,
		},
		{
			name:      "between closed interval - upper bound",
			colType:   TypeNumber,
			cond:      Condition{Operator: OpBetween, Value: 10, High: 20},
			bound:     20,
			wantMatch: true,
		},
		{
			name:      "between outside",
			colType:   TypeNumber,
			cond:      Condition{Operator: OpBetween, Value: 10, High: 20},
			bound:     21,
			wantMatch: false,
		},
		{
			name:      "in set",
			colType:   TypeString,
			cond:      Condition{Operator: OpInSet, Value: []any{"gold", "platinum"}},
			bound:     "gold",
			wantMatch: true,
		},
		{
			name:      "not_in set",
			colType:   TypeString,
			cond:      Condition{Operator: OpNotInSet, Value: []any{"gold", "platinum"}},
			bound:     "silver",
			wantMatch: true,
		},
		{
			name:      "contains - substring",
			colType:   TypeString,
			cond:      Condition{Operator: OpContains, Value: "urgent"},
			bound:     "this is urgent please",
			wantMatch: true,
		},
		{
			name:      "contains - bound collection element",
			colType:   TypeString,
			cond:      Condition{Operator: OpContains, Value: "vip"},
			bound:     []any{"vip", "beta"},
			wantMatch: true,
		},
		{
			name:      "not_contains",
			colType:   TypeString,
			cond:      Condition{Operator: OpNotContains, Value: "spam"},
			bound:     "regular message",
			wantMatch: true,
		},
		{
			name:      "is_empty - nil",
			colType:   TypeString,
			cond:      Condition{Operator: OpIsEmpty},
			bound:     nil,
			wantMatch: true,
		},
		{
			name:      "is_empty - empty string",
			colType:   TypeString,
			cond:      Condition{Operator: OpIsEmpty},
			bound:     "",
			wantMatch: true,
		},
		{
			name:      "is_empty - empty slice",
			colType:   TypeString,
			cond:      Condition{Operator: OpIsEmpty},
			bound:     []any{},
			wantMatch: true,
		},
		{
			name:      "is_not_empty",
			colType:   TypeString,
			cond:      Condition{Operator: OpIsNotEmpty},
			bound:     "x",
			wantMatch: true,
		},
		{
			name:      "date greater_than with RFC 3339 strings",
			colType:   TypeDate,
			cond:      Condition{Operator: OpGreaterThan, Value: "2026-01-01T00:00:00Z"},
			bound:     "2026-06-15T12:00:00Z",
			wantMatch: true,
		},
		{
			name:      "date equals - time.Time binding",
			colType:   TypeDate,
			cond:      Condition{Operator: OpEquals, Value: "2026-03-01T09:00:00Z"},
			bound:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			wantMatch: true,
		},
		{
			name:      "type mismatch - number column with string binding",
			colType:   TypeNumber,
			cond:      Condition{Operator: OpGreaterThan, Value: 10},
			bound:     "not a number",
			wantError: true,
		},
		{
			name:      "type mismatch - string column with number binding",
			colType:   TypeString,
			cond:      Condition{Operator: OpEquals, Value: "abc"},
			bound:     42,
			wantError: true,
		},
		{
			name:      "type mismatch - bad date string",
			colType:   TypeDate,
			cond:      Condition{Operator: OpEquals, Value: "2026-01-01T00:00:00Z"},
			bound:     "yesterday",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := InputColumn{ID: "col", Type: tt.colType}
			got, err := matchCondition(col, tt.cond, tt.bound)
			if tt.wantError {
				if err == nil {
					t.Fatalf("matchCondition() expected error, got match=%v", got)
				}
				var mismatch *TypeMismatchError
				if !errors.As(err, &mismatch) {
					t.Errorf("matchCondition() error = %v, want TypeMismatchError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("matchCondition() unexpected error: %v", err)
			}
			if got != tt.wantMatch {
				t.Errorf("matchCondition() = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}

// TestConditionValidate tests condition shape checking at load time
func TestConditionValidate(t *testing.T) {
	tests := []struct {
		name      string
		colType   ValueType
		cond      Condition
		wantError bool
	}{
		{
			name:    "valid equals",
			colType: TypeString,
			cond:    Condition{Operator: OpEquals, Value: "x"},
		},
		{
			name:      "unknown operator",
			colType:   TypeString,
			cond:      Condition{Operator: "regex", Value: ".*"},
			wantError: true,
		},
		{
			name:      "ordering operator on string column",
			colType:   TypeString,
			cond:      Condition{Operator: OpGreaterThan, Value: "x"},
			wantError: true,
		},
		{
			name:    "ordering operator on date column",
			colType: TypeDate,
			cond:    Condition{Operator: OpLessThan, Value: "2026-01-01T00:00:00Z"},
		},
		{
			name:      "between without high",
			colType:   TypeNumber,
			cond:      Condition{Operator: OpBetween, Value: 1},
			wantError: true,
		},
		{
			name:      "in without collection",
			colType:   TypeString,
			cond:      Condition{Operator: OpInSet, Value: "not-a-list"},
			wantError: true,
		},
		{
			name:      "equals without value",
			colType:   TypeString,
			cond:      Condition{Operator: OpEquals},
			wantError: true,
		},
		{
			name:    "wildcard needs no value",
			colType: TypeString,
			cond:    Condition{Operator: OpWildcard},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cond.validate(tt.colType)
			if (err != nil) != tt.wantError {
				t.Errorf("validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}
