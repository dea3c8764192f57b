package decision

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// matchCondition evaluates one condition against one bound input value.
// The column's declared type drives value coercion; a value that cannot be
// coerced is a TypeMismatchError, never a silent non-match.
func matchCondition(col InputColumn, cond Condition, bound any) (bool, error) {
	switch cond.Operator {
	case OpWildcard:
		return true, nil

	case OpIsEmpty:
		return isEmptyValue(bound), nil

	case OpIsNotEmpty:
		return !isEmptyValue(bound), nil

	case OpEquals:
		return valuesEqual(col.Type, bound, cond.Value)

	case OpNotEquals:
		eq, err := valuesEqual(col.Type, bound, cond.Value)
		return !eq, err

	case OpGreaterThan:
		cmp, err := compareValues(col.Type, bound, cond.Value)
		return cmp > 0, err

	case OpGreaterOrEqual:
		cmp, err := compareValues(col.Type, bound, cond.Value)
		return cmp >= 0, err

	case OpLessThan:
		cmp, err := compareValues(col.Type, bound, cond.Value)
		return cmp < 0, err

	case OpLessOrEqual:
		cmp, err := compareValues(col.Type, bound, cond.Value)
		return cmp <= 0, err

	case OpBetween:
		low, err := compareValues(col.Type, bound, cond.Value)
		if err != nil {
			return false, err
		}
		high, err := compareValues(col.Type, bound, cond.High)
		if err != nil {
			return false, err
		}
		return low >= 0 && high <= 0, nil

	case OpInSet:
		return valueInSet(col.Type, bound, cond.Value)

	case OpNotInSet:
		in, err := valueInSet(col.Type, bound, cond.Value)
		return !in, err

	case OpContains:
		return valueContains(col.Type, bound, cond.Value)

	case OpNotContains:
		contains, err := valueContains(col.Type, bound, cond.Value)
		return !contains, err

	default:
		return false, fmt.Errorf("unknown operator: %q", cond.Operator)
	}
}

// isEmptyValue reports whether a bound value is nil, an empty string, or
// an empty collection.
func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	switch val := v.(type) {
	case string:
		return val == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

// valuesEqual compares two values under the column's declared type.
// Strings compare exact-byte, numbers as float64, dates by instant.
func valuesEqual(t ValueType, a, b any) (bool, error) {
	switch t {
	case TypeString:
		as, err := coerceString(a)
		if err != nil {
			return false, err
		}
		bs, err := coerceString(b)
		if err != nil {
			return false, err
		}
		return as == bs, nil

	case TypeNumber:
		an, err := coerceNumber(a)
		if err != nil {
			return false, err
		}
		bn, err := coerceNumber(b)
		if err != nil {
			return false, err
		}
		return an == bn, nil

	case TypeBoolean:
		ab, err := coerceBool(a)
		if err != nil {
			return false, err
		}
		bb, err := coerceBool(b)
		if err != nil {
			return false, err
		}
		return ab == bb, nil

	case TypeDate:
		at, err := coerceTime(a)
		if err != nil {
			return false, err
		}
		bt, err := coerceTime(b)
		if err != nil {
			return false, err
		}
		return at.Equal(bt), nil

	default:
		return false, fmt.Errorf("unknown column type: %q", t)
	}
}

// compareValues orders two values under the column's declared type,
// returning -1, 0 or 1. Only number and date columns are orderable.
func compareValues(t ValueType, a, b any) (int, error) {
	switch t {
	case TypeNumber:
		an, err := coerceNumber(a)
		if err != nil {
			return 0, err
		}
		bn, err := coerceNumber(b)
		if err != nil {
			return 0, err
		}
		switch {
		case an < bn:
			return -1, nil
		case an > bn:
			return 1, nil
		}
		return 0, nil

	case TypeDate:
		at, err := coerceTime(a)
		if err != nil {
			return 0, err
		}
		bt, err := coerceTime(b)
		if err != nil {
			return 0, err
		}
		switch {
		case at.Before(bt):
			return -1, nil
		case at.After(bt):
			return 1, nil
		}
		return 0, nil

	default:
		return 0, &TypeMismatchError{Expected: TypeNumber, Value: a}
	}
}

// valueInSet reports whether the bound value equals any element of the
// condition's collection value.
func valueInSet(t ValueType, bound, set any) (bool, error) {
	rv := reflect.ValueOf(set)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false, fmt.Errorf("in operator requires a collection, got %T", set)
	}
	for i := 0; i < rv.Len(); i++ {
		eq, err := valuesEqual(t, bound, rv.Index(i).Interface())
		if err != nil {
			return false, err
		}
		if eq {
			return true, nil
		}
	}
	return false, nil
}

// valueContains checks substring containment for string columns, or
// element containment when the bound value is itself a collection.
func valueContains(t ValueType, bound, needle any) (bool, error) {
	if rv := reflect.ValueOf(bound); bound != nil && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
		for i := 0; i < rv.Len(); i++ {
			eq, err := valuesEqual(t, rv.Index(i).Interface(), needle)
			if err != nil {
				return false, err
			}
			if eq {
				return true, nil
			}
		}
		return false, nil
	}

	if t != TypeString {
		return false, &TypeMismatchError{Expected: TypeString, Value: bound}
	}
	bs, err := coerceString(bound)
	if err != nil {
		return false, err
	}
	ns, err := coerceString(needle)
	if err != nil {
		return false, err
	}
	return strings.Contains(bs, ns), nil
}

// coerceString accepts string values only. No locale folding, no implicit
// stringification of other types.
func coerceString(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", &TypeMismatchError{Expected: TypeString, Value: v}
}

// coerceNumber converts numeric values to float64 for comparison.
func coerceNumber(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	default:
		return 0, &TypeMismatchError{Expected: TypeNumber, Value: v}
	}
}

// coerceBool accepts bool values only.
func coerceBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, &TypeMismatchError{Expected: TypeBoolean, Value: v}
}

// coerceTime accepts time.Time values and RFC 3339 strings.
func coerceTime(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		t, err := time.Parse(time.RFC3339, val)
		if err != nil {
			return time.Time{}, &TypeMismatchError{Expected: TypeDate, Value: v}
		}
		return t, nil
	default:
		return time.Time{}, &TypeMismatchError{Expected: TypeDate, Value: v}
	}
}

// isCollection reports whether a value is a slice or array.
func isCollection(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}
