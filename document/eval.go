package document

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"quarry"
)

// Matches reports whether the document satisfies the filter.
//
// An absent field matches IsNone and fails every other predicate; a
// present-but-null field fails every predicate except IsNone. A field
// whose stored value cannot be read in the operator's kind is a
// *quarry.FieldTypeError, never a silent non-match. A nil filter
// matches everything.
func Matches(doc Doc, f quarry.F) (bool, error) {
	switch node := f.(type) {
	case nil:
		return true, nil
	case quarry.And:
		for _, child := range node {
			ok, err := Matches(doc, child)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case quarry.Or:
		for _, child := range node {
			ok, err := Matches(doc, child)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case quarry.Not:
		ok, err := Matches(doc, node.Child)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case quarry.IsNone:
		val, present := doc[node.Field]
		return !present || val == nil, nil
	case quarry.Cond:
		val, present := doc[node.Field]
		if !present || val == nil {
			return false, nil
		}
		return matchCond(node.Field, val, node.Op)
	default:
		return false, quarry.ErrInvalidQuery
	}
}

// ValidateFields walks the filter and reports an
// *quarry.UnknownFieldError for the first field not present in the
// declared set. Backends that require explicitly declared fields call
// it before evaluation.
func ValidateFields(f quarry.F, declared map[string]struct{}) error {
	switch node := f.(type) {
	case nil:
		return nil
	case quarry.And:
		for _, child := range node {
			if err := ValidateFields(child, declared); err != nil {
				return err
			}
		}
	case quarry.Or:
		for _, child := range node {
			if err := ValidateFields(child, declared); err != nil {
				return err
			}
		}
	case quarry.Not:
		return ValidateFields(node.Child, declared)
	case quarry.IsNone:
		if _, ok := declared[node.Field]; !ok {
			return quarry.NewUnknownFieldError(node.Field)
		}
	case quarry.Cond:
		if _, ok := declared[node.Field]; !ok {
			return quarry.NewUnknownFieldError(node.Field)
		}
	}
	return nil
}

func matchCond(field string, val any, op quarry.Op) (bool, error) {
	switch o := op.(type) {
	case quarry.Compare[string]:
		got, err := asString(field, val)
		if err != nil {
			return false, err
		}
		return cmpHolds(o.Cmp, strings.Compare(got, o.Arg)), nil
	case quarry.Compare[int64]:
		got, err := asInt(field, val)
		if err != nil {
			return false, err
		}
		return cmpHolds(o.Cmp, compareOrdered(got, o.Arg)), nil
	case quarry.Compare[float64]:
		got, err := asFloat(field, val)
		if err != nil {
			return false, err
		}
		return cmpHolds(o.Cmp, compareOrdered(got, o.Arg)), nil
	case quarry.Compare[bool]:
		got, err := asBool(field, val)
		if err != nil {
			return false, err
		}
		return cmpHolds(o.Cmp, compareBool(got, o.Arg)), nil
	case quarry.Compare[time.Time]:
		got, err := asTime(field, val)
		if err != nil {
			return false, err
		}
		return cmpHolds(o.Cmp, got.Compare(o.Arg)), nil
	case quarry.Compare[uuid.UUID]:
		got, err := asUUID(field, val)
		if err != nil {
			return false, err
		}
		return cmpHolds(o.Cmp, strings.Compare(got.String(), o.Arg.String())), nil
	case quarry.Compare[*apd.Decimal]:
		got, err := asDecimal(field, val)
		if err != nil {
			return false, err
		}
		return cmpHolds(o.Cmp, got.Cmp(o.Arg)), nil
	case quarry.Between:
		got, err := asInt(field, val)
		if err != nil {
			return false, err
		}
		return o.Lo <= got && got <= o.Hi, nil
	case quarry.In[string]:
		got, err := asString(field, val)
		if err != nil {
			return false, err
		}
		for _, arg := range o.Args {
			if got == arg {
				return true, nil
			}
		}
		return false, nil
	case quarry.In[int64]:
		got, err := asInt(field, val)
		if err != nil {
			return false, err
		}
		for _, arg := range o.Args {
			if got == arg {
				return true, nil
			}
		}
		return false, nil
	case quarry.In[uuid.UUID]:
		got, err := asUUID(field, val)
		if err != nil {
			return false, err
		}
		for _, arg := range o.Args {
			if got == arg {
				return true, nil
			}
		}
		return false, nil
	case quarry.Pattern:
		got, err := asString(field, val)
		if err != nil {
			return false, err
		}
		switch o.Match {
		case quarry.MatchPrefix:
			return strings.HasPrefix(got, o.Arg), nil
		case quarry.MatchSuffix:
			return strings.HasSuffix(got, o.Arg), nil
		default:
			return strings.Contains(got, o.Arg), nil
		}
	default:
		return false, quarry.ErrInvalidQuery
	}
}

func cmpHolds(c quarry.Cmp, r int) bool {
	switch c {
	case quarry.CmpEq:
		return r == 0
	case quarry.CmpNe:
		return r != 0
	case quarry.CmpLt:
		return r < 0
	case quarry.CmpGt:
		return r > 0
	case quarry.CmpLte:
		return r <= 0
	default:
		return r >= 0
	}
}

func compareOrdered[V int64 | float64](a, b V) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case b:
		return -1
	default:
		return 1
	}
}

// Kind extraction. Timestamps, UUIDs and decimals travel as strings in
// the document representation; integers and floats as json.Number.

func asString(field string, val any) (string, error) {
	s, ok := val.(string)
	if !ok {
		return "", quarry.NewFieldTypeError(field, "string", val)
	}
	return s, nil
}

func asInt(field string, val any) (int64, error) {
	num, ok := val.(json.Number)
	if !ok {
		return 0, quarry.NewFieldTypeError(field, "integer", val)
	}
	n, err := num.Int64()
	if err != nil {
		return 0, quarry.NewFieldTypeError(field, "integer", val)
	}
	return n, nil
}

func asFloat(field string, val any) (float64, error) {
	num, ok := val.(json.Number)
	if !ok {
		return 0, quarry.NewFieldTypeError(field, "float", val)
	}
	n, err := num.Float64()
	if err != nil {
		return 0, quarry.NewFieldTypeError(field, "float", val)
	}
	return n, nil
}

func asBool(field string, val any) (bool, error) {
	b, ok := val.(bool)
	if !ok {
		return false, quarry.NewFieldTypeError(field, "bool", val)
	}
	return b, nil
}

func asTime(field string, val any) (time.Time, error) {
	s, ok := val.(string)
	if !ok {
		return time.Time{}, quarry.NewFieldTypeError(field, "timestamp", val)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, quarry.NewFieldTypeError(field, "timestamp", val)
	}
	return t, nil
}

func asUUID(field string, val any) (uuid.UUID, error) {
	s, ok := val.(string)
	if !ok {
		return uuid.UUID{}, quarry.NewFieldTypeError(field, "uuid", val)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, quarry.NewFieldTypeError(field, "uuid", val)
	}
	return id, nil
}

func asDecimal(field string, val any) (*apd.Decimal, error) {
	var text string
	switch v := val.(type) {
	case string:
		text = v
	case json.Number:
		text = v.String()
	default:
		return nil, quarry.NewFieldTypeError(field, "decimal", val)
	}
	d, _, err := apd.NewFromString(text)
	if err != nil {
		return nil, quarry.NewFieldTypeError(field, "decimal", val)
	}
	return d, nil
}
