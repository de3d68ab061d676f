package document

import (
	"encoding/json"
	"sort"
	"strings"

	"quarry"
)

// Sort orders docs in place by the given keys: compare by the first
// key, on tie the next, and so on. The sort is stable, so records that
// tie on every key keep their pre-sort relative order. A null or
// missing value sorts before any present value ascending and after it
// descending.
func Sort(docs []Doc, orders []quarry.Order) {
	if len(orders) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return compareDocs(docs[i], docs[j], orders) < 0
	})
}

// Apply runs the full query pipeline over docs: filter, then sort,
// then offset, then limit. A nil query selects everything. Negative
// offsets and limits are treated as zero. The input slice is not
// modified.
func Apply(docs []Doc, q *quarry.Query) ([]Doc, error) {
	if q == nil {
		q = quarry.NewQuery()
	}

	selected := make([]Doc, 0, len(docs))
	for _, doc := range docs {
		ok, err := Matches(doc, q.Filter)
		if err != nil {
			return nil, err
		}
		if ok {
			selected = append(selected, doc)
		}
	}

	Sort(selected, q.Order)

	if q.Offset != nil && *q.Offset > 0 {
		if *q.Offset >= len(selected) {
			return nil, nil
		}
		selected = selected[*q.Offset:]
	}
	if q.Limit != nil {
		if n := max(*q.Limit, 0); n < len(selected) {
			selected = selected[:n]
		}
	}
	return selected, nil
}

func compareDocs(a, b Doc, orders []quarry.Order) int {
	for _, order := range orders {
		r := compareValues(a[order.Field], b[order.Field])
		if order.Desc {
			r = -r
		}
		if r != 0 {
			return r
		}
	}
	return 0
}

// compareValues orders two document values of the same kind. Nulls
// sort first; values of mismatched or unordered kinds compare equal,
// preserving input order under the stable sort.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case json.Number:
		if bv, ok := b.(json.Number); ok {
			af, aerr := av.Float64()
			bf, berr := bv.Float64()
			if aerr == nil && berr == nil {
				return compareOrdered(af, bf)
			}
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return compareBool(av, bv)
		}
	}
	return 0
}
