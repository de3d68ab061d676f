package quarry

import (
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
)

// Cmp identifies a comparison within an operator family.
type Cmp uint8

const (
	CmpEq Cmp = iota
	CmpNe
	CmpLt
	CmpGt
	CmpLte
	CmpGte
)

// Match identifies a substring match mode for string fields.
type Match uint8

const (
	MatchContains Match = iota
	MatchPrefix
	MatchSuffix
)

// Scalar is the closed set of value kinds an operator can compare
// against. Each operator variant carries its argument with the native
// type, so a kind mismatch between filter and field is detectable at
// evaluation time instead of silently evaluating to false.
type Scalar interface {
	string | int64 | float64 | bool | time.Time | uuid.UUID | *apd.Decimal
}

// Member is the set of kinds usable in set-membership operators.
type Member interface {
	string | int64 | uuid.UUID
}

// Op is a leaf comparison operator. The set of implementations is
// closed; values are built through the filter constructors below.
type Op interface{ isOp() }

// Compare compares a field of kind V against a single argument.
type Compare[V Scalar] struct {
	Cmp Cmp
	Arg V
}

// Between matches integer fields within the closed range [Lo, Hi].
type Between struct {
	Lo, Hi int64
}

// In matches fields whose value is a member of Args.
type In[V Member] struct {
	Args []V
}

// Pattern matches string fields by substring position.
type Pattern struct {
	Match Match
	Arg   string
}

func (Compare[V]) isOp() {}
func (Between) isOp()    {}
func (In[V]) isOp()      {}
func (Pattern) isOp()    {}

// F is a backend-independent boolean filter expression over field
// predicates. A nil F matches every record.
//
// Empty combinators follow boolean algebra: And{} is vacuously true
// and Or{} is vacuously false, in every backend.
type F interface{ isFilter() }

// And matches records that satisfy all child filters.
type And []F

// Or matches records that satisfy at least one child filter.
type Or []F

// Not matches records that do not satisfy the child filter.
type Not struct{ Child F }

// IsNone matches records whose field is absent or null.
type IsNone struct{ Field string }

// Cond is a leaf predicate applying an operator to one field.
type Cond struct {
	Field string
	Op    Op
}

func (And) isFilter()    {}
func (Or) isFilter()     {}
func (Not) isFilter()    {}
func (IsNone) isFilter() {}
func (Cond) isFilter()   {}

// EqArg is the set of argument types accepted by Eq and Ne.
type EqArg interface {
	string | int | int32 | int64 | float32 | float64 | bool | time.Time | uuid.UUID | *apd.Decimal
}

// OrdArg is the set of argument types accepted by the ordered
// comparisons Lt, Gt, Lte and Gte. Strings and booleans have no
// ordering in the filter model.
type OrdArg interface {
	int | int32 | int64 | float32 | float64 | time.Time | *apd.Decimal
}

// InArg is the set of argument types accepted by InSet.
type InArg interface {
	string | int | int32 | int64 | uuid.UUID
}

// Filter constructors. Semantically identical filters produce
// structurally identical trees regardless of construction path, so
// tests may compare them for deep equality.

// Eq matches fields equal to arg.
func Eq[V EqArg](field string, arg V) F {
	return Cond{Field: field, Op: compare(CmpEq, arg)}
}

// Ne matches fields not equal to arg.
func Ne[V EqArg](field string, arg V) F {
	return Cond{Field: field, Op: compare(CmpNe, arg)}
}

// Lt matches fields less than arg.
func Lt[V OrdArg](field string, arg V) F {
	return Cond{Field: field, Op: compare(CmpLt, arg)}
}

// Gt matches fields greater than arg.
func Gt[V OrdArg](field string, arg V) F {
	return Cond{Field: field, Op: compare(CmpGt, arg)}
}

// Lte matches fields less than or equal to arg.
func Lte[V OrdArg](field string, arg V) F {
	return Cond{Field: field, Op: compare(CmpLte, arg)}
}

// Gte matches fields greater than or equal to arg.
func Gte[V OrdArg](field string, arg V) F {
	return Cond{Field: field, Op: compare(CmpGte, arg)}
}

// InRange matches integer fields within the closed range [lo, hi].
func InRange(field string, lo, hi int64) F {
	return Cond{Field: field, Op: Between{Lo: lo, Hi: hi}}
}

// InSet matches fields whose value is one of args.
func InSet[V InArg](field string, args ...V) F {
	return Cond{Field: field, Op: membership(args)}
}

// Contains matches string fields containing arg as a substring.
func Contains(field, arg string) F {
	return Cond{Field: field, Op: Pattern{Match: MatchContains, Arg: arg}}
}

// StartsWith matches string fields beginning with arg.
func StartsWith(field, arg string) F {
	return Cond{Field: field, Op: Pattern{Match: MatchPrefix, Arg: arg}}
}

// EndsWith matches string fields ending with arg.
func EndsWith(field, arg string) F {
	return Cond{Field: field, Op: Pattern{Match: MatchSuffix, Arg: arg}}
}

// None matches records whose field is absent or null.
func None(field string) F {
	return IsNone{Field: field}
}

// compare normalizes the argument to its canonical kind and builds the
// matching Compare variant. Numeric widths collapse to int64/float64 so
// the construction path never changes the tree shape.
func compare(cmp Cmp, arg any) Op {
	switch v := arg.(type) {
	case string:
		return Compare[string]{Cmp: cmp, Arg: v}
	case int:
		return Compare[int64]{Cmp: cmp, Arg: int64(v)}
	case int32:
		return Compare[int64]{Cmp: cmp, Arg: int64(v)}
	case int64:
		return Compare[int64]{Cmp: cmp, Arg: v}
	case float32:
		return Compare[float64]{Cmp: cmp, Arg: float64(v)}
	case float64:
		return Compare[float64]{Cmp: cmp, Arg: v}
	case bool:
		return Compare[bool]{Cmp: cmp, Arg: v}
	case time.Time:
		return Compare[time.Time]{Cmp: cmp, Arg: v}
	case uuid.UUID:
		return Compare[uuid.UUID]{Cmp: cmp, Arg: v}
	case *apd.Decimal:
		return Compare[*apd.Decimal]{Cmp: cmp, Arg: v}
	default:
		// Unreachable: the constructor constraints are exhaustive.
		panic("quarry: unsupported comparison argument")
	}
}

func membership(args any) Op {
	switch vs := args.(type) {
	case []string:
		return In[string]{Args: vs}
	case []int:
		out := make([]int64, len(vs))
		for i, v := range vs {
			out[i] = int64(v)
		}
		return In[int64]{Args: out}
	case []int32:
		out := make([]int64, len(vs))
		for i, v := range vs {
			out[i] = int64(v)
		}
		return In[int64]{Args: out}
	case []int64:
		return In[int64]{Args: vs}
	case []uuid.UUID:
		return In[uuid.UUID]{Args: vs}
	default:
		panic("quarry: unsupported membership argument")
	}
}

// Order defines ordering on a field.
type Order struct {
	Field string
	Desc  bool
}

// Asc orders by field ascending.
func Asc(field string) Order {
	return Order{Field: field}
}

// Desc orders by field descending.
func Desc(field string) Order {
	return Order{Field: field, Desc: true}
}

// Query describes a bounded, ordered result set: an optional filter,
// an ordered list of sort keys, and offset/limit applied strictly
// after filtering and ordering.
type Query struct {
	Filter F
	Limit  *int
	Offset *int
	Order  []Order
}

// NewQuery returns an empty query matching every record.
func NewQuery() *Query {
	return &Query{}
}

// Where returns a query selecting records matching f.
func Where(f F) *Query {
	return &Query{Filter: f}
}

// WithLimit caps the result count.
func (q *Query) WithLimit(n int) *Query {
	q.Limit = &n
	return q
}

// WithOffset skips the first n records after filtering and ordering.
func (q *Query) WithOffset(n int) *Query {
	q.Offset = &n
	return q
}

// OrderBy appends sort keys; earlier keys take precedence.
func (q *Query) OrderBy(orders ...Order) *Query {
	q.Order = append(q.Order, orders...)
	return q
}
