// Package filter implements the metadata predicate expression language of
// metadata predicates: parsing, evaluation, selectivity estimation, and the
// PostFilter/PreFilter/Hybrid strategy selector.
package filter

import "github.com/evecdb/evec/internal/meta"

// CmpOp is a scalar comparison operator.
type CmpOp int

const (
	Eq CmpOp = iota
	Neq
	Lt
	Lte
	Gt
	Gte
)

// StrOp is a string-specific predicate operator.
type StrOp int

const (
	Contains StrOp = iota
	StartsWith
	EndsWith
)

// Expr is the sealed expression AST. Every concrete type below
// implements it.
type Expr interface {
	exprNode()
}

// Literal is a constant boolean, produced directly or by simplification.
type Literal struct{ Value bool }

// FieldCmp compares a metadata field against a literal value.
type FieldCmp struct {
	Field string
	Op    CmpOp
	Value meta.Value
}

// Between is `field BETWEEN lo AND hi`.
type Between struct {
	Field  string
	Lo, Hi meta.Value
}

// In is `field IN [...]`.
type In struct {
	Field  string
	Values []meta.Value
}

// StringOp is CONTAINS / STARTS_WITH / ENDS_WITH.
type StringOp struct {
	Field string
	Op    StrOp
	Value string
}

// NullTest is IS NULL / IS NOT NULL.
type NullTest struct {
	Field    string
	IsNull   bool
}

// And, Or, Not are the logical combinators.
type And struct{ Left, Right Expr }
type Or struct{ Left, Right Expr }
type Not struct{ Inner Expr }

func (*Literal) exprNode()  {}
func (*FieldCmp) exprNode() {}
func (*Between) exprNode()  {}
func (*In) exprNode()       {}
func (*StringOp) exprNode() {}
func (*NullTest) exprNode() {}
func (*And) exprNode()      {}
func (*Or) exprNode()       {}
func (*Not) exprNode()      {}
