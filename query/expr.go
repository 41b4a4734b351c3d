// Package query implements compact boolean queries over tag containers.
//
// A query is built from an Expr tree and flattened into a token stream
// plus a deduplicated tag dictionary. Evaluation walks the stream
// directly; no tree is rebuilt.
package query

import (
	"fmt"
	"strings"

	"github.com/chazu/gametags/tags"
)

// ExprType identifies one node kind of a query.
type ExprType uint8

const (
	Undefined ExprType = iota
	AnyTagsMatch
	AllTagsMatch
	NoTagsMatch
	AnyExprMatch
	AllExprMatch
	NoExprMatch
)

// String returns a human-readable name for ExprType.
func (t ExprType) String() string {
	switch t {
	case AnyTagsMatch:
		return "AnyTagsMatch"
	case AllTagsMatch:
		return "AllTagsMatch"
	case NoTagsMatch:
		return "NoTagsMatch"
	case AnyExprMatch:
		return "AnyExprMatch"
	case AllExprMatch:
		return "AllExprMatch"
	case NoExprMatch:
		return "NoExprMatch"
	case Undefined:
		return "Undefined"
	default:
		return fmt.Sprintf("ExprType(%d)", t)
	}
}

// UsesTagSet reports whether the kind holds tags rather than
// sub-expressions.
func (t ExprType) UsesTagSet() bool {
	return t == AnyTagsMatch || t == AllTagsMatch || t == NoTagsMatch
}

// UsesExprSet reports whether the kind holds sub-expressions.
func (t ExprType) UsesExprSet() bool {
	return t == AnyExprMatch || t == AllExprMatch || t == NoExprMatch
}

// Expr is one node of a query under construction.
type Expr struct {
	Type  ExprType
	Tags  []tags.Tag
	Exprs []*Expr
}

// AnyTags matches when the subject has any of ts.
func AnyTags(ts ...tags.Tag) *Expr {
	return (&Expr{Type: AnyTagsMatch}).addTags(ts)
}

// AllTags matches when the subject has every one of ts.
func AllTags(ts ...tags.Tag) *Expr {
	return (&Expr{Type: AllTagsMatch}).addTags(ts)
}

// NoTags matches when the subject has none of ts.
func NoTags(ts ...tags.Tag) *Expr {
	return (&Expr{Type: NoTagsMatch}).addTags(ts)
}

// AnyExpr matches when any sub-expression matches.
func AnyExpr(exprs ...*Expr) *Expr {
	return &Expr{Type: AnyExprMatch, Exprs: exprs}
}

// AllExpr matches when every sub-expression matches.
func AllExpr(exprs ...*Expr) *Expr {
	return &Expr{Type: AllExprMatch, Exprs: exprs}
}

// NoExpr matches when no sub-expression matches.
func NoExpr(exprs ...*Expr) *Expr {
	return &Expr{Type: NoExprMatch, Exprs: exprs}
}

func (e *Expr) addTags(ts []tags.Tag) *Expr {
	for _, t := range ts {
		e.AddTag(t)
	}
	return e
}

// AddTag appends a tag to a tag-set expression.
func (e *Expr) AddTag(t tags.Tag) *Expr {
	e.Tags = append(e.Tags, t)
	return e
}

// AddTags appends every tag of c.
func (e *Expr) AddTags(c tags.Container) *Expr {
	return e.addTags(c.Tags())
}

// AddExpr appends a sub-expression to an expression-set expression.
func (e *Expr) AddExpr(sub *Expr) *Expr {
	e.Exprs = append(e.Exprs, sub)
	return e
}

// String renders the expression as ANY(...)/ALL(...)/NONE(...).
func (e *Expr) String() string {
	var sb strings.Builder
	e.write(&sb)
	return sb.String()
}

func (e *Expr) write(sb *strings.Builder) {
	switch e.Type {
	case AnyTagsMatch, AnyExprMatch:
		sb.WriteString("ANY(")
	case AllTagsMatch, AllExprMatch:
		sb.WriteString("ALL(")
	case NoTagsMatch, NoExprMatch:
		sb.WriteString("NONE(")
	default:
		sb.WriteString("UNDEFINED(")
	}
	if e.Type.UsesTagSet() {
		for i, t := range e.Tags {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(t.String())
		}
	} else {
		for i, sub := range e.Exprs {
			if i > 0 {
				sb.WriteString(", ")
			}
			sub.write(sb)
		}
	}
	sb.WriteByte(')')
}
