package formula

import (
	"github.com/openxlgo/xlcore/ref"
	"github.com/openxlgo/xlcore/xlerrors"
)

// Node is the closed set of AST node kinds spec.md §4.9 names. Concrete
// node types implement it only as a marker; the evaluator type-switches
// on the concrete type rather than dispatching through an interface
// method, per spec.md §9's "never inheritance" guidance.
type Node interface {
	node()
}

type NumberLit struct{ Value float64 }
type StringLit struct{ Value string }
type BoolLit struct{ Value bool }
type ErrorLit struct{ Kind xlerrors.Kind }

// RefNode is a single-cell reference, optionally sheet-qualified.
type RefNode struct {
	Sheet string // empty when not sheet-qualified
	Ref   ref.Ref
}

// RangeNode is a two-corner range, optionally sheet-qualified.
type RangeNode struct {
	Sheet               string
	TopLeft, BottomRight ref.Ref
}

// NameNode is a bare identifier resolved against defined names at
// evaluation time (spec.md's named-range resolver).
type NameNode struct{ Name string }

// UnaryNode covers prefix +/- and postfix % (Op distinguishes by token
// kind; Postfix is true for %).
type UnaryNode struct {
	Op      TokenKind
	Operand Node
	Postfix bool
}

// BinaryNode covers every binary operator: arithmetic, comparison, &.
type BinaryNode struct {
	Op          TokenKind
	Left, Right Node
}

// IntersectNode is the whitespace "intersection" reference operator.
type IntersectNode struct{ Left, Right Node }

// UnionNode is the ',' reference-union operator (distinct from a
// function argument list comma — only constructed when a comma appears
// at reference precedence, outside any open function-call paren).
type UnionNode struct{ Items []Node }

// FuncCall is a function invocation; Args are unevaluated expression
// nodes so short-circuiting functions (IF, AND, OR, ...) can choose not
// to evaluate all of them.
type FuncCall struct {
	Name string
	Args []Node
}

// ArrayLit is a `{1,2;3,4}`-style array literal: Rows[i][j] are the
// column entries of row i.
type ArrayLit struct {
	Rows [][]Node
}

func (NumberLit) node()     {}
func (StringLit) node()     {}
func (BoolLit) node()       {}
func (ErrorLit) node()      {}
func (RefNode) node()       {}
func (RangeNode) node()     {}
func (NameNode) node()      {}
func (UnaryNode) node()     {}
func (BinaryNode) node()    {}
func (IntersectNode) node() {}
func (UnionNode) node()     {}
func (FuncCall) node()      {}
func (ArrayLit) node()      {}
