package exprlang

import "github.com/shopspring/decimal"

// NodeKind tags the variant of an AST Node.
type NodeKind int

const (
	NodeNumber NodeKind = iota
	NodeIdent
	NodeCall
	NodeIndex
	NodeUnary
	NodeBin
	NodeCmp
	NodeAnd
	NodeOr
	NodeNot
)

// Node is a single AST node. Which fields are meaningful depends on
// Kind:
//
//	Number: Number
//	Ident:  Ident
//	Call:   Ident (function name), Args
//	Index:  Left (receiver), Right (index expression)
//	Unary:  Op, Operand
//	Bin:    Op, Left, Right
//	Cmp:    Op, Left, Right
//	And/Or: Left, Right
//	Not:    Operand
type Node struct {
	Kind    NodeKind
	Number  decimal.Decimal
	Ident   string
	Op      string
	Left    *Node
	Right   *Node
	Operand *Node
	Args    []*Node
}
