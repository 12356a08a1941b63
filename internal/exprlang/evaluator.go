package exprlang

import (
	"strings"
)

// Function is a callable exposed to expressions (SMA, highest, diff,
// ...). Arguments are always evaluated with series preserved; the
// return value is then resolved at the call site's offset exactly
// like an identifier lookup.
type Function func(args []Value) (Value, error)

// Context maps identifier names to Values (almost always series; a
// caller may also inject scalar overrides, e.g. risk-context figures).
type Context map[string]Value

// FunctionTable maps function names to their implementations.
type FunctionTable map[string]Function

// Evaluator walks a parsed AST against a Context and FunctionTable,
// threading an integer offset through every sub-expression.
type Evaluator struct {
	Context   Context
	Functions FunctionTable
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(ctx Context, funcs FunctionTable) *Evaluator {
	return &Evaluator{Context: ctx, Functions: funcs}
}

// Eval evaluates node at the given offset. preserveSeries requests
// the raw series back instead of projecting to the scalar at offset —
// used for function arguments, index receivers, and crossover
// operands.
func (e *Evaluator) Eval(node *Node, offset int, preserveSeries bool) (Value, error) {
	switch node.Kind {
	case NodeNumber:
		return NumberValue(node.Number), nil

	case NodeIdent:
		value, ok := e.Context[node.Ident]
		if !ok {
			return Missing, nil
		}
		return resolve(value, offset, preserveSeries), nil

	case NodeCall:
		args := make([]Value, len(node.Args))
		for i, argNode := range node.Args {
			v, err := e.Eval(argNode, offset, true)
			if err != nil {
				return Missing, err
			}
			args[i] = v
		}
		fn, ok := e.Functions[node.Ident]
		if !ok {
			return Missing, NewFatalError("unknown function: %s", node.Ident)
		}
		result, err := fn(args)
		if err != nil {
			return Missing, err
		}
		return resolve(result, offset, preserveSeries), nil

	case NodeIndex:
		base, err := e.Eval(node.Left, offset, true)
		if err != nil {
			return Missing, err
		}
		if base.Kind != ValueSeries {
			return Missing, NewFatalError("indexing requires a series")
		}
		indexVal, err := e.Eval(node.Right, offset, false)
		if err != nil {
			return Missing, err
		}
		idxDec, ok := indexVal.AsNumber()
		if !ok {
			return Missing, NewFatalError("index expression did not resolve to a number")
		}
		idx := int(idxDec.IntPart())
		return FromSeriesValue(base.Series.ValueAt(idx + offset)), nil

	case NodeUnary:
		val, err := e.Eval(node.Operand, offset, false)
		if err != nil {
			return Missing, err
		}
		num, ok := val.AsNumber()
		if !ok {
			return Missing, nil
		}
		if node.Op == "-" {
			return NumberValue(num.Neg()), nil
		}
		return NumberValue(num), nil

	case NodeBin:
		left, err := e.Eval(node.Left, offset, false)
		if err != nil {
			return Missing, err
		}
		right, err := e.Eval(node.Right, offset, false)
		if err != nil {
			return Missing, err
		}
		return applyBinary(node.Op, left, right)

	case NodeCmp:
		return e.applyComparison(node.Op, node.Left, node.Right, offset)

	case NodeAnd:
		left, err := e.Eval(node.Left, offset, false)
		if err != nil {
			return Missing, err
		}
		if !left.AsBool() {
			return BoolValue(false), nil
		}
		right, err := e.Eval(node.Right, offset, false)
		if err != nil {
			return Missing, err
		}
		return BoolValue(right.AsBool()), nil

	case NodeOr:
		left, err := e.Eval(node.Left, offset, false)
		if err != nil {
			return Missing, err
		}
		if left.AsBool() {
			return BoolValue(true), nil
		}
		right, err := e.Eval(node.Right, offset, false)
		if err != nil {
			return Missing, err
		}
		return BoolValue(right.AsBool()), nil

	case NodeNot:
		operand, err := e.Eval(node.Operand, offset, false)
		if err != nil {
			return Missing, err
		}
		return BoolValue(!operand.AsBool()), nil
	}
	return Missing, NewFatalError("unknown node kind: %d", node.Kind)
}

func applyBinary(op string, left, right Value) (Value, error) {
	l, lok := left.AsNumber()
	r, rok := right.AsNumber()
	if !lok || !rok {
		return Missing, nil
	}
	switch op {
	case "+":
		return NumberValue(l.Add(r)), nil
	case "-":
		return NumberValue(l.Sub(r)), nil
	case "*":
		return NumberValue(l.Mul(r)), nil
	case "/":
		if r.IsZero() {
			return Missing, NewFatalError("division by zero")
		}
		return NumberValue(l.Div(r)), nil
	}
	return Missing, NewFatalError("unknown operator: %s", op)
}

// applyComparison evaluates a Cmp node. CROSSOVER/CROSSUNDER
// re-evaluate both operands at offset and offset+1; all other
// comparisons evaluate once at offset. Any missing operand yields
// false, not an error — comparisons never fail.
func (e *Evaluator) applyComparison(op string, leftNode, rightNode *Node, offset int) (Value, error) {
	opUpper := strings.ToUpper(op)

	if opUpper == "CROSSOVER" || opUpper == "CROSSUNDER" {
		leftNow, err := e.Eval(leftNode, offset, false)
		if err != nil {
			return Missing, err
		}
		rightNow, err := e.Eval(rightNode, offset, false)
		if err != nil {
			return Missing, err
		}
		leftPrev, err := e.Eval(leftNode, offset+1, false)
		if err != nil {
			return Missing, err
		}
		rightPrev, err := e.Eval(rightNode, offset+1, false)
		if err != nil {
			return Missing, err
		}

		ln, lok := leftNow.AsNumber()
		rn, rok := rightNow.AsNumber()
		lp, lpok := leftPrev.AsNumber()
		rp, rpok := rightPrev.AsNumber()
		if !lok || !rok || !lpok || !rpok {
			return BoolValue(false), nil
		}
		if opUpper == "CROSSOVER" {
			return BoolValue(ln.GreaterThan(rn) && lp.LessThanOrEqual(rp)), nil
		}
		return BoolValue(ln.LessThan(rn) && lp.GreaterThanOrEqual(rp)), nil
	}

	left, err := e.Eval(leftNode, offset, false)
	if err != nil {
		return Missing, err
	}
	right, err := e.Eval(rightNode, offset, false)
	if err != nil {
		return Missing, err
	}
	l, lok := left.AsNumber()
	r, rok := right.AsNumber()
	if !lok || !rok {
		return BoolValue(false), nil
	}

	switch opUpper {
	case ">", "GT", "ABOVE":
		return BoolValue(l.GreaterThan(r)), nil
	case ">=", "GTE":
		return BoolValue(l.GreaterThanOrEqual(r)), nil
	case "<", "LT", "BELOW":
		return BoolValue(l.LessThan(r)), nil
	case "<=", "LTE":
		return BoolValue(l.LessThanOrEqual(r)), nil
	case "==", "EQ":
		return BoolValue(l.Equal(r)), nil
	case "!=", "NE":
		return BoolValue(!l.Equal(r)), nil
	}
	return Missing, NewFatalError("unknown comparison operator: %s", op)
}

// Evaluate parses and evaluates expr at offset 0 against ctx/funcs.
func Evaluate(expr string, ctx Context, funcs FunctionTable) (Value, error) {
	node, err := Parse(expr)
	if err != nil {
		return Missing, err
	}
	return NewEvaluator(ctx, funcs).Eval(node, 0, false)
}
