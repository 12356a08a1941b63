package exprlang

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Parser is a recursive-descent parser implementing the grammar in
// §4.2: or > and > not > cmp (chainable, left-associative) > additive
// > multiplicative > unary > postfix (indexing) > primary.
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser constructs a Parser over an already-tokenized expression.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses the full token stream into one Node, failing if any
// tokens remain unconsumed.
func Parse(expr string) (*Node, error) {
	tokens, err := NewLexer(expr).Tokenize()
	if err != nil {
		return nil, err
	}
	node, err := NewParser(tokens).parse()
	if err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) peek() *Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

func (p *Parser) parse() (*Node, error) {
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek() != nil {
		return nil, NewFatalError("unexpected token at end: %q", p.peek().Value)
	}
	return node, nil
}

func (p *Parser) parseOr() (*Node, error) {
	node, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek() != nil && p.peek().Kind == KindOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		node = &Node{Kind: NodeOr, Left: node, Right: right}
	}
	return node, nil
}

func (p *Parser) parseAnd() (*Node, error) {
	node, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek() != nil && p.peek().Kind == KindAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		node = &Node{Kind: NodeAnd, Left: node, Right: right}
	}
	return node, nil
}

func (p *Parser) parseNot() (*Node, error) {
	if p.peek() != nil && p.peek().Kind == KindNot {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeNot, Operand: operand}, nil
	}
	return p.parseCompare()
}

func (p *Parser) parseCompare() (*Node, error) {
	node, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.peek() != nil && p.peek().Kind == KindOp {
		op := p.advance().Value
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		node = &Node{Kind: NodeCmp, Op: op, Left: node, Right: right}
	}
	return node, nil
}

func (p *Parser) parseAdditive() (*Node, error) {
	node, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peek() != nil && (p.peek().Kind == KindPlus || p.peek().Kind == KindMinus) {
		op := p.advance().Value
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		node = &Node{Kind: NodeBin, Op: op, Left: node, Right: right}
	}
	return node, nil
}

func (p *Parser) parseMultiplicative() (*Node, error) {
	node, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek() != nil && (p.peek().Kind == KindStar || p.peek().Kind == KindSlash) {
		op := p.advance().Value
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		node = &Node{Kind: NodeBin, Op: op, Left: node, Right: right}
	}
	return node, nil
}

func (p *Parser) parseUnary() (*Node, error) {
	if p.peek() != nil && (p.peek().Kind == KindPlus || p.peek().Kind == KindMinus) {
		op := p.advance().Value
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeUnary, Op: op, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (*Node, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek() != nil && p.peek().Kind == KindLBrack {
		p.advance()
		index, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek() == nil || p.peek().Kind != KindRBrack {
			return nil, NewFatalError("missing closing bracket")
		}
		p.advance()
		node = &Node{Kind: NodeIndex, Left: node, Right: index}
	}
	return node, nil
}

func (p *Parser) parsePrimary() (*Node, error) {
	token := p.peek()
	if token == nil {
		return nil, NewFatalError("unexpected end of input")
	}
	switch token.Kind {
	case KindNumber:
		p.advance()
		d, err := decimal.NewFromString(token.Value)
		if err != nil {
			return nil, NewFatalError("invalid number literal: %q", token.Value)
		}
		return &Node{Kind: NodeNumber, Number: d}, nil
	case KindIdent:
		p.advance()
		if p.peek() != nil && p.peek().Kind == KindLParen {
			p.advance()
			var args []*Node
			if p.peek() != nil && p.peek().Kind != KindRParen {
				arg, err := p.parseOr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				for p.peek() != nil && p.peek().Kind == KindComma {
					p.advance()
					arg, err := p.parseOr()
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
				}
			}
			if p.peek() == nil || p.peek().Kind != KindRParen {
				return nil, NewFatalError("missing closing parenthesis")
			}
			p.advance()
			return &Node{Kind: NodeCall, Ident: token.Value, Args: args}, nil
		}
		return &Node{Kind: NodeIdent, Ident: token.Value}, nil
	case KindLParen:
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek() == nil || p.peek().Kind != KindRParen {
			return nil, NewFatalError("missing closing parenthesis")
		}
		p.advance()
		return expr, nil
	}
	return nil, NewFatalError("unexpected token: %s %q", token.Kind, strings.TrimSpace(token.Value))
}
