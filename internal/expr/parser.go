package expr

import (
	"strconv"
)

// Parser builds an expression tree from tokens using recursive descent.
// Precedence (loosest to tightest): + -, * /, unary + -, **.
// ** is right-associative and binds tighter than a unary minus on its left,
// so -x**2 parses as -(x**2).
type Parser struct {
	tokens []Token
	pos    int
}

// Parse tokenizes and parses an expression string.
func Parse(input string) (Node, error) {
	tokens, err := NewLexer(input).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != TokenEOF {
		return nil, NewParseErrorf(tok.Pos, "unexpected token %q", tok.Value)
	}
	return n, nil
}

func (p *Parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *Parser) next() Token {
	tok := p.tokens[p.pos]
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

// parseExpr handles + and -.
func (p *Parser) parseExpr() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.Type != TokenPlus && tok.Type != TokenMinus {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{nodeBase: nodeBase{pos: tok.Pos}, Op: tok.Type, Left: left, Right: right}
	}
}

// parseTerm handles * and /.
func (p *Parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.Type != TokenStar && tok.Type != TokenSlash {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{nodeBase: nodeBase{pos: tok.Pos}, Op: tok.Type, Left: left, Right: right}
	}
}

// parseUnary handles prefix + and -.
func (p *Parser) parseUnary() (Node, error) {
	tok := p.peek()
	if tok.Type == TokenPlus || tok.Type == TokenMinus {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{nodeBase: nodeBase{pos: tok.Pos}, Op: tok.Type, X: x}, nil
	}
	return p.parsePower()
}

// parsePower handles **, right-associative with a unary-capable exponent.
func (p *Parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	if tok.Type != TokenPow {
		return base, nil
	}
	p.next()
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &BinaryNode{nodeBase: nodeBase{pos: tok.Pos}, Op: TokenPow, Left: base, Right: exp}, nil
}

// parsePrimary handles identifiers, numbers and parenthesized expressions.
func (p *Parser) parsePrimary() (Node, error) {
	tok := p.next()
	switch tok.Type {
	case TokenIdent:
		return &IdentNode{nodeBase: nodeBase{pos: tok.Pos}, Name: tok.Value}, nil
	case TokenNumber:
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, NewParseErrorf(tok.Pos, "malformed number %q", tok.Value)
		}
		return &NumberNode{nodeBase: nodeBase{pos: tok.Pos}, Value: v}, nil
	case TokenLParen:
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		closing := p.next()
		if closing.Type != TokenRParen {
			return nil, NewParseErrorf(closing.Pos, "expected ')', got %q", closing.Value)
		}
		return n, nil
	case TokenEOF:
		return nil, NewParseError(tok.Pos, "unexpected end of expression")
	default:
		return nil, NewParseErrorf(tok.Pos, "unexpected token %q", tok.Value)
	}
}
