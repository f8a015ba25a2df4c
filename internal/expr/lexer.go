package expr

import "strings"

// TokenType identifies the type of token.
type TokenType int

// TokenType constants for arithmetic expression tokens.
const (
	TokenIdent  TokenType = iota // identifier (raw code or alias)
	TokenNumber                  // numeric literal
	TokenPlus                    // +
	TokenMinus                   // -
	TokenStar                    // *
	TokenSlash                   // /
	TokenPow                     // **
	TokenLParen                  // (
	TokenRParen                  // )
	TokenEOF                     // end of input
)

func (t TokenType) String() string {
	switch t {
	case TokenIdent:
		return "IDENT"
	case TokenNumber:
		return "NUMBER"
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenStar:
		return "*"
	case TokenSlash:
		return "/"
	case TokenPow:
		return "**"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string
	Pos   Position
}

// Lexer tokenizes an arithmetic expression. Only identifiers, numeric
// literals, the operators + - * / ** and parentheses are accepted; any
// other character is rejected here, before evaluation can see it.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize converts the input into a slice of tokens ending with EOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return tokens, nil
}

func (l *Lexer) position() Position {
	return Position{Column: l.pos + 1}
}

func (l *Lexer) nextToken() (Token, error) {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.position()}, nil
	}

	pos := l.position()
	ch := l.input[l.pos]

	switch {
	case ch == '+':
		l.pos++
		return Token{Type: TokenPlus, Value: "+", Pos: pos}, nil
	case ch == '-':
		l.pos++
		return Token{Type: TokenMinus, Value: "-", Pos: pos}, nil
	case ch == '*':
		if strings.HasPrefix(l.input[l.pos:], "**") {
			l.pos += 2
			return Token{Type: TokenPow, Value: "**", Pos: pos}, nil
		}
		l.pos++
		return Token{Type: TokenStar, Value: "*", Pos: pos}, nil
	case ch == '/':
		l.pos++
		return Token{Type: TokenSlash, Value: "/", Pos: pos}, nil
	case ch == '(':
		l.pos++
		return Token{Type: TokenLParen, Value: "(", Pos: pos}, nil
	case ch == ')':
		l.pos++
		return Token{Type: TokenRParen, Value: ")", Pos: pos}, nil
	case isIdentStart(ch):
		return l.scanIdent(pos), nil
	case isDigit(ch) || ch == '.':
		return l.scanNumber(pos)
	default:
		return Token{}, NewLexErrorf(pos, "unexpected character %q", string(ch))
	}
}

func (l *Lexer) scanIdent(pos Position) Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	return Token{Type: TokenIdent, Value: l.input[start:l.pos], Pos: pos}
}

func (l *Lexer) scanNumber(pos Position) (Token, error) {
	start := l.pos
	seenDot := false
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '.' {
			if seenDot {
				return Token{}, NewLexError(l.position(), "malformed number: second decimal point")
			}
			seenDot = true
			l.pos++
			continue
		}
		if !isDigit(ch) {
			break
		}
		l.pos++
	}
	value := l.input[start:l.pos]
	if value == "." {
		return Token{}, NewLexError(pos, "malformed number")
	}
	return Token{Type: TokenNumber, Value: value, Pos: pos}, nil
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
