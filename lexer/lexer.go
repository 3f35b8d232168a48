// Package lexer splits tea query text into tokens.
package lexer

import (
	"fmt"
	"unicode"

	"github.com/pkg/errors"
)

// TokenType identifies the kind of a token.
type TokenType int

const (
	TokenPipe   TokenType = iota // |
	TokenLBrace                  // {
	TokenRBrace                  // }
	TokenLParen                  // (
	TokenRParen                  // )
	TokenComma                   // ,
	TokenEquals                  // =
	TokenDot                     // .

	TokenPlus  // +
	TokenMinus // -
	TokenStar  // *
	TokenSlash // /
	TokenEq    // ==
	TokenNeq   // !=
	TokenLt    // <
	TokenGt    // >
	TokenLte   // <=
	TokenGte   // >=

	TokenAnd
	TokenOr
	TokenNot
	TokenIs
	TokenTrue
	TokenFalse
	TokenNull

	TokenInt
	TokenFloat
	TokenString

	TokenIdent
	TokenBacktickIdent // `name with spaces`

	TokenEOF
)

var tokenNames = map[TokenType]string{
	TokenPipe: "|", TokenLBrace: "{", TokenRBrace: "}", TokenLParen: "(", TokenRParen: ")",
	TokenComma: ",", TokenEquals: "=", TokenDot: ".",
	TokenPlus: "+", TokenMinus: "-", TokenStar: "*", TokenSlash: "/",
	TokenEq: "==", TokenNeq: "!=", TokenLt: "<", TokenGt: ">", TokenLte: "<=", TokenGte: ">=",
	TokenAnd: "and", TokenOr: "or", TokenNot: "not", TokenIs: "is",
	TokenTrue: "true", TokenFalse: "false", TokenNull: "null",
	TokenInt: "INT", TokenFloat: "FLOAT", TokenString: "STRING",
	TokenIdent: "IDENT", TokenBacktickIdent: "BACKTICK_IDENT", TokenEOF: "EOF",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Token(%d)", int(t))
}

// Token is one lexeme. Pos is the rune offset in the input.
type Token struct {
	Type TokenType
	Val  string
	Pos  int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Type, t.Val, t.Pos)
}

var keywords = map[string]TokenType{
	"and":   TokenAnd,
	"or":    TokenOr,
	"not":   TokenNot,
	"is":    TokenIs,
	"true":  TokenTrue,
	"false": TokenFalse,
	"null":  TokenNull,
}

var singles = map[rune]TokenType{
	'|': TokenPipe, '{': TokenLBrace, '}': TokenRBrace, '(': TokenLParen, ')': TokenRParen,
	',': TokenComma, '.': TokenDot, '+': TokenPlus, '*': TokenStar,
}

// Operators whose meaning changes when followed by '='.
var withEquals = map[rune][2]TokenType{
	'=': {TokenEquals, TokenEq},
	'<': {TokenLt, TokenLte},
	'>': {TokenGt, TokenGte},
}

type lexer struct {
	src  []rune
	i    int
	toks []Token
}

// Lex tokenizes input. The result always ends with a TokenEOF.
func Lex(input string) ([]Token, error) {
	l := &lexer{src: []rune(input)}
	for l.i < len(l.src) {
		if err := l.next(); err != nil {
			return nil, err
		}
	}
	return append(l.toks, Token{TokenEOF, "", len(l.src)}), nil
}

func (l *lexer) emit(tt TokenType, val string, pos int) {
	l.toks = append(l.toks, Token{tt, val, pos})
}

func (l *lexer) peekAt(off int) rune {
	if l.i+off < len(l.src) {
		return l.src[l.i+off]
	}
	return 0
}

func (l *lexer) next() error {
	ch, pos := l.src[l.i], l.i
	if unicode.IsSpace(ch) {
		l.i++
		return nil
	}
	if tt, ok := singles[ch]; ok {
		l.emit(tt, string(ch), pos)
		l.i++
		return nil
	}
	if pair, ok := withEquals[ch]; ok {
		if l.peekAt(1) == '=' {
			l.emit(pair[1], string(ch)+"=", pos)
			l.i += 2
		} else {
			l.emit(pair[0], string(ch), pos)
			l.i++
		}
		return nil
	}

	switch {
	case ch == '!':
		if l.peekAt(1) != '=' {
			return errors.Errorf("unexpected '!' at position %d (did you mean '!='?)", pos)
		}
		l.emit(TokenNeq, "!=", pos)
		l.i += 2
	case ch == '/' && l.peekAt(1) == '/':
		for l.i < len(l.src) && l.src[l.i] != '\n' {
			l.i++
		}
	case ch == '/':
		l.emit(TokenSlash, "/", pos)
		l.i++
	case ch == '-' && unicode.IsDigit(l.peekAt(1)) && l.signAllowed():
		l.number()
	case ch == '-':
		l.emit(TokenMinus, "-", pos)
		l.i++
	case ch == '"' || ch == '\'':
		return l.quoted(ch, TokenString)
	case ch == '`':
		return l.quoted(ch, TokenBacktickIdent)
	case unicode.IsDigit(ch):
		l.number()
	case unicode.IsLetter(ch) || ch == '_':
		l.ident()
	default:
		return errors.Errorf("unexpected character %q at position %d", ch, pos)
	}
	return nil
}

// signAllowed reports whether a '-' directly before a digit starts a negative
// literal rather than a subtraction.
func (l *lexer) signAllowed() bool {
	if len(l.toks) == 0 {
		return true
	}
	switch l.toks[len(l.toks)-1].Type {
	case TokenInt, TokenFloat, TokenString, TokenIdent, TokenBacktickIdent,
		TokenRParen, TokenRBrace, TokenTrue, TokenFalse, TokenNull:
		return false
	}
	return true
}

// quoted reads up to the closing quote. Backslash escapes apply to strings only.
func (l *lexer) quoted(q rune, tt TokenType) error {
	start := l.i
	l.i++
	var sb []rune
	for l.i < len(l.src) {
		ch := l.src[l.i]
		if ch == q {
			l.emit(tt, string(sb), start)
			l.i++
			return nil
		}
		if ch == '\\' && tt == TokenString && l.i+1 < len(l.src) {
			switch esc := l.src[l.i+1]; esc {
			case 'n':
				sb = append(sb, '\n')
			case 't':
				sb = append(sb, '\t')
			case '\\', '"', '\'':
				sb = append(sb, esc)
			default:
				sb = append(sb, '\\', esc)
			}
			l.i += 2
			continue
		}
		sb = append(sb, ch)
		l.i++
	}
	if tt == TokenBacktickIdent {
		return errors.Errorf("unterminated backtick identifier starting at position %d", start)
	}
	return errors.Errorf("unterminated string starting at position %d", start)
}

// number reads an optionally signed integer or decimal. A dot not followed by
// a digit ends the number, so "2024.csv" stays INT DOT IDENT.
func (l *lexer) number() {
	start := l.i
	if l.src[l.i] == '-' {
		l.i++
	}
	l.digits()
	tt := TokenInt
	if l.peekAt(0) == '.' && unicode.IsDigit(l.peekAt(1)) {
		tt = TokenFloat
		l.i++
		l.digits()
	}
	l.emit(tt, string(l.src[start:l.i]), start)
}

func (l *lexer) digits() {
	for l.i < len(l.src) && unicode.IsDigit(l.src[l.i]) {
		l.i++
	}
}

func (l *lexer) ident() {
	start := l.i
	for l.i < len(l.src) {
		ch := l.src[l.i]
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '_' {
			break
		}
		l.i++
	}
	val := string(l.src[start:l.i])
	if tt, ok := keywords[val]; ok {
		l.emit(tt, val, start)
		return
	}
	l.emit(TokenIdent, val, start)
}
