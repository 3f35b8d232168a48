// Package parser turns tea query text into an ast.Query.
//
// A query is a source file followed by operations separated by pipes:
//
//	users.csv | filter { age > 25 and city != "LA" } | group city | reduce n = count(), total = sum(age)
package parser

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/razeghi71/tea/ast"
	"github.com/razeghi71/tea/lexer"
)

// Parser consumes a token stream.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

func newParser(input string) (*Parser, error) {
	tokens, err := lexer.Lex(input)
	if err != nil {
		return nil, errors.Wrap(err, "lex error")
	}
	return &Parser{tokens: tokens}, nil
}

// Parse parses a full query.
func Parse(input string) (*ast.Query, error) {
	p, err := newParser(input)
	if err != nil {
		return nil, err
	}
	return p.parseQuery()
}

// ParseExpr parses a single expression such as "price * qty > 100".
func ParseExpr(input string) (ast.Expr, error) {
	p, err := newParser(input)
	if err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return e, p.expectEOF()
}

// ParseAssignment parses "column = expression".
func ParseAssignment(input string) (ast.Assignment, error) {
	p, err := newParser(input)
	if err != nil {
		return ast.Assignment{}, err
	}
	a, err := p.parseAssignment()
	if err != nil {
		return ast.Assignment{}, err
	}
	return a, p.expectEOF()
}

func (p *Parser) peek() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Type: lexer.TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekIs(types ...lexer.TokenType) bool {
	tt := p.peek().Type
	for _, t := range types {
		if tt == t {
			return true
		}
	}
	return false
}

func (p *Parser) advance() lexer.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	tok := p.advance()
	if tok.Type != tt {
		return tok, unexpected(tok, "expected "+tt.String())
	}
	return tok, nil
}

func (p *Parser) expectEOF() error {
	if tok := p.peek(); tok.Type != lexer.TokenEOF {
		return unexpected(tok, "expected end of input")
	}
	return nil
}

func unexpected(tok lexer.Token, what string) error {
	return errors.Errorf("%s, got %s (%q) at position %d", what, tok.Type, tok.Val, tok.Pos)
}

func (p *Parser) parseQuery() (*ast.Query, error) {
	source, err := p.parseSource()
	if err != nil {
		return nil, err
	}
	var ops []ast.Op
	for p.peekIs(lexer.TokenPipe) {
		p.advance()
		op, err := p.parseOp()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return &ast.Query{Source: source, Ops: ops}, nil
}

// parseSource reads a quoted filename or an unquoted path such as
// ./data/users-2024.csv, which lexes as separate pieces.
func (p *Parser) parseSource() (*ast.SourceOp, error) {
	if p.peekIs(lexer.TokenString, lexer.TokenBacktickIdent) {
		return &ast.SourceOp{Filename: p.advance().Val}, nil
	}
	var sb strings.Builder
	for p.peekIs(lexer.TokenDot, lexer.TokenSlash, lexer.TokenMinus) {
		sb.WriteString(p.advance().Val)
	}
	tok := p.advance()
	if tok.Type != lexer.TokenIdent && tok.Type != lexer.TokenInt {
		return nil, unexpected(tok, "expected filename")
	}
	sb.WriteString(tok.Val)
	for p.peekIs(lexer.TokenDot, lexer.TokenSlash, lexer.TokenMinus) {
		sep := p.advance()
		next := p.advance()
		if next.Type != lexer.TokenIdent && next.Type != lexer.TokenInt {
			return nil, unexpected(next, "expected path component after "+strconv.Quote(sep.Val))
		}
		sb.WriteString(sep.Val + next.Val)
	}
	return &ast.SourceOp{Filename: sb.String()}, nil
}

var opParsers map[string]func(*Parser) (ast.Op, error)

func init() {
	opParsers = map[string]func(*Parser) (ast.Op, error){
		"head":      (*Parser).parseHead,
		"tail":      (*Parser).parseTail,
		"sorta":     func(p *Parser) (ast.Op, error) { return p.parseSort(false) },
		"sortd":     func(p *Parser) (ast.Op, error) { return p.parseSort(true) },
		"select":    (*Parser).parseSelect,
		"filter":    (*Parser).parseFilter,
		"group":     (*Parser).parseGroup,
		"transform": (*Parser).parseTransform,
		"reduce":    (*Parser).parseReduce,
		"rolling":   (*Parser).parseRolling,
		"count":     func(*Parser) (ast.Op, error) { return &ast.CountOp{}, nil },
		"distinct":  func(p *Parser) (ast.Op, error) { return &ast.DistinctOp{Columns: p.parseColumnList()}, nil },
		"rename":    (*Parser).parseRename,
		"remove":    (*Parser).parseRemove,
	}
}

func (p *Parser) parseOp() (ast.Op, error) {
	tok := p.advance()
	if tok.Type != lexer.TokenIdent {
		return nil, unexpected(tok, "expected operation name")
	}
	parse, ok := opParsers[tok.Val]
	if !ok {
		return nil, errors.Errorf("unknown operation %q at position %d", tok.Val, tok.Pos)
	}
	op, err := parse(p)
	return op, errors.Wrap(err, tok.Val)
}

func (p *Parser) parseHead() (ast.Op, error) {
	n, err := p.parseInt()
	if err != nil {
		return nil, err
	}
	return &ast.HeadOp{N: n}, nil
}

func (p *Parser) parseTail() (ast.Op, error) {
	n, err := p.parseInt()
	if err != nil {
		return nil, err
	}
	return &ast.TailOp{N: n}, nil
}

func (p *Parser) parseSort(desc bool) (ast.Op, error) {
	cols, err := p.parseColumns()
	if err != nil {
		return nil, err
	}
	return &ast.SortOp{Columns: cols, Desc: desc}, nil
}

func (p *Parser) parseSelect() (ast.Op, error) {
	cols, err := p.parseColumns()
	if err != nil {
		return nil, err
	}
	return &ast.SelectOp{Columns: cols}, nil
}

func (p *Parser) parseFilter() (ast.Op, error) {
	if _, err := p.expect(lexer.TokenLBrace); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenRBrace); err != nil {
		return nil, err
	}
	return &ast.FilterOp{Expr: e}, nil
}

func (p *Parser) parseGroup() (ast.Op, error) {
	cols, err := p.parseColumns()
	if err != nil {
		return nil, err
	}
	return &ast.GroupOp{Columns: cols}, nil
}

func (p *Parser) parseTransform() (ast.Op, error) {
	as, err := p.parseAssignments()
	if err != nil {
		return nil, err
	}
	return &ast.TransformOp{Assignments: as}, nil
}

func (p *Parser) parseReduce() (ast.Op, error) {
	as, err := p.parseAssignments()
	if err != nil {
		return nil, err
	}
	return &ast.ReduceOp{Assignments: as}, nil
}

// parseRolling reads "rolling window [min_periods] assignments". min_periods
// defaults to 1.
func (p *Parser) parseRolling() (ast.Op, error) {
	window, err := p.parseInt()
	if err != nil {
		return nil, err
	}
	minPeriods := 1
	if p.peekIs(lexer.TokenInt) {
		if minPeriods, err = p.parseInt(); err != nil {
			return nil, err
		}
	}
	as, err := p.parseAssignments()
	if err != nil {
		return nil, err
	}
	return &ast.RollingOp{Window: window, MinPeriods: minPeriods, Assignments: as}, nil
}

func (p *Parser) parseRename() (ast.Op, error) {
	var pairs []ast.RenamePair
	for p.peekIs(lexer.TokenIdent, lexer.TokenBacktickIdent) {
		old := p.advance()
		next := p.advance()
		if next.Type != lexer.TokenIdent && next.Type != lexer.TokenBacktickIdent {
			return nil, unexpected(next, "expected new name for "+strconv.Quote(old.Val))
		}
		pairs = append(pairs, ast.RenamePair{Old: old.Val, New: next.Val})
	}
	if len(pairs) == 0 {
		return nil, errors.New("expected at least one old/new pair")
	}
	return &ast.RenameOp{Pairs: pairs}, nil
}

func (p *Parser) parseRemove() (ast.Op, error) {
	cols, err := p.parseColumns()
	if err != nil {
		return nil, err
	}
	return &ast.RemoveOp{Columns: cols}, nil
}

func (p *Parser) parseInt() (int, error) {
	tok := p.advance()
	if tok.Type != lexer.TokenInt {
		return 0, unexpected(tok, "expected integer")
	}
	n, err := strconv.Atoi(tok.Val)
	return n, errors.Wrapf(err, "invalid integer %q", tok.Val)
}

func (p *Parser) parseColumnList() []string {
	var cols []string
	for p.peekIs(lexer.TokenIdent, lexer.TokenBacktickIdent) {
		cols = append(cols, p.advance().Val)
	}
	return cols
}

// parseColumns is parseColumnList for ops that need at least one column.
func (p *Parser) parseColumns() ([]string, error) {
	cols := p.parseColumnList()
	if len(cols) == 0 {
		return nil, unexpected(p.peek(), "expected at least one column")
	}
	return cols, nil
}

// parseAssignments reads comma separated "column = expr" pairs.
func (p *Parser) parseAssignments() ([]ast.Assignment, error) {
	var out []ast.Assignment
	for {
		a, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
		if !p.peekIs(lexer.TokenComma) {
			return out, nil
		}
		p.advance()
	}
}

func (p *Parser) parseAssignment() (ast.Assignment, error) {
	col := p.advance()
	if col.Type != lexer.TokenIdent && col.Type != lexer.TokenBacktickIdent {
		return ast.Assignment{}, unexpected(col, "expected column name in assignment")
	}
	if _, err := p.expect(lexer.TokenEquals); err != nil {
		return ast.Assignment{}, errors.Wrapf(err, "assignment to %q", col.Val)
	}
	e, err := p.parseExpr()
	if err != nil {
		return ast.Assignment{}, errors.Wrapf(err, "assignment to %q", col.Val)
	}
	return ast.Assignment{Column: col.Val, Expr: e}, nil
}
