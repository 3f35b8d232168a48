package lexer

import (
	"testing"
)

func types(t *testing.T, input string) []Token {
	t.Helper()
	tokens, err := Lex(input)
	if err != nil {
		t.Fatalf("lex %q: %v", input, err)
	}
	return tokens
}

func assertTypes(t *testing.T, tokens []Token, expected ...TokenType) {
	t.Helper()
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %v", len(expected), len(tokens), tokens)
	}
	for i, tt := range expected {
		if tokens[i].Type != tt {
			t.Errorf("token %d: expected %s, got %s (%q)", i, tt, tokens[i].Type, tokens[i].Val)
		}
	}
}

func TestLexBasic(t *testing.T) {
	assertTypes(t, types(t, `users.csv | head 10`),
		TokenIdent, TokenDot, TokenIdent, TokenPipe, TokenIdent, TokenInt, TokenEOF)
}

func TestLexFilter(t *testing.T) {
	tokens := types(t, `filter { age > 20 and city == "NY" }`)
	assertTypes(t, tokens,
		TokenIdent, TokenLBrace, TokenIdent, TokenGt, TokenInt,
		TokenAnd, TokenIdent, TokenEq, TokenString, TokenRBrace, TokenEOF)
	if tokens[8].Val != "NY" {
		t.Errorf("string token value: expected 'NY', got %q", tokens[8].Val)
	}
}

func TestLexOperators(t *testing.T) {
	assertTypes(t, types(t, `a <= b >= c != d < e > f = g + h * i / j`),
		TokenIdent, TokenLte, TokenIdent, TokenGte, TokenIdent, TokenNeq, TokenIdent,
		TokenLt, TokenIdent, TokenGt, TokenIdent, TokenEquals, TokenIdent, TokenPlus,
		TokenIdent, TokenStar, TokenIdent, TokenSlash, TokenIdent, TokenEOF)
}

func TestLexNegativeNumbers(t *testing.T) {
	tokens := types(t, `shift(x, -1) - 2 * -3.5`)
	assertTypes(t, tokens,
		TokenIdent, TokenLParen, TokenIdent, TokenComma, TokenInt, TokenRParen,
		TokenMinus, TokenInt, TokenStar, TokenFloat, TokenEOF)
	if tokens[4].Val != "-1" || tokens[9].Val != "-3.5" {
		t.Errorf("expected -1 and -3.5, got %q and %q", tokens[4].Val, tokens[9].Val)
	}
	// a minus after a name is subtraction
	assertTypes(t, types(t, `a-1`), TokenIdent, TokenMinus, TokenInt, TokenEOF)
}

func TestLexStrings(t *testing.T) {
	tokens := types(t, `"say \"hi\"\n" 'it\'s'`)
	if tokens[0].Val != "say \"hi\"\n" {
		t.Errorf("unexpected escape handling: %q", tokens[0].Val)
	}
	if tokens[1].Type != TokenString || tokens[1].Val != "it's" {
		t.Errorf("expected single-quoted string, got %s", tokens[1])
	}
}

func TestLexBacktick(t *testing.T) {
	tokens := types(t, "`first name`")
	if tokens[0].Type != TokenBacktickIdent || tokens[0].Val != "first name" {
		t.Errorf("expected backtick ident 'first name', got %s", tokens[0])
	}
}

func TestLexKeywordsAndNumberLikeNames(t *testing.T) {
	assertTypes(t, types(t, `x is not null or true and false`),
		TokenIdent, TokenIs, TokenNot, TokenNull, TokenOr, TokenTrue, TokenAnd, TokenFalse, TokenEOF)
	tokens := types(t, `nan + inf`)
	assertTypes(t, tokens, TokenIdent, TokenPlus, TokenIdent, TokenEOF)
}

func TestLexFileExtensionAfterNumber(t *testing.T) {
	assertTypes(t, types(t, `2024.csv 1.5`), TokenInt, TokenDot, TokenIdent, TokenFloat, TokenEOF)
}

func TestLexComment(t *testing.T) {
	assertTypes(t, types(t, "head 3 // first rows\n| count"),
		TokenIdent, TokenInt, TokenPipe, TokenIdent, TokenEOF)
}

func TestLexErrors(t *testing.T) {
	for _, s := range []string{`"open`, "`open", `a ! b`, `a # b`} {
		if _, err := Lex(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}
