package klox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allTokens(source string) []Token {
	lex := NewLexer(source)
	var toks []Token
	for {
		tok := lex.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks
		}
	}
}

func TestLexerPunctuationAndOperators(t *testing.T) {
	toks := allTokens("(){},.-+;/* ! != = == > >= < <=")
	types := make([]TokenType, 0, len(toks))
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{
		TokenLeftParen, TokenRightParen, TokenLeftBrace, TokenRightBrace,
		TokenComma, TokenDot, TokenMinus, TokenPlus, TokenSemicolon,
		TokenSlash, TokenStar,
		TokenBang, TokenBangEqual, TokenEqual, TokenEqualEqual,
		TokenGreater, TokenGreaterEqual, TokenLess, TokenLessEqual,
		TokenEOF,
	}, types)
}

func TestLexerKeywordsVsIdentifiers(t *testing.T) {
	toks := allTokens("class fun classify")
	require.Len(t, toks, 4)
	assert.Equal(t, TokenClass, toks[0].Type)
	assert.Equal(t, TokenFun, toks[1].Type)
	assert.Equal(t, TokenIdentifier, toks[2].Type, "classify is not the keyword class")
}

func TestLexerNumbers(t *testing.T) {
	toks := allTokens("123 45.67")
	require.Len(t, toks, 3)
	assert.Equal(t, "123", toks[0].Lexeme)
	assert.Equal(t, "45.67", toks[1].Lexeme)
}

func TestLexerStringWithNewlineBumpsLine(t *testing.T) {
	lex := NewLexer("\"a\nb\" 1")
	str := lex.NextToken()
	require.Equal(t, TokenString, str.Type)
	num := lex.NextToken()
	assert.Equal(t, 2, num.Line)
}

func TestLexerUnterminatedString(t *testing.T) {
	toks := allTokens("\"unterminated")
	require.Len(t, toks, 2)
	assert.Equal(t, TokenError, toks[0].Type)
	assert.Equal(t, "Unterminated string.", toks[0].Lexeme)
}

func TestLexerUnexpectedCharacter(t *testing.T) {
	toks := allTokens("@")
	require.Len(t, toks, 2)
	assert.Equal(t, TokenError, toks[0].Type)
	assert.Equal(t, "Unexpected character.", toks[0].Lexeme)
}

func TestLexerSkipsLineComments(t *testing.T) {
	toks := allTokens("1 // comment\n2")
	require.Len(t, toks, 3)
	assert.Equal(t, "1", toks[0].Lexeme)
	assert.Equal(t, "2", toks[1].Lexeme)
}
