package lexer

import (
	"github.com/xplshn/gtc/pkg/config"
	"github.com/xplshn/gtc/pkg/token"
	"github.com/xplshn/gtc/pkg/util"
)

type Lexer struct {
	source []rune
	pos    int
	line   int
	column int
	cfg    *config.Config
}

// NewLexer appends the trailing newline every statement needs, so a file that does not end
// in one is still valid.
func NewLexer(source []rune, cfg *config.Config) *Lexer {
	src := make([]rune, len(source), len(source)+1)
	copy(src, source)
	return &Lexer{source: append(src, '\n'), line: 1, column: 1, cfg: cfg}
}

// Next returns the next token. Once the input is exhausted it keeps returning EOF.
func (l *Lexer) Next() (token.Token, error) {
	l.skipWhitespaceAndComments()
	startPos, startCol, startLine := l.pos, l.column, l.line

	if l.isAtEnd() {
		return l.makeToken(token.EOF, startPos, startCol, startLine), nil
	}

	ch := l.peek()
	switch {
	case isLetter(ch):
		return l.identifierOrKeyword(startPos, startCol, startLine), nil
	case isDigit(ch):
		return l.numberLiteral(startPos, startCol, startLine)
	}

	l.advance()
	switch ch {
	case '+':
		return l.makeToken(token.Plus, startPos, startCol, startLine), nil
	case '-':
		return l.makeToken(token.Minus, startPos, startCol, startLine), nil
	case '*':
		return l.makeToken(token.Asterisk, startPos, startCol, startLine), nil
	case '/':
		return l.makeToken(token.Slash, startPos, startCol, startLine), nil
	case '\n':
		return l.makeToken(token.Newline, startPos, startCol, startLine), nil
	case '=':
		return l.matchThen('=', token.EqEq, token.Eq, startPos, startCol, startLine), nil
	case '>':
		return l.matchThen('=', token.GtEq, token.Gt, startPos, startCol, startLine), nil
	case '<':
		return l.matchThen('=', token.LtEq, token.Lt, startPos, startCol, startLine), nil
	case '!':
		if l.match('=') {
			return l.makeToken(token.NotEq, startPos, startCol, startLine), nil
		}
		tok := l.makeToken(token.EOF, startPos, startCol, startLine)
		return tok, util.Errorf(util.LexError, tok, "expected '!=', got '!' followed by %q", l.peek())
	case '"':
		return l.stringLiteral(startPos, startCol, startLine)
	}

	tok := l.makeToken(token.EOF, startPos, startCol, startLine)
	return tok, util.Errorf(util.LexError, tok, "unknown token: %q", ch)
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: string(l.source[startPos:l.pos]),
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) matchThen(expected rune, thenType, elseType token.Type, sPos, sCol, sLine int) token.Token {
	if l.match(expected) {
		return l.makeToken(thenType, sPos, sCol, sLine)
	}
	return l.makeToken(elseType, sPos, sCol, sLine)
}

// skipWhitespaceAndComments never consumes the newline ending a comment; it is a token.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch l.peek() {
		case ' ', '\t', '\r':
			l.advance()
		case '#':
			if !l.cfg.IsFeatureEnabled(config.FeatComments) {
				return
			}
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for isLetter(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}
	tok := l.makeToken(token.Ident, startPos, startCol, startLine)
	if tokType, isKeyword := token.KeywordMap[tok.Value]; isKeyword {
		tok.Type = tokType
	}
	return tok
}

func (l *Lexer) numberLiteral(startPos, startCol, startLine int) (token.Token, error) {
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.match('.') {
		if !isDigit(l.peek()) {
			tok := l.makeToken(token.Number, startPos, startCol, startLine)
			return tok, util.Errorf(util.LexError, tok, "illegal character in number: %q", tok.Value+string(l.peek()))
		}
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	return l.makeToken(token.Number, startPos, startCol, startLine), nil
}

// stringLiteral runs after the opening quote. The token value excludes both quotes.
func (l *Lexer) stringLiteral(startPos, startCol, startLine int) (token.Token, error) {
	bodyStart := l.pos
	for !l.isAtEnd() && l.peek() != '"' {
		switch c := l.peek(); c {
		case '\r', '\n', '\t', '%':
			tok := l.makeToken(token.String, startPos, startCol, startLine)
			return tok, util.Errorf(util.LexError, tok, "illegal character in string literal: %q", c)
		}
		l.advance()
	}
	if l.isAtEnd() {
		tok := l.makeToken(token.String, startPos, startCol, startLine)
		return tok, util.Errorf(util.LexError, tok, "unterminated string literal")
	}
	body := string(l.source[bodyStart:l.pos])
	l.advance()
	tok := l.makeToken(token.String, startPos, startCol, startLine)
	tok.Value = body
	return tok, nil
}

func isLetter(c rune) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c rune) bool  { return c >= '0' && c <= '9' }
