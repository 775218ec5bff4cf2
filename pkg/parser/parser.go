package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xplshn/gtc/pkg/config"
	"github.com/xplshn/gtc/pkg/emitter"
	"github.com/xplshn/gtc/pkg/lexer"
	"github.com/xplshn/gtc/pkg/token"
	"github.com/xplshn/gtc/pkg/util"
)

// Parser checks and translates a program in a single pass. It keeps a two token window
// (current, peek) and issues emitter calls as each rule is recognized.
type Parser struct {
	lexer   *lexer.Lexer
	emit    *emitter.Emitter
	cfg     *config.Config
	current token.Token
	peek    token.Token

	// FileName is only used for #line directives.
	FileName string

	symbols        map[string]token.Token
	symbolOrder    []string
	used           map[string]bool
	labelsDeclared map[string]token.Token
	labelOrder     []string
	labelsGotoed   map[string]bool
	gotos          []token.Token
	warnings       []util.Diagnostic
}

// NewParser primes the token window, so it can already fail on a lexing error.
func NewParser(l *lexer.Lexer, e *emitter.Emitter, cfg *config.Config) (*Parser, error) {
	p := &Parser{
		lexer:          l,
		emit:           e,
		cfg:            cfg,
		symbols:        make(map[string]token.Token),
		used:           make(map[string]bool),
		labelsDeclared: make(map[string]token.Token),
		labelsGotoed:   make(map[string]bool),
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

// Symbols returns the declared variables in first-occurrence order.
func (p *Parser) Symbols() []string { return append([]string(nil), p.symbolOrder...) }

// Labels returns the declared labels in declaration order.
func (p *Parser) Labels() []string { return append([]string(nil), p.labelOrder...) }

// Gotos returns every GOTO target in source order, repeats included.
func (p *Parser) Gotos() []string {
	names := make([]string, len(p.gotos))
	for i, tok := range p.gotos {
		names[i] = tok.Value
	}
	return names
}

func (p *Parser) Warnings() []util.Diagnostic { return p.warnings }

// Parser helpers
func (p *Parser) advance() error {
	next, err := p.lexer.Next()
	if err != nil {
		return err
	}
	p.current, p.peek = p.peek, next
	return nil
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) error {
	if !p.check(tokType) {
		return util.Errorf(util.SyntaxError, p.current, "expected %s, got %s", tokType, p.current.Type)
	}
	return p.advance()
}

// emitAndAdvance copies the current token text into the body and moves on.
func (p *Parser) emitAndAdvance() error {
	p.emit.Emit(p.current.Value)
	return p.advance()
}

// Program parses the whole input, then validates GOTO targets.
// program ::= {NEWLINE} {statement}
func (p *Parser) Program() error {
	p.emit.HeaderLine("#include <stdio.h>")
	p.emit.HeaderLine("int main(void){")
	p.emit.Indent()

	for p.check(token.Newline) {
		if err := p.advance(); err != nil {
			return err
		}
	}
	for !p.check(token.EOF) {
		if err := p.statement(); err != nil {
			return err
		}
	}

	for _, tok := range p.gotos {
		if _, ok := p.labelsDeclared[tok.Value]; !ok {
			return util.Errorf(util.SemanticError, tok, "attempting to GOTO to undeclared label: %s", tok.Value)
		}
	}

	p.emit.EmitLine("return 0;")
	p.emit.Dedent()
	p.emit.EmitLine("}")

	p.collectUnused()
	return nil
}

// Statement Parsing
func (p *Parser) statement() error {
	if p.cfg.IsFeatureEnabled(config.FeatLineDirectives) {
		p.emit.EmitRaw(fmt.Sprintf("#line %d %s", p.current.Line, strconv.Quote(p.FileName)))
	}

	var err error
	switch p.current.Type {
	case token.Print:
		err = p.printStatement()
	case token.If:
		err = p.blockStatement("if(", token.Then, token.EndIf)
	case token.While:
		err = p.blockStatement("while(", token.Repeat, token.EndWhile)
	case token.Label:
		err = p.labelStatement()
	case token.Goto:
		err = p.gotoStatement()
	case token.Let:
		err = p.letStatement()
	case token.Input:
		err = p.inputStatement()
	default:
		return util.Errorf(util.SyntaxError, p.current, "invalid statement at %q (%s)", p.current.Value, p.current.Type)
	}
	if err != nil {
		return err
	}
	return p.nl()
}

// PRINT (expression | STRING)
func (p *Parser) printStatement() error {
	if err := p.advance(); err != nil {
		return err
	}
	if p.check(token.String) {
		p.emit.EmitLine(`printf("` + p.current.Value + `\n");`)
		return p.advance()
	}
	p.emit.Emit(`printf("%.2f\n", (float)(`)
	if err := p.expression(); err != nil {
		return err
	}
	p.emit.EmitLine("));")
	return nil
}

// IF comparison THEN nl {statement} ENDIF
// WHILE comparison REPEAT nl {statement} ENDWHILE
//
// Running into EOF before the terminator is reported by statement() as an invalid statement.
func (p *Parser) blockStatement(open string, body, end token.Type) error {
	if err := p.advance(); err != nil {
		return err
	}
	p.emit.Emit(open)
	if err := p.comparison(); err != nil {
		return err
	}
	if err := p.match(body); err != nil {
		return err
	}
	if err := p.nl(); err != nil {
		return err
	}
	p.emit.EmitLine("){")

	p.emit.Indent()
	for !p.check(end) {
		if err := p.statement(); err != nil {
			return err
		}
	}
	p.emit.Dedent()

	if err := p.match(end); err != nil {
		return err
	}
	p.emit.EmitLine("}")
	return nil
}

// LABEL IDENT
func (p *Parser) labelStatement() error {
	if err := p.advance(); err != nil {
		return err
	}
	tok := p.current
	if err := p.match(token.Ident); err != nil {
		return err
	}
	if _, exists := p.labelsDeclared[tok.Value]; exists {
		return util.Errorf(util.SemanticError, tok, "label already exists: %s", tok.Value)
	}
	p.labelsDeclared[tok.Value] = tok
	p.labelOrder = append(p.labelOrder, tok.Value)
	p.checkCName(tok, "label")

	p.emit.EmitLine(tok.Value + ":")
	return nil
}

// GOTO IDENT. The target may be declared later; Program checks it at the end.
func (p *Parser) gotoStatement() error {
	if err := p.advance(); err != nil {
		return err
	}
	tok := p.current
	if err := p.match(token.Ident); err != nil {
		return err
	}
	p.labelsGotoed[tok.Value] = true
	p.gotos = append(p.gotos, tok)

	p.emit.EmitLine("goto " + tok.Value + ";")
	return nil
}

// LET IDENT EQ expression
func (p *Parser) letStatement() error {
	if err := p.advance(); err != nil {
		return err
	}
	tok := p.current
	if err := p.match(token.Ident); err != nil {
		return err
	}
	p.declare(tok)

	p.emit.Emit(tok.Value + " = ")
	if err := p.match(token.Eq); err != nil {
		return err
	}
	if err := p.expression(); err != nil {
		return err
	}
	p.emit.EmitLine(";")
	return nil
}

// INPUT IDENT. Unparseable input or end of input leaves the variable at 0 and discards the bad word.
func (p *Parser) inputStatement() error {
	if err := p.advance(); err != nil {
		return err
	}
	tok := p.current
	if err := p.match(token.Ident); err != nil {
		return err
	}
	p.declare(tok)

	p.emit.EmitLine(`if(1 != scanf("%f", &` + tok.Value + `)) {`)
	p.emit.Indent()
	p.emit.EmitLine(tok.Value + " = 0;")
	p.emit.EmitLine(`scanf("%*s");`)
	p.emit.Dedent()
	p.emit.EmitLine("}")
	return nil
}

// nl ::= NEWLINE {NEWLINE}
func (p *Parser) nl() error {
	if err := p.match(token.Newline); err != nil {
		return err
	}
	for p.check(token.Newline) {
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

// Expression Parsing

// comparison ::= expression compare_op expression {compare_op expression}
func (p *Parser) comparison() error {
	if err := p.expression(); err != nil {
		return err
	}
	if !p.current.Type.IsComparison() {
		return util.Errorf(util.SyntaxError, p.current, "expected comparison operator at: %q", p.current.Value)
	}
	for p.current.Type.IsComparison() {
		if err := p.emitAndAdvance(); err != nil {
			return err
		}
		if err := p.expression(); err != nil {
			return err
		}
	}
	return nil
}

// expression ::= term {(PLUS|MINUS) term}
func (p *Parser) expression() error {
	if err := p.term(); err != nil {
		return err
	}
	for p.check(token.Plus) || p.check(token.Minus) {
		if err := p.emitAndAdvance(); err != nil {
			return err
		}
		if err := p.term(); err != nil {
			return err
		}
	}
	return nil
}

// term ::= unary {(ASTERISK|SLASH) unary}
func (p *Parser) term() error {
	if err := p.unary(); err != nil {
		return err
	}
	for p.check(token.Asterisk) || p.check(token.Slash) {
		if err := p.emitAndAdvance(); err != nil {
			return err
		}
		if err := p.unary(); err != nil {
			return err
		}
	}
	return nil
}

// unary ::= [PLUS|MINUS] primary
//
// A signed operand is parenthesized so that it never fuses with a preceding binary
// operator into C's ++ or --.
func (p *Parser) unary() error {
	if !p.check(token.Plus) && !p.check(token.Minus) {
		return p.primary()
	}
	p.emit.Emit("(")
	if err := p.emitAndAdvance(); err != nil {
		return err
	}
	if err := p.primary(); err != nil {
		return err
	}
	p.emit.Emit(")")
	return nil
}

// primary ::= NUMBER | IDENT
func (p *Parser) primary() error {
	switch p.current.Type {
	case token.Number:
		p.emit.Emit(floatLiteral(p.current.Value))
		return p.advance()
	case token.Ident:
		name := p.current.Value
		if _, ok := p.symbols[name]; !ok {
			return util.Errorf(util.SemanticError, p.current, "referencing variable before assignment: %s", name)
		}
		p.used[name] = true
		return p.emitAndAdvance()
	}
	return util.Errorf(util.SyntaxError, p.current, "unexpected token at %q", p.current.Value)
}

// floatLiteral rewrites a NUMBER lexeme as a C float constant. Leading zeros would make C
// read the integer part as octal, and an integer constant would bring in integer division.
func floatLiteral(lexeme string) string {
	whole, frac, hasFrac := strings.Cut(lexeme, ".")
	whole = strings.TrimLeft(whole, "0")
	if whole == "" {
		whole = "0"
	}
	if !hasFrac {
		frac = "0"
	}
	return whole + "." + frac + "f"
}
