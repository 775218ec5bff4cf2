package parser

import (
	"fmt"

	"github.com/xplshn/gtc/pkg/config"
	"github.com/xplshn/gtc/pkg/token"
	"github.com/xplshn/gtc/pkg/util"
)

// cReserved are names that cannot be used as a local float or a label in the generated C,
// either because C reserves them or because they would shadow the runtime we call.
var cReserved = map[string]bool{
	"auto": true, "break": true, "case": true, "char": true, "const": true, "continue": true,
	"default": true, "do": true, "double": true, "else": true, "enum": true, "extern": true,
	"float": true, "for": true, "goto": true, "if": true, "inline": true, "int": true,
	"long": true, "register": true, "restrict": true, "return": true, "short": true,
	"signed": true, "sizeof": true, "static": true, "struct": true, "switch": true,
	"typedef": true, "union": true, "unsigned": true, "void": true, "volatile": true,
	"while": true, "main": true, "printf": true, "scanf": true,
}

// declare adds name to the symbol set the first time it is assigned and emits its one
// backing declaration. Later LET/INPUT statements on the same name only reassign it.
func (p *Parser) declare(tok token.Token) {
	if _, ok := p.symbols[tok.Value]; ok {
		return
	}
	p.symbols[tok.Value] = tok
	p.symbolOrder = append(p.symbolOrder, tok.Value)
	p.emit.HeaderLine(p.emit.IndentUnit + "float " + tok.Value + ";")
	p.checkCName(tok, "variable")
}

func (p *Parser) warn(wt config.Warning, tok token.Token, format string, args ...any) {
	if !p.cfg.IsWarningEnabled(wt) {
		return
	}
	p.warnings = append(p.warnings, util.Diagnostic{
		Name: p.cfg.Warnings[wt].Name,
		Tok:  tok,
		Msg:  fmt.Sprintf(format, args...),
	})
}

func (p *Parser) checkCName(tok token.Token, what string) {
	if cReserved[tok.Value] {
		p.warn(config.WarnCKeyword, tok, "%s name '%s' is reserved in the generated C", what, tok.Value)
	}
}

// collectUnused runs once the whole program has been seen.
func (p *Parser) collectUnused() {
	for _, name := range p.labelOrder {
		if !p.labelsGotoed[name] {
			p.warn(config.WarnUnusedLabel, p.labelsDeclared[name], "label '%s' is never used", name)
		}
	}
	for _, name := range p.symbolOrder {
		if !p.used[name] {
			p.warn(config.WarnUnusedVar, p.symbols[name], "variable '%s' is never read", name)
		}
	}
}
