package emitter

import (
	"strings"
)

// Emitter collects generated C in two streams so that variable declarations found anywhere
// in the program end up before the first statement.
type Emitter struct {
	header strings.Builder
	code   strings.Builder
	indent int
	// IndentUnit prefixes each body line once per open block. Empty disables indentation.
	IndentUnit string
	lineOpen   bool
}

func New() *Emitter { return &Emitter{} }

// Emit appends to the body without ending the line.
func (e *Emitter) Emit(code string) {
	if !e.lineOpen {
		e.code.WriteString(strings.Repeat(e.IndentUnit, e.indent))
		e.lineOpen = true
	}
	e.code.WriteString(code)
}

func (e *Emitter) EmitLine(code string) {
	e.Emit(code)
	e.code.WriteByte('\n')
	e.lineOpen = false
}

// EmitRaw writes a whole line at column zero, for preprocessor directives.
func (e *Emitter) EmitRaw(line string) {
	e.code.WriteString(line)
	e.code.WriteByte('\n')
}

func (e *Emitter) HeaderLine(code string) {
	e.header.WriteString(code)
	e.header.WriteByte('\n')
}

func (e *Emitter) Indent() { e.indent++ }

func (e *Emitter) Dedent() {
	if e.indent > 0 {
		e.indent--
	}
}

// Code returns the translation unit: header first, then body.
func (e *Emitter) Code() string {
	var sb strings.Builder
	sb.Grow(e.header.Len() + e.code.Len())
	sb.WriteString(e.header.String())
	sb.WriteString(e.code.String())
	return sb.String()
}
