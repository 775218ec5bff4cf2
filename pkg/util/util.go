package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/xplshn/gtc/pkg/token"
)

type ErrorKind int

const (
	LexError ErrorKind = iota
	SyntaxError
	SemanticError
)

func (k ErrorKind) String() string {
	switch k {
	case LexError:
		return "LexError"
	case SyntaxError:
		return "SyntaxError"
	case SemanticError:
		return "SemanticError"
	}
	return "Error"
}

// CompileError is the single failure type of the compiler core. The first one raised ends
// the compilation; there is no recovery.
type CompileError struct {
	Kind ErrorKind
	Tok  token.Token
	Msg  string
}

func (e *CompileError) Error() string { return e.Kind.String() + ": " + e.Msg }

func Errorf(kind ErrorKind, tok token.Token, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the CompileError wrapped in err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}

// Diagnostic is a non-fatal finding. Name is the -W flag that controls it.
type Diagnostic struct {
	Name string
	Tok  token.Token
	Msg  string
}

// SourceFileRecord tracks the name and content of the file being compiled.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

// Reporter renders errors and warnings against a source file, gcc style.
type Reporter struct {
	Source SourceFileRecord
	Out    io.Writer
	Color  bool
}

func NewReporter(source SourceFileRecord, out io.Writer) *Reporter {
	return &Reporter{Source: source, Out: out, Color: IsTerminal(out)}
}

// IsTerminal reports whether w is a character device we can safely colour.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *Reporter) paint(code, s string) string {
	if !r.Color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// Error prints err. Errors that carry no source position are printed on their own.
func (r *Reporter) Error(err error) {
	var ce *CompileError
	if !errors.As(err, &ce) {
		fmt.Fprintf(r.Out, "%s: %s %v\n", r.Source.Name, r.paint("31", "error:"), err)
		return
	}
	fmt.Fprintf(r.Out, "%s:%d:%d: %s %s\n", r.Source.Name, ce.Tok.Line, ce.Tok.Column, r.paint("31", "error:"), ce.Error())
	r.printErrorLine(ce.Tok)
}

func (r *Reporter) Warn(d Diagnostic) {
	fmt.Fprintf(r.Out, "%s:%d:%d: %s %s [-W%s]\n", r.Source.Name, d.Tok.Line, d.Tok.Column, r.paint("33", "warning:"), d.Msg, d.Name)
	r.printErrorLine(d.Tok)
}

// printErrorLine prints the source line and a caret under the offending token
func (r *Reporter) printErrorLine(tok token.Token) {
	if tok.Line == 0 {
		return
	}
	content := r.Source.Content
	lineStart, lineNum := 0, tok.Line
	for i, c := range content {
		if lineNum <= 1 {
			break
		}
		if c == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}
	if lineNum > 1 || lineStart > len(content) {
		return
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(r.Out, "  %s\n", strings.TrimRight(string(content[lineStart:lineEnd]), "\r"))
	caret := strings.Repeat(" ", max(tok.Column-1, 0)) + "^"
	if tok.Len > 1 {
		caret += strings.Repeat("~", tok.Len-1)
	}
	fmt.Fprintf(r.Out, "  %s\n", r.paint("32", caret))
}
