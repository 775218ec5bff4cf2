package compiler

import (
	"log/slog"
	"time"

	"github.com/xplshn/gtc/pkg/config"
	"github.com/xplshn/gtc/pkg/emitter"
	"github.com/xplshn/gtc/pkg/lexer"
	"github.com/xplshn/gtc/pkg/parser"
	"github.com/xplshn/gtc/pkg/token"
	"github.com/xplshn/gtc/pkg/util"
)

type Result struct {
	C        string
	Symbols  []string
	Labels   []string
	Warnings []util.Diagnostic
}

// Compile translates one teeny program to C. name only appears in #line directives. On
// failure no partial output is returned.
func Compile(name string, src []rune, cfg *config.Config, logger *slog.Logger) (*Result, error) {
	start := time.Now()

	e := emitter.New()
	if cfg.IsFeatureEnabled(config.FeatIndent) {
		e.IndentUnit = "    "
	}

	p, err := parser.NewParser(lexer.NewLexer(src, cfg), e, cfg)
	if err != nil {
		return nil, err
	}
	p.FileName = name

	logger.Debug("parsing", "file", name, "runes", len(src))
	if err := p.Program(); err != nil {
		logger.Debug("compilation failed", "file", name, "error", err)
		return nil, err
	}

	res := &Result{
		C:        e.Code(),
		Symbols:  p.Symbols(),
		Labels:   p.Labels(),
		Warnings: p.Warnings(),
	}
	logger.Debug("compiled",
		"file", name,
		"variables", len(res.Symbols),
		"labels", len(res.Labels),
		"warnings", len(res.Warnings),
		"elapsed", time.Since(start),
	)
	return res, nil
}

// Tokenize lexes src to the end, EOF included.
func Tokenize(src []rune, cfg *config.Config) ([]token.Token, error) {
	l := lexer.NewLexer(src, cfg)
	var tokens []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens, nil
		}
	}
}
