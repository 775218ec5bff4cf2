package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xplshn/gtc/pkg/config"
	"github.com/xplshn/gtc/pkg/emitter"
	"github.com/xplshn/gtc/pkg/lexer"
	"github.com/xplshn/gtc/pkg/util"
)

const prologue = "#include <stdio.h>\nint main(void){\n"
const epilogue = "return 0;\n}\n"

func translate(src string, cfg *config.Config) (string, *Parser, error) {
	e := emitter.New()
	p, err := NewParser(lexer.NewLexer([]rune(src), cfg), e, cfg)
	if err != nil {
		return "", nil, err
	}
	if err := p.Program(); err != nil {
		return "", p, err
	}
	return e.Code(), p, nil
}

func TestTranslation(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "assignment and print",
			src:  "LET a = 5\nPRINT a\n",
			want: prologue + "float a;\n" +
				"a = 5.0f;\n" +
				"printf(\"%.2f\\n\", (float)(a));\n" + epilogue,
		},
		{
			name: "print string",
			src:  "PRINT \"hello, world!\"\n",
			want: prologue + "printf(\"hello, world!\\n\");\n" + epilogue,
		},
		{
			name: "empty program",
			src:  "",
			want: prologue + epilogue,
		},
		{
			name: "only blank lines",
			src:  "\n\n\n",
			want: prologue + epilogue,
		},
		{
			name: "expression operators copied in order",
			src:  "LET a = 1\nLET b = -a + 2 * a / +3 - 4.5\n",
			want: prologue + "float a;\nfloat b;\n" +
				"a = 1.0f;\n" +
				"b = (-a)+2.0f*a/(+3.0f)-4.5f;\n" + epilogue,
		},
		{
			name: "signed operand after a binary operator",
			src:  "LET a = 1\nLET b = a - -1\nPRINT 2 + +3\n",
			want: prologue + "float a;\nfloat b;\n" +
				"a = 1.0f;\n" +
				"b = a-(-1.0f);\n" +
				"printf(\"%.2f\\n\", (float)(2.0f+(+3.0f)));\n" + epilogue,
		},
		{
			name: "numbers are decimal floats",
			src:  "LET n = 010\nLET m = 08\nPRINT 7 / 2\nLET h = 00.50\n",
			want: prologue + "float n;\nfloat m;\nfloat h;\n" +
				"n = 10.0f;\n" +
				"m = 8.0f;\n" +
				"printf(\"%.2f\\n\", (float)(7.0f/2.0f));\n" +
				"h = 0.50f;\n" + epilogue,
		},
		{
			name: "if block",
			src:  "LET a = 1\nIF a > 0 THEN\nPRINT \"pos\"\nENDIF\n",
			want: prologue + "float a;\n" +
				"a = 1.0f;\n" +
				"if(a>0.0f){\n" +
				"printf(\"pos\\n\");\n" +
				"}\n" + epilogue,
		},
		{
			name: "constant condition",
			src:  "IF 1 > 0 THEN\nPRINT 1\nENDIF\n",
			want: prologue +
				"if(1.0f>0.0f){\n" +
				"printf(\"%.2f\\n\", (float)(1.0f));\n" +
				"}\n" + epilogue,
		},
		{
			name: "while with chained comparison",
			src:  "LET a = 0\nWHILE a < 10 == 1 REPEAT\nLET a = a + 1\nENDWHILE\n",
			want: prologue + "float a;\n" +
				"a = 0.0f;\n" +
				"while(a<10.0f==1.0f){\n" +
				"a = a+1.0f;\n" +
				"}\n" + epilogue,
		},
		{
			name: "goto before label",
			src:  "GOTO end\nPRINT \"skipped\"\nLABEL end\n",
			want: prologue +
				"goto end;\n" +
				"printf(\"skipped\\n\");\n" +
				"end:\n" + epilogue,
		},
		{
			name: "input",
			src:  "INPUT n\nPRINT n\n",
			want: prologue + "float n;\n" +
				"if(1 != scanf(\"%f\", &n)) {\n" +
				"n = 0;\n" +
				"scanf(\"%*s\");\n" +
				"}\n" +
				"printf(\"%.2f\\n\", (float)(n));\n" + epilogue,
		},
		{
			name: "declarations hoisted in first occurrence order",
			src:  "LET b = 1\nIF b == 1 THEN\nINPUT a\nLET c = a\nENDIF\nLET b = 2\nINPUT a\n",
			want: prologue + "float b;\nfloat a;\nfloat c;\n" +
				"b = 1.0f;\n" +
				"if(b==1.0f){\n" +
				"if(1 != scanf(\"%f\", &a)) {\n" +
				"a = 0;\n" +
				"scanf(\"%*s\");\n" +
				"}\n" +
				"c = a;\n" +
				"}\n" +
				"b = 2.0f;\n" +
				"if(1 != scanf(\"%f\", &a)) {\n" +
				"a = 0;\n" +
				"scanf(\"%*s\");\n" +
				"}\n" + epilogue,
		},
		{
			name: "no trailing newline and comments",
			src:  "# counts nothing\nLET x = 3 # three\nPRINT x",
			want: prologue + "float x;\n" +
				"x = 3.0f;\n" +
				"printf(\"%.2f\\n\", (float)(x));\n" + epilogue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := translate(tt.src, config.NewConfig())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("generated C mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIndentedOutput(t *testing.T) {
	cfg := config.NewConfig()
	e := emitter.New()
	e.IndentUnit = "  "
	p, err := NewParser(lexer.NewLexer([]rune("LET a = 1\nWHILE a < 3 REPEAT\nIF a == 2 THEN\nPRINT a\nENDIF\nLET a = a + 1\nENDWHILE\n"), cfg), e, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Program(); err != nil {
		t.Fatal(err)
	}
	want := "#include <stdio.h>\n" +
		"int main(void){\n" +
		"  float a;\n" +
		"  a = 1.0f;\n" +
		"  while(a<3.0f){\n" +
		"    if(a==2.0f){\n" +
		"      printf(\"%.2f\\n\", (float)(a));\n" +
		"    }\n" +
		"    a = a+1.0f;\n" +
		"  }\n" +
		"  return 0;\n" +
		"}\n"
	if diff := cmp.Diff(want, e.Code()); diff != "" {
		t.Errorf("indented C mismatch (-want +got):\n%s", diff)
	}
}

func TestLineDirectives(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatLineDirectives, true)
	e := emitter.New()
	p, err := NewParser(lexer.NewLexer([]rune("\nLET a = 1\n\nPRINT a\n"), cfg), e, cfg)
	if err != nil {
		t.Fatal(err)
	}
	p.FileName = "prog.teeny"
	if err := p.Program(); err != nil {
		t.Fatal(err)
	}
	want := prologue + "float a;\n" +
		"#line 2 \"prog.teeny\"\n" +
		"a = 1.0f;\n" +
		"#line 4 \"prog.teeny\"\n" +
		"printf(\"%.2f\\n\", (float)(a));\n" + epilogue
	if diff := cmp.Diff(want, e.Code()); diff != "" {
		t.Errorf("C mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantKind util.ErrorKind
		wantMsg  string
		wantLine int
	}{
		{
			name:     "use before assignment",
			src:      "PRINT a\n",
			wantKind: util.SemanticError,
			wantMsg:  "referencing variable before assignment: a",
			wantLine: 1,
		},
		{
			name:     "undeclared name in a comparison",
			src:      "LET a = 1\nIF x > a THEN\nENDIF\n",
			wantKind: util.SemanticError,
			wantMsg:  "referencing variable before assignment: x",
			wantLine: 2,
		},
		{
			name:     "duplicate label",
			src:      "LABEL top\nPRINT \"x\"\nLABEL top\n",
			wantKind: util.SemanticError,
			wantMsg:  "label already exists: top",
			wantLine: 3,
		},
		{
			name:     "undeclared goto target",
			src:      "GOTO nowhere\n",
			wantKind: util.SemanticError,
			wantMsg:  "attempting to GOTO to undeclared label: nowhere",
			wantLine: 1,
		},
		{
			name:     "first missing goto target in source order",
			src:      "LABEL a\nGOTO b\nGOTO a\nGOTO c\n",
			wantKind: util.SemanticError,
			wantMsg:  "attempting to GOTO to undeclared label: b",
			wantLine: 2,
		},
		{
			name:     "comparison without operator",
			src:      "LET a = 1\nIF a THEN\nENDIF\n",
			wantKind: util.SyntaxError,
			wantMsg:  `expected comparison operator at: "THEN"`,
			wantLine: 2,
		},
		{
			name:     "missing then",
			src:      "LET a = 1\nIF a == 1\nENDIF\n",
			wantKind: util.SyntaxError,
			wantMsg:  "expected THEN, got NEWLINE",
		},
		{
			name:     "unterminated if",
			src:      "LET a = 1\nIF a == 1 THEN\nPRINT a\n",
			wantKind: util.SyntaxError,
			wantMsg:  `invalid statement at "" (EOF)`,
		},
		{
			name:     "endwhile closing an if",
			src:      "LET a = 1\nIF a == 1 THEN\nENDWHILE\n",
			wantKind: util.SyntaxError,
			wantMsg:  `invalid statement at "ENDWHILE" (ENDWHILE)`,
		},
		{
			name:     "two statements on a line",
			src:      "LET a = 1 PRINT a\n",
			wantKind: util.SyntaxError,
			wantMsg:  "expected NEWLINE, got PRINT",
		},
		{
			name:     "statement starting with an identifier",
			src:      "a = 1\n",
			wantKind: util.SyntaxError,
			wantMsg:  `invalid statement at "a" (IDENT)`,
		},
		{
			name:     "let without equals",
			src:      "LET a 1\n",
			wantKind: util.SyntaxError,
			wantMsg:  "expected EQ, got NUMBER",
		},
		{
			name:     "label needs a name",
			src:      "LABEL 10\n",
			wantKind: util.SyntaxError,
			wantMsg:  "expected IDENT, got NUMBER",
		},
		{
			name:     "dangling operator",
			src:      "LET a = 1 +\n",
			wantKind: util.SyntaxError,
			wantMsg:  `unexpected token at "\n"`,
		},
		{
			name:     "lex error surfaces through the parser",
			src:      "LET a = 1\nPRINT a ! 2\n",
			wantKind: util.LexError,
			wantMsg:  `expected '!=', got '!' followed by ' '`,
			wantLine: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := translate(tt.src, config.NewConfig())
			if err == nil {
				t.Fatalf("expected an error, got output:\n%s", got)
			}
			if got != "" {
				t.Errorf("partial output returned alongside error: %q", got)
			}
			ce, ok := err.(*util.CompileError)
			if !ok {
				t.Fatalf("error %T is not a *util.CompileError: %v", err, err)
			}
			if ce.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", ce.Kind, tt.wantKind)
			}
			if ce.Msg != tt.wantMsg {
				t.Errorf("message = %q, want %q", ce.Msg, tt.wantMsg)
			}
			if tt.wantLine != 0 && ce.Tok.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", ce.Tok.Line, tt.wantLine)
			}
		})
	}
}

// LET declares its target before the right-hand side is read, so a variable may
// refer to itself in its first assignment.
func TestLetDeclaresBeforeExpression(t *testing.T) {
	got, _, err := translate("LET a = a + 1\n", config.NewConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := prologue + "float a;\na = a+1.0f;\n" + epilogue
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("C mismatch (-want +got):\n%s", diff)
	}
}

func TestSymbolTables(t *testing.T) {
	src := "INPUT z\nLET y = z\nLABEL loop\nLET z = z - 1\nIF z > 0 THEN\nGOTO loop\nENDIF\nGOTO done\nLABEL done\nGOTO loop\n"
	_, p, err := translate(src, config.NewConfig())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"z", "y"}, p.Symbols()); diff != "" {
		t.Errorf("symbols (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"loop", "done"}, p.Labels()); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"loop", "done", "loop"}, p.Gotos()); diff != "" {
		t.Errorf("gotos (-want +got):\n%s", diff)
	}
}

func TestWarnings(t *testing.T) {
	type warning struct {
		Name string
		Line int
		Msg  string
	}

	tests := []struct {
		name  string
		src   string
		setup func(*config.Config)
		want  []warning
	}{
		{
			name: "unused label",
			src:  "LABEL spare\nPRINT \"x\"\n",
			want: []warning{{"unused-label", 1, "label 'spare' is never used"}},
		},
		{
			name: "unused label disabled",
			src:  "LABEL spare\n",
			setup: func(c *config.Config) {
				c.SetWarning(config.WarnUnusedLabel, false)
			},
		},
		{
			name: "unused variable only when enabled",
			src:  "LET a = 1\nLET b = a\n",
		},
		{
			name: "unused variable",
			src:  "LET a = 1\nLET b = a\nINPUT c\n",
			setup: func(c *config.Config) {
				c.SetWarning(config.WarnUnusedVar, true)
			},
			want: []warning{
				{"unused-var", 2, "variable 'b' is never read"},
				{"unused-var", 3, "variable 'c' is never read"},
			},
		},
		{
			name: "reserved C names",
			src:  "LET int = 1\nLABEL main\nGOTO main\nPRINT int\n",
			want: []warning{
				{"c-keyword", 1, "variable name 'int' is reserved in the generated C"},
				{"c-keyword", 2, "label name 'main' is reserved in the generated C"},
			},
		},
		{
			name: "all off",
			src:  "LET while = 1\nLABEL x\n",
			setup: func(c *config.Config) {
				c.SetAllWarnings(false)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			if tt.setup != nil {
				tt.setup(cfg)
			}
			_, p, err := translate(tt.src, cfg)
			if err != nil {
				t.Fatal(err)
			}
			var got []warning
			for _, d := range p.Warnings() {
				got = append(got, warning{d.Name, d.Tok.Line, d.Msg})
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("warnings (-want +got):\n%s", diff)
			}
		})
	}
}

// Every statement boundary in the output must be a newline: generated C never packs two
// statements on one line.
func TestOneStatementPerLine(t *testing.T) {
	src := "LET a = 1\nWHILE a < 5 REPEAT\nLET a = a + 1\nPRINT a\nENDWHILE\n"
	got, _, err := translate(src, config.NewConfig())
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range strings.Split(strings.TrimSuffix(got, "\n"), "\n") {
		if strings.Count(line, ";") > 1 {
			t.Errorf("line %q holds more than one statement", line)
		}
	}
}

func TestFloatLiteral(t *testing.T) {
	tests := []struct{ in, want string }{
		{"0", "0.0f"},
		{"5", "5.0f"},
		{"010", "10.0f"},
		{"08", "8.0f"},
		{"000", "0.0f"},
		{"3.14", "3.14f"},
		{"0.5", "0.5f"},
		{"007.25", "7.25f"},
	}
	for _, tt := range tests {
		if got := floatLiteral(tt.in); got != tt.want {
			t.Errorf("floatLiteral(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
