package emitter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHeaderPrecedesBody(t *testing.T) {
	e := New()
	e.EmitLine("a = 1;")
	e.HeaderLine("float a;")
	e.Emit("b = ")
	e.Emit("2")
	e.EmitLine(";")
	e.HeaderLine("float b;")

	want := "float a;\nfloat b;\na = 1;\nb = 2;\n"
	if diff := cmp.Diff(want, e.Code()); diff != "" {
		t.Errorf("Code() mismatch (-want +got):\n%s", diff)
	}
}

func TestIndentation(t *testing.T) {
	e := New()
	e.IndentUnit = "\t"
	e.EmitLine("top;")
	e.Indent()
	e.Emit("x")
	e.Emit(" = 1")
	e.EmitLine(";")
	e.EmitRaw("#line 3 \"f\"")
	e.Indent()
	e.EmitLine("deep;")
	e.Dedent()
	e.Dedent()
	e.Dedent()
	e.EmitLine("back;")

	want := "top;\n\tx = 1;\n#line 3 \"f\"\n\t\tdeep;\nback;\n"
	if diff := cmp.Diff(want, e.Code()); diff != "" {
		t.Errorf("Code() mismatch (-want +got):\n%s", diff)
	}
}

func TestNoIndentUnit(t *testing.T) {
	e := New()
	e.Indent()
	e.Indent()
	e.EmitLine("flat;")
	if got := e.Code(); got != "flat;\n" {
		t.Errorf("Code() = %q, want %q", got, "flat;\n")
	}
}
