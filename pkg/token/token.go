package token

type Type int

const (
	EOF Type = iota
	Newline
	Number
	Ident
	String
	Label
	Goto
	Print
	Input
	Let
	If
	Then
	EndIf
	While
	Repeat
	EndWhile
	Eq
	Plus
	Minus
	Asterisk
	Slash
	EqEq
	NotEq
	Lt
	LtEq
	Gt
	GtEq
)

// KeywordMap is the only source of keyword classification.
var KeywordMap = map[string]Type{
	"LABEL":    Label,
	"GOTO":     Goto,
	"PRINT":    Print,
	"INPUT":    Input,
	"LET":      Let,
	"IF":       If,
	"THEN":     Then,
	"ENDIF":    EndIf,
	"WHILE":    While,
	"REPEAT":   Repeat,
	"ENDWHILE": EndWhile,
}

// Reverse mapping from Type to its display name
var TypeStrings = map[Type]string{
	EOF:      "EOF",
	Newline:  "NEWLINE",
	Number:   "NUMBER",
	Ident:    "IDENT",
	String:   "STRING",
	Eq:       "EQ",
	Plus:     "PLUS",
	Minus:    "MINUS",
	Asterisk: "ASTERISK",
	Slash:    "SLASH",
	EqEq:     "EQEQ",
	NotEq:    "NOTEQ",
	Lt:       "LT",
	LtEq:     "LTEQ",
	Gt:       "GT",
	GtEq:     "GTEQ",
}

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return "UNKNOWN"
}

func (t Type) IsKeyword() bool {
	switch t {
	case Label, Goto, Print, Input, Let, If, Then, EndIf, While, Repeat, EndWhile:
		return true
	}
	return false
}

func (t Type) IsOperator() bool {
	switch t {
	case Eq, Plus, Minus, Asterisk, Slash, EqEq, NotEq, Lt, LtEq, Gt, GtEq:
		return true
	}
	return false
}

// IsComparison reports whether t may join two expressions in a comparison.
func (t Type) IsComparison() bool {
	switch t {
	case EqEq, NotEq, Lt, LtEq, Gt, GtEq:
		return true
	}
	return false
}

type Token struct {
	Type   Type
	Value  string
	Line   int
	Column int
	Len    int
}
