package lexer

import (
	"testing"

	"github.com/sqc-lang/sqcvm/token"
)

// TestNextToken runs a representative SQC fragment through the lexer and
// checks every produced token.
func TestNextToken(t *testing.T) {
	input := `private _five = 5;
hp = 10.5;
if (_five < hp) then { "low" } else { 'high' };
for _i from 0 to 4 step 2 do { _i };
while { hp >= 0 } do { hp = hp - 1 };
switch (x) { case 1: { true } default: { false } };
try { throw nil } catch { _exception };
mask = 0xFF;
tiny = 1.5e-3;
a == b; a != b; a === b; a !== b; a && b || !c;
arr = [1, 2]; arr[0];
function add(a, b) { return a + b }
foreach (u in arr) do { u }`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.PRIVATE, "private"},
		{token.IDENT, "_five"},
		{token.ASSIGN, "="},
		{token.NUMBER, "5"},
		{token.SEMICOLON, ";"},

		{token.IDENT, "hp"},
		{token.ASSIGN, "="},
		{token.NUMBER, "10.5"},
		{token.SEMICOLON, ";"},

		{token.IF, "if"},
		{token.LPAREN, "("},
		{token.IDENT, "_five"},
		{token.LT, "<"},
		{token.IDENT, "hp"},
		{token.RPAREN, ")"},
		{token.THEN, "then"},
		{token.LBRACE, "{"},
		{token.STRING, "low"},
		{token.RBRACE, "}"},
		{token.ELSE, "else"},
		{token.LBRACE, "{"},
		{token.STRING, "high"},
		{token.RBRACE, "}"},
		{token.SEMICOLON, ";"},

		{token.FOR, "for"},
		{token.IDENT, "_i"},
		{token.FROM, "from"},
		{token.NUMBER, "0"},
		{token.TO, "to"},
		{token.NUMBER, "4"},
		{token.STEP, "step"},
		{token.NUMBER, "2"},
		{token.DO, "do"},
		{token.LBRACE, "{"},
		{token.IDENT, "_i"},
		{token.RBRACE, "}"},
		{token.SEMICOLON, ";"},

		{token.WHILE, "while"},
		{token.LBRACE, "{"},
		{token.IDENT, "hp"},
		{token.GE, ">="},
		{token.NUMBER, "0"},
		{token.RBRACE, "}"},
		{token.DO, "do"},
		{token.LBRACE, "{"},
		{token.IDENT, "hp"},
		{token.ASSIGN, "="},
		{token.IDENT, "hp"},
		{token.MINUS, "-"},
		{token.NUMBER, "1"},
		{token.RBRACE, "}"},
		{token.SEMICOLON, ";"},

		{token.SWITCH, "switch"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.CASE, "case"},
		{token.NUMBER, "1"},
		{token.COLON, ":"},
		{token.LBRACE, "{"},
		{token.TRUE, "true"},
		{token.RBRACE, "}"},
		{token.DEFAULT, "default"},
		{token.COLON, ":"},
		{token.LBRACE, "{"},
		{token.FALSE, "false"},
		{token.RBRACE, "}"},
		{token.RBRACE, "}"},
		{token.SEMICOLON, ";"},

		{token.TRY, "try"},
		{token.LBRACE, "{"},
		{token.THROW, "throw"},
		{token.NIL, "nil"},
		{token.RBRACE, "}"},
		{token.CATCH, "catch"},
		{token.LBRACE, "{"},
		{token.IDENT, "_exception"},
		{token.RBRACE, "}"},
		{token.SEMICOLON, ";"},

		{token.IDENT, "mask"},
		{token.ASSIGN, "="},
		{token.NUMBER, "0xFF"},
		{token.SEMICOLON, ";"},

		{token.IDENT, "tiny"},
		{token.ASSIGN, "="},
		{token.NUMBER, "1.5e-3"},
		{token.SEMICOLON, ";"},

		{token.IDENT, "a"},
		{token.EQ, "=="},
		{token.IDENT, "b"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "a"},
		{token.NOT_EQ, "!="},
		{token.IDENT, "b"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "a"},
		{token.EQ_EXACT, "==="},
		{token.IDENT, "b"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "a"},
		{token.NOT_EQ_EXCL, "!=="},
		{token.IDENT, "b"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "a"},
		{token.AND, "&&"},
		{token.IDENT, "b"},
		{token.OR, "||"},
		{token.BANG, "!"},
		{token.IDENT, "c"},
		{token.SEMICOLON, ";"},

		{token.IDENT, "arr"},
		{token.ASSIGN, "="},
		{token.LBRACKET, "["},
		{token.NUMBER, "1"},
		{token.COMMA, ","},
		{token.NUMBER, "2"},
		{token.RBRACKET, "]"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "arr"},
		{token.LBRACKET, "["},
		{token.NUMBER, "0"},
		{token.RBRACKET, "]"},
		{token.SEMICOLON, ";"},

		{token.FUNCTION, "function"},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.IDENT, "a"},
		{token.COMMA, ","},
		{token.IDENT, "b"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RETURN, "return"},
		{token.IDENT, "a"},
		{token.PLUS, "+"},
		{token.IDENT, "b"},
		{token.RBRACE, "}"},

		{token.FOREACH, "foreach"},
		{token.LPAREN, "("},
		{token.IDENT, "u"},
		{token.IN, "in"},
		{token.IDENT, "arr"},
		{token.RPAREN, ")"},
		{token.DO, "do"},
		{token.LBRACE, "{"},
		{token.IDENT, "u"},
		{token.RBRACE, "}"},

		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

// TestComments ensures line and block comments are skipped entirely.
func TestComments(t *testing.T) {
	input := `// leading comment
x = 1; // trailing comment
/* block
   comment */ y = 2;`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.IDENT, "x"},
		{token.ASSIGN, "="},
		{token.NUMBER, "1"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "y"},
		{token.ASSIGN, "="},
		{token.NUMBER, "2"},
		{token.SEMICOLON, ";"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

// TestStringEscapes checks the doubled-quote escape in both quote styles.
func TestStringEscapes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"say ""hi"""`, `say "hi"`},
		{`'it''s'`, `it's`},
		{`""`, ``},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != token.STRING {
			t.Fatalf("token type = %q, want STRING for %q", tok.Type, tt.input)
		}
		if tok.Literal != tt.want {
			t.Errorf("literal = %q, want %q for input %q", tok.Literal, tt.want, tt.input)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`"never closed`)
	tok := l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("token type = %q, want ILLEGAL", tok.Type)
	}
}

// TestPositions verifies line and column tracking.
func TestPositions(t *testing.T) {
	input := "ab = 1;\n  cd = 2;"

	l := New(input)

	tests := []struct {
		literal string
		line    int
		column  int
	}{
		{"ab", 1, 1},
		{"=", 1, 4},
		{"1", 1, 6},
		{";", 1, 7},
		{"cd", 2, 3},
		{"=", 2, 6},
		{"2", 2, 8},
		{";", 2, 9},
	}

	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Literal != tt.literal {
			t.Fatalf("tests[%d] - literal = %q, want %q", i, tok.Literal, tt.literal)
		}
		if tok.Line != tt.line || tok.Column != tt.column {
			t.Errorf("tests[%d] %q - position = %d:%d, want %d:%d",
				i, tt.literal, tok.Line, tok.Column, tt.line, tt.column)
		}
	}
}

func TestUnicodeColumns(t *testing.T) {
	// Columns count code points, not bytes: the identifier after the
	// string lands on column 9 even though é is multi-byte.
	l := New(`"héllo" x`)

	str := l.NextToken()
	if str.Type != token.STRING || str.Literal != "héllo" {
		t.Fatalf("first token = %q %q", str.Type, str.Literal)
	}
	x := l.NextToken()
	if x.Column != 9 {
		t.Errorf("column = %d, want 9 (code points, not bytes)", x.Column)
	}
}

// TestBOMTolerated ensures a leading byte-order mark is skipped.
func TestBOMTolerated(t *testing.T) {
	l := New("\ufeffx = 1;")
	tok := l.NextToken()
	if tok.Type != token.IDENT || tok.Literal != "x" {
		t.Fatalf("first token = %q %q, want IDENT x", tok.Type, tok.Literal)
	}
}

// TestNumberForms covers decimal, fractional, exponent and hex literals.
func TestNumberForms(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"42", "42"},
		{"3.25", "3.25"},
		{"1.5e-3", "1.5e-3"},
		{"2E6", "2E6"},
		{"0xFF", "0xFF"},
		{"0X1a", "0X1a"},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != token.NUMBER || tok.Literal != tt.want {
			t.Errorf("lexing %q = (%q, %q), want NUMBER %q", tt.input, tok.Type, tok.Literal, tt.want)
		}
	}
}
