package parser

import (
	"testing"

	"github.com/sqc-lang/sqcvm/ast"
	"github.com/sqc-lang/sqcvm/lexer"
)

// testOps is a minimal operator table for parsing tests: just enough
// unary names to exercise the registered-command path without pulling
// in the full builtin library.
type testOps struct{}

func (testOps) Exists(name string, arity int) bool {
	if arity != 1 {
		return false
	}
	switch name {
	case "call", "sqrt", "count", "str":
		return true
	}
	return false
}

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := NewWithOperators(lexer.New(src), testOps{})
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors for %q: %v", src, errs)
	}
	return program
}

func firstStatement[T ast.Statement](t *testing.T, src string) T {
	t.Helper()
	program := parse(t, src)
	if len(program.Statements) == 0 {
		t.Fatalf("no statements parsed from %q", src)
	}
	s, ok := program.Statements[0].(T)
	if !ok {
		t.Fatalf("statement is %T, want %T", program.Statements[0], *new(T))
	}
	return s
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3;", "(1 + (2 * 3))"},
		{"(1 + 2) * 3;", "((1 + 2) * 3)"},
		{"-a * b;", "((- a) * b)"},
		{"!true == false;", "((! true) == false)"},
		{"a + b > c;", "((a + b) > c)"},
		{"a - b;", "(a - b)"},
		{"a && b || c;", "((a && b) || c)"},
		{"a select b + c;", "(a select (b + c))"},
		{"x[0] + 1;", "((x[0]) + 1)"},
		{"count x + 1;", "((count x) + 1)"},
	}

	for _, tt := range tests {
		stmt := firstStatement[*ast.ExpressionStatement](t, tt.src)
		if got := stmt.Expression.String(); got != tt.want {
			t.Errorf("%q parsed as %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestDeclarationStatement(t *testing.T) {
	stmt := firstStatement[*ast.DeclarationStatement](t, "private _hp = 100;")
	if stmt.Name.Value != "_hp" {
		t.Errorf("name = %q, want _hp", stmt.Name.Value)
	}
	if stmt.Value == nil {
		t.Fatalf("expected an initializer")
	}

	bare := firstStatement[*ast.DeclarationStatement](t, "private _hp;")
	if bare.Value != nil {
		t.Errorf("bare declaration should have no initializer")
	}
}

func TestAssignmentTargets(t *testing.T) {
	stmt := firstStatement[*ast.AssignmentStatement](t, "x = 1;")
	if _, ok := stmt.Target.(*ast.Identifier); !ok {
		t.Errorf("target is %T, want *ast.Identifier", stmt.Target)
	}

	idx := firstStatement[*ast.AssignmentStatement](t, "x[0] = 1;")
	if _, ok := idx.Target.(*ast.IndexExpression); !ok {
		t.Errorf("target is %T, want *ast.IndexExpression", idx.Target)
	}
}

func TestIfStatement(t *testing.T) {
	stmt := firstStatement[*ast.IfStatement](t, `if (a < b) then { 1 } else { 2 }`)
	if stmt.Condition.String() != "(a < b)" {
		t.Errorf("condition = %q", stmt.Condition.String())
	}
	if stmt.Alternative == nil {
		t.Errorf("expected an else branch")
	}

	noElse := firstStatement[*ast.IfStatement](t, `if (a) then { 1 }`)
	if noElse.Alternative != nil {
		t.Errorf("expected no else branch")
	}
}

func TestWhileAndDoWhile(t *testing.T) {
	w := firstStatement[*ast.WhileStatement](t, `while { i < 3 } do { i = i + 1 }`)
	if len(w.Condition.Statements) != 1 || len(w.Body.Statements) != 1 {
		t.Errorf("unexpected while shape: %s", w.String())
	}

	dw := firstStatement[*ast.DoWhileStatement](t, `do { i = i + 1 } while (i < 3);`)
	if dw.Condition.String() != "(i < 3)" {
		t.Errorf("do-while condition = %q", dw.Condition.String())
	}
}

func TestForStatement(t *testing.T) {
	stmt := firstStatement[*ast.ForStatement](t, `for _i from 0 to 4 step 2 do { _i }`)
	if stmt.Index.Value != "_i" {
		t.Errorf("index = %q, want _i", stmt.Index.Value)
	}
	if stmt.Step == nil {
		t.Errorf("expected an explicit step")
	}

	noStep := firstStatement[*ast.ForStatement](t, `for _i from 0 to 4 do { _i }`)
	if noStep.Step != nil {
		t.Errorf("step should be nil when omitted")
	}
}

func TestForeachStatement(t *testing.T) {
	stmt := firstStatement[*ast.ForeachStatement](t, `foreach (unit in [1, 2]) do { unit }`)
	if stmt.Element.Value != "unit" {
		t.Errorf("element = %q, want unit", stmt.Element.Value)
	}
}

func TestSwitchStatement(t *testing.T) {
	stmt := firstStatement[*ast.SwitchStatement](t, `
		switch (x) {
			case 1: { "one" }
			case 2: { "two" }
			default: { "many" }
		}`)
	if len(stmt.Cases) != 2 {
		t.Fatalf("case count = %d, want 2", len(stmt.Cases))
	}
	if stmt.Default == nil {
		t.Errorf("expected a default clause")
	}
}

func TestTryCatchAndThrow(t *testing.T) {
	tc := firstStatement[*ast.TryCatchStatement](t, `try { throw 1 } catch { _exception }`)
	if len(tc.Body.Statements) != 1 || len(tc.Handler.Statements) != 1 {
		t.Errorf("unexpected try/catch shape: %s", tc.String())
	}
	if _, ok := tc.Body.Statements[0].(*ast.ThrowStatement); !ok {
		t.Errorf("try body statement is %T, want *ast.ThrowStatement", tc.Body.Statements[0])
	}
}

func TestFunctionForms(t *testing.T) {
	fd := firstStatement[*ast.FunctionDeclaration](t, `function add(a, b) { return a + b }`)
	if fd.Name.Value != "add" || len(fd.Parameters) != 2 {
		t.Errorf("unexpected declaration shape: %s", fd.String())
	}

	fwd := firstStatement[*ast.ForwardDeclarationStatement](t, `function later;`)
	if fwd.Name.Value != "later" {
		t.Errorf("forward declaration name = %q, want later", fwd.Name.Value)
	}
}

func TestUnaryAndBinaryWordCommands(t *testing.T) {
	prefix := firstStatement[*ast.ExpressionStatement](t, `call f;`)
	pe, ok := prefix.Expression.(*ast.PrefixExpression)
	if !ok || pe.Operator != "call" {
		t.Fatalf("expected a unary word command, got %s", prefix.Expression.String())
	}

	infix := firstStatement[*ast.ExpressionStatement](t, `arr select 0;`)
	ie, ok := infix.Expression.(*ast.InfixExpression)
	if !ok || ie.Operator != "select" {
		t.Fatalf("expected a binary word command, got %s", infix.Expression.String())
	}

	bare := firstStatement[*ast.ExpressionStatement](t, `arr;`)
	if _, ok := bare.Expression.(*ast.Identifier); !ok {
		t.Fatalf("a lone identifier stays a variable reference, got %T", bare.Expression)
	}

	// An unregistered word followed by a literal is the late-bound call
	// form; followed by an identifier it is a binary-command left operand.
	late := firstStatement[*ast.ExpressionStatement](t, `double 21;`)
	lp, ok := late.Expression.(*ast.PrefixExpression)
	if !ok || lp.Operator != "double" {
		t.Fatalf("expected a late-bound call, got %s", late.Expression.String())
	}

	left := firstStatement[*ast.ExpressionStatement](t, `ns setVariable ["hp", 1];`)
	li, ok := left.Expression.(*ast.InfixExpression)
	if !ok || li.Operator != "setVariable" {
		t.Fatalf("expected a binary word command with identifier left operand, got %s", left.Expression.String())
	}
}

func TestIndexOfIdentifier(t *testing.T) {
	stmt := firstStatement[*ast.ExpressionStatement](t, `x[0];`)
	ie, ok := stmt.Expression.(*ast.IndexExpression)
	if !ok {
		t.Fatalf("expression is %T, want *ast.IndexExpression", stmt.Expression)
	}
	if ie.Left.String() != "x" || ie.Index.String() != "0" {
		t.Errorf("unexpected index shape: %s", ie.String())
	}
}

func TestCodeLiteralExpression(t *testing.T) {
	stmt := firstStatement[*ast.AssignmentStatement](t, `f = { _this + 1 };`)
	if _, ok := stmt.Value.(*ast.CodeLiteral); !ok {
		t.Fatalf("value is %T, want *ast.CodeLiteral", stmt.Value)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		`if (x) { 1 }`,       // missing then
		`for _i from do {}`,  // missing range
		`switch (x) { 1 }`,   // bare value in switch body
		`private = 3;`,       // missing name
	}
	for _, src := range tests {
		p := New(lexer.New(src))
		p.ParseProgram()
		if len(p.Errors()) == 0 {
			t.Errorf("expected parse errors for %q", src)
		}
	}
}
