package compiler_test

import (
	"testing"

	"github.com/sqc-lang/sqcvm/builtins"
	"github.com/sqc-lang/sqcvm/code"
	"github.com/sqc-lang/sqcvm/compiler"
	"github.com/sqc-lang/sqcvm/lexer"
	"github.com/sqc-lang/sqcvm/parser"
	"github.com/sqc-lang/sqcvm/vm"
)

// compile lowers src against the real builtin registry, failing the test
// on parse or lowering errors.
func compile(t *testing.T, src string) *code.Set {
	t.Helper()

	machine := vm.New()
	if err := builtins.Install(machine); err != nil {
		t.Fatalf("installing builtins: %v", err)
	}

	p := parser.NewWithOperators(lexer.New(src), machine.Registry)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors: %v", errs)
	}

	set, err := compiler.New(machine.Registry, "test.sqc", src).Compile(program)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return set
}

// op is a compact expectation for one instruction: opcode plus the
// operand that identifies it (name for calls/variables, "" otherwise).
type op struct {
	opcode code.Opcode
	name   string
}

func expectOps(t *testing.T, ins code.Instructions, want []op) {
	t.Helper()
	if len(ins) != len(want) {
		t.Fatalf("instruction count = %d, want %d\n%s", len(ins), len(want), ins.String())
	}
	for i, w := range want {
		if ins[i].Op != w.opcode {
			t.Errorf("instruction %d opcode = %d, want %d\n%s", i, ins[i].Op, w.opcode, ins.String())
		}
		if w.name != "" && ins[i].Name != w.name {
			t.Errorf("instruction %d name = %q, want %q", i, ins[i].Name, w.name)
		}
	}
}

func TestLowerArithmeticPrecedence(t *testing.T) {
	set := compile(t, "1 + 2 * 3;")
	expectOps(t, set.Instructions, []op{
		{code.PUSH, ""},
		{code.PUSH, ""},
		{code.PUSH, ""},
		{code.CALL_BINARY, "*"},
		{code.CALL_BINARY, "+"},
	})
	if set.Instructions[3].Precedence != 7 {
		t.Errorf("`*` precedence = %d, want 7", set.Instructions[3].Precedence)
	}
	if set.Instructions[4].Precedence != 6 {
		t.Errorf("`+` precedence = %d, want 6", set.Instructions[4].Precedence)
	}
}

func TestLowerDeclarationMarksLocal(t *testing.T) {
	set := compile(t, "private x = 5; x = 6; y = 7;")
	expectOps(t, set.Instructions, []op{
		{code.PUSH, ""},
		{code.ASSIGN_TO_LOCAL, "_x"},
		{code.END_STATEMENT, ""},
		{code.PUSH, ""},
		{code.ASSIGN_TO, "_x"},
		{code.END_STATEMENT, ""},
		{code.PUSH, ""},
		{code.ASSIGN_TO, "y"},
	})
}

func TestLowerUnderscoreIdentifierIsLocal(t *testing.T) {
	set := compile(t, "private _x = 1; _x;")
	expectOps(t, set.Instructions, []op{
		{code.PUSH, ""},
		{code.ASSIGN_TO_LOCAL, "_x"},
		{code.END_STATEMENT, ""},
		{code.GET_VARIABLE, "_x"},
	})
}

func TestLowerNularCommand(t *testing.T) {
	set := compile(t, "pi;")
	expectOps(t, set.Instructions, []op{
		{code.CALL_NULAR, "pi"},
	})
}

func TestLowerIfThenElse(t *testing.T) {
	set := compile(t, `if (true) then { "a" } else { "b" }`)
	expectOps(t, set.Instructions, []op{
		{code.PUSH, ""},
		{code.CALL_UNARY, "if"},
		{code.PUSH, ""},
		{code.PUSH, ""},
		{code.CALL_BINARY, "else"},
		{code.CALL_BINARY, "then"},
	})
}

func TestLowerWhile(t *testing.T) {
	set := compile(t, "while { true } do { 1 }")
	expectOps(t, set.Instructions, []op{
		{code.PUSH, ""},
		{code.CALL_UNARY, "while"},
		{code.PUSH, ""},
		{code.CALL_BINARY, "do"},
	})
}

func TestLowerForPipeline(t *testing.T) {
	set := compile(t, "for _i from 0 to 4 step 2 do { _i }")
	expectOps(t, set.Instructions, []op{
		{code.PUSH, ""},
		{code.CALL_UNARY, "for"},
		{code.PUSH, ""},
		{code.CALL_BINARY, "from"},
		{code.PUSH, ""},
		{code.CALL_BINARY, "to"},
		{code.PUSH, ""},
		{code.CALL_BINARY, "step"},
		{code.PUSH, ""},
		{code.CALL_BINARY, "do"},
	})
}

func TestLowerArrayGetAndSet(t *testing.T) {
	set := compile(t, "a[1];")
	expectOps(t, set.Instructions, []op{
		{code.GET_VARIABLE, "a"},
		{code.PUSH, ""},
		{code.CALL_BINARY, "select"},
	})

	set = compile(t, "a[1] = 9;")
	expectOps(t, set.Instructions, []op{
		{code.GET_VARIABLE, "a"},
		{code.PUSH, ""},
		{code.PUSH, ""},
		{code.MAKE_ARRAY, ""},
		{code.CALL_BINARY, "set"},
	})
}

func TestLowerLateBoundUnaryCall(t *testing.T) {
	// `myFunc` is not a registered unary operator, so the call falls back
	// to the user-function form `[10] call myFunc`.
	set := compile(t, "myFunc 10;")
	expectOps(t, set.Instructions, []op{
		{code.PUSH, ""},
		{code.MAKE_ARRAY, ""},
		{code.GET_VARIABLE, "myFunc"},
		{code.CALL_BINARY, "call"},
	})
	if set.Instructions[1].Count != 1 {
		t.Errorf("argument array count = %d, want 1", set.Instructions[1].Count)
	}
}

func TestLowerRegisteredUnaryStaysUnary(t *testing.T) {
	set := compile(t, "sqrt 9;")
	expectOps(t, set.Instructions, []op{
		{code.PUSH, ""},
		{code.CALL_UNARY, "sqrt"},
	})
}

func TestLowerCodeLiteralPrologue(t *testing.T) {
	set := compile(t, "f = { 1 };")
	if len(set.Instructions) != 2 || set.Instructions[0].Op != code.PUSH {
		t.Fatalf("expected PUSH code; ASSIGN_TO, got:\n%s", set.Instructions.String())
	}

	payload, err := set.Instructions[0].Literal.AsCode()
	if err != nil {
		t.Fatalf("PUSH literal is not CODE: %v", err)
	}
	inner, ok := payload.(*code.Set)
	if !ok {
		t.Fatalf("CODE payload is %T, want *code.Set", payload)
	}
	expectOps(t, inner.Instructions, []op{
		{code.PUSH, ""},
		{code.CALL_UNARY, "scopename"},
		{code.END_STATEMENT, ""},
		{code.PUSH, ""},
	})
	if name, _ := inner.Instructions[0].Literal.AsString(); name != compiler.FunctionScopeName {
		t.Errorf("auto-scope tag = %q, want %q", name, compiler.FunctionScopeName)
	}
}

func TestLowerFunctionDeclarationParams(t *testing.T) {
	set := compile(t, "function add(a, b) { return a + b }")
	if len(set.Instructions) != 2 || set.Instructions[1].Op != code.ASSIGN_TO || set.Instructions[1].Name != "add" {
		t.Fatalf("expected PUSH code; ASSIGN_TO add, got:\n%s", set.Instructions.String())
	}

	payload, _ := set.Instructions[0].Literal.AsCode()
	inner := payload.(*code.Set)
	expectOps(t, inner.Instructions, []op{
		{code.PUSH, ""},
		{code.CALL_UNARY, "scopename"},
		{code.END_STATEMENT, ""},
		{code.PUSH, ""},
		{code.PUSH, ""},
		{code.MAKE_ARRAY, ""},
		{code.CALL_UNARY, "params"},
		{code.END_STATEMENT, ""},
		{code.PUSH, ""},
		{code.GET_VARIABLE, "_a"},
		{code.GET_VARIABLE, "_b"},
		{code.CALL_BINARY, "+"},
		{code.CALL_BINARY, "breakout"},
	})
}

func TestLowerStatementsSeparatedByEndStatement(t *testing.T) {
	set := compile(t, "1; 2; 3;")
	expectOps(t, set.Instructions, []op{
		{code.PUSH, ""},
		{code.END_STATEMENT, ""},
		{code.PUSH, ""},
		{code.END_STATEMENT, ""},
		{code.PUSH, ""},
	})
}

func TestDiagInfoAttached(t *testing.T) {
	set := compile(t, "x = 1;\ny = 2;")
	last := set.Instructions[len(set.Instructions)-1]
	if last.Diag.Line != 2 {
		t.Errorf("second statement diag line = %d, want 2", last.Diag.Line)
	}
	if last.Diag.File != "test.sqc" {
		t.Errorf("diag file = %q, want %q", last.Diag.File, "test.sqc")
	}
	if last.Diag.Snippet != "y = 2;" {
		t.Errorf("diag snippet = %q, want %q", last.Diag.Snippet, "y = 2;")
	}
}

func TestLocalsCloneIsolation(t *testing.T) {
	env := compiler.NewLocals()
	env.Declare("x")

	inner := env.Clone()
	inner.Declare("y")

	if !inner.Contains("x") {
		t.Errorf("clone should inherit outer declarations")
	}
	if env.Contains("y") {
		t.Errorf("outer environment should not see inner declarations")
	}
	if env.Contains("X") {
		t.Errorf("local declarations are case-sensitive")
	}
}
