package code

import (
	"strings"
	"testing"

	"github.com/sqc-lang/sqcvm/diag"
	"github.com/sqc-lang/sqcvm/value"
)

func TestInstructionsString(t *testing.T) {
	ins := Instructions{
		Push(value.Scalar(1), diag.Info{}),
		Push(value.Scalar(2), diag.Info{}),
		CallBinary("+", 6, diag.Info{}),
		EndStatement(diag.Info{}),
	}

	out := ins.String()
	for _, want := range []string{"PUSH 1", "PUSH 2", "CALL_BINARY + 6", "END_STATEMENT"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q, got:\n%s", want, out)
		}
	}
}

func TestReconstructPrecedenceExample(t *testing.T) {
	// 1 + 2 * 3
	ins := Instructions{
		Push(value.Scalar(1), diag.Info{}),
		Push(value.Scalar(2), diag.Info{}),
		Push(value.Scalar(3), diag.Info{}),
		CallBinary("*", 7, diag.Info{}),
		CallBinary("+", 6, diag.Info{}),
	}
	got := Reconstruct(ins)
	want := "1 + 2 * 3"
	if got != want {
		t.Errorf("Reconstruct() = %q, want %q", got, want)
	}
}

func TestLookupUnknownOpcode(t *testing.T) {
	if _, err := Lookup(Opcode(99)); err == nil {
		t.Errorf("expected error for unknown opcode")
	}
}
