package builtins_test

import (
	"math"
	"testing"

	"github.com/sqc-lang/sqcvm/builtins"
	"github.com/sqc-lang/sqcvm/code"
	"github.com/sqc-lang/sqcvm/diag"
	"github.com/sqc-lang/sqcvm/value"
	"github.com/sqc-lang/sqcvm/vm"
)

// exec runs a hand-built instruction sequence to completion and returns
// the context and machine.
func exec(t *testing.T, ins ...code.Instruction) (*vm.Context, *vm.VM) {
	t.Helper()
	machine := vm.New()
	if err := builtins.Install(machine); err != nil {
		t.Fatalf("installing builtins: %v", err)
	}
	ctx := machine.NewScript(&code.Set{Instructions: ins})
	machine.RunUntilIdle(100_000)
	return ctx, machine
}

func hasKey(machine *vm.VM, key diag.Key) bool {
	for _, m := range machine.Diag.Messages() {
		if m.Key == key {
			return true
		}
	}
	return false
}

func TestSelectBounds(t *testing.T) {
	arr := value.Arr([]value.Value{value.Scalar(10), value.Scalar(20)})

	tests := []struct {
		name    string
		index   float64
		want    value.Value
		wantOOR bool
	}{
		{"first", 0, value.Scalar(10), false},
		{"last", 1, value.Scalar(20), false},
		{"past end", 2, value.Nothing, true},
		{"negative", -1, value.Nothing, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, machine := exec(t,
				code.Push(arr, diag.Info{}),
				code.Push(value.Scalar(tt.index), diag.Info{}),
				code.CallBinary("select", 4, diag.Info{}),
			)
			if !value.Equal(ctx.Result, tt.want) {
				t.Errorf("result = %s, want %s", ctx.Result.ToStringSQF(), tt.want.ToStringSQF())
			}
			if got := hasKey(machine, diag.IndexOutOfRange); got != tt.wantOOR {
				t.Errorf("IndexOutOfRange emitted = %v, want %v", got, tt.wantOOR)
			}
		})
	}
}

func TestSelectRangeClampsOverLengthSlice(t *testing.T) {
	arr := value.Arr([]value.Value{value.Scalar(1), value.Scalar(2), value.Scalar(3)})
	spec := value.Arr([]value.Value{value.Scalar(1), value.Scalar(10)})

	ctx, machine := exec(t,
		code.Push(arr, diag.Info{}),
		code.Push(spec, diag.Info{}),
		code.CallBinary("select", 4, diag.Info{}),
	)
	want := value.Arr([]value.Value{value.Scalar(2), value.Scalar(3)})
	if !value.Equal(ctx.Result, want) {
		t.Errorf("result = %s, want [2, 3]", ctx.Result.ToStringSQF())
	}
	if hasKey(machine, diag.IndexOutOfRange) {
		t.Errorf("an over-length slice clamps, it does not warn")
	}
}

func TestDivisionByZeroYieldsNaN(t *testing.T) {
	ctx, machine := exec(t,
		code.Push(value.Scalar(1), diag.Info{}),
		code.Push(value.Scalar(0), diag.Info{}),
		code.CallBinary("/", 7, diag.Info{}),
	)
	f, err := ctx.Result.AsScalar()
	if err != nil || !math.IsNaN(f) {
		t.Errorf("result = %s, want NaN", ctx.Result.ToStringSQF())
	}
	if !hasKey(machine, diag.DivisionByZero) {
		t.Errorf("expected a DivisionByZero diagnostic")
	}
	if machine.Diag.HasFatal() {
		t.Errorf("division by zero is not fatal")
	}
}

func TestDispatchMissPushesNilAndContinues(t *testing.T) {
	ctx, machine := exec(t,
		code.Push(value.Str("a"), diag.Info{}),
		code.Push(value.Scalar(1), diag.Info{}),
		code.CallBinary("+", 6, diag.Info{}),
		code.EndStatement(diag.Info{}),
		code.Push(value.Scalar(9), diag.Info{}),
	)
	if !hasKey(machine, diag.UnknownInputTypeCombination) {
		t.Errorf("expected an UnknownInputTypeCombination warning for STRING + SCALAR")
	}
	// Execution carried on past the miss.
	f, err := ctx.Result.AsScalar()
	if err != nil || f != 9 {
		t.Errorf("result = %s, want 9", ctx.Result.ToStringSQF())
	}
}

func TestSetMutatesSharedArray(t *testing.T) {
	backing := []value.Value{value.Scalar(1), value.Scalar(2)}
	arr := value.Arr(backing)

	_, machine := exec(t,
		code.Push(arr, diag.Info{}),
		code.Push(value.Arr([]value.Value{value.Scalar(0), value.Str("new")}), diag.Info{}),
		code.CallBinary("set", 4, diag.Info{}),
	)
	if !value.Equal(backing[0], value.Str("new")) {
		t.Errorf("set should write through the shared payload, got %s", backing[0].ToStringSQF())
	}
	if machine.Diag.HasFatal() {
		t.Errorf("unexpected fatal diagnostic")
	}
}

func TestParamsBindsWithDefaults(t *testing.T) {
	inner := &code.Set{Instructions: code.Instructions{
		code.Push(value.Arr([]value.Value{
			value.Str("_a"),
			value.Arr([]value.Value{value.Str("_b"), value.Scalar(99)}),
		}), diag.Info{}),
		code.CallUnary("params", diag.Info{}),
		code.EndStatement(diag.Info{}),
		code.GetVariable("_a", diag.Info{}),
		code.GetVariable("_b", diag.Info{}),
		code.CallBinary("+", 6, diag.Info{}),
	}}

	ctx, _ := exec(t,
		code.Push(value.Arr([]value.Value{value.Scalar(1)}), diag.Info{}),
		code.Push(value.Code(inner), diag.Info{}),
		code.CallBinary("call", 4, diag.Info{}),
	)
	f, err := ctx.Result.AsScalar()
	if err != nil || f != 100 {
		t.Errorf("result = %s, want 100 (_a=1 bound, _b defaulted to 99)", ctx.Result.ToStringSQF())
	}
}

func TestGetVariableDefaultForm(t *testing.T) {
	ctx, _ := exec(t,
		code.CallNular("missionnamespace", diag.Info{}),
		code.Push(value.Arr([]value.Value{value.Str("unset"), value.Scalar(-1)}), diag.Info{}),
		code.CallBinary("getvariable", 4, diag.Info{}),
	)
	f, err := ctx.Result.AsScalar()
	if err != nil || f != -1 {
		t.Errorf("result = %s, want the -1 default", ctx.Result.ToStringSQF())
	}
}

func TestNamespaceValuesCompareByIdentity(t *testing.T) {
	if !value.Equal(value.Namespace("uiNamespace"), value.Namespace("uiNamespace")) {
		t.Errorf("same namespace should compare equal")
	}
	if value.Equal(value.Namespace("uiNamespace"), value.Namespace("missionNamespace")) {
		t.Errorf("different namespaces should compare unequal")
	}
}
