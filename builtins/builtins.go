// Package builtins registers the built-in operator library against a
// VM's registry: the control-flow pipeline operators (`if`/`then`/
// `else`, `while`/`do`, `for`/`from`/`to`/`step`, `switch`/`case`/
// `default`, `catch`), the scope operators (`call`, `params`,
// `scopeName`, `breakOut`, `throw`, `private`, `sleep`), arithmetic and
// comparison, array/string commands, and the namespace accessors.
//
// Every operator registration is a (name, arity, left-type,
// right-type, precedence, callback) tuple, with
// overloads distinguished by operand tags. Operator callbacks that queue
// or replace call-stack frames return no meaningful value; the VM
// detects the frame-stack change and suppresses the push.
package builtins

import (
	"github.com/sqc-lang/sqcvm/code"
	"github.com/sqc-lang/sqcvm/diag"
	"github.com/sqc-lang/sqcvm/registry"
	"github.com/sqc-lang/sqcvm/value"
	"github.com/sqc-lang/sqcvm/vm"
)

// Binary operator precedences, lowest-binding first. These drive only
// source reconstruction; parse-time precedence lives in the parser.
const (
	precOr      = 1
	precAnd     = 2
	precCompare = 3
	precCommand = 4
	precElse    = 5
	precSum     = 6
	precProduct = 7
)

// Install registers the full builtin operator library on machine's
// registry. It returns the first registration error, which can only be
// an ambiguous-overload conflict and therefore indicates a programming
// mistake in this package.
func Install(machine *vm.VM) error {
	r := &registrar{reg: machine.Registry}

	registerControlFlow(r)
	registerScopes(r)
	registerMath(r)
	registerComparison(r)
	registerCollections(r)
	registerNamespaces(r)
	registerMisc(r)

	return r.err
}

// registrar accumulates registrations, retaining the first error so the
// register* functions can stay assignment-free.
type registrar struct {
	reg *registry.Registry[*vm.Context]
	err error
}

func (r *registrar) nular(name string, fn registry.NularFn[*vm.Context]) {
	if err := r.reg.RegisterNular(name, fn); err != nil && r.err == nil {
		r.err = err
	}
}

func (r *registrar) unary(name string, right value.Tag, fn registry.UnaryFn[*vm.Context]) {
	if err := r.reg.RegisterUnary(name, right, fn); err != nil && r.err == nil {
		r.err = err
	}
}

func (r *registrar) binary(name string, left, right value.Tag, prec int, fn registry.BinaryFn[*vm.Context]) {
	if err := r.reg.RegisterBinary(name, left, right, prec, fn); err != nil && r.err == nil {
		r.err = err
	}
}

// asSet extracts the compiled instruction set from a CODE value,
// warning WrongType when the payload is not a *code.Set.
func asSet(c *vm.Context, v value.Value) (*code.Set, bool) {
	p, err := v.AsCode()
	if err != nil {
		c.Warn(diag.WrongType, "expected CODE, got %s", v.Tag())
		return nil, false
	}
	set, ok := p.(*code.Set)
	if !ok {
		c.Warn(diag.WrongType, "CODE value carries a foreign payload")
		return nil, false
	}
	return set, true
}

// scalar extracts the float64 from a SCALAR value, warning WrongType on
// a tag mismatch. Dispatch normally guarantees the tag; this guards the
// ANY-typed slots.
func scalar(c *vm.Context, v value.Value) (float64, bool) {
	f, err := v.AsScalar()
	if err != nil {
		c.Warn(diag.WrongType, "expected SCALAR, got %s", v.Tag())
		return 0, false
	}
	return f, true
}
