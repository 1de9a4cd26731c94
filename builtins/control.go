package builtins

import (
	"github.com/sqc-lang/sqcvm/diag"
	"github.com/sqc-lang/sqcvm/value"
	"github.com/sqc-lang/sqcvm/vm"
)

// registerControlFlow wires the operator pipelines that control flow
// lowers to. The unary stages produce control-flow
// marker values (IF/WHILE/FOR/SWITCH tags) whose only purpose is to
// route dispatch of the later pipeline stages; the final `then`/`do`/
// `forEach`/`catch` stages build the specialized frames.
func registerControlFlow(r *registrar) {
	r.unary("if", value.BOOLEAN, func(c *vm.Context, right value.Value) value.Value {
		return value.Control(value.IF, &value.ControlPayload{Kind: "if", Cond: right})
	})

	r.binary("then", value.IF, value.CODE, precCommand, func(c *vm.Context, left, right value.Value) value.Value {
		p, _ := left.AsControl()
		if !p.Cond.Truthy() {
			return value.Nothing
		}
		set, ok := asSet(c, right)
		if !ok {
			return value.Nothing
		}
		c.PushFrame(vm.NewFrame(set.Instructions, vm.NewScope(), false))
		return value.Nothing
	})

	// `then` on a two-element [then-code, else-code] array, produced by
	// the `else` stage.
	r.binary("then", value.IF, value.ARRAY, precCommand, func(c *vm.Context, left, right value.Value) value.Value {
		p, _ := left.AsControl()
		arms, _ := right.AsArray()
		if len(arms) != 2 {
			c.Warn(diag.WrongType, "then: expected [then-code, else-code], got %d elements", len(arms))
			return value.Nothing
		}
		arm := arms[1]
		if p.Cond.Truthy() {
			arm = arms[0]
		}
		set, ok := asSet(c, arm)
		if !ok {
			return value.Nothing
		}
		c.PushFrame(vm.NewFrame(set.Instructions, vm.NewScope(), false))
		return value.Nothing
	})

	r.binary("else", value.CODE, value.CODE, precElse, func(c *vm.Context, left, right value.Value) value.Value {
		return value.Arr([]value.Value{left, right})
	})

	r.unary("while", value.CODE, func(c *vm.Context, right value.Value) value.Value {
		return value.Control(value.WHILE, &value.ControlPayload{Kind: "while", Cond: right})
	})

	r.binary("do", value.WHILE, value.CODE, precCommand, func(c *vm.Context, left, right value.Value) value.Value {
		p, _ := left.AsControl()
		cond, ok := asSet(c, p.Cond)
		if !ok {
			return value.Nothing
		}
		body, ok := asSet(c, right)
		if !ok {
			return value.Nothing
		}
		c.PushFrame(vm.NewWhileFrame(cond, body, vm.NewScope()))
		return value.Nothing
	})

	r.unary("for", value.STRING, func(c *vm.Context, right value.Value) value.Value {
		return value.Control(value.FOR, &value.ControlPayload{
			Kind: "for",
			Aux: map[string]value.Value{
				"var":  right,
				"from": value.Scalar(0),
				"to":   value.Scalar(-1),
				"step": value.Scalar(1),
			},
		})
	})

	forStage := func(key string) func(c *vm.Context, left, right value.Value) value.Value {
		return func(c *vm.Context, left, right value.Value) value.Value {
			p, _ := left.AsControl()
			p.Aux[key] = right
			return left
		}
	}
	r.binary("from", value.FOR, value.SCALAR, precCommand, forStage("from"))
	r.binary("to", value.FOR, value.SCALAR, precCommand, forStage("to"))
	r.binary("step", value.FOR, value.SCALAR, precCommand, forStage("step"))

	r.binary("do", value.FOR, value.CODE, precCommand, func(c *vm.Context, left, right value.Value) value.Value {
		p, _ := left.AsControl()
		body, ok := asSet(c, right)
		if !ok {
			return value.Nothing
		}
		name, _ := p.Aux["var"].AsString()
		from, _ := p.Aux["from"].AsScalar()
		to, _ := p.Aux["to"].AsScalar()
		step, _ := p.Aux["step"].AsScalar()
		c.PushFrame(vm.NewForFrame(name, from, to, step, body, vm.NewScope()))
		return value.Nothing
	})

	r.binary("foreach", value.CODE, value.ARRAY, precCommand, func(c *vm.Context, left, right value.Value) value.Value {
		body, ok := asSet(c, left)
		if !ok {
			return value.Nothing
		}
		elems, _ := right.AsArray()
		c.PushFrame(vm.NewForeachFrame(elems, body, vm.NewScope()))
		return value.Nothing
	})

	r.unary("switch", value.ANY, func(c *vm.Context, right value.Value) value.Value {
		return value.Control(value.SWITCH, &value.ControlPayload{Kind: "switch", Cond: right})
	})

	r.binary("do", value.SWITCH, value.CODE, precCommand, func(c *vm.Context, left, right value.Value) value.Value {
		p, _ := left.AsControl()
		body, ok := asSet(c, right)
		if !ok {
			return value.Nothing
		}
		c.PushFrame(vm.NewSwitchFrame(p.Cond, body, vm.NewScope()))
		return value.Nothing
	})

	r.unary("case", value.ANY, func(c *vm.Context, right value.Value) value.Value {
		return value.Control(value.SWITCH, &value.ControlPayload{Kind: "case", Cond: right})
	})

	r.binary(":", value.SWITCH, value.CODE, precCommand, func(c *vm.Context, left, right value.Value) value.Value {
		p, _ := left.AsControl()
		if p.Kind != "case" {
			c.Warn(diag.WrongType, "`:` expects a case value on its left")
			return value.Nothing
		}
		set, ok := asSet(c, right)
		if !ok {
			return value.Nothing
		}
		sw, ok := c.CurrentSwitch()
		if !ok {
			c.Warn(diag.WrongType, "case outside of a switch body")
			return value.Nothing
		}
		sw.AddCase(p.Cond, set)
		return value.Nothing
	})

	r.unary("default", value.CODE, func(c *vm.Context, right value.Value) value.Value {
		set, ok := asSet(c, right)
		if !ok {
			return value.Nothing
		}
		sw, ok := c.CurrentSwitch()
		if !ok {
			c.Warn(diag.WrongType, "default outside of a switch body")
			return value.Nothing
		}
		sw.SetDefault(set)
		return value.Nothing
	})

	r.binary("catch", value.CODE, value.CODE, precCommand, func(c *vm.Context, left, right value.Value) value.Value {
		body, ok := asSet(c, left)
		if !ok {
			return value.Nothing
		}
		handler, ok := asSet(c, right)
		if !ok {
			return value.Nothing
		}
		c.PushFrame(vm.NewTryCatchFrame(body, handler, vm.NewScope()))
		return value.Nothing
	})

	r.unary("throw", value.ANY, func(c *vm.Context, right value.Value) value.Value {
		c.Throw(right)
		return value.Nothing
	})

	// Lazy boolean forms: the right-hand code only runs when the left
	// operand has not already decided the result.
	r.binary("&&", value.BOOLEAN, value.CODE, precAnd, func(c *vm.Context, left, right value.Value) value.Value {
		if !left.Truthy() {
			return value.False
		}
		set, ok := asSet(c, right)
		if !ok {
			return value.Nothing
		}
		c.PushFrame(vm.NewFrame(set.Instructions, vm.NewScope(), false))
		return value.Nothing
	})

	r.binary("||", value.BOOLEAN, value.CODE, precOr, func(c *vm.Context, left, right value.Value) value.Value {
		if left.Truthy() {
			return value.True
		}
		set, ok := asSet(c, right)
		if !ok {
			return value.Nothing
		}
		c.PushFrame(vm.NewFrame(set.Instructions, vm.NewScope(), false))
		return value.Nothing
	})
}
