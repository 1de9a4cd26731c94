package builtins

import (
	"time"

	"github.com/sqc-lang/sqcvm/diag"
	"github.com/sqc-lang/sqcvm/value"
	"github.com/sqc-lang/sqcvm/vm"
)

// registerScopes wires the operators that manipulate frames, scopes and
// scheduling: call, params, scopeName, breakOut, private, sleep.
func registerScopes(r *registrar) {
	r.unary("call", value.CODE, func(c *vm.Context, right value.Value) value.Value {
		set, ok := asSet(c, right)
		if !ok {
			return value.Nothing
		}
		c.PushFrame(vm.NewFrame(set.Instructions, vm.NewScope(), false))
		return value.Nothing
	})

	r.binary("call", value.ANY, value.CODE, precCommand, func(c *vm.Context, left, right value.Value) value.Value {
		set, ok := asSet(c, right)
		if !ok {
			return value.Nothing
		}
		scope := vm.NewScope()
		scope.Define("_this", left)
		c.PushFrame(vm.NewFrame(set.Instructions, scope, false))
		return value.Nothing
	})

	r.unary("params", value.ARRAY, func(c *vm.Context, right value.Value) value.Value {
		specs, _ := right.AsArray()
		this, _ := c.Lookup("_this")

		var args []value.Value
		switch {
		case this.Tag() == value.ARRAY:
			args, _ = this.AsArray()
		case this.IsNothing():
			args = nil
		default:
			args = []value.Value{this}
		}

		ok := true
		for i, spec := range specs {
			name, fallback := paramSpec(c, spec)
			if name == "" {
				ok = false
				continue
			}
			v := fallback
			if i < len(args) && !args[i].IsNothing() {
				v = args[i]
			} else if i >= len(args) && fallback.IsNothing() {
				ok = false
			}
			c.AssignToLocal(name, v)
		}
		return value.Bool(ok)
	})

	r.unary("scopename", value.STRING, func(c *vm.Context, right value.Value) value.Value {
		name, _ := right.AsString()
		c.SetScopeName(name)
		return value.Nothing
	})

	r.unary("breakout", value.STRING, func(c *vm.Context, right value.Value) value.Value {
		name, _ := right.AsString()
		_ = c.BreakOut(name, value.Nothing, false)
		return value.Nothing
	})

	r.binary("breakout", value.STRING, value.ANY, precCommand, func(c *vm.Context, left, right value.Value) value.Value {
		name, _ := left.AsString()
		_ = c.BreakOut(name, right, true)
		return value.Nothing
	})

	r.unary("private", value.STRING, func(c *vm.Context, right value.Value) value.Value {
		name, _ := right.AsString()
		c.AssignToLocal(name, value.Nothing)
		return value.Nothing
	})

	r.unary("private", value.ARRAY, func(c *vm.Context, right value.Value) value.Value {
		names, _ := right.AsArray()
		for _, n := range names {
			name, err := n.AsString()
			if err != nil {
				c.Warn(diag.WrongType, "private: expected STRING name, got %s", n.Tag())
				continue
			}
			c.AssignToLocal(name, value.Nothing)
		}
		return value.Nothing
	})

	r.unary("sleep", value.SCALAR, func(c *vm.Context, right value.Value) value.Value {
		secs, _ := right.AsScalar()
		if secs > 0 {
			c.SuspendUntil(c.Now().Add(time.Duration(secs * float64(time.Second))))
		}
		return value.Nothing
	})
}

// paramSpec decodes one `params` element: either a bare "_name" string
// or a [name, default] pair.
func paramSpec(c *vm.Context, spec value.Value) (string, value.Value) {
	if s, err := spec.AsString(); err == nil {
		return s, value.Nothing
	}
	pair, err := spec.AsArray()
	if err != nil || len(pair) < 2 {
		c.Warn(diag.WrongType, "params: expected name string or [name, default] pair, got %s", spec.Tag())
		return "", value.Nothing
	}
	name, err := pair[0].AsString()
	if err != nil {
		c.Warn(diag.WrongType, "params: pair name must be STRING, got %s", pair[0].Tag())
		return "", value.Nothing
	}
	return name, pair[1]
}
