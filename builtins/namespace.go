package builtins

import (
	"fmt"

	"github.com/sqc-lang/sqcvm/diag"
	"github.com/sqc-lang/sqcvm/value"
	"github.com/sqc-lang/sqcvm/vm"
)

// registerNamespaces wires the four well-known namespace accessors and
// the getVariable/setVariable command pair operating on them.
func registerNamespaces(r *registrar) {
	for _, name := range []string{
		"missionNamespace", "uiNamespace", "parsingNamespace", "profileNamespace",
	} {
		ns := name
		r.nular(ns, func(c *vm.Context) value.Value {
			return value.Namespace(ns)
		})
	}

	r.binary("getvariable", value.NAMESPACE, value.STRING, precCommand, func(c *vm.Context, left, right value.Value) value.Value {
		ns, ok := resolveNamespace(c, left)
		if !ok {
			return value.Nothing
		}
		name, _ := right.AsString()
		return ns.Get(name)
	})

	// arr form: namespace getVariable [name, default].
	r.binary("getvariable", value.NAMESPACE, value.ARRAY, precCommand, func(c *vm.Context, left, right value.Value) value.Value {
		ns, ok := resolveNamespace(c, left)
		if !ok {
			return value.Nothing
		}
		pair, _ := right.AsArray()
		if len(pair) != 2 {
			c.Warn(diag.WrongType, "getVariable: expected [name, default], got %d elements", len(pair))
			return value.Nothing
		}
		name, err := pair[0].AsString()
		if err != nil {
			c.Warn(diag.WrongType, "getVariable: name must be STRING, got %s", pair[0].Tag())
			return value.Nothing
		}
		if !ns.Has(name) {
			return pair[1]
		}
		return ns.Get(name)
	})

	r.binary("setvariable", value.NAMESPACE, value.ARRAY, precCommand, func(c *vm.Context, left, right value.Value) value.Value {
		ns, ok := resolveNamespace(c, left)
		if !ok {
			return value.Nothing
		}
		pair, _ := right.AsArray()
		if len(pair) != 2 {
			c.Warn(diag.WrongType, "setVariable: expected [name, value], got %d elements", len(pair))
			return value.Nothing
		}
		name, err := pair[0].AsString()
		if err != nil {
			c.Warn(diag.WrongType, "setVariable: name must be STRING, got %s", pair[0].Tag())
			return value.Nothing
		}
		ns.Set(name, pair[1])
		return value.Nothing
	})

	r.unary("isnil", value.STRING, func(c *vm.Context, right value.Value) value.Value {
		name, _ := right.AsString()
		v, found := c.Lookup(name)
		return value.Bool(!found || v.IsNothing())
	})
}

func resolveNamespace(c *vm.Context, v value.Value) (*vm.Namespace, bool) {
	name, err := v.AsNamespaceName()
	if err != nil {
		c.Warn(diag.WrongType, "expected NAMESPACE, got %s", v.Tag())
		return nil, false
	}
	ns, ok := c.Namespaces().ByName(name)
	if !ok {
		c.Warn(diag.WrongType, "unknown namespace %q", name)
		return nil, false
	}
	return ns, true
}

// registerMisc wires the odds and ends: sides, output, type queries.
func registerMisc(r *registrar) {
	for _, side := range []string{"west", "east", "resistance", "civilian"} {
		s := side
		r.nular(s, func(c *vm.Context) value.Value {
			return value.Side(s)
		})
	}

	r.unary("diag_log", value.ANY, func(c *vm.Context, right value.Value) value.Value {
		fmt.Println(right.ToStringSQF())
		return value.Nothing
	})

	r.unary("typename", value.ANY, func(c *vm.Context, right value.Value) value.Value {
		return value.Str(right.Tag().String())
	})
}
