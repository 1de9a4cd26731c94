package builtins

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sqc-lang/sqcvm/diag"
	"github.com/sqc-lang/sqcvm/value"
	"github.com/sqc-lang/sqcvm/vm"
)

// registerCollections wires the array and string command set. `select`
// uses the corrected bounds predicate (index < 0 or index >= size is
// IndexOutOfRange); `set` mutates the shared array storage in place,
// being the one explicit mutation operator composite payloads allow.
func registerCollections(r *registrar) {
	r.binary("+", value.STRING, value.STRING, precSum, func(c *vm.Context, left, right value.Value) value.Value {
		a, _ := left.AsString()
		b, _ := right.AsString()
		return value.Str(a + b)
	})

	r.binary("+", value.ARRAY, value.ARRAY, precSum, func(c *vm.Context, left, right value.Value) value.Value {
		a, _ := left.AsArray()
		b, _ := right.AsArray()
		out := make([]value.Value, 0, len(a)+len(b))
		out = append(out, a...)
		out = append(out, b...)
		return value.Arr(out)
	})

	r.binary("-", value.ARRAY, value.ARRAY, precSum, func(c *vm.Context, left, right value.Value) value.Value {
		a, _ := left.AsArray()
		b, _ := right.AsArray()
		out := make([]value.Value, 0, len(a))
		for _, e := range a {
			removed := false
			for _, x := range b {
				if value.Equal(e, x) {
					removed = true
					break
				}
			}
			if !removed {
				out = append(out, e)
			}
		}
		return value.Arr(out)
	})

	r.unary("count", value.ARRAY, func(c *vm.Context, right value.Value) value.Value {
		a, _ := right.AsArray()
		return value.Scalar(float64(len(a)))
	})

	r.unary("count", value.STRING, func(c *vm.Context, right value.Value) value.Value {
		s, _ := right.AsString()
		return value.Scalar(float64(utf8.RuneCountInString(s)))
	})

	r.binary("select", value.ARRAY, value.SCALAR, precCommand, func(c *vm.Context, left, right value.Value) value.Value {
		a, _ := left.AsArray()
		f, _ := right.AsScalar()
		idx := int(math.Round(f))
		if idx < 0 || idx >= len(a) {
			c.Warn(diag.IndexOutOfRange, "select: index %d out of range [0, %d)", idx, len(a))
			return value.Nothing
		}
		return a[idx]
	})

	// Range form: arr select [start, count]. An over-length slice clamps
	// to the array's end.
	r.binary("select", value.ARRAY, value.ARRAY, precCommand, func(c *vm.Context, left, right value.Value) value.Value {
		a, _ := left.AsArray()
		spec, _ := right.AsArray()
		if len(spec) != 2 {
			c.Warn(diag.WrongType, "select: expected [start, count], got %d elements", len(spec))
			return value.Nothing
		}
		startF, ok := scalar(c, spec[0])
		if !ok {
			return value.Nothing
		}
		countF, ok := scalar(c, spec[1])
		if !ok {
			return value.Nothing
		}
		start, count := int(math.Round(startF)), int(math.Round(countF))
		if start < 0 || start > len(a) || count < 0 {
			c.Warn(diag.IndexOutOfRange, "select: range [%d, %d) out of bounds for %d elements", start, start+count, len(a))
			return value.Arr(nil)
		}
		if start+count > len(a) {
			count = len(a) - start
		}
		out := make([]value.Value, count)
		copy(out, a[start:start+count])
		return value.Arr(out)
	})

	r.binary("set", value.ARRAY, value.ARRAY, precCommand, func(c *vm.Context, left, right value.Value) value.Value {
		a, _ := left.AsArray()
		pair, _ := right.AsArray()
		if len(pair) != 2 {
			c.Warn(diag.WrongType, "set: expected [index, value], got %d elements", len(pair))
			return value.Nothing
		}
		f, ok := scalar(c, pair[0])
		if !ok {
			return value.Nothing
		}
		idx := int(math.Round(f))
		if idx < 0 || idx >= len(a) {
			c.Warn(diag.IndexOutOfRange, "set: index %d out of range [0, %d)", idx, len(a))
			return value.Nothing
		}
		a[idx] = pair[1]
		return value.Nothing
	})

	r.binary("find", value.ARRAY, value.ANY, precCommand, func(c *vm.Context, left, right value.Value) value.Value {
		a, _ := left.AsArray()
		for i, e := range a {
			if value.Equal(e, right) {
				return value.Scalar(float64(i))
			}
		}
		return value.Scalar(-1)
	})

	r.binary("find", value.STRING, value.STRING, precCommand, func(c *vm.Context, left, right value.Value) value.Value {
		s, _ := left.AsString()
		sub, _ := right.AsString()
		return value.Scalar(float64(strings.Index(s, sub)))
	})

	r.unary("reverse", value.ARRAY, func(c *vm.Context, right value.Value) value.Value {
		a, _ := right.AsArray()
		out := make([]value.Value, len(a))
		for i, e := range a {
			out[len(a)-1-i] = e
		}
		return value.Arr(out)
	})

	r.unary("str", value.ANY, func(c *vm.Context, right value.Value) value.Value {
		return value.Str(right.ToStringSQF())
	})

	r.unary("toupper", value.STRING, func(c *vm.Context, right value.Value) value.Value {
		s, _ := right.AsString()
		return value.Str(strings.ToUpper(s))
	})

	r.unary("tolower", value.STRING, func(c *vm.Context, right value.Value) value.Value {
		s, _ := right.AsString()
		return value.Str(strings.ToLower(s))
	})

	r.unary("parsenumber", value.STRING, func(c *vm.Context, right value.Value) value.Value {
		s, _ := right.AsString()
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return value.Scalar(0)
		}
		return value.Scalar(f)
	})

	r.unary("parsenumber", value.BOOLEAN, func(c *vm.Context, right value.Value) value.Value {
		if right.Truthy() {
			return value.Scalar(1)
		}
		return value.Scalar(0)
	})
}
