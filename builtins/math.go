package builtins

import (
	"math"

	"github.com/sqc-lang/sqcvm/diag"
	"github.com/sqc-lang/sqcvm/value"
	"github.com/sqc-lang/sqcvm/vm"
)

// registerMath wires scalar arithmetic. Numeric semantics are 64-bit
// IEEE-754 throughout; division by zero warns and yields NaN rather than
// aborting.
func registerMath(r *registrar) {
	r.nular("pi", func(c *vm.Context) value.Value { return value.Scalar(math.Pi) })

	r.unary("-", value.SCALAR, func(c *vm.Context, right value.Value) value.Value {
		f, _ := right.AsScalar()
		return value.Scalar(-f)
	})

	r.unary("!", value.BOOLEAN, func(c *vm.Context, right value.Value) value.Value {
		b, _ := right.AsBool()
		return value.Bool(!b)
	})

	scalarOp := func(fn func(a, b float64) float64) func(c *vm.Context, left, right value.Value) value.Value {
		return func(c *vm.Context, left, right value.Value) value.Value {
			a, _ := left.AsScalar()
			b, _ := right.AsScalar()
			return value.Scalar(fn(a, b))
		}
	}

	r.binary("+", value.SCALAR, value.SCALAR, precSum, scalarOp(func(a, b float64) float64 { return a + b }))
	r.binary("-", value.SCALAR, value.SCALAR, precSum, scalarOp(func(a, b float64) float64 { return a - b }))
	r.binary("*", value.SCALAR, value.SCALAR, precProduct, scalarOp(func(a, b float64) float64 { return a * b }))
	r.binary("min", value.SCALAR, value.SCALAR, precSum, scalarOp(math.Min))
	r.binary("max", value.SCALAR, value.SCALAR, precSum, scalarOp(math.Max))

	div := func(c *vm.Context, left, right value.Value) value.Value {
		a, _ := left.AsScalar()
		b, _ := right.AsScalar()
		if b == 0 {
			c.Warn(diag.DivisionByZero, "division by zero")
			return value.Scalar(math.NaN())
		}
		return value.Scalar(a / b)
	}
	r.binary("/", value.SCALAR, value.SCALAR, precProduct, div)

	mod := func(c *vm.Context, left, right value.Value) value.Value {
		a, _ := left.AsScalar()
		b, _ := right.AsScalar()
		if b == 0 {
			c.Warn(diag.DivisionByZero, "modulo by zero")
			return value.Scalar(math.NaN())
		}
		return value.Scalar(math.Mod(a, b))
	}
	r.binary("%", value.SCALAR, value.SCALAR, precProduct, mod)
	r.binary("mod", value.SCALAR, value.SCALAR, precProduct, mod)

	unaryMath := func(fn func(float64) float64) func(c *vm.Context, right value.Value) value.Value {
		return func(c *vm.Context, right value.Value) value.Value {
			f, _ := right.AsScalar()
			return value.Scalar(fn(f))
		}
	}
	r.unary("abs", value.SCALAR, unaryMath(math.Abs))
	r.unary("sqrt", value.SCALAR, unaryMath(math.Sqrt))
	r.unary("floor", value.SCALAR, unaryMath(math.Floor))
	r.unary("ceil", value.SCALAR, unaryMath(math.Ceil))
	r.unary("round", value.SCALAR, unaryMath(math.Round))
	r.unary("exp", value.SCALAR, unaryMath(math.Exp))
	r.unary("ln", value.SCALAR, unaryMath(math.Log))
	r.unary("log", value.SCALAR, unaryMath(math.Log10))
	r.unary("sin", value.SCALAR, unaryMath(func(f float64) float64 { return math.Sin(f * math.Pi / 180) }))
	r.unary("cos", value.SCALAR, unaryMath(func(f float64) float64 { return math.Cos(f * math.Pi / 180) }))
	r.unary("tan", value.SCALAR, unaryMath(func(f float64) float64 { return math.Tan(f * math.Pi / 180) }))
	r.unary("deg", value.SCALAR, unaryMath(func(f float64) float64 { return f * 180 / math.Pi }))
	r.unary("rad", value.SCALAR, unaryMath(func(f float64) float64 { return f * math.Pi / 180 }))
}

// registerComparison wires comparison and boolean connectives. The
// strict forms (`===`/`!==`) require identical tags and exact scalar
// equality, bypassing the epsilon of structural equality.
func registerComparison(r *registrar) {
	cmp := func(fn func(a, b float64) bool) func(c *vm.Context, left, right value.Value) value.Value {
		return func(c *vm.Context, left, right value.Value) value.Value {
			a, _ := left.AsScalar()
			b, _ := right.AsScalar()
			return value.Bool(fn(a, b))
		}
	}
	r.binary("<", value.SCALAR, value.SCALAR, precCompare, cmp(func(a, b float64) bool { return a < b }))
	r.binary(">", value.SCALAR, value.SCALAR, precCompare, cmp(func(a, b float64) bool { return a > b }))
	r.binary("<=", value.SCALAR, value.SCALAR, precCompare, cmp(func(a, b float64) bool { return a <= b }))
	r.binary(">=", value.SCALAR, value.SCALAR, precCompare, cmp(func(a, b float64) bool { return a >= b }))

	r.binary("==", value.ANY, value.ANY, precCompare, func(c *vm.Context, left, right value.Value) value.Value {
		return value.Bool(value.Equal(left, right))
	})
	r.binary("!=", value.ANY, value.ANY, precCompare, func(c *vm.Context, left, right value.Value) value.Value {
		return value.Bool(!value.Equal(left, right))
	})
	r.binary("===", value.ANY, value.ANY, precCompare, func(c *vm.Context, left, right value.Value) value.Value {
		return value.Bool(strictEqual(left, right))
	})
	r.binary("!==", value.ANY, value.ANY, precCompare, func(c *vm.Context, left, right value.Value) value.Value {
		return value.Bool(!strictEqual(left, right))
	})

	r.binary("&&", value.BOOLEAN, value.BOOLEAN, precAnd, func(c *vm.Context, left, right value.Value) value.Value {
		return value.Bool(left.Truthy() && right.Truthy())
	})
	r.binary("||", value.BOOLEAN, value.BOOLEAN, precOr, func(c *vm.Context, left, right value.Value) value.Value {
		return value.Bool(left.Truthy() || right.Truthy())
	})
}

// strictEqual is `===`: same tag, and scalars compare bit-for-bit
// instead of within epsilon.
func strictEqual(a, b value.Value) bool {
	if a.Tag() != b.Tag() {
		return false
	}
	if a.Tag() == value.SCALAR {
		af, _ := a.AsScalar()
		bf, _ := b.AsScalar()
		return af == bf
	}
	return value.Equal(a, b)
}
