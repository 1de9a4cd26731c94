// Package value implements the tagged value system that flows through
// the virtual machine: every datum a script can hold, from scalars,
// strings, arrays and code down to the control-flow marker types that
// route operator dispatch, is represented as a [Value] carrying a
// [Tag] and a payload.
//
// A Value is a handle whose tag never changes. Composite payloads are
// shared, not copied: the `set` operator (array element assignment)
// writes into the array storage in place, so every Value holding that
// array sees the change.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tag is the closed enumeration of runtime data types a Value can carry.
type Tag int

//nolint:revive
const (
	NOTHING Tag = iota
	// ANY is a dispatch wildcard only; no Value is ever tagged ANY.
	ANY
	SCALAR
	BOOLEAN
	STRING
	ARRAY
	CODE
	IF
	WHILE
	FOR
	SWITCH
	CONFIG
	NAMESPACE
	SIDE
	GROUP
	OBJECT
)

// String returns the canonical name of the tag, as used in diagnostics.
func (t Tag) String() string {
	switch t {
	case NOTHING:
		return "NOTHING"
	case ANY:
		return "ANY"
	case SCALAR:
		return "SCALAR"
	case BOOLEAN:
		return "BOOLEAN"
	case STRING:
		return "STRING"
	case ARRAY:
		return "ARRAY"
	case CODE:
		return "CODE"
	case IF:
		return "IF"
	case WHILE:
		return "WHILE"
	case FOR:
		return "FOR"
	case SWITCH:
		return "SWITCH"
	case CONFIG:
		return "CONFIG"
	case NAMESPACE:
		return "NAMESPACE"
	case SIDE:
		return "SIDE"
	case GROUP:
		return "GROUP"
	case OBJECT:
		return "OBJECT"
	default:
		return "UNKNOWN"
	}
}

// scalarEpsilon is the tolerance used when comparing two SCALAR values
// for structural equality.
const scalarEpsilon = 1e-9

// Value is an immutable (tag, payload) handle. The zero Value is NOTHING.
type Value struct {
	tag     Tag
	scalar  float64
	boolean bool
	str     string
	array   []Value
	code    CodePayload
	control *ControlPayload
}

// CodePayload is the interface implemented by the payload embedded in a
// CODE value: a compiled instruction set plus capture metadata. It is
// declared here (rather than imported from the code package) to avoid an
// import cycle between value and code; the code package's *code.Set
// satisfies it.
type CodePayload interface {
	// SourceText returns the window of source text this code was parsed
	// from, used only for diagnostics and to_string_sqf reconstruction.
	SourceText() string
}

// ControlPayload is the payload wrapped by IF/WHILE/FOR/SWITCH values.
// These tags exist solely to route operator dispatch for the control-flow
// pipeline (`cond if; {t}; {f}; else; then`, etc.); the payload they
// carry is whatever the originating unary operator produced.
type ControlPayload struct {
	// Kind names the control-flow value for diagnostics (e.g. "if", "for").
	Kind string
	// Cond is the condition code for WHILE, or the subject for SWITCH.
	Cond Value
	// Body is not populated by the builtin operators; switch cases are
	// collected on the switch frame instead.
	Body []Value
	// Aux carries state threaded between binary pipeline stages (e.g.
	// "for" accumulates var/from/to/step).
	Aux map[string]Value
}

// Nothing is the canonical NOTHING value.
var Nothing = Value{tag: NOTHING}

// True and False are the canonical boolean values.
var (
	True  = Value{tag: BOOLEAN, boolean: true}
	False = Value{tag: BOOLEAN, boolean: false}
)

// Bool returns True or False for the given Go bool.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Scalar constructs a SCALAR value.
func Scalar(f float64) Value { return Value{tag: SCALAR, scalar: f} }

// Str constructs a STRING value.
func Str(s string) Value { return Value{tag: STRING, str: s} }

// Arr constructs an ARRAY value from the given elements. The slice is
// retained by reference: callers must not mutate it after passing it in.
func Arr(elems []Value) Value { return Value{tag: ARRAY, array: elems} }

// Code constructs a CODE value wrapping the given payload.
func Code(p CodePayload) Value { return Value{tag: CODE, code: p} }

// Namespace constructs a NAMESPACE value. The payload is the namespace's
// well-known name ("missionNamespace", ...); the store it names lives on
// the VM, not inside the value, so that a NAMESPACE value can never
// outlive or leak the bindings it refers to.
func Namespace(name string) Value { return Value{tag: NAMESPACE, str: name} }

// Side constructs a SIDE value ("west", "east", ...).
func Side(name string) Value { return Value{tag: SIDE, str: name} }

// Control constructs a control-flow marker value (IF/WHILE/FOR/SWITCH).
func Control(tag Tag, p *ControlPayload) Value {
	if tag != IF && tag != WHILE && tag != FOR && tag != SWITCH {
		panic("value: Control called with non-control-flow tag " + tag.String())
	}
	return Value{tag: tag, control: p}
}

// Tag reports the runtime type tag of the value.
func (v Value) Tag() Tag { return v.tag }

// IsNothing reports whether v is the NOTHING value.
func (v Value) IsNothing() bool { return v.tag == NOTHING }

// WrongTypeError is returned by typed accessors when the value's tag
// disagrees with the requested payload shape.
type WrongTypeError struct {
	Want Tag
	Got  Tag
}

func (e *WrongTypeError) Error() string {
	return fmt.Sprintf("WrongType: expected %s, got %s", e.Want, e.Got)
}

// AsScalar returns the float64 payload, or a [WrongTypeError] if v is not SCALAR.
func (v Value) AsScalar() (float64, error) {
	if v.tag != SCALAR {
		return 0, &WrongTypeError{Want: SCALAR, Got: v.tag}
	}
	return v.scalar, nil
}

// AsBool returns the bool payload, or a [WrongTypeError] if v is not BOOLEAN.
func (v Value) AsBool() (bool, error) {
	if v.tag != BOOLEAN {
		return false, &WrongTypeError{Want: BOOLEAN, Got: v.tag}
	}
	return v.boolean, nil
}

// AsString returns the string payload, or a [WrongTypeError] if v is not STRING.
func (v Value) AsString() (string, error) {
	if v.tag != STRING {
		return "", &WrongTypeError{Want: STRING, Got: v.tag}
	}
	return v.str, nil
}

// AsArray returns the element slice, or a [WrongTypeError] if v is not ARRAY.
// The returned slice shares storage with v; treat it as read-only unless
// you own a freshly constructed array.
func (v Value) AsArray() ([]Value, error) {
	if v.tag != ARRAY {
		return nil, &WrongTypeError{Want: ARRAY, Got: v.tag}
	}
	return v.array, nil
}

// AsCode returns the code payload, or a [WrongTypeError] if v is not CODE.
func (v Value) AsCode() (CodePayload, error) {
	if v.tag != CODE {
		return nil, &WrongTypeError{Want: CODE, Got: v.tag}
	}
	return v.code, nil
}

// AsNamespaceName returns the namespace name payload, or a
// [WrongTypeError] if v is not NAMESPACE.
func (v Value) AsNamespaceName() (string, error) {
	if v.tag != NAMESPACE {
		return "", &WrongTypeError{Want: NAMESPACE, Got: v.tag}
	}
	return v.str, nil
}

// AsControl returns the control-flow payload, or a [WrongTypeError] if v is
// not one of IF/WHILE/FOR/SWITCH.
func (v Value) AsControl() (*ControlPayload, error) {
	switch v.tag {
	case IF, WHILE, FOR, SWITCH:
		return v.control, nil
	default:
		return nil, &WrongTypeError{Want: IF, Got: v.tag}
	}
}

// Truthy reports whether v counts as true for purposes of conditional
// operators. Only BOOLEAN values are truthy-checkable; a non-boolean
// condition silently evaluates false rather than aborting.
func (v Value) Truthy() bool {
	return v.tag == BOOLEAN && v.boolean
}

// Equal reports structural equality: scalars compare within
// [scalarEpsilon], booleans/strings compare by value, arrays compare
// element-wise, and code values compare by identity (since code is
// reference-counted and never structurally folded).
func Equal(a, b Value) bool {
	if a.tag != b.tag {
		return false
	}
	switch a.tag {
	case NOTHING:
		return true
	case SCALAR:
		return math.Abs(a.scalar-b.scalar) <= scalarEpsilon
	case BOOLEAN:
		return a.boolean == b.boolean
	case STRING:
		return a.str == b.str
	case ARRAY:
		if len(a.array) != len(b.array) {
			return false
		}
		for i := range a.array {
			if !Equal(a.array[i], b.array[i]) {
				return false
			}
		}
		return true
	case CODE:
		return a.code == b.code
	case NAMESPACE, SIDE:
		return a.str == b.str
	default:
		return a.control == b.control
	}
}

// ToStringSQF renders v in a round-trippable source form: the result,
// fed back through the lexer/parser, reconstructs an equal value (up to
// code identity, which can never round-trip since code is a closure over
// a live instruction set).
func (v Value) ToStringSQF() string {
	switch v.tag {
	case NOTHING:
		return "nil"
	case SCALAR:
		return formatScalar(v.scalar)
	case BOOLEAN:
		return strconv.FormatBool(v.boolean)
	case STRING:
		return quoteSQF(v.str)
	case ARRAY:
		parts := make([]string, len(v.array))
		for i, e := range v.array {
			parts[i] = e.ToStringSQF()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case CODE:
		if v.code != nil {
			return "{" + v.code.SourceText() + "}"
		}
		return "{}"
	case NAMESPACE, SIDE:
		return v.str
	default:
		return "<" + v.tag.String() + ">"
	}
}

// formatScalar prints integer-valued doubles without a decimal point,
// and passes NaN/Inf through verbatim.
func formatScalar(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

// quoteSQF double-quotes s, doubling any embedded `"` per the
// string-literal escaping rule.
func quoteSQF(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' {
			b.WriteByte('"')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
