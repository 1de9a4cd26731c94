// Package registry implements the operator registry and dispatch
// protocol: a multimap from (name, arity) to typed overloads, with
// dispatch picking the overload whose declared operand types subsume
// the runtime value types.
//
// It is written generically over the machine type M so that it has no
// dependency on the vm package that embeds it, which in turn avoids an
// import cycle between vm (which needs a Registry) and the package
// holding operator callbacks bound to *vm.Context.
package registry

import (
	"fmt"

	"github.com/sqc-lang/sqcvm/value"
)

// NularFn is a zero-operand operator callback.
type NularFn[M any] func(m M) value.Value

// UnaryFn is a one-operand operator callback.
type UnaryFn[M any] func(m M, right value.Value) value.Value

// BinaryFn is a two-operand operator callback.
type BinaryFn[M any] func(m M, left, right value.Value) value.Value

// Overload is one (name, arity, left-type, right-type, precedence,
// callback) registry entry. Exactly one of Nular/Unary/Binary is set,
// matching Arity.
type Overload[M any] struct {
	Name       string
	Arity      int
	Left       value.Tag
	Right      value.Tag
	Precedence int

	Nular  NularFn[M]
	Unary  UnaryFn[M]
	Binary BinaryFn[M]
}

type key struct {
	name  string
	arity int
}

// Registry is the (name, arity) -> []Overload multimap.
type Registry[M any] struct {
	overloads map[key][]Overload[M]
}

// New creates an empty Registry.
func New[M any]() *Registry[M] {
	return &Registry[M]{overloads: make(map[key][]Overload[M])}
}

// RegisterNular adds a nular overload for name.
func (r *Registry[M]) RegisterNular(name string, fn NularFn[M]) error {
	return r.register(Overload[M]{Name: lower(name), Arity: 0, Left: value.NOTHING, Right: value.NOTHING, Nular: fn})
}

// RegisterUnary adds a unary overload for name with the given declared
// right-operand type.
func (r *Registry[M]) RegisterUnary(name string, right value.Tag, fn UnaryFn[M]) error {
	return r.register(Overload[M]{Name: lower(name), Arity: 1, Left: value.NOTHING, Right: right, Unary: fn})
}

// RegisterBinary adds a binary overload for name with the given declared
// left/right operand types and reconstruction precedence.
func (r *Registry[M]) RegisterBinary(name string, left, right value.Tag, precedence int, fn BinaryFn[M]) error {
	return r.register(Overload[M]{Name: lower(name), Arity: 2, Left: left, Right: right, Precedence: precedence, Binary: fn})
}

func (r *Registry[M]) register(o Overload[M]) error {
	k := key{name: o.Name, arity: o.Arity}
	for _, existing := range r.overloads[k] {
		if existing.Left == o.Left && existing.Right == o.Right {
			return fmt.Errorf("registry: ambiguous overload for %q/%d: (%s, %s) already registered",
				o.Name, o.Arity, o.Left, o.Right)
		}
	}
	r.overloads[k] = append(r.overloads[k], o)
	return nil
}

// Exists reports whether any overload is registered for (name, arity).
func (r *Registry[M]) Exists(name string, arity int) bool {
	_, ok := r.overloads[key{name: lower(name), arity: arity}]
	return ok
}

// BinaryPrecedence returns the reconstruction precedence of the first
// registered binary overload for name. Binary overloads of the same
// name always share a precedence, so any match suffices;
// this is used by the compiler at emit time to attach CALL_BINARY's
// informational precedence operand.
func (r *Registry[M]) BinaryPrecedence(name string) (int, bool) {
	for k, list := range r.overloads {
		if k.name == lower(name) && k.arity == 2 && len(list) > 0 {
			return list[0].Precedence, true
		}
	}
	return 0, false
}

// DispatchNular resolves the nular overload for name.
func (r *Registry[M]) DispatchNular(name string) (NularFn[M], bool) {
	for _, o := range r.overloads[key{name: lower(name), arity: 0}] {
		return o.Nular, true
	}
	return nil, false
}

// DispatchUnary resolves the most specific unary overload for name
// given the runtime right-operand type.
func (r *Registry[M]) DispatchUnary(name string, rt value.Tag) (UnaryFn[M], bool) {
	best, ok := r.bestMatch(r.overloads[key{name: lower(name), arity: 1}], value.NOTHING, rt)
	if !ok {
		return nil, false
	}
	return best.Unary, true
}

// DispatchBinary resolves the most specific binary overload for name
// given the runtime left/right operand types.
func (r *Registry[M]) DispatchBinary(name string, lt, rt value.Tag) (BinaryFn[M], bool) {
	best, ok := r.bestMatch(r.overloads[key{name: lower(name), arity: 2}], lt, rt)
	if !ok {
		return nil, false
	}
	return best.Binary, true
}

// bestMatch enumerates candidates, keeps those whose declared slots
// subsume the runtime types, and prefers non-ANY over ANY per slot
// (left before right). A tie between two equally-specific matches is
// treated as an internal invariant violation: Register already refuses
// to create one, so reaching it means the registry was built
// inconsistently.
func (r *Registry[M]) bestMatch(candidates []Overload[M], lt, rt value.Tag) (Overload[M], bool) {
	var best Overload[M]
	bestScore := -1
	tie := false

	for _, o := range candidates {
		if !slotMatches(o.Left, lt) || !slotMatches(o.Right, rt) {
			continue
		}
		score := specificity(o.Left)*2 + specificity(o.Right)
		switch {
		case score > bestScore:
			best, bestScore, tie = o, score, false
		case score == bestScore:
			tie = true
		}
	}

	if bestScore < 0 || tie {
		return Overload[M]{}, false
	}
	return best, true
}

func slotMatches(declared, runtime value.Tag) bool {
	return declared == value.ANY || declared == runtime
}

func specificity(declared value.Tag) int {
	if declared == value.ANY {
		return 0
	}
	return 1
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
