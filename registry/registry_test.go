package registry

import (
	"testing"

	"github.com/sqc-lang/sqcvm/value"
)

type machine struct{}

func TestDispatchPrefersNonAnyOverload(t *testing.T) {
	r := New[*machine]()

	if err := r.RegisterBinary("select", value.ANY, value.SCALAR, 4, func(m *machine, l, rr value.Value) value.Value {
		return value.Str("any")
	}); err != nil {
		t.Fatalf("register ANY overload: %v", err)
	}
	if err := r.RegisterBinary("select", value.ARRAY, value.SCALAR, 4, func(m *machine, l, rr value.Value) value.Value {
		return value.Str("array")
	}); err != nil {
		t.Fatalf("register ARRAY overload: %v", err)
	}

	fn, ok := r.DispatchBinary("select", value.ARRAY, value.SCALAR)
	if !ok {
		t.Fatalf("expected dispatch to succeed")
	}
	got := fn(&machine{}, value.Nothing, value.Nothing)
	s, _ := got.AsString()
	if s != "array" {
		t.Errorf("expected the ARRAY overload to win, got %q", s)
	}
}

func TestDispatchNoMatch(t *testing.T) {
	r := New[*machine]()
	_ = r.RegisterBinary("select", value.ARRAY, value.SCALAR, 4, func(m *machine, l, rr value.Value) value.Value {
		return value.Nothing
	})

	if _, ok := r.DispatchBinary("select", value.STRING, value.SCALAR); ok {
		t.Errorf("expected no match for (STRING, SCALAR)")
	}
}

func TestRegisterDuplicateIsAmbiguous(t *testing.T) {
	r := New[*machine]()
	fn := func(m *machine, l, rr value.Value) value.Value { return value.Nothing }
	if err := r.RegisterBinary("foo", value.SCALAR, value.SCALAR, 6, fn); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if err := r.RegisterBinary("foo", value.SCALAR, value.SCALAR, 6, fn); err == nil {
		t.Errorf("expected ambiguous-overload error on duplicate registration")
	}
}

func TestDispatchCaseInsensitiveName(t *testing.T) {
	r := New[*machine]()
	_ = r.RegisterNular("true", func(m *machine) value.Value { return value.True })

	if _, ok := r.DispatchNular("TRUE"); !ok {
		t.Errorf("expected case-insensitive dispatch to find 'true'")
	}
}
