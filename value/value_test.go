package value

import "testing"

func TestEqualScalarEpsilon(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want bool
	}{
		{"exact", 1.0, 1.0, true},
		{"within epsilon", 1.0, 1.0 + 1e-10, true},
		{"outside epsilon", 1.0, 1.0 + 1e-3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(Scalar(tt.a), Scalar(tt.b)); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestEqualArrayElementwise(t *testing.T) {
	a := Arr([]Value{Scalar(1), Str("x")})
	b := Arr([]Value{Scalar(1), Str("x")})
	c := Arr([]Value{Scalar(1), Str("y")})

	if !Equal(a, b) {
		t.Errorf("expected equal arrays to compare equal")
	}
	if Equal(a, c) {
		t.Errorf("expected differing arrays to compare unequal")
	}
}

func TestAsScalarWrongType(t *testing.T) {
	_, err := Str("hi").AsScalar()
	if err == nil {
		t.Fatalf("expected WrongTypeError, got nil")
	}
	var wte *WrongTypeError
	if !isWrongType(err, &wte) {
		t.Fatalf("expected *WrongTypeError, got %T", err)
	}
	if wte.Want != SCALAR || wte.Got != STRING {
		t.Errorf("unexpected error fields: %+v", wte)
	}
}

func isWrongType(err error, target **WrongTypeError) bool {
	wte, ok := err.(*WrongTypeError)
	if ok {
		*target = wte
	}
	return ok
}

func TestTruthy(t *testing.T) {
	if !True.Truthy() {
		t.Errorf("True should be truthy")
	}
	if False.Truthy() {
		t.Errorf("False should not be truthy")
	}
	if Scalar(1).Truthy() {
		t.Errorf("non-boolean values are never truthy")
	}
}

func TestToStringSQFRoundTrips(t *testing.T) {
	tests := []struct {
		in   Value
		want string
	}{
		{Scalar(3), "3"},
		{Scalar(3.5), "3.5"},
		{Bool(true), "true"},
		{Str(`say "hi"`), `"say ""hi"""`},
		{Arr([]Value{Scalar(1), Scalar(2)}), "[1, 2]"},
		{Nothing, "nil"},
	}

	for _, tt := range tests {
		if got := tt.in.ToStringSQF(); got != tt.want {
			t.Errorf("ToStringSQF() = %q, want %q", got, tt.want)
		}
	}
}
