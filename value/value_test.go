package value

import "testing"

func TestEqualCrossVariant(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same float", Float(1), Float(1), true},
		{"different float", Float(1), Float(2), false},
		{"float vs string", Float(1), String("1"), false},
		{"nil vs nil", Nil, Nil, true},
		{"bool vs nil", BoolVal(false), Nil, false},
		{"string equal", String("a"), String("a"), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Equal(c.a, c.b); got != c.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
			}
		})
	}
}

func TestArithmeticRequiresFloat(t *testing.T) {
	if _, err := Add(Float(1), String("x")); err == nil {
		t.Fatal("expected TypeError adding Float and String")
	}
	if _, err := Add(Float(1), Float(2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDivideByZero(t *testing.T) {
	if _, err := Div(Float(1), Float(0)); err == nil {
		t.Fatal("expected DivideByZero")
	}
	if _, err := Rem(Float(1), Float(0)); err == nil {
		t.Fatal("expected DivideByZero")
	}
}

func TestLogicalRequiresBool(t *testing.T) {
	if _, err := Or(BoolVal(false), Nil); err == nil {
		t.Fatal("expected TypeError: OR requires Bool x Bool")
	}
	v, err := And(BoolVal(true), BoolVal(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Bool {
		t.Errorf("expected false, got true")
	}
}

func TestDisplay(t *testing.T) {
	if Float(3).String() != "3" {
		t.Errorf("got %q", Float(3).String())
	}
	if BoolVal(true).String() != "true" {
		t.Errorf("got %q", BoolVal(true).String())
	}
	if Nil.String() != "" {
		t.Errorf("got %q", Nil.String())
	}
}

func TestIsFalse(t *testing.T) {
	if !IsFalse(BoolVal(false)) {
		t.Error("Bool(false) should be false")
	}
	if IsFalse(BoolVal(true)) {
		t.Error("Bool(true) should not be false")
	}
	if IsFalse(Nil) {
		t.Error("Nil should not count as Bool(false)")
	}
}
