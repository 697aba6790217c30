package compiler

import (
	"strings"
	"testing"
)

func TestSymbolTable(t *testing.T) {
	t.Run("ParamsAndLocals", func(t *testing.T) {
		s := NewSymbolTable()
		s.EnterFunction("f", []string{"a", "b"})
		s.DefineLocal("x")
		s.DefineLocal("y")

		tests := []struct {
			name  string
			scope ScopeType
			addr  string
		}{
			{"a", ScopeParam, "[bp+2]"},
			{"b", ScopeParam, "[bp+3]"},
			{"x", ScopeLocal, "[bp-1]"},
			{"y", ScopeLocal, "[bp-2]"},
		}
		for _, tc := range tests {
			sym, ok := s.Lookup(tc.name)
			if !ok {
				t.Fatalf("%s not found", tc.name)
			}
			if sym.Scope != tc.scope {
				t.Errorf("%s scope: expected %v, got %v", tc.name, tc.scope, sym.Scope)
			}
			if got := sym.Operand().String(); got != tc.addr {
				t.Errorf("%s address: expected %s, got %s", tc.name, tc.addr, got)
			}
		}
	})

	t.Run("LocalShadowsParam", func(t *testing.T) {
		s := NewSymbolTable()
		s.EnterFunction("f", []string{"n"})
		s.DefineLocal("n")

		sym, _ := s.Lookup("n")
		if sym.Scope != ScopeLocal || sym.Operand().String() != "[bp-1]" {
			t.Errorf("expected local [bp-1], got %v %s", sym.Scope, sym.Operand())
		}
	})

	t.Run("LookupLocalSkipsParams", func(t *testing.T) {
		s := NewSymbolTable()
		s.EnterFunction("f", []string{"p"})
		if _, ok := s.LookupLocal("p"); ok {
			t.Error("LookupLocal should not resolve a parameter")
		}
		if _, ok := s.Lookup("p"); !ok {
			t.Error("Lookup should resolve a parameter")
		}
	})

	t.Run("EnterFunctionResets", func(t *testing.T) {
		s := NewSymbolTable()
		s.EnterFunction("f", []string{"a"})
		s.DefineLocal("x")
		s.EnterFunction("g", nil)

		if s.Function() != "g" {
			t.Errorf("function: expected g, got %q", s.Function())
		}
		if _, ok := s.Lookup("x"); ok {
			t.Error("local x leaked into g")
		}
		if _, ok := s.Lookup("a"); ok {
			t.Error("parameter a leaked into g")
		}

		s.ExitFunction()
		if s.Function() != "" {
			t.Errorf("function after exit: %q", s.Function())
		}
	})

	t.Run("String", func(t *testing.T) {
		s := NewSymbolTable()
		s.EnterFunction("main", []string{"argc"})
		s.DefineLocal("i")
		out := s.String()
		for _, want := range []string{"Function main:", "argc", "param [bp+2]", "local [bp-1]"} {
			if !strings.Contains(out, want) {
				t.Errorf("String() missing %q:\n%s", want, out)
			}
		}
	})
}
