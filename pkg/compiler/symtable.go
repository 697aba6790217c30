package compiler

import (
	"fmt"
	"strings"

	"vgtool/pkg/isa"
)

type ScopeType int

const (
	ScopeLocal ScopeType = iota
	ScopeParam
)

func (s ScopeType) String() string {
	if s == ScopeParam {
		return "param"
	}
	return "local"
}

// Symbol is a named stack slot relative to the frame's base pointer.
type Symbol struct {
	Name  string
	Index int
	Scope ScopeType
}

// Operand returns the frame-relative address of the slot.
func (s Symbol) Operand() isa.Operand {
	if s.Scope == ScopeParam {
		return isa.Param(s.Index)
	}
	return isa.Local(s.Index)
}

// SymbolTable maps the names visible in one function body to stack slots.
//
//	[bp+3]  second argument
//	[bp+2]  first argument
//	[bp+1]  return address
//	[bp]    caller's bp
//	[bp-1]  first local
//	[bp-2]  second local
//
// Only the function's top-level var statements are defined here; a var
// nested in a while or case body reserves a slot but is never registered.
type SymbolTable struct {
	function string
	params   []string
	locals   []string
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{}
}

// EnterFunction resets the table for a new function with the given parameters.
func (s *SymbolTable) EnterFunction(name string, params []string) {
	s.function = name
	s.params = append([]string(nil), params...)
	s.locals = nil
}

// ExitFunction clears the table.
func (s *SymbolTable) ExitFunction() {
	s.function = ""
	s.params = nil
	s.locals = nil
}

// Function is the name of the function being generated.
func (s *SymbolTable) Function() string { return s.function }

// DefineLocal registers the next local slot.
func (s *SymbolTable) DefineLocal(name string) Symbol {
	s.locals = append(s.locals, name)
	return Symbol{Name: name, Index: len(s.locals) - 1, Scope: ScopeLocal}
}

// Lookup resolves a name, locals first.
func (s *SymbolTable) Lookup(name string) (Symbol, bool) {
	if i := indexOf(s.locals, name); i >= 0 {
		return Symbol{Name: name, Index: i, Scope: ScopeLocal}, true
	}
	if i := indexOf(s.params, name); i >= 0 {
		return Symbol{Name: name, Index: i, Scope: ScopeParam}, true
	}
	return Symbol{}, false
}

// LookupLocal resolves a name among locals only.
func (s *SymbolTable) LookupLocal(name string) (Symbol, bool) {
	if i := indexOf(s.locals, name); i >= 0 {
		return Symbol{Name: name, Index: i, Scope: ScopeLocal}, true
	}
	return Symbol{}, false
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// String returns the frame layout in slot order.
func (s *SymbolTable) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Function %s:\n", s.function)
	for i, n := range s.params {
		fmt.Fprintf(&sb, "  %-20s  %s %s\n", n, ScopeParam, isa.Param(i))
	}
	for i, n := range s.locals {
		fmt.Fprintf(&sb, "  %-20s  %s %s\n", n, ScopeLocal, isa.Local(i))
	}
	return sb.String()
}
