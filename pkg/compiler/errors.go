package compiler

import (
	"errors"
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

var (
	ErrUnknownTag = errors.New("unrecognized node")
	ErrUnresolved = errors.New("unresolved identifier")
	ErrMalformed  = errors.New("malformed node")
)

// CompileError reports the node the code generator could not lower.
type CompileError struct {
	Node *Node
	Func string // enclosing function, empty at top level
	Err  error
}

func (e *CompileError) Error() string {
	where := ""
	if e.Func != "" {
		where = " in " + e.Func
	}
	return fmt.Sprintf("compile%s: %v: %s", where, e.Err, e.Node)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Dump renders the offending node's full structure for diagnostics.
func (e *CompileError) Dump() string {
	return spew.Sdump(e.Node)
}
