// Package compiler lowers a tree-shaped source program into stack-machine
// instructions.
//
// Pipeline: JSON source tree → ParseTree → Generate → listing → asm.Assemble
package compiler
