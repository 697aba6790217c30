package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"vgtool/pkg/isa"
)

// CodeGen lowers a source tree into a linear instruction list with symbolic
// branch targets. One CodeGen owns the label counter for one compilation.
type CodeGen struct {
	syms    *SymbolTable
	out     []isa.Instruction
	labelID int
	log     *zap.Logger

	// OnFunction, if set, sees the symbol table at the end of each function body.
	OnFunction func(*SymbolTable)
}

func NewCodeGen(log *zap.Logger) *CodeGen {
	if log == nil {
		log = zap.NewNop()
	}
	return &CodeGen{
		syms: NewSymbolTable(),
		log:  log,
	}
}

// Generate lowers tree with a fresh code generator.
func Generate(tree *Node) ([]isa.Instruction, error) {
	return NewCodeGen(nil).Generate(tree)
}

// Generate emits the program prelude followed by every function in tree.
// On error nothing is returned.
func (cg *CodeGen) Generate(tree *Node) ([]isa.Instruction, error) {
	cg.out = nil
	cg.labelID = 0
	cg.syms.ExitFunction()

	cg.emit(isa.OpCall, isa.LabelRef("main"))
	cg.emit(isa.OpExit)

	if err := cg.genTop(tree); err != nil {
		cg.out = nil
		return nil, err
	}
	out := cg.out
	cg.out = nil
	cg.log.Debug("generated",
		zap.Int("instructions", len(out)),
		zap.Int("labels", cg.labelID))
	return out, nil
}

func (cg *CodeGen) emit(op isa.Opcode, args ...isa.Operand) {
	cg.out = append(cg.out, isa.New(op, args...))
}

func (cg *CodeGen) label(name string) {
	cg.emit(isa.OpLabel, isa.Name(name))
}

func (cg *CodeGen) debug(text string) {
	cg.emit(isa.OpDebug, isa.Name(strings.ReplaceAll(text, " ", "_")))
}

func (cg *CodeGen) nextLabel() int {
	cg.labelID++
	return cg.labelID
}

func (cg *CodeGen) fail(n *Node, err error) error {
	return &CompileError{Node: n, Func: cg.syms.Function(), Err: err}
}

func (cg *CodeGen) failf(n *Node, sentinel error, format string, args ...any) error {
	return cg.fail(n, fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...))
}

// genTop accepts only function definitions, possibly grouped in stmts.
func (cg *CodeGen) genTop(n *Node) error {
	tag, ok := n.Tag()
	if !ok {
		return cg.failf(n, ErrMalformed, "expected a tagged node at top level")
	}
	switch tag {
	case "stmts":
		for _, child := range n.Rest() {
			if err := cg.genTop(child); err != nil {
				return err
			}
		}
		return nil
	case "func":
		return cg.genFunc(n)
	}
	return cg.failf(n, ErrMalformed, "%q is not allowed at top level", tag)
}

// genFunc emits ["func", name, [params...], [stmt...]].
func (cg *CodeGen) genFunc(n *Node) error {
	rest := n.Rest()
	if len(rest) != 3 || rest[0].Kind != StrNode || !rest[1].IsList() || !rest[2].IsList() {
		return cg.failf(n, ErrMalformed, "func wants name, parameter list and body")
	}
	name := rest[0].Str
	params := make([]string, len(rest[1].Items))
	for i, p := range rest[1].Items {
		if p.Kind != StrNode {
			return cg.failf(n, ErrMalformed, "parameter %d of %s is not a name", i, name)
		}
		params[i] = p.Str
	}

	cg.syms.EnterFunction(name, params)
	defer cg.syms.ExitFunction()

	cg.label(name)
	cg.emit(isa.OpPush, isa.BP())
	cg.emit(isa.OpCp, isa.SP(), isa.BP())

	for _, stmt := range rest[2].Items {
		if tag, _ := stmt.Tag(); tag == "var" {
			if err := cg.genVar(stmt, true); err != nil {
				return err
			}
			continue
		}
		if err := cg.genStmt(stmt); err != nil {
			return err
		}
	}

	if cg.OnFunction != nil {
		cg.OnFunction(cg.syms)
	}
	cg.emit(isa.OpCp, isa.BP(), isa.SP())
	cg.emit(isa.OpPop, isa.BP())
	cg.emit(isa.OpRet)
	return nil
}

// genVar reserves one stack slot. Only a var directly in the function body
// is registered; nested ones keep the slot but stay unnamed.
func (cg *CodeGen) genVar(n *Node, register bool) error {
	rest := n.Rest()
	if len(rest) < 1 || len(rest) > 2 || rest[0].Kind != StrNode {
		return cg.failf(n, ErrMalformed, "var wants a name and an optional value")
	}
	cg.emit(isa.OpSub, isa.SP(), isa.Imm(1))
	if register {
		cg.syms.DefineLocal(rest[0].Str)
	}
	if len(rest) == 2 {
		return cg.genSet(Tree("set", rest[0], rest[1]))
	}
	return nil
}

func (cg *CodeGen) genStmt(n *Node) error {
	tag, ok := n.Tag()
	if !ok {
		return cg.failf(n, ErrMalformed, "statement must be a tagged list")
	}
	switch tag {
	case "stmts":
		for _, child := range n.Rest() {
			if err := cg.genStmt(child); err != nil {
				return err
			}
		}
	case "noop":
		cg.emit(isa.OpNoop)
	case "var":
		return cg.genVar(n, false)
	case "set":
		return cg.genSet(n)
	case "return":
		return cg.genReturn(n)
	case "call":
		rest := n.Rest()
		if len(rest) == 0 || rest[0].Kind != StrNode {
			return cg.failf(n, ErrMalformed, "call wants a function name")
		}
		fn := rest[0].Str
		cg.debug("-->> call " + fn)
		if err := cg.genCall(n, fn, rest[1:]); err != nil {
			return err
		}
		cg.debug("<<-- call " + fn)
	case "call_set":
		return cg.genCallSet(n)
	case "case":
		cg.debug("-->> case")
		if err := cg.genCase(n); err != nil {
			return err
		}
		cg.debug("<<-- case")
	case "while":
		cg.debug("-->> while")
		if err := cg.genWhile(n); err != nil {
			return err
		}
		cg.debug("<<-- while")
	case "_debug":
		rest := n.Rest()
		if len(rest) != 1 || rest[0].Kind != StrNode {
			return cg.failf(n, ErrMalformed, "_debug wants one text operand")
		}
		cg.debug(rest[0].Str)
	case "func":
		return cg.failf(n, ErrMalformed, "nested function definition")
	default:
		if isBinary(tag) {
			return cg.genExpr(n)
		}
		return cg.failf(n, ErrUnknownTag, "%q", tag)
	}
	return nil
}

// genCall pushes args last to first, calls fn and drops the arguments.
func (cg *CodeGen) genCall(n *Node, fn string, args []*Node) error {
	for i := len(args) - 1; i >= 0; i-- {
		arg, err := cg.argOperand(n, args[i])
		if err != nil {
			return err
		}
		cg.emit(isa.OpPush, arg)
	}
	cg.emit(isa.OpCall, isa.LabelRef(fn))
	cg.emit(isa.OpAdd, isa.SP(), isa.Imm(len(args)))
	return nil
}

// genCallSet emits ["call_set", local, [fn, args...]].
func (cg *CodeGen) genCallSet(n *Node) error {
	rest := n.Rest()
	if len(rest) != 2 || rest[0].Kind != StrNode {
		return cg.failf(n, ErrMalformed, "call_set wants a local and a call")
	}
	call := rest[1]
	if !call.IsList() || len(call.Items) == 0 || call.Items[0].Kind != StrNode {
		return cg.failf(n, ErrMalformed, "second operand of call_set must be [fn, args...]")
	}
	sym, ok := cg.syms.LookupLocal(rest[0].Str)
	if !ok {
		return cg.failf(n, ErrUnresolved, "%q", rest[0].Str)
	}

	fn := call.Items[0].Str
	cg.debug("-->> call_set " + fn)
	if err := cg.genCall(n, fn, call.Items[1:]); err != nil {
		return err
	}
	cg.emit(isa.OpCp, isa.Reg(isa.RegA), sym.Operand())
	cg.debug("<<-- call_set " + fn)
	return nil
}

// argOperand resolves a call argument: a literal, a local or a parameter.
func (cg *CodeGen) argOperand(n, arg *Node) (isa.Operand, error) {
	switch arg.Kind {
	case IntNode:
		return isa.Imm(arg.Int), nil
	case StrNode:
		if v, ok := literal(arg.Str); ok {
			return isa.Imm(v), nil
		}
		if sym, ok := cg.syms.Lookup(arg.Str); ok {
			return sym.Operand(), nil
		}
		return isa.Operand{}, cg.failf(n, ErrUnresolved, "%q", arg.Str)
	}
	return isa.Operand{}, cg.failf(n, ErrMalformed, "call argument %s", arg)
}

// genCase emits every guard test first, then every body.
//
//	label test_N_i; <guard>; set_reg_b 1; compare_v2; jump_eq when_N_i
//	jump test_N_{i+1}            (or end_case_N after the last guard)
//	label when_N_i; <body>; jump end_case_N
//	label end_case_N
func (cg *CodeGen) genCase(n *Node) error {
	id := cg.nextLabel()
	branches := n.Rest()
	end := fmt.Sprintf("end_case_%d", id)

	for i, br := range branches {
		if !br.IsList() || len(br.Items) == 0 || !br.Items[0].IsList() {
			return cg.failf(n, ErrMalformed, "case branch %d wants [guard, stmt...]", i)
		}
		cg.label(fmt.Sprintf("test_%d_%d", id, i))
		if err := cg.genExpr(br.Items[0]); err != nil {
			return err
		}
		cg.emit(isa.OpSetRegB, isa.Imm(1))
		cg.emit(isa.OpCompare)
		cg.emit(isa.OpJumpEq, isa.LabelRef(fmt.Sprintf("when_%d_%d", id, i)))
		if i+1 < len(branches) {
			cg.emit(isa.OpJump, isa.LabelRef(fmt.Sprintf("test_%d_%d", id, i+1)))
		} else {
			cg.emit(isa.OpJump, isa.LabelRef(end))
		}
	}

	for i, br := range branches {
		cg.label(fmt.Sprintf("when_%d_%d", id, i))
		for _, stmt := range br.Items[1:] {
			if err := cg.genStmt(stmt); err != nil {
				return err
			}
		}
		cg.emit(isa.OpJump, isa.LabelRef(end))
	}

	cg.label(end)
	return nil
}

// genWhile emits ["while", cond, [stmt...]].
func (cg *CodeGen) genWhile(n *Node) error {
	rest := n.Rest()
	if len(rest) != 2 || !rest[0].IsList() || !rest[1].IsList() {
		return cg.failf(n, ErrMalformed, "while wants a condition and a body list")
	}
	id := cg.nextLabel()
	top := fmt.Sprintf("while_%d", id)
	end := fmt.Sprintf("end_while_%d", id)
	body := fmt.Sprintf("true_%d", id)

	cg.label(top)
	if err := cg.genExpr(rest[0]); err != nil {
		return err
	}
	cg.emit(isa.OpSetRegB, isa.Imm(1))
	cg.emit(isa.OpCompare)
	cg.emit(isa.OpJumpEq, isa.LabelRef(body))
	cg.emit(isa.OpJump, isa.LabelRef(end))

	cg.label(body)
	for _, stmt := range rest[1].Items {
		if err := cg.genStmt(stmt); err != nil {
			return err
		}
	}
	cg.emit(isa.OpJump, isa.LabelRef(top))
	cg.label(end)
	return nil
}

// genSet emits ["set", dest, src].
func (cg *CodeGen) genSet(n *Node) error {
	rest := n.Rest()
	if len(rest) != 2 || rest[0].Kind != StrNode {
		return cg.failf(n, ErrMalformed, "set wants a destination name and a source")
	}
	src, err := cg.sourceOperand(n, rest[1])
	if err != nil {
		return err
	}

	dest := rest[0].Str
	if idx, ok := vramIndex(dest); ok {
		if v, ok := literal(idx); ok {
			cg.emit(isa.OpCp, src, isa.VRAM(v))
			return nil
		}
		sym, ok := cg.syms.LookupLocal(idx)
		if !ok {
			return cg.failf(n, ErrUnresolved, "%q", idx)
		}
		cg.emit(isa.OpSetVRAM, sym.Operand(), src)
		return nil
	}

	sym, ok := cg.syms.Lookup(dest)
	if !ok {
		return cg.failf(n, ErrUnresolved, "%q", dest)
	}
	cg.emit(isa.OpCp, src, sym.Operand())
	return nil
}

// genReturn leaves the value in reg_a. Control falls through to whatever
// follows, normally the epilogue.
func (cg *CodeGen) genReturn(n *Node) error {
	rest := n.Rest()
	if len(rest) != 1 {
		return cg.failf(n, ErrMalformed, "return wants one operand")
	}
	src, err := cg.sourceOperand(n, rest[0])
	if err != nil {
		return err
	}
	if src.Kind == isa.KindReg && src.Reg == isa.RegA {
		return nil
	}
	cg.emit(isa.OpCp, src, isa.Reg(isa.RegA))
	return nil
}

// sourceOperand resolves the value side of set and return, emitting any
// code needed to compute it first.
func (cg *CodeGen) sourceOperand(n, src *Node) (isa.Operand, error) {
	switch src.Kind {
	case IntNode:
		return isa.Imm(src.Int), nil
	case ListNode:
		if err := cg.genExpr(src); err != nil {
			return isa.Operand{}, err
		}
		return isa.Reg(isa.RegA), nil
	}

	s := src.Str
	if v, ok := literal(s); ok {
		return isa.Imm(v), nil
	}
	if s == "reg_a" {
		return isa.Reg(isa.RegA), nil
	}
	if idx, ok := vramIndex(s); ok {
		if v, ok := literal(idx); ok {
			return isa.VRAM(v), nil
		}
		sym, ok := cg.syms.LookupLocal(idx)
		if !ok {
			return isa.Operand{}, cg.failf(n, ErrUnresolved, "%q", idx)
		}
		cg.emit(isa.OpGetVRAM, sym.Operand(), isa.Reg(isa.RegA))
		return isa.Reg(isa.RegA), nil
	}
	if sym, ok := cg.syms.Lookup(s); ok {
		return sym.Operand(), nil
	}
	return isa.Operand{}, cg.failf(n, ErrUnresolved, "%q", s)
}

func isBinary(tag string) bool {
	switch tag {
	case "+", "-", "*", "eq", "gt", "lt", "neq":
		return true
	}
	return false
}

// genExpr leaves the value of a binary expression in reg_a.
//
// reg_d is the only place a compound left operand is kept while the right
// operand is computed, so a right operand that is itself compound overwrites it.
func (cg *CodeGen) genExpr(n *Node) error {
	tag, ok := n.Tag()
	if !ok || !isBinary(tag) {
		return cg.failf(n, ErrUnknownTag, "expression %s", n)
	}
	rest := n.Rest()
	if len(rest) != 2 {
		return cg.failf(n, ErrMalformed, "%s wants two operands", tag)
	}
	left, right := rest[0], rest[1]

	if left.IsList() && right.IsList() {
		cg.log.Warn("both operands are compound; the saved left value in reg_d is overwritten",
			zap.String("func", cg.syms.Function()),
			zap.Stringer("expr", n))
	}

	if left.IsList() {
		if err := cg.genExpr(left); err != nil {
			return err
		}
		cg.emit(isa.OpCp, isa.Reg(isa.RegA), isa.Reg(isa.RegD))
	}
	if right.IsList() {
		if err := cg.genExpr(right); err != nil {
			return err
		}
	}
	if !left.IsList() {
		op, err := cg.termOperand(n, left)
		if err != nil {
			return err
		}
		cg.emit(isa.OpSetRegD, op)
	}
	if !right.IsList() {
		op, err := cg.termOperand(n, right)
		if err != nil {
			return err
		}
		cg.emit(isa.OpSetRegA, op)
	}

	switch tag {
	case "+":
		cg.emit(isa.OpCp, isa.Reg(isa.RegD), isa.Reg(isa.RegB))
		cg.emit(isa.OpAddAB)
	case "-":
		// sub_ab computes a-b; the left value is in d.
		cg.emit(isa.OpCp, isa.Reg(isa.RegA), isa.Reg(isa.RegC))
		cg.emit(isa.OpCp, isa.Reg(isa.RegD), isa.Reg(isa.RegA))
		cg.emit(isa.OpCp, isa.Reg(isa.RegC), isa.Reg(isa.RegB))
		cg.emit(isa.OpSubAB)
	case "*":
		cg.emit(isa.OpCp, isa.Reg(isa.RegD), isa.Reg(isa.RegB))
		cg.emit(isa.OpMultAB)
	case "eq":
		cg.genCompare(tag, isa.OpJumpEq, 0, 1)
	case "gt":
		cg.genCompare(tag, isa.OpJumpAbove, 0, 1)
	case "lt":
		cg.genCompare(tag, isa.OpJumpBelow, 0, 1)
	case "neq":
		cg.genCompare(tag, isa.OpJumpEq, 1, 0)
	}
	return nil
}

func (cg *CodeGen) genCompare(tag string, jump isa.Opcode, otherwise, then int) {
	id := cg.nextLabel()
	thenLabel := fmt.Sprintf("then_%d", id)
	end := fmt.Sprintf("end_%s_%d", tag, id)

	cg.emit(isa.OpCp, isa.Reg(isa.RegD), isa.Reg(isa.RegB))
	cg.emit(isa.OpCompare)
	cg.emit(jump, isa.LabelRef(thenLabel))
	cg.emit(isa.OpSetRegA, isa.Imm(otherwise))
	cg.emit(isa.OpJump, isa.LabelRef(end))
	cg.label(thenLabel)
	cg.emit(isa.OpSetRegA, isa.Imm(then))
	cg.label(end)
}

// termOperand resolves a terminal expression operand.
func (cg *CodeGen) termOperand(n, t *Node) (isa.Operand, error) {
	if t.Kind == IntNode {
		return isa.Imm(t.Int), nil
	}
	if v, ok := literal(t.Str); ok {
		return isa.Imm(v), nil
	}
	if idx, ok := vramIndex(t.Str); ok {
		if v, ok := literal(idx); ok {
			return isa.VRAM(v), nil
		}
		return isa.Operand{}, cg.failf(n, ErrMalformed, "%s cannot be read inside an expression", t.Str)
	}
	if sym, ok := cg.syms.Lookup(t.Str); ok {
		return sym.Operand(), nil
	}
	return isa.Operand{}, cg.failf(n, ErrUnresolved, "%q", t.Str)
}

// literal accepts decimal digit strings, optionally signed.
func literal(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	return v, err == nil
}

// vramIndex returns the text between "vram[" and "]".
func vramIndex(s string) (string, bool) {
	if !strings.HasPrefix(s, "vram[") || !strings.HasSuffix(s, "]") || len(s) <= len("vram[]") {
		return "", false
	}
	return s[len("vram[") : len(s)-1], true
}
