package asm

import (
	"fmt"
	"strings"
	"testing"
)

// smallProgram is a counter loop over one local.
const smallProgram = `
call main
exit
label main
push bp
cp sp bp
sub sp 1
cp 0 [bp-1]
label while_1
set_reg_d [bp-1]
set_reg_a 10
cp reg_d reg_b
compare_v2
jump_below then_2
set_reg_a 0
jump end_lt_2
label then_2
set_reg_a 1
label end_lt_2
set_reg_b 1
compare_v2
jump_eq true_1
jump end_while_1
label true_1
set_reg_d [bp-1]
set_reg_a 1
cp reg_d reg_b
add_ab_v2
cp reg_a [bp-1]
jump while_1
label end_while_1
cp bp sp
pop bp
ret
`

// largeProgram repeats a small function body many times under distinct labels.
var largeProgram = func() string {
	var b strings.Builder
	b.WriteString("call main\nexit\n")
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, "label f%d\npush bp\ncp sp bp\ncp [bp+2] reg_a\ncp bp sp\npop bp\nret\n", i)
	}
	b.WriteString("label main\npush bp\ncp sp bp\n")
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, "push %d\ncall f%d\nadd sp 1\n", i, i)
	}
	b.WriteString("cp bp sp\npop bp\nret\n")
	return b.String()
}()

func BenchmarkAssemble_Small(b *testing.B) {
	insts, err := ParseListingString(smallProgram)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Assemble(insts); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAssemble_Large(b *testing.B) {
	insts, err := ParseListingString(largeProgram)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Assemble(insts); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParseListing_Large(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := ParseListingString(largeProgram); err != nil {
			b.Fatal(err)
		}
	}
}
