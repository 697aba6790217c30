package cpu

import (
	"fmt"
	"strings"
	"testing"
)

// countLoop counts reg_a up to n through a stack local.
func countLoop(n int) string {
	return fmt.Sprintf(`
call main
exit
label main
push bp
cp sp bp
sub sp 1
cp 0 [bp-1]
label top
set_reg_d [bp-1]
set_reg_a %d
cp reg_d reg_b
compare_v2
jump_eq end
set_reg_d [bp-1]
set_reg_a 1
cp reg_d reg_b
add_ab_v2
cp reg_a [bp-1]
jump top
label end
cp bp sp
pop bp
ret
`, n)
}

// BenchmarkCPU_Noop measures the raw dispatch overhead of the Step loop.
func BenchmarkCPU_Noop(b *testing.B) {
	prog := mustAssemble(b, strings.Repeat("noop\n", 1000)+"exit\n")
	c := NewCPU(DefaultConfig())

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.Load(prog); err != nil {
			b.Fatal(err)
		}
		if err := c.Run(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkCPU_Loop runs a frame-addressed counting loop.
func BenchmarkCPU_Loop(b *testing.B) {
	prog := mustAssemble(b, countLoop(1000))
	c := NewCPU(DefaultConfig())

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.Load(prog); err != nil {
			b.Fatal(err)
		}
		if err := c.Run(); err != nil {
			b.Fatal(err)
		}
	}
}

func TestCountLoop(t *testing.T) {
	c := newLoaded(t, DefaultConfig(), countLoop(25))
	if err := c.Run(); err != nil {
		t.Fatal(err)
	}
	if got := c.Stack[c.StackSize()-4]; got != 25 {
		t.Errorf("local = %d, want 25", got)
	}
}
