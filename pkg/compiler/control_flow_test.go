package compiler

import (
	"strings"
	"testing"
)

func TestWhile(t *testing.T) {
	got := generate(t, `["func", "main", [], [
		["var", "i"],
		["while", ["lt", "i", 3], [
			["set", "i", ["+", "i", 1]]
		]]
	]]`)
	want := `call main
exit
label main
push bp
cp sp bp
sub sp 1
_debug -->>_while
label while_1
set_reg_d [bp-1]
set_reg_a 3
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
_debug <<--_while
cp bp sp
pop bp
ret`
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestCase(t *testing.T) {
	code := generate(t, `["func", "main", [], [
		["var", "x"],
		["case",
			[["eq", "x", 1], ["set", "x", 10]],
			[["eq", "x", 2], ["set", "x", 20], ["set", "x", 21]]
		]
	]]`)
	want := `_debug -->>_case
label test_1_0
set_reg_d [bp-1]
set_reg_a 1
cp reg_d reg_b
compare_v2
jump_eq then_2
set_reg_a 0
jump end_eq_2
label then_2
set_reg_a 1
label end_eq_2
set_reg_b 1
compare_v2
jump_eq when_1_0
jump test_1_1
label test_1_1
set_reg_d [bp-1]
set_reg_a 2
cp reg_d reg_b
compare_v2
jump_eq then_3
set_reg_a 0
jump end_eq_3
label then_3
set_reg_a 1
label end_eq_3
set_reg_b 1
compare_v2
jump_eq when_1_1
jump end_case_1
label when_1_0
cp 10 [bp-1]
jump end_case_1
label when_1_1
cp 20 [bp-1]
cp 21 [bp-1]
jump end_case_1
label end_case_1
_debug <<--_case`
	assertContains(t, code, want)
}

func TestCaseEmptyBody(t *testing.T) {
	code := generate(t, `["func", "main", [], [["case", [["eq", 1, 1]]]]]`)
	assertContains(t, code, "jump_eq when_1_0\njump end_case_1\nlabel when_1_0\njump end_case_1\nlabel end_case_1")
}

func TestNestedControlFlow(t *testing.T) {
	code := generate(t, `["func", "main", [], [
		["var", "i"],
		["while", ["lt", "i", 5], [
			["case",
				[["eq", "i", 2], ["set", "vram[i]", 1]]
			],
			["set", "i", ["+", "i", 1]]
		]]
	]]`)

	// while 1, lt 2, case 3, eq 4
	for _, want := range []string{
		"jump_below then_2",
		"label test_3_0",
		"jump_eq then_4",
		"label when_3_0\nset_vram [bp-1] 1\njump end_case_3\nlabel end_case_3\n_debug <<--_case",
		"jump while_1\nlabel end_while_1",
	} {
		assertContains(t, code, want)
	}

	// Every referenced label is defined exactly once.
	defined := map[string]int{}
	for _, line := range strings.Split(code, "\n") {
		if name, ok := strings.CutPrefix(line, "label "); ok {
			defined[name]++
		}
	}
	for _, line := range strings.Split(code, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && strings.HasPrefix(fields[0], "jump") {
			if defined[fields[1]] != 1 {
				t.Errorf("label %s defined %d times", fields[1], defined[fields[1]])
			}
		}
	}
}
