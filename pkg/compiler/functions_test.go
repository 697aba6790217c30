package compiler

import "testing"

func TestFunctionPrologueEpilogue(t *testing.T) {
	code := generate(t, `["func", "add", ["a", "b"], [["return", ["+", "a", "b"]]]]`)
	want := `label add
push bp
cp sp bp
set_reg_d [bp+2]
set_reg_a [bp+3]
cp reg_d reg_b
add_ab_v2
cp bp sp
pop bp
ret`
	assertContains(t, code, want)
}

func TestCall(t *testing.T) {
	tests := []struct {
		name string
		stmt string
		want string
	}{
		{
			name: "arguments pushed last to first",
			stmt: `["call", "f", 1, "a", "p"]`,
			want: "_debug -->>_call_f\npush [bp+2]\npush [bp-1]\npush 1\ncall f\nadd sp 3\n_debug <<--_call_f",
		},
		{
			name: "no arguments",
			stmt: `["call", "tick"]`,
			want: "_debug -->>_call_tick\ncall tick\nadd sp 0\n_debug <<--_call_tick",
		},
		{
			name: "digit string and negative literal",
			stmt: `["call", "g", "12", -4]`,
			want: "push -4\npush 12\ncall g\nadd sp 2",
		},
		{
			name: "call_set stores reg_a",
			stmt: `["call_set", "a", ["f", 2]]`,
			want: "_debug -->>_call_set_f\npush 2\ncall f\nadd sp 1\ncp reg_a [bp-1]\n_debug <<--_call_set_f",
		},
		{
			name: "call_set with parameter argument",
			stmt: `["call_set", "a", ["h", "p", "a"]]`,
			want: "push [bp-1]\npush [bp+2]\ncall h\nadd sp 2\ncp reg_a [bp-1]",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := `["func", "main", ["p"], [["var", "a"], ` + tc.stmt + `]]`
			assertContains(t, generate(t, src), tc.want)
		})
	}
}

func TestRecursiveCall(t *testing.T) {
	code := generate(t, `["stmts",
		["func", "down", ["n"], [
			["var", "m", ["-", "n", 1]],
			["case", [["gt", "n", 0], ["call", "down", "m"]]]
		]],
		["func", "main", [], [["call", "down", 3]]]
	]`)
	assertContains(t, code, "label when_1_0\n_debug -->>_call_down\npush [bp-1]\ncall down\nadd sp 1")
	assertContains(t, code, "push 3\ncall down")
}
