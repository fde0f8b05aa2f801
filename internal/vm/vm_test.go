package vm_test

import (
	"testing"

	"github.com/fusabi-lang/fusabi/internal/parser"
	"github.com/fusabi-lang/fusabi/internal/vm"
)

// run compiles and executes src against a fresh VM, the shared helper
// every case below uses.
func run(t *testing.T, src string) vm.Value {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	chunk, err := vm.Compile(prog, vm.Options{})
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	result, err := vm.New().Execute(chunk)
	if err != nil {
		t.Fatalf("execute %q: %v", src, err)
	}
	return result
}

func TestArithmetic(t *testing.T) {
	cases := []struct {
		src  string
		want vm.Value
	}{
		{"1 + 2", vm.Int(3)},
		{"2 * 3 + 4", vm.Int(10)},
		{"2 * (3 + 4)", vm.Int(14)},
		{"10 - 3 - 2", vm.Int(5)},
		{"7 / 2", vm.Int(3)},
		{"7 % 2", vm.Int(1)},
		{"true && false", vm.Bool(false)},
		{"true || false", vm.Bool(true)},
		{"1 < 2", vm.Bool(true)},
		{"1 <> 2", vm.Bool(true)},
	}
	for _, c := range cases {
		if got := run(t, c.src); got != c.want {
			t.Errorf("%q = %v, want %v", c.src, got, c.want)
		}
	}
}

func TestLetAndIf(t *testing.T) {
	got := run(t, "let x = 10 in if x > 5 then x * 2 else x")
	if got != vm.Int(20) {
		t.Errorf("got %v, want 20", got)
	}
}

func TestRecursiveLetClosure(t *testing.T) {
	src := `
let rec fact n =
  if n <= 1 then 1
  else n * fact (n - 1)
in fact 5
`
	got := run(t, src)
	if got != vm.Int(120) {
		t.Errorf("got %v, want 120", got)
	}
}

func TestTailRecursionDoesNotOverflowFrames(t *testing.T) {
	src := `
let rec loop n acc =
  if n <= 0 then acc
  else loop (n - 1) (acc + 1)
in loop 100000 0
`
	got := run(t, src)
	if got != vm.Int(100000) {
		t.Errorf("got %v, want 100000", got)
	}
}

func TestClosureCapturesUpvalue(t *testing.T) {
	src := `
let make_adder n = (fun x -> x + n) in
let add5 = make_adder 5 in
add5 10
`
	got := run(t, src)
	if got != vm.Int(15) {
		t.Errorf("got %v, want 15", got)
	}
}

func TestCurryingPartialApplication(t *testing.T) {
	src := `
let add a b = a + b in
let inc = add 1 in
inc 41
`
	got := run(t, src)
	if got != vm.Int(42) {
		t.Errorf("got %v, want 42", got)
	}
}

func TestListConsHeadTail(t *testing.T) {
	got := run(t, "let xs = 1 :: 2 :: 3 :: [] in match xs with | h :: _ -> h | [] -> 0")
	if got != vm.Int(1) {
		t.Errorf("got %v, want 1", got)
	}
}

func TestUndefinedBareNameIsUndefinedGlobalAtRuntime(t *testing.T) {
	prog, err := parser.Parse("doesNotExist")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	chunk, err := vm.Compile(prog, vm.Options{})
	if err != nil {
		t.Fatalf("a bare name with no local/upvalue/import binding compiles as a global lookup, not a compile error: %v", err)
	}
	_, err = vm.New().Execute(chunk)
	if err == nil {
		t.Fatal("expected a runtime error, got nil")
	}
	re, ok := err.(*vm.RuntimeError)
	if !ok {
		t.Fatalf("expected *vm.RuntimeError, got %T", err)
	}
	if re.Kind != vm.ErrUndefinedGlobal {
		t.Errorf("got Kind %v, want %v", re.Kind, vm.ErrUndefinedGlobal)
	}
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	prog, err := parser.Parse("1 / 0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	chunk, err := vm.Compile(prog, vm.Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	_, err = vm.New().Execute(chunk)
	if err == nil {
		t.Fatal("expected a runtime error, got nil")
	}
	if _, ok := err.(*vm.RuntimeError); !ok {
		t.Fatalf("expected *vm.RuntimeError, got %T", err)
	}
}
