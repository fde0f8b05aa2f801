package main

import (
	"testing"

	"github.com/fusabi-lang/fusabi/internal/vm"
)

func TestReportErrorExitCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"compile", &vm.CompileError{Kind: vm.ErrBindingNotFound, Message: "boom"}, exitCompile},
		{"deserialize", &vm.DeserializeError{Kind: vm.ErrBadMagic, Message: "boom"}, exitRuntime},
		{"runtime", &vm.RuntimeError{Kind: vm.ErrDivisionByZero, Message: "boom"}, exitRuntime},
		{"other", errFoo{}, exitIO},
	}
	for _, c := range cases {
		if got := reportError(c.err); got != c.want {
			t.Errorf("%s: reportError = %d, want %d", c.name, got, c.want)
		}
	}
}

type errFoo struct{}

func (errFoo) Error() string { return "foo" }

func TestPaintNoColorPassesThrough(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if got := paint("31", "x"); got != "x" {
		t.Errorf("paint with NO_COLOR set = %q, want %q", got, "x")
	}
}
