package main

import (
	"testing"

	"github.com/fusabi-lang/fusabi/internal/bytecode"
)

func TestIsBytecodeFileByExtension(t *testing.T) {
	cases := map[string]bool{
		"prog.fsb":    false,
		"prog.fusabi": false,
		"prog.fzb":    true,
	}
	for path, want := range cases {
		if got := isBytecodeFile(path, nil); got != want {
			t.Errorf("isBytecodeFile(%q, nil) = %v, want %v", path, got, want)
		}
	}
}

func TestIsBytecodeFileSniffsMagicForUnknownExtension(t *testing.T) {
	data := append([]byte{bytecode.Magic[0], bytecode.Magic[1], bytecode.Magic[2], bytecode.Version}, 0)
	if !isBytecodeFile("prog", data) {
		t.Error("expected magic-byte sniff to recognize bytecode with no extension")
	}
	if isBytecodeFile("prog", []byte("let x = 1 in x")) {
		t.Error("source text should not sniff as bytecode")
	}
}
