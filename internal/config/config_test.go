package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHasSourceExt(t *testing.T) {
	cases := map[string]bool{
		"foo.fsb":     true,
		"foo.fusabi":  true,
		"foo.fzb":     false,
		"foo.txt":     false,
		"noextension": false,
	}
	for path, want := range cases {
		if got := HasSourceExt(path); got != want {
			t.Errorf("HasSourceExt(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestTrimSourceExt(t *testing.T) {
	if got := TrimSourceExt("prog.fsb"); got != "prog" {
		t.Errorf("got %q, want %q", got, "prog")
	}
	if got := TrimSourceExt("prog.fzb"); got != "prog.fzb" {
		t.Errorf("unrecognized extension should be left alone, got %q", got)
	}
}

func TestLoadProjectMissingFileIsZeroValue(t *testing.T) {
	p, err := LoadProject(filepath.Join(t.TempDir(), "fusabi.yaml"))
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if len(p.ModulePath) != 0 || len(p.PreloadStdlib) != 0 {
		t.Errorf("expected zero-value Project for missing file, got %+v", p)
	}
}

func TestLoadProjectParsesYaml(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fusabi.yaml")
	content := "module_path:\n  - ./lib\npreload_stdlib:\n  - core\n  - encoding\nallowed_host_data_kinds:\n  - Db.Conn\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadProject(path)
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if len(p.ModulePath) != 1 || p.ModulePath[0] != "./lib" {
		t.Errorf("ModulePath = %v", p.ModulePath)
	}
	if len(p.PreloadStdlib) != 2 {
		t.Errorf("PreloadStdlib = %v", p.PreloadStdlib)
	}
	if !p.AllowsHostDataKind("Db.Conn") {
		t.Error("expected Db.Conn to be allowed")
	}
	if p.AllowsHostDataKind("Db.Rows") {
		t.Error("expected Db.Rows to be disallowed when the allow-list doesn't name it")
	}
}

func TestAllowsHostDataKindEmptyListAllowsAll(t *testing.T) {
	p := &Project{}
	if !p.AllowsHostDataKind("Anything") {
		t.Error("empty allow-list should permit any type name")
	}
}
