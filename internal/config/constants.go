// Package config carries the version string, recognized file
// extensions, and project-file parsing Fusabi's ambient layer needs,
// internal/config/constants.go — the same
// kind of package-level constants a CLI-fronted engine keeps outside
// any one subsystem.
package config

// Version is the current Fusabi version, set at build time via
// -ldflags the same way Version var is.
var Version = "0.1.0"

// BytecodeExt is the extension cmd/fusabi writes compiled chunks
// under.
const BytecodeExt = ".fzb"

// SourceFileExt is the canonical source extension; SourceFileExtensions
// lists every extension `run` recognizes as source rather than bytecode.
const SourceFileExt = ".fsb"

var SourceFileExtensions = []string{".fsb", ".fusabi"}

// HasSourceExt reports whether path ends in a recognized source
// extension.
func HasSourceExt(path string) bool {
	for _, ext := range SourceFileExtensions {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

// TrimSourceExt removes a recognized source extension from name,
// returning it unchanged if none matches — used by `grind` to derive
// the companion bytecode file's name.
func TrimSourceExt(name string) string {
	for _, ext := range SourceFileExtensions {
		if len(name) >= len(ext) && name[len(name)-len(ext):] == ext {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}
