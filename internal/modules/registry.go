// Package modules implements the compile-time module system (C7):
// name-scoped registration of bindings and type definitions, qualified
// lookup, and enumeration of a module's bindings for `open`. It is
// consulted only by the compiler — modules have no runtime
// representation once compilation finishes.
package modules

import (
	"fmt"
	"strings"

	"github.com/fusabi-lang/fusabi/internal/ast"
	"github.com/fusabi-lang/fusabi/internal/token"
)

// Module is a compile-time bag of named bindings and type definitions.
type Module struct {
	Name     string
	Bindings map[string]ast.Expression
	Types    map[string]*ast.TypeDecl
}

// Registry owns a name-keyed collection of modules, built fresh for
// every compile.
type Registry struct {
	modules map[string]*Module
}

func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

// Register adds a module under name. Duplicate names are a compile
// error, reported by the caller as CompileError{Kind: DuplicateModule}.
func (r *Registry) Register(name string, bindings map[string]ast.Expression, types map[string]*ast.TypeDecl) error {
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %q already registered", name)
	}
	r.modules[name] = &Module{Name: name, Bindings: bindings, Types: types}
	return nil
}

// ResolveQualified looks up `module.binding` for a dotted reference.
func (r *Registry) ResolveQualified(module, binding string) (ast.Expression, bool) {
	m, ok := r.modules[module]
	if !ok {
		return nil, false
	}
	e, ok := m.Bindings[binding]
	return e, ok
}

// Get returns the module registered under name, if any.
func (r *Registry) Get(name string) (*Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// GetExposedBindings enumerates every binding `open M` should inject:
// M's own bindings, plus one synthetic binding per immediately nested
// module "M.Inner", exposed as the name "Inner" whose value is an
// auto-generated record literal built from Inner's own bindings
//.
func (r *Registry) GetExposedBindings(module string) (map[string]ast.Expression, error) {
	m, ok := r.modules[module]
	if !ok {
		return nil, fmt.Errorf("module %q not found", module)
	}
	out := make(map[string]ast.Expression, len(m.Bindings))
	for name, expr := range m.Bindings {
		out[name] = expr
	}
	prefix := module + "."
	for name, other := range r.modules {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := name[len(prefix):]
		if strings.Contains(rest, ".") {
			continue // only immediately-nested modules are exposed directly
		}
		record := &ast.RecordLit{Token: token.Token{}}
		for bname, bexpr := range other.Bindings {
			record.Fields = append(record.Fields, ast.RecordField{Name: bname, Value: bexpr})
		}
		out[rest] = record
	}
	return out, nil
}

// GetTypes returns the type declarations registered for module.
func (r *Registry) GetTypes(module string) (map[string]*ast.TypeDecl, bool) {
	m, ok := r.modules[module]
	if !ok {
		return nil, false
	}
	return m.Types, true
}

// FindConstructor searches every registered module's types for a
// variant type declaring constructor ctor, returning its owning type
// name and declared payload arity. Used by the compiler to resolve
// bare (non-module-qualified) constructor names in patterns and
// constructions.
func (r *Registry) FindConstructor(ctor string) (typeName string, arity int, ok bool) {
	for _, m := range r.modules {
		for _, td := range m.Types {
			if td.IsRecord {
				continue
			}
			if a, has := td.Constructors[ctor]; has {
				return td.Name, a, true
			}
		}
	}
	return "", 0, false
}
