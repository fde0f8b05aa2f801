package vm

import (
	"strings"

	"github.com/fusabi-lang/fusabi/internal/ast"
	"github.com/fusabi-lang/fusabi/internal/modules"
)

// Options carries the TypeCheck and Strict flags (both default off).
// Compile runs no typing pass and reads neither flag, so they do not
// change the emitted bytecode.
type Options struct {
	TypeCheck bool
	Strict    bool
}

type localVar struct {
	name string
	slot int
}

// funcScope is one nested lexical/function compilation context. It
// chains to its enclosing scope so upvalue resolution can walk
// outward exactly as describes.
type funcScope struct {
	enclosing *funcScope
	chunk     *Chunk
	locals    []localVar
	upvalues  []UpvalueDesc
	upNames   []string
	arity     int
	name      string
}

// Compiler lowers a Program into a single top-level Chunk.
type Compiler struct {
	registry *modules.Registry
	opens    map[string]ast.Expression // last-open-wins flattened binding set
	opts     Options
	scope    *funcScope
	line     int
}

// Compile runs the full three-phase pipeline and returns the top-level
// Chunk whose execution yields the program's result.
func Compile(prog *ast.Program, opts Options) (*Chunk, error) {
	registry := modules.NewRegistry()

	// Phase 1: register.
	for _, m := range prog.Modules {
		bindings := make(map[string]ast.Expression, len(m.Bindings))
		for _, b := range m.Bindings {
			bindings[b.Name] = b.Value
		}
		types := make(map[string]*ast.TypeDecl, len(m.Types))
		for _, t := range m.Types {
			types[t.Name] = t
		}
		if err := registry.Register(m.Name, bindings, types); err != nil {
			return nil, newCompileError(ErrDuplicateModule, m.GetToken().Line, m.GetToken().Column, "%s", err)
		}
	}

	c := &Compiler{registry: registry, opens: make(map[string]ast.Expression), opts: opts}

	// Phase 2: apply imports, last-open-wins.
	for _, o := range prog.Imports {
		name := strings.Join(o.Path, ".")
		exposed, err := registry.GetExposedBindings(name)
		if err != nil {
			return nil, newCompileError(ErrModuleNotFound, o.Token.Line, o.Token.Column, "module %q not found", name)
		}
		for k, v := range exposed {
			c.opens[k] = v
		}
	}

	// Phase 3: compile opened bindings into globals, then main, then a
	// terminating Return.
	chunk := NewChunk("main")
	c.scope = &funcScope{chunk: chunk, name: "main"}
	if err := c.compileOpens(); err != nil {
		return nil, err
	}
	if err := c.compileExpr(prog.Main); err != nil {
		return nil, err
	}
	chunk.EmitOp(OpReturn, c.line)
	chunk.LocalCount = len(c.scope.locals)
	return chunk, nil
}

func (c *Compiler) chunk() *Chunk { return c.scope.chunk }

// resolveLocal searches the current scope's locals, innermost
// (highest slot) first, so later bindings shadow earlier ones.
func resolveLocal(s *funcScope, name string) (int, bool) {
	for i := len(s.locals) - 1; i >= 0; i-- {
		if s.locals[i].name == name {
			return s.locals[i].slot, true
		}
	}
	return -1, false
}

// resolveUpvalue implements free-variable resolution:
// search the enclosing scope's locals; if found, capture as {local};
// else recurse into the enclosing scope's own upvalues and forward.
func resolveUpvalue(s *funcScope, name string) (int, bool) {
	if s.enclosing == nil {
		return -1, false
	}
	if slot, ok := resolveLocal(s.enclosing, name); ok {
		return addUpvalue(s, true, slot, name), true
	}
	if idx, ok := resolveUpvalue(s.enclosing, name); ok {
		return addUpvalue(s, false, idx, name), true
	}
	return -1, false
}

func addUpvalue(s *funcScope, fromLocal bool, index int, name string) int {
	for i, u := range s.upvalues {
		if u.FromLocal == fromLocal && u.Index == index {
			return i
		}
	}
	s.upvalues = append(s.upvalues, UpvalueDesc{FromLocal: fromLocal, Index: index})
	s.upNames = append(s.upNames, name)
	return len(s.upvalues) - 1
}

func (c *Compiler) addLocal(name string, line, col int) (int, error) {
	if len(c.scope.locals) >= MaxLocals {
		return 0, newCompileError(ErrTooManyLocalsK, line, col, "function %q exceeds %d locals", c.scope.name, MaxLocals)
	}
	slot := len(c.scope.locals)
	c.scope.locals = append(c.scope.locals, localVar{name: name, slot: slot})
	return slot, nil
}

// emitJump writes a jump opcode with a placeholder offset and returns
// the offset's position for later patching.
func (c *Compiler) emitJump(op Opcode, line int) int {
	c.chunk().EmitOp(op, line)
	pos := c.chunk().Len()
	c.chunk().EmitI16(0, line)
	return pos
}

// patchJump back-patches the placeholder at pos to jump to the current
// end of the chunk, relative to the instruction following the offset
//.
func (c *Compiler) patchJump(pos int) error {
	offset := c.chunk().Len() - (pos + 2)
	if offset < MinJumpOffset || offset > MaxJumpOffset {
		return newCompileError(ErrInvalidJumpOffsetK, c.line, 0, "jump offset %d out of 16-bit range", offset)
	}
	c.chunk().PatchU16(pos, uint16(int16(offset)))
	return nil
}
