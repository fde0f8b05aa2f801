package vm

import (
	"sort"
	"strings"
	"unicode"

	"github.com/fusabi-lang/fusabi/internal/ast"
)

func isCapitalized(s string) bool {
	if s == "" {
		return false
	}
	r := []rune(s)[0]
	return unicode.IsUpper(r)
}

// compileExpr dispatches on the concrete AST node and leaves exactly
// one Value on the stack.
func (c *Compiler) compileExpr(e ast.Expression) error {
	if e == nil {
		return nil
	}
	line := e.GetToken().Line
	c.line = line
	switch n := e.(type) {
	case *ast.IntLit:
		return c.chunk().WriteConstant(Int(n.Value), line)
	case *ast.BoolLit:
		return c.chunk().WriteConstant(Bool(n.Value), line)
	case *ast.StringLit:
		return c.chunk().WriteConstant(Str(n.Value), line)
	case *ast.UnitLit:
		return c.chunk().WriteConstant(Unit(), line)
	case *ast.Identifier:
		return c.compileIdentifier(n)
	case *ast.BinaryExpr:
		return c.compileBinary(n)
	case *ast.LetExpr:
		return c.compileLet(n)
	case *ast.LetRecExpr:
		return c.compileLetRec(n)
	case *ast.Lambda:
		return c.compileLambda(n, "")
	case *ast.Application:
		return c.compileApplication(n)
	case *ast.IfExpr:
		return c.compileIf(n)
	case *ast.TupleLit:
		for _, el := range n.Elements {
			if err := c.compileExpr(el); err != nil {
				return err
			}
		}
		if len(n.Elements) > 255 {
			return newCompileError(ErrUnsupportedPattern, line, e.GetToken().Column, "tuple arity %d exceeds 255", len(n.Elements))
		}
		c.chunk().EmitOp(OpBuildTuple, line)
		c.chunk().EmitByte(byte(len(n.Elements)), line)
		return nil
	case *ast.ListLit:
		for i := len(n.Elements) - 1; i >= 0; i-- {
			if err := c.compileExpr(n.Elements[i]); err != nil {
				return err
			}
		}
		c.chunk().EmitOp(OpBuildList, line)
		c.chunk().EmitU16(uint16(len(n.Elements)), line)
		return nil
	case *ast.ArrayLit:
		for _, el := range n.Elements {
			if err := c.compileExpr(el); err != nil {
				return err
			}
		}
		c.chunk().EmitOp(OpBuildArray, line)
		c.chunk().EmitU16(uint16(len(n.Elements)), line)
		return nil
	case *ast.RecordLit:
		return c.compileRecordLit(n)
	case *ast.FieldAccess:
		if err := c.compileExpr(n.Record); err != nil {
			return err
		}
		idx, err := c.chunk().AddConstant(Str(n.Field))
		if err != nil {
			return err
		}
		c.chunk().EmitOp(OpGetField, line)
		c.chunk().EmitU16(uint16(idx), line)
		return nil
	case *ast.RecordUpdate:
		return c.compileRecordUpdate(n)
	case *ast.VariantExpr:
		return c.compileVariantBuild(n.TypeName, n.Ctor, n.Args)
	case *ast.IndexExpr:
		if err := c.compileExpr(n.Array); err != nil {
			return err
		}
		if err := c.compileExpr(n.Index); err != nil {
			return err
		}
		c.chunk().EmitOp(OpGetIndex, line)
		return nil
	case *ast.IndexSetExpr:
		if err := c.compileExpr(n.Array); err != nil {
			return err
		}
		if err := c.compileExpr(n.Index); err != nil {
			return err
		}
		if err := c.compileExpr(n.Value); err != nil {
			return err
		}
		c.chunk().EmitOp(OpSetIndex, line)
		return nil
	case *ast.ConsExpr:
		if err := c.compileExpr(n.Head); err != nil {
			return err
		}
		if err := c.compileExpr(n.Tail); err != nil {
			return err
		}
		c.chunk().EmitOp(OpCons, line)
		return nil
	case *ast.MatchExpr:
		return c.compileMatch(n)
	default:
		return newCompileError(ErrUnsupportedPattern, line, e.GetToken().Column, "unsupported expression node %T", e)
	}
}

func (c *Compiler) emitLoadGlobal(name string, line int) error {
	idx, err := c.chunk().AddConstant(Str(name))
	if err != nil {
		return err
	}
	c.chunk().EmitOp(OpLoadGlobal, line)
	c.chunk().EmitU16(uint16(idx), line)
	return nil
}

func (c *Compiler) emitStoreGlobal(name string, line int) error {
	idx, err := c.chunk().AddConstant(Str(name))
	if err != nil {
		return err
	}
	c.chunk().EmitOp(OpStoreGlobal, line)
	c.chunk().EmitU16(uint16(idx), line)
	return nil
}

// compileIdentifier resolves a name in this order: local, then
// upvalue, then last-open-wins imported binding, then module-qualified
// lookup, then global-by-name (left to the VM to resolve or fail at
// runtime with UndefinedGlobal).
func (c *Compiler) compileIdentifier(id *ast.Identifier) error {
	line := id.Token.Line
	last := id.Parts[len(id.Parts)-1]

	if isCapitalized(last) {
		if typeName, arity, ok := c.registry.FindConstructor(last); ok {
			if arity == 0 {
				return c.compileVariantBuild(typeName, last, nil)
			}
			return c.compileConstructorClosure(typeName, last, arity)
		}
	}

	if len(id.Parts) > 1 {
		module := strings.Join(id.Parts[:len(id.Parts)-1], ".")
		if expr, ok := c.registry.ResolveQualified(module, last); ok {
			return c.compileExpr(expr)
		}
		return newCompileError(ErrBindingNotFound, line, id.Token.Column, "unknown qualified reference %s", strings.Join(id.Parts, "."))
	}

	name := last
	if slot, ok := resolveLocal(c.scope, name); ok {
		c.chunk().EmitOp(OpLoadLocal, line)
		c.chunk().EmitByte(byte(slot), line)
		return nil
	}
	if idx, ok := resolveUpvalue(c.scope, name); ok {
		c.chunk().EmitOp(OpLoadUpvalue, line)
		c.chunk().EmitByte(byte(idx), line)
		return nil
	}
	// Imported binding or global-by-name: both resolve through a
	// global slot. `open`-exposed bindings are pre-compiled into
	// globals by Compile() before main runs (see compileOpens).
	return c.emitLoadGlobal(name, line)
}

// compileOpens compiles every name `open` introduced into the global
// table, in a deterministic order, before the main expression runs.
func (c *Compiler) compileOpens() error {
	names := make([]string, 0, len(c.opens))
	for k := range c.opens {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.compileExpr(c.opens[name]); err != nil {
			return err
		}
		if err := c.emitStoreGlobal(name, c.line); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileBinary(n *ast.BinaryExpr) error {
	line := n.Token.Line
	if n.Op == "neg" || n.Op == "not" {
		if err := c.compileExpr(n.Left); err != nil {
			return err
		}
		if n.Op == "neg" {
			c.chunk().EmitOp(OpNeg, line)
		} else {
			c.chunk().EmitOp(OpNot, line)
		}
		return nil
	}
	if err := c.compileExpr(n.Left); err != nil {
		return err
	}
	if err := c.compileExpr(n.Right); err != nil {
		return err
	}
	var op Opcode
	switch n.Op {
	case "+":
		op = OpAdd
	case "-":
		op = OpSub
	case "*":
		op = OpMul
	case "/":
		op = OpDiv
	case "%":
		op = OpMod
	case "=":
		op = OpEq
	case "<>":
		op = OpNeq
	case "<":
		op = OpLt
	case "<=":
		op = OpLte
	case ">":
		op = OpGt
	case ">=":
		op = OpGte
	case "&&":
		op = OpAnd
	case "||":
		op = OpOr
	default:
		return newCompileError(ErrUnsupportedPattern, line, n.Token.Column, "unknown binary operator %q", n.Op)
	}
	c.chunk().EmitOp(op, line)
	return nil
}

func (c *Compiler) compileLet(n *ast.LetExpr) error {
	line := n.Token.Line
	if err := c.compileExpr(n.Value); err != nil {
		return err
	}
	slot, err := c.addLocal(n.Name, line, n.Token.Column)
	if err != nil {
		return err
	}
	if err := c.compileExpr(n.Body); err != nil {
		return err
	}
	c.chunk().EmitOp(OpStoreLocal, c.line)
	c.chunk().EmitByte(byte(slot), c.line)
	c.scope.locals = c.scope.locals[:len(c.scope.locals)-1]
	return nil
}

// compileLetRec binds a mutually recursive group. Every name's slot is
// reserved (with a Unit placeholder on the stack) before any lambda is
// compiled, so sibling lambdas can capture each other as upvalues into
// slots that are filled in immediately after.
func (c *Compiler) compileLetRec(n *ast.LetRecExpr) error {
	if err := c.compileLetRecBindings(n); err != nil {
		return err
	}
	if err := c.compileExpr(n.Body); err != nil {
		return err
	}
	c.chunk().EmitOp(OpSlide, c.line)
	c.chunk().EmitByte(byte(len(n.Names)), c.line)
	c.scope.locals = c.scope.locals[:len(c.scope.locals)-len(n.Names)]
	return nil
}

// compileLambda compiles body as a fresh function scope, appends the
// resulting prototype to the enclosing chunk's Functions table, and
// emits MakeClosure with the resolved upvalue descriptor list.
func (c *Compiler) compileLambda(n *ast.Lambda, name string) error {
	line := n.Token.Line
	if len(n.Params) > 255 {
		return newCompileError(ErrUnsupportedPattern, line, n.Token.Column, "lambda arity %d exceeds 255", len(n.Params))
	}
	inner := &funcScope{enclosing: c.scope, chunk: NewChunk(name), name: name, arity: len(n.Params)}
	parent := c.scope
	c.scope = inner
	for _, p := range n.Params {
		if _, err := c.addLocal(p, line, n.Token.Column); err != nil {
			c.scope = parent
			return err
		}
	}
	if _, err := c.compileBody(n.Body, true); err != nil {
		c.scope = parent
		return err
	}
	inner.chunk.EmitOp(OpReturn, c.line)
	fn := &Function{
		Arity:      len(n.Params),
		Name:       name,
		Chunk:      inner.chunk,
		Upvalues:   append([]UpvalueDesc(nil), inner.upvalues...),
		LocalCount: len(inner.locals),
	}
	c.scope = parent
	fnIdx := c.chunk().AddFunction(fn)
	c.chunk().EmitOp(OpMakeClosure, line)
	c.chunk().EmitU16(uint16(fnIdx), line)
	for _, u := range fn.Upvalues {
		if u.FromLocal {
			c.chunk().EmitByte(1, line)
		} else {
			c.chunk().EmitByte(0, line)
		}
		c.chunk().EmitByte(byte(u.Index), line)
	}
	return nil
}

// compileConstructorClosure eta-expands a bare constructor reference
// (used as a value, not immediately applied) into a genuine Closure of
// the constructor's declared arity, so it participates in the VM's
// ordinary currying machinery exactly like any user-defined function.
func (c *Compiler) compileConstructorClosure(typeName, ctor string, arity int) error {
	inner := NewChunk(ctor)
	for i := 0; i < arity; i++ {
		inner.EmitOp(OpLoadLocal, 0)
		inner.EmitByte(byte(i), 0)
	}
	tIdx, err := inner.AddConstant(Str(typeName))
	if err != nil {
		return err
	}
	cIdx, err := inner.AddConstant(Str(ctor))
	if err != nil {
		return err
	}
	inner.EmitOp(OpBuildVariant, 0)
	inner.EmitU16(uint16(tIdx), 0)
	inner.EmitU16(uint16(cIdx), 0)
	inner.EmitByte(byte(arity), 0)
	inner.EmitOp(OpReturn, 0)
	fn := &Function{Arity: arity, Name: ctor, Chunk: inner, LocalCount: arity}
	fnIdx := c.chunk().AddFunction(fn)
	c.chunk().EmitOp(OpMakeClosure, c.line)
	c.chunk().EmitU16(uint16(fnIdx), c.line)
	return nil
}

func (c *Compiler) compileVariantBuild(typeName, ctor string, args []ast.Expression) error {
	for _, a := range args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	tIdx, err := c.chunk().AddConstant(Str(typeName))
	if err != nil {
		return err
	}
	cIdx, err := c.chunk().AddConstant(Str(ctor))
	if err != nil {
		return err
	}
	if len(args) > 255 {
		return newCompileError(ErrUnsupportedPattern, c.line, 0, "constructor %q arity %d exceeds 255", ctor, len(args))
	}
	c.chunk().EmitOp(OpBuildVariant, c.line)
	c.chunk().EmitU16(uint16(tIdx), c.line)
	c.chunk().EmitU16(uint16(cIdx), c.line)
	c.chunk().EmitByte(byte(len(args)), c.line)
	return nil
}

// compileApplication recognizes a fully-saturated constructor call and
// lowers it directly to BuildVariant; every other application (user
// functions, host natives, partially-applied constructors) compiles
// to a uniform Call/TailCall, leaving currying/over-application to the
// VM.
func (c *Compiler) compileApplication(n *ast.Application) error {
	line := n.Token.Line
	if ident, ok := n.Fn.(*ast.Identifier); ok {
		last := ident.Parts[len(ident.Parts)-1]
		if isCapitalized(last) {
			if typeName, arity, ok2 := c.registry.FindConstructor(last); ok2 && arity == len(n.Args) {
				return c.compileVariantBuild(typeName, last, n.Args)
			}
		}
	}
	if err := c.compileExpr(n.Fn); err != nil {
		return err
	}
	for _, a := range n.Args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	if len(n.Args) > 255 {
		return newCompileError(ErrUnsupportedPattern, line, n.Token.Column, "call with %d arguments exceeds 255", len(n.Args))
	}
	c.chunk().EmitOp(OpCall, line)
	c.chunk().EmitByte(byte(len(n.Args)), line)
	return nil
}

func (c *Compiler) compileIf(n *ast.IfExpr) error {
	line := n.Token.Line
	if err := c.compileExpr(n.Cond); err != nil {
		return err
	}
	elseJump := c.emitJump(OpJumpIfFalse, line)
	if err := c.compileExpr(n.ThenBranch); err != nil {
		return err
	}
	endJump := c.emitJump(OpJump, c.line)
	if err := c.patchJump(elseJump); err != nil {
		return err
	}
	if err := c.compileExpr(n.ElseBranch); err != nil {
		return err
	}
	if err := c.patchJump(endJump); err != nil {
		return err
	}
	return nil
}

func (c *Compiler) compileRecordLit(n *ast.RecordLit) error {
	line := n.Token.Line
	for _, f := range n.Fields {
		idx, err := c.chunk().AddConstant(Str(f.Name))
		if err != nil {
			return err
		}
		c.chunk().EmitOp(OpLoadConst, line)
		c.chunk().EmitU16(uint16(idx), line)
		if err := c.compileExpr(f.Value); err != nil {
			return err
		}
	}
	if len(n.Fields) > 255 {
		return newCompileError(ErrUnsupportedPattern, line, n.Token.Column, "record with %d fields exceeds 255", len(n.Fields))
	}
	c.chunk().EmitOp(OpBuildRecord, line)
	c.chunk().EmitByte(byte(len(n.Fields)), line)
	return nil
}

func (c *Compiler) compileRecordUpdate(n *ast.RecordUpdate) error {
	line := n.Token.Line
	if err := c.compileExpr(n.Base); err != nil {
		return err
	}
	for _, f := range n.Fields {
		idx, err := c.chunk().AddConstant(Str(f.Name))
		if err != nil {
			return err
		}
		if err := c.compileExpr(f.Value); err != nil {
			return err
		}
		c.chunk().EmitOp(OpSetField, line)
		c.chunk().EmitU16(uint16(idx), line)
	}
	return nil
}
