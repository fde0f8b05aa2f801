package vm

import "github.com/fusabi-lang/fusabi/internal/ast"

// compileBody compiles e as a function body, recognizing tail
// position through if/let/let-rec/match continuations so a trailing
// call reuses the current frame (OpTailCall) instead of growing the
// call stack. It reports whether e
// itself ended in a tail call, so callers that need to collapse local
// scopes afterward know whether a value was left as a plain push or
// via a reused frame further down the call chain.
func (c *Compiler) compileBody(e ast.Expression, tail bool) (bool, error) {
	switch n := e.(type) {
	case *ast.IfExpr:
		line := n.Token.Line
		if err := c.compileExpr(n.Cond); err != nil {
			return false, err
		}
		elseJump := c.emitJump(OpJumpIfFalse, line)
		thenTail, err := c.compileBody(n.ThenBranch, tail)
		if err != nil {
			return false, err
		}
		endJump := c.emitJump(OpJump, c.line)
		if err := c.patchJump(elseJump); err != nil {
			return false, err
		}
		elseTail, err := c.compileBody(n.ElseBranch, tail)
		if err != nil {
			return false, err
		}
		if err := c.patchJump(endJump); err != nil {
			return false, err
		}
		return thenTail && elseTail, nil

	case *ast.LetExpr:
		if err := c.compileExpr(n.Value); err != nil {
			return false, err
		}
		slot, err := c.addLocal(n.Name, n.Token.Line, n.Token.Column)
		if err != nil {
			return false, err
		}
		bodyTail, err := c.compileBody(n.Body, tail)
		if err != nil {
			return false, err
		}
		if !bodyTail {
			c.chunk().EmitOp(OpStoreLocal, c.line)
			c.chunk().EmitByte(byte(slot), c.line)
		}
		c.scope.locals = c.scope.locals[:len(c.scope.locals)-1]
		return bodyTail, nil

	case *ast.LetRecExpr:
		if err := c.compileLetRecBindings(n); err != nil {
			return false, err
		}
		bodyTail, err := c.compileBody(n.Body, tail)
		if err != nil {
			return false, err
		}
		if !bodyTail {
			c.chunk().EmitOp(OpSlide, c.line)
			c.chunk().EmitByte(byte(len(n.Names)), c.line)
		}
		c.scope.locals = c.scope.locals[:len(c.scope.locals)-len(n.Names)]
		return bodyTail, nil

	case *ast.MatchExpr:
		return c.compileMatchTail(n, tail)

	case *ast.Application:
		if !tail {
			return false, c.compileApplication(n)
		}
		if ident, ok := n.Fn.(*ast.Identifier); ok {
			last := ident.Parts[len(ident.Parts)-1]
			if isCapitalized(last) {
				if typeName, arity, ok2 := c.registry.FindConstructor(last); ok2 && arity == len(n.Args) {
					return false, c.compileVariantBuild(typeName, last, n.Args)
				}
			}
		}
		if err := c.compileExpr(n.Fn); err != nil {
			return false, err
		}
		for _, a := range n.Args {
			if err := c.compileExpr(a); err != nil {
				return false, err
			}
		}
		c.chunk().EmitOp(OpTailCall, c.line)
		c.chunk().EmitByte(byte(len(n.Args)), c.line)
		return true, nil

	default:
		return false, c.compileExpr(e)
	}
}

// compileLetRecBindings is the binding-setup half of compileLetRec,
// factored out so compileBody's tail-aware path can reuse it without
// duplicating the forward-slot-reservation dance.
func (c *Compiler) compileLetRecBindings(n *ast.LetRecExpr) error {
	line := n.Token.Line
	slots := make([]int, len(n.Names))
	for i, name := range n.Names {
		if err := c.chunk().WriteConstant(Unit(), line); err != nil {
			return err
		}
		slot, err := c.addLocal(name, line, n.Token.Column)
		if err != nil {
			return err
		}
		slots[i] = slot
	}
	for i, v := range n.Values {
		lambda, ok := v.(*ast.Lambda)
		if !ok {
			return newCompileError(ErrMalformedRec, line, n.Token.Column, "let rec binding %q must be a lambda", n.Names[i])
		}
		if err := c.compileLambda(lambda, n.Names[i]); err != nil {
			return err
		}
		c.chunk().EmitOp(OpStoreLocal, c.line)
		c.chunk().EmitByte(byte(slots[i]), c.line)
	}
	return nil
}
