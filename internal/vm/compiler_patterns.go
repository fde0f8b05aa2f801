package vm

import "github.com/fusabi-lang/fusabi/internal/ast"

// compileMatch compiles a match expression not in tail position.
func (c *Compiler) compileMatch(n *ast.MatchExpr) error {
	_, err := c.compileMatchTail(n, false)
	return err
}

// compileMatchTail compiles a match expression, propagating tail
// position into every arm's body, and reports whether every arm ends
// in a tail call (see compileBody's doc comment for why this matters
// to an enclosing let/if).
func (c *Compiler) compileMatchTail(n *ast.MatchExpr, tail bool) (bool, error) {
	line := n.Token.Line
	if err := c.compileExpr(n.Scrutinee); err != nil {
		return false, err
	}
	scrutSlot, err := c.addLocal("$scrut", line, n.Token.Column)
	if err != nil {
		return false, err
	}

	var endJumps []int
	var prevArmFails []int
	allTail := true

	for _, arm := range n.Arms {
		// Patch the previous arm's failed tests to fall through to here.
		for _, pos := range prevArmFails {
			if err := c.patchJump(pos); err != nil {
				return false, err
			}
		}
		prevArmFails = nil

		armBase := len(c.scope.locals)
		c.chunk().EmitOp(OpLoadLocal, line)
		c.chunk().EmitByte(byte(scrutSlot), line)

		var fails []int
		if err := c.compilePatternTest(arm.Pattern, &fails); err != nil {
			return false, err
		}

		if arm.Guard != nil {
			if err := c.compileExpr(arm.Guard); err != nil {
				return false, err
			}
			fails = append(fails, c.emitJump(OpJumpIfFalse, c.line))
		}

		bodyTail, err := c.compileBody(arm.Body, tail)
		if err != nil {
			return false, err
		}
		allTail = allTail && bodyTail
		if !bodyTail {
			introduced := len(c.scope.locals) - armBase
			if introduced > 0 {
				c.chunk().EmitOp(OpSlide, c.line)
				c.chunk().EmitByte(byte(introduced), c.line)
			}
		}
		c.scope.locals = c.scope.locals[:armBase]

		if !bodyTail {
			endJumps = append(endJumps, c.emitJump(OpJump, c.line))
		}
		prevArmFails = fails
	}

	for _, pos := range prevArmFails {
		if err := c.patchJump(pos); err != nil {
			return false, err
		}
	}
	c.chunk().EmitOp(OpMatchFail, c.line)

	for _, pos := range endJumps {
		if err := c.patchJump(pos); err != nil {
			return false, err
		}
	}

	if !allTail {
		c.chunk().EmitOp(OpSlide, c.line)
		c.chunk().EmitByte(1, c.line)
	}
	c.scope.locals = c.scope.locals[:scrutSlot]
	return allTail, nil
}

// compilePatternTest consumes exactly the value currently on top of
// the stack, testing and/or binding it against pat. Refutable tests
// append the position of their JumpIfFalse placeholder to *fails, to
// be patched by the caller once the arm's fail target is known.
//
// Simple (single-child) patterns test-and-consume the top value
// directly via Dup. Multi-child patterns (tuple, cons, variant,
// record) first stash the subject in its own temporary local so each
// child can be freshly reloaded with LoadLocal — re-accessing the
// subject via Dup would break once an earlier sibling leaves a
// persistent binding above it on the stack.
func (c *Compiler) compilePatternTest(pat ast.Pattern, fails *[]int) error {
	line := pat.GetToken().Line
	switch p := pat.(type) {
	case *ast.WildcardPattern:
		c.chunk().EmitOp(OpPop, line)
		return nil

	case *ast.VarPattern:
		_, err := c.addLocal(p.Name, line, p.Token.Column)
		return err

	case *ast.LiteralPattern:
		c.chunk().EmitOp(OpDup, line)
		if err := c.compileExpr(p.Value); err != nil {
			return err
		}
		c.chunk().EmitOp(OpEq, c.line)
		*fails = append(*fails, c.emitJump(OpJumpIfFalse, c.line))
		c.chunk().EmitOp(OpPop, c.line)
		return nil

	case *ast.NilPattern:
		c.chunk().EmitOp(OpDup, line)
		c.chunk().EmitOp(OpIsNil, line)
		*fails = append(*fails, c.emitJump(OpJumpIfFalse, c.line))
		c.chunk().EmitOp(OpPop, c.line)
		return nil

	case *ast.ConsPattern:
		subj, err := c.addLocal("$cons", line, p.Token.Column)
		if err != nil {
			return err
		}
		c.chunk().EmitOp(OpLoadLocal, line)
		c.chunk().EmitByte(byte(subj), line)
		c.chunk().EmitOp(OpIsCons, line)
		*fails = append(*fails, c.emitJump(OpJumpIfFalse, c.line))

		c.chunk().EmitOp(OpLoadLocal, c.line)
		c.chunk().EmitByte(byte(subj), c.line)
		c.chunk().EmitOp(OpConsHead, c.line)
		if err := c.compilePatternTest(p.Head, fails); err != nil {
			return err
		}
		c.chunk().EmitOp(OpLoadLocal, c.line)
		c.chunk().EmitByte(byte(subj), c.line)
		c.chunk().EmitOp(OpConsTail, c.line)
		return c.compilePatternTest(p.Tail, fails)

	case *ast.TuplePattern:
		subj, err := c.addLocal("$tuple", line, p.Token.Column)
		if err != nil {
			return err
		}
		if len(p.Elems) > 255 {
			return newCompileError(ErrUnsupportedPattern, line, p.Token.Column, "tuple pattern arity %d exceeds 255", len(p.Elems))
		}
		c.chunk().EmitOp(OpLoadLocal, line)
		c.chunk().EmitByte(byte(subj), line)
		c.chunk().EmitOp(OpIsTuple, line)
		c.chunk().EmitByte(byte(len(p.Elems)), line)
		*fails = append(*fails, c.emitJump(OpJumpIfFalse, c.line))

		for i, elem := range p.Elems {
			c.chunk().EmitOp(OpLoadLocal, c.line)
			c.chunk().EmitByte(byte(subj), c.line)
			c.chunk().EmitOp(OpTupleElem, c.line)
			c.chunk().EmitByte(byte(i), c.line)
			if err := c.compilePatternTest(elem, fails); err != nil {
				return err
			}
		}
		return nil

	case *ast.VariantPattern:
		subj, err := c.addLocal("$variant", line, p.Token.Column)
		if err != nil {
			return err
		}
		if len(p.Args) > 255 {
			return newCompileError(ErrUnsupportedPattern, line, p.Token.Column, "variant pattern arity %d exceeds 255", len(p.Args))
		}
		ctorIdx, err := c.chunk().AddConstant(Str(p.Ctor))
		if err != nil {
			return err
		}
		c.chunk().EmitOp(OpLoadLocal, line)
		c.chunk().EmitByte(byte(subj), line)
		c.chunk().EmitOp(OpIsVariant, line)
		c.chunk().EmitU16(uint16(ctorIdx), line)
		*fails = append(*fails, c.emitJump(OpJumpIfFalse, c.line))

		for i, arg := range p.Args {
			c.chunk().EmitOp(OpLoadLocal, c.line)
			c.chunk().EmitByte(byte(subj), c.line)
			c.chunk().EmitOp(OpVariantArg, c.line)
			c.chunk().EmitByte(byte(i), c.line)
			if err := c.compilePatternTest(arg, fails); err != nil {
				return err
			}
		}
		return nil

	case *ast.RecordPattern:
		subj, err := c.addLocal("$record", line, p.Token.Column)
		if err != nil {
			return err
		}
		for i, name := range p.Fields {
			idx, err := c.chunk().AddConstant(Str(name))
			if err != nil {
				return err
			}
			c.chunk().EmitOp(OpLoadLocal, c.line)
			c.chunk().EmitByte(byte(subj), c.line)
			c.chunk().EmitOp(OpGetField, c.line)
			c.chunk().EmitU16(uint16(idx), c.line)
			if err := c.compilePatternTest(p.Elems[i], fails); err != nil {
				return err
			}
		}
		return nil

	default:
		return newCompileError(ErrUnsupportedPattern, line, pat.GetToken().Column, "unsupported pattern node %T", pat)
	}
}
