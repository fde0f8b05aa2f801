// Package parser is a recursive-descent parser producing the AST
// defined in internal/ast. Concrete syntax choices here (e.g.
// ending a module block at the first token that is not `let`, or the capitalization
// convention used to recognize variant constructors) are this
// implementation's own: only the AST shape the compiler consumes is
// load-bearing, not the grammar that produces it.
package parser

import (
	"fmt"
	"strconv"
	"unicode"

	"github.com/fusabi-lang/fusabi/internal/ast"
	"github.com/fusabi-lang/fusabi/internal/lexer"
	"github.com/fusabi-lang/fusabi/internal/token"
)

// ParseError reports a syntax error with source position.
type ParseError struct {
	Message string
	Line    int
	Column  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

type Parser struct {
	l *lexer.Lexer

	cur  token.Token
	peek token.Token

	errors []error
}

func New(src string) *Parser {
	p := &Parser{l: lexer.New(src)}
	p.next()
	p.next()
	return p
}

// Parse parses an entire program: zero or more module declarations,
// zero or more opens, then the main expression.
func Parse(src string) (*ast.Program, error) {
	p := New(src)
	prog := p.parseProgram()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return prog, nil
}

func (p *Parser) next() {
	p.cur = p.peek
	if p.l == nil {
		return
	}
	tok := p.l.NextToken()
	for tok.Type == token.NEWLINE {
		tok = p.l.NextToken()
	}
	p.peek = tok
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, &ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    p.cur.Line,
		Column:  p.cur.Column,
	})
}

func (p *Parser) expect(t token.Type) token.Token {
	tok := p.cur
	if p.cur.Type != t {
		p.errorf("expected %s, got %s (%q)", t, p.cur.Type, p.cur.Lexeme)
	}
	p.next()
	return tok
}

func (p *Parser) curIs(t token.Type) bool { return p.cur.Type == t }

func isCapitalized(s string) bool {
	if s == "" {
		return false
	}
	r := []rune(s)[0]
	return unicode.IsUpper(r)
}

func (p *Parser) parseProgram() *ast.Program {
	prog := &ast.Program{}
	for p.curIs(token.MODULE) || p.curIs(token.OPEN) {
		if p.curIs(token.MODULE) {
			prog.Modules = append(prog.Modules, p.parseModuleDecl())
		} else {
			prog.Imports = append(prog.Imports, p.parseOpenDecl())
		}
	}
	prog.Main = p.parseExpr()
	return prog
}

func (p *Parser) parseModuleDecl() *ast.ModuleDecl {
	tok := p.expect(token.MODULE)
	name := p.expect(token.IDENT).Lexeme
	for p.curIs(token.DOT) {
		p.next()
		name = name + "." + p.expect(token.IDENT).Lexeme
	}
	m := &ast.ModuleDecl{Token: tok, Name: name}
	p.expect(token.ASSIGN)
	for p.curIs(token.LET) {
		bTok := p.cur
		p.next()
		bName := p.expect(token.IDENT).Lexeme
		p.expect(token.ASSIGN)
		val := p.parseExpr()
		m.Bindings = append(m.Bindings, &ast.BindingDecl{Token: bTok, Name: bName, Value: val})
	}
	return m
}

func (p *Parser) parseOpenDecl() *ast.OpenDecl {
	tok := p.expect(token.OPEN)
	path := []string{p.expect(token.IDENT).Lexeme}
	for p.curIs(token.DOT) {
		p.next()
		path = append(path, p.expect(token.IDENT).Lexeme)
	}
	return &ast.OpenDecl{Token: tok, Path: path}
}

// --- Expressions, precedence climbing ---

func (p *Parser) parseExpr() ast.Expression {
	switch p.cur.Type {
	case token.LET:
		return p.parseLet()
	case token.IF:
		return p.parseIf()
	case token.MATCH:
		return p.parseMatch()
	case token.FUN:
		return p.parseLambda()
	default:
		return p.parseOr()
	}
}

func (p *Parser) parseLet() ast.Expression {
	tok := p.expect(token.LET)
	// rhs parses `[params] = expr`; `let f x y = e` binds f to fun x y -> e.
	rhs := func() ast.Expression {
		var params []string
		for ; p.curIs(token.IDENT); p.next() {
			params = append(params, p.cur.Lexeme)
		}
		p.expect(token.ASSIGN)
		val := p.parseExpr()
		if len(params) == 0 {
			return val
		}
		return &ast.Lambda{Token: tok, Params: params, Body: val}
	}
	if p.curIs(token.REC) {
		p.next()
		var names []string
		var values []ast.Expression
		names = append(names, p.expect(token.IDENT).Lexeme)
		values = append(values, rhs())
		for p.curIs(token.ANDKW) {
			p.next()
			names = append(names, p.expect(token.IDENT).Lexeme)
			values = append(values, rhs())
		}
		p.expect(token.IN)
		body := p.parseExpr()
		return &ast.LetRecExpr{Token: tok, Names: names, Values: values, Body: body}
	}
	name := p.expect(token.IDENT).Lexeme
	val := rhs()
	p.expect(token.IN)
	body := p.parseExpr()
	return &ast.LetExpr{Token: tok, Name: name, Value: val, Body: body}
}

func (p *Parser) parseIf() ast.Expression {
	tok := p.expect(token.IF)
	cond := p.parseExpr()
	p.expect(token.THEN)
	then := p.parseExpr()
	p.expect(token.ELSE)
	els := p.parseExpr()
	return &ast.IfExpr{Token: tok, Cond: cond, ThenBranch: then, ElseBranch: els}
}

func (p *Parser) parseLambda() ast.Expression {
	tok := p.expect(token.FUN)
	var params []string
	for p.curIs(token.IDENT) {
		params = append(params, p.cur.Lexeme)
		p.next()
	}
	p.expect(token.ARROW)
	body := p.parseExpr()
	return &ast.Lambda{Token: tok, Params: params, Body: body}
}

func (p *Parser) parseMatch() ast.Expression {
	tok := p.expect(token.MATCH)
	scrut := p.parseExpr()
	p.expect(token.WITH)
	m := &ast.MatchExpr{Token: tok, Scrutinee: scrut}
	for p.curIs(token.PIPE) {
		p.next()
		pat := p.parsePattern()
		var guard ast.Expression
		if p.curIs(token.WHEN) {
			p.next()
			guard = p.parseOr()
		}
		p.expect(token.ARROW)
		body := p.parseExpr()
		m.Arms = append(m.Arms, ast.MatchArm{Pattern: pat, Guard: guard, Body: body})
	}
	return m
}

func (p *Parser) parseOr() ast.Expression {
	left := p.parseAnd()
	for p.curIs(token.OR) {
		tok := p.cur
		p.next()
		right := p.parseAnd()
		left = &ast.BinaryExpr{Token: tok, Op: "||", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expression {
	left := p.parseCons()
	for p.curIs(token.AND) {
		tok := p.cur
		p.next()
		right := p.parseCons()
		left = &ast.BinaryExpr{Token: tok, Op: "&&", Left: left, Right: right}
	}
	return left
}

// Cons is right-associative: 1 :: 2 :: [] parses as 1 :: (2 :: []).
func (p *Parser) parseCons() ast.Expression {
	left := p.parseCmp()
	if p.curIs(token.COLONCOLON) {
		tok := p.cur
		p.next()
		right := p.parseCons()
		return &ast.ConsExpr{Token: tok, Head: left, Tail: right}
	}
	return left
}

func (p *Parser) parseCmp() ast.Expression {
	left := p.parseAdd()
	for p.curIs(token.EQ) || p.curIs(token.NEQ) || p.curIs(token.LT) ||
		p.curIs(token.LTE) || p.curIs(token.GT) || p.curIs(token.GTE) {
		tok := p.cur
		op := tok.Lexeme
		p.next()
		right := p.parseAdd()
		left = &ast.BinaryExpr{Token: tok, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdd() ast.Expression {
	left := p.parseMul()
	for p.curIs(token.PLUS) || p.curIs(token.MINUS) {
		tok := p.cur
		op := tok.Lexeme
		p.next()
		right := p.parseMul()
		left = &ast.BinaryExpr{Token: tok, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMul() ast.Expression {
	left := p.parseUnary()
	for p.curIs(token.STAR) || p.curIs(token.SLASH) || p.curIs(token.PERCENT) {
		tok := p.cur
		op := tok.Lexeme
		p.next()
		right := p.parseUnary()
		left = &ast.BinaryExpr{Token: tok, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expression {
	if p.curIs(token.NOT) || p.curIs(token.MINUS) {
		tok := p.cur
		op := tok.Lexeme
		p.next()
		operand := p.parseUnary()
		if op == "-" {
			return &ast.BinaryExpr{Token: tok, Op: "neg", Left: operand}
		}
		return &ast.BinaryExpr{Token: tok, Op: "not", Left: operand}
	}
	return p.parsePostfix()
}

// parsePostfix handles application (juxtaposition), field access,
// and array indexing/assignment, all left-to-right.
func (p *Parser) parsePostfix() ast.Expression {
	expr := p.parsePrimary()
	for {
		switch {
		case p.curIs(token.DOT) && p.peek.Type == token.LBRACKET:
			tok := p.cur
			p.next() // consume '.'
			p.next() // consume '['
			idx := p.parseExpr()
			p.expect(token.RBRACKET)
			if p.curIs(token.LARROW) {
				p.next()
				val := p.parseExpr()
				expr = &ast.IndexSetExpr{Token: tok, Array: expr, Index: idx, Value: val}
			} else {
				expr = &ast.IndexExpr{Token: tok, Array: expr, Index: idx}
			}
		case p.curIs(token.DOT):
			tok := p.cur
			p.next()
			field := p.expect(token.IDENT).Lexeme
			expr = &ast.FieldAccess{Token: tok, Record: expr, Field: field}
		case p.startsArgument():
			expr = p.parseApplication(expr)
		default:
			return expr
		}
	}
}

// startsArgument reports whether the current token can begin a function
// call argument in juxtaposition position (`f x y`).
func (p *Parser) startsArgument() bool {
	switch p.cur.Type {
	case token.INT, token.STRING, token.TRUE, token.FALSE, token.IDENT,
		token.LPAREN, token.LBRACKET, token.ARRLBRACK, token.LBRACE, token.UNDERSCORE:
		return true
	default:
		return false
	}
}

func (p *Parser) parseApplication(fn ast.Expression) ast.Expression {
	tok := p.cur
	var args []ast.Expression
	for p.startsArgument() {
		args = append(args, p.parsePrimary())
	}
	return &ast.Application{Token: tok, Fn: fn, Args: args}
}

func (p *Parser) parsePrimary() ast.Expression {
	switch p.cur.Type {
	case token.INT:
		tok := p.cur
		v, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			p.errorf("invalid integer literal %q", tok.Lexeme)
		}
		p.next()
		return &ast.IntLit{Token: tok, Value: v}
	case token.STRING:
		tok := p.cur
		p.next()
		return &ast.StringLit{Token: tok, Value: tok.Literal}
	case token.TRUE:
		tok := p.cur
		p.next()
		return &ast.BoolLit{Token: tok, Value: true}
	case token.FALSE:
		tok := p.cur
		p.next()
		return &ast.BoolLit{Token: tok, Value: false}
	case token.UNDERSCORE:
		tok := p.cur
		p.next()
		return &ast.Identifier{Token: tok, Parts: []string{"_"}}
	case token.IDENT:
		return p.parseIdentOrVariant()
	case token.LPAREN:
		return p.parseParenOrTuple()
	case token.LBRACKET:
		return p.parseList()
	case token.ARRLBRACK:
		return p.parseArray()
	case token.LBRACE:
		return p.parseRecord()
	default:
		p.errorf("unexpected token %s (%q)", p.cur.Type, p.cur.Lexeme)
		tok := p.cur
		p.next()
		return &ast.UnitLit{Token: tok}
	}
}

// parseIdentOrVariant reads a (possibly dotted) identifier and always
// returns it as an Identifier, constructor names included: the
// compiler, not the parser, recognizes a capitalized constructor name
// and lowers it (and any application of it) to a variant build.
func (p *Parser) parseIdentOrVariant() ast.Expression {
	tok := p.cur
	parts := []string{p.cur.Lexeme}
	p.next()
	for p.curIs(token.DOT) && p.peek.Type == token.IDENT {
		p.next()
		parts = append(parts, p.cur.Lexeme)
		p.next()
	}
	return &ast.Identifier{Token: tok, Parts: parts}
}

func (p *Parser) parseParenOrTuple() ast.Expression {
	tok := p.expect(token.LPAREN)
	if p.curIs(token.RPAREN) {
		p.next()
		return &ast.UnitLit{Token: tok}
	}
	first := p.parseExpr()
	if p.curIs(token.COMMA) {
		elems := []ast.Expression{first}
		for p.curIs(token.COMMA) {
			p.next()
			elems = append(elems, p.parseExpr())
		}
		p.expect(token.RPAREN)
		return &ast.TupleLit{Token: tok, Elements: elems}
	}
	p.expect(token.RPAREN)
	return first
}

func (p *Parser) parseList() ast.Expression {
	tok := p.expect(token.LBRACKET)
	var elems []ast.Expression
	if !p.curIs(token.RBRACKET) {
		elems = append(elems, p.parseExpr())
		for p.curIs(token.SEMI) || p.curIs(token.COMMA) {
			p.next()
			elems = append(elems, p.parseExpr())
		}
	}
	p.expect(token.RBRACKET)
	return &ast.ListLit{Token: tok, Elements: elems}
}

func (p *Parser) parseArray() ast.Expression {
	tok := p.expect(token.ARRLBRACK)
	var elems []ast.Expression
	if !p.curIs(token.ARRRBRACK) {
		elems = append(elems, p.parseExpr())
		for p.curIs(token.SEMI) || p.curIs(token.COMMA) {
			p.next()
			elems = append(elems, p.parseExpr())
		}
	}
	p.expect(token.ARRRBRACK)
	return &ast.ArrayLit{Token: tok, Elements: elems}
}

func (p *Parser) parseRecord() ast.Expression {
	tok := p.expect(token.LBRACE)
	// Functional update: { base with field = val; ... }. The base is
	// restricted to a bare identifier so this can be recognized with a
	// single token of lookahead, without backtracking the lexer.
	if p.curIs(token.IDENT) && p.peek.Type == token.WITH {
		baseTok := p.cur
		baseExpr := &ast.Identifier{Token: baseTok, Parts: []string{baseTok.Lexeme}}
		p.next() // consume ident
		p.next() // consume 'with'
		fields := p.parseRecordFields()
		p.expect(token.RBRACE)
		return &ast.RecordUpdate{Token: tok, Base: baseExpr, Fields: fields}
	}
	fields := p.parseRecordFields()
	p.expect(token.RBRACE)
	return &ast.RecordLit{Token: tok, Fields: fields}
}

func (p *Parser) parseRecordFields() []ast.RecordField {
	var fields []ast.RecordField
	if p.curIs(token.RBRACE) {
		return fields
	}
	for {
		name := p.expect(token.IDENT).Lexeme
		p.expect(token.ASSIGN)
		val := p.parseExpr()
		fields = append(fields, ast.RecordField{Name: name, Value: val})
		if p.curIs(token.SEMI) {
			p.next()
			continue
		}
		break
	}
	return fields
}

// --- Patterns ---

func (p *Parser) parsePattern() ast.Pattern {
	pat := p.parseConsPattern()
	return pat
}

func (p *Parser) parseConsPattern() ast.Pattern {
	left := p.parsePrimaryPattern()
	if p.curIs(token.COLONCOLON) {
		tok := p.cur
		p.next()
		right := p.parseConsPattern()
		return &ast.ConsPattern{Token: tok, Head: left, Tail: right}
	}
	return left
}

func (p *Parser) parsePrimaryPattern() ast.Pattern {
	switch p.cur.Type {
	case token.UNDERSCORE:
		tok := p.cur
		p.next()
		return &ast.WildcardPattern{Token: tok}
	case token.INT:
		tok := p.cur
		v, _ := strconv.ParseInt(tok.Lexeme, 10, 64)
		p.next()
		return &ast.LiteralPattern{Token: tok, Value: &ast.IntLit{Token: tok, Value: v}}
	case token.STRING:
		tok := p.cur
		p.next()
		return &ast.LiteralPattern{Token: tok, Value: &ast.StringLit{Token: tok, Value: tok.Literal}}
	case token.TRUE:
		tok := p.cur
		p.next()
		return &ast.LiteralPattern{Token: tok, Value: &ast.BoolLit{Token: tok, Value: true}}
	case token.FALSE:
		tok := p.cur
		p.next()
		return &ast.LiteralPattern{Token: tok, Value: &ast.BoolLit{Token: tok, Value: false}}
	case token.LBRACKET:
		tok := p.cur
		p.next()
		p.expect(token.RBRACKET)
		return &ast.NilPattern{Token: tok}
	case token.LPAREN:
		tok := p.cur
		p.next()
		if p.curIs(token.RPAREN) {
			p.next()
			return &ast.WildcardPattern{Token: tok}
		}
		first := p.parsePattern()
		if p.curIs(token.COMMA) {
			elems := []ast.Pattern{first}
			for p.curIs(token.COMMA) {
				p.next()
				elems = append(elems, p.parsePattern())
			}
			p.expect(token.RPAREN)
			return &ast.TuplePattern{Token: tok, Elems: elems}
		}
		p.expect(token.RPAREN)
		return first
	case token.LBRACE:
		return p.parseRecordPattern()
	case token.IDENT:
		tok := p.cur
		name := p.cur.Lexeme
		p.next()
		typeName := ""
		ctor := name
		if p.curIs(token.DOT) {
			p.next()
			ctor = p.expect(token.IDENT).Lexeme
			typeName = name
		}
		if isCapitalized(ctor) {
			var args []ast.Pattern
			if p.curIs(token.LPAREN) {
				p.next()
				if !p.curIs(token.RPAREN) {
					args = append(args, p.parsePattern())
					for p.curIs(token.COMMA) {
						p.next()
						args = append(args, p.parsePattern())
					}
				}
				p.expect(token.RPAREN)
			}
			return &ast.VariantPattern{Token: tok, TypeName: typeName, Ctor: ctor, Args: args}
		}
		return &ast.VarPattern{Token: tok, Name: name}
	default:
		p.errorf("unexpected token in pattern: %s (%q)", p.cur.Type, p.cur.Lexeme)
		tok := p.cur
		p.next()
		return &ast.WildcardPattern{Token: tok}
	}
}

func (p *Parser) parseRecordPattern() ast.Pattern {
	tok := p.expect(token.LBRACE)
	var names []string
	var elems []ast.Pattern
	if !p.curIs(token.RBRACE) {
		for {
			name := p.expect(token.IDENT).Lexeme
			var sub ast.Pattern
			if p.curIs(token.ASSIGN) {
				p.next()
				sub = p.parsePattern()
			} else {
				sub = &ast.VarPattern{Token: p.cur, Name: name}
			}
			names = append(names, name)
			elems = append(elems, sub)
			if p.curIs(token.SEMI) {
				p.next()
				continue
			}
			break
		}
	}
	p.expect(token.RBRACE)
	return &ast.RecordPattern{Token: tok, Fields: names, Elems: elems}
}
