// Package ast defines the surface syntax tree the parser produces and
// the compiler consumes. The shape matches spec §3: literals, variable
// references, let/let-rec, lambdas, application, conditionals,
// aggregate literals, record operations, variant construction, match,
// module-qualified references, and cons.
package ast

import "github.com/fusabi-lang/fusabi/internal/token"

// Node is the base interface every AST node satisfies.
type Node interface {
	GetToken() token.Token
	TokenLiteral() string
}

// Expression is any node that evaluates to a value.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node: a set of modules, a list of opens applied
// in order, and the main expression whose value is the program's result.
type Program struct {
	Modules []*ModuleDecl
	Imports []*OpenDecl
	Main    Expression
}

func (p *Program) GetToken() token.Token {
	if p.Main != nil {
		return p.Main.GetToken()
	}
	return token.Token{}
}
func (p *Program) TokenLiteral() string { return "program" }

// ModuleDecl declares a named module with its bindings and type defs.
type ModuleDecl struct {
	Token    token.Token
	Name     string
	Bindings []*BindingDecl
	Types    []*TypeDecl
}

func (m *ModuleDecl) GetToken() token.Token { return m.Token }
func (m *ModuleDecl) TokenLiteral() string  { return m.Token.Lexeme }

// BindingDecl is one `let name = expr` entry inside a module.
type BindingDecl struct {
	Token token.Token
	Name  string
	Value Expression
}

// TypeDecl declares a variant or record type definition inside a module.
type TypeDecl struct {
	Token        token.Token
	Name         string
	IsRecord     bool
	Fields       []string          // record field names, in declared order
	Constructors map[string]int    // variant constructor name -> payload arity
	CtorOrder    []string          // constructor declaration order
}

// OpenDecl is `open M` or `open M.N`.
type OpenDecl struct {
	Token token.Token
	Path  []string // dotted path, e.g. ["Outer", "Inner"]
}

func (o *OpenDecl) GetToken() token.Token { return o.Token }
func (o *OpenDecl) TokenLiteral() string  { return "open" }

// ---- Expressions ----

type IntLit struct {
	Token token.Token
	Value int64
}

func (e *IntLit) expressionNode()        {}
func (e *IntLit) GetToken() token.Token  { return e.Token }
func (e *IntLit) TokenLiteral() string   { return e.Token.Lexeme }

type BoolLit struct {
	Token token.Token
	Value bool
}

func (e *BoolLit) expressionNode()       {}
func (e *BoolLit) GetToken() token.Token { return e.Token }
func (e *BoolLit) TokenLiteral() string  { return e.Token.Lexeme }

type StringLit struct {
	Token token.Token
	Value string
}

func (e *StringLit) expressionNode()       {}
func (e *StringLit) GetToken() token.Token { return e.Token }
func (e *StringLit) TokenLiteral() string  { return e.Token.Lexeme }

type UnitLit struct{ Token token.Token }

func (e *UnitLit) expressionNode()       {}
func (e *UnitLit) GetToken() token.Token { return e.Token }
func (e *UnitLit) TokenLiteral() string  { return "()" }

// Identifier is a bare variable reference, possibly dotted (Module.name).
type Identifier struct {
	Token token.Token
	Parts []string // ["x"] or ["M", "x"]
}

func (e *Identifier) expressionNode()       {}
func (e *Identifier) GetToken() token.Token { return e.Token }
func (e *Identifier) TokenLiteral() string  { return e.Token.Lexeme }

type BinaryExpr struct {
	Token token.Token
	Op    string
	Left  Expression
	Right Expression
}

func (e *BinaryExpr) expressionNode()       {}
func (e *BinaryExpr) GetToken() token.Token { return e.Token }
func (e *BinaryExpr) TokenLiteral() string  { return e.Op }

// LetExpr is `let name = value in body` (non-recursive).
type LetExpr struct {
	Token token.Token
	Name  string
	Value Expression
	Body  Expression
}

func (e *LetExpr) expressionNode()       {}
func (e *LetExpr) GetToken() token.Token { return e.Token }
func (e *LetExpr) TokenLiteral() string  { return "let" }

// LetRecExpr binds a (possibly mutually recursive) group of lambda-shaped
// bindings, then evaluates Body with all names in scope.
type LetRecExpr struct {
	Token   token.Token
	Names   []string
	Values  []Expression // each must be *Lambda
	Body    Expression
}

func (e *LetRecExpr) expressionNode()       {}
func (e *LetRecExpr) GetToken() token.Token { return e.Token }
func (e *LetRecExpr) TokenLiteral() string  { return "let rec" }

type Lambda struct {
	Token  token.Token
	Params []string
	Body   Expression
}

func (e *Lambda) expressionNode()       {}
func (e *Lambda) GetToken() token.Token { return e.Token }
func (e *Lambda) TokenLiteral() string  { return "fun" }

type Application struct {
	Token token.Token
	Fn    Expression
	Args  []Expression
}

func (e *Application) expressionNode()       {}
func (e *Application) GetToken() token.Token { return e.Token }
func (e *Application) TokenLiteral() string  { return "apply" }

type IfExpr struct {
	Token     token.Token
	Cond      Expression
	ThenBranch Expression
	ElseBranch Expression
}

func (e *IfExpr) expressionNode()       {}
func (e *IfExpr) GetToken() token.Token { return e.Token }
func (e *IfExpr) TokenLiteral() string  { return "if" }

type TupleLit struct {
	Token    token.Token
	Elements []Expression
}

func (e *TupleLit) expressionNode()       {}
func (e *TupleLit) GetToken() token.Token { return e.Token }
func (e *TupleLit) TokenLiteral() string  { return "tuple" }

type ListLit struct {
	Token    token.Token
	Elements []Expression
}

func (e *ListLit) expressionNode()       {}
func (e *ListLit) GetToken() token.Token { return e.Token }
func (e *ListLit) TokenLiteral() string  { return "list" }

type ArrayLit struct {
	Token    token.Token
	Elements []Expression
}

func (e *ArrayLit) expressionNode()       {}
func (e *ArrayLit) GetToken() token.Token { return e.Token }
func (e *ArrayLit) TokenLiteral() string  { return "array" }

type RecordField struct {
	Name  string
	Value Expression
}

type RecordLit struct {
	Token  token.Token
	Fields []RecordField
}

func (e *RecordLit) expressionNode()       {}
func (e *RecordLit) GetToken() token.Token { return e.Token }
func (e *RecordLit) TokenLiteral() string  { return "record" }

// FieldAccess is `expr.field`.
type FieldAccess struct {
	Token  token.Token
	Record Expression
	Field  string
}

func (e *FieldAccess) expressionNode()       {}
func (e *FieldAccess) GetToken() token.Token { return e.Token }
func (e *FieldAccess) TokenLiteral() string  { return "." + e.Field }

// RecordUpdate is `{ base with field = value; ... }` (functional update).
type RecordUpdate struct {
	Token  token.Token
	Base   Expression
	Fields []RecordField
}

func (e *RecordUpdate) expressionNode()       {}
func (e *RecordUpdate) GetToken() token.Token { return e.Token }
func (e *RecordUpdate) TokenLiteral() string  { return "with" }

// VariantExpr constructs a tagged value: TypeName.Ctor(args...)
type VariantExpr struct {
	Token    token.Token
	TypeName string
	Ctor     string
	Args     []Expression
}

func (e *VariantExpr) expressionNode()       {}
func (e *VariantExpr) GetToken() token.Token { return e.Token }
func (e *VariantExpr) TokenLiteral() string  { return e.Ctor }

// IndexExpr is `arr.[idx]`, an array element read.
type IndexExpr struct {
	Token token.Token
	Array Expression
	Index Expression
}

func (e *IndexExpr) expressionNode()       {}
func (e *IndexExpr) GetToken() token.Token { return e.Token }
func (e *IndexExpr) TokenLiteral() string  { return ".[]" }

// IndexSetExpr is `arr.[idx] <- val`, an in-place array element write.
// It evaluates to Unit.
type IndexSetExpr struct {
	Token token.Token
	Array Expression
	Index Expression
	Value Expression
}

func (e *IndexSetExpr) expressionNode()       {}
func (e *IndexSetExpr) GetToken() token.Token { return e.Token }
func (e *IndexSetExpr) TokenLiteral() string  { return ".[]<-" }

// ConsExpr is `head :: tail`.
type ConsExpr struct {
	Token token.Token
	Head  Expression
	Tail  Expression
}

func (e *ConsExpr) expressionNode()       {}
func (e *ConsExpr) GetToken() token.Token { return e.Token }
func (e *ConsExpr) TokenLiteral() string  { return "::" }

// MatchArm is one arm of a match expression.
type MatchArm struct {
	Pattern Pattern
	Guard   Expression // nil if no `when` clause
	Body    Expression
}

type MatchExpr struct {
	Token     token.Token
	Scrutinee Expression
	Arms      []MatchArm
}

func (e *MatchExpr) expressionNode()       {}
func (e *MatchExpr) GetToken() token.Token { return e.Token }
func (e *MatchExpr) TokenLiteral() string  { return "match" }

// ---- Patterns ----

// Pattern is any node appearing on the left of a match arm.
type Pattern interface {
	Node
	patternNode()
}

type WildcardPattern struct{ Token token.Token }

func (p *WildcardPattern) patternNode()         {}
func (p *WildcardPattern) GetToken() token.Token { return p.Token }
func (p *WildcardPattern) TokenLiteral() string  { return "_" }

type VarPattern struct {
	Token token.Token
	Name  string
}

func (p *VarPattern) patternNode()         {}
func (p *VarPattern) GetToken() token.Token { return p.Token }
func (p *VarPattern) TokenLiteral() string  { return p.Name }

type LiteralPattern struct {
	Token token.Token
	Value Expression // *IntLit, *BoolLit, *StringLit
}

func (p *LiteralPattern) patternNode()         {}
func (p *LiteralPattern) GetToken() token.Token { return p.Token }
func (p *LiteralPattern) TokenLiteral() string  { return p.Value.TokenLiteral() }

type TuplePattern struct {
	Token token.Token
	Elems []Pattern
}

func (p *TuplePattern) patternNode()         {}
func (p *TuplePattern) GetToken() token.Token { return p.Token }
func (p *TuplePattern) TokenLiteral() string  { return "tuple-pattern" }

// ConsPattern matches `head :: tail`.
type ConsPattern struct {
	Token token.Token
	Head  Pattern
	Tail  Pattern
}

func (p *ConsPattern) patternNode()         {}
func (p *ConsPattern) GetToken() token.Token { return p.Token }
func (p *ConsPattern) TokenLiteral() string  { return "::" }

// NilPattern matches the empty list.
type NilPattern struct{ Token token.Token }

func (p *NilPattern) patternNode()         {}
func (p *NilPattern) GetToken() token.Token { return p.Token }
func (p *NilPattern) TokenLiteral() string  { return "[]" }

// VariantPattern matches a tagged value by type+constructor name, binding
// sub-patterns against its payload.
type VariantPattern struct {
	Token    token.Token
	TypeName string
	Ctor     string
	Args     []Pattern
}

func (p *VariantPattern) patternNode()         {}
func (p *VariantPattern) GetToken() token.Token { return p.Token }
func (p *VariantPattern) TokenLiteral() string  { return p.Ctor }

// RecordPattern matches a record's fields, binding each listed field's
// value to a sub-pattern. Fields not listed are ignored.
type RecordPattern struct {
	Token  token.Token
	Fields []string
	Elems  []Pattern
}

func (p *RecordPattern) patternNode()         {}
func (p *RecordPattern) GetToken() token.Token { return p.Token }
func (p *RecordPattern) TokenLiteral() string  { return "record-pattern" }
