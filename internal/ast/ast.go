// Package ast defines the program tree produced by the parser: a DAG of
// tagged-sum nodes (Expr, Stmt), dispatched by a type switch rather than
// virtual dispatch — the Go-idiomatic replacement for the reference
// compiler's base-class hierarchy (spec.md §9, "tagged sums" redesign
// note), the same interface-plus-type-switch shape malphas-lang's
// internal/ast package uses for its own node set.
package ast

import (
	"github.com/kementzetzidis/fractal/internal/lexer"
	"github.com/kementzetzidis/fractal/internal/source"
	"github.com/kementzetzidis/fractal/internal/types"
)

// Expr is any expression node. Every Expr carries a synthesized Type,
// set by the semantic analyzer, and non-Empty for every expression
// reachable from a well-typed program (spec.md §8 invariant 3).
type Expr interface {
	Pos() source.Position
	exprNode()
	ExprType() *types.Type
	SetExprType(*types.Type)
}

// exprBase factors out the ExprType bookkeeping every Expr needs.
type exprBase struct {
	Type *types.Type
}

func (e *exprBase) ExprType() *types.Type {
	if e.Type == nil {
		return types.Empty
	}
	return e.Type
}
func (e *exprBase) SetExprType(t *types.Type) { e.Type = t }

type IntegerLiteral struct {
	exprBase
	Value    int64
	Position source.Position
}

func (n *IntegerLiteral) Pos() source.Position { return n.Position }
func (*IntegerLiteral) exprNode()              {}

type FloatLiteral struct {
	exprBase
	Value    float64
	Position source.Position
}

func (n *FloatLiteral) Pos() source.Position { return n.Position }
func (*FloatLiteral) exprNode()              {}

type StringLiteral struct {
	exprBase
	Value    string
	Position source.Position
}

func (n *StringLiteral) Pos() source.Position { return n.Position }
func (*StringLiteral) exprNode()              {}

type CharacterLiteral struct {
	exprBase
	Value    string
	Position source.Position
}

func (n *CharacterLiteral) Pos() source.Position { return n.Position }
func (*CharacterLiteral) exprNode()              {}

// ArrayList is a `[a, b, c]` literal; each element keeps its own position
// for per-element diagnostics even though the node's own Position spans
// the brackets.
type ArrayList struct {
	exprBase
	Elements []Expr
	Position source.Position
}

func (n *ArrayList) Pos() source.Position { return n.Position }
func (*ArrayList) exprNode()              {}

// Identifier references a name; its NameToken's lexeme is rewritten in
// place to the resolved mangled name by the semantic analyzer
// (spec.md §8 invariant 3), so later phases never need a side table.
type Identifier struct {
	exprBase
	NameToken lexer.Token
}

func (n *Identifier) Pos() source.Position { return n.NameToken.Position }
func (*Identifier) exprNode()              {}
func (n *Identifier) Name() string         { return n.NameToken.Lexeme }

type UnaryOp struct {
	exprBase
	Op         lexer.Token
	Expression Expr
}

func (n *UnaryOp) Pos() source.Position { return n.Op.Position }
func (*UnaryOp) exprNode()              {}

type BinaryOp struct {
	exprBase
	Left  Expr
	Op    lexer.Token
	Right Expr
}

func (n *BinaryOp) Pos() source.Position { return n.Op.Position }
func (*BinaryOp) exprNode()              {}

// Assignment covers `lhs = rhs`, `lhs += rhs`, etc. The lvalue must be
// an Identifier, Call, or MemberAccess (spec.md §3, §4.3).
type Assignment struct {
	exprBase
	Lvalue Expr
	Op     lexer.Token
	Rvalue Expr
}

func (n *Assignment) Pos() source.Position { return n.Op.Position }
func (*Assignment) exprNode()              {}

// MemberAccess covers both `.` and `->` access.
type MemberAccess struct {
	exprBase
	Base   Expr
	Op     lexer.Token // "." or "->"
	Member lexer.Token
}

func (n *MemberAccess) Pos() source.Position { return n.Op.Position }
func (*MemberAccess) exprNode()              {}

type Call struct {
	exprBase
	FuncToken lexer.Token
	Args      []Expr
}

func (n *Call) Pos() source.Position { return n.FuncToken.Position }
func (*Call) exprNode()              {}

// Stmt is any statement node, including Definitions (spec.md §3:
// "Definitions are also a statement subtype so locals can appear in
// block context").
type Stmt interface {
	Pos() source.Position
	stmtNode()
}

type NullStmt struct{ Position source.Position }

func (n *NullStmt) Pos() source.Position { return n.Position }
func (*NullStmt) stmtNode()              {}

type CompoundStmt struct {
	Statements []Stmt
	Position   source.Position
}

func (n *CompoundStmt) Pos() source.Position { return n.Position }
func (*CompoundStmt) stmtNode()              {}

type ExpressionStmt struct {
	Expression Expr
	Position   source.Position
}

func (n *ExpressionStmt) Pos() source.Position { return n.Position }
func (*ExpressionStmt) stmtNode()              {}

type ReturnStmt struct {
	Expression Expr
	Token      lexer.Token
}

func (n *ReturnStmt) Pos() source.Position { return n.Token.Position }
func (*ReturnStmt) stmtNode()              {}

type IfStmt struct {
	Condition Expr
	Then      Stmt
	Else      Stmt // nil if absent
	Position  source.Position
}

func (n *IfStmt) Pos() source.Position { return n.Position }
func (*IfStmt) stmtNode()              {}

// LoopID tags a loop so Break/Continue can be validated against it
// (spec.md §8 invariant 6).
type LoopID int

type LoopStmt struct {
	Body     Stmt
	ID       LoopID
	Position source.Position
}

func (n *LoopStmt) Pos() source.Position { return n.Position }
func (*LoopStmt) stmtNode()              {}

type WhileStmt struct {
	Condition Expr
	Body      Stmt
	ID        LoopID
	Position  source.Position
}

func (n *WhileStmt) Pos() source.Position { return n.Position }
func (*WhileStmt) stmtNode()              {}

type BreakStmt struct {
	Token lexer.Token
	LoopID LoopID
}

func (n *BreakStmt) Pos() source.Position { return n.Token.Position }
func (*BreakStmt) stmtNode()              {}

type ContinueStmt struct {
	Token  lexer.Token
	LoopID LoopID
}

func (n *ContinueStmt) Pos() source.Position { return n.Token.Position }
func (*ContinueStmt) stmtNode()              {}

// Parameter is a function parameter; NameToken's lexeme is rewritten to
// its mangled name by the semantic analyzer, same as Identifier.
type Parameter struct {
	NameToken lexer.Token
	Type      *types.Type
}

// FunctionDef is both a Definition and (per spec.md §3) a Stmt, so it can
// appear wherever a local definition can.
type FunctionDef struct {
	NameToken  lexer.Token
	Parameters []Parameter
	ReturnType *types.Type
	Body       Stmt
	Position   source.Position
}

func (n *FunctionDef) Pos() source.Position { return n.Position }
func (*FunctionDef) stmtNode()              {}

type VariableDef struct {
	NameToken    lexer.Token
	DeclaredType *types.Type
	Initializer  Expr // nil if absent
	IsConst      bool
	IsGlobal     bool
	Position     source.Position
}

func (n *VariableDef) Pos() source.Position { return n.Position }
func (*VariableDef) stmtNode()              {}

// ClassMember is one member of a class body; class bodies parse but do
// not code-generate (spec.md §1 Non-goals; spec.md §9 open question,
// resolved in SPEC_FULL.md §4 as a clear semantic-analysis error).
type ClassMember struct {
	IsPublic bool
	Def      Stmt // FunctionDef or VariableDef
}

type ClassDef struct {
	NameToken lexer.Token
	Members   []ClassMember
	Position  source.Position
}

func (n *ClassDef) Pos() source.Position { return n.Position }
func (*ClassDef) stmtNode()              {}

// Program is the whole parsed file: ordered definitions and ordered
// top-level statements, the latter forming the body of the implicit
// `main` entry (spec.md §3, §4.2).
type Program struct {
	Definitions []Stmt // FunctionDef | VariableDef | ClassDef
	Statements  []Stmt
}
